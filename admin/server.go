// Copyright 2025 The ubgpd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package admin serves the read-only gRPC query API. Every call works on a
// point-in-time snapshot of the engine and never blocks a BGP session.
package admin

import (
	"context"
	"net"
	"net/netip"
	"slices"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ubgp/ubgpd/api"
	"github.com/ubgp/ubgpd/bgp"
)

// Server implements the Config and State gRPC services.
type Server struct {
	api.UnimplementedConfigServer
	api.UnimplementedStateServer

	engine *bgp.Server
	log    logrus.FieldLogger
	grpc   *grpc.Server
}

// New creates an admin server over the given engine.
func New(engine *bgp.Server, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		engine: engine,
		log:    log.WithField("component", "admin"),
		grpc:   grpc.NewServer(),
	}
	api.RegisterConfigServer(s.grpc, s)
	api.RegisterStateServer(s.grpc, s)
	return s
}

// Serve accepts gRPC connections until Stop is called.
func (s *Server) Serve(l net.Listener) error {
	s.log.WithField("address", l.Addr().String()).Info("admin API listening")
	return s.grpc.Serve(l)
}

// Stop gracefully stops the gRPC server.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

func neighborEntry(st bgp.PeerStatus) *api.NeighborEntry {
	return &api.NeighborEntry{
		Ip:       st.Addr.String(),
		Port:     uint32(st.Port),
		Asn:      st.ASN,
		RouterId: st.RouterID,
		State:    st.State,
	}
}

// GetNeighborConfig returns the configured neighbors and their session
// status, optionally narrowed to a single address.
func (s *Server) GetNeighborConfig(ctx context.Context, req *api.NeighborRequest) (*api.NeighborReply, error) {
	if ip := req.GetIp(); ip != "" {
		addr, err := netip.ParseAddr(ip)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid neighbor address %q", ip)
		}
		st, ok := s.engine.Neighbor(addr.Unmap())
		if !ok {
			return nil, status.Errorf(codes.NotFound, "no neighbor %v", addr)
		}
		return &api.NeighborReply{Neighbors: []*api.NeighborEntry{neighborEntry(st)}}, nil
	}
	statuses := s.engine.Neighbors()
	entries := make([]*api.NeighborEntry, len(statuses))
	for i, st := range statuses {
		entries[i] = neighborEntry(st)
	}
	return &api.NeighborReply{Neighbors: entries}, nil
}

// GetRib returns the Loc-RIB of one address family, ordered by NLRI.
func (s *Server) GetRib(ctx context.Context, req *api.RibRequest) (*api.RibReply, error) {
	if req.GetAfi() > 0xffff || req.GetSafi() > 0xff {
		return nil, status.Errorf(codes.InvalidArgument, "afi/safi out of range: %d/%d", req.GetAfi(), req.GetSafi())
	}
	fam := bgp.NewFamily(uint16(req.GetAfi()), uint8(req.GetSafi()))
	switch fam {
	case bgp.IPv4Unicast, bgp.IPv6Unicast:
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unsupported address family %d/%d", req.GetAfi(), req.GetSafi())
	}
	best := s.engine.RIB(fam)
	entries := make([]*api.RibEntry, 0, len(best))
	for nlri, attrs := range best {
		e := &api.RibEntry{Nlri: nlri.String()}
		if attrs.Nexthop.IsValid() {
			e.Nexthop = attrs.Nexthop.String()
		}
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b *api.RibEntry) int {
		switch {
		case a.Nlri < b.Nlri:
			return -1
		case a.Nlri > b.Nlri:
			return 1
		}
		return 0
	})
	return &api.RibReply{Nlris: entries}, nil
}
