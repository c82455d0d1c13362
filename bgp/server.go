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

package bgp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// A RouteInstaller receives the best-route transitions of the Loc-RIB, e.g.
// to program them into the kernel routing table. Calls are serialized.
type RouteInstaller interface {
	Install(nlri netip.Prefix, nexthop netip.Addr)
	Withdraw(nlri netip.Prefix)
}

// Server is a BGP speaker: it owns the routing tables, runs one state machine
// per configured peer, and fans Loc-RIB changes out to the established
// sessions and the optional route installer.
type Server struct {
	// RouterID is a unique identifier for this router within its AS. You must
	// populate this with a 32-bit number formatted as an IPv4 address.
	RouterID string
	// ASN is the autonomous system number. This is required.
	ASN uint32
	// Families are the address families the server routes by default. Peers
	// may narrow the set per session. If empty, IPv4 and IPv6 unicast are
	// assumed.
	Families []Family
	// Installer, if non-nil, receives every Loc-RIB transition.
	Installer RouteInstaller
	// Logger is the destination for structured logs. If nil, the logrus
	// standard logger is used.
	Logger logrus.FieldLogger

	mu           sync.Mutex
	listeners    []net.Listener
	peers        map[netip.Addr]*Peer
	running      bool
	closed       bool
	serverClosed chan struct{}
	peersStopped chan struct{}

	ribMu sync.Mutex
	rib   map[Family]*Table

	// updateMu serializes table mutation plus fan-out so that peers observe
	// Loc-RIB transitions in a single global order.
	updateMu sync.Mutex
}

func (s *Server) logger() logrus.FieldLogger {
	if s.Logger != nil {
		return s.Logger
	}
	return logrus.StandardLogger()
}

func (s *Server) families() []Family {
	if len(s.Families) != 0 {
		return s.Families
	}
	return []Family{IPv4Unicast, IPv6Unicast}
}

// Table returns the routing table of one address family, creating it if
// needed.
func (s *Server) Table(f Family) *Table {
	s.ribMu.Lock()
	defer s.ribMu.Unlock()
	if s.rib == nil {
		s.rib = map[Family]*Table{}
	}
	t := s.rib[f]
	if t == nil {
		t = NewTable()
		s.rib[f] = t
	}
	return t
}

// RIB returns a point-in-time snapshot of the Loc-RIB for one family.
func (s *Server) RIB(f Family) map[netip.Prefix]*Attributes {
	return s.Table(f).Best()
}

// Neighbors returns a snapshot of every configured peer, ordered by address.
func (s *Server) Neighbors() []PeerStatus {
	s.mu.Lock()
	peers := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()
	out := make([]PeerStatus, len(peers))
	for i, p := range peers {
		out[i] = p.Status()
	}
	slices.SortFunc(out, func(a, b PeerStatus) int {
		return a.Addr.Compare(b.Addr)
	})
	return out
}

// Neighbor returns the status of one peer by address.
func (s *Server) Neighbor(addr netip.Addr) (PeerStatus, bool) {
	s.mu.Lock()
	p := s.peers[addr]
	s.mu.Unlock()
	if p == nil {
		return PeerStatus{}, false
	}
	return p.Status(), true
}

// AddRoute originates a route from this server. The attributes may be nil or
// partially populated; an invalid nexthop is replaced per session with the
// local address of the connection. Originated routes compete in the decision
// process like any learned route.
func (s *Server) AddRoute(f Family, nlri netip.Prefix, attrs *Attributes) {
	if attrs == nil {
		attrs = &Attributes{}
	}
	if attrs.Received.IsZero() {
		attrs.Received = time.Now()
	}
	s.updateMu.Lock()
	defer s.updateMu.Unlock()
	changes := s.Table(f).Update(netip.Addr{}, nil, []netip.Prefix{nlri}, attrs)
	s.propagateLocked(f, changes)
}

// RemoveRoute withdraws a route previously originated with AddRoute.
func (s *Server) RemoveRoute(f Family, nlri netip.Prefix) {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()
	changes := s.Table(f).Update(netip.Addr{}, []netip.Prefix{nlri}, nil, nil)
	s.propagateLocked(f, changes)
}

// applyUpdate feeds one decoded UPDATE into the tables and fans the resulting
// Loc-RIB changes out to the other peers and the installer.
func (s *Server) applyUpdate(from *Peer, withdrawn, announced map[Family][]netip.Prefix, attrs *Attributes) {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()
	fams := map[Family]bool{}
	for f := range withdrawn {
		fams[f] = true
	}
	for f := range announced {
		fams[f] = true
	}
	for f := range fams {
		changes := s.Table(f).Update(from.Addr, withdrawn[f], announced[f], attrs)
		s.propagateLocked(f, changes)
	}
}

// peerDown flushes every route learned from a peer whose session ended.
func (s *Server) peerDown(p *Peer) {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()
	for _, f := range s.families() {
		changes := s.Table(f).RemovePeer(p.Addr)
		s.propagateLocked(f, changes)
	}
}

// syncSession enqueues the current best routes to a session that just reached
// Established. Holding updateMu guarantees the snapshot and the subsequent
// change stream do not miss or duplicate a transition.
func (s *Server) syncSession(f *fsm) {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()
	sess := f.session()
	if sess == nil {
		return
	}
	for fam := range sess.Families {
		for nlri, attrs := range s.Table(fam).Best() {
			if attrs.Peer == f.peer.Addr {
				continue
			}
			f.enqueue(fam, Change{NLRI: nlri, Attrs: attrs})
		}
	}
}

func (s *Server) propagateLocked(fam Family, changes []Change) {
	if len(changes) == 0 {
		return
	}
	if s.Installer != nil {
		for _, c := range changes {
			if c.Attrs == nil {
				s.Installer.Withdraw(c.NLRI)
			} else {
				s.Installer.Install(c.NLRI, c.Attrs.Nexthop)
			}
		}
	}
	s.mu.Lock()
	peers := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()
	for _, p := range peers {
		if p.fsm == nil {
			continue
		}
		for _, c := range changes {
			if c.From() == p.Addr {
				continue
			}
			p.fsm.enqueue(fam, c)
		}
	}
}

func (s *Server) startPeer(p *Peer) error {
	// invariant: s.mu is locked
	if p.ConfigureListener != nil {
		for _, l := range s.listeners {
			if err := p.ConfigureListener(l); err != nil {
				return err
			}
		}
	}
	return p.start(s)
}

// AddPeer adds a peer.
//
// Peers that are added to a non-running server will be held idle until Serve
// is called. Peers that are added after the first call to Serve will
// immediately have their state machine start running.
func (s *Server) AddPeer(p *Peer) error {
	if !p.Addr.IsValid() {
		return fmt.Errorf("invalid peer address: %v", p.Addr)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("cannot add peer to closed server")
	}
	if s.peers[p.Addr] != nil {
		return fmt.Errorf("duplicate peer: %v", p.Addr)
	}
	if s.peers == nil {
		s.peers = map[netip.Addr]*Peer{}
	}
	s.peers[p.Addr] = p
	if s.running {
		return s.startPeer(p)
	}
	return nil
}

// RemovePeer stops a peer's state machine and removes it. Routes learned from
// the peer are withdrawn as its session ends.
func (s *Server) RemovePeer(peer netip.Addr) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("cannot remove peer from closed server")
	}
	p := s.peers[peer]
	if p == nil {
		s.mu.Unlock()
		return fmt.Errorf("peer not found: %v", peer)
	}
	delete(s.peers, peer)
	s.mu.Unlock()
	// Stop outside the lock: the FSM's teardown calls back into peerDown.
	p.stop()
	return nil
}

func addrFromNetAddr(a net.Addr) (netip.Addr, int) {
	t, ok := a.(*net.TCPAddr)
	if !ok {
		return netip.Addr{}, 0
	}
	ap, ok := netip.AddrFromSlice(t.IP)
	if !ok {
		return netip.Addr{}, 0
	}
	return ap.Unmap(), t.Port
}

func (s *Server) matchPeer(conn net.Conn) (*Peer, error) {
	localAddr, _ := addrFromNetAddr(conn.LocalAddr())
	remoteAddr, _ := addrFromNetAddr(conn.RemoteAddr())
	if !localAddr.IsValid() || !remoteAddr.IsValid() {
		return nil, errors.New("unsupported peer address type")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var fullMatch, remoteMatch []*Peer
	for _, p := range s.peers {
		switch {
		case remoteAddr == p.Addr && localAddr == p.LocalAddr:
			fullMatch = append(fullMatch, p)
		case remoteAddr == p.Addr && !p.LocalAddr.IsValid():
			remoteMatch = append(remoteMatch, p)
		}
	}
	for _, match := range [][]*Peer{fullMatch, remoteMatch} {
		switch len(match) {
		case 1:
			return match[0], nil
		case 0:
			continue
		default:
			return nil, errors.New("ambiguous match of more than one peer")
		}
	}
	return nil, errors.New("unknown peer")
}

func (s *Server) acceptLoop(l net.Listener) error {
	defer s.Close() // close server if any listener fails
	for {
		conn, err := l.Accept()
		if err != nil {
			return fmt.Errorf("accept on %v: %w", l.Addr(), err)
		}
		p, err := s.matchPeer(conn)
		if err != nil {
			s.logger().WithError(err).Infof("rejecting connection from %v", conn.RemoteAddr())
			conn.Close()
			continue
		}
		select {
		case p.fsm.acceptC <- conn:
			// We've successfully handed off the connection to the FSM.
		default:
			// The FSM's input queue is full; immediately close the connection
			// so that we don't block the accept loop. This can happen if the
			// peer tries to open two connections at once.
			s.logger().Infof("rejecting connection from %v: peer queue is full", conn.RemoteAddr())
			conn.Close()
		}
	}
}

func (s *Server) start(l net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("cannot start a closed server")
	}
	if l != nil {
		s.listeners = append(s.listeners, l)
	}
	if s.running {
		for _, p := range s.peers {
			if p.ConfigureListener != nil && l != nil {
				if err := p.ConfigureListener(l); err != nil {
					return err
				}
			}
		}
		return nil
	}
	s.running = true
	s.serverClosed = make(chan struct{})
	s.peersStopped = make(chan struct{})
	for _, p := range s.peers {
		if err := s.startPeer(p); err != nil {
			return err
		}
	}
	return nil
}

// Serve runs the BGP protocol. A listener is optional, and multiple listeners
// can be provided by calling Serve concurrently in several goroutines. All
// concurrent calls to Serve block until a single call to Shutdown or Close is
// made.
func (s *Server) Serve(l net.Listener) error {
	if err := s.start(l); err != nil {
		return err
	}
	if l != nil {
		return s.acceptLoop(l)
	}
	<-s.serverClosed
	return errors.New("server closed")
}

// Shutdown terminates the server and closes all listeners. It waits for all
// peering connections to be closed before returning.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Close() // ignore errors
	select {
	case <-s.peersStopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close terminates the server and closes all listeners. It does not wait for
// peering connections to be closed; to do that call Shutdown instead.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Only invoke the close sequence once.
	if s.closed {
		return errors.New("server is already closed")
	}
	s.closed = true
	if s.serverClosed == nil {
		// Never started.
		s.serverClosed = make(chan struct{})
		s.peersStopped = make(chan struct{})
	}
	close(s.serverClosed)

	var closeErr error
	for _, l := range s.listeners {
		if err := l.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
	}

	// Stop the peers, but don't wait for them.
	go func() {
		var wg sync.WaitGroup
		for _, p := range s.peers {
			wg.Add(1)
			go func(p *Peer) {
				p.stop()
				wg.Done()
			}(p)
		}
		wg.Wait()
		close(s.peersStopped)
	}()

	return closeErr
}
