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
	"fmt"
	"net/netip"
	"slices"
	"strings"
	"time"

	"github.com/osrg/gobgp/v3/pkg/packet/bgp"
)

// DefaultLocalPref is assumed for routes that carry no LOCAL_PREF attribute.
const DefaultLocalPref uint32 = 100

// Attributes is the path attribute set of one route, together with the
// identity of the peer that advertised it. Values are treated as immutable
// once inserted into a table; all routes announced in a single UPDATE share
// one instance.
type Attributes struct {
	// Peer is the address of the neighbor the route was received from.
	Peer netip.Addr
	// PeerRouterID is the neighbor's BGP identifier, in host byte order.
	PeerRouterID uint32
	// PeerASN is the neighbor's autonomous system number.
	PeerASN uint32
	// EBGP records whether the route was learned over an external session.
	EBGP bool

	// Nexthop is the NEXT_HOP (or MP_REACH_NLRI nexthop) of the route.
	Nexthop netip.Addr
	// Origin is the ORIGIN code: IGP < EGP < INCOMPLETE.
	Origin uint8
	// ASPath holds the AS_PATH segments in wire order.
	ASPath []bgp.AsPathParamInterface
	// LocalPref is the LOCAL_PREF value when HasLocalPref is set.
	LocalPref    uint32
	HasLocalPref bool
	// MED is the MULTI_EXIT_DISC value when HasMED is set.
	MED    uint32
	HasMED bool
	// Extra preserves optional attributes the engine does not interpret, so
	// that they survive re-advertisement.
	Extra []bgp.PathAttributeInterface

	// Received is the time the route was accepted into the Adj-RIB-In.
	Received time.Time
}

// EffectiveLocalPref returns LOCAL_PREF, or the default when absent.
func (a *Attributes) EffectiveLocalPref() uint32 {
	if a.HasLocalPref {
		return a.LocalPref
	}
	return DefaultLocalPref
}

// PathLen returns the AS_PATH length. An AS_SET segment counts as one hop
// regardless of how many ASNs it contains.
func (a *Attributes) PathLen() int {
	n := 0
	for _, seg := range a.ASPath {
		n += seg.ASLen()
	}
	return n
}

// FirstAS returns the neighboring AS of the path, i.e. the leftmost ASN.
// It returns zero for an empty path.
func (a *Attributes) FirstAS() uint32 {
	for _, seg := range a.ASPath {
		if asns := seg.GetAS(); len(asns) != 0 {
			return asns[0]
		}
	}
	return 0
}

// PathContains reports whether the AS_PATH mentions the given ASN.
func (a *Attributes) PathContains(asn uint32) bool {
	for _, seg := range a.ASPath {
		if slices.Contains(seg.GetAS(), asn) {
			return true
		}
	}
	return false
}

// PathASNs returns the flattened AS_PATH.
func (a *Attributes) PathASNs() []uint32 {
	var asns []uint32
	for _, seg := range a.ASPath {
		asns = append(asns, seg.GetAS()...)
	}
	return asns
}

func (a *Attributes) String() string {
	var parts []string
	if a.Nexthop.IsValid() {
		parts = append(parts, "nexthop="+a.Nexthop.String())
	}
	if len(a.ASPath) != 0 {
		parts = append(parts, fmt.Sprintf("path=%v", a.PathASNs()))
	}
	if a.Peer.IsValid() {
		parts = append(parts, "peer="+a.Peer.String())
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Compare implements the decision process. It returns a negative number if a
// is the better route, a positive number if b is, and never zero for two
// routes from different peers: the trailing router ID and peer address steps
// make the ordering total and deterministic.
//
// The discriminators, in order:
//  1. higher LOCAL_PREF (absent treated as DefaultLocalPref)
//  2. shorter AS_PATH (AS_SET counts as one hop)
//  3. lower ORIGIN
//  4. lower MED, compared only between routes from the same neighboring AS;
//     an absent MED is treated as zero, i.e. most preferred
//  5. eBGP-learned over iBGP-learned
//  6. interior cost to the nexthop: constant without IGP integration
//  7. older route first
//  8. lower peer router ID, then lower peer address
func Compare(a, b *Attributes) int {
	if alp, blp := a.EffectiveLocalPref(), b.EffectiveLocalPref(); alp != blp {
		if alp > blp {
			return -1
		}
		return 1
	}
	if al, bl := a.PathLen(), b.PathLen(); al != bl {
		return al - bl
	}
	if a.Origin != b.Origin {
		return int(a.Origin) - int(b.Origin)
	}
	if (a.HasMED || b.HasMED) && a.FirstAS() == b.FirstAS() {
		am, bm := a.MED, b.MED
		if am != bm {
			if am < bm {
				return -1
			}
			return 1
		}
	}
	if a.EBGP != b.EBGP {
		if a.EBGP {
			return -1
		}
		return 1
	}
	// Interior cost to the nexthop would be compared here. Without an IGP it
	// is the same constant for every route.
	if !a.Received.Equal(b.Received) {
		if a.Received.Before(b.Received) {
			return -1
		}
		return 1
	}
	if a.PeerRouterID != b.PeerRouterID {
		if a.PeerRouterID < b.PeerRouterID {
			return -1
		}
		return 1
	}
	return a.Peer.Compare(b.Peer)
}
