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
	"net/netip"
	"testing"
	"time"

	"github.com/osrg/gobgp/v3/pkg/packet/bgp"
)

func seq(asns ...uint32) bgp.AsPathParamInterface {
	return bgp.NewAs4PathParam(bgp.BGP_ASPATH_ATTR_TYPE_SEQ, asns)
}

func set(asns ...uint32) bgp.AsPathParamInterface {
	return bgp.NewAs4PathParam(bgp.BGP_ASPATH_ATTR_TYPE_SET, asns)
}

func TestPathLen(t *testing.T) {
	for _, tc := range []struct {
		Name string
		Path []bgp.AsPathParamInterface
		Want int
	}{
		{Name: "empty", Path: nil, Want: 0},
		{Name: "sequence", Path: []bgp.AsPathParamInterface{seq(1, 2, 3)}, Want: 3},
		{Name: "set_counts_once", Path: []bgp.AsPathParamInterface{seq(1, 2), set(3, 4, 5)}, Want: 3},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			a := &Attributes{ASPath: tc.Path}
			if got := a.PathLen(); got != tc.Want {
				t.Errorf("PathLen() = %d, want %d", got, tc.Want)
			}
		})
	}
}

func TestFirstAS(t *testing.T) {
	a := &Attributes{ASPath: []bgp.AsPathParamInterface{seq(64521, 64522)}}
	if got := a.FirstAS(); got != 64521 {
		t.Errorf("FirstAS() = %d, want 64521", got)
	}
	if got := (&Attributes{}).FirstAS(); got != 0 {
		t.Errorf("FirstAS() on empty path = %d, want 0", got)
	}
}

func TestPathContains(t *testing.T) {
	a := &Attributes{ASPath: []bgp.AsPathParamInterface{seq(1, 2), set(3, 4)}}
	for asn, want := range map[uint32]bool{1: true, 4: true, 5: false} {
		if got := a.PathContains(asn); got != want {
			t.Errorf("PathContains(%d) = %v, want %v", asn, got, want)
		}
	}
}

func TestCompare(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	base := func() *Attributes {
		return &Attributes{
			Peer:         netip.MustParseAddr("192.0.2.1"),
			PeerRouterID: 0x64400001,
			PeerASN:      64521,
			EBGP:         true,
			ASPath:       []bgp.AsPathParamInterface{seq(64521)},
			Received:     now,
		}
	}

	for _, tc := range []struct {
		Name string
		// A is expected to win over B.
		A, B func(*Attributes)
	}{
		{
			Name: "higher_local_pref",
			A:    func(a *Attributes) { a.LocalPref = 200; a.HasLocalPref = true },
			B:    func(b *Attributes) { b.LocalPref = 100; b.HasLocalPref = true },
		},
		{
			Name: "default_local_pref_beats_lower",
			A:    func(a *Attributes) {},
			B:    func(b *Attributes) { b.LocalPref = 50; b.HasLocalPref = true },
		},
		{
			Name: "shorter_path",
			A:    func(a *Attributes) { a.ASPath = []bgp.AsPathParamInterface{seq(64521)} },
			B:    func(b *Attributes) { b.ASPath = []bgp.AsPathParamInterface{seq(64521, 64530)} },
		},
		{
			Name: "as_set_counts_as_one_hop",
			A:    func(a *Attributes) { a.ASPath = []bgp.AsPathParamInterface{seq(64521), set(64530, 64531, 64532)} },
			B:    func(b *Attributes) { b.ASPath = []bgp.AsPathParamInterface{seq(64521, 64530, 64531)} },
		},
		{
			Name: "lower_origin",
			A:    func(a *Attributes) { a.Origin = bgp.BGP_ORIGIN_ATTR_TYPE_IGP },
			B:    func(b *Attributes) { b.Origin = bgp.BGP_ORIGIN_ATTR_TYPE_INCOMPLETE },
		},
		{
			Name: "lower_med_same_neighbor_as",
			A:    func(a *Attributes) { a.MED = 10; a.HasMED = true },
			B:    func(b *Attributes) { b.MED = 20; b.HasMED = true },
		},
		{
			Name: "missing_med_most_preferred",
			A:    func(a *Attributes) {},
			B:    func(b *Attributes) { b.MED = 5; b.HasMED = true },
		},
		{
			Name: "ebgp_over_ibgp",
			A:    func(a *Attributes) { a.EBGP = true },
			B:    func(b *Attributes) { b.EBGP = false },
		},
		{
			Name: "older_route",
			A:    func(a *Attributes) { a.Received = now.Add(-time.Minute) },
			B:    func(b *Attributes) {},
		},
		{
			Name: "lower_router_id",
			A:    func(a *Attributes) { a.PeerRouterID = 0x64400001 },
			B:    func(b *Attributes) { b.PeerRouterID = 0x64400002 },
		},
		{
			Name: "lower_peer_address",
			A:    func(a *Attributes) { a.Peer = netip.MustParseAddr("192.0.2.1") },
			B:    func(b *Attributes) { b.Peer = netip.MustParseAddr("192.0.2.2") },
		},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			a, b := base(), base()
			tc.A(a)
			tc.B(b)
			if got := Compare(a, b); got >= 0 {
				t.Errorf("Compare(a, b) = %d, want negative", got)
			}
			if got := Compare(b, a); got <= 0 {
				t.Errorf("Compare(b, a) = %d, want positive", got)
			}
		})
	}
}

func TestCompareMEDDifferentNeighborAS(t *testing.T) {
	now := time.Now()
	a := &Attributes{
		Peer:     netip.MustParseAddr("192.0.2.1"),
		EBGP:     true,
		ASPath:   []bgp.AsPathParamInterface{seq(64521)},
		MED:      100,
		HasMED:   true,
		Received: now,
	}
	b := &Attributes{
		Peer:     netip.MustParseAddr("192.0.2.2"),
		EBGP:     true,
		ASPath:   []bgp.AsPathParamInterface{seq(64522)},
		MED:      5,
		HasMED:   true,
		Received: now,
	}
	// Different neighboring AS: MED must be skipped and the tie broken by the
	// later steps, here the peer address.
	if got := Compare(a, b); got >= 0 {
		t.Errorf("Compare(a, b) = %d, want negative (MED must not apply across ASes)", got)
	}
}

func TestCompareLocalPrefBeforePathLength(t *testing.T) {
	now := time.Now()
	long := &Attributes{
		Peer:         netip.MustParseAddr("192.0.2.1"),
		ASPath:       []bgp.AsPathParamInterface{seq(64521, 64522, 64523)},
		LocalPref:    200,
		HasLocalPref: true,
		Received:     now,
	}
	short := &Attributes{
		Peer:         netip.MustParseAddr("192.0.2.2"),
		ASPath:       []bgp.AsPathParamInterface{seq(64521)},
		LocalPref:    100,
		HasLocalPref: true,
		Received:     now,
	}
	if got := Compare(long, short); got >= 0 {
		t.Errorf("Compare(long, short) = %d, want negative (LOCAL_PREF outranks path length)", got)
	}
}
