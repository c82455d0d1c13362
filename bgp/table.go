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
	"slices"
	"sync"
)

// A Change is one Loc-RIB transition produced by the decision process.
// A nil Attrs means the NLRI lost its last candidate and must be withdrawn.
type Change struct {
	NLRI netip.Prefix
	// Attrs is the new best route, or nil on withdrawal.
	Attrs *Attributes
}

// From returns the peer that contributed the new best route, for
// split-horizon checks. It is the zero Addr for withdrawals.
func (c Change) From() netip.Addr {
	if c.Attrs == nil {
		return netip.Addr{}
	}
	return c.Attrs.Peer
}

// A Table holds the routes of one address family: the per-peer Adj-RIB-In
// entries (keyed by NLRI, at most one candidate per peer) and the Loc-RIB of
// chosen best routes. Every mutation re-runs the decision process for the
// affected NLRIs and reports the resulting Loc-RIB changes.
//
// The per-NLRI candidate set is only read or written under the table lock,
// so concurrent updates from different peers cannot observe a decision
// mid-flight.
type Table struct {
	mu sync.Mutex
	// adjIn maps each NLRI to its candidates. An entry is owned by the peer
	// recorded in its Attributes and replaced wholesale on re-advertisement.
	adjIn map[netip.Prefix][]*Attributes
	// best is the Loc-RIB: the winning candidate per NLRI.
	best map[netip.Prefix]*Attributes
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		adjIn: map[netip.Prefix][]*Attributes{},
		best:  map[netip.Prefix]*Attributes{},
	}
}

// Update applies one UPDATE from a peer: withdrawn NLRIs are removed from
// that peer's Adj-RIB-In entries and announced NLRIs are upserted with the
// shared attribute set. The decision process re-runs for each affected NLRI
// and the Loc-RIB changes, if any, are returned in no particular order.
func (t *Table) Update(peer netip.Addr, withdrawn []netip.Prefix, announced []netip.Prefix, attrs *Attributes) []Change {
	t.mu.Lock()
	defer t.mu.Unlock()
	var changes []Change
	for _, nlri := range withdrawn {
		t.removeLocked(nlri, peer)
		if c, ok := t.reevaluateLocked(nlri); ok {
			changes = append(changes, c)
		}
	}
	for _, nlri := range announced {
		t.upsertLocked(nlri, peer, attrs)
		if c, ok := t.reevaluateLocked(nlri); ok {
			changes = append(changes, c)
		}
	}
	return changes
}

// RemovePeer drops every candidate contributed by the peer, as happens when
// its session leaves Established. Affected NLRIs are re-decided.
func (t *Table) RemovePeer(peer netip.Addr) []Change {
	t.mu.Lock()
	defer t.mu.Unlock()
	var changes []Change
	for nlri, candidates := range t.adjIn {
		n := slices.DeleteFunc(candidates, func(a *Attributes) bool {
			return a.Peer == peer
		})
		if len(n) == len(candidates) {
			continue
		}
		if len(n) == 0 {
			delete(t.adjIn, nlri)
		} else {
			t.adjIn[nlri] = n
		}
		if c, ok := t.reevaluateLocked(nlri); ok {
			changes = append(changes, c)
		}
	}
	return changes
}

// Lookup returns the Loc-RIB entry for an NLRI.
func (t *Table) Lookup(nlri netip.Prefix) (*Attributes, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.best[nlri]
	return a, ok
}

// Best returns a copy of the Loc-RIB. The returned map is a point-in-time
// snapshot that the caller may read without further locking.
func (t *Table) Best() map[netip.Prefix]*Attributes {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[netip.Prefix]*Attributes, len(t.best))
	for nlri, a := range t.best {
		out[nlri] = a
	}
	return out
}

// Candidates returns a copy of the Adj-RIB-In entries for one NLRI.
func (t *Table) Candidates(nlri netip.Prefix) []*Attributes {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.adjIn[nlri])
}

func (t *Table) upsertLocked(nlri netip.Prefix, peer netip.Addr, attrs *Attributes) {
	candidates := t.adjIn[nlri]
	for i, old := range candidates {
		if old.Peer == peer {
			candidates[i] = attrs
			return
		}
	}
	t.adjIn[nlri] = append(candidates, attrs)
}

func (t *Table) removeLocked(nlri netip.Prefix, peer netip.Addr) {
	candidates := slices.DeleteFunc(t.adjIn[nlri], func(a *Attributes) bool {
		return a.Peer == peer
	})
	if len(candidates) == 0 {
		delete(t.adjIn, nlri)
		return
	}
	t.adjIn[nlri] = candidates
}

// reevaluateLocked runs the decision process for one NLRI and updates the
// Loc-RIB. It reports whether the Loc-RIB entry changed.
func (t *Table) reevaluateLocked(nlri netip.Prefix) (Change, bool) {
	var winner *Attributes
	for _, candidate := range t.adjIn[nlri] {
		if winner == nil || Compare(candidate, winner) < 0 {
			winner = candidate
		}
	}
	current, exists := t.best[nlri]
	if winner == nil {
		if !exists {
			return Change{}, false
		}
		delete(t.best, nlri)
		return Change{NLRI: nlri}, true
	}
	if exists && current == winner {
		return Change{}, false
	}
	t.best[nlri] = winner
	return Change{NLRI: nlri, Attrs: winner}, true
}
