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

package fib

import (
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
)

// fakeOps simulates the kernel routing table in memory.
type fakeOps struct {
	mu       sync.Mutex
	routes   map[string]string // Dst -> Gw
	failNext int
	tagged   []netlink.Route
	listErr  error
	deleted  []string
}

func newFakeOps() *fakeOps {
	return &fakeOps{routes: map[string]string{}}
}

func (f *fakeOps) Replace(r *netlink.Route) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return errors.New("netlink: transient failure")
	}
	f.routes[r.Dst.String()] = r.Gw.String()
	return nil
}

func (f *fakeOps) Del(r *netlink.Route) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return errors.New("netlink: transient failure")
	}
	f.deleted = append(f.deleted, r.Dst.String())
	delete(f.routes, r.Dst.String())
	return nil
}

func (f *fakeOps) ListTagged() ([]netlink.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tagged, f.listErr
}

func (f *fakeOps) get(dst string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gw, ok := f.routes[dst]
	return gw, ok
}

func (f *fakeOps) setFailures(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = n
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	for i := 0; i < 100; i++ {
		if cond() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func TestInstallAndWithdraw(t *testing.T) {
	ops := newFakeOps()
	inst := newWithOps(ops, quietLogger())
	defer inst.Close()

	prefix := netip.MustParsePrefix("198.51.100.0/24")
	nexthop := netip.MustParseAddr("192.0.2.1")

	inst.Install(prefix, nexthop)
	waitFor(t, "route install", func() bool {
		gw, ok := ops.get("198.51.100.0/24")
		return ok && gw == "192.0.2.1"
	})

	inst.Withdraw(prefix)
	waitFor(t, "route removal", func() bool {
		_, ok := ops.get("198.51.100.0/24")
		return !ok
	})
}

func TestInstallReplacesNexthop(t *testing.T) {
	ops := newFakeOps()
	inst := newWithOps(ops, quietLogger())
	defer inst.Close()

	prefix := netip.MustParsePrefix("2001:db8:1::/48")
	inst.Install(prefix, netip.MustParseAddr("2001:db8::1"))
	waitFor(t, "first install", func() bool {
		gw, ok := ops.get("2001:db8:1::/48")
		return ok && gw == "2001:db8::1"
	})

	inst.Install(prefix, netip.MustParseAddr("2001:db8::2"))
	waitFor(t, "nexthop replacement", func() bool {
		gw, _ := ops.get("2001:db8:1::/48")
		return gw == "2001:db8::2"
	})
}

func TestInstallInvalidNexthopWithdraws(t *testing.T) {
	ops := newFakeOps()
	inst := newWithOps(ops, quietLogger())
	defer inst.Close()

	prefix := netip.MustParsePrefix("198.51.100.0/24")
	inst.Install(prefix, netip.MustParseAddr("192.0.2.1"))
	waitFor(t, "route install", func() bool {
		_, ok := ops.get("198.51.100.0/24")
		return ok
	})

	inst.Install(prefix, netip.Addr{})
	waitFor(t, "route removal", func() bool {
		_, ok := ops.get("198.51.100.0/24")
		return !ok
	})
}

func TestRetryAfterFailure(t *testing.T) {
	ops := newFakeOps()
	ops.setFailures(1)
	inst := newWithOps(ops, quietLogger())
	defer inst.Close()

	prefix := netip.MustParsePrefix("198.51.100.0/24")
	inst.Install(prefix, netip.MustParseAddr("192.0.2.1"))

	// The first attempt fails; the retry timer must converge the kernel
	// without further Install calls.
	waitFor(t, "retried install", func() bool {
		_, ok := ops.get("198.51.100.0/24")
		return ok
	})
}

func TestReconcileRemovesStaleRoutes(t *testing.T) {
	ops := newFakeOps()
	ops.tagged = []netlink.Route{*mustRoute(t, "203.0.113.0/24")}
	inst := newWithOps(ops, quietLogger())
	defer inst.Close()

	if err := inst.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(ops.deleted) != 1 || ops.deleted[0] != "203.0.113.0/24" {
		t.Errorf("deleted = %v, want the stale route", ops.deleted)
	}
}

func TestReconcileListError(t *testing.T) {
	ops := newFakeOps()
	ops.listErr = errors.New("netlink: permission denied")
	inst := newWithOps(ops, quietLogger())
	defer inst.Close()

	if err := inst.Reconcile(); err == nil {
		t.Error("Reconcile succeeded, want error")
	}
}

func TestCloseWithdrawsInstalledRoutes(t *testing.T) {
	ops := newFakeOps()
	inst := newWithOps(ops, quietLogger())

	prefix := netip.MustParsePrefix("198.51.100.0/24")
	inst.Install(prefix, netip.MustParseAddr("192.0.2.1"))
	waitFor(t, "route install", func() bool {
		_, ok := ops.get("198.51.100.0/24")
		return ok
	})

	if err := inst.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := ops.get("198.51.100.0/24"); ok {
		t.Error("route still installed after Close")
	}
}

func mustRoute(t *testing.T, s string) *netlink.Route {
	t.Helper()
	p := netip.MustParsePrefix(s)
	return route(p, netip.Addr{})
}
