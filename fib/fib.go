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

// Package fib programs best routes into the Linux kernel routing table via
// netlink. Routes are tagged with protocol RTPROT_BGP so that a restarted
// daemon can tell its own leftovers from everything else.
package fib

import (
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// routeOps is the slice of the netlink API the installer uses.
type routeOps interface {
	Replace(*netlink.Route) error
	Del(*netlink.Route) error
	ListTagged() ([]netlink.Route, error)
}

type netlinkOps struct{}

func (netlinkOps) Replace(r *netlink.Route) error { return netlink.RouteReplace(r) }
func (netlinkOps) Del(r *netlink.Route) error     { return netlink.RouteDel(r) }

func (netlinkOps) ListTagged() ([]netlink.Route, error) {
	filter := &netlink.Route{Protocol: netlink.RouteProtocol(unix.RTPROT_BGP)}
	return netlink.RouteListFiltered(netlink.FAMILY_ALL, filter, netlink.RT_FILTER_PROTOCOL)
}

// Installer applies Loc-RIB transitions to the kernel. Install and Withdraw
// record the desired state and return immediately; a background worker
// converges the kernel on it, retrying failures with backoff so that a
// transient netlink error cannot stall the BGP engine.
type Installer struct {
	log logrus.FieldLogger
	ops routeOps

	mu sync.Mutex
	// desired is what the kernel should hold, keyed by prefix.
	desired map[netip.Prefix]netip.Addr
	// installed is what we believe the kernel holds.
	installed map[netip.Prefix]netip.Addr
	// dirty marks prefixes whose kernel state may disagree with desired.
	dirty map[netip.Prefix]bool

	notifyC chan struct{}
	stopC   chan struct{}
	doneC   chan struct{}
}

// New creates an installer backed by the real netlink API and starts its
// worker.
func New(log logrus.FieldLogger) *Installer {
	return newWithOps(netlinkOps{}, log)
}

func newWithOps(ops routeOps, log logrus.FieldLogger) *Installer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	i := &Installer{
		log:       log.WithField("component", "fib"),
		ops:       ops,
		desired:   map[netip.Prefix]netip.Addr{},
		installed: map[netip.Prefix]netip.Addr{},
		dirty:     map[netip.Prefix]bool{},
		notifyC:   make(chan struct{}, 1),
		stopC:     make(chan struct{}),
		doneC:     make(chan struct{}),
	}
	go i.run()
	return i
}

// Install records that the prefix should be reachable via the nexthop. An
// invalid nexthop, as carried by locally originated routes, removes any
// previously installed kernel route instead.
func (i *Installer) Install(nlri netip.Prefix, nexthop netip.Addr) {
	if !nexthop.IsValid() || nexthop.IsUnspecified() {
		i.Withdraw(nlri)
		return
	}
	i.mu.Lock()
	i.desired[nlri] = nexthop.Unmap()
	i.dirty[nlri] = true
	i.mu.Unlock()
	i.notify()
}

// Withdraw records that the prefix should no longer be in the kernel.
func (i *Installer) Withdraw(nlri netip.Prefix) {
	i.mu.Lock()
	delete(i.desired, nlri)
	i.dirty[nlri] = true
	i.mu.Unlock()
	i.notify()
}

func (i *Installer) notify() {
	select {
	case i.notifyC <- struct{}{}:
	default:
	}
}

// Reconcile removes RTPROT_BGP routes left behind by a previous run. Call it
// once at startup, before the engine installs anything.
func (i *Installer) Reconcile() error {
	routes, err := i.ops.ListTagged()
	if err != nil {
		return fmt.Errorf("list stale routes: %w", err)
	}
	for _, r := range routes {
		r := r
		if err := i.ops.Del(&r); err != nil {
			return fmt.Errorf("remove stale route %v: %w", r.Dst, err)
		}
		i.log.WithField("prefix", fmt.Sprint(r.Dst)).Info("removed stale route")
	}
	return nil
}

// Close stops the worker and withdraws every route this installer put into
// the kernel.
func (i *Installer) Close() error {
	close(i.stopC)
	<-i.doneC
	i.mu.Lock()
	defer i.mu.Unlock()
	var firstErr error
	for nlri, nexthop := range i.installed {
		if err := i.ops.Del(route(nlri, nexthop)); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("remove route %v: %w", nlri, err)
		}
		delete(i.installed, nlri)
	}
	return firstErr
}

func (i *Installer) run() {
	defer close(i.doneC)
	b := &backoff.Backoff{
		Min:    1 * time.Second,
		Max:    1 * time.Minute,
		Factor: 2,
		Jitter: true,
	}
	var retryC <-chan time.Time
	for {
		select {
		case <-i.stopC:
			return
		case <-i.notifyC:
		case <-retryC:
		}
		if i.syncOnce() {
			b.Reset()
			retryC = nil
		} else {
			retryC = time.After(b.Duration())
		}
	}
}

// syncOnce pushes every dirty prefix to the kernel. It reports whether the
// pass fully converged; failed prefixes stay dirty for the retry timer.
func (i *Installer) syncOnce() bool {
	i.mu.Lock()
	work := make(map[netip.Prefix]bool, len(i.dirty))
	for nlri := range i.dirty {
		work[nlri] = true
		delete(i.dirty, nlri)
	}
	i.mu.Unlock()

	ok := true
	for nlri := range work {
		i.mu.Lock()
		nexthop, wantInstalled := i.desired[nlri]
		haveNexthop, isInstalled := i.installed[nlri]
		i.mu.Unlock()

		switch {
		case wantInstalled && isInstalled && nexthop == haveNexthop:
			// Already converged.
		case wantInstalled:
			if err := i.ops.Replace(route(nlri, nexthop)); err != nil {
				i.log.WithError(err).WithField("prefix", nlri.String()).Warn("route install failed")
				i.markDirty(nlri)
				ok = false
				continue
			}
			i.log.WithFields(logrus.Fields{"prefix": nlri.String(), "nexthop": nexthop.String()}).Info("installed route")
			i.setInstalled(nlri, nexthop)
		case isInstalled:
			if err := i.ops.Del(route(nlri, haveNexthop)); err != nil {
				i.log.WithError(err).WithField("prefix", nlri.String()).Warn("route removal failed")
				i.markDirty(nlri)
				ok = false
				continue
			}
			i.log.WithField("prefix", nlri.String()).Info("removed route")
			i.clearInstalled(nlri)
		}
	}
	return ok
}

func (i *Installer) markDirty(nlri netip.Prefix) {
	i.mu.Lock()
	i.dirty[nlri] = true
	i.mu.Unlock()
}

func (i *Installer) setInstalled(nlri netip.Prefix, nexthop netip.Addr) {
	i.mu.Lock()
	i.installed[nlri] = nexthop
	i.mu.Unlock()
}

func (i *Installer) clearInstalled(nlri netip.Prefix) {
	i.mu.Lock()
	delete(i.installed, nlri)
	i.mu.Unlock()
}

func route(nlri netip.Prefix, nexthop netip.Addr) *netlink.Route {
	r := &netlink.Route{
		Dst: &net.IPNet{
			IP:   net.IP(nlri.Addr().AsSlice()),
			Mask: net.CIDRMask(nlri.Bits(), nlri.Addr().BitLen()),
		},
		Protocol: netlink.RouteProtocol(unix.RTPROT_BGP),
	}
	if nexthop.IsValid() {
		r.Gw = net.IP(nexthop.AsSlice())
	}
	return r
}
