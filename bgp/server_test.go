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
	"bytes"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ubgp/ubgpd/third_party/tcpmd5"
)

// testWriter routes logrus output to the test log until the test completes.
type testWriter struct {
	t      *testing.T
	prefix string

	mu   sync.Mutex
	done bool
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.done {
		w.t.Logf("%s%s", w.prefix, bytes.TrimRight(p, "\n"))
	}
	return len(p), nil
}

func (w *testWriter) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.done = true
}

func newTestLogger(t *testing.T, prefix string) (logrus.FieldLogger, *testWriter) {
	w := &testWriter{t: t, prefix: prefix}
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	l.SetOutput(w)
	return l, w
}

// recordingInstaller collects Loc-RIB transitions for inspection.
type recordingInstaller struct {
	mu        sync.Mutex
	installed map[netip.Prefix]netip.Addr
}

func newRecordingInstaller() *recordingInstaller {
	return &recordingInstaller{installed: map[netip.Prefix]netip.Addr{}}
}

func (r *recordingInstaller) Install(nlri netip.Prefix, nexthop netip.Addr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.installed[nlri] = nexthop
}

func (r *recordingInstaller) Withdraw(nlri netip.Prefix) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.installed, nlri)
}

func (r *recordingInstaller) Get(nlri netip.Prefix) (netip.Addr, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.installed[nlri]
	return a, ok
}

// TestServer may exercise varied code paths depending on timing. To run a
// single subtest multiple times in sequence, invoke it like this:
//
//	go test -v -count=10 ./... --test.run=TestServer/both_sides_active
func TestServer(t *testing.T) {
	loopback := netip.MustParseAddr("::1")

	for _, tc := range []struct {
		Name        string
		LeftServer  *Server
		LeftPeer    *Peer
		RightServer *Server
		RightPeer   *Peer
	}{
		{
			Name: "one_side_passive",
			LeftServer: &Server{
				RouterID: "100.64.0.1",
				ASN:      64521,
				Families: []Family{IPv6Unicast},
			},
			LeftPeer: &Peer{
				ASN:     64522,
				Passive: true,
			},
			RightServer: &Server{
				RouterID: "100.64.0.2",
				ASN:      64522,
				Families: []Family{IPv6Unicast},
			},
			RightPeer: &Peer{
				ASN: 64521,
			},
		},
		{
			Name: "both_sides_active",
			LeftServer: &Server{
				RouterID: "100.64.0.1",
				ASN:      64521,
				Families: []Family{IPv6Unicast},
			},
			LeftPeer: &Peer{
				ASN: 64522,
			},
			RightServer: &Server{
				RouterID: "100.64.0.2",
				ASN:      64522,
				Families: []Family{IPv6Unicast},
			},
			RightPeer: &Peer{
				ASN: 64521,
			},
		},
		{
			Name: "both_sides_active_collision_detection_reversed",
			LeftServer: &Server{
				RouterID: "100.64.0.3",
				ASN:      64523,
				Families: []Family{IPv6Unicast},
			},
			LeftPeer: &Peer{
				ASN: 64522,
			},
			RightServer: &Server{
				RouterID: "100.64.0.2",
				ASN:      64522,
				Families: []Family{IPv6Unicast},
			},
			RightPeer: &Peer{
				ASN: 64523,
			},
		},
		{
			Name: "md5_auth",
			LeftServer: &Server{
				RouterID: "100.64.0.1",
				ASN:      64521,
				Families: []Family{IPv6Unicast},
			},
			LeftPeer: &Peer{
				ASN:           64522,
				DialerControl: tcpmd5.DialerControl("hunter2"),
			},
			RightServer: &Server{
				RouterID: "100.64.0.2",
				ASN:      64522,
				Families: []Family{IPv6Unicast},
			},
			RightPeer: &Peer{
				ASN:               64521,
				Passive:           true,
				ConfigureListener: tcpmd5.ConfigureListener("::1", "hunter2"),
			},
		},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			tc := tc
			t.Parallel()

			leftLogger, leftWriter := newTestLogger(t, "L: ")
			defer leftWriter.Stop()
			tc.LeftServer.Logger = leftLogger
			rightLogger, rightWriter := newTestLogger(t, "R: ")
			defer rightWriter.Stop()
			tc.RightServer.Logger = rightLogger

			installer := newRecordingInstaller()
			tc.RightServer.Installer = installer

			// Start two listeners on any available ports.
			leftListener, err := net.Listen("tcp", "[::1]:0")
			if err != nil {
				t.Fatalf("L: failed to listen: %v", err)
			}
			rightListener, err := net.Listen("tcp", "[::1]:0")
			if err != nil {
				t.Fatalf("R: failed to listen: %v", err)
			}

			// Configure the peer addresses.
			tc.LeftPeer.Addr = loopback
			tc.LeftPeer.Port = rightListener.Addr().(*net.TCPAddr).Port
			tc.RightPeer.Addr = loopback
			tc.RightPeer.Port = leftListener.Addr().(*net.TCPAddr).Port

			// Tell each server where to find its peer.
			if err := tc.LeftServer.AddPeer(tc.LeftPeer); err != nil {
				t.Fatalf("L: failed to add peer: %v", err)
			}
			if err := tc.RightServer.AddPeer(tc.RightPeer); err != nil {
				t.Fatalf("R: failed to add peer: %v", err)
			}

			// Start the servers.
			go func() {
				if err := tc.LeftServer.Serve(leftListener); err != nil {
					leftLogger.Infof("server stopped: %v", err)
				}
			}()
			defer tc.LeftServer.Close()
			go func() {
				if err := tc.RightServer.Serve(rightListener); err != nil {
					rightLogger.Infof("server stopped: %v", err)
				}
			}()
			defer tc.RightServer.Close()

			// Originate one route from the left server.
			wantPrefix := netip.MustParsePrefix("2001:db8:1::/48")
			tc.LeftServer.AddRoute(IPv6Unicast, wantPrefix, nil)

			// Watch the right server until the route arrives.
			started := time.Now()
			for i := 0; i < 30; i++ {
				time.Sleep(1 * time.Second)
				if attrs, ok := tc.RightServer.Table(IPv6Unicast).Lookup(wantPrefix); ok {
					t.Logf("Right server received prefix %v via %v", wantPrefix, attrs.Nexthop)
					if !attrs.EBGP {
						t.Errorf("route not marked as eBGP-learned")
					}
					if !attrs.PathContains(64521) && !attrs.PathContains(64523) {
						t.Errorf("AS_PATH %v missing the left server's ASN", attrs.PathASNs())
					}
					if _, ok := installer.Get(wantPrefix); !ok {
						t.Errorf("route was not handed to the installer")
					}
					status, ok := tc.RightServer.Neighbor(loopback)
					if !ok || status.State != "ESTABLISHED" {
						t.Errorf("neighbor status = %+v, want ESTABLISHED", status)
					}
					return
				}
			}
			t.Errorf("Right server still did not get prefix %v from left server after %v", wantPrefix, time.Since(started))
		})
	}
}

func TestServerWithdrawOnUpdate(t *testing.T) {
	t.Parallel()
	loopback := netip.MustParseAddr("::1")

	leftLogger, leftWriter := newTestLogger(t, "L: ")
	defer leftWriter.Stop()
	rightLogger, rightWriter := newTestLogger(t, "R: ")
	defer rightWriter.Stop()

	left := &Server{RouterID: "100.64.0.1", ASN: 64521, Families: []Family{IPv6Unicast}, Logger: leftLogger}
	right := &Server{RouterID: "100.64.0.2", ASN: 64522, Families: []Family{IPv6Unicast}, Logger: rightLogger}
	installer := newRecordingInstaller()
	right.Installer = installer

	leftListener, err := net.Listen("tcp", "[::1]:0")
	if err != nil {
		t.Fatalf("L: failed to listen: %v", err)
	}
	rightListener, err := net.Listen("tcp", "[::1]:0")
	if err != nil {
		t.Fatalf("R: failed to listen: %v", err)
	}

	leftPeer := &Peer{Addr: loopback, Port: rightListener.Addr().(*net.TCPAddr).Port, ASN: 64522}
	rightPeer := &Peer{Addr: loopback, Port: leftListener.Addr().(*net.TCPAddr).Port, ASN: 64521, Passive: true}
	if err := left.AddPeer(leftPeer); err != nil {
		t.Fatalf("L: failed to add peer: %v", err)
	}
	if err := right.AddPeer(rightPeer); err != nil {
		t.Fatalf("R: failed to add peer: %v", err)
	}
	go left.Serve(leftListener)
	defer left.Close()
	go right.Serve(rightListener)
	defer right.Close()

	prefix := netip.MustParsePrefix("2001:db8:2::/48")
	left.AddRoute(IPv6Unicast, prefix, nil)

	waitFor := func(desc string, cond func() bool) {
		t.Helper()
		for i := 0; i < 150; i++ {
			if cond() {
				return
			}
			time.Sleep(200 * time.Millisecond)
		}
		t.Fatalf("timed out waiting for %s", desc)
	}

	waitFor("route to arrive", func() bool {
		_, ok := right.Table(IPv6Unicast).Lookup(prefix)
		return ok
	})

	left.RemoveRoute(IPv6Unicast, prefix)

	waitFor("route to be withdrawn", func() bool {
		_, ok := right.Table(IPv6Unicast).Lookup(prefix)
		return !ok
	})
	if _, ok := installer.Get(prefix); ok {
		t.Errorf("installer still holds %v after withdrawal", prefix)
	}
}
