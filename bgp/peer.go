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
	"net"
	"net/netip"
	"strconv"
	"syscall"
)

// A Peer is a configured BGP neighbor. All exported fields must be populated
// before the peer is added to a Server and not modified afterwards.
type Peer struct {
	// Addr is the address of the peer. This is required.
	Addr netip.Addr
	// Port is the port on which the peer listens.
	// If not set, port 179 is assumed.
	Port int
	// Passive inhibits dialing the peer. The local server will still accept
	// incoming connections from the peer.
	Passive bool
	// LocalAddr optionally pins the local address used to dial the peer.
	LocalAddr netip.Addr

	// ASN is the expected ASN of the peer. This is required; an OPEN carrying
	// a different ASN is rejected.
	ASN uint32

	// Families are the address families offered to the peer. The session uses
	// the intersection with what the peer offers. If empty, the server's
	// families are offered.
	Families []Family

	// Timers holds optional hold time and connect retry overrides.
	Timers *Timers

	// DialerControl is called after creating an outgoing socket but before
	// dialing, e.g. to enable TCP MD5 signatures.
	// See https://pkg.go.dev/net#Dialer.Control for details.
	DialerControl func(network, address string, c syscall.RawConn) error

	// ConfigureListener is called for every listener of the server this peer
	// is added to, e.g. to enable TCP MD5 signatures for inbound connections.
	ConfigureListener func(l net.Listener) error

	fsm *fsm
}

// PeerStatus is a point-in-time snapshot of a peer session.
type PeerStatus struct {
	Addr  netip.Addr
	Port  int
	ASN   uint32
	State string
	// RouterID is the BGP identifier learned from the peer's OPEN, zero until
	// a session has been negotiated.
	RouterID uint32
}

func (p *Peer) localAddr() net.Addr {
	if !p.LocalAddr.IsValid() {
		return nil
	}
	return &net.TCPAddr{
		IP:   net.IP(p.LocalAddr.AsSlice()),
		Zone: p.LocalAddr.Zone(),
	}
}

func (p *Peer) dialAddr() string {
	port := 179
	if p.Port != 0 {
		port = p.Port
	}
	if p.Addr.Is6() && !p.Addr.Is4In6() {
		return "[" + p.Addr.String() + "]:" + strconv.Itoa(port)
	}
	return p.Addr.String() + ":" + strconv.Itoa(port)
}

// transportFamily returns the family of the TCP session itself, which is
// what a peer that advertises no multiprotocol capability speaks.
func (p *Peer) transportFamily() Family {
	for _, a := range []netip.Addr{p.LocalAddr, p.Addr} {
		if f := FamilyFor(a); f != 0 {
			return f
		}
	}
	return 0
}

func (p *Peer) families(s *Server) []Family {
	if len(p.Families) != 0 {
		return p.Families
	}
	return s.families()
}

func (p *Peer) start(s *Server) error {
	if p.fsm != nil {
		return errPeerStarted
	}
	p.fsm = newFSM(s, p)
	go p.fsm.run()
	return nil
}

func (p *Peer) stop() {
	if p.fsm != nil {
		p.fsm.stop()
	}
}

// Status reports the peer's current FSM state and negotiated identifiers.
func (p *Peer) Status() PeerStatus {
	st := PeerStatus{
		Addr:  p.Addr,
		Port:  p.Port,
		ASN:   p.ASN,
		State: formatState(stateIdle),
	}
	if st.Port == 0 {
		st.Port = 179
	}
	if p.fsm == nil {
		return st
	}
	st.State = formatState(p.fsm.getState())
	if sess := p.fsm.session(); sess != nil {
		st.RouterID = sess.RouterID
		st.ASN = sess.PeerASN
	}
	return st
}
