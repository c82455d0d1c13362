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

// This file implements the per-peer state machine of RFC 4271 section 8:
// Idle, Connect, Active, OpenSent, OpenConfirm, Established. The machine has
// no terminal protocol state; fatal session errors return it to Idle and the
// connect retry timer re-arms unless the peer was administratively stopped.

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpillora/backoff"
	"github.com/osrg/gobgp/v3/pkg/packet/bgp"
	"github.com/sirupsen/logrus"
)

const (
	stateIdle        = bgp.BGP_FSM_IDLE
	stateConnect     = bgp.BGP_FSM_CONNECT
	stateActive      = bgp.BGP_FSM_ACTIVE
	stateOpenSent    = bgp.BGP_FSM_OPENSENT
	stateOpenConfirm = bgp.BGP_FSM_OPENCONFIRM
	stateEstablished = bgp.BGP_FSM_ESTABLISHED
	// stateTerminate is an extra state used as a signal to exit the run loop.
	stateTerminate = bgp.FSMState(99)
)

func formatState(s bgp.FSMState) string {
	switch s {
	case stateIdle:
		return "IDLE"
	case stateConnect:
		return "CONNECT"
	case stateActive:
		return "ACTIVE"
	case stateOpenSent:
		return "OPENSENT"
	case stateOpenConfirm:
		return "OPENCONFIRM"
	case stateEstablished:
		return "ESTABLISHED"
	case stateTerminate:
		return "TERMINATE"
	default:
		return "UNKNOWN"
	}
}

var (
	errPeerStarted = errors.New("peer already started")
	errStopped     = errors.New("administrative stop")
)

// outbox carries pending Adj-RIB-Out work for one established session.
// Entries are keyed by NLRI so that rapid successive changes to one prefix
// coalesce into the latest state; a nil value is a withdrawal.
type outbox struct {
	mu      sync.Mutex
	pending map[Family]map[netip.Prefix]*Attributes
	notifyC chan struct{}
}

func newOutbox() *outbox {
	return &outbox{
		pending: map[Family]map[netip.Prefix]*Attributes{},
		notifyC: make(chan struct{}, 1),
	}
}

func (o *outbox) enqueue(f Family, nlri netip.Prefix, attrs *Attributes) {
	o.mu.Lock()
	m := o.pending[f]
	if m == nil {
		m = map[netip.Prefix]*Attributes{}
		o.pending[f] = m
	}
	m[nlri] = attrs
	o.mu.Unlock()
	select {
	case o.notifyC <- struct{}{}:
	default:
	}
}

func (o *outbox) drain() map[Family]map[netip.Prefix]*Attributes {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.pending
	o.pending = map[Family]map[netip.Prefix]*Attributes{}
	return out
}

// session holds state negotiated for the lifetime of one TCP connection.
type session struct {
	// PeerASN is the peer's AS number from its OPEN.
	PeerASN uint32
	// RouterID is the peer's BGP identifier in host byte order.
	RouterID uint32
	// EBGP records whether the session crosses an AS boundary.
	EBGP bool
	// FourByteAS records whether the peer negotiated 4-byte AS numbers.
	FourByteAS bool
	// HoldTime is min(local configured, peer offered); zero disables both the
	// hold timer and keepalives.
	HoldTime time.Duration
	// KeepaliveInterval is a third of the negotiated hold time.
	KeepaliveInterval time.Duration
	// Families is the negotiated AFI/SAFI intersection.
	Families map[Family]bool
	// LocalIP is the local end of the connection, used as the nexthop for
	// routes announced to the peer.
	LocalIP netip.Addr

	// sent is the Adj-RIB-Out: the route most recently advertised to the peer
	// per NLRI. It suppresses redundant advertisements and tells withdrawals
	// from no-ops.
	sent map[Family]map[netip.Prefix]*Attributes
	out  *outbox
}

func (s *session) init(c net.Conn) {
	s.sent = map[Family]map[netip.Prefix]*Attributes{}
	for f := range s.Families {
		s.sent[f] = map[netip.Prefix]*Attributes{}
	}
	s.out = newOutbox()
	if a, _ := addrFromNetAddr(c.LocalAddr()); a.IsValid() {
		s.LocalIP = a
	}
}

type fsm struct {
	server *Server
	peer   *Peer
	timers *Timers
	log    logrus.FieldLogger
	// acceptC passes incoming connections from the server accept loop.
	acceptC chan net.Conn
	// stopC is closed to request termination; doneC is closed once the run
	// loop has exited.
	stopC chan struct{}
	doneC chan struct{}

	state atomic.Int32

	// detector handles an incoming connection that collides with an in-flight
	// outgoing one. Only touched by the run loop.
	detector *collisionDetector

	mu   sync.Mutex
	sess *session
}

func newFSM(s *Server, p *Peer) *fsm {
	return &fsm{
		server:  s,
		peer:    p,
		timers:  newTimers(p.Timers),
		log:     s.logger().WithField("peer", p.Addr.String()),
		acceptC: make(chan net.Conn, 1),
		stopC:   make(chan struct{}),
		doneC:   make(chan struct{}),
	}
}

func (f *fsm) getState() bgp.FSMState {
	return bgp.FSMState(f.state.Load())
}

func (f *fsm) setState(s bgp.FSMState) {
	old := f.getState()
	f.state.Store(int32(s))
	f.log.Infof("peer %s -> %s", formatState(old), formatState(s))
}

func (f *fsm) setStateError(s bgp.FSMState, err error) {
	old := f.getState()
	f.state.Store(int32(s))
	f.log.WithError(err).Infof("peer %s -> %s", formatState(old), formatState(s))
}

// session returns the negotiated session, or nil outside Established.
func (f *fsm) session() *session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sess
}

func (f *fsm) setSession(s *session) {
	f.mu.Lock()
	f.sess = s
	f.mu.Unlock()
}

// enqueue hands a Loc-RIB change to the session's send loop. It is a no-op
// unless the session is established and negotiated the family.
func (f *fsm) enqueue(fam Family, c Change) {
	f.mu.Lock()
	sess := f.sess
	f.mu.Unlock()
	if sess == nil || !sess.Families[fam] {
		return
	}
	sess.out.enqueue(fam, c.NLRI, c.Attrs)
}

func (f *fsm) stop() {
	close(f.stopC)
	<-f.doneC
}

// dialPeer attempts to connect to the peer in the background, and returns the
// opened connection or error on a channel. If the caller does not read from
// the channel within a short time of the connection being established, the
// connection is closed. It is safe to abandon a dial attempt and never read
// from either channel.
func dialPeer(d *net.Dialer, addr string) (<-chan net.Conn, <-chan error) {
	connC := make(chan net.Conn)
	errC := make(chan error, 1)
	go func() {
		c, err := d.Dial("tcp", addr)
		if err != nil {
			errC <- err
			return
		}
		select {
		case connC <- c:
		case <-time.After(3 * time.Second):
			// Lost the race against an incoming connection.
			c.Close()
		}
	}()
	return connC, errC
}

// readMessage reads one message while watching for an administrative stop,
// which closes the connection to unblock the read. It returns errStopped in
// that case.
func (f *fsm) readMessage(c net.Conn, deadline time.Time) (*bgp.BGPMessage, error) {
	type result struct {
		m   *bgp.BGPMessage
		err error
	}
	resC := make(chan result, 1)
	go func() {
		m, err := ReadMessage(c, deadline)
		resC <- result{m, err}
	}()
	select {
	case r := <-resC:
		return r.m, r.err
	case <-f.stopC:
		c.Close()
		<-resC
		return nil, errStopped
	}
}

// twoByteASN maps an ASN into the 2-byte field of an OPEN or a 2-byte
// AS_PATH, substituting AS_TRANS for ASNs that do not fit.
func twoByteASN(asn uint32) (uint16, error) {
	switch {
	case asn == 0 || asn == 0xffffffff:
		return 0, fmt.Errorf("invalid ASN: %d", asn)
	case asn > 0xffff:
		return bgp.AS_TRANS, nil
	default:
		return uint16(asn), nil
	}
}

// sendOpen transmits our OPEN with the 4-byte ASN and multiprotocol
// capabilities.
func (f *fsm) sendOpen(c net.Conn) error {
	caps := []bgp.ParameterCapabilityInterface{
		bgp.NewCapFourOctetASNumber(f.server.ASN),
	}
	for _, fam := range f.peer.families(f.server) {
		afi, safi := fam.Split()
		caps = append(caps, bgp.NewCapMultiProtocol(bgp.AfiSafiToRouteFamily(afi, safi)))
	}
	as, err := twoByteASN(f.server.ASN)
	if err != nil {
		return err
	}
	holdTime := uint16(f.timers.HoldTime / time.Second)
	m := bgp.NewBGPOpenMessage(as, holdTime, f.server.RouterID, []bgp.OptionParameterInterface{
		bgp.NewOptionParameterCapability(caps),
	})
	return WriteMessage(c, m, defaultOpenTimeout)
}

// openCapabilities collates the capabilities out of an OPEN's optional
// parameters, which a peer may spread over several parameter blocks.
func openCapabilities(o *bgp.BGPOpen) []bgp.ParameterCapabilityInterface {
	var caps []bgp.ParameterCapabilityInterface
	for _, p := range o.OptParams {
		if c, ok := p.(*bgp.OptionParameterCapability); ok {
			caps = append(caps, c.Capability...)
		}
	}
	return caps
}

// validateOpen checks the peer's OPEN against the local configuration and
// negotiates the session parameters. On failure it returns a subcode to
// combine with bgp.BGP_ERROR_OPEN_MESSAGE_ERROR in a NOTIFICATION.
func validateOpen(o *bgp.BGPOpen, peer *Peer, s *Server, transport Family) (*session, uint8, error) {
	// DecodeMessage already rejected versions other than 4.
	sess := &session{Families: map[Family]bool{}}

	var mpFamilies []Family
	for _, cc := range openCapabilities(o) {
		switch c := cc.(type) {
		case *bgp.CapFourOctetASNumber:
			sess.FourByteAS = true
			sess.PeerASN = c.CapValue
		case *bgp.CapMultiProtocol:
			afi, safi := bgp.RouteFamilyToAfiSafi(c.CapValue)
			mpFamilies = append(mpFamilies, NewFamily(afi, safi))
		}
	}

	// Negotiate down to 2-byte AS numbers when the peer lacks the capability.
	if sess.FourByteAS {
		want, err := twoByteASN(sess.PeerASN)
		if err != nil || o.MyAS != want {
			return nil, bgp.BGP_ERROR_SUB_BAD_PEER_AS, fmt.Errorf("AS %d in OPEN does not match 4-byte capability AS %d", o.MyAS, sess.PeerASN)
		}
	} else {
		sess.PeerASN = uint32(o.MyAS)
	}
	if peer.ASN != 0 && sess.PeerASN != peer.ASN {
		return nil, bgp.BGP_ERROR_SUB_BAD_PEER_AS, fmt.Errorf("wrong peer AS: got %d, want %d", sess.PeerASN, peer.ASN)
	}
	sess.EBGP = sess.PeerASN != s.ASN

	// A peer that advertises no multiprotocol capability speaks the classic
	// single family of the TCP transport.
	if mpFamilies == nil {
		mpFamilies = []Family{transport}
	}
	local := map[Family]bool{}
	for _, fam := range peer.families(s) {
		local[fam] = true
	}
	for _, fam := range mpFamilies {
		if local[fam] {
			sess.Families[fam] = true
		}
	}
	if len(sess.Families) == 0 {
		return nil, bgp.BGP_ERROR_SUB_UNSUPPORTED_CAPABILITY, errors.New("no address family in common")
	}

	offered := time.Duration(o.HoldTime) * time.Second
	if offered != 0 && (offered < minHoldTime || offered > maxHoldTime) {
		return nil, bgp.BGP_ERROR_SUB_UNACCEPTABLE_HOLD_TIME, fmt.Errorf("unacceptable hold time: %v", offered)
	}
	sess.HoldTime = negotiateHoldTime(newTimers(peer.Timers).HoldTime, offered)
	sess.KeepaliveInterval = keepaliveInterval(sess.HoldTime)

	id := o.ID.To4()
	if id == nil || binary.BigEndian.Uint32(id) == 0 {
		return nil, bgp.BGP_ERROR_SUB_BAD_BGP_IDENTIFIER, fmt.Errorf("bad BGP identifier: %v", o.ID)
	}
	sess.RouterID = binary.BigEndian.Uint32(id)

	return sess, 0, nil
}

// run executes the BGP state machine until stop is called.
func (f *fsm) run() {
	dialer := &net.Dialer{
		Timeout:   defaultOpenTimeout,
		LocalAddr: f.peer.localAddr(),
		KeepAlive: -1,
		Control:   f.peer.DialerControl,
	}
	transport := f.peer.transportFamily()
	connectBackoff := &backoff.Backoff{
		Factor: 1.5,
		Jitter: true,
		Min:    1 * time.Second,
		Max:    f.timers.ConnectRetry,
	}
	var (
		conn net.Conn
		sess *session
	)
	for {
		switch f.getState() {
		case stateIdle:
			var readyToConnect <-chan time.Time
			if !f.peer.Passive {
				readyToConnect = time.After(connectBackoff.Duration())
			}
			select {
			case c := <-f.acceptC:
				conn = c
				if err := f.sendOpen(conn); err != nil {
					conn.Close()
					f.setStateError(stateIdle, err)
					continue
				}
				f.setState(stateOpenSent)
			case <-readyToConnect:
				f.setState(stateConnect)
			case <-f.stopC:
				f.setState(stateTerminate)
			}

		case stateConnect:
			// While we dial, a colliding incoming connection is handled by the
			// detector, which resolves the race by router ID.
			detector := newCollisionDetector(f, transport)
			connC, errC := dialPeer(dialer, f.peer.dialAddr())
			select {
			case c := <-connC:
				if err := f.sendOpen(c); err != nil {
					c.Close()
					detector.Stop()
					f.setStateError(stateActive, err)
					continue
				}
				conn = c
				f.setState(stateOpenSent)
			case c := <-detector.Chan():
				// The incoming connection won; the detector has completed the
				// handshake on it.
				conn = c
				sess = detector.session
				f.setState(stateEstablished)
			case err := <-errC:
				detector.Stop()
				f.setStateError(stateActive, err)
				continue
			case <-f.stopC:
				detector.Stop()
				f.setState(stateTerminate)
				continue
			}
			// Leave the detector running through the handshake; it is stopped
			// on entering or failing to reach Established.
			f.detector = detector

		case stateActive:
			select {
			case c := <-f.acceptC:
				conn = c
				if err := f.sendOpen(conn); err != nil {
					conn.Close()
					f.setStateError(stateIdle, err)
					continue
				}
				f.setState(stateOpenSent)
			case <-time.After(f.timers.ConnectRetry):
				f.setState(stateConnect)
			case <-f.stopC:
				f.setState(stateTerminate)
			}

		case stateOpenSent:
			m, err := f.readMessage(conn, time.Now().Add(defaultMessageTimeout))
			if err != nil {
				if errors.Is(err, errStopped) {
					f.stopDetector()
					f.setState(stateTerminate)
					continue
				}
				maybeSendNotification(conn, err)
				conn.Close()
				f.stopDetector()
				f.setStateError(stateIdle, err)
				continue
			}
			switch o := m.Body.(type) {
			case *bgp.BGPOpen:
				ns, code, err := validateOpen(o, f.peer, f.server, transport)
				if err != nil {
					if code != 0 {
						sendNotification(conn, bgp.BGP_ERROR_OPEN_MESSAGE_ERROR, code, nil)
					}
					conn.Close()
					f.stopDetector()
					f.setStateError(stateIdle, err)
					continue
				}
				if err := sendKeepAlive(conn, defaultMessageTimeout); err != nil {
					conn.Close()
					f.stopDetector()
					f.setStateError(stateIdle, err)
					continue
				}
				sess = ns
				f.setState(stateOpenConfirm)
			default:
				sendNotification(conn, bgp.BGP_ERROR_FSM_ERROR, bgp.BGP_ERROR_SUB_RECEIVE_UNEXPECTED_MESSAGE_IN_OPENSENT_STATE, nil)
				conn.Close()
				f.stopDetector()
				f.setStateError(stateIdle, fmt.Errorf("unexpected message type %d in OpenSent", m.Header.Type))
			}

		case stateOpenConfirm:
			deadline := time.Now().Add(defaultMessageTimeout)
			if sess.HoldTime != 0 && sess.HoldTime < defaultMessageTimeout {
				deadline = time.Now().Add(sess.HoldTime)
			}
			m, err := f.readMessage(conn, deadline)
			if err != nil {
				if errors.Is(err, errStopped) {
					f.stopDetector()
					f.setState(stateTerminate)
					continue
				}
				if isTimeout(err) {
					sendNotification(conn, bgp.BGP_ERROR_HOLD_TIMER_EXPIRED, bgp.BGP_ERROR_SUB_HOLD_TIMER_EXPIRED, nil)
				} else {
					maybeSendNotification(conn, err)
				}
				conn.Close()
				f.stopDetector()
				f.setStateError(stateIdle, err)
				continue
			}
			switch b := m.Body.(type) {
			case *bgp.BGPKeepAlive:
				f.setState(stateEstablished)
			case *bgp.BGPNotification:
				conn.Close()
				f.stopDetector()
				f.setStateError(stateIdle, fmt.Errorf("notification: code=%d subcode=%d", b.ErrorCode, b.ErrorSubcode))
			default:
				sendNotification(conn, bgp.BGP_ERROR_FSM_ERROR, bgp.BGP_ERROR_SUB_RECEIVE_UNEXPECTED_MESSAGE_IN_OPENCONFIRM_STATE, nil)
				conn.Close()
				f.stopDetector()
				f.setStateError(stateIdle, fmt.Errorf("unexpected message type %d in OpenConfirm", m.Header.Type))
			}

		case stateEstablished:
			f.stopDetector()
			connectBackoff.Reset()
			sess.init(conn)
			f.setSession(sess)
			f.server.syncSession(f)

			notifyC, sendErrC := f.sendLoop(conn, sess)
			recvErrC := f.recvLoop(conn, sess, notifyC)
		wait:
			for {
				select {
				case err := <-sendErrC:
					if err != nil {
						f.setStateError(stateIdle, fmt.Errorf("send: %w", err))
					} else {
						// A nil send error means a NOTIFICATION went out in
						// response to a receive failure; report that one instead.
						select {
						case err := <-recvErrC:
							f.setStateError(stateIdle, fmt.Errorf("receive: %w", err))
						default:
							f.setState(stateIdle)
						}
					}
					break wait
				case err := <-recvErrC:
					f.setStateError(stateIdle, fmt.Errorf("receive: %w", err))
					select {
					case <-sendErrC:
					case <-time.After(defaultNotificationTimeout):
					}
					break wait
				case c := <-f.acceptC:
					// A second connection while established loses the collision.
					// The running session is left untouched.
					sendNotification(c, bgp.BGP_ERROR_CEASE, bgp.BGP_ERROR_SUB_CONNECTION_COLLISION_RESOLUTION, nil)
					c.Close()
				case <-f.stopC:
					notifyC <- notification{bgp.BGP_ERROR_CEASE, bgp.BGP_ERROR_SUB_ADMINISTRATIVE_RESET}
					f.setState(stateTerminate)
					select {
					case <-sendErrC:
					case <-time.After(10 * time.Second):
					}
					break wait
				}
			}
			conn.Close()
			f.setSession(nil)
			f.server.peerDown(f.peer)

		case stateTerminate:
			close(f.doneC)
			return
		}
	}
}

func (f *fsm) stopDetector() {
	if f.detector != nil {
		f.detector.Stop()
		f.detector = nil
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// notification asks the send loop to transmit a NOTIFICATION and terminate.
// A zero value terminates without sending.
type notification struct {
	ErrorCode, ErrorSubcode uint8
}

// sendLoop launches a background goroutine that owns the transmit side of the
// session: keepalives, Adj-RIB-Out flushes, and the final NOTIFICATION.
func (f *fsm) sendLoop(c net.Conn, sess *session) (chan<- notification, <-chan error) {
	// notifyC has a buffer of 2 because both the run loop and the receive
	// loop may wish to transmit a NOTIFICATION.
	notifyC := make(chan notification, 2)
	errC := make(chan error, 1)
	go func() {
		var keepaliveC <-chan time.Time
		resetKeepalive := func() {}
		if sess.KeepaliveInterval != 0 {
			t := time.NewTimer(nextKeepAlive(sess.KeepaliveInterval))
			defer t.Stop()
			keepaliveC = t.C
			resetKeepalive = func() { t.Reset(nextKeepAlive(sess.KeepaliveInterval)) }
		}
		for {
			select {
			case <-sess.out.notifyC:
				sent, err := f.flush(c, sess)
				if err != nil {
					errC <- err
					return
				}
				if sent {
					resetKeepalive()
				}
			case <-keepaliveC:
				if err := sendKeepAlive(c, defaultMessageTimeout); err != nil {
					errC <- err
					return
				}
				resetKeepalive()
			case n := <-notifyC:
				if n.ErrorCode == 0 && n.ErrorSubcode == 0 {
					errC <- nil
				} else {
					errC <- sendNotification(c, n.ErrorCode, n.ErrorSubcode, nil)
				}
				return
			}
		}
	}()
	return notifyC, errC
}

// flush drains the outbox and updates the Adj-RIB-Out. It reports whether
// anything was transmitted.
func (f *fsm) flush(c net.Conn, sess *session) (bool, error) {
	var alive bool
	for fam, pending := range sess.out.drain() {
		sent := sess.sent[fam]
		var withdrawals []netip.Prefix
		for nlri, attrs := range pending {
			advertise := attrs != nil
			if advertise && attrs.PathContains(sess.PeerASN) {
				// Announcing this route would form a loop.
				advertise = false
			}
			if advertise && !sess.EBGP && !attrs.EBGP && attrs.Peer.IsValid() {
				// iBGP-learned routes are not reflected to iBGP peers. Locally
				// originated routes, which carry no peer, still go out.
				advertise = false
			}
			if !advertise {
				if _, ok := sent[nlri]; ok {
					withdrawals = append(withdrawals, nlri)
					delete(sent, nlri)
				}
				continue
			}
			if sent[nlri] == attrs {
				continue
			}
			m, err := f.buildUpdate(fam, nlri, attrs, sess)
			if err != nil {
				f.log.WithError(err).WithField("prefix", nlri.String()).Warn("skipping unencodable route")
				continue
			}
			if err := WriteMessage(c, m, defaultMessageTimeout); err != nil {
				return alive, err
			}
			f.log.WithField("prefix", nlri.String()).Debug("announced route")
			sent[nlri] = attrs
			alive = true
		}
		if len(withdrawals) != 0 {
			m, err := buildWithdraw(fam, withdrawals)
			if err != nil {
				return alive, err
			}
			if err := WriteMessage(c, m, defaultMessageTimeout); err != nil {
				return alive, err
			}
			f.log.WithField("count", len(withdrawals)).Debug("withdrew routes")
			alive = true
		}
	}
	return alive, nil
}

// recvLoop launches a background goroutine that owns the receive side of the
// session and enforces the hold timer.
func (f *fsm) recvLoop(c net.Conn, sess *session, notifyC chan<- notification) <-chan error {
	errC := make(chan error, 1)
	go func() {
		holdTime := sess.HoldTime
		if holdTime == 0 {
			// A zero hold time disables the timer entirely.
			holdTime = 100 * 365 * 24 * time.Hour
		}
		deadline := time.Now().Add(holdTime)
		for {
			m, err := ReadMessage(c, deadline)
			if err != nil {
				errC <- err // Unblock recvErrC in run before sendErrC.
				var me *bgp.MessageError
				switch {
				case errors.As(err, &me):
					notifyC <- notification{me.TypeCode, me.SubTypeCode}
				case isTimeout(err) && !time.Now().Before(deadline):
					notifyC <- notification{bgp.BGP_ERROR_HOLD_TIMER_EXPIRED, bgp.BGP_ERROR_SUB_HOLD_TIMER_EXPIRED}
				default:
					notifyC <- notification{}
				}
				return
			}
			switch b := m.Body.(type) {
			case *bgp.BGPUpdate:
				deadline = time.Now().Add(holdTime)
				if err := f.handleUpdate(b, sess); err != nil {
					errC <- err
					var me *bgp.MessageError
					if errors.As(err, &me) {
						notifyC <- notification{me.TypeCode, me.SubTypeCode}
					} else {
						notifyC <- notification{}
					}
					return
				}
			case *bgp.BGPKeepAlive:
				deadline = time.Now().Add(holdTime)
			case *bgp.BGPNotification:
				errC <- fmt.Errorf("notification: code=%d subcode=%d data=%q", b.ErrorCode, b.ErrorSubcode, string(b.Data))
				notifyC <- notification{}
				return
			default:
				errC <- fmt.Errorf("unexpected message type %d in Established", m.Header.Type)
				notifyC <- notification{bgp.BGP_ERROR_FSM_ERROR, bgp.BGP_ERROR_SUB_RECEIVE_UNEXPECTED_MESSAGE_IN_ESTABLISHED_STATE}
				return
			}
		}
	}()
	return errC
}

func prefixFromAddrPrefix(ap bgp.AddrPrefixInterface) (netip.Prefix, bool) {
	p, err := netip.ParsePrefix(ap.String())
	if err != nil {
		return netip.Prefix{}, false
	}
	return p, true
}

// handleUpdate converts one UPDATE into Adj-RIB-In mutations and hands them
// to the session manager, which re-runs the decision process.
func (f *fsm) handleUpdate(m *bgp.BGPUpdate, sess *session) error {
	attrs := &Attributes{
		Peer:         f.peer.Addr,
		PeerRouterID: sess.RouterID,
		PeerASN:      sess.PeerASN,
		EBGP:         sess.EBGP,
		Received:     time.Now(),
	}
	var (
		hasOrigin, hasASPath, hasNexthop bool

		withdrawn = map[Family][]netip.Prefix{}
		announced = map[Family][]netip.Prefix{}
	)
	for _, r := range m.WithdrawnRoutes {
		if p, ok := prefixFromAddrPrefix(r); ok {
			withdrawn[IPv4Unicast] = append(withdrawn[IPv4Unicast], p)
		}
	}
	for _, r := range m.NLRI {
		if p, ok := prefixFromAddrPrefix(r); ok {
			announced[IPv4Unicast] = append(announced[IPv4Unicast], p)
		}
	}
	for _, pa := range m.PathAttributes {
		switch a := pa.(type) {
		case *bgp.PathAttributeOrigin:
			attrs.Origin = a.Value
			hasOrigin = true
		case *bgp.PathAttributeAsPath:
			attrs.ASPath = a.Value
			hasASPath = true
		case *bgp.PathAttributeNextHop:
			if nh, ok := netip.AddrFromSlice(a.Value); ok {
				attrs.Nexthop = nh.Unmap()
				hasNexthop = true
			}
		case *bgp.PathAttributeLocalPref:
			attrs.LocalPref = a.Value
			attrs.HasLocalPref = true
		case *bgp.PathAttributeMultiExitDisc:
			attrs.MED = a.Value
			attrs.HasMED = true
		case *bgp.PathAttributeMpReachNLRI:
			if nh, ok := netip.AddrFromSlice(a.Nexthop); ok {
				attrs.Nexthop = nh.Unmap()
				hasNexthop = true
			}
			fam := NewFamily(a.AFI, a.SAFI)
			for _, ap := range a.Value {
				if p, ok := prefixFromAddrPrefix(ap); ok {
					announced[fam] = append(announced[fam], p)
				}
			}
		case *bgp.PathAttributeMpUnreachNLRI:
			fam := NewFamily(a.AFI, a.SAFI)
			for _, ap := range a.Value {
				if p, ok := prefixFromAddrPrefix(ap); ok {
					withdrawn[fam] = append(withdrawn[fam], p)
				}
			}
		default:
			// Preserved for re-advertisement.
			attrs.Extra = append(attrs.Extra, pa)
		}
	}

	var announcedAny bool
	for _, ps := range announced {
		if len(ps) != 0 {
			announcedAny = true
		}
	}
	if announcedAny && (!hasOrigin || !hasASPath || !hasNexthop) {
		return bgp.NewMessageError(bgp.BGP_ERROR_UPDATE_MESSAGE_ERROR, bgp.BGP_ERROR_SUB_MISSING_WELL_KNOWN_ATTRIBUTE, nil, "missing well-known mandatory attribute")
	}
	if announcedAny && attrs.PathContains(f.server.ASN) {
		// Our own ASN in the path means a loop; discard the announcements but
		// still process the withdrawals.
		f.log.Debug("discarding looped announcement")
		for fam := range announced {
			delete(announced, fam)
		}
	}

	for fam := range withdrawn {
		if !sess.Families[fam] {
			delete(withdrawn, fam)
		}
	}
	for fam := range announced {
		if !sess.Families[fam] {
			delete(announced, fam)
		}
	}
	f.server.applyUpdate(f.peer, withdrawn, announced, attrs)
	return nil
}

// exportASPath rebuilds the AS_PATH for transmission: our ASN is prepended on
// eBGP sessions, and the segments are encoded at the width the peer
// negotiated.
func (f *fsm) exportASPath(attrs *Attributes, sess *session) ([]bgp.AsPathParamInterface, error) {
	type segment struct {
		typ  uint8
		asns []uint32
	}
	var segs []segment
	if sess.EBGP {
		segs = append(segs, segment{bgp.BGP_ASPATH_ATTR_TYPE_SEQ, []uint32{f.server.ASN}})
	}
	for _, s := range attrs.ASPath {
		segs = append(segs, segment{s.GetType(), s.GetAS()})
	}
	// Merge a leading sequence segment with a following one to keep the
	// canonical single-sequence form for short paths.
	if len(segs) >= 2 && segs[0].typ == bgp.BGP_ASPATH_ATTR_TYPE_SEQ && segs[1].typ == bgp.BGP_ASPATH_ATTR_TYPE_SEQ {
		merged := append(append([]uint32{}, segs[0].asns...), segs[1].asns...)
		segs = append([]segment{{bgp.BGP_ASPATH_ATTR_TYPE_SEQ, merged}}, segs[2:]...)
	}
	out := make([]bgp.AsPathParamInterface, 0, len(segs))
	for _, s := range segs {
		if sess.FourByteAS {
			out = append(out, bgp.NewAs4PathParam(s.typ, s.asns))
			continue
		}
		asns := make([]uint16, len(s.asns))
		for i, a := range s.asns {
			v, err := twoByteASN(a)
			if err != nil {
				return nil, err
			}
			asns[i] = v
		}
		out = append(out, bgp.NewAsPathParam(s.typ, asns))
	}
	return out, nil
}

// buildUpdate encodes the announcement of one route to the peer. IPv4 unicast
// uses the classic UPDATE layout; other families use MP_REACH_NLRI.
func (f *fsm) buildUpdate(fam Family, nlri netip.Prefix, attrs *Attributes, sess *session) (*bgp.BGPMessage, error) {
	asPath, err := f.exportASPath(attrs, sess)
	if err != nil {
		return nil, err
	}
	nexthop := attrs.Nexthop
	if sess.EBGP || !nexthop.IsValid() {
		nexthop = sess.LocalIP
	}
	pattrs := []bgp.PathAttributeInterface{
		bgp.NewPathAttributeOrigin(attrs.Origin),
		bgp.NewPathAttributeAsPath(asPath),
	}
	if !sess.EBGP {
		if attrs.HasLocalPref {
			pattrs = append(pattrs, bgp.NewPathAttributeLocalPref(attrs.LocalPref))
		}
		if attrs.HasMED {
			pattrs = append(pattrs, bgp.NewPathAttributeMultiExitDisc(attrs.MED))
		}
	}
	pattrs = append(pattrs, attrs.Extra...)

	if fam == IPv4Unicast {
		pattrs = append(pattrs, bgp.NewPathAttributeNextHop(nexthop.String()))
		ap := bgp.NewIPAddrPrefix(uint8(nlri.Bits()), nlri.Addr().String())
		return bgp.NewBGPUpdateMessage(nil, pattrs, []*bgp.IPAddrPrefix{ap}), nil
	}
	ap, err := newAddrPrefix(nlri)
	if err != nil {
		return nil, err
	}
	mp := bgp.NewPathAttributeMpReachNLRI(nexthop.String(), []bgp.AddrPrefixInterface{ap})
	pattrs = append([]bgp.PathAttributeInterface{mp}, pattrs...)
	return bgp.NewBGPUpdateMessage(nil, pattrs, nil), nil
}

// buildWithdraw encodes the withdrawal of a set of routes.
func buildWithdraw(fam Family, nlris []netip.Prefix) (*bgp.BGPMessage, error) {
	if fam == IPv4Unicast {
		aps := make([]*bgp.IPAddrPrefix, len(nlris))
		for i, n := range nlris {
			aps[i] = bgp.NewIPAddrPrefix(uint8(n.Bits()), n.Addr().String())
		}
		return bgp.NewBGPUpdateMessage(aps, nil, nil), nil
	}
	aps := make([]bgp.AddrPrefixInterface, len(nlris))
	for i, n := range nlris {
		ap, err := newAddrPrefix(n)
		if err != nil {
			return nil, err
		}
		aps[i] = ap
	}
	return bgp.NewBGPUpdateMessage(nil, []bgp.PathAttributeInterface{
		bgp.NewPathAttributeMpUnreachNLRI(aps),
	}, nil), nil
}

// newAddrPrefix converts a prefix into the gobgp NLRI form.
func newAddrPrefix(n netip.Prefix) (bgp.AddrPrefixInterface, error) {
	a := n.Addr()
	switch {
	case !n.IsValid():
		return nil, fmt.Errorf("invalid prefix: %v", n)
	case a.Is4():
		return bgp.NewIPAddrPrefix(uint8(n.Bits()), a.String()), nil
	case a.Is6():
		return bgp.NewIPv6AddrPrefix(uint8(n.Bits()), a.String()), nil
	}
	return nil, fmt.Errorf("prefix is neither IPv4 nor IPv6: %v", n)
}
