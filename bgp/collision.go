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
	"encoding/binary"
	"net"
	"time"

	"github.com/osrg/gobgp/v3/pkg/packet/bgp"
)

// collisionDetector runs a simplified BGP state machine in the background that
// accepts an incoming connection while the main state machine is occupied by
// dialing an outgoing connection to the same peer. It applies the rules in
// https://datatracker.ietf.org/doc/html/rfc4271#section-6.8 and
// https://datatracker.ietf.org/doc/html/rfc6286#section-2.3 to decide which
// connection is preferred.
//
// If the locally initiated connection is preferred, collisionDetector closes
// the incoming one with a notification code of CEASE and subcode of
// SUB_CONNECTION_COLLISION_RESOLUTION.
//
// If the incoming connection is preferred, collisionDetector completes the
// handshake on it and holds it for a short time. The remote end will also
// detect the collision and close the connection it accepted, which unblocks
// the local state machine so that it can pick up the connection being held
// here.
type collisionDetector struct {
	connC chan net.Conn
	doneC chan bool
	// session carries the negotiated parameters of the handshake the detector
	// completed. Valid once a connection has been read from Chan.
	session *session
}

func newCollisionDetector(f *fsm, transport Family) *collisionDetector {
	d := &collisionDetector{
		connC: make(chan net.Conn),
		doneC: make(chan bool),
	}
	go d.run(f, transport)
	return d
}

func ipToRouterID(ip net.IP) uint32 {
	ip = ip.To4()
	if len(ip) != 4 {
		return 0
	}
	return binary.BigEndian.Uint32(ip)
}

func stringToRouterID(s string) uint32 {
	return ipToRouterID(net.ParseIP(s))
}

func (d *collisionDetector) run(f *fsm, transport Family) {
	l := f.log

	select {
	case c := <-f.acceptC:
		if err := f.sendOpen(c); err != nil {
			c.Close()
			l.WithError(err).Error("collision detector failed to send open")
			return
		}

		m, err := ReadMessage(c, time.Now().Add(defaultMessageTimeout))
		if err != nil {
			maybeSendNotification(c, err)
			c.Close()
			l.WithError(err).Error("collision detector failed to receive open")
			return
		}
		o, ok := m.Body.(*bgp.BGPOpen)
		if !ok {
			sendNotification(c, bgp.BGP_ERROR_FSM_ERROR, bgp.BGP_ERROR_SUB_RECEIVE_UNEXPECTED_MESSAGE_IN_OPENSENT_STATE, nil)
			c.Close()
			l.Error("collision detector received unexpected message type while waiting for open")
			return
		}
		sess, code, err := validateOpen(o, f.peer, f.server, transport)
		if err != nil {
			if code != 0 {
				sendNotification(c, bgp.BGP_ERROR_OPEN_MESSAGE_ERROR, code, nil)
			}
			c.Close()
			l.WithError(err).Error("collision detector received invalid open")
			return
		}

		if err := sendKeepAlive(c, defaultMessageTimeout); err != nil {
			c.Close()
			l.WithError(err).Error("collision detector failed to send keepalive")
			return
		}

		m, err = ReadMessage(c, time.Now().Add(defaultMessageTimeout))
		if err != nil {
			maybeSendNotification(c, err)
			c.Close()
			l.WithError(err).Error("collision detector failed to receive keepalive")
			return
		}
		if _, ok := m.Body.(*bgp.BGPKeepAlive); !ok {
			sendNotification(c, bgp.BGP_ERROR_FSM_ERROR, bgp.BGP_ERROR_SUB_RECEIVE_UNEXPECTED_MESSAGE_IN_OPENCONFIRM_STATE, nil)
			c.Close()
			l.Error("collision detector received unexpected message type while waiting for keepalive")
			return
		}

		peerID := ipToRouterID(o.ID)
		localID := stringToRouterID(f.server.RouterID)
		peerASN := sess.PeerASN
		localASN := f.server.ASN

		if peerID < localID || (peerID == localID && peerASN < localASN) {
			// Prefer the locally initiated connection that is being handled in
			// the main state machine, not the one accepted here.
			sendNotification(c, bgp.BGP_ERROR_CEASE, bgp.BGP_ERROR_SUB_CONNECTION_COLLISION_RESOLUTION, nil)
			c.Close()
			l.Info("closed colliding connection")
			return
		}

		d.session = sess

		select {
		case d.connC <- c:
			// Successfully passed the connection to the main state machine.
		case <-time.After(defaultMessageTimeout):
			// The state machine wasn't ready in time. Close the connection.
			sendNotification(c, bgp.BGP_ERROR_FSM_ERROR, bgp.BGP_ERROR_SUB_OUT_OF_RESOURCES, nil)
			c.Close()
			return
		}

	case <-d.doneC:
	}
}

// Chan returns a channel for getting the connection accepted by the
// collisionDetector.
func (d *collisionDetector) Chan() <-chan net.Conn {
	if d == nil {
		return nil
	}
	return d.connC
}

// Stop stops the collisionDetector.
func (d *collisionDetector) Stop() {
	if d != nil {
		close(d.doneC)
	}
}
