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
	"errors"
	"io"
	"net"
	"time"

	"github.com/osrg/gobgp/v3/pkg/packet/bgp"
)

// The message codec. Framing and field layout follow RFC 4271 section 4:
// a 16-byte all-ones marker, a 2-byte total length between 19 and 4096, a
// 1-byte type, and a type-specific body. Decoding of the bodies is delegated
// to the gobgp packet library; this file enforces the header invariants that
// the library leaves to the caller and reports every failure as a
// *bgp.MessageError holding the NOTIFICATION code and subcode to send.

func validMarker(b []byte) bool {
	if len(b) < 16 {
		return false
	}
	for _, c := range b[:16] {
		if c != 0xff {
			return false
		}
	}
	return true
}

func validType(t uint8) bool {
	switch t {
	case bgp.BGP_MSG_OPEN, bgp.BGP_MSG_UPDATE, bgp.BGP_MSG_NOTIFICATION, bgp.BGP_MSG_KEEPALIVE:
		return true
	}
	return false
}

// DecodeMessage parses one complete BGP message. The buffer must contain
// exactly one message, header included. Errors are *bgp.MessageError values
// carrying the code and subcode for the NOTIFICATION that should terminate
// the session.
func DecodeMessage(buf []byte) (*bgp.BGPMessage, error) {
	if len(buf) < bgp.BGP_HEADER_LENGTH {
		return nil, bgp.NewMessageError(bgp.BGP_ERROR_MESSAGE_HEADER_ERROR, bgp.BGP_ERROR_SUB_BAD_MESSAGE_LENGTH, nil, "message shorter than header")
	}
	if !validMarker(buf) {
		return nil, bgp.NewMessageError(bgp.BGP_ERROR_MESSAGE_HEADER_ERROR, bgp.BGP_ERROR_SUB_CONNECTION_NOT_SYNCHRONIZED, nil, "connection not synchronized")
	}
	length := binary.BigEndian.Uint16(buf[16:18])
	if length < bgp.BGP_HEADER_LENGTH || length > bgp.BGP_MAX_MESSAGE_LENGTH || int(length) != len(buf) {
		return nil, bgp.NewMessageError(bgp.BGP_ERROR_MESSAGE_HEADER_ERROR, bgp.BGP_ERROR_SUB_BAD_MESSAGE_LENGTH, buf[16:18], "bad message length")
	}
	if !validType(buf[18]) {
		return nil, bgp.NewMessageError(bgp.BGP_ERROR_MESSAGE_HEADER_ERROR, bgp.BGP_ERROR_SUB_BAD_MESSAGE_TYPE, buf[18:19], "bad message type")
	}
	m, err := bgp.ParseBGPMessage(buf)
	if err != nil {
		return nil, err
	}
	if o, ok := m.Body.(*bgp.BGPOpen); ok && o.Version != 4 {
		return nil, bgp.NewMessageError(bgp.BGP_ERROR_OPEN_MESSAGE_ERROR, bgp.BGP_ERROR_SUB_UNSUPPORTED_VERSION_NUMBER, nil, "unsupported version number")
	}
	return m, nil
}

// EncodeMessage serializes a message to its wire form, marker and length
// included. It is the byte-exact inverse of DecodeMessage.
func EncodeMessage(m *bgp.BGPMessage) ([]byte, error) {
	return m.Serialize()
}

// ReadMessage frames and decodes a single message from the connection. The
// deadline bounds the whole read; in the Established state it doubles as the
// hold timer.
func ReadMessage(c net.Conn, deadline time.Time) (*bgp.BGPMessage, error) {
	if err := c.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	var buf [bgp.BGP_MAX_MESSAGE_LENGTH]byte
	if _, err := io.ReadFull(c, buf[:bgp.BGP_HEADER_LENGTH]); err != nil {
		return nil, err
	}
	if !validMarker(buf[:16]) {
		return nil, bgp.NewMessageError(bgp.BGP_ERROR_MESSAGE_HEADER_ERROR, bgp.BGP_ERROR_SUB_CONNECTION_NOT_SYNCHRONIZED, nil, "connection not synchronized")
	}
	length := binary.BigEndian.Uint16(buf[16:18])
	if length < bgp.BGP_HEADER_LENGTH || length > bgp.BGP_MAX_MESSAGE_LENGTH {
		return nil, bgp.NewMessageError(bgp.BGP_ERROR_MESSAGE_HEADER_ERROR, bgp.BGP_ERROR_SUB_BAD_MESSAGE_LENGTH, buf[16:18], "bad message length")
	}
	if _, err := io.ReadFull(c, buf[bgp.BGP_HEADER_LENGTH:length]); err != nil {
		return nil, err
	}
	return DecodeMessage(buf[:length])
}

// WriteMessage serializes and transmits a single message.
func WriteMessage(c net.Conn, m *bgp.BGPMessage, timeout time.Duration) error {
	b, err := EncodeMessage(m)
	if err != nil {
		return err
	}
	if err := c.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	_, err = c.Write(b)
	return err
}

func sendKeepAlive(c net.Conn, timeout time.Duration) error {
	return WriteMessage(c, bgp.NewBGPKeepAliveMessage(), timeout)
}

func sendNotification(c net.Conn, code, subcode uint8, data []byte) error {
	return WriteMessage(c, bgp.NewBGPNotificationMessage(code, subcode, data), defaultNotificationTimeout)
}

// maybeSendNotification sends a NOTIFICATION if the error carries one and
// does nothing otherwise.
func maybeSendNotification(c net.Conn, e error) error {
	var me *bgp.MessageError
	if errors.As(e, &me) {
		return sendNotification(c, me.TypeCode, me.SubTypeCode, me.Data)
	}
	return nil
}
