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
	"errors"
	"net"
	"testing"
	"time"

	"github.com/osrg/gobgp/v3/pkg/packet/bgp"
)

func mustEncode(t *testing.T, m *bgp.BGPMessage) []byte {
	t.Helper()
	b, err := EncodeMessage(m)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	return b
}

func TestEncodeKeepAlive(t *testing.T) {
	got := mustEncode(t, bgp.NewBGPKeepAliveMessage())
	want := append(bytes.Repeat([]byte{0xff}, 16), 0x00, 0x13, 0x04)
	if !bytes.Equal(got, want) {
		t.Errorf("keepalive bytes = %x, want %x", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		Name    string
		Message *bgp.BGPMessage
	}{
		{
			Name: "open",
			Message: bgp.NewBGPOpenMessage(64521, 90, "100.64.0.1", []bgp.OptionParameterInterface{
				bgp.NewOptionParameterCapability([]bgp.ParameterCapabilityInterface{
					bgp.NewCapFourOctetASNumber(64521),
					bgp.NewCapMultiProtocol(bgp.RF_IPv6_UC),
				}),
			}),
		},
		{
			Name: "update",
			Message: bgp.NewBGPUpdateMessage(nil, []bgp.PathAttributeInterface{
				bgp.NewPathAttributeOrigin(bgp.BGP_ORIGIN_ATTR_TYPE_IGP),
				bgp.NewPathAttributeAsPath([]bgp.AsPathParamInterface{
					bgp.NewAs4PathParam(bgp.BGP_ASPATH_ATTR_TYPE_SEQ, []uint32{64521, 64522}),
				}),
				bgp.NewPathAttributeNextHop("192.0.2.1"),
			}, []*bgp.IPAddrPrefix{bgp.NewIPAddrPrefix(24, "198.51.100.0")}),
		},
		{
			Name: "update_withdraw",
			Message: bgp.NewBGPUpdateMessage([]*bgp.IPAddrPrefix{
				bgp.NewIPAddrPrefix(24, "198.51.100.0"),
			}, nil, nil),
		},
		{
			Name:    "notification",
			Message: bgp.NewBGPNotificationMessage(bgp.BGP_ERROR_CEASE, bgp.BGP_ERROR_SUB_ADMINISTRATIVE_RESET, nil),
		},
		{
			Name:    "keepalive",
			Message: bgp.NewBGPKeepAliveMessage(),
		},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			b := mustEncode(t, tc.Message)
			m, err := DecodeMessage(b)
			if err != nil {
				t.Fatalf("DecodeMessage: %v", err)
			}
			if got, want := m.Header.Type, tc.Message.Header.Type; got != want {
				t.Errorf("type = %d, want %d", got, want)
			}
			b2, err := EncodeMessage(m)
			if err != nil {
				t.Fatalf("EncodeMessage after decode: %v", err)
			}
			if !bytes.Equal(b, b2) {
				t.Errorf("round trip altered bytes: %x -> %x", b, b2)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	keepalive := append(bytes.Repeat([]byte{0xff}, 16), 0x00, 0x13, 0x04)
	corrupt := func(offset int, value byte) []byte {
		b := append([]byte{}, keepalive...)
		b[offset] = value
		return b
	}
	open := func() []byte {
		b, err := EncodeMessage(bgp.NewBGPOpenMessage(64521, 90, "100.64.0.1", nil))
		if err != nil {
			t.Fatalf("EncodeMessage: %v", err)
		}
		return b
	}

	for _, tc := range []struct {
		Name        string
		Input       []byte
		WantCode    uint8
		WantSubcode uint8
	}{
		{
			Name:        "short_buffer",
			Input:       keepalive[:10],
			WantCode:    bgp.BGP_ERROR_MESSAGE_HEADER_ERROR,
			WantSubcode: bgp.BGP_ERROR_SUB_BAD_MESSAGE_LENGTH,
		},
		{
			Name:        "bad_marker",
			Input:       corrupt(3, 0x00),
			WantCode:    bgp.BGP_ERROR_MESSAGE_HEADER_ERROR,
			WantSubcode: bgp.BGP_ERROR_SUB_CONNECTION_NOT_SYNCHRONIZED,
		},
		{
			Name:        "length_below_header",
			Input:       corrupt(17, 0x12),
			WantCode:    bgp.BGP_ERROR_MESSAGE_HEADER_ERROR,
			WantSubcode: bgp.BGP_ERROR_SUB_BAD_MESSAGE_LENGTH,
		},
		{
			Name:        "length_disagrees_with_buffer",
			Input:       corrupt(17, 0x14),
			WantCode:    bgp.BGP_ERROR_MESSAGE_HEADER_ERROR,
			WantSubcode: bgp.BGP_ERROR_SUB_BAD_MESSAGE_LENGTH,
		},
		{
			Name:        "bad_type",
			Input:       corrupt(18, 0x09),
			WantCode:    bgp.BGP_ERROR_MESSAGE_HEADER_ERROR,
			WantSubcode: bgp.BGP_ERROR_SUB_BAD_MESSAGE_TYPE,
		},
		{
			Name: "unsupported_version",
			Input: func() []byte {
				b := open()
				b[19] = 5 // version byte
				return b
			}(),
			WantCode:    bgp.BGP_ERROR_OPEN_MESSAGE_ERROR,
			WantSubcode: bgp.BGP_ERROR_SUB_UNSUPPORTED_VERSION_NUMBER,
		},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			_, err := DecodeMessage(tc.Input)
			var me *bgp.MessageError
			if !errors.As(err, &me) {
				t.Fatalf("DecodeMessage error = %v, want *bgp.MessageError", err)
			}
			if me.TypeCode != tc.WantCode || me.SubTypeCode != tc.WantSubcode {
				t.Errorf("notification = %d/%d, want %d/%d", me.TypeCode, me.SubTypeCode, tc.WantCode, tc.WantSubcode)
			}
		})
	}
}

func TestReadMessage(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	want := bgp.NewBGPNotificationMessage(bgp.BGP_ERROR_HOLD_TIMER_EXPIRED, bgp.BGP_ERROR_SUB_HOLD_TIMER_EXPIRED, nil)
	go func() {
		b, _ := EncodeMessage(want)
		// Write in two chunks to exercise the framing.
		client.Write(b[:7])
		client.Write(b[7:])
	}()

	m, err := ReadMessage(server, time.Now().Add(5*time.Second))
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	n, ok := m.Body.(*bgp.BGPNotification)
	if !ok {
		t.Fatalf("body = %T, want *bgp.BGPNotification", m.Body)
	}
	if n.ErrorCode != bgp.BGP_ERROR_HOLD_TIMER_EXPIRED {
		t.Errorf("error code = %d, want %d", n.ErrorCode, bgp.BGP_ERROR_HOLD_TIMER_EXPIRED)
	}
}

func TestReadMessageDeadline(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	_, err := ReadMessage(server, time.Now().Add(50*time.Millisecond))
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		t.Errorf("ReadMessage error = %v, want timeout", err)
	}
}

func TestReadMessageDesynchronized(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go client.Write(bytes.Repeat([]byte{0xab}, 19))

	_, err := ReadMessage(server, time.Now().Add(5*time.Second))
	var me *bgp.MessageError
	if !errors.As(err, &me) {
		t.Fatalf("ReadMessage error = %v, want *bgp.MessageError", err)
	}
	if me.SubTypeCode != bgp.BGP_ERROR_SUB_CONNECTION_NOT_SYNCHRONIZED {
		t.Errorf("subcode = %d, want %d", me.SubTypeCode, bgp.BGP_ERROR_SUB_CONNECTION_NOT_SYNCHRONIZED)
	}
}
