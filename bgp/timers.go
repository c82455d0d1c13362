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
	"math/rand"
	"time"
)

const (
	// defaultHoldTime is offered in our OPEN when the configuration does not
	// override it. Per RFC 4271 it must be zero or at least 3 seconds.
	defaultHoldTime = 90 * time.Second
	// minHoldTime and maxHoldTime bound the hold time we accept from a peer.
	minHoldTime = 3 * time.Second
	maxHoldTime = 600 * time.Second
	// defaultConnectRetry paces outgoing connection attempts.
	defaultConnectRetry = 120 * time.Second
	// keepaliveFuzz spreads out keepalive transmission to avoid
	// synchronization across sessions.
	keepaliveFuzz = 2 * time.Second
	// defaultOpenTimeout is the timeout to dial the peer and transmit an OPEN.
	defaultOpenTimeout = 10 * time.Second
	// defaultMessageTimeout is the timeout for most messages sent and received.
	defaultMessageTimeout = 30 * time.Second
	// defaultNotificationTimeout is the transmit timeout for NOTIFICATIONs.
	defaultNotificationTimeout = 3 * time.Second
)

// Timers holds the configured per-peer timer values. The hold time actually
// used by a session is negotiated down from HoldTime by negotiateHoldTime;
// the keepalive interval is derived from the negotiated value.
type Timers struct {
	// HoldTime is the value offered in our OPEN.
	HoldTime time.Duration
	// ConnectRetry is the base interval between outgoing connection attempts.
	ConnectRetry time.Duration
}

func newTimers(from *Timers) *Timers {
	t := &Timers{
		HoldTime:     defaultHoldTime,
		ConnectRetry: defaultConnectRetry,
	}
	if from != nil {
		if from.HoldTime != 0 {
			t.HoldTime = from.HoldTime
		}
		if from.ConnectRetry != 0 {
			t.ConnectRetry = from.ConnectRetry
		}
	}
	return t
}

// negotiateHoldTime returns the session hold time: the smaller of the locally
// configured value and the one offered by the peer.
func negotiateHoldTime(local, offered time.Duration) time.Duration {
	if offered < local {
		return offered
	}
	return local
}

// keepaliveInterval derives the keepalive interval from the negotiated hold
// time.
func keepaliveInterval(holdTime time.Duration) time.Duration {
	return holdTime / 3
}

// nextKeepAlive returns the fuzzed delay until the next keepalive.
func nextKeepAlive(interval time.Duration) time.Duration {
	if interval <= keepaliveFuzz {
		return interval
	}
	return interval - time.Duration(rand.Int63n(int64(keepaliveFuzz)))
}
