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

// Package config loads and validates the daemon's TOML configuration.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ubgp/ubgpd/bgp"
)

const (
	// DefaultPort is the BGP port used when the configuration does not
	// override it, for listening and for dialing neighbors alike.
	DefaultPort = 179
)

// Config is the top level of the TOML configuration file.
type Config struct {
	// ASN is the local autonomous system number. Required.
	ASN uint32 `toml:"asn"`
	// RouterID is the local BGP identifier, formatted as an IPv4 address.
	// Required.
	RouterID string `toml:"router-id"`
	// Port is the TCP port to listen on. Defaults to 179.
	Port int `toml:"port"`
	// HoldTime is the hold time in seconds offered in our OPEN messages.
	// Defaults to the engine's 90 seconds. Neighbors may override it.
	HoldTime int `toml:"hold-time"`

	Neighbors []Neighbor `toml:"neighbors"`
}

// Neighbor configures one BGP peer.
type Neighbor struct {
	// IP is the neighbor's address. Required.
	IP string `toml:"ip"`
	// ASN is the neighbor's autonomous system number. Required.
	ASN uint32 `toml:"asn"`
	// Port is the TCP port the neighbor listens on. Defaults to 179.
	Port int `toml:"port"`
	// HoldTime overrides the top-level hold time, in seconds.
	HoldTime int `toml:"hold-time"`
	// ConnectRetry is the base interval between outgoing connection attempts,
	// in seconds. Defaults to the engine's 120 seconds.
	ConnectRetry int `toml:"connect-retry"`
	// Passive inhibits dialing the neighbor.
	Passive bool `toml:"passive"`
	// MD5 enables TCP MD5 signatures with the given password.
	MD5 string `toml:"md5"`
	// Families restricts the address families offered to the neighbor, e.g.
	// ["ipv4-unicast"]. Empty offers every family the server routes.
	Families []string `toml:"families"`
}

// Addr returns the neighbor's parsed address. Validate has already checked
// that it parses.
func (n *Neighbor) Addr() netip.Addr {
	a, _ := netip.ParseAddr(n.IP)
	return a.Unmap()
}

// Timers converts the per-neighbor timer overrides to the engine's form. It
// returns nil when nothing is overridden.
func (n *Neighbor) Timers(defaultHoldTime int) *bgp.Timers {
	hold := n.HoldTime
	if hold == 0 {
		hold = defaultHoldTime
	}
	if hold == 0 && n.ConnectRetry == 0 {
		return nil
	}
	return &bgp.Timers{
		HoldTime:     time.Duration(hold) * time.Second,
		ConnectRetry: time.Duration(n.ConnectRetry) * time.Second,
	}
}

// FamilyList parses the configured family names.
func (n *Neighbor) FamilyList() ([]bgp.Family, error) {
	var fams []bgp.Family
	for _, s := range n.Families {
		f, err := bgp.ParseFamily(s)
		if err != nil {
			return nil, err
		}
		fams = append(fams, f)
	}
	return fams, nil
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse unmarshals and validates configuration text.
func Parse(b []byte) (*Config, error) {
	c := &Config{}
	if err := toml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func validHoldTime(seconds int) bool {
	return seconds == 0 || (seconds >= 3 && seconds <= 600)
}

// Validate checks the configuration for errors that must stop startup.
func (c *Config) Validate() error {
	if c.ASN == 0 {
		return fmt.Errorf("asn is required")
	}
	id, err := netip.ParseAddr(c.RouterID)
	if err != nil || !id.Is4() {
		return fmt.Errorf("router-id must be an IPv4-formatted identifier, got %q", c.RouterID)
	}
	if id == netip.IPv4Unspecified() {
		return fmt.Errorf("router-id must not be zero")
	}
	if !validHoldTime(c.HoldTime) {
		return fmt.Errorf("hold-time must be 0 or between 3 and 600 seconds, got %d", c.HoldTime)
	}
	seen := map[netip.Addr]bool{}
	for i := range c.Neighbors {
		n := &c.Neighbors[i]
		a, err := netip.ParseAddr(n.IP)
		if err != nil {
			return fmt.Errorf("neighbor %d: invalid ip %q: %w", i, n.IP, err)
		}
		a = a.Unmap()
		if seen[a] {
			return fmt.Errorf("neighbor %d: duplicate ip %v", i, a)
		}
		seen[a] = true
		if n.ASN == 0 {
			return fmt.Errorf("neighbor %v: asn is required", a)
		}
		if !validHoldTime(n.HoldTime) {
			return fmt.Errorf("neighbor %v: hold-time must be 0 or between 3 and 600 seconds, got %d", a, n.HoldTime)
		}
		if n.ConnectRetry < 0 {
			return fmt.Errorf("neighbor %v: connect-retry must not be negative", a)
		}
		if _, err := n.FamilyList(); err != nil {
			return fmt.Errorf("neighbor %v: %w", a, err)
		}
	}
	return nil
}
