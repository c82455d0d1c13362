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
	"fmt"
	"net/netip"

	"github.com/osrg/gobgp/v3/pkg/packet/bgp"
)

// A Family identifies an address family as an AFI/SAFI pair.
type Family uint32

const (
	IPv4Unicast = Family(bgp.AFI_IP)<<16 | Family(bgp.SAFI_UNICAST)
	IPv6Unicast = Family(bgp.AFI_IP6)<<16 | Family(bgp.SAFI_UNICAST)
)

// NewFamily combines an AFI and SAFI into a Family.
func NewFamily(afi uint16, safi uint8) Family {
	return Family(afi)<<16 | Family(safi)
}

// Split returns the AFI and SAFI.
func (f Family) Split() (uint16, uint8) {
	return uint16(f >> 16), uint8(f & 0xffff)
}

// AFI returns the address family identifier.
func (f Family) AFI() uint16 {
	return uint16(f >> 16)
}

// SAFI returns the subsequent address family identifier.
func (f Family) SAFI() uint8 {
	return uint8(f & 0xffff)
}

func (f Family) String() string {
	switch f {
	case IPv4Unicast:
		return "ipv4-unicast"
	case IPv6Unicast:
		return "ipv6-unicast"
	default:
		afi, safi := f.Split()
		return fmt.Sprintf("afi-%d-safi-%d", afi, safi)
	}
}

// ParseFamily parses the string form produced by String. It accepts only the
// families the engine supports.
func ParseFamily(s string) (Family, error) {
	switch s {
	case "ipv4-unicast":
		return IPv4Unicast, nil
	case "ipv6-unicast":
		return IPv6Unicast, nil
	default:
		return 0, fmt.Errorf("unsupported address family: %q", s)
	}
}

// FamilyFor returns the unicast family matching an address.
func FamilyFor(a netip.Addr) Family {
	switch {
	case a.Is4() || a.Is4In6():
		return IPv4Unicast
	case a.Is6():
		return IPv6Unicast
	default:
		return 0
	}
}
