// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package module

import (
	"fmt"
	"math/bits"
	"strings"
)

// ID is the bit position of a dump-capable subsystem.
type ID uint8

// MaxID is the highest representable module ID.
const MaxID ID = 63

// Known modules. The numbering is part of the Mask wire encoding and must not change.
const (
	AP        ID = iota // application processor
	CP                  // communication processor
	TEEOS               // trusted execution environment
	HIFI                // audio DSP
	LPM3                // low power management core
	IOM3                // sensor hub
	ISP                 // image signal processor
	IVP                 // vision processor
	EMMC                // storage controller
	ModemAP             // modem application side
	Location            // positioning (FLP) subsystem
	WLAN                // WLAN roaming subsystem
)

var names = map[ID]string{
	AP:       "ap",
	CP:       "cp",
	TEEOS:    "teeos",
	HIFI:     "hifi",
	LPM3:     "lpm3",
	IOM3:     "iom3",
	ISP:      "isp",
	IVP:      "ivp",
	EMMC:     "emmc",
	ModemAP:  "modemap",
	Location: "location",
	WLAN:     "wlan",
}

// String returns the short module name, or "module<N>" for unnamed IDs.
func (id ID) String() string {
	if n, ok := names[id]; ok {
		return n
	}
	return fmt.Sprintf("module%d", uint8(id))
}

// Parse resolves a module name (case-insensitive) or a "module<N>" form.
func Parse(name string) (ID, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for id, n := range names {
		if n == name {
			return id, nil
		}
	}
	var n uint8
	if _, err := fmt.Sscanf(name, "module%d", &n); err == nil && ID(n) <= MaxID {
		return ID(n), nil
	}
	return 0, fmt.Errorf("unknown module %q", name)
}

// Mask is the bit-encoded wire form of a Set.
type Mask uint64

// String renders the mask as hex.
func (m Mask) String() string {
	return fmt.Sprintf("0x%x", uint64(m))
}

// Set is an immutable set of module IDs.
type Set struct {
	bits uint64
}

// NewSet returns a set containing ids.
func NewSet(ids ...ID) Set {
	var s Set
	for _, id := range ids {
		s = s.Add(id)
	}
	return s
}

// FromMask decodes a wire mask.
func FromMask(m Mask) Set {
	return Set{bits: uint64(m)}
}

// Mask encodes the set for the notification boundary.
func (s Set) Mask() Mask {
	return Mask(s.bits)
}

// Add returns s with id included.
func (s Set) Add(id ID) Set {
	if id > MaxID {
		return s
	}
	return Set{bits: s.bits | 1<<id}
}

// Remove returns s without id.
func (s Set) Remove(id ID) Set {
	if id > MaxID {
		return s
	}
	return Set{bits: s.bits &^ (1 << id)}
}

// Has reports whether id is in s.
func (s Set) Has(id ID) bool {
	return id <= MaxID && s.bits&(1<<id) != 0
}

// Union returns s ∪ o.
func (s Set) Union(o Set) Set { return Set{bits: s.bits | o.bits} }

// Intersect returns s ∩ o.
func (s Set) Intersect(o Set) Set { return Set{bits: s.bits & o.bits} }

// Difference returns s \ o.
func (s Set) Difference(o Set) Set { return Set{bits: s.bits &^ o.bits} }

// IsEmpty reports whether s has no members.
func (s Set) IsEmpty() bool { return s.bits == 0 }

// Len returns the number of members.
func (s Set) Len() int { return bits.OnesCount64(s.bits) }

// IsSubsetOf reports whether every member of s is in o.
func (s Set) IsSubsetOf(o Set) bool { return s.bits&^o.bits == 0 }

// IDs returns the members in ascending order.
func (s Set) IDs() []ID {
	out := make([]ID, 0, s.Len())
	for b := s.bits; b != 0; b &= b - 1 {
		out = append(out, ID(bits.TrailingZeros64(b)))
	}
	return out
}

// Names returns the member names in ascending ID order.
func (s Set) Names() []string {
	ids := s.IDs()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// String renders the set as "{ap,location}".
func (s Set) String() string {
	return "{" + strings.Join(s.Names(), ",") + "}"
}

// ParseSet resolves a list of module names.
func ParseSet(names []string) (Set, error) {
	var s Set
	for _, n := range names {
		id, err := Parse(n)
		if err != nil {
			return Set{}, err
		}
		s = s.Add(id)
	}
	return s, nil
}

// AllAP is the default incident scope: every module owned by the application processor.
var AllAP = NewSet(AP)
