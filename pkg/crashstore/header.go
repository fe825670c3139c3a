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

package crashstore

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/NVIDIA/bootcheck/pkg/errors"
)

// StartFlag records how far the previous collection cycle got.
type StartFlag uint32

// Start flag values.
const (
	StartNotStarted StartFlag = 0x00
	StartInProgress StartFlag = 0x01
	StartDone       StartFlag = 0x02
)

func (f StartFlag) String() string {
	switch f {
	case StartNotStarted:
		return "not-started"
	case StartInProgress:
		return "in-progress"
	case StartDone:
		return "done"
	default:
		return fmt.Sprintf("start(0x%x)", uint32(f))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f StartFlag) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// SaveFlag records whether a save step finished.
type SaveFlag uint32

// Save flag values.
const (
	SaveNotDone SaveFlag = 0x00
	SaveDone    SaveFlag = 0x02
)

func (f SaveFlag) String() string {
	switch f {
	case SaveNotDone:
		return "not-done"
	case SaveDone:
		return "done"
	default:
		return fmt.Sprintf("save(0x%x)", uint32(f))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f SaveFlag) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnexpectedRebootMarker in Header.Reserve means the previous reboot was forced by bootcheck
// or the crash handler rather than requested by the user.
const UnexpectedRebootMarker uint32 = 0x55AA5AA5

// BaseInfo holds the completion flags of the last collection cycle.
type BaseInfo struct {
	StartFlag    StartFlag `json:"startFlag" yaml:"startFlag"`
	SavefileFlag SaveFlag  `json:"savefileFlag" yaml:"savefileFlag"`
}

// Complete reports whether the previous cycle finished.
func (b BaseInfo) Complete() bool {
	return b.StartFlag == StartDone && b.SavefileFlag == SaveDone
}

// Cleartext holds the state of the human-readable rendering of the last archive.
type Cleartext struct {
	SavefileFlag SaveFlag `json:"savefileFlag" yaml:"savefileFlag"`
}

// Header is the decoded crash-store record.
type Header struct {
	Reserve   uint32    `json:"reserve" yaml:"reserve"`
	Base      BaseInfo  `json:"base" yaml:"base"`
	Cleartext Cleartext `json:"cleartext" yaml:"cleartext"`
	// Saving is set while an archive is being written.
	Saving bool `json:"saving" yaml:"saving"`
}

// SelfTriggered reports whether the reserve marker flags a forced reboot.
func (h Header) SelfTriggered() bool {
	return h.Reserve == UnexpectedRebootMarker
}

// Clean returns the baseline of a fresh region: every flag done, nothing pending.
func Clean() Header {
	return Header{
		Base:      BaseInfo{StartFlag: StartDone, SavefileFlag: SaveDone},
		Cleartext: Cleartext{SavefileFlag: SaveDone},
	}
}

// Cleared returns h after a cycle ends. The cycle state is reset to the
// clean baseline; the cleartext flag is tracked independently and kept.
func Cleared(h Header) Header {
	c := Clean()
	c.Cleartext = h.Cleartext
	return c
}

// Binary layout, little endian:
//
//	0  magic      u32
//	4  version    u16
//	6  reserved   u16
//	8  reserve    u32
//	12 start      u32
//	16 savefile   u32
//	20 cleartext  u32
//	24 saving     u32
//	28 crc32      u32 (IEEE over bytes 0..27)
const (
	// Size is the encoded header length.
	Size = 32

	magic   uint32 = 0x314B4342 // "BCK1"
	version uint16 = 1
)

// Encode serializes h.
func Encode(h Header) []byte {
	b := make([]byte, Size)
	le := binary.LittleEndian
	le.PutUint32(b[0:], magic)
	le.PutUint16(b[4:], version)
	le.PutUint32(b[8:], h.Reserve)
	le.PutUint32(b[12:], uint32(h.Base.StartFlag))
	le.PutUint32(b[16:], uint32(h.Base.SavefileFlag))
	le.PutUint32(b[20:], uint32(h.Cleartext.SavefileFlag))
	if h.Saving {
		le.PutUint32(b[24:], 1)
	}
	le.PutUint32(b[28:], crc32.ChecksumIEEE(b[:28]))
	return b
}

// Decode parses an encoded header. A short, unstamped or corrupt record is
// reported as ErrCodeConfigurationAbsent.
func Decode(b []byte) (Header, error) {
	if len(b) < Size {
		return Header{}, errors.NewWithContext(errors.ErrCodeConfigurationAbsent,
			"crash store record truncated", map[string]any{"length": len(b)})
	}
	le := binary.LittleEndian
	if m := le.Uint32(b[0:]); m != magic {
		return Header{}, errors.NewWithContext(errors.ErrCodeConfigurationAbsent,
			"crash store not initialized", map[string]any{"magic": fmt.Sprintf("0x%08x", m)})
	}
	if v := le.Uint16(b[4:]); v != version {
		return Header{}, errors.NewWithContext(errors.ErrCodeConfigurationAbsent,
			"unsupported crash store version", map[string]any{"version": v})
	}
	if want, got := le.Uint32(b[28:]), crc32.ChecksumIEEE(b[:28]); want != got {
		return Header{}, errors.NewWithContext(errors.ErrCodeConfigurationAbsent,
			"crash store checksum mismatch", map[string]any{"want": want, "got": got})
	}
	return Header{
		Reserve:   le.Uint32(b[8:]),
		Base:      BaseInfo{StartFlag: StartFlag(le.Uint32(b[12:])), SavefileFlag: SaveFlag(le.Uint32(b[16:]))},
		Cleartext: Cleartext{SavefileFlag: SaveFlag(le.Uint32(b[20:]))},
		Saving:    le.Uint32(b[24:]) != 0,
	}, nil
}
