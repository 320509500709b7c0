// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/go-restruct/restruct"
)

const (
	attributesVersion   = 100
	attributesFlagCRC32 = 0x00000001
)

// attributesHeader is the fixed prefix of the "(attributes)" file.
type attributesHeader struct {
	Version uint32 `struct:"uint32"`
	Flags   uint32 `struct:"uint32"`
}

// Attributes holds the parsed "(attributes)" special file.
type Attributes struct {
	Version uint32
	Flags   uint32
	CRC32   []uint32 // per-block CRC32 values, one per block table entry
}

// Attributes reads and parses the "(attributes)" special file.
// Archives without one return nil with no error.
func (a *Archive) Attributes() (*Attributes, error) {
	number, err := a.FileIndex("(attributes)")
	if err != nil {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := a.ExtractFile(number, &buf); err != nil {
		return nil, fmt.Errorf("extract attributes: %w", err)
	}
	data := buf.Bytes()

	if len(data) < 8 {
		return nil, fmt.Errorf("%w: attributes file has %d bytes", ErrFileCorrupt, len(data))
	}
	hdr := &attributesHeader{}
	if err := restruct.Unpack(data[:8], binary.LittleEndian, hdr); err != nil {
		return nil, fmt.Errorf("%w: attributes header: %v", ErrFileCorrupt, err)
	}

	attrs := &Attributes{Version: hdr.Version, Flags: hdr.Flags}
	if hdr.Flags&attributesFlagCRC32 != 0 {
		count := len(a.blockTable)
		if avail := (len(data) - 8) / 4; avail < count {
			count = avail
		}
		attrs.CRC32 = make([]uint32, count)
		for i := range attrs.CRC32 {
			attrs.CRC32[i] = binary.LittleEndian.Uint32(data[8+i*4:])
		}
	}
	return attrs, nil
}

// VerifyFile extracts the file with the given 1-based number and checks
// its bytes against the CRC32 recorded in "(attributes)". Archives or
// entries without a recorded CRC verify trivially.
func (a *Archive) VerifyFile(number int) error {
	attrs, err := a.Attributes()
	if err != nil {
		return err
	}
	if attrs == nil || number < 1 || number > len(attrs.CRC32) {
		return nil
	}
	want := attrs.CRC32[number-1]
	if want == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := a.ExtractFile(number, &buf); err != nil {
		return err
	}
	if got := crc32(buf.Bytes()); got != want {
		return fmt.Errorf("%w: file %d crc 0x%08X, want 0x%08X", ErrFileCorrupt, number, got, want)
	}
	return nil
}
