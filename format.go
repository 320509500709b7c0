// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"encoding/binary"
	"io"

	"github.com/go-restruct/restruct"
)

// MPQ format constants
const (
	// Magic signature "MPQ\x1A" in little-endian
	mpqMagic = 0x1A51504D

	// Size of the V1 archive header
	headerSize = 0x20

	// Header-length value written by W3M map protectors. The real
	// length is headerSize; an archive carrying this value is flagged
	// as protected.
	headerSizeW3M = 0x6D9E4B86

	// An embedded archive header must sit on a 512-byte boundary
	headerAlign = 0x200

	// Block table entry flags
	fileImplode    = 0x00000100 // Imploded (PKWARE compression, no method byte)
	fileCompress   = 0x00000200 // Compressed (multi-algorithm, leading method byte)
	fileCompressed = 0x0000FF00 // Any compression bit
	fileEncrypted  = 0x00010000 // Encrypted
	fileFixKey     = 0x00020000 // Key adjusted by block offset and file size
	fileSingleUnit = 0x01000000 // Single unit (not split into blocks)
	fileSectorCRC  = 0x04000000 // Per-block adler32 values follow the offset table
	fileExists     = 0x80000000 // File exists

	// Hash table block-index sentinels
	blockIndexEmpty   = -1 // never used; terminates probing
	blockIndexDeleted = -2 // tombstone; probing continues
)

// archiveHeader is the 32-byte archive header. All fields are
// little-endian; table offsets are relative to the archive origin.
type archiveHeader struct {
	Magic            uint32 `struct:"uint32"`
	HeaderSize       uint32 `struct:"uint32"`
	ArchiveSize      uint32 `struct:"uint32"`
	FormatVersion    uint16 `struct:"uint16"`
	BlockSizeShift   uint16 `struct:"uint16"`
	HashTableOffset  uint32 `struct:"uint32"`
	BlockTableOffset uint32 `struct:"uint32"`
	HashTableSize    uint32 `struct:"uint32"`
	BlockTableSize   uint32 `struct:"uint32"`
}

// decodeArchiveHeader unpacks a header from its on-disk bytes.
func decodeArchiveHeader(buf []byte) (*archiveHeader, error) {
	h := &archiveHeader{}
	if err := restruct.Unpack(buf, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	return h, nil
}

// hashEntry represents an entry in the hash table
type hashEntry struct {
	HashA      uint32 // First hash of the file name
	HashB      uint32 // Second hash of the file name
	Locale     uint16 // Locale ID
	Platform   uint16 // Platform ID (0 = default)
	BlockIndex int32  // Index into the block table, or a sentinel
}

// blockEntry represents an entry in the block table
type blockEntry struct {
	FilePos        uint32 // Offset of the file data, relative to the archive origin
	CompressedSize uint32 // Compressed file size
	FileSize       uint32 // Uncompressed file size
	Flags          uint32 // File flags
}

// hasFlag returns true if the specified flag is present
func (b *blockEntry) hasFlag(flag uint32) bool {
	return b.Flags&flag != 0
}

// readUint32Array reads an array of uint32 values
func readUint32Array(r io.Reader, data []uint32) error {
	return binary.Read(r, binary.LittleEndian, data)
}

// isPowerOfTwo reports whether n is a power of 2.
func isPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}
