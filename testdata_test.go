// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"
)

// testFile describes one file placed into a fixture archive.
type testFile struct {
	name    string // hash table name; empty leaves the file unnamed
	payload []byte // physical bytes exactly as stored in the archive
	usize   uint32
	flags   uint32
}

// testArchive assembles MPQ fixture files for the read-path tests.
// Files are laid out right after the header, followed by the hash and
// block tables.
type testArchive struct {
	files          []testFile
	prefix         int    // zero bytes before the header
	blockSizeShift uint16 // used as-is; 3 gives the usual 4096-byte blocks
	hashTableSize  uint32 // defaults to a power of two >= len(files)
	archiveSize    uint32 // defaults to the on-disk size past the prefix
	headerLength   uint32 // defaults to headerSize
	hashCountLie   uint32 // header hash table count override
	badMagic       bool   // write a zero signature
}

func (ta *testArchive) build(t *testing.T) string {
	t.Helper()

	magic := uint32(mpqMagic)
	if ta.badMagic {
		magic = 0
	}
	headerLength := ta.headerLength
	if headerLength == 0 {
		headerLength = headerSize
	}

	hashSize := ta.hashTableSize
	if hashSize == 0 {
		hashSize = 1
		for hashSize < uint32(len(ta.files)) {
			hashSize *= 2
		}
	}

	positions := make([]uint32, len(ta.files))
	pos := uint32(headerSize)
	for i, f := range ta.files {
		positions[i] = pos
		pos += uint32(len(f.payload))
	}
	hashOff := pos
	blockOff := hashOff + hashSize*16
	total := blockOff + uint32(len(ta.files))*16

	archiveSize := ta.archiveSize
	if archiveSize == 0 {
		archiveSize = total
	}

	hashWords := make([]uint32, hashSize*4)
	for i := range hashWords {
		hashWords[i] = 0xFFFFFFFF
	}
	for i, f := range ta.files {
		if f.name == "" {
			continue
		}
		slot := hashString(f.name, hashTypeTableOffset) & (hashSize - 1)
		for hashWords[slot*4+3] != 0xFFFFFFFF {
			slot = (slot + 1) & (hashSize - 1)
		}
		hashWords[slot*4] = hashString(f.name, hashTypeNameA)
		hashWords[slot*4+1] = hashString(f.name, hashTypeNameB)
		hashWords[slot*4+2] = 0
		hashWords[slot*4+3] = uint32(i)
	}
	encryptBlock(hashWords, hashString("(hash table)", hashTypeFileKey))

	blockWords := make([]uint32, len(ta.files)*4)
	for i, f := range ta.files {
		blockWords[i*4] = positions[i]
		blockWords[i*4+1] = uint32(len(f.payload))
		blockWords[i*4+2] = f.usize
		blockWords[i*4+3] = f.flags
	}
	encryptBlock(blockWords, hashString("(block table)", hashTypeFileKey))

	hashCount := hashSize
	if ta.hashCountLie != 0 {
		hashCount = ta.hashCountLie
	}

	var out bytes.Buffer
	out.Write(make([]byte, ta.prefix))
	writeU32 := func(v uint32) { binary.Write(&out, binary.LittleEndian, v) }
	writeU32(magic)
	writeU32(headerLength)
	writeU32(archiveSize)
	binary.Write(&out, binary.LittleEndian, uint16(0)) // format version
	binary.Write(&out, binary.LittleEndian, ta.blockSizeShift)
	writeU32(hashOff)
	writeU32(blockOff)
	writeU32(hashCount)
	writeU32(uint32(len(ta.files)))
	for _, f := range ta.files {
		out.Write(f.payload)
	}
	binary.Write(&out, binary.LittleEndian, hashWords)
	binary.Write(&out, binary.LittleEndian, blockWords)

	path := filepath.Join(t.TempDir(), "fixture.mpq")
	if err := os.WriteFile(path, out.Bytes(), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// zlibPack deflates data into a bare zlib stream.
func zlibPack(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		t.Fatalf("create zlib writer: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	return buf.Bytes()
}

// zlibBlock builds one compressed block body: method byte plus stream.
func zlibBlock(t *testing.T, data []byte) []byte {
	t.Helper()
	return append([]byte{compressionZlib}, zlibPack(t, data)...)
}

// compressedPayload assembles a multi-block physical file: the offset
// index, an optional adler32 table, and the block bodies.
func compressedPayload(bodies [][]byte, crcs []uint32) []byte {
	n := len(bodies)
	offsets := make([]uint32, 0, n+1)
	off := uint32(4*(n+1) + 4*len(crcs))
	offsets = append(offsets, off)
	for _, b := range bodies {
		off += uint32(len(b))
		offsets = append(offsets, off)
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, offsets)
	if crcs != nil {
		binary.Write(&buf, binary.LittleEndian, crcs)
	}
	for _, b := range bodies {
		buf.Write(b)
	}
	return buf.Bytes()
}

// encryptBytesFixture encrypts the word-aligned prefix of data in
// place, the inverse of decryptBytes.
func encryptBytesFixture(data []byte, key uint32) {
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	encryptBlock(words, key)
	for i := range words {
		binary.LittleEndian.PutUint32(data[i*4:], words[i])
	}
}

// repeatPattern makes n compressible bytes.
func repeatPattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte("abcdefgh"[i%8])
	}
	return data
}
