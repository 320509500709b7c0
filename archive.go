// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"fmt"
	"io"
	"os"
)

// Archive flag bits.
const flagProtected = 0x00000001

// Archive represents an open MPQ archive. The handle owns the host
// file descriptor and the decrypted tables; its content is immutable
// after Open. A handle must not be used from multiple goroutines at
// once, but distinct handles are fully independent.
type Archive struct {
	file   *os.File
	path   string
	origin int64 // offset of the archive header within the host file

	header     *archiveHeader
	hashTable  []hashEntry
	blockTable []blockEntry

	blockSize uint32 // bytes per logical block (512 << shift)
	flags     uint32
}

// Open opens an MPQ archive for reading. The archive header does not
// need to sit at offset 0 of the host file; it is searched for at every
// 512-byte boundary.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveOpen, err)
	}

	a, err := openArchive(file, path)
	if err != nil {
		file.Close()
		return nil, err
	}
	return a, nil
}

func openArchive(file *os.File, path string) (*Archive, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveOpen, err)
	}
	fileSize := info.Size()

	a := &Archive{file: file, path: path}

	// Scan for the header signature at 512-byte boundaries.
	buf := make([]byte, headerSize)
	for {
		if a.origin+headerSize > fileSize {
			return nil, fmt.Errorf("%w: no header signature in %s", ErrArchiveFormat, path)
		}
		if _, err := file.ReadAt(buf, a.origin); err != nil {
			return nil, fmt.Errorf("%w: read header: %v", ErrArchiveFormat, err)
		}

		h, err := decodeArchiveHeader(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: decode header: %v", ErrArchiveFormat, err)
		}

		// Map protectors write a bogus header length on purpose.
		if h.HeaderSize == headerSizeW3M {
			a.flags |= flagProtected
			h.HeaderSize = headerSize
		}

		if h.Magic == mpqMagic && h.HeaderSize == headerSize &&
			h.HashTableOffset < h.ArchiveSize && h.BlockTableOffset < h.ArchiveSize {
			a.header = h
			break
		}

		a.origin += headerAlign
	}

	h := a.header
	if h.ArchiveSize > 0x7FFFFFFF {
		return nil, fmt.Errorf("%w: archive size 0x%X exceeds the 32-bit format", ErrArchiveFormat, h.ArchiveSize)
	}
	a.blockSize = 0x200 << h.BlockSizeShift

	// Both tables must lie inside the host file; their offsets are
	// relative to the archive origin.
	hashPos := a.origin + int64(h.HashTableOffset)
	blockPos := a.origin + int64(h.BlockTableOffset)
	if hashPos >= fileSize || blockPos >= fileSize {
		return nil, fmt.Errorf("%w: table offsets outside host file", ErrArchiveFormat)
	}
	if !isPowerOfTwo(h.HashTableSize) {
		return nil, fmt.Errorf("%w: hash table size %d is not a power of two", ErrArchiveHashTable, h.HashTableSize)
	}
	if hashPos+int64(h.HashTableSize)*16 > fileSize {
		return nil, fmt.Errorf("%w: hash table extends past end of file", ErrArchiveHashTable)
	}
	if blockPos+int64(h.BlockTableSize)*16 > fileSize {
		return nil, fmt.Errorf("%w: block table extends past end of file", ErrArchiveBlockTable)
	}

	if err := a.readHashTable(hashPos); err != nil {
		return nil, err
	}
	if err := a.readBlockTable(blockPos); err != nil {
		return nil, err
	}

	return a, nil
}

// readHashTable reads and decrypts the hash table and validates its
// block indexes.
func (a *Archive) readHashTable(pos int64) error {
	h := a.header
	if _, err := a.file.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek: %v", ErrArchiveHashTable, err)
	}

	data := make([]uint32, h.HashTableSize*4)
	if err := readUint32Array(a.file, data); err != nil {
		return fmt.Errorf("%w: read: %v", ErrArchiveHashTable, err)
	}
	decryptBlock(data, hashString("(hash table)", hashTypeFileKey))

	a.hashTable = make([]hashEntry, h.HashTableSize)
	for i := range a.hashTable {
		a.hashTable[i] = hashEntry{
			HashA:      data[i*4],
			HashB:      data[i*4+1],
			Locale:     uint16(data[i*4+2] & 0xFFFF),
			Platform:   uint16(data[i*4+2] >> 16),
			BlockIndex: int32(data[i*4+3]),
		}
		if idx := a.hashTable[i].BlockIndex; idx >= 0 && uint32(idx) >= h.BlockTableSize {
			return fmt.Errorf("%w: entry %d points at block %d of %d", ErrArchiveHashTable, i, idx, h.BlockTableSize)
		}
	}
	return nil
}

// readBlockTable reads and decrypts the block table and validates that
// every existing block lies inside the archive.
func (a *Archive) readBlockTable(pos int64) error {
	h := a.header
	if _, err := a.file.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek: %v", ErrArchiveBlockTable, err)
	}

	data := make([]uint32, h.BlockTableSize*4)
	if err := readUint32Array(a.file, data); err != nil {
		return fmt.Errorf("%w: read: %v", ErrArchiveBlockTable, err)
	}
	decryptBlock(data, hashString("(block table)", hashTypeFileKey))

	a.blockTable = make([]blockEntry, h.BlockTableSize)
	for i := range a.blockTable {
		a.blockTable[i] = blockEntry{
			FilePos:        data[i*4],
			CompressedSize: data[i*4+1],
			FileSize:       data[i*4+2],
			Flags:          data[i*4+3],
		}
		b := &a.blockTable[i]
		if b.hasFlag(fileExists) &&
			int64(b.FilePos)+int64(b.CompressedSize) > a.origin+int64(h.ArchiveSize) {
			return fmt.Errorf("%w: block %d extends past end of archive", ErrArchiveBlockTable, i)
		}
	}
	return nil
}

// Close closes the archive and releases its file descriptor.
func (a *Archive) Close() error {
	if a.file == nil {
		return nil
	}
	if err := a.file.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveClose, err)
	}
	a.file = nil
	return nil
}

// Protected reports whether the archive carried the protector's bogus
// header length.
func (a *Archive) Protected() bool {
	return a.flags&flagProtected != 0
}

// Size returns the archive size recorded in the header.
func (a *Archive) Size() uint32 {
	return a.header.ArchiveSize
}

// HashTableSize returns the number of hash table entries.
func (a *Archive) HashTableSize() uint32 {
	return a.header.HashTableSize
}

// BlockTableSize returns the number of block table entries.
func (a *Archive) BlockTableSize() uint32 {
	return a.header.BlockTableSize
}

// BlockSize returns the logical block size in bytes.
func (a *Archive) BlockSize() uint32 {
	return a.blockSize
}

// FileCount returns the number of files in the archive.
func (a *Archive) FileCount() int {
	return len(a.blockTable)
}

// CompressedSize returns the compressed size of all files in the
// archive.
func (a *Archive) CompressedSize() uint64 {
	var total uint64
	for i := range a.blockTable {
		total += uint64(a.blockTable[i].CompressedSize)
	}
	return total
}

// UncompressedSize returns the uncompressed size of all files in the
// archive.
func (a *Archive) UncompressedSize() uint64 {
	var total uint64
	for i := range a.blockTable {
		total += uint64(a.blockTable[i].FileSize)
	}
	return total
}
