// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"fmt"
	"io"
	"strings"
)

// CompressionType identifies how a file's blocks are stored.
type CompressionType int

const (
	// CompressionNone marks a file stored without compression.
	CompressionNone CompressionType = iota
	// CompressionPKWare marks a file imploded with the PKWARE data
	// compression library; its blocks carry no method byte.
	CompressionPKWare
	// CompressionMulti marks a file whose blocks start with a method
	// byte naming the codec combination.
	CompressionMulti
)

// FileInfo describes a single file in the archive.
type FileInfo struct {
	CompressedSize   uint32
	UncompressedSize uint32
	Compression      CompressionType
}

// FileInfo returns size and compression information for the file with
// the given 1-based number.
func (a *Archive) FileInfo(number int) (FileInfo, error) {
	block, err := a.resolveNumber(number)
	if err != nil {
		return FileInfo{}, err
	}

	info := FileInfo{
		CompressedSize:   block.CompressedSize,
		UncompressedSize: block.FileSize,
		Compression:      CompressionNone,
	}
	switch {
	case block.hasFlag(fileImplode):
		info.Compression = CompressionPKWare
	case block.hasFlag(fileCompress):
		info.Compression = CompressionMulti
	}
	return info, nil
}

// FileName returns the synthetic name of the file with the given
// 1-based number, or the empty string when the number is out of range.
// Real path names are not stored in the archive; callers that know them
// can resolve them with FileIndex instead.
func (a *Archive) FileName(number int) string {
	if number < 1 || number > len(a.blockTable) {
		return ""
	}
	return fmt.Sprintf("file%06d.xxx", number)
}

// FileIndex returns the 1-based number of the named file. The name may
// be a real archive path, resolved through the hash table, or one of
// the synthetic names returned by FileName.
func (a *Archive) FileIndex(name string) (int, error) {
	if number, ok := a.lookupName(name); ok {
		return number, nil
	}
	for i := 1; i <= len(a.blockTable); i++ {
		if strings.EqualFold(a.FileName(i), name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrFileExist, name)
}

// lookupName probes the hash table for a real path name. The home slot
// is derived from the table-offset hash; probing steps linearly and
// stops at the first never-used slot.
func (a *Archive) lookupName(name string) (int, bool) {
	n := uint32(len(a.hashTable))
	if n == 0 {
		return 0, false
	}

	hashA := hashString(name, hashTypeNameA)
	hashB := hashString(name, hashTypeNameB)
	start := hashString(name, hashTypeTableOffset) & (n - 1)

	for i := uint32(0); i < n; i++ {
		entry := &a.hashTable[(start+i)&(n-1)]
		if entry.BlockIndex == blockIndexEmpty {
			break
		}
		if entry.BlockIndex == blockIndexDeleted {
			continue
		}
		if entry.HashA == hashA && entry.HashB == hashB {
			return int(entry.BlockIndex) + 1, true
		}
	}
	return 0, false
}

// resolveNumber maps a 1-based file number to its block entry. The
// number must be referenced by a hash entry, in range, and marked as an
// existing file with sane sizes.
func (a *Archive) resolveNumber(number int) (*blockEntry, error) {
	if number < 1 || number > len(a.blockTable) {
		return nil, fmt.Errorf("%w: %d", ErrFileRange, number)
	}

	want := int32(number - 1)
	found := false
	for i := range a.hashTable {
		if a.hashTable[i].BlockIndex == want {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: file %d has no hash entry", ErrFileExist, number)
	}

	block := &a.blockTable[want]
	if int64(block.FilePos) > int64(a.header.ArchiveSize)+a.origin ||
		block.CompressedSize > a.header.ArchiveSize {
		return nil, fmt.Errorf("%w: file %d", ErrFileCorrupt, number)
	}
	if !block.hasFlag(fileExists) {
		return nil, fmt.Errorf("%w: file %d", ErrFileExist, number)
	}
	return block, nil
}

// File is a read-only view of one file's uncompressed byte stream. It
// is created by OpenFile and implements io.Reader. A File borrows its
// archive handle and must not outlive it.
type File struct {
	archive *Archive
	number  int
	block   *blockEntry

	key    uint32 // encryption key, valid when the file is encrypted
	blocks uint32 // logical block count

	offsets []uint32 // blocks+1 compressed offsets within the file
	crcs    []uint32 // optional per-block adler32 values

	pos      uint32 // cursor within the uncompressed stream
	accessed bool

	inBuf    []byte
	blockBuf []byte
}

// OpenFile prepares the file with the given 1-based number for
// reading.
func (a *Archive) OpenFile(number int) (*File, error) {
	block, err := a.resolveNumber(number)
	if err != nil {
		return nil, err
	}

	f := &File{archive: a, number: number, block: block}
	if block.hasFlag(fileSingleUnit) {
		f.blocks = 1
	} else {
		f.blocks = (block.FileSize + a.blockSize - 1) / a.blockSize
	}
	if block.hasFlag(fileEncrypted) {
		f.key = getFileKey(a.FileName(number), block.FilePos, block.FileSize, block.Flags)
	}
	return f, nil
}

// loadBlockOffsets prepares the compressed-offset index. Compressed
// multi-block files store it as a prefix of their physical bytes;
// everything else gets a synthesized one.
func (f *File) loadBlockOffsets() error {
	block := f.block

	if block.hasFlag(fileSingleUnit) {
		f.offsets = []uint32{0, block.CompressedSize}
		return nil
	}
	if !block.hasFlag(fileCompressed) {
		f.offsets = make([]uint32, f.blocks+1)
		for i := uint32(0); i < f.blocks; i++ {
			f.offsets[i] = i * f.archive.blockSize
		}
		f.offsets[f.blocks] = block.CompressedSize
		return nil
	}

	a := f.archive
	if _, err := a.file.Seek(a.origin+int64(block.FilePos), io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek block offsets: %v", ErrFileCorrupt, err)
	}

	offsets := make([]uint32, f.blocks+1)
	if err := readUint32Array(a.file, offsets); err != nil {
		return fmt.Errorf("%w: read block offsets: %v", ErrFileCorrupt, err)
	}
	if block.hasFlag(fileEncrypted) {
		decryptBlock(offsets, f.key-1)
	}

	indexLen := 4 * (f.blocks + 1)
	expectFirst := indexLen

	// An adler32 table for each block may sit between the offset index
	// and the first block.
	if block.hasFlag(fileSectorCRC) && offsets[0] >= indexLen+4*f.blocks {
		crcs := make([]uint32, f.blocks)
		if err := readUint32Array(a.file, crcs); err != nil {
			return fmt.Errorf("%w: read block checksums: %v", ErrFileCorrupt, err)
		}
		if block.hasFlag(fileEncrypted) {
			decryptBlock(crcs, f.key-1+f.blocks)
		}
		f.crcs = crcs
		expectFirst += 4 * f.blocks
	}

	if offsets[0] != expectFirst {
		return fmt.Errorf("%w: block offsets start at %d, want %d", ErrFileCorrupt, offsets[0], expectFirst)
	}
	for i := uint32(0); i < f.blocks; i++ {
		if offsets[i+1] <= offsets[i] {
			return fmt.Errorf("%w: block offsets not increasing at %d", ErrFileCorrupt, i)
		}
	}
	if offsets[f.blocks] > block.CompressedSize {
		return fmt.Errorf("%w: block offsets end at %d past compressed size %d",
			ErrFileCorrupt, offsets[f.blocks], block.CompressedSize)
	}

	f.offsets = offsets
	return nil
}

// Read copies the next bytes of the uncompressed stream into p. Blocks
// are read, decrypted, and decompressed one at a time; a short p leaves
// the cursor mid-block and a later call resumes there.
func (f *File) Read(p []byte) (int, error) {
	block := f.block
	if f.pos >= block.FileSize {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	if !f.accessed {
		if err := f.loadBlockOffsets(); err != nil {
			return 0, err
		}
		f.accessed = true
	}

	a := f.archive
	n := 0
	for n < len(p) && f.pos < block.FileSize {
		var b, within, target uint32
		if block.hasFlag(fileSingleUnit) {
			b, within, target = 0, f.pos, block.FileSize
		} else {
			b = f.pos / a.blockSize
			within = f.pos % a.blockSize
			target = a.blockSize
			if rest := block.FileSize - b*a.blockSize; rest < target {
				target = rest
			}
		}

		data, err := f.readBlock(b, target)
		if err != nil {
			return n, err
		}

		c := copy(p[n:], data[within:])
		n += c
		f.pos += uint32(c)
	}
	return n, nil
}

// readBlock returns the uncompressed content of logical block b, which
// decompresses to target bytes.
func (f *File) readBlock(b, target uint32) ([]byte, error) {
	a := f.archive
	block := f.block

	payloadLen := f.offsets[b+1] - f.offsets[b]
	if cap(f.inBuf) < int(payloadLen) {
		f.inBuf = make([]byte, payloadLen)
	}
	payload := f.inBuf[:payloadLen]

	pos := a.origin + int64(block.FilePos) + int64(f.offsets[b])
	if _, err := a.file.ReadAt(payload, pos); err != nil {
		return nil, fmt.Errorf("%w: read block %d: %v", ErrFileCorrupt, b, err)
	}

	if block.hasFlag(fileEncrypted) {
		decryptBytes(payload, f.key+b)
	}

	data := payload
	if payloadLen != target {
		// Stored blocks whose sizes match are kept verbatim; anything
		// else goes through the decompressors.
		if cap(f.blockBuf) < int(target) {
			f.blockBuf = make([]byte, target)
		}
		out := f.blockBuf[:target]

		var produced int
		var err error
		if block.hasFlag(fileImplode) {
			produced, err = decompressPKWare(out, payload)
		} else {
			produced, err = decompressMulti(out, payload)
		}
		if err != nil {
			return nil, err
		}
		if produced != int(target) {
			return nil, fmt.Errorf("%w: block %d inflated to %d bytes, want %d",
				ErrFileCorrupt, b, produced, target)
		}
		data = out
	}

	if f.crcs != nil {
		if got, want := adler32(data), f.crcs[b]; got != want {
			return nil, fmt.Errorf("%w: block %d checksum 0x%08X, want 0x%08X",
				ErrFileCorrupt, b, got, want)
		}
	}
	return data, nil
}

// ExtractFile writes the complete uncompressed content of the file with
// the given 1-based number to sink. On error the sink may have received
// a prefix of the file; no success is signalled for it.
func (a *Archive) ExtractFile(number int, sink io.Writer) error {
	f, err := a.OpenFile(number)
	if err != nil {
		return err
	}

	buf := make([]byte, a.blockSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if _, werr := sink.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write extracted data: %w", werr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
