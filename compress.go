// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Compression method mask bits
const (
	compressionHuffman   = 0x01 // Huffman (used on wave files)
	compressionZlib      = 0x02 // Zlib compression
	compressionPKWare    = 0x08 // PKWare DCL compression
	compressionBzip2     = 0x10 // BZip2 compression
	compressionADPCMMono = 0x40 // ADPCM mono audio
	compressionADPCM     = 0x80 // ADPCM stereo audio
)

// decompressFunc inflates in into out and reports the produced size.
// out is sized to the block's uncompressed length.
type decompressFunc func(out, in []byte) (int, error)

// decompressTable lists the known methods in the order the producer
// applies them. The method mask only selects which entries run; the
// table order decides the sequence.
var decompressTable = []struct {
	mask       byte
	decompress decompressFunc
}{
	{compressionHuffman, decompressHuffman},
	{compressionZlib, decompressZlib},
	{compressionPKWare, decompressPKWare},
	{compressionBzip2, decompressBzip2},
	{compressionADPCMMono, decompressWaveMono},
	{compressionADPCM, decompressWaveStereo},
}

// decompressMulti inflates one block body whose first byte is the
// method mask. A body as large as out is stored verbatim and copied.
// When two or more methods are selected, the intermediate result
// ping-pongs between out and one temporary buffer.
func decompressMulti(out, in []byte) (int, error) {
	if len(in) == len(out) {
		copy(out, in)
		return len(out), nil
	}
	if len(in) == 0 {
		return 0, fmt.Errorf("%w: empty block body", ErrFileDecompress)
	}

	mask := in[0]
	in = in[1:]

	count := 0
	for _, entry := range decompressTable {
		if mask&entry.mask != 0 {
			count++
		}
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: unknown method mask 0x%02X", ErrFileDecompress, mask)
	}

	var temp []byte
	if count > 1 {
		temp = make([]byte, len(out))
	}

	src := in
	n := 0
	applied := 0
	for _, entry := range decompressTable {
		if mask&entry.mask == 0 {
			continue
		}
		dst := out
		if applied%2 == 1 {
			dst = temp
		}
		m, err := entry.decompress(dst, src)
		if err != nil {
			return 0, err
		}
		src = dst[:m]
		n = m
		applied++
	}

	// An even number of methods leaves the result in the temporary.
	if applied%2 == 0 {
		copy(out, src)
	}
	return n, nil
}

// decompressZlib inflates a zlib stream.
func decompressZlib(out, in []byte) (int, error) {
	r, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return 0, fmt.Errorf("%w: zlib: %v", ErrFileDecompress, err)
	}
	defer r.Close()

	n, err := io.ReadFull(r, out)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("%w: zlib: %v", ErrFileDecompress, err)
	}
	return n, nil
}

// decompressBzip2 inflates a bzip2 stream.
func decompressBzip2(out, in []byte) (int, error) {
	r := bzip2.NewReader(bytes.NewReader(in))

	n, err := io.ReadFull(r, out)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("%w: bzip2: %v", ErrFileDecompress, err)
	}
	return n, nil
}
