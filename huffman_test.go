// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"encoding/binary"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// huffEncoder is the test-side mirror of the decoder: it drives an
// identical tree through identical updates and records the code bits.
type huffEncoder struct {
	tree *huffTree
	bits []int
}

func (e *huffEncoder) emitSymbol(sym int) {
	n := e.tree.leafOf[sym]
	var path []int
	for n != e.tree.root {
		p := e.tree.nodes[n].parent
		if e.tree.nodes[p].child[0] == n {
			path = append(path, 0)
		} else {
			path = append(path, 1)
		}
		n = p
	}
	for i := len(path) - 1; i >= 0; i-- {
		e.bits = append(e.bits, path[i])
	}
}

func (e *huffEncoder) emitRaw8(v byte) {
	for i := uint(0); i < 8; i++ {
		e.bits = append(e.bits, int(v>>i)&1)
	}
}

// pack lays the bit sequence out the way the decoder consumes it: the
// first 32 bits fill the little-endian primer, later bits fill each
// following byte from its least significant bit up.
func (e *huffEncoder) pack() []byte {
	total := len(e.bits)
	tail := 0
	if total > 32 {
		tail = (total - 32 + 7) / 8
	}
	buf := make([]byte, 4+tail)

	var primer uint32
	for i := 0; i < total && i < 32; i++ {
		primer |= uint32(e.bits[i]) << i
	}
	binary.LittleEndian.PutUint32(buf, primer)

	for i := 32; i < total; i++ {
		buf[4+(i-32)/8] |= byte(e.bits[i]) << ((i - 32) % 8)
	}
	return buf
}

// huffEncode compresses data with the adaptive coder mirrored against
// decompressHuffman.
func huffEncode(cmpType byte, data []byte) []byte {
	tree := newHuffTree(int(cmpType))
	enc := &huffEncoder{tree: tree}
	enc.emitRaw8(cmpType)

	for _, b := range data {
		sym := int(b)
		if tree.leafOf[sym] < 0 {
			enc.emitSymbol(huffEscape)
			enc.emitRaw8(b)
			tree.insert(sym)
		} else {
			enc.emitSymbol(sym)
		}
		tree.increment(tree.leafOf[sym])
	}
	enc.emitSymbol(huffEOS)
	return enc.pack()
}

func TestHuffmanRoundTripAdaptive(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog; the dog minds the fox")
	in := huffEncode(0, data)

	out := make([]byte, len(data))
	n, err := decompressHuffman(out, in)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, out)
}

func TestHuffmanRoundTripSeeded(t *testing.T) {
	data := []byte{0, 0, 1, 2, 3, 250, 251, 252, 0, 1, 0, 255, 128, 64, 0, 0, 0, 7}
	in := huffEncode(1, data)

	out := make([]byte, len(data))
	n, err := decompressHuffman(out, in)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, out)
}

func TestHuffmanRoundTripAllByteValues(t *testing.T) {
	data := make([]byte, 600)
	for i := range data {
		data[i] = byte((i * 7) % 256)
	}
	in := huffEncode(0, data)

	out := make([]byte, len(data))
	n, err := decompressHuffman(out, in)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, out)
}

func TestHuffmanEmptyStream(t *testing.T) {
	in := huffEncode(0, nil)

	out := make([]byte, 8)
	n, err := decompressHuffman(out, in)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestHuffmanShortInput(t *testing.T) {
	_, err := decompressHuffman(make([]byte, 8), []byte{0x01, 0x02})
	require.ErrorIs(t, err, ErrFileDecompress)
}

func TestHuffmanTruncatedStream(t *testing.T) {
	// A seeded tree with only all-one bits walks heavy literals until
	// the 32 primed bits run dry mid-symbol.
	in := []byte{0xFF, 0xFF, 0xFF, 0xFF}

	_, err := decompressHuffman(make([]byte, 64), in)
	require.ErrorIs(t, err, ErrFileDecompress)
}

func TestHuffmanTreeDeterministic(t *testing.T) {
	a := newHuffTree(1)
	b := newHuffTree(1)
	require.True(t, reflect.DeepEqual(a.nodes, b.nodes))
	require.True(t, reflect.DeepEqual(a.order, b.order))
}
