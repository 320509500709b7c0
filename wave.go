// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import "fmt"

// waveStepTable holds the ADPCM quantizer step sizes.
var waveStepTable = [...]int32{
	7, 8, 9, 10, 11, 12, 13, 14, 16, 17, 19, 21, 23, 25, 28, 31,
	34, 37, 41, 45, 50, 55, 60, 66, 73, 80, 88, 97, 107, 118, 130, 143,
	157, 173, 190, 209, 230, 253, 279, 307, 337, 371, 408, 449, 494, 544, 598, 658,
	724, 796, 876, 963, 1060, 1166, 1282, 1411, 1552, 1707, 1878, 2066, 2272, 2499, 2749, 3024,
	3327, 3660, 4026, 4428, 4871, 5358, 5894, 6484, 7132, 7845, 8630, 9493, 10442, 11487, 12635, 13899,
	15289, 16818, 18500, 20350, 22385, 24623, 27086, 29794, 32767,
}

// waveStepAdjust maps the low five bits of a data byte to a step-index
// adjustment.
var waveStepAdjust = [...]int32{
	-1, 0, -1, 4, -1, 2, -1, 6, -1, 1, -1, 5, -1, 3, -1, 7,
	-1, 1, -1, 5, -1, 3, -1, 7, -1, 2, -1, 4, -1, 6, -1, 8,
}

const (
	waveInitialStepIndex = 0x2C
	waveMaxStepIndex     = 0x58
)

// decompressWaveMono decodes a one-channel ADPCM stream.
func decompressWaveMono(out, in []byte) (int, error) {
	return decompressWave(out, in, 1)
}

// decompressWaveStereo decodes a two-channel ADPCM stream.
func decompressWaveStereo(out, in []byte) (int, error) {
	return decompressWave(out, in, 2)
}

// decompressWave decodes the ADPCM wave stream in, writing 16-bit
// little-endian samples to out. The header carries a delta bit shift
// and one initial predictor per channel; each following byte either
// adjusts a channel's step index (high bit set) or contributes one
// sample. Channels are interleaved byte by byte.
func decompressWave(out, in []byte, channels int) (int, error) {
	if len(in) < 2+2*channels {
		return 0, fmt.Errorf("%w: wave: short header", ErrFileDecompress)
	}

	stepIndex := [2]int32{waveInitialStepIndex, waveInitialStepIndex}
	var predict [2]int32

	shift := uint(in[1])
	pos := 2
	n := 0

	putSample := func(v int32) bool {
		if n+2 > len(out) {
			return false
		}
		out[n] = byte(v)
		out[n+1] = byte(v >> 8)
		n += 2
		return true
	}

	for ch := 0; ch < channels; ch++ {
		v := int32(int16(uint16(in[pos]) | uint16(in[pos+1])<<8))
		pos += 2
		predict[ch] = v
		if !putSample(v) {
			return n, nil
		}
	}

	channel := channels - 1
	for pos < len(in) {
		value := in[pos]
		pos++
		if channels == 2 {
			channel = 1 - channel
		}

		if value&0x80 != 0 {
			switch value & 0x7F {
			case 0:
				if stepIndex[channel] != 0 {
					stepIndex[channel]--
				}
				if !putSample(predict[channel]) {
					return n, nil
				}
			case 1:
				stepIndex[channel] += 8
				if stepIndex[channel] > waveMaxStepIndex {
					stepIndex[channel] = waveMaxStepIndex
				}
				// the operation consumed this channel's turn
				if channels == 2 {
					channel = 1 - channel
				}
			case 2:
				// reserved, skip
			default:
				stepIndex[channel] -= 8
				if stepIndex[channel] < 0 {
					stepIndex[channel] = 0
				}
				if channels == 2 {
					channel = 1 - channel
				}
			}
			continue
		}

		step := waveStepTable[stepIndex[channel]]
		delta := step >> shift
		for bit := uint(0); bit < 6; bit++ {
			if value&(1<<bit) != 0 {
				delta += step >> bit
			}
		}

		v := predict[channel]
		if value&0x40 != 0 {
			v -= delta
			if v < -32768 {
				v = -32768
			}
		} else {
			v += delta
			if v > 32767 {
				v = 32767
			}
		}
		predict[channel] = v
		if !putSample(v) {
			return n, nil
		}

		stepIndex[channel] += waveStepAdjust[value&0x1F]
		if stepIndex[channel] < 0 {
			stepIndex[channel] = 0
		} else if stepIndex[channel] > waveMaxStepIndex {
			stepIndex[channel] = waveMaxStepIndex
		}
	}
	return n, nil
}
