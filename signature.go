// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// SignatureInfo contains parsed signature data from the "(signature)"
// special file.
type SignatureInfo struct {
	Version   uint32
	Signature []byte
}

// ReadSignature reads and parses the "(signature)" special file.
// Archives without one return nil with no error.
func (a *Archive) ReadSignature() (*SignatureInfo, error) {
	number, err := a.FileIndex("(signature)")
	if err != nil {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := a.ExtractFile(number, &buf); err != nil {
		return nil, fmt.Errorf("extract signature: %w", err)
	}
	data := buf.Bytes()

	if len(data) < 8 {
		return nil, fmt.Errorf("%w: signature file has %d bytes", ErrFileCorrupt, len(data))
	}

	version := binary.LittleEndian.Uint32(data[0:4])
	sigLength := binary.LittleEndian.Uint32(data[4:8])
	if uint32(len(data)-8) < sigLength {
		return nil, fmt.Errorf("%w: signature truncated: expected %d bytes, got %d",
			ErrFileCorrupt, 8+sigLength, len(data))
	}

	signature := make([]byte, sigLength)
	copy(signature, data[8:8+sigLength])

	return &SignatureInfo{
		Version:   version,
		Signature: signature,
	}, nil
}

// Verify performs structural signature validation. Full cryptographic
// verification would need the producer's public keys and is not
// attempted.
func (s *SignatureInfo) Verify() error {
	if s == nil {
		return fmt.Errorf("no signature available")
	}
	if len(s.Signature) == 0 {
		return fmt.Errorf("empty signature")
	}

	switch s.Version {
	case 0: // weak signature
		if len(s.Signature) < 64 {
			return fmt.Errorf("weak signature too short: %d bytes", len(s.Signature))
		}
	case 1: // strong signature
		if len(s.Signature) < 256 {
			return fmt.Errorf("strong signature too short: %d bytes", len(s.Signature))
		}
	default:
		return fmt.Errorf("unknown signature version: %d", s.Version)
	}
	return nil
}
