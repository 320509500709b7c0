// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"bytes"
	"fmt"
	"io"

	"github.com/JoshVarga/blast"
)

// decompressPKWare explodes a block imploded with the PKWARE data
// compression library. Whole-file imploded archives reach this directly
// without a method byte; multi-compressed blocks reach it through the
// method table.
func decompressPKWare(out, in []byte) (int, error) {
	r, err := blast.NewReader(bytes.NewReader(in))
	if err != nil {
		return 0, fmt.Errorf("%w: pkware: %v", ErrFileDecompress, err)
	}
	defer r.Close()

	n, err := io.ReadFull(r, out)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("%w: pkware: %v", ErrFileDecompress, err)
	}
	return n, nil
}
