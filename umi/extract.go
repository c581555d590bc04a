// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package umi

import (
	"bytes"

	"github.com/pkg/errors"
)

// ErrTokenLength indicates that a read name yielded a UMI token whose length
// differs from the expected UMI length.  Callers can recover it with
// errors.Cause.
var ErrTokenLength = errors.New("umi token length mismatch")

// FromName extracts the UMI token from a read name such as
// "READ_12345:ACGTACGTACGT": the text after the last ':' or '_' of the first
// whitespace-delimited field, uppercased.  The returned slice is a copy and
// does not alias name.
//
// A name with no field at all yields (nil, nil), meaning "no UMI found".  A
// token whose length differs from length yields an error wrapping
// ErrTokenLength.
func FromName(name []byte, length int) ([]byte, error) {
	field := bytes.TrimLeft(name, " \t")
	if i := bytes.IndexAny(field, " \t"); i >= 0 {
		field = field[:i]
	}
	if len(field) == 0 {
		return nil, nil
	}
	token := field
	if i := bytes.LastIndexAny(field, ":_"); i >= 0 {
		token = field[i+1:]
	}
	if len(token) != length {
		return nil, errors.Wrapf(ErrTokenLength, "read %q: token has %d bases, want %d", name, len(token), length)
	}
	return bytes.ToUpper(token), nil
}
