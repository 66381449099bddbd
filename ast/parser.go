// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package ast

import (
	"errors"
	"io"
)

// ErrExtraInput is reported by ParseSingle when the input contains more than
// one value.
var ErrExtraInput = errors.New("extra input after value")

// readBlockSize is the size of the chunks Parse reads from its input.
const readBlockSize = 16384

// Parse parses and returns the JSON values from r. In case of error, any
// complete values already parsed are returned along with the error.
func Parse(r io.Reader) ([]Value, error) {
	var vs []Value
	b := NewBuilder(func(v Value) { vs = append(vs, v) })

	buf := make([]byte, readBlockSize)
	for {
		nr, err := r.Read(buf)
		if nr > 0 {
			if cerr := b.Consume(buf[:nr]); cerr != nil {
				return vs, cerr
			}
		}
		if err == io.EOF {
			break
		} else if err != nil {
			return vs, err
		}
	}
	err := b.Close()
	return vs, err
}

// ParseSingle parses and returns a single JSON value from r. If another value
// follows the first, ParseSingle returns the first value along with
// ErrExtraInput. Any other data after the first value, apart from whitespace,
// is a syntax error, and ParseSingle returns nil with that error.
func ParseSingle(r io.Reader) (Value, error) {
	vs, err := Parse(r)
	if err != nil {
		return nil, err
	} else if len(vs) == 0 {
		return nil, errors.New("no value found")
	} else if len(vs) > 1 {
		return vs[0], ErrExtraInput
	}
	return vs[0], nil
}
