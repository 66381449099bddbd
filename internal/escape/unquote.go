// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

// Package escape handles unquoting of JSON strings.
package escape

import (
	"errors"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"go4.org/mem"
)

// Unquote decodes a byte slice containing the JSON encoding of a string. The
// input must have the enclosing double quotation marks already removed.
//
// Escape sequences are replaced with their unescaped equivalents. A \u escape
// for a high surrogate followed by a \u escape for a low surrogate is combined
// into a single rune. Invalid escapes and unpaired surrogates are replaced by
// the Unicode replacement rune. Unquote reports an error for an incomplete
// escape sequence.
func Unquote(src mem.RO) ([]byte, error) {
	i := mem.IndexByte(src, '\\')
	if i < 0 {
		return mem.Append(make([]byte, 0, src.Len()), src), nil
	}

	dec := make([]byte, 0, src.Len())
	for {
		dec = mem.Append(dec, src.SliceTo(i))
		src = src.SliceFrom(i + 1)
		if src.Len() == 0 {
			return nil, errors.New("incomplete escape sequence")
		}

		var r rune
		var n int
		switch b := src.At(0); b {
		case '"', '\\', '/':
			r, n = rune(b), 1
		case 'b':
			r, n = '\b', 1
		case 'f':
			r, n = '\f', 1
		case 'n':
			r, n = '\n', 1
		case 'r':
			r, n = '\r', 1
		case 't':
			r, n = '\t', 1
		case 'u':
			var err error
			r, n, err = decodeUnicode(src)
			if err != nil {
				return nil, err
			}
		default:
			// Decode the whole rune after the backslash so that a multibyte
			// sequence is not split.
			_, size := mem.DecodeRune(src)
			r, n = utf8.RuneError, max(size, 1)
		}
		dec = utf8.AppendRune(dec, r)
		src = src.SliceFrom(n)

		i = mem.IndexByte(src, '\\')
		if i < 0 {
			return mem.Append(dec, src), nil
		}
	}
}

// decodeUnicode decodes a "uXXXX" escape at the front of src, combining a
// following "\uXXXX" low surrogate if src begins with a high surrogate.  It
// returns the rune and the number of bytes of src consumed.
func decodeUnicode(src mem.RO) (rune, int, error) {
	if src.Len() < 5 {
		return 0, 0, errors.New("incomplete Unicode escape")
	}
	v, err := parseHex(src.Slice(1, 5))
	if err != nil {
		return utf8.RuneError, 5, nil
	}
	r := rune(v)
	if !utf16.IsSurrogate(r) {
		return r, 5, nil
	}
	if src.Len() >= 11 && src.At(5) == '\\' && src.At(6) == 'u' {
		if lo, err := parseHex(src.Slice(7, 11)); err == nil {
			if c := utf16.DecodeRune(r, rune(lo)); c != utf8.RuneError {
				return c, 11, nil
			}
		}
	}
	return utf8.RuneError, 5, nil
}

func parseHex(data mem.RO) (int64, error) {
	var v int64
	for i := 0; i < data.Len(); i++ {
		b := data.At(i)
		v <<= 4
		switch {
		case '0' <= b && b <= '9':
			v += int64(b - '0')
		case 'a' <= b && b <= 'f':
			v += int64(b - 'a' + 10)
		case 'A' <= b && b <= 'F':
			v += int64(b - 'A' + 10)
		default:
			return 0, fmt.Errorf("invalid hex digit %q", b)
		}
	}
	return v, nil
}
