// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jfeed

import (
	"errors"
	"strings"

	"github.com/creachadair/jfeed/internal/escape"

	"go4.org/mem"
)

// Unquote decodes a JSON string value.  Double quotation marks are removed,
// and escape sequences are replaced with their unescaped equivalents.
// It is meant for callers that keep the raw text of a String token, as
// reported by Stream.Text or Scanner.Text, and decode it later.
//
// Invalid escapes are replaced by the Unicode replacement rune. Unquote
// reports an error for an incomplete escape sequence.
func Unquote(src string) ([]byte, error) {
	if len(src) < 2 || !strings.HasPrefix(src, `"`) || !strings.HasSuffix(src, `"`) {
		return nil, errors.New("missing quotations")
	}
	return escape.Unquote(mem.S(src[1 : len(src)-1]))
}
