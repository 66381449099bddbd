// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jfeed

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Event is the type of a structural event reported by a Stream.
type Event byte

// Constants defining the valid Event values.
const (
	NoEvent     Event = iota // no event
	BeginObject              // open brace of an object
	EndObject                // close brace of an object
	BeginArray               // open bracket of an array
	EndArray                 // close bracket of an array
	FieldName                // the key of an object member
	Value                    // a scalar value; see Stream.Token for its type
)

var eventStr = [...]string{
	NoEvent:     "no event",
	BeginObject: "BeginObject",
	EndObject:   "EndObject",
	BeginArray:  "BeginArray",
	EndArray:    "EndArray",
	FieldName:   "FieldName",
	Value:       "Value",
}

func (e Event) String() string {
	if int(e) >= len(eventStr) {
		return eventStr[NoEvent]
	}
	return eventStr[e]
}

// DefaultMaxDepth is the default limit on the nesting depth of objects and
// arrays accepted by a Stream.
const DefaultMaxDepth = 1000

// parseState records what the grammar permits at the next token.
type parseState byte

const (
	wantValue     parseState = iota // a value: at top level or after ":"
	wantFirstElem                   // after "[": a value or "]"
	wantElem                        // after "," in an array
	wantFirstKey                    // after "{": a key or "}"
	wantKey                         // after "," in an object
	wantColon                       // after a key
	wantMore                        // after a value in a container: "," or close
)

// Stream is a non-blocking event parser for JSON. Input is pushed to the
// stream with Feed, and each call to Next reports the next structural event:
//
//	JSON type  | Events                    | Description
//	---------- | ------------------------- | ---------------------------------
//	object     | BeginObject, EndObject    | { ... }
//	array      | BeginArray, EndArray      | [ ... ]
//	member     | FieldName                 | "key": (followed by the value)
//	value      | Value                     | true, false, null, number, string
//
// The stream checks the grammar, so the events it reports are always
// balanced, and every FieldName occurs directly inside an object and is
// followed by exactly one value. A stream may contain any number of
// top-level values one after another.
type Stream struct {
	s        *Scanner
	tcomma   bool // allow trailing commas in objects and arrays
	maxDepth int

	stk   []Token // open brackets, LBrace or LSquare
	state parseState
	key   string // decoded text of the most recent field name
	err   error  // sticky syntax error
}

// NewStream constructs a new Stream with no buffered input.
func NewStream() *Stream {
	return &Stream{s: NewScanner(), maxDepth: DefaultMaxDepth}
}

// AllowComments configures the scanner associated with s to accept (true) or
// reject (false) comments. Comments are skipped and do not produce events.
func (s *Stream) AllowComments(ok bool) { s.s.AllowComments(ok) }

// AllowTrailingCommas configures the parser to allow (true) or reject (false)
// trailing commas in objects and arrays.
func (s *Stream) AllowTrailingCommas(ok bool) { s.tcomma = ok }

// SetMaxDepth sets the maximum nesting depth of objects and arrays. Opening a
// container beyond this depth is a syntax error. If n <= 0 the depth is not
// limited.
func (s *Stream) SetMaxDepth(n int) { s.maxDepth = n }

// Feed adds a copy of data to the input buffered by s.
func (s *Stream) Feed(data []byte) { s.s.Feed(data) }

// Close marks the end of the input.
func (s *Stream) Close() { s.s.Close() }

// Next reports the next event from the input.
//
// If the buffered input is exhausted before the next event is complete, Next
// returns ErrNeedInput and retains its state; feed more input and call Next
// again. After Close, Next returns io.EOF when the input ends between
// top-level values. In case of a syntax error, the returned error has type
// [*SyntaxError], and all further calls report the same error.
func (s *Stream) Next() (Event, error) {
	if s.err != nil {
		return NoEvent, s.err
	}
	for {
		err := s.s.Next()
		if err == ErrNeedInput {
			return NoEvent, err
		} else if err == io.EOF {
			if len(s.stk) == 0 && s.state == wantValue {
				return NoEvent, io.EOF
			}
			return NoEvent, s.syntaxError(io.ErrUnexpectedEOF, "unexpected end of input")
		} else if err != nil {
			return NoEvent, s.syntaxError(err, "%v", err)
		}

		tok := s.s.Token()
		if tok == LineComment || tok == BlockComment {
			continue // comments are not reported
		}
		ev, err := s.step(tok)
		if err != nil {
			return NoEvent, err
		} else if ev != NoEvent {
			return ev, nil
		}
		// Punctuation does not produce an event; keep going.
	}
}

// step advances the grammar by one token, returning the resulting event (if
// any).
func (s *Stream) step(tok Token) (Event, error) {
	switch s.state {
	case wantValue:
		return s.value(tok)

	case wantFirstElem:
		if tok == RSquare {
			return s.close(tok)
		}
		return s.value(tok)

	case wantElem:
		if tok == RSquare && s.tcomma {
			return s.close(tok)
		}
		return s.value(tok)

	case wantFirstKey, wantKey:
		if tok == RBrace && (s.state == wantFirstKey || s.tcomma) {
			return s.close(tok)
		} else if tok != String {
			if s.state == wantFirstKey || s.tcomma {
				return NoEvent, s.unexpected(tok, RBrace, String)
			}
			return NoEvent, s.unexpected(tok, String)
		}
		key, err := s.s.Unescape()
		if err != nil {
			return NoEvent, s.syntaxError(err, "invalid key: %v", err)
		}
		s.key = string(key)
		s.state = wantColon
		return FieldName, nil

	case wantColon:
		if tok != Colon {
			return NoEvent, s.unexpected(tok, Colon)
		}
		s.state = wantValue
		return NoEvent, nil

	case wantMore:
		switch tok {
		case Comma:
			if s.top() == LBrace {
				s.state = wantKey
			} else {
				s.state = wantElem
			}
			return NoEvent, nil
		case RBrace, RSquare:
			return s.close(tok)
		}
		if s.top() == LBrace {
			return NoEvent, s.unexpected(tok, RBrace, Comma)
		}
		return NoEvent, s.unexpected(tok, RSquare, Comma)
	}
	panic(fmt.Sprintf("jfeed: invalid parse state %d", s.state))
}

// value handles tok where a value is expected.
func (s *Stream) value(tok Token) (Event, error) {
	switch tok {
	case LBrace, LSquare:
		if s.maxDepth > 0 && len(s.stk) >= s.maxDepth {
			return NoEvent, s.syntaxError(nil, "maximum nesting depth (%d) exceeded", s.maxDepth)
		}
		s.stk = append(s.stk, tok)
		if tok == LBrace {
			s.state = wantFirstKey
			return BeginObject, nil
		}
		s.state = wantFirstElem
		return BeginArray, nil

	case Integer, Number, String, True, False, Null:
		s.endValue()
		return Value, nil
	}
	return NoEvent, s.syntaxError(nil, "unexpected %v", tok)
}

// close handles a closing bracket, which must match the innermost open one.
func (s *Stream) close(tok Token) (Event, error) {
	open, ev := LBrace, EndObject
	if tok == RSquare {
		open, ev = LSquare, EndArray
	}
	if len(s.stk) == 0 || s.top() != open {
		return NoEvent, s.syntaxError(nil, "unexpected %v", tok)
	}
	s.stk = s.stk[:len(s.stk)-1]
	s.endValue()
	return ev, nil
}

// endValue updates the state after a complete value.
func (s *Stream) endValue() {
	if len(s.stk) == 0 {
		s.state = wantValue
	} else {
		s.state = wantMore
	}
}

func (s *Stream) top() Token { return s.stk[len(s.stk)-1] }

// Depth reports the number of objects and arrays currently open.
func (s *Stream) Depth() int { return len(s.stk) }

// Token returns the type of the current token. After a Value event, this
// identifies the type of the value.
func (s *Stream) Token() Token { return s.s.Token() }

// Text returns the undecoded text of the current token. It is only valid
// until the next call of Next or Feed.
func (s *Stream) Text() []byte { return s.s.Text() }

// Location returns the location of the current token.
func (s *Stream) Location() Location { return s.s.Location() }

// FieldName returns the decoded key reported by the most recent FieldName
// event.
func (s *Stream) FieldName() string { return s.key }

// Int64 returns the value of the current Integer token. A value out of range
// for int64 is reported as a [*SyntaxError].
func (s *Stream) Int64() (int64, error) {
	v, err := s.s.Int64()
	if err != nil {
		return 0, s.valueError(err)
	}
	return v, nil
}

// Float64 returns the value of the current Integer or Number token. A value
// out of range for float64 is reported as a [*SyntaxError].
func (s *Stream) Float64() (float64, error) {
	v, err := s.s.Float64()
	if err != nil {
		return 0, s.valueError(err)
	}
	return v, nil
}

// Unescape returns the decoded contents of the current String token.
func (s *Stream) Unescape() ([]byte, error) {
	v, err := s.s.Unescape()
	if err != nil {
		return nil, s.valueError(err)
	}
	return v, nil
}

// Remainder returns a copy of the buffered input not yet consumed.
func (s *Stream) Remainder() []byte { return s.s.Remainder() }

// Restart prepares s to parse a new top-level value from the input it has
// buffered but not yet consumed, without copying that input. It discards the
// grammar state and any syntax error, and resets locations so that the next
// value begins at line 1. The settings of s are kept.
func (s *Stream) Restart() {
	s.stk = s.stk[:0]
	s.state = wantValue
	s.key = ""
	s.err = nil
	s.s.Restart()
}

func (s *Stream) syntaxError(err error, msg string, args ...any) error {
	s.err = &SyntaxError{
		Location: s.s.Location().First,
		Message:  fmt.Sprintf(msg, args...),
		err:      err,
	}
	return s.err
}

func (s *Stream) unexpected(got Token, want ...Token) error {
	return s.syntaxError(nil, "%s", tokLabel(want, got))
}

// valueError reports a failure to decode the current token. It does not
// affect the state of the grammar.
func (s *Stream) valueError(err error) error {
	return &SyntaxError{
		Location: s.s.Location().First,
		Message:  err.Error(),
		err:      err,
	}
}

// tokLabel makes a human-readable summary string for the given token types.
func tokLabel(tokens []Token, got any) string {
	if len(tokens) == 0 {
		return fmt.Sprint(got)
	}
	var exp string
	if len(tokens) == 1 {
		exp = tokens[0].String()
	} else {
		last := len(tokens) - 1
		ss := make([]string, len(tokens)-1)
		for i, tok := range tokens[:last] {
			ss[i] = tok.String()
		}
		exp = strings.Join(ss, ", ") + " or " + tokens[last].String()
	}
	return fmt.Sprintf("expected %s, got %v", exp, got)
}

// SyntaxError is the concrete type of errors reported by the stream parser.
type SyntaxError struct {
	Location LineCol
	Message  string

	err error
}

// Error satisfies the error interface.
func (s *SyntaxError) Error() string {
	return fmt.Sprintf("at %s: %s", s.Location, s.Message)
}

// Unwrap supports error wrapping.
func (s *SyntaxError) Unwrap() error { return s.err }

// IsSyntaxError reports whether err is or wraps a [*SyntaxError].
func IsSyntaxError(err error) bool {
	var serr *SyntaxError
	return errors.As(err, &serr)
}
