// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jfeed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/creachadair/jfeed/internal/escape"

	"go4.org/mem"
)

// Token is the type of a lexical token in the JSON grammar.
type Token byte

// Constants defining the valid Token values.
const (
	Invalid Token = iota // invalid token
	LBrace               // left brace "{"
	RBrace               // right brace "}"
	LSquare              // left square bracket "["
	RSquare              // right square bracket "]"
	Comma                // comma ","
	Colon                // colon ":"
	Integer              // number: integer with no fraction or exponent
	Number               // number with fraction and/or exponent
	String               // quoted string
	True                 // constant: true
	False                // constant: false
	Null                 // constant: null

	BlockComment // comment: /* ... */
	LineComment  // comment: // ... <LF>
)

var tokenStr = [...]string{
	Invalid: "invalid token",
	LBrace:  `"{"`,
	RBrace:  `"}"`,
	LSquare: `"["`,
	RSquare: `"]"`,
	Comma:   `","`,
	Colon:   `":"`,
	Integer: "integer",
	Number:  "number",
	String:  "string",
	True:    "true",
	False:   "false",
	Null:    "null",

	BlockComment: "block comment",
	LineComment:  "line comment",
}

func (t Token) String() string {
	v := int(t)
	if v >= len(tokenStr) {
		return tokenStr[Invalid]
	}
	return tokenStr[v]
}

// ErrNeedInput is reported by Next when the input fed so far ends before the
// next token is complete. It is not a failure: feed more input and call Next
// again.
var ErrNeedInput = errors.New("need more input")

// errPartial marks a token cut off by the end of the buffered input.
var errPartial = errors.New("partial token")

// A Scanner reads lexical tokens from input pushed to it by the caller.  Each
// call to Next advances the scanner to the next token, reports that more input
// is needed, or reports an error.
//
// A Scanner never blocks: input is supplied with Feed in chunks of any size,
// without regard to token boundaries, and Close marks the end of the input.
type Scanner struct {
	buf      []byte // buffered input; buf[:next] has been consumed
	next     int
	base     int  // stream offset of buf[0]
	closed   bool // no more input will be fed
	comments bool // allow comments
	part     int  // offset already checked in a partial string or comment
	tok      Token
	text     []byte // text of the current token, aliasing buf
	err      error

	pos, end int // start and end offsets of current token

	// Apparent line and column offsets (0-based)
	pline, pcol int
	eline, ecol int
}

// NewScanner constructs a new lexical scanner with no buffered input.
func NewScanner() *Scanner { return new(Scanner) }

// AllowComments configures the scanner to report (true) or reject (false)
// comment tokens. Comments are a non-standard extension of JSON.  If
// enabled, C++ style block comments (/* ... */) and line comments (// ...)
// are recognized and emitted as tokens.
func (s *Scanner) AllowComments(ok bool) { s.comments = ok }

// Feed adds a copy of data to the end of the input buffered by s.  Feed
// invalidates any slice previously returned by Text.  It panics if s has been
// closed.
func (s *Scanner) Feed(data []byte) {
	if s.closed {
		panic("jfeed: feed after close")
	}
	if s.next > 0 {
		n := copy(s.buf, s.buf[s.next:])
		s.buf = s.buf[:n]
		s.base += s.next
		s.next = 0
		s.text = nil
	}
	s.buf = append(s.buf, data...)
}

// Close marks the end of the input. After Close, a token cut off by the end
// of the input is an error rather than a request for more input, and Next
// reports io.EOF once all the buffered input has been consumed.
func (s *Scanner) Close() { s.closed = true }

// Next advances s to the next token of the input, or reports an error.  If
// the buffered input ends before the next token is complete, Next returns
// ErrNeedInput and leaves the partial token buffered. After Close, Next
// returns io.EOF at the end of the input.
func (s *Scanner) Next() error {
	if s.err != nil && s.err != ErrNeedInput && s.err != io.EOF {
		return s.err // lexical errors are permanent
	}
	s.err = nil
	s.tok = Invalid
	s.text = nil

	// Discard whitespace.
	for s.next < len(s.buf) && isSpace(s.buf[s.next]) {
		s.advance(1)
	}
	s.pos, s.end = s.base+s.next, s.base+s.next
	s.pline, s.pcol = s.eline, s.ecol
	if s.next == len(s.buf) {
		if s.closed {
			return s.setErr(io.EOF)
		}
		return s.setErr(ErrNeedInput)
	}

	in := s.buf[s.next:]
	tok, n, err := s.scan(in)
	if err == errPartial {
		return s.setErr(ErrNeedInput)
	}
	s.part = 0
	if err != nil {
		return s.failAt(n, err)
	}
	s.tok = tok
	s.text = in[:n]
	s.advance(n)
	s.end = s.base + s.next
	return nil
}

// Token returns the type of the current token.
func (s *Scanner) Token() Token { return s.tok }

// Err returns the last error reported by Next.
func (s *Scanner) Err() error { return s.err }

// Text returns the undecoded text of the current token.  The return value is
// only valid until the next call of Next or Feed. The caller must copy the
// contents of the returned slice if it is needed beyond that.
func (s *Scanner) Text() []byte { return s.text }

// Copy returns a copy of the undecoded text of the current token.
func (s *Scanner) Copy() []byte { return append([]byte(nil), s.text...) }

// Span returns the location span of the current token.
func (s *Scanner) Span() Span { return Span{Pos: s.pos, End: s.end} }

// Location returns the complete location of the current token.
func (s *Scanner) Location() Location {
	return Location{
		Span:  s.Span(),
		First: LineCol{Line: s.pline + 1, Column: s.pcol},
		Last:  LineCol{Line: s.eline + 1, Column: s.ecol},
	}
}

// Remainder returns a copy of the buffered input not yet consumed by Next.
func (s *Scanner) Remainder() []byte {
	return append([]byte(nil), s.buf[s.next:]...)
}

// Restart resets the location of s so that the next token begins at offset 0
// of line 1, discarding any whitespace buffered ahead of it. The buffered
// input and the comment setting are kept. Restart does not skip the input
// that caused an earlier error.
func (s *Scanner) Restart() {
	for s.next < len(s.buf) && isSpace(s.buf[s.next]) {
		s.next++
	}
	s.base = -s.next
	s.pos, s.end = 0, 0
	s.pline, s.pcol = 0, 0
	s.eline, s.ecol = 0, 0
	s.tok, s.text, s.err, s.part = Invalid, nil, nil, 0
}

// Int64 returns the value of the current Integer token as an int64.  It
// reports an error if the token is not an Integer or its value is out of
// range for int64.
func (s *Scanner) Int64() (int64, error) {
	if s.tok != Integer {
		return 0, fmt.Errorf("token is %v, not integer", s.tok)
	}
	v, err := strconv.ParseInt(string(s.text), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("integer %s out of range", s.text)
	}
	return v, nil
}

// Float64 returns the value of the current Integer or Number token as a
// float64.  It reports an error if the token is not numeric or its magnitude
// is too large to represent.
func (s *Scanner) Float64() (float64, error) {
	if s.tok != Number && s.tok != Integer {
		return 0, fmt.Errorf("token is %v, not number", s.tok)
	}
	v, err := strconv.ParseFloat(string(s.text), 64)
	if err != nil {
		return 0, fmt.Errorf("number %s out of range", s.text)
	}
	return v, nil
}

// Unescape returns the decoded contents of the current String token, with
// the quotation marks removed and escape sequences replaced.
func (s *Scanner) Unescape() ([]byte, error) {
	if s.tok != String {
		return nil, fmt.Errorf("token is %v, not string", s.tok)
	}
	return escape.Unquote(mem.B(s.text[1 : len(s.text)-1]))
}

// scan recognizes a single token at the front of in, which is not empty and
// does not begin with whitespace. It returns the token and its length. If the
// token is incomplete it returns errPartial, unless s is closed. Otherwise on
// error the int is the offset in in where the problem was found.
func (s *Scanner) scan(in []byte) (Token, int, error) {
	ch := in[0]

	// Handle punctuation.
	if t, ok := selfDelim(ch); ok {
		return t, 1, nil
	}

	switch {
	case isNumStart(ch):
		return s.scanNumber(in)
	case ch == '"':
		return s.scanString(in)
	case ch == '/' && s.comments:
		return s.scanComment(in)
	}

	// Handle constants: true, false, null
	switch ch {
	case 't':
		return s.scanConst(in, True, "true")
	case 'f':
		return s.scanConst(in, False, "false")
	case 'n':
		return s.scanConst(in, Null, "null")
	}
	r, _ := utf8.DecodeRune(in)
	return Invalid, 0, fmt.Errorf("unexpected %q", r)
}

func (s *Scanner) scanConst(in []byte, tok Token, name string) (Token, int, error) {
	n := min(len(in), len(name))
	if !mem.B(in[:n]).Equal(mem.S(name[:n])) {
		i := 0
		for i < len(in) && isNameByte(in[i]) {
			i++
		}
		if i == len(in) && !s.closed {
			return Invalid, i, errPartial // report the whole word
		}
		return Invalid, 0, fmt.Errorf("unknown constant %q", in[:max(i, 1)])
	} else if n < len(name) {
		return s.short(n, "incomplete constant %q", in[:n])
	}
	return tok, n, nil
}

// scanString resumes at the offset recorded for a partial string, so a long
// string fed in small pieces is scanned only once.
func (s *Scanner) scanString(in []byte) (Token, int, error) {
	i := max(s.part, 1)
	for {
		if i == len(in) {
			s.part = i
			return s.short(i, "unterminated string")
		}
		ch := in[i]
		switch {
		case ch == '"':
			return String, i + 1, nil

		case ch == '\\':
			if i+1 == len(in) {
				s.part = i
				return s.short(i+1, "incomplete escape")
			}
			switch esc := in[i+1]; esc {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				i += 2
			case 'u':
				// Check the digits we have, even if the escape is incomplete.
				hex := in[i+2 : min(i+6, len(in))]
				for j, b := range hex {
					if !isHexDigit(b) {
						return Invalid, i + 2 + j, fmt.Errorf("invalid Unicode escape: not a hex digit: %q", b)
					}
				}
				if len(hex) < 4 {
					s.part = i
					return s.short(len(in), "incomplete Unicode escape")
				}
				i += 6
			default:
				r, _ := utf8.DecodeRune(in[i+1:])
				return Invalid, i + 1, fmt.Errorf("invalid %q after escape", r)
			}

		case ch < ' ':
			return Invalid, i, fmt.Errorf("unescaped control %q", ch)

		case ch < utf8.RuneSelf:
			i++

		default:
			if !utf8.FullRune(in[i:]) {
				s.part = i
				return s.short(len(in), "invalid UTF-8 at end of input")
			}
			r, n := utf8.DecodeRune(in[i:])
			if r == utf8.RuneError && n == 1 {
				return Invalid, i, fmt.Errorf("invalid UTF-8 byte %#x", ch)
			}
			i += n
		}
	}
}

func (s *Scanner) scanNumber(in []byte) (Token, int, error) {
	i := 0
	if in[0] == '-' {
		// If there is a leading sign, we need at least one digit.
		i++
		if i == len(in) {
			return s.short(i, "want digit, got end of input")
		} else if !isDigit(in[i]) {
			return Invalid, i, fmt.Errorf("got %q, want digit", in[i])
		}
	}

	// Consume the integer part, and check for extra leading zeroes, which are
	// disallowed by the JSON grammar.  That is: 0.12 is OK, 01.2 is not.
	i, nd := readDigits(in, i)
	if hasExtraLeadingZeroes(in[i-nd : i]) {
		return Invalid, i, errors.New("extra leading zeroes")
	}
	if i == len(in) {
		return s.numberAt(Integer, i)
	}

	// If a decimal point follows, consume a fractional part.
	tok := Integer
	if in[i] == '.' {
		i, nd = readDigits(in, i+1)
		if nd == 0 {
			if i == len(in) {
				return s.short(i, "no digits after decimal point")
			}
			return Invalid, i, errors.New("no digits after decimal point")
		}
		tok = Number
		if i == len(in) {
			return s.numberAt(tok, i)
		}
	}

	// If an exponent follows, consume it.
	if in[i] != 'e' && in[i] != 'E' {
		return tok, i, nil
	}
	i++
	if i < len(in) && (in[i] == '+' || in[i] == '-') {
		i++
	}
	i, nd = readDigits(in, i)
	if nd == 0 {
		if i == len(in) {
			return s.short(i, "missing exponent digits")
		}
		return Invalid, i, errors.New("missing exponent digits")
	} else if i == len(in) {
		return s.numberAt(Number, i)
	}
	return Number, i, nil
}

// numberAt reports a number token ending at offset n, the end of the buffered
// input. The token is complete only if no more input will arrive.
func (s *Scanner) numberAt(tok Token, n int) (Token, int, error) {
	if s.closed {
		return tok, n, nil
	}
	return Invalid, n, errPartial
}

func (s *Scanner) scanComment(in []byte) (Token, int, error) {
	if len(in) < 2 {
		return s.short(1, "incomplete comment")
	}
	switch in[1] {
	case '/': // line comment to LF
		from := max(s.part, 2)
		if i := bytes.IndexByte(in[from:], '\n'); i >= 0 {
			return LineComment, from + i + 1, nil
		} else if s.closed {
			return LineComment, len(in), nil
		}
		s.part = len(in)
		return Invalid, len(in), errPartial

	case '*': // block comment
		from := max(s.part-1, 2) // the last byte checked may be "*"
		if i := bytes.Index(in[from:], []byte("*/")); i >= 0 {
			return BlockComment, from + i + 2, nil
		}
		s.part = len(in)
		return s.short(len(in), "unterminated block comment")

	default:
		return Invalid, 1, fmt.Errorf("invalid %q in comment", in[1])
	}
}

// short reports a token cut off at offset n by the end of the buffered input.
// If more input may arrive this is errPartial; otherwise it is an error.
func (s *Scanner) short(n int, msg string, args ...any) (Token, int, error) {
	if s.closed {
		return Invalid, n, fmt.Errorf(msg, args...)
	}
	return Invalid, n, errPartial
}

// advance consumes n bytes of buffered input, updating the line and column.
func (s *Scanner) advance(n int) {
	for _, b := range s.buf[s.next : s.next+n] {
		if b == '\n' {
			s.eline++
			s.ecol = 0
		} else {
			s.ecol++
		}
	}
	s.next += n
}

type posError struct {
	pos int
	err error
}

func (p posError) Error() string {
	return fmt.Sprintf("%s (offset %d)", p.err.Error(), p.pos)
}

func (p posError) Unwrap() error { return p.err }

func (s *Scanner) setErr(err error) error {
	s.err = err
	return err
}

// failAt records err at offset n past the start of the current token.
func (s *Scanner) failAt(n int, err error) error {
	return s.setErr(posError{s.pos + n, err})
}

// readDigits consumes decimal digits from in starting at offset i. It returns
// the offset after the last digit and the number of digits read.
func readDigits(in []byte, i int) (int, int) {
	start := i
	for i < len(in) && isDigit(in[i]) {
		i++
	}
	return i, i - start
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\r' || ch == '\n' || ch == '\t'
}

func isNumStart(ch byte) bool { return ch == '-' || isDigit(ch) }
func isDigit(ch byte) bool    { return '0' <= ch && ch <= '9' }
func isNameByte(ch byte) bool { return ch >= 'a' && ch <= 'z' }

func isHexDigit(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// hasExtraLeadingZeroes reports whether the digits of an integer part have
// redundant leading zeroes, which JSON disallows.
//
// OK: 0, 10, 7.
// Bad: 01, 00.
func hasExtraLeadingZeroes(digits []byte) bool {
	return len(digits) > 1 && digits[0] == '0'
}

var self = [...]Token{LBrace, RBrace, LSquare, RSquare, Comma, Colon}

func selfDelim(ch byte) (Token, bool) {
	i := strings.IndexByte("{}[],:", ch)
	if i >= 0 {
		return self[i], true
	}
	return Invalid, false
}
