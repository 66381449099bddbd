// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jfeed_test

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/creachadair/jfeed"
	"github.com/creachadair/jfeed/internal/testutil"
	"github.com/creachadair/mds/mtest"
	"github.com/google/go-cmp/cmp"
)

// chunkSizes are the sizes in which test inputs are delivered; 0 means the
// whole input at once.
var chunkSizes = []int{0, 1, 2, 3, 7}

type scanResult struct {
	toks  []jfeed.Token
	texts []string
	locs  []string
}

// scanAll feeds input to a new scanner in chunks of n bytes, closing the
// scanner when the input is exhausted, and reports the tokens it produces.
func scanAll(input string, n int, comments bool) (scanResult, error) {
	s := jfeed.NewScanner()
	s.AllowComments(comments)
	if n == 0 {
		n = max(len(input), 1)
	}
	chunks := testutil.Chunks([]byte(input), n)

	var res scanResult
	for {
		err := s.Next()
		if err == jfeed.ErrNeedInput {
			if len(chunks) == 0 {
				s.Close()
			} else {
				s.Feed(chunks[0])
				chunks = chunks[1:]
			}
			continue
		} else if err == io.EOF {
			return res, nil
		} else if err != nil {
			return res, err
		}
		res.toks = append(res.toks, s.Token())
		res.texts = append(res.texts, string(s.Text()))
		res.locs = append(res.locs, s.Location().String())
	}
}

func TestScanner(t *testing.T) {
	tests := []struct {
		input string
		want  []jfeed.Token
	}{
		// Empty inputs
		{"", nil},
		{"  ", nil},
		{"\n\n  \n", nil},
		{"\t  \r\n \t  \r\n", nil},

		// Constants
		{"true false null", []jfeed.Token{jfeed.True, jfeed.False, jfeed.Null}},
		{"truefalse", []jfeed.Token{jfeed.True, jfeed.False}},

		// Punctuation
		{"{ [ ] } , :", []jfeed.Token{
			jfeed.LBrace, jfeed.LSquare, jfeed.RSquare, jfeed.RBrace, jfeed.Comma, jfeed.Colon,
		}},

		// Strings
		{`"" "a b c" "a\nb\tc"`, []jfeed.Token{jfeed.String, jfeed.String, jfeed.String}},
		{`"\"\\\/\b\f\n\r\t"`, []jfeed.Token{jfeed.String}},
		{`"\u0000Ǽꪜ"`, []jfeed.Token{jfeed.String}},
		{`"héllo wörld ☃"`, []jfeed.Token{jfeed.String}},

		// Numbers
		{`0 -1 5139 2.3 5e+9 3.6E+4 -0.001E-100 7e3`, []jfeed.Token{
			jfeed.Integer, jfeed.Integer, jfeed.Integer,
			jfeed.Number, jfeed.Number, jfeed.Number, jfeed.Number, jfeed.Number,
		}},
		{`1,2]`, []jfeed.Token{jfeed.Integer, jfeed.Comma, jfeed.Integer, jfeed.RSquare}},

		// Mixed types
		{`{true,"false":-15 null[]}`, []jfeed.Token{
			jfeed.LBrace, jfeed.True, jfeed.Comma, jfeed.String, jfeed.Colon,
			jfeed.Integer, jfeed.Null, jfeed.LSquare, jfeed.RSquare, jfeed.RBrace,
		}},
		{`{"a": true, "b":[null, 1, 0.5]}`, []jfeed.Token{
			jfeed.LBrace,
			jfeed.String, jfeed.Colon, jfeed.True, jfeed.Comma,
			jfeed.String, jfeed.Colon,
			jfeed.LSquare,
			jfeed.Null, jfeed.Comma, jfeed.Integer, jfeed.Comma, jfeed.Number,
			jfeed.RSquare,
			jfeed.RBrace,
		}},
		{`"a",1,true
       false["b"]
       `, []jfeed.Token{
			jfeed.String, jfeed.Comma, jfeed.Integer, jfeed.Comma, jfeed.True,
			jfeed.False, jfeed.LSquare, jfeed.String, jfeed.RSquare,
		}},
	}

	for _, test := range tests {
		for _, n := range chunkSizes {
			res, err := scanAll(test.input, n, false)
			if err != nil {
				t.Errorf("Input %#q [chunk %d]: Next failed: %v", test.input, n, err)
			}
			if diff := cmp.Diff(test.want, res.toks); diff != "" {
				t.Errorf("Input: %#q [chunk %d]\nTokens: (-want, +got)\n%s", test.input, n, diff)
			}
		}
	}
}

func TestScanner_withComments(t *testing.T) {
	tests := []struct {
		input string
		want  []jfeed.Token
		coms  []string
	}{
		{"/* block comment */\n\n\n", []jfeed.Token{jfeed.BlockComment},
			[]string{"/* block comment */"}},
		{"// line 1\n\n// line 2\n", []jfeed.Token{jfeed.LineComment, jfeed.LineComment},
			[]string{"// line 1\n", "// line 2\n"}}, // N.B. includes terminating newline, if present
		{"// line at EOF", []jfeed.Token{jfeed.LineComment},
			[]string{"// line at EOF"}},
		{`{
 "x": 1, // howdy do
 "y" /* hide me */ : 2.0 }`, []jfeed.Token{
			jfeed.LBrace, jfeed.String, jfeed.Colon, jfeed.Integer, jfeed.Comma, jfeed.LineComment,
			jfeed.String, jfeed.BlockComment, jfeed.Colon, jfeed.Number, jfeed.RBrace,
		}, []string{
			"// howdy do\n", "/* hide me */",
		}},

		{`"a" // line
false /*
  this is a comment
*/ 1 null [ {} ]`, []jfeed.Token{
			jfeed.String, jfeed.LineComment, jfeed.False, jfeed.BlockComment,
			jfeed.Integer, jfeed.Null, jfeed.LSquare, jfeed.LBrace, jfeed.RBrace, jfeed.RSquare,
		}, []string{
			"// line\n", "/*\n  this is a comment\n*/",
		}},

		{"/**\n*/", []jfeed.Token{jfeed.BlockComment}, []string{"/**\n*/"}},

		{`/**/"foo"/***/"bar"/****/false/*x*/null`, []jfeed.Token{
			jfeed.BlockComment, jfeed.String,
			jfeed.BlockComment, jfeed.String,
			jfeed.BlockComment, jfeed.False,
			jfeed.BlockComment, jfeed.Null,
		}, []string{
			"/**/", "/***/", "/****/", "/*x*/",
		}},
	}

	for _, test := range tests {
		for _, n := range chunkSizes {
			res, err := scanAll(test.input, n, true)
			if err != nil {
				t.Errorf("Input %#q [chunk %d]: Next failed: %v", test.input, n, err)
			}
			var coms []string
			for i, tok := range res.toks {
				if tok == jfeed.LineComment || tok == jfeed.BlockComment {
					coms = append(coms, res.texts[i])
				}
			}
			if diff := cmp.Diff(test.want, res.toks); diff != "" {
				t.Errorf("Input: %#q [chunk %d]\nTokens: (-want, +got)\n%s", test.input, n, diff)
			}
			if diff := cmp.Diff(test.coms, coms); diff != "" {
				t.Errorf("Input: %#q [chunk %d]\nComments: (-want, +got)\n%s", test.input, n, diff)
			}
		}
	}
}

func TestScannerLoc(t *testing.T) {
	type tokPos struct {
		Tok jfeed.Token
		Pos string
	}
	tests := []struct {
		input string
		want  []tokPos
	}{
		{"", nil},
		{"{ }", []tokPos{{jfeed.LBrace, "1:0-1"}, {jfeed.RBrace, "1:2-3"}}},
		{`"foo" // bar`, []tokPos{{jfeed.String, "1:0-5"}, {jfeed.LineComment, "1:6-12"}}},
		{"/* ok */\ntrue\n false\n", []tokPos{{jfeed.BlockComment, "1:0-8"}, {jfeed.True, "2:0-4"}, {jfeed.False, "3:1-6"}}},
		{"/* ok\n*/\n null", []tokPos{{jfeed.BlockComment, "1:0-2:2"}, {jfeed.Null, "3:1-5"}}},
		{"// first\n[1, /*x*/, 2\n]", []tokPos{
			{jfeed.LineComment, "1:0-2:0"}, {jfeed.LSquare, "2:0-1"}, {jfeed.Integer, "2:1-2"},
			{jfeed.Comma, "2:2-3"}, {jfeed.BlockComment, "2:4-9"}, {jfeed.Comma, "2:9-10"},
			{jfeed.Integer, "2:11-12"}, {jfeed.RSquare, "3:0-1"},
		}},
	}
	for _, tc := range tests {
		for _, n := range chunkSizes {
			res, err := scanAll(tc.input, n, true)
			if err != nil {
				t.Errorf("Input %#q [chunk %d]: Next failed: %v", tc.input, n, err)
			}
			var got []tokPos
			for i, tok := range res.toks {
				got = append(got, tokPos{tok, res.locs[i]})
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Input: %#q [chunk %d]\nTokens: (-want, +got)\n%s", tc.input, n, diff)
			}
		}
	}
}

func TestScannerErrors(t *testing.T) {
	tests := []struct {
		input    string
		comments bool
		want     string
	}{
		{`01`, false, "extra leading zeroes (offset 2)"},
		{`-x`, false, "got 'x', want digit (offset 1)"},
		{`-`, false, "want digit, got end of input (offset 1)"},
		{`1.`, false, "no digits after decimal point (offset 2)"},
		{`1.x`, false, "no digits after decimal point (offset 2)"},
		{`1e`, false, "missing exponent digits (offset 2)"},
		{`1e+]`, false, "missing exponent digits (offset 3)"},
		{`tru`, false, `incomplete constant "tru" (offset 3)`},
		{`trux`, false, `unknown constant "trux" (offset 0)`},
		{`[nil]`, false, `unknown constant "nil" (offset 1)`},
		{`"abc`, false, "unterminated string (offset 4)"},
		{`"a\qb"`, false, "invalid 'q' after escape (offset 3)"},
		{`"a\`, false, "incomplete escape (offset 3)"},
		{"\"a\x01\"", false, `unescaped control '\x01' (offset 2)`},
		{`"\u12x4"`, false, "invalid Unicode escape: not a hex digit: 'x' (offset 5)"},
		{`"\u12`, false, "incomplete Unicode escape (offset 5)"},
		{"\"\xff\"", false, "invalid UTF-8 byte 0xff (offset 1)"},
		{"\"\xe2\x98", false, "invalid UTF-8 at end of input (offset 3)"},
		{`@`, false, "unexpected '@' (offset 0)"},
		{`1 /`, false, "unexpected '/' (offset 2)"},
		{`/x`, true, "invalid 'x' in comment (offset 1)"},
		{`/`, true, "incomplete comment (offset 1)"},
		{`/* abc`, true, "unterminated block comment (offset 6)"},
	}
	for _, tc := range tests {
		for _, n := range chunkSizes {
			_, err := scanAll(tc.input, n, tc.comments)
			if err == nil {
				t.Errorf("Input %#q [chunk %d]: got nil, want error", tc.input, n)
				continue
			}
			if diff := cmp.Diff(tc.want, err.Error()); diff != "" {
				t.Errorf("Input: %#q [chunk %d]\nError: (-want, +got)\n%s", tc.input, n, diff)
			}
		}
	}
}

func TestScanner_needInput(t *testing.T) {
	s := jfeed.NewScanner()
	mustNeed := func(t *testing.T) {
		t.Helper()
		if err := s.Next(); err != jfeed.ErrNeedInput {
			t.Fatalf("Next: got %v, want %v", err, jfeed.ErrNeedInput)
		}
	}
	mustToken := func(t *testing.T, tok jfeed.Token, text string) {
		t.Helper()
		if err := s.Next(); err != nil {
			t.Fatalf("Next: unexpected error: %v", err)
		}
		if s.Token() != tok || string(s.Text()) != text {
			t.Fatalf("Next: got %v %#q, want %v %#q", s.Token(), s.Text(), tok, text)
		}
	}

	mustNeed(t)
	s.Feed([]byte("  tr"))
	mustNeed(t)
	s.Feed([]byte("ue 12"))
	mustToken(t, jfeed.True, "true")
	mustNeed(t) // 12 could be followed by more digits
	s.Feed([]byte("5,\"\xe2"))
	mustToken(t, jfeed.Integer, "125")
	mustToken(t, jfeed.Comma, ",")
	mustNeed(t) // partial rune
	s.Feed([]byte("\x98\x83\" 3"))
	mustToken(t, jfeed.String, "\"☃\"")
	mustNeed(t)
	if got := string(s.Remainder()); got != "3" {
		t.Errorf("Remainder: got %#q, want %#q", got, "3")
	}
	s.Close()
	mustToken(t, jfeed.Integer, "3")
	if err := s.Next(); err != io.EOF {
		t.Errorf("Next: got %v, want EOF", err)
	}
	if err := s.Next(); err != io.EOF {
		t.Errorf("Next again: got %v, want EOF", err)
	}

	mtest.MustPanic(t, func() { s.Feed([]byte("4")) })
}

func TestScanner_stickyError(t *testing.T) {
	s := jfeed.NewScanner()
	s.Feed([]byte("@ 1"))
	err := s.Next()
	if err == nil {
		t.Fatal("Next: got nil, want error")
	}
	if again := s.Next(); again != err {
		t.Errorf("Next again: got %v, want %v", again, err)
	}
	if s.Err() != err {
		t.Errorf("Err: got %v, want %v", s.Err(), err)
	}
}

func TestScanner_longTokens(t *testing.T) {
	// Each of these is fed one byte at a time.
	const size = 1 << 18
	tests := []struct {
		name string
		text string
		want jfeed.Token
	}{
		{"String", `"` + strings.Repeat(`ab\"\u00e9☃ `, size/14) + `"`, jfeed.String},
		{"BlockComment", "/*" + strings.Repeat("* / \n", size/5) + "*/", jfeed.BlockComment},
		{"LineComment", "//" + strings.Repeat("/* x ", size/5) + "\n", jfeed.LineComment},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := scanAll(tc.text+" true", 1, true)
			if err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			if diff := cmp.Diff([]jfeed.Token{tc.want, jfeed.True}, res.toks); diff != "" {
				t.Fatalf("Tokens: (-want, +got)\n%s", diff)
			}
			if res.texts[0] != tc.text {
				t.Errorf("Text: got %d bytes, want %d", len(res.texts[0]), len(tc.text))
			}
		})
	}
}

func TestScanner_restart(t *testing.T) {
	s := jfeed.NewScanner()
	s.Feed([]byte("[1]\n\n  {}"))
	for range 3 {
		if err := s.Next(); err != nil {
			t.Fatalf("Next: unexpected error: %v", err)
		}
	}
	if got := s.Location().String(); got != "1:2-3" {
		t.Errorf("Location before restart: got %q, want %q", got, "1:2-3")
	}

	s.Restart()
	if err := s.Next(); err != nil {
		t.Fatalf("Next: unexpected error: %v", err)
	}
	if s.Token() != jfeed.LBrace {
		t.Errorf("Token: got %v, want %v", s.Token(), jfeed.LBrace)
	}
	if got := s.Location().String(); got != "1:0-1" {
		t.Errorf("Location after restart: got %q, want %q", got, "1:0-1")
	}
	if sp := s.Span(); sp.Pos != 0 || sp.End != 1 {
		t.Errorf("Span after restart: got %+v, want 0-1", sp)
	}
	if got := string(s.Remainder()); got != "}" {
		t.Errorf("Remainder: got %#q, want %#q", got, "}")
	}
}

func TestScanner_decodeAs(t *testing.T) {
	mustScan := func(t *testing.T, input string, want jfeed.Token) *jfeed.Scanner {
		t.Helper()
		s := jfeed.NewScanner()
		s.Feed([]byte(input))
		s.Close()
		if err := s.Next(); err != nil {
			t.Fatalf("Next failed: %v", err)
		} else if s.Token() != want {
			t.Fatalf("Next token: got %v, want %v", s.Token(), want)
		}
		return s
	}

	t.Run("Integer", func(t *testing.T) {
		tests := []struct {
			input string
			want  int64
			fail  bool
		}{
			{"-15", -15, false},
			{"0", 0, false},
			{"9223372036854775807", 9223372036854775807, false},
			{"-9223372036854775808", -9223372036854775808, false},
			{"9223372036854775808", 0, true},
		}
		for _, tc := range tests {
			s := mustScan(t, tc.input, jfeed.Integer)
			got, err := s.Int64()
			if tc.fail {
				if err == nil {
					t.Errorf("Int64 %q: got %d, want error", tc.input, got)
				}
				continue
			} else if err != nil {
				t.Errorf("Int64 %q: unexpected error: %v", tc.input, err)
			}
			if got != tc.want {
				t.Errorf("Int64 %q: got %d, want %d", tc.input, got, tc.want)
			}
		}
		s := mustScan(t, "true", jfeed.True)
		if _, err := s.Int64(); err == nil {
			t.Error("Int64 of true: got nil, want error")
		}
	})
	t.Run("Number", func(t *testing.T) {
		s := mustScan(t, `3.25e-5`, jfeed.Number)
		if got, err := s.Float64(); err != nil || got != 3.25e-5 {
			t.Errorf("Float64: got %v, %v; want %v", got, err, 3.25e-5)
		}
		s = mustScan(t, `1e400`, jfeed.Number)
		if got, err := s.Float64(); err == nil {
			t.Errorf("Float64: got %v, want error", got)
		}
	})
	t.Run("Constants", func(t *testing.T) {
		mustScan(t, `true`, jfeed.True)
		mustScan(t, `false`, jfeed.False)
		mustScan(t, `null`, jfeed.Null)
	})
	t.Run("String", func(t *testing.T) {
		const wantText = `"a\tb c\n"` // as written, with quotes
		const wantDec = "a\tb c\n"         // with escapes undone
		s := mustScan(t, `"a\tb c\n"`, jfeed.String)
		if got := string(s.Text()); got != wantText {
			t.Errorf("Text: got %#q, want %#q", got, wantText)
		}
		if got := string(s.Copy()); got != wantText {
			t.Errorf("Copy: got %#q, want %#q", got, wantText)
		}
		if u, err := s.Unescape(); err != nil {
			t.Errorf("Unescape failed: %v", err)
		} else if got := string(u); got != wantDec {
			t.Errorf("Unescape: got %#q, want %#q", got, wantDec)
		}
		if u, err := jfeed.Unquote(wantText); err != nil {
			t.Errorf("Unquote failed: %v", err)
		} else if got := string(u); got != wantDec {
			t.Errorf("Unquote: got %#q, want %#q", got, wantDec)
		}
	})
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		input string
		want  string
		fail  bool
	}{
		{``, ``, true},                              // missing quotes
		{`"missing quote`, ``, true},                // missing quotes
		{`missing quote"`, ``, true},                // missing quotes
		{`""`, ``, false},                           // ok
		{`"ok go"`, "ok go", false},                 // ok
		{`"abc\ndef"`, "abc\ndef", false},           // C escapes
		{`"\tabc\n"`, "\tabc\n", false},             // C escapes
		{`"\b\f\n\r\t"`, "\b\f\n\r\t", false},       // C escapes
		{`"a \u0026 b"`, "a & b", false},            // short Unicode escape
		{`"\u"`, ``, true},                          // incomplete Unicode escape
		{`"\u00"`, ``, true},                        // incomplete Unicode escape
		{`"\u00x9"`, "\ufffd", false},               // invalid Unicode escape
		{`"\u019 "`, "\ufffd", false},               // invalid Unicode escape
		{`"\ud83d\ude00!"`, "\U0001F600!", false},   // surrogate pair
		{`"\ud83d!"`, "\ufffd!", false},             // unpaired high surrogate
		{`"\ude00\ud83d"`, "\ufffd\ufffd", false},   // reversed pair
		{`"\ud83dA"`, "\ufffdA", false},        // high surrogate, non-surrogate
		{`"a\"b"`, `a"b`, false},                    // ok
		{`"a\\b\\cd"`, `a\b\cd`, false},             // ok
		{`"\x"`, "\ufffd", false},                   // invalid escape
	}

	for _, test := range tests {
		got, err := jfeed.Unquote(test.input)
		if err != nil {
			if !test.fail {
				t.Errorf("Unquote(%#q): got %v, want no error", test.input, err)
			} else {
				t.Logf("Unquote(%#q): got expected error: %v", test.input, err)
			}
		} else if test.fail {
			t.Errorf("Unquote(%#q): got nil, want error", test.input)
		}
		if cmp := string(got); cmp != test.want {
			t.Errorf("Unquote(%#q): got %#q, want %#q", test.input, cmp, test.want)
		}
	}
}

func TestTokenString(t *testing.T) {
	for tok, want := range map[jfeed.Token]string{
		jfeed.LBrace:       `"{"`,
		jfeed.Integer:      "integer",
		jfeed.BlockComment: "block comment",
		jfeed.Token(200):   "invalid token",
	} {
		if got := tok.String(); got != want {
			t.Errorf("Token(%d).String(): got %q, want %q", tok, got, want)
		}
	}
}

func ExampleScanner() {
	s := jfeed.NewScanner()
	for _, chunk := range []string{`{"ke`, `y": [1`, `0, tr`, `ue]}`} {
		s.Feed([]byte(chunk))
		for {
			err := s.Next()
			if errors.Is(err, jfeed.ErrNeedInput) {
				break
			} else if err != nil {
				panic(err)
			}
			fmt.Println(s.Token(), string(s.Text()))
		}
	}
	// Output:
	// "{" {
	// string "key"
	// ":" :
	// "[" [
	// integer 10
	// "," ,
	// true true
	// "]" ]
	// "}" }
}
