// Package testutil defines support code for unit tests.
package testutil

import (
	"strconv"
	"strings"
	"testing"

	"github.com/creachadair/jfeed/ast"
	"github.com/valyala/fastjson"
)

// Chunks splits data into consecutive chunks of at most n bytes each.
// The chunks alias data.
func Chunks(data []byte, n int) [][]byte {
	if n <= 0 {
		panic("testutil: chunk size must be positive")
	}
	var out [][]byte
	for len(data) > n {
		out = append(out, data[:n:n])
		data = data[n:]
	}
	if len(data) != 0 {
		out = append(out, data)
	}
	return out
}

// Feed delivers data to b in chunks of at most n bytes, then closes b.  It
// fails t if b reports an error, and returns the values b completed.
func Feed(t testing.TB, data []byte, n int, setup func(*ast.Builder)) []ast.Value {
	t.Helper()
	var got []ast.Value
	b := ast.NewBuilder(func(v ast.Value) { got = append(got, v) })
	if setup != nil {
		setup(b)
	}
	for _, chunk := range Chunks(data, n) {
		if err := b.Consume(chunk); err != nil {
			t.Fatalf("Consume %q: unexpected error: %v", chunk, err)
		}
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: unexpected error: %v", err)
	}
	return got
}

// Reference parses the whitespace-separated JSON values in text with an
// independent parser, and returns their syntax trees. It fails t if text is
// not valid.
func Reference(t testing.TB, text string) []ast.Value {
	t.Helper()
	var sc fastjson.Scanner
	sc.Init(text)

	var vs []ast.Value
	for sc.Next() {
		vs = append(vs, fromFastJSON(t, sc.Value()))
	}
	if err := sc.Error(); err != nil {
		t.Fatalf("Reference parse of %q: %v", text, err)
	}
	return vs
}

func fromFastJSON(t testing.TB, v *fastjson.Value) ast.Value {
	switch v.Type() {
	case fastjson.TypeNull:
		return ast.Null
	case fastjson.TypeTrue:
		return ast.Bool(true)
	case fastjson.TypeFalse:
		return ast.Bool(false)
	case fastjson.TypeString:
		return ast.String(v.GetStringBytes())
	case fastjson.TypeNumber:
		raw := string(v.MarshalTo(nil))
		if strings.ContainsAny(raw, ".eE") {
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				t.Fatalf("Reference number %q: %v", raw, err)
			}
			return ast.Float(f)
		}
		z, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			t.Fatalf("Reference integer %q: %v", raw, err)
		}
		return ast.Int(z)
	case fastjson.TypeArray:
		arr := new(ast.Array)
		for _, elt := range v.GetArray() {
			arr.Append(fromFastJSON(t, elt))
		}
		return arr
	case fastjson.TypeObject:
		obj := new(ast.Object)
		v.GetObject().Visit(func(key []byte, elt *fastjson.Value) {
			obj.Set(string(key), fromFastJSON(t, elt))
		})
		return obj
	}
	t.Fatalf("Reference: unknown value type %v", v.Type())
	return nil
}
