// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

// Package jpath implements a minimal JSONPath selector over syntax trees.
//
// A path is either a JSONPath expression beginning with "$", or a dotted
// path of keys and offsets such as a.b.0. The JSONPath grammar supported is:
//
//	 path = "$" steps
//	steps = step [steps]
//	 step = "." name | ".." name | "[" sel "]"
//	 name = WORD | "'" QTEXT "'" | "*"
//	  sel = name | INDEX ["," INDEX ...] | [INDEX] ":" [INDEX]
//
// Within QTEXT, a backslash escapes the following character, so that a name
// may contain "'" or "\".
//
// Filter and script expressions are not supported.
package jpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/creachadair/jfeed/ast"
)

// An Op is a path operator.
type Op byte

const (
	Invalid  Op = iota // invalid operator
	Member             // member lookup by key
	Wildcard           // all members or elements
	Recur              // recursive descent
	Index              // array elements by offset
	Slice              // a range of array elements
)

var opText = [...]string{
	Invalid:  "invalid",
	Member:   "member",
	Wildcard: "wildcard",
	Recur:    "recur",
	Index:    "index",
	Slice:    "slice",
}

func (o Op) String() string {
	if int(o) >= len(opText) {
		return opText[Invalid]
	}
	return opText[o]
}

// A Step is a single step of a path.
type Step struct {
	Op      Op
	Key     string // for Member and Recur; "*" for a Recur wildcard
	Offsets []int  // for Index
	Lo, Hi  *int   // for Slice; nil means unbounded
}

// A Path is a parsed sequence of steps.
type Path []Step

// Parse parses s as a path. An empty string is the empty path, which selects
// its input unchanged.
func Parse(s string) (Path, error) {
	if t, ok := strings.CutPrefix(s, "$"); ok {
		return parseSteps(t)
	}
	if s == "" {
		return nil, nil
	}
	var p Path
	for _, elt := range strings.Split(s, ".") {
		if z, err := strconv.Atoi(elt); err == nil {
			p = append(p, Step{Op: Index, Offsets: []int{z}})
		} else {
			p = append(p, Step{Op: Member, Key: elt})
		}
	}
	return p, nil
}

func parseSteps(s string) (Path, error) {
	var p Path
	for s != "" {
		var step Step
		var err error
		switch {
		case strings.HasPrefix(s, ".."):
			step.Op = Recur
			step.Key, s, err = parseName(s[2:])
		case strings.HasPrefix(s, "."):
			step.Op = Member
			wild := strings.HasPrefix(s, ".*")
			step.Key, s, err = parseName(s[1:])
			if wild {
				step.Op, step.Key = Wildcard, ""
			}
		case strings.HasPrefix(s, "["):
			step, s, err = parseBracket(s[1:])
		default:
			err = fmt.Errorf("invalid path step %q", s)
		}
		if err != nil {
			return nil, err
		}
		p = append(p, step)
	}
	return p, nil
}

// parseName parses a bare word, a quoted name, or "*".
func parseName(s string) (name, rest string, _ error) {
	if t, ok := strings.CutPrefix(s, "*"); ok {
		return "*", t, nil
	}
	if t, ok := strings.CutPrefix(s, "'"); ok {
		var name strings.Builder
		for i := 0; i < len(t); i++ {
			switch t[i] {
			case '\'':
				return name.String(), t[i+1:], nil
			case '\\':
				if i+1 < len(t) {
					i++
				}
			}
			name.WriteByte(t[i])
		}
		return "", s, errors.New("unterminated quoted name")
	}
	i := 0
	for i < len(s) && isWordByte(s[i]) {
		i++
	}
	if i == 0 {
		return "", s, fmt.Errorf("invalid name at %q", s)
	}
	return s[:i], s[i:], nil
}

// parseBracket parses the selector following "[" up to and including the
// matching "]".
func parseBracket(s string) (Step, string, error) {
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return Step{}, s, errors.New("missing close bracket")
	}
	if strings.HasPrefix(s, "'") || strings.HasPrefix(s, "*") {
		name, rest, err := parseName(s)
		if err != nil {
			return Step{}, s, err
		}
		rest, ok := strings.CutPrefix(rest, "]")
		if !ok {
			return Step{}, s, errors.New("missing close bracket")
		}
		if s[0] == '*' {
			return Step{Op: Wildcard}, rest, nil
		}
		return Step{Op: Member, Key: name}, rest, nil
	}

	sel, rest := s[:end], s[end+1:]
	if lo, hi, ok := strings.Cut(sel, ":"); ok {
		step := Step{Op: Slice}
		var err error
		if step.Lo, err = parseBound(lo); err != nil {
			return Step{}, s, err
		}
		if step.Hi, err = parseBound(hi); err != nil {
			return Step{}, s, err
		}
		return step, rest, nil
	}
	step := Step{Op: Index}
	for _, elt := range strings.Split(sel, ",") {
		z, err := strconv.Atoi(elt)
		if err != nil {
			if len(step.Offsets) == 0 && isWord(sel) {
				return Step{Op: Member, Key: sel}, rest, nil
			}
			return Step{}, s, fmt.Errorf("invalid index %q", elt)
		}
		step.Offsets = append(step.Offsets, z)
	}
	return step, rest, nil
}

func parseBound(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	z, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid slice bound %q", s)
	}
	return &z, nil
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isWord(s string) bool {
	for i := range len(s) {
		if !isWordByte(s[i]) {
			return false
		}
	}
	return s != ""
}

func (p Path) String() string {
	var buf strings.Builder
	buf.WriteString("$")
	for _, s := range p {
		switch s.Op {
		case Member:
			if isWord(s.Key) {
				fmt.Fprintf(&buf, ".%s", s.Key)
			} else {
				fmt.Fprintf(&buf, "[%s]", quoteName(s.Key))
			}
		case Wildcard:
			buf.WriteString(".*")
		case Recur:
			if s.Key == "*" || isWord(s.Key) {
				fmt.Fprintf(&buf, "..%s", s.Key)
			} else {
				fmt.Fprintf(&buf, "..%s", quoteName(s.Key))
			}
		case Index:
			ss := make([]string, len(s.Offsets))
			for i, z := range s.Offsets {
				ss[i] = strconv.Itoa(z)
			}
			fmt.Fprintf(&buf, "[%s]", strings.Join(ss, ","))
		case Slice:
			fmt.Fprintf(&buf, "[%s:%s]", boundString(s.Lo), boundString(s.Hi))
		}
	}
	return buf.String()
}

var nameEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quoteName(s string) string { return "'" + nameEscaper.Replace(s) + "'" }

func boundString(z *int) string {
	if z == nil {
		return ""
	}
	return strconv.Itoa(*z)
}

// Select returns the values selected by p from v, in document order. The
// results are not copies: they share structure with v.
//
// An Index step selects array elements, or object members by position.
// Offsets out of range are skipped. Negative offsets count from the end.
func (p Path) Select(v ast.Value) []ast.Value {
	cur := []ast.Value{v}
	for _, step := range p {
		var next []ast.Value
		for _, c := range cur {
			next = step.apply(c, next)
		}
		if len(next) == 0 {
			return nil
		}
		cur = next
	}
	return cur
}

// apply appends the values selected by s from v to out.
func (s Step) apply(v ast.Value, out []ast.Value) []ast.Value {
	switch s.Op {
	case Member:
		if obj, ok := v.(*ast.Object); ok {
			if m := obj.Find(s.Key); m != nil {
				out = append(out, m.Value)
			}
		}

	case Wildcard:
		out = append(out, children(v)...)

	case Recur:
		walk(v, func(c ast.Value) {
			if s.Key == "*" {
				out = append(out, children(c)...)
			} else if obj, ok := c.(*ast.Object); ok {
				if m := obj.Find(s.Key); m != nil {
					out = append(out, m.Value)
				}
			}
		})

	case Index:
		elts := children(v)
		for _, z := range s.Offsets {
			if z < 0 {
				z += len(elts)
			}
			if z >= 0 && z < len(elts) {
				out = append(out, elts[z])
			}
		}

	case Slice:
		arr, ok := v.(*ast.Array)
		if !ok {
			break
		}
		lo, hi := clampBound(s.Lo, 0, arr.Len()), clampBound(s.Hi, arr.Len(), arr.Len())
		if lo < hi {
			out = append(out, arr.Values[lo:hi]...)
		}
	}
	return out
}

// children returns the member values of an object or the elements of an
// array. Other values have no children.
func children(v ast.Value) []ast.Value {
	switch t := v.(type) {
	case *ast.Array:
		return t.Values
	case *ast.Object:
		vs := make([]ast.Value, len(t.Members))
		for i, m := range t.Members {
			vs[i] = m.Value
		}
		return vs
	}
	return nil
}

// walk calls f for v and each of its descendants in document order.
func walk(v ast.Value, f func(ast.Value)) {
	f(v)
	for _, c := range children(v) {
		walk(c, f)
	}
}

func clampBound(z *int, dflt, n int) int {
	if z == nil {
		return dflt
	}
	i := *z
	if i < 0 {
		i += n
	}
	return max(0, min(i, n))
}
