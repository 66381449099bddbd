// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

// Package ast defines a syntax tree for JSON values, and a Builder that
// assembles syntax trees incrementally from chunks of JSON input.
package ast

// Kind identifies the variant of a Value.
type Kind byte

// Constants defining the valid Kind values.
const (
	NullKind   Kind = iota // the constant null
	BoolKind               // true or false
	IntKind                // an integer
	FloatKind              // a number with a fraction and/or exponent
	StringKind             // a string
	ArrayKind              // an array of values
	ObjectKind             // an object of key-value members
)

var kindStr = [...]string{
	NullKind:   "null",
	BoolKind:   "bool",
	IntKind:    "int",
	FloatKind:  "float",
	StringKind: "string",
	ArrayKind:  "array",
	ObjectKind: "object",
}

func (k Kind) String() string {
	if int(k) >= len(kindStr) {
		return "invalid"
	}
	return kindStr[k]
}

// A Value is an arbitrary JSON value. The concrete type of a Value is one of
// *Object, *Array, String, Int, Float, Bool, or the type of Null, and its
// Kind reports which.
type Value interface {
	Kind() Kind
}

// An Object is a collection of key-value members, in input order.
type Object struct {
	Members []*Member
}

// ObjectOf constructs an object with the given members.
func ObjectOf(ms ...*Member) *Object { return &Object{Members: ms} }

// Kind satisfies the Value interface.
func (*Object) Kind() Kind { return ObjectKind }

// Len reports the number of members in o.
func (o *Object) Len() int { return len(o.Members) }

// Find returns the member of o with the given key, or nil.
func (o *Object) Find(key string) *Member {
	for _, m := range o.Members {
		if m.Key == key {
			return m
		}
	}
	return nil
}

// Set sets the value of the member of o with the given key. If o already has
// such a member its value is replaced, keeping its position; otherwise a new
// member is added at the end.
func (o *Object) Set(key string, v Value) {
	if m := o.Find(key); m != nil {
		m.Value = v
	} else {
		o.Members = append(o.Members, Field(key, v))
	}
}

// Keys returns the keys of o in order.
func (o *Object) Keys() []string {
	keys := make([]string, len(o.Members))
	for i, m := range o.Members {
		keys[i] = m.Key
	}
	return keys
}

// A Member is a single key-value pair belonging to an Object.
type Member struct {
	Key   string
	Value Value
}

// Field constructs an object member with the given key and value.
func Field(key string, v Value) *Member { return &Member{Key: key, Value: v} }

// An Array is a sequence of values.
type Array struct {
	Values []Value
}

// ArrayOf constructs an array with the given values.
func ArrayOf(vs ...Value) *Array { return &Array{Values: vs} }

// Kind satisfies the Value interface.
func (*Array) Kind() Kind { return ArrayKind }

// Len reports the number of elements in a.
func (a *Array) Len() int { return len(a.Values) }

// Append adds v to the end of a.
func (a *Array) Append(v Value) { a.Values = append(a.Values, v) }

// A String is a decoded string value.
type String string

// Kind satisfies the Value interface.
func (String) Kind() Kind { return StringKind }

// An Int is an integer value.
type Int int64

// Kind satisfies the Value interface.
func (Int) Kind() Kind { return IntKind }

// A Float is a floating-point value.
type Float float64

// Kind satisfies the Value interface.
func (Float) Kind() Kind { return FloatKind }

// A Bool is a Boolean constant, true or false.
type Bool bool

// Kind satisfies the Value interface.
func (Bool) Kind() Kind { return BoolKind }

type null struct{}

func (null) Kind() Kind { return NullKind }

// Null represents the null constant.
var Null Value = null{}
