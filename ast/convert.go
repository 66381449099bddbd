// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package ast

import (
	"fmt"
	"maps"
	"slices"
)

// ToValue converts a Go value into a syntax tree.
//
// The input must be nil, a Value, a bool, a string, an integer or floating
// point value, a []any, or a map[string]any, where the elements of slices and
// maps are recursively of these types. Object members from a map are ordered
// by key. ToValue panics for any other input.
func ToValue(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case int:
		return Int(t)
	case int8:
		return Int(t)
	case int16:
		return Int(t)
	case int32:
		return Int(t)
	case int64:
		return Int(t)
	case uint8:
		return Int(t)
	case uint16:
		return Int(t)
	case uint32:
		return Int(t)
	case float32:
		return Float(t)
	case float64:
		return Float(t)
	case []any:
		arr := &Array{Values: make([]Value, len(t))}
		for i, elt := range t {
			arr.Values[i] = ToValue(elt)
		}
		return arr
	case map[string]any:
		keys := slices.Sorted(maps.Keys(t))
		obj := &Object{Members: make([]*Member, len(keys))}
		for i, key := range keys {
			obj.Members[i] = Field(key, ToValue(t[key]))
		}
		return obj
	default:
		panic(fmt.Sprintf("ast: unsupported value type %T", v))
	}
}

// Equal reports whether a and b are structurally equal. Objects are equal if
// they have the same members in the same order.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == b
	} else if a.Kind() != b.Kind() {
		return false
	}
	switch at := a.(type) {
	case *Object:
		bt := b.(*Object)
		return slices.EqualFunc(at.Members, bt.Members, func(x, y *Member) bool {
			return x.Key == y.Key && Equal(x.Value, y.Value)
		})
	case *Array:
		return slices.EqualFunc(at.Values, b.(*Array).Values, Equal)
	default:
		return a == b
	}
}
