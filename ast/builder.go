// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package ast

import (
	"errors"
	"fmt"
	"io"

	"github.com/creachadair/jfeed"
	"go.uber.org/zap"
)

// tokenizer is the interface a Builder uses to obtain parse events.
// The *jfeed.Stream type satisfies this interface.
type tokenizer interface {
	Feed(data []byte)
	Close()
	Next() (jfeed.Event, error)
	Token() jfeed.Token
	FieldName() string
	Int64() (int64, error)
	Float64() (float64, error)
	Unescape() ([]byte, error)
	Restart()
}

// A Builder assembles syntax trees from JSON input delivered in chunks.
//
// Input is supplied by calling Consume with consecutive chunks of a stream.
// Chunk boundaries need not align with tokens or values. Each time a
// top-level value is complete, the Builder passes its syntax tree to the
// completion function given to NewBuilder. The input may contain any number
// of top-level values one after another, optionally separated by whitespace.
//
// A Builder is not safe for concurrent use. The completion function must not
// call methods of the Builder that invoked it.
type Builder struct {
	done     func(Value)
	log      *zap.Logger
	comments bool
	tcomma   bool
	maxDepth int
	newTok   func() tokenizer

	tok   tokenizer // nil until input arrives
	stk   []frame   // open containers, innermost last
	field string    // pending field name
	named bool      // field is valid
	nvals int       // values dispatched
}

// A frame is an open container on the construction stack.
type frame struct {
	v     Value          // *Object or *Array
	index map[string]int // member offsets of a large object
}

// indexThreshold is the number of members an open object must have before
// the builder indexes its keys.
const indexThreshold = 16

// NewBuilder constructs a new Builder that calls done with each complete
// top-level value. The completion function receives ownership of the value.
// NewBuilder panics if done == nil.
func NewBuilder(done func(Value)) *Builder {
	if done == nil {
		panic("ast: nil completion function")
	}
	b := &Builder{done: done, log: zap.NewNop(), maxDepth: jfeed.DefaultMaxDepth}
	b.newTok = b.newStream
	return b
}

// AllowComments configures b to accept (true) or reject (false) comments in
// its input. Like the other settings, this takes effect at the beginning of
// the next top-level value.
func (b *Builder) AllowComments(ok bool) { b.comments = ok }

// AllowTrailingCommas configures b to allow (true) or reject (false) trailing
// commas in objects and arrays.
func (b *Builder) AllowTrailingCommas(ok bool) { b.tcomma = ok }

// SetMaxDepth sets the maximum nesting depth of objects and arrays. If n <= 0
// the depth is not limited.
func (b *Builder) SetMaxDepth(n int) { b.maxDepth = n }

// SetLogger sets the logger b uses to record debug events. If log == nil,
// logging is disabled.
func (b *Builder) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	b.log = log
}

func (b *Builder) newStream() tokenizer {
	st := jfeed.NewStream()
	b.configure(st)
	return st
}

func (b *Builder) configure(st *jfeed.Stream) {
	st.AllowComments(b.comments)
	st.AllowTrailingCommas(b.tcomma)
	st.SetMaxDepth(b.maxDepth)
}

// Consume feeds data to b, which is the next chunk of the input stream. For
// each top-level value completed by data, Consume calls the completion
// function before returning, in input order.
//
// In case of a syntax error, the returned error has type [*jfeed.SyntaxError].
// Any partial value is discarded, and b is reset so that the next call to
// Consume begins a new value.
func (b *Builder) Consume(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	b.stream().Feed(data)
	return b.drain()
}

// Close marks the end of the input. If the input ends with a top-level number
// such as 42, which cannot be recognized as complete until the end of input,
// Close delivers it to the completion function. Close reports an error if the
// input ends partway through a value. Afterward b is reset, and may be used
// again for a new input stream.
func (b *Builder) Close() error {
	b.stream().Close()
	err := b.drain()
	b.Reset()
	return err
}

// Reset discards any partial value and buffered input held by b.
func (b *Builder) Reset() {
	b.discard()
	b.tok = nil
}

// Depth reports the number of objects and arrays currently open in the value
// being assembled.
func (b *Builder) Depth() int { return len(b.stk) }

// stream returns the current tokenizer, constructing one if necessary.
// Between values, the tokenizer picks up any change to the settings of b.
func (b *Builder) stream() tokenizer {
	if b.tok == nil {
		b.tok = b.newTok()
	} else if st, ok := b.tok.(*jfeed.Stream); ok && len(b.stk) == 0 {
		b.configure(st)
	}
	return b.tok
}

// discard discards the state of the current value.
func (b *Builder) discard() {
	clear(b.stk)
	b.stk = b.stk[:0]
	b.field, b.named = "", false
}

// drain processes events from the tokenizer until it needs more input.
func (b *Builder) drain() error {
	for b.tok != nil {
		ev, err := b.tok.Next()
		if errors.Is(err, jfeed.ErrNeedInput) || errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return b.fail(err)
		}

		root, err := b.apply(ev)
		if err != nil {
			return b.fail(err)
		} else if root != nil {
			b.dispatch(root)
		}
	}
	return nil
}

// dispatch delivers a complete value, and restarts the tokenizer on the
// input that follows it.
func (b *Builder) dispatch(root Value) {
	b.discard()
	b.tok.Restart()
	b.nvals++
	b.log.Debug("value complete",
		zap.Int("ordinal", b.nvals), zap.Stringer("kind", root.Kind()))
	b.done(root)
}

func (b *Builder) fail(err error) error {
	b.log.Debug("discarding partial value",
		zap.Int("depth", len(b.stk)), zap.Error(err))
	b.Reset()
	return err
}

// apply updates the tree for a single event. If the event completes a
// top-level value, apply returns that value; otherwise it returns nil.
func (b *Builder) apply(ev jfeed.Event) (Value, error) {
	switch ev {
	case jfeed.FieldName:
		if f := b.top(); f == nil || f.v.Kind() != ObjectKind {
			panic("ast: field name outside an object")
		}
		b.field, b.named = b.tok.FieldName(), true
		return nil, nil

	case jfeed.BeginObject:
		b.push(b.attach(new(Object)))
		return nil, nil

	case jfeed.BeginArray:
		b.push(b.attach(new(Array)))
		return nil, nil

	case jfeed.EndObject:
		return b.pop(ObjectKind), nil

	case jfeed.EndArray:
		return b.pop(ArrayKind), nil

	case jfeed.Value:
		v, err := b.scalar()
		if err != nil {
			return nil, err
		} else if len(b.stk) == 0 {
			return v, nil // a top-level scalar is complete by itself
		}
		b.attach(v)
		return nil, nil
	}
	panic(fmt.Sprintf("ast: unexpected event %v", ev))
}

// scalar constructs the value of the current scalar token.
func (b *Builder) scalar() (Value, error) {
	switch tok := b.tok.Token(); tok {
	case jfeed.Integer:
		z, err := b.tok.Int64()
		if err != nil {
			return nil, err
		}
		return Int(z), nil
	case jfeed.Number:
		f, err := b.tok.Float64()
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	case jfeed.String:
		s, err := b.tok.Unescape()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case jfeed.True, jfeed.False:
		return Bool(tok == jfeed.True), nil
	case jfeed.Null:
		return Null, nil
	default:
		panic(fmt.Sprintf("ast: unexpected value token %v", tok))
	}
}

// attach adds v to the innermost open container, if there is one, and
// returns v.
func (b *Builder) attach(v Value) Value {
	f := b.top()
	if f == nil {
		return v // v is the root
	}
	switch f.v.Kind() {
	case ObjectKind:
		if !b.named {
			panic("ast: object member without a field name")
		}
		f.set(b.field, v)
		b.field, b.named = "", false
	case ArrayKind:
		f.v.(*Array).Append(v)
	default:
		panic(fmt.Sprintf("ast: cannot attach to %v", f.v.Kind()))
	}
	return v
}

func (b *Builder) top() *frame {
	if len(b.stk) == 0 {
		return nil
	}
	return &b.stk[len(b.stk)-1]
}

func (b *Builder) push(v Value) { b.stk = append(b.stk, frame{v: v}) }

// pop removes the innermost open container, which must have kind k. If that
// leaves no containers open, pop returns the container; otherwise nil.
func (b *Builder) pop(k Kind) Value {
	f := b.top()
	if f == nil {
		panic(fmt.Sprintf("ast: end of %v with no open container", k))
	} else if f.v.Kind() != k {
		panic(fmt.Sprintf("ast: end of %v inside %v", k, f.v.Kind()))
	}
	v := f.v
	b.stk[len(b.stk)-1] = frame{}
	b.stk = b.stk[:len(b.stk)-1]
	if len(b.stk) == 0 {
		return v
	}
	return nil
}

// set sets the member of the object in f with the given key. Once the object
// is large enough, its keys are indexed to avoid a linear search per member.
func (f *frame) set(key string, v Value) {
	obj := f.v.(*Object)
	if f.index == nil && len(obj.Members) >= indexThreshold {
		f.index = make(map[string]int, len(obj.Members)+1)
		for i, m := range obj.Members {
			f.index[m.Key] = i
		}
	}
	if f.index == nil {
		obj.Set(key, v)
		return
	}
	if i, ok := f.index[key]; ok {
		obj.Members[i].Value = v
		return
	}
	f.index[key] = len(obj.Members)
	obj.Members = append(obj.Members, Field(key, v))
}
