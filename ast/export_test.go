// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package ast

// Tokenizer exposes the event source interface of a Builder to tests.
type Tokenizer = tokenizer

// SetTokenizer sets the function b uses to construct new event sources.
func (b *Builder) SetTokenizer(f func() Tokenizer) { b.newTok = f }

// IndexThreshold exposes the object size at which keys are indexed.
const IndexThreshold = indexThreshold
