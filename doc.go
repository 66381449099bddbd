// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

// Package jfeed implements a non-blocking JSON scanner and event parser.
//
// Unlike a parser that reads from an io.Reader, the types in this package
// never block: the caller pushes input in chunks of any size, and the parser
// reports what it can from the input seen so far. A chunk need not align with
// tokens or values; input may even arrive one byte at a time.
//
// # Scanning
//
// The Scanner type implements a lexical scanner for JSON.  Construct a
// scanner, Feed it input, and call its Next method to iterate over the tokens.
// Next advances to the next input token and returns nil, or reports an error:
//
//	s := jfeed.NewScanner()
//	s.Feed(chunk)
//	for s.Next() == nil {
//	   log.Printf("Next token: %v", s.Token())
//	}
//
// When the buffered input ends partway through a token, Next returns
// ErrNeedInput. This is not a failure: Feed more input and call Next again.
// Call Close to mark the end of the input, after which Next returns io.EOF
// once the input is consumed. Any other error indicates a lexical error.
//
// # Streaming
//
// The Stream type implements an event parser on top of a Scanner. Each call
// to Next reports one structural event (BeginObject, EndObject, BeginArray,
// EndArray, FieldName, or Value), ErrNeedInput, io.EOF, or an error of
// concrete type *jfeed.SyntaxError:
//
//	st := jfeed.NewStream()
//	st.Feed(chunk)
//	for {
//	   ev, err := st.Next()
//	   if err == jfeed.ErrNeedInput {
//	      break // wait for more input
//	   } else if err != nil {
//	      log.Fatalf("Parse failed: %v", err)
//	   }
//	   log.Printf("Event %v", ev)
//	}
//
// The stream checks the JSON grammar, so its events are always balanced and
// each FieldName is followed by exactly one value. To assemble events into
// complete syntax trees, see the Builder type in the ast package.
package jfeed
