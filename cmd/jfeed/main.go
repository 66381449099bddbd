// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

// Program jfeed reads a stream of JSON values in fixed-size chunks, assembles
// them incrementally, and logs each value as soon as it is complete.
//
// Usage:
//
//	jfeed [flags] [file]
//
// If no file is named, jfeed reads from stdin.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/creachadair/jfeed/ast"
	"github.com/creachadair/jfeed/jpath"
	"go.uber.org/zap"
)

type feedCmd struct {
	ChunkSize      int    `help:"Read input in chunks of this many bytes." default:"4096"`
	Comments       bool   `help:"Allow comments in the input."`
	TrailingCommas bool   `help:"Allow trailing commas in objects and arrays."`
	MaxDepth       int    `help:"Maximum nesting depth of objects and arrays (0 for no limit)." default:"1000"`
	Select         string `help:"Report the values selected by this path (e.g., a.b.0 or $..id) in each value." placeholder:"PATH"`
	Debug          bool   `help:"Enable debug logging."`

	Input string `arg:"" optional:"" help:"Input file (default stdin)." type:"existingfile"`
}

func main() {
	var cmd feedCmd
	kctx := kong.Parse(&cmd,
		kong.Name("jfeed"),
		kong.Description("Parse a stream of JSON values delivered in chunks."),
	)
	log, err := newLogger(cmd.Debug)
	kctx.FatalIfErrorf(err)
	defer log.Sync()

	in := io.Reader(os.Stdin)
	if cmd.Input != "" {
		f, err := os.Open(cmd.Input)
		kctx.FatalIfErrorf(err)
		defer f.Close()
		in = f
	}
	nv, err := cmd.run(log, in)
	if err != nil {
		log.Error("parse failed", zap.Int("values", nv), zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
	log.Info("done", zap.Int("values", nv))
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// run reads the input from r in chunks and feeds it to a builder, logging
// each completed value. It returns the number of values completed.
func (c *feedCmd) run(log *zap.Logger, r io.Reader) (int, error) {
	if c.ChunkSize <= 0 {
		return 0, fmt.Errorf("invalid chunk size %d", c.ChunkSize)
	}
	path, err := jpath.Parse(c.Select)
	if err != nil {
		return 0, fmt.Errorf("invalid selector: %w", err)
	}

	var nv int
	b := ast.NewBuilder(func(v ast.Value) {
		nv++
		fields := []zap.Field{zap.Int("ordinal", nv), zap.Stringer("kind", v.Kind())}
		if n, ok := v.(interface{ Len() int }); ok {
			fields = append(fields, zap.Int("size", n.Len()))
		} else {
			fields = append(fields, zap.Any("value", scalar(v)))
		}
		if path != nil {
			var sel []any
			for _, elt := range path.Select(v) {
				sel = append(sel, scalar(elt))
			}
			if len(sel) != 0 {
				fields = append(fields, zap.Any("selected", sel))
			}
		}
		log.Info("value", fields...)
	})
	b.AllowComments(c.Comments)
	b.AllowTrailingCommas(c.TrailingCommas)
	b.SetMaxDepth(c.MaxDepth)
	b.SetLogger(log)

	buf := make([]byte, c.ChunkSize)
	for {
		nr, err := r.Read(buf)
		if nr > 0 {
			if cerr := b.Consume(buf[:nr]); cerr != nil {
				return nv, cerr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nv, err
		}
	}
	err = b.Close()
	return nv, err
}

// scalar returns a loggable representation of v. Containers are summarized
// by kind and length.
func scalar(v ast.Value) any {
	switch t := v.(type) {
	case ast.String:
		return string(t)
	case ast.Int:
		return int64(t)
	case ast.Float:
		return float64(t)
	case ast.Bool:
		return bool(t)
	case *ast.Object:
		return fmt.Sprintf("object(%d)", t.Len())
	case *ast.Array:
		return fmt.Sprintf("array(%d)", t.Len())
	}
	return nil // null
}
