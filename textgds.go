// Package textgds compiles large text streams into hierarchical GDSII layouts.
//
// Every character is drawn with a bitmap font. Rather than flattening pixels,
// the compiler builds a small symbol hierarchy per output part:
//
//   - one symbol per font glyph, made of unit-pixel placements or merged rectangles
//   - one symbol per L-digit string ("00".."99" for L = 2), each placing L glyphs
//   - one top-level symbol holding a placement per matched run or single character
//
// A line such as "31415926" with L = 2 becomes four placements instead of
// eight, and the output stays small even for inputs of 10^9 digits.
//
// # Basic Usage
//
// Converting a file:
//
//	sink, _ := emitter.NewFileSink("pi.gds", emitter.WithSplitNames(true))
//	report, err := textgds.ConvertFiles(ctx, "digits.font", "pi.txt", sink,
//	    emitter.WithRunLength(3),
//	    emitter.WithRowsPerPart(10000),
//	)
//
// Converting a stream with an already loaded font into memory:
//
//	f, _ := font.Load("digits.font")
//	sink, _ := emitter.NewMemorySink(nil)
//	report, err := textgds.Convert(ctx, strings.NewReader("123\n456\n"), f, sink)
//
// # Package Structure
//
// This package wraps the emitter for the common cases. The building blocks
// live in their own packages: ident (symbol names), layout (the symbol arena),
// font and glyph (glyph symbols), ngram (the digit-run dictionary), compiler
// (row compilation), emitter (partitioning and sinks), gds (the stream
// format), usage (dictionary statistics), and manifest (run records).
package textgds

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/arloliu/textgds/compress"
	"github.com/arloliu/textgds/emitter"
	"github.com/arloliu/textgds/font"
	"github.com/arloliu/textgds/format"
	"github.com/arloliu/textgds/gds"
)

// Convert compiles input with font f and writes every part to sink.
//
// Parameters:
//   - ctx: cancels the run between rows
//   - input: text, one row per line; "\n", "\r\n" and "\r" all end a line
//   - f: parsed font
//   - sink: receives each finished part
//   - opts: emitter options
//
// Returns:
//   - emitter.Report: written parts and usage, also on failure
//   - error: the first error of the run
func Convert(ctx context.Context, input io.Reader, f *font.Font, sink emitter.Sink, opts ...emitter.Option) (emitter.Report, error) {
	e, err := emitter.New(f, opts...)
	if err != nil {
		return emitter.Report{}, err
	}

	return e.Run(ctx, input, sink)
}

// ConvertFiles loads the font at fontPath and compiles the text file at
// textPath into sink.
func ConvertFiles(ctx context.Context, fontPath, textPath string, sink emitter.Sink, opts ...emitter.Option) (emitter.Report, error) {
	f, err := font.Load(fontPath)
	if err != nil {
		return emitter.Report{}, err
	}

	in, err := os.Open(textPath)
	if err != nil {
		return emitter.Report{}, fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	return Convert(ctx, in, f, sink, opts...)
}

// InspectFile summarizes a written artifact. Compressed artifacts are
// recognized by their extension.
func InspectFile(path string) (gds.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gds.Summary{}, err
	}

	ct := format.CompressionFromPath(path)
	if ct != format.CompressionNone {
		codec, err := compress.CreateCodec(ct, "artifact")
		if err != nil {
			return gds.Summary{}, err
		}
		if data, err = codec.Decompress(data); err != nil {
			return gds.Summary{}, fmt.Errorf("%s: %w", path, err)
		}
	}

	return gds.Inspect(bytes.NewReader(data))
}
