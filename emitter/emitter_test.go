package emitter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/textgds/errs"
	"github.com/arloliu/textgds/font"
	"github.com/arloliu/textgds/format"
	"github.com/arloliu/textgds/gds"
	"github.com/arloliu/textgds/usage"
)

func digitFont(t *testing.T) *font.Font {
	t.Helper()

	f, err := font.New(1, 1)
	require.NoError(t, err)
	for _, ch := range "0123456789" {
		require.NoError(t, f.Add(ch, "X"))
	}

	return f
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEmitter(t *testing.T, opts ...Option) *Emitter {
	t.Helper()

	e, err := New(digitFont(t), append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)

	return e
}

func newMemorySink(t *testing.T) *MemorySink {
	t.Helper()

	s, err := NewMemorySink(nil)
	require.NoError(t, err)

	return s
}

func partRows(rep Report) []int {
	rows := make([]int, 0, len(rep.Parts))
	for _, p := range rep.Parts {
		rows = append(rows, p.Rows)
	}

	return rows
}

func TestRun_RowsPerPart(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		rows  []int
	}{
		{"five lines", "11\n22\n33\n44\n55\n", 2, []int{2, 2, 1}},
		{"exact multiple", "11\n22\n33\n44\n", 2, []int{2, 2}},
		{"no trailing newline", "11\n22\n33", 2, []int{2, 1}},
		{"single part", "1\n2\n3\n", 10, []int{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := newMemorySink(t)
			rep, err := newEmitter(t, WithRowsPerPart(tt.limit)).Run(context.Background(), strings.NewReader(tt.input), sink)
			require.NoError(t, err)
			require.Equal(t, tt.rows, partRows(rep))
			require.Equal(t, len(tt.rows), sink.Len())

			for i, p := range rep.Parts {
				require.Equal(t, i+1, p.Index)
				data, ok := sink.Part(p.Index)
				require.True(t, ok)

				sum, err := gds.Inspect(bytes.NewReader(data))
				require.NoError(t, err)
				require.Equal(t, []string{TopSymbolName}, sum.Top)
				require.Equal(t, p.Artifact.Structures, len(sum.Structures))
			}
		})
	}
}

func TestRun_FirstRowAndOffsets(t *testing.T) {
	sink := newMemorySink(t)
	rep, err := newEmitter(t, WithRowsPerPart(2), WithRunLength(0)).Run(context.Background(), strings.NewReader("1\n2\n3\n"), sink)
	require.NoError(t, err)

	require.Equal(t, 0, rep.Parts[0].FirstRow)
	require.Equal(t, 2, rep.Parts[1].FirstRow)

	// Row 2 of the input lands at y = -2 glyph heights (1 pixel, 1 µm, 1000 dbu).
	data, _ := sink.Part(2)
	rd := gds.NewReader(bytes.NewReader(data))
	var lastXY []int32
	for {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if rec.Type == gds.RecXY {
			lastXY, err = rec.Int32s()
			require.NoError(t, err)
		}
	}
	require.Equal(t, []int32{0, -2000}, lastXY)
}

func TestRun_EmptyInput(t *testing.T) {
	sink := newMemorySink(t)
	rep, err := newEmitter(t).Run(context.Background(), strings.NewReader(""), sink)
	require.NoError(t, err)
	require.Equal(t, []int{0}, partRows(rep))
	require.Equal(t, -1, rep.Parts[0].FirstRow)
	require.Equal(t, 1, sink.Len())

	sink = newMemorySink(t)
	rep, err = newEmitter(t, WithMaxRows(0)).Run(context.Background(), strings.NewReader("123\n"), sink)
	require.NoError(t, err)
	require.Empty(t, rep.Parts)
	require.Zero(t, sink.Len())
}

func TestRun_MaxRows(t *testing.T) {
	sink := newMemorySink(t)
	rep, err := newEmitter(t, WithMaxRows(3), WithRowsPerPart(2)).Run(context.Background(), strings.NewReader("1\n2\n3\n4\n5\n"), sink)
	require.NoError(t, err)
	require.Equal(t, []int{2, 1}, partRows(rep))
	require.Equal(t, 3, rep.TotalRows)
	require.Equal(t, 3, rep.RowsProcessed)
}

func TestRun_MaxCharsPerPart(t *testing.T) {
	sink := newMemorySink(t)
	rep, err := newEmitter(t, WithMaxCharsPerPart(5)).Run(context.Background(), strings.NewReader("1234\n5\n67\n8\n"), sink)
	require.NoError(t, err)
	require.Equal(t, []int{2, 2}, partRows(rep))
	require.Equal(t, 5, rep.Parts[0].Chars)
	require.Equal(t, 3, rep.Parts[1].Chars)
	require.Equal(t, 8, rep.TotalChars)
}

func TestRun_LineEndings(t *testing.T) {
	sink := newMemorySink(t)
	rep, err := newEmitter(t).Run(context.Background(), strings.NewReader("12\r\n34\r56\n78\r"), sink)
	require.NoError(t, err)
	require.Equal(t, 4, rep.TotalRows)
	require.Equal(t, 8, rep.TotalChars)
	require.Equal(t, 4, rep.TotalPlacements)
}

func TestRun_Usage(t *testing.T) {
	tracker := usage.NewTracker()
	sink := newMemorySink(t)
	rep, err := newEmitter(t, WithRowsPerPart(1), WithTracker(tracker), WithUsageTop(1)).
		Run(context.Background(), strings.NewReader("1234\n12\n"), sink)
	require.NoError(t, err)

	require.Equal(t, map[string]uint64{"12": 2, "34": 1}, tracker.Snapshot())
	require.Equal(t, uint64(3), rep.Usage.TotalPlacements)
	require.Equal(t, 2, rep.Usage.UniqueKeysUsed)
	require.Equal(t, []usage.Entry{{Key: "12", Count: 2}}, rep.Usage.Top)
	require.Equal(t, []usage.Entry{{Key: "34", Count: 1}}, rep.Usage.Bottom)
}

func TestRun_Deterministic(t *testing.T) {
	input := strings.Repeat("3141592653 5897932384\n", 40)

	run := func(workers int) *MemorySink {
		sink := newMemorySink(t)
		rep, err := newEmitter(t, WithRowsPerPart(7), WithRunLength(3), WithWorkers(workers)).
			Run(context.Background(), strings.NewReader(input), sink)
		require.NoError(t, err)
		require.Len(t, rep.Parts, 6)

		return sink
	}

	a, b, c := run(1), run(1), run(4)
	for i := 1; i <= 6; i++ {
		pa, _ := a.Part(i)
		pb, _ := b.Part(i)
		pc, _ := c.Part(i)
		require.Equal(t, pa, pb, "part %d", i)
		require.Equal(t, pa, pc, "part %d", i)
	}
}

func TestRun_MissingGlyphLeavesEarlierParts(t *testing.T) {
	for _, workers := range []int{1, 3} {
		sink := newMemorySink(t)
		rep, err := newEmitter(t, WithRowsPerPart(2), WithWorkers(workers)).
			Run(context.Background(), strings.NewReader("12\n34\n56\n7#\n88\n"), sink)
		require.Error(t, err)

		var missing *errs.MissingGlyphError
		require.True(t, errors.As(err, &missing))
		require.Equal(t, '#', missing.Char)
		require.Equal(t, 4, missing.Row)
		require.Equal(t, 2, missing.Column)

		_, ok := sink.Part(2)
		require.False(t, ok, "failed part must not be written")
		if workers == 1 {
			require.Equal(t, []int{2}, partRows(rep))
			require.Equal(t, 3, rep.RowsProcessed)
		}
	}
}

func TestRun_InputTooLong(t *testing.T) {
	sink := newMemorySink(t)
	_, err := newEmitter(t, WithMaxLineBytes(8)).Run(context.Background(), strings.NewReader("12\n"+strings.Repeat("9", 40)+"\n"), sink)
	require.ErrorIs(t, err, errs.ErrLineTooLong)
	require.Zero(t, sink.Len())
}

func TestRun_MaxLineBytesBoundary(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"exact LF", "1234\n", false},
		{"exact CRLF", "1234\r\n", false},
		{"exact CR", "1234\r", false},
		{"exact at EOF", "1234", false},
		{"one over LF", "12345\n", true},
		{"one over at EOF", "12345", true},
		{"two over", "123456\r\n", true},
		{"later row over", "12\n12345\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := newMemorySink(t)
			rep, err := newEmitter(t, WithMaxLineBytes(4)).Run(context.Background(), strings.NewReader(tt.input), sink)
			if tt.wantErr {
				require.ErrorIs(t, err, errs.ErrLineTooLong)
				require.Zero(t, sink.Len())

				return
			}
			require.NoError(t, err)
			require.Equal(t, 1, rep.TotalRows)
		})
	}

	lr := newLineReader(strings.NewReader("12\n12345\n9\n"), 4)
	ln, ok := lr.next()
	require.True(t, ok)
	require.Equal(t, "12", ln.text)
	_, ok = lr.next()
	require.False(t, ok)
	_, ok = lr.next()
	require.False(t, ok, "reader stays stopped after an oversized line")
	require.EqualError(t, lr.err(), "input line too long: row 2")
}

type failingSink struct{}

func (failingSink) WritePart(context.Context, *Part) (Artifact, error) {
	return Artifact{}, io.ErrShortWrite
}

func TestRun_SinkFailure(t *testing.T) {
	rep, err := newEmitter(t).Run(context.Background(), strings.NewReader("12\n"), failingSink{})
	require.ErrorIs(t, err, io.ErrShortWrite)

	var serr *errs.SerializationError
	require.True(t, errors.As(err, &serr))
	require.Equal(t, 1, serr.Part)
	require.Empty(t, rep.Parts)
	require.Equal(t, 1, rep.RowsProcessed)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := newMemorySink(t)
	_, err := newEmitter(t).Run(ctx, strings.NewReader("12\n34\n"), sink)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, sink.Len())
}

func TestRun_NilSink(t *testing.T) {
	_, err := newEmitter(t).Run(context.Background(), strings.NewReader(""), nil)
	require.Error(t, err)
}

func TestRun_MergedGlyphs(t *testing.T) {
	sink := newMemorySink(t)
	rep, err := newEmitter(t, WithGlyphMode(format.GlyphMerged), WithRunLength(1)).
		Run(context.Background(), strings.NewReader("0123\n"), sink)
	require.NoError(t, err)

	// 10 glyphs + 10 dictionary entries + top, no pixel symbol. Only the
	// four glyphs reachable through the used entries are written.
	require.Equal(t, 21, rep.Parts[0].Symbols)
	require.Equal(t, 4, rep.Parts[0].Artifact.Boundaries)
}

func TestNew_Options(t *testing.T) {
	f := digitFont(t)

	_, err := New(f, WithPixelSize(0))
	require.ErrorIs(t, err, errs.ErrInvalidPixelSize)
	_, err = New(f, WithRunLength(9))
	require.ErrorIs(t, err, errs.ErrInvalidRunLength)
	_, err = New(f, WithRunLength(-1))
	require.ErrorIs(t, err, errs.ErrInvalidRunLength)
	_, err = New(f, WithRowsPerPart(0))
	require.Error(t, err)
	_, err = New(f, WithMaxCharsPerPart(0))
	require.Error(t, err)
	_, err = New(f, WithWorkers(0))
	require.Error(t, err)
	_, err = New(f, WithMaxLineBytes(0))
	require.Error(t, err)
	_, err = New(f, WithLayer(-1, 0))
	require.Error(t, err)
	_, err = New(f, WithGlyphMode(format.GlyphMode(9)))
	require.Error(t, err)
	_, err = New(nil)
	require.Error(t, err)

	e, err := New(f, WithRowsPerPart(Unlimited), WithProgressEvery(10))
	require.NoError(t, err)
	require.NotNil(t, e.Tracker())
}

func TestScanLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"lf", "a\nb\n", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"cr", "a\rb\r", []string{"a", "b"}},
		{"mixed", "a\r\n\rb\nc", []string{"a", "", "b", "c"}},
		{"blank lines", "\n\n", []string{"", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := newLineReader(strings.NewReader(tt.input), DefaultMaxLineBytes)
			var got []string
			for {
				ln, ok := lr.next()
				if !ok {
					break
				}
				require.Equal(t, len(got), ln.row)
				got = append(got, ln.text)
			}
			require.NoError(t, lr.err())
			require.Equal(t, tt.want, got)
		})
	}
}

// oneByteReader forces the scanner to see "\r" and "\n" in separate reads.
type oneByteReader struct{ r io.Reader }

func (o oneByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	return o.r.Read(p[:1])
}

func TestScanLines_SplitCRLF(t *testing.T) {
	lr := newLineReader(oneByteReader{strings.NewReader("ab\r\ncd\r\n")}, DefaultMaxLineBytes)

	var got []string
	for {
		ln, ok := lr.next()
		if !ok {
			break
		}
		got = append(got, ln.text)
	}
	require.NoError(t, lr.err())
	require.Equal(t, []string{"ab", "cd"}, got)
}
