package textgds

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/textgds/emitter"
	"github.com/arloliu/textgds/errs"
	"github.com/arloliu/textgds/font"
	"github.com/arloliu/textgds/format"
)

const fontPath = "font/testdata/digits_4x6.txt"

func quiet() emitter.Option {
	return emitter.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestConvertFiles(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "pi.txt")
	require.NoError(t, os.WriteFile(textPath, []byte("3.14159265\n35897932\n38462643\n"), 0o600))

	sink, err := emitter.NewFileSink(filepath.Join(dir, "pi.gds"), emitter.WithSplitNames(true), emitter.WithCompression(format.CompressionZstd))
	require.NoError(t, err)

	rep, err := ConvertFiles(context.Background(), fontPath, textPath, sink,
		quiet(), emitter.WithRunLength(2), emitter.WithRowsPerPart(2), emitter.WithPixelSize(0.5))
	require.NoError(t, err)
	require.Len(t, rep.Parts, 2)
	require.Equal(t, 3, rep.TotalRows)
	require.Equal(t, 26, rep.TotalChars)

	// "3.14159265" is '3', '.', "14", "15", "92", "65"; "35897932" is four runs.
	require.Equal(t, 10, rep.Parts[0].Placements)
	require.Equal(t, 4, rep.Parts[1].Placements)

	sum, err := InspectFile(filepath.Join(dir, "pi_part001.gds.zst"))
	require.NoError(t, err)
	require.Equal(t, []string{emitter.TopSymbolName}, sum.Top)
	require.Equal(t, 1, sum.Boundaries, "only the shared pixel carries geometry")
	require.Greater(t, sum.References, rep.Parts[0].Placements)
}

func TestConvert_MissingGlyph(t *testing.T) {
	f, err := font.Load(fontPath)
	require.NoError(t, err)

	sink, err := emitter.NewMemorySink(nil)
	require.NoError(t, err)

	rep, err := Convert(context.Background(), strings.NewReader("0123\n45#6\n"), f, sink, quiet())

	var missing *errs.MissingGlyphError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, '#', missing.Char)
	require.Equal(t, 2, missing.Row)
	require.Equal(t, 3, missing.Column)
	require.Empty(t, rep.Parts)
	require.Zero(t, sink.Len())
}

func TestConvertFiles_Errors(t *testing.T) {
	sink, err := emitter.NewMemorySink(nil)
	require.NoError(t, err)

	_, err = ConvertFiles(context.Background(), "missing.font", "missing.txt", sink)
	require.Error(t, err)

	_, err = ConvertFiles(context.Background(), fontPath, filepath.Join(t.TempDir(), "missing.txt"), sink)
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = InspectFile(filepath.Join(t.TempDir(), "missing.gds"))
	require.Error(t, err)
}
