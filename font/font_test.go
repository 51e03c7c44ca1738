package font

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/textgds/errs"
)

func requireFontError(t *testing.T, err error) *errs.FontFormatError {
	t.Helper()

	var ferr *errs.FontFormatError
	require.True(t, errors.As(err, &ferr), "expected FontFormatError, got %v", err)

	return ferr
}

func TestLoad_Testdata(t *testing.T) {
	f, err := Load(filepath.Join("testdata", "digits_4x6.txt"))
	require.NoError(t, err)

	require.Equal(t, 4, f.Width)
	require.Equal(t, 6, f.Height)
	require.Len(t, f.Glyphs, 12)
	require.Equal(t, []rune("0123456789.π"), f.Order)

	for _, d := range "0123456789" {
		require.True(t, f.Has(d), "missing digit %q", d)
	}

	one := f.Glyphs['1']
	require.True(t, one.On(1, 0))
	require.False(t, one.On(0, 0))
	require.Equal(t, 8, one.OnCount())
	require.Equal(t, 1, f.Glyphs['.'].OnCount())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}

func TestParse_Keys(t *testing.T) {
	src := strings.Join([]string{
		"1x1",
		"`A`",
		"X",
		"0x42",
		".",
		"C",
		"X",
		"``` ",
		"X",
	}, "\n")

	// "```" is a backticked backtick.
	f, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, []rune{'A', 'B', 'C', '`'}, f.Order)
	require.Equal(t, 0, f.Glyphs['B'].OnCount())
}

func TestParse_SpaceGlyph(t *testing.T) {
	f, err := Parse(strings.NewReader("2x1\n` `\n..\n0x20\n..\n"))
	require.NoError(t, err)
	require.True(t, f.Has(' '))
	require.Len(t, f.Order, 1)
}

func TestParse_CRLF(t *testing.T) {
	f, err := Parse(strings.NewReader("2x2\r\n`7`\r\nXX\r\n.X\r\n"))
	require.NoError(t, err)
	require.Equal(t, 3, f.Glyphs['7'].OnCount())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		glyph string
		line  int
		msg   string
	}{
		{"empty", "", "", 0, "empty"},
		{"comments only", "# nothing\n\n", "", 2, "empty"},
		{"bad header", "four by six\n", "", 1, "WxH"},
		{"zero size", "0x6\n", "", 1, "positive"},
		{"bad key", "1x1\nAB\nX\n", "AB", 2, "unrecognized"},
		{"bad hex", "1x1\n0xZZ\nX\n", "0xZZ", 2, "hex"},
		{"long literal", "1x1\n`AB`\nX\n", "`AB`", 2, "single character"},
		{"wrong width", "2x2\n`1`\nXX\nX\n", "1", 2, "row length 1 != width 2"},
		{"truncated", "2x3\n`1`\nXX\n", "1", 3, "unexpected end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src))
			require.Error(t, err)

			ferr := requireFontError(t, err)
			require.Equal(t, tt.glyph, ferr.Glyph)
			require.Equal(t, tt.line, ferr.Line)
			require.Contains(t, ferr.Error(), tt.msg)
		})
	}
}

func TestFont_Add(t *testing.T) {
	f, err := New(2, 2)
	require.NoError(t, err)

	require.NoError(t, f.Add('1', ".X", ".X"))
	require.NoError(t, f.Add('1', "XX", "XX"))
	require.Equal(t, []rune{'1'}, f.Order)
	require.Equal(t, 4, f.Glyphs['1'].OnCount())

	err = f.Add('2', "XX")
	ferr := requireFontError(t, err)
	require.Equal(t, "2", ferr.Glyph)

	_, err = New(0, 2)
	requireFontError(t, err)
}
