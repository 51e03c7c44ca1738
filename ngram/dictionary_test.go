package ngram

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/textgds/errs"
	"github.com/arloliu/textgds/font"
	"github.com/arloliu/textgds/glyph"
	"github.com/arloliu/textgds/ident"
	"github.com/arloliu/textgds/layout"
)

func digitFont(t *testing.T, chars string) *font.Font {
	t.Helper()

	f, err := font.New(1, 1)
	require.NoError(t, err)
	for _, c := range chars {
		require.NoError(t, f.Add(c, "X"))
	}

	return f
}

func buildGlyphs(t *testing.T, f *font.Font) (*layout.Document, *glyph.Map) {
	t.Helper()

	r, err := glyph.NewRegistry(f, 1, nil, 1, 0)
	require.NoError(t, err)
	doc := layout.NewDocument(ident.New())
	m, err := r.Build(doc)
	require.NoError(t, err)

	return doc, m
}

func TestBuild_Completeness(t *testing.T) {
	for _, length := range []int{1, 2, 3} {
		doc, glyphs := buildGlyphs(t, digitFont(t, "0123456789"))
		before := doc.Len()

		d, err := Build(doc, glyphs, length)
		require.NoError(t, err)

		total := pow10(length)
		require.Equal(t, length, d.Length())
		require.Equal(t, total, d.Len())
		require.Equal(t, before+total, doc.Len())

		seen := make(map[layout.Handle]struct{}, total)
		for i := range total {
			key := d.Key(i)
			require.Len(t, key, length)

			h, ok := d.Lookup(key)
			require.True(t, ok, "missing key %s", key)
			require.Equal(t, d.Handle(i), h)
			seen[h] = struct{}{}

			sym, err := doc.Lookup(h)
			require.NoError(t, err)
			require.Len(t, sym.Placements, length)

			for k, p := range sym.Placements {
				want, _ := glyphs.Lookup(rune(key[k]))
				require.Equal(t, want, p.Child)
				require.Equal(t, layout.Point{X: float64(k) * glyphs.AdvanceX, Y: 0}, p.Origin)
			}
		}
		require.Len(t, seen, total)
	}
}

func TestBuild_ZeroLength(t *testing.T) {
	// No digit glyphs are required for an empty dictionary.
	doc, glyphs := buildGlyphs(t, digitFont(t, "AB"))
	before := doc.Len()

	d, err := Build(doc, glyphs, 0)
	require.NoError(t, err)
	require.Equal(t, 0, d.Len())
	require.Equal(t, before, doc.Len())

	_, ok := d.Lookup("")
	require.False(t, ok)
	_, ok = d.Match("123", 0)
	require.False(t, ok)
}

func TestBuild_InvalidLength(t *testing.T) {
	doc, glyphs := buildGlyphs(t, digitFont(t, "0123456789"))

	_, err := Build(doc, glyphs, -1)
	require.ErrorIs(t, err, errs.ErrInvalidRunLength)

	_, err = Build(doc, glyphs, MaxLength+1)
	require.ErrorIs(t, err, errs.ErrInvalidRunLength)
}

func TestBuild_MissingDigit(t *testing.T) {
	doc, glyphs := buildGlyphs(t, digitFont(t, "012345689"))

	_, err := Build(doc, glyphs, 2)
	var missing *errs.MissingGlyphError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, '7', missing.Char)
	require.Equal(t, 0, missing.Row)
}

func TestBuild_Progress(t *testing.T) {
	doc, glyphs := buildGlyphs(t, digitFont(t, "0123456789"))

	var calls [][2]int
	_, err := Build(doc, glyphs, 2, WithProgress(40, func(built, total int) {
		calls = append(calls, [2]int{built, total})
	}))
	require.NoError(t, err)
	require.Equal(t, [][2]int{{40, 100}, {80, 100}, {100, 100}}, calls)
}

func TestDictionary_Match(t *testing.T) {
	doc, glyphs := buildGlyphs(t, digitFont(t, "0123456789"))
	d, err := Build(doc, glyphs, 3)
	require.NoError(t, err)

	tests := []struct {
		s   string
		pos int
		idx int
		ok  bool
	}{
		{"123", 0, 123, true},
		{"x0070", 1, 7, true},
		{"12", 0, 0, false},
		{"1234", 2, 0, false},
		{"1a3", 0, 0, false},
		{"9 99", 0, 0, false},
		{"999", -1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.s, func(t *testing.T) {
			idx, ok := d.Match(tt.s, tt.pos)
			require.Equal(t, tt.ok, ok)
			if ok {
				require.Equal(t, tt.idx, idx)
			}
		})
	}

	_, ok := d.Lookup("0123")
	require.False(t, ok)
	_, ok = d.Lookup("12a")
	require.False(t, ok)
}

func TestFormatKey(t *testing.T) {
	require.Equal(t, "007", FormatKey(7, 3))
	require.Equal(t, "999999", FormatKey(999999, 6))
	require.Equal(t, "0", FormatKey(0, 1))
}
