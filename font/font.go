// Package font loads fixed-size bitmap fonts.
//
// The text format is line oriented:
//
//	# comment
//	3x5
//	`0`
//	XXX
//	X.X
//	X.X
//	X.X
//	XXX
//	0x31
//	.X.
//	...
//
// The first non-blank, non-comment line is the glyph size WxH. Each glyph is a
// key line followed by exactly H bitmap rows of exactly W characters; 'X' is an
// "on" cell and any other character is "off". A key is a backticked literal
// (`A`), a hex code point (0x41), or a single bare character. Blank lines and
// lines starting with '#' are skipped between glyphs, never inside a bitmap.
package font

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/arloliu/textgds/errs"
)

// OnCell is the bitmap character for an "on" cell.
const OnCell = 'X'

var headerPattern = regexp.MustCompile(`^\s*(\d+)\s*[xX]\s*(\d+)\s*$`)

// Bitmap is a glyph image; Rows[0] is the top visual row.
type Bitmap struct {
	Rows [][]bool
}

// On reports whether cell (x, y) is on, with y counted from the top row.
func (b Bitmap) On(x, y int) bool {
	return b.Rows[y][x]
}

// OnCount returns the number of on cells.
func (b Bitmap) OnCount() int {
	n := 0
	for _, row := range b.Rows {
		for _, on := range row {
			if on {
				n++
			}
		}
	}

	return n
}

// Font is a set of same-sized glyph bitmaps.
type Font struct {
	Width  int
	Height int
	Glyphs map[rune]Bitmap
	// Order lists the glyphs in declaration order so symbol creation is deterministic.
	Order []rune
}

// New creates an empty font of the given glyph size.
func New(width, height int) (*Font, error) {
	if width <= 0 || height <= 0 {
		return nil, &errs.FontFormatError{Reason: fmt.Sprintf("glyph size must be positive, got %dx%d", width, height)}
	}

	return &Font{
		Width:  width,
		Height: height,
		Glyphs: make(map[rune]Bitmap),
	}, nil
}

// Add registers a glyph. Rows must be Height strings of Width characters.
// A later declaration of the same character replaces the earlier bitmap.
func (f *Font) Add(ch rune, rows ...string) error {
	if len(rows) != f.Height {
		return &errs.FontFormatError{
			Glyph:  string(ch),
			Reason: fmt.Sprintf("expected %d rows, got %d", f.Height, len(rows)),
		}
	}

	bm := Bitmap{Rows: make([][]bool, f.Height)}
	for y, row := range rows {
		cells, err := parseRow(row, f.Width)
		if err != nil {
			return &errs.FontFormatError{Glyph: string(ch), Reason: err.Error()}
		}
		bm.Rows[y] = cells
	}

	if _, exists := f.Glyphs[ch]; !exists {
		f.Order = append(f.Order, ch)
	}
	f.Glyphs[ch] = bm

	return nil
}

// Has reports whether the font declares ch.
func (f *Font) Has(ch rune) bool {
	_, ok := f.Glyphs[ch]
	return ok
}

// Load reads a font file from path.
func Load(path string) (*Font, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open font: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a font in the text format described in the package documentation.
//
// Malformed headers, bad keys, wrong row widths and truncated bitmaps return an
// *errs.FontFormatError naming the glyph and line.
func Parse(r io.Reader) (*Font, error) {
	scanner := bufio.NewScanner(r)
	lineNo := 0

	next := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		lineNo++

		return strings.TrimRight(scanner.Text(), "\r"), true
	}

	var f *Font
	for f == nil {
		line, ok := next()
		if !ok {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("read font: %w", err)
			}

			return nil, &errs.FontFormatError{Line: lineNo, Reason: "font is empty"}
		}
		if skippable(line) {
			continue
		}

		m := headerPattern.FindStringSubmatch(line)
		if m == nil {
			return nil, &errs.FontFormatError{Line: lineNo, Reason: fmt.Sprintf("first line must be WxH like '4x6', got %q", line)}
		}
		w, _ := strconv.Atoi(m[1])
		h, _ := strconv.Atoi(m[2])

		var err error
		if f, err = New(w, h); err != nil {
			return nil, withLine(err, lineNo)
		}
	}

	for {
		line, ok := next()
		if !ok {
			break
		}
		if skippable(line) {
			continue
		}

		keyLine := lineNo
		ch, err := parseKey(line)
		if err != nil {
			return nil, &errs.FontFormatError{Glyph: strings.TrimSpace(line), Line: keyLine, Reason: err.Error()}
		}

		rows := make([]string, 0, f.Height)
		for range f.Height {
			row, ok := next()
			if !ok {
				if err := scanner.Err(); err != nil {
					return nil, fmt.Errorf("read font: %w", err)
				}

				return nil, &errs.FontFormatError{
					Glyph:  string(ch),
					Line:   lineNo,
					Reason: fmt.Sprintf("unexpected end of font after %d of %d rows", len(rows), f.Height),
				}
			}
			rows = append(rows, strings.TrimSpace(row))
		}

		if err := f.Add(ch, rows...); err != nil {
			return nil, withLine(err, keyLine)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}

	return f, nil
}

func withLine(err error, line int) error {
	var ferr *errs.FontFormatError
	if errors.As(err, &ferr) {
		ferr.Line = line
	}

	return err
}

func skippable(line string) bool {
	return strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#")
}

// parseKey decodes a glyph key line.
func parseKey(line string) (rune, error) {
	s := strings.TrimSpace(line)

	if len(s) >= 3 && s[0] == '`' && s[len(s)-1] == '`' {
		inner := s[1 : len(s)-1]
		if utf8.RuneCountInString(inner) != 1 {
			return 0, fmt.Errorf("glyph literal must be a single character, got %q", inner)
		}
		r, _ := utf8.DecodeRuneInString(inner)

		return r, nil
	}

	if strings.HasPrefix(strings.ToLower(s), "0x") {
		code, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil || code > utf8.MaxRune {
			return 0, fmt.Errorf("invalid hex glyph code %q", s)
		}

		return rune(code), nil
	}

	if utf8.RuneCountInString(s) == 1 {
		r, _ := utf8.DecodeRuneInString(s)
		return r, nil
	}

	return 0, fmt.Errorf("unrecognized glyph key %q", s)
}

func parseRow(row string, width int) ([]bool, error) {
	if n := utf8.RuneCountInString(row); n != width {
		return nil, fmt.Errorf("row length %d != width %d: %q", n, width, row)
	}

	cells := make([]bool, 0, width)
	for _, c := range row {
		cells = append(cells, c == OnCell)
	}

	return cells, nil
}
