package emitter

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/textgds/errs"
)

const initialLineBuffer = 64 * 1024

// scanLines splits on "\n", "\r\n" and a lone "\r". The terminator is not
// part of the token, and a final line without terminator is still returned.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}

			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}

		// A trailing '\r' may be the first half of "\r\n".
		return 0, nil, nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}

// lineTerminatorRoom is the scanner headroom for a "\r\n" terminator.
const lineTerminatorRoom = 2

// lineReader yields input lines with their 0-based row index.
type lineReader struct {
	sc      *bufio.Scanner
	max     int
	row     int
	tooLong bool
}

// newLineReader accepts lines of up to maxLineBytes bytes, terminator excluded.
func newLineReader(r io.Reader, maxLineBytes int) *lineReader {
	limit := maxLineBytes + lineTerminatorRoom
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(initialLineBuffer, limit)), limit)
	sc.Split(scanLines)

	return &lineReader{sc: sc, max: maxLineBytes}
}

// next returns the next line and its row, or false at the end of input.
func (lr *lineReader) next() (line, bool) {
	if lr.tooLong || !lr.sc.Scan() {
		return line{}, false
	}
	if len(lr.sc.Bytes()) > lr.max {
		lr.tooLong = true
		return line{}, false
	}
	ln := line{row: lr.row, text: lr.sc.Text()}
	lr.row++

	return ln, true
}

func (lr *lineReader) err() error {
	if lr.tooLong {
		return fmt.Errorf("%w: row %d", errs.ErrLineTooLong, lr.row+1)
	}
	err := lr.sc.Err()
	if errors.Is(err, bufio.ErrTooLong) {
		return fmt.Errorf("%w: row %d", errs.ErrLineTooLong, lr.row+1)
	}

	return err
}

// line is one input row. A line with err set aborts the receiving part.
type line struct {
	row  int
	text string
	err  error
}
