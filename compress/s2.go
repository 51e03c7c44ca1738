package compress

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/s2"
)

// maxS2Size bounds the decoded size accepted from an S2 block header (4GiB).
const maxS2Size = 1 << 32

// S2Compressor compresses artifacts as a single S2 block.
//
// S2 trades ratio for speed. A part's repeated SREF records compress well even
// at the faster level, which makes S2 the codec of choice when conversion
// throughput matters more than archive size.
type S2Compressor struct{}

var _ Codec = (*S2Compressor)(nil)

// NewS2Compressor creates a new S2 codec.
func NewS2Compressor() S2Compressor {
	return S2Compressor{}
}

// Compress encodes data with s2.EncodeBetter.
//
// Returns:
//   - []byte: the S2 block (nil if input is empty)
//   - error: if data exceeds the largest block S2 can describe
func (c S2Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if s2.MaxEncodedLen(len(data)) < 0 {
		return nil, errors.New("s2: artifact too large for a single block")
	}

	return s2.EncodeBetter(nil, data), nil
}

// Decompress restores an S2 block, rejecting headers that declare an
// implausible size before any allocation happens.
func (c S2Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	n, err := s2.DecodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("s2: %w", err)
	}
	if int64(n) > maxS2Size {
		return nil, fmt.Errorf("s2: declared size %d exceeds limit", n)
	}

	return s2.Decode(nil, data)
}
