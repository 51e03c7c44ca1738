//go:build gozstd

package compress

import (
	"fmt"

	"github.com/valyala/gozstd"
)

// gozstdLevel matches the klauspost SpeedDefault level so both builds produce
// artifacts of comparable size that either build can read.
const gozstdLevel = 3

// Compress compresses a whole artifact into one Zstandard frame with libzstd.
func (c ZstdCompressor) Compress(data []byte) ([]byte, error) {
	return gozstd.CompressLevel(nil, data, gozstdLevel), nil
}

// Decompress decodes a Zstandard frame written by either zstd build.
func (c ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	out, err := gozstd.Decompress(nil, data)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}

	return out, nil
}
