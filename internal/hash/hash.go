// Package hash wraps xxHash64 for symbol name keys and artifact checksums.
package hash

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

// Bytes computes the xxHash64 of data.
func Bytes(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Digest computes a running xxHash64 over everything written to it.
// It implements io.Writer so it can be placed behind an io.MultiWriter.
type Digest struct {
	d *xxhash.Digest
}

// NewDigest creates an empty digest.
func NewDigest() *Digest {
	return &Digest{d: xxhash.New()}
}

// Write adds p to the running checksum. It never fails.
func (d *Digest) Write(p []byte) (int, error) {
	return d.d.Write(p)
}

// Sum64 returns the checksum of the data written so far.
func (d *Digest) Sum64() uint64 {
	return d.d.Sum64()
}

// Hex returns the checksum as 16 lowercase hex digits, big-endian.
func (d *Digest) Hex() string {
	return Hex(d.d.Sum64())
}

// Hex formats a checksum as 16 lowercase hex digits, big-endian.
func Hex(sum uint64) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], sum)

	return hex.EncodeToString(b[:])
}
