// Package compress provides the codecs applied to finished layout artifacts.
//
// A part is serialized into memory first, then optionally compressed as a whole
// before being written to its sink. Supported algorithms:
//
//   - None: artifacts are written as plain stream files
//   - Zstd: best ratio, suited to archiving large runs
//   - S2:   fast, moderate ratio
//   - LZ4:  fastest decompression
//
// The Zstd codec uses github.com/klauspost/compress/zstd by default. Building
// with the "gozstd" tag switches it to the cgo binding github.com/valyala/gozstd.
//
// All codecs are stateless values and safe for concurrent use.
package compress
