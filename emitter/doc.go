// Package emitter streams text through the row compiler and cuts the result
// into bounded, self-contained parts.
//
// Each part is hermetic. It gets a fresh identifier sequence, its own glyph
// and dictionary symbols, and one top-level symbol holding the row
// placements. A finished part is finalized and handed to a Sink, after which
// nothing of it is kept, so peak memory depends on the part limits and not on
// the input length.
//
// A part moves through three states:
//
//	BUILDING  rows are compiled into the part's document
//	FLUSHING  the part limit was reached or the input ended; the part is serialized
//	DONE      the part was written, or it failed and produced no artifact
//
// Parts are opened lazily when a line arrives. Empty input still yields one
// empty part unless the overall row limit is zero.
//
// With more than one worker, several parts are built concurrently. The usage
// tracker is the only state they share; per-part counts are merged into it
// when the part has been written.
package emitter
