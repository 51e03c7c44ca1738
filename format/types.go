// Package format defines the enumerations shared by the compiler, serializer and sinks.
package format

import (
	"fmt"
	"strings"
)

type (
	CompressionType uint8
	GlyphMode       uint8
)

const (
	CompressionNone CompressionType = 0x1 // CompressionNone writes plain stream artifacts.
	CompressionZstd CompressionType = 0x2 // CompressionZstd wraps artifacts in a Zstandard frame.
	CompressionS2   CompressionType = 0x3 // CompressionS2 wraps artifacts in an S2 block.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 wraps artifacts in an LZ4 block.

	GlyphReference GlyphMode = 0x1 // GlyphReference builds glyphs from placements of one shared pixel symbol.
	GlyphMerged    GlyphMode = 0x2 // GlyphMerged builds glyphs from merged rectangles, without a pixel symbol.
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// Extension returns the file name suffix appended to compressed artifacts.
func (c CompressionType) Extension() string {
	switch c {
	case CompressionZstd:
		return ".zst"
	case CompressionS2:
		return ".s2"
	case CompressionLZ4:
		return ".lz4"
	default:
		return ""
	}
}

// ParseCompression parses a case-insensitive compression name.
// The empty string means CompressionNone.
func ParseCompression(s string) (CompressionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	case "s2":
		return CompressionS2, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression: %q", s)
	}
}

// CompressionFromPath infers the compression of an artifact from its file
// extension. Unknown extensions mean CompressionNone.
func CompressionFromPath(path string) CompressionType {
	for _, c := range []CompressionType{CompressionZstd, CompressionS2, CompressionLZ4} {
		if strings.HasSuffix(strings.ToLower(path), c.Extension()) {
			return c
		}
	}

	return CompressionNone
}

func (m GlyphMode) String() string {
	switch m {
	case GlyphReference:
		return "Reference"
	case GlyphMerged:
		return "Merged"
	default:
		return "Unknown"
	}
}

// ParseGlyphMode parses a case-insensitive glyph mode name.
// The empty string means GlyphReference.
func ParseGlyphMode(s string) (GlyphMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reference", "ref":
		return GlyphReference, nil
	case "merged", "merge":
		return GlyphMerged, nil
	default:
		return 0, fmt.Errorf("unknown glyph mode: %q", s)
	}
}
