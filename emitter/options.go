package emitter

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/arloliu/textgds/errs"
	"github.com/arloliu/textgds/format"
	"github.com/arloliu/textgds/internal/options"
	"github.com/arloliu/textgds/ngram"
	"github.com/arloliu/textgds/usage"
)

const (
	// DefaultPixelSize is the edge of one font pixel in user units.
	DefaultPixelSize = 1.0
	// DefaultRunLength is the dictionary run length.
	DefaultRunLength = 2
	// DefaultMaxLineBytes bounds a single input line.
	DefaultMaxLineBytes = 64 * 1024 * 1024
	// DefaultUsageTop is how many keys the usage summary lists at each end.
	DefaultUsageTop = 10
	// TopSymbolName names the top-level symbol of every part.
	TopSymbolName = "TOP_CELL"
	// Unlimited disables a row or character limit.
	Unlimited = -1
)

type config struct {
	pixelSize       float64
	runLength       int
	rowsPerPart     int
	maxRows         int
	maxCharsPerPart int
	progressEvery   int
	glyphMode       format.GlyphMode
	layer           int16
	datatype        int16
	workers         int
	maxLineBytes    int
	usageTop        int
	logger          *slog.Logger
	tracker         *usage.Tracker
}

func defaultConfig() *config {
	return &config{
		pixelSize:       DefaultPixelSize,
		runLength:       DefaultRunLength,
		rowsPerPart:     Unlimited,
		maxRows:         Unlimited,
		maxCharsPerPart: Unlimited,
		glyphMode:       format.GlyphReference,
		layer:           1,
		workers:         1,
		maxLineBytes:    DefaultMaxLineBytes,
		usageTop:        DefaultUsageTop,
	}
}

// Option configures an Emitter.
type Option = options.Option[*config]

// WithPixelSize sets the edge length of one font pixel in user units.
func WithPixelSize(size float64) Option {
	return options.New(func(c *config) error {
		if !(size > 0) || math.IsInf(size, 0) {
			return fmt.Errorf("%w: %v", errs.ErrInvalidPixelSize, size)
		}
		c.pixelSize = size

		return nil
	})
}

// WithRunLength sets the dictionary run length L. Zero disables the dictionary.
func WithRunLength(length int) Option {
	return options.New(func(c *config) error {
		if length < 0 || length > ngram.MaxLength {
			return fmt.Errorf("%w: %d (allowed 0..%d)", errs.ErrInvalidRunLength, length, ngram.MaxLength)
		}
		c.runLength = length

		return nil
	})
}

// WithRowsPerPart caps the rows of one part. Unlimited (or any negative value)
// keeps every row in a single part.
func WithRowsPerPart(rows int) Option {
	return options.New(func(c *config) error {
		if rows == 0 {
			return fmt.Errorf("rows per part must be positive or unlimited")
		}
		c.rowsPerPart = max(rows, Unlimited)

		return nil
	})
}

// WithMaxRows stops reading after rows input lines. Zero produces no parts.
func WithMaxRows(rows int) Option {
	return options.NoError(func(c *config) {
		c.maxRows = max(rows, Unlimited)
	})
}

// WithMaxCharsPerPart closes a part after the row that reaches chars input
// characters.
func WithMaxCharsPerPart(chars int) Option {
	return options.New(func(c *config) error {
		if chars == 0 {
			return fmt.Errorf("chars per part must be positive or unlimited")
		}
		c.maxCharsPerPart = max(chars, Unlimited)

		return nil
	})
}

// WithProgressEvery logs progress every n rows. Zero disables progress logs.
func WithProgressEvery(n int) Option {
	return options.NoError(func(c *config) {
		c.progressEvery = max(n, 0)
	})
}

// WithGlyphMode selects how glyph symbols are built.
func WithGlyphMode(mode format.GlyphMode) Option {
	return options.New(func(c *config) error {
		switch mode {
		case format.GlyphReference, format.GlyphMerged:
			c.glyphMode = mode
			return nil
		default:
			return fmt.Errorf("unsupported glyph mode: %s", mode)
		}
	})
}

// WithLayer sets the layer and datatype of the glyph geometry.
func WithLayer(layer, datatype int16) Option {
	return options.New(func(c *config) error {
		if layer < 0 || datatype < 0 {
			return fmt.Errorf("layer and datatype must not be negative: %d/%d", layer, datatype)
		}
		c.layer = layer
		c.datatype = datatype

		return nil
	})
}

// WithWorkers sets how many parts may be built at the same time.
func WithWorkers(n int) Option {
	return options.New(func(c *config) error {
		if n < 1 {
			return fmt.Errorf("workers must be at least 1, got %d", n)
		}
		c.workers = n

		return nil
	})
}

// WithMaxLineBytes bounds the length of one input line, terminator excluded.
// A line of exactly n bytes is accepted.
func WithMaxLineBytes(n int) Option {
	return options.New(func(c *config) error {
		if n < 1 {
			return fmt.Errorf("max line bytes must be positive, got %d", n)
		}
		c.maxLineBytes = n

		return nil
	})
}

// WithUsageTop sets how many most and least used keys the report lists.
func WithUsageTop(n int) Option {
	return options.NoError(func(c *config) {
		c.usageTop = max(n, 0)
	})
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(c *config) {
		c.logger = logger
	})
}

// WithTracker records dictionary usage into an existing tracker, for example
// one shared by several runs.
func WithTracker(t *usage.Tracker) Option {
	return options.NoError(func(c *config) {
		c.tracker = t
	})
}
