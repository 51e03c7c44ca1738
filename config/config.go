// Package config loads conversion settings for the command line tool.
//
// Settings come from, in increasing priority: built-in defaults, a YAML file,
// a .env file in the working directory, and TEXTGDS_* environment variables.
// Command line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/textgds/emitter"
	"github.com/arloliu/textgds/format"
	"github.com/arloliu/textgds/gds"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TEXTGDS_"

// Config holds every setting of a conversion.
type Config struct {
	Font   string `yaml:"font"`
	Input  string `yaml:"input"`
	Output string `yaml:"output"`

	PixelSize       float64 `yaml:"pixel_size"`
	RunLength       int     `yaml:"run_length"`
	RowsPerPart     int     `yaml:"rows_per_part"`      // <= 0: single part
	MaxRows         int     `yaml:"max_rows"`           // < 0: unlimited
	MaxCharsPerPart int     `yaml:"max_chars_per_part"` // <= 0: unlimited
	MaxLineBytes    int     `yaml:"max_line_bytes"`
	ProgressEvery   int     `yaml:"progress_every"`
	GlyphMode       string  `yaml:"glyph_mode"`
	Layer           int16   `yaml:"layer"`
	Datatype        int16   `yaml:"datatype"`
	Workers         int     `yaml:"workers"`

	Compression string  `yaml:"compression"`
	Unit        float64 `yaml:"unit"`
	Precision   float64 `yaml:"precision"`
	LibraryName string  `yaml:"library_name"`

	Manifest bool   `yaml:"manifest"`
	Ledger   string `yaml:"ledger"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		PixelSize:    emitter.DefaultPixelSize,
		RunLength:    emitter.DefaultRunLength,
		MaxRows:      emitter.Unlimited,
		MaxLineBytes: emitter.DefaultMaxLineBytes,
		GlyphMode:    "reference",
		Layer:        1,
		Workers:      1,
		Compression:  "none",
		Unit:         gds.DefaultUnit,
		Precision:    gds.DefaultPrecision,
		LibraryName:  gds.DefaultLibraryName,
		Manifest:     true,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load builds a configuration from path (optional), .env and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"FONT":         &c.Font,
		"INPUT":        &c.Input,
		"OUTPUT":       &c.Output,
		"GLYPH_MODE":   &c.GlyphMode,
		"COMPRESSION":  &c.Compression,
		"LIBRARY_NAME": &c.LibraryName,
		"LEDGER":       &c.Ledger,
		"LOG_LEVEL":    &c.LogLevel,
		"LOG_FORMAT":   &c.LogFormat,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"RUN_LENGTH":         &c.RunLength,
		"ROWS_PER_PART":      &c.RowsPerPart,
		"MAX_ROWS":           &c.MaxRows,
		"MAX_CHARS_PER_PART": &c.MaxCharsPerPart,
		"MAX_LINE_BYTES":     &c.MaxLineBytes,
		"PROGRESS_EVERY":     &c.ProgressEvery,
		"WORKERS":            &c.Workers,
	}
	for name, dst := range ints {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"PIXEL_SIZE": &c.PixelSize,
		"UNIT":       &c.Unit,
		"PRECISION":  &c.Precision,
	}
	for name, dst := range floats {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = f
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "MANIFEST"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sMANIFEST: %w", EnvPrefix, err)
		}
		c.Manifest = b
	}

	return nil
}

// Split reports whether the output may span several parts and therefore
// needs numbered artifact names.
func (c *Config) Split() bool {
	return c.RowsPerPart > 0 || c.MaxCharsPerPart > 0
}

// EmitterOptions translates the configuration into emitter options.
func (c *Config) EmitterOptions() ([]emitter.Option, error) {
	mode, err := format.ParseGlyphMode(c.GlyphMode)
	if err != nil {
		return nil, err
	}

	rowsPerPart := emitter.Unlimited
	if c.RowsPerPart > 0 {
		rowsPerPart = c.RowsPerPart
	}
	maxChars := emitter.Unlimited
	if c.MaxCharsPerPart > 0 {
		maxChars = c.MaxCharsPerPart
	}

	return []emitter.Option{
		emitter.WithPixelSize(c.PixelSize),
		emitter.WithRunLength(c.RunLength),
		emitter.WithRowsPerPart(rowsPerPart),
		emitter.WithMaxRows(c.MaxRows),
		emitter.WithMaxCharsPerPart(maxChars),
		emitter.WithMaxLineBytes(c.MaxLineBytes),
		emitter.WithProgressEvery(c.ProgressEvery),
		emitter.WithGlyphMode(mode),
		emitter.WithLayer(c.Layer, c.Datatype),
		emitter.WithWorkers(c.Workers),
	}, nil
}

// SinkOptions translates the configuration into file sink options.
func (c *Config) SinkOptions() ([]emitter.FileSinkOption, error) {
	ct, err := format.ParseCompression(c.Compression)
	if err != nil {
		return nil, err
	}

	enc, err := gds.NewEncoder(gds.WithUnits(c.Unit, c.Precision), gds.WithLibraryName(c.LibraryName))
	if err != nil {
		return nil, err
	}

	return []emitter.FileSinkOption{
		emitter.WithSplitNames(c.Split()),
		emitter.WithCompression(ct),
		emitter.WithEncoder(enc),
	}, nil
}

// Logger builds the structured logger described by LogLevel and LogFormat.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(c.LogFormat) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", c.LogFormat)
	}
}
