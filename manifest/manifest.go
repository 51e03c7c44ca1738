// Package manifest records what a conversion run produced.
//
// A Manifest is a YAML document written next to the output. It names every
// artifact with its size and checksum, the settings that produced it, and the
// dictionary usage summary. A Ledger keeps the same information for many runs
// in a SQLite database.
package manifest

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/textgds/emitter"
)

// Suffix is appended to the output path to name the manifest file.
const Suffix = ".manifest.yaml"

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Settings are the conversion parameters of a run.
type Settings struct {
	PixelSize       float64 `yaml:"pixel_size"`
	RunLength       int     `yaml:"run_length"`
	RowsPerPart     int     `yaml:"rows_per_part"`
	MaxRows         int     `yaml:"max_rows"`
	MaxCharsPerPart int     `yaml:"max_chars_per_part"`
	GlyphMode       string  `yaml:"glyph_mode"`
	Compression     string  `yaml:"compression"`
	Workers         int     `yaml:"workers"`
}

// Part describes one artifact.
type Part struct {
	Index      int    `yaml:"index"`
	Path       string `yaml:"path,omitempty"`
	FirstRow   int    `yaml:"first_row"`
	Rows       int    `yaml:"rows"`
	Chars      int    `yaml:"chars"`
	Placements int    `yaml:"placements"`
	Symbols    int    `yaml:"symbols"`
	RawBytes   int64  `yaml:"raw_bytes"`
	Bytes      int64  `yaml:"bytes"`
	Checksum   string `yaml:"xxhash64"`
}

// KeyCount is one dictionary key with its placement count.
type KeyCount struct {
	Key   string `yaml:"key"`
	Count uint64 `yaml:"count"`
}

// Usage is the dictionary usage summary.
type Usage struct {
	TotalPlacements uint64     `yaml:"total_placements"`
	UniqueKeys      int        `yaml:"unique_keys"`
	Top             []KeyCount `yaml:"top,omitempty"`
	Bottom          []KeyCount `yaml:"bottom,omitempty"`
}

// Totals are the run-wide counters.
type Totals struct {
	Parts         int `yaml:"parts"`
	Rows          int `yaml:"rows"`
	RowsProcessed int `yaml:"rows_processed"`
	Chars         int `yaml:"chars"`
	Placements    int `yaml:"placements"`
}

// Manifest describes one run.
type Manifest struct {
	RunID     string    `yaml:"run_id"`
	CreatedAt time.Time `yaml:"created_at"`
	Status    string    `yaml:"status"`
	Error     string    `yaml:"error,omitempty"`
	Input     string    `yaml:"input,omitempty"`
	Font      string    `yaml:"font,omitempty"`
	Output    string    `yaml:"output,omitempty"`
	Settings  Settings  `yaml:"settings"`
	Totals    Totals    `yaml:"totals"`
	Parts     []Part    `yaml:"parts"`
	Usage     Usage     `yaml:"usage"`
}

// NewRunID returns a time-ordered unique run identifier.
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

// FromReport builds a manifest from an emitter report. runErr is the error the
// run ended with, if any.
func FromReport(runID string, rep emitter.Report, settings Settings, runErr error) *Manifest {
	m := &Manifest{
		RunID:     runID,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Status:    StatusOK,
		Settings:  settings,
		Totals: Totals{
			Parts:         len(rep.Parts),
			Rows:          rep.TotalRows,
			RowsProcessed: rep.RowsProcessed,
			Chars:         rep.TotalChars,
			Placements:    rep.TotalPlacements,
		},
		Usage: Usage{
			TotalPlacements: rep.Usage.TotalPlacements,
			UniqueKeys:      rep.Usage.UniqueKeysUsed,
		},
	}
	if runErr != nil {
		m.Status = StatusFailed
		m.Error = runErr.Error()
	}

	m.Parts = make([]Part, 0, len(rep.Parts))
	for _, p := range rep.Parts {
		m.Parts = append(m.Parts, Part{
			Index:      p.Index,
			Path:       p.Artifact.Path,
			FirstRow:   p.FirstRow,
			Rows:       p.Rows,
			Chars:      p.Chars,
			Placements: p.Placements,
			Symbols:    p.Symbols,
			RawBytes:   p.Artifact.RawBytes,
			Bytes:      p.Artifact.Bytes,
			Checksum:   p.Artifact.Checksum,
		})
	}
	for _, e := range rep.Usage.Top {
		m.Usage.Top = append(m.Usage.Top, KeyCount{Key: e.Key, Count: e.Count})
	}
	for _, e := range rep.Usage.Bottom {
		m.Usage.Bottom = append(m.Usage.Bottom, KeyCount{Key: e.Key, Count: e.Count})
	}

	return m
}

// PathFor returns the manifest path for an output path.
func PathFor(output string) string {
	return output + Suffix
}

// Write stores m as YAML at path.
func (m *Manifest) Write(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// Read loads a manifest written by Write.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	return &m, nil
}
