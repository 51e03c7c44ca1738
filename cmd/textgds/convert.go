package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/arloliu/textgds"
	"github.com/arloliu/textgds/config"
	"github.com/arloliu/textgds/emitter"
	"github.com/arloliu/textgds/manifest"
	"github.com/arloliu/textgds/usage"
)

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a text file into one or more GDSII parts",
		Example: `  textgds convert -f digits.font -i pi.txt -o pi.gds -L 3 --rows-per-part 10000
  textgds convert -c textgds.yaml --compression zstd`,
		Args: cobra.NoArgs,
		RunE: runConvert,
	}

	f := cmd.Flags()
	f.StringP("font", "f", "", "font file")
	f.StringP("input", "i", "", "input text file")
	f.StringP("output", "o", "", "output path; parts are named <base>_partNNN<ext>")
	f.Float64("pixel-size", emitter.DefaultPixelSize, "font pixel edge in user units")
	f.IntP("run-length", "L", emitter.DefaultRunLength, "dictionary run length, 0 disables the dictionary")
	f.Int("rows-per-part", 0, "maximum rows per part, 0 for a single part")
	f.Int("max-rows", emitter.Unlimited, "stop after this many rows, negative for no limit")
	f.Int("max-chars-per-part", 0, "close a part once it holds this many characters, 0 for no limit")
	f.Int("progress-every", 0, "log progress every N rows")
	f.String("glyph-mode", "reference", "glyph geometry: reference or merged")
	f.Int("workers", 1, "parts built concurrently")
	f.String("compression", "none", "artifact compression: none, zstd, s2 or lz4")
	f.Bool("manifest", true, "write <output>.manifest.yaml")
	f.String("ledger", "", "SQLite ledger recording the run")
	f.String("log-level", "info", "debug, info, warn or error")
	f.Int("usage-top", emitter.DefaultUsageTop, "most and least used dictionary keys to report")

	return cmd
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(cfg *config.Config, flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(fl *pflag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "font":
			cfg.Font, err = flags.GetString(fl.Name)
		case "input":
			cfg.Input, err = flags.GetString(fl.Name)
		case "output":
			cfg.Output, err = flags.GetString(fl.Name)
		case "pixel-size":
			cfg.PixelSize, err = flags.GetFloat64(fl.Name)
		case "run-length":
			cfg.RunLength, err = flags.GetInt(fl.Name)
		case "rows-per-part":
			cfg.RowsPerPart, err = flags.GetInt(fl.Name)
		case "max-rows":
			cfg.MaxRows, err = flags.GetInt(fl.Name)
		case "max-chars-per-part":
			cfg.MaxCharsPerPart, err = flags.GetInt(fl.Name)
		case "progress-every":
			cfg.ProgressEvery, err = flags.GetInt(fl.Name)
		case "glyph-mode":
			cfg.GlyphMode, err = flags.GetString(fl.Name)
		case "workers":
			cfg.Workers, err = flags.GetInt(fl.Name)
		case "compression":
			cfg.Compression, err = flags.GetString(fl.Name)
		case "manifest":
			cfg.Manifest, err = flags.GetBool(fl.Name)
		case "ledger":
			cfg.Ledger, err = flags.GetString(fl.Name)
		case "log-level":
			cfg.LogLevel, err = flags.GetString(fl.Name)
		}
	})

	return err
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cfg, cmd.Flags()); err != nil {
		return nil, err
	}

	return cfg, nil
}

func runConvert(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Font == "" || cfg.Input == "" || cfg.Output == "" {
		return fmt.Errorf("font, input and output are required")
	}

	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	usageTop, err := cmd.Flags().GetInt("usage-top")
	if err != nil {
		return err
	}

	opts, err := cfg.EmitterOptions()
	if err != nil {
		return err
	}
	tracker := usage.NewTracker()
	opts = append(opts, emitter.WithLogger(logger), emitter.WithTracker(tracker), emitter.WithUsageTop(usageTop))

	sinkOpts, err := cfg.SinkOptions()
	if err != nil {
		return err
	}
	sink, err := emitter.NewFileSink(cfg.Output, sinkOpts...)
	if err != nil {
		return err
	}

	runID := manifest.NewRunID()
	logger.Info("conversion started", "run_id", runID, "font", cfg.Font, "input", cfg.Input, "output", cfg.Output,
		"run_length", cfg.RunLength, "rows_per_part", cfg.RowsPerPart, "workers", cfg.Workers)

	rep, runErr := textgds.ConvertFiles(cmd.Context(), cfg.Font, cfg.Input, sink, opts...)

	m := manifest.FromReport(runID, rep, manifest.Settings{
		PixelSize:       cfg.PixelSize,
		RunLength:       cfg.RunLength,
		RowsPerPart:     cfg.RowsPerPart,
		MaxRows:         cfg.MaxRows,
		MaxCharsPerPart: cfg.MaxCharsPerPart,
		GlyphMode:       cfg.GlyphMode,
		Compression:     cfg.Compression,
		Workers:         cfg.Workers,
	}, runErr)
	m.Input, m.Font, m.Output = cfg.Input, cfg.Font, cfg.Output

	if cfg.Manifest {
		path := manifest.PathFor(cfg.Output)
		if err := m.Write(path); err != nil {
			logger.Error("manifest not written", "path", path, "error", err)
		}
	}
	if cfg.Ledger != "" {
		if err := recordRun(cmd, cfg.Ledger, m, tracker); err != nil {
			logger.Error("ledger not updated", "path", cfg.Ledger, "error", err)
		}
	}

	printReport(cmd.OutOrStdout(), rep)
	if runErr != nil {
		return fmt.Errorf("conversion failed after %s rows: %w", humanize.Comma(int64(rep.RowsProcessed)), runErr)
	}
	logger.Info("conversion finished", "run_id", runID, "parts", len(rep.Parts))

	return nil
}

func recordRun(cmd *cobra.Command, path string, m *manifest.Manifest, tracker *usage.Tracker) error {
	ledger, err := manifest.OpenLedger(path)
	if err != nil {
		return err
	}
	defer ledger.Close()

	return ledger.Record(cmd.Context(), m, tracker.Snapshot())
}

func printReport(w io.Writer, rep emitter.Report) {
	for _, p := range rep.Parts {
		fmt.Fprintf(w, "part %d: %s rows, %s placements, %s symbols, %s -> %s\n",
			p.Index,
			humanize.Comma(int64(p.Rows)),
			humanize.Comma(int64(p.Placements)),
			humanize.Comma(int64(p.Symbols)),
			humanize.Bytes(uint64(p.Artifact.Bytes)),
			p.Artifact.Path)
	}

	ratio := 0.0
	if rep.TotalChars > 0 {
		ratio = float64(rep.TotalPlacements) / float64(rep.TotalChars)
	}
	fmt.Fprintf(w, "total: %s rows, %s characters, %s placements (ratio %.3f)\n",
		humanize.Comma(int64(rep.TotalRows)),
		humanize.Comma(int64(rep.TotalChars)),
		humanize.Comma(int64(rep.TotalPlacements)),
		ratio)

	u := rep.Usage
	fmt.Fprintf(w, "dictionary: %s placements over %s keys\n",
		humanize.Comma(int64(u.TotalPlacements)), humanize.Comma(int64(u.UniqueKeysUsed)))
	printEntries(w, "most used", u.Top)
	printEntries(w, "least used", u.Bottom)
}

func printEntries(w io.Writer, title string, entries []usage.Entry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s:", title)
	for _, e := range entries {
		fmt.Fprintf(w, " %s=%s", e.Key, humanize.Comma(int64(e.Count)))
	}
	fmt.Fprintln(w)
}
