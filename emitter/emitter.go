package emitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/arloliu/textgds/compiler"
	"github.com/arloliu/textgds/errs"
	"github.com/arloliu/textgds/font"
	"github.com/arloliu/textgds/glyph"
	"github.com/arloliu/textgds/ident"
	"github.com/arloliu/textgds/internal/options"
	"github.com/arloliu/textgds/layout"
	"github.com/arloliu/textgds/ngram"
	"github.com/arloliu/textgds/usage"
)

const (
	lineQueueSize     = 256
	dictProgressEvery = 100_000
)

// State is the lifecycle state of one part.
type State uint8

const (
	StateBuilding State = iota + 1
	StateFlushing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "BUILDING"
	case StateFlushing:
		return "FLUSHING"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// PartReport describes one written part.
type PartReport struct {
	Index      int
	FirstRow   int // 0-based, -1 for an empty part
	Rows       int
	Chars      int
	Placements int
	Symbols    int
	Artifact   Artifact
}

// Report summarizes a run. It is returned even when the run fails and then
// covers the parts written before the failure.
type Report struct {
	Parts           []PartReport // ordered by index
	TotalRows       int          // rows in written parts
	RowsProcessed   int          // rows compiled, including those of a failed part
	TotalChars      int
	TotalPlacements int
	Usage           usage.Summary
}

// Emitter converts text streams into partitioned layout documents.
// One Emitter may serve several runs; its tracker accumulates across them.
type Emitter struct {
	cfg      *config
	registry *glyph.Registry
	tracker  *usage.Tracker
	logger   *slog.Logger
}

// New creates an emitter rendering text with font f.
//
// Parameters:
//   - f: parsed font
//   - opts: emitter options
//
// Returns:
//   - *Emitter: the emitter
//   - error: an option error or *errs.FontFormatError
func New(f *font.Font, opts ...Option) (*Emitter, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	strategy, err := glyph.StrategyFor(cfg.glyphMode)
	if err != nil {
		return nil, err
	}
	registry, err := glyph.NewRegistry(f, cfg.pixelSize, strategy, cfg.layer, cfg.datatype)
	if err != nil {
		return nil, err
	}

	e := &Emitter{
		cfg:      cfg,
		registry: registry,
		tracker:  cfg.tracker,
		logger:   cfg.logger,
	}
	if e.tracker == nil {
		e.tracker = usage.NewTracker()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e, nil
}

// Tracker returns the usage tracker fed by this emitter.
func (e *Emitter) Tracker() *usage.Tracker {
	return e.tracker
}

// partFeed is the producer side of one open part.
type partFeed struct {
	index int
	rows  int
	chars int
	lines chan line
}

// Run reads r line by line, compiles every line, and hands each finished part
// to sink.
//
// A failing part produces no artifact and stops the run; parts written before
// it stay in place. The returned Report is valid in both cases.
func (e *Emitter) Run(ctx context.Context, r io.Reader, sink Sink) (Report, error) {
	if sink == nil {
		return Report{}, errors.New("emitter: nil sink")
	}

	var (
		mu        sync.Mutex
		parts     []PartReport
		processed atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.workers)

	index := 0
	open := func() *partFeed {
		index++
		pf := &partFeed{index: index, lines: make(chan line, lineQueueSize)}
		g.Go(func() error {
			pr, err := e.buildPart(gctx, pf.index, pf.lines, sink, &processed)
			if err != nil {
				return err
			}
			mu.Lock()
			parts = append(parts, pr)
			mu.Unlock()

			return nil
		})

		return pf
	}

	readErr := e.feed(gctx, newLineReader(r, e.cfg.maxLineBytes), open)
	if readErr == nil && index == 0 && e.cfg.maxRows != 0 && gctx.Err() == nil {
		close(open().lines)
	}

	err := g.Wait()
	if err == nil {
		err = readErr
	}
	if err == nil {
		err = ctx.Err()
	}

	slices.SortFunc(parts, func(a, b PartReport) int { return a.Index - b.Index })
	rep := Report{
		Parts:         parts,
		RowsProcessed: int(processed.Load()),
		Usage:         e.tracker.Summary(e.cfg.usageTop),
	}
	for _, p := range parts {
		rep.TotalRows += p.Rows
		rep.TotalChars += p.Chars
		rep.TotalPlacements += p.Placements
	}

	if err != nil {
		e.logger.Error("conversion failed",
			"error", err,
			"parts_written", len(parts),
			"rows_processed", humanize.Comma(int64(rep.RowsProcessed)))

		return rep, err
	}

	return rep, nil
}

// feed distributes input lines over parts. It returns the input error, if any;
// part failures surface through the errgroup.
func (e *Emitter) feed(ctx context.Context, lr *lineReader, open func() *partFeed) error {
	var cur *partFeed
	rows := 0

	for e.cfg.maxRows < 0 || rows < e.cfg.maxRows {
		ln, ok := lr.next()
		if !ok {
			break
		}
		if cur == nil {
			cur = open()
		}
		if ctx.Err() != nil {
			close(cur.lines)
			return nil
		}

		select {
		case cur.lines <- ln:
		case <-ctx.Done():
			close(cur.lines)
			return nil
		}

		rows++
		cur.rows++
		cur.chars += utf8.RuneCountInString(ln.text)
		if e.partFull(cur) {
			close(cur.lines)
			cur = nil
		}
	}

	err := lr.err()
	if cur != nil {
		if err != nil {
			// Abort the open part so it leaves no artifact.
			select {
			case cur.lines <- line{err: err}:
			case <-ctx.Done():
			}
		}
		close(cur.lines)
	}

	return err
}

func (e *Emitter) partFull(pf *partFeed) bool {
	if e.cfg.rowsPerPart > 0 && pf.rows >= e.cfg.rowsPerPart {
		return true
	}

	return e.cfg.maxCharsPerPart > 0 && pf.chars >= e.cfg.maxCharsPerPart
}

// partBuilder holds the per-part symbol universe.
type partBuilder struct {
	index  int
	state  State
	doc    *layout.Document
	glyphs *glyph.Map
	comp   *compiler.Compiler
	logger *slog.Logger
}

func (b *partBuilder) transition(s State) {
	b.state = s
	b.logger.Debug("part state", "state", s.String())
}

func (e *Emitter) newPartBuilder(index int) (*partBuilder, error) {
	b := &partBuilder{
		index:  index,
		doc:    layout.NewDocument(ident.New()),
		logger: e.logger.With("part", index),
	}
	b.transition(StateBuilding)

	glyphs, err := e.registry.Build(b.doc)
	if err != nil {
		return nil, err
	}
	b.glyphs = glyphs

	dict, err := ngram.Build(b.doc, glyphs, e.cfg.runLength, ngram.WithProgress(dictProgressEvery, func(built, total int) {
		b.logger.Debug("building dictionary",
			"entries", humanize.Comma(int64(built)),
			"total", humanize.Comma(int64(total)))
	}))
	if err != nil {
		return nil, err
	}

	top, err := b.doc.NewNamedSymbol(TopSymbolName)
	if err != nil {
		return nil, err
	}
	if err := b.doc.SetTop(top); err != nil {
		return nil, err
	}

	b.comp, err = compiler.New(b.doc, glyphs, dict, top)
	if err != nil {
		return nil, err
	}

	return b, nil
}

func (e *Emitter) buildPart(ctx context.Context, index int, lines <-chan line, sink Sink, processed *atomic.Int64) (PartReport, error) {
	pr := PartReport{Index: index, FirstRow: -1}
	if err := ctx.Err(); err != nil {
		return pr, err
	}

	b, err := e.newPartBuilder(index)
	if err != nil {
		return pr, fmt.Errorf("part %d: %w", index, err)
	}

	for ln := range lines {
		if ln.err != nil {
			return pr, ln.err
		}
		if err := ctx.Err(); err != nil {
			return pr, err
		}
		if pr.FirstRow < 0 {
			pr.FirstRow = ln.row
		}

		y := -float64(ln.row) * b.glyphs.AdvanceY
		if _, err := b.comp.CompileRow(ln.text, ln.row, y); err != nil {
			return pr, fmt.Errorf("part %d: %w", index, err)
		}
		processed.Add(1)

		if e.cfg.progressEvery > 0 && (ln.row+1)%e.cfg.progressEvery == 0 {
			e.logProgress(b, ln.row, y)
		}
	}
	if err := ctx.Err(); err != nil {
		return pr, err
	}

	b.transition(StateFlushing)
	if err := b.doc.Finalize(); err != nil {
		return pr, &errs.SerializationError{Part: index, Err: err}
	}

	tot := b.comp.Totals()
	pr.Rows, pr.Chars, pr.Placements = tot.Rows, tot.Chars, tot.Placements
	pr.Symbols = b.doc.Len()

	art, err := sink.WritePart(ctx, &Part{
		Index:      index,
		FirstRow:   pr.FirstRow,
		Rows:       pr.Rows,
		Chars:      pr.Chars,
		Placements: pr.Placements,
		Doc:        b.doc,
	})
	if err != nil {
		var serr *errs.SerializationError
		if !errors.As(err, &serr) {
			err = &errs.SerializationError{Part: index, Err: err}
		}

		return pr, err
	}
	pr.Artifact = art

	e.tracker.Merge(b.comp.Usage())
	b.transition(StateDone)

	b.logger.Info("part written",
		"path", art.Path,
		"rows", humanize.Comma(int64(pr.Rows)),
		"placements", humanize.Comma(int64(pr.Placements)),
		"symbols", humanize.Comma(int64(pr.Symbols)),
		"bytes", humanize.Bytes(uint64(art.Bytes)))

	return pr, nil
}

func (e *Emitter) logProgress(b *partBuilder, row int, y float64) {
	tot := b.comp.Totals()
	ratio := 0.0
	if tot.Chars > 0 {
		ratio = float64(tot.Placements) / float64(tot.Chars)
	}

	b.logger.Info("progress",
		"row", humanize.Comma(int64(row+1)),
		"placements", humanize.Comma(int64(tot.Placements)),
		"chars", humanize.Comma(int64(tot.Chars)),
		"ratio", fmt.Sprintf("%.3f", ratio),
		"symbols", humanize.Comma(int64(b.doc.Len())),
		"y", y)
}
