package emitter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/arloliu/textgds/compress"
	"github.com/arloliu/textgds/errs"
	"github.com/arloliu/textgds/format"
	"github.com/arloliu/textgds/gds"
	"github.com/arloliu/textgds/internal/hash"
	"github.com/arloliu/textgds/internal/options"
	"github.com/arloliu/textgds/layout"
)

// Part is a finished part handed to a Sink. Its document is finalized.
type Part struct {
	Index      int // 1-based
	FirstRow   int // 0-based input row of the first row, or -1 for an empty part
	Rows       int
	Chars      int
	Placements int
	Doc        *layout.Document
}

// Artifact describes what a Sink produced for one part.
type Artifact struct {
	Path        string // empty for in-memory sinks
	Structures  int
	Boundaries  int
	References  int
	RawBytes    int64 // encoded stream size
	Bytes       int64 // stored size, after compression
	Compression format.CompressionType
	Checksum    string // xxhash64 of the stored bytes, hex
}

// Sink serializes finished parts. WritePart may be called from several
// goroutines at once when the emitter runs with more than one worker.
//
// A failing WritePart must not leave a partial artifact behind.
type Sink interface {
	WritePart(ctx context.Context, p *Part) (Artifact, error)
}

var (
	_ Sink = (*FileSink)(nil)
	_ Sink = (*MemorySink)(nil)
)

type fileSinkConfig struct {
	split       bool
	compression format.CompressionType
	encoder     *gds.Encoder
}

// FileSinkOption configures a FileSink.
type FileSinkOption = options.Option[*fileSinkConfig]

// WithSplitNames names artifacts <base>_partNNN<ext> instead of using the
// output path as is. Without it a second part fails with errs.ErrUnsplitOutput.
func WithSplitNames(split bool) FileSinkOption {
	return options.NoError(func(c *fileSinkConfig) {
		c.split = split
	})
}

// WithCompression compresses every artifact and appends the codec extension.
func WithCompression(ct format.CompressionType) FileSinkOption {
	return options.NoError(func(c *fileSinkConfig) {
		c.compression = ct
	})
}

// WithEncoder sets the stream encoder. The default uses gds defaults.
func WithEncoder(enc *gds.Encoder) FileSinkOption {
	return options.NoError(func(c *fileSinkConfig) {
		c.encoder = enc
	})
}

// FileSink writes each part to its own file.
//
// Every artifact is written to a temporary file in the target directory and
// renamed into place once complete.
type FileSink struct {
	dir   string
	stem  string
	ext   string
	cfg   fileSinkConfig
	codec compress.Codec
}

// NewFileSink creates a sink writing to path, or to numbered paths derived
// from it when split names are enabled.
func NewFileSink(path string, opts ...FileSinkOption) (*FileSink, error) {
	if path == "" {
		return nil, errors.New("file sink: empty output path")
	}

	cfg := fileSinkConfig{compression: format.CompressionNone}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.encoder == nil {
		enc, err := gds.NewEncoder()
		if err != nil {
			return nil, err
		}
		cfg.encoder = enc
	}

	codec, err := compress.CreateCodec(cfg.compression, "artifact")
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	if ext == "" {
		ext = ".gds"
	}

	return &FileSink{
		dir:   filepath.Dir(path),
		stem:  stem,
		ext:   ext,
		cfg:   cfg,
		codec: codec,
	}, nil
}

// PathFor returns the artifact path of part index (1-based).
func (s *FileSink) PathFor(index int) string {
	suffix := s.cfg.compression.Extension()
	if s.cfg.split {
		return fmt.Sprintf("%s_part%03d%s%s", s.stem, index, s.ext, suffix)
	}

	return s.stem + s.ext + suffix
}

// WritePart encodes, optionally compresses, and atomically stores part p.
//
// Without split names only part 1 has a path of its own; later parts fail with
// errs.ErrUnsplitOutput and the first artifact is left untouched.
func (s *FileSink) WritePart(ctx context.Context, p *Part) (Artifact, error) {
	path := s.PathFor(p.Index)
	art := Artifact{Path: path, Compression: s.cfg.compression}

	fail := func(err error) (Artifact, error) {
		return art, &errs.SerializationError{Part: p.Index, Path: path, Err: err}
	}

	if !s.cfg.split && p.Index > 1 {
		return fail(errs.ErrUnsplitOutput)
	}

	var raw bytes.Buffer
	st, err := s.cfg.encoder.Encode(&raw, p.Doc)
	if err != nil {
		return fail(err)
	}
	art.Structures, art.Boundaries, art.References = st.Structures, st.Boundaries, st.References
	art.RawBytes = st.Bytes

	data, _, err := compress.Apply(s.codec, s.cfg.compression, raw.Bytes())
	if err != nil {
		return fail(err)
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	digest := hash.NewDigest()
	_, _ = digest.Write(data)
	art.Checksum = digest.Hex()

	if err := writeFileAtomic(s.dir, path, data); err != nil {
		return fail(err)
	}
	art.Bytes = int64(len(data))

	return art, nil
}

func writeFileAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return nil
}

// MemorySink keeps encoded parts in memory, keyed by part index.
type MemorySink struct {
	encoder *gds.Encoder

	mu    sync.Mutex
	parts map[int][]byte
}

// NewMemorySink creates an in-memory sink. A nil encoder uses gds defaults.
func NewMemorySink(enc *gds.Encoder) (*MemorySink, error) {
	if enc == nil {
		var err error
		if enc, err = gds.NewEncoder(); err != nil {
			return nil, err
		}
	}

	return &MemorySink{encoder: enc, parts: make(map[int][]byte)}, nil
}

// WritePart encodes p and stores the bytes.
func (s *MemorySink) WritePart(ctx context.Context, p *Part) (Artifact, error) {
	var buf bytes.Buffer
	st, err := s.encoder.Encode(&buf, p.Doc)
	if err != nil {
		return Artifact{}, &errs.SerializationError{Part: p.Index, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return Artifact{}, &errs.SerializationError{Part: p.Index, Err: err}
	}

	data := buf.Bytes()
	s.mu.Lock()
	s.parts[p.Index] = data
	s.mu.Unlock()

	return Artifact{
		Structures:  st.Structures,
		Boundaries:  st.Boundaries,
		References:  st.References,
		RawBytes:    st.Bytes,
		Bytes:       st.Bytes,
		Compression: format.CompressionNone,
		Checksum:    hash.Hex(hash.Bytes(data)),
	}, nil
}

// Part returns the bytes of part index, if it was written.
func (s *MemorySink) Part(index int) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.parts[index]

	return data, ok
}

// Len returns the number of written parts.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.parts)
}
