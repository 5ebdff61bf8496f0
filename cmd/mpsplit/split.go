package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/indigo-web/multipart/config"
	"github.com/indigo-web/multipart/multipart"
	"github.com/indigo-web/multipart/source"
)

type splitOptions struct {
	Boundary    string
	ContentType string
	Out         string
	// Rate limits the read bandwidth in bytes per second. Zero means no limit.
	Rate int
}

type entry struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Charset     string `json:"charset,omitempty"`
	Size        int64  `json:"size"`
	Path        string `json:"path"`
}

type manifest struct {
	ID       string  `json:"id"`
	Boundary string  `json:"boundary"`
	Bytes    uint64  `json:"bytes"`
	Parts    []entry `json:"parts"`
}

// segment is either the beginning of a new part or a piece of its payload.
type segment struct {
	start  bool
	header multipart.Header
	data   []byte
}

func runSplit(ctx context.Context, args []string) error {
	var opts splitOptions
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	fs.StringVar(&opts.Boundary, "boundary", "", "boundary of the body")
	fs.StringVar(&opts.ContentType, "content-type", "", "Content-Type value to extract the boundary from")
	fs.StringVar(&opts.Out, "out", ".", "directory to write parts into")
	fs.IntVar(&opts.Rate, "rate", 0, "read bandwidth limit in bytes per second, 0 for none")
	configPath := fs.String("config", "", "path to a YAML config")
	chunked := fs.Bool("chunked", false, "the body is in the chunked transfer encoding")
	strict := fs.Bool("strict", false, "fail if the body ends before the closing delimiter")
	verbose := fs.Bool("v", false, "trace the decoding")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cfg.Source.Chunked = cfg.Source.Chunked || *chunked
	cfg.Decoder.StrictEOF = cfg.Decoder.StrictEOF || *strict

	logger, err := newLogger(*verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	in := io.Reader(os.Stdin)
	if fs.NArg() > 0 {
		file, err := os.Open(fs.Arg(0))
		if err != nil {
			return err
		}
		defer file.Close()

		in = file
	}

	m, err := split(ctx, cfg, opts, in, logger)
	if err != nil {
		return err
	}

	logger.Info("body is split",
		zap.String("run", m.ID),
		zap.Int("parts", len(m.Parts)),
		zap.Uint64("bytes", m.Bytes),
	)

	return writeManifest(os.Stdout, m)
}

func loadConfig(path string) (*config.Config, error) {
	if len(path) == 0 {
		return config.Default(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return config.Load(file)
}

func split(ctx context.Context, cfg *config.Config, opts splitOptions, in io.Reader, logger *zap.Logger) (*manifest, error) {
	boundary := opts.Boundary
	if len(boundary) == 0 {
		var err error
		if boundary, err = multipart.Boundary(opts.ContentType); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(opts.Out, 0o755); err != nil {
		return nil, err
	}

	// a failed writer must stop the reading too, so the sources are bound to the group
	g, gctx := errgroup.WithContext(ctx)

	src := source.FromReader(in, make([]byte, cfg.Source.ReadBufferSize))
	if opts.Rate > 0 {
		limiter := rate.NewLimiter(rate.Limit(opts.Rate), cfg.Source.ReadBufferSize)
		src = source.Throttle(gctx, src, limiter)
	}

	if cfg.Source.Chunked {
		src = source.NewChunked(src, cfg.Source.Trailer)
	}

	reader, err := multipart.NewReader(source.WithContext(gctx, src), boundary, cfg)
	if err != nil {
		return nil, err
	}

	if logger.Core().Enabled(zapcore.DebugLevel) {
		trace, err := zap.NewStdLogAt(logger.Named("decoder"), zapcore.DebugLevel)
		if err != nil {
			return nil, err
		}

		reader.Decoder().SetLogger(trace)
	}

	m := &manifest{
		ID:       uuid.NewString(),
		Boundary: boundary,
	}
	logger = logger.With(zap.String("run", m.ID))
	segments := make(chan segment, 16)

	g.Go(func() error {
		defer close(segments)
		return decode(gctx, reader, segments)
	})
	g.Go(func() error {
		return store(opts.Out, segments, m, logger)
	})

	if err = g.Wait(); err != nil {
		return nil, err
	}

	m.Bytes = reader.Decoder().Len()
	return m, nil
}

// decode pulls parts and passes their payload segments on as is. Segments are never
// overwritten by the decoder, so they're safe to be consumed in another goroutine.
func decode(ctx context.Context, r *multipart.Reader, out chan<- segment) error {
	for {
		part, err := r.NextPart()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil
		default:
			return err
		}

		if err = send(ctx, out, segment{start: true, header: part.Header}); err != nil {
			return err
		}

		for {
			data, err := part.Next()
			if errors.Is(err, io.EOF) {
				break
			} else if err != nil {
				return err
			}

			if err = send(ctx, out, segment{data: data}); err != nil {
				return err
			}
		}
	}
}

func send(ctx context.Context, out chan<- segment, s segment) error {
	select {
	case out <- s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func store(dir string, in <-chan segment, m *manifest, logger *zap.Logger) (err error) {
	var file *os.File

	closeFile := func() error {
		if file == nil {
			return nil
		}

		last := m.Parts[len(m.Parts)-1]
		logger.Debug("part is written",
			zap.Int("index", last.Index),
			zap.String("path", last.Path),
			zap.Int64("size", last.Size),
		)

		err := file.Close()
		file = nil
		return err
	}
	defer func() {
		if closeErr := closeFile(); err == nil {
			err = closeErr
		}
	}()

	for s := range in {
		if s.start {
			if err = closeFile(); err != nil {
				return err
			}

			index := len(m.Parts)
			path := filepath.Join(dir, partFilename(index, s.header))
			if file, err = os.Create(path); err != nil {
				return err
			}

			m.Parts = append(m.Parts, entry{
				Index:       index,
				Name:        s.header.Name,
				Filename:    s.header.Filename,
				ContentType: s.header.ContentType,
				Charset:     s.header.Charset,
				Path:        path,
			})
			continue
		}

		n, err := file.Write(s.data)
		m.Parts[len(m.Parts)-1].Size += int64(n)
		if err != nil {
			return err
		}
	}

	return nil
}

// partFilename makes a file name for the part, stripping any directories from it.
func partFilename(index int, hdr multipart.Header) string {
	name := hdr.Filename
	if len(name) == 0 {
		name = hdr.Name
	}

	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	switch name {
	case ".", "..", "/":
		name = ""
	}

	if len(name) == 0 {
		return fmt.Sprintf("%03d", index)
	}

	return fmt.Sprintf("%03d-%s", index, name)
}

func writeManifest(w io.Writer, m *manifest) error {
	stream := json.ConfigDefault.BorrowStream(w)
	defer json.ConfigDefault.ReturnStream(stream)

	stream.WriteVal(m)
	stream.WriteRaw("\n")

	return stream.Flush()
}
