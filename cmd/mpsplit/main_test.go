package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/indigo-web/multipart/config"
	"github.com/indigo-web/multipart/multipart"
	"github.com/indigo-web/multipart/status"
)

func TestSplit(t *testing.T) {
	boundary := multipart.NewBoundary()
	var body bytes.Buffer
	require.NoError(t, gen(&body, boundary, 4, 20000))

	t.Run("plain", func(t *testing.T) {
		dir := t.TempDir()
		opts := splitOptions{ContentType: multipart.ContentType(boundary), Out: dir}
		m, err := split(context.Background(), config.Default(), opts, bytes.NewReader(body.Bytes()), zap.NewNop())
		require.NoError(t, err)
		require.Equal(t, boundary, m.Boundary)
		require.Equal(t, uint64(body.Len()-2), m.Bytes)
		require.Len(t, m.Parts, 4)

		for i, part := range m.Parts {
			require.Equal(t, i, part.Index)
			require.Equal(t, fmt.Sprintf("field%d", i), part.Name)
			require.Equal(t, int64(20000), part.Size)

			data, err := os.ReadFile(part.Path)
			require.NoError(t, err)
			require.Len(t, data, 20000)
		}

		require.Equal(t, filepath.Join(dir, "001-file1.bin"), m.Parts[1].Path)
		require.Equal(t, "application/octet-stream", m.Parts[1].ContentType)
		require.Equal(t, filepath.Join(dir, "002-field2"), m.Parts[2].Path)
	})

	t.Run("throttled", func(t *testing.T) {
		opts := splitOptions{Boundary: boundary, Out: t.TempDir(), Rate: 64 << 20}
		m, err := split(context.Background(), config.Default(), opts, bytes.NewReader(body.Bytes()), zap.NewNop())
		require.NoError(t, err)
		require.Len(t, m.Parts, 4)
		require.Len(t, m.ID, 36)
	})

	t.Run("chunked", func(t *testing.T) {
		var chunked bytes.Buffer
		for data := body.Bytes(); len(data) > 0; {
			n := min(len(data), 1000)
			_, _ = fmt.Fprintf(&chunked, "%x\r\n%s\r\n", n, data[:n])
			data = data[n:]
		}
		chunked.WriteString("0\r\n\r\n")

		cfg := config.Default()
		cfg.Source.Chunked = true
		opts := splitOptions{Boundary: boundary, Out: t.TempDir()}
		m, err := split(context.Background(), cfg, opts, &chunked, zap.NewNop())
		require.NoError(t, err)
		require.Len(t, m.Parts, 4)
	})

	t.Run("truncated", func(t *testing.T) {
		cfg := config.Default()
		cfg.Decoder.StrictEOF = true
		opts := splitOptions{Boundary: boundary, Out: t.TempDir()}
		_, err := split(context.Background(), cfg, opts, bytes.NewReader(body.Bytes()[:body.Len()/2]), zap.NewNop())
		require.ErrorIs(t, err, status.ErrUnexpectedEOF)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		opts := splitOptions{Boundary: boundary, Out: t.TempDir()}
		_, err := split(ctx, config.Default(), opts, bytes.NewReader(body.Bytes()), zap.NewNop())
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("failed writer stops reading", func(t *testing.T) {
		dir := t.TempDir()
		// the first part's file can't be created over a directory
		require.NoError(t, os.Mkdir(filepath.Join(dir, "000-field0"), 0o755))

		opts := splitOptions{Boundary: boundary, Out: dir, Rate: 1024}
		start := time.Now()
		_, err := split(context.Background(), config.Default(), opts, bytes.NewReader(body.Bytes()), zap.NewNop())
		var pathErr *os.PathError
		require.ErrorAs(t, err, &pathErr)
		require.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("bad content type", func(t *testing.T) {
		opts := splitOptions{ContentType: "application/json", Out: t.TempDir()}
		_, err := split(context.Background(), config.Default(), opts, strings.NewReader(""), zap.NewNop())
		require.ErrorIs(t, err, status.ErrUnsupportedMediaType)
	})
}

func TestPartFilename(t *testing.T) {
	require.Equal(t, "000-a.txt", partFilename(0, multipart.Header{Name: "f", Filename: "a.txt"}))
	require.Equal(t, "001-passwd", partFilename(1, multipart.Header{Filename: "../../etc/passwd"}))
	require.Equal(t, "002-file.txt", partFilename(2, multipart.Header{Filename: `C:\Users\file.txt`}))
	require.Equal(t, "003-name", partFilename(3, multipart.Header{Name: "name"}))
	require.Equal(t, "004", partFilename(4, multipart.Header{Filename: ".."}))
}

func TestManifest(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeManifest(&out, &manifest{
		Boundary: "b",
		Bytes:    42,
		Parts:    []entry{{Index: 0, Name: "a", Size: 1, Path: "000-a"}},
	}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Equal(t, "b", decoded["boundary"])
	require.Equal(t, float64(42), decoded["bytes"])
	require.Len(t, decoded["parts"], 1)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("decoder:\n  max_chunk: 32768\n"), 0o644))
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 32768, cfg.Decoder.MaxChunk)
}

func TestDechunk(t *testing.T) {
	d := newDechunker(false)

	var out bytes.Buffer
	rest, err := d.run(&out, strings.NewReader("5\r\nHello\r\n8\r\n, world!\r\n0\r\n\r\n"))
	require.NoError(t, err)
	require.Zero(t, rest)
	require.Equal(t, "Hello, world!", out.String())

	out.Reset()
	rest, err = d.run(&out, strings.NewReader("3\r\nabc\r\n0\r\n\r\n"+strings.Repeat("x", 10000)))
	require.NoError(t, err)
	require.Equal(t, int64(10000), rest)
	require.Equal(t, "abc", out.String())

	_, err = d.run(&out, strings.NewReader("5\r\nHel"))
	require.ErrorIs(t, err, status.ErrBadChunk)

	path := filepath.Join(t.TempDir(), "body")
	require.NoError(t, os.WriteFile(path, []byte("2\r\nhi\r\n0\r\n\r\n"), 0o644))
	out.Reset()
	require.NoError(t, d.file(&out, path))
	require.Equal(t, "hi", out.String())
}
