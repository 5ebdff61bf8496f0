package config

import (
	"errors"
	"io"

	"gopkg.in/yaml.v3"
)

// MinChunk is the smallest allowed Decoder.MaxChunk, and its default at the same time.
const MinChunk = 8 * 1024

var (
	ErrChunkTooSmall    = errors.New("decoder max chunk cannot be smaller than 8192 bytes")
	ErrBadPrealloc      = errors.New("decoder buffer prealloc cannot be negative")
	ErrBadHeaderSize    = errors.New("decoder max header size must be positive")
	ErrBadReadBuffer    = errors.New("source read buffer size must be positive")
	ErrBadValueSpace    = errors.New("form value space default must be positive")
	ErrValueSpaceTooLow = errors.New("form value space maximal cannot be lower than default")
)

type (
	Decoder struct {
		// MaxChunk caps the size of every emitted payload segment. Header blocks are never
		// split, so they aren't affected by it. Values below MinChunk are rejected.
		MaxChunk int `yaml:"max_chunk"`
		// StrictEOF turns the source exhaustion before the closing delimiter into
		// status.ErrUnexpectedEOF. Otherwise the body silently ends.
		StrictEOF bool `yaml:"strict_eof" test:"nullable"`
		// BufferPrealloc is the initial capacity of the pending buffer. Zero lets it grow
		// from the first pull.
		BufferPrealloc int `yaml:"buffer_prealloc"`
		// MaxHeaderSize limits a single part's header block. Header blocks are never split,
		// so they must be buffered entirely.
		MaxHeaderSize int `yaml:"max_header_size"`
	}

	Source struct {
		// ReadBufferSize is the size of a buffer used to pull data from io.Reader sources.
		ReadBufferSize int `yaml:"read_buffer_size"`
		// Chunked tells whether the body is transmitted using the chunked transfer encoding.
		Chunked bool `yaml:"chunked" test:"nullable"`
		// Trailer enables parsing trailer fields after the last chunk.
		Trailer bool `yaml:"trailer" test:"nullable"`
	}

	Form struct {
		// MaxBodySize limits the amount of bytes pulled from the source for a single body.
		// In order to disable the setting, use the math.MaxUint64 value.
		MaxBodySize uint64 `yaml:"max_body_size"`
		// DefaultContentType is used for parts which don't specify it explicitly.
		DefaultContentType string `yaml:"default_content_type"`
		// DefaultCharset is used for parts which neither specify it in Content-Type nor
		// the form sets it through the _charset_ field.
		DefaultCharset string `yaml:"default_charset"`
		// ValueSpace limits the memory used to store values of a collected form.
		ValueSpace ValueSpace `yaml:"value_space"`
	}

	ValueSpace struct {
		// Default is the initial capacity of the values buffer.
		Default int `yaml:"default"`
		// Maximal is the upper limit of the values buffer. Exceeding it results in
		// status.ErrBodyTooLarge.
		Maximal int `yaml:"maximal"`
	}
)

// Config holds settings used across the decoder, its sources and wrappers.
//
// You must ALWAYS modify defaults (returned via Default()) and NEVER try to initialize the
// config manually, because most likely this will result in ambiguous errors.
type Config struct {
	Decoder Decoder `yaml:"decoder"`
	Source  Source  `yaml:"source"`
	Form    Form    `yaml:"form"`
}

// Default returns default config.
func Default() *Config {
	return &Config{
		Decoder: Decoder{
			MaxChunk:       MinChunk,
			StrictEOF:      false,
			BufferPrealloc: 2 * MinChunk,
			MaxHeaderSize:  16 * 1024, // there also might be extremely long filenames
		},
		Source: Source{
			ReadBufferSize: 4 * 1024,
		},
		Form: Form{
			MaxBodySize:        512 * 1024 * 1024, // 512 megabytes
			DefaultContentType: "text/plain",
			DefaultCharset:     "utf8",
			ValueSpace: ValueSpace{
				Default: 4 * 1024,
				Maximal: 16 * 1024 * 1024,
			},
		},
	}
}

func (d Decoder) Validate() error {
	switch {
	case d.MaxChunk < MinChunk:
		return ErrChunkTooSmall
	case d.BufferPrealloc < 0:
		return ErrBadPrealloc
	case d.MaxHeaderSize <= 0:
		return ErrBadHeaderSize
	}

	return nil
}

func (s Source) Validate() error {
	if s.ReadBufferSize <= 0 {
		return ErrBadReadBuffer
	}

	return nil
}

func (f Form) Validate() error {
	switch {
	case f.ValueSpace.Default <= 0:
		return ErrBadValueSpace
	case f.ValueSpace.Maximal < f.ValueSpace.Default:
		return ErrValueSpaceTooLow
	}

	return nil
}

// Validate reports the first setting that can't work, if any.
func (c *Config) Validate() error {
	if err := c.Decoder.Validate(); err != nil {
		return err
	}

	if err := c.Source.Validate(); err != nil {
		return err
	}

	return c.Form.Validate()
}

// Load overlays a YAML document on top of defaults. Fields missing in the document keep
// their default values.
func Load(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := yaml.NewDecoder(r).Decode(cfg); err != nil && err != io.EOF {
		return nil, err
	}

	return cfg, cfg.Validate()
}
