// Package source holds the byte sources a decoder pulls from.
//
// A source is anything implementing Retriever. Every call returns the next piece of
// the stream; io.EOF marks its end and may be returned together with the last piece.
// Returned pieces are valid only until the next call, as sources are free to reuse
// their buffers. Once io.EOF is returned, the source is exhausted and no further calls
// are expected. Other errors are up to the source: a decoder just passes them through.
package source

import (
	"context"
	"io"
)

type Retriever interface {
	// Retrieve returns a piece of the stream available for processing.
	Retrieve() ([]byte, error)
}

// Func turns an ordinary function into a Retriever.
type Func func() ([]byte, error)

func (f Func) Retrieve() ([]byte, error) {
	return f()
}

type readerSource struct {
	reader io.Reader
	buff   []byte
}

// defaultReadBuffer is used by FromReader when no buffer is given.
const defaultReadBuffer = 4096

// FromReader pulls the stream from the reader, reusing buff for every read. An empty
// buff is replaced with a fresh one, as reading into it never makes progress.
func FromReader(r io.Reader, buff []byte) Retriever {
	if len(buff) == 0 {
		buff = make([]byte, defaultReadBuffer)
	}

	return &readerSource{
		reader: r,
		buff:   buff,
	}
}

func (r *readerSource) Retrieve() ([]byte, error) {
	n, err := r.reader.Read(r.buff)
	return r.buff[:n], err
}

// WithContext stops pulling the source as soon as the context is done, returning its
// error instead.
func WithContext(ctx context.Context, src Retriever) Retriever {
	return Func(func() ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		return src.Retrieve()
	})
}
