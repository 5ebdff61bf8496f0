package source

import (
	"io"

	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/multipart/status"
)

// Chunked strips the chunked transfer encoding off the underlying stream. Bytes following
// the terminating chunk are kept aside and can be picked up via Extra.
type Chunked struct {
	src     Retriever
	parser  *chunkedbody.Parser
	trailer bool
	done    bool
	err     error
	// pending holds bytes left unparsed by the previous call
	pending []byte
}

func NewChunked(src Retriever, trailer bool) *Chunked {
	return &Chunked{
		src:     src,
		parser:  chunkedbody.NewParser(chunkedbody.DefaultSettings()),
		trailer: trailer,
	}
}

func (c *Chunked) Retrieve() ([]byte, error) {
	if c.done {
		return nil, io.EOF
	}

	for {
		data, err := c.pull()
		if err != nil {
			if err == io.EOF {
				// the stream ended before the terminating chunk
				err = status.ErrBadChunk
			}

			return nil, err
		}

		chunk, extra, err := c.parser.Parse(data, c.trailer)
		switch err {
		case nil:
			c.pending = extra
			if len(chunk) > 0 {
				return chunk, nil
			}
		case io.EOF:
			c.done = true
			c.pending = extra
			return chunk, io.EOF
		default:
			return nil, status.ErrBadChunk
		}
	}
}

// Extra returns bytes following the chunked body, if any were already pulled.
func (c *Chunked) Extra() []byte {
	if !c.done {
		return nil
	}

	return c.pending
}

func (c *Chunked) pull() (data []byte, err error) {
	if len(c.pending) > 0 {
		data, c.pending = c.pending, nil
		return data, nil
	}

	if c.err != nil {
		return nil, c.err
	}

	data, c.err = c.src.Retrieve()
	if len(data) > 0 {
		return data, nil
	}

	return nil, c.err
}
