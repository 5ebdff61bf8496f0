// Package multipart provides high-level access to multipart bodies on top of the
// streaming decoder: parts with parsed headers, readable payloads and whole forms.
package multipart

import (
	"io"

	"github.com/indigo-web/multipart/config"
	"github.com/indigo-web/multipart/decoder"
	"github.com/indigo-web/multipart/source"
	"github.com/indigo-web/multipart/status"
	"github.com/indigo-web/utils/uf"
)

// Reader iterates over parts of a single body. Only the latest returned Part may be read:
// requesting the next one skips whatever is left of the current.
type Reader struct {
	dec  *decoder.Decoder
	cfg  *config.Config
	part *Part
	done bool
	err  error
}

func NewReader(src source.Retriever, boundary string, cfg *config.Config) (*Reader, error) {
	if err := cfg.Form.Validate(); err != nil {
		return nil, err
	}

	dec, err := decoder.New(src, uf.S2B(boundary), cfg.Decoder)
	if err != nil {
		return nil, err
	}

	return &Reader{
		dec: dec,
		cfg: cfg,
	}, nil
}

// Decoder exposes the underlying decoder, e.g. to know how many bytes were consumed.
func (r *Reader) Decoder() *decoder.Decoder {
	return r.dec
}

// Reset prepares the reader for a new body.
func (r *Reader) Reset(src source.Retriever, boundary string) {
	r.dec.Reset(src, uf.S2B(boundary))
	r.part = nil
	r.done = false
	r.err = nil
}

// NextPart returns the next part of the body, or io.EOF if there are no more. Errors
// are sticky: once one is returned, it's returned forever.
func (r *Reader) NextPart() (*Part, error) {
	if r.err != nil {
		return nil, r.err
	}

	if r.part != nil {
		if err := r.part.discard(); err != nil {
			return nil, err
		}

		r.part = nil
	}

	if r.done {
		return nil, io.EOF
	}

	token, err := r.next()
	if err != nil {
		return nil, err
	}

	switch token.Kind {
	case decoder.Header:
		hdr, err := ParseHeaders(token.Data)
		if err != nil {
			return nil, r.fail(err)
		}

		r.part = newPart(r, hdr)
		return r.part, nil
	case decoder.EndOfBody:
		r.done = true
		return nil, io.EOF
	default:
		return nil, r.fail(status.ErrBadRequest)
	}
}

func (r *Reader) next() (decoder.Token, error) {
	token, err := r.dec.Next()
	if err != nil {
		return token, r.fail(err)
	}

	if r.dec.Len() > r.cfg.Form.MaxBodySize {
		return token, r.fail(status.ErrBodyTooLarge)
	}

	return token, nil
}

func (r *Reader) fail(err error) error {
	r.err = err
	return err
}

// Part is a single part of the body. Its payload is streamed straight from the decoder.
type Part struct {
	Header  Header
	reader  *Reader
	pending []byte
	eof     bool
}

func newPart(r *Reader, hdr Header) *Part {
	p := &Part{
		Header: hdr,
		reader: r,
	}
	// the decoder tells us once it hits the end of the part, whoever pulls it
	r.dec.Wake(p.end)

	return p
}

func (p *Part) end() {
	p.eof = true
}

// Next returns the next segment of the payload. The segment is never overwritten, so it
// may be retained without copying. Returns io.EOF once the payload is over.
func (p *Part) Next() ([]byte, error) {
	if len(p.pending) > 0 {
		segment := p.pending
		p.pending = nil
		return segment, nil
	}

	for !p.eof {
		if p.reader.err != nil {
			return nil, p.reader.err
		}

		token, err := p.reader.next()
		if err != nil {
			return nil, err
		}

		switch token.Kind {
		case decoder.Payload:
			return token.Data, nil
		case decoder.EndOfBody:
			p.reader.done = true
		}
	}

	return nil, io.EOF
}

func (p *Part) Read(b []byte) (n int, err error) {
	if len(p.pending) == 0 {
		if p.pending, err = p.Next(); err != nil {
			return 0, err
		}
	}

	n = copy(b, p.pending)
	p.pending = p.pending[n:]

	return n, nil
}

// WriteTo writes the rest of the payload into w.
func (p *Part) WriteTo(w io.Writer) (n int64, err error) {
	for {
		segment, err := p.Next()
		switch err {
		case nil:
		case io.EOF:
			return n, nil
		default:
			return n, err
		}

		written, err := w.Write(segment)
		n += int64(written)
		if err != nil {
			return n, err
		}
	}
}

// Bytes returns the rest of the payload.
func (p *Part) Bytes() ([]byte, error) {
	var payload []byte

	for {
		segment, err := p.Next()
		switch err {
		case nil:
		case io.EOF:
			return payload, nil
		default:
			return nil, err
		}

		payload = append(payload, segment...)
	}
}

func (p *Part) discard() error {
	for {
		switch _, err := p.Next(); err {
		case nil:
		case io.EOF:
			return nil
		default:
			return err
		}
	}
}
