// Package decoder implements a streaming decoder of multipart bodies.
//
// The decoder pulls bytes from a source.Retriever and turns them into tokens: header
// blocks, payload segments and boundary signals. It never holds the whole body in
// memory: payload is streamed out in segments of at most config.Decoder.MaxChunk bytes,
// each of them being a zero-copy view into memory that is never written again.
//
// For a body consisting of parts P1..Pn, the produced sequence is
//
//	Header(H1) Payload(D1)... EndOfPart Header(H2) Payload(D2)... EndOfPart ... Header(Hn) Payload(Dn)... EndOfBody
//
// Payload segments may be absent for empty parts. After EndOfBody, the decoder is exhausted
// and returns EndOfBody forever.
package decoder

import (
	"errors"
	"io"

	"github.com/indigo-web/multipart/config"
	"github.com/indigo-web/multipart/internal/delimiter"
	"github.com/indigo-web/multipart/internal/pending"
	"github.com/indigo-web/multipart/source"
	"github.com/indigo-web/multipart/status"
)

// Kind tells what a Token carries.
type Kind uint8

const (
	// Header is a part's header block, including the terminating blank line.
	Header Kind = iota + 1
	// Payload is a piece of the current part's payload.
	Payload
	// EndOfPart separates the payload of a part from the header of the next one.
	EndOfPart
	// EndOfBody is returned once the closing delimiter is consumed or the source is over.
	EndOfBody
)

func (k Kind) String() string {
	switch k {
	case Header:
		return "Header"
	case Payload:
		return "Payload"
	case EndOfPart:
		return "EndOfPart"
	case EndOfBody:
		return "EndOfBody"
	default:
		return "<unknown>"
	}
}

// Token is a single decoding result. Data is set only for Header and Payload.
type Token struct {
	Kind Kind
	Data []byte
}

// Logger receives the decoder trace. *log.Logger satisfies it, as does any bridge into
// a structured logger.
type Logger interface {
	Printf(format string, v ...any)
}

type phase uint8

const (
	phaseBody phase = iota
	phaseHeader
)

var (
	seed   = []byte("\r\n")
	prefix = []byte(delimiter.Prefix)
	hdrEnd = []byte(delimiter.HeaderEnd)
)

// Decoder drives a single cursor over the source. It isn't safe for concurrent use: at
// most one caller may be pulling tokens at any moment.
type Decoder struct {
	src    source.Retriever
	delims delimiter.Set
	buffer *pending.Buffer
	cfg    config.Decoder
	logger Logger

	phase   phase
	parts   int
	seen    uint64
	eof     bool
	srcDone bool
	// partEnded is set when the previous part's payload was delimited by the last
	// emitted segment, so EndOfPart must precede the next header.
	partEnded bool
	// candidate is the cached offset of the leftmost separator prefix, confirmed is
	// the cached offset of the opening delimiter. -1 means unknown.
	candidate, confirmed int

	wake func()
}

// New returns a decoder over the source. The configuration is validated eagerly, so
// config.ErrChunkTooSmall is returned for MaxChunk below config.MinChunk.
func New(src source.Retriever, boundary []byte, cfg config.Decoder) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Decoder{
		cfg:    cfg,
		buffer: pending.New(seed, cfg.BufferPrealloc),
	}
	d.Reset(src, boundary)

	return d, nil
}

// SetLogger enables tracing of source refills. Nil disables it.
func (d *Decoder) SetLogger(logger Logger) *Decoder {
	d.logger = logger
	return d
}

// Reset prepares the decoder to decode a new body. Segments returned before stay valid.
func (d *Decoder) Reset(src source.Retriever, boundary []byte) {
	d.src = src
	d.delims = delimiter.Build(boundary)
	d.buffer.Reset(seed)
	d.phase = phaseBody
	d.parts = 0
	d.seen = 0
	d.eof = false
	d.srcDone = false
	d.partEnded = false
	d.candidate, d.confirmed = -1, -1
	d.wake = nil
}

// Wake registers a callback invoked once, the next time the decoder signals EndOfPart or
// EndOfBody (or fails on a truncated body in strict mode). It lets a suspended sibling
// consumer resume as soon as control is handed back. Only one callback is kept; a new
// registration replaces the previous one.
func (d *Decoder) Wake(fn func()) {
	d.wake = fn
}

// Len returns the number of body bytes pulled from the source. Once the closing delimiter
// is consumed, the epilogue and the closing CRLF are excluded.
func (d *Decoder) Len() uint64 {
	return d.seen
}

// Parts returns the number of header blocks emitted so far.
func (d *Decoder) Parts() int {
	return d.parts
}

// EOF tells whether the decoder is exhausted.
func (d *Decoder) EOF() bool {
	return d.eof
}

// Next returns the next token. Source errors are returned as is, leaving the state
// untouched, so the call may be repeated. Exhaustion of the source before the closing
// delimiter results in EndOfBody, or in status.ErrUnexpectedEOF if StrictEOF is set.
func (d *Decoder) Next() (Token, error) {
	for {
		if d.eof {
			return d.signal(EndOfBody), nil
		}

		var (
			token Token
			ok    bool
		)

		if d.phase == phaseBody {
			token, ok = d.body()
		}

		if !ok && d.phase == phaseHeader {
			var err error
			if token, ok, err = d.header(); err != nil {
				d.terminate()
				return Token{}, err
			}
		}

		if ok {
			if token.Kind == EndOfPart || token.Kind == EndOfBody {
				return d.signal(token.Kind), nil
			}

			return token, nil
		}

		exhausted, err := d.refill()
		if err != nil {
			return Token{}, err
		}

		if exhausted {
			d.terminate()
			if d.cfg.StrictEOF {
				d.wakeup()
				return Token{}, status.ErrUnexpectedEOF
			}

			return d.signal(EndOfBody), nil
		}
	}
}

func (d *Decoder) body() (Token, bool) {
	maxChunk := d.cfg.MaxChunk

	if d.candidate == -1 {
		d.candidate = d.buffer.Search(prefix)
	}

	x := d.candidate
	if x == -1 {
		if d.parts == 0 {
			d.dropPreamble(len(prefix) - 1)
			return Token{}, false
		}

		// the large data of the part. Keep the tail, as it may be the beginning of
		// a separator prefix
		if d.buffer.Len() >= maxChunk+len(prefix)-1 {
			return d.emit(Payload, maxChunk), true
		}

		return Token{}, false
	}

	if d.parts == 0 && x > 0 {
		d.advance(x)
		x = 0
	}

	if d.confirmed == -1 {
		d.confirmed = d.buffer.SearchFrom(x, d.delims.Open)
	}

	y := d.confirmed

	if d.parts == 0 {
		return d.beginning(y)
	}

	if x > 0 && (y == -1 || x < y) {
		// ordinary payload preceding something looking like a delimiter
		return d.emit(Payload, min(x, maxChunk)), true
	}

	// here x is either 0 or the opening delimiter itself. In the former case, the
	// closing delimiter may come first
	if x == 0 && y != 0 {
		if z := d.buffer.Search(d.delims.Close); z != -1 && (y == -1 || z < y) {
			if z == 0 {
				return d.finish(), true
			}

			// last data of the last part
			return d.emit(Payload, min(z, maxChunk)), true
		}
	}

	if y != -1 {
		if y < maxChunk {
			d.candidate = -1
			d.phase = phaseHeader
		}

		if y == 0 {
			return Token{Kind: EndOfPart}, true
		}

		if y < maxChunk {
			d.partEnded = true
			return d.emit(Payload, y), true
		}

		return d.emit(Payload, maxChunk), true
	}

	// the separator prefix at the beginning turned out to be a part of the payload. If
	// enough is buffered, no delimiter can start within the first maxChunk bytes
	if d.buffer.Len() >= maxChunk+len(d.delims.Close)-1 {
		return d.emit(Payload, maxChunk), true
	}

	return Token{}, false
}

// beginning handles the state before the first part, where everything preceding the
// first opening delimiter is a preamble and must be discarded.
func (d *Decoder) beginning(y int) (Token, bool) {
	// no parts at all, possibly with an epilogue mentioning the boundary
	if z := d.buffer.Search(d.delims.Close); z != -1 && (y == -1 || z < y) {
		d.advance(z)
		return d.finish(), true
	}

	if y != -1 {
		d.advance(y)
		d.candidate = -1
		d.phase = phaseHeader
		return Token{}, false
	}

	d.dropPreamble(len(d.delims.Close) - 1)
	return Token{}, false
}

func (d *Decoder) header() (Token, bool, error) {
	// previous part is end
	if d.partEnded {
		d.partEnded = false
		return Token{Kind: EndOfPart}, true, nil
	}

	// the opening delimiter's CRLF may be the first half of an empty header block
	h := d.buffer.SearchFrom(len(d.delims.Open)-2, hdrEnd)
	if h == -1 {
		if d.buffer.Len() > len(d.delims.Open)+d.cfg.MaxHeaderSize {
			return Token{}, false, status.ErrHeadersTooLarge
		}

		return Token{}, false, nil
	}

	if h+len(hdrEnd)-len(d.delims.Open) > d.cfg.MaxHeaderSize {
		return Token{}, false, status.ErrHeadersTooLarge
	}

	block := d.buffer.TakeFront(h + len(hdrEnd))[len(d.delims.Open):]
	d.candidate, d.confirmed = -1, -1
	d.phase = phaseBody
	d.parts++

	return Token{Kind: Header, Data: block}, true, nil
}

// finish consumes the closing delimiter located at the beginning of the buffer.
func (d *Decoder) finish() Token {
	d.buffer.Advance(len(d.delims.Close))
	// exclude the epilogue and the closing CRLF
	d.seen = subsat(d.seen, uint64(d.buffer.Len())+2)
	d.terminate()

	return Token{Kind: EndOfBody}
}

func (d *Decoder) refill() (exhausted bool, err error) {
	if d.srcDone {
		d.tracef("polled total bytes: %d", d.seen)
		return true, nil
	}

	data, err := d.src.Retrieve()
	if len(data) > 0 {
		d.seen += uint64(len(data))
		d.buffer.Append(data)
		d.tracef("polled bytes %d/%d/%d", len(data), d.buffer.Len(), d.seen)
	}

	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		d.srcDone = true
		if len(data) == 0 {
			d.tracef("polled total bytes: %d", d.seen)
			return true, nil
		}
	default:
		return false, err
	}

	return false, nil
}

func (d *Decoder) emit(kind Kind, n int) Token {
	data := d.buffer.TakeFront(n)
	d.shift(n)

	return Token{Kind: kind, Data: data}
}

func (d *Decoder) advance(n int) {
	d.buffer.Advance(n)
	d.shift(n)
}

// shift moves cached offsets after n bytes were removed from the buffer's front. Offsets
// falling into the removed region are invalidated.
func (d *Decoder) shift(n int) {
	d.candidate = shifted(d.candidate, n)
	d.confirmed = shifted(d.confirmed, n)
}

// dropPreamble discards the preamble, except the last keep bytes, which may be the
// beginning of a delimiter.
func (d *Decoder) dropPreamble(keep int) {
	if n := d.buffer.Len() - keep; n > 0 {
		d.buffer.Advance(n)
	}

	d.candidate, d.confirmed = -1, -1
}

func (d *Decoder) terminate() {
	d.eof = true
	d.candidate, d.confirmed = -1, -1
	d.partEnded = false
	d.buffer.Reset(nil)
}

func (d *Decoder) signal(kind Kind) Token {
	d.wakeup()
	return Token{Kind: kind}
}

func (d *Decoder) wakeup() {
	if fn := d.wake; fn != nil {
		d.wake = nil
		fn()
	}
}

func (d *Decoder) tracef(format string, v ...any) {
	if d.logger != nil {
		d.logger.Printf(format, v...)
	}
}

func shifted(offset, n int) int {
	if offset < n {
		return -1
	}

	return offset - n
}

func subsat(a, b uint64) uint64 {
	if b > a {
		return 0
	}

	return a - b
}
