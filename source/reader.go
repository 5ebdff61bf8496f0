package source

import "io"

// Reader exposes a Retriever as an io.Reader. When the destination is a writer, WriteTo
// hands the pieces over directly, without copying them into an intermediate buffer.
type Reader struct {
	src     Retriever
	pending []byte
	err     error
}

func NewReader(src Retriever) *Reader {
	return &Reader{src: src}
}

func (r *Reader) Read(b []byte) (n int, err error) {
	if len(r.pending) == 0 && r.err == nil {
		r.pending, r.err = r.src.Retrieve()
	}

	n = copy(b, r.pending)
	r.pending = r.pending[n:]

	if len(r.pending) == 0 {
		err = r.err
	}

	return n, err
}

// WriteTo writes the rest of the stream into w. Reaching the end of the stream isn't
// considered an error.
func (r *Reader) WriteTo(w io.Writer) (n int64, err error) {
	for {
		if len(r.pending) > 0 {
			written, err := w.Write(r.pending)
			n += int64(written)
			r.pending = r.pending[written:]
			if err != nil {
				return n, err
			}
		}

		switch r.err {
		case nil:
		case io.EOF:
			return n, nil
		default:
			return n, r.err
		}

		r.pending, r.err = r.src.Retrieve()
	}
}

// Extra returns the bytes the source pulled past the end of its stream, e.g. whatever
// follows a chunked body. It's empty until the stream is entirely read.
func (r *Reader) Extra() []byte {
	if len(r.pending) > 0 || r.err != io.EOF {
		return nil
	}

	if src, ok := r.src.(interface{ Extra() []byte }); ok {
		return src.Extra()
	}

	return nil
}

// Reset makes the reader read from another source.
func (r *Reader) Reset(src Retriever) {
	r.src = src
	r.pending = nil
	r.err = nil
}
