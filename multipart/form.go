package multipart

import (
	"io"
	"iter"

	"github.com/indigo-web/multipart/status"
	"github.com/indigo-web/utils/uf"
)

type Data struct {
	Name     string
	Filename string
	Type     string
	Charset  string
	Value    string
}

type Form []Data

// Name returns the first Data matching the name.
func (f Form) Name(name string) (Data, bool) {
	for data := range f.Names(name) {
		return data, true
	}

	return Data{}, false
}

// Names returns an iterator over all Data matching the name.
func (f Form) Names(name string) iter.Seq[Data] {
	return func(yield func(Data) bool) {
		for _, entry := range f {
			if entry.Name == name {
				if !yield(entry) {
					break
				}
			}
		}
	}
}

// File returns the first Data matching the filename.
func (f Form) File(name string) (Data, bool) {
	for data := range f.Files(name) {
		return data, true
	}

	return Data{}, false
}

// Files returns an iterator over all Data matching the filename.
func (f Form) Files(name string) iter.Seq[Data] {
	return func(yield func(Data) bool) {
		for _, entry := range f {
			if entry.Filename == name {
				if !yield(entry) {
					break
				}
			}
		}
	}
}

// ParseForm reads the rest of the body and appends its entries to into. Every part must
// have a name. A part named _charset_ isn't included, instead its value becomes the
// default charset for the subsequent parts.
func ParseForm(r *Reader, into Form) (Form, error) {
	cfg := r.cfg.Form
	charset := cfg.DefaultCharset
	values := make([]byte, 0, cfg.ValueSpace.Default)

	for {
		part, err := r.NextPart()
		switch err {
		case nil:
		case io.EOF:
			return into, nil
		default:
			return nil, err
		}

		hdr := part.Header
		if len(hdr.Name) == 0 {
			return nil, r.fail(status.ErrBadRequest)
		}

		offset := len(values)
		if values, err = collect(part, values, cfg.ValueSpace.Maximal); err != nil {
			return nil, r.fail(err)
		}

		// values may be reallocated while growing, so earlier values keep pointing at
		// the old memory, which is never written again
		value := uf.B2S(values[offset:len(values):len(values)])

		if hdr.Name == "_charset_" {
			if len(value) == 0 {
				return nil, r.fail(status.ErrBadRequest)
			}

			charset = value
			continue
		}

		if len(hdr.Charset) == 0 {
			hdr.Charset = charset
		}

		if len(hdr.ContentType) == 0 {
			hdr.ContentType = cfg.DefaultContentType
		}

		into = append(into, Data{
			Name:     hdr.Name,
			Filename: hdr.Filename,
			Type:     hdr.ContentType,
			Charset:  hdr.Charset,
			Value:    value,
		})
	}
}

func collect(part *Part, into []byte, limit int) ([]byte, error) {
	for {
		segment, err := part.Next()
		switch err {
		case nil:
		case io.EOF:
			return into, nil
		default:
			return into, err
		}

		if len(into)+len(segment) > limit {
			return into, status.ErrBodyTooLarge
		}

		into = append(into, segment...)
	}
}
