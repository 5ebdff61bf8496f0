package multipart

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/indigo-web/multipart/status"
)

// Text returns the value converted from its charset to UTF-8. Charset names are resolved
// as WHATWG encoding labels, so utf8, cp1252 or koi8-r are all recognized.
func (d Data) Text() (string, error) {
	enc, err := htmlindex.Get(d.Charset)
	if err != nil {
		return "", status.ErrUnsupportedCharset
	}

	if enc == unicode.UTF8 || enc == encoding.Nop {
		return d.Value, nil
	}

	text, err := enc.NewDecoder().String(d.Value)
	if err != nil {
		return "", status.ErrBadEncoding
	}

	return text, nil
}
