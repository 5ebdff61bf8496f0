package multipart

import (
	"strings"

	"github.com/indigo-web/multipart/internal/strutil"
	"github.com/indigo-web/multipart/status"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
)

// Header holds the meaningful fields of a part's header block. Strings may point into
// the block itself, so they're valid as long as the block is.
type Header struct {
	// Disposition is the disposition type, usually form-data.
	Disposition string
	Name        string
	Filename    string
	ContentType string
	Charset     string
}

// ParseHeaders parses a header block as emitted by the decoder, i.e. including the
// terminating empty line. Fields other than Content-Disposition and Content-Type are
// ignored.
func ParseHeaders(block []byte) (hdr Header, err error) {
	s := newStream(uf.B2S(block))

	for !s.Consume("\r\n") {
		if s.Empty() {
			return Header{}, status.ErrBadHeaders
		}

		var ok bool
		if hdr, ok = parseHeader(&s, hdr); !ok {
			return Header{}, status.ErrBadHeaders
		}
	}

	if !s.Empty() {
		return Header{}, status.ErrBadHeaders
	}

	return hdr, nil
}

func parseHeader(s *stream, origin Header) (modified Header, ok bool) {
	switch {
	case s.ConsumeFold("Content-Disposition:"):
		s.SkipWhitespaces()
		line, ok := s.AdvanceLine()
		if !ok {
			return origin, false
		}

		return parseContentDisposition(line, origin)
	case s.ConsumeFold("Content-Type:"):
		s.SkipWhitespaces()
		line, ok := s.AdvanceLine()
		if !ok {
			return origin, false
		}

		return parseContentType(line, origin)
	default:
		// must ignore
		_, ok = s.AdvanceLine()
		return origin, ok
	}
}

func parseContentDisposition(line string, origin Header) (modified Header, ok bool) {
	value, params := strutil.CutHeader(line)
	if !strutil.IsToken(value) {
		return origin, false
	}

	origin.Disposition = value
	if !hasParams(line) {
		return origin, true
	}

	for key, param := range strutil.WalkKV(params) {
		if len(key) == 0 {
			return origin, false
		}

		switch {
		case strcomp.EqualFold(key, "name"):
			origin.Name = param
		case strcomp.EqualFold(key, "filename"):
			origin.Filename = param
		}
	}

	return origin, true
}

func parseContentType(line string, origin Header) (modified Header, ok bool) {
	value, params := strutil.CutHeader(line)
	if !strutil.IsToken(value) {
		return origin, false
	}

	origin.ContentType = value
	if !hasParams(line) {
		return origin, true
	}

	for key, param := range strutil.WalkKV(params) {
		if len(key) == 0 {
			return origin, false
		}

		if strcomp.EqualFold(key, "charset") {
			origin.Charset = param
		}
	}

	return origin, true
}

func hasParams(line string) bool {
	return strings.IndexByte(line, ';') != -1
}
