package multipart

import (
	"strings"

	"github.com/indigo-web/multipart/internal/strutil"
	"github.com/indigo-web/utils/strcomp"
)

// stream is a cursor over a header block.
type stream struct {
	data string
}

func newStream(data string) stream {
	return stream{data}
}

func (s *stream) CompareFold(str string) bool {
	if len(s.data) < len(str) {
		return false
	}

	return strcomp.EqualFold(s.data[:len(str)], str)
}

func (s *stream) Consume(str string) bool {
	if strings.HasPrefix(s.data, str) {
		s.Advance(len(str))
		return true
	}

	return false
}

func (s *stream) ConsumeFold(str string) bool {
	if s.CompareFold(str) {
		s.Advance(len(str))
		return true
	}

	return false
}

func (s *stream) Advance(n int) (leftBehind string) {
	leftBehind, s.data = s.data[:n], s.data[n:]
	return leftBehind
}

// AdvanceLine returns the line without its terminating CRLF or LF.
func (s *stream) AdvanceLine() (line string, ok bool) {
	newline := strings.IndexByte(s.data, '\n')
	if newline == -1 {
		return "", false
	}

	line = s.Advance(newline + 1)[:newline]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}

	return line, true
}

func (s *stream) SkipWhitespaces() {
	s.data = strutil.LStripWS(s.data)
}

func (s *stream) Empty() bool {
	return len(s.data) == 0
}
