package source

import "io"

// Static returns pre-defined pieces one by one and io.EOF after them. It's mostly
// useful to replay a captured body or to imitate arbitrary network fragmentation.
type Static struct {
	pieces  [][]byte
	pointer int
}

func NewStatic(pieces ...[]byte) *Static {
	return &Static{
		pieces: pieces,
	}
}

// Split cuts data into pieces of the given sizes. When sizes are over, the rest goes
// as a single piece. Zero sizes are skipped.
func Split(data []byte, sizes ...int) *Static {
	var pieces [][]byte

	for _, size := range sizes {
		if len(data) == 0 {
			break
		}

		if size <= 0 {
			continue
		}

		size = min(size, len(data))
		pieces = append(pieces, data[:size])
		data = data[size:]
	}

	if len(data) > 0 {
		pieces = append(pieces, data)
	}

	return NewStatic(pieces...)
}

func (s *Static) Retrieve() ([]byte, error) {
	if s.pointer >= len(s.pieces) {
		return nil, io.EOF
	}

	piece := s.pieces[s.pointer]
	s.pointer++

	return piece, nil
}

// Reset rewinds the source, so it can be replayed again.
func (s *Static) Reset() {
	s.pointer = 0
}
