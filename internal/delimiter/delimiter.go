package delimiter

const (
	// Prefix is the part of every delimiter preceding the boundary token.
	Prefix = "\r\n--"
	// HeaderEnd terminates a part's header block.
	HeaderEnd = "\r\n\r\n"
)

// Set holds byte sequences matched against the stream. Close always shares the
// Prefix+boundary head with Open, so searches for them overlap.
type Set struct {
	// Open is `\r\n--boundary\r\n`
	Open []byte
	// Close is `\r\n--boundary--\r\n`
	Close []byte
}

func Build(boundary []byte) Set {
	head := make([]byte, 0, len(Prefix)+len(boundary)+4)
	head = append(head, Prefix...)
	head = append(head, boundary...)

	open := make([]byte, len(head), len(head)+2)
	copy(open, head)
	open = append(open, '\r', '\n')

	closing := append(head, '-', '-', '\r', '\n')

	return Set{
		Open:  open,
		Close: closing,
	}
}
