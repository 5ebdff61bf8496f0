package pending

import "bytes"

// Buffer accumulates bytes which weren't handed to anyone yet. Segments taken from its
// front stay valid forever: the memory behind them is never written again, as appends
// either go past the current end or move the whole buffer into a fresh allocation.
type Buffer struct {
	memory []byte
}

func New(seed []byte, initialSize int) *Buffer {
	b := &Buffer{
		memory: make([]byte, 0, max(initialSize, len(seed))),
	}
	b.memory = append(b.memory, seed...)

	return b
}

// Append extends the buffer. No limit is enforced here.
func (b *Buffer) Append(data []byte) {
	b.memory = append(b.memory, data...)
}

// TakeFront splits off the first n bytes. The returned segment is capacity-limited,
// so appending to it never spills into the buffer. Requesting more than Len() bytes
// is a programming error and panics.
func (b *Buffer) TakeFront(n int) []byte {
	if n > len(b.memory) {
		panic("pending: take beyond the buffer length")
	}

	segment := b.memory[:n:n]
	b.memory = b.memory[n:]

	return segment
}

// Advance drops the first n bytes without returning them.
func (b *Buffer) Advance(n int) {
	if n > len(b.memory) {
		n = len(b.memory)
	}

	b.memory = b.memory[n:]
}

// Search returns the offset of the leftmost pattern occurrence, or -1.
func (b *Buffer) Search(pattern []byte) int {
	return bytes.Index(b.memory, pattern)
}

// SearchFrom behaves like Search, but skips the first offset bytes. The returned offset
// is still relative to the buffer's beginning.
func (b *Buffer) SearchFrom(offset int, pattern []byte) int {
	if offset > len(b.memory) {
		return -1
	}

	pos := bytes.Index(b.memory[offset:], pattern)
	if pos == -1 {
		return -1
	}

	return offset + pos
}

func (b *Buffer) Len() int {
	return len(b.memory)
}

// Reset drops everything and starts over with the seed. Previously taken segments keep
// their memory, the buffer gets a new one.
func (b *Buffer) Reset(seed []byte) {
	b.memory = append(make([]byte, 0, cap(b.memory)), seed...)
}
