package mp4

import "encoding/binary"

// BufferReader wraps a borrowed byte slice with a read cursor. It never
// copies or owns the underlying storage; the slice must outlive the reader.
// All multi-byte reads are big-endian, as the container format requires.
//
// Reads past the end of the slice fail as malformed rather than incomplete:
// a BufferReader is always scoped to a region whose extent has already been
// settled, so running short means the content contradicts the declared size.
type BufferReader struct {
	buf []byte
	pos int
}

// NewBufferReader returns a reader positioned at the start of buf.
func NewBufferReader(buf []byte) *BufferReader {
	return &BufferReader{buf: buf}
}

// HasBytes reports whether n more bytes can be read from the cursor.
func (r *BufferReader) HasBytes(n int) bool {
	return n >= 0 && n <= len(r.buf)-r.pos
}

// Data returns the underlying slice the reader is scoped to.
func (r *BufferReader) Data() []byte { return r.buf }

// Size returns the total length of the scoped region.
func (r *BufferReader) Size() int { return len(r.buf) }

// Pos returns the cursor offset within the scoped region.
func (r *BufferReader) Pos() int { return r.pos }

func (r *BufferReader) take(n int) ([]byte, error) {
	if !r.HasBytes(n) {
		return nil, malformedf("read of %d bytes at offset %d exceeds region of %d bytes", n, r.pos, len(r.buf))
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *BufferReader) ReadUint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *BufferReader) ReadUint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *BufferReader) ReadUint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *BufferReader) ReadUint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *BufferReader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

func (r *BufferReader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *BufferReader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadFourCC reads a four-character type code.
func (r *BufferReader) ReadFourCC() (FourCC, error) {
	v, err := r.ReadUint32()
	return FourCC(v), err
}

// ReadBytes returns a view of the next n bytes without copying them. The
// view aliases the reader's backing storage.
func (r *BufferReader) ReadBytes(n int) ([]byte, error) {
	return r.take(n)
}

// SkipBytes advances the cursor by n bytes.
func (r *BufferReader) SkipBytes(n int) error {
	_, err := r.take(n)
	return err
}
