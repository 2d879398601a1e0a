package mp4

import (
	"errors"
	"testing"
)

func TestBufferReader_Reads(t *testing.T) {
	t.Parallel()

	r := NewBufferReader([]byte{
		0x01,
		0x02, 0x03,
		0x04, 0x05, 0x06, 0x07,
		0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
		'f', 't', 'y', 'p',
	})

	if v, err := r.ReadUint8(); err != nil || v != 0x01 {
		t.Fatalf("ReadUint8 = (%#x, %v)", v, err)
	}
	if v, err := r.ReadUint16(); err != nil || v != 0x0203 {
		t.Fatalf("ReadUint16 = (%#x, %v)", v, err)
	}
	if v, err := r.ReadUint32(); err != nil || v != 0x04050607 {
		t.Fatalf("ReadUint32 = (%#x, %v)", v, err)
	}
	if v, err := r.ReadUint64(); err != nil || v != 0x08090a0b0c0d0e0f {
		t.Fatalf("ReadUint64 = (%#x, %v)", v, err)
	}
	if v, err := r.ReadFourCC(); err != nil || v != FourCCFTYP {
		t.Fatalf("ReadFourCC = (%s, %v)", v, err)
	}
	if r.Pos() != r.Size() {
		t.Fatalf("pos = %d, size = %d", r.Pos(), r.Size())
	}
}

func TestBufferReader_SignedReads(t *testing.T) {
	t.Parallel()

	r := NewBufferReader([]byte{
		0xff, 0xfe, // -2
		0xff, 0xff, 0xff, 0xfd, // -3
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfc, // -4
	})

	if v, err := r.ReadInt16(); err != nil || v != -2 {
		t.Fatalf("ReadInt16 = (%d, %v)", v, err)
	}
	if v, err := r.ReadInt32(); err != nil || v != -3 {
		t.Fatalf("ReadInt32 = (%d, %v)", v, err)
	}
	if v, err := r.ReadInt64(); err != nil || v != -4 {
		t.Fatalf("ReadInt64 = (%d, %v)", v, err)
	}
}

func TestBufferReader_ShortReadIsMalformed(t *testing.T) {
	t.Parallel()

	r := NewBufferReader([]byte{0x01, 0x02})
	if _, err := r.ReadUint32(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
	// The failed read must not move the cursor.
	if r.Pos() != 0 {
		t.Fatalf("pos = %d after failed read, want 0", r.Pos())
	}
	if err := r.SkipBytes(3); !errors.Is(err, ErrMalformed) {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}

func TestBufferReader_HasBytes(t *testing.T) {
	t.Parallel()

	r := NewBufferReader(make([]byte, 4))
	if !r.HasBytes(0) || !r.HasBytes(4) {
		t.Error("HasBytes should allow reads within bounds")
	}
	if r.HasBytes(5) {
		t.Error("HasBytes(5) should be false for a 4-byte region")
	}
	if r.HasBytes(-1) {
		t.Error("HasBytes should reject negative counts")
	}
}

func TestBufferReader_ReadBytesAliasesBacking(t *testing.T) {
	t.Parallel()

	backing := []byte{1, 2, 3, 4}
	r := NewBufferReader(backing)
	view, err := r.ReadBytes(4)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	backing[0] = 0x7f
	if view[0] != 0x7f {
		t.Error("ReadBytes should return a view, not a copy")
	}
}
