package mp4

// Box is what a parsed box type exposes to the reader: a fixed type code
// identifying which children it matches, and a parse routine over a reader
// scoped to the box's own extent. Parse implementations use the same reader
// recursively for their own nested content.
type Box interface {
	BoxType() FourCC
	Parse(r *BoxReader) error
}

// FullBox carries the version/flags prefix shared by ISO full boxes.
// Concrete box types embed it and populate it via ReadFullBoxHeader.
type FullBox struct {
	Version uint8
	Flags   uint32
}

// ReadFullBoxHeader reads the one-byte version and 24-bit flags prefix at
// the cursor.
func (r *BoxReader) ReadFullBoxHeader(fb *FullBox) error {
	v, err := r.ReadUint32()
	if err != nil {
		return err
	}
	fb.Version = uint8(v >> 24)
	fb.Flags = v & 0x00ffffff
	return nil
}

// readVersionedUint reads the 64-bit form of a field when version is
// non-zero and the 32-bit form otherwise, the split ISO full boxes use for
// timestamps and durations.
func (r *BoxReader) readVersionedUint(version uint8) (uint64, error) {
	if version != 0 {
		return r.ReadUint64()
	}
	v, err := r.ReadUint32()
	return uint64(v), err
}
