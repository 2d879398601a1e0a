// Package mp4 parses the ISO-BMFF box structure of MP4 streams. It walks
// untrusted, length-prefixed, recursively nested binary data and exposes
// each box's children for typed extraction, distinguishing buffers that are
// merely incomplete (ErrNotEnoughData) from streams that are structurally
// corrupt (ErrMalformed). Payload bytes are never copied: every reader is a
// view into the caller's buffer.
package mp4

import "errors"

const (
	boxHeaderSize = 8 // 32-bit size + four-character type

	// Boxes larger than this are rejected outright. The cap keeps size
	// arithmetic inside the positive int32 range, so offsets cannot
	// overflow on any platform the reader runs on.
	maxBoxSize = 1<<31 - 1
)

type scanState uint8

const (
	stateUnscanned scanState = iota
	stateScannedByType
	stateConsumedSequentially
)

// BoxReader reads one box and hands out readers scoped to its children.
// The two child consumption modes, ScanChildren and ReadAllChildren, are
// mutually exclusive and usable at most once per reader.
type BoxReader struct {
	BufferReader

	boxType  FourCC
	boxSize  uint64
	state    scanState
	children map[FourCC][]*BoxReader
}

func newBoxReader(buf []byte) *BoxReader {
	return &BoxReader{BufferReader: BufferReader{buf: buf}}
}

// Type returns the four-character code of the box the reader is scoped to.
func (r *BoxReader) Type() FourCC { return r.boxType }

// BoxSize returns the declared size of the box, including its header. For
// an mdat returned header-only, this exceeds the bytes actually available.
func (r *BoxReader) BoxSize() uint64 { return r.boxSize }

// StartTopLevelBox parses the header of the box at the start of buf without
// requiring the body to be present. It returns the box type and declared
// size on success, ErrNotEnoughData while the buffer cannot yet settle the
// header, and an ErrMalformed-wrapped error when the header is inconsistent
// or the type is not a recognised top-level box.
func StartTopLevelBox(buf []byte) (FourCC, uint64, error) {
	r := newBoxReader(buf)
	if err := r.readHeader(); err != nil {
		return 0, 0, err
	}
	if !IsValidTopLevelBox(r.boxType) {
		return 0, 0, malformedf("unrecognized top-level box %s", r.boxType)
	}
	return r.boxType, r.boxSize, nil
}

// ReadTopLevelBox constructs a reader over the box at the start of buf. The
// full declared body must be present, except for mdat: an mdat reader is
// returned as soon as its header is available so callers can stream the
// payload instead of buffering it. A nil reader with ErrNotEnoughData means
// the caller should accumulate more input and retry.
func ReadTopLevelBox(buf []byte) (*BoxReader, error) {
	r := newBoxReader(buf)
	if err := r.readHeader(); err != nil {
		return nil, err
	}
	if !IsValidTopLevelBox(r.boxType) {
		return nil, malformedf("unrecognized top-level box %s", r.boxType)
	}
	end := r.boxSize
	if end > uint64(len(buf)) {
		if r.boxType != FourCCMDAT {
			return nil, ErrNotEnoughData
		}
		end = uint64(len(buf))
	}
	r.buf = buf[:end]
	return r, nil
}

// IsValidTopLevelBox reports whether typ is recognised as a top-level box.
// It returns true for some boxes this package does not itself parse; the
// classification helps callers detect misaligned appends.
func IsValidTopLevelBox(typ FourCC) bool {
	switch typ {
	case FourCCFTYP, FourCCPDIN, FourCCBLOC, FourCCMOOV, FourCCMOOF,
		FourCCMFRA, FourCCMDAT, FourCCFREE, FourCCSKIP, FourCCMETA,
		FourCCMECO, FourCCSTYP, FourCCSIDX, FourCCSSIX, FourCCPRFT,
		FourCCUUID, FourCCEMSG:
		return true
	}
	return false
}

// readHeader parses the size and type prefix at the cursor and records the
// box geometry. ErrNotEnoughData means the header itself (or its 64-bit
// extended size field) is not fully buffered yet; every other failure is
// malformed.
func (r *BoxReader) readHeader() error {
	if !r.HasBytes(boxHeaderSize) {
		return ErrNotEnoughData
	}
	size32, err := r.ReadUint32()
	if err != nil {
		return err
	}
	typ, err := r.ReadFourCC()
	if err != nil {
		return err
	}
	size := uint64(size32)
	switch size32 {
	case 0:
		// A zero size means the box runs to the end of the stream, which
		// a bounded reader cannot represent.
		return malformedf("box %s runs to end of stream", typ)
	case 1:
		if !r.HasBytes(8) {
			return ErrNotEnoughData
		}
		if size, err = r.ReadUint64(); err != nil {
			return err
		}
	}
	if size < uint64(r.pos) {
		return malformedf("box %s declares size %d, smaller than its %d-byte header", typ, size, r.pos)
	}
	if size > maxBoxSize {
		return malformedf("box %s declares size %d, over the %d limit", typ, size, maxBoxSize)
	}
	r.boxType = typ
	r.boxSize = size
	return nil
}

// nextChild carves a reader over the child box starting at the cursor. The
// child's declared extent must fit inside the parent's remaining bytes; a
// truncated header or an overrun is malformed nesting, since the parent's
// own extent is already settled.
func (r *BoxReader) nextChild() (*BoxReader, error) {
	child := newBoxReader(r.buf[r.pos:])
	if err := child.readHeader(); err != nil {
		if errors.Is(err, ErrNotEnoughData) {
			return nil, malformedf("truncated child header at offset %d in %s", r.pos, r.boxType)
		}
		return nil, err
	}
	if child.boxSize > uint64(len(child.buf)) {
		return nil, malformedf("child %s overruns its parent %s", child.boxType, r.boxType)
	}
	child.buf = child.buf[:child.boxSize]
	return child, nil
}

func (r *BoxReader) enterScanMode(next scanState, op string) {
	if r.state != stateUnscanned {
		panic("mp4: " + op + ": reader's children already consumed")
	}
	r.state = next
}

func (r *BoxReader) requireScanned(op string) {
	if r.state != stateScannedByType {
		panic("mp4: " + op + " requires a prior successful ScanChildren")
	}
}

// ScanChildren walks the remaining bytes of the box, indexing every
// immediate child by type while preserving the order of same-typed
// children. It must be called before any of the child extraction methods,
// at most once, and never on a reader consumed by ReadAllChildren. A
// malformed child discards the whole scan.
func (r *BoxReader) ScanChildren() error {
	r.enterScanMode(stateScannedByType, "ScanChildren")
	children := make(map[FourCC][]*BoxReader)
	for r.pos < len(r.buf) {
		child, err := r.nextChild()
		if err != nil {
			return err
		}
		children[child.boxType] = append(children[child.boxType], child)
		r.pos += int(child.boxSize)
	}
	r.children = children
	return nil
}

// ChildExists reports whether at least one unconsumed child matching
// child.BoxType() was found by ScanChildren.
func (r *BoxReader) ChildExists(child Box) bool {
	r.requireScanned("ChildExists")
	return len(r.children[child.BoxType()]) > 0
}

// ReadChild consumes the first child matching child.BoxType() and parses it
// into child. A missing required child is malformed. The child is removed
// from the index only when its parse succeeds, so it cannot be read twice.
func (r *BoxReader) ReadChild(child Box) error {
	r.requireScanned("ReadChild")
	typ := child.BoxType()
	entries := r.children[typ]
	if len(entries) == 0 {
		return malformedf("required %s box missing in %s", typ, r.boxType)
	}
	if err := child.Parse(entries[0]); err != nil {
		return err
	}
	r.popChild(typ)
	return nil
}

// TryReadChild behaves like ReadChild when a matching child exists and
// succeeds without touching child when none does. Absence of an optional
// box is not an error.
func (r *BoxReader) TryReadChild(child Box) error {
	r.requireScanned("TryReadChild")
	if len(r.children[child.BoxType()]) == 0 {
		return nil
	}
	return r.ReadChild(child)
}

func (r *BoxReader) popChild(typ FourCC) {
	entries := r.children[typ]
	if len(entries) <= 1 {
		delete(r.children, typ)
		return
	}
	r.children[typ] = entries[1:]
}

// boxPtr constrains P to a pointer to T satisfying Box, letting the
// extraction helpers derive the child type from the destination's element
// type instead of taking it as a runtime argument.
type boxPtr[T any] interface {
	*T
	Box
}

// ReadChildren consumes every child matching T's box type, appending them
// to children in discovery order. At least one match is required.
func ReadChildren[T any, P boxPtr[T]](r *BoxReader, children *[]T) error {
	if err := TryReadChildren[T, P](r, children); err != nil {
		return err
	}
	if len(*children) == 0 {
		var zero T
		return malformedf("required %s boxes missing in %s", P(&zero).BoxType(), r.boxType)
	}
	return nil
}

// TryReadChildren is ReadChildren with zero matches allowed. On a child's
// parse failure the call aborts; children then holds the successfully
// parsed prefix and must be discarded by the caller.
func TryReadChildren[T any, P boxPtr[T]](r *BoxReader, children *[]T) error {
	r.requireScanned("TryReadChildren")
	var zero T
	typ := P(&zero).BoxType()
	for len(r.children[typ]) > 0 {
		entry := r.children[typ][0]
		var child T
		if err := P(&child).Parse(entry); err != nil {
			return err
		}
		*children = append(*children, child)
		r.popChild(typ)
	}
	return nil
}

// ReadAllChildren consumes the rest of the box as an ordered, flat run of
// children, parsing each as T regardless of its type code. It is mutually
// exclusive with ScanChildren. The run must fill the box exactly; a
// trailing partial child is malformed. Zero children is success.
func ReadAllChildren[T any, P boxPtr[T]](r *BoxReader, children *[]T) error {
	r.enterScanMode(stateConsumedSequentially, "ReadAllChildren")
	for r.pos < len(r.buf) {
		entry, err := r.nextChild()
		if err != nil {
			return err
		}
		var child T
		if err := P(&child).Parse(entry); err != nil {
			return err
		}
		*children = append(*children, child)
		r.pos += int(entry.boxSize)
	}
	return nil
}
