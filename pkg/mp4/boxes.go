package mp4

import "strings"

// Box definitions for the moov/moof hierarchies the toolkit understands.
// Each type parses only its own payload and delegates nested content back
// to the reader, so corrupt input surfaces as ErrMalformed at whichever
// level the inconsistency sits.

// FileType is the ftyp box.
type FileType struct {
	MajorBrand       FourCC
	MinorVersion     uint32
	CompatibleBrands []FourCC
}

func (*FileType) BoxType() FourCC { return FourCCFTYP }

func (b *FileType) Parse(r *BoxReader) error {
	var err error
	if b.MajorBrand, err = r.ReadFourCC(); err != nil {
		return err
	}
	if b.MinorVersion, err = r.ReadUint32(); err != nil {
		return err
	}
	for r.HasBytes(4) {
		brand, err := r.ReadFourCC()
		if err != nil {
			return err
		}
		b.CompatibleBrands = append(b.CompatibleBrands, brand)
	}
	return nil
}

// SegmentType is the styp box, which shares the ftyp layout.
type SegmentType struct {
	FileType
}

func (*SegmentType) BoxType() FourCC { return FourCCSTYP }

// ProtectionSystemSpecificHeader is the pssh box.
type ProtectionSystemSpecificHeader struct {
	FullBox
	SystemID [16]byte
	Data     []byte
}

func (*ProtectionSystemSpecificHeader) BoxType() FourCC { return FourCCPSSH }

func (b *ProtectionSystemSpecificHeader) Parse(r *BoxReader) error {
	if err := r.ReadFullBoxHeader(&b.FullBox); err != nil {
		return err
	}
	id, err := r.ReadBytes(16)
	if err != nil {
		return err
	}
	copy(b.SystemID[:], id)
	size, err := r.ReadUint32()
	if err != nil {
		return err
	}
	b.Data, err = r.ReadBytes(int(size))
	return err
}

// MovieHeader is the mvhd box.
type MovieHeader struct {
	FullBox
	CreationTime     uint64
	ModificationTime uint64
	Timescale        uint32
	Duration         uint64
	NextTrackID      uint32
}

func (*MovieHeader) BoxType() FourCC { return FourCCMVHD }

func (b *MovieHeader) Parse(r *BoxReader) error {
	if err := r.ReadFullBoxHeader(&b.FullBox); err != nil {
		return err
	}
	var err error
	if b.CreationTime, err = r.readVersionedUint(b.Version); err != nil {
		return err
	}
	if b.ModificationTime, err = r.readVersionedUint(b.Version); err != nil {
		return err
	}
	if b.Timescale, err = r.ReadUint32(); err != nil {
		return err
	}
	if b.Duration, err = r.readVersionedUint(b.Version); err != nil {
		return err
	}
	// rate, volume, reserved, matrix, pre_defined
	if err = r.SkipBytes(4 + 2 + 2 + 8 + 36 + 24); err != nil {
		return err
	}
	if b.NextTrackID, err = r.ReadUint32(); err != nil {
		return err
	}
	if b.Timescale == 0 {
		return malformedf("mvhd timescale is zero")
	}
	return nil
}

// TrackHeader is the tkhd box.
type TrackHeader struct {
	FullBox
	CreationTime     uint64
	ModificationTime uint64
	TrackID          uint32
	Duration         uint64
	Volume           uint16
	Width            uint32 // 16.16 fixed point
	Height           uint32 // 16.16 fixed point
}

func (*TrackHeader) BoxType() FourCC { return FourCCTKHD }

func (b *TrackHeader) Parse(r *BoxReader) error {
	if err := r.ReadFullBoxHeader(&b.FullBox); err != nil {
		return err
	}
	var err error
	if b.CreationTime, err = r.readVersionedUint(b.Version); err != nil {
		return err
	}
	if b.ModificationTime, err = r.readVersionedUint(b.Version); err != nil {
		return err
	}
	if b.TrackID, err = r.ReadUint32(); err != nil {
		return err
	}
	if err = r.SkipBytes(4); err != nil { // reserved
		return err
	}
	if b.Duration, err = r.readVersionedUint(b.Version); err != nil {
		return err
	}
	if err = r.SkipBytes(8 + 2 + 2); err != nil { // reserved, layer, alternate_group
		return err
	}
	if b.Volume, err = r.ReadUint16(); err != nil {
		return err
	}
	if err = r.SkipBytes(2 + 36); err != nil { // reserved, matrix
		return err
	}
	if b.Width, err = r.ReadUint32(); err != nil {
		return err
	}
	b.Height, err = r.ReadUint32()
	return err
}

// MediaHeader is the mdhd box.
type MediaHeader struct {
	FullBox
	CreationTime     uint64
	ModificationTime uint64
	Timescale        uint32
	Duration         uint64
	LanguageCode     uint16
}

func (*MediaHeader) BoxType() FourCC { return FourCCMDHD }

func (b *MediaHeader) Parse(r *BoxReader) error {
	if err := r.ReadFullBoxHeader(&b.FullBox); err != nil {
		return err
	}
	var err error
	if b.CreationTime, err = r.readVersionedUint(b.Version); err != nil {
		return err
	}
	if b.ModificationTime, err = r.readVersionedUint(b.Version); err != nil {
		return err
	}
	if b.Timescale, err = r.ReadUint32(); err != nil {
		return err
	}
	if b.Duration, err = r.readVersionedUint(b.Version); err != nil {
		return err
	}
	if b.LanguageCode, err = r.ReadUint16(); err != nil {
		return err
	}
	if b.Timescale == 0 {
		return malformedf("mdhd timescale is zero")
	}
	return r.SkipBytes(2) // pre_defined
}

// Language decodes the packed ISO-639-2/T code.
func (b *MediaHeader) Language() string {
	if b.LanguageCode == 0 {
		return "und"
	}
	return string([]byte{
		byte(b.LanguageCode>>10&0x1f) + 0x60,
		byte(b.LanguageCode>>5&0x1f) + 0x60,
		byte(b.LanguageCode&0x1f) + 0x60,
	})
}

// HandlerReference is the hdlr box.
type HandlerReference struct {
	FullBox
	HandlerType FourCC
	Name        string
}

func (*HandlerReference) BoxType() FourCC { return FourCCHDLR }

func (b *HandlerReference) Parse(r *BoxReader) error {
	if err := r.ReadFullBoxHeader(&b.FullBox); err != nil {
		return err
	}
	if err := r.SkipBytes(4); err != nil { // pre_defined
		return err
	}
	var err error
	if b.HandlerType, err = r.ReadFourCC(); err != nil {
		return err
	}
	if err = r.SkipBytes(12); err != nil { // reserved
		return err
	}
	name, err := r.ReadBytes(r.Size() - r.Pos())
	if err != nil {
		return err
	}
	b.Name = strings.TrimRight(string(name), "\x00")
	return nil
}

// SampleEntry is one record of a sample description. The format-specific
// remainder is kept as an opaque view for codec-level code to interpret.
type SampleEntry struct {
	Format             FourCC
	DataReferenceIndex uint16
	Data               []byte
}

// BoxType is unused: stsd consumes entries positionally via
// ReadAllChildren, since the format code differs per entry.
func (*SampleEntry) BoxType() FourCC { return 0 }

func (b *SampleEntry) Parse(r *BoxReader) error {
	b.Format = r.Type()
	if err := r.SkipBytes(6); err != nil { // reserved
		return err
	}
	var err error
	if b.DataReferenceIndex, err = r.ReadUint16(); err != nil {
		return err
	}
	b.Data, err = r.ReadBytes(r.Size() - r.Pos())
	return err
}

// SampleDescription is the stsd box.
type SampleDescription struct {
	FullBox
	Entries []SampleEntry
}

func (*SampleDescription) BoxType() FourCC { return FourCCSTSD }

func (b *SampleDescription) Parse(r *BoxReader) error {
	if err := r.ReadFullBoxHeader(&b.FullBox); err != nil {
		return err
	}
	count, err := r.ReadUint32()
	if err != nil {
		return err
	}
	if err := ReadAllChildren[SampleEntry](r, &b.Entries); err != nil {
		return err
	}
	if uint64(len(b.Entries)) != uint64(count) {
		return malformedf("stsd declares %d entries, found %d", count, len(b.Entries))
	}
	return nil
}

// SampleTable is the stbl box.
type SampleTable struct {
	Description SampleDescription
}

func (*SampleTable) BoxType() FourCC { return FourCCSTBL }

func (b *SampleTable) Parse(r *BoxReader) error {
	if err := r.ScanChildren(); err != nil {
		return err
	}
	return r.ReadChild(&b.Description)
}

// MediaInformation is the minf box.
type MediaInformation struct {
	SampleTable SampleTable
}

func (*MediaInformation) BoxType() FourCC { return FourCCMINF }

func (b *MediaInformation) Parse(r *BoxReader) error {
	if err := r.ScanChildren(); err != nil {
		return err
	}
	return r.ReadChild(&b.SampleTable)
}

// Media is the mdia box.
type Media struct {
	Header      MediaHeader
	Handler     HandlerReference
	Information MediaInformation
}

func (*Media) BoxType() FourCC { return FourCCMDIA }

func (b *Media) Parse(r *BoxReader) error {
	if err := r.ScanChildren(); err != nil {
		return err
	}
	if err := r.ReadChild(&b.Header); err != nil {
		return err
	}
	if err := r.ReadChild(&b.Handler); err != nil {
		return err
	}
	return r.ReadChild(&b.Information)
}

// Track is the trak box.
type Track struct {
	Header TrackHeader
	Media  Media
}

func (*Track) BoxType() FourCC { return FourCCTRAK }

func (b *Track) Parse(r *BoxReader) error {
	if err := r.ScanChildren(); err != nil {
		return err
	}
	if err := r.ReadChild(&b.Header); err != nil {
		return err
	}
	return r.ReadChild(&b.Media)
}

// TrackExtends is the trex box.
type TrackExtends struct {
	FullBox
	TrackID                       uint32
	DefaultSampleDescriptionIndex uint32
	DefaultSampleDuration         uint32
	DefaultSampleSize             uint32
	DefaultSampleFlags            uint32
}

func (*TrackExtends) BoxType() FourCC { return FourCCTREX }

func (b *TrackExtends) Parse(r *BoxReader) error {
	if err := r.ReadFullBoxHeader(&b.FullBox); err != nil {
		return err
	}
	var err error
	if b.TrackID, err = r.ReadUint32(); err != nil {
		return err
	}
	if b.DefaultSampleDescriptionIndex, err = r.ReadUint32(); err != nil {
		return err
	}
	if b.DefaultSampleDuration, err = r.ReadUint32(); err != nil {
		return err
	}
	if b.DefaultSampleSize, err = r.ReadUint32(); err != nil {
		return err
	}
	b.DefaultSampleFlags, err = r.ReadUint32()
	return err
}

// MovieExtends is the mvex box.
type MovieExtends struct {
	Tracks []TrackExtends
}

func (*MovieExtends) BoxType() FourCC { return FourCCMVEX }

func (b *MovieExtends) Parse(r *BoxReader) error {
	if err := r.ScanChildren(); err != nil {
		return err
	}
	return ReadChildren[TrackExtends](r, &b.Tracks)
}

// Movie is the moov box.
type Movie struct {
	Header     MovieHeader
	Tracks     []Track
	Pssh       []ProtectionSystemSpecificHeader
	Extends    MovieExtends
	Fragmented bool
}

func (*Movie) BoxType() FourCC { return FourCCMOOV }

func (b *Movie) Parse(r *BoxReader) error {
	if err := r.ScanChildren(); err != nil {
		return err
	}
	if err := r.ReadChild(&b.Header); err != nil {
		return err
	}
	if err := ReadChildren[Track](r, &b.Tracks); err != nil {
		return err
	}
	if err := TryReadChildren[ProtectionSystemSpecificHeader](r, &b.Pssh); err != nil {
		return err
	}
	b.Fragmented = r.ChildExists(&b.Extends)
	return r.TryReadChild(&b.Extends)
}

// MovieFragmentHeader is the mfhd box.
type MovieFragmentHeader struct {
	FullBox
	SequenceNumber uint32
}

func (*MovieFragmentHeader) BoxType() FourCC { return FourCCMFHD }

func (b *MovieFragmentHeader) Parse(r *BoxReader) error {
	if err := r.ReadFullBoxHeader(&b.FullBox); err != nil {
		return err
	}
	var err error
	b.SequenceNumber, err = r.ReadUint32()
	return err
}

// Flags carried by tfhd and trun.
const (
	TFHDBaseDataOffsetPresent         = 0x000001
	TFHDSampleDescriptionIndexPresent = 0x000002
	TFHDDefaultSampleDurationPresent  = 0x000008
	TFHDDefaultSampleSizePresent      = 0x000010
	TFHDDefaultSampleFlagsPresent     = 0x000020
	TFHDDurationIsEmpty               = 0x010000
	TFHDDefaultBaseIsMoof             = 0x020000

	TRUNDataOffsetPresent       = 0x000001
	TRUNFirstSampleFlagsPresent = 0x000004
	TRUNSampleDurationPresent   = 0x000100
	TRUNSampleSizePresent       = 0x000200
	TRUNSampleFlagsPresent      = 0x000400
	TRUNSampleCTSOffsetPresent  = 0x000800
)

// TrackFragmentHeader is the tfhd box.
type TrackFragmentHeader struct {
	FullBox
	TrackID                uint32
	BaseDataOffset         uint64
	SampleDescriptionIndex uint32
	DefaultSampleDuration  uint32
	DefaultSampleSize      uint32
	DefaultSampleFlags     uint32
}

func (*TrackFragmentHeader) BoxType() FourCC { return FourCCTFHD }

func (b *TrackFragmentHeader) Parse(r *BoxReader) error {
	if err := r.ReadFullBoxHeader(&b.FullBox); err != nil {
		return err
	}
	var err error
	if b.TrackID, err = r.ReadUint32(); err != nil {
		return err
	}
	if b.Flags&TFHDBaseDataOffsetPresent != 0 {
		if b.BaseDataOffset, err = r.ReadUint64(); err != nil {
			return err
		}
	}
	if b.Flags&TFHDSampleDescriptionIndexPresent != 0 {
		if b.SampleDescriptionIndex, err = r.ReadUint32(); err != nil {
			return err
		}
	}
	if b.Flags&TFHDDefaultSampleDurationPresent != 0 {
		if b.DefaultSampleDuration, err = r.ReadUint32(); err != nil {
			return err
		}
	}
	if b.Flags&TFHDDefaultSampleSizePresent != 0 {
		if b.DefaultSampleSize, err = r.ReadUint32(); err != nil {
			return err
		}
	}
	if b.Flags&TFHDDefaultSampleFlagsPresent != 0 {
		if b.DefaultSampleFlags, err = r.ReadUint32(); err != nil {
			return err
		}
	}
	return nil
}

// DefaultBaseIsMoof reports whether run offsets are relative to the start
// of the enclosing moof rather than the file.
func (b *TrackFragmentHeader) DefaultBaseIsMoof() bool {
	return b.Flags&TFHDDefaultBaseIsMoof != 0
}

// TrackFragmentDecodeTime is the tfdt box.
type TrackFragmentDecodeTime struct {
	FullBox
	BaseMediaDecodeTime uint64
}

func (*TrackFragmentDecodeTime) BoxType() FourCC { return FourCCTFDT }

func (b *TrackFragmentDecodeTime) Parse(r *BoxReader) error {
	if err := r.ReadFullBoxHeader(&b.FullBox); err != nil {
		return err
	}
	var err error
	b.BaseMediaDecodeTime, err = r.readVersionedUint(b.Version)
	return err
}

// TrackFragmentRun is the trun box. Per-sample slices are populated only
// when the corresponding flag marks the field present. The declared count
// is validated against the remaining bytes before any per-sample work, and
// the slices are never preallocated from it, so a hostile count can force
// neither a large allocation nor a long loop.
type TrackFragmentRun struct {
	FullBox
	SampleCount      uint32
	DataOffset       int32
	FirstSampleFlags uint32
	SampleDurations  []uint32
	SampleSizes      []uint32
	SampleFlags      []uint32
	SampleCTSOffsets []int64
}

func (*TrackFragmentRun) BoxType() FourCC { return FourCCTRUN }

func (b *TrackFragmentRun) Parse(r *BoxReader) error {
	if err := r.ReadFullBoxHeader(&b.FullBox); err != nil {
		return err
	}
	var err error
	if b.SampleCount, err = r.ReadUint32(); err != nil {
		return err
	}
	if b.Flags&TRUNDataOffsetPresent != 0 {
		if b.DataOffset, err = r.ReadInt32(); err != nil {
			return err
		}
	}
	if b.Flags&TRUNFirstSampleFlagsPresent != 0 {
		if b.FirstSampleFlags, err = r.ReadUint32(); err != nil {
			return err
		}
	}
	bytesPerSample := 0
	for _, flag := range []uint32{
		TRUNSampleDurationPresent,
		TRUNSampleSizePresent,
		TRUNSampleFlagsPresent,
		TRUNSampleCTSOffsetPresent,
	} {
		if b.Flags&flag != 0 {
			bytesPerSample += 4
		}
	}
	if bytesPerSample == 0 {
		// No per-sample fields to read; the declared count must not drive
		// any work, or a hostile count turns into a spin.
		return nil
	}
	if need := uint64(b.SampleCount) * uint64(bytesPerSample); need > uint64(r.Size()-r.Pos()) {
		return malformedf("trun declares %d samples, needing %d bytes beyond the %d remaining",
			b.SampleCount, need, r.Size()-r.Pos())
	}
	for i := uint32(0); i < b.SampleCount; i++ {
		if b.Flags&TRUNSampleDurationPresent != 0 {
			d, err := r.ReadUint32()
			if err != nil {
				return err
			}
			b.SampleDurations = append(b.SampleDurations, d)
		}
		if b.Flags&TRUNSampleSizePresent != 0 {
			s, err := r.ReadUint32()
			if err != nil {
				return err
			}
			b.SampleSizes = append(b.SampleSizes, s)
		}
		if b.Flags&TRUNSampleFlagsPresent != 0 {
			f, err := r.ReadUint32()
			if err != nil {
				return err
			}
			b.SampleFlags = append(b.SampleFlags, f)
		}
		if b.Flags&TRUNSampleCTSOffsetPresent != 0 {
			// Unsigned in version 0, signed from version 1.
			if b.Version == 0 {
				v, err := r.ReadUint32()
				if err != nil {
					return err
				}
				b.SampleCTSOffsets = append(b.SampleCTSOffsets, int64(v))
			} else {
				v, err := r.ReadInt32()
				if err != nil {
					return err
				}
				b.SampleCTSOffsets = append(b.SampleCTSOffsets, int64(v))
			}
		}
	}
	return nil
}

// TrackFragment is the traf box.
type TrackFragment struct {
	Header     TrackFragmentHeader
	DecodeTime TrackFragmentDecodeTime
	Runs       []TrackFragmentRun
}

func (*TrackFragment) BoxType() FourCC { return FourCCTRAF }

func (b *TrackFragment) Parse(r *BoxReader) error {
	if err := r.ScanChildren(); err != nil {
		return err
	}
	if err := r.ReadChild(&b.Header); err != nil {
		return err
	}
	if err := r.TryReadChild(&b.DecodeTime); err != nil {
		return err
	}
	return TryReadChildren[TrackFragmentRun](r, &b.Runs)
}

// MovieFragment is the moof box.
type MovieFragment struct {
	Header MovieFragmentHeader
	Tracks []TrackFragment
}

func (*MovieFragment) BoxType() FourCC { return FourCCMOOF }

func (b *MovieFragment) Parse(r *BoxReader) error {
	if err := r.ScanChildren(); err != nil {
		return err
	}
	if err := r.ReadChild(&b.Header); err != nil {
		return err
	}
	return ReadChildren[TrackFragment](r, &b.Tracks)
}

// SegmentReference is one entry of a sidx reference list.
type SegmentReference struct {
	ReferencesIndex    bool
	ReferencedSize     uint32
	SubsegmentDuration uint32
	StartsWithSAP      bool
	SAPType            uint8
	SAPDeltaTime       uint32
}

// SegmentIndex is the sidx box.
type SegmentIndex struct {
	FullBox
	ReferenceID              uint32
	Timescale                uint32
	EarliestPresentationTime uint64
	FirstOffset              uint64
	References               []SegmentReference
}

func (*SegmentIndex) BoxType() FourCC { return FourCCSIDX }

func (b *SegmentIndex) Parse(r *BoxReader) error {
	if err := r.ReadFullBoxHeader(&b.FullBox); err != nil {
		return err
	}
	var err error
	if b.ReferenceID, err = r.ReadUint32(); err != nil {
		return err
	}
	if b.Timescale, err = r.ReadUint32(); err != nil {
		return err
	}
	if b.EarliestPresentationTime, err = r.readVersionedUint(b.Version); err != nil {
		return err
	}
	if b.FirstOffset, err = r.readVersionedUint(b.Version); err != nil {
		return err
	}
	if err = r.SkipBytes(2); err != nil { // reserved
		return err
	}
	count, err := r.ReadUint16()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		var ref SegmentReference
		sizeWord, err := r.ReadUint32()
		if err != nil {
			return err
		}
		ref.ReferencesIndex = sizeWord&0x80000000 != 0
		ref.ReferencedSize = sizeWord & 0x7fffffff
		if ref.SubsegmentDuration, err = r.ReadUint32(); err != nil {
			return err
		}
		sapWord, err := r.ReadUint32()
		if err != nil {
			return err
		}
		ref.StartsWithSAP = sapWord&0x80000000 != 0
		ref.SAPType = uint8(sapWord >> 28 & 0x7)
		ref.SAPDeltaTime = sapWord & 0x0fffffff
		b.References = append(b.References, ref)
	}
	if b.Timescale == 0 {
		return malformedf("sidx timescale is zero")
	}
	return nil
}
