package mp4

// FourCC is a four-character box type code, stored as a big-endian uint32
// so values compare and switch cheaply.
type FourCC uint32

// Box types that occur at the top level of a stream.
const (
	FourCCBLOC FourCC = 0x626c6f63 // "bloc"
	FourCCEMSG FourCC = 0x656d7367 // "emsg"
	FourCCFREE FourCC = 0x66726565 // "free"
	FourCCFTYP FourCC = 0x66747970 // "ftyp"
	FourCCMDAT FourCC = 0x6d646174 // "mdat"
	FourCCMECO FourCC = 0x6d65636f // "meco"
	FourCCMETA FourCC = 0x6d657461 // "meta"
	FourCCMFRA FourCC = 0x6d667261 // "mfra"
	FourCCMOOF FourCC = 0x6d6f6f66 // "moof"
	FourCCMOOV FourCC = 0x6d6f6f76 // "moov"
	FourCCPDIN FourCC = 0x7064696e // "pdin"
	FourCCPRFT FourCC = 0x70726674 // "prft"
	FourCCSIDX FourCC = 0x73696478 // "sidx"
	FourCCSKIP FourCC = 0x736b6970 // "skip"
	FourCCSSIX FourCC = 0x73736978 // "ssix"
	FourCCSTYP FourCC = 0x73747970 // "styp"
	FourCCUUID FourCC = 0x75756964 // "uuid"
)

// Box types nested inside moov/moof hierarchies.
const (
	FourCCDINF FourCC = 0x64696e66 // "dinf"
	FourCCEDTS FourCC = 0x65647473 // "edts"
	FourCCHDLR FourCC = 0x68646c72 // "hdlr"
	FourCCMDHD FourCC = 0x6d646864 // "mdhd"
	FourCCMDIA FourCC = 0x6d646961 // "mdia"
	FourCCMFHD FourCC = 0x6d666864 // "mfhd"
	FourCCMINF FourCC = 0x6d696e66 // "minf"
	FourCCMVEX FourCC = 0x6d766578 // "mvex"
	FourCCMVHD FourCC = 0x6d766864 // "mvhd"
	FourCCPSSH FourCC = 0x70737368 // "pssh"
	FourCCSCHI FourCC = 0x73636869 // "schi"
	FourCCSINF FourCC = 0x73696e66 // "sinf"
	FourCCSTBL FourCC = 0x7374626c // "stbl"
	FourCCSTSD FourCC = 0x73747364 // "stsd"
	FourCCTFDT FourCC = 0x74666474 // "tfdt"
	FourCCTFHD FourCC = 0x74666864 // "tfhd"
	FourCCTKHD FourCC = 0x746b6864 // "tkhd"
	FourCCTRAF FourCC = 0x74726166 // "traf"
	FourCCTRAK FourCC = 0x7472616b // "trak"
	FourCCTREX FourCC = 0x74726578 // "trex"
	FourCCTRUN FourCC = 0x7472756e // "trun"
	FourCCUDTA FourCC = 0x75647461 // "udta"
)

// Sample entry formats and handler types referenced by tests and tools.
const (
	FourCCAVC1 FourCC = 0x61766331 // "avc1"
	FourCCMP4A FourCC = 0x6d703461 // "mp4a"
	FourCCSOUN FourCC = 0x736f756e // "soun"
	FourCCVIDE FourCC = 0x76696465 // "vide"
)

// String renders the code as its four characters, substituting '?' for
// bytes outside the printable ASCII range.
func (f FourCC) String() string {
	b := [4]byte{byte(f >> 24), byte(f >> 16), byte(f >> 8), byte(f)}
	for i, c := range b {
		if c < 0x20 || c > 0x7e {
			b[i] = '?'
		}
	}
	return string(b[:])
}

// StringToFourCC converts the first four bytes of s into a FourCC. Shorter
// strings are zero-padded.
func StringToFourCC(s string) FourCC {
	var b [4]byte
	copy(b[:], s)
	return FourCC(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}
