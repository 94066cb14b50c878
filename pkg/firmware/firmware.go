// Package firmware implements the UniFi firmware container format.
//
// A container is a flat byte layout: a fixed 268-byte header carrying a
// version string, an ordered run of checksummed segments, and a trailing
// signature record that may be followed by an RSA signature block. All
// multi-byte integers are big-endian. The package describes structure and
// integrity only and never interprets segment payloads.
package firmware

// Container magics. These are wire constants and must never change.
const (
	// MagicHeader opens every container header.
	MagicHeader = "OPEN"

	// MagicPart and MagicExec tag data and executable segments.
	MagicPart = "PART"
	MagicExec = "EXEC"

	// MagicEnd and MagicEndSigned terminate the segment run. Both variants
	// appear in the wild; they are equivalent for decoding.
	MagicEnd       = "END."
	MagicEndSigned = "ENDS"
)

const (
	// HeaderSize covers magic, version text, header CRC and pad.
	HeaderSize = 268

	// VersionSize is the width of the version text field. The text is
	// null-terminated inside the field, so at most VersionSize-1 bytes of
	// it are significant.
	VersionSize = 256

	// headerCRCOffset is where the header's self-checksum lives. It covers
	// the preceding bytes, ie magic plus version field.
	headerCRCOffset = 260

	// SegmentHeaderSize covers magic, name, reserved bytes and the six
	// 32-bit fields of a segment header.
	SegmentHeaderSize = 56

	// NameSize is the width of the segment name field, null-terminated.
	NameSize = 16

	// SegmentTrailerSize covers the segment CRC and its pad word.
	SegmentTrailerSize = 8

	// SignatureSize covers the terminal magic, the signature CRC and its
	// pad word. An optional RSA block follows it.
	SignatureSize = 12
)

// Offsets of the segment header fields, relative to the segment start.
// 12 reserved bytes sit between the name field and the addressing fields.
const (
	segNameOffset  = 4
	segLoadOffset  = 32
	segIndexOffset = 36
	segBaseOffset  = 40
	segEntryOffset = 44
	segSizeOffset  = 48
	segAllocOffset = 52
)

// RSA signature blocks are exactly one of these sizes (2048 or 4096 bit
// keys). Anything else after the signature record is not a block.
var rsaBlockSizes = [...]int{256, 512}

// SegmentKind distinguishes the two segment magic variants.
type SegmentKind uint8

const (
	KindData SegmentKind = iota
	KindExecutable
)

func (k SegmentKind) String() string {
	if k == KindExecutable {
		return "exec"
	}
	return "data"
}

func (k SegmentKind) magic() string {
	if k == KindExecutable {
		return MagicExec
	}
	return MagicPart
}

// RSAStatus reports the outcome of the optional asymmetric check.
type RSAStatus uint8

const (
	// RSAUnknown means no block was present or no key was supplied.
	RSAUnknown RSAStatus = iota
	RSAValid
	RSAInvalid
)

func (s RSAStatus) String() string {
	switch s {
	case RSAValid:
		return "valid"
	case RSAInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Container is a decoded firmware image. It is an immutable view: validity
// flags are fixed at decode time and rebuilding an image means constructing
// a fresh segment list and calling Encode.
type Container struct {
	// Version is the version text with the field padding stripped.
	Version string

	// HeaderOffset is where the header was found inside the input buffer.
	// Nonzero when the container sits behind vendor wrapper bytes.
	HeaderOffset int

	// Segments in stream order. The Index field of a segment is metadata
	// recorded by the build tooling, not a positional guarantee.
	Segments []Segment

	Signature Signature
}

// Valid reports whether every segment checksum and the signature hold.
func (c *Container) Valid() bool {
	for i := range c.Segments {
		if !c.Segments[i].CRCValid {
			return false
		}
	}
	return c.Signature.Valid
}

// Segment is one independently addressed blob inside a container.
type Segment struct {
	Kind SegmentKind
	Name string

	LoadAddr  uint32
	Index     uint32
	BaseAddr  uint32
	EntryAddr uint32

	// DataSize is the declared payload length; PartSize is the flash
	// allocation for the segment, which may be larger.
	DataSize uint32
	PartSize uint32

	Payload []byte

	// Offset of the segment header inside the input buffer.
	Offset int

	// CRCClaimed is the trailer value; CRCComputed covers the segment
	// header and payload as actually read. A mismatch does not fail the
	// decode, it only clears CRCValid.
	CRCClaimed  uint32
	CRCComputed uint32
	CRCValid    bool
}

// Signature is the terminal record of a container.
type Signature struct {
	// Magic is the terminal variant that ended the segment run.
	Magic string

	// Offset of the signature record inside the input buffer.
	Offset int

	// CRCClaimed is checked against two coverage ranges, exclusive and
	// inclusive of the signature record itself; either match sets
	// CRCValid. Both conventions ship on real devices.
	CRCClaimed uint32
	CRCValid   bool

	// Block is the optional trailing RSA signature, nil when absent.
	Block []byte
	RSA   RSAStatus

	// Valid folds CRCValid with the RSA outcome when a key was supplied.
	Valid bool
}

// SegmentInput describes one segment for Encode. PartSize zero means the
// payload length. Name is truncated to NameSize-1 bytes on encode.
type SegmentInput struct {
	Kind SegmentKind
	Name string

	LoadAddr  uint32
	Index     uint32
	BaseAddr  uint32
	EntryAddr uint32

	PartSize uint32
	Payload  []byte
}
