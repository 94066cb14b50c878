package firmware

import (
	"bytes"
	"encoding/binary"
)

// Locate finds the offset of the first self-consistent container header in
// data. Containers are routinely embedded in vendor wrapper packages, so a
// bare magic match is not trusted: a candidate offset only wins when the
// CRC stored in its header covers the preceding 260 bytes correctly.
//
// When no header magic passes the self-check, the scan falls back to
// segment magics and probes one header length before each occurrence. That
// recovers images whose header region was relocated or partially
// overwritten but whose first segment survived.
func Locate(data []byte) (int, error) {
	for p := nextMagic(data, 0, MagicHeader); p >= 0; p = nextMagic(data, p+1, MagicHeader) {
		if headerSelfConsistent(data, p) {
			return p, nil
		}
	}
	for q := nextSegmentMagic(data, 0); q >= 0; q = nextSegmentMagic(data, q+1) {
		p := q - HeaderSize
		if p >= 0 && headerSelfConsistent(data, p) {
			return p, nil
		}
	}
	return 0, ErrHeaderNotFound
}

// headerSelfConsistent reports whether a full header fits at p and its
// embedded CRC matches the bytes it covers.
func headerSelfConsistent(data []byte, p int) bool {
	if p < 0 || p+HeaderSize > len(data) {
		return false
	}
	stored := binary.BigEndian.Uint32(data[p+headerCRCOffset:])
	return stored == Checksum(data[p:p+headerCRCOffset])
}

func nextMagic(data []byte, from int, magic string) int {
	if from < 0 || from > len(data) {
		return -1
	}
	i := bytes.Index(data[from:], []byte(magic))
	if i < 0 {
		return -1
	}
	return from + i
}

// nextSegmentMagic returns the earliest occurrence of either segment magic
// at or after from, preserving first-match-wins ordering across the two
// variants.
func nextSegmentMagic(data []byte, from int) int {
	part := nextMagic(data, from, MagicPart)
	exec := nextMagic(data, from, MagicExec)
	switch {
	case part < 0:
		return exec
	case exec < 0:
		return part
	case exec < part:
		return exec
	default:
		return part
	}
}
