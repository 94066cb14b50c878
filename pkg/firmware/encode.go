package firmware

import "encoding/binary"

// Encode serialises version and the given segments, in order, into a
// container that decodes back with every validity flag set. The signature
// checksum uses the exclusive coverage convention and no RSA block is ever
// appended; signing happens outside this tool.
//
// Over-length fields are truncated: the version to VersionSize-1 bytes and
// each name to NameSize-1 bytes, keeping their null terminators. Truncation
// is lossy, so callers that care must bound their inputs.
func Encode(version string, segs []SegmentInput) ([]byte, error) {
	total := HeaderSize + SignatureSize
	for i := range segs {
		total += SegmentHeaderSize + len(segs[i].Payload) + SegmentTrailerSize
	}
	buf := make([]byte, total)

	copy(buf, MagicHeader)
	copyField(buf[4:4+VersionSize], version)
	binary.BigEndian.PutUint32(buf[headerCRCOffset:], Checksum(buf[:headerCRCOffset]))

	pos := HeaderSize
	for i := range segs {
		s := &segs[i]
		hdr := buf[pos:]
		copy(hdr, s.Kind.magic())
		copyField(hdr[segNameOffset:segNameOffset+NameSize], s.Name)
		binary.BigEndian.PutUint32(hdr[segLoadOffset:], s.LoadAddr)
		binary.BigEndian.PutUint32(hdr[segIndexOffset:], s.Index)
		binary.BigEndian.PutUint32(hdr[segBaseOffset:], s.BaseAddr)
		binary.BigEndian.PutUint32(hdr[segEntryOffset:], s.EntryAddr)
		binary.BigEndian.PutUint32(hdr[segSizeOffset:], uint32(len(s.Payload)))
		alloc := s.PartSize
		if alloc == 0 {
			alloc = uint32(len(s.Payload))
		}
		binary.BigEndian.PutUint32(hdr[segAllocOffset:], alloc)

		end := pos + SegmentHeaderSize + len(s.Payload)
		copy(buf[pos+SegmentHeaderSize:end], s.Payload)
		binary.BigEndian.PutUint32(buf[end:], Checksum(buf[pos:end]))
		pos = end + SegmentTrailerSize
	}

	copy(buf[pos:], MagicEnd)
	binary.BigEndian.PutUint32(buf[pos+4:], Checksum(buf[:pos]))
	return buf, nil
}

// copyField writes s into a fixed-width null-terminated field, truncating
// to leave room for the terminator.
func copyField(field []byte, s string) {
	if len(s) > len(field)-1 {
		s = s[:len(field)-1]
	}
	copy(field, s)
}
