package firmware

import (
	"bytes"
	"crypto/rsa"
	"encoding/binary"
)

// DecodeOptions adjusts a decode without changing its byte semantics.
type DecodeOptions struct {
	// PublicKey enables verification of the optional RSA block. With a nil
	// key the block is reported present with RSAUnknown and the overall
	// signature verdict is unaffected.
	PublicKey *rsa.PublicKey

	// OnSegment, when set, is called once per decoded segment in stream
	// order. It is a reporting hook only: it runs after the segment's
	// checksum has been computed and must not be used to alter the decode.
	OnSegment func(index int, seg *Segment)
}

// Decode locates the container header in data and decodes the full
// container. Checksum and signature mismatches are reported as validity
// flags on the result, not as errors; only structural malformation fails.
func Decode(data []byte, opts *DecodeOptions) (*Container, error) {
	off, err := Locate(data)
	if err != nil {
		return nil, err
	}
	return DecodeAt(data, off, opts)
}

// DecodeAt decodes the container whose header starts at offset. Callers
// normally obtain the offset from Locate; DecodeAt itself only requires
// that a full header fits at the position.
func DecodeAt(data []byte, offset int, opts *DecodeOptions) (*Container, error) {
	if opts == nil {
		opts = &DecodeOptions{}
	}
	if offset < 0 || offset+HeaderSize > len(data) {
		return nil, &TruncatedError{Offset: offset}
	}

	c := &Container{
		HeaderOffset: offset,
		Version:      fieldString(data[offset+4 : offset+4+VersionSize]),
	}

	// Walk segments until a terminal magic. Stream order is authoritative.
	pos := offset + HeaderSize
	for {
		if pos+4 > len(data) {
			return nil, &TruncatedError{Offset: pos}
		}
		magic := data[pos : pos+4]
		if bytes.HasPrefix(magic, []byte("END")) {
			break
		}

		var kind SegmentKind
		switch string(magic) {
		case MagicPart:
			kind = KindData
		case MagicExec:
			kind = KindExecutable
		default:
			e := &UnknownMagicError{Offset: pos}
			copy(e.Magic[:], magic)
			return nil, e
		}

		if pos+SegmentHeaderSize > len(data) {
			return nil, &TruncatedError{Offset: pos}
		}
		hdr := data[pos : pos+SegmentHeaderSize]
		seg := Segment{
			Kind:      kind,
			Name:      fieldString(hdr[segNameOffset : segNameOffset+NameSize]),
			LoadAddr:  binary.BigEndian.Uint32(hdr[segLoadOffset:]),
			Index:     binary.BigEndian.Uint32(hdr[segIndexOffset:]),
			BaseAddr:  binary.BigEndian.Uint32(hdr[segBaseOffset:]),
			EntryAddr: binary.BigEndian.Uint32(hdr[segEntryOffset:]),
			DataSize:  binary.BigEndian.Uint32(hdr[segSizeOffset:]),
			PartSize:  binary.BigEndian.Uint32(hdr[segAllocOffset:]),
			Offset:    pos,
		}

		payloadStart := pos + SegmentHeaderSize
		payloadEnd := payloadStart + int(seg.DataSize)
		if payloadEnd < payloadStart || payloadEnd+SegmentTrailerSize > len(data) {
			return nil, &TruncatedError{Offset: payloadStart}
		}
		seg.Payload = data[payloadStart:payloadEnd]
		seg.CRCClaimed = binary.BigEndian.Uint32(data[payloadEnd:])
		seg.CRCComputed = Checksum(data[pos:payloadEnd])
		seg.CRCValid = seg.CRCClaimed == seg.CRCComputed

		c.Segments = append(c.Segments, seg)
		if opts.OnSegment != nil {
			opts.OnSegment(len(c.Segments)-1, &c.Segments[len(c.Segments)-1])
		}
		pos = payloadEnd + SegmentTrailerSize
	}

	sig, err := decodeSignature(data, offset, pos, opts.PublicKey)
	if err != nil {
		return nil, err
	}
	c.Signature = sig
	return c, nil
}

// decodeSignature parses the terminal record at sigOff and evaluates the
// checksum and optional RSA block. hdrOff anchors the covered ranges so
// wrapper bytes before the container never influence the verdict.
func decodeSignature(data []byte, hdrOff, sigOff int, key *rsa.PublicKey) (Signature, error) {
	if sigOff+SignatureSize > len(data) {
		return Signature{}, &TruncatedError{Offset: sigOff}
	}
	magic := string(data[sigOff : sigOff+4])
	if magic != MagicEnd && magic != MagicEndSigned {
		e := &BadSignatureMagicError{Offset: sigOff}
		copy(e.Magic[:], data[sigOff:sigOff+4])
		return Signature{}, e
	}

	sig := Signature{
		Magic:      magic,
		Offset:     sigOff,
		CRCClaimed: binary.BigEndian.Uint32(data[sigOff+4:]),
	}

	// Two signing conventions exist across firmware generations: the CRC
	// covers the container either up to the signature record or through
	// it. Accept both.
	exclusive := Checksum(data[hdrOff:sigOff])
	inclusive := Checksum(data[hdrOff : sigOff+SignatureSize])
	sig.CRCValid = sig.CRCClaimed == exclusive || sig.CRCClaimed == inclusive
	sig.Valid = sig.CRCValid

	rest := data[sigOff+SignatureSize:]
	for _, n := range rsaBlockSizes {
		if len(rest) != n {
			continue
		}
		sig.Block = rest
		if key != nil {
			if verifySignatureBlock(key, data[hdrOff:sigOff+SignatureSize], rest) {
				sig.RSA = RSAValid
			} else {
				sig.RSA = RSAInvalid
				sig.Valid = false
			}
		}
		break
	}
	return sig, nil
}

// fieldString cuts a fixed-width text field at its first null byte.
func fieldString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
