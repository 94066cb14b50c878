package firmware

import (
	"bytes"
	"errors"
	"testing"
)

func testSegments() []SegmentInput {
	return []SegmentInput{
		{
			Kind:      KindExecutable,
			Name:      "kernel",
			LoadAddr:  0x80000000,
			Index:     0,
			BaseAddr:  0x10000,
			EntryAddr: 0x80000000,
			Payload:   []byte{0x01, 0x02, 0x03},
		},
		{
			Kind:     KindData,
			Name:     "rootfs",
			Index:    1,
			BaseAddr: 0x30000,
			PartSize: 0x100,
			Payload:  bytes.Repeat([]byte{0x5a}, 64),
		},
	}
}

func mustEncode(t *testing.T, version string, segs []SegmentInput) []byte {
	t.Helper()
	img, err := Encode(version, segs)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return img
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	img := mustEncode(t, "TEST-1.0", testSegments())
	c, err := Decode(img, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if c.Version != "TEST-1.0" {
		t.Fatalf("version: got %q want %q", c.Version, "TEST-1.0")
	}
	if c.HeaderOffset != 0 {
		t.Fatalf("header offset: got %d want 0", c.HeaderOffset)
	}
	if len(c.Segments) != 2 {
		t.Fatalf("segments: got %d want 2", len(c.Segments))
	}

	k := c.Segments[0]
	if k.Name != "kernel" || k.Kind != KindExecutable {
		t.Fatalf("segment 0: got %q/%v", k.Name, k.Kind)
	}
	if !bytes.Equal(k.Payload, []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("segment 0 payload: got % x", k.Payload)
	}
	if k.BaseAddr != 0x10000 || k.Index != 0 {
		t.Fatalf("segment 0 addressing: base=%#x index=%d", k.BaseAddr, k.Index)
	}
	if k.PartSize != 3 {
		t.Fatalf("segment 0 alloc should default to payload length, got %d", k.PartSize)
	}
	if c.Segments[1].PartSize != 0x100 {
		t.Fatalf("segment 1 alloc: got %#x want 0x100", c.Segments[1].PartSize)
	}

	for i, s := range c.Segments {
		if !s.CRCValid {
			t.Fatalf("segment %d crc invalid: claimed %#x computed %#x", i, s.CRCClaimed, s.CRCComputed)
		}
	}
	if !c.Signature.CRCValid || !c.Signature.Valid {
		t.Fatalf("signature not valid: %+v", c.Signature)
	}
	if c.Signature.Magic != MagicEnd {
		t.Fatalf("signature magic: got %q", c.Signature.Magic)
	}
	if c.Signature.Block != nil || c.Signature.RSA != RSAUnknown {
		t.Fatalf("encoder must not emit an RSA block: %+v", c.Signature)
	}
	if !c.Valid() {
		t.Fatalf("container should be valid")
	}
}

func TestDecodeBehindWrapperPrefix(t *testing.T) {
	t.Parallel()

	img := mustEncode(t, "v2.1.3", testSegments())
	want, err := Decode(img, nil)
	if err != nil {
		t.Fatalf("decode bare: %v", err)
	}

	for _, pad := range []int{1, 7, 268, 4095} {
		wrapped := append(bytes.Repeat([]byte{0xaa}, pad), img...)
		c, err := Decode(wrapped, nil)
		if err != nil {
			t.Fatalf("pad %d: decode: %v", pad, err)
		}
		if c.HeaderOffset != pad {
			t.Fatalf("pad %d: header offset got %d", pad, c.HeaderOffset)
		}
		if c.Version != want.Version || len(c.Segments) != len(want.Segments) {
			t.Fatalf("pad %d: content changed", pad)
		}
		for i := range c.Segments {
			if !c.Segments[i].CRCValid || !bytes.Equal(c.Segments[i].Payload, want.Segments[i].Payload) {
				t.Fatalf("pad %d: segment %d changed", pad, i)
			}
		}
		if !c.Signature.Valid {
			t.Fatalf("pad %d: signature invalidated by wrapper prefix", pad)
		}
	}
}

func TestPayloadBitFlipIsolated(t *testing.T) {
	t.Parallel()

	img := mustEncode(t, "TEST-1.0", testSegments())
	c, err := Decode(img, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Flip one bit inside the first segment's payload.
	img[c.Segments[0].Offset+SegmentHeaderSize+1] ^= 0x40

	c, err = Decode(img, nil)
	if err != nil {
		t.Fatalf("decode tampered: %v", err)
	}
	if c.Segments[0].CRCValid {
		t.Fatalf("segment 0 crc should be invalid after bit flip")
	}
	if !c.Segments[1].CRCValid {
		t.Fatalf("segment 1 crc must be unaffected")
	}
	if c.Valid() {
		t.Fatalf("container must not report valid")
	}
}

func TestSignatureBitFlip(t *testing.T) {
	t.Parallel()

	img := mustEncode(t, "TEST-1.0", testSegments())
	c, err := Decode(img, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Corrupt the stored signature checksum, leaving segments untouched.
	img[c.Signature.Offset+5] ^= 0x01

	c, err = Decode(img, nil)
	if err != nil {
		t.Fatalf("decode tampered: %v", err)
	}
	if c.Signature.Valid || c.Signature.CRCValid {
		t.Fatalf("signature should be invalid")
	}
	for i, s := range c.Segments {
		if !s.CRCValid {
			t.Fatalf("segment %d crc must be unaffected", i)
		}
	}
}

func TestAlternateTerminalMagicAccepted(t *testing.T) {
	t.Parallel()

	img := mustEncode(t, "TEST-1.0", testSegments())
	c, err := Decode(img, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	// The exclusive checksum range stops before the terminal record, so
	// swapping the magic variant must not break validity.
	copy(img[c.Signature.Offset:], MagicEndSigned)

	c, err = Decode(img, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Signature.Magic != MagicEndSigned {
		t.Fatalf("signature magic: got %q", c.Signature.Magic)
	}
	if !c.Signature.Valid {
		t.Fatalf("alternate terminal magic must remain valid")
	}
}

func TestUnknownSegmentMagic(t *testing.T) {
	t.Parallel()

	img := mustEncode(t, "TEST-1.0", testSegments())
	copy(img[HeaderSize:], "JUNK")

	_, err := Decode(img, nil)
	var magicErr *UnknownMagicError
	if !errors.As(err, &magicErr) {
		t.Fatalf("want UnknownMagicError, got %v", err)
	}
	if magicErr.Offset != HeaderSize {
		t.Fatalf("offset: got %#x want %#x", magicErr.Offset, HeaderSize)
	}
	if string(magicErr.Magic[:]) != "JUNK" {
		t.Fatalf("magic: got %q", magicErr.Magic)
	}
}

func TestBadSignatureMagic(t *testing.T) {
	t.Parallel()

	img := mustEncode(t, "TEST-1.0", testSegments())
	c, err := Decode(img, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	copy(img[c.Signature.Offset:], "ENDX")

	_, err = Decode(img, nil)
	var sigErr *BadSignatureMagicError
	if !errors.As(err, &sigErr) {
		t.Fatalf("want BadSignatureMagicError, got %v", err)
	}
	if sigErr.Offset != c.Signature.Offset {
		t.Fatalf("offset: got %#x want %#x", sigErr.Offset, c.Signature.Offset)
	}
}

func TestTruncatedMidPayload(t *testing.T) {
	t.Parallel()

	img := mustEncode(t, "TEST-1.0", testSegments())
	cut := img[:HeaderSize+SegmentHeaderSize+1]

	_, err := Decode(cut, nil)
	var trunc *TruncatedError
	if !errors.As(err, &trunc) {
		t.Fatalf("want TruncatedError, got %v", err)
	}
	if trunc.Offset != HeaderSize+SegmentHeaderSize {
		t.Fatalf("offset: got %#x", trunc.Offset)
	}
}

func TestTruncatedBeforeSignature(t *testing.T) {
	t.Parallel()

	img := mustEncode(t, "TEST-1.0", testSegments())
	cut := img[:len(img)-SignatureSize+3]

	if _, err := Decode(cut, nil); err == nil {
		t.Fatalf("want error for truncated signature")
	} else {
		var trunc *TruncatedError
		if !errors.As(err, &trunc) {
			t.Fatalf("want TruncatedError, got %v", err)
		}
	}
}

func TestEncodeTruncatesOverlongFields(t *testing.T) {
	t.Parallel()

	long := "0123456789abcdef0123456789abcdef"
	img := mustEncode(t, long, []SegmentInput{{
		Name:    "a-name-well-beyond-the-field",
		Payload: []byte{1},
	}})

	c, err := Decode(img, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Version != long {
		t.Fatalf("a 32-byte version fits the field: got %q", c.Version)
	}
	if got := c.Segments[0].Name; got != "a-name-well-bey" {
		t.Fatalf("name truncation: got %q", got)
	}
	if !c.Valid() {
		t.Fatalf("truncated fields must still checksum")
	}
}

func TestProgressCallbackOrder(t *testing.T) {
	t.Parallel()

	img := mustEncode(t, "TEST-1.0", testSegments())
	var names []string
	_, err := Decode(img, &DecodeOptions{
		OnSegment: func(i int, seg *Segment) {
			if i != len(names) {
				t.Fatalf("callback index %d out of order", i)
			}
			names = append(names, seg.Name)
		},
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(names) != 2 || names[0] != "kernel" || names[1] != "rootfs" {
		t.Fatalf("callback sequence: %v", names)
	}
}
