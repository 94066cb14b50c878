package firmware

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestLocateBareContainer(t *testing.T) {
	t.Parallel()

	img := mustEncode(t, "v1", testSegments())
	off, err := Locate(img)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if off != 0 {
		t.Fatalf("offset: got %d want 0", off)
	}
}

func TestLocateSkipsDecoyMagic(t *testing.T) {
	t.Parallel()

	img := mustEncode(t, "v1", testSegments())

	// A wrapper containing incidental header magic without a matching
	// self-checksum must not win over the real header.
	decoy := make([]byte, 512)
	copy(decoy, MagicHeader)
	buf := append(decoy, img...)

	off, err := Locate(buf)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if off != len(decoy) {
		t.Fatalf("offset: got %d want %d", off, len(decoy))
	}
}

func TestLocateSegmentMagicFallback(t *testing.T) {
	t.Parallel()

	img := mustEncode(t, "v1", testSegments())

	// Simulate a wrapper that stamps its own tag over the header magic and
	// restamps the header checksum: the magic scan finds nothing, but the
	// first segment magic leads back to a self-consistent header.
	copy(img, "WRAP")
	binary.BigEndian.PutUint32(img[headerCRCOffset:], Checksum(img[:headerCRCOffset]))

	off, err := Locate(img)
	if err != nil {
		t.Fatalf("locate via fallback: %v", err)
	}
	if off != 0 {
		t.Fatalf("offset: got %d want 0", off)
	}

	c, err := DecodeAt(img, off, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(c.Segments) != 2 {
		t.Fatalf("fallback decode incomplete: %d segments", len(c.Segments))
	}
	for i := range c.Segments {
		if !c.Segments[i].CRCValid {
			t.Fatalf("segment %d crc must survive a header overwrite", i)
		}
	}
	// The overwritten header bytes sit inside the signature's coverage, so
	// the container checksum no longer holds.
	if c.Signature.Valid {
		t.Fatalf("signature must reflect the rewritten header")
	}
}

func TestLocateNotFound(t *testing.T) {
	t.Parallel()

	buf := bytes.Repeat([]byte{0x55}, 8192)
	if _, err := Locate(buf); !errors.Is(err, ErrHeaderNotFound) {
		t.Fatalf("want ErrHeaderNotFound, got %v", err)
	}

	// Header magic present but never self-consistent.
	copy(buf[100:], MagicHeader)
	if _, err := Locate(buf); !errors.Is(err, ErrHeaderNotFound) {
		t.Fatalf("want ErrHeaderNotFound for inconsistent magic, got %v", err)
	}
}

func TestLocateExecFirstSegmentFallback(t *testing.T) {
	t.Parallel()

	img := mustEncode(t, "v1", testSegments()[:1]) // single exec segment
	copy(img, "WRAP")
	binary.BigEndian.PutUint32(img[headerCRCOffset:], Checksum(img[:headerCRCOffset]))

	off, err := Locate(img)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if off != 0 {
		t.Fatalf("offset: got %d want 0", off)
	}
}
