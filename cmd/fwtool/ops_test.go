package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/rvbcrs/unifi-firmware-tool/internal/logger"
	"github.com/rvbcrs/unifi-firmware-tool/pkg/firmware"
)

// quietContext carries a silenced logger, the way command actions seed
// theirs before calling into the ops.
func quietContext() context.Context {
	log := logger.Text(io.Discard, slog.LevelError)
	return logger.WithContext(context.Background(), log)
}

func TestDefaultPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		image    string
		expected string
	}{
		{"fw.bin", "fw"},
		{"dir/fw.v1.bin", "dir/fw.v1"},
		{"dir.d/image", "dir.d/image.parts"},
		{"image", "image.parts"},
	}
	for _, tc := range tests {
		if got := defaultPrefix(tc.image); got != tc.expected {
			t.Errorf("defaultPrefix(%q): got %q want %q", tc.image, got, tc.expected)
		}
	}
}

func TestSplitBuildVerify(t *testing.T) {
	dir := t.TempDir()

	img, err := firmware.Encode("TEST-1.0", []firmware.SegmentInput{
		{Kind: firmware.KindExecutable, Name: "kernel", BaseAddr: 0x10000, Payload: []byte{1, 2, 3}},
		{Kind: firmware.KindData, Name: "rootfs", Index: 1, PartSize: 0x40, Payload: bytes.Repeat([]byte{0xcd}, 48)},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	imagePath := filepath.Join(dir, "fw.bin")
	if err := os.WriteFile(imagePath, img, 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	ctx := quietContext()
	if err := doSplit(ctx, imagePath, ""); err != nil {
		t.Fatalf("split: %v", err)
	}
	prefix := filepath.Join(dir, "fw")
	if _, err := os.Stat(prefix + ".layout"); err != nil {
		t.Fatalf("descriptor missing: %v", err)
	}

	rebuilt := filepath.Join(dir, "rebuilt.bin")
	if err := doBuild(ctx, prefix, rebuilt, ""); err != nil {
		t.Fatalf("build: %v", err)
	}
	got, err := os.ReadFile(rebuilt)
	if err != nil {
		t.Fatalf("read rebuilt: %v", err)
	}
	if !bytes.Equal(got, img) {
		t.Fatalf("rebuild is not byte-identical")
	}

	ok, err := doVerify(ctx, rebuilt)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("rebuilt image must verify")
	}
}
