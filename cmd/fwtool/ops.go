package main

import (
	"context"
	"crypto/rsa"
	"fmt"
	"os"
	"strings"

	"github.com/rvbcrs/unifi-firmware-tool/internal/api"
	"github.com/rvbcrs/unifi-firmware-tool/internal/layout"
	"github.com/rvbcrs/unifi-firmware-tool/internal/logger"
	"github.com/rvbcrs/unifi-firmware-tool/pkg/firmware"
)

// envPublicKey is the environment fallback for --key. The codec never
// reads the environment itself; this is the only place it is consulted.
const envPublicKey = "FWTOOL_PUBLIC_KEY"

// resolveKey loads the public key from --key, the environment, or the
// config file, in that order. A nil key simply disables RSA verification.
func resolveKey(log logger.Logger) (*rsa.PublicKey, error) {
	path := keyPath
	if path == "" {
		path = os.Getenv(envPublicKey)
	}
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	key, err := firmware.ParsePublicKey(data)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded public key", "path", path, "bits", key.N.BitLen())
	return key, nil
}

// decodeImage loads and decodes an image file. The caller must invoke the
// returned closer once done with the container's payload slices.
func decodeImage(log logger.Logger, path string, key *rsa.PublicKey) (*firmware.Container, func() error, error) {
	f, err := firmware.Open(path)
	if err != nil {
		return nil, nil, err
	}
	c, err := firmware.Decode(f.Data, &firmware.DecodeOptions{
		PublicKey: key,
		OnSegment: func(i int, seg *firmware.Segment) {
			log.Debug("decoded segment", "index", i, "name", seg.Name, "bytes", seg.DataSize, "crc_valid", seg.CRCValid)
		},
	})
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return c, f.Close, nil
}

func doSplit(ctx context.Context, image, prefix string) error {
	log := logger.FromContext(ctx)
	key, err := resolveKey(log)
	if err != nil {
		return err
	}
	c, done, err := decodeImage(log, image, key)
	if err != nil {
		return err
	}
	defer func() { _ = done() }()

	// Validity is advisory for split: a tampered image still extracts.
	for i := range c.Segments {
		if !c.Segments[i].CRCValid {
			log.Warn("segment checksum mismatch", "name", c.Segments[i].Name,
				"claimed", fmt.Sprintf("%#08x", c.Segments[i].CRCClaimed),
				"computed", fmt.Sprintf("%#08x", c.Segments[i].CRCComputed))
		}
	}
	if !c.Signature.Valid {
		log.Warn("signature invalid", "rsa", c.Signature.RSA.String())
	}

	if prefix == "" {
		prefix = defaultPrefix(image)
	}
	desc, err := layout.Split(c, prefix)
	if err != nil {
		return err
	}
	log.Info("split complete", "segments", len(c.Segments), "descriptor", desc)
	return nil
}

func doBuild(ctx context.Context, plan, out, versionOverride string) error {
	log := logger.FromContext(ctx)
	l, err := layout.Load(plan)
	if err != nil {
		return err
	}
	version := l.Version
	if versionOverride != "" {
		version = versionOverride
	}
	if len(version) >= firmware.VersionSize {
		log.Warn("version truncated", "version", version)
	}

	segs, err := l.Segments()
	if err != nil {
		return err
	}
	img, err := firmware.Encode(version, segs)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, img, 0o644); err != nil {
		return err
	}
	log.Info("image written", "path", out, "bytes", len(img), "segments", len(segs), "version", version)
	return nil
}

func doList(ctx context.Context, image string, asJSON bool) error {
	log := logger.FromContext(ctx)
	key, err := resolveKey(log)
	if err != nil {
		return err
	}
	c, done, err := decodeImage(log, image, key)
	if err != nil {
		return err
	}
	defer func() { _ = done() }()

	if asJSON {
		body, err := api.NewImageReport(c).Encode()
		if err != nil {
			return err
		}
		fmt.Println(string(body))
		return nil
	}

	fmt.Printf("version: %s\n", c.Version)
	if c.HeaderOffset != 0 {
		fmt.Printf("header offset: %#x\n", c.HeaderOffset)
	}
	fmt.Printf("%-4s %-16s %-5s %-10s %-10s %-10s %9s %9s %s\n",
		"IDX", "NAME", "KIND", "BASE", "LOAD", "ENTRY", "SIZE", "ALLOC", "CRC")
	for i := range c.Segments {
		s := &c.Segments[i]
		crc := "ok"
		if !s.CRCValid {
			crc = "BAD"
		}
		fmt.Printf("%-4d %-16s %-5s 0x%08x 0x%08x 0x%08x %9d %9d %s\n",
			s.Index, s.Name, s.Kind, s.BaseAddr, s.LoadAddr, s.EntryAddr,
			s.DataSize, s.PartSize, crc)
	}

	sig := "ok"
	if !c.Signature.Valid {
		sig = "BAD"
	}
	fmt.Printf("signature: %s (%s", sig, c.Signature.Magic)
	if c.Signature.Block != nil {
		fmt.Printf(", %d-byte RSA block, %s", len(c.Signature.Block), c.Signature.RSA)
	}
	fmt.Println(")")
	return nil
}

// doVerify reports whether the image passes every check. The error return
// covers structural failures only.
func doVerify(ctx context.Context, image string) (bool, error) {
	log := logger.FromContext(ctx)
	key, err := resolveKey(log)
	if err != nil {
		return false, err
	}
	c, done, err := decodeImage(log, image, key)
	if err != nil {
		return false, err
	}
	defer func() { _ = done() }()
	return c.Valid(), nil
}

// defaultPrefix derives the split output prefix from the image filename.
func defaultPrefix(image string) string {
	if i := strings.LastIndex(image, "."); i > strings.LastIndex(image, "/") {
		return image[:i]
	}
	return image + ".parts"
}
