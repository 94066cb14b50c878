// Package api serves structural firmware reports over HTTP for fleet-side
// checks. Handlers hold no format knowledge: everything goes through the
// firmware package's decode and verification contracts.
package api

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/rvbcrs/unifi-firmware-tool/pkg/firmware"
)

// ImageReport is the full structural report for a decoded image.
type ImageReport struct {
	ID           string          `json:"id,omitempty"`
	Version      string          `json:"version"`
	HeaderOffset int             `json:"header_offset"`
	Valid        bool            `json:"valid"`
	Segments     []SegmentReport `json:"segments"`
	Signature    SignatureReport `json:"signature"`
}

type SegmentReport struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Index     uint32 `json:"index"`
	LoadAddr  string `json:"load_addr"`
	BaseAddr  string `json:"base_addr"`
	EntryAddr string `json:"entry_addr"`
	DataSize  uint32 `json:"data_size"`
	PartSize  uint32 `json:"part_size"`
	Offset    int    `json:"offset"`
	CRC       string `json:"crc"`
	CRCValid  bool   `json:"crc_valid"`
}

type SignatureReport struct {
	Magic     string `json:"magic"`
	Offset    int    `json:"offset"`
	CRCValid  bool   `json:"crc_valid"`
	BlockSize int    `json:"block_size,omitempty"`
	RSA       string `json:"rsa"`
	Valid     bool   `json:"valid"`
}

// NewImageReport flattens a decoded container into its report form.
func NewImageReport(c *firmware.Container) ImageReport {
	r := ImageReport{
		Version:      c.Version,
		HeaderOffset: c.HeaderOffset,
		Valid:        c.Valid(),
		Segments:     make([]SegmentReport, 0, len(c.Segments)),
		Signature: SignatureReport{
			Magic:     c.Signature.Magic,
			Offset:    c.Signature.Offset,
			CRCValid:  c.Signature.CRCValid,
			BlockSize: len(c.Signature.Block),
			RSA:       c.Signature.RSA.String(),
			Valid:     c.Signature.Valid,
		},
	}
	for i := range c.Segments {
		s := &c.Segments[i]
		r.Segments = append(r.Segments, SegmentReport{
			Name:      s.Name,
			Kind:      s.Kind.String(),
			Index:     s.Index,
			LoadAddr:  hex32(s.LoadAddr),
			BaseAddr:  hex32(s.BaseAddr),
			EntryAddr: hex32(s.EntryAddr),
			DataSize:  s.DataSize,
			PartSize:  s.PartSize,
			Offset:    s.Offset,
			CRC:       hex32(s.CRCComputed),
			CRCValid:  s.CRCValid,
		})
	}
	return r
}

// Encode renders the report as indented JSON, shared by the HTTP handlers
// and the CLI's --json output.
func (r ImageReport) Encode() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func hex32(v uint32) string {
	return fmt.Sprintf("0x%08x", v)
}
