// Package layout resolves build plans for the firmware encoder: it parses
// segment descriptors, loads payload files, and writes the split output
// that the build command accepts back.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rvbcrs/unifi-firmware-tool/pkg/firmware"
)

// DescriptorExt is the suffix of the descriptor written next to split
// payload files.
const DescriptorExt = ".layout"

// Entry describes one segment to encode. File points at the payload.
type Entry struct {
	Name string
	Kind firmware.SegmentKind

	Index     uint32
	BaseAddr  uint32
	Size      uint32 // allocated size; 0 means payload length
	LoadAddr  uint32
	EntryAddr uint32

	File string
}

// Layout is an ordered build plan. Entry order is the segment order of the
// encoded container.
type Layout struct {
	Version string
	Entries []Entry
}

// MissingSourceError reports a payload file a layout points at but which
// does not exist or cannot be read.
type MissingSourceError struct {
	Path string
	Err  error
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("layout: missing source %s: %v", e.Path, e.Err)
}

func (e *MissingSourceError) Unwrap() error { return e.Err }

// Load resolves path into a layout. A .yaml/.yml file is parsed as a YAML
// plan, an existing file otherwise as a tab-separated descriptor, and
// anything else is treated as a split output prefix.
func Load(path string) (*Layout, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(path)
	}
	if _, err := os.Stat(path); err == nil {
		return ParseDescriptor(path)
	}
	return FromPrefix(path)
}

// FromPrefix loads the descriptor a previous split wrote for prefix.
func FromPrefix(prefix string) (*Layout, error) {
	return ParseDescriptor(prefix + DescriptorExt)
}

// Segments loads every entry's payload and returns encoder inputs in plan
// order.
func (l *Layout) Segments() ([]firmware.SegmentInput, error) {
	segs := make([]firmware.SegmentInput, 0, len(l.Entries))
	for i := range l.Entries {
		e := &l.Entries[i]
		payload, err := os.ReadFile(e.File)
		if err != nil {
			return nil, &MissingSourceError{Path: e.File, Err: err}
		}
		segs = append(segs, firmware.SegmentInput{
			Kind:      e.Kind,
			Name:      e.Name,
			LoadAddr:  e.LoadAddr,
			Index:     e.Index,
			BaseAddr:  e.BaseAddr,
			EntryAddr: e.EntryAddr,
			PartSize:  e.Size,
			Payload:   payload,
		})
	}
	return segs, nil
}
