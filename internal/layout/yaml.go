package layout

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rvbcrs/unifi-firmware-tool/pkg/firmware"
)

// yamlLayout is the hand-written build plan variant:
//
//	version: "RouterStation.v1.2"
//	segments:
//	  - name: kernel
//	    kind: exec
//	    index: 0
//	    base: 0x10000
//	    load: 0x80000000
//	    entry: 0x80000000
//	    file: kernel.bin
type yamlLayout struct {
	Version  string        `yaml:"version"`
	Segments []yamlSegment `yaml:"segments"`
}

type yamlSegment struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Index uint32 `yaml:"index"`
	Base  uint32 `yaml:"base"`
	Size  uint32 `yaml:"size"`
	Load  uint32 `yaml:"load"`
	Entry uint32 `yaml:"entry"`
	File  string `yaml:"file"`
}

// ParseYAML reads a YAML build plan. Relative payload filenames resolve
// against the plan's directory.
func ParseYAML(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &MissingSourceError{Path: path, Err: err}
	}

	var doc yamlLayout
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("layout: %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	l := &Layout{Version: doc.Version}
	for i, s := range doc.Segments {
		if s.File == "" {
			return nil, fmt.Errorf("layout: %s: segment %d has no file", path, i)
		}
		e := Entry{
			Name:      s.Name,
			Index:     s.Index,
			BaseAddr:  s.Base,
			Size:      s.Size,
			LoadAddr:  s.Load,
			EntryAddr: s.Entry,
			File:      s.File,
		}
		if !filepath.IsAbs(e.File) {
			e.File = filepath.Join(dir, e.File)
		}
		switch s.Kind {
		case "exec":
			e.Kind = firmware.KindExecutable
		case "", "part", "data":
			if s.Kind == "" && s.Entry != 0 {
				e.Kind = firmware.KindExecutable
			}
		default:
			return nil, fmt.Errorf("layout: %s: segment %d: unknown kind %q", path, i, s.Kind)
		}
		l.Entries = append(l.Entries, e)
	}
	return l, nil
}
