package layout

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rvbcrs/unifi-firmware-tool/pkg/firmware"
)

// Descriptor line: name, index, base address, allocated size, load address,
// entry address, payload filename, all numeric fields hex, tab separated.
// An optional trailing "part"/"exec" column pins the segment kind; without
// it a nonzero entry address marks the segment executable. Lines starting
// with '#' are comments; "# version=..." carries the container version.

// ParseDescriptor reads a tab-separated descriptor. Relative payload
// filenames resolve against the descriptor's directory.
func ParseDescriptor(path string) (*Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &MissingSourceError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	dir := filepath.Dir(path)
	l := &Layout{}

	sc := bufio.NewScanner(f)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if v, ok := strings.CutPrefix(line, "# version="); ok {
				l.Version = strings.TrimSpace(v)
			}
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			return nil, fmt.Errorf("layout: %s:%d: want at least 7 fields, got %d", path, lineno, len(fields))
		}

		e := Entry{Name: fields[0]}
		for i, dst := range []*uint32{&e.Index, &e.BaseAddr, &e.Size, &e.LoadAddr, &e.EntryAddr} {
			v, err := parseHex(fields[i+1])
			if err != nil {
				return nil, fmt.Errorf("layout: %s:%d: field %d: %w", path, lineno, i+2, err)
			}
			*dst = v
		}
		e.File = fields[6]
		if !filepath.IsAbs(e.File) {
			e.File = filepath.Join(dir, e.File)
		}

		e.Kind = firmware.KindData
		if len(fields) >= 8 {
			switch fields[7] {
			case "exec":
				e.Kind = firmware.KindExecutable
			case "part", "data":
			default:
				return nil, fmt.Errorf("layout: %s:%d: unknown kind %q", path, lineno, fields[7])
			}
		} else if e.EntryAddr != 0 {
			e.Kind = firmware.KindExecutable
		}

		l.Entries = append(l.Entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return l, nil
}

// Split writes one payload file per segment plus a descriptor that Load
// accepts back, and returns the descriptor path. It runs to completion on
// checksum failures; validity is the caller's concern.
func Split(c *firmware.Container, prefix string) (string, error) {
	var desc strings.Builder
	fmt.Fprintf(&desc, "# version=%s\n", c.Version)

	for i := range c.Segments {
		s := &c.Segments[i]
		name := segmentFileName(s.Name, i)
		file := fmt.Sprintf("%s.%02d.%s.bin", filepath.Base(prefix), i, name)
		out := filepath.Join(filepath.Dir(prefix), file)
		if err := os.WriteFile(out, s.Payload, 0o644); err != nil {
			return "", err
		}
		fmt.Fprintf(&desc, "%s\t0x%x\t0x%x\t0x%x\t0x%x\t0x%x\t%s\t%s\n",
			name, s.Index, s.BaseAddr, s.PartSize, s.LoadAddr, s.EntryAddr, file, s.Kind)
	}

	descPath := prefix + DescriptorExt
	if err := os.WriteFile(descPath, []byte(desc.String()), 0o644); err != nil {
		return "", err
	}
	return descPath, nil
}

// segmentFileName returns the name used in payload filenames and the
// descriptor's name column. Segment names are untrusted image bytes: a name
// that is not a clean single path element could climb out of the output
// directory or corrupt the descriptor, so anything suspicious falls back to
// a positional name.
func segmentFileName(name string, i int) string {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, "/\\\t\n\r") ||
		name != filepath.Base(name) {
		return fmt.Sprintf("seg%d", i)
	}
	return name
}

func parseHex(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad hex value %q", s)
	}
	return uint32(v), nil
}
