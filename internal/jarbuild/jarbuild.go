// Package jarbuild assembles JAR archives deterministically: entries are
// written in sorted order with a fixed modification time so that two builds
// from the same inputs produce byte-identical output, and DEFLATE
// compression runs through klauspost/compress for a faster, allocation-lean
// encoder than the standard library's.
package jarbuild

import (
	"archive/zip"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
)

// FixedModTime is the timestamp stamped on every entry so two archives
// built from identical content are byte-for-byte identical.
var FixedModTime = time.Unix(315532800, 0).UTC() // 1980-01-01, the DOS epoch zip uses anyway

func registerKlauspostCompressor(zw *zip.Writer) {
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})
}

// SanitizeEntryName normalizes a JAR entry path: forward slashes, no
// leading slash or drive letter, and no '.' or '..' segments escaping the
// archive root.
func SanitizeEntryName(p string) string {
	s := strings.ReplaceAll(p, "\\", "/")
	if len(s) > 1 && s[1] == ':' {
		s = s[2:]
	}
	s = strings.TrimLeft(s, "/")
	parts := strings.Split(s, "/")
	stack := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if n := len(stack); n > 0 {
				stack = stack[:n-1]
			}
		default:
			stack = append(stack, part)
		}
	}
	if len(stack) == 0 {
		return "entry"
	}
	return strings.Join(stack, "/")
}

// Entry is one file to be written into a built JAR, content held in memory
// since constructed fixtures and manifests are small; class bytes for
// larger artifacts should come from a streamed archive member instead.
type Entry struct {
	Name string
	Data []byte
}

// Build writes entries into w as a JAR, sorted by name for determinism,
// with META-INF/MANIFEST.MF (if present among entries) forced first — the
// JAR spec requires the manifest be the archive's first or second entry
// for some older tooling, and first is always safe.
func Build(w io.Writer, entries []Entry) error {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Name == "META-INF/MANIFEST.MF" {
			return true
		}
		if sorted[j].Name == "META-INF/MANIFEST.MF" {
			return false
		}
		return sorted[i].Name < sorted[j].Name
	})

	zw := zip.NewWriter(w)
	registerKlauspostCompressor(zw)
	for _, e := range sorted {
		h := &zip.FileHeader{
			Name:     SanitizeEntryName(e.Name),
			Method:   zip.Deflate,
			Modified: FixedModTime,
		}
		h.SetMode(0o644)
		fw, err := zw.CreateHeader(h)
		if err != nil {
			return fmt.Errorf("jarbuild: create %s: %w", e.Name, err)
		}
		if _, err := fw.Write(e.Data); err != nil {
			return fmt.Errorf("jarbuild: write %s: %w", e.Name, err)
		}
	}
	return zw.Close()
}
