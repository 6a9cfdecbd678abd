// Package jar provides random-access reading of JAR archives: listing
// entries, decoding .class members lazily (and caching the result, since a
// decoded ClassFile is immutable once produced), and exposing manifest and
// signature-file bytes for the manifest/jarsig packages to consume.
package jar

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/obriencj-go/javadiff/internal/classfile"
	"github.com/obriencj-go/javadiff/internal/decodecache"
)

// Entry is one member of an open Archive.
type Entry struct {
	Name    string
	IsDir   bool
	Size    int64
	archive *Archive
	zf      *zip.File

	mu    sync.Mutex
	class *classfile.ClassFile
	bytes []byte
	read  bool
}

// Reader opens a fresh reader over the entry's raw (decompressed) bytes.
func (e *Entry) Reader() (io.ReadCloser, error) {
	return e.zf.Open()
}

// Bytes returns the entry's full decompressed contents, reading and caching
// them on first call.
func (e *Entry) Bytes() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.read {
		return e.bytes, nil
	}
	rc, err := e.zf.Open()
	if err != nil {
		return nil, fmt.Errorf("jar: open %s: %w", e.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("jar: read %s: %w", e.Name, err)
	}
	e.bytes = data
	e.read = true
	return data, nil
}

// Class decodes this entry as a class file, caching the result both on the
// entry (an immutable ClassFile never needs re-decoding within one Archive)
// and in the package-level decode cache keyed by content hash, so the same
// vendored bytes appearing in another Archive skip re-decoding entirely. It
// does not check the entry's name; it returns an error for an entry whose
// bytes cannot be read or fail to decode.
func (e *Entry) Class() (*classfile.ClassFile, error) {
	e.mu.Lock()
	cached := e.class
	e.mu.Unlock()
	if cached != nil {
		return cached, nil
	}
	data, err := e.Bytes()
	if err != nil {
		return nil, err
	}
	cf, err := decodecache.DecodeClass(data)
	if err != nil {
		return nil, fmt.Errorf("jar: decode %s: %w", e.Name, err)
	}
	e.mu.Lock()
	e.class = cf
	e.mu.Unlock()
	return cf, nil
}

// Archive is an opened JAR (or any ZIP-format archive of class files and
// resources).
type Archive struct {
	zr      *zip.Reader
	entries []*Entry
	byName  map[string]*Entry
}

// Open wraps r as a JAR archive of the given size, per archive/zip's
// random-access reader contract.
func Open(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("jar: open: %w", err)
	}

	a := &Archive{zr: zr, byName: make(map[string]*Entry, len(zr.File))}
	for _, zf := range zr.File {
		e := &Entry{
			Name:    zf.Name,
			IsDir:   zf.FileInfo().IsDir(),
			Size:    int64(zf.UncompressedSize64),
			archive: a,
			zf:      zf,
		}
		a.entries = append(a.entries, e)
		a.byName[zf.Name] = e
	}
	return a, nil
}

// Entries returns every member of the archive, in archive order.
func (a *Archive) Entries() []*Entry { return a.entries }

// ByName looks up a member by its exact path within the archive.
func (a *Archive) ByName(name string) (*Entry, bool) {
	e, ok := a.byName[name]
	return e, ok
}

// EntryBytes implements manifest.EntryReader, letting VerifyDigests read
// named members directly out of an open Archive.
func (a *Archive) EntryBytes(name string) ([]byte, error) {
	e, ok := a.ByName(name)
	if !ok {
		return nil, fmt.Errorf("jar: no such entry %q", name)
	}
	return e.Bytes()
}

// Classes returns every .class member, decoded. An entry that fails to
// decode is skipped; callers needing per-entry decode errors should walk
// Entries() and call Class() themselves.
func (a *Archive) Classes() []*classfile.ClassFile {
	var out []*classfile.ClassFile
	for _, e := range a.entries {
		if e.IsDir || !hasClassSuffix(e.Name) {
			continue
		}
		if cf, err := e.Class(); err == nil {
			out = append(out, cf)
		}
	}
	return out
}

// ClassesContext is Classes' context-aware variant: a batch helper that
// loops over every .class member, decoding each through
// classfile.DecodeContext so a caller-supplied deadline or cancellation is
// checked once per class rather than once for the whole archive. On
// cancellation it returns immediately with classfile.ErrCancelled and no
// partial result.
func (a *Archive) ClassesContext(ctx context.Context) ([]*classfile.ClassFile, error) {
	var out []*classfile.ClassFile
	for _, e := range a.entries {
		if e.IsDir || !hasClassSuffix(e.Name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, classfile.ErrCancelled
		}
		data, err := e.Bytes()
		if err != nil {
			continue
		}
		if cf, err := decodecache.DecodeClassContext(ctx, data); err == nil {
			out = append(out, cf)
		}
	}
	return out, nil
}

func hasClassSuffix(name string) bool {
	return len(name) > 6 && name[len(name)-6:] == ".class"
}
