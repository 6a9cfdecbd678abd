package cache

import (
	"bytes"
	"io"

	"github.com/obriencj-go/javadiff/internal/distwalk"
)

// FromTree builds a Snapshot from a walked distribution tree. Every
// ArtifactEntry becomes a SnapFile keyed by its flattened path, reusing the
// content hash distwalk already computed rather than re-hashing.
func FromTree(module, created string, tree *distwalk.Tree) *Snapshot {
	s := &Snapshot{
		Module:        module,
		Created:       created,
		FormatVersion: "1",
		Files:         make([]SnapFile, 0, len(tree.Artifacts)),
	}
	for _, a := range tree.Artifacts {
		s.Files = append(s.Files, SnapFile{Path: a.Path, Hash: a.ContentHash})
	}
	return s
}

// dirContentProvider implements ContentProvider over two distwalk.Dir roots
// (the previous and current distribution trees), resolving a flattened
// artifact path back to bytes for the rename-similarity pass. Nested-JAR
// members (paths containing "!/") have no meaning to a plain Dir and are
// treated as unreadable, which simply excludes them from similarity scoring
// — they still participate in the exact-hash rename match in BuildDelta.
type dirContentProvider struct {
	old, curr distwalk.Dir
}

// NewDirContentProvider returns a ContentProvider backed by two directory
// roots, suitable for SetContentProvider ahead of a BuildDelta call whose
// similarity pass should read real file contents.
func NewDirContentProvider(oldRoot, currRoot distwalk.Dir) ContentProvider {
	return &dirContentProvider{old: oldRoot, curr: currRoot}
}

func (p *dirContentProvider) Read(path string, old bool) ([]byte, error) {
	d := p.curr
	if old {
		d = p.old
	}
	rc, err := d.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
