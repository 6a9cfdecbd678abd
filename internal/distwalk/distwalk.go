// Package distwalk classifies the members of a distribution tree — a
// directory of JARs, nested JARs, loose class files, and other resources —
// into a flat, sorted Tree suitable for comparison. Filesystem crawling
// itself is an external concern, captured by the Dir interface; Walk's
// classification and nested-JAR recursion logic is the part this package
// owns.
package distwalk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/obriencj-go/javadiff/internal/classfile"
	"github.com/obriencj-go/javadiff/internal/jar"
)

// DirEntry is a minimal, filesystem-agnostic directory listing entry.
type DirEntry struct {
	Name  string // base name, no path separators
	IsDir bool
	Size  int64
}

// Dir abstracts a readable tree of files. A concrete implementation backed
// by the OS filesystem lives in osdir.go; tests and callers that already
// hold archives in memory can implement Dir directly.
type Dir interface {
	ReadDir(path string) ([]DirEntry, error)
	Open(path string) (io.ReadCloser, error)
}

// Kind classifies one artifact entry in a walked Tree.
type Kind int

const (
	KindOther Kind = iota
	KindClass
	KindJar
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindJar:
		return "jar"
	default:
		return "other"
	}
}

// ArtifactEntry is one flattened, classified member of a distribution tree.
// Path uses '/' separators; a member nested inside a JAR is addressed as
// "outer.jar!/inner/Path.class", following the convention javatools' own
// distribution reports use for nested archive members.
type ArtifactEntry struct {
	Path        string
	Kind        Kind
	Size        int64
	ContentHash string // hex-encoded BLAKE3 digest computed by contentHash

	// Data holds the entry's full decompressed bytes. Walk already reads
	// every member into memory to compute ContentHash, so retaining the
	// reference here costs no extra I/O — it lets a comparator reopen a
	// nested JAR member or decode a class file without re-walking the tree.
	Data []byte
}

// Tree is the sorted, flattened result of walking a distribution root.
type Tree struct {
	Artifacts []ArtifactEntry
}

// Options controls how Walk classifies and recurses into archive members.
type Options struct {
	// RecurseNestedJars causes the members of every JAR-type archive in the
	// tree, and of JARs nested inside those (e.g. a WAR's WEB-INF/lib/*.jar),
	// to be flattened into the same Tree alongside the archive's own
	// KindJar entry. Without it, no archive is opened and each appears only
	// as a single KindJar leaf.
	RecurseNestedJars bool
}

var jarSuffixes = []string{".jar", ".war", ".ear"}

func classify(name string) Kind {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".class") {
		return KindClass
	}
	for _, sfx := range jarSuffixes {
		if strings.HasSuffix(lower, sfx) {
			return KindJar
		}
	}
	return KindOther
}

// Walk classifies every regular file under root, recursing through
// subdirectories and, per Options, into JAR-type archives.
func Walk(d Dir, root string, opts Options) (*Tree, error) {
	return WalkContext(context.Background(), d, root, opts)
}

// WalkContext is Walk's context-aware variant: a caller-supplied deadline or
// cancellation is checked once per file read from d (members flattened out
// of a JAR are not checked individually), and a cancellation mid-walk
// returns classfile.ErrCancelled with no partial Tree rather than a half-built
// one.
func WalkContext(ctx context.Context, d Dir, root string, opts Options) (*Tree, error) {
	t := &Tree{}
	if err := walkDir(ctx, d, root, "", opts, t); err != nil {
		return nil, err
	}
	sort.Slice(t.Artifacts, func(i, j int) bool { return t.Artifacts[i].Path < t.Artifacts[j].Path })
	return t, nil
}

func walkDir(ctx context.Context, d Dir, fsPath, artifactPrefix string, opts Options, t *Tree) error {
	entries, err := d.ReadDir(fsPath)
	if err != nil {
		return fmt.Errorf("distwalk: read %s: %w", fsPath, err)
	}
	for _, e := range entries {
		childFSPath := joinFS(fsPath, e.Name)
		childPath := joinArtifact(artifactPrefix, e.Name)

		if e.IsDir {
			if err := walkDir(ctx, d, childFSPath, childPath, opts, t); err != nil {
				return err
			}
			continue
		}

		if err := ctx.Err(); err != nil {
			return classfile.ErrCancelled
		}

		kind := classify(e.Name)
		entry := ArtifactEntry{Path: childPath, Kind: kind, Size: e.Size}

		rc, err := d.Open(childFSPath)
		if err != nil {
			return fmt.Errorf("distwalk: open %s: %w", childFSPath, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("distwalk: read %s: %w", childFSPath, err)
		}
		entry.ContentHash = contentHash(data)
		entry.Size = int64(len(data))
		entry.Data = data
		t.Artifacts = append(t.Artifacts, entry)

		if kind == KindJar && opts.RecurseNestedJars {
			if err := walkJarBytes(data, childPath, t); err != nil {
				return fmt.Errorf("distwalk: recurse into %s: %w", childPath, err)
			}
		}
	}
	return nil
}

// walkJarBytes flattens an in-memory JAR's members into t, addressed with
// the "outer!/inner" nested path convention, recursing further for any
// JAR-within-JAR members.
func walkJarBytes(data []byte, outerPath string, t *Tree) error {
	r := bytes.NewReader(data)
	archive, err := jar.Open(r, int64(len(data)))
	if err != nil {
		return err
	}
	for _, e := range archive.Entries() {
		if e.IsDir {
			continue
		}
		nested := outerPath + "!/" + e.Name
		kind := classify(e.Name)
		inner, err := e.Bytes()
		if err != nil {
			return err
		}
		t.Artifacts = append(t.Artifacts, ArtifactEntry{
			Path:        nested,
			Kind:        kind,
			Size:        int64(len(inner)),
			ContentHash: contentHash(inner),
			Data:        inner,
		})
		if kind == KindJar {
			if err := walkJarBytes(inner, nested, t); err != nil {
				return err
			}
		}
	}
	return nil
}

func joinFS(a, b string) string {
	if a == "" {
		return b
	}
	return a + "/" + b
}

func joinArtifact(a, b string) string {
	if a == "" {
		return b
	}
	return a + "/" + b
}
