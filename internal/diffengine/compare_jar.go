package diffengine

import (
	"bytes"
	"context"
	"strings"

	"github.com/obriencj-go/javadiff/internal/classfile"
	"github.com/obriencj-go/javadiff/internal/diff"
	"github.com/obriencj-go/javadiff/internal/jar"
	"github.com/obriencj-go/javadiff/internal/manifest"
)

const manifestPath = "META-INF/MANIFEST.MF"

// CompareJar diffs two open JAR archives entry by entry, delegating class
// members to CompareClass, text resources to a unified-diff body, and
// binary resources to byte-for-byte equality of their contents.
func CompareJar(l, r *jar.Archive, pol *IgnorePolicy) *Delta {
	d, _ := CompareJarContext(context.Background(), l, r, pol)
	return d
}

// CompareJarContext is CompareJar's context-aware variant: a caller-supplied
// deadline or cancellation is checked once per diffed entry pair. A
// cancellation mid-comparison returns classfile.ErrCancelled and a nil
// Delta rather than a partially-built tree.
func CompareJarContext(ctx context.Context, l, r *jar.Archive, pol *IgnorePolicy) (*Delta, error) {
	lset, rset := entryPathSet(l), entryPathSet(r)
	paired, added, removed := pairedKeys(lset, rset)

	var children []*Delta
	for _, path := range paired {
		if err := ctx.Err(); err != nil {
			return nil, classfile.ErrCancelled
		}
		if path == manifestPath {
			children = append(children, compareManifestEntry(l, r))
			continue
		}
		le, _ := l.ByName(path)
		re, _ := r.ByName(path)
		children = append(children, compareJarEntry(path, le, re, pol))
	}
	for _, path := range added {
		e, _ := r.ByName(path)
		children = append(children, addedEntry(path, e))
	}
	for _, path := range removed {
		e, _ := l.ByName(path)
		children = append(children, removedEntry(path, e))
	}

	return compositeDelta(JarDelta, "jar", "jar", children), nil
}

func entryPathSet(a *jar.Archive) map[string]struct{} {
	out := map[string]struct{}{}
	for _, e := range a.Entries() {
		if !e.IsDir {
			out[e.Name] = struct{}{}
		}
	}
	return out
}

func isSignatureFile(path string) bool {
	if !strings.HasPrefix(path, "META-INF/") {
		return false
	}
	for _, sfx := range []string{".SF", ".RSA", ".DSA", ".EC"} {
		if strings.HasSuffix(path, sfx) {
			return true
		}
	}
	return false
}

func compareJarEntry(path string, l, r *jar.Entry, pol *IgnorePolicy) *Delta {
	switch {
	case isClassEntry(path):
		return compareClassEntry(path, l, r, pol)
	case isSignatureFile(path):
		return compareBinaryEntry(path, l, r, TokenJarSignature)
	}

	lb, lerr := l.Bytes()
	rb, rerr := r.Bytes()
	if lerr != nil || rerr != nil || !looksLikeText(lb) || !looksLikeText(rb) {
		return compareBinaryEntry(path, l, r, "")
	}

	d := newDelta(AttributeDelta, path, path)
	if bytes.Equal(lb, rb) {
		return d
	}
	d.Change = ChangeModified
	if onlyTrailingWhitespaceDiffers(lb, rb) {
		d.IgnoreToken = TokenTrailingWhitespace
	}
	body, _ := diff.Unified("a/"+path, "b/"+path, lb, rb, diff.Options{MaxBytes: 1 << 20})
	d.Detail = body
	return d
}

func isClassEntry(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".class")
}

func compareClassEntry(path string, l, r *jar.Entry, pol *IgnorePolicy) *Delta {
	lc, lerr := l.Class()
	rc, rerr := r.Class()
	if lerr != nil || rerr != nil {
		d := newDelta(ErrorDelta, path, path)
		d.Change = ChangeModified
		if lerr != nil {
			d.Left = lerr.Error()
		}
		if rerr != nil {
			d.Right = rerr.Error()
		}
		return d
	}
	return CompareClass(lc, rc, pol)
}

func compareBinaryEntry(path string, l, r *jar.Entry, ignoreToken string) *Delta {
	lb, _ := l.Bytes()
	rb, _ := r.Bytes()
	d := newDelta(AttributeDelta, path, path)
	d.IgnoreToken = ignoreToken
	if !bytes.Equal(lb, rb) {
		d.Change = ChangeModified
	}
	return d
}

func compareManifestEntry(l, r *jar.Archive) *Delta {
	lb, _ := l.EntryBytes(manifestPath)
	rb, _ := r.EntryBytes(manifestPath)
	lm, lerr := manifest.Parse(lb)
	rm, rerr := manifest.Parse(rb)
	if lerr != nil || rerr != nil {
		return compareBinaryEntry(manifestPath, mustEntry(l, manifestPath), mustEntry(r, manifestPath), "")
	}

	children := []*Delta{
		leafDelta(ManifestDelta, manifestPath+"#main", "main attributes", lm.Main.Attrs, rm.Main.Attrs, ""),
		compareManifestSections(lm, rm),
	}
	return compositeDelta(ManifestDelta, manifestPath, manifestPath, children)
}

func mustEntry(a *jar.Archive, path string) *jar.Entry {
	e, _ := a.ByName(path)
	return e
}

func compareManifestSections(l, r *manifest.Manifest) *Delta {
	lnames, rnames := map[string]struct{}{}, map[string]struct{}{}
	for _, s := range l.Sections {
		lnames[s.Name] = struct{}{}
	}
	for _, s := range r.Sections {
		rnames[s.Name] = struct{}{}
	}
	paired, added, removed := pairedKeys(lnames, rnames)

	var children []*Delta
	for _, name := range paired {
		ls, _ := l.Section(name)
		rs, _ := r.Section(name)
		c := leafDelta(ManifestDelta, manifestPath+"#section/"+name, name, ls.Attrs, rs.Attrs, TokenManifestSubsections)
		children = append(children, c)
	}
	for _, name := range added {
		rs, _ := r.Section(name)
		c := newDelta(ManifestDelta, manifestPath+"#section/"+name, name)
		c.Change, c.Right, c.IgnoreToken = ChangeAdded, rs.Attrs, TokenManifestSubsections
		children = append(children, c)
	}
	for _, name := range removed {
		ls, _ := l.Section(name)
		c := newDelta(ManifestDelta, manifestPath+"#section/"+name, name)
		c.Change, c.Left, c.IgnoreToken = ChangeRemoved, ls.Attrs, TokenManifestSubsections
		children = append(children, c)
	}
	return compositeDelta(ManifestDelta, manifestPath+"#sections", "per-entry sections", children)
}

func addedEntry(path string, e *jar.Entry) *Delta {
	d := newDelta(entryKind(path), path, path)
	d.Change = ChangeAdded
	return d
}

func removedEntry(path string, e *jar.Entry) *Delta {
	d := newDelta(entryKind(path), path, path)
	d.Change = ChangeRemoved
	return d
}

func entryKind(path string) NodeKind {
	if isClassEntry(path) {
		return ClassDelta
	}
	return AttributeDelta
}

// onlyTrailingWhitespaceDiffers reports whether a and b are line-for-line
// equal once each line's trailing spaces/tabs/CRs are stripped, so a change
// that only adds or removes trailing whitespace can be tagged with
// TokenTrailingWhitespace instead of the generic text modification. Inputs
// with different line counts always report false.
func onlyTrailingWhitespaceDiffers(a, b []byte) bool {
	al := strings.Split(string(a), "\n")
	bl := strings.Split(string(b), "\n")
	if len(al) != len(bl) {
		return false
	}
	for i := range al {
		if strings.TrimRight(al[i], " \t\r") != strings.TrimRight(bl[i], " \t\r") {
			return false
		}
	}
	return true
}

// looksLikeText applies a simple, fast binary-content heuristic (a NUL byte
// within the first 8KiB) rather than a MIME sniff, matching the level of
// rigor a line-diff prefilter needs.
func looksLikeText(b []byte) bool {
	n := len(b)
	if n > 8192 {
		n = 8192
	}
	return !bytes.ContainsRune(b[:n], 0)
}
