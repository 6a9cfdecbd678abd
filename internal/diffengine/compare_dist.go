package diffengine

import (
	"bytes"
	"context"

	"github.com/obriencj-go/javadiff/internal/cache"
	"github.com/obriencj-go/javadiff/internal/classfile"
	"github.com/obriencj-go/javadiff/internal/decodecache"
	"github.com/obriencj-go/javadiff/internal/distwalk"
	"github.com/obriencj-go/javadiff/internal/jar"
	"github.com/obriencj-go/javadiff/internal/sortutil"
)

// CompareDist diffs two walked distribution trees. It is seeded by
// cache.BuildDelta's added/removed/changed/renamed classification (renamed
// via the SimHash-based similarity pass, run here over raw artifact bytes
// rather than source text) and recurses into CompareJar or CompareClass for
// every changed entry; anything else falls back to byte-for-byte equality
// of the artifacts' contents.
func CompareDist(l, r *distwalk.Tree, pol *IgnorePolicy) *Delta {
	d, _ := CompareDistContext(context.Background(), l, r, pol)
	return d
}

// CompareDistContext is CompareDist's context-aware variant: a caller-supplied
// deadline or cancellation is checked once per changed artifact pair (the
// step that may recurse into a full CompareClass or CompareJar). A
// cancellation mid-comparison returns classfile.ErrCancelled and a nil Delta
// rather than a partially-built tree.
func CompareDistContext(ctx context.Context, l, r *distwalk.Tree, pol *IgnorePolicy) (*Delta, error) {
	lSnap := cache.FromTree("left", "", l)
	rSnap := cache.FromTree("right", "", r)
	delta := cache.BuildDelta(lSnap, rSnap)

	lByPath := artifactsByPath(l)
	rByPath := artifactsByPath(r)

	var paired, added, removed []*Delta

	for _, rn := range delta.Renamed {
		d := newDelta(entryKind(rn.To), rn.From+" -> "+rn.To, rn.From+" -> "+rn.To)
		d.Change = ChangeModified
		d.Left, d.Right = rn.From, rn.To
		paired = append(paired, d)
	}
	for _, ch := range delta.Changed {
		if err := ctx.Err(); err != nil {
			return nil, classfile.ErrCancelled
		}
		paired = append(paired, compareChangedArtifact(ch.Path, lByPath[ch.Path], rByPath[ch.Path], pol))
	}
	for _, a := range delta.Added {
		d := newDelta(entryKind(a.Path), a.Path, a.Path)
		d.Change = ChangeAdded
		added = append(added, d)
	}
	for _, rm := range delta.Removed {
		d := newDelta(entryKind(rm.Path), rm.Path, rm.Path)
		d.Change = ChangeRemoved
		removed = append(removed, d)
	}

	byID := func(a, b *Delta) bool { return a.ID < b.ID }
	paired = sortutil.SortedCopy(paired, byID)
	added = sortutil.SortedCopy(added, byID)
	removed = sortutil.SortedCopy(removed, byID)

	children := append(append(paired, added...), removed...)
	return compositeDelta(DistDelta, "dist", "distribution", children), nil
}

func artifactsByPath(t *distwalk.Tree) map[string]distwalk.ArtifactEntry {
	out := make(map[string]distwalk.ArtifactEntry, len(t.Artifacts))
	for _, a := range t.Artifacts {
		out[a.Path] = a
	}
	return out
}

func compareChangedArtifact(path string, l, r distwalk.ArtifactEntry, pol *IgnorePolicy) *Delta {
	switch {
	case l.Kind == distwalk.KindClass && r.Kind == distwalk.KindClass:
		lc, lerr := decodecache.DecodeClass(l.Data)
		rc, rerr := decodecache.DecodeClass(r.Data)
		if lerr != nil || rerr != nil {
			return decodeErrorDelta(path, lerr, rerr)
		}
		return CompareClass(lc, rc, pol)
	case l.Kind == distwalk.KindJar && r.Kind == distwalk.KindJar:
		la, lerr := jar.Open(bytes.NewReader(l.Data), int64(len(l.Data)))
		ra, rerr := jar.Open(bytes.NewReader(r.Data), int64(len(r.Data)))
		if lerr != nil || rerr != nil {
			return decodeErrorDelta(path, lerr, rerr)
		}
		return CompareJar(la, ra, pol)
	default:
		d := newDelta(entryKind(path), path, path)
		if !bytes.Equal(l.Data, r.Data) {
			d.Change = ChangeModified
		}
		return d
	}
}

func decodeErrorDelta(path string, lerr, rerr error) *Delta {
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
