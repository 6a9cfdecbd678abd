package decodecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/obriencj-go/javadiff/internal/classfile"
)

// decodeCache memoizes classfile.Decode results by the SHA-256 of the raw
// class bytes, so a distribution walk that finds the same vendored class in
// several JARs (a common case for shaded/uber jars) only decodes it once.
// It's a package-level sync.Map rather than a value threaded through every
// caller, matching SPEC_FULL.md §5's "one piece of explicitly-shared,
// read-mostly state": writes only happen during a single walk, which the
// core's synchronous decode contract already serializes, and reads after
// that are safe from any number of goroutines.
var decodeCache sync.Map // map[string]*classfile.ClassFile

// ClearDecodeCache drops every memoized decode result. Exposed mainly for
// tests that want a clean cache between runs.
func ClearDecodeCache() {
	decodeCache.Range(func(k, _ any) bool {
		decodeCache.Delete(k)
		return true
	})
}

func decodeCacheKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DecodeClass decodes data as a class file, consulting the decode cache
// first and populating it on a successful decode. Decode errors are never
// cached, since a caller that passes truncated or malformed bytes for one
// member shouldn't poison the cache for another member that happens to
// share a prefix hash collision window (practically impossible with
// SHA-256, but there's no reason to cache a failure either).
func DecodeClass(data []byte) (*classfile.ClassFile, error) {
	key := decodeCacheKey(data)
	if v, ok := decodeCache.Load(key); ok {
		return v.(*classfile.ClassFile), nil
	}
	cf, err := classfile.Decode(data)
	if err != nil {
		return nil, err
	}
	decodeCache.Store(key, cf)
	return cf, nil
}

// DecodeClassContext is DecodeClass's context-aware variant, checking
// cancellation before a cache miss falls through to classfile.DecodeContext.
func DecodeClassContext(ctx context.Context, data []byte) (*classfile.ClassFile, error) {
	key := decodeCacheKey(data)
	if v, ok := decodeCache.Load(key); ok {
		return v.(*classfile.ClassFile), nil
	}
	cf, err := classfile.DecodeContext(ctx, data)
	if err != nil {
		return nil, err
	}
	decodeCache.Store(key, cf)
	return cf, nil
}
