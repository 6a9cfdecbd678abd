package manifest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"hash"

	"golang.org/x/crypto/sha3"
)

// DigestAlgorithms is the ordered registry of digest algorithms this
// package knows how to compute for manifest entries, keyed by the name used
// in a "<Algorithm>-Digest" attribute.
var DigestAlgorithms = []string{"MD5", "SHA-1", "SHA-256", "SHA-512", "SHA3-256"}

func newHash(algorithm string) (hash.Hash, bool) {
	switch algorithm {
	case "MD5":
		return md5.New(), true
	case "SHA-1":
		return sha1.New(), true
	case "SHA-256":
		return sha256.New(), true
	case "SHA-512":
		return sha512.New(), true
	case "SHA3-256":
		return sha3.New256(), true
	default:
		return nil, false
	}
}

// Digest computes the base64-encoded digest of data under the named
// algorithm. The bool return is false for an unrecognized algorithm name.
func Digest(algorithm string, data []byte) (string, bool) {
	h, ok := newHash(algorithm)
	if !ok {
		return "", false
	}
	h.Write(data)
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), true
}

// EntryReader resolves a JAR entry's raw bytes by name, the minimal
// capability VerifyDigests needs without depending on internal/jar directly.
type EntryReader interface {
	EntryBytes(name string) ([]byte, error)
}

// DigestMismatch reports that a manifest-declared digest did not match the
// entry's actual computed digest.
type DigestMismatch struct {
	Entry     string
	Algorithm string
	Declared  string
	Computed  string
}

// DigestResult is one outcome of VerifyDigests: either a clean match or a
// *DigestMismatch. Verification never raises an error on a mismatch — it is
// expected, ordinary output, not a failure of the verifier itself.
type DigestResult struct {
	Entry     string
	Algorithm string
	OK        bool
	Mismatch  *DigestMismatch
}

// VerifyDigests recomputes every "<Algorithm>-Digest" attribute declared in
// m's per-entry sections against entries's actual bytes.
func VerifyDigests(entries EntryReader, m *Manifest) []DigestResult {
	var results []DigestResult
	for _, sec := range m.Sections {
		if sec.Name == "" {
			continue
		}
		for _, algo := range DigestAlgorithms {
			declared, ok := sec.Get(algo + "-Digest")
			if !ok {
				continue
			}
			data, err := entries.EntryBytes(sec.Name)
			if err != nil {
				results = append(results, DigestResult{
					Entry: sec.Name, Algorithm: algo, OK: false,
					Mismatch: &DigestMismatch{Entry: sec.Name, Algorithm: algo, Declared: declared, Computed: ""},
				})
				continue
			}
			computed, _ := Digest(algo, data)
			if computed == declared {
				results = append(results, DigestResult{Entry: sec.Name, Algorithm: algo, OK: true})
			} else {
				results = append(results, DigestResult{
					Entry: sec.Name, Algorithm: algo, OK: false,
					Mismatch: &DigestMismatch{Entry: sec.Name, Algorithm: algo, Declared: declared, Computed: computed},
				})
			}
		}
	}
	return results
}

// SignatureManifest wraps a parsed .SF signature file: the same line
// grammar as MANIFEST.MF, but with a main section carrying a whole-manifest
// digest and per-entry sections carrying per-entry digests.
type SignatureManifest struct {
	Manifest
}

// ParseSignatureManifest parses a .SF file's bytes.
func ParseSignatureManifest(data []byte) (*SignatureManifest, error) {
	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return &SignatureManifest{Manifest: *m}, nil
}

// MainAttributesDigest returns the declared "<Algorithm>-Digest-Manifest"
// (or the "-Manifest-Main-Attributes" variant) value from the .SF main
// section, if present.
func (s *SignatureManifest) MainAttributesDigest(algo string) (string, bool) {
	if v, ok := s.Main.Get(algo + "-Digest-Manifest-Main-Attributes"); ok {
		return v, true
	}
	return s.Main.Get(algo + "-Digest-Manifest")
}
