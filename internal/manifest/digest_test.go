package manifest

import "testing"

type fakeEntries map[string][]byte

func (f fakeEntries) EntryBytes(name string) ([]byte, error) {
	b, ok := f[name]
	if !ok {
		return nil, &MalformedLine{Text: "no such entry: " + name}
	}
	return b, nil
}

func TestDigestKnownAlgorithms(t *testing.T) {
	for _, algo := range DigestAlgorithms {
		if _, ok := Digest(algo, []byte("hello")); !ok {
			t.Fatalf("algorithm %s should be supported", algo)
		}
	}
}

func TestDigestUnknownAlgorithm(t *testing.T) {
	if _, ok := Digest("FOO", []byte("x")); ok {
		t.Fatal("FOO should be unsupported")
	}
}

func TestVerifyDigestsMatchAndMismatch(t *testing.T) {
	entries := fakeEntries{
		"a/Good.class": []byte("good bytes"),
		"a/Bad.class":  []byte("actual bytes"),
	}

	goodDigest, _ := Digest("SHA-256", entries["a/Good.class"])

	m := &Manifest{}
	good := Section{Name: "a/Good.class"}
	good.Set("Name", "a/Good.class")
	good.Set("SHA-256-Digest", goodDigest)
	m.Sections = append(m.Sections, good)

	bad := Section{Name: "a/Bad.class"}
	bad.Set("Name", "a/Bad.class")
	bad.Set("SHA-256-Digest", "not-the-real-digest")
	m.Sections = append(m.Sections, bad)

	results := VerifyDigests(entries, m)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		switch r.Entry {
		case "a/Good.class":
			if !r.OK {
				t.Fatalf("expected good entry to verify, got %+v", r)
			}
		case "a/Bad.class":
			if r.OK || r.Mismatch == nil {
				t.Fatalf("expected mismatch for bad entry, got %+v", r)
			}
		}
	}
}

func TestSignatureManifestMainAttributesDigest(t *testing.T) {
	data := []byte("Signature-Version: 1.0\r\nSHA-256-Digest-Manifest-Main-Attributes: xyz\r\n\r\n")
	sf, err := ParseSignatureManifest(data)
	if err != nil {
		t.Fatalf("ParseSignatureManifest: %v", err)
	}
	v, ok := sf.MainAttributesDigest("SHA-256")
	if !ok || v != "xyz" {
		t.Fatalf("got %q, %v", v, ok)
	}
}
