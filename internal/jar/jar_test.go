package jar

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/obriencj-go/javadiff/internal/classfile"
	"github.com/obriencj-go/javadiff/internal/decodecache"
	"github.com/obriencj-go/javadiff/internal/jarbuild"
)

func be16(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }
func be32(v uint32) []byte { return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)} }

func utf8Entry(s string) []byte {
	out := []byte{classfile.TagUtf8}
	out = append(out, be16(uint16(len(s)))...)
	return append(out, s...)
}

func classEntry(utf8Idx uint16) []byte {
	return append([]byte{classfile.TagClass}, be16(utf8Idx)...)
}

// minimalClassBytes builds "class Demo extends java.lang.Object" with no
// fields, methods, or attributes.
func minimalClassBytes() []byte {
	var cp []byte
	cp = append(cp, utf8Entry("Demo")...)
	cp = append(cp, classEntry(1)...)
	cp = append(cp, utf8Entry("java/lang/Object")...)
	cp = append(cp, classEntry(3)...)

	var buf []byte
	buf = append(buf, be32(classfile.Magic)...)
	buf = append(buf, be16(0)...)
	buf = append(buf, be16(61)...)
	buf = append(buf, be16(5)...)
	buf = append(buf, cp...)
	buf = append(buf, be16(classfile.AccPublic|classfile.AccSuper)...)
	buf = append(buf, be16(2)...)
	buf = append(buf, be16(4)...)
	buf = append(buf, be16(0)...)
	buf = append(buf, be16(0)...)
	buf = append(buf, be16(0)...)
	buf = append(buf, be16(0)...)
	return buf
}

func buildFixture(t *testing.T, entries []jarbuild.Entry) *Archive {
	t.Helper()
	var buf bytes.Buffer
	if err := jarbuild.Build(&buf, entries); err != nil {
		t.Fatalf("Build: %v", err)
	}
	r := bytes.NewReader(buf.Bytes())
	a, err := Open(r, int64(r.Len()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return a
}

func TestArchiveEntriesAndByName(t *testing.T) {
	a := buildFixture(t, []jarbuild.Entry{
		{Name: "META-INF/MANIFEST.MF", Data: []byte("Manifest-Version: 1.0\r\n\r\n")},
		{Name: "pkg/Foo.txt", Data: []byte("hello")},
	})

	if len(a.Entries()) != 2 {
		t.Fatalf("got %d entries, want 2", len(a.Entries()))
	}
	e, ok := a.ByName("pkg/Foo.txt")
	if !ok {
		t.Fatal("expected pkg/Foo.txt")
	}
	data, err := e.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q", data)
	}
}

func TestEntryBytesCaches(t *testing.T) {
	a := buildFixture(t, []jarbuild.Entry{{Name: "x.txt", Data: []byte("once")}})
	e, _ := a.ByName("x.txt")
	b1, err := e.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	b2, err := e.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if &b1[0] != &b2[0] {
		t.Fatal("expected cached byte slice to be reused")
	}
}

func TestEntryBytesImplementsManifestEntryReader(t *testing.T) {
	a := buildFixture(t, []jarbuild.Entry{{Name: "a/B.class", Data: []byte("raw-class-bytes")}})
	data, err := a.EntryBytes("a/B.class")
	if err != nil {
		t.Fatalf("EntryBytes: %v", err)
	}
	if string(data) != "raw-class-bytes" {
		t.Fatalf("got %q", data)
	}
	if _, err := a.EntryBytes("missing"); err == nil {
		t.Fatal("expected error for missing entry")
	}
}

func TestClassDecodeErrorForNonClassBytes(t *testing.T) {
	a := buildFixture(t, []jarbuild.Entry{{Name: "bad.class", Data: []byte("not a class file")}})
	e, _ := a.ByName("bad.class")
	if _, err := e.Class(); err == nil {
		t.Fatal("expected decode error for garbage class bytes")
	}
}

func TestClassReusesDecodeCacheAcrossArchives(t *testing.T) {
	decodecache.ClearDecodeCache()
	data := minimalClassBytes()

	a1 := buildFixture(t, []jarbuild.Entry{{Name: "Demo.class", Data: data}})
	a2 := buildFixture(t, []jarbuild.Entry{{Name: "Demo.class", Data: data}})

	e1, _ := a1.ByName("Demo.class")
	e2, _ := a2.ByName("Demo.class")

	cf1, err := e1.Class()
	if err != nil {
		t.Fatalf("Class: %v", err)
	}
	cf2, err := e2.Class()
	if err != nil {
		t.Fatalf("Class: %v", err)
	}
	if cf1 != cf2 {
		t.Fatalf("expected the same decoded *ClassFile across archives sharing bytes, got %p != %p", cf1, cf2)
	}
}

func TestClassesContextRespectsCancellation(t *testing.T) {
	a := buildFixture(t, []jarbuild.Entry{{Name: "x.class", Data: []byte("not a class file")}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.ClassesContext(ctx); !errors.Is(err, classfile.ErrCancelled) {
		t.Fatalf("got %v, want ErrCancelled", err)
	}
}
