package decodecache

import (
	"context"
	"testing"

	"github.com/obriencj-go/javadiff/internal/classfile"
)

func cacheTestBE16(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }
func cacheTestBE32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func cacheTestUtf8Entry(s string) []byte {
	out := []byte{classfile.TagUtf8}
	out = append(out, cacheTestBE16(uint16(len(s)))...)
	return append(out, s...)
}

func cacheTestClassEntry(utf8Idx uint16) []byte {
	return append([]byte{classfile.TagClass}, cacheTestBE16(utf8Idx)...)
}

// minimalClassBytes builds a trivial "class Demo extends java.lang.Object"
// with no fields, methods, or attributes — enough for classfile.Decode to
// succeed without exercising any decoder beyond the class header.
func minimalClassBytes() []byte {
	var cp []byte
	cp = append(cp, cacheTestUtf8Entry("Demo")...)             // 1
	cp = append(cp, cacheTestClassEntry(1)...)                 // 2
	cp = append(cp, cacheTestUtf8Entry("java/lang/Object")...) // 3
	cp = append(cp, cacheTestClassEntry(3)...)                 // 4

	var buf []byte
	buf = append(buf, cacheTestBE32(classfile.Magic)...)
	buf = append(buf, cacheTestBE16(0)...)
	buf = append(buf, cacheTestBE16(61)...)
	buf = append(buf, cacheTestBE16(5)...) // cp_count = 4 entries + 1
	buf = append(buf, cp...)
	buf = append(buf, cacheTestBE16(classfile.AccPublic|classfile.AccSuper)...)
	buf = append(buf, cacheTestBE16(2)...) // this_class
	buf = append(buf, cacheTestBE16(4)...) // super_class
	buf = append(buf, cacheTestBE16(0)...) // interfaces_count
	buf = append(buf, cacheTestBE16(0)...) // fields_count
	buf = append(buf, cacheTestBE16(0)...) // methods_count
	buf = append(buf, cacheTestBE16(0)...) // attributes_count
	return buf
}

func TestDecodeClassCachesByContentHash(t *testing.T) {
	ClearDecodeCache()
	data := minimalClassBytes()

	first, err := DecodeClass(data)
	if err != nil {
		t.Fatalf("DecodeClass: %v", err)
	}

	// A second call on a distinct but byte-identical slice must return the
	// exact same *ClassFile, proving it came from the cache rather than a
	// fresh decode.
	second, err := DecodeClass(append([]byte{}, data...))
	if err != nil {
		t.Fatalf("DecodeClass (second): %v", err)
	}
	if first != second {
		t.Fatalf("expected cached *ClassFile identity, got distinct pointers %p != %p", first, second)
	}
	if first.ThisClass != "Demo" {
		t.Fatalf("ThisClass = %q", first.ThisClass)
	}
}

func TestDecodeClassContextCachesByContentHash(t *testing.T) {
	ClearDecodeCache()
	data := minimalClassBytes()

	first, err := DecodeClassContext(context.Background(), data)
	if err != nil {
		t.Fatalf("DecodeClassContext: %v", err)
	}
	second, err := DecodeClassContext(context.Background(), append([]byte{}, data...))
	if err != nil {
		t.Fatalf("DecodeClassContext (second): %v", err)
	}
	if first != second {
		t.Fatalf("expected cached *ClassFile identity, got distinct pointers %p != %p", first, second)
	}
}

func TestDecodeClassDoesNotCacheErrors(t *testing.T) {
	ClearDecodeCache()
	bad := []byte{0x00, 0x00, 0x00, 0x00}
	if _, err := DecodeClass(bad); err == nil {
		t.Fatal("expected an error decoding malformed bytes")
	}
	if _, err := DecodeClass(bad); err == nil {
		t.Fatal("expected the same error on a repeated decode of malformed bytes")
	}
}
