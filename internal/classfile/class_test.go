package classfile

import (
	"context"
	"errors"
	"testing"
)

// minimalClass builds the bytes of a trivial class file:
//
//	public class Demo extends java.lang.Object { public Demo() { ... } }
//
// with a single no-arg constructor whose body is just aload_0/return, to
// exercise Decode end-to-end without needing a real compiler.
func minimalClass() []byte {
	var cp []byte
	// #1 Utf8 "Demo"
	cp = append(cp, utf8Entry("Demo")...)
	// #2 Class -> #1
	cp = append(cp, classEntry(1)...)
	// #3 Utf8 "java/lang/Object"
	cp = append(cp, utf8Entry("java/lang/Object")...)
	// #4 Class -> #3
	cp = append(cp, classEntry(3)...)
	// #5 Utf8 "<init>"
	cp = append(cp, utf8Entry("<init>")...)
	// #6 Utf8 "()V"
	cp = append(cp, utf8Entry("()V")...)
	// #7 Utf8 "Code"
	cp = append(cp, utf8Entry("Code")...)
	// #8 NameAndType(5,6)
	cp = append(cp, TagNameAndType, 0, 5, 0, 6)
	// #9 Methodref(4,8) -- java/lang/Object.<init>()V
	cp = append(cp, TagMethodref, 0, 4, 0, 8)

	var buf []byte
	buf = append(buf, be32(Magic)...)
	buf = append(buf, be16(0)...)  // minor
	buf = append(buf, be16(61)...) // major (Java 17)
	buf = append(buf, be16(10)...) // cp_count = 9 entries + 1
	buf = append(buf, cp...)
	buf = append(buf, be16(AccPublic|AccSuper)...)
	buf = append(buf, be16(2)...) // this_class = #2 Demo
	buf = append(buf, be16(4)...) // super_class = #4 java/lang/Object
	buf = append(buf, be16(0)...) // interfaces_count
	buf = append(buf, be16(0)...) // fields_count

	// methods_count = 1
	buf = append(buf, be16(1)...)
	buf = append(buf, be16(AccPublic)...) // access_flags
	buf = append(buf, be16(5)...)         // name_index -> "<init>"
	buf = append(buf, be16(6)...)         // descriptor_index -> "()V"
	buf = append(buf, be16(1)...)         // attributes_count

	// Code attribute
	buf = append(buf, be16(7)...) // attribute_name_index -> "Code"
	code := []byte{0x2a, 0xb1}    // aload_0 ; return
	var codeBody []byte
	codeBody = append(codeBody, be16(1)...) // max_stack
	codeBody = append(codeBody, be16(1)...) // max_locals
	codeBody = append(codeBody, be32(uint32(len(code)))...)
	codeBody = append(codeBody, code...)
	codeBody = append(codeBody, be16(0)...) // exception_table_length
	codeBody = append(codeBody, be16(0)...) // attributes_count
	buf = append(buf, be32(uint32(len(codeBody)))...)
	buf = append(buf, codeBody...)

	buf = append(buf, be16(0)...) // class attributes_count

	return buf
}

func TestDecodeMinimalClass(t *testing.T) {
	cf, err := Decode(minimalClass())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cf.ThisClass != "Demo" {
		t.Fatalf("ThisClass = %q", cf.ThisClass)
	}
	if cf.SuperClass != "java/lang/Object" {
		t.Fatalf("SuperClass = %q", cf.SuperClass)
	}
	if len(cf.Methods) != 1 {
		t.Fatalf("got %d methods, want 1", len(cf.Methods))
	}
	m := cf.Methods[0]
	if m.Name != "<init>" || m.Descriptor != "()V" {
		t.Fatalf("method = %s%s", m.Name, m.Descriptor)
	}
	if m.Code == nil {
		t.Fatal("expected decoded Code attribute")
	}
	if len(m.Code.Instructions) != 2 {
		t.Fatalf("got %d instructions, want 2", len(m.Code.Instructions))
	}
	if len(cf.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", cf.Warnings)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	data := minimalClass()
	data[0] = 0x00
	if _, err := Decode(data); err == nil {
		t.Fatal("expected BadMagic error")
	} else if _, ok := err.(*BadMagic); !ok {
		t.Fatalf("got %T, want *BadMagic", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	data := minimalClass()
	if _, err := Decode(data[:10]); err == nil {
		t.Fatal("expected Truncated error")
	}
}

func TestDecodeNewerMajorVersionWarns(t *testing.T) {
	data := minimalClass()
	// major version lives right after magic+minor
	data[6] = 0xff
	data[7] = 0xff
	cf, err := Decode(data)
	if err != nil {
		t.Fatalf("unexpected decode error on newer version: %v", err)
	}
	warned := false
	for _, w := range cf.Warnings {
		if w.Kind == WarnUnsupportedVersion {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected a WarnUnsupportedVersion warning, got %+v", cf.Warnings)
	}
}

func TestDecodeFailsOnBadOpcodeInCode(t *testing.T) {
	data := minimalClass()
	// The Code attribute's body is [0x2a, 0xb1] (aload_0; return); flip the
	// second instruction to the unregistered opcode 0xff. A decoder error
	// from inside Code must abort the whole class decode, not be downgraded
	// to a Warning the way an attribute-length mismatch is.
	idx := bytesIndex(data, []byte{0x2a, 0xb1})
	if idx < 0 {
		t.Fatal("could not locate Code body in fixture")
	}
	data[idx+1] = 0xff

	cf, err := Decode(data)
	if err == nil {
		t.Fatalf("expected Decode to fail on a bad opcode, got class with warnings %v", cf.Warnings)
	}
	var unknown *UnknownOpcode
	if !errors.As(err, &unknown) {
		t.Fatalf("got %v, want an error wrapping *UnknownOpcode", err)
	}
}

func bytesIndex(haystack, needle []byte) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func TestDecodeContextRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := DecodeContext(ctx, minimalClass()); !errors.Is(err, ErrCancelled) {
		t.Fatalf("got %v, want ErrCancelled", err)
	}
}

func TestDecodeContextDecodesWhenNotCancelled(t *testing.T) {
	cf, err := DecodeContext(context.Background(), minimalClass())
	if err != nil {
		t.Fatalf("DecodeContext: %v", err)
	}
	if cf.ThisClass != "Demo" {
		t.Fatalf("ThisClass = %q", cf.ThisClass)
	}
}
