package classfile

import "testing"

func TestDecodeAttributesRecoversFromLengthMismatch(t *testing.T) {
	var cp []byte
	cp = append(cp, utf8Entry("SourceFile")...) // #1
	cp = append(cp, utf8Entry("Demo.java")...)  // #2

	r := buildCP(3, cp)
	pool, err := decodeConstantPool(r)
	if err != nil {
		t.Fatalf("decode pool: %v", err)
	}

	// A SourceFile attribute whose declared length (3) is one byte too long
	// for its typed decoder (which only reads a u2 index = 2 bytes).
	var buf []byte
	buf = append(buf, be16(1)...) // attribute_count
	buf = append(buf, be16(1)...) // name_index -> "SourceFile"
	buf = append(buf, be32(3)...) // declared length (wrong: should be 2)
	buf = append(buf, be16(2)...) // index -> "Demo.java"
	buf = append(buf, 0x00)       // extra trailing byte
	ar := NewReader(buf)

	attrs, warnings, err := decodeAttributes(ar, pool, nil)
	if err != nil {
		t.Fatalf("decodeAttributes: %v", err)
	}
	if len(attrs) != 1 {
		t.Fatalf("got %d attributes, want 1", len(attrs))
	}
	if _, ok := attrs[0].Value.(*Opaque); !ok {
		t.Fatalf("expected attribute to be downgraded to Opaque on mismatch, got %T", attrs[0].Value)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one recovery warning, got %d", len(warnings))
	}
}

func TestDecodeRuntimeVisibleAnnotations(t *testing.T) {
	var cp []byte
	cp = append(cp, utf8Entry("RuntimeVisibleAnnotations")...) // #1
	cp = append(cp, utf8Entry("Lcom/acme/MyAnno;")...)         // #2
	cp = append(cp, utf8Entry("value")...)                     // #3
	cp = append(cp, utf8Entry("hello")...)                     // #4

	r := buildCP(5, cp)
	pool, err := decodeConstantPool(r)
	if err != nil {
		t.Fatalf("decode pool: %v", err)
	}

	var body []byte
	body = append(body, be16(1)...) // num_annotations
	body = append(body, be16(2)...) // type_index
	body = append(body, be16(1)...) // num_element_value_pairs
	body = append(body, be16(3)...) // element_name_index -> "value"
	body = append(body, 's')        // tag: string
	body = append(body, be16(4)...) // const_value_index -> "hello"

	var buf []byte
	buf = append(buf, be16(1)...) // attribute_count
	buf = append(buf, be16(1)...) // name_index -> "RuntimeVisibleAnnotations"
	buf = append(buf, be32(uint32(len(body)))...)
	buf = append(buf, body...)

	attrs, warnings, err := decodeAttributes(NewReader(buf), pool, nil)
	if err != nil {
		t.Fatalf("decodeAttributes: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	ra, ok := attrs[0].Value.(*RuntimeAnnotations)
	if !ok {
		t.Fatalf("got %T, want *RuntimeAnnotations", attrs[0].Value)
	}
	if len(ra.Annotations) != 1 {
		t.Fatalf("got %d annotations, want 1", len(ra.Annotations))
	}
	ann := ra.Annotations[0]
	if ann.TypeDescriptor != "Lcom/acme/MyAnno;" {
		t.Fatalf("TypeDescriptor = %q", ann.TypeDescriptor)
	}
	if len(ann.Values) != 1 || ann.Values[0].Name != "value" || ann.Values[0].Value.Const != "hello" {
		t.Fatalf("unexpected element values: %+v", ann.Values)
	}
}

func TestDecodeAnnotationFailsFatallyOnBadElementTag(t *testing.T) {
	var cp []byte
	cp = append(cp, utf8Entry("RuntimeVisibleAnnotations")...) // #1
	cp = append(cp, utf8Entry("Lcom/acme/MyAnno;")...)         // #2
	cp = append(cp, utf8Entry("value")...)                     // #3

	r := buildCP(4, cp)
	pool, err := decodeConstantPool(r)
	if err != nil {
		t.Fatalf("decode pool: %v", err)
	}

	var body []byte
	body = append(body, be16(1)...) // num_annotations
	body = append(body, be16(2)...) // type_index
	body = append(body, be16(1)...) // num_element_value_pairs
	body = append(body, be16(3)...) // element_name_index -> "value"
	body = append(body, 'X')        // invalid element_value tag

	var buf []byte
	buf = append(buf, be16(1)...) // attribute_count
	buf = append(buf, be16(1)...) // name_index -> "RuntimeVisibleAnnotations"
	buf = append(buf, be32(uint32(len(body)))...)
	buf = append(buf, body...)

	if _, _, err := decodeAttributes(NewReader(buf), pool, nil); err == nil {
		t.Fatal("expected a fatal error on an invalid element_value tag, not a recovered Opaque attribute")
	}
}

func TestDecodeUnknownAttributeIsOpaque(t *testing.T) {
	var cp []byte
	cp = append(cp, utf8Entry("VendorStuff")...) // #1

	r := buildCP(2, cp)
	pool, err := decodeConstantPool(r)
	if err != nil {
		t.Fatalf("decode pool: %v", err)
	}

	var buf []byte
	buf = append(buf, be16(1)...)          // attribute_count
	buf = append(buf, be16(1)...)          // name_index -> "VendorStuff"
	buf = append(buf, be32(3)...)          // length
	buf = append(buf, 0xde, 0xad, 0xbe)    // raw payload

	attrs, warnings, err := decodeAttributes(NewReader(buf), pool, nil)
	if err != nil {
		t.Fatalf("decodeAttributes: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	op, ok := attrs[0].Value.(*Opaque)
	if !ok {
		t.Fatalf("got %T, want *Opaque", attrs[0].Value)
	}
	if len(op.Raw) != 3 {
		t.Fatalf("raw len = %d, want 3", len(op.Raw))
	}
}
