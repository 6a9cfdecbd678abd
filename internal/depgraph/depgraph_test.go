package depgraph

import (
	"testing"

	"github.com/obriencj-go/javadiff/internal/classfile"
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

// buildFixtureClass assembles:
//
//	public class App extends java.lang.Object implements java.io.Serializable {
//	    public java.util.List value;
//	    private int secret;
//	    public void run() { System.out.println(); } // Signature: ()Ljava/util/Optional<Ljava/lang/String;>;
//	}
func buildFixtureClass() []byte {
	var cp []byte
	cp = append(cp, utf8Entry("App")...)               // 1
	cp = append(cp, classEntry(1)...)                  // 2
	cp = append(cp, utf8Entry("java/lang/Object")...)   // 3
	cp = append(cp, classEntry(3)...)                  // 4
	cp = append(cp, utf8Entry("java/io/Serializable")...) // 5
	cp = append(cp, classEntry(5)...)                  // 6
	cp = append(cp, utf8Entry("value")...)             // 7
	cp = append(cp, utf8Entry("Ljava/util/List;")...)  // 8
	cp = append(cp, utf8Entry("secret")...)            // 9
	cp = append(cp, utf8Entry("I")...)                 // 10
	cp = append(cp, utf8Entry("run")...)               // 11
	cp = append(cp, utf8Entry("()V")...)               // 12
	cp = append(cp, utf8Entry("Code")...)              // 13
	cp = append(cp, utf8Entry("java/lang/System")...)  // 14
	cp = append(cp, classEntry(14)...)                 // 15
	cp = append(cp, utf8Entry("out")...)               // 16
	cp = append(cp, utf8Entry("Ljava/io/PrintStream;")...) // 17
	cp = append(cp, classfile.TagNameAndType, byte(0), byte(16), byte(0), byte(17)) // 18
	cp = append(cp, classfile.TagFieldref, byte(0), byte(15), byte(0), byte(18))    // 19
	cp = append(cp, utf8Entry("java/io/PrintStream")...) // 20
	cp = append(cp, classEntry(20)...)                  // 21
	cp = append(cp, utf8Entry("println")...)            // 22
	cp = append(cp, utf8Entry("()V")...)                // 23
	cp = append(cp, classfile.TagNameAndType, byte(0), byte(22), byte(0), byte(23)) // 24
	cp = append(cp, classfile.TagMethodref, byte(0), byte(21), byte(0), byte(24))   // 25
	cp = append(cp, utf8Entry("Signature")...)           // 26
	cp = append(cp, utf8Entry("()Ljava/util/Optional<Ljava/lang/String;>;")...) // 27

	var buf []byte
	buf = append(buf, be32(classfile.Magic)...)
	buf = append(buf, be16(0)...)
	buf = append(buf, be16(61)...)
	buf = append(buf, be16(28)...) // cp_count = 27 entries + 1
	buf = append(buf, cp...)
	buf = append(buf, be16(classfile.AccPublic|classfile.AccSuper)...)
	buf = append(buf, be16(2)...) // this_class
	buf = append(buf, be16(4)...) // super_class
	buf = append(buf, be16(1)...) // interfaces_count
	buf = append(buf, be16(6)...) // interfaces[0] -> Serializable

	// fields_count = 2
	buf = append(buf, be16(2)...)
	buf = append(buf, be16(classfile.AccPublic)...)
	buf = append(buf, be16(7)...) // name -> "value"
	buf = append(buf, be16(8)...) // descriptor -> "Ljava/util/List;"
	buf = append(buf, be16(0)...) // attributes_count
	buf = append(buf, be16(classfile.AccPrivate)...)
	buf = append(buf, be16(9)...)  // name -> "secret"
	buf = append(buf, be16(10)...) // descriptor -> "I"
	buf = append(buf, be16(0)...)  // attributes_count

	// methods_count = 1
	buf = append(buf, be16(1)...)
	buf = append(buf, be16(classfile.AccPublic)...)
	buf = append(buf, be16(11)...) // name -> "run"
	buf = append(buf, be16(12)...) // descriptor -> "()V"
	buf = append(buf, be16(2)...)  // attributes_count: Code, Signature

	// Code attribute
	buf = append(buf, be16(13)...) // "Code"
	code := []byte{0xb2, 0, 19, 0xb6, 0, 25, 0xb1} // getstatic #19; invokevirtual #25; return
	var codeBody []byte
	codeBody = append(codeBody, be16(2)...) // max_stack
	codeBody = append(codeBody, be16(1)...) // max_locals
	codeBody = append(codeBody, be32(uint32(len(code)))...)
	codeBody = append(codeBody, code...)
	codeBody = append(codeBody, be16(0)...) // exception_table_length
	codeBody = append(codeBody, be16(0)...) // attributes_count
	buf = append(buf, be32(uint32(len(codeBody)))...)
	buf = append(buf, codeBody...)

	// Signature attribute
	buf = append(buf, be16(26)...) // "Signature"
	buf = append(buf, be32(2)...)  // length
	buf = append(buf, be16(27)...) // signature_index

	buf = append(buf, be16(0)...) // class attributes_count

	return buf
}

func TestExtractProvidesAndRequires(t *testing.T) {
	cf, err := classfile.Decode(buildFixtureClass())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	d := Extract(cf)

	for _, want := range []string{"App", "value:Ljava/util/List;", "run:()V"} {
		if _, ok := d.Provides[want]; !ok {
			t.Errorf("Provides missing %q: %v", want, d.Provides)
		}
	}
	if _, ok := d.Provides["secret:I"]; ok {
		t.Error("private field secret:I should not be Provided")
	}

	for _, want := range []string{
		"java/lang/Object",
		"java/io/Serializable",
		"java/util/List",
		"java/lang/System",
		"java/io/PrintStream",
		"java/util/Optional",
		"java/lang/String",
	} {
		if _, ok := d.Requires[want]; !ok {
			t.Errorf("Requires missing %q: %v", want, d.Requires)
		}
	}
	if _, ok := d.Requires["App"]; ok {
		t.Error("Requires should not include the class's own name")
	}
}

func TestAggregateJarUnions(t *testing.T) {
	a := Deps{Provides: set("A"), Requires: set("B", "C")}
	b := Deps{Provides: set("B"), Requires: set("D")}

	agg := AggregateJar([]Deps{a, b})
	for _, want := range []string{"A", "B"} {
		if _, ok := agg.Provides[want]; !ok {
			t.Errorf("aggregate Provides missing %q", want)
		}
	}
	for _, want := range []string{"B", "C", "D"} {
		if _, ok := agg.Requires[want]; !ok {
			t.Errorf("aggregate Requires missing %q", want)
		}
	}
}

func TestAggregateDistUnresolved(t *testing.T) {
	jar1 := Deps{Provides: set("A"), Requires: set("B")}
	jar2 := Deps{Provides: set("B"), Requires: set("C", "D")}

	agg, unresolved := AggregateDist([]Deps{jar1, jar2})
	if _, ok := agg.Provides["A"]; !ok {
		t.Fatal("expected A provided")
	}
	if len(unresolved) != 2 {
		t.Fatalf("got %d unresolved, want 2: %v", len(unresolved), unresolved)
	}
	for _, want := range []string{"C", "D"} {
		if _, ok := unresolved[want]; !ok {
			t.Errorf("unresolved missing %q", want)
		}
	}
	if _, ok := unresolved["B"]; ok {
		t.Error("B is provided by jar2, should not be unresolved")
	}
}

func TestBuildGraphSortedAndDeduped(t *testing.T) {
	named := []NamedDeps{
		{Name: "com/acme/App", Deps: Deps{Provides: set("com/acme/App"), Requires: set("java/lang/Object", "com/acme/Util")}},
		{Name: "com/acme/Util", Deps: Deps{Provides: set("com/acme/Util"), Requires: set("java/lang/Object")}},
	}

	g := BuildGraph(named)

	if !sortedStrings(g.Nodes) {
		t.Fatalf("nodes not sorted: %v", g.Nodes)
	}
	wantEdges := map[[2]string]bool{
		{"com/acme/App", "java/lang/Object"}:  true,
		{"com/acme/App", "com/acme/Util"}:     true,
		{"com/acme/Util", "java/lang/Object"}: true,
	}
	if len(g.Edges) != len(wantEdges) {
		t.Fatalf("got %d edges, want %d: %v", len(g.Edges), len(wantEdges), g.Edges)
	}
	for _, e := range g.Edges {
		if !wantEdges[e] {
			t.Errorf("unexpected edge %v", e)
		}
	}
}

// buildAnnotatedClass assembles a class with no fields or methods beyond a
// single class-level RuntimeVisibleAnnotations attribute:
//
//	@com.acme.MyAnno(value = String.class)
//	public class Anno extends java.lang.Object {}
func buildAnnotatedClass() []byte {
	var cp []byte
	cp = append(cp, utf8Entry("Anno")...)                       // 1
	cp = append(cp, classEntry(1)...)                           // 2
	cp = append(cp, utf8Entry("java/lang/Object")...)           // 3
	cp = append(cp, classEntry(3)...)                           // 4
	cp = append(cp, utf8Entry("RuntimeVisibleAnnotations")...)  // 5
	cp = append(cp, utf8Entry("Lcom/acme/MyAnno;")...)          // 6
	cp = append(cp, utf8Entry("value")...)                      // 7
	cp = append(cp, utf8Entry("Ljava/lang/String;")...)         // 8

	var buf []byte
	buf = append(buf, be32(classfile.Magic)...)
	buf = append(buf, be16(0)...)
	buf = append(buf, be16(61)...)
	buf = append(buf, be16(9)...) // cp_count = 8 entries + 1
	buf = append(buf, cp...)
	buf = append(buf, be16(classfile.AccPublic|classfile.AccSuper)...)
	buf = append(buf, be16(2)...) // this_class
	buf = append(buf, be16(4)...) // super_class
	buf = append(buf, be16(0)...) // interfaces_count
	buf = append(buf, be16(0)...) // fields_count
	buf = append(buf, be16(0)...) // methods_count

	buf = append(buf, be16(1)...) // class attributes_count

	buf = append(buf, be16(5)...) // name_index -> "RuntimeVisibleAnnotations"
	var body []byte
	body = append(body, be16(1)...) // num_annotations
	body = append(body, be16(6)...) // type_index -> "Lcom/acme/MyAnno;"
	body = append(body, be16(1)...) // num_element_value_pairs
	body = append(body, be16(7)...) // element_name_index -> "value"
	body = append(body, 'c')        // tag: class literal
	body = append(body, be16(8)...) // class_info_index -> "Ljava/lang/String;"
	buf = append(buf, be32(uint32(len(body)))...)
	buf = append(buf, body...)

	return buf
}

func TestExtractRequiresFromAnnotations(t *testing.T) {
	cf, err := classfile.Decode(buildAnnotatedClass())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	d := Extract(cf)
	for _, want := range []string{"com/acme/MyAnno", "java/lang/String"} {
		if _, ok := d.Requires[want]; !ok {
			t.Errorf("Requires missing %q: %v", want, d.Requires)
		}
	}
}

func set(items ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[it] = struct{}{}
	}
	return out
}

func sortedStrings(ss []string) bool {
	for i := 1; i < len(ss); i++ {
		if ss[i-1] > ss[i] {
			return false
		}
	}
	return true
}
