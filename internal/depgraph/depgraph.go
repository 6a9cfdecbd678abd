// Package depgraph extracts provides/requires symbol sets from decoded
// class files and aggregates them across JARs and whole distributions. The
// extraction and aggregation logic is novel to this domain, but the
// resulting Graph's node/edge dedup-and-sort shape is adapted from the
// regex-driven import-graph builder this module's teacher used for
// heterogeneous source trees: same sorted, deduplicated (from, to) edge
// set, fed here by class-file symbol resolution instead of an import
// regex.
package depgraph

import (
	"sort"

	"github.com/obriencj-go/javadiff/internal/classfile"
	"github.com/obriencj-go/javadiff/internal/opcode"
)

// Deps holds the symbol sets one class exports (Provides) and needs
// (Requires).
type Deps struct {
	Provides map[string]struct{}
	Requires map[string]struct{}
}

func newDeps() Deps {
	return Deps{Provides: map[string]struct{}{}, Requires: map[string]struct{}{}}
}

// Extract derives c's provides/requires sets: Provides is c's own name plus
// every non-private field/method signature it declares; Requires is every
// external class name reachable from its constant pool, descriptors,
// Signature attributes, and resolved bytecode operands.
func Extract(c *classfile.ClassFile) Deps {
	d := newDeps()
	d.Provides[c.ThisClass] = struct{}{}

	if c.SuperClass != "" {
		d.Requires[c.SuperClass] = struct{}{}
	}
	for _, iface := range c.Interfaces {
		d.Requires[iface] = struct{}{}
	}

	for _, f := range c.Fields {
		if f.AccessFlags&classfile.AccPrivate == 0 {
			d.Provides[memberSignature(f.Name, f.Descriptor)] = struct{}{}
		}
		addClassTokens(d.Requires, f.Descriptor)
		addAttributeClasses(d.Requires, f.Attributes)
	}

	for _, m := range c.Methods {
		if m.AccessFlags&classfile.AccPrivate == 0 {
			d.Provides[memberSignature(m.Name, m.Descriptor)] = struct{}{}
		}
		addClassTokens(d.Requires, m.Descriptor)
		addAttributeClasses(d.Requires, m.Attributes)
		if m.Code != nil {
			addCodeClasses(d.Requires, c.Pool, m.Code)
		}
	}

	addAttributeClasses(d.Requires, c.Attributes)

	// Every Class-tag constant-pool entry is a potential class reference,
	// whether or not a typed attribute or bytecode operand already
	// surfaced it (e.g. a class referenced only via a MethodHandle or a
	// bootstrap method argument).
	for i := 1; i < c.Pool.Count(); i++ {
		if c.Pool.Tag(i) == classfile.TagClass {
			if name, err := c.Pool.ClassName(i); err == nil {
				d.Requires[name] = struct{}{}
			}
		}
	}

	delete(d.Requires, "")
	delete(d.Requires, c.ThisClass)
	return d
}

func memberSignature(name, descriptor string) string {
	return name + ":" + descriptor
}

// addAttributeClasses walks a member or class-level attribute list for the
// class names the typed attribute decoders already resolved.
func addAttributeClasses(set map[string]struct{}, attrs []classfile.Attribute) {
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case *classfile.Signature:
			addClassTokens(set, v.Value)
		case *classfile.Exceptions:
			for _, cn := range v.ClassNames {
				set[cn] = struct{}{}
			}
		case *classfile.InnerClasses:
			for _, ic := range v.Classes {
				set[ic.InnerName] = struct{}{}
				if ic.OuterName != "" {
					set[ic.OuterName] = struct{}{}
				}
			}
		case *classfile.EnclosingMethod:
			set[v.ClassName] = struct{}{}
		case *classfile.NestHost:
			set[v.HostClassName] = struct{}{}
		case *classfile.NestMembers:
			for _, cn := range v.ClassNames {
				set[cn] = struct{}{}
			}
		case *classfile.RuntimeAnnotations:
			for _, ann := range v.Annotations {
				addAnnotationClasses(set, ann)
			}
		case *classfile.RuntimeParameterAnnotations:
			for _, anns := range v.Parameters {
				for _, ann := range anns {
					addAnnotationClasses(set, ann)
				}
			}
		case *classfile.AnnotationDefault:
			addAnnotationValueClasses(set, v.Value)
		case *classfile.LocalVariableTypeTable:
			for _, e := range v.Entries {
				addClassTokens(set, e.Signature)
			}
		}
	}
}

// addAnnotationClasses adds every class an annotation references: its own
// type descriptor plus every class reachable from its element values.
func addAnnotationClasses(set map[string]struct{}, a classfile.Annotation) {
	addClassTokens(set, a.TypeDescriptor)
	for _, elem := range a.Values {
		addAnnotationValueClasses(set, elem.Value)
	}
}

// addAnnotationValueClasses adds the classes referenced by one element_value:
// an enum constant's type, a class-literal's descriptor, or a nested
// annotation's/array's elements, recursively.
func addAnnotationValueClasses(set map[string]struct{}, v classfile.AnnotationValue) {
	switch v.Tag {
	case 'e':
		addClassTokens(set, v.EnumType)
	case 'c':
		addClassTokens(set, v.ClassName)
	case '@':
		if v.Nested != nil {
			addAnnotationClasses(set, *v.Nested)
		}
	case '[':
		for _, elem := range v.Array {
			addAnnotationValueClasses(set, elem)
		}
	}
}

// addCodeClasses resolves every constant-pool-argument opcode's operand to
// the class(es) it touches.
func addCodeClasses(set map[string]struct{}, pool *classfile.ConstantPool, code *classfile.Code) {
	for _, instr := range code.Instructions {
		info, ok := opcode.Lookup(instr.Opcode)
		if !ok || !info.ConstArg || len(instr.Operands) == 0 {
			continue
		}
		idx := int(instr.Operands[0])
		switch pool.Tag(idx) {
		case classfile.TagClass:
			if name, err := pool.ClassName(idx); err == nil {
				set[name] = struct{}{}
			}
		case classfile.TagFieldref:
			if class, _, descriptor, err := pool.FieldRef(idx); err == nil {
				set[class] = struct{}{}
				addClassTokens(set, descriptor)
			}
		case classfile.TagMethodref:
			if class, _, descriptor, err := pool.MethodRef(idx); err == nil {
				set[class] = struct{}{}
				addClassTokens(set, descriptor)
			}
		case classfile.TagInterfaceMethodref:
			if class, _, descriptor, err := pool.InterfaceMethodRef(idx); err == nil {
				set[class] = struct{}{}
				addClassTokens(set, descriptor)
			}
		case classfile.TagDynamic, classfile.TagInvokeDynamic:
			if _, descriptor, err := pool.DynamicNameAndType(idx); err == nil {
				addClassTokens(set, descriptor)
			}
		case classfile.TagMethodHandle, classfile.TagMethodType:
			if sym, err := pool.Symbolic(idx); err == nil {
				addClassTokens(set, sym)
			}
		}
	}
}

// addClassTokens scans a field/method descriptor or generic signature for
// every "Lpkg/Class;" token and adds the enclosed class name to set. The
// scan also handles generic signatures correctly: a nested type argument's
// own "L...;" token is just the next one the linear scan finds, so
// "Ljava/util/List<Ljava/lang/String;>;" yields both java/util/List and
// java/lang/String without needing a balanced parse.
func addClassTokens(set map[string]struct{}, s string) {
	for i := 0; i < len(s); i++ {
		if s[i] != 'L' {
			continue
		}
		j := i + 1
		for j < len(s) && s[j] != ';' && s[j] != '<' {
			j++
		}
		if name := s[i+1 : j]; name != "" {
			set[name] = struct{}{}
		}
		i = j
	}
}

// AggregateJar union-reduces every class's Deps in a JAR into one Deps.
func AggregateJar(deps []Deps) Deps {
	out := newDeps()
	for _, d := range deps {
		for p := range d.Provides {
			out.Provides[p] = struct{}{}
		}
		for r := range d.Requires {
			out.Requires[r] = struct{}{}
		}
	}
	return out
}

// AggregateDist union-reduces every JAR's aggregate Deps across a
// distribution and reports the unresolved set: requires with no matching
// provider anywhere in the distribution.
func AggregateDist(jars []Deps) (Deps, map[string]struct{}) {
	agg := AggregateJar(jars)
	return agg, Unresolved(agg)
}

// Unresolved returns d.Requires minus d.Provides.
func Unresolved(d Deps) map[string]struct{} {
	out := make(map[string]struct{})
	for r := range d.Requires {
		if _, provided := d.Provides[r]; !provided {
			out[r] = struct{}{}
		}
	}
	return out
}

// NamedDeps pairs one class's Deps with the class name that produced them,
// the unit BuildGraph needs to draw a requiring-class -> required-symbol
// edge.
type NamedDeps struct {
	Name string
	Deps Deps
}

// Graph is a simple directed graph: sorted, deduplicated nodes and edges.
type Graph struct {
	Nodes []string    `json:"nodes"`
	Edges [][2]string `json:"edges"`
}

// BuildGraph renders a set of per-class Deps into a deduplicated, sorted
// Graph: every provided or required symbol is a node, and every
// requiring-class -> required-symbol pair is an edge.
func BuildGraph(named []NamedDeps) Graph {
	nodeSet := make(map[string]struct{}, len(named)*4)
	edgeSet := make(map[[2]string]struct{}, len(named)*4)

	for _, nd := range named {
		addNode(nodeSet, nd.Name)
		for p := range nd.Deps.Provides {
			addNode(nodeSet, p)
		}
		for r := range nd.Deps.Requires {
			addNode(nodeSet, r)
			addEdge(edgeSet, nd.Name, r)
		}
	}

	nodes := make([]string, 0, len(nodeSet))
	for n := range nodeSet {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	edges := make([][2]string, 0, len(edgeSet))
	for e := range edgeSet {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] == edges[j][0] {
			return edges[i][1] < edges[j][1]
		}
		return edges[i][0] < edges[j][0]
	})

	return Graph{Nodes: nodes, Edges: edges}
}

func addNode(set map[string]struct{}, n string) {
	if n != "" {
		set[n] = struct{}{}
	}
}

func addEdge(set map[[2]string]struct{}, from, to string) {
	if from == "" || to == "" || from == to {
		return
	}
	set[[2]string{from, to}] = struct{}{}
}
