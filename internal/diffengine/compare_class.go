package diffengine

import (
	"fmt"
	"sort"

	"github.com/obriencj-go/javadiff/internal/classfile"
)

var annotationAttrNames = stringSet([]string{
	"RuntimeVisibleAnnotations",
	"RuntimeInvisibleAnnotations",
	"RuntimeVisibleParameterAnnotations",
	"RuntimeInvisibleParameterAnnotations",
	"AnnotationDefault",
})

// CompareClass diffs two decoded class files, one Delta child per concern:
// version, access flags, this-class, super-class, interfaces, source file,
// inner classes, annotations, constant pool, fields, methods.
func CompareClass(l, r *classfile.ClassFile, pol *IgnorePolicy) *Delta {
	id := r.ThisClass
	if id == "" {
		id = l.ThisClass
	}

	children := []*Delta{
		leafDelta(AttributeDelta, id+"#version", "version",
			fmt.Sprintf("%d.%d", l.MajorVersion, l.MinorVersion),
			fmt.Sprintf("%d.%d", r.MajorVersion, r.MinorVersion),
			TokenVersion),
		leafDelta(AttributeDelta, id+"#platform", "platform",
			classfile.PlatformName(l.MajorVersion), classfile.PlatformName(r.MajorVersion),
			TokenPlatform),
		leafDelta(AttributeDelta, id+"#access", "access flags", l.AccessFlags, r.AccessFlags, ""),
		leafDelta(AttributeDelta, id+"#this", "this class", l.ThisClass, r.ThisClass, ""),
		leafDelta(AttributeDelta, id+"#super", "super class", l.SuperClass, r.SuperClass, ""),
		diffStringSet(AttributeDelta, id+"#interfaces", "interfaces", l.Interfaces, r.Interfaces, ""),
		compareSourceFile(id, l.Attributes, r.Attributes),
		compareInnerClasses(id, l.Attributes, r.Attributes),
		compareAnnotationAttrs(id, l.Attributes, r.Attributes),
		compareConstantPools(id, l.Pool, r.Pool, pol),
		compareFields(id, l.Fields, r.Fields, pol),
		compareMethods(id, l.Methods, r.Methods, l.Pool, r.Pool, pol),
	}

	d := compositeDelta(ClassDelta, id, id, children)
	return d
}

func findAttr(attrs []classfile.Attribute, name string) (classfile.Attribute, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a, true
		}
	}
	return classfile.Attribute{}, false
}

func compareSourceFile(classID string, l, r []classfile.Attribute) *Delta {
	var ls, rs string
	if a, ok := findAttr(l, "SourceFile"); ok {
		if sf, ok := a.Value.(*classfile.SourceFile); ok {
			ls = sf.Name
		}
	}
	if a, ok := findAttr(r, "SourceFile"); ok {
		if sf, ok := a.Value.(*classfile.SourceFile); ok {
			rs = sf.Name
		}
	}
	return leafDelta(AttributeDelta, classID+"#sourcefile", "source file", ls, rs, "")
}

func compareInnerClasses(classID string, l, r []classfile.Attribute) *Delta {
	var lic, ric *classfile.InnerClasses
	if a, ok := findAttr(l, "InnerClasses"); ok {
		lic, _ = a.Value.(*classfile.InnerClasses)
	}
	if a, ok := findAttr(r, "InnerClasses"); ok {
		ric, _ = a.Value.(*classfile.InnerClasses)
	}

	byName := func(ic *classfile.InnerClasses) map[string]classfile.InnerClass {
		out := map[string]classfile.InnerClass{}
		if ic == nil {
			return out
		}
		for _, c := range ic.Classes {
			out[c.InnerName] = c
		}
		return out
	}
	lm, rm := byName(lic), byName(ric)
	lset, rset := map[string]struct{}{}, map[string]struct{}{}
	for k := range lm {
		lset[k] = struct{}{}
	}
	for k := range rm {
		rset[k] = struct{}{}
	}
	paired, added, removed := pairedKeys(lset, rset)

	var children []*Delta
	for _, name := range paired {
		children = append(children, leafDelta(AttributeDelta, classID+"#inner/"+name, name, lm[name], rm[name], ""))
	}
	for _, name := range added {
		c := newDelta(AttributeDelta, classID+"#inner/"+name, name)
		c.Change, c.Right = ChangeAdded, rm[name]
		children = append(children, c)
	}
	for _, name := range removed {
		c := newDelta(AttributeDelta, classID+"#inner/"+name, name)
		c.Change, c.Left = ChangeRemoved, lm[name]
		children = append(children, c)
	}
	return compositeDelta(AttributeDelta, classID+"#innerclasses", "inner classes", children)
}

func compareAnnotationAttrs(classID string, l, r []classfile.Attribute) *Delta {
	var children []*Delta
	names := make([]string, 0, len(annotationAttrNames))
	for n := range annotationAttrNames {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, name := range names {
		la, lok := findAttr(l, name)
		ra, rok := findAttr(r, name)
		if !lok && !rok {
			continue
		}
		id := classID + "#" + name
		switch {
		case lok && !rok:
			c := newDelta(AttributeDelta, id, name)
			c.Change, c.Left = ChangeRemoved, attrValue(la)
			children = append(children, c)
		case !lok && rok:
			c := newDelta(AttributeDelta, id, name)
			c.Change, c.Right = ChangeAdded, attrValue(ra)
			children = append(children, c)
		default:
			children = append(children, leafDelta(AttributeDelta, id, name, attrValue(la), attrValue(ra), ""))
		}
	}
	return compositeDelta(AttributeDelta, classID+"#annotations", "annotations", children)
}


// compareConstantPools is the literal constant-pool comparison node named by
// invariant 6 / scenario S3: a positional Symbolic() equality check across
// the two pools, tagged with ignore token "pool" so it is suppressed by
// default wherever a caller doesn't care about raw pool layout, but visible
// (and able to flip to modified on a pure reordering) once "pool" is removed
// from the active ignore set.
func compareConstantPools(classID string, lp, rp *classfile.ConstantPool, pol *IgnorePolicy) *Delta {
	d := newDelta(AttributeDelta, classID+"#pool", "constant_pool")
	d.IgnoreToken = TokenPool

	n := lp.Count()
	if rp.Count() > n {
		n = rp.Count()
	}
	var diffCount int
	for i := 1; i < n; i++ {
		ls, lerr := lp.Symbolic(i)
		rs, rerr := rp.Symbolic(i)
		if lerr != nil {
			ls = ""
		}
		if rerr != nil {
			rs = ""
		}
		if ls != rs {
			diffCount++
		}
	}
	if lp.Count() != rp.Count() || diffCount > 0 {
		d.Change = ChangeModified
		d.Left = lp.Count()
		d.Right = rp.Count()
	}
	return d
}

func memberKey(name, descriptor string) string { return name + ":" + descriptor }

func memberMap(members []classfile.Field) map[string]classfile.Field {
	out := make(map[string]classfile.Field, len(members))
	for _, f := range members {
		out[memberKey(f.Name, f.Descriptor)] = f
	}
	return out
}

func compareFields(classID string, l, r []classfile.Field, pol *IgnorePolicy) *Delta {
	lm, rm := memberMap(l), memberMap(r)
	lset, rset := map[string]struct{}{}, map[string]struct{}{}
	for k := range lm {
		lset[k] = struct{}{}
	}
	for k := range rm {
		rset[k] = struct{}{}
	}
	paired, added, removed := pairedKeys(lset, rset)

	var children []*Delta
	for _, k := range paired {
		children = append(children, compareField(classID, lm[k], rm[k]))
	}
	for _, k := range added {
		children = append(children, addedField(classID, rm[k]))
	}
	for _, k := range removed {
		children = append(children, removedField(classID, lm[k]))
	}
	return compositeDelta(FieldDelta, classID+"#fields", "fields", children)
}

func compareField(classID string, l, r classfile.Field) *Delta {
	id := classID + "#field/" + memberKey(l.Name, l.Descriptor)
	children := []*Delta{
		leafDelta(FieldDelta, id+"/access", "access flags", l.AccessFlags, r.AccessFlags, ""),
		leafDelta(FieldDelta, id+"/descriptor", "descriptor", l.Descriptor, r.Descriptor, ""),
		compareGenericAttributes(id, l.Attributes, r.Attributes, nil),
	}
	return compositeDelta(FieldDelta, id, l.Name, children)
}

func addedField(classID string, f classfile.Field) *Delta {
	d := newDelta(FieldDelta, classID+"#field/"+memberKey(f.Name, f.Descriptor), f.Name)
	d.Change, d.Right = ChangeAdded, f
	return d
}

func removedField(classID string, f classfile.Field) *Delta {
	d := newDelta(FieldDelta, classID+"#field/"+memberKey(f.Name, f.Descriptor), f.Name)
	d.Change, d.Left = ChangeRemoved, f
	return d
}

func methodMap(methods []classfile.Method) map[string]classfile.Method {
	out := make(map[string]classfile.Method, len(methods))
	for _, m := range methods {
		out[memberKey(m.Name, m.Descriptor)] = m
	}
	return out
}

func compareMethods(classID string, l, r []classfile.Method, lp, rp *classfile.ConstantPool, pol *IgnorePolicy) *Delta {
	lm, rm := methodMap(l), methodMap(r)
	lset, rset := map[string]struct{}{}, map[string]struct{}{}
	for k := range lm {
		lset[k] = struct{}{}
	}
	for k := range rm {
		rset[k] = struct{}{}
	}
	paired, added, removed := pairedKeys(lset, rset)

	var children []*Delta
	for _, k := range paired {
		children = append(children, compareMethod(classID, lm[k], rm[k], lp, rp, pol))
	}
	for _, k := range added {
		children = append(children, addedMethod(classID, rm[k]))
	}
	for _, k := range removed {
		children = append(children, removedMethod(classID, lm[k]))
	}
	return compositeDelta(MethodDelta, classID+"#methods", "methods", children)
}

func compareMethod(classID string, l, r classfile.Method, lp, rp *classfile.ConstantPool, pol *IgnorePolicy) *Delta {
	id := classID + "#method/" + memberKey(l.Name, l.Descriptor)
	children := []*Delta{
		leafDelta(MethodDelta, id+"/access", "access flags", l.AccessFlags, r.AccessFlags, ""),
		leafDelta(MethodDelta, id+"/descriptor", "descriptor", l.Descriptor, r.Descriptor, ""),
		compareGenericAttributes(id, l.Attributes, r.Attributes, map[string]bool{"Code": true}),
	}
	if l.Code != nil || r.Code != nil {
		children = append(children, CompareCode(l.Code, r.Code, lp, rp, pol, id))
	}
	return compositeDelta(MethodDelta, id, l.Name, children)
}

func addedMethod(classID string, m classfile.Method) *Delta {
	d := newDelta(MethodDelta, classID+"#method/"+memberKey(m.Name, m.Descriptor), m.Name)
	d.Change, d.Right = ChangeAdded, m.Descriptor
	return d
}

func removedMethod(classID string, m classfile.Method) *Delta {
	d := newDelta(MethodDelta, classID+"#method/"+memberKey(m.Name, m.Descriptor), m.Name)
	d.Change, d.Left = ChangeRemoved, m.Descriptor
	return d
}

// compareGenericAttributes diffs the leftover attribute bag (Signature,
// ConstantValue, Exceptions, Deprecated, Synthetic, ...) not already pulled
// out into their own dedicated Delta node, skipping any name in skip.
func compareGenericAttributes(id string, l, r []classfile.Attribute, skip map[string]bool) *Delta {
	names := map[string]struct{}{}
	for _, a := range l {
		if !skip[a.Name] {
			if _, ok := annotationAttrNames[a.Name]; !ok {
				names[a.Name] = struct{}{}
			}
		}
	}
	for _, a := range r {
		if !skip[a.Name] {
			if _, ok := annotationAttrNames[a.Name]; !ok {
				names[a.Name] = struct{}{}
			}
		}
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	var children []*Delta
	for _, name := range sorted {
		la, lok := findAttr(l, name)
		ra, rok := findAttr(r, name)
		childID := id + "#attr/" + name
		switch {
		case lok && !rok:
			c := newDelta(AttributeDelta, childID, name)
			c.Change, c.Left = ChangeRemoved, attrValue(la)
			children = append(children, c)
		case !lok && rok:
			c := newDelta(AttributeDelta, childID, name)
			c.Change, c.Right = ChangeAdded, attrValue(ra)
			children = append(children, c)
		default:
			children = append(children, leafDelta(AttributeDelta, childID, name, attrValue(la), attrValue(ra), ""))
		}
	}
	return compositeDelta(AttributeDelta, id+"#attrs", "attributes", children)
}

func attrValue(a classfile.Attribute) any {
	if o, ok := a.Value.(*classfile.Opaque); ok {
		return o.Raw
	}
	return a.Value
}
