package classfile

import "fmt"

// Attribute is one decoded attribute_info structure. Value holds a typed
// struct for attribute names this package understands, or *Opaque for
// anything else (vendor attributes, attributes this package hasn't grown a
// decoder for yet).
type Attribute struct {
	Name  string
	Value any
}

// Opaque is the fallback representation for an attribute whose name has no
// registered decoder: its raw bytes, kept so the comparator can still detect
// that two attributes of the same unknown name differ.
type Opaque struct {
	Raw []byte
}

// ConstantValue is the decoded form of a ConstantValue attribute, attached
// to static final fields with a compile-time constant initializer.
type ConstantValue struct {
	Index int // constant-pool index of the literal; resolve via Pool as needed
}

// Exceptions lists the checked exception types a method declares via throws.
type Exceptions struct {
	ClassNames []string
}

// InnerClasses is the decoded form of the InnerClasses attribute.
type InnerClasses struct {
	Classes []InnerClass
}

// InnerClass is one entry of an InnerClasses attribute.
type InnerClass struct {
	InnerName       string
	OuterName       string // empty if not a member class
	InnerSimpleName string // empty if anonymous
	AccessFlags     uint16
}

// EnclosingMethod is the decoded form of the EnclosingMethod attribute.
type EnclosingMethod struct {
	ClassName  string
	MethodName string // empty if the class is not enclosed by a method
	Descriptor string
}

// Synthetic marks a member the compiler generated with no source-level
// correspondent.
type Synthetic struct{}

// Deprecated marks a member or class as deprecated.
type Deprecated struct{}

// SourceFile names the source file a class was compiled from.
type SourceFile struct {
	Name string
}

// LineNumberTableEntry maps one bytecode offset to a source line.
type LineNumberTableEntry struct {
	StartPC, LineNumber uint16
}

// LineNumberTable is the decoded form of the LineNumberTable attribute,
// present when compiled with debug line info.
type LineNumberTable struct {
	Entries []LineNumberTableEntry
}

// LocalVariableTableEntry describes one local variable's live range.
type LocalVariableTableEntry struct {
	StartPC, Length, Index uint16
	Name, Descriptor       string
}

// LocalVariableTable is the decoded form of the LocalVariableTable attribute.
type LocalVariableTable struct {
	Entries []LocalVariableTableEntry
}

// Signature carries a generic type signature for a class, field, or method.
type Signature struct {
	Value string
}

// BootstrapMethod is one entry of a BootstrapMethods attribute, used to
// resolve invokedynamic call sites.
type BootstrapMethod struct {
	MethodRefIndex int
	Arguments      []int
}

// BootstrapMethods is the decoded form of the BootstrapMethods attribute.
type BootstrapMethods struct {
	Methods []BootstrapMethod
}

// StackMapTable is kept opaque: its verification-type encoding is dense and
// unlikely to be interesting for a source-level semantic diff, so it is
// preserved as raw bytes rather than fully decoded.
type StackMapTable struct {
	Raw []byte
}

// NestHost and NestMembers (JEP 181) carry their class constants resolved
// to internal class names. Record (JEP 359) has no decoder and is kept as
// Opaque.
type NestHost struct {
	HostClassName string
}

type NestMembers struct {
	ClassNames []string
}

// Annotation is the decoded form of one annotation: its type descriptor and
// element-value pairs. Every index that can be resolved to a symbolic name
// or literal is resolved at decode time, so two annotations that differ
// only by constant-pool layout compare equal.
type Annotation struct {
	TypeDescriptor string
	Values         []AnnotationElement
}

// AnnotationElement is one element_name/element_value pair of an Annotation.
type AnnotationElement struct {
	Name  string
	Value AnnotationValue
}

// AnnotationValue is one decoded element_value. Tag selects which of the
// remaining fields is meaningful, mirroring the JVM spec's element_value
// union: 'B','C','D','F','I','J','S','Z','s' populate Const; 'e' populates
// EnumType/EnumName; 'c' populates ClassName; '@' populates Nested; '['
// populates Array.
type AnnotationValue struct {
	Tag byte

	Const     string
	EnumType  string
	EnumName  string
	ClassName string
	Nested    *Annotation
	Array     []AnnotationValue
}

// RuntimeAnnotations is the decoded form of the RuntimeVisibleAnnotations
// and RuntimeInvisibleAnnotations attributes.
type RuntimeAnnotations struct {
	Annotations []Annotation
}

// RuntimeParameterAnnotations is the decoded form of the
// RuntimeVisibleParameterAnnotations and RuntimeInvisibleParameterAnnotations
// attributes: one annotation list per declared parameter, in order.
type RuntimeParameterAnnotations struct {
	Parameters [][]Annotation
}

// AnnotationDefault is the decoded form of the AnnotationDefault attribute,
// carried by an annotation interface's element methods.
type AnnotationDefault struct {
	Value AnnotationValue
}

// MethodParameter is one entry of a MethodParameters attribute.
type MethodParameter struct {
	Name        string // empty if the parameter has no recorded name
	AccessFlags uint16
}

// MethodParameters is the decoded form of the MethodParameters attribute.
type MethodParameters struct {
	Parameters []MethodParameter
}

// LocalVariableTypeTableEntry describes one local variable's live range
// carrying a generic signature rather than a plain descriptor.
type LocalVariableTypeTableEntry struct {
	StartPC, Length, Index uint16
	Name, Signature        string
}

// LocalVariableTypeTable is the decoded form of the LocalVariableTypeTable
// attribute, present alongside LocalVariableTable when a local variable's
// type uses generics.
type LocalVariableTypeTable struct {
	Entries []LocalVariableTypeTableEntry
}

type attrDecoder func(r *Reader, pool *ConstantPool) (any, error)

var attrDecoders map[string]attrDecoder

func init() {
	attrDecoders = map[string]attrDecoder{
		"ConstantValue":                        decodeConstantValue,
		"Code":                                 decodeCodeAttribute,
		"Exceptions":                           decodeExceptions,
		"InnerClasses":                         decodeInnerClasses,
		"EnclosingMethod":                      decodeEnclosingMethod,
		"Synthetic":                            decodeSynthetic,
		"Deprecated":                           decodeDeprecated,
		"SourceFile":                           decodeSourceFile,
		"LineNumberTable":                      decodeLineNumberTable,
		"LocalVariableTable":                   decodeLocalVariableTable,
		"LocalVariableTypeTable":               decodeLocalVariableTypeTable,
		"Signature":                            decodeSignature,
		"BootstrapMethods":                     decodeBootstrapMethods,
		"StackMapTable":                        decodeStackMapTableRaw,
		"NestHost":                             decodeNestHost,
		"NestMembers":                          decodeNestMembers,
		"RuntimeVisibleAnnotations":            decodeRuntimeAnnotations,
		"RuntimeInvisibleAnnotations":          decodeRuntimeAnnotations,
		"RuntimeVisibleParameterAnnotations":   decodeRuntimeParameterAnnotations,
		"RuntimeInvisibleParameterAnnotations": decodeRuntimeParameterAnnotations,
		"AnnotationDefault":                    decodeAnnotationDefault,
		"MethodParameters":                     decodeMethodParameters,
	}
}

// decodeAttributes reads an attribute_count/attribute_info[] sequence.
// A mismatch between an attribute's declared length and the bytes its typed
// decoder consumed is recoverable: the attribute is re-decoded as Opaque and
// a Warning is appended, rather than aborting the whole class decode.
func decodeAttributes(r *Reader, pool *ConstantPool, warnings []Warning) ([]Attribute, []Warning, error) {
	count, err := r.U16()
	if err != nil {
		return nil, warnings, err
	}

	attrs := make([]Attribute, count)
	for i := range attrs {
		nameIdx, err := r.U16()
		if err != nil {
			return nil, warnings, err
		}
		name, err := pool.Utf8(int(nameIdx))
		if err != nil {
			return nil, warnings, err
		}
		length, err := r.U32()
		if err != nil {
			return nil, warnings, err
		}

		attrStart := r.Tell()
		sub, err := r.Sub(int(length))
		if err != nil {
			return nil, warnings, err
		}

		dec, ok := attrDecoders[name]
		if !ok {
			raw, _ := sub.Bytes(sub.Remaining())
			attrs[i] = Attribute{Name: name, Value: &Opaque{Raw: raw}}
			continue
		}

		value, decErr := dec(sub, pool)
		if decErr != nil {
			// Only a declared-length/consumed-length disagreement is
			// recoverable; every other decoder error (a bad opcode, a bad
			// constant-pool reference, truncation) is fatal to the class.
			return nil, warnings, fmt.Errorf("attribute %q at offset %d: %w", name, attrStart, decErr)
		}
		if sub.Remaining() != 0 {
			// Recover: re-read as opaque bytes and record a warning instead
			// of failing the whole class.
			consumed := sub.Tell()
			sub.Seek(0)
			raw, _ := sub.Bytes(sub.Len())
			attrs[i] = Attribute{Name: name, Value: &Opaque{Raw: raw}}
			warnings = append(warnings, Warning{
				Kind: WarnAttributeLengthMismatch,
				Message: (&AttributeLengthMismatch{
					Name:      name,
					Declared:  int(length),
					Consumed:  consumed,
					AttrStart: attrStart,
				}).Error(),
			})
			continue
		}

		attrs[i] = Attribute{Name: name, Value: value}
	}

	return attrs, warnings, nil
}

func decodeConstantValue(r *Reader, pool *ConstantPool) (any, error) {
	idx, err := r.U16()
	return &ConstantValue{Index: int(idx)}, err
}

func decodeExceptions(r *Reader, pool *ConstantPool) (any, error) {
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	out := &Exceptions{ClassNames: make([]string, n)}
	for i := range out.ClassNames {
		idx, err := r.U16()
		if err != nil {
			return nil, err
		}
		out.ClassNames[i], err = pool.ClassName(int(idx))
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeInnerClasses(r *Reader, pool *ConstantPool) (any, error) {
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	out := &InnerClasses{Classes: make([]InnerClass, n)}
	for i := range out.Classes {
		innerIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		outerIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		flags, err := r.U16()
		if err != nil {
			return nil, err
		}

		ic := InnerClass{AccessFlags: flags}
		ic.InnerName, err = pool.ClassName(int(innerIdx))
		if err != nil {
			return nil, err
		}
		if outerIdx != 0 {
			ic.OuterName, err = pool.ClassName(int(outerIdx))
			if err != nil {
				return nil, err
			}
		}
		if nameIdx != 0 {
			ic.InnerSimpleName, err = pool.Utf8(int(nameIdx))
			if err != nil {
				return nil, err
			}
		}
		out.Classes[i] = ic
	}
	return out, nil
}

func decodeEnclosingMethod(r *Reader, pool *ConstantPool) (any, error) {
	classIdx, err := r.U16()
	if err != nil {
		return nil, err
	}
	methodIdx, err := r.U16()
	if err != nil {
		return nil, err
	}

	out := &EnclosingMethod{}
	out.ClassName, err = pool.ClassName(int(classIdx))
	if err != nil {
		return nil, err
	}
	if methodIdx != 0 {
		out.MethodName, out.Descriptor, err = pool.NameAndType(int(methodIdx))
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeSynthetic(r *Reader, pool *ConstantPool) (any, error)  { return &Synthetic{}, nil }
func decodeDeprecated(r *Reader, pool *ConstantPool) (any, error) { return &Deprecated{}, nil }

func decodeSourceFile(r *Reader, pool *ConstantPool) (any, error) {
	idx, err := r.U16()
	if err != nil {
		return nil, err
	}
	name, err := pool.Utf8(int(idx))
	return &SourceFile{Name: name}, err
}

func decodeLineNumberTable(r *Reader, pool *ConstantPool) (any, error) {
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	out := &LineNumberTable{Entries: make([]LineNumberTableEntry, n)}
	for i := range out.Entries {
		startPC, err := r.U16()
		if err != nil {
			return nil, err
		}
		line, err := r.U16()
		if err != nil {
			return nil, err
		}
		out.Entries[i] = LineNumberTableEntry{StartPC: startPC, LineNumber: line}
	}
	return out, nil
}

func decodeLocalVariableTable(r *Reader, pool *ConstantPool) (any, error) {
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	out := &LocalVariableTable{Entries: make([]LocalVariableTableEntry, n)}
	for i := range out.Entries {
		startPC, err := r.U16()
		if err != nil {
			return nil, err
		}
		length, err := r.U16()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		descIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		index, err := r.U16()
		if err != nil {
			return nil, err
		}

		name, err := pool.Utf8(int(nameIdx))
		if err != nil {
			return nil, err
		}
		desc, err := pool.Utf8(int(descIdx))
		if err != nil {
			return nil, err
		}

		out.Entries[i] = LocalVariableTableEntry{
			StartPC: startPC, Length: length, Index: index,
			Name: name, Descriptor: desc,
		}
	}
	return out, nil
}

func decodeSignature(r *Reader, pool *ConstantPool) (any, error) {
	idx, err := r.U16()
	if err != nil {
		return nil, err
	}
	val, err := pool.Utf8(int(idx))
	return &Signature{Value: val}, err
}

func decodeBootstrapMethods(r *Reader, pool *ConstantPool) (any, error) {
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	out := &BootstrapMethods{Methods: make([]BootstrapMethod, n)}
	for i := range out.Methods {
		refIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		argc, err := r.U16()
		if err != nil {
			return nil, err
		}
		args := make([]int, argc)
		for j := range args {
			idx, err := r.U16()
			if err != nil {
				return nil, err
			}
			args[j] = int(idx)
		}
		out.Methods[i] = BootstrapMethod{MethodRefIndex: int(refIdx), Arguments: args}
	}
	return out, nil
}

func decodeStackMapTableRaw(r *Reader, pool *ConstantPool) (any, error) {
	raw, err := r.Bytes(r.Remaining())
	return &StackMapTable{Raw: raw}, err
}

func decodeNestHost(r *Reader, pool *ConstantPool) (any, error) {
	idx, err := r.U16()
	if err != nil {
		return nil, err
	}
	name, err := pool.ClassName(int(idx))
	return &NestHost{HostClassName: name}, err
}

func decodeNestMembers(r *Reader, pool *ConstantPool) (any, error) {
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	out := &NestMembers{ClassNames: make([]string, n)}
	for i := range out.ClassNames {
		idx, err := r.U16()
		if err != nil {
			return nil, err
		}
		out.ClassNames[i], err = pool.ClassName(int(idx))
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// decodeAnnotation reads one annotation structure (JVM spec §4.7.16): a
// type descriptor plus its element_value_pairs.
func decodeAnnotation(r *Reader, pool *ConstantPool) (Annotation, error) {
	typeIdx, err := r.U16()
	if err != nil {
		return Annotation{}, err
	}
	desc, err := pool.Utf8(int(typeIdx))
	if err != nil {
		return Annotation{}, err
	}
	n, err := r.U16()
	if err != nil {
		return Annotation{}, err
	}
	out := Annotation{TypeDescriptor: desc, Values: make([]AnnotationElement, n)}
	for i := range out.Values {
		nameIdx, err := r.U16()
		if err != nil {
			return Annotation{}, err
		}
		name, err := pool.Utf8(int(nameIdx))
		if err != nil {
			return Annotation{}, err
		}
		val, err := decodeElementValue(r, pool)
		if err != nil {
			return Annotation{}, err
		}
		out.Values[i] = AnnotationElement{Name: name, Value: val}
	}
	return out, nil
}

// decodeElementValue reads one element_value (JVM spec §4.7.16.1),
// resolving every constant-pool reference to its symbolic form so the
// result is independent of pool ordering.
func decodeElementValue(r *Reader, pool *ConstantPool) (AnnotationValue, error) {
	tag, err := r.U8()
	if err != nil {
		return AnnotationValue{}, err
	}
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		idx, err := r.U16()
		if err != nil {
			return AnnotationValue{}, err
		}
		val, err := pool.Symbolic(int(idx))
		if err != nil {
			return AnnotationValue{}, err
		}
		return AnnotationValue{Tag: tag, Const: val}, nil

	case 'e':
		typeIdx, err := r.U16()
		if err != nil {
			return AnnotationValue{}, err
		}
		nameIdx, err := r.U16()
		if err != nil {
			return AnnotationValue{}, err
		}
		typeName, err := pool.Utf8(int(typeIdx))
		if err != nil {
			return AnnotationValue{}, err
		}
		constName, err := pool.Utf8(int(nameIdx))
		if err != nil {
			return AnnotationValue{}, err
		}
		return AnnotationValue{Tag: tag, EnumType: typeName, EnumName: constName}, nil

	case 'c':
		idx, err := r.U16()
		if err != nil {
			return AnnotationValue{}, err
		}
		name, err := pool.Utf8(int(idx))
		if err != nil {
			return AnnotationValue{}, err
		}
		return AnnotationValue{Tag: tag, ClassName: name}, nil

	case '@':
		nested, err := decodeAnnotation(r, pool)
		if err != nil {
			return AnnotationValue{}, err
		}
		return AnnotationValue{Tag: tag, Nested: &nested}, nil

	case '[':
		n, err := r.U16()
		if err != nil {
			return AnnotationValue{}, err
		}
		out := AnnotationValue{Tag: tag, Array: make([]AnnotationValue, n)}
		for i := range out.Array {
			v, err := decodeElementValue(r, pool)
			if err != nil {
				return AnnotationValue{}, err
			}
			out.Array[i] = v
		}
		return out, nil

	default:
		return AnnotationValue{}, &WrongTag{Got: tag}
	}
}

func decodeRuntimeAnnotations(r *Reader, pool *ConstantPool) (any, error) {
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	out := &RuntimeAnnotations{Annotations: make([]Annotation, n)}
	for i := range out.Annotations {
		a, err := decodeAnnotation(r, pool)
		if err != nil {
			return nil, err
		}
		out.Annotations[i] = a
	}
	return out, nil
}

func decodeRuntimeParameterAnnotations(r *Reader, pool *ConstantPool) (any, error) {
	n, err := r.U8()
	if err != nil {
		return nil, err
	}
	out := &RuntimeParameterAnnotations{Parameters: make([][]Annotation, n)}
	for i := range out.Parameters {
		cnt, err := r.U16()
		if err != nil {
			return nil, err
		}
		anns := make([]Annotation, cnt)
		for j := range anns {
			a, err := decodeAnnotation(r, pool)
			if err != nil {
				return nil, err
			}
			anns[j] = a
		}
		out.Parameters[i] = anns
	}
	return out, nil
}

func decodeAnnotationDefault(r *Reader, pool *ConstantPool) (any, error) {
	v, err := decodeElementValue(r, pool)
	if err != nil {
		return nil, err
	}
	return &AnnotationDefault{Value: v}, nil
}

func decodeMethodParameters(r *Reader, pool *ConstantPool) (any, error) {
	n, err := r.U8()
	if err != nil {
		return nil, err
	}
	out := &MethodParameters{Parameters: make([]MethodParameter, n)}
	for i := range out.Parameters {
		nameIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		flags, err := r.U16()
		if err != nil {
			return nil, err
		}
		var name string
		if nameIdx != 0 {
			name, err = pool.Utf8(int(nameIdx))
			if err != nil {
				return nil, err
			}
		}
		out.Parameters[i] = MethodParameter{Name: name, AccessFlags: flags}
	}
	return out, nil
}

func decodeLocalVariableTypeTable(r *Reader, pool *ConstantPool) (any, error) {
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	out := &LocalVariableTypeTable{Entries: make([]LocalVariableTypeTableEntry, n)}
	for i := range out.Entries {
		startPC, err := r.U16()
		if err != nil {
			return nil, err
		}
		length, err := r.U16()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		sigIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		index, err := r.U16()
		if err != nil {
			return nil, err
		}
		name, err := pool.Utf8(int(nameIdx))
		if err != nil {
			return nil, err
		}
		sig, err := pool.Utf8(int(sigIdx))
		if err != nil {
			return nil, err
		}
		out.Entries[i] = LocalVariableTypeTableEntry{
			StartPC: startPC, Length: length, Index: index,
			Name: name, Signature: sig,
		}
	}
	return out, nil
}
