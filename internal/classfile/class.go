package classfile

import "context"

// Magic is the four-byte class-file signature, 0xCAFEBABE.
const Magic uint32 = 0xCAFEBABE

// Access flag bits, per JVM spec tables 4.1-A, 4.5-A, 4.6-A.
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020
	AccSynchronized = 0x0020
	AccVolatile     = 0x0040
	AccBridge       = 0x0040
	AccTransient    = 0x0080
	AccVarargs      = 0x0080
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
	AccModule       = 0x8000
)

// Member is the shared shape of a field_info or method_info entry: access
// flags, a name, a descriptor, and a bag of attributes.
type Member struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []Attribute
}

// Field is a decoded field_info entry.
type Field struct {
	Member
}

// Method is a decoded method_info entry. Code is populated from a Code
// attribute if one is present (abstract and native methods have none).
type Method struct {
	Member
	Code *Code
}

// ClassFile is the fully decoded representation of a .class file.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16

	Pool *ConstantPool

	AccessFlags uint16
	ThisClass   string
	SuperClass  string // empty for java/lang/Object
	Interfaces  []string

	Fields     []Field
	Methods    []Method
	Attributes []Attribute

	Warnings []Warning
}

// DecodeContext is the single decode call's context-aware variant, used
// (through decodecache.DecodeClassContext) by batch helpers such as
// jar.Archive.ClassesContext that loop over many class members and want one
// cancellation check per member rather than per byte. A single call to
// DecodeContext is otherwise identical to Decode; the ctx check happens
// once, before decoding starts.
func DecodeContext(ctx context.Context, data []byte) (*ClassFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrCancelled
	}
	return Decode(data)
}

// Decode parses a complete class file from data. Structural errors (bad
// magic, truncated reads, a malformed constant pool) abort decoding and
// return an error. Per-attribute inconsistencies are recoverable: the
// offending attribute is kept as Opaque and a Warning is appended to the
// returned ClassFile.
func Decode(data []byte) (*ClassFile, error) {
	r := NewReader(data)

	magic, err := r.U32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, &BadMagic{Got: magic}
	}

	minor, err := r.U16()
	if err != nil {
		return nil, err
	}
	major, err := r.U16()
	if err != nil {
		return nil, err
	}

	pool, err := decodeConstantPool(r)
	if err != nil {
		return nil, err
	}

	cf := &ClassFile{
		MinorVersion: minor,
		MajorVersion: major,
		Pool:         pool,
	}
	if major > CurrentMajorVersion {
		cf.Warnings = append(cf.Warnings, Warning{
			Kind:    WarnUnsupportedVersion,
			Message: "class file major version " + intToStr(int64(major)) + " is newer than " + PlatformName(CurrentMajorVersion),
		})
	}

	cf.AccessFlags, err = r.U16()
	if err != nil {
		return nil, err
	}

	thisIdx, err := r.U16()
	if err != nil {
		return nil, err
	}
	cf.ThisClass, err = pool.ClassName(int(thisIdx))
	if err != nil {
		return nil, err
	}

	superIdx, err := r.U16()
	if err != nil {
		return nil, err
	}
	if superIdx != 0 {
		cf.SuperClass, err = pool.ClassName(int(superIdx))
		if err != nil {
			return nil, err
		}
	}

	ifaceCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	cf.Interfaces = make([]string, ifaceCount)
	for i := range cf.Interfaces {
		idx, err := r.U16()
		if err != nil {
			return nil, err
		}
		name, err := pool.ClassName(int(idx))
		if err != nil {
			return nil, err
		}
		cf.Interfaces[i] = name
	}

	cf.Fields, cf.Warnings, err = decodeFields(r, pool, cf.Warnings)
	if err != nil {
		return nil, err
	}

	cf.Methods, cf.Warnings, err = decodeMethods(r, pool, cf.Warnings)
	if err != nil {
		return nil, err
	}

	cf.Attributes, cf.Warnings, err = decodeAttributes(r, pool, cf.Warnings)
	if err != nil {
		return nil, err
	}

	return cf, nil
}

func decodeFields(r *Reader, pool *ConstantPool, warnings []Warning) ([]Field, []Warning, error) {
	count, err := r.U16()
	if err != nil {
		return nil, warnings, err
	}
	fields := make([]Field, count)
	for i := range fields {
		m, w, err := decodeMember(r, pool, warnings)
		if err != nil {
			return nil, warnings, err
		}
		warnings = w
		fields[i] = Field{Member: m}
	}
	return fields, warnings, nil
}

func decodeMethods(r *Reader, pool *ConstantPool, warnings []Warning) ([]Method, []Warning, error) {
	count, err := r.U16()
	if err != nil {
		return nil, warnings, err
	}
	methods := make([]Method, count)
	for i := range methods {
		m, w, err := decodeMember(r, pool, warnings)
		if err != nil {
			return nil, warnings, err
		}
		warnings = w
		methods[i] = Method{Member: m}
		for _, a := range m.Attributes {
			if code, ok := a.Value.(*Code); ok {
				methods[i].Code = code
				break
			}
		}
	}
	return methods, warnings, nil
}

func decodeMember(r *Reader, pool *ConstantPool, warnings []Warning) (Member, []Warning, error) {
	var m Member

	flags, err := r.U16()
	if err != nil {
		return m, warnings, err
	}
	m.AccessFlags = flags

	nameIdx, err := r.U16()
	if err != nil {
		return m, warnings, err
	}
	m.Name, err = pool.Utf8(int(nameIdx))
	if err != nil {
		return m, warnings, err
	}

	descIdx, err := r.U16()
	if err != nil {
		return m, warnings, err
	}
	m.Descriptor, err = pool.Utf8(int(descIdx))
	if err != nil {
		return m, warnings, err
	}

	m.Attributes, warnings, err = decodeAttributes(r, pool, warnings)
	return m, warnings, err
}
