package classfile

import (
	"strconv"

	"github.com/obriencj-go/javadiff/internal/mutf8"
)

// Constant-pool tags, per JVM spec §4.4. Names and values mirror
// javatools/__init__.py's CONST_* table.
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// cpEntry holds one constant-pool slot. Raw index fields (RefA, RefB) are
// interpreted according to Tag; IntVal/LongVal/FloatVal/DoubleVal/Utf8Val
// hold literal payloads. A zero Tag marks the unusable tombstone slot that
// follows a Long or Double entry.
type cpEntry struct {
	Tag      byte
	Utf8Val  string
	IntVal   int32
	LongVal  int64
	FloatVal float32
	DblVal   float64
	RefA     uint16 // class_index, name_index, bootstrap_method_attr_index, ...
	RefB     uint16 // name_and_type_index, descriptor_index, ...
}

// ConstantPool is the decoded, validated constant pool of a class file.
// Entries are indexed from 1; index 0 and the slot following a Long/Double
// entry are reserved and return a WrongTag error from every accessor.
type ConstantPool struct {
	entries []cpEntry // entries[0] is the unused tombstone
}

// Count returns the number of addressable slots, including the unused
// index 0 (so valid indices are 1..Count()-1).
func (p *ConstantPool) Count() int { return len(p.entries) }

func (p *ConstantPool) inRange(i int) bool {
	return i > 0 && i < len(p.entries)
}

func (p *ConstantPool) tagAt(i int) byte {
	if !p.inRange(i) {
		return 0
	}
	return p.entries[i].Tag
}

// decodeConstantPool reads the cp_count field and then that many (minus one)
// entries, per JVM §4.4. A Long or Double entry consumes two logical slots.
func decodeConstantPool(r *Reader) (*ConstantPool, error) {
	count, err := r.U16()
	if err != nil {
		return nil, err
	}

	entries := make([]cpEntry, count)
	// entries[0] stays the zero-value tombstone.

	skipNext := false
	for i := 1; i < int(count); i++ {
		if skipNext {
			skipNext = false
			continue // tombstone slot following a Long/Double
		}
		e, err := decodeOneConstant(r)
		if err != nil {
			if bad, ok := err.(*BadUtf8); ok {
				bad.Index = i
			}
			return nil, err
		}
		entries[i] = e
		if e.Tag == TagLong || e.Tag == TagDouble {
			skipNext = true
		}
	}

	pool := &ConstantPool{entries: entries}
	if err := pool.validate(); err != nil {
		return nil, err
	}
	return pool, nil
}

func decodeOneConstant(r *Reader) (cpEntry, error) {
	tag, err := r.U8()
	if err != nil {
		return cpEntry{}, err
	}

	switch tag {
	case TagUtf8:
		n, err := r.U16()
		if err != nil {
			return cpEntry{}, err
		}
		raw, err := r.Bytes(int(n))
		if err != nil {
			return cpEntry{}, err
		}
		s, decErr := mutf8.Decode(raw)
		if decErr != nil {
			return cpEntry{}, &BadUtf8{Reason: decErr.Error()}
		}
		return cpEntry{Tag: tag, Utf8Val: s}, nil

	case TagInteger:
		v, err := r.I32()
		return cpEntry{Tag: tag, IntVal: v}, err

	case TagFloat:
		v, err := r.F32()
		return cpEntry{Tag: tag, FloatVal: v}, err

	case TagLong:
		v, err := r.I64()
		return cpEntry{Tag: tag, LongVal: v}, err

	case TagDouble:
		v, err := r.F64()
		return cpEntry{Tag: tag, DblVal: v}, err

	case TagClass, TagString, TagMethodType, TagModule, TagPackage:
		idx, err := r.U16()
		return cpEntry{Tag: tag, RefA: idx}, err

	case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
		a, err := r.U16()
		if err != nil {
			return cpEntry{}, err
		}
		b, err := r.U16()
		return cpEntry{Tag: tag, RefA: a, RefB: b}, err

	case TagMethodHandle:
		kind, err := r.U8()
		if err != nil {
			return cpEntry{}, err
		}
		idx, err := r.U16()
		return cpEntry{Tag: tag, RefA: uint16(kind), RefB: idx}, err

	default:
		return cpEntry{}, &WrongTag{Got: tag}
	}
}

// validate walks every decoded reference and checks that it points at an
// in-range entry of a tag the JVM spec permits for that reference.
func (p *ConstantPool) validate() error {
	for i, e := range p.entries {
		if e.Tag == 0 {
			continue
		}
		switch e.Tag {
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			if err := p.expectTag(i, int(e.RefA), TagUtf8); err != nil {
				return err
			}
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			if err := p.expectTag(i, int(e.RefA), TagClass); err != nil {
				return err
			}
			if err := p.expectTag(i, int(e.RefB), TagNameAndType); err != nil {
				return err
			}
		case TagNameAndType:
			if err := p.expectTag(i, int(e.RefA), TagUtf8); err != nil {
				return err
			}
			if err := p.expectTag(i, int(e.RefB), TagUtf8); err != nil {
				return err
			}
		case TagDynamic, TagInvokeDynamic:
			// RefA is a bootstrap-method-table index, validated against
			// BootstrapMethods separately once attributes are decoded;
			// RefB must be a NameAndType.
			if err := p.expectTag(i, int(e.RefB), TagNameAndType); err != nil {
				return err
			}
		case TagMethodHandle:
			// RefB's required tag depends on RefA's reference-kind; accept
			// any of the shapes the JVM spec allows.
			if !p.inRange(int(e.RefB)) {
				return &BadConstantRef{Index: i, Ref: int(e.RefB), WantTags: []byte{TagFieldref, TagMethodref, TagInterfaceMethodref}}
			}
			got := p.tagAt(int(e.RefB))
			if got != TagFieldref && got != TagMethodref && got != TagInterfaceMethodref {
				return &BadConstantRef{Index: i, Ref: int(e.RefB), WantTags: []byte{TagFieldref, TagMethodref, TagInterfaceMethodref}}
			}
		}
	}
	return nil
}

func (p *ConstantPool) expectTag(holder, ref int, want byte) error {
	if !p.inRange(ref) || p.tagAt(ref) != want {
		return &BadConstantRef{Index: holder, Ref: ref, WantTags: []byte{want}}
	}
	return nil
}

// wrongTag builds a WrongTag error for accessor mismatches.
func (p *ConstantPool) wrongTag(i int, want ...byte) error {
	return &WrongTag{Index: i, Got: p.tagAt(i), WantTags: want}
}

// Utf8 returns the string value of a Utf8 constant.
func (p *ConstantPool) Utf8(i int) (string, error) {
	if !p.inRange(i) || p.entries[i].Tag != TagUtf8 {
		return "", p.wrongTag(i, TagUtf8)
	}
	return p.entries[i].Utf8Val, nil
}

// ClassName returns the Utf8 name referenced by a Class constant (e.g.
// "java/lang/Object").
func (p *ConstantPool) ClassName(i int) (string, error) {
	if !p.inRange(i) || p.entries[i].Tag != TagClass {
		return "", p.wrongTag(i, TagClass)
	}
	return p.Utf8(int(p.entries[i].RefA))
}

// NameAndType returns the name and descriptor referenced by a NameAndType
// constant.
func (p *ConstantPool) NameAndType(i int) (name, descriptor string, err error) {
	if !p.inRange(i) || p.entries[i].Tag != TagNameAndType {
		return "", "", p.wrongTag(i, TagNameAndType)
	}
	e := p.entries[i]
	name, err = p.Utf8(int(e.RefA))
	if err != nil {
		return "", "", err
	}
	descriptor, err = p.Utf8(int(e.RefB))
	return name, descriptor, err
}

// memberRef resolves the common Fieldref/Methodref/InterfaceMethodref shape:
// (owning class name, member name, member descriptor).
func (p *ConstantPool) memberRef(i int, tag byte) (class, name, descriptor string, err error) {
	if !p.inRange(i) || p.entries[i].Tag != tag {
		return "", "", "", p.wrongTag(i, tag)
	}
	e := p.entries[i]
	class, err = p.ClassName(int(e.RefA))
	if err != nil {
		return "", "", "", err
	}
	name, descriptor, err = p.NameAndType(int(e.RefB))
	return class, name, descriptor, err
}

// FieldRef resolves a Fieldref constant.
func (p *ConstantPool) FieldRef(i int) (class, name, descriptor string, err error) {
	return p.memberRef(i, TagFieldref)
}

// MethodRef resolves a Methodref constant.
func (p *ConstantPool) MethodRef(i int) (class, name, descriptor string, err error) {
	return p.memberRef(i, TagMethodref)
}

// InterfaceMethodRef resolves an InterfaceMethodref constant.
func (p *ConstantPool) InterfaceMethodRef(i int) (class, name, descriptor string, err error) {
	return p.memberRef(i, TagInterfaceMethodref)
}

// DynamicNameAndType resolves the NameAndType half of a Dynamic or
// InvokeDynamic constant (the bootstrap-method-table half is read via Tag
// plus the raw BootstrapMethods attribute, not through this accessor).
func (p *ConstantPool) DynamicNameAndType(i int) (name, descriptor string, err error) {
	if !p.inRange(i) {
		return "", "", p.wrongTag(i, TagDynamic, TagInvokeDynamic)
	}
	e := p.entries[i]
	if e.Tag != TagDynamic && e.Tag != TagInvokeDynamic {
		return "", "", p.wrongTag(i, TagDynamic, TagInvokeDynamic)
	}
	return p.NameAndType(int(e.RefB))
}

// String returns the Utf8 value referenced by a String constant.
func (p *ConstantPool) String(i int) (string, error) {
	if !p.inRange(i) || p.entries[i].Tag != TagString {
		return "", p.wrongTag(i, TagString)
	}
	return p.Utf8(int(p.entries[i].RefA))
}

// Integer, Float, Long, Double return literal constant values.
func (p *ConstantPool) Integer(i int) (int32, error) {
	if !p.inRange(i) || p.entries[i].Tag != TagInteger {
		return 0, p.wrongTag(i, TagInteger)
	}
	return p.entries[i].IntVal, nil
}

func (p *ConstantPool) Float(i int) (float32, error) {
	if !p.inRange(i) || p.entries[i].Tag != TagFloat {
		return 0, p.wrongTag(i, TagFloat)
	}
	return p.entries[i].FloatVal, nil
}

func (p *ConstantPool) Long(i int) (int64, error) {
	if !p.inRange(i) || p.entries[i].Tag != TagLong {
		return 0, p.wrongTag(i, TagLong)
	}
	return p.entries[i].LongVal, nil
}

func (p *ConstantPool) Double(i int) (float64, error) {
	if !p.inRange(i) || p.entries[i].Tag != TagDouble {
		return 0, p.wrongTag(i, TagDouble)
	}
	return p.entries[i].DblVal, nil
}

// Tag returns the tag byte at index i, or 0 for an unusable slot.
func (p *ConstantPool) Tag(i int) byte { return p.tagAt(i) }

// DerefName follows a single symbolic link to a Utf8 string: for a Class
// constant, its class name; for a String constant, its string value; for a
// NameAndType, its "name:descriptor" form; otherwise a WrongTag error.
func (p *ConstantPool) DerefName(i int) (string, error) {
	if !p.inRange(i) {
		return "", p.wrongTag(i, TagClass, TagString, TagUtf8)
	}
	switch p.entries[i].Tag {
	case TagUtf8:
		return p.Utf8(i)
	case TagClass:
		return p.ClassName(i)
	case TagString:
		return p.String(i)
	case TagNameAndType:
		name, desc, err := p.NameAndType(i)
		if err != nil {
			return "", err
		}
		return name + ":" + desc, nil
	default:
		return "", p.wrongTag(i, TagClass, TagString, TagUtf8, TagNameAndType)
	}
}

// Symbolic renders the resolved, symbolic form of entry i for use by the
// semantic code comparator (§4.9): two code bodies differing only by
// constant-pool ordering must resolve to identical symbolic operands.
func (p *ConstantPool) Symbolic(i int) (string, error) {
	if !p.inRange(i) {
		return "", p.wrongTag(i)
	}
	e := p.entries[i]
	switch e.Tag {
	case TagUtf8:
		return e.Utf8Val, nil
	case TagInteger:
		return intToStr(int64(e.IntVal)), nil
	case TagLong:
		return intToStr(e.LongVal), nil
	case TagFloat:
		return floatToStr(float64(e.FloatVal)), nil
	case TagDouble:
		return floatToStr(e.DblVal), nil
	case TagClass:
		return p.ClassName(i)
	case TagString:
		s, err := p.String(i)
		return "\"" + s + "\"", err
	case TagFieldref:
		c, n, d, err := p.FieldRef(i)
		return c + "." + n + ":" + d, err
	case TagMethodref:
		c, n, d, err := p.MethodRef(i)
		return c + "." + n + d, err
	case TagInterfaceMethodref:
		c, n, d, err := p.InterfaceMethodRef(i)
		return c + "." + n + d, err
	case TagNameAndType:
		n, d, err := p.NameAndType(i)
		return n + ":" + d, err
	case TagMethodType:
		return p.Utf8(int(e.RefA))
	case TagModule, TagPackage:
		return p.Utf8(int(e.RefA))
	case TagInvokeDynamic, TagDynamic:
		n, d, err := p.NameAndType(int(e.RefB))
		return intToStr(int64(e.RefA)) + ":" + n + d, err
	case TagMethodHandle:
		return "methodhandle:" + intToStr(int64(e.RefA)) + ":" + intToStr(int64(e.RefB)), nil
	default:
		return "", p.wrongTag(i)
	}
}

func intToStr(v int64) string {
	return strconv.FormatInt(v, 10)
}

// floatToStr renders v deterministically for symbolic equality comparisons;
// exact formatting doesn't matter as long as it is stable across calls for
// equal values, so the shortest round-tripping strconv representation is
// used directly rather than a fixed-notation scheme.
func floatToStr(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
