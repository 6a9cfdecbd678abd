// Package opcode describes the JVM instruction set: each opcode's mnemonic,
// the width and count of its operand words, and whether one of those
// operands is a constant-pool index. The table mirrors the reference data
// javatools keeps in its opcodes module.
package opcode

// Width identifies the encoded size (and signedness) of one operand word
// following an opcode byte.
type Width int

const (
	U1   Width = iota // unsigned byte
	U2                // unsigned big-endian short
	U4                // unsigned big-endian int
	I1                // signed byte
	I2                // signed big-endian short
	I4                // signed big-endian int
	Pad1              // a reserved/ignored byte (invokeinterface's count/zero bytes)
)

// Info describes one opcode's static shape.
type Info struct {
	Name      string
	Value     byte
	Operands  []Width
	ConstArg  bool // one operand indexes the constant pool
	IsBranch  bool // operand[0] is a relative branch target
}

// Special-cased opcodes whose operand shape depends on runtime content
// rather than a fixed width list; the bytecode decoder handles these by
// opcode value directly instead of consulting Operands.
const (
	Wide          = 0xc4
	Tableswitch   = 0xaa
	Lookupswitch  = 0xab
	Iinc          = 0x84
)

var table = [256]Info{}

func reg(name string, value byte, operands []Width, constArg, isBranch bool) {
	table[value] = Info{Name: name, Value: value, Operands: operands, ConstArg: constArg, IsBranch: isBranch}
}

func init() {
	reg("nop", 0x00, nil, false, false)
	reg("aconst_null", 0x01, nil, false, false)
	reg("iconst_m1", 0x02, nil, false, false)
	reg("iconst_0", 0x03, nil, false, false)
	reg("iconst_1", 0x04, nil, false, false)
	reg("iconst_2", 0x05, nil, false, false)
	reg("iconst_3", 0x06, nil, false, false)
	reg("iconst_4", 0x07, nil, false, false)
	reg("iconst_5", 0x08, nil, false, false)
	reg("lconst_0", 0x09, nil, false, false)
	reg("lconst_1", 0x0a, nil, false, false)
	reg("fconst_0", 0x0b, nil, false, false)
	reg("fconst_1", 0x0c, nil, false, false)
	reg("fconst_2", 0x0d, nil, false, false)
	reg("dconst_0", 0x0e, nil, false, false)
	reg("dconst_1", 0x0f, nil, false, false)
	reg("bipush", 0x10, []Width{I1}, false, false)
	reg("sipush", 0x11, []Width{I2}, false, false)
	reg("ldc", 0x12, []Width{U1}, true, false)
	reg("ldc_w", 0x13, []Width{U2}, true, false)
	reg("ldc2_w", 0x14, []Width{U2}, true, false)
	reg("iload", 0x15, []Width{U1}, false, false)
	reg("lload", 0x16, []Width{U1}, false, false)
	reg("fload", 0x17, []Width{U1}, false, false)
	reg("dload", 0x18, []Width{U1}, false, false)
	reg("aload", 0x19, []Width{U1}, false, false)
	reg("iload_0", 0x1a, nil, false, false)
	reg("iload_1", 0x1b, nil, false, false)
	reg("iload_2", 0x1c, nil, false, false)
	reg("iload_3", 0x1d, nil, false, false)
	reg("lload_0", 0x1e, nil, false, false)
	reg("lload_1", 0x1f, nil, false, false)
	reg("lload_2", 0x20, nil, false, false)
	reg("lload_3", 0x21, nil, false, false)
	reg("fload_0", 0x22, nil, false, false)
	reg("fload_1", 0x23, nil, false, false)
	reg("fload_2", 0x24, nil, false, false)
	reg("fload_3", 0x25, nil, false, false)
	reg("dload_0", 0x26, nil, false, false)
	reg("dload_1", 0x27, nil, false, false)
	reg("dload_2", 0x28, nil, false, false)
	reg("dload_3", 0x29, nil, false, false)
	reg("aload_0", 0x2a, nil, false, false)
	reg("aload_1", 0x2b, nil, false, false)
	reg("aload_2", 0x2c, nil, false, false)
	reg("aload_3", 0x2d, nil, false, false)
	reg("iaload", 0x2e, nil, false, false)
	reg("laload", 0x2f, nil, false, false)
	reg("faload", 0x30, nil, false, false)
	reg("daload", 0x31, nil, false, false)
	reg("aaload", 0x32, nil, false, false)
	reg("baload", 0x33, nil, false, false)
	reg("caload", 0x34, nil, false, false)
	reg("saload", 0x35, nil, false, false)
	reg("istore", 0x36, []Width{U1}, false, false)
	reg("lstore", 0x37, []Width{U1}, false, false)
	reg("fstore", 0x38, []Width{U1}, false, false)
	reg("dstore", 0x39, []Width{U1}, false, false)
	reg("astore", 0x3a, []Width{U1}, false, false)
	reg("istore_0", 0x3b, nil, false, false)
	reg("istore_1", 0x3c, nil, false, false)
	reg("istore_2", 0x3d, nil, false, false)
	reg("istore_3", 0x3e, nil, false, false)
	reg("lstore_0", 0x3f, nil, false, false)
	reg("lstore_1", 0x40, nil, false, false)
	reg("lstore_2", 0x41, nil, false, false)
	reg("lstore_3", 0x42, nil, false, false)
	reg("fstore_0", 0x43, nil, false, false)
	reg("fstore_1", 0x44, nil, false, false)
	reg("fstore_2", 0x45, nil, false, false)
	reg("fstore_3", 0x46, nil, false, false)
	reg("dstore_0", 0x47, nil, false, false)
	reg("dstore_1", 0x48, nil, false, false)
	reg("dstore_2", 0x49, nil, false, false)
	reg("dstore_3", 0x4a, nil, false, false)
	reg("astore_0", 0x4b, nil, false, false)
	reg("astore_1", 0x4c, nil, false, false)
	reg("astore_2", 0x4d, nil, false, false)
	reg("astore_3", 0x4e, nil, false, false)
	reg("iastore", 0x4f, nil, false, false)
	reg("lastore", 0x50, nil, false, false)
	reg("fastore", 0x51, nil, false, false)
	reg("dastore", 0x52, nil, false, false)
	reg("aastore", 0x53, nil, false, false)
	reg("bastore", 0x54, nil, false, false)
	reg("castore", 0x55, nil, false, false)
	reg("sastore", 0x56, nil, false, false)
	reg("pop", 0x57, nil, false, false)
	reg("pop2", 0x58, nil, false, false)
	reg("dup", 0x59, nil, false, false)
	reg("dup_x1", 0x5a, nil, false, false)
	reg("dup_x2", 0x5b, nil, false, false)
	reg("dup2", 0x5c, nil, false, false)
	reg("dup2_x1", 0x5d, nil, false, false)
	reg("dup2_x2", 0x5e, nil, false, false)
	reg("swap", 0x5f, nil, false, false)
	reg("iadd", 0x60, nil, false, false)
	reg("ladd", 0x61, nil, false, false)
	reg("fadd", 0x62, nil, false, false)
	reg("dadd", 0x63, nil, false, false)
	reg("isub", 0x64, nil, false, false)
	reg("lsub", 0x65, nil, false, false)
	reg("fsub", 0x66, nil, false, false)
	reg("dsub", 0x67, nil, false, false)
	reg("imul", 0x68, nil, false, false)
	reg("lmul", 0x69, nil, false, false)
	reg("fmul", 0x6a, nil, false, false)
	reg("dmul", 0x6b, nil, false, false)
	reg("idiv", 0x6c, nil, false, false)
	reg("ldiv", 0x6d, nil, false, false)
	reg("fdiv", 0x6e, nil, false, false)
	reg("ddiv", 0x6f, nil, false, false)
	reg("irem", 0x70, nil, false, false)
	reg("lrem", 0x71, nil, false, false)
	reg("frem", 0x72, nil, false, false)
	reg("drem", 0x73, nil, false, false)
	reg("ineg", 0x74, nil, false, false)
	reg("lneg", 0x75, nil, false, false)
	reg("fneg", 0x76, nil, false, false)
	reg("dneg", 0x77, nil, false, false)
	reg("ishl", 0x78, nil, false, false)
	reg("lshl", 0x79, nil, false, false)
	reg("ishr", 0x7a, nil, false, false)
	reg("lshr", 0x7b, nil, false, false)
	reg("iushr", 0x7c, nil, false, false)
	reg("lushr", 0x7d, nil, false, false)
	reg("iand", 0x7e, nil, false, false)
	reg("land", 0x7f, nil, false, false)
	reg("ior", 0x80, nil, false, false)
	reg("lor", 0x81, nil, false, false)
	reg("ixor", 0x82, nil, false, false)
	reg("lxor", 0x83, nil, false, false)
	reg("iinc", 0x84, []Width{U1, I1}, false, false)
	reg("i2l", 0x85, nil, false, false)
	reg("i2f", 0x86, nil, false, false)
	reg("i2d", 0x87, nil, false, false)
	reg("l2i", 0x88, nil, false, false)
	reg("l2f", 0x89, nil, false, false)
	reg("l2d", 0x8a, nil, false, false)
	reg("f2i", 0x8b, nil, false, false)
	reg("f2l", 0x8c, nil, false, false)
	reg("f2d", 0x8d, nil, false, false)
	reg("d2i", 0x8e, nil, false, false)
	reg("d2l", 0x8f, nil, false, false)
	reg("d2f", 0x90, nil, false, false)
	reg("i2b", 0x91, nil, false, false)
	reg("i2c", 0x92, nil, false, false)
	reg("i2s", 0x93, nil, false, false)
	reg("lcmp", 0x94, nil, false, false)
	reg("fcmpl", 0x95, nil, false, false)
	reg("fcmpg", 0x96, nil, false, false)
	reg("dcmpl", 0x97, nil, false, false)
	reg("dcmpg", 0x98, nil, false, false)
	reg("ifeq", 0x99, []Width{I2}, false, true)
	reg("ifne", 0x9a, []Width{I2}, false, true)
	reg("iflt", 0x9b, []Width{I2}, false, true)
	reg("ifge", 0x9c, []Width{I2}, false, true)
	reg("ifgt", 0x9d, []Width{I2}, false, true)
	reg("ifle", 0x9e, []Width{I2}, false, true)
	reg("if_icmpeq", 0x9f, []Width{I2}, false, true)
	reg("if_icmpne", 0xa0, []Width{I2}, false, true)
	reg("if_icmplt", 0xa1, []Width{I2}, false, true)
	reg("if_icmpge", 0xa2, []Width{I2}, false, true)
	reg("if_icmpgt", 0xa3, []Width{I2}, false, true)
	reg("if_icmple", 0xa4, []Width{I2}, false, true)
	reg("if_acmpeq", 0xa5, []Width{I2}, false, true)
	reg("if_acmpne", 0xa6, []Width{I2}, false, true)
	reg("goto", 0xa7, []Width{I2}, false, true)
	reg("jsr", 0xa8, []Width{I2}, false, true)
	reg("ret", 0xa9, []Width{U1}, false, false)
	// tableswitch (0xaa) and lookupswitch (0xab) are decoded specially.
	reg("ireturn", 0xac, nil, false, false)
	reg("lreturn", 0xad, nil, false, false)
	reg("freturn", 0xae, nil, false, false)
	reg("dreturn", 0xaf, nil, false, false)
	reg("areturn", 0xb0, nil, false, false)
	reg("return", 0xb1, nil, false, false)
	reg("getstatic", 0xb2, []Width{U2}, true, false)
	reg("putstatic", 0xb3, []Width{U2}, true, false)
	reg("getfield", 0xb4, []Width{U2}, true, false)
	reg("putfield", 0xb5, []Width{U2}, true, false)
	reg("invokevirtual", 0xb6, []Width{U2}, true, false)
	reg("invokespecial", 0xb7, []Width{U2}, true, false)
	reg("invokestatic", 0xb8, []Width{U2}, true, false)
	reg("invokeinterface", 0xb9, []Width{U2, Pad1, Pad1}, true, false)
	reg("invokedynamic", 0xba, []Width{U2, Pad1, Pad1}, true, false)
	reg("new", 0xbb, []Width{U2}, true, false)
	reg("newarray", 0xbc, []Width{U1}, false, false)
	reg("anewarray", 0xbd, []Width{U2}, true, false)
	reg("arraylength", 0xbe, nil, false, false)
	reg("athrow", 0xbf, nil, false, false)
	reg("checkcast", 0xc0, []Width{U2}, true, false)
	reg("instanceof", 0xc1, []Width{U2}, true, false)
	reg("monitorenter", 0xc2, nil, false, false)
	reg("monitorexit", 0xc3, nil, false, false)
	// wide (0xc4) is decoded specially.
	reg("multianewarray", 0xc5, []Width{U2, U1}, true, false)
	reg("ifnull", 0xc6, []Width{I2}, false, true)
	reg("ifnonnull", 0xc7, []Width{I2}, false, true)
	reg("goto_w", 0xc8, []Width{I4}, false, true)
	reg("jsr_w", 0xc9, []Width{I4}, false, true)
}

// Lookup returns the Info for an opcode byte and whether it is known.
func Lookup(op byte) (Info, bool) {
	info := table[op]
	if info.Name == "" {
		return Info{}, false
	}
	return info, true
}

// Name returns the mnemonic for an opcode byte, or "unknown" if unregistered.
func Name(op byte) string {
	if info, ok := Lookup(op); ok {
		return info.Name
	}
	return "unknown"
}
