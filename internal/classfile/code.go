package classfile

import (
	"errors"

	"github.com/obriencj-go/javadiff/internal/opcode"
)

// ExceptionHandler is one entry of a Code attribute's exception_table.
type ExceptionHandler struct {
	StartPC, EndPC, HandlerPC uint16
	CatchType                 string // empty for a finally-style catch-all
}

// Instruction is one decoded bytecode instruction. Offset is its position
// within the method's code array; Opcode is the raw opcode byte; Operands
// holds the raw decoded operand words in instruction order (sign already
// applied where the instruction defines a signed operand); Length is the
// total encoded length in bytes including any wide prefix and switch
// padding, so Offset+Length is always the next instruction's offset.
type Instruction struct {
	Offset   int
	Opcode   byte
	Operands []int32
	Length   int

	// Targets holds absolute branch targets for control-flow instructions
	// (if/goto/jsr/tableswitch/lookupswitch); empty otherwise.
	Targets []int
}

// Code is the decoded form of a Code attribute.
type Code struct {
	MaxStack, MaxLocals uint16
	Instructions        []Instruction
	ExceptionTable       []ExceptionHandler
	Attributes           []Attribute

	// Raw is the undecoded bytecode array, kept so a resolved-operand
	// comparator can re-resolve constant-pool references without walking
	// Instructions a second time.
	Raw []byte
}

// ResolveOperand resolves a constant-pool-argument instruction's operand to
// its symbolic form, so a comparator can treat two code bodies that differ
// only by constant-pool ordering as equal. Returns ok=false for
// instructions that carry no constant-pool operand.
func ResolveOperand(pool *ConstantPool, instr Instruction) (symbolic string, ok bool) {
	info, found := opcode.Lookup(instr.Opcode)
	if !found || !info.ConstArg || len(instr.Operands) == 0 {
		return "", false
	}
	sym, err := pool.Symbolic(int(instr.Operands[0]))
	if err != nil {
		return "", false
	}
	return sym, true
}

func decodeCodeAttribute(r *Reader, pool *ConstantPool) (any, error) {
	c := &Code{}

	var err error
	c.MaxStack, err = r.U16()
	if err != nil {
		return nil, err
	}
	c.MaxLocals, err = r.U16()
	if err != nil {
		return nil, err
	}

	codeLen, err := r.U32()
	if err != nil {
		return nil, err
	}
	c.Raw, err = r.Bytes(int(codeLen))
	if err != nil {
		return nil, err
	}

	c.Instructions, err = decodeInstructions(c.Raw)
	if err != nil {
		var tr *Truncated
		if errors.As(err, &tr) {
			return nil, &MalformedCode{Offset: tr.Offset, Reason: "instruction runs past the end of the code array"}
		}
		return nil, err
	}

	excCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	c.ExceptionTable = make([]ExceptionHandler, excCount)
	for i := range c.ExceptionTable {
		startPC, err := r.U16()
		if err != nil {
			return nil, err
		}
		endPC, err := r.U16()
		if err != nil {
			return nil, err
		}
		handlerPC, err := r.U16()
		if err != nil {
			return nil, err
		}
		catchIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		eh := ExceptionHandler{StartPC: startPC, EndPC: endPC, HandlerPC: handlerPC}
		if catchIdx != 0 {
			eh.CatchType, err = pool.ClassName(int(catchIdx))
			if err != nil {
				return nil, err
			}
		}
		c.ExceptionTable[i] = eh
	}

	c.Attributes, _, err = decodeAttributes(r, pool, nil)
	return c, err
}

// decodeInstructions walks a raw bytecode array into a sequence of
// Instruction values, honoring the tableswitch/lookupswitch 0-3 byte
// alignment pad (aligned so the following operands start on a 4-byte
// boundary relative to the start of the method) and the wide prefix that
// widens the index operand of iload/istore/... and iinc to 16 bits.
func decodeInstructions(code []byte) ([]Instruction, error) {
	r := NewReader(code)
	var out []Instruction

	for r.Remaining() > 0 {
		start := r.Tell()
		op, err := r.U8()
		if err != nil {
			return nil, err
		}

		inst := Instruction{Offset: start, Opcode: op}

		switch op {
		case opcode.Wide:
			wideOp, err := r.U8()
			if err != nil {
				return nil, err
			}
			idx, err := r.U16()
			if err != nil {
				return nil, err
			}
			inst.Operands = []int32{int32(wideOp), int32(idx)}
			if wideOp == opcode.Iinc {
				delta, err := r.I16()
				if err != nil {
					return nil, err
				}
				inst.Operands = append(inst.Operands, int32(delta))
			}

		case opcode.Tableswitch, opcode.Lookupswitch:
			// pad to 4-byte alignment relative to the start of the code array
			for (r.Tell() % 4) != 0 {
				if _, err := r.U8(); err != nil {
					return nil, err
				}
			}
			defaultOffset, err := r.I32()
			if err != nil {
				return nil, err
			}
			if op == opcode.Tableswitch {
				low, err := r.I32()
				if err != nil {
					return nil, err
				}
				high, err := r.I32()
				if err != nil {
					return nil, err
				}
				if high < low {
					return nil, &MalformedCode{Offset: start, Reason: "tableswitch high < low"}
				}
				n := int(high-low) + 1
				inst.Operands = append([]int32{defaultOffset, low, high}, make([]int32, n)...)
				for i := 0; i < n; i++ {
					off, err := r.I32()
					if err != nil {
						return nil, err
					}
					inst.Operands[3+i] = off
					inst.Targets = append(inst.Targets, start+int(off))
				}
			} else {
				npairs, err := r.I32()
				if err != nil {
					return nil, err
				}
				inst.Operands = []int32{defaultOffset, npairs}
				for i := 0; i < int(npairs); i++ {
					match, err := r.I32()
					if err != nil {
						return nil, err
					}
					off, err := r.I32()
					if err != nil {
						return nil, err
					}
					inst.Operands = append(inst.Operands, match, off)
					inst.Targets = append(inst.Targets, start+int(off))
				}
			}
			inst.Targets = append(inst.Targets, start+int(defaultOffset))

		default:
			info, ok := opcode.Lookup(op)
			if !ok {
				return nil, &UnknownOpcode{Offset: start, Op: op}
			}
			for _, w := range info.Operands {
				switch w {
				case opcode.U1:
					v, err := r.U8()
					if err != nil {
						return nil, err
					}
					inst.Operands = append(inst.Operands, int32(v))
				case opcode.U2:
					v, err := r.U16()
					if err != nil {
						return nil, err
					}
					inst.Operands = append(inst.Operands, int32(v))
				case opcode.I1:
					v, err := r.U8()
					if err != nil {
						return nil, err
					}
					inst.Operands = append(inst.Operands, int32(int8(v)))
				case opcode.I2:
					v, err := r.I16()
					if err != nil {
						return nil, err
					}
					inst.Operands = append(inst.Operands, int32(v))
				case opcode.I4:
					v, err := r.I32()
					if err != nil {
						return nil, err
					}
					inst.Operands = append(inst.Operands, v)
				case opcode.U4:
					v, err := r.U32()
					if err != nil {
						return nil, err
					}
					inst.Operands = append(inst.Operands, int32(v))
				case opcode.Pad1:
					if _, err := r.U8(); err != nil {
						return nil, err
					}
				}
			}
			if info.IsBranch && len(inst.Operands) > 0 {
				inst.Targets = []int{start + int(inst.Operands[0])}
			}
		}

		inst.Length = r.Tell() - start
		if inst.Length <= 0 {
			return nil, &MalformedCode{Offset: start, Reason: "instruction made no forward progress"}
		}
		out = append(out, inst)
	}

	return out, nil
}

// I16 reads a signed big-endian 16-bit integer; small convenience wrapper
// kept here since only the bytecode decoder needs signed 16-bit reads.
func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}
