package diffengine

import (
	"fmt"

	"github.com/obriencj-go/javadiff/internal/classfile"
	"github.com/obriencj-go/javadiff/internal/opcode"
)

// CompareCode diffs two method bodies. It resolves every constant-pool
// operand through classfile.ResolveOperand before comparing instructions, so
// two bodies that differ only by constant-pool ordering compare as
// unchanged here whatever the active policy; pol is not consulted
// (invariant 6, scenario S3 — the literal pool comparison, which the "pool"
// token suppresses, lives in CompareClass's constant_pool node).
func CompareCode(l, r *classfile.Code, lp, rp *classfile.ConstantPool, pol *IgnorePolicy, id string) *Delta {
	id += "/code"
	switch {
	case l == nil && r == nil:
		return nil
	case l == nil:
		d := newDelta(CodeDelta, id, "code")
		d.Change = ChangeAdded
		return d
	case r == nil:
		d := newDelta(CodeDelta, id, "code")
		d.Change = ChangeRemoved
		return d
	}

	children := []*Delta{
		leafDelta(CodeDelta, id+"/maxstack", "max stack", l.MaxStack, r.MaxStack, ""),
		leafDelta(CodeDelta, id+"/maxlocals", "max locals", l.MaxLocals, r.MaxLocals, ""),
		compareInstructions(id, l, lp, r, rp),
		leafDelta(CodeDelta, id+"/exceptions", "exception table", l.ExceptionTable, r.ExceptionTable, ""),
		compareLineNumbers(id, l.Attributes, r.Attributes),
		compareGenericAttributes(id, l.Attributes, r.Attributes, map[string]bool{"LineNumberTable": true}),
	}
	return compositeDelta(CodeDelta, id, "code", children)
}

// symbolicInstructions renders each instruction as an opcode mnemonic plus
// its resolved operand (symbolic form when it carries a constant-pool
// index, the raw decoded operand words otherwise), so instruction sequences
// that only differ in constant-pool layout compare equal.
func symbolicInstructions(code *classfile.Code, pool *classfile.ConstantPool) []string {
	out := make([]string, len(code.Instructions))
	for i, instr := range code.Instructions {
		name := opcode.Name(instr.Opcode)
		if sym, ok := classfile.ResolveOperand(pool, instr); ok {
			out[i] = fmt.Sprintf("%s %s", name, sym)
			continue
		}
		out[i] = fmt.Sprintf("%s %v", name, instr.Operands)
	}
	return out
}

func compareInstructions(id string, l *classfile.Code, lp *classfile.ConstantPool, r *classfile.Code, rp *classfile.ConstantPool) *Delta {
	ls := symbolicInstructions(l, lp)
	rs := symbolicInstructions(r, rp)
	return leafDelta(CodeDelta, id+"/instructions", "instructions", ls, rs, "")
}

func compareLineNumbers(id string, l, r []classfile.Attribute) *Delta {
	var lv, rv *classfile.LineNumberTable
	if a, ok := findAttr(l, "LineNumberTable"); ok {
		lv, _ = a.Value.(*classfile.LineNumberTable)
	}
	if a, ok := findAttr(r, "LineNumberTable"); ok {
		rv, _ = a.Value.(*classfile.LineNumberTable)
	}
	return leafDelta(CodeDelta, id+"/linenumbers", "line numbers", lv, rv, TokenLines)
}
