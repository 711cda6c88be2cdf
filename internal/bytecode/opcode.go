// Package bytecode implements the expression compiler and its
// stack-based bytecode VM: a precedence-climbing realization of the
// shunting-yard algorithm, producing a linear sequence of (opcode,
// payload) instructions that a small stack machine evaluates to a
// single result Value. Short-circuit operators (&&, ||) and the
// ternary ?: compile to forward jumps rather than being evaluated
// eagerly.
package bytecode

import "github.com/jimgo/jimgo/internal/value"

// OpCode is one VM instruction's operation.
type OpCode int

const (
	OpPushInt OpCode = iota // push Val (an Int-typed Value)
	OpPushDouble // push Val (a Double-typed Value)
	OpPushString // push Val (a string Value)
	OpReadVar // push the current value of variable named by Val
	OpReadDictSugar // push dict element named by Val (a DictSubstRep)
	OpEvalCmdSub // push the result of evaluating the nested Script in Val
	OpUnary // pop 1, apply Sym, push 1 result
	OpBinaryNum // pop 2, numeric-preferring dispatch on Sym, push 1 result
	OpBinaryStr // pop 2, string dispatch on Sym, push 1 result
	OpAndLeft // pop 1; if falsy push 0 and jump Skip; else fall through
	OpAndRight // pop 1, push truthiness as 0/1
	OpOrLeft // pop 1; if truthy push 1 and jump Skip; else fall through
	OpOrRight // pop 1, push truthiness as 0/1
	OpTernaryLeft // pop cond; true falls through, false jumps Skip
	OpColonLeft // unconditional jump Skip (end of the "then" branch)
	OpColonRight // landing marker, no-op
	OpCall // pop Argc operands, call function Sym, push 1 result
)

// Instruction is one compiled bytecode entry. Only the fields relevant
// to Op are populated; the rest are zero.
type Instruction struct {
	Op OpCode
	Val *value.Value
	Sym string
	Skip int
	Argc int
}

// Bytecode is the compiled form of one expression: a linear instruction
// sequence plus the source text it was compiled from, for error
// messages.
type Bytecode struct {
	Instructions []Instruction
	Source       string
}

// ExprType is the ObjType a Value shimmers to when compiled as an
// expression (registered here rather than in internal/value, mirroring
// internal/script.ScriptType's same inversion for shared,
// reference-counted compiled forms).
var ExprType = &value.ObjType{
	Name: "expression",
	UpdateString: func(v *value.Value) string { return v.Internal.(*Bytecode).Source },
}
