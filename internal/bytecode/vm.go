package bytecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jimgo/jimgo/internal/lexer"
	"github.com/jimgo/jimgo/internal/script"
	"github.com/jimgo/jimgo/internal/value"
)

// Host is the subset of the evaluator an expression needs: reading a
// variable, substituting a `$var(key)` dict reference, and running a
// nested command substitution's Script. Taking it as an interface keeps
// bytecode free of any import of the evaluator that implements it --
// the same inversion internal/script and internal/value use for their
// ObjType vtables.
type Host interface {
	ReadVariable(name string) (*value.Value, error)
	ReadDictVariable(name, key string) (*value.Value, error)
	EvalScript(s *script.Script) (*value.Value, error)
	Registry() *value.Registry
}

// Eval runs bc's instructions against host and returns the single
// result Value the VM's stack holds when it halts.
func Eval(bc *Bytecode, host Host) (*value.Value, error) {
	reg := host.Registry()
	stack := make([]*value.Value, 0, 8)
	push := func(v *value.Value) { stack = append(stack, v) }
	pop := func() *value.Value {
		n := len(stack) - 1
		v := stack[n]
		stack = stack[:n]
		return v
	}

	code := bc.Instructions
	for ip := 0; ip < len(code); ip++ {
		instr := code[ip]
		switch instr.Op {
		case OpPushInt, OpPushDouble, OpPushString:
			push(instr.Val)

		case OpReadVar:
			v, err := host.ReadVariable(instr.Val.String())
			if err != nil {
				return nil, err
			}
			push(v)

		case OpReadDictSugar:
			ds := instr.Val.Internal.(*value.DictSubstRep)
			v, err := host.ReadDictVariable(ds.VarName.String(), ds.Key.String())
			if err != nil {
				return nil, err
			}
			push(v)

		case OpEvalCmdSub:
			s, err := script.AsScript(reg, instr.Val, bc.Source, 0)
			if err != nil {
				return nil, err
			}
			v, err := host.EvalScript(s)
			if err != nil {
				return nil, err
			}
			push(v)

		case OpUnary:
			operand := pop()
			v, err := applyUnary(reg, instr.Sym, operand)
			if err != nil {
				return nil, err
			}
			push(v)

		case OpBinaryNum:
			rhs := pop()
			lhs := pop()
			v, err := applyBinaryNum(reg, instr.Sym, lhs, rhs)
			if err != nil {
				return nil, err
			}
			push(v)

		case OpBinaryStr:
			rhs := pop()
			lhs := pop()
			v, err := applyBinaryStr(reg, instr.Sym, lhs, rhs)
			if err != nil {
				return nil, err
			}
			push(v)

		case OpAndLeft:
			left := pop()
			if !truthy(left) {
				push(reg.NewInt(0))
				ip += instr.Skip
			}

		case OpAndRight:
			right := pop()
			push(reg.NewInt(boolInt(truthy(right))))

		case OpOrLeft:
			left := pop()
			if truthy(left) {
				push(reg.NewInt(1))
				ip += instr.Skip
			}

		case OpOrRight:
			right := pop()
			push(reg.NewInt(boolInt(truthy(right))))

		case OpTernaryLeft:
			cond := pop()
			if !truthy(cond) {
				ip += instr.Skip
			}

		case OpColonLeft:
			ip += instr.Skip

		case OpColonRight:
			// landing marker, nothing to do

		case OpCall:
			args := make([]*value.Value, instr.Argc)
			for i := instr.Argc - 1; i >= 0; i-- {
				args[i] = pop()
			}
			v, err := callMathFunc(reg, instr.Sym, args)
			if err != nil {
				return nil, err
			}
			push(v)

		default:
			return nil, fmt.Errorf("expr: unknown opcode %d", instr.Op)
		}
	}

	if len(stack) != 1 {
		return nil, fmt.Errorf("expr: malformed bytecode for %q (stack has %d values)", bc.Source, len(stack))
	}
	return stack[0], nil
}

// truthy applies the boolean-coercion rule shared with `if`/`while`
// conditions: zero numeric value, the empty string, or the literal
// strings "false"/"no"/"off" are false; everything else (including any
// non-empty, non-numeric string) is true.
func truthy(v *value.Value) bool {
	if n, err := v.GetInt(); err == nil {
		return n != 0
	}
	if f, err := v.GetDouble(); err == nil {
		return f != 0
	}
	switch strings.ToLower(v.String()) {
	case "false", "no", "off":
		return false
	case "true", "yes", "on":
		return true
	}
	return v.String() != ""
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func applyUnary(reg *value.Registry, sym string, operand *value.Value) (*value.Value, error) {
	switch sym {
	case "-":
		if operand.IsIntRep() {
			n, _ := operand.GetInt()
			return reg.NewInt(-n), nil
		}
		f, err := operand.GetDouble()
		if err != nil {
			return nil, err
		}
		return reg.NewDouble(-f), nil
	case "+":
		return operand, nil
	case "!":
		return reg.NewInt(boolInt(!truthy(operand))), nil
	case "~":
		n, err := operand.GetInt()
		if err != nil {
			return nil, err
		}
		return reg.NewInt(^n), nil
	}
	return nil, fmt.Errorf("expr: unknown unary operator %q", sym)
}

// isNumeric reports whether v can be read as Int or Double without
// raising an error, leaving v's internal representation as it finds it
// (a plain peek, not a shimmer) -- used by the relational/equality
// operators to decide between numeric and byte-string comparison
// without forcing a non-numeric operand into an error path.
func isNumeric(v *value.Value) bool {
	if v.IsIntRep() || v.Type == value.DoubleType {
		return true
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return false
	}
	if _, err := strconv.ParseInt(s, 0, 64); err == nil {
		return true
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	return false
}

// applyBinaryNum dispatches the numeric-preferring operators: pure
// arithmetic/bitwise/shift operators always require numeric operands;
// the relational/equality operators (<, <=, >, >=, ==, !=) instead fall
// back to byte-string comparison when either operand is non-numeric.
func applyBinaryNum(reg *value.Registry, sym string, lhs, rhs *value.Value) (*value.Value, error) {
	switch sym {
	case "<", "<=", ">", ">=", "==", "!=":
		if !isNumeric(lhs) || !isNumeric(rhs) {
			return stringCompare(reg, sym, lhs, rhs)
		}
	}

	switch sym {
	case "+", "-", "*":
		return arith(reg, sym, lhs, rhs)
	case "/":
		return divide(reg, lhs, rhs)
	case "%":
		return modulo(reg, lhs, rhs)
	case "**":
		return power(reg, lhs, rhs)
	case "&", "|", "^", "<<", ">>", "<<<", ">>>":
		return bitwise(reg, sym, lhs, rhs)
	case "<", "<=", ">", ">=", "==", "!=":
		return numericCompare(reg, sym, lhs, rhs)
	}
	return nil, fmt.Errorf("expr: unknown operator %q", sym)
}

func arith(reg *value.Registry, sym string, lhs, rhs *value.Value) (*value.Value, error) {
	if lhs.IsIntRep() && rhs.IsIntRep() {
		a, _ := lhs.GetInt()
		b, _ := rhs.GetInt()
		switch sym {
		case "+":
			return reg.NewInt(a + b), nil
		case "-":
			return reg.NewInt(a - b), nil
		case "*":
			return reg.NewInt(a * b), nil
		}
	}
	a, err := lhs.GetDouble()
	if err != nil {
		return nil, err
	}
	b, err := rhs.GetDouble()
	if err != nil {
		return nil, err
	}
	switch sym {
	case "+":
		return reg.NewDouble(a + b), nil
	case "-":
		return reg.NewDouble(a - b), nil
	case "*":
		return reg.NewDouble(a * b), nil
	}
	return nil, fmt.Errorf("expr: unreachable arith operator %q", sym)
}

func divide(reg *value.Registry, lhs, rhs *value.Value) (*value.Value, error) {
	if lhs.IsIntRep() && rhs.IsIntRep() {
		a, _ := lhs.GetInt()
		b, _ := rhs.GetInt()
		if b == 0 {
			return nil, fmt.Errorf("expr: division by zero")
		}
		// Floor division, matching Tcl's integer / semantics (rounds
		// toward negative infinity, not toward zero).
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return reg.NewInt(q), nil
	}
	a, err := lhs.GetDouble()
	if err != nil {
		return nil, err
	}
	b, err := rhs.GetDouble()
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, fmt.Errorf("expr: division by zero")
	}
	return reg.NewDouble(a / b), nil
}

func modulo(reg *value.Registry, lhs, rhs *value.Value) (*value.Value, error) {
	a, err := lhs.GetInt()
	if err != nil {
		return nil, fmt.Errorf("expr: %% requires integer operands")
	}
	b, err := rhs.GetInt()
	if err != nil {
		return nil, fmt.Errorf("expr: %% requires integer operands")
	}
	if b == 0 {
		return nil, fmt.Errorf("expr: divide by zero")
	}
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return reg.NewInt(m), nil
}

func power(reg *value.Registry, lhs, rhs *value.Value) (*value.Value, error) {
	if lhs.IsIntRep() && rhs.IsIntRep() {
		a, _ := lhs.GetInt()
		b, _ := rhs.GetInt()
		if b >= 0 {
			r := int64(1)
			for i := int64(0); i < b; i++ {
				r *= a
			}
			return reg.NewInt(r), nil
		}
	}
	a, err := lhs.GetDouble()
	if err != nil {
		return nil, err
	}
	b, err := rhs.GetDouble()
	if err != nil {
		return nil, err
	}
	return reg.NewDouble(math.Pow(a, b)), nil
}

func bitwise(reg *value.Registry, sym string, lhs, rhs *value.Value) (*value.Value, error) {
	a, err := lhs.GetInt()
	if err != nil {
		return nil, fmt.Errorf("expr: %s requires integer operands", sym)
	}
	b, err := rhs.GetInt()
	if err != nil {
		return nil, fmt.Errorf("expr: %s requires integer operands", sym)
	}
	switch sym {
	case "&":
		return reg.NewInt(a & b), nil
	case "|":
		return reg.NewInt(a | b), nil
	case "^":
		return reg.NewInt(a ^ b), nil
	case "<<", "<<<":
		return reg.NewInt(a << uint(b)), nil
	case ">>", ">>>":
		return reg.NewInt(a >> uint(b)), nil
	}
	return nil, fmt.Errorf("expr: unknown bitwise operator %q", sym)
}

func numericCompare(reg *value.Registry, sym string, lhs, rhs *value.Value) (*value.Value, error) {
	if lhs.IsIntRep() && rhs.IsIntRep() {
		a, _ := lhs.GetInt()
		b, _ := rhs.GetInt()
		return reg.NewInt(boolInt(compareOrdered(sym, cmp64(a, b)))), nil
	}
	a, err := lhs.GetDouble()
	if err != nil {
		return nil, err
	}
	b, err := rhs.GetDouble()
	if err != nil {
		return nil, err
	}
	var c int
	switch {
	case a < b:
		c = -1
	case a > b:
		c = 1
	}
	return reg.NewInt(boolInt(compareOrdered(sym, c))), nil
}

func cmp64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareOrdered(sym string, c int) bool {
	switch sym {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	case "==":
		return c == 0
	case "!=":
		return c != 0
	}
	return false
}

func stringCompare(reg *value.Registry, sym string, lhs, rhs *value.Value) (*value.Value, error) {
	c := strings.Compare(lhs.String(), rhs.String())
	return reg.NewInt(boolInt(compareOrdered(sym, c))), nil
}

// applyBinaryStr dispatches the always-string operators: eq/ne (byte
// comparison), in/ni (list membership), and the compiler-synthesized
// "concat" used to join the pieces of an interpolated quoted operand.
func applyBinaryStr(reg *value.Registry, sym string, lhs, rhs *value.Value) (*value.Value, error) {
	switch sym {
	case "eq":
		return reg.NewInt(boolInt(lhs.String() == rhs.String())), nil
	case "ne":
		return reg.NewInt(boolInt(lhs.String() != rhs.String())), nil
	case "in", "ni":
		elems, err := lexer.ParseList(rhs.String())
		if err != nil {
			return nil, err
		}
		found := false
		for _, e := range elems {
			if e == lhs.String() {
				found = true
				break
			}
		}
		if sym == "ni" {
			found = !found
		}
		return reg.NewInt(boolInt(found)), nil
	case "concat":
		return reg.NewString(lhs.String() + rhs.String()), nil
	}
	return nil, fmt.Errorf("expr: unknown string operator %q", sym)
}

// callMathFunc implements the restricted math function surface: zero
// (rand), one or two float64 arguments in, one numeric Value out. int/double/round/abs
// preserve integer exactness where the underlying math does; the
// transcendental functions always yield a Double.
func callMathFunc(reg *value.Registry, name string, args []*value.Value) (*value.Value, error) {
	arg := func(i int) (float64, error) {
		if i >= len(args) {
			return 0, fmt.Errorf("expr: too few arguments to %s", name)
		}
		return args[i].GetDouble()
	}

	switch name {
	case "int":
		f, err := arg(0)
		if err != nil {
			return nil, err
		}
		return reg.NewInt(int64(f)), nil
	case "double":
		f, err := arg(0)
		if err != nil {
			return nil, err
		}
		return reg.NewDouble(f), nil
	case "abs":
		if len(args) == 1 && args[0].IsIntRep() {
			n, _ := args[0].GetInt()
			if n < 0 {
				n = -n
			}
			return reg.NewInt(n), nil
		}
		f, err := arg(0)
		if err != nil {
			return nil, err
		}
		return reg.NewDouble(math.Abs(f)), nil
	case "round":
		f, err := arg(0)
		if err != nil {
			return nil, err
		}
		return reg.NewInt(int64(math.Round(f))), nil
	case "rand":
		return reg.NewDouble(deterministicRand()), nil
	case "srand":
		f, err := arg(0)
		if err != nil {
			return nil, err
		}
		seedRand(int64(f))
		return reg.NewDouble(deterministicRand()), nil
	}

	f, err := arg(0)
	if err != nil {
		return nil, err
	}
	switch name {
	case "sin":
		return reg.NewDouble(math.Sin(f)), nil
	case "cos":
		return reg.NewDouble(math.Cos(f)), nil
	case "tan":
		return reg.NewDouble(math.Tan(f)), nil
	case "asin":
		return reg.NewDouble(math.Asin(f)), nil
	case "acos":
		return reg.NewDouble(math.Acos(f)), nil
	case "atan":
		return reg.NewDouble(math.Atan(f)), nil
	case "sinh":
		return reg.NewDouble(math.Sinh(f)), nil
	case "cosh":
		return reg.NewDouble(math.Cosh(f)), nil
	case "tanh":
		return reg.NewDouble(math.Tanh(f)), nil
	case "ceil":
		return reg.NewDouble(math.Ceil(f)), nil
	case "floor":
		return reg.NewDouble(math.Floor(f)), nil
	case "exp":
		return reg.NewDouble(math.Exp(f)), nil
	case "log":
		return reg.NewDouble(math.Log(f)), nil
	case "log10":
		return reg.NewDouble(math.Log10(f)), nil
	case "sqrt":
		return reg.NewDouble(math.Sqrt(f)), nil
	}

	g, err := arg(1)
	if err != nil {
		return nil, fmt.Errorf("expr: unknown function %q", name)
	}
	switch name {
	case "atan2":
		return reg.NewDouble(math.Atan2(f, g)), nil
	case "pow":
		return reg.NewDouble(math.Pow(f, g)), nil
	case "hypot":
		return reg.NewDouble(math.Hypot(f, g)), nil
	case "fmod":
		return reg.NewDouble(math.Mod(f, g)), nil
	}
	return nil, fmt.Errorf("expr: unknown function %q", name)
}
