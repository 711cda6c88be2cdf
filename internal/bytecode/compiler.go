package bytecode

import (
	"fmt"
	"strconv"

	"github.com/jimgo/jimgo/internal/lexer"
	"github.com/jimgo/jimgo/internal/script"
	"github.com/jimgo/jimgo/internal/value"
)

// Compile tokenizes and compiles an expression string into Bytecode. It
// is the expr-side analogue of script.Compile: a two-phase pipeline
// (tokenize, then a precedence-climbing pass that realizes the
// shunting-yard algorithm) ending in a flat instruction vector whose
// push/pop balance is exactly 1 (one net result on the VM's stack).
func Compile(reg *value.Registry, source string) (*Bytecode, error) {
	toks, err := tokenizeExpr(source)
	if err != nil {
		return nil, err
	}
	p := &parser{reg: reg, toks: toks, source: source}
	code, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.tok().Kind != lexer.KindEOF {
		return nil, fmt.Errorf("expr: trailing garbage %q in %q", p.tok().Text, source)
	}
	return &Bytecode{Instructions: code, Source: source}, nil
}

// AsBytecode shimmers v into compiled expression Bytecode, compiling
// from its string side if it is not already one (the expr-side sibling
// of script.AsScript).
func AsBytecode(reg *value.Registry, v *value.Value) (*Bytecode, error) {
	if bc, ok := v.Internal.(*Bytecode); ok && v.Type == ExprType {
		return bc, nil
	}
	bc, err := Compile(reg, v.String())
	if err != nil {
		return nil, err
	}
	v.SetType(ExprType, bc)
	return bc, nil
}

type parser struct {
	reg    *value.Registry
	toks   []lexer.Token
	pos    int
	source string
}

func (p *parser) tok() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Kind: lexer.KindEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) advance() lexer.Token {
	t := p.tok()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) isOp(texts ...string) bool {
	t := p.tok()
	if t.Kind != lexer.KindOperator {
		return false
	}
	for _, want := range texts {
		if t.Text == want {
			return true
		}
	}
	return false
}

// binOpLevels lists binary-operator precedence climbing levels from
// loosest to tightest binding, excluding ?: (handled by parseTernary),
// && and || (handled by parseAnd/parseOr for their short-circuit jump
// compilation), and ** (right-associative, handled by parsePower).
var binOpLevels = [][]string{
	{"|", "^", "&"},
	{"in", "ni"},
	{"eq", "ne"},
	{"==", "!="},
	{"<", "<=", ">", ">="},
	{"<<", ">>", "<<<", ">>>"},
	{"+", "-"},
	{"*", "/", "%"},
}

// stringOps are the operators that always compile to OpBinaryStr
// (string-domain dispatch with no numeric fast path); the rest compile
// to OpBinaryNum, whose runtime dispatch still falls back to byte
// comparison for the relational/equality operators when either operand
// is non-numeric.
var stringOps = map[string]bool{"eq": true, "ne": true, "in": true, "ni": true}

// parseTernary compiles `cond ? then : else`, right-associative, as a
// pair of forward jumps: OpTernaryLeft skips over the "then" arm when
// the condition is falsy; OpColonLeft, reached only from a taken
// "then" arm, skips over the "else" arm in turn.
func (p *parser) parseTernary() ([]Instruction, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.isOp("?") {
		return cond, nil
	}
	p.advance()
	thenCode, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if !p.isOp(":") {
		return nil, fmt.Errorf("expr: expected ':' in ternary expression %q", p.source)
	}
	p.advance()
	elseCode, err := p.parseTernary()
	if err != nil {
		return nil, err
	}

	code := append([]Instruction{}, cond...)
	code = append(code, Instruction{Op: OpTernaryLeft, Skip: len(thenCode) + 1})
	code = append(code, thenCode...)
	code = append(code, Instruction{Op: OpColonLeft, Skip: len(elseCode)})
	code = append(code, elseCode...)
	code = append(code, Instruction{Op: OpColonRight})
	return code, nil
}

// parseOr compiles left-associative `||` chains. Each `||` short-circuits:
// OpOrLeft pops the already-evaluated left value and, if truthy, pushes 1
// and jumps past the right operand (never evaluating it); otherwise it
// falls through into the right operand's code, whose truthiness becomes
// the result via OpOrRight.
func (p *parser) parseOr() ([]Instruction, error) {
	code, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isOp("||") {
		p.advance()
		rhs, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		code = append(code, Instruction{Op: OpOrLeft, Skip: len(rhs) + 1})
		code = append(code, rhs...)
		code = append(code, Instruction{Op: OpOrRight})
	}
	return code, nil
}

// parseAnd compiles left-associative `&&` chains; see parseOr for the
// short-circuit jump shape (inverted sense: OpAndLeft short-circuits on
// a falsy left operand instead of a truthy one).
func (p *parser) parseAnd() ([]Instruction, error) {
	code, err := p.parseBinaryLevel(0)
	if err != nil {
		return nil, err
	}
	for p.isOp("&&") {
		p.advance()
		rhs, err := p.parseBinaryLevel(0)
		if err != nil {
			return nil, err
		}
		code = append(code, Instruction{Op: OpAndLeft, Skip: len(rhs) + 1})
		code = append(code, rhs...)
		code = append(code, Instruction{Op: OpAndRight})
	}
	return code, nil
}

// parseBinaryLevel climbs binOpLevels from level 0 (loosest) down to
// parsePower/parseUnary (tightest), left-associative at every level.
func (p *parser) parseBinaryLevel(level int) ([]Instruction, error) {
	if level >= len(binOpLevels) {
		return p.parsePower()
	}
	code, err := p.parseBinaryLevel(level + 1)
	if err != nil {
		return nil, err
	}
	for p.isOp(binOpLevels[level]...) {
		sym := p.advance().Text
		rhs, err := p.parseBinaryLevel(level + 1)
		if err != nil {
			return nil, err
		}
		code = append(code, rhs...)
		if stringOps[sym] {
			code = append(code, Instruction{Op: OpBinaryStr, Sym: sym})
		} else {
			code = append(code, Instruction{Op: OpBinaryNum, Sym: sym})
		}
	}
	return code, nil
}

// parsePower compiles right-associative `**`.
func (p *parser) parsePower() ([]Instruction, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if !p.isOp("**") {
		return lhs, nil
	}
	p.advance()
	rhs, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	code := append(lhs, rhs...)
	code = append(code, Instruction{Op: OpBinaryNum, Sym: "**"})
	return code, nil
}

// parseUnary compiles prefix -, +, !, ~.
func (p *parser) parseUnary() ([]Instruction, error) {
	if p.isOp("-", "+", "!", "~") {
		sym := p.advance().Text
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		code := append(operand, Instruction{Op: OpUnary, Sym: sym})
		return code, nil
	}
	return p.parsePrimary()
}

// mathFuncs are the bare identifiers that are valid immediately before
// '(' as math function calls: rand takes no argument; atan2, pow, hypot
// and fmod take two; the rest take one. Any other bare identifier
// compiles as a plain string constant (see parseStringOperand).
var mathFuncs = map[string]bool{
	"abs": true, "round": true, "double": true, "int": true,
	"sin": true, "cos": true, "tan": true,
	"asin": true, "acos": true, "atan": true, "atan2": true,
	"sinh": true, "cosh": true, "tanh": true,
	"ceil": true, "floor": true, "exp": true, "log": true, "log10": true,
	"sqrt": true, "pow": true, "hypot": true, "fmod": true, "srand": true, "rand": true,
}

func (p *parser) parsePrimary() ([]Instruction, error) {
	t := p.tok()
	switch t.Kind {
	case lexer.KindSubOpen:
		p.advance()
		code, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if p.tok().Kind != lexer.KindSubClose {
			return nil, fmt.Errorf("expr: expected ')' in %q", p.source)
		}
		p.advance()
		return code, nil

	case lexer.KindExprInt:
		p.advance()
		n, err := parseIntLiteral(t.Text)
		if err != nil {
			return nil, err
		}
		return []Instruction{{Op: OpPushInt, Val: p.reg.NewInt(n)}}, nil

	case lexer.KindExprDouble:
		p.advance()
		f, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			return nil, fmt.Errorf("expr: bad number %q", t.Text)
		}
		return []Instruction{{Op: OpPushDouble, Val: p.reg.NewDouble(f)}}, nil

	case lexer.KindEscString, lexer.KindLiteral:
		return p.parseStringOperand()

	case lexer.KindVariable:
		p.advance()
		return []Instruction{{Op: OpReadVar, Val: p.reg.NewString(t.Text)}}, nil

	case lexer.KindDictSugar:
		p.advance()
		name, key, err := splitDictSugarText(t.Text)
		if err != nil {
			return nil, err
		}
		payload := p.reg.NewDictSubst(p.reg.NewString(name), p.reg.NewString(key))
		return []Instruction{{Op: OpReadDictSugar, Val: payload}}, nil

	case lexer.KindCommandSub:
		p.advance()
		return p.compileCommandSub(t)
	}

	return nil, fmt.Errorf("expr: unexpected token %q in %q", t.Text, p.source)
}

// parseStringOperand handles bare identifiers (function names, or
// otherwise a plain string constant) and literal/escstring operands,
// possibly followed by further substitution tokens from the same quoted
// run (the tokenizer emits one KindEscString/KindVariable/KindCommandSub
// token per piece of an interpolated "..." operand; the compiler chains
// them with the synthetic "concat" string operator, which joins them at
// evaluation time).
func (p *parser) parseStringOperand() ([]Instruction, error) {
	t := p.tok()
	if t.Kind == lexer.KindLiteral && mathFuncs[t.Text] {
		return p.parseFuncCall()
	}
	// Otherwise a brace-quoted literal, a bare non-function word, or
	// the first piece of a quoted operand: a plain string constant,
	// possibly followed by further $var/[cmd] pieces of the same
	// quoted run.
	p.advance()
	code := []Instruction{{Op: OpPushString, Val: p.reg.NewString(t.Text)}}
	return p.foldAdjacentStringPieces(code)
}

// foldAdjacentStringPieces folds the remaining pieces of one
// double-quoted operand (KindEscString/KindVariable/KindDictSugar/
// KindCommandSub tokens the tokenizer emitted back to back with no
// intervening operator) into a chain of "concat" string operators,
// since a quoted operand with $var/[cmd] pieces evaluates to their
// concatenation, not a sequence of separate operands.
func (p *parser) foldAdjacentStringPieces(code []Instruction) ([]Instruction, error) {
	for {
		t := p.tok()
		var piece []Instruction
		switch t.Kind {
		case lexer.KindEscString:
			p.advance()
			piece = []Instruction{{Op: OpPushString, Val: p.reg.NewString(t.Text)}}
		case lexer.KindVariable:
			p.advance()
			piece = []Instruction{{Op: OpReadVar, Val: p.reg.NewString(t.Text)}}
		case lexer.KindDictSugar:
			p.advance()
			name, key, err := splitDictSugarText(t.Text)
			if err != nil {
				return nil, err
			}
			payload := p.reg.NewDictSubst(p.reg.NewString(name), p.reg.NewString(key))
			piece = []Instruction{{Op: OpReadDictSugar, Val: payload}}
		case lexer.KindCommandSub:
			p.advance()
			sub, err := p.compileCommandSub(t)
			if err != nil {
				return nil, err
			}
			piece = sub
		default:
			return code, nil
		}
		code = append(code, piece...)
		code = append(code, Instruction{Op: OpBinaryStr, Sym: "concat"})
	}
}

func (p *parser) compileCommandSub(t lexer.Token) ([]Instruction, error) {
	nested, err := script.Compile(p.reg, t.Text, p.source, t.Line)
	if err != nil {
		return nil, err
	}
	v := p.reg.NewString(t.Text)
	v.SetType(script.ScriptType, nested)
	return []Instruction{{Op: OpEvalCmdSub, Val: v}}, nil
}

func (p *parser) parseFuncCall() ([]Instruction, error) {
	name := p.advance().Text
	if p.tok().Kind != lexer.KindSubOpen {
		return nil, fmt.Errorf("expr: expected '(' after function %q", name)
	}
	p.advance()
	var code []Instruction
	argc := 0
	if p.tok().Kind != lexer.KindSubClose {
		for {
			arg, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			code = append(code, arg...)
			argc++
			if p.isOp(",") {
				p.advance()
				continue
			}
			break
		}
	}
	if p.tok().Kind != lexer.KindSubClose {
		return nil, fmt.Errorf("expr: expected ')' closing call to %q", name)
	}
	p.advance()
	code = append(code, Instruction{Op: OpCall, Sym: name, Argc: argc})
	return code, nil
}

func splitDictSugarText(text string) (name, key string, err error) {
	i := 0
	for i < len(text) && text[i] != '(' {
		i++
	}
	if i == len(text) || text[len(text)-1] != ')' {
		return "", "", fmt.Errorf("bad dict-sugar variable reference %q", text)
	}
	return text[:i], text[i+1 : len(text)-1], nil
}

func parseIntLiteral(s string) (int64, error) {
	return strconv.ParseInt(s, 0, 64)
}
