// Package lexer implements the engine's character-level tokenizer: a
// single-pass state machine exposing script, list, and expression
// scanning over the same underlying cursor primitives.
package lexer

// Kind enumerates the token kinds the lexer can emit. Script/list
// parsing uses the first group; expression parsing additionally uses
// KindExprInt/KindExprDouble/KindSubOpen/KindSubClose/KindOperator.
type Kind int

const (
	KindLiteral    Kind = iota // brace-quoted word (or a bare word inside an expression): literal payload, no escapes
	KindEscString              // double-quoted or bare script word: may carry escapes for DecodeEscapes
	KindVariable               // $name or ${name}
	KindDictSugar              // $name(key) -- key itself may need substitution
	KindCommandSub             // [command substitution]
	KindSeparator              // whitespace between words
	KindEOL                    // command separator: newline or ';'
	KindEOF

	KindExprInt    // integer literal inside an expression
	KindExprDouble // double literal inside an expression
	KindSubOpen    // '(' in an expression
	KindSubClose   // ')' in an expression
	KindOperator   // an operator token; Text holds the operator spelling
)

// Token is one lexical unit: its Text (backslash escapes of a
// KindEscString token are not yet decoded), its Kind, and the 1-based
// source line it started on.
type Token struct {
	Kind Kind
	Text string
	Line int

	// Expand marks a KindLiteral/KindCommandSub token that is the
	// literal "expand"/"*" prefix preceding an argument that should be
	// spliced as a list into the surrounding command. No scanner in this
	// package sets it; internal/script recognizes the markers by their
	// text.
	Expand bool
}

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindEscString:
		return "escstring"
	case KindVariable:
		return "variable"
	case KindDictSugar:
		return "dictsugar"
	case KindCommandSub:
		return "commandsub"
	case KindSeparator:
		return "separator"
	case KindEOL:
		return "eol"
	case KindEOF:
		return "eof"
	case KindExprInt:
		return "exprint"
	case KindExprDouble:
		return "exprdouble"
	case KindSubOpen:
		return "subopen"
	case KindSubClose:
		return "subclose"
	case KindOperator:
		return "operator"
	default:
		return "unknown"
	}
}
