package bytecode

import (
	"fmt"
	"strings"

	"github.com/jimgo/jimgo/internal/lexer"
)

// tokenizeExpr scans an expression string into lexer.Tokens, reusing
// lexer.Lexer's cursor and its ParseVariable/ParseCommandSub substitution
// scanners (the same machinery quoted-word parsing drives for script
// text) while implementing number/operator/paren/comma scanning of its
// own -- the two surface grammars share substitution syntax but diverge
// on literal-word rules, so a single combined scanner would need
// constant mode-switches rather than two callers of the same
// substitution code.
func tokenizeExpr(src string) ([]lexer.Token, error) {
	l := lexer.New(src)
	var toks []lexer.Token

	for {
		skipExprSpace(l)
		if l.Eof() {
			toks = append(toks, lexer.Token{Kind: lexer.KindEOF, Line: l.Line()})
			return toks, nil
		}
		ch := l.Peek()
		line := l.Line()

		switch {
		case ch == '(':
			l.Advance()
			toks = append(toks, lexer.Token{Kind: lexer.KindSubOpen, Text: "(", Line: line})
		case ch == ')':
			l.Advance()
			toks = append(toks, lexer.Token{Kind: lexer.KindSubClose, Text: ")", Line: line})
		case ch == ',':
			l.Advance()
			toks = append(toks, lexer.Token{Kind: lexer.KindOperator, Text: ",", Line: line})
		case ch == '$':
			tok, err := l.ParseVariable()
			if err != nil {
				return nil, err
			}
			if tok == nil {
				l.Advance()
				toks = append(toks, lexer.Token{Kind: lexer.KindLiteral, Text: "$", Line: line})
				continue
			}
			toks = append(toks, *tok)
		case ch == '[':
			tok, err := l.ParseCommandSub()
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
		case ch == '"':
			sub, err := scanExprString(l)
			if err != nil {
				return nil, err
			}
			toks = append(toks, sub...)
		case ch == '{':
			tok, err := scanExprBraces(l)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
		case isDigit(ch):
			tok, err := scanExprNumber(l)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
		case isIdentStart(ch):
			toks = append(toks, scanExprIdent(l))
		case isOperatorChar(ch):
			toks = append(toks, scanExprOperator(l))
		default:
			return nil, fmt.Errorf("expr: unexpected character %q at line %d", ch, line)
		}
	}
}

func skipExprSpace(l *lexer.Lexer) {
	for !l.Eof() {
		switch l.Peek() {
		case ' ', '\t', '\n', '\r':
			l.Advance()
		default:
			return
		}
	}
}

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(ch rune) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentChar(ch rune) bool {
	return isIdentStart(ch) || isDigit(ch)
}

// isOperatorChar reports whether ch can begin an expression operator
// token; every multi-char operator (==, <=, &&, <<<,...) starts with
// one of these.
func isOperatorChar(ch rune) bool {
	switch ch {
	case '+', '-', '*', '/', '%', '<', '>', '=', '!', '&', '|', '^', '~', '?', ':':
		return true
	}
	return false
}

// exprOperators lists multi-character operator spellings, each longer
// spelling ahead of any shorter one it starts with (<<< before <<), so
// scanExprOperator can greedily match.
var exprOperators = []string{
	"**", "==", "!=", "<=", ">=", "&&", "||", "<<<", ">>>", "<<", ">>",
}

func scanExprOperator(l *lexer.Lexer) lexer.Token {
	line := l.Line()
	for _, op := range exprOperators {
		if matchesAt(l, op) {
			for range op {
				l.Advance()
			}
			return lexer.Token{Kind: lexer.KindOperator, Text: op, Line: line}
		}
	}
	ch := l.Advance()
	return lexer.Token{Kind: lexer.KindOperator, Text: string(ch), Line: line}
}

func matchesAt(l *lexer.Lexer, s string) bool {
	for i, want := range s {
		if l.At(i) != want {
			return false
		}
	}
	return true
}

func scanExprIdent(l *lexer.Lexer) lexer.Token {
	line := l.Line()
	var b strings.Builder
	for !l.Eof() && isIdentChar(l.Peek()) {
		b.WriteRune(l.Advance())
	}
	word := b.String()
	switch word {
	case "in", "ni", "eq", "ne":
		return lexer.Token{Kind: lexer.KindOperator, Text: word, Line: line}
	}
	// Any other bare identifier is either a math function name (only
	// valid immediately before '(') or, bare, a plain string constant
	// -- the tokenizer just hands the word over as a literal.
	return lexer.Token{Kind: lexer.KindLiteral, Text: word, Line: line}
}

func scanExprNumber(l *lexer.Lexer) (lexer.Token, error) {
	line := l.Line()
	var b strings.Builder

	if l.Peek() == '0' && (l.At(1) == 'x' || l.At(1) == 'X') {
		b.WriteRune(l.Advance())
		b.WriteRune(l.Advance())
		for !l.Eof() && isHexDigitRune(l.Peek()) {
			b.WriteRune(l.Advance())
		}
		return lexer.Token{Kind: lexer.KindExprInt, Text: b.String(), Line: line}, nil
	}

	isDouble := false
	for !l.Eof() && isDigit(l.Peek()) {
		b.WriteRune(l.Advance())
	}
	if !l.Eof() && l.Peek() == '.' && isDigit(l.At(1)) {
		isDouble = true
		b.WriteRune(l.Advance())
		for !l.Eof() && isDigit(l.Peek()) {
			b.WriteRune(l.Advance())
		}
	}
	if !l.Eof() && (l.Peek() == 'e' || l.Peek() == 'E') {
		off := 1
		if l.At(off) == '+' || l.At(off) == '-' {
			off++
		}
		if isDigit(l.At(off)) {
			isDouble = true
			for i := 0; i < off; i++ {
				b.WriteRune(l.Advance())
			}
			for !l.Eof() && isDigit(l.Peek()) {
				b.WriteRune(l.Advance())
			}
		}
	}
	kind := lexer.KindExprInt
	if isDouble {
		kind = lexer.KindExprDouble
	}
	return lexer.Token{Kind: kind, Text: b.String(), Line: line}, nil
}

func isHexDigitRune(ch rune) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// scanExprString scans a double-quoted expression operand, which may
// itself carry $var/[cmd] substitutions; DecodeEscapes handles the
// backslash escapes exactly as script-word parsing does. The first
// token is always a KindEscString (empty when the operand starts with a
// substitution), so the compiler folds every piece into one operand.
func scanExprString(l *lexer.Lexer) ([]lexer.Token, error) {
	startLine := l.Line()
	l.Advance() // opening quote
	var toks []lexer.Token
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			toks = append(toks, lexer.Token{Kind: lexer.KindEscString, Text: lexer.DecodeEscapes(lit.String()), Line: startLine})
			lit.Reset()
		}
	}
	for {
		if l.Eof() {
			return nil, fmt.Errorf("expr: unterminated quoted string starting at line %d", startLine)
		}
		ch := l.Peek()
		if ch == '"' {
			l.Advance()
			flush()
			if len(toks) == 0 || toks[0].Kind != lexer.KindEscString {
				toks = append([]lexer.Token{{Kind: lexer.KindEscString, Text: "", Line: startLine}}, toks...)
			}
			return toks, nil
		}
		if ch == '\\' {
			lit.WriteRune(l.Advance())
			if !l.Eof() {
				lit.WriteRune(l.Advance())
			}
			continue
		}
		if ch == '$' {
			flush()
			tok, err := l.ParseVariable()
			if err != nil {
				return nil, err
			}
			if tok == nil {
				lit.WriteRune(l.Advance())
				continue
			}
			toks = append(toks, *tok)
			continue
		}
		if ch == '[' {
			flush()
			tok, err := l.ParseCommandSub()
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			continue
		}
		lit.WriteRune(l.Advance())
	}
}

// scanExprBraces scans a brace-quoted literal operand: the payload
// between balanced braces, taken verbatim with no substitution.
func scanExprBraces(l *lexer.Lexer) (lexer.Token, error) {
	line := l.Line()
	l.Advance() // opening brace
	depth := 1
	var b strings.Builder
	for {
		if l.Eof() {
			return lexer.Token{}, fmt.Errorf("expr: unterminated brace-quoted string starting at line %d", line)
		}
		ch := l.Advance()
		if ch == '\\' && !l.Eof() {
			b.WriteRune(ch)
			b.WriteRune(l.Advance())
			continue
		}
		if ch == '{' {
			depth++
		} else if ch == '}' {
			depth--
			if depth == 0 {
				return lexer.Token{Kind: lexer.KindLiteral, Text: b.String(), Line: line}, nil
			}
		}
		b.WriteRune(ch)
	}
}
