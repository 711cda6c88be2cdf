// Package script implements the engine's two-phase script compiler:
// the first pass runs the lexer to produce a raw token list; the
// second pass materializes that list into an immutable, shareable
// Script -- a flat token vector plus a "command structure" sidecar
// describing argument counts, per-argument token counts, and expansion
// flags.
package script

import (
	"fmt"

	"github.com/jimgo/jimgo/internal/lexer"
	"github.com/jimgo/jimgo/internal/value"
)

// TokKind is the compiled token kind, narrower than lexer.Kind: escape
// decoding has already happened, so KindLiteral and KindEscString
// collapse into a single Literal kind.
type TokKind int

const (
	TokLiteral TokKind = iota
	TokVariable
	TokDictSugar
	TokCommandSub
	TokSeparator
	TokEOL
)

// Tok is one compiled script token: a kind, an optional Value payload
// (nil for separators/EOLs), and the source line it started on. Payload
// Values may later be re-specialized in place to Int/Double/Variable
// caches during evaluation, so Tok holds a pointer, not a copy.
type Tok struct {
	Kind    TokKind
	Payload *value.Value
	Line    int
}

// Script is the immutable, shareable compiled form of a script. It is
// shared by reference from whichever Value(s) hold it; the evaluator
// bumps InUse across a walk so a re-compile triggered by transient
// shimmering of the source Value cannot free the Script currently
// being walked out from under it.
type Script struct {
	Tokens    []Tok
	CmdStruct []int
	Filename  string
	FirstLine int
	InUse     int
}

// ScriptType is the ObjType a Value shimmers to when it is compiled as a
// command script (registered here, not in internal/value, so value need
// not import script).
var ScriptType = &value.ObjType{
	Name: "script",
	UpdateString: func(v *value.Value) string {
		// A Script-typed Value always arrives with its string side
		// already materialized (it is compiled from existing source
		// text); nothing to regenerate here.
		return ""
	},
}

// AsScript shimmers v into a compiled Script, compiling from its string
// side if it is not already a Script (or was compiled under different
// source). filename/line seed diagnostics for a freshly compiled Value.
func AsScript(reg *value.Registry, v *value.Value, filename string, firstLine int) (*Script, error) {
	if s, ok := v.Internal.(*Script); ok && v.Type == ScriptType {
		return s, nil
	}
	s, err := Compile(reg, v.String(), filename, firstLine)
	if err != nil {
		return nil, err
	}
	v.SetType(ScriptType, s)
	return s, nil
}

// Compile runs the two-pass pipeline over source and returns the
// resulting Script.
func Compile(reg *value.Registry, source, filename string, firstLine int) (*Script, error) {
	raw, err := lexer.New(source).ParseScript()
	if err != nil {
		return nil, err
	}
	return compilePassB(reg, raw, filename, firstLine)
}

// argSlot is one raw argument's worth of sub-tokens, gathered before
// cmdStruct is emitted, so that the "expand"/"*" marker lookback can be
// applied across a whole command's arguments before committing to
// final counts.
type argSlot struct {
	toks   []Tok
	expand bool
}

func compilePassB(reg *value.Registry, raw []lexer.Token, filename string, firstLine int) (*Script, error) {
	s := &Script{Filename: filename, FirstLine: firstLine}

	var curArgs []argSlot
	var curToks []Tok

	flushArg := func() {
		if len(curToks) > 0 {
			curArgs = append(curArgs, argSlot{toks: curToks})
			curToks = nil
		}
	}
	flushCmd := func() error {
		flushArg()
		merged, expandCmd := mergeExpansionMarkers(curArgs)
		argc := len(merged)
		cmdStruct := make([]int, 0, argc+1)
		cmdStruct = append(cmdStruct, sign(argc, expandCmd))
		for _, a := range merged {
			n := len(a.toks)
			cmdStruct = append(cmdStruct, sign(n, a.expand))
			s.Tokens = append(s.Tokens, a.toks...)
		}
		s.CmdStruct = append(s.CmdStruct, cmdStruct...)
		curArgs = nil
		return nil
	}

	i := 0
	for i < len(raw) {
		rt := raw[i]
		switch rt.Kind {
		case lexer.KindSeparator:
			flushArg()
			i++
		case lexer.KindEOL:
			if err := flushCmd(); err != nil {
				return nil, err
			}
			i++
		case lexer.KindEOF:
			if len(curArgs) > 0 || len(curToks) > 0 {
				if err := flushCmd(); err != nil {
					return nil, err
				}
			}
			i++
		case lexer.KindLiteral, lexer.KindEscString:
			text := rt.Text
			if rt.Kind == lexer.KindEscString {
				text = lexer.DecodeEscapes(text)
			}
			curToks = append(curToks, Tok{Kind: TokLiteral, Payload: reg.NewString(text), Line: rt.Line})
			i++
		case lexer.KindVariable:
			curToks = append(curToks, Tok{Kind: TokVariable, Payload: reg.NewString(rt.Text), Line: rt.Line})
			i++
		case lexer.KindDictSugar:
			name, key, err := splitDictSugar(rt.Text)
			if err != nil {
				return nil, err
			}
			payload := reg.NewDictSubst(reg.NewString(name), reg.NewString(key))
			curToks = append(curToks, Tok{Kind: TokDictSugar, Payload: payload, Line: rt.Line})
			i++
		case lexer.KindCommandSub:
			nested, err := Compile(reg, rt.Text, filename, rt.Line)
			if err != nil {
				return nil, err
			}
			payload := reg.NewString(rt.Text)
			payload.SetType(ScriptType, nested)
			curToks = append(curToks, Tok{Kind: TokCommandSub, Payload: payload, Line: rt.Line})
			i++
		default:
			return nil, fmt.Errorf("script: unexpected token kind %v", rt.Kind)
		}
	}
	return s, nil
}

// splitDictSugar splits the lexer's fused "name(key)" text back into its
// two parts (the lexer keeps it fused so bracket/paren balance is
// validated in one pass).
func splitDictSugar(text string) (name, key string, err error) {
	i := 0
	for i < len(text) && text[i] != '(' {
		i++
	}
	if i == len(text) || text[len(text)-1] != ')' {
		return "", "", fmt.Errorf("bad dict-sugar variable reference %q", text)
	}
	return text[:i], text[i+1 : len(text)-1], nil
}

// mergeExpansionMarkers applies the "expand"/"*" lookback rule: a
// single-token argument whose literal text is exactly "expand" or "*"
// is consumed as a marker (it contributes no argument of its own) and
// flags the following argument for runtime list-splicing.
func mergeExpansionMarkers(args []argSlot) (merged []argSlot, anyExpand bool) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if len(a.toks) == 1 && a.toks[0].Kind == TokLiteral {
			text := a.toks[0].Payload.String()
			if (text == "expand" || text == "*") && i+1 < len(args) {
				next := args[i+1]
				next.expand = true
				merged = append(merged, next)
				anyExpand = true
				i++
				continue
			}
		}
		merged = append(merged, a)
	}
	return merged, anyExpand
}

func sign(n int, negative bool) int {
	if negative {
		return -n
	}
	return n
}
