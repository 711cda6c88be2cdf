package bytecode

import (
	"fmt"
	"testing"

	"github.com/jimgo/jimgo/internal/script"
	"github.com/jimgo/jimgo/internal/value"
)

// fakeHost is a minimal Host backed by a plain map, enough to exercise
// variable reads, dict-sugar reads, and command substitution without
// pulling in internal/interp.
type fakeHost struct {
	reg  *value.Registry
	vars map[string]*value.Value
}

func newFakeHost() *fakeHost {
	reg := value.NewRegistry()
	return &fakeHost{reg: reg, vars: map[string]*value.Value{}}
}

func (h *fakeHost) Registry() *value.Registry { return h.reg }

func (h *fakeHost) ReadVariable(name string) (*value.Value, error) {
	v, ok := h.vars[name]
	if !ok {
		return nil, fmt.Errorf("no such variable %q", name)
	}
	return v, nil
}

func (h *fakeHost) ReadDictVariable(name, key string) (*value.Value, error) {
	v, ok := h.vars[name]
	if !ok {
		return nil, fmt.Errorf("no such variable %q", name)
	}
	d, err := v.AsDictRep(nil)
	if err != nil {
		return nil, err
	}
	el, ok := d.Get(h.reg.NewString(key))
	if !ok {
		return nil, fmt.Errorf("key %q not known in dictionary", key)
	}
	return el, nil
}

// EvalScript evaluates a single-command [cmd arg...] substitution using a
// tiny builtin table, just enough to exercise OpEvalCmdSub.
func (h *fakeHost) EvalScript(s *script.Script) (*value.Value, error) {
	if len(s.Tokens) == 0 {
		return h.reg.NewEmptyString(), nil
	}
	name := s.Tokens[0].Payload.String()
	switch name {
	case "error":
		msg := "error"
		if len(s.Tokens) > 1 {
			msg = s.Tokens[1].Payload.String()
		}
		return nil, fmt.Errorf("%s", msg)
	case "set":
		h.vars[s.Tokens[1].Payload.String()] = s.Tokens[2].Payload
		return s.Tokens[2].Payload, nil
	}
	if len(s.Tokens) > 1 {
		return s.Tokens[1].Payload, nil
	}
	return h.reg.NewString(name), nil
}

func evalExpr(t *testing.T, host *fakeHost, src string) *value.Value {
	t.Helper()
	bc, err := Compile(host.reg, src)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	v, err := Eval(bc, host)
	if err != nil {
		t.Fatalf("Eval(%q): %v", src, err)
	}
	return v
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1 + 2", "3"},
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"10 / 4", "2"},
		{"-10 / 4", "-3"}, // floor division
		{"10 % 3", "1"},
		{"-1 % 3", "2"},
		{"2 ** 10", "1024"},
		{"2 ** 0", "1"},
		{"1.5 + 1", "2.5"},
		{"-(3)", "-3"},
		{"~0", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			host := newFakeHost()
			v := evalExpr(t, host, tt.expr)
			if got := v.String(); got != tt.want {
				t.Errorf("expr %q = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

func TestComparisonAndLogic(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1 == 1", "1"},
		{"1 == 2", "0"},
		{"2 > 1", "1"},
		{"\"abc\" eq \"abc\"", "1"},
		{"\"abc\" ne \"abd\"", "1"},
		{"1 && 1", "1"},
		{"0 && 1", "0"},
		{"0 || 1", "1"},
		{"1 ? 2 : 3", "2"},
		{"0 ? 2 : 3", "3"},
		{"!0", "1"},
		{"!5", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			host := newFakeHost()
			v := evalExpr(t, host, tt.expr)
			if got := v.String(); got != tt.want {
				t.Errorf("expr %q = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

// TestShortCircuitSkipsRightOperand verifies that a falsy `&&` left
// operand never evaluates a right side that would raise an error,
// while a truthy one does.
func TestShortCircuitSkipsRightOperand(t *testing.T) {
	host := newFakeHost()
	v := evalExpr(t, host, `0 && [error boom]`)
	if v.String() != "0" {
		t.Fatalf("expected short-circuited 0, got %q", v.String())
	}

	bc, err := Compile(host.reg, `1 && [error boom]`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := Eval(bc, host); err == nil {
		t.Fatalf("expected right operand to evaluate and raise an error")
	}
}

func TestVariableAndDictSugar(t *testing.T) {
	host := newFakeHost()
	host.vars["x"] = host.reg.NewInt(7)
	v := evalExpr(t, host, "$x * 2")
	if v.String() != "14" {
		t.Fatalf("$x * 2 = %q, want 14", v.String())
	}

	d := host.reg.NewDict()
	rep, err := d.AsDictRep(nil)
	if err != nil {
		t.Fatalf("AsDictRep: %v", err)
	}
	rep.Set(host.reg.NewString("k"), host.reg.NewInt(5))
	host.vars["d"] = d
	v2 := evalExpr(t, host, "$d(k) + 1")
	if v2.String() != "6" {
		t.Fatalf("$d(k) + 1 = %q, want 6", v2.String())
	}
}

func TestFunctionCall(t *testing.T) {
	host := newFakeHost()
	v := evalExpr(t, host, "abs(-5)")
	if v.String() != "5" {
		t.Fatalf("abs(-5) = %q, want 5", v.String())
	}
	v2 := evalExpr(t, host, "int(3.9)")
	if v2.String() != "3" {
		t.Fatalf("int(3.9) = %q, want 3", v2.String())
	}
}

func TestStringConcatOperand(t *testing.T) {
	host := newFakeHost()
	host.vars["name"] = host.reg.NewString("world")
	v := evalExpr(t, host, `"hello $name"`)
	if v.String() != "hello world" {
		t.Fatalf(`"hello $name" = %q, want "hello world"`, v.String())
	}
}
