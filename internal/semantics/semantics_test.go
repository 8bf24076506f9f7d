package semantics

import (
	"testing"

	"github.com/erikjastrub/ChadsemblerLite/internal/lexer"
	"github.com/erikjastrub/ChadsemblerLite/internal/scope"
)

func lt(typ lexer.TokenType, text string) lexer.Token {
	return lexer.Token{Type: typ, Text: text, Pos: lexer.Position{Row: 1, Column: 1}}
}

func newScope(tokens []lexer.Token) *scope.Scope {
	return &scope.Scope{Tokens: tokens, SymbolTable: make(map[string]*scope.Symbol)}
}

func TestFullyExplicitInstructionHasNoErrors(t *testing.T) {
	s := newScope([]lexer.Token{
		lt(lexer.INSTRUCTION, "ADD"),
		lt(lexer.ADDRESSING_MODE, "%"), lt(lexer.REGISTER, "1"),
		lt(lexer.SEPARATOR, ","),
		lt(lexer.ADDRESSING_MODE, "%"), lt(lexer.REGISTER, "2"),
		lt(lexer.END, "/"),
	})
	global := newScope(nil)
	errs := New(global, map[string]*scope.Scope{}).analyseAndReturn(s)
	if errs.HasErrors() {
		t.Errorf("unexpected errors: %v", errs.Errors)
	}
}

func TestBareOperandGetsDefaultRegisterAddressingMode(t *testing.T) {
	s := newScope([]lexer.Token{
		lt(lexer.INSTRUCTION, "ADD"),
		lt(lexer.REGISTER, "1"),
		lt(lexer.SEPARATOR, ","),
		lt(lexer.REGISTER, "2"),
		lt(lexer.END, "/"),
	})
	global := newScope(nil)
	a := New(global, map[string]*scope.Scope{})
	a.analyseScope(s)

	if s.Tokens[1].Type != lexer.ADDRESSING_MODE || s.Tokens[1].Text != "%" {
		t.Fatalf("expected an inserted %% before the first REGISTER operand, got %+v", s.Tokens[1])
	}
}

func TestMissingOperandsDefaultToAccumulator(t *testing.T) {
	// "HLT" has 0 operands, but a 2-operand instruction with nothing after it
	// must default both operands to %ACC.
	s := newScope([]lexer.Token{
		lt(lexer.INSTRUCTION, "ADD"),
		lt(lexer.END, "/"),
	})
	global := newScope(nil)
	a := New(global, map[string]*scope.Scope{})
	a.analyseScope(s)

	// ADD with no operands at all: both source and destination default to
	// %ACC, and a SEPARATOR is synthesized between them since the source
	// default leaves a REGISTER token immediately before the destination.
	if len(s.Tokens) != 7 {
		t.Fatalf("expected ADD,%%,ACC,SEPARATOR,%%,ACC,END (7 tokens), got %d: %+v", len(s.Tokens), s.Tokens)
	}
	if s.Tokens[3].Type != lexer.SEPARATOR {
		t.Errorf("expected a synthesized SEPARATOR between the two defaulted operands, got %+v", s.Tokens[3])
	}
	if s.Tokens[4].Text != "%" || s.Tokens[5].Text != "ACC" {
		t.Errorf("destination operand should default to %%ACC, got %+v %+v", s.Tokens[4], s.Tokens[5])
	}
}

func TestExcessOperandsRecordsError(t *testing.T) {
	s := newScope([]lexer.Token{
		lt(lexer.INSTRUCTION, "HLT"),
		lt(lexer.REGISTER, "1"),
		lt(lexer.END, "/"),
	})
	global := newScope(nil)
	errs := New(global, map[string]*scope.Scope{}).analyseAndReturn(s)
	if !errs.HasErrors() || errs.Errors[0].Kind != lexer.ExcessOperands {
		t.Fatalf("expected EXCESS_OPERANDS, got %v", errs.Errors)
	}
}

func TestUndeclaredLabelRecordsError(t *testing.T) {
	s := newScope([]lexer.Token{
		lt(lexer.INSTRUCTION, "BRA"),
		lt(lexer.ADDRESSING_MODE, "@"), lt(lexer.LABEL, "NOWHERE"),
		lt(lexer.END, "/"),
	})
	global := newScope(nil)
	errs := New(global, map[string]*scope.Scope{}).analyseAndReturn(s)

	found := false
	for _, e := range errs.Errors {
		if e.Kind == lexer.UndeclaredLabel {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an UNDECLARED_LABEL error, got %v", errs.Errors)
	}
}

func TestGPRZeroIsRejected(t *testing.T) {
	s := newScope([]lexer.Token{
		lt(lexer.INSTRUCTION, "ADD"),
		lt(lexer.ADDRESSING_MODE, "%"), lt(lexer.REGISTER, "0"),
		lt(lexer.SEPARATOR, ","),
		lt(lexer.ADDRESSING_MODE, "%"), lt(lexer.REGISTER, "1"),
		lt(lexer.END, "/"),
	})
	global := newScope(nil)
	errs := New(global, map[string]*scope.Scope{}).analyseAndReturn(s)

	found := false
	for _, e := range errs.Errors {
		if e.Kind == lexer.InvalidOperand {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an error for GPR 0, got %v", errs.Errors)
	}
}

func TestNonImmediateInstructionRejectsImmediateSource(t *testing.T) {
	s := newScope([]lexer.Token{
		lt(lexer.INSTRUCTION, "STA"),
		lt(lexer.ADDRESSING_MODE, "#"), lt(lexer.VALUE, "5"),
		lt(lexer.SEPARATOR, ","),
		lt(lexer.ADDRESSING_MODE, "%"), lt(lexer.REGISTER, "1"),
		lt(lexer.END, "/"),
	})
	global := newScope(nil)
	errs := New(global, map[string]*scope.Scope{}).analyseAndReturn(s)

	found := false
	for _, e := range errs.Errors {
		if e.Kind == lexer.InvalidAddressingMode {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an error for STA with immediate source, got %v", errs.Errors)
	}
}

func TestDestinationMustBeRegisterAddressed(t *testing.T) {
	s := newScope([]lexer.Token{
		lt(lexer.INSTRUCTION, "ADD"),
		lt(lexer.ADDRESSING_MODE, "%"), lt(lexer.REGISTER, "1"),
		lt(lexer.SEPARATOR, ","),
		lt(lexer.ADDRESSING_MODE, "@"), lt(lexer.LABEL, "X"),
		lt(lexer.END, "/"),
	})
	global := newScope(nil)
	global.SymbolTable["X"] = &scope.Symbol{Value: 0, Type: scope.Variable}
	errs := New(global, map[string]*scope.Scope{}).analyseAndReturn(s)

	if !errs.HasErrors() {
		t.Fatal("expected a non-register-destination error")
	}
}

// analyseAndReturn is a test helper that runs analyseScope on a single
// scope and returns the analyser's errors.
func (a *Analyser) analyseAndReturn(s *scope.Scope) *lexer.ErrorList {
	a.analyseScope(s)
	return a.Errors
}
