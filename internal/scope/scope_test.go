package scope

import (
	"testing"

	"github.com/erikjastrub/ChadsemblerLite/internal/lexer"
)

func lt(typ lexer.TokenType, text string) lexer.Token {
	return lexer.Token{Type: typ, Text: text, Pos: lexer.Position{Row: 1, Column: 1}}
}

// MAIN { HLT / } NUM DAT 5 / COUNT DAT / LOOP HLT /
func TestSplitsGlobalAndProcedureScopes(t *testing.T) {
	tokens := []lexer.Token{
		lt(lexer.LABEL, "MAIN"), lt(lexer.LEFT_BRACE, "{"),
		lt(lexer.INSTRUCTION, "HLT"), lt(lexer.END, "/"),
		lt(lexer.RIGHT_BRACE, "}"), lt(lexer.END, "/"),
		lt(lexer.LABEL, "NUM"), lt(lexer.ASSEMBLY_DIRECTIVE, "DAT"), lt(lexer.VALUE, "5"), lt(lexer.END, "/"),
		lt(lexer.LABEL, "LOOP"), lt(lexer.INSTRUCTION, "HLT"), lt(lexer.END, "/"),
	}

	global, procedures, order, errs := New(tokens).Run()
	if errs.HasErrors() {
		t.Fatalf("unexpected errors: %v", errs.Errors)
	}

	if _, ok := procedures["MAIN"]; !ok {
		t.Fatal("expected a MAIN procedure scope")
	}
	if len(order) != 1 || order[0] != "MAIN" {
		t.Errorf("order = %v, want [MAIN]", order)
	}
	if sym, ok := global.SymbolTable["MAIN"]; !ok || sym.Type != Procedure {
		t.Errorf("MAIN should be a PROCEDURE symbol in the global scope, got %+v, ok=%v", sym, ok)
	}

	num, ok := global.SymbolTable["NUM"]
	if !ok || num.Type != Variable || num.Value != 5 {
		t.Errorf("NUM = %+v, ok=%v, want VARIABLE(5)", num, ok)
	}

	loop, ok := global.SymbolTable["LOOP"]
	if !ok || loop.Type != Branch {
		t.Errorf("LOOP = %+v, ok=%v, want BRANCH", loop, ok)
	}

	for _, tok := range global.Tokens {
		if tok.Text == "NUM" {
			t.Error("variable declaration tokens should be stripped from the token stream")
		}
	}
}

func TestVariableWithNoValueDefaultsToZero(t *testing.T) {
	tokens := []lexer.Token{
		lt(lexer.LABEL, "X"), lt(lexer.ASSEMBLY_DIRECTIVE, "DAT"), lt(lexer.END, "/"),
	}
	global, _, _, errs := New(tokens).Run()
	if errs.HasErrors() {
		t.Fatalf("unexpected errors: %v", errs.Errors)
	}
	sym := global.SymbolTable["X"]
	if sym.Type != Variable || sym.Value != 0 {
		t.Errorf("X = %+v, want VARIABLE(0)", sym)
	}
}

func TestRedeclaredBranchRecordsError(t *testing.T) {
	tokens := []lexer.Token{
		lt(lexer.LABEL, "LOOP"), lt(lexer.INSTRUCTION, "HLT"), lt(lexer.END, "/"),
		lt(lexer.LABEL, "LOOP"), lt(lexer.INSTRUCTION, "HLT"), lt(lexer.END, "/"),
	}
	_, _, _, errs := New(tokens).Run()
	if !errs.HasErrors() {
		t.Fatal("expected a redeclaration error for a duplicate branch label")
	}
	if errs.Errors[0].Kind != lexer.RedeclaredSymbol {
		t.Errorf("kind = %s, want REDECLARED_SYMBOL", errs.Errors[0].Kind)
	}
}

func TestInstructionCountExcludesVariableDeclarations(t *testing.T) {
	tokens := []lexer.Token{
		lt(lexer.LABEL, "X"), lt(lexer.ASSEMBLY_DIRECTIVE, "DAT"), lt(lexer.VALUE, "1"), lt(lexer.END, "/"),
		lt(lexer.INSTRUCTION, "HLT"), lt(lexer.END, "/"),
		lt(lexer.INSTRUCTION, "NOP"), lt(lexer.END, "/"),
	}
	global, _, _, errs := New(tokens).Run()
	if errs.HasErrors() {
		t.Fatalf("unexpected errors: %v", errs.Errors)
	}
	if global.NumberInstructions != 2 {
		t.Errorf("NumberInstructions = %d, want 2", global.NumberInstructions)
	}
	if global.NumberVariables != 1 {
		t.Errorf("NumberVariables = %d, want 1", global.NumberVariables)
	}
}
