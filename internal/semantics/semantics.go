// Package semantics checks a scope-split token stream for semantic
// validity and inserts the default operands the grammar allows a
// programmer to omit. It is the fourth of the five assembler stages.
package semantics

import (
	"sort"

	"github.com/erikjastrub/ChadsemblerLite/internal/arch"
	"github.com/erikjastrub/ChadsemblerLite/internal/lexer"
	"github.com/erikjastrub/ChadsemblerLite/internal/scope"
)

// Operand is a fully-resolved addressing-mode/value token pair, after
// any default insertion has taken place.
type Operand struct {
	AddressingMode lexer.Token
	Value          lexer.Token
}

// Analyser checks every instruction in the global scope and every
// procedure scope for semantic validity.
type Analyser struct {
	global     *scope.Scope
	procedures map[string]*scope.Scope
	Errors     *lexer.ErrorList
}

// New creates an Analyser over the scopes produced by the scope stage.
func New(global *scope.Scope, procedures map[string]*scope.Scope) *Analyser {
	return &Analyser{global: global, procedures: procedures, Errors: lexer.NewErrorList(lexer.HeaderSemanticAnalyser)}
}

func countOperands(index int, tokens []lexer.Token) int {
	operands := 0
	for tokens[index].Type != lexer.END {
		switch tokens[index].Type {
		case lexer.VALUE, lexer.REGISTER, lexer.LABEL:
			operands++
		}
		index++
	}
	return operands
}

func (a *Analyser) analyseAddressingMode(operand Operand) {
	isRegisterMode := operand.AddressingMode.Text == string(arch.Register_.Sigil)

	if isRegisterMode && operand.Value.Type != lexer.REGISTER {
		a.Errors.Record(lexer.InvalidAddressingMode, operand.Value.Pos,
			"register addressing mode must pair with a register operand")
	} else if !isRegisterMode && operand.Value.Type == lexer.REGISTER {
		a.Errors.Record(lexer.InvalidAddressingMode, operand.Value.Pos,
			"a register operand must use register addressing mode")
	}
}

func (a *Analyser) analyseOperandValue(operand Operand, s *scope.Scope) {
	if operand.Value.Type == lexer.LABEL {
		_, inGlobal := a.global.SymbolTable[operand.Value.Text]
		_, inScope := s.SymbolTable[operand.Value.Text]
		if !inGlobal && !inScope {
			a.Errors.Record(lexer.UndeclaredLabel, operand.Value.Pos,
				"%q is not declared", operand.Value.Text)
		}
	} else if operand.Value.Type == lexer.REGISTER && operand.Value.Text == "0" {
		a.Errors.Record(lexer.InvalidOperand, operand.Value.Pos, "GPR 0 does not exist, GPRs are numbered from 1")
	}
}

func (a *Analyser) analyseOperand(operand Operand, s *scope.Scope) {
	a.analyseAddressingMode(operand)
	a.analyseOperandValue(operand, s)
}

// insert splices token into tokens at position i.
func insert(tokens []lexer.Token, i int, token lexer.Token) []lexer.Token {
	tokens = append(tokens, lexer.Token{})
	copy(tokens[i+1:], tokens[i:])
	tokens[i] = token
	return tokens
}

// getOperand returns the operand beginning at index, inserting a
// default addressing mode (and, for a wholly-absent operand, a
// default %ACC operand) into the scope's token stream as needed.
func (a *Analyser) getOperand(index int, s *scope.Scope) Operand {
	token := s.Tokens[index]

	switch token.Type {
	case lexer.SEPARATOR:
		return a.getOperand(index+1, s)

	case lexer.END:
		s.Tokens = insert(s.Tokens, index, lexer.Token{Type: lexer.REGISTER, Text: arch.Accumulator.Canonical, Pos: lexer.Position{Row: -1, Column: -1}})
		s.Tokens = insert(s.Tokens, index, lexer.Token{Type: lexer.ADDRESSING_MODE, Text: string(arch.Register_.Sigil), Pos: lexer.Position{Row: -1, Column: -1}})

		if index > 0 {
			switch s.Tokens[index-1].Type {
			case lexer.REGISTER, lexer.LABEL, lexer.VALUE:
				s.Tokens = insert(s.Tokens, index, lexer.Token{Type: lexer.SEPARATOR, Text: ",", Pos: lexer.Position{Row: -1, Column: -1}})
				index++
			}
		}

	case lexer.REGISTER:
		s.Tokens = insert(s.Tokens, index, lexer.Token{Type: lexer.ADDRESSING_MODE, Text: string(arch.Register_.Sigil), Pos: lexer.Position{Row: -1, Column: -1}})

	case lexer.LABEL, lexer.VALUE:
		s.Tokens = insert(s.Tokens, index, lexer.Token{Type: lexer.ADDRESSING_MODE, Text: string(arch.Direct.Sigil), Pos: lexer.Position{Row: -1, Column: -1}})
	}

	return Operand{AddressingMode: s.Tokens[index], Value: s.Tokens[index+1]}
}

func (a *Analyser) analyseInstruction(index int, s *scope.Scope) {
	token := s.Tokens[index]
	instruction := arch.InstructionSet[token.Text]
	numberOperands := countOperands(index, s.Tokens)

	if numberOperands > instruction.Arity {
		a.Errors.Record(lexer.ExcessOperands, token.Pos, "%s takes at most %d operand(s)", token.Text, instruction.Arity)
		return
	}

	if instruction.Arity > 1 && s.Tokens[index+1].Type == lexer.END {
		a.Errors.Record(lexer.MissingOperand, token.Pos, "%s requires a source operand", token.Text)
	}

	if instruction.Arity > 0 {
		source := a.getOperand(index+1, s)
		a.analyseOperand(source, s)

		if token.Text == arch.INP.Mnemonic && source.AddressingMode.Text != string(arch.Register_.Sigil) {
			a.Errors.Record(lexer.InvalidOperand, token.Pos, "INP requires a register-addressed operand")
		}

		if arch.NonImmediateModeInstructions[token.Text] && source.AddressingMode.Text == string(arch.Immediate.Sigil) {
			a.Errors.Record(lexer.InvalidAddressingMode, token.Pos, "%s cannot take an immediate-addressed source operand", token.Text)
		}
	}

	if instruction.Arity > 1 {
		destination := a.getOperand(index+3, s)
		a.analyseOperand(destination, s)

		if destination.AddressingMode.Text != string(arch.Register_.Sigil) {
			a.Errors.Record(lexer.InvalidAddressingMode, token.Pos, "%s's destination operand must be register-addressed", token.Text)
		}
	}
}

func (a *Analyser) analyseScope(s *scope.Scope) {
	for index := 0; index < len(s.Tokens); index++ {
		if s.Tokens[index].Type == lexer.INSTRUCTION {
			a.analyseInstruction(index, s)
		}
	}
}

// Run semantically analyses every scope, returning the accumulated
// diagnostics.
func (a *Analyser) Run() *lexer.ErrorList {
	a.analyseScope(a.global)

	names := make([]string, 0, len(a.procedures))
	for name := range a.procedures {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		a.analyseScope(a.procedures[name])
	}

	return a.Errors
}
