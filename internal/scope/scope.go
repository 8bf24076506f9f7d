// Package scope splits a validated token stream into a global scope
// and one scope per procedure, and populates each scope's symbol
// table. It is the third of the five assembler stages.
package scope

import "github.com/erikjastrub/ChadsemblerLite/internal/lexer"

// SymbolType classifies what a declared identifier refers to.
type SymbolType int

const (
	Branch SymbolType = iota + 1
	Variable
	Procedure
)

func (t SymbolType) String() string {
	switch t {
	case Branch:
		return "BRANCH"
	case Variable:
		return "VARIABLE"
	case Procedure:
		return "PROCEDURE"
	default:
		return "UNKNOWN"
	}
}

// Symbol is a declared identifier: its resolved value (an instruction
// index, a memory address, or -1 while still unresolved) and its kind.
type Symbol struct {
	Value int
	Type  SymbolType
}

// Scope holds one lexical scope's remaining token stream (after
// variable declarations are stripped out), its symbol table, and the
// counts codegen needs to lay the scope out in memory.
type Scope struct {
	Tokens             []lexer.Token
	SymbolTable        map[string]*Symbol
	NumberInstructions int
	NumberVariables    int

	// Declarations lists label names in declaration order, so memory
	// layout stays deterministic (map iteration order is not).
	Declarations []string
}

func newScope(tokens []lexer.Token) *Scope {
	return &Scope{Tokens: tokens, SymbolTable: make(map[string]*Symbol)}
}

// Splitter performs the scope-splitting and symbol-table-population
// pass over a token stream.
type Splitter struct {
	tokens []lexer.Token
	index  int
	length int
	order  []string
	Errors *lexer.ErrorList
}

// New creates a Splitter over tokens.
func New(tokens []lexer.Token) *Splitter {
	return &Splitter{tokens: tokens, length: len(tokens), Errors: lexer.NewErrorList(lexer.HeaderInstructionPools)}
}

// getScope accumulates tokens up to (and consuming) the closing
// RIGHT_BRACE of a procedure body.
func (s *Splitter) getScope() []lexer.Token {
	var tokens []lexer.Token
	token := s.tokens[s.index]

	for token.Type != lexer.RIGHT_BRACE {
		tokens = append(tokens, token)
		s.index++
		token = s.tokens[s.index]
	}

	s.index++

	// A body can legally end right at the closing brace; give it the
	// same trailing END the lexer guarantees the global stream.
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.END {
		tokens = append(tokens, lexer.Token{Type: lexer.END, Text: "/", Pos: token.Pos})
	}

	return tokens
}

// getScopes walks the whole stream, routing tokens into the global
// scope except where a LEFT_BRACE opens a named procedure body.
func (s *Splitter) getScopes(global *Scope, procedures map[string]*Scope) {
	for s.index < s.length {
		token := s.tokens[s.index]

		if token.Type == lexer.LEFT_BRACE {
			n := len(global.Tokens)
			procedureToken := global.Tokens[n-1]
			global.Tokens = global.Tokens[:n-1]

			if procedureToken.Type == lexer.END {
				n = len(global.Tokens)
				procedureToken = global.Tokens[n-1]
				global.Tokens = global.Tokens[:n-1]
			}

			s.index += 2
			body := s.getScope()
			procedures[procedureToken.Text] = newScope(body)
			s.order = append(s.order, procedureToken.Text)
		} else {
			global.Tokens = append(global.Tokens, token)
		}

		s.index++
	}
}

// updateGlobalScope registers every procedure name in the global
// scope's symbol table so calls can resolve to it.
func (s *Splitter) updateGlobalScope(global *Scope, procedures map[string]*Scope) {
	for name := range procedures {
		global.SymbolTable[name] = &Symbol{Value: -1, Type: Procedure}
	}
}

// handleSymbol records a redeclaration diagnostic for an identifier
// that collides with an already-declared symbol of a different kind.
func (s *Splitter) handleSymbol(symbol *Symbol, current, next lexer.Token) {
	switch next.Type {
	case lexer.INSTRUCTION: // attempted branch-label (re)declaration
		switch symbol.Type {
		case Procedure:
			s.Errors.Record(lexer.RedeclaredSymbol, current.Pos, "%q is already declared as a procedure, cannot redeclare as a branch", current.Text)
		case Branch:
			s.Errors.Record(lexer.RedeclaredSymbol, current.Pos, "branch %q is already declared", current.Text)
		case Variable:
			s.Errors.Record(lexer.RedeclaredSymbol, current.Pos, "%q is already declared as a variable, cannot redeclare as a branch", current.Text)
		}

	case lexer.ASSEMBLY_DIRECTIVE: // attempted variable (re)declaration
		switch symbol.Type {
		case Procedure:
			s.Errors.Record(lexer.RedeclaredSymbol, current.Pos, "%q is already declared as a procedure, cannot redeclare as a variable", current.Text)
		case Branch:
			s.Errors.Record(lexer.RedeclaredSymbol, current.Pos, "%q is already declared as a branch, cannot redeclare as a variable", current.Text)
		case Variable:
			s.Errors.Record(lexer.RedeclaredSymbol, current.Pos, "variable %q is already declared", current.Text)
		}
	}
}

// removeVariable strips the DAT-declaration tokens for a variable
// (the label, the DAT directive and its optional value) out of the
// scope's token stream, leaving the trailing END token in place.
func removeVariable(scope *Scope, index int) {
	for len(scope.Tokens) > index && scope.Tokens[index].Type != lexer.END {
		scope.Tokens = append(scope.Tokens[:index], scope.Tokens[index+1:]...)
	}
}

// handleLabel resolves one label occurrence: either a redeclaration
// diagnostic, or a fresh VARIABLE/BRANCH symbol-table entry.
func (s *Splitter) handleLabel(scope *Scope, index, statements int) {
	first := scope.Tokens[index]
	second := scope.Tokens[index+1]
	third := scope.Tokens[index+2]

	if existing, ok := scope.SymbolTable[first.Text]; ok {
		s.handleSymbol(existing, first, second)
		return
	}

	symbol := &Symbol{Value: -1, Type: Variable}

	switch second.Type {
	case lexer.ASSEMBLY_DIRECTIVE: // a variable declaration
		if third.Type == lexer.VALUE {
			symbol.Value = parseInt(third.Text)
		} else {
			symbol.Value = 0
		}
		removeVariable(scope, index)
		scope.NumberVariables++

	case lexer.INSTRUCTION: // a branch declaration
		symbol.Type = Branch
		symbol.Value = statements
	}

	scope.SymbolTable[first.Text] = symbol
	scope.Declarations = append(scope.Declarations, first.Text)
}

// updateSymbolTable scans a scope's tokens, registering every label
// it declares and counting its instructions.
func (s *Splitter) updateSymbolTable(scope *Scope) {
	statements := 0

	for index := 0; index < len(scope.Tokens); index++ {
		token := scope.Tokens[index]

		if token.Type == lexer.LABEL && index+1 < len(scope.Tokens) &&
			(scope.Tokens[index+1].Type == lexer.INSTRUCTION || scope.Tokens[index+1].Type == lexer.ASSEMBLY_DIRECTIVE) {

			s.handleLabel(scope, index, statements)
		} else if token.Type == lexer.INSTRUCTION {
			statements++
		}
	}

	scope.NumberInstructions = statements
}

// Run splits tokens into a global scope and a name-keyed map of
// procedure scopes, and populates every scope's symbol table. The
// returned order lists procedure names in source-declaration order;
// codegen lays procedures out in this order, so callers must use it
// instead of ranging over the map directly.
func (s *Splitter) Run() (global *Scope, procedures map[string]*Scope, order []string, errs *lexer.ErrorList) {
	global = newScope(nil)
	procedures = make(map[string]*Scope)

	s.getScopes(global, procedures)
	s.updateGlobalScope(global, procedures)
	s.updateSymbolTable(global)

	for _, name := range s.order {
		s.updateSymbolTable(procedures[name])
	}

	return global, procedures, s.order, s.Errors
}

func parseInt(s string) int {
	neg := false
	i := 0
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		i = 1
	}
	value := 0
	for ; i < len(s); i++ {
		value = value*10 + int(s[i]-'0')
	}
	if neg {
		return -value
	}
	return value
}
