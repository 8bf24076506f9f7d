// Package syntax validates the grammar of a Chadsembly token stream:
// the second of the five assembler stages. It is a flat adjacency-table
// validator — for any token, only a fixed set of token types may
// legally follow it — plus a single-level brace-nesting check.
package syntax

import "github.com/erikjastrub/ChadsemblerLite/internal/lexer"

// adjacency maps a token type to the set of token types permitted to
// immediately follow it. Grouped by the category of the preceding
// token the way the original grammar table groups it.
var adjacency = map[lexer.TokenType][]lexer.TokenType{
	lexer.END: {
		lexer.END, lexer.INSTRUCTION, lexer.LABEL, lexer.RIGHT_BRACE, lexer.LEFT_BRACE,
	},
	lexer.INSTRUCTION: {
		lexer.END, lexer.ADDRESSING_MODE, lexer.VALUE, lexer.REGISTER, lexer.LABEL, lexer.RIGHT_BRACE,
	},
	lexer.ADDRESSING_MODE: {
		lexer.VALUE, lexer.REGISTER, lexer.LABEL,
	},
	lexer.VALUE: {
		lexer.END, lexer.SEPARATOR, lexer.RIGHT_BRACE, lexer.LEFT_BRACE,
	},
	lexer.REGISTER: {
		lexer.END, lexer.SEPARATOR, lexer.RIGHT_BRACE, lexer.LEFT_BRACE,
	},
	lexer.LABEL: {
		lexer.END, lexer.SEPARATOR, lexer.INSTRUCTION, lexer.RIGHT_BRACE, lexer.LEFT_BRACE, lexer.ASSEMBLY_DIRECTIVE,
	},
	lexer.SEPARATOR: {
		lexer.ADDRESSING_MODE, lexer.VALUE, lexer.REGISTER, lexer.LABEL,
	},
	lexer.RIGHT_BRACE: {
		lexer.END,
	},
	lexer.LEFT_BRACE: {
		lexer.END,
	},
	lexer.ASSEMBLY_DIRECTIVE: {
		lexer.END, lexer.VALUE,
	},
}

func permitted(prev lexer.TokenType, next lexer.TokenType) bool {
	for _, t := range adjacency[prev] {
		if t == next {
			return true
		}
	}
	return false
}

// Validator checks a token stream against the grammar's adjacency
// table and brace-nesting rule.
type Validator struct {
	tokens        []lexer.Token
	previousScope *lexer.Token
	Errors        *lexer.ErrorList
}

// New creates a Validator over tokens.
func New(tokens []lexer.Token) *Validator {
	return &Validator{tokens: tokens, Errors: lexer.NewErrorList(lexer.HeaderParser)}
}

// validateScope enforces one level of brace nesting: a LEFT_BRACE may
// not open while one is already open, and a RIGHT_BRACE may not close
// when none is open.
func (v *Validator) validateScope(token lexer.Token) {
	switch token.Type {
	case lexer.LEFT_BRACE:
		if v.previousScope == nil {
			v.previousScope = &token
		} else {
			v.recordAdjacent(token, token)
		}
	case lexer.RIGHT_BRACE:
		if v.previousScope == nil {
			v.recordAdjacent(token, token)
		} else {
			v.previousScope = nil
		}
	}
}

// recordAdjacent records a diagnostic for an illegal first->second
// token adjacency, matching the original parser's error-shape rules.
func (v *Validator) recordAdjacent(first, second lexer.Token) {
	switch {
	case first.Type == lexer.END:
		v.Errors.Record(lexer.UnexpectedToken, second.Pos,
			"statement cannot begin with a %s", second.Type)

	case second.Type == lexer.END:
		v.Errors.Record(lexer.UnexpectedToken, first.Pos,
			"statement cannot end with a %s", first.Type)

	case first.Type == lexer.LEFT_BRACE && second.Type == lexer.LEFT_BRACE:
		v.Errors.Record(lexer.UnclosedScope, first.Pos,
			"block scope was opened but never closed")

	case first.Type == lexer.RIGHT_BRACE && second.Type == lexer.RIGHT_BRACE:
		v.Errors.Record(lexer.UnexpectedScope, first.Pos,
			"block scope was closed but never opened")

	default:
		v.Errors.Record(lexer.UnexpectedToken, second.Pos,
			"%s was found after %s", second.Type, first.Type)
	}
}

// Validate walks the token stream, recording every adjacency and
// scope violation it finds, and returns the resulting ErrorList.
func (v *Validator) Validate() *lexer.ErrorList {
	previous := lexer.Token{Type: lexer.END, Pos: lexer.Position{Row: -1, Column: -1}}

	for _, token := range v.tokens {
		if token.Type == lexer.LEFT_BRACE || token.Type == lexer.RIGHT_BRACE {
			v.validateScope(token)
		}

		if !permitted(previous.Type, token.Type) {
			v.recordAdjacent(previous, token)
		}

		previous = token
	}

	if v.previousScope != nil {
		unclosed := lexer.Token{Type: lexer.LEFT_BRACE, Pos: lexer.Position{Row: -1, Column: -1}}
		v.recordAdjacent(unclosed, unclosed)
	}

	return v.Errors
}
