package config

import (
	"strings"

	"github.com/erikjastrub/ChadsemblerLite/internal/lexer"
)

// Directive syntax shared by the command line and in-source forms.
const (
	DirectivePrefix = '!'
	CommentPrefix   = ';'
	Delimiter       = '='
)

const spacingChars = " \t\v"
const lineBreakChars = "\n\r\f"
const whitespaceChars = spacingChars + lineBreakChars
const valueSigns = "+-"

func isLineBreak(ch byte) bool  { return strings.ContainsRune(lineBreakChars, rune(ch)) }
func isWhitespace(ch byte) bool { return strings.ContainsRune(whitespaceChars, rune(ch)) }
func isDelimiting(ch byte) bool { return isWhitespace(ch) || ch == Delimiter }

// untypedToken is a raw directive component: a key or a value, not
// yet validated, with the position it started at.
type untypedToken struct {
	value string
	pos   lexer.Position
}

// directiveParser validates one `KEY=VALUE` directive at a time and
// updates the configuration when the directive is well formed. Both
// the ArgumentProcessor and the Preprocessor drive it, so a directive
// behaves identically whether it arrived on the command line or in
// the source file.
type directiveParser struct {
	cfg    *Config
	errors *lexer.ErrorList
}

// tokenise splits a directive into its components, splitting on
// whitespace and the key/value delimiter. pos is the position of the
// directive's first character in its original context.
func (p *directiveParser) tokenise(directive string, pos lexer.Position) []untypedToken {
	var tokens []untypedToken
	index, column := 0, pos.Column

	if directive != "" && directive[0] == DirectivePrefix {
		index++
		column++
	}

	for index < len(directive) {
		if isDelimiting(directive[index]) {
			index++
			column++
			continue
		}

		lower := index
		for index < len(directive) && !isDelimiting(directive[index]) {
			index++
			column++
		}

		tokens = append(tokens, untypedToken{
			value: strings.ToUpper(directive[lower:index]),
			pos:   lexer.Position{Row: pos.Row, Column: column - (index - lower)},
		})
	}

	return tokens
}

func (p *directiveParser) validNumberTokens(tokens []untypedToken) bool {
	if len(tokens) == 2 {
		return true
	}
	if len(tokens) > 0 {
		p.errors.Record(lexer.ConfigError, tokens[0].pos, "should contain a single key : value pair")
	}
	return false
}

func (p *directiveParser) validOption(option untypedToken) bool {
	if _, ok := Minimum(option.value); ok {
		return true
	}
	p.errors.Record(lexer.ConfigError, option.pos, "unknown configuration option")
	return false
}

func (p *directiveParser) containsNoSign(value untypedToken) bool {
	if !strings.ContainsRune(valueSigns, rune(value.value[0])) {
		return true
	}
	p.errors.Record(lexer.ConfigError, value.pos, "don't specify the sign of a configuration value")
	return false
}

func (p *directiveParser) validValue(value untypedToken) bool {
	for i := 0; i < len(value.value); i++ {
		if value.value[i] < '0' || value.value[i] > '9' {
			p.errors.Record(lexer.ConfigError, value.pos, "configuration value must contain digits only")
			return false
		}
	}
	return true
}

func (p *directiveParser) update(option, value untypedToken) bool {
	parsed := 0
	for i := 0; i < len(value.value); i++ {
		parsed = parsed*10 + int(value.value[i]-'0')
	}

	minimum, _ := Minimum(option.value)
	if parsed < minimum {
		p.errors.Record(lexer.ConfigError, value.pos, "value is below its minimum")
		return false
	}

	p.cfg.Set(option.value, parsed)
	return true
}

// parse applies every validation check to one directive, updating the
// configuration only when all of them pass.
func (p *directiveParser) parse(directive string, pos lexer.Position) {
	tokens := p.tokenise(directive, pos)

	if !p.validNumberTokens(tokens) {
		return
	}

	option, value := tokens[0], tokens[1]
	if p.validOption(option) && p.containsNoSign(value) && p.validValue(value) {
		p.update(option, value)
	}
}

// ArgumentProcessor validates the trailing command-line arguments,
// each a `!KEY=VALUE` directive, against a configuration. Errors are
// accumulated per argument (row = argument index) and reported in one
// go after the full pass.
type ArgumentProcessor struct {
	directives []string
	parser     directiveParser
	Errors     *lexer.ErrorList
}

// NewArgumentProcessor creates a processor over the given arguments
// that writes into cfg.
func NewArgumentProcessor(arguments []string, cfg *Config) *ArgumentProcessor {
	errs := lexer.NewErrorList(lexer.HeaderArgumentProcessor)
	return &ArgumentProcessor{
		directives: arguments,
		parser:     directiveParser{cfg: cfg, errors: errs},
		Errors:     errs,
	}
}

// Run parses every argument and returns the accumulated error list.
func (a *ArgumentProcessor) Run() *lexer.ErrorList {
	pos := lexer.Position{Row: 1, Column: 1}

	for _, directive := range a.directives {
		a.parser.parse(directive, pos)
		pos.Row++
		pos.Column = 1
	}

	return a.Errors
}

// Preprocessor walks a source file once, collecting every `!KEY=VALUE`
// directive without modifying the source, and applies them to a
// configuration. The lexer later skips the same directive lines, so
// the two passes stay in agreement about what is a directive.
type Preprocessor struct {
	source string
	parser directiveParser
	Errors *lexer.ErrorList
}

// NewPreprocessor creates a preprocessor over source that writes
// into cfg.
func NewPreprocessor(source string, cfg *Config) *Preprocessor {
	errs := lexer.NewErrorList(lexer.HeaderPreprocessor)
	return &Preprocessor{
		source: source,
		parser: directiveParser{cfg: cfg, errors: errs},
		Errors: errs,
	}
}

// Run scans the source for directives, parses each at its recorded
// position, and returns the accumulated error list.
func (p *Preprocessor) Run() *lexer.ErrorList {
	pos := lexer.Position{Row: 1, Column: 1}
	index, length := 0, len(p.source)

	var directives []string
	var positions []lexer.Position

	for index < length {
		switch p.source[index] {
		case CommentPrefix:
			for index < length && !isLineBreak(p.source[index]) {
				index++
				pos.Column++
			}
			continue

		case byte(DirectivePrefix):
			positions = append(positions, pos)
			lower := index
			index++
			pos.Column++
			for index < length && !isLineBreak(p.source[index]) &&
				p.source[index] != byte(DirectivePrefix) && p.source[index] != CommentPrefix {
				index++
				pos.Column++
			}
			directives = append(directives, p.source[lower:index])
			continue
		}

		if isLineBreak(p.source[index]) {
			pos.Row++
			pos.Column = 1
		} else {
			pos.Column++
		}
		index++
	}

	for i, directive := range directives {
		p.parser.parse(directive, positions[i])
	}

	return p.Errors
}
