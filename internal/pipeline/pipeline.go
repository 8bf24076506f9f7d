// Package pipeline wires the assembler stages together: directives,
// lexing, syntax validation, scope splitting, semantic analysis and
// code generation, handing the finished memory image to a Machine.
package pipeline

import (
	"io"
	"time"

	"github.com/erikjastrub/ChadsemblerLite/internal/codegen"
	"github.com/erikjastrub/ChadsemblerLite/internal/config"
	"github.com/erikjastrub/ChadsemblerLite/internal/lexer"
	"github.com/erikjastrub/ChadsemblerLite/internal/scope"
	"github.com/erikjastrub/ChadsemblerLite/internal/semantics"
	"github.com/erikjastrub/ChadsemblerLite/internal/syntax"
	"github.com/erikjastrub/ChadsemblerLite/internal/vm"
)

// Assemble runs the full pipeline over source and returns a Machine
// ready to Run, reading from in and writing to out.
//
// cfg is mutated in place: in-source `!KEY=VALUE` directives are
// applied first, then the trailing command-line arguments, so the
// command line wins when both set the same key. On the first stage
// that records diagnostics, the stage's *lexer.ErrorList is returned
// as the error and no later stage runs.
func Assemble(source string, arguments []string, cfg *config.Config, in io.Reader, out io.Writer) (*vm.Machine, error) {
	if errs := config.NewPreprocessor(source, cfg).Run(); errs.HasErrors() {
		return nil, errs
	}
	if errs := config.NewArgumentProcessor(arguments, cfg).Run(); errs.HasErrors() {
		return nil, errs
	}

	lx := lexer.New(source, config.DirectivePrefix, config.CommentPrefix)
	tokens := lx.TokenizeAll()
	if lx.Errors.HasErrors() {
		return nil, lx.Errors
	}

	if errs := syntax.New(tokens).Validate(); errs.HasErrors() {
		return nil, errs
	}

	global, procedures, order, errs := scope.New(tokens).Run()
	if errs.HasErrors() {
		return nil, errs
	}

	if errs := semantics.New(global, procedures).Run(); errs.HasErrors() {
		return nil, errs
	}

	mem, machineOperationBits, addressingModeBits, operandBits :=
		codegen.New(global, procedures, order, cfg.Registers, cfg.Memory).Run()

	clock := time.Duration(cfg.Clock) * time.Millisecond
	return vm.New(mem, machineOperationBits, addressingModeBits, operandBits, cfg.Registers, clock, in, out), nil
}
