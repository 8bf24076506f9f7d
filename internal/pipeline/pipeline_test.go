package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikjastrub/ChadsemblerLite/internal/config"
	"github.com/erikjastrub/ChadsemblerLite/internal/lexer"
)

// runProgram assembles source with default configuration and executes
// it to completion, returning everything the program wrote.
func runProgram(t *testing.T, source, input string) string {
	t.Helper()

	var out bytes.Buffer
	machine, err := Assemble(source, nil, config.DefaultConfig(), strings.NewReader(input), &out)
	require.NoError(t, err)
	require.NoError(t, machine.Run())

	return out.String()
}

func TestEchoInput(t *testing.T) {
	source := "INP %ACC\nOUT %ACC\nHLT\n"
	assert.Equal(t, "42\n", runProgram(t, source, "42\n"))
}

func TestAddTwoImmediates(t *testing.T) {
	source := `LDA #5, %ACC
LDA #3, %REG1
ADD %REG1, %ACC
OUT %ACC
HLT
`
	assert.Equal(t, "8\n", runProgram(t, source, ""))
}

func TestProcedureCallAndReturn(t *testing.T) {
	source := `CALL PRINT
HLT
PRINT {
    LDA #65, %ACC
    OUTC %ACC
    RET
}
`
	assert.Equal(t, "A", runProgram(t, source, ""))
}

func TestCountdownLoop(t *testing.T) {
	source := `LOOP LDA COUNT, %ACC
     OUT %ACC
     SUB #1, %ACC
     STA COUNT, %ACC
     BRP LOOP, %ACC
     HLT
COUNT DAT 3
`
	assert.Equal(t, "3\n2\n1\n0\n", runProgram(t, source, ""))
}

func TestImmediateDestinationIsASemanticError(t *testing.T) {
	_, err := Assemble("LDA #5, #3\nHLT\n", nil, config.DefaultConfig(), strings.NewReader(""), &bytes.Buffer{})

	require.Error(t, err)
	errs, ok := err.(*lexer.ErrorList)
	require.True(t, ok)
	assert.Equal(t, lexer.HeaderSemanticAnalyser, errs.Header)
	assert.Contains(t, err.Error(), "destination operand must be register-addressed")
}

func TestInSourceDirectivesApplyBeforeArguments(t *testing.T) {
	cfg := config.DefaultConfig()
	source := "!REGISTERS=6\nHLT\n"

	_, err := Assemble(source, []string{"!MEMORY=200", "!REGISTERS=8"}, cfg, strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Memory)
	assert.Equal(t, 8, cfg.Registers, "command-line directive wins over the in-source one")
}

func TestLexerErrorsStopThePipeline(t *testing.T) {
	_, err := Assemble("LDA #5x, %ACC\nHLT\n", nil, config.DefaultConfig(), strings.NewReader(""), &bytes.Buffer{})

	require.Error(t, err)
	errs, ok := err.(*lexer.ErrorList)
	require.True(t, ok)
	assert.Equal(t, lexer.HeaderLexer, errs.Header)
}

func TestBadInputIsARuntimeError(t *testing.T) {
	var out bytes.Buffer
	machine, err := Assemble("INP %ACC\nHLT\n", nil, config.DefaultConfig(), strings.NewReader("not-a-number\n"), &out)
	require.NoError(t, err)

	err = machine.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integer")
}
