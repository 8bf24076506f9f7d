// Package codegen lays out resolved scopes into machine code: it is
// the fifth and final assembler stage, turning a semantically valid
// token stream into the bit-string words the vm package executes.
package codegen

import (
	"github.com/erikjastrub/ChadsemblerLite/internal/arch"
	"github.com/erikjastrub/ChadsemblerLite/internal/bitstring"
	"github.com/erikjastrub/ChadsemblerLite/internal/lexer"
	"github.com/erikjastrub/ChadsemblerLite/internal/scope"
	"github.com/erikjastrub/ChadsemblerLite/internal/vm"
)

// operand pairs an addressing-mode token with its value token, the
// shape every instruction's source and destination operand takes
// once semantic analysis has finished inserting defaults.
type operand struct {
	mode  lexer.Token
	value lexer.Token
}

// defaultOperand is substituted for an instruction's missing operand
// slot (the destination of a one-operand instruction, or the source
// and destination of a zero-operand one) purely so the machine word
// still has a well-formed source/destination field to encode.
var defaultOperand = operand{
	mode:  lexer.Token{Type: lexer.ADDRESSING_MODE, Text: string(arch.Register_.Sigil)},
	value: lexer.Token{Type: lexer.VALUE, Text: "0"},
}

// Generator lays out the global scope and every procedure scope into
// a single Memory, in the order procedures were declared.
type Generator struct {
	global     *scope.Scope
	procedures map[string]*scope.Scope
	order      []string

	numberRegisters       int
	numberMemoryAddresses int
	numberGPRs            int

	machineOperationBits int
	addressingModeBits   int
	operandBits          int
	totalBits            int

	offset int
	index  int
}

// New creates a Generator. numberGPRs and numberMemoryAddresses come
// from the resolved configuration (the GENERAL-purpose register count
// and the MEMORY size); order must list procedure names in the same
// source-declaration order scope.Splitter.Run returned.
func New(global *scope.Scope, procedures map[string]*scope.Scope, order []string, numberGPRs, numberMemoryAddresses int) *Generator {
	numberRegisters := numberGPRs + arch.NumberSpecialRegisters

	machineOperationBits := bitstring.NumberBits(arch.NumberInstructions - 1)
	addressingModeBits := bitstring.NumberBits(arch.NumberModes - 1)

	var operandBits int
	if numberRegisters > numberMemoryAddresses {
		operandBits = bitstring.NumberBits(numberRegisters)
	} else {
		operandBits = bitstring.NumberBits(numberMemoryAddresses - 1)
	}
	operandBits++

	return &Generator{
		global:                global,
		procedures:            procedures,
		order:                 order,
		numberRegisters:       numberRegisters,
		numberMemoryAddresses: numberMemoryAddresses,
		numberGPRs:            numberGPRs,
		machineOperationBits:  machineOperationBits,
		addressingModeBits:    addressingModeBits,
		operandBits:           operandBits,
		totalBits:             machineOperationBits + addressingModeBits + 2*operandBits,
	}
}

// wrapBounds wraps value into [lower, upper] inclusive using
// 2s-complement-style modular wrapping, so an out-of-range GPR
// number stays a valid (if surprising) register rather than a
// semantic error.
func wrapBounds(lower, upper, value int) int {
	return lower + (value-lower)%(upper+1-lower)
}

// updateGlobalSymbols assigns every procedure its entry address: the
// first instruction/variable slot after the global scope's own code
// and data, then each procedure's own slots in turn, in order.
func (g *Generator) updateGlobalSymbols() {
	offset := g.global.NumberInstructions + g.global.NumberVariables

	for _, name := range g.order {
		s := g.procedures[name]
		g.global.SymbolTable[name].Value = offset
		offset += s.NumberInstructions + s.NumberVariables
	}
}

// resolveOperand returns the signed memory/register offset an operand
// points to: a label's symbol value, a literal value, or a register
// offset (negative, per the unified address space).
func (g *Generator) resolveOperand(op operand, s *scope.Scope) int64 {
	switch op.value.Type {
	case lexer.LABEL:
		symbol, ok := s.SymbolTable[op.value.Text]
		if !ok {
			symbol = g.global.SymbolTable[op.value.Text]
		}
		return int64(symbol.Value)

	case lexer.VALUE:
		return int64(parseInt(op.value.Text))

	case lexer.REGISTER:
		if spr, ok := arch.SpecialRegister(op.value.Text); ok {
			return int64(-(g.numberGPRs + spr.Offset))
		}
		gpr := wrapBounds(1, g.numberGPRs, parseInt(op.value.Text))
		return int64(-gpr)

	default:
		return 0
	}
}

// generateMachineOperation encodes one instruction as a single bit
// string: opcode, addressing mode, then the signed source and
// destination operand offsets.
func (g *Generator) generateMachineOperation(instruction arch.Instruction, source, destination operand, s *scope.Scope) bitstring.Bits {
	mode, _ := arch.AddressingModeBySigil(source.mode.Text[0])

	var bits bitstring.Bits
	bits = append(bits, bitstring.Unsigned(int64(instruction.Opcode), g.machineOperationBits)...)
	bits = append(bits, bitstring.Unsigned(int64(mode.Opcode), g.addressingModeBits)...)
	bits = append(bits, bitstring.Signed(g.resolveOperand(source, s), g.operandBits)...)
	bits = append(bits, bitstring.Signed(g.resolveOperand(destination, s), g.operandBits)...)
	return bits
}

// updateLocalSymbols resolves a scope's branch and variable symbols
// to their final memory-relative addresses, and writes every
// variable's initial value into memory ahead of code generation.
func (g *Generator) updateLocalSymbols(s *scope.Scope, mem *vm.Memory) {
	g.offset += s.NumberInstructions

	for _, name := range s.Declarations {
		symbol := s.SymbolTable[name]
		switch symbol.Type {
		case scope.Branch:
			symbol.Value += g.index

		case scope.Variable:
			_ = mem.InsertValue(g.offset, int64(symbol.Value))
			symbol.Value = g.offset
			g.offset++
		}
	}
}

// generateCode lays out one scope's instructions into memory starting
// at the generator's current index, then advances past its data.
func (g *Generator) generateCode(s *scope.Scope, mem *vm.Memory) {
	g.updateLocalSymbols(s, mem)

	for index := 0; index < len(s.Tokens); index++ {
		token := s.Tokens[index]
		if token.Type != lexer.INSTRUCTION {
			continue
		}

		instruction := arch.InstructionSet[token.Text]

		source := defaultOperand
		if instruction.Arity > 0 {
			source = operand{mode: s.Tokens[index+1], value: s.Tokens[index+2]}
		}

		destination := defaultOperand
		if instruction.Arity > 1 {
			destination = operand{mode: s.Tokens[index+4], value: s.Tokens[index+5]}
		}

		_ = mem.InsertBits(g.index, g.generateMachineOperation(instruction, source, destination, s))
		g.index++
	}

	g.index = g.offset
}

// Run lays out every scope into a freshly allocated Memory and
// returns it along with the field widths the VM needs to decode it.
func (g *Generator) Run() (mem *vm.Memory, machineOperationBits, addressingModeBits, operandBits int) {
	g.updateGlobalSymbols()

	mem = vm.NewMemory(g.numberRegisters, g.totalBits, g.operandBits)

	g.generateCode(g.global, mem)
	for _, name := range g.order {
		g.generateCode(g.procedures[name], mem)
	}

	return mem, g.machineOperationBits, g.addressingModeBits, g.operandBits
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
