// Package arch holds the static Chadsembly architecture tables: the
// instruction set, the special-purpose registers, and the addressing
// modes. None of it depends on runtime configuration.
package arch

import "strings"

// Instruction describes one entry of the 27-opcode instruction set.
type Instruction struct {
	Mnemonic string
	Opcode   int
	Arity    int // 0, 1 or 2 operands
}

// The full Chadsembly instruction set, opcode order is significant:
// it is both the encoded value and the dispatch index used by the VM.
var (
	HLT  = Instruction{"HLT", 0, 0}
	ADD  = Instruction{"ADD", 1, 2}
	SUB  = Instruction{"SUB", 2, 2}
	STA  = Instruction{"STA", 3, 2}
	NOP  = Instruction{"NOP", 4, 0}
	LDA  = Instruction{"LDA", 5, 2}
	BRA  = Instruction{"BRA", 6, 2}
	BRZ  = Instruction{"BRZ", 7, 2}
	BRP  = Instruction{"BRP", 8, 2}
	INP  = Instruction{"INP", 9, 1}
	OUT  = Instruction{"OUT", 10, 1}
	OUTC = Instruction{"OUTC", 11, 1}
	OUTB = Instruction{"OUTB", 12, 1}
	AND  = Instruction{"AND", 13, 2}
	OR   = Instruction{"OR", 14, 2}
	NOT  = Instruction{"NOT", 15, 2}
	XOR  = Instruction{"XOR", 16, 2}
	LSL  = Instruction{"LSL", 17, 2}
	LSR  = Instruction{"LSR", 18, 2}
	ASL  = Instruction{"ASL", 19, 2}
	ASR  = Instruction{"ASR", 20, 2}
	CSL  = Instruction{"CSL", 21, 2}
	CSR  = Instruction{"CSR", 22, 2}
	CSLC = Instruction{"CSLC", 23, 2}
	CSRC = Instruction{"CSRC", 24, 2}
	CALL = Instruction{"CALL", 25, 1}
	RET  = Instruction{"RET", 26, 0}
)

// InstructionSet maps every mnemonic to its descriptor.
var InstructionSet = map[string]Instruction{
	HLT.Mnemonic: HLT, ADD.Mnemonic: ADD, SUB.Mnemonic: SUB, STA.Mnemonic: STA,
	NOP.Mnemonic: NOP, LDA.Mnemonic: LDA, BRA.Mnemonic: BRA, BRZ.Mnemonic: BRZ,
	BRP.Mnemonic: BRP, INP.Mnemonic: INP, OUT.Mnemonic: OUT, OUTC.Mnemonic: OUTC,
	OUTB.Mnemonic: OUTB, AND.Mnemonic: AND, OR.Mnemonic: OR, NOT.Mnemonic: NOT,
	XOR.Mnemonic: XOR, LSL.Mnemonic: LSL, LSR.Mnemonic: LSR, ASL.Mnemonic: ASL,
	ASR.Mnemonic: ASR, CSL.Mnemonic: CSL, CSR.Mnemonic: CSR, CSLC.Mnemonic: CSLC,
	CSRC.Mnemonic: CSRC, CALL.Mnemonic: CALL, RET.Mnemonic: RET,
}

// ByOpcode indexes the instruction set by its opcode for VM dispatch.
var ByOpcode [NumberInstructions]Instruction

func init() {
	for _, inst := range InstructionSet {
		ByOpcode[inst.Opcode] = inst
	}
}

// NumberInstructions is the size of the instruction set.
const NumberInstructions = 27

// NonImmediateModeInstructions lists instructions whose source operand
// cannot be addressed in immediate mode.
var NonImmediateModeInstructions = map[string]bool{
	STA.Mnemonic: true, BRA.Mnemonic: true, BRZ.Mnemonic: true,
	BRP.Mnemonic: true, CALL.Mnemonic: true,
}

// DAT is the assembly directive keyword that declares a variable.
const DAT = "DAT"

// Register describes one special-purpose register or the GPR family.
type Register struct {
	Canonical string
	Variants  []string
	Offset    int
}

// Special-purpose registers, in offset order.
var (
	Accumulator    = Register{"ACC", []string{"ACC", "ACCUMULATOR"}, 1}
	ProgramCounter = Register{"PC", []string{"PC", "PROGRAMCOUNTER"}, 2}
	ReturnRegister = Register{"RR", []string{"RR", "RETURNREGISTER"}, 3}
	FlagsRegister  = Register{"FR", []string{"FR", "FLAGSREGISTER"}, 4}
)

// GPR is the descriptor for the general-purpose-register family; its
// Offset is unused (GPRs are numbered, not offset-addressed).
var GPR = Register{"REG", []string{"REG", "R", "REGISTER"}, 0}

// SpecialRegisters lists the special-purpose registers in offset order.
var SpecialRegisters = []Register{Accumulator, ProgramCounter, ReturnRegister, FlagsRegister}

// NumberSpecialRegisters is the count of special-purpose registers.
const NumberSpecialRegisters = 4

// specialRegistersByVariant maps every accepted spelling to its register.
var specialRegistersByVariant = buildSpecialRegisterVariants()

func buildSpecialRegisterVariants() map[string]Register {
	m := make(map[string]Register)
	for _, reg := range SpecialRegisters {
		for _, v := range reg.Variants {
			m[v] = reg
		}
	}
	return m
}

// SpecialRegister returns the special register for the given variant
// spelling, or false if name is not a special-register spelling.
func SpecialRegister(name string) (Register, bool) {
	reg, ok := specialRegistersByVariant[strings.ToUpper(name)]
	return reg, ok
}

// IsGPRVariant reports whether name is one of the accepted GPR prefixes.
func IsGPRVariant(name string) bool {
	for _, v := range GPR.Variants {
		if v == name {
			return true
		}
	}
	return false
}

// AddressingMode describes one of the four operand-interpretation modes.
type AddressingMode struct {
	Sigil    byte
	Variants []string
	Opcode   int
}

var (
	Register_  = AddressingMode{'%', []string{"%", "REGISTER"}, 0}
	Direct     = AddressingMode{'@', []string{"@", "DIRECT"}, 1}
	Indirect   = AddressingMode{'>', []string{">", "INDIRECT"}, 2}
	Immediate  = AddressingMode{'#', []string{"#", "IMMEDIATE"}, 3}
	modesBySym = map[string]AddressingMode{}
)

// NumberModes is the count of addressing modes.
const NumberModes = 4

func init() {
	for _, m := range []AddressingMode{Register_, Direct, Indirect, Immediate} {
		for _, v := range m.Variants {
			modesBySym[v] = m
		}
	}
}

// AddressingModeByName resolves a sigil or name (e.g. "%" or "REGISTER")
// to its descriptor.
func AddressingModeByName(name string) (AddressingMode, bool) {
	m, ok := modesBySym[strings.ToUpper(name)]
	return m, ok
}

// AddressingModeBySigil resolves the single-character sigil form.
func AddressingModeBySigil(sigil byte) (AddressingMode, bool) {
	m, ok := modesBySym[string(sigil)]
	return m, ok
}
