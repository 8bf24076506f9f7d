package vm

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/erikjastrub/ChadsemblerLite/internal/arch"
	"github.com/erikjastrub/ChadsemblerLite/internal/bitstring"
)

// ErrHalt is returned by the HLT handler to stop the fetch/decode/
// execute loop. It is not a failure: Run translates it into a nil
// error.
var ErrHalt = errors.New("vm: halted")

// RuntimeError reports a fatal runtime condition (e.g. unparsable
// INP input), surfaced as an ordinary error instead of exiting so
// the caller owns process termination.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string { return "runtime error: " + e.Message }

// MemoryValue is the address/bits/value triple an addressing mode
// resolves an operand to.
type MemoryValue struct {
	Address int
	Bits    bitstring.Bits
	Value   int64
}

// Machine is the fetch/decode/execute engine that runs after the five
// assembler stages, executing the code a Generator laid out in Memory.
type Machine struct {
	Memory *Memory

	machineOperationBits int
	addressingModeBits   int
	operandBits           int
	architectureBits      int
	numberGPRs            int

	programCounterAddress int
	flagsRegisterAddress  int
	returnRegisterAddress int

	ClockSpeed time.Duration
	In         io.Reader
	Out        io.Writer
}

// New creates a Machine over mem. machineOperationBits/
// addressingModeBits/operandBits are the field widths the Generator
// returned; numberGPRs is the configured general-purpose register
// count (Memory.NumberRegisters minus the 4 special registers).
func New(mem *Memory, machineOperationBits, addressingModeBits, operandBits, numberGPRs int, clockSpeed time.Duration, in io.Reader, out io.Writer) *Machine {
	return &Machine{
		Memory:                mem,
		machineOperationBits:  machineOperationBits,
		addressingModeBits:    addressingModeBits,
		operandBits:           operandBits,
		architectureBits:      machineOperationBits + addressingModeBits + 2*operandBits,
		numberGPRs:            numberGPRs,
		programCounterAddress: -(arch.ProgramCounter.Offset + numberGPRs),
		flagsRegisterAddress:  -(arch.FlagsRegister.Offset + numberGPRs),
		returnRegisterAddress: -(arch.ReturnRegister.Offset + numberGPRs),
		ClockSpeed:            clockSpeed,
		In:                    in,
		Out:                   out,
	}
}

// resolveOperand returns the address/bits/value an addressing mode
// and a raw operand bit field point to.
func (m *Machine) resolveOperand(modeOpcode int, operand bitstring.Bits) (MemoryValue, error) {
	operandValue := bitstring.ReadSigned(operand)

	bitsAtOperand, err := m.Memory.Get(int(operandValue))
	if err != nil {
		return MemoryValue{}, err
	}
	valueAtOperand := bitstring.ReadSigned(bitsAtOperand)

	switch modeOpcode {
	case arch.Register_.Opcode, arch.Direct.Opcode:
		return MemoryValue{Address: int(operandValue), Bits: bitsAtOperand, Value: valueAtOperand}, nil

	case arch.Indirect.Opcode:
		bitsAtTarget, err := m.Memory.Get(int(valueAtOperand))
		if err != nil {
			return MemoryValue{}, err
		}
		return MemoryValue{Address: int(valueAtOperand), Bits: bitsAtTarget, Value: bitstring.ReadSigned(bitsAtTarget)}, nil

	case arch.Immediate.Opcode:
		return MemoryValue{Address: int(operandValue), Bits: bitstring.Signed(operandValue, m.architectureBits), Value: operandValue}, nil

	default:
		return MemoryValue{}, fmt.Errorf("vm: unknown addressing mode opcode %d", modeOpcode)
	}
}

// handleInstruction advances the program counter past the current
// instruction, decodes its fields, and executes it. The PC is written
// before dispatch so a branch/call instruction's own write to the PC
// always wins.
func (m *Machine) handleInstruction(word bitstring.Bits, programCounter int64) error {
	if err := m.Memory.InsertBits(m.programCounterAddress, bitstring.Unsigned(programCounter+1, m.architectureBits)); err != nil {
		return err
	}

	lower, upper := 0, m.machineOperationBits
	opcodeBits := word[lower:upper]

	lower, upper = upper, upper+m.addressingModeBits
	modeBits := word[lower:upper]

	lower, upper = upper, upper+m.operandBits
	sourceBits := word[lower:upper]

	lower, upper = upper, upper+m.operandBits
	destinationBits := word[lower:upper]

	source, err := m.resolveOperand(int(bitstring.ReadUnsigned(modeBits)), sourceBits)
	if err != nil {
		return err
	}

	// The destination is always register-addressed (semantic analysis
	// enforces this), so its addressing mode bits are never encoded.
	destination, err := m.resolveOperand(arch.Register_.Opcode, destinationBits)
	if err != nil {
		return err
	}

	return m.execute(int(bitstring.ReadUnsigned(opcodeBits)), source, destination)
}

// Run fetches, decodes and executes instructions starting at address
// 0 until HLT (reported as a nil error) or a runtime error occurs.
func (m *Machine) Run() error {
	pc := int64(0)

	for {
		if m.ClockSpeed > 0 {
			time.Sleep(m.ClockSpeed)
		}

		word, err := m.Memory.Get(int(pc))
		if err != nil {
			return err
		}

		if err := m.handleInstruction(word, pc); err != nil {
			if errors.Is(err, ErrHalt) {
				return nil
			}
			return err
		}

		nextBits, err := m.Memory.Get(m.programCounterAddress)
		if err != nil {
			return err
		}
		pc = bitstring.ReadUnsigned(nextBits)
	}
}

func (m *Machine) writeCarry(carry byte) error {
	bits := make(bitstring.Bits, m.architectureBits)
	bits[m.architectureBits-1] = carry
	return m.Memory.InsertBits(m.flagsRegisterAddress, bits)
}

func (m *Machine) execute(opcode int, source, destination MemoryValue) error {
	if opcode < 0 || opcode >= arch.NumberInstructions {
		return fmt.Errorf("vm: opcode %d out of range", opcode)
	}
	return operationTable[opcode](m, source, destination)
}

type operation func(m *Machine, source, destination MemoryValue) error

// operationTable is indexed by opcode, matching arch.ByOpcode's layout.
var operationTable = buildOperationTable()

func buildOperationTable() [arch.NumberInstructions]operation {
	var t [arch.NumberInstructions]operation
	t[arch.HLT.Opcode] = opHLT
	t[arch.ADD.Opcode] = opADD
	t[arch.SUB.Opcode] = opSUB
	t[arch.STA.Opcode] = opSTA
	t[arch.NOP.Opcode] = opNOP
	t[arch.LDA.Opcode] = opLDA
	t[arch.BRA.Opcode] = opBRA
	t[arch.BRZ.Opcode] = opBRZ
	t[arch.BRP.Opcode] = opBRP
	t[arch.INP.Opcode] = opINP
	t[arch.OUT.Opcode] = opOUT
	t[arch.OUTC.Opcode] = opOUTC
	t[arch.OUTB.Opcode] = opOUTB
	t[arch.AND.Opcode] = opAND
	t[arch.OR.Opcode] = opOR
	t[arch.NOT.Opcode] = opNOT
	t[arch.XOR.Opcode] = opXOR
	t[arch.LSL.Opcode] = opLSL
	t[arch.LSR.Opcode] = opLSR
	t[arch.ASL.Opcode] = opASL
	t[arch.ASR.Opcode] = opASR
	t[arch.CSL.Opcode] = opCSL
	t[arch.CSR.Opcode] = opCSR
	t[arch.CSLC.Opcode] = opCSLC
	t[arch.CSRC.Opcode] = opCSRC
	t[arch.CALL.Opcode] = opCALL
	t[arch.RET.Opcode] = opRET
	return t
}

func opHLT(m *Machine, source, destination MemoryValue) error { return ErrHalt }

func opADD(m *Machine, source, destination MemoryValue) error {
	return m.Memory.InsertValue(destination.Address, destination.Value+source.Value)
}

func opSUB(m *Machine, source, destination MemoryValue) error {
	return m.Memory.InsertValue(destination.Address, destination.Value-source.Value)
}

// opSTA stores the destination operand's value into the source
// operand's address; the mnemonic's apparent direction is reversed
// from LDA by design, matching the original instruction set.
func opSTA(m *Machine, source, destination MemoryValue) error {
	return m.Memory.InsertBits(source.Address, destination.Bits)
}

func opNOP(m *Machine, source, destination MemoryValue) error { return nil }

func opLDA(m *Machine, source, destination MemoryValue) error {
	return m.Memory.InsertBits(destination.Address, source.Bits)
}

func (m *Machine) branchTo(address int) error {
	return m.Memory.InsertValue(m.programCounterAddress, int64(address))
}

func opBRA(m *Machine, source, destination MemoryValue) error {
	return m.branchTo(source.Address)
}

func opBRZ(m *Machine, source, destination MemoryValue) error {
	if destination.Value == 0 {
		return m.branchTo(source.Address)
	}
	return nil
}

func opBRP(m *Machine, source, destination MemoryValue) error {
	if destination.Value >= 0 {
		return m.branchTo(source.Address)
	}
	return nil
}

func opINP(m *Machine, source, destination MemoryValue) error {
	var value int64
	if _, err := fmt.Fscan(m.In, &value); err != nil {
		return &RuntimeError{Message: "input could not be interpreted as an integer"}
	}
	return m.Memory.InsertValue(source.Address, value)
}

func opOUT(m *Machine, source, destination MemoryValue) error {
	_, err := fmt.Fprintln(m.Out, source.Value)
	return err
}

func opOUTC(m *Machine, source, destination MemoryValue) error {
	_, err := fmt.Fprint(m.Out, string(rune(source.Value)))
	return err
}

func opOUTB(m *Machine, source, destination MemoryValue) error {
	_, err := fmt.Fprintln(m.Out, source.Bits.String())
	return err
}

func opAND(m *Machine, source, destination MemoryValue) error {
	return m.Memory.InsertBits(destination.Address, bitstring.And(source.Bits, destination.Bits))
}

func opOR(m *Machine, source, destination MemoryValue) error {
	return m.Memory.InsertBits(destination.Address, bitstring.Or(source.Bits, destination.Bits))
}

func opNOT(m *Machine, source, destination MemoryValue) error {
	return m.Memory.InsertBits(destination.Address, bitstring.Not(source.Bits))
}

func opXOR(m *Machine, source, destination MemoryValue) error {
	return m.Memory.InsertBits(destination.Address, bitstring.Xor(source.Bits, destination.Bits))
}

// applyShift writes a shift's carry bit and result, shared by the
// logical/arithmetic and carry-circular shift handlers. A no-op shift
// (n < 1) leaves memory untouched.
func (m *Machine) applyShift(destination MemoryValue, shift bitstring.Shift) error {
	if !shift.Moved {
		return nil
	}
	if err := m.writeCarry(shift.Carry); err != nil {
		return err
	}
	return m.Memory.InsertBits(destination.Address, shift.Result)
}

func opLSL(m *Machine, source, destination MemoryValue) error {
	return m.applyShift(destination, bitstring.LogicalShiftLeft(destination.Bits, int(source.Value)))
}

func opLSR(m *Machine, source, destination MemoryValue) error {
	return m.applyShift(destination, bitstring.LogicalShiftRight(destination.Bits, int(source.Value)))
}

func opASL(m *Machine, source, destination MemoryValue) error {
	return m.applyShift(destination, bitstring.ArithmeticShiftLeft(destination.Bits, int(source.Value)))
}

func opASR(m *Machine, source, destination MemoryValue) error {
	return m.applyShift(destination, bitstring.ArithmeticShiftRight(destination.Bits, int(source.Value)))
}

func opCSL(m *Machine, source, destination MemoryValue) error {
	shift := bitstring.CircularShiftLeft(destination.Bits, int(source.Value))
	if !shift.Moved {
		return nil
	}
	return m.Memory.InsertBits(destination.Address, shift.Result)
}

func opCSR(m *Machine, source, destination MemoryValue) error {
	shift := bitstring.CircularShiftRight(destination.Bits, int(source.Value))
	if !shift.Moved {
		return nil
	}
	return m.Memory.InsertBits(destination.Address, shift.Result)
}

// carryBit reads the last bit of the flags register: the slot CSLC
// and CSRC use to carry a bit between consecutive shifts.
func (m *Machine) carryBit() (byte, error) {
	bits, err := m.Memory.Get(m.flagsRegisterAddress)
	if err != nil {
		return 0, err
	}
	return bits[len(bits)-1], nil
}

func opCSLC(m *Machine, source, destination MemoryValue) error {
	carry, err := m.carryBit()
	if err != nil {
		return err
	}
	shift := bitstring.CircularShiftLeftCarry(destination.Bits, carry, int(source.Value))
	return m.applyShift(destination, shift)
}

func opCSRC(m *Machine, source, destination MemoryValue) error {
	carry, err := m.carryBit()
	if err != nil {
		return err
	}
	shift := bitstring.CircularShiftRightCarry(destination.Bits, carry, int(source.Value))
	return m.applyShift(destination, shift)
}

func opCALL(m *Machine, source, destination MemoryValue) error {
	pcBits, err := m.Memory.Get(m.programCounterAddress)
	if err != nil {
		return err
	}
	if err := m.Memory.InsertBits(m.returnRegisterAddress, pcBits); err != nil {
		return err
	}
	return m.branchTo(source.Address)
}

func opRET(m *Machine, source, destination MemoryValue) error {
	rrBits, err := m.Memory.Get(m.returnRegisterAddress)
	if err != nil {
		return err
	}
	return m.Memory.InsertBits(m.programCounterAddress, rrBits)
}
