// Package vm implements the unified register+memory store (C3) and
// the fetch/decode/execute loop (C9): the runtime that executes the
// output of the fifth assembler stage (codegen).
package vm

import (
	"fmt"

	"github.com/erikjastrub/ChadsemblerLite/internal/bitstring"
)

// SegFaultError reports an out-of-bounds memory/register access. It
// is returned as an ordinary error so a caller (the CLI, or a test)
// decides how to report it before terminating.
type SegFaultError struct {
	Address int
}

func (e *SegFaultError) Error() string {
	return fmt.Sprintf("segmentation fault: attempted to access memory address %d", e.Address)
}

// Memory is the unified register+code+data store, addressed by a
// single signed offset: negative offsets select registers, the rest
// select code/data cells. WordWidth is the fixed bit width every cell
// holds (opcode+mode+source+destination for code, or a plain value
// for data).
type Memory struct {
	NumberRegisters int
	WordWidth       int
	cells           []bitstring.Bits
}

// NewMemory allocates a store with numberRegisters registers and a
// data/code region sized 2^(operandBits-1) cells, each wordWidth bits
// wide. operandBits is the field width codegen derived for operands;
// sizing the address space off it (rather than off the configured
// MEMORY value directly) matches the layout the encoder actually
// produced, which may be larger than requested once rounded up to
// the nearest representable range.
func NewMemory(numberRegisters, wordWidth, operandBits int) *Memory {
	numberAddresses := 1 << uint(operandBits-1)
	cells := make([]bitstring.Bits, numberRegisters+numberAddresses)
	zero := bitstring.Signed(0, wordWidth)
	for i := range cells {
		cells[i] = append(bitstring.Bits(nil), zero...)
	}
	return &Memory{NumberRegisters: numberRegisters, WordWidth: wordWidth, cells: cells}
}

// calculateAddress maps a signed offset onto the underlying cell
// index, or returns a SegFaultError if it falls outside the store.
func (m *Memory) calculateAddress(address int) (int, error) {
	pointer := m.NumberRegisters + address
	if pointer < 0 || pointer >= len(m.cells) {
		return 0, &SegFaultError{Address: address}
	}
	return pointer, nil
}

// Get reads the bits at a signed address.
func (m *Memory) Get(address int) (bitstring.Bits, error) {
	i, err := m.calculateAddress(address)
	if err != nil {
		return nil, err
	}
	return m.cells[i], nil
}

// InsertBits overwrites the bits at a signed address.
func (m *Memory) InsertBits(address int, bits bitstring.Bits) error {
	i, err := m.calculateAddress(address)
	if err != nil {
		return err
	}
	m.cells[i] = bits
	return nil
}

// InsertValue encodes value as a signed WordWidth-bit word and writes
// it to address.
func (m *Memory) InsertValue(address int, value int64) error {
	return m.InsertBits(address, bitstring.Signed(value, m.WordWidth))
}

// ReadSigned reads and decodes the bits at address as a signed value.
func (m *Memory) ReadSigned(address int) (int64, error) {
	bits, err := m.Get(address)
	if err != nil {
		return 0, err
	}
	return bitstring.ReadSigned(bits), nil
}
