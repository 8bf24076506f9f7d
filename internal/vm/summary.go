package vm

import (
	"fmt"
	"math/big"
	"strings"
)

// Summary describes the machine geometry the code generator derived:
// field widths, the instruction word format and the representable
// operand/address ranges. Callers decide whether to print it; Run
// itself never does. Ranges are computed with big.Int because the
// word width scales with the configured memory size and can exceed a
// native integer.
func (m *Machine) Summary() string {
	one := big.NewInt(1)
	maxOperand := new(big.Int).Sub(new(big.Int).Lsh(one, uint(m.operandBits-1)), one)
	maxAddress := new(big.Int).Sub(new(big.Int).Lsh(one, uint(m.architectureBits-1)), one)
	numberAddresses := new(big.Int).Lsh(one, uint(m.operandBits-1))
	lastAddress := new(big.Int).Sub(numberAddresses, one)

	format := fmt.Sprintf("%s %s %s %s",
		strings.Repeat("0", m.machineOperationBits),
		strings.Repeat("0", m.addressingModeBits),
		strings.Repeat("0", m.operandBits),
		strings.Repeat("0", m.operandBits))

	return fmt.Sprintf(`%d bit operand, %d bit address bus
Instruction Format: %s
Values -%s..%s in an operand, values -%s..%s in an address
%s (0..%s) memory addresses, %d (1..%d) GPRs
`,
		m.operandBits, m.architectureBits,
		format,
		maxOperand, maxOperand, maxAddress, maxAddress,
		numberAddresses, lastAddress, m.numberGPRs, m.numberGPRs)
}
