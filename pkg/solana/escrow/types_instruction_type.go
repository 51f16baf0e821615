package escrow

type InstructionType uint8

const (
	InstructionTypeInitEscrow InstructionType = iota
	InstructionTypeExchange

	Unknown InstructionType = 0xff
)

func (t InstructionType) String() string {
	switch t {
	case InstructionTypeInitEscrow:
		return "InitEscrow"
	case InstructionTypeExchange:
		return "Exchange"
	}
	return "Unknown"
}

func putInstructionType(dst []byte, v InstructionType, offset *int) {
	dst[*offset] = uint8(v)
	*offset += 1
}
func getInstructionType(src []byte, dst *InstructionType, offset *int) {
	*dst = InstructionType(src[*offset])
	*offset += 1
}
