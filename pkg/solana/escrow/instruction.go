package escrow

const (
	InstructionSize = (1 + // tag
		8) // amount
)

// Instruction is the decoded form of the escrow program's instruction data
type Instruction struct {
	Type   InstructionType
	Amount uint64
}

func (obj *Instruction) Marshal() []byte {
	data := make([]byte, InstructionSize)

	var offset int
	putInstructionType(data, obj.Type, &offset)
	putUint64(data, obj.Amount, &offset)

	return data
}

// UnmarshalInstruction decodes instruction data. Anything beyond the first
// nine bytes is ignored.
func UnmarshalInstruction(data []byte) (*Instruction, error) {
	if len(data) < InstructionSize {
		return nil, ErrInvalidInstruction
	}

	var obj Instruction
	var offset int

	getInstructionType(data, &obj.Type, &offset)
	switch obj.Type {
	case InstructionTypeInitEscrow, InstructionTypeExchange:
	default:
		return nil, ErrInvalidInstruction
	}

	getUint64(data, &obj.Amount, &offset)

	return &obj, nil
}
