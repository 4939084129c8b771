package opcodes

// Opcodes needed to recognise and rebuild the compressible output templates.
const (
	OP_0     = 0x00
	OP_FALSE = OP_0
	OP_1     = 0x51
	OP_TRUE  = OP_1

	OP_RETURN = 0x6a

	OP_DUP         = 0x76
	OP_EQUAL       = 0x87
	OP_EQUALVERIFY = 0x88
	OP_HASH160     = 0xa9
	OP_CHECKSIG    = 0xac
)
