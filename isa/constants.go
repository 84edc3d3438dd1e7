// Package isa is the single source of truth for the SR32 instruction
// encoding: field layout, sub-op numbering, the mnemonic tables shared
// by the assembler's encoder dispatch and the disassembler, and the
// disassembler's pattern table. The
// assembler, disassembler and interpreter all import this package so
// that none of them can silently drift from the others.
package isa

// Opcode classes, bits 5..3 of the instruction word.
const (
	ClassALU0 = 0 // ADD/ADDI family, bits 4..3 == 00
	ClassALU1 = 1 //                  bits 4..3 == 01
	ClassALU2 = 2 //                  bits 4..3 == 10
	ClassALU3 = 3 //                  bits 4..3 == 11
	ClassLoad = 4
	ClassStore = 5
	ClassBranch = 6
	ClassJump = 7
)

// ALU sub-ops, bits 3..0 of the instruction word (0..15).
const (
	AluAdd  = 0
	AluSub  = 1
	AluAnd  = 2
	AluOr   = 3
	AluXor  = 4
	AluSll  = 5
	AluSrl  = 6
	AluSra  = 7
	AluSlt  = 8
	AluSltu = 9
	AluMul  = 10
	AluDiv  = 11
	AluJalr = 15
)

// Branch sub-ops, bits 2..0 of the instruction word (0..5).
const (
	BranchBeq  = 0
	BranchBne  = 1
	BranchBlt  = 2
	BranchBltu = 3
	BranchBge  = 4
	BranchBgeu = 5
)

// Load sub-ops, bits 2..0 of the instruction word (0..7).
const (
	LoadLdw  = 0
	LoadLdh  = 1
	LoadLdb  = 2
	LoadLdx  = 3
	LoadLui  = 4
	LoadLdhu = 5
	LoadLdbu = 6
	LoadAuipc = 7
)

// Store sub-ops, bits 2..0 of the instruction word (0..3).
const (
	StoreStw = 0
	StoreSth = 1
	StoreStb = 2
	StoreStx = 3
)

// Jump-class sub-ops, bits 2..0 of the instruction word (0..3).
const (
	JumpJal     = 0
	JumpSyscall = 1
	JumpBreak   = 2
	JumpSysret  = 3
)

// Register aliases, resolved by the lexer's register-name table.
const (
	RegZero = 0
	RegRA   = 1
	RegSP   = 2
)

// RegNames holds the canonical x0..x31 display names used by the
// disassembler and trace output.
var RegNames = [32]string{
	"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7",
	"x8", "x9", "x10", "x11", "x12", "x13", "x14", "x15",
	"x16", "x17", "x18", "x19", "x20", "x21", "x22", "x23",
	"x24", "x25", "x26", "x27", "x28", "x29", "x30", "x31",
}
