package isa

import "fmt"

// AluMnemonics maps every register-form ALU mnemonic to its sub-op
// number. Shared by the assembler's encoder dispatch and the pattern
// table below, so the two can never drift apart.
var AluMnemonics = map[string]uint32{
	"add": AluAdd, "sub": AluSub, "and": AluAnd, "or": AluOr,
	"xor": AluXor, "sll": AluSll, "srl": AluSrl, "sra": AluSra,
	"slt": AluSlt, "sltu": AluSltu, "mul": AluMul, "div": AluDiv,
}

// AluImmNames lists the ALU mnemonics that also have an immediate form
// (the "xxxi" spelling). MUL and DIV do not: there is no MULI/DIVI.
var AluImmNames = []string{"add", "sub", "and", "or", "xor", "sll", "srl", "sra", "slt", "sltu"}

// BranchMnemonics maps branch mnemonics to their sub-op number.
var BranchMnemonics = map[string]uint32{
	"beq": BranchBeq, "bne": BranchBne, "blt": BranchBlt,
	"bltu": BranchBltu, "bge": BranchBge, "bgeu": BranchBgeu,
}

// LoadMnemonics maps load-class mnemonics (plus LUI/AUIPC) to their sub-op.
var LoadMnemonics = map[string]uint32{
	"ldw": LoadLdw, "ldh": LoadLdh, "ldb": LoadLdb, "ldx": LoadLdx,
	"lui": LoadLui, "ldhu": LoadLdhu, "ldbu": LoadLdbu, "auipc": LoadAuipc,
}

// StoreMnemonics maps store-class mnemonics to their sub-op.
var StoreMnemonics = map[string]uint32{
	"stw": StoreStw, "sth": StoreSth, "stb": StoreStb, "stx": StoreStx,
}

// Pattern is one row of the disassembly table: ins&Mask==Bits selects Fmt.
// Rows are tried in order, so pseudo-instruction rows (NOP, RET, JR, MV)
// are listed ahead of the general forms they are special cases of.
type Pattern struct {
	Mask uint32
	Bits uint32
	Fmt  string
}

const (
	// maskALU covers bits 5..0: the class-0 high bit (always 0 for ALU,
	// distinguishing it from load/store/branch/jump which set bit 5),
	// the regflag, and the 4-bit sub-op. Checking bit 5 here matters:
	// without it an ALU-immediate pattern with sub-op 0 would also
	// match an LDW word, since LDW's 3-bit sub-op 0 leaves bits 4..0
	// identically zero.
	maskALU   = 0x3F
	maskClass = 0x3F // bits 5..0: class + 3-bit sub-op (load/store/branch/jump)
)

func aluBits(reg bool, subop uint32) uint32 {
	b := subop & 0xF
	if reg {
		b |= 1 << 4
	}
	return b
}

func classBits(class, subop uint32) uint32 {
	return (class << 3) | (subop & 7)
}

// patternTable is built once; see buildPatternTable below. Pseudo forms
// come first because they are exact matches on fields that the general
// ALU-reg/JALR rows would also accept.
var patternTable = buildPatternTable()

func buildPatternTable() []Pattern {
	var t []Pattern

	// nop: addi x0, x0, 0 -- the whole word is zero.
	t = append(t, Pattern{Mask: 0xFFFFFFFF, Bits: 0, Fmt: "nop"})

	// ret: jalr x0, ra(x1), 0 -- rt=0, ra=1, rb=0, reg-form jalr.
	t = append(t, Pattern{
		Mask: maskALU | (0x1F << 6) | (0x1F << 11) | (0x1F << 16),
		Bits: aluBits(true, AluJalr) | (RegRA << 11),
		Fmt:  "ret",
	})

	// jr ra: jalr x0, ra, 0 -- rt=0, rb=0, ra free.
	t = append(t, Pattern{
		Mask: maskALU | (0x1F << 6) | (0x1F << 16),
		Bits: aluBits(true, AluJalr),
		Fmt:  "jr %a",
	})

	// mv rt, ra: add rt, x0, rb -- ra field fixed to x0, rt/rb free.
	t = append(t, Pattern{
		Mask: maskALU | (0x1F << 11),
		Bits: aluBits(true, AluAdd),
		Fmt:  "mv %t, %b",
	})

	// General ALU forms: immediate rows (only the mnemonics with an
	// "xxxi" spelling), then every register-form mnemonic.
	for _, name := range AluImmNames {
		t = append(t, Pattern{Mask: maskALU, Bits: aluBits(false, AluMnemonics[name]), Fmt: name + "i %t, %a, #%i"})
	}
	for _, name := range []string{"add", "sub", "and", "or", "xor", "sll", "srl", "sra", "slt", "sltu", "mul", "div"} {
		t = append(t, Pattern{Mask: maskALU, Bits: aluBits(true, AluMnemonics[name]), Fmt: name + " %t, %a, %b"})
	}
	t = append(t, Pattern{Mask: maskALU, Bits: aluBits(false, AluJalr), Fmt: "jalr %t, %a, #%i"})
	t = append(t, Pattern{Mask: maskALU, Bits: aluBits(true, AluJalr), Fmt: "jalr %t, %a, %b"})

	// Load class.
	for _, name := range []string{"ldw", "ldh", "ldb", "ldx", "ldhu", "ldbu"} {
		t = append(t, Pattern{Mask: maskClass, Bits: classBits(ClassLoad, LoadMnemonics[name]), Fmt: name + " %t, %i(%a)"})
	}
	t = append(t, Pattern{Mask: maskClass, Bits: classBits(ClassLoad, LoadLui), Fmt: "lui %t, %U"})
	t = append(t, Pattern{Mask: maskClass, Bits: classBits(ClassLoad, LoadAuipc), Fmt: "auipc %t, %U"})

	// Store class: the value register is carried in the rt bit slot --
	// there is no room left for a separate rb field once imm16 claims
	// the full top 16 bits, so %t (not %b) names the value operand.
	for _, name := range []string{"stw", "sth", "stb", "stx"} {
		t = append(t, Pattern{Mask: maskClass, Bits: classBits(ClassStore, StoreMnemonics[name]), Fmt: name + " %t, %i(%a)"})
	}

	// Branch class: same bit-budget reasoning -- the second register
	// (called rb in the surface syntax) is decoded with %t.
	for _, name := range []string{"beq", "bne", "blt", "bltu", "bge", "bgeu"} {
		t = append(t, Pattern{Mask: maskClass, Bits: classBits(ClassBranch, BranchMnemonics[name]), Fmt: name + " %a, %t, %B"})
	}

	// Jump class.
	t = append(t, Pattern{Mask: maskClass, Bits: classBits(ClassJump, JumpJal), Fmt: "jal %t, %J"})
	t = append(t, Pattern{Mask: maskClass, Bits: classBits(ClassJump, JumpSyscall), Fmt: "syscall #%j"})
	t = append(t, Pattern{Mask: maskClass, Bits: classBits(ClassJump, JumpBreak), Fmt: "break"})
	t = append(t, Pattern{Mask: maskClass, Bits: classBits(ClassJump, JumpSysret), Fmt: "sysret"})

	return t
}

// Disassemble renders ins (fetched or about to be fetched at pc) as a
// single line of SR32 assembly using the pattern table above. The table
// has no rows for the (class, sub-op) combinations the interpreter
// rejects as undefined; such a word matches no row and is rendered as
// a raw ".word" instead.
func Disassemble(pc, ins uint32) string {
	for _, p := range patternTable {
		if ins&p.Mask == p.Bits {
			return expand(pc, ins, p.Fmt)
		}
	}
	return fmt.Sprintf(".word 0x%08x", ins)
}

func expand(pc, ins uint32, format string) string {
	out := make([]byte, 0, len(format)+8)
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			out = append(out, c)
			continue
		}
		i++
		switch format[i] {
		case 'a':
			out = append(out, RegNames[GetRA(ins)]...)
		case 'b':
			out = append(out, RegNames[GetRB(ins)]...)
		case 't':
			out = append(out, RegNames[GetRT(ins)]...)
		case 'i':
			out = append(out, fmt.Sprintf("%d", GetImm16(ins))...)
		case 'u':
			out = append(out, fmt.Sprintf("0x%x", GetImm16(ins))...)
		case 'j':
			out = append(out, fmt.Sprintf("%d", GetImm21(ins))...)
		case 's':
			out = append(out, fmt.Sprintf("%d", GetRB(ins))...)
		case 'J':
			out = append(out, fmt.Sprintf("0x%x", pc+4+uint32(GetImm21(ins)))...)
		case 'B':
			out = append(out, fmt.Sprintf("0x%x", pc+4+uint32(GetImm16(ins)))...)
		case 'U':
			out = append(out, fmt.Sprintf("0x%x", uint32(GetImm16(ins))<<16)...)
		case '%':
			out = append(out, '%')
		default:
			out = append(out, '%', format[i])
		}
	}
	return string(out)
}

// ClassBits6 renders the six low bits of ins (bit 5 first, bit 0 last)
// as the listing's BBBBBB indicator -- see the image package.
func ClassBits6(ins uint32) string {
	b := make([]byte, 6)
	for i := 0; i < 6; i++ {
		if ins&(1<<uint(5-i)) != 0 {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}
