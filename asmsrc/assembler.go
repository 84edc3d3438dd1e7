package asmsrc

import (
	"strings"

	"github.com/sr32vm/sr32/isa"
)

// EntryBase is the default image base address: the emulator's entry PC.
const EntryBase = 0x100000

// Assemble runs the one-pass assembler over src (the contents of
// filename) and returns the emitted image together with its symbol
// table, which callers use to annotate a listing with labels and a
// cross reference. The first error aborts assembly; nothing is
// accumulated.
func Assemble(src, filename string) (*Image, *SymbolTable, error) {
	img := NewImage(EntryBase)
	syms := NewSymbolTable(img)
	p := &parser{lex: NewLexer(src, filename), filename: filename, img: img, syms: syms}

	if err := p.advance(); err != nil {
		return nil, nil, err
	}
	for p.tok.Type != TokenEOF {
		if p.tok.Type == TokenEOL {
			if err := p.advance(); err != nil {
				return nil, nil, err
			}
			continue
		}
		if err := p.parseLine(); err != nil {
			return nil, nil, err
		}
	}
	if err := syms.CheckLabels(); err != nil {
		return nil, nil, err
	}
	return img, syms, nil
}

type parser struct {
	lex      *Lexer
	filename string
	tok      Token
	img      *Image
	syms     *SymbolTable
}

func (p *parser) pos() Position { return Position{p.filename, p.tok.Line} }

func (p *parser) advance() error {
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expectEOL() error {
	if p.tok.Type != TokenEOL && p.tok.Type != TokenEOF {
		return newError(p.pos(), ErrorSyntax, "unexpected %s at end of line", p.tok)
	}
	return nil
}

func (p *parser) expectComma() error {
	if p.tok.Type != TokenComma {
		return newError(p.pos(), ErrorSyntax, "expected ',', got %s", p.tok)
	}
	return p.advance()
}

func (p *parser) parseReg() (uint32, error) {
	if p.tok.Type != TokenRegister {
		return 0, newError(p.pos(), ErrorSyntax, "expected register, got %s", p.tok)
	}
	n := p.tok.Num
	return n, p.advance()
}

// parseValue parses a NUMBER, or an IDENT that must already name a
// defined symbol (a label or an EQU constant) -- forward references to
// a bare immediate are not one of the five fixup kinds the symbol table
// supports, so they must resolve immediately.
func (p *parser) parseValue() (uint32, error) {
	switch p.tok.Type {
	case TokenNumber:
		n := p.tok.Num
		return n, p.advance()
	case TokenIdent:
		name := p.tok.Str
		v, ok := p.syms.Lookup(name)
		if !ok {
			return 0, newError(p.pos(), ErrorUndefinedLabel, "undefined symbol %q", name)
		}
		return v, p.advance()
	default:
		return 0, newError(p.pos(), ErrorSyntax, "expected number or symbol, got %s", p.tok)
	}
}

// parseHashValue parses "#value" as used by ALU immediates and EQU.
func (p *parser) parseHashValue() (uint32, error) {
	if p.tok.Type != TokenHash {
		return 0, newError(p.pos(), ErrorSyntax, "expected '#', got %s", p.tok)
	}
	if err := p.advance(); err != nil {
		return 0, err
	}
	return p.parseValue()
}

// parseMemRef parses "imm(ra)", "(ra)", or a bare "imm" (ra implicit 0).
func (p *parser) parseMemRef() (imm, ra uint32, err error) {
	if p.tok.Type == TokenLParen {
		if err = p.advance(); err != nil {
			return
		}
		ra, err = p.parseReg()
		if err != nil {
			return
		}
		if p.tok.Type != TokenRParen {
			err = newError(p.pos(), ErrorSyntax, "expected ')', got %s", p.tok)
			return
		}
		err = p.advance()
		return
	}
	imm, err = p.parseValue()
	if err != nil {
		return
	}
	if p.tok.Type == TokenLParen {
		if err = p.advance(); err != nil {
			return
		}
		ra, err = p.parseReg()
		if err != nil {
			return
		}
		if p.tok.Type != TokenRParen {
			err = newError(p.pos(), ErrorSyntax, "expected ')', got %s", p.tok)
			return
		}
		err = p.advance()
	}
	return
}

// parseLabelRef parses an IDENT naming a branch/jump target and queues
// kind as a fixup at site against it.
func (p *parser) parseLabelRef(site uint32, kind FixupKind) error {
	if p.tok.Type != TokenIdent {
		return newError(p.pos(), ErrorSyntax, "expected label, got %s", p.tok)
	}
	name := p.tok.Str
	pos := p.pos()
	if err := p.advance(); err != nil {
		return err
	}
	return p.syms.Reference(name, Fixup{SitePC: site, Kind: kind, Pos: pos})
}

func (p *parser) parseLine() error {
	pos := p.pos()
	if p.tok.Type == TokenIdent {
		name := p.tok.Str
		if err := p.advance(); err != nil {
			return err
		}
		if p.tok.Type != TokenColon {
			return newError(pos, ErrorSyntax, "expected ':' after %q", name)
		}
		if err := p.syms.SetLabel(name, p.img.PC(), pos); err != nil {
			return err
		}
		if err := p.advance(); err != nil {
			return err
		}
	}

	if p.tok.Type == TokenEOL || p.tok.Type == TokenEOF {
		return nil
	}
	if p.tok.Type != TokenKeyword {
		return newError(p.pos(), ErrorSyntax, "expected mnemonic or directive, got %s", p.tok)
	}

	mnemonic := p.tok.Str
	mpos := p.pos()
	if err := p.advance(); err != nil {
		return err
	}
	if err := p.dispatch(mnemonic, mpos); err != nil {
		return err
	}
	return p.expectEOL()
}

func (p *parser) dispatch(mnemonic string, pos Position) error {
	switch mnemonic {
	case "nop":
		p.img.EmitWord(isa.InsI(0, 0, 0, isa.AluAdd))
		return nil
	case "mv":
		return p.parseMV()
	case "jr":
		return p.parseJR()
	case "ret":
		p.img.EmitWord(isa.InsR(0, isa.RegRA, 0, isa.AluJalr))
		return nil
	case "j":
		return p.parseJ()
	case "li":
		return p.parseLI()
	case "la":
		return p.parseLA()
	case "jalr":
		return p.parseJALR()
	case "jal":
		return p.parseJAL(pos)
	case "syscall":
		return p.parseSyscall()
	case "break":
		p.img.EmitWord(isa.InsJ(0, 0, isa.JumpBreak))
		return nil
	case "sysret":
		p.img.EmitWord(isa.InsJ(0, 0, isa.JumpSysret))
		return nil
	case "equ":
		return p.parseEqu()
	case "word":
		return p.parseWord()
	case "byte":
		return p.parseByte()
	case "half":
		return p.parseHalf()
	}

	if subop, ok := isa.BranchMnemonics[mnemonic]; ok {
		return p.parseBranch(subop, pos)
	}
	if subop, ok := isa.LoadMnemonics[mnemonic]; ok {
		if mnemonic == "lui" || mnemonic == "auipc" {
			return p.parseLUI(subop)
		}
		return p.parseLoad(subop)
	}
	if subop, ok := isa.StoreMnemonics[mnemonic]; ok {
		return p.parseStore(subop)
	}
	if subop, ok := isa.AluMnemonics[mnemonic]; ok {
		return p.parseAluReg(subop)
	}
	if strings.HasSuffix(mnemonic, "i") {
		base := strings.TrimSuffix(mnemonic, "i")
		if subop, ok := isa.AluMnemonics[base]; ok {
			for _, n := range isa.AluImmNames {
				if n == base {
					return p.parseAluImm(subop)
				}
			}
		}
	}
	return newError(pos, ErrorSyntax, "unknown mnemonic %q", mnemonic)
}

func (p *parser) parseAluReg(subop uint32) error {
	rt, err := p.parseReg()
	if err != nil {
		return err
	}
	if err := p.expectComma(); err != nil {
		return err
	}
	ra, err := p.parseReg()
	if err != nil {
		return err
	}
	if err := p.expectComma(); err != nil {
		return err
	}
	rb, err := p.parseReg()
	if err != nil {
		return err
	}
	p.img.EmitWord(isa.InsR(rt, ra, rb, subop))
	return nil
}

func (p *parser) parseAluImm(subop uint32) error {
	rt, err := p.parseReg()
	if err != nil {
		return err
	}
	if err := p.expectComma(); err != nil {
		return err
	}
	ra, err := p.parseReg()
	if err != nil {
		return err
	}
	if err := p.expectComma(); err != nil {
		return err
	}
	imm, err := p.parseHashValue()
	if err != nil {
		return err
	}
	p.img.EmitWord(isa.InsI(imm&0xFFFF, ra, rt, subop))
	return nil
}

func (p *parser) parseBranch(subop uint32, pos Position) error {
	ra, err := p.parseReg()
	if err != nil {
		return err
	}
	if err := p.expectComma(); err != nil {
		return err
	}
	rb, err := p.parseReg()
	if err != nil {
		return err
	}
	if err := p.expectComma(); err != nil {
		return err
	}
	site := p.img.EmitWord(isa.InsB(0, ra, rb, subop))
	return p.parseLabelRef(site, FixupPCRelS16)
}

func (p *parser) parseLoad(subop uint32) error {
	rt, err := p.parseReg()
	if err != nil {
		return err
	}
	if err := p.expectComma(); err != nil {
		return err
	}
	imm, ra, err := p.parseMemRef()
	if err != nil {
		return err
	}
	p.img.EmitWord(isa.InsL(imm&0xFFFF, ra, rt, subop))
	return nil
}

func (p *parser) parseLUI(subop uint32) error {
	rt, err := p.parseReg()
	if err != nil {
		return err
	}
	if err := p.expectComma(); err != nil {
		return err
	}
	v, err := p.parseValue()
	if err != nil {
		return err
	}
	p.img.EmitWord(isa.InsL(v>>16, 0, rt, subop))
	return nil
}

func (p *parser) parseStore(subop uint32) error {
	rb, err := p.parseReg()
	if err != nil {
		return err
	}
	if err := p.expectComma(); err != nil {
		return err
	}
	imm, ra, err := p.parseMemRef()
	if err != nil {
		return err
	}
	p.img.EmitWord(isa.InsS(imm&0xFFFF, ra, rb, subop))
	return nil
}

func (p *parser) parseJAL(pos Position) error {
	rt, err := p.parseReg()
	if err != nil {
		return err
	}
	if err := p.expectComma(); err != nil {
		return err
	}
	site := p.img.EmitWord(isa.InsJ(0, rt, isa.JumpJal))
	return p.parseLabelRef(site, FixupPCRelS21)
}

func (p *parser) parseSyscall() error {
	imm, err := p.parseHashValue()
	if err != nil {
		return err
	}
	p.img.EmitWord(isa.InsJ(imm, 0, isa.JumpSyscall))
	return nil
}

func (p *parser) parseJALR() error {
	rt, err := p.parseReg()
	if err != nil {
		return err
	}
	if err := p.expectComma(); err != nil {
		return err
	}
	ra, err := p.parseReg()
	if err != nil {
		return err
	}
	if err := p.expectComma(); err != nil {
		return err
	}
	if p.tok.Type == TokenRegister {
		rb, err := p.parseReg()
		if err != nil {
			return err
		}
		p.img.EmitWord(isa.InsR(rt, ra, rb, isa.AluJalr))
		return nil
	}
	imm, err := p.parseValue()
	if err != nil {
		return err
	}
	p.img.EmitWord(isa.InsI(imm&0xFFFF, ra, rt, isa.AluJalr))
	return nil
}

func (p *parser) parseMV() error {
	rt, err := p.parseReg()
	if err != nil {
		return err
	}
	if err := p.expectComma(); err != nil {
		return err
	}
	ra, err := p.parseReg()
	if err != nil {
		return err
	}
	p.img.EmitWord(isa.InsR(rt, 0, ra, isa.AluAdd))
	return nil
}

func (p *parser) parseJR() error {
	ra, err := p.parseReg()
	if err != nil {
		return err
	}
	p.img.EmitWord(isa.InsR(0, ra, 0, isa.AluJalr))
	return nil
}

func (p *parser) parseJ() error {
	site := p.img.EmitWord(isa.InsJ(0, 0, isa.JumpJal))
	return p.parseLabelRef(site, FixupPCRelS21)
}

// parseLI implements both forms of LI: a plain constant, split into
// one or two words, and a label target, always emitted as a two-word
// HILO pair resolved later.
func (p *parser) parseLI() error {
	rt, err := p.parseReg()
	if err != nil {
		return err
	}
	if err := p.expectComma(); err != nil {
		return err
	}

	if p.tok.Type == TokenIdent {
		name := p.tok.Str
		labelPos := p.pos()
		if err := p.advance(); err != nil {
			return err
		}
		site := p.img.EmitWord(isa.InsL(0, 0, rt, isa.LoadLui))
		p.img.EmitWord(isa.InsI(0, rt, rt, isa.AluAdd))
		return p.syms.Reference(name, Fixup{SitePC: site, Kind: FixupAbsHiLo, Pos: labelPos})
	}

	v, err := p.parseValue()
	if err != nil {
		return err
	}
	n := int32(v)
	if n >= -32768 && n <= 32767 {
		p.img.EmitWord(isa.InsI(v&0xFFFF, 0, rt, isa.AluAdd))
		return nil
	}
	hi := v >> 16
	lo := v & 0xffff
	if lo&0x8000 != 0 {
		hi++
	}
	p.img.EmitWord(isa.InsL(hi, 0, rt, isa.LoadLui))
	if lo != 0 {
		p.img.EmitWord(isa.InsI(lo, rt, rt, isa.AluAdd))
	}
	return nil
}

func (p *parser) parseLA() error {
	rt, err := p.parseReg()
	if err != nil {
		return err
	}
	if err := p.expectComma(); err != nil {
		return err
	}
	if p.tok.Type != TokenIdent {
		return newError(p.pos(), ErrorSyntax, "expected label, got %s", p.tok)
	}
	name := p.tok.Str
	labelPos := p.pos()
	if err := p.advance(); err != nil {
		return err
	}
	site := p.img.EmitWord(isa.InsL(0, 0, rt, isa.LoadAuipc))
	p.img.EmitWord(isa.InsI(0, rt, rt, isa.AluAdd))
	return p.syms.Reference(name, Fixup{SitePC: site, Kind: FixupPCRelHiLo, Pos: labelPos})
}

func (p *parser) parseEqu() error {
	if p.tok.Type != TokenIdent {
		return newError(p.pos(), ErrorSyntax, "expected name, got %s", p.tok)
	}
	name := p.tok.Str
	pos := p.pos()
	if err := p.advance(); err != nil {
		return err
	}
	if err := p.expectComma(); err != nil {
		return err
	}
	v, err := p.parseHashValue()
	if err != nil {
		return err
	}
	return p.syms.Equ(name, v, pos)
}

func (p *parser) parseWord() error {
	for {
		if p.tok.Type == TokenIdent {
			name := p.tok.Str
			ipos := p.pos()
			if err := p.advance(); err != nil {
				return err
			}
			site := p.img.EmitWord(0)
			if err := p.syms.Reference(name, Fixup{SitePC: site, Kind: FixupAbsU32, Pos: ipos}); err != nil {
				return err
			}
		} else {
			v, err := p.parseValue()
			if err != nil {
				return err
			}
			p.img.EmitWord(v)
		}
		if p.tok.Type != TokenComma {
			return nil
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
}

func (p *parser) parseByte() error {
	for {
		if p.tok.Type == TokenString {
			for i := 0; i < len(p.tok.Str); i++ {
				p.img.EmitByte(p.tok.Str[i])
			}
			if err := p.advance(); err != nil {
				return err
			}
		} else {
			v, err := p.parseValue()
			if err != nil {
				return err
			}
			p.img.EmitByte(byte(v))
		}
		if p.tok.Type != TokenComma {
			return nil
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
}

func (p *parser) parseHalf() error {
	for {
		v, err := p.parseValue()
		if err != nil {
			return err
		}
		p.img.EmitHalf(uint16(v))
		if p.tok.Type != TokenComma {
			return nil
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
}
