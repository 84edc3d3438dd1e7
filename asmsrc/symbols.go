package asmsrc

import (
	"strings"

	"github.com/sr32vm/sr32/isa"
)

// FixupKind identifies how a queued fixup patches the word(s) at its
// site once the symbol it references is defined.
type FixupKind int

const (
	FixupPCRelS16 FixupKind = iota
	FixupPCRelS21
	FixupAbsU32
	FixupAbsHiLo
	FixupPCRelHiLo
)

// Fixup records one instruction field still waiting on a label. SitePC
// is the address of the first word of the instruction (or, for the
// HILO kinds, the first word of the LUI/AUIPC + ADDI pair).
type Fixup struct {
	SitePC uint32
	Kind   FixupKind
	Pos    Position
}

// Symbol is either defined (bound to PC) or pending. Fixups lists every
// site that referenced it, in the order they were queued; sites queued
// while it was pending are resolved when SetLabel defines it.
type Symbol struct {
	Name    string
	PC      uint32
	Defined bool
	DefPos  Position
	Fixups  []Fixup
}

// XrefEntry is one row of the -xref report: a symbol's definition site
// and the address of every fixup that referenced it.
type XrefEntry struct {
	Name string
	DefPC uint32
	Uses  []uint32
}

// SymbolTable owns every symbol for one assembly. Label lookups compare
// case-insensitively; the table still remembers and reports the name as
// the programmer first wrote it.
type SymbolTable struct {
	img   *Image
	order []string
	syms  map[string]*Symbol
}

// NewSymbolTable creates an empty table bound to img, which fixups patch
// in place as symbols are defined.
func NewSymbolTable(img *Image) *SymbolTable {
	return &SymbolTable{img: img, syms: make(map[string]*Symbol)}
}

func key(name string) string { return strings.ToLower(name) }

func (st *SymbolTable) get(name string) *Symbol {
	k := key(name)
	if sym, ok := st.syms[k]; ok {
		return sym
	}
	sym := &Symbol{Name: name}
	st.syms[k] = sym
	st.order = append(st.order, k)
	return sym
}

// Reference queues a fixup against name. If name is already defined the
// fixup is resolved immediately; otherwise it joins the symbol's pending
// list until a later SetLabel resolves it.
func (st *SymbolTable) Reference(name string, f Fixup) error {
	sym := st.get(name)
	sym.Fixups = append(sym.Fixups, f)
	if sym.Defined {
		return doFixup(st.img, f.SitePC, sym.PC, f.Kind, f.Pos, name)
	}
	return nil
}

// SetLabel binds name to pc. It is an error to redefine a symbol that is
// already defined; otherwise every fixup queued against it is resolved
// against pc immediately.
func (st *SymbolTable) SetLabel(name string, pc uint32, pos Position) error {
	sym := st.get(name)
	if sym.Defined {
		return newError(pos, ErrorDuplicateLabel, "label %q already defined at %s", name, sym.DefPos)
	}
	sym.PC = pc
	sym.Defined = true
	sym.DefPos = pos
	for _, f := range sym.Fixups {
		if err := doFixup(st.img, f.SitePC, pc, f.Kind, f.Pos, name); err != nil {
			return err
		}
	}
	return nil
}

// Equ binds name to a literal value rather than an address. It shares
// the label namespace, so a branch, jump or word that names it resolves
// against that value as if it were an address.
func (st *SymbolTable) Equ(name string, value uint32, pos Position) error {
	return st.SetLabel(name, value, pos)
}

// Lookup reports a symbol's bound value, if it is currently defined.
func (st *SymbolTable) Lookup(name string) (uint32, bool) {
	sym, ok := st.syms[key(name)]
	if !ok || !sym.Defined {
		return 0, false
	}
	return sym.PC, true
}

// CheckLabels fails the assembly if any symbol is still pending.
func (st *SymbolTable) CheckLabels() error {
	for _, k := range st.order {
		sym := st.syms[k]
		if !sym.Defined {
			pos := Position{}
			if len(sym.Fixups) > 0 {
				pos = sym.Fixups[0].Pos
			}
			return newError(pos, ErrorUndefinedLabel, "undefined label %q", sym.Name)
		}
	}
	return nil
}

// Xref returns one entry per defined symbol, in order of each symbol's
// first appearance (reference or definition), naming
// the address of every fixup site that referenced it.
func (st *SymbolTable) Xref() []XrefEntry {
	var out []XrefEntry
	for _, k := range st.order {
		sym := st.syms[k]
		if !sym.Defined {
			continue
		}
		e := XrefEntry{Name: sym.Name, DefPC: sym.PC}
		for _, f := range sym.Fixups {
			e.Uses = append(e.Uses, f.SitePC)
		}
		out = append(out, e)
	}
	return out
}

// doFixup patches the word(s) at sitePC in img according to kind. "OR
// into" rests on the invariant that the field being patched was emitted
// as zero, enforced by the encoder at emission time.
func doFixup(img *Image, sitePC, target uint32, kind FixupKind, pos Position, name string) error {
	switch kind {
	case FixupPCRelS16:
		n := int64(int32(target - (sitePC + 4)))
		if !isa.IsSigned16(n) {
			return newError(pos, ErrorRange, "branch to %q at 0x%08x out of range from 0x%08x", name, target, sitePC)
		}
		img.Or32(sitePC, uint32(int32(n))<<16)
	case FixupPCRelS21:
		n := int64(int32(target - (sitePC + 4)))
		if !isa.IsSigned21(n) {
			return newError(pos, ErrorRange, "jump to %q at 0x%08x out of range from 0x%08x", name, target, sitePC)
		}
		img.Or32(sitePC, uint32(int32(n))<<11)
	case FixupAbsU32:
		img.WriteWord(sitePC, target)
	case FixupAbsHiLo:
		patchHiLo(img, sitePC, target)
	case FixupPCRelHiLo:
		n := target - (sitePC + 4)
		patchHiLo(img, sitePC, n)
	}
	return nil
}

func patchHiLo(img *Image, sitePC, value uint32) {
	hi := value >> 16
	lo := value & 0xffff
	if lo&0x8000 != 0 {
		hi++
	}
	img.Or32(sitePC, hi<<16)
	img.Or32(sitePC+4, lo<<16)
}
