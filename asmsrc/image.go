package asmsrc

import "encoding/binary"

// Image is the assembler's output buffer: bytes at addresses starting
// at base, growing on demand as PC advances. A real fixed-size target
// would cap this; nothing in the toolchain needs that cap enforced at
// assembly time, so the buffer simply grows to fit what was emitted.
type Image struct {
	base  uint32
	bytes []byte
	pc    uint32
}

// NewImage creates an image whose first emitted byte lands at base.
func NewImage(base uint32) *Image {
	return &Image{base: base, pc: base}
}

// Base returns the image's starting address.
func (img *Image) Base() uint32 { return img.base }

// PC returns the current emission address.
func (img *Image) PC() uint32 { return img.pc }

// Bytes returns the bytes emitted so far, starting at Base().
func (img *Image) Bytes() []byte { return img.bytes }

func (img *Image) ensure(offset int) {
	if offset > len(img.bytes) {
		grown := make([]byte, offset)
		copy(grown, img.bytes)
		img.bytes = grown
	}
}

func (img *Image) offset(addr uint32) int { return int(addr - img.base) }

// AlignWord rounds PC up to the next multiple of 4, padding with
// whatever bytes already occupy the gap (matching the original
// assembler's behaviour rather than zero-filling it).
func (img *Image) AlignWord() {
	if rem := img.pc % 4; rem != 0 {
		img.pc += 4 - rem
	}
	img.ensure(img.offset(img.pc))
}

// EmitWord aligns PC to a word boundary, writes w there, advances PC by
// 4, and returns the address the word was written at (its "site" for
// any fixup the caller queues against it).
func (img *Image) EmitWord(w uint32) uint32 {
	img.AlignWord()
	site := img.pc
	img.WriteWord(site, w)
	img.pc += 4
	return site
}

// EmitHalf writes a little-endian 16-bit value at PC and advances PC by
// two, without forcing any particular alignment first -- matching the
// permissiveness BYTE already has.
func (img *Image) EmitHalf(v uint16) {
	off := img.offset(img.pc)
	img.ensure(off + 2)
	binary.LittleEndian.PutUint16(img.bytes[off:], v)
	img.pc += 2
}

// EmitByte writes a single byte at PC and advances PC by one, which may
// leave PC unaligned until the next instruction realigns it.
func (img *Image) EmitByte(b byte) {
	off := img.offset(img.pc)
	img.ensure(off + 1)
	img.bytes[off] = b
	img.pc++
}

// WriteWord writes a little-endian 32-bit word at an absolute address,
// independent of PC. Used both for direct emission and by fixups.
func (img *Image) WriteWord(addr, w uint32) {
	off := img.offset(addr)
	img.ensure(off + 4)
	binary.LittleEndian.PutUint32(img.bytes[off:], w)
}

// ReadWord reads the little-endian 32-bit word at an absolute address.
func (img *Image) ReadWord(addr uint32) uint32 {
	off := img.offset(addr)
	if off < 0 || off+4 > len(img.bytes) {
		return 0
	}
	return binary.LittleEndian.Uint32(img.bytes[off:])
}

// Or32 ORs bits into the word at addr, relying on the fixup invariant
// that the field being patched was emitted as zero.
func (img *Image) Or32(addr, bits uint32) {
	img.WriteWord(addr, img.ReadWord(addr)|bits)
}
