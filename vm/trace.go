package vm

import (
	"fmt"
	"io"

	"github.com/sr32vm/sr32/isa"
)

// TraceFlags is the bitset of trace categories the interpreter can emit
// per cycle, matching the emulator's -tf/-tr/-tb/-ti options.
type TraceFlags uint32

const (
	TraceFetch TraceFlags = 1 << iota
	TraceRegs
	TraceBranch
	TraceIO
)

// Tracer writes selected execution trace categories to W as the
// interpreter runs. A nil *Tracer traces nothing.
type Tracer struct {
	Flags TraceFlags
	W     io.Writer
}

func (t *Tracer) has(f TraceFlags) bool {
	return t != nil && t.Flags&f != 0
}

// Fetch reports one fetched word as its address and raw value.
func (t *Tracer) Fetch(pc, ins uint32) {
	if !t.has(TraceFetch) {
		return
	}
	fmt.Fprintf(t.W, "%08x %08x\n", pc, ins)
}

// Reg reports a register write.
func (t *Tracer) Reg(r uint32, v int32) {
	if !t.has(TraceRegs) {
		return
	}
	fmt.Fprintf(t.W, "%08x -> %s\n", uint32(v), isa.RegNames[r&0x1F])
}

// Branch reports a branch/jump; only taken ones produce a line.
func (t *Tracer) Branch(from, to uint32, taken bool) {
	if !t.has(TraceBranch) {
		return
	}
	if taken {
		fmt.Fprintf(t.W, "%08x -> %08x\n", from, to)
	}
}

// IORead reports an IO port read.
func (t *Tracer) IORead(v uint32) {
	if !t.has(TraceIO) {
		return
	}
	fmt.Fprintf(t.W, "< %08x\n", v)
}

// IOWrite reports an IO port write.
func (t *Tracer) IOWrite(v uint32) {
	if !t.has(TraceIO) {
		return
	}
	fmt.Fprintf(t.W, "> %08x\n", v)
}
