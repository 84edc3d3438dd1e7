package vm

import (
	"fmt"

	"github.com/sr32vm/sr32/isa"
)

// DefaultMaxCycles bounds how many instructions Run executes before it
// reports a runaway guest; a test harness can lower it, and the CLI
// exposes it through sr32cfg.
const DefaultMaxCycles = 200_000_000

// Interpreter is the SR32 fetch/decode/execute loop: classical, no
// pipeline modelling, single-threaded.
type Interpreter struct {
	CPU   *CPU
	Mem   *Memory
	Ports *Ports
	Trace *Tracer

	MaxCycles uint64
}

// NewInterpreter wires a CPU, memory and port set into a ready-to-run
// interpreter with tracing disabled.
func NewInterpreter(mem *Memory, ports *Ports) *Interpreter {
	return &Interpreter{CPU: NewCPU(), Mem: mem, Ports: ports, MaxCycles: DefaultMaxCycles}
}

// Run executes from the CPU's current PC until the exit port is
// written, an undefined instruction is fetched, or MaxCycles is spent.
func (vm *Interpreter) Run() error {
	for cycles := uint64(0); vm.MaxCycles == 0 || cycles < vm.MaxCycles; cycles++ {
		done, err := vm.Step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return fmt.Errorf("PC=%08x: exceeded %d cycle budget", vm.CPU.PC, vm.MaxCycles)
}

// Step fetches, decodes and executes exactly one instruction. done is
// true once the guest has written the exit port.
func (vm *Interpreter) Step() (done bool, err error) {
	pc := vm.CPU.PC
	ins := vm.Mem.ReadWord(pc)
	vm.Trace.Fetch(pc, ins)
	vm.CPU.PC = pc + 4

	class := isa.Class(ins)
	switch {
	case class <= isa.ClassALU3:
		err = vm.execALU(pc, ins)
	case class == isa.ClassLoad:
		err = vm.execLoad(ins)
	case class == isa.ClassStore:
		err = vm.execStore(pc, ins)
	case class == isa.ClassBranch:
		err = vm.execBranch(pc, ins)
	default: // isa.ClassJump
		err = vm.execJump(pc, ins)
	}
	if err != nil {
		return false, err
	}
	return vm.Ports.Exited, nil
}

func undefinedInstr(pc, ins uint32) error {
	return fmt.Errorf("UNDEF INSTR (PC=%08x INS=%08x)", pc, ins)
}

// execALU runs classes 0..3: ALU register/immediate forms, including
// JALR (sub-op 15).
func (vm *Interpreter) execALU(pc, ins uint32) error {
	rt := isa.GetRT(ins)
	ra := isa.GetRA(ins)
	subop := isa.Subop(ins)

	a := vm.CPU.Get(ra)
	var b int32
	if isa.AluIsReg(ins) {
		b = vm.CPU.Get(isa.GetRB(ins))
	} else {
		b = isa.GetImm16(ins)
	}

	if subop == isa.AluJalr {
		ret := int32(vm.CPU.PC)
		target := uint32(a + b)
		vm.CPU.Set(rt, ret)
		if rt != 0 {
			vm.Trace.Reg(rt, ret)
		}
		vm.Trace.Branch(pc, target, true)
		vm.CPU.PC = target
		return nil
	}

	var n int32
	switch subop {
	case isa.AluAdd:
		n = a + b
	case isa.AluSub:
		n = a - b
	case isa.AluAnd:
		n = a & b
	case isa.AluOr:
		n = a | b
	case isa.AluXor:
		n = a ^ b
	case isa.AluSll:
		n = a << (uint32(b) & 31)
	case isa.AluSrl:
		n = int32(uint32(a) >> (uint32(b) & 31))
	case isa.AluSra:
		n = a >> (uint32(b) & 31)
	case isa.AluSlt:
		if a < b {
			n = 1
		}
	case isa.AluSltu:
		if uint32(a) < uint32(b) {
			n = 1
		}
	case isa.AluMul:
		n = a * b
	case isa.AluDiv:
		if b == 0 {
			return fmt.Errorf("PC=%08x: division by zero", pc)
		}
		n = a / b
	default:
		return undefinedInstr(pc, ins)
	}
	vm.CPU.Set(rt, n)
	if rt != 0 {
		vm.Trace.Reg(rt, n)
	}
	return nil
}

// execLoad runs class 4: LDW/LDH/LDB/LDX/LUI/LDHU/LDBU/AUIPC. Every
// 3-bit sub-op value is defined, so there is no undefined case here.
func (vm *Interpreter) execLoad(ins uint32) error {
	rt := isa.GetRT(ins)
	ra := isa.GetRA(ins)
	imm := isa.GetImm16(ins)
	addr := uint32(vm.CPU.Get(ra) + imm)

	var n int32
	switch isa.Subop(ins) & 0x7 {
	case isa.LoadLdw:
		n = int32(vm.Mem.ReadWord(addr))
	case isa.LoadLdh:
		n = int32(int16(vm.Mem.ReadHalf(addr)))
	case isa.LoadLdb:
		n = int32(int8(vm.Mem.ReadByte(addr)))
	case isa.LoadLdx:
		v, err := vm.Ports.Read(vm.CPU.PC-4, addr)
		if err != nil {
			return err
		}
		vm.Trace.IORead(v)
		n = int32(v)
	case isa.LoadLui:
		n = int32(ins & 0xFFFF0000)
	case isa.LoadLdhu:
		n = int32(uint32(vm.Mem.ReadHalf(addr)))
	case isa.LoadLdbu:
		n = int32(uint32(vm.Mem.ReadByte(addr)))
	case isa.LoadAuipc:
		n = int32(vm.CPU.PC + (ins & 0xFFFF0000))
	}
	vm.CPU.Set(rt, n)
	if rt != 0 {
		vm.Trace.Reg(rt, n)
	}
	return nil
}

// execStore runs class 5: STW/STH/STB/STX. The value register occupies
// the rt bit slot, not rb -- see isa.InsS.
func (vm *Interpreter) execStore(pc, ins uint32) error {
	ra := isa.GetRA(ins)
	valReg := isa.GetRT(ins)
	imm := isa.GetImm16(ins)
	addr := uint32(vm.CPU.Get(ra) + imm)
	v := uint32(vm.CPU.Get(valReg))

	switch isa.Subop(ins) & 0x7 {
	case isa.StoreStw:
		vm.Mem.WriteWord(addr, v)
	case isa.StoreSth:
		vm.Mem.WriteHalf(addr, uint16(v))
	case isa.StoreStb:
		vm.Mem.WriteByte(addr, byte(v))
	case isa.StoreStx:
		vm.Trace.IOWrite(v)
		return vm.Ports.Write(pc, addr, v)
	default:
		return undefinedInstr(pc, ins)
	}
	return nil
}

// execBranch runs class 6. The second register operand occupies the rt
// bit slot, not rb -- see isa.InsB.
func (vm *Interpreter) execBranch(pc, ins uint32) error {
	a := vm.CPU.Get(isa.GetRA(ins))
	b := vm.CPU.Get(isa.GetRT(ins))

	var taken bool
	switch isa.Subop(ins) & 0x7 {
	case isa.BranchBeq:
		taken = a == b
	case isa.BranchBne:
		taken = a != b
	case isa.BranchBlt:
		taken = a < b
	case isa.BranchBltu:
		taken = uint32(a) < uint32(b)
	case isa.BranchBge:
		taken = a >= b
	case isa.BranchBgeu:
		taken = uint32(a) >= uint32(b)
	default:
		return undefinedInstr(pc, ins)
	}

	target := vm.CPU.PC
	if taken {
		target = uint32(int32(vm.CPU.PC) + isa.GetImm16(ins))
		vm.CPU.PC = target
	}
	vm.Trace.Branch(pc, target, taken)
	return nil
}

// execJump runs class 7: JAL and SYSCALL execute; BREAK and SYSRET are
// reserved and currently undefined.
func (vm *Interpreter) execJump(pc, ins uint32) error {
	switch isa.Subop(ins) & 0x7 {
	case isa.JumpJal:
		rt := isa.GetRT(ins)
		ret := int32(vm.CPU.PC)
		target := uint32(int32(vm.CPU.PC) + isa.GetImm21(ins))
		vm.CPU.Set(rt, ret)
		if rt != 0 {
			vm.Trace.Reg(rt, ret)
		}
		vm.Trace.Branch(pc, target, true)
		vm.CPU.PC = target
		return nil
	case isa.JumpSyscall:
		// No syscalls are defined; the hook exists for a guest to
		// invoke one, but the default handler is a no-op.
		return nil
	default:
		return undefinedInstr(pc, ins)
	}
}
