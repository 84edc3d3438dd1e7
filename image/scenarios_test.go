package image

import (
	"strings"
	"testing"

	"github.com/sr32vm/sr32/asmsrc"
	"github.com/sr32vm/sr32/isa"
	"github.com/sr32vm/sr32/vm"
)

func assembleAndLoad(t *testing.T, src string) (*asmsrc.Image, *vm.Memory) {
	t.Helper()
	img, _, err := asmsrc.Assemble(src, "scenario.s")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	mem := vm.NewMemory(23)
	mem.LoadBytes(img.Base(), img.Bytes())
	return img, mem
}

// S1: a two-word program that writes the exit port exits 0.
func TestScenarioHelloExit(t *testing.T) {
	src := "li x6, 0xFFFFFFFD\n" +
		"stx x0, (x6)\n"
	img, mem := assembleAndLoad(t, src)
	if got := len(img.Bytes()); got != 8 {
		t.Fatalf("program is %d bytes, want 8 (two words)", got)
	}

	ports := vm.NewPorts(nil)
	interp := vm.NewInterpreter(mem, ports)
	interp.CPU.PC = img.Base()
	if err := interp.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ports.Exited || ports.ExitCode != 0 {
		t.Errorf("Exited=%v ExitCode=%d, want true/0", ports.Exited, ports.ExitCode)
	}
}

// S2: echoing argc to the test-vector port succeeds against a matching
// expected value and fails with an "output data ... should be" message
// against a mismatched one.
func TestScenarioEchoArgc(t *testing.T) {
	src := "li x6, 0xFFFFFFFF\n" +
		"li x7, 0xFFFFFFFD\n" +
		"stx x4, 0(x6)\n" +
		"stx x0, (x7)\n"

	run := func(argc int32, expect uint32) error {
		_, mem := assembleAndLoad(t, src)
		ports := vm.NewPorts(nil)
		ports.Out = []uint32{expect}
		interp := vm.NewInterpreter(mem, ports)
		interp.CPU.PC = asmsrc.EntryBase
		interp.CPU.Set(4, argc)
		return interp.Run()
	}

	if err := run(3, 3); err != nil {
		t.Errorf("matching argc: unexpected error: %v", err)
	}
	err := run(3, 2)
	if err == nil {
		t.Fatal("mismatched argc: expected an error, got nil")
	}
	if !strings.Contains(err.Error(), "output data") || !strings.Contains(err.Error(), "should be") {
		t.Errorf("error = %q, want an \"output data ... should be\" message", err.Error())
	}
}

// S3: a forward branch over a li that would otherwise overwrite x5.
func TestScenarioForwardBranch(t *testing.T) {
	src := "li x6, 0xFFFFFFFF\n" +
		"li x7, 0xFFFFFFFD\n" +
		"li x5, 0\n" +
		"beq x5, x0, L\n" +
		"li x5, 1\n" +
		"L:\n" +
		"stx x5, (x6)\n" +
		"stx x0, (x7)\n"
	_, mem := assembleAndLoad(t, src)
	ports := vm.NewPorts(nil)
	ports.Out = []uint32{0}
	interp := vm.NewInterpreter(mem, ports)
	interp.CPU.PC = asmsrc.EntryBase
	if err := interp.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

// S4: LI of a constant wider than 16 bits splits into LUI+ADDI, rounding
// hi up when the low half's sign bit would otherwise corrupt it.
func TestScenarioLIOver16Bits(t *testing.T) {
	_, mem := assembleAndLoad(t, "li x10, 0xDEADBEEF\n")
	ports := vm.NewPorts(nil)
	interp := vm.NewInterpreter(mem, ports)
	interp.CPU.PC = asmsrc.EntryBase

	if _, err := interp.Step(); err != nil {
		t.Fatalf("Step (lui): %v", err)
	}
	if _, err := interp.Step(); err != nil {
		t.Fatalf("Step (addi): %v", err)
	}
	if got := uint32(interp.CPU.Get(10)); got != 0xDEADBEEF {
		t.Errorf("x10 = %08x, want deadbeef", got)
	}
}

// S5: with no guest prologue, ret jumps to the preloaded lr, which holds
// a halt word that exits 0.
func TestScenarioRetViaPreloadedLR(t *testing.T) {
	const haltWord = 0xfffd006b
	_, mem := assembleAndLoad(t, "ret\n")

	lr := uint32(asmsrc.EntryBase - 16)
	mem.WriteWord(lr, haltWord)

	ports := vm.NewPorts(nil)
	interp := vm.NewInterpreter(mem, ports)
	interp.CPU.PC = asmsrc.EntryBase
	interp.CPU.Set(1, int32(lr))

	if err := interp.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ports.Exited || ports.ExitCode != 0 {
		t.Errorf("Exited=%v ExitCode=%d, want true/0", ports.Exited, ports.ExitCode)
	}
}

// S6: word 0x00000007 is a defined no-op (class-0 SRA, rt=ra=0,
// imm=0); word 0x00000037 is an undefined branch sub-op and aborts.
func TestScenarioUndefinedInstruction(t *testing.T) {
	mem := vm.NewMemory(23)
	mem.WriteWord(asmsrc.EntryBase, 0x00000007)
	ports := vm.NewPorts(nil)
	interp := vm.NewInterpreter(mem, ports)
	interp.CPU.PC = asmsrc.EntryBase
	if _, err := interp.Step(); err != nil {
		t.Fatalf("0x00000007 should be a defined no-op, got error: %v", err)
	}

	if isa.Class(0x00000007) > isa.ClassALU3 {
		t.Fatalf("test setup: 0x00000007 is not an ALU-class word")
	}

	mem2 := vm.NewMemory(23)
	mem2.WriteWord(asmsrc.EntryBase, 0x00000037)
	ports2 := vm.NewPorts(nil)
	interp2 := vm.NewInterpreter(mem2, ports2)
	interp2.CPU.PC = asmsrc.EntryBase
	_, err := interp2.Step()
	if err == nil {
		t.Fatal("0x00000037 should be an undefined instruction, got nil error")
	}
	if !strings.Contains(err.Error(), "UNDEF INSTR") {
		t.Errorf("error = %q, want to contain \"UNDEF INSTR\"", err.Error())
	}
}
