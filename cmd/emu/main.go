// Command emu runs an SR32 hex listing against flat RAM and the three
// well-known I/O ports.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sr32vm/sr32/image"
	"github.com/sr32vm/sr32/sr32cfg"
	"github.com/sr32vm/sr32/vm"
	"github.com/sr32vm/sr32/watch"
)

// haltWord is a preloaded "stx x1, -3(x0)" -- address x0-3 is the exit
// port regardless of what's pre-seeded in any register, and the value
// written (x1, the link register) is ignored by the exit port anyway.
// RET from a guest's entry point (which has no prologue of its own)
// lands here and halts with exit code 0.
const haltWord = 0xfffd006b

func main() {
	testData := flag.String("x", "", "load test vector data")
	traceFetch := flag.Bool("tf", false, "trace instruction fetches")
	traceRegs := flag.Bool("tr", false, "trace register writes")
	traceBranch := flag.Bool("tb", false, "trace branches")
	traceIO := flag.Bool("ti", false, "trace IO reads & writes")
	tui := flag.Bool("tui", false, "live register/disassembly viewer")
	configPath := flag.String("config", "", "path to a sr32cfg TOML file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: emu [options] <image.hex> [guest-args...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	imagePath := flag.Arg(0)
	guestArgs := flag.Args()[1:]

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emu: %v\n", err)
		os.Exit(1)
	}

	mem := vm.NewMemory(cfg.Ram.SizeLog2)
	if err := loadImage(imagePath, mem); err != nil {
		fmt.Fprintf(os.Stderr, "emu: %v\n", err)
		os.Exit(1)
	}

	ports := vm.NewPorts(os.Stderr)
	if *testData != "" {
		in, out, err := loadTestVectors(*testData)
		if err != nil {
			fmt.Fprintf(os.Stderr, "emu: %v\n", err)
			os.Exit(1)
		}
		ports.In, ports.Out = in, out
	}

	entry := cfg.Execution.DefaultEntry
	interp := vm.NewInterpreter(mem, ports)
	interp.MaxCycles = cfg.Execution.MaxCycles
	interp.Trace = buildTracer(cfg, *traceFetch, *traceRegs, *traceBranch, *traceIO)

	seedEntry(interp, mem, entry, guestArgs)

	if *tui {
		err = watch.Run(interp)
	} else {
		err = interp.Run()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	os.Exit(ports.ExitCode)
}

func loadConfig(path string) (*sr32cfg.Config, error) {
	if path != "" {
		return sr32cfg.LoadFrom(path)
	}
	return sr32cfg.Load()
}

func loadImage(path string, mem *vm.Memory) error {
	f, err := os.Open(path) // #nosec G304 -- user-specified emulator input
	if err != nil {
		return fmt.Errorf("cannot open: %s", path)
	}
	defer f.Close()
	return image.Load(f, mem)
}

func loadTestVectors(path string) (in, out []uint32, err error) {
	f, err := os.Open(path) // #nosec G304 -- user-specified test vector file
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open: %s", path)
	}
	defer f.Close()
	return image.LoadTestVectors(f)
}

func buildTracer(cfg *sr32cfg.Config, tf, tr, tb, ti bool) *vm.Tracer {
	var flags vm.TraceFlags
	if tf || cfg.Trace.Fetch {
		flags |= vm.TraceFetch
	}
	if tr || cfg.Trace.Regs {
		flags |= vm.TraceRegs
	}
	if tb || cfg.Trace.Branch {
		flags |= vm.TraceBranch
	}
	if ti || cfg.Trace.IO {
		flags |= vm.TraceIO
	}
	return &vm.Tracer{Flags: flags, W: os.Stderr}
}

// seedEntry stages guest argc/argv on the stack just below entry, the
// way the original's main() does: a preloaded halt word at lr, then
// (if there are guest arguments) a NUL-terminated argv vector and
// argument bytes packed below it, each argument word-aligned.
func seedEntry(interp *vm.Interpreter, mem *vm.Memory, entry uint32, args []string) {
	sp := entry - 16
	lr := sp
	mem.WriteWord(lr, haltWord)

	var argv uint32
	if len(args) > 0 {
		sp -= uint32(len(args)+1) * 4
		argv = sp
		p := argv
		for _, a := range args {
			n := uint32(len(a) + 1)
			sp -= (n + 3) &^ 3
			mem.LoadBytes(sp, append([]byte(a), 0))
			mem.WriteWord(p, sp)
			p += 4
		}
		mem.WriteWord(p, 0)
	}

	interp.CPU.PC = entry
	interp.CPU.Set(1, int32(lr))
	interp.CPU.Set(2, int32(sp))
	interp.CPU.Set(4, int32(len(args)))
	interp.CPU.Set(5, int32(argv))
}
