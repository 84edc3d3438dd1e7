// Package watch is an optional live register/disassembly viewer for
// the emulator (`emu -tui`), a pure alternate renderer over the same
// trace data the plain -tf/-tr/-tb/-ti flags print to stderr. It never
// changes interpreter semantics.
package watch

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/sr32vm/sr32/isa"
	"github.com/sr32vm/sr32/vm"
)

// Snapshot is one fetch cycle's worth of state, sent from the
// interpreter goroutine to the UI goroutine.
type Snapshot struct {
	PC     uint32
	Ins    uint32
	Disasm string
	Class  string
	Regs   [32]int32
}

// Run drives interp to completion while rendering a tview UI of its
// state, refreshed once per fetch. The interpreter runs on its own
// goroutine; the UI goroutine only ever reads snapshots off a single
// buffered channel and redraws. Pressing 'q' or Ctrl-C stops the
// interpreter loop and exits cleanly.
func Run(interp *vm.Interpreter) error {
	app := tview.NewApplication()

	disasmView := tview.NewTextView().SetDynamicColors(true)
	disasmView.SetBorder(true).SetTitle(" Fetch ")

	classView := tview.NewTextView().SetDynamicColors(true)
	classView.SetBorder(true).SetTitle(" Class bits (BBBBBB) ")

	regView := tview.NewTextView().SetDynamicColors(true)
	regView.SetBorder(true).SetTitle(" Registers ")

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(disasmView, 3, 0, false).
		AddItem(classView, 3, 0, false).
		AddItem(regView, 0, 1, false)

	snapshots := make(chan Snapshot, 16)
	stop := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- drive(interp, snapshots, stop)
		close(snapshots)
	}()

	app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
			select {
			case <-stop:
			default:
				close(stop)
			}
			return nil
		}
		return ev
	})

	go func() {
		for snap := range snapshots {
			snap := snap
			app.QueueUpdateDraw(func() {
				disasmView.SetText(fmt.Sprintf("%08x: %08x  %s", snap.PC, snap.Ins, snap.Disasm))
				classView.SetText(snap.Class)
				regView.SetText(formatRegs(snap.Regs))
			})
		}
		app.Stop()
	}()

	if err := app.SetRoot(layout, true).Run(); err != nil {
		return err
	}
	return <-done
}

func drive(interp *vm.Interpreter, out chan<- Snapshot, stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		pc := interp.CPU.PC
		ins := interp.Mem.ReadWord(pc)
		snap := Snapshot{
			PC:     pc,
			Ins:    ins,
			Disasm: isa.Disassemble(pc, ins),
			Class:  isa.ClassBits6(ins),
			Regs:   interp.CPU.R,
		}

		stepDone, err := interp.Step()

		select {
		case out <- snap:
		case <-stop:
			return nil
		}

		if err != nil {
			return err
		}
		if stepDone {
			return nil
		}
	}
}

func formatRegs(r [32]int32) string {
	var b strings.Builder
	for i := 0; i < 32; i += 4 {
		for j := i; j < i+4; j++ {
			fmt.Fprintf(&b, "%-5s %08x  ", isa.RegNames[j], uint32(r[j]))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
