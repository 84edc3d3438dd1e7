package watch

import (
	"testing"
	"time"

	"github.com/sr32vm/sr32/isa"
	"github.com/sr32vm/sr32/vm"
)

// TestDriveCompletesOnExit runs a one-instruction program that writes the
// exit port, and checks drive() terminates and reports no error instead
// of blocking forever -- mirroring the teacher's executeCommand-deadlock
// style of test for code that talks to a channel-driven goroutine.
func TestDriveCompletesOnExit(t *testing.T) {
	mem := vm.NewMemory(16)
	ports := vm.NewPorts(nil)
	interp := vm.NewInterpreter(mem, ports)
	port := vm.PortExit
	interp.CPU.Set(6, int32(port))
	mem.WriteWord(0, isa.InsS(0, 6, 0, isa.StoreStx)) // stx x0, 0(x6)

	snapshots := make(chan Snapshot, 16)
	stop := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- drive(interp, snapshots, stop)
		close(snapshots)
	}()

	var got []Snapshot
	timeout := time.After(2 * time.Second)
	for finished := false; !finished; {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				finished = true
				continue
			}
			got = append(got, snap)
		case err := <-done:
			if err != nil {
				t.Fatalf("drive: %v", err)
			}
			// Keep draining: the goroutine closes snapshots right after
			// this send, and a buffered snapshot may still be unread.
			done = nil
		case <-timeout:
			t.Fatal("drive did not complete within 2 seconds")
		}
	}

	if len(got) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(got))
	}
	if got[0].PC != 0 {
		t.Errorf("snapshot PC = %08x, want 0", got[0].PC)
	}
}

// TestDriveStopsOnSignal checks that closing stop unblocks drive() even
// mid-run, so the UI's 'q'/Ctrl-C handler can never deadlock waiting for
// an infinite guest loop to finish on its own.
func TestDriveStopsOnSignal(t *testing.T) {
	mem := vm.NewMemory(16)
	ports := vm.NewPorts(nil)
	interp := vm.NewInterpreter(mem, ports)
	// beq x0, x0, self -- an infinite loop.
	mem.WriteWord(0, isa.InsB(0xFFFC, 0, 0, isa.BranchBeq)) // imm16 = -4

	snapshots := make(chan Snapshot)
	stop := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- drive(interp, snapshots, stop)
	}()

	// Drain exactly one snapshot, then signal stop.
	select {
	case <-snapshots:
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received within 2 seconds")
	}
	close(stop)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("drive after stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("drive did not stop within 2 seconds of the stop signal")
	}
}
