package sr32cfg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	want := DefaultConfig()
	if *cfg != *want {
		t.Errorf("LoadFrom(missing) = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadFromOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sr32.toml")
	body := `
[ram]
size_log2 = 20

[execution]
max_cycles = 1000
default_entry = 0x200000

[trace]
fetch = true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Ram.SizeLog2 != 20 {
		t.Errorf("Ram.SizeLog2 = %d, want 20", cfg.Ram.SizeLog2)
	}
	if cfg.Execution.MaxCycles != 1000 {
		t.Errorf("Execution.MaxCycles = %d, want 1000", cfg.Execution.MaxCycles)
	}
	if cfg.Execution.DefaultEntry != 0x200000 {
		t.Errorf("Execution.DefaultEntry = %08x, want 00200000", cfg.Execution.DefaultEntry)
	}
	if !cfg.Trace.Fetch {
		t.Error("Trace.Fetch = false, want true")
	}
	if cfg.Trace.Regs {
		t.Error("Trace.Regs = true, want false (not set in the file)")
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Ram.SizeLog2 != 23 {
		t.Errorf("default Ram.SizeLog2 = %d, want 23", cfg.Ram.SizeLog2)
	}
	if cfg.Execution.MaxCycles != 200_000_000 {
		t.Errorf("default Execution.MaxCycles = %d, want 200000000", cfg.Execution.MaxCycles)
	}
	if cfg.Execution.DefaultEntry != 0x100000 {
		t.Errorf("default Execution.DefaultEntry = %08x, want 00100000", cfg.Execution.DefaultEntry)
	}
}
