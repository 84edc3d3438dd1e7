// Package image reads and writes the SR32 hex listing format: the
// bridge between the assembler's in-memory Image/SymbolTable and the
// emulator's RAM.
package image

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sr32vm/sr32/asmsrc"
	"github.com/sr32vm/sr32/isa"
	"github.com/sr32vm/sr32/vm"
)

// Write emits one listing line per word in img, from its base address
// through its final PC, annotated with the disassembly and any label
// bound to that address.
//
//	AAAAAAAA: WWWWWWWW // BBBBBB DISASM[ <- LABEL]
func Write(w io.Writer, img *asmsrc.Image, syms *asmsrc.SymbolTable) error {
	labels := make(map[uint32][]string)
	for _, e := range syms.Xref() {
		labels[e.DefPC] = append(labels[e.DefPC], e.Name)
	}

	base := img.Base()
	n := uint32(len(img.Bytes()))
	for off := uint32(0); off < n; off += 4 {
		addr := base + off
		word := img.ReadWord(addr)
		line := fmt.Sprintf("%08x: %08x // %s %s", addr, word, isa.ClassBits6(word), isa.Disassemble(addr, word))
		if names := labels[addr]; len(names) > 0 {
			line += " <- " + strings.Join(names, ", ")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Load reads a hex listing and writes every "addr: word" line into mem.
// Lines starting with '#' or '/' are comments; any other line is
// ignored unless it has ':' at column 8 and at least 18 characters of
// payload, matching the original loader's permissiveness.
func Load(r io.Reader, mem *vm.Memory) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' || line[0] == '/' {
			continue
		}
		if len(line) < 18 || line[8] != ':' {
			continue
		}
		addr, err := strconv.ParseUint(line[:8], 16, 32)
		if err != nil {
			continue
		}
		word, err := strconv.ParseUint(strings.TrimSpace(fieldAfterColon(line)), 16, 32)
		if err != nil {
			continue
		}
		mem.WriteWord(uint32(addr), uint32(word))
	}
	return scanner.Err()
}

func fieldAfterColon(line string) string {
	rest := strings.TrimLeft(line[9:], " \t")
	if sp := strings.IndexAny(rest, " \t"); sp >= 0 {
		return rest[:sp]
	}
	return rest
}

// LoadTestVectors scans r for "//>" (expected output words) and "//<"
// (input words) markers, comma-separated values per line, matching the
// original's load_test_data.
func LoadTestVectors(r io.Reader) (in, out []uint32, err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, "//>"); idx >= 0 {
			vals, perr := parseValueList(line[idx+3:])
			if perr != nil {
				return nil, nil, perr
			}
			out = append(out, vals...)
		}
		if idx := strings.Index(line, "//<"); idx >= 0 {
			vals, perr := parseValueList(line[idx+3:])
			if perr != nil {
				return nil, nil, perr
			}
			in = append(in, vals...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return in, out, nil
}

func parseValueList(s string) ([]uint32, error) {
	var out []uint32
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.ParseUint(field, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid test vector value %q: %w", field, err)
		}
		out = append(out, uint32(n))
	}
	return out, nil
}
