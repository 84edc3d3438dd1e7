// Command asm assembles an SR32 source file into a hex listing.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sr32vm/sr32/asmsrc"
	"github.com/sr32vm/sr32/image"
)

func main() {
	xref := flag.Bool("xref", false, "print a symbol cross-reference after assembling")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: asm [-xref] <input> [<output>]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		os.Exit(1)
	}

	inPath := flag.Arg(0)
	outPath := "out.hex"
	if flag.NArg() == 2 {
		outPath = flag.Arg(1)
	}

	src, err := os.ReadFile(inPath) // #nosec G304 -- user-specified assembler input
	if err != nil {
		fmt.Fprintf(os.Stderr, "asm: cannot open: %s\n", inPath)
		os.Exit(1)
	}

	img, syms, err := asmsrc.Assemble(string(src), inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	out, err := os.Create(outPath) // #nosec G304 -- user-specified assembler output
	if err != nil {
		fmt.Fprintf(os.Stderr, "asm: cannot create: %s\n", outPath)
		os.Exit(1)
	}
	defer out.Close()

	if err := image.Write(out, img, syms); err != nil {
		fmt.Fprintf(os.Stderr, "asm: write error: %v\n", err)
		os.Exit(1)
	}

	if *xref {
		printXref(syms)
	}
}

func printXref(syms *asmsrc.SymbolTable) {
	for _, e := range syms.Xref() {
		fmt.Printf("%08x %s\n", e.DefPC, e.Name)
		for _, use := range e.Uses {
			fmt.Printf("         <- %08x\n", use)
		}
	}
}
