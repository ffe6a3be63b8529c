// spvdis - SPIR-V disassembler
// Generates .spvasm-like text. Reads raw, .lz4 and .xz modules.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/gogpu/spvxform/internal/blobio"
	"github.com/gogpu/spvxform/spirv"
)

var (
	friendly = flag.Bool("friendly-names", false, "print ids by their OpName")
	check    = flag.Bool("validate", false, "check module structure before printing")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: spvdis [options] <file.spv>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		return
	}

	blob, err := blobio.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *check {
		if err := spirv.Validate(blob); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	w := bufio.NewWriter(os.Stdout)
	err = spirv.DisassembleWithOptions(w, blob, spirv.DisassembleOptions{FriendlyNames: *friendly})
	if flushErr := w.Flush(); err == nil {
		err = flushErr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
