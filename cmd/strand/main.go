// Strand runs programs written as YAML module documents on the strand
// evaluation core.
package main

import (
	"os"

	"src.strand.sh/pkg/buildinfo"
	"src.strand.sh/pkg/prog"
	"src.strand.sh/pkg/runner"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(buildinfo.Program{}, runner.Program{})))
}
