package prog_test

import (
	"os"
	"path/filepath"
	"testing"

	. "src.strand.sh/pkg/prog"
	"src.strand.sh/pkg/prog/progtest"
)

var (
	Test       = progtest.Test
	ThatStrand = progtest.ThatStrand
)

func TestCommonFlagHandling(t *testing.T) {
	dir := t.TempDir()
	cpuprof := filepath.Join(dir, "cpuprof")

	Test(t, testProgram{},
		ThatStrand("-bad-flag").
			ExitsWith(2).
			WritesStderrContaining("flag provided but not defined: -bad-flag\nUsage:"),
		// -h is treated as a bad flag
		ThatStrand("-h").
			ExitsWith(2).
			WritesStderrContaining("flag provided but not defined: -h\nUsage:"),

		ThatStrand("-help").
			WritesStdoutContaining("Usage: strand [flags] program.yaml"),

		ThatStrand("-cpuprofile", cpuprof).DoesNothing(),
		ThatStrand("-cpuprofile", "/a/bad/path").
			WritesStderrContaining("Warning: cannot create CPU profile:"),
		ThatStrand("-log", filepath.Join(dir, "log")).DoesNothing(),
	)

	// Check for the effect of -cpuprofile. There isn't much to test beyond a
	// sanity check that the profile file now exists.
	_, err := os.Stat(cpuprof)
	if err != nil {
		t.Errorf("CPU profile file does not exist: %v", err)
	}
}

func TestFlags(t *testing.T) {
	var got *Flags
	p := flagsProgram{&got}
	Test(t, p, ThatStrand("-module", "M", "-method", "go", "-timeout", "2s",
		"-eager-calls", "-arg-cache-size", "2", "-trace", "-store", "v.db", "x.yaml"))
	if got == nil {
		t.Fatal("program not run")
	}
	if got.Module != "M" || got.Method != "go" || got.Timeout.String() != "2s" ||
		!got.EagerCalls || got.ArgCacheSize != 2 || !got.Trace || got.Store != "v.db" {
		t.Errorf("got flags %+v", got)
	}
}

func TestNoSuitableSubprogram(t *testing.T) {
	Test(t, testProgram{notSuitable: true},
		ThatStrand().
			ExitsWith(2).
			WritesStderr("internal error: no suitable subprogram\n"),
	)
}

func TestComposite(t *testing.T) {
	Test(t,
		Composite(testProgram{notSuitable: true}, testProgram{writeOut: "program 2"}),
		ThatStrand().WritesStdout("program 2"),
	)
}

func TestComposite_NoSuitableSubprogram(t *testing.T) {
	Test(t,
		Composite(testProgram{notSuitable: true}, testProgram{notSuitable: true}),
		ThatStrand().
			ExitsWith(2).
			WritesStderr("internal error: no suitable subprogram\n"),
	)
}

func TestComposite_PreferEarlierSubprogram(t *testing.T) {
	Test(t,
		Composite(
			testProgram{writeOut: "program 1"}, testProgram{writeOut: "program 2"}),
		ThatStrand().WritesStdout("program 1"),
	)
}

func TestBadUsageError(t *testing.T) {
	Test(t,
		testProgram{returnErr: BadUsage("lorem ipsum")},
		ThatStrand().ExitsWith(2).WritesStderrContaining("lorem ipsum\n"),
	)
}

func TestExitError(t *testing.T) {
	Test(t, testProgram{returnErr: Exit(3)},
		ThatStrand().ExitsWith(3),
	)
}

func TestExitError_0(t *testing.T) {
	Test(t, testProgram{returnErr: Exit(0)},
		ThatStrand().ExitsWith(0),
	)
}

type testProgram struct {
	notSuitable bool
	writeOut    string
	returnErr   error
}

func (p testProgram) Run(fds [3]*os.File, _ *Flags, args []string) error {
	if p.notSuitable {
		return ErrNotSuitable
	}
	fds[1].WriteString(p.writeOut)
	return p.returnErr
}

type flagsProgram struct{ got **Flags }

func (p flagsProgram) Run(fds [3]*os.File, f *Flags, args []string) error {
	*p.got = f
	return nil
}
