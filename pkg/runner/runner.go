// Package runner is the subprogram of strand that loads a program written as
// YAML module documents and runs one of its methods.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"src.strand.sh/pkg/ast"
	"src.strand.sh/pkg/config"
	"src.strand.sh/pkg/diag"
	"src.strand.sh/pkg/eval"
	"src.strand.sh/pkg/eval/vals"
	"src.strand.sh/pkg/fixture"
	"src.strand.sh/pkg/instrument"
	"src.strand.sh/pkg/logutil"
	"src.strand.sh/pkg/prog"
	"src.strand.sh/pkg/store"
	"src.strand.sh/pkg/sys"
)

var logger = logutil.GetLogger("[runner] ")

// Exit status when the program is interrupted by a signal or a timeout.
const exitInterrupted = 130

// Program is the runner subprogram.
type Program struct{}

// Run runs the program.
func (Program) Run(fds [3]*os.File, f *prog.Flags, args []string) error {
	if len(args) != 1 {
		return prog.BadUsage("need exactly one program file")
	}
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	if cfg.Log.File != "" && f.Log == "" {
		if err := logutil.SetOutputFile(cfg.Log.File); err != nil {
			fmt.Fprintln(fds[2], err)
		}
	}
	color := sys.IsATTY(fds[2].Fd())

	code, err := readFileUTF8(args[0])
	if err != nil {
		fmt.Fprintf(fds[2], "cannot read program %q: %v\n", args[0], err)
		return prog.Exit(2)
	}
	mods, err := fixture.ParseModules(ast.Source{Name: args[0], Code: code})
	if err != nil {
		diag.ShowError(fds[2], err, color)
		return prog.Exit(2)
	}
	if len(mods) == 0 {
		fmt.Fprintf(fds[2], "no modules in %q\n", args[0])
		return prog.Exit(2)
	}
	src := eval.MapSource{}
	for _, m := range mods {
		src[m.Name] = m
	}
	module := f.Module
	if module == "" {
		module = mods[0].Name
	}

	ev := eval.NewEvaler(src)
	ev.EagerCalls = cfg.Eval.EagerCalls
	ev.ArgCacheSize = cfg.Eval.ArgCacheSize

	var evalCfg eval.EvalCfg
	ins, cleanup := newInstrument(fds, cfg)
	defer cleanup()
	if ins != nil {
		evalCfg.Instrument = ins
	}
	if cfg.Eval.Timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Eval.Timeout)
		defer cancel()
		evalCfg.Context = ctx
	}
	stop := handleSignals(ev, fds[2])
	defer stop()

	w, v, err := ev.Run(module, f.Method, eval.World{}, evalCfg)
	if errors.Is(err, eval.ErrInterrupted) {
		fmt.Fprintln(fds[2], "interrupted")
		return prog.Exit(exitInterrupted)
	} else if err != nil {
		diag.ShowError(fds[2], err, color)
		return prog.Exit(2)
	}
	if st := w.State(); st != nil {
		logger.Printf("final state: %s", vals.Repr(st))
	}
	fmt.Fprintln(fds[1], vals.ToText(v))
	if _, isError := v.(*eval.ErrorValue); isError {
		return prog.Exit(1)
	}
	return nil
}

// Loads the configuration file given with -config and applies the flags that
// override it.
func loadConfig(f *prog.Flags) (*config.Config, error) {
	cfg := config.Default()
	if f.Config != "" {
		var err error
		cfg, err = config.Load(f.Config)
		if err != nil {
			return nil, err
		}
	}
	if f.EagerCalls {
		cfg.Eval.EagerCalls = true
	}
	if f.ArgCacheSize != 0 {
		if f.ArgCacheSize < 1 || f.ArgCacheSize > 4 {
			return nil, prog.BadUsage("-arg-cache-size must be from 1 to 4")
		}
		cfg.Eval.ArgCacheSize = f.ArgCacheSize
	}
	if f.Timeout != 0 {
		cfg.Eval.Timeout = f.Timeout
	}
	if f.Trace {
		cfg.Instrument.Trace = true
	}
	if f.Store != "" {
		cfg.Store.Path = f.Store
	}
	return cfg, nil
}

// Sets up the instrument for tracing and recording values. It returns nil if
// neither is enabled.
func newInstrument(fds [3]*os.File, cfg *config.Config) (*instrument.Listener, func()) {
	if !cfg.Instrument.Trace && cfg.Store.Path == "" {
		return nil, func() {}
	}
	l := instrument.NewListener(instrument.NewCache())
	l.WatchAll()
	if cfg.Instrument.Trace {
		l.OnValue = instrument.Tracer(fds[2])
	}
	cleanup := func() {}
	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path, cfg.Store.Timeout)
		if err != nil {
			fmt.Fprintln(fds[2], "Warning: cannot open value log:", err)
			fmt.Fprintln(fds[2], "Values will not be recorded.")
		} else {
			l.Sink = st
			cleanup = func() { st.Close() }
		}
	}
	return l, cleanup
}

var errSourceNotUTF8 = errors.New("source is not UTF-8")

func readFileUTF8(fname string) (string, error) {
	bytes, err := os.ReadFile(fname)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(bytes) {
		return "", errSourceNotUTF8
	}
	return string(bytes), nil
}
