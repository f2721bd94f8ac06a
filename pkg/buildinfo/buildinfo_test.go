package buildinfo

import (
	"fmt"
	"runtime/debug"
	"testing"

	. "src.strand.sh/pkg/prog/progtest"
	"src.strand.sh/pkg/tt"
)

func TestProgram(t *testing.T) {
	Test(t, Program{},
		ThatStrand("-version").WritesStdout(Value.Version+"\n"),
		ThatStrand("-version", "-json").WritesStdout(mustToJSON(Value.Version)+"\n"),
		ThatStrand("-buildinfo").WritesStdout(
			fmt.Sprintf("Version: %v\nGo version: %v\n", Value.Version, Value.GoVersion)),
		ThatStrand("-buildinfo", "-json").WritesStdout(mustToJSON(Value)+"\n"),
		// Without -version or -buildinfo the next subprogram runs.
		ThatStrand("prog.yaml").ExitsWith(2).WritesStderr("internal error: no suitable subprogram\n"),
	)
}

// Computes the development version of 0.3.0 from build settings; nil settings
// stand for missing build information.
func devVersionOf(vcsOverride, mainVersion string, settings ...string) string {
	return devVersion("0.3.0", vcsOverride, func() (*debug.BuildInfo, bool) {
		if mainVersion == "" && settings == nil {
			return nil, false
		}
		bi := &debug.BuildInfo{Main: debug.Module{Version: mainVersion}}
		for i := 0; i+1 < len(settings); i += 2 {
			bi.Settings = append(bi.Settings, debug.BuildSetting{Key: settings[i], Value: settings[i+1]})
		}
		return bi, true
	})
}

func TestDevVersion(t *testing.T) {
	const rev = "abcdef0123456789"
	tt.Test(t, tt.Fn("devVersionOf", devVersionOf), tt.Table{
		tt.Args("", "").Rets("0.3.0-dev.unknown"),
		tt.Args("", "(devel)").Rets("0.3.0-dev.unknown"),
		tt.Args("", "v0.3.0-dev.pseudo").Rets("0.3.0-dev.pseudo"),
		tt.Args("", "", "vcs.time", "2023-01-02T03:04:05Z").Rets("0.3.0-dev.unknown"),
		tt.Args("", "", "vcs.revision", rev, "vcs.time", "2023-01-02T03:04:05Z").
			Rets("0.3.0-dev.0.20230102030405-abcdef012345"),
		tt.Args("", "", "vcs.revision", rev, "vcs.time", "2023-01-02T03:04:05Z", "vcs.modified", "true").
			Rets("0.3.0-dev.0.20230102030405-abcdef012345-dirty"),
		tt.Args("", "", "vcs.revision", rev, "vcs.time", "yesterday").Rets("0.3.0-dev.unknown"),
		tt.Args("20230102030405-abcdef012345", "").Rets("0.3.0-dev.0.20230102030405-abcdef012345"),
	})
}
