// Package version reports the build identity of the modelfinder binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/Sumatoshi-tech/modelfinder/pkg/version.Version=..." at release time.
var (
	Version = "dev"
	Commit  = "<unknown>"
	Date    = "<unknown>"
)

const vcsRevisionKey = "vcs.revision"

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	if Commit != "<unknown>" {
		return
	}

	for _, setting := range info.Settings {
		if setting.Key == vcsRevisionKey {
			Commit = setting.Value
		}
	}
}

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("modelfinder %s (commit %s, built %s, %s %s/%s)",
		Version, Commit, Date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
