package buildinfo

import "runtime"

// Set at build time, e.g.
//
//	go build -ldflags "-X github.com/keyforge/keyforge-go/internal/infra/buildinfo.Version=v1.2.0"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info bundles the build identity reported by the version flag and the
// admin socket status command.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns the current build information.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String formats the build identity as a single line.
func String() string {
	return Version + " (" + Commit + ") built at " + BuildTime
}
