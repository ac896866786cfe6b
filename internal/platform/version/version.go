package version

import "runtime"

// Build information, injected via ldflags:
//
//	-X github.com/pscheid92/tickerpulse/internal/platform/version.Version=v1.2.3
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is served on /version and logged at startup.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// UserAgent identifies outbound provider requests.
func UserAgent() string {
	return "tickerpulse/" + Version
}
