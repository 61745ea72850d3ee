package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const devVersion = "0.0.0-dev"

var (
	// AppName is the binary name
	AppName = "mirrorsync"

	// Version is set with -ldflags "-X .../internal/version.Version=1.2.3"
	Version = devVersion

	// Revision is the git commit the binary was built from
	Revision = "HEAD"

	// BuildDate is empty for local builds without VCS metadata
	BuildDate = ""
)

func applyBuildInfo(mainVersion string, settings map[string]string) {
	if Version == devVersion || Version == "" {
		if v := mainVersion; v != "" && v != "(devel)" {
			Version = strings.TrimPrefix(v, "v")
		}
	}

	if Revision == "HEAD" || Revision == "" {
		if r := settings["vcs.revision"]; r != "" {
			if len(r) > 12 {
				r = r[:12]
			}
			if settings["vcs.modified"] == "true" {
				r += "-dirty"
			}
			Revision = r
		}
	}

	if BuildDate == "" {
		BuildDate = settings["vcs.time"]
	}
}

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return
	}

	settings := map[string]string{}
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	applyBuildInfo(info.Main.Version, settings)
}

// Short returns `1.2.3 (5e23a4)`
func Short() string {
	return fmt.Sprintf("%s (%s)", Version, Revision)
}

// Detailed returns `mirrorsync 1.2.3 (5e23a4; go1.24.0; linux/amd64; 2025-01-01T00:00:00Z)`
func Detailed() string {
	parts := []string{Revision, runtime.Version(), runtime.GOOS + "/" + runtime.GOARCH}
	if BuildDate != "" {
		parts = append(parts, BuildDate)
	}
	return fmt.Sprintf("%s %s (%s)", AppName, Version, strings.Join(parts, "; "))
}
