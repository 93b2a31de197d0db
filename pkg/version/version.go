package version

import "fmt"

// Build information, overridden at build time via
// -ldflags "-X github.com/projectdiscovery/netsweep/pkg/version.Version=..."
var (
	Version = "v0.1.0"
	Commit  = ""
)

// GetVersion returns the version string, with the commit when known
func GetVersion() string {
	if Commit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
