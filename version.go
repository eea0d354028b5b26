package flagvault

import (
	"fmt"
	"runtime/debug"
)

// getUserAgent returns the User-Agent header value in the format "flagvault-go/<version>".
// If the version cannot be determined (e.g., during development), it returns "flagvault-go/unknown".
func getUserAgent() string {
	const libName = "flagvault-go"
	const unknownVersion = "unknown"

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return fmt.Sprintf("%s/%s", libName, unknownVersion)
	}

	// Look for the main module version
	version := info.Main.Version

	// Handle cases where version is empty or "(devel)"
	if version == "" || version == "(devel)" {
		return fmt.Sprintf("%s/%s", libName, unknownVersion)
	}

	return fmt.Sprintf("%s/%s", libName, version)
}
