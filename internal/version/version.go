package version

// Version is the current version of the floorsheet-signals binary.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/floorsheet-signals/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "main"

// ArtifactFormatVersion is the layout version of model artifacts written by this build.
// Bump the minor version when a field is added that older readers cannot ignore.
const ArtifactFormatVersion = "1.0.0"

// GetVersion returns the current version of the binary.
func GetVersion() string {
	return Version
}
