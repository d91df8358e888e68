package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckArtifactCompatibility checks if an artifact written with artifactVersion can be read by
// a build that writes readerVersion. Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - If either version is "main" (development build), compatibility check is skipped
//   - Major versions must match exactly
//   - The artifact's minor version must not be newer than the reader's
//   - Patch versions can differ (e.g., 1.0.0 reads 1.0.3)
//
// Examples:
//   - Reader 1.0.0, Artifact 1.0.0 -> OK (exact match)
//   - Reader 1.0.1, Artifact 1.0.0 -> OK (patch differs)
//   - Reader 1.1.0, Artifact 1.0.0 -> OK (older minor)
//   - Reader 1.0.0, Artifact 1.1.0 -> ERROR (artifact minor is newer)
//   - Reader 2.0.0, Artifact 1.0.0 -> ERROR (major differs)
//   - Reader main, Artifact 1.0.0 -> OK (dev build, skip check)
func CheckArtifactCompatibility(readerVersion, artifactVersion string) error {
	// Strip 'v' prefix if present for consistency
	readerVersion = strings.TrimPrefix(readerVersion, "v")
	artifactVersion = strings.TrimPrefix(artifactVersion, "v")

	if readerVersion == "main" || artifactVersion == "main" {
		return nil
	}

	readerSemver, err := semver.NewVersion(readerVersion)
	if err != nil {
		return fmt.Errorf("invalid reader version '%s': %w", readerVersion, err)
	}

	artifactSemver, err := semver.NewVersion(artifactVersion)
	if err != nil {
		return fmt.Errorf("invalid artifact version '%s': %w", artifactVersion, err)
	}

	if readerSemver.Major() != artifactSemver.Major() {
		return fmt.Errorf("major version mismatch: reader is %d.x.x but artifact was written as %d.x.x",
			readerSemver.Major(), artifactSemver.Major())
	}

	if artifactSemver.Minor() > readerSemver.Minor() {
		return fmt.Errorf("minor version too new: reader is %d.%d.x but artifact was written as %d.%d.x",
			readerSemver.Major(), readerSemver.Minor(),
			artifactSemver.Major(), artifactSemver.Minor())
	}

	return nil
}
