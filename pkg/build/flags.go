// SPDX-License-Identifier: MIT
//
// Package build carries the metadata stamped into the ringvis binary at link
// time. Release builds set every field with -ldflags, for example:
//
//	go build -ldflags "-X ringvis/pkg/build.buildVersion=0.3.0 -X ringvis/pkg/build.buildCommit=$(git rev-parse --short HEAD)"
//
// Development builds run with the placeholder values.
package build

import (
	"errors"
	"fmt"
	"strings"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String renders the version line printed by --version and logged at startup.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Package-level variables populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = &Info{
		Name:        "ringvis",
		Description: "Audio-reactive ring visualizer",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
)

// ErrIncomplete is returned by Initialize when some link-time flags are missing.
var ErrIncomplete = errors.New("incomplete build information")

// Initialize copies the link-time values into the build info. Missing values keep
// their development placeholders and are reported as ErrIncomplete so callers can
// decide whether a development build is acceptable.
func Initialize() error {
	var missing []string
	set := func(dst *string, val, name string) {
		if val == "" {
			missing = append(missing, name)
			return
		}
		*dst = val
	}
	set(&buildInfo.Name, buildName, "name")
	set(&buildInfo.Time, buildTime, "time")
	set(&buildInfo.Commit, buildCommit, "commit")
	set(&buildInfo.Version, buildVersion, "version")

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Info {
	return buildInfo
}
