package version

import (
	"runtime/debug"
)

// Set via -ldflags at release time; development builds fall back to VCS
// metadata stamped into the binary.
var (
	Version = "0.0.0-dev"
	Commit  = ""
)

// Resolve returns the version string for --version output. Release builds
// report the bare version; development builds append the VCS revision and a
// dirty marker when available.
func Resolve() string {
	return resolveVersion(Version, Commit, readBuildSettings)
}

func resolveVersion(base, commit string, settings func() map[string]string) string {
	if base == "" {
		base = "0.0.0"
	}

	dirty := false
	if commit == "" {
		vcs := settings()
		commit = vcs["vcs.revision"]
		dirty = vcs["vcs.modified"] == "true"
	}

	if commit == "" {
		return base
	}

	suffix := shortCommit(commit)
	if dirty {
		suffix += "-dirty"
	}

	return base + "+" + suffix
}

func shortCommit(commit string) string {
	const n = 12
	if len(commit) > n {
		return commit[:n]
	}
	return commit
}

func readBuildSettings() map[string]string {
	out := map[string]string{}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}
	for _, kv := range info.Settings {
		out[kv.Key] = kv.Value
	}
	return out
}
