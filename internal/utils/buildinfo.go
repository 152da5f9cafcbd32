// Package utils provides logger construction, version retrieval and shared constants.
package utils

import (
	"runtime/debug"
)

const (
	unknownVersion        = "unknown"
	develVersion          = "(devel)"
	vcsRevisionSetting    = "vcs.revision"
	vcsModifiedSetting    = "vcs.modified"
	shortRevisionLength   = 12
	modifiedVersionSuffix = "-dirty"
)

// Version is injected at link time with -ldflags "-X github.com/temirov/marginal/internal/utils.Version=<tag>".
var Version = ""

// GetApplicationVersion reports the linked version, then the module version,
// then the VCS revision recorded in the build, falling back to "unknown".
func GetApplicationVersion() string {
	if Version != "" {
		return Version
	}
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if !buildInfoAvailable {
		return unknownVersion
	}
	if buildInfo.Main.Version != "" && buildInfo.Main.Version != develVersion {
		return buildInfo.Main.Version
	}
	return revisionFromSettings(buildInfo.Settings)
}

func revisionFromSettings(settings []debug.BuildSetting) string {
	revision := ""
	modified := false
	for _, setting := range settings {
		switch setting.Key {
		case vcsRevisionSetting:
			revision = setting.Value
		case vcsModifiedSetting:
			modified = setting.Value == "true"
		}
	}
	if revision == "" {
		return unknownVersion
	}
	if len(revision) > shortRevisionLength {
		revision = revision[:shortRevisionLength]
	}
	if modified {
		revision += modifiedVersionSuffix
	}
	return revision
}
