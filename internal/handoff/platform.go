// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package handoff

import (
	"regexp"
	"strings"
)

// Platform classifies the runtime environment of the page requesting a handoff.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformDesktop Platform = "desktop"
)

var (
	androidPattern = regexp.MustCompile(`(?i)android`)
	iosPattern     = regexp.MustCompile(`(?i)iphone|ipad|ipod`)
)

// Classify maps an opaque platform hint (usually a User-Agent) to a Platform.
// Unrecognised or empty hints are Desktop.
func Classify(hint string) Platform {
	switch {
	case androidPattern.MatchString(hint):
		return PlatformAndroid
	case iosPattern.MatchString(hint):
		return PlatformIOS
	default:
		return PlatformDesktop
	}
}

// ParsePlatform parses an explicit platform name.
func ParsePlatform(s string) (Platform, bool) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformAndroid:
		return PlatformAndroid, true
	case PlatformIOS:
		return PlatformIOS, true
	case PlatformDesktop:
		return PlatformDesktop, true
	}
	return "", false
}

// UsesSurface reports whether the primary URI is opened through a hidden
// navigation surface instead of a top-level navigation.
func (p Platform) UsesSurface() bool {
	return p == PlatformIOS
}

func (p Platform) String() string {
	return string(p)
}
