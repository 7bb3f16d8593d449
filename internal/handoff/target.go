// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package handoff

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrInvalidTarget classifies Target validation failures.
var ErrInvalidTarget = errors.New("invalid handoff target")

// Canonical deep link values.
const (
	DefaultScheme         = "astrorhythm"
	DefaultPath           = "verified"
	DefaultAndroidPackage = "com.astrorhythm"

	DefaultAndroidFallback = "https://play.google.com/store/apps/details?id=com.astrorhythm"
	DefaultIOSFallback     = "https://apps.apple.com/app/astrorhythm"
	DefaultDesktopFallback = "https://astrorhythm.com/"

	DefaultAndroidTimeout = 1500 * time.Millisecond
	DefaultIOSTimeout     = 1200 * time.Millisecond
	DefaultDesktopTimeout = 1000 * time.Millisecond
)

// Target describes where to attempt the handoff and where to fall back.
type Target struct {
	PrimaryURI  string        `json:"primaryUri"`
	FallbackURI string        `json:"fallbackUri"`
	Timeout     time.Duration `json:"-"`
}

// Validate checks that both URIs are absolute and the timeout is positive.
func (t Target) Validate() error {
	if err := validateURI(t.PrimaryURI); err != nil {
		return fmt.Errorf("%w: primary uri: %v", ErrInvalidTarget, err)
	}
	if err := validateURI(t.FallbackURI); err != nil {
		return fmt.Errorf("%w: fallback uri: %v", ErrInvalidTarget, err)
	}
	if t.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be > 0, got %s", ErrInvalidTarget, t.Timeout)
	}
	return nil
}

func validateURI(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" {
		return fmt.Errorf("%q has no scheme", raw)
	}
	return nil
}

// Targets holds one Target per platform.
type Targets struct {
	Android Target
	IOS     Target
	Desktop Target
}

// For selects the Target for p. Unknown platforms get the Desktop target.
func (ts Targets) For(p Platform) Target {
	switch p {
	case PlatformAndroid:
		return ts.Android
	case PlatformIOS:
		return ts.IOS
	default:
		return ts.Desktop
	}
}

// Validate validates every platform target.
func (ts Targets) Validate() error {
	for _, p := range []Platform{PlatformAndroid, PlatformIOS, PlatformDesktop} {
		if err := ts.For(p).Validate(); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// SchemeURI builds "<scheme>://<path>".
func SchemeURI(scheme, path string) string {
	return scheme + "://" + strings.TrimPrefix(path, "/")
}

// IntentURI builds an Android intent URI that opens scheme://path in pkg and
// lets Chrome fall back to fallback on its own when the app is missing.
func IntentURI(scheme, path, pkg, fallback string) string {
	var b strings.Builder
	b.WriteString("intent://")
	b.WriteString(strings.TrimPrefix(path, "/"))
	b.WriteString("#Intent;scheme=")
	b.WriteString(scheme)
	if pkg != "" {
		b.WriteString(";package=")
		b.WriteString(pkg)
	}
	if fallback != "" {
		b.WriteString(";S.browser_fallback_url=")
		b.WriteString(url.QueryEscape(fallback))
	}
	b.WriteString(";end")
	return b.String()
}

// DefaultTargets returns the canonical AstroRhythm targets.
func DefaultTargets() Targets {
	scheme := SchemeURI(DefaultScheme, DefaultPath)
	return Targets{
		Android: Target{
			PrimaryURI:  IntentURI(DefaultScheme, DefaultPath, DefaultAndroidPackage, DefaultAndroidFallback),
			FallbackURI: DefaultAndroidFallback,
			Timeout:     DefaultAndroidTimeout,
		},
		IOS: Target{
			PrimaryURI:  scheme,
			FallbackURI: DefaultIOSFallback,
			Timeout:     DefaultIOSTimeout,
		},
		Desktop: Target{
			PrimaryURI:  scheme,
			FallbackURI: DefaultDesktopFallback,
			Timeout:     DefaultDesktopTimeout,
		},
	}
}

// TargetSource supplies the targets used for new attempts.
type TargetSource interface {
	Targets() Targets
}

// StaticTargets is a TargetSource that never changes.
type StaticTargets Targets

// Targets implements TargetSource.
func (s StaticTargets) Targets() Targets {
	return Targets(s)
}
