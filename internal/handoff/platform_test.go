// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package handoff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/astrorhythm/internal/handoff"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		hint string
		want handoff.Platform
	}{
		{"android chrome", "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/124.0 Mobile Safari/537.36", handoff.PlatformAndroid},
		{"iphone safari", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 Version/17.4 Mobile/15E148 Safari/604.1", handoff.PlatformIOS},
		{"ipad", "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X)", handoff.PlatformIOS},
		{"ipod lowercase", "some ipod touch", handoff.PlatformIOS},
		{"windows desktop", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/124.0 Safari/537.36", handoff.PlatformDesktop},
		{"mac desktop", "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) Safari/605.1.15", handoff.PlatformDesktop},
		{"empty", "", handoff.PlatformDesktop},
		{"garbage", "\x00\xff not a user agent", handoff.PlatformDesktop},
		{"uppercase android", "ANDROID", handoff.PlatformAndroid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, handoff.Classify(tt.hint))
		})
	}
}

func TestParsePlatform(t *testing.T) {
	p, ok := handoff.ParsePlatform(" iOS ")
	assert.True(t, ok)
	assert.Equal(t, handoff.PlatformIOS, p)

	_, ok = handoff.ParsePlatform("windows")
	assert.False(t, ok)
}

func TestPlatform_UsesSurface(t *testing.T) {
	assert.True(t, handoff.PlatformIOS.UsesSurface())
	assert.False(t, handoff.PlatformAndroid.UsesSurface())
	assert.False(t, handoff.PlatformDesktop.UsesSurface())
}
