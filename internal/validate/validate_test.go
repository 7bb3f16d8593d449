// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Accumulates(t *testing.T) {
	v := New()
	v.Port("port", 0)
	v.Range("retain", 5, 10, 20)
	v.NotEmpty("name", "  ")
	require.False(t, v.IsValid())

	err := v.Err()
	require.Error(t, err)
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors(), 3)
	assert.Contains(t, err.Error(), "validation failed for port")
	assert.Contains(t, err.Error(), "; ")
}

func TestValidator_NoErrors(t *testing.T) {
	v := New()
	v.ListenAddr("listen", ":8080")
	v.ListenAddr("listen", "127.0.0.1:9000")
	v.OneOf("backend", "sqlite", []string{"memory", "sqlite", "redis"})
	v.FloatRange("rate", 0.5, 0, 1)
	v.DurationRange("timeout", time.Second, 100*time.Millisecond, 10*time.Second)
	v.LogLevel("level", "warn")
	v.URIScheme("scheme", "astro-rhythm.v2")
	v.URL("fallback", "https://astrorhythm.com/", []string{"https"})
	assert.True(t, v.IsValid())
	assert.NoError(t, v.Err())
}

func TestValidator_Failures(t *testing.T) {
	tests := []struct {
		name string
		fn   func(v *Validator)
	}{
		{"listen without port", func(v *Validator) { v.ListenAddr("f", "localhost") }},
		{"listen bad port", func(v *Validator) { v.ListenAddr("f", ":http") }},
		{"listen port out of range", func(v *Validator) { v.ListenAddr("f", ":70000") }},
		{"url without host", func(v *Validator) { v.URL("f", "https:///path", nil) }},
		{"url wrong scheme", func(v *Validator) { v.URL("f", "ftp://x.example", []string{"https"}) }},
		{"url empty", func(v *Validator) { v.URL("f", "", nil) }},
		{"scheme starts with digit", func(v *Validator) { v.URIScheme("f", "1app") }},
		{"scheme with colon", func(v *Validator) { v.URIScheme("f", "app:") }},
		{"scheme empty", func(v *Validator) { v.URIScheme("f", "") }},
		{"duration too long", func(v *Validator) { v.DurationRange("f", time.Hour, 0, time.Minute) }},
		{"one of", func(v *Validator) { v.OneOf("f", "etcd", []string{"memory"}) }},
		{"log level", func(v *Validator) { v.LogLevel("f", "verbose") }},
		{"positive", func(v *Validator) { v.Positive("f", 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			tt.fn(v)
			assert.False(t, v.IsValid())
			assert.Len(t, v.Errors(), 1)
		})
	}
}
