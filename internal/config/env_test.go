// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseEnv(t *testing.T) {
	t.Setenv("ASTRO_TEST_BOOL", "YES")
	t.Setenv("ASTRO_TEST_BAD_BOOL", "maybe")
	t.Setenv("ASTRO_TEST_DURATION", "1500ms")
	t.Setenv("ASTRO_TEST_FLOAT", "0.25")
	t.Setenv("ASTRO_TEST_INT", "42")
	t.Setenv("ASTRO_TEST_EMPTY", "")
	t.Setenv("ASTRO_TEST_PASSWORD", "hunter2")

	assert.True(t, ParseBool("ASTRO_TEST_BOOL", false))
	assert.True(t, ParseBool("ASTRO_TEST_BAD_BOOL", true))
	assert.Equal(t, 1500*time.Millisecond, ParseDuration("ASTRO_TEST_DURATION", time.Second))
	assert.InDelta(t, 0.25, ParseFloat("ASTRO_TEST_FLOAT", 1), 1e-9)
	assert.Equal(t, 42, ParseInt("ASTRO_TEST_INT", 0))
	assert.Equal(t, "fallback", ParseString("ASTRO_TEST_EMPTY", "fallback"))
	assert.Equal(t, "hunter2", ParseString("ASTRO_TEST_PASSWORD", ""))
	assert.Equal(t, 7, ParseInt("ASTRO_TEST_UNSET", 7))
	assert.Equal(t, []string{"x"}, ParseList("ASTRO_TEST_UNSET", []string{"x"}))
}
