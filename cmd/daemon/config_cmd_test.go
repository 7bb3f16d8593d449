// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCLI() (configCLI, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return configCLI{stdout: &stdout, stderr: &stderr}, &stdout, &stderr
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestConfigCLI_InitThenValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cli, stdout, stderr := newTestCLI()
	require.Equal(t, 0, cli.run([]string{"init", "-f", path}), stderr.String())
	assert.Contains(t, stdout.String(), path)

	cli, stdout, stderr = newTestCLI()
	require.Equal(t, 0, cli.run([]string{"validate", "--file", path}), stderr.String())
	assert.Contains(t, stdout.String(), "is valid")
}

func TestConfigCLI_InitRefusesOverwrite(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\n")

	cli, _, stderr := newTestCLI()
	assert.Equal(t, 1, cli.run([]string{"init", "-f", path}))
	assert.Contains(t, stderr.String(), "already exists")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "log:\n  level: debug\n", string(data))

	cli, _, stderr = newTestCLI()
	assert.Equal(t, 0, cli.run([]string{"init", "-f", path, "--force"}), stderr.String())
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "handoff:")
}

func TestConfigCLI_ValidateRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "server:\n  listen: \":9000\"\n")

	cli, _, stderr := newTestCLI()
	assert.Equal(t, 1, cli.run([]string{"validate", "-f", path}))
	assert.Contains(t, stderr.String(), "Configuration error")
}

func TestConfigCLI_ValidateRequiresFile(t *testing.T) {
	t.Setenv("ASTRO_CONFIG", "")
	t.Setenv("ASTRO_DATA", "")

	cli, _, stderr := newTestCLI()
	assert.Equal(t, 2, cli.run([]string{"validate"}))
	assert.Contains(t, stderr.String(), "--file is required")
}

func TestConfigCLI_DumpRedactsSecrets(t *testing.T) {
	path := writeConfig(t, "journal:\n  redisPassword: hunter2\n")

	cli, stdout, stderr := newTestCLI()
	require.Equal(t, 0, cli.run([]string{"dump", "--effective", "-f", path}), stderr.String())
	assert.NotContains(t, stdout.String(), "hunter2")
	assert.Contains(t, stdout.String(), redacted)
}

func TestConfigCLI_DumpJSON(t *testing.T) {
	path := writeConfig(t, "log:\n  level: warn\njournal:\n  redisPassword: hunter2\n")

	cli, stdout, stderr := newTestCLI()
	require.Equal(t, 0, cli.run([]string{"dump", "--effective", "--format=json", "-f", path}), stderr.String())
	assert.NotContains(t, stdout.String(), "hunter2")

	var out struct {
		Log struct {
			Level string `json:"level"`
		} `json:"log"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, "warn", out.Log.Level)
}

func TestConfigCLI_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "help", args: nil, want: 0},
		{name: "unknown subcommand", args: []string{"frobnicate"}, want: 2},
		{name: "dump without effective", args: []string{"dump"}, want: 2},
		{name: "dump bad format", args: []string{"dump", "--effective", "--format=toml"}, want: 2},
		{name: "bad flag", args: []string{"validate", "--nope"}, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, _, _ := newTestCLI()
			assert.Equal(t, tt.want, cli.run(tt.args))
		})
	}
}

func TestResolveDefaultConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ASTRO_CONFIG", "")
	t.Setenv("ASTRO_DATA", dir)
	assert.Empty(t, resolveDefaultConfigPath())

	auto := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(auto, []byte("{}\n"), 0o600))
	assert.Equal(t, auto, resolveDefaultConfigPath())

	t.Setenv("ASTRO_CONFIG", "/etc/astrorhythm.yaml")
	assert.Equal(t, "/etc/astrorhythm.yaml", resolveDefaultConfigPath())
}
