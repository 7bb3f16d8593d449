// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/astrorhythm/internal/config"
	"github.com/ManuGH/astrorhythm/internal/version"
)

const redacted = "***"

// configCLI implements the "config" subcommand. Exit codes: 0 ok,
// 1 configuration or I/O error, 2 usage error.
type configCLI struct {
	stdout io.Writer
	stderr io.Writer
}

func runConfigCLI(args []string) int {
	return configCLI{stdout: os.Stdout, stderr: os.Stderr}.run(args)
}

func (c configCLI) run(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		c.usage()
		return 0
	}

	switch args[0] {
	case "validate":
		return c.validate(args[1:])
	case "dump":
		return c.dump(args[1:])
	case "init":
		return c.initFile(args[1:])
	default:
		fmt.Fprintf(c.stderr, "Unknown subcommand: %s\n\n", args[0])
		c.usage()
		return 2
	}
}

func (c configCLI) usage() {
	fmt.Fprintln(c.stderr, "Usage:")
	fmt.Fprintln(c.stderr, "  astrorhythm config validate [--file|-f config.yaml]")
	fmt.Fprintln(c.stderr, "  astrorhythm config dump --effective [--file|-f config.yaml] [--format=yaml|json]")
	fmt.Fprintln(c.stderr, "  astrorhythm config init [--file|-f config.yaml] [--force]")
}

// resolveDefaultConfigPath returns $ASTRO_CONFIG, or $ASTRO_DATA/config.yaml
// when that file exists, or "" for an ENV-only configuration.
func resolveDefaultConfigPath() string {
	if p := strings.TrimSpace(os.Getenv("ASTRO_CONFIG")); p != "" {
		return p
	}
	dataDir := strings.TrimSpace(os.Getenv("ASTRO_DATA"))
	if dataDir == "" {
		return ""
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}

func (c configCLI) flagSet(name string, file *string) *flag.FlagSet {
	fset := flag.NewFlagSet("astrorhythm config "+name, flag.ContinueOnError)
	fset.SetOutput(c.stderr)
	fset.StringVar(file, "file", "", "path to YAML configuration file")
	fset.StringVar(file, "f", "", "path to YAML configuration file (shorthand)")
	return fset
}

func (c configCLI) validate(args []string) int {
	var file string
	fset := c.flagSet("validate", &file)
	if err := fset.Parse(args); err != nil {
		return 2
	}

	path := strings.TrimSpace(file)
	if path == "" {
		path = resolveDefaultConfigPath()
	}
	if path == "" {
		fmt.Fprintln(c.stderr, "Error: --file is required (no ASTRO_CONFIG and no config.yaml in $ASTRO_DATA)")
		return 2
	}

	if _, err := config.NewLoader(path, version.Version).Load(); err != nil {
		fmt.Fprintf(c.stderr, "Configuration error in %s:\n  %v\n", path, err)
		return 1
	}
	fmt.Fprintf(c.stdout, "%s is valid\n", path)
	return 0
}

func (c configCLI) dump(args []string) int {
	var file, format string
	var effective bool
	fset := c.flagSet("dump", &file)
	fset.StringVar(&format, "format", "yaml", "output format: yaml or json")
	fset.BoolVar(&effective, "effective", false, "dump effective configuration (defaults + file + env)")
	if err := fset.Parse(args); err != nil {
		return 2
	}
	if !effective {
		fmt.Fprintln(c.stderr, "Error: --effective is required")
		return 2
	}

	format = strings.ToLower(strings.TrimSpace(format))
	if format != "yaml" && format != "yml" && format != "json" {
		fmt.Fprintf(c.stderr, "Unsupported format: %s (use yaml or json)\n", format)
		return 2
	}

	path := strings.TrimSpace(file)
	if path == "" {
		path = resolveDefaultConfigPath()
	}
	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		fmt.Fprintf(c.stderr, "Configuration error in %s:\n  %v\n", displayPath(path), err)
		return 1
	}
	redactSecrets(&cfg)

	if format == "json" {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg); err != nil {
			fmt.Fprintf(c.stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	data, err := config.MarshalYAML(cfg)
	if err != nil {
		fmt.Fprintf(c.stderr, "Failed to encode YAML: %v\n", err)
		return 1
	}
	_, _ = c.stdout.Write(data)
	return 0
}

func (c configCLI) initFile(args []string) int {
	var file string
	var force bool
	fset := c.flagSet("init", &file)
	fset.BoolVar(&force, "force", false, "overwrite an existing file")
	if err := fset.Parse(args); err != nil {
		return 2
	}

	path := strings.TrimSpace(file)
	if path == "" {
		path = "config.yaml"
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(c.stderr, "Error: %s already exists (use --force to overwrite)\n", path)
			return 1
		} else if !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(c.stderr, "Error: %v\n", err)
			return 1
		}
	}

	if err := config.WriteFile(path, config.Defaults()); err != nil {
		fmt.Fprintf(c.stderr, "Failed to write %s: %v\n", path, err)
		return 1
	}
	fmt.Fprintf(c.stdout, "wrote default configuration to %s\n", path)
	return 0
}

func redactSecrets(cfg *config.AppConfig) {
	if cfg.Journal.RedisPass != "" {
		cfg.Journal.RedisPass = redacted
	}
}

func displayPath(path string) string {
	if path == "" {
		return "environment"
	}
	return path
}
