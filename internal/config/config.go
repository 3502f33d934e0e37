// Package config loads housecat's runtime configuration: a YAML file with
// environment-variable overrides layered on top, the same two libraries
// already present (indirectly, via mna/mainer) in the dependency graph.
package config

import (
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Config is the full set of host-level knobs the CLI and the runtime
// consult. None of these affect language semantics (see SPEC_FULL.md §5) —
// they're all host bookkeeping: the step limit and disassembly coloring.
type Config struct {
	// MaxSteps bounds how many opcodes a single run may execute before it
	// is aborted with a fatal host error. 0 (the default) means unlimited.
	MaxSteps int64 `yaml:"max_steps" env:"HOUSECAT_MAX_STEPS"`

	// Color controls whether disasm output is ANSI-colorized; "auto" (the
	// default) colorizes only when stdout is a TTY (see
	// internal/maincmd/disasm.go, which consults mattn/go-isatty).
	Color string `yaml:"color" env:"HOUSECAT_COLOR"`
}

// Default returns the configuration used when no file is present and no
// environment overrides are set.
func Default() Config {
	return Config{
		MaxSteps: 0,
		Color:    "auto",
	}
}

// Load reads path (if it exists) as YAML over Default(), then applies any
// HOUSECAT_* environment overrides. A missing file is not an error; an
// unreadable or malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, err
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
