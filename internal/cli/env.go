package cli

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
)

// Env is the environment configuration. Flags take precedence.
type Env struct {
	Database     string `env:"BEQUEST_DB" envDefault:"bequest.db"`
	Fixtures     string `env:"BEQUEST_FIXTURES"`
	PlanCapacity uint64 `env:"BEQUEST_PLAN_CAPACITY"`
	HTTPAddr     string `env:"BEQUEST_HTTP_ADDR" envDefault:":8080"`
	LogLevel     string `env:"BEQUEST_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv() (Env, error) {
	var cfg Env
	if err := env.Parse(&cfg); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// applyEnv fills every option the user did not set on the command line.
func applyEnv(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := ParseEnv()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid environment", err)
	}

	flags := cmd.Flags()
	if !flags.Changed("db") {
		opts.Database = cfg.Database
	}
	if !flags.Changed("fixtures") {
		opts.Fixtures = cfg.Fixtures
	}
	if !flags.Changed("capacity") {
		opts.Capacity = cfg.PlanCapacity
	}
	if !flags.Changed("addr") {
		opts.HTTPAddr = cfg.HTTPAddr
	}
	opts.LogLevel = cfg.LogLevel
	return nil
}
