package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/bequest/internal/lifecycle"
	"github.com/roach88/bequest/internal/plan"
)

// ConfigView is the engine configuration. The fee is printed in decimal so
// JSON consumers do not lose precision above 2^53.
type ConfigView struct {
	Oracle       plan.Identity `json:"oracle"`
	ExecutionFee string        `json:"execution_fee"`
	PlanCount    uint64        `json:"plan_count"`
	PlanCapacity uint64        `json:"plan_capacity"`
}

func newConfigView(cfg plan.Config) ConfigView {
	return ConfigView{
		Oracle:       cfg.Oracle,
		ExecutionFee: strconv.FormatUint(cfg.ExecutionFee, 10),
		PlanCount:    cfg.PlanCount,
		PlanCapacity: cfg.PlanCapacity,
	}
}

func (v ConfigView) Text() string {
	oracle := string(v.Oracle)
	if oracle == "" {
		oracle = "(not set)"
	}
	return fmt.Sprintf("Oracle:        %s\nExecution fee: %s\nPlans:         %d of %d",
		oracle, v.ExecutionFee, v.PlanCount, v.PlanCapacity)
}

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change the oracle and execution fee",
	}

	var caller string

	setOracle := &cobra.Command{
		Use:   "set-oracle <identity>",
		Short: "Set the oracle identity (once)",
		Long: `Set the oracle identity. The oracle can be set exactly once; plans cannot
be created until it is.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigChange(rootOpts, cmd, lifecycle.OpSetOracle, func(s *session) error {
				return s.engine.SetOracle(cmd.Context(), plan.Identity(caller), plan.Identity(args[0]))
			})
		},
	}
	callerFlag(setOracle, &caller)

	setFee := &cobra.Command{
		Use:           "set-fee <fee>",
		Short:         "Set the execution fee (oracle only)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fee, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid fee %q", args[0]))
			}
			return runConfigChange(rootOpts, cmd, lifecycle.OpSetExecutionFee, func(s *session) error {
				return s.engine.SetExecutionFee(cmd.Context(), plan.Identity(caller), fee)
			})
		},
	}
	callerFlag(setFee, &caller)

	show := &cobra.Command{
		Use:           "show",
		Short:         "Show the current configuration",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			cfg, err := s.engine.GetConfig(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read config", err)
			}
			return formatter(cmd, rootOpts).Success(newConfigView(cfg))
		},
	}

	cmd.AddCommand(setOracle, setFee, show)
	return cmd
}

// runConfigChange applies one configuration operation and prints the
// resulting configuration.
func runConfigChange(opts *RootOptions, cmd *cobra.Command, op string, apply func(*session) error) error {
	f := formatter(cmd, opts)
	ctx := cmd.Context()

	s, err := openSession(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := apply(s); err != nil {
		return f.Rejected(op, err)
	}
	cfg, err := s.engine.GetConfig(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read config", err)
	}
	return f.Success(newConfigView(cfg))
}
