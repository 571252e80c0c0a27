package cli

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bequest/internal/lifecycle"
	"github.com/roach88/bequest/internal/plan"
)

// PlanOptions holds flags shared by the plan subcommands.
type PlanOptions struct {
	*RootOptions
	Caller  string
	File    string
	VaultID uint64
	Proof   string // hex
}

// PlanView is a plan with its execution record, if any.
type PlanView struct {
	Plan      plan.Plan       `json:"plan"`
	Execution *plan.Execution `json:"execution,omitempty"`
	Claims    []plan.Claim    `json:"claims"`
}

func (v PlanView) Text() string {
	var b strings.Builder
	p := v.Plan
	fmt.Fprintf(&b, "Plan %d (%s, version %d)\n", p.ID, p.Status, p.Version)
	fmt.Fprintf(&b, "  Creator: %s\n", p.Creator)
	fmt.Fprintf(&b, "  Vault:   %d\n", p.VaultID)
	fmt.Fprintf(&b, "  Created: %d  Updated: %d\n", p.CreatedAt, p.UpdatedAt)
	b.WriteString("  Beneficiaries:\n")
	claimed := make(map[plan.Identity]plan.Claim, len(v.Claims))
	for _, c := range v.Claims {
		claimed[c.Beneficiary] = c
	}
	for _, ben := range p.Beneficiaries {
		fmt.Fprintf(&b, "    %-20s %5d bps", ben.Beneficiary, ben.Share)
		if c, ok := claimed[ben.Beneficiary]; ok && c.Claimed {
			fmt.Fprintf(&b, "  claimed at %d", c.ClaimedAt)
		}
		b.WriteString("\n")
	}
	b.WriteString("  Conditions:\n")
	for _, c := range p.Conditions {
		fmt.Fprintf(&b, "    %s >= %d", c.EventType, c.Threshold)
		if c.ProofRequired {
			b.WriteString(" (proof required)")
		}
		b.WriteString("\n")
	}
	if v.Execution != nil {
		fmt.Fprintf(&b, "  Executed at %d by %s", v.Execution.ExecutedAt, v.Execution.Executor)
	} else {
		b.WriteString("  Not executed")
	}
	return b.String()
}

// PlanList is the output of plan list.
type PlanList struct {
	Plans []plan.Plan `json:"plans"`
}

func (l PlanList) Text() string {
	if len(l.Plans) == 0 {
		return "No plans."
	}
	var b strings.Builder
	for i, p := range l.Plans {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%4d  %-8s  v%-3d  vault %-6d  %s (%d beneficiaries)",
			p.ID, p.Status, p.Version, p.VaultID, p.Creator, len(p.Beneficiaries))
	}
	return b.String()
}

// OperationResult reports a committed mutating operation.
type OperationResult struct {
	Op      string `json:"op"`
	PlanID  uint64 `json:"plan_id"`
	Version uint64 `json:"version,omitempty"`
	Share   uint64 `json:"share,omitempty"`
	Seq     int64  `json:"seq"`
}

func (r OperationResult) Text() string {
	switch r.Op {
	case lifecycle.OpCreatePlan:
		return fmt.Sprintf("Plan %d created (seq %d)", r.PlanID, r.Seq)
	case lifecycle.OpUpdatePlan:
		return fmt.Sprintf("Plan %d updated to version %d (seq %d)", r.PlanID, r.Version, r.Seq)
	case lifecycle.OpExecutePlan:
		return fmt.Sprintf("Plan %d executed (seq %d)", r.PlanID, r.Seq)
	case lifecycle.OpClaimShare:
		return fmt.Sprintf("Claimed %d bps of plan %d (seq %d)", r.Share, r.PlanID, r.Seq)
	}
	return fmt.Sprintf("%s on plan %d (seq %d)", r.Op, r.PlanID, r.Seq)
}

// Attestation is a proof produced by the reference oracle.
type Attestation struct {
	PlanID uint64 `json:"plan_id"`
	Proof  string `json:"proof"`
}

func (a Attestation) Text() string { return a.Proof }

// NewPlanCommand creates the plan command group.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Create, update, execute and claim plans",
	}

	cmd.AddCommand(newPlanCreateCommand(rootOpts))
	cmd.AddCommand(newPlanUpdateCommand(rootOpts))
	cmd.AddCommand(newPlanExecuteCommand(rootOpts))
	cmd.AddCommand(newPlanClaimCommand(rootOpts))
	cmd.AddCommand(newPlanShowCommand(rootOpts))
	cmd.AddCommand(newPlanListCommand(rootOpts))
	cmd.AddCommand(newPlanAttestCommand(rootOpts))

	return cmd
}

func callerFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "as", "", "identity invoking the operation (required)")
	_ = cmd.MarkFlagRequired("as")
}

func newPlanCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a plan from a manifest",
		Long: `Create a plan from a YAML, JSON or CUE manifest. The vault named by the
manifest is locked for the plan.

Example:
  bequest plan create --as alice --file ./estate.yaml
  bequest plan create --as alice --file ./estate.cue --vault 7`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlanCreate(opts, cmd)
		},
	}

	callerFlag(cmd, &opts.Caller)
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "plan manifest (required)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().Uint64Var(&opts.VaultID, "vault", 0, "vault id (overrides the manifest)")

	return cmd
}

func runPlanCreate(opts *PlanOptions, cmd *cobra.Command) error {
	f := formatter(cmd, opts.RootOptions)

	m, err := LoadManifest(opts.File)
	if err != nil {
		return manifestFailure(f, err)
	}
	if opts.VaultID != 0 {
		m.VaultID = opts.VaultID
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := s.engine.CreatePlan(ctx, plan.Identity(opts.Caller), m.Beneficiaries, m.Conditions, m.VaultID)
	if err != nil {
		return f.Rejected(lifecycle.OpCreatePlan, err)
	}
	return f.Success(OperationResult{Op: lifecycle.OpCreatePlan, PlanID: id, Seq: s.engine.Now()})
}

func newPlanUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "update <plan-id>",
		Short:         "Replace a plan's beneficiaries and conditions",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlanUpdate(opts, args[0], cmd)
		},
	}

	callerFlag(cmd, &opts.Caller)
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "plan manifest (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runPlanUpdate(opts *PlanOptions, rawID string, cmd *cobra.Command) error {
	f := formatter(cmd, opts.RootOptions)

	id, err := parsePlanID(rawID)
	if err != nil {
		return err
	}
	m, err := LoadManifest(opts.File)
	if err != nil {
		return manifestFailure(f, err)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.engine.UpdatePlan(ctx, plan.Identity(opts.Caller), id, m.Beneficiaries, m.Conditions); err != nil {
		return f.Rejected(lifecycle.OpUpdatePlan, err)
	}
	p, _, err := s.engine.GetPlan(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read plan", err)
	}
	return f.Success(OperationResult{Op: lifecycle.OpUpdatePlan, PlanID: id, Version: p.Version, Seq: s.engine.Now()})
}

func newPlanExecuteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "execute <plan-id>",
		Short: "Execute a plan with an oracle proof",
		Long: `Execute a plan. The caller must be the oracle and the proof (hex) must
verify against the plan's conditions.

Example:
  bequest plan execute 0 --as oracle --proof "$(bequest plan attest 0)"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlanExecute(opts, args[0], cmd)
		},
	}

	callerFlag(cmd, &opts.Caller)
	cmd.Flags().StringVar(&opts.Proof, "proof", "", "oracle proof, hex encoded")

	return cmd
}

func runPlanExecute(opts *PlanOptions, rawID string, cmd *cobra.Command) error {
	f := formatter(cmd, opts.RootOptions)

	id, err := parsePlanID(rawID)
	if err != nil {
		return err
	}
	proof, err := hex.DecodeString(opts.Proof)
	if err != nil {
		return WrapExitError(ExitCommandError, "proof must be hex encoded", err)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.engine.ExecutePlan(ctx, plan.Identity(opts.Caller), id, proof); err != nil {
		return f.Rejected(lifecycle.OpExecutePlan, err)
	}
	return f.Success(OperationResult{Op: lifecycle.OpExecutePlan, PlanID: id, Seq: s.engine.Now()})
}

func newPlanClaimCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "claim <plan-id>",
		Short:         "Claim the caller's share of an executed plan",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlanClaim(opts, args[0], cmd)
		},
	}

	callerFlag(cmd, &opts.Caller)

	return cmd
}

func runPlanClaim(opts *PlanOptions, rawID string, cmd *cobra.Command) error {
	f := formatter(cmd, opts.RootOptions)

	id, err := parsePlanID(rawID)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	share, err := s.engine.ClaimShare(ctx, plan.Identity(opts.Caller), id)
	if err != nil {
		return f.Rejected(lifecycle.OpClaimShare, err)
	}
	return f.Success(OperationResult{Op: lifecycle.OpClaimShare, PlanID: id, Share: share, Seq: s.engine.Now()})
}

func newPlanShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <plan-id>",
		Short:         "Show a plan, its execution and its claims",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlanShow(rootOpts, args[0], cmd)
		},
	}
}

func runPlanShow(opts *RootOptions, rawID string, cmd *cobra.Command) error {
	f := formatter(cmd, opts)

	id, err := parsePlanID(rawID)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	p, ok, err := s.engine.GetPlan(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read plan", err)
	}
	if !ok {
		_ = f.Error(ErrCodeNotFound, fmt.Sprintf("plan %d not found", id), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("plan %d not found", id))
	}

	view := PlanView{Plan: p}
	if exec, ok, err := s.engine.GetPlanExecution(ctx, id); err != nil {
		return WrapExitError(ExitCommandError, "failed to read execution", err)
	} else if ok {
		view.Execution = &exec
	}
	if view.Claims, err = s.engine.ListClaims(ctx, id); err != nil {
		return WrapExitError(ExitCommandError, "failed to read claims", err)
	}
	return f.Success(view)
}

func newPlanListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List every plan",
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

			plans, err := s.engine.ListPlans(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list plans", err)
			}
			return formatter(cmd, rootOpts).Success(PlanList{Plans: plans})
		},
	}
}

func newPlanAttestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "attest <plan-id>",
		Short: "Produce the reference oracle's proof for a plan",
		Long: `Produce the proof the fixture oracle accepts for a plan's current
conditions, hex encoded. Updating the conditions invalidates the proof.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlanAttest(rootOpts, args[0], cmd)
		},
	}
}

func runPlanAttest(opts *RootOptions, rawID string, cmd *cobra.Command) error {
	f := formatter(cmd, opts)

	id, err := parsePlanID(rawID)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	p, ok, err := s.engine.GetPlan(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read plan", err)
	}
	if !ok {
		_ = f.Error(ErrCodeNotFound, fmt.Sprintf("plan %d not found", id), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("plan %d not found", id))
	}

	proof, err := s.collab.Oracle.Attest(p.Conditions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to attest", err)
	}
	return f.Success(Attestation{PlanID: id, Proof: hex.EncodeToString(proof)})
}

// manifestFailure reports a manifest that could not be loaded.
func manifestFailure(f *OutputFormatter, err error) error {
	code := ErrCodeGeneric
	var le *LoadError
	if errors.As(err, &le) {
		code = le.Code
	}
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to load manifest", err)
}
