package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bequest/internal/plan"
)

// ClaimView is one beneficiary's claim record. A missing record shows as
// unclaimed.
type ClaimView struct {
	plan.Claim
	Share uint64 `json:"share"`
}

func (v ClaimView) Text() string {
	if !v.Claimed {
		return fmt.Sprintf("%s has not claimed plan %d (share %d bps)", v.Beneficiary, v.PlanID, v.Share)
	}
	return fmt.Sprintf("%s claimed %d bps of plan %d at %d", v.Beneficiary, v.ShareReceived, v.PlanID, v.ClaimedAt)
}

// ClaimList is every claim recorded on a plan.
type ClaimList struct {
	PlanID uint64       `json:"plan_id"`
	Claims []plan.Claim `json:"claims"`
}

func (l ClaimList) Text() string {
	if len(l.Claims) == 0 {
		return fmt.Sprintf("No claims on plan %d.", l.PlanID)
	}
	var b strings.Builder
	for i, c := range l.Claims {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%-20s %5d bps  at %d", c.Beneficiary, c.ShareReceived, c.ClaimedAt)
	}
	return b.String()
}

// NewClaimCommand creates the claim command group.
func NewClaimCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Inspect beneficiary claims",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "show <plan-id> <beneficiary>",
		Short:         "Show one beneficiary's claim on a plan",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClaimShow(rootOpts, args[0], plan.Identity(args[1]), cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "list <plan-id>",
		Short:         "List the claims recorded on a plan",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClaimList(rootOpts, args[0], cmd)
		},
	})

	return cmd
}

func runClaimShow(opts *RootOptions, rawID string, who plan.Identity, cmd *cobra.Command) error {
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

	c, ok, err := s.engine.GetBeneficiaryClaim(ctx, id, who)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read claim", err)
	}
	if !ok {
		c = plan.Claim{PlanID: id, Beneficiary: who}
	}
	share, _ := p.ShareOf(who)
	return f.Success(ClaimView{Claim: c, Share: share})
}

func runClaimList(opts *RootOptions, rawID string, cmd *cobra.Command) error {
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

	claims, err := s.engine.ListClaims(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list claims", err)
	}
	return formatter(cmd, opts).Success(ClaimList{PlanID: id, Claims: claims})
}
