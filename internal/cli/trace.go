package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bequest/internal/ir"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Plan   string
	Config bool
	Verify bool
}

// TraceEvent is one audit event in the timeline.
type TraceEvent struct {
	Seq          int64          `json:"seq"`
	Kind         string         `json:"kind"`
	PlanID       int64          `json:"plan_id"`
	Caller       string         `json:"caller"`
	RequestToken string         `json:"request_token"`
	ID           string         `json:"id"`
	Payload      map[string]any `json:"payload"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Scope    string       `json:"scope"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`

	// Mismatches lists events whose id does not match their content. Only
	// populated with --verify.
	Mismatches []string `json:"mismatches,omitempty"`
	Verified   bool     `json:"verified,omitempty"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	ByKind      map[string]int `json:"by_kind"`
	FirstSeq    int64          `json:"first_seq"`
	LastSeq     int64          `json:"last_seq"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the audit trail",
		Long: `Show the audit trail of committed operations in sequence order.

Every successful operation appends exactly one event. Rejected operations
leave no trace. With --verify each event id is recomputed from its content
and mismatches are reported.

Examples:
  bequest trace
  bequest trace --plan 3
  bequest trace --config
  bequest trace --verify --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Plan, "plan", "", "only events of this plan")
	cmd.Flags().BoolVar(&opts.Config, "config", false, "only configuration events")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "recompute and check event ids")
	cmd.MarkFlagsMutuallyExclusive("plan", "config")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	f := formatter(cmd, opts.RootOptions)
	ctx := cmd.Context()

	s, err := openSession(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	var (
		events []ir.AuditEvent
		scope  string
	)
	switch {
	case opts.Plan != "":
		id, err := parsePlanID(opts.Plan)
		if err != nil {
			return err
		}
		scope = fmt.Sprintf("plan %d", id)
		events, err = s.engine.AuditTrail(ctx, id)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read audit trail", err)
		}
	case opts.Config:
		scope = "config"
		events, err = s.engine.ConfigTrail(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read audit trail", err)
		}
	default:
		scope = "all"
		events, err = s.engine.AllEvents(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read audit trail", err)
		}
	}

	result := buildTrace(scope, events, opts.Verify)
	if err := f.Success(result); err != nil {
		return err
	}
	if len(result.Mismatches) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d event(s) failed verification", len(result.Mismatches)))
	}
	return nil
}

// buildTrace converts audit events to the timeline and gathers statistics.
func buildTrace(scope string, events []ir.AuditEvent, verify bool) TraceResult {
	result := TraceResult{
		Scope:    scope,
		Timeline: make([]TraceEvent, 0, len(events)),
		Stats:    TraceStats{ByKind: map[string]int{}},
	}

	for _, ev := range events {
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:          ev.Seq,
			Kind:         ev.Kind,
			PlanID:       ev.PlanID,
			Caller:       ev.Caller,
			RequestToken: ev.RequestToken,
			ID:           ev.ID,
			Payload:      payloadMap(ev.Payload),
		})
		result.Stats.ByKind[ev.Kind]++

		if verify {
			want, err := ir.EventID(ev.Kind, ev.PlanID, ev.Payload, ev.Seq)
			switch {
			case err != nil:
				result.Mismatches = append(result.Mismatches, fmt.Sprintf("seq %d: %v", ev.Seq, err))
			case want != ev.ID:
				result.Mismatches = append(result.Mismatches,
					fmt.Sprintf("seq %d: id %s, content hashes to %s", ev.Seq, truncateID(ev.ID), truncateID(want)))
			}
		}
	}

	result.Stats.TotalEvents = len(events)
	if len(events) > 0 {
		result.Stats.FirstSeq = events[0].Seq
		result.Stats.LastSeq = events[len(events)-1].Seq
	}
	result.Verified = verify && len(result.Mismatches) == 0
	return result
}

func payloadMap(obj ir.Object) map[string]any {
	m, _ := ir.ToGo(obj).(map[string]any)
	return m
}

func (r TraceResult) Text() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Audit trail: %s\n\n", r.Scope)

	b.WriteString("=== Timeline ===\n")
	if len(r.Timeline) == 0 {
		b.WriteString("  (no events)\n")
	}
	for _, ev := range r.Timeline {
		formatTimelineEvent(&b, ev)
	}
	b.WriteString("\n")

	b.WriteString("=== Stats ===\n")
	fmt.Fprintf(&b, "  Total Events: %d\n", r.Stats.TotalEvents)
	kinds := make([]string, 0, len(r.Stats.ByKind))
	for k := range r.Stats.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(&b, "  %-14s %d\n", k+":", r.Stats.ByKind[k])
	}

	if r.Verified {
		b.WriteString("\n✓ All event ids verified")
	}
	if len(r.Mismatches) > 0 {
		b.WriteString("\n=== Verification ===\n")
		for _, m := range r.Mismatches {
			fmt.Fprintf(&b, "  ✗ %s\n", m)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, ev TraceEvent) {
	target := "config"
	if ev.PlanID != ir.NoPlan {
		target = fmt.Sprintf("plan %d", ev.PlanID)
	}
	fmt.Fprintf(w, "  [%d] %-13s %-8s by %s %s\n", ev.Seq, ev.Kind, target, ev.Caller, formatArgs(ev.Payload))
}

// formatArgs formats a payload for display.
// Uses sorted keys to ensure deterministic output.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
