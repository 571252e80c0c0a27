package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bequest/internal/plan"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Update bool // validate for update: the vault id is not required
}

// ManifestResult is the validation outcome of one manifest.
type ManifestResult struct {
	Path          string `json:"path"`
	Valid         bool   `json:"valid"`
	Code          string `json:"code,omitempty"`
	Message       string `json:"message,omitempty"`
	Line          int    `json:"line,omitempty"`
	Beneficiaries int    `json:"beneficiaries"`
	Conditions    int    `json:"conditions"`
}

// ValidationResult holds validation results for every manifest.
type ValidationResult struct {
	Valid     bool             `json:"valid"`
	Manifests []ManifestResult `json:"manifests"`
}

func (r ValidationResult) Text() string {
	var b strings.Builder
	for i, m := range r.Manifests {
		if i > 0 {
			b.WriteString("\n")
		}
		if m.Valid {
			fmt.Fprintf(&b, "✓ %s (%d beneficiaries, %d conditions)", m.Path, m.Beneficiaries, m.Conditions)
			continue
		}
		fmt.Fprintf(&b, "✗ %s\n  [%s] %s", m.Path, m.Code, m.Message)
	}
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <manifest>...",
		Short: "Validate plan manifests without touching the database",
		Long: `Validate plan manifests (YAML, JSON or CUE) against the same rules
create and update apply: 1-20 distinct beneficiaries whose shares sum to
10000 basis points, 1-10 conditions with printable event types and a
threshold of at least 1, and a nonzero vault id.

Example:
  bequest validate ./plans/estate.yaml
  bequest validate --update ./plans/estate.cue`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "validate for update (vault id not required)")

	return cmd
}

func runValidate(opts *ValidateOptions, paths []string, cmd *cobra.Command) error {
	f := formatter(cmd, opts.RootOptions)

	result := ValidationResult{Valid: true, Manifests: make([]ManifestResult, 0, len(paths))}
	for _, path := range paths {
		f.VerboseLog("Validating %s", path)
		mr := validateManifest(path, !opts.Update)
		if !mr.Valid {
			result.Valid = false
		}
		result.Manifests = append(result.Manifests, mr)
	}

	if err := f.Success(result); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func validateManifest(path string, requireVault bool) ManifestResult {
	mr := ManifestResult{Path: path}

	m, err := LoadManifest(path)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			mr.Code, mr.Message = le.Code, le.Message
			if le.Pos.IsValid() {
				mr.Line = le.Pos.Line()
			}
		} else {
			mr.Code, mr.Message = ErrCodeGeneric, err.Error()
		}
		return mr
	}
	mr.Beneficiaries = len(m.Beneficiaries)
	mr.Conditions = len(m.Conditions)

	if err := m.Validate(requireVault); err != nil {
		var pe *plan.Error
		if errors.As(err, &pe) {
			mr.Code, mr.Message = string(pe.Code), pe.Message
		} else {
			mr.Code, mr.Message = ErrCodeInvalid, err.Error()
		}
		return mr
	}
	mr.Valid = true
	return mr
}
