package cli

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/bequest/internal/plan"
)

//go:embed manifest.cue
var manifestSchema string

// Manifest is the beneficiary and condition set of a plan, as authored in a
// YAML, JSON or CUE file. VaultID is ignored by update.
type Manifest struct {
	VaultID       uint64             `json:"vault_id" yaml:"vault_id"`
	Beneficiaries []plan.Beneficiary `json:"beneficiaries" yaml:"beneficiaries"`
	Conditions    []plan.Condition   `json:"conditions" yaml:"conditions"`
}

// LoadError represents an error that occurred while loading a manifest.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadManifest reads a manifest, choosing the decoder by file extension:
// .cue files are evaluated against the manifest schema, anything else is
// decoded as YAML (which includes JSON).
func LoadManifest(path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest not found: %s", path)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest is a directory: %s", path)}
	}

	if strings.EqualFold(filepath.Ext(path), ".cue") {
		return loadCUEManifest(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: err.Error()}
	}
	return ParseManifest(data)
}

// ParseManifest decodes YAML or JSON manifest bytes. Unknown fields are
// rejected.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: err.Error()}
	}
	return &m, nil
}

func loadCUEManifest(path string) (*Manifest, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(manifestSchema, cue.Filename("manifest.cue"))
	if err := schema.Err(); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, err)
	}

	instances := load.Instances([]string{filepath.Base(path)}, &load.Config{Dir: filepath.Dir(path)})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, err)
	}

	// A manifest may be the file's top level or a "plan" field.
	if p := value.LookupPath(cue.ParsePath("plan")); p.Exists() {
		value = p
	}

	unified := schema.LookupPath(cue.ParsePath("#Manifest")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(ErrCodeInvalid, err)
	}

	var m Manifest
	if err := unified.Decode(&m); err != nil {
		return nil, cueLoadError(ErrCodeParseFailed, err)
	}
	return &m, nil
}

// cueLoadError converts a CUE error into a LoadError at its first position.
func cueLoadError(code string, err error) *LoadError {
	le := &LoadError{Code: code, Message: err.Error()}
	var cerr cueerrors.Error
	if errors.As(err, &cerr) {
		le.Pos = cerr.Position()
		le.Message = cerr.Error()
	}
	return le
}

// Validate runs the plan validators over the manifest. The vault id is
// checked only when requireVault is set.
func (m *Manifest) Validate(requireVault bool) error {
	if err := plan.ValidateBeneficiaries(m.Beneficiaries); err != nil {
		return err
	}
	if err := plan.ValidateConditions(m.Conditions); err != nil {
		return err
	}
	if requireVault {
		return plan.ValidateVaultID(m.VaultID)
	}
	return nil
}
