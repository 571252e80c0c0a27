package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/bequest/internal/plan"
)

// Collaborator capabilities. The engine depends on these and never on a
// concrete implementation; internal/collab provides reference ones.
//
// A collaborator answers with (false, nil) to refuse and with a non-nil error
// when it could not answer. The engine treats both as failure of the whole
// operation and never retries.
//
// Collaborators are called while the operation's transaction is open. They
// must not call back into the Engine or open the Store.

// Registry knows which identities may create plans.
type Registry interface {
	IsRegistered(ctx context.Context, who plan.Identity) (bool, error)
}

// Encryptor produces and checks the allocation ciphertext.
type Encryptor interface {
	// Encrypt seals descriptor so that exactly recipients can decrypt it.
	Encrypt(ctx context.Context, descriptor []byte, recipients []plan.Identity) ([]byte, error)

	// VerifyDecryption reports whether who may decrypt ciphertext.
	VerifyDecryption(ctx context.Context, who plan.Identity, ciphertext []byte) (bool, error)
}

// Vault custodies the assets behind a plan.
type Vault interface {
	Lock(ctx context.Context, vaultID uint64, owner plan.Identity, planID uint64) (bool, error)
	Release(ctx context.Context, vaultID uint64, beneficiary plan.Identity, amount uint64) (bool, error)
}

// Oracle confirms real-world events.
type Oracle interface {
	VerifyCondition(ctx context.Context, conditions []plan.Condition, proof []byte) (bool, error)
	CurrentOracleIdentity(ctx context.Context) (plan.Identity, error)
}

// Dispatcher notifies beneficiaries that claims are open.
type Dispatcher interface {
	InitiateClaims(ctx context.Context, planID uint64, beneficiaries []plan.Beneficiary) (bool, error)
}

// Collaborators bundles the capabilities an Engine needs.
type Collaborators struct {
	Registry   Registry
	Encryptor  Encryptor
	Vault      Vault
	Oracle     Oracle
	Dispatcher Dispatcher
}

func (c Collaborators) validate() error {
	var errs []error
	if c.Registry == nil {
		errs = append(errs, errors.New("registry is required"))
	}
	if c.Encryptor == nil {
		errs = append(errs, errors.New("encryptor is required"))
	}
	if c.Vault == nil {
		errs = append(errs, errors.New("vault is required"))
	}
	if c.Oracle == nil {
		errs = append(errs, errors.New("oracle is required"))
	}
	if c.Dispatcher == nil {
		errs = append(errs, errors.New("dispatcher is required"))
	}
	return errors.Join(errs...)
}

// Recorder observes operation outcomes. internal/metrics provides a
// Prometheus-backed implementation.
type Recorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) Observe(context.Context, string, bool, time.Duration) {}

// refused turns a collaborator answer into a rejection carrying code. It
// returns nil when the collaborator agreed.
func refused(ok bool, err error, code plan.Code, format string, args ...any) *plan.Error {
	if err != nil {
		return plan.Errorf(code, format, args...).Wrap(err)
	}
	if !ok {
		return plan.Errorf(code, format, args...)
	}
	return nil
}
