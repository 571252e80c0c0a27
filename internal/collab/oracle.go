package collab

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/roach88/bequest/internal/plan"
)

// HMACOracle is a single oracle whose proofs are HMAC-SHA256 tags over the
// canonical JSON of a plan's conditions. Whoever holds the key can attest.
type HMACOracle struct {
	identity plan.Identity
	key      []byte
}

// NewHMACOracle creates an oracle acting as identity.
func NewHMACOracle(identity plan.Identity, key []byte) (*HMACOracle, error) {
	if identity == "" {
		return nil, errors.New("oracle: identity must not be empty")
	}
	if len(key) == 0 {
		return nil, errors.New("oracle: key must not be empty")
	}
	return &HMACOracle{identity: identity, key: append([]byte(nil), key...)}, nil
}

// Attest produces the proof that conditions are met.
func (o *HMACOracle) Attest(conditions []plan.Condition) ([]byte, error) {
	msg, err := plan.CanonicalConditions(conditions)
	if err != nil {
		return nil, fmt.Errorf("oracle: %w", err)
	}
	mac := hmac.New(sha256.New, o.key)
	mac.Write(msg)
	return mac.Sum(nil), nil
}

func (o *HMACOracle) VerifyCondition(_ context.Context, conditions []plan.Condition, proof []byte) (bool, error) {
	want, err := o.Attest(conditions)
	if err != nil {
		return false, err
	}
	return hmac.Equal(want, proof), nil
}

func (o *HMACOracle) CurrentOracleIdentity(context.Context) (plan.Identity, error) {
	return o.identity, nil
}
