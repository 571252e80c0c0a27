package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/bequest/internal/ir"
	"github.com/roach88/bequest/internal/plan"
)

// marshalBeneficiaries converts a beneficiary list to canonical JSON TEXT.
// List order is preserved; it is part of the plan.
func marshalBeneficiaries(bs []plan.Beneficiary) (string, error) {
	arr := make(ir.Array, len(bs))
	for i, b := range bs {
		arr[i] = ir.Object{
			"beneficiary": ir.String(b.Beneficiary),
			"share":       ir.Int(int64(b.Share)),
		}
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal beneficiaries: %w", err)
	}
	return string(data), nil
}

// marshalConditions converts a condition list to canonical JSON TEXT.
func marshalConditions(cs []plan.Condition) (string, error) {
	arr := make(ir.Array, len(cs))
	for i, c := range cs {
		arr[i] = ir.Object{
			"event_type":     ir.String(c.EventType),
			"threshold":      ir.Int(int64(c.Threshold)),
			"proof_required": ir.Bool(c.ProofRequired),
		}
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal conditions: %w", err)
	}
	return string(data), nil
}

func unmarshalBeneficiaries(data string) ([]plan.Beneficiary, error) {
	var bs []plan.Beneficiary
	if err := json.Unmarshal([]byte(data), &bs); err != nil {
		return nil, fmt.Errorf("unmarshal beneficiaries: %w", err)
	}
	return bs, nil
}

func unmarshalConditions(data string) ([]plan.Condition, error) {
	var cs []plan.Condition
	if err := json.Unmarshal([]byte(data), &cs); err != nil {
		return nil, fmt.Errorf("unmarshal conditions: %w", err)
	}
	return cs, nil
}

// marshalPayload converts an audit payload to canonical JSON TEXT.
func marshalPayload(payload ir.Object) (string, error) {
	if payload == nil {
		payload = ir.Object{}
	}
	data, err := ir.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT to an Object. Large integers
// survive because ir decodes numbers with json.Number.
func unmarshalPayload(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return obj, nil
}

// toSQL and fromSQL move unsigned values through SQLite's signed INTEGER by
// bit pattern.
func toSQL(v uint64) int64   { return int64(v) }
func fromSQL(v int64) uint64 { return uint64(v) }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
