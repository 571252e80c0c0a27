package plan

import (
	"errors"
	"fmt"
)

// Code categorizes a rejected operation. Callers switch on it to tell, for
// example, "shares don't sum to 10000" from "plan already executed".
type Code string

const (
	// CodeUnauthorized: caller lacks the identity the step requires, or the
	// system is not configured for the operation.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeInvalidPlan: plan missing, in the wrong lifecycle state, or a
	// collaborator refused a step that depends on plan state.
	CodeInvalidPlan Code = "INVALID_PLAN"

	// CodeInvalidAllocation: beneficiary list empty, duplicated, or shares
	// not summing to 10000.
	CodeInvalidAllocation Code = "INVALID_ALLOCATION"

	// CodeInvalidCondition: condition list or entry out of bounds.
	CodeInvalidCondition Code = "INVALID_CONDITION"

	// CodeInvalidVaultID: vault reference is zero or the vault refused the lock.
	CodeInvalidVaultID Code = "INVALID_VAULT_ID"

	// CodeEncryptionFailed: ciphertext could not be produced or is out of bounds.
	CodeEncryptionFailed Code = "ENCRYPTION_FAILED"

	// CodeMaxBeneficiariesExceeded: more than 20 beneficiaries.
	CodeMaxBeneficiariesExceeded Code = "MAX_BENEFICIARIES_EXCEEDED"
)

// Codes lists every error code in a stable order.
var Codes = []Code{
	CodeUnauthorized,
	CodeInvalidPlan,
	CodeInvalidAllocation,
	CodeInvalidCondition,
	CodeInvalidVaultID,
	CodeEncryptionFailed,
	CodeMaxBeneficiariesExceeded,
}

// Error is a rejected lifecycle operation.
type Error struct {
	// Code identifies the error kind.
	Code Code

	// Message is a human-readable description.
	Message string

	// PlanID is the affected plan, when the operation targeted one.
	PlanID *uint64

	// Cause is the collaborator error that triggered the rejection, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.PlanID != nil {
		msg = fmt.Sprintf("%s (plan=%d)", msg, *e.PlanID)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so errors.Is(err, ErrInvalidPlan)
// works regardless of message or plan.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is.
var (
	ErrUnauthorized             = &Error{Code: CodeUnauthorized}
	ErrInvalidPlan              = &Error{Code: CodeInvalidPlan}
	ErrInvalidAllocation        = &Error{Code: CodeInvalidAllocation}
	ErrInvalidCondition         = &Error{Code: CodeInvalidCondition}
	ErrInvalidVaultID           = &Error{Code: CodeInvalidVaultID}
	ErrEncryptionFailed         = &Error{Code: CodeEncryptionFailed}
	ErrMaxBeneficiariesExceeded = &Error{Code: CodeMaxBeneficiariesExceeded}
)

// Errorf creates an Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ForPlan returns a copy of e tagged with the plan it concerns.
func (e *Error) ForPlan(id uint64) *Error {
	cp := *e
	cp.PlanID = &id
	return &cp
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Cause = cause
	return &cp
}

// CodeOf extracts the code from an error chain. It returns "" for errors
// that are not lifecycle rejections (for example storage failures).
func CodeOf(err error) Code {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
