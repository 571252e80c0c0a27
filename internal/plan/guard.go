package plan

// Guards are pure predicates. They carry no error codes of their own; the
// lifecycle translates a false result into UNAUTHORIZED or INVALID_PLAN
// depending on the step.

// IsCreator reports whether caller owns p.
func IsCreator(p Plan, caller Identity) bool {
	return caller != "" && p.Creator == caller
}

// IsOracle reports whether caller is the designated oracle. An empty oracle
// identity matches nobody.
func IsOracle(oracle, caller Identity) bool {
	return oracle != "" && oracle == caller
}

// IsActive reports whether p still accepts updates and execution.
func IsActive(p Plan) bool {
	return p.Status == StatusActive
}

// IsBeneficiary reports whether who is listed on p.
func IsBeneficiary(p Plan, who Identity) bool {
	_, ok := p.ShareOf(who)
	return ok
}
