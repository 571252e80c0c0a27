package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventIDDeterminism(t *testing.T) {
	payload := Object{"plan_id": Int(0)}

	id1, err := EventID(EventPlanCreated, 0, payload, 1)
	require.NoError(t, err)
	id2, err := EventID(EventPlanCreated, 0, payload, 1)
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "EventID must be deterministic")
	assert.Len(t, id1, 64, "SHA-256 hex is 64 characters")
}

func TestEventIDChangesWithInput(t *testing.T) {
	payload := Object{"plan_id": Int(0)}

	base := MustEventID(EventPlanCreated, 0, payload, 1)
	assert.NotEqual(t, base, MustEventID(EventPlanUpdated, 0, payload, 1), "kind")
	assert.NotEqual(t, base, MustEventID(EventPlanCreated, 1, payload, 1), "plan id")
	assert.NotEqual(t, base, MustEventID(EventPlanCreated, 0, payload, 2), "seq")
	assert.NotEqual(t, base, MustEventID(EventPlanCreated, 0, Object{"plan_id": Int(1)}, 1), "payload")
}

func TestEventIDKeyOrderIndependent(t *testing.T) {
	a := Object{"beneficiary": String("SP1"), "share": Int(5000)}
	b := Object{"share": Int(5000), "beneficiary": String("SP1")}
	assert.Equal(t, MustEventID(EventShareClaimed, 3, a, 9), MustEventID(EventShareClaimed, 3, b, 9))
}

func TestRecipientDigest(t *testing.T) {
	a := RecipientDigest("SP-ALICE")
	assert.Equal(t, a, RecipientDigest("SP-ALICE"))
	assert.NotEqual(t, a, RecipientDigest("SP-BOB"))
}
