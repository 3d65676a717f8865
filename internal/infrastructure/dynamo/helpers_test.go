package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"status": "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", ue.Expr)
	assert.Equal(t, map[string]string{"#f0": "status"}, ue.Names)
	_, ok := ue.Values[":v0"]
	assert.True(t, ok)
}

func TestBuildUpdateExpr_MultipleFields_Deterministic(t *testing.T) {
	updates := map[string]interface{}{
		"status":     "cancelled",
		"total_cost": 20.0,
		"updated_at": "2026-01-01T00:00:00Z",
	}
	// Call twice to verify determinism.
	ue1, err := buildUpdateExpr(updates)
	require.NoError(t, err)
	ue2, err := buildUpdateExpr(updates)
	require.NoError(t, err)

	assert.Equal(t, ue1.Expr, ue2.Expr)

	// Keys must be sorted: status < total_cost < updated_at
	assert.Equal(t, "status", ue1.Names["#f0"])
	assert.Equal(t, "total_cost", ue1.Names["#f1"])
	assert.Equal(t, "updated_at", ue1.Names["#f2"])
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2", ue1.Expr)
}

func TestBuildUpdateExpr_RemoveClause(t *testing.T) {
	ue, err := buildUpdateExpr(
		map[string]interface{}{"verified": true},
		"verification_token", "verification_expires",
	)
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0 REMOVE #r0, #r1", ue.Expr)
	assert.Equal(t, "verification_token", ue.Names["#r0"])
	assert.Equal(t, "verification_expires", ue.Names["#r1"])
}

func TestBuildUpdateExpr_RemoveOnly(t *testing.T) {
	ue, err := buildUpdateExpr(nil, "reset_token")
	require.NoError(t, err)
	assert.Equal(t, "REMOVE #r0", ue.Expr)
}

func TestBuildUpdateExpr_ValuesMarshalledCorrectly(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"verified": true})
	require.NoError(t, err)
	av, ok := ue.Values[":v0"]
	require.True(t, ok)
	boolVal, isBool := av.(*types.AttributeValueMemberBOOL)
	require.True(t, isBool)
	assert.True(t, boolVal.Value)
}

func TestBuildUpdateExpr_EmptyInput_ReturnsError(t *testing.T) {
	_, err := buildUpdateExpr(map[string]interface{}{})
	assert.ErrorContains(t, err, "no fields to update")
}
