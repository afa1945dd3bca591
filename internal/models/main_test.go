package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity_KeepsUnknownFields(t *testing.T) {
	var id Identity
	err := json.Unmarshal([]byte(`{"name":"Ann","role":"ADMIN","team":"ops","id":"u1"}`), &id)
	require.NoError(t, err)

	assert.Equal(t, "Ann", id.Name)
	assert.Equal(t, "u1", id.ID)
	assert.True(t, id.IsAdmin())
	assert.Equal(t, json.RawMessage(`"ops"`), id.Extra["team"])
	assert.NotContains(t, id.Extra, "name")
}

func TestIdentity_NoExtra(t *testing.T) {
	var id Identity
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Bob","role":"USER"}`), &id))
	assert.Nil(t, id.Extra)
	assert.False(t, id.IsAdmin())
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("ROOT").Valid())
	assert.False(t, Role("").Valid())
}
