package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleValid(t *testing.T) {
	for _, r := range Roles {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, Role("admin").Valid())
	assert.False(t, Role("Manager").Valid())
	assert.False(t, Role("").Valid())
}

func TestSanitizeOmitsSecrets(t *testing.T) {
	token := "refresh"
	u := User{
		ID:           7,
		Username:     "alice",
		FullName:     "Alice A",
		Email:        "a@x.com",
		PasswordHash: "$2a$10$hash",
		Role:         RoleTenant,
		RefreshToken: &token,
		CreatedAt:    time.Unix(0, 0).UTC(),
	}

	b, err := json.Marshal(u.Sanitize())
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "alice", out["username"])
	assert.NotContains(t, out, "password")
	assert.NotContains(t, out, "passwordHash")
	assert.NotContains(t, out, "refreshToken")
	assert.NotContains(t, string(b), "$2a$10$hash")
}
