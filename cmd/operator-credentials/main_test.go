package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/auth"
)

func TestValidateSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"too short", "abc123", true},
		{"letters only", "abcdefghijklmnop", true},
		{"numbers only", "1234567890123", true},
		{"valid", "warehouse-ops-2026", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSecret(tt.secret)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHashSecret(t *testing.T) {
	hash, err := hashSecret("warehouse-ops-2026")
	require.NoError(t, err)
	assert.NoError(t, auth.CheckSecret(hash, "warehouse-ops-2026"))

	_, err = hashSecret("short")
	assert.Error(t, err)
}

func TestMintToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := mintToken("erp-connector", auth.RoleIntegrator, time.Hour)
	require.NoError(t, err)

	jm, err := auth.NewJWTManager("test-secret")
	require.NoError(t, err)
	claims, err := jm.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "erp-connector", claims.Subject)
	assert.True(t, claims.HasRole(auth.RoleIntegrator))
	assert.False(t, claims.HasRole(auth.RoleOperator))

	_, err = mintToken("", auth.RoleIntegrator, time.Hour)
	assert.Error(t, err)
	_, err = mintToken("erp", "admin", time.Hour)
	assert.Error(t, err)
}

func TestMintToken_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := mintToken("erp", auth.RoleIntegrator, time.Hour)
	assert.Error(t, err)
}
