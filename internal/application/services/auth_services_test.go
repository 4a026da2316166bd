package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/security"
)

func TestAuthenticateNetwork(t *testing.T) {
	hash, err := security.HashPassword("network-pass")
	require.NoError(t, err)
	auth := NewAuthService(nil, hash, "network-secret", time.Hour)

	failed := auth.AuthenticateNetwork("wrong")
	assert.False(t, failed.Success)
	assert.Empty(t, failed.Token)

	ok := auth.AuthenticateNetwork("network-pass")
	require.True(t, ok.Success)
	assert.Equal(t, RoleNetworkAdmin, ok.Role)

	p, err := auth.ValidateNetworkToken(ok.Token)
	require.NoError(t, err)
	assert.Equal(t, RoleNetworkAdmin, p.Role)
	assert.Equal(t, int64(1), p.UserID)

	_, err = auth.ValidateNetworkToken("garbage")
	assert.Error(t, err)
}

func TestTenantTokens(t *testing.T) {
	alpha := newTestTenant(t, "alpha")
	alpha.Config.AdminPassword = "admin-pass"
	alpha.Config.EditorPassword = "editor-pass"
	beta := newTestTenant(t, "beta")
	beta.Config.AdminPassword = "admin-pass"

	auth := NewAuthService(nil, "network-pass", "network-secret", time.Hour)

	assert.False(t, auth.AuthenticateAdmin("nope", alpha).Success)

	editor := auth.AuthenticateAdmin("editor-pass", alpha)
	require.True(t, editor.Success)
	assert.Equal(t, RoleEditor, editor.Role)

	admin := auth.AuthenticateAdmin("admin-pass", alpha)
	require.True(t, admin.Success)
	assert.Equal(t, RoleAdmin, admin.Role)

	p, err := auth.ValidateTenantToken(admin.Token, alpha)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, p.Role)
	assert.Equal(t, "alpha", p.TenantID)

	_, err = auth.ValidateTenantToken(admin.Token, beta)
	assert.Error(t, err, "tokens are bound to the issuing tenant")

	_, err = auth.ValidateNetworkToken(admin.Token)
	assert.Error(t, err)

	network := auth.AuthenticateNetwork("network-pass")
	require.True(t, network.Success)
	p, err = auth.ValidateTenantToken(network.Token, beta)
	require.NoError(t, err)
	assert.Equal(t, RoleNetworkAdmin, p.Role)
	assert.Equal(t, "beta", p.TenantID)
}
