package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/tenant"
	"github.com/golang-jwt/jwt/v4"
)

// Roles carried in issued tokens.
const (
	RoleNetworkAdmin = "network_admin"
	RoleAdmin        = "admin"
	RoleEditor       = "editor"
)

const (
	tokenTypeNetwork = "network_auth"
	tokenTypeAdmin   = "admin_auth"
)

// AuthService handles authentication workflows and JWT operations
type AuthService struct {
	logger          *logging.ChanneledLogger
	networkPassword string
	networkSecret   string
	ttl             time.Duration
}

// NewAuthService creates a new authentication service
func NewAuthService(logger *logging.ChanneledLogger, networkPassword, networkSecret string, ttl time.Duration) *AuthService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		logger:          logger,
		networkPassword: networkPassword,
		networkSecret:   networkSecret,
		ttl:             ttl,
	}
}

// AuthResult holds authentication result data
type AuthResult struct {
	Token   string `json:"token"`
	Role    string `json:"role"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Principal is the caller identified by a validated token.
type Principal struct {
	Role     string
	TenantID string
	UserID   int64
}

// AuthenticateNetwork checks the network admin password and issues a token.
func (a *AuthService) AuthenticateNetwork(password string) *AuthResult {
	if !security.CheckPassword(a.networkPassword, password) {
		a.logger.LogAuthOperation("network_login", "", false, nil)
		return &AuthResult{Success: false, Error: "Invalid credentials"}
	}

	claims := jwt.MapClaims{
		"role": RoleNetworkAdmin,
		"type": tokenTypeNetwork,
		"sub":  defaultActingUser,
	}
	token, err := security.GenerateJWT(claims, a.networkSecret, a.ttl)
	if err != nil {
		a.logger.Auth().Error("Token generation failed", "error", err)
		return &AuthResult{Success: false, Error: "Token generation failed"}
	}

	a.logger.LogAuthOperation("network_login", "", true, nil)
	return &AuthResult{Token: token, Role: RoleNetworkAdmin, Success: true}
}

// AuthenticateAdmin validates admin or editor credentials and generates JWT
func (a *AuthService) AuthenticateAdmin(password string, tenantCtx *tenant.Context) *AuthResult {
	var role string
	switch {
	case security.CheckPassword(tenantCtx.Config.AdminPassword, password):
		role = RoleAdmin
	case security.CheckPassword(tenantCtx.Config.EditorPassword, password):
		role = RoleEditor
	default:
		a.logger.LogAuthOperation("admin_login", tenantCtx.TenantID, false, nil)
		return &AuthResult{Success: false, Error: "Invalid credentials"}
	}

	claims := jwt.MapClaims{
		"role":     role,
		"tenantId": tenantCtx.TenantID,
		"type":     tokenTypeAdmin,
		"sub":      defaultActingUser,
	}
	token, err := security.GenerateJWT(claims, tenantCtx.Config.JWTSecret, a.ttl)
	if err != nil {
		return &AuthResult{Success: false, Error: "Token generation failed"}
	}

	a.logger.LogAuthOperation("admin_login", tenantCtx.TenantID, true, map[string]any{"role": role})
	return &AuthResult{Token: token, Role: role, Success: true}
}

// ValidateNetworkToken accepts only network admin tokens.
func (a *AuthService) ValidateNetworkToken(tokenString string) (*Principal, error) {
	claims, err := security.ValidateJWT(tokenString, a.networkSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid network token: %w", err)
	}
	if claims["type"] != tokenTypeNetwork || claims["role"] != RoleNetworkAdmin {
		return nil, errors.New("not a network admin token")
	}
	return &Principal{Role: RoleNetworkAdmin, UserID: userID(claims)}, nil
}

// ValidateTenantToken accepts admin and editor tokens issued for tenantCtx.
// Network admin tokens are accepted for every tenant.
func (a *AuthService) ValidateTenantToken(tokenString string, tenantCtx *tenant.Context) (*Principal, error) {
	if p, err := a.ValidateNetworkToken(tokenString); err == nil {
		p.TenantID = tenantCtx.TenantID
		return p, nil
	}

	claims, err := security.ValidateJWT(tokenString, tenantCtx.Config.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims["type"] != tokenTypeAdmin || claims["tenantId"] != tenantCtx.TenantID {
		return nil, errors.New("token not issued for this tenant")
	}
	role, _ := claims["role"].(string)
	if role != RoleAdmin && role != RoleEditor {
		return nil, fmt.Errorf("role %q may not duplicate", role)
	}
	return &Principal{Role: role, TenantID: tenantCtx.TenantID, UserID: userID(claims)}, nil
}

func userID(claims jwt.MapClaims) int64 {
	if sub, ok := claims["sub"].(float64); ok && sub > 0 {
		return int64(sub)
	}
	return defaultActingUser
}
