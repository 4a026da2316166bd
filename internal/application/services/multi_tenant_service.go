package services

import (
	"fmt"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/domain/errkind"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/tenant"
)

// TenantDirectory enumerates tenants and opens their contexts. *tenant.Manager
// satisfies it.
type TenantDirectory interface {
	tenant.Resolver
	ListTenants() ([]tenant.Summary, error)
}

// MultiTenantService answers the network-level read queries.
type MultiTenantService struct {
	directory TenantDirectory
}

// NewMultiTenantService creates a new MultiTenantService.
func NewMultiTenantService(directory TenantDirectory) *MultiTenantService {
	return &MultiTenantService{directory: directory}
}

// ListTenants returns every registered tenant.
func (s *MultiTenantService) ListTenants() ([]tenant.Summary, error) {
	tenants, err := s.directory.ListTenants()
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return tenants, nil
}

// RequireTenant resolves a tenant id, classifying unknown ids as not found.
func (s *MultiTenantService) RequireTenant(tenantID string) (*tenant.Context, error) {
	const op = "tenant.resolve"
	if tenantID == "" {
		return nil, errkind.Errorf(errkind.ValidationFailed, op, "tenant id is required")
	}
	tenants, err := s.ListTenants()
	if err != nil {
		return nil, errkind.E(errkind.Internal, op, err)
	}
	known := false
	for _, t := range tenants {
		if t.TenantID == tenantID {
			known = true
			break
		}
	}
	if !known {
		return nil, errkind.Errorf(errkind.NotFound, op, "tenant %s not found", tenantID)
	}

	ctx, err := s.directory.GetContextByID(tenantID)
	if err != nil {
		return nil, errkind.E(errkind.Internal, op, err)
	}
	return ctx, nil
}

// ListPosts pages through a tenant's candidate posts, newest first.
func (s *MultiTenantService) ListPosts(tenantID string, query content.PostQuery) (*content.PostPage, error) {
	tenantCtx, err := s.RequireTenant(tenantID)
	if err != nil {
		return nil, err
	}
	page, err := tenantCtx.PostRepo().List(query)
	if err != nil {
		return nil, errkind.E(errkind.Internal, "posts.list", err)
	}
	return page, nil
}
