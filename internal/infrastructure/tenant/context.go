// Package tenant provides tenant context management for multi-tenant support.
package tenant

import (
	"github.com/AtRiskMedia/postdup-go/internal/domain/repositories"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/persistence/content"
)

// Context is the explicit handle to one tenant's configuration and store.
// Every store access goes through the repositories it hands out.
type Context struct {
	TenantID string
	Config   *Config
	Database *Database
	Status   string
}

// NewContext assembles a context from already loaded parts.
func NewContext(cfg *Config, db *Database) *Context {
	status := cfg.Status
	if status == "" {
		status = "active"
	}
	return &Context{
		TenantID: cfg.TenantID,
		Config:   cfg,
		Database: db,
		Status:   status,
	}
}

// Close cleans up the tenant context
func (ctx *Context) Close() error {
	if ctx.Database != nil {
		return ctx.Database.Close()
	}
	return nil
}

// IsActive returns true if the tenant is active
func (ctx *Context) IsActive() bool {
	return ctx.Status == "active"
}

// BaseURL is the tenant's public origin used for reference rewriting.
func (ctx *Context) BaseURL() string {
	return ctx.Config.BaseURL()
}

// GetDatabaseInfo returns database connection information for logging
func (ctx *Context) GetDatabaseInfo() string {
	if ctx.Database != nil {
		return ctx.Database.GetConnectionInfo()
	}
	return "no database connection"
}

// =============================================================================
// Repository Factory Methods
// =============================================================================

// PostRepo returns a post repository bound to this tenant
func (ctx *Context) PostRepo() repositories.PostRepository {
	return content.NewPostRepository(ctx.Database.Conn)
}

// MetaRepo returns a post meta repository bound to this tenant
func (ctx *Context) MetaRepo() repositories.MetaRepository {
	return content.NewMetaRepository(ctx.Database.Conn)
}

// TermRepo returns a taxonomy term repository bound to this tenant
func (ctx *Context) TermRepo() repositories.TermRepository {
	return content.NewTermRepository(ctx.Database.Conn)
}

// AttachmentRepo returns an attachment repository bound to this tenant
func (ctx *Context) AttachmentRepo() repositories.AttachmentRepository {
	return content.NewAttachmentRepository(ctx.Database.Conn)
}
