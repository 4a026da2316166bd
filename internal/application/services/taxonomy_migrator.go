package services

import (
	"errors"
	"fmt"

	"github.com/AtRiskMedia/postdup-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/postdup-go/internal/domain/repositories"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/postdup-go/internal/infrastructure/tenant"
)

// maxTermDepth guards parent-chain recursion against cyclic source data.
const maxTermDepth = 32

// TaxonomyMigrator copies the terms attached to a post into another tenant,
// creating parents before children and reusing terms matched by slug.
type TaxonomyMigrator struct {
	logger *logging.ChanneledLogger
}

func NewTaxonomyMigrator(logger *logging.ChanneledLogger) *TaxonomyMigrator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TaxonomyMigrator{logger: logger}
}

// MigrateTaxonomies assigns destPostID the destination equivalents of every
// term sourcePostID carries, per taxonomy registered for postType. The
// returned map goes from source term id to destination term id.
func (m *TaxonomyMigrator) MigrateTaxonomies(sw *tenant.Switcher, sourcePostID, destPostID int64, sourceTenant, destTenant, postType string) (map[int64]int64, error) {
	taxonomies, err := tenant.Within(sw, sourceTenant, func(ctx *tenant.Context) ([]*content.Taxonomy, error) {
		return ctx.TermRepo().TaxonomiesFor(postType)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomies for %s: %w", postType, err)
	}

	log := m.logger.WithTenantAndOperation(logging.ChannelTaxonomy, destTenant, "taxonomy.migrate")
	termMap := make(map[int64]int64)
	var errs []error

	for _, tax := range taxonomies {
		terms, err := tenant.Within(sw, sourceTenant, func(ctx *tenant.Context) ([]*content.Term, error) {
			return ctx.TermRepo().FindForPost(sourcePostID, tax.Name)
		})
		if err != nil {
			log.Warn("Failed to load source terms", "taxonomy", tax.Name, "error", err)
			errs = append(errs, fmt.Errorf("failed to load %s terms for post %d: %w", tax.Name, sourcePostID, err))
			continue
		}
		if len(terms) == 0 {
			continue
		}

		// a failed term is dropped; its siblings are still assigned
		ids := make([]int64, 0, len(terms))
		for _, term := range terms {
			destID, err := m.CopyTerm(sw, term, sourceTenant, destTenant)
			if err != nil {
				log.Warn("Failed to copy term", "taxonomy", tax.Name, "term", term.Slug, "error", err)
				errs = append(errs, err)
				continue
			}
			termMap[term.ID] = destID
			ids = append(ids, destID)
		}
		if len(ids) == 0 {
			continue
		}

		err = sw.Run(destTenant, func(ctx *tenant.Context) error {
			return ctx.TermRepo().SetForPost(destPostID, tax.Name, ids)
		})
		if err != nil {
			log.Warn("Failed to assign terms", "taxonomy", tax.Name, "postId", destPostID, "error", err)
			errs = append(errs, fmt.Errorf("failed to assign %s terms to post %d: %w", tax.Name, destPostID, err))
			continue
		}
		log.Debug("Terms assigned", "taxonomy", tax.Name, "postId", destPostID, "count", len(ids))
	}

	return termMap, errors.Join(errs...)
}

// CopyTerm returns the destination id for term, creating it and its parent
// chain when no destination term shares its slug.
func (m *TaxonomyMigrator) CopyTerm(sw *tenant.Switcher, term *content.Term, sourceTenant, destTenant string) (int64, error) {
	return m.copyTerm(sw, term, sourceTenant, destTenant, 0)
}

func (m *TaxonomyMigrator) copyTerm(sw *tenant.Switcher, term *content.Term, sourceTenant, destTenant string, depth int) (int64, error) {
	if depth > maxTermDepth {
		return 0, fmt.Errorf("term %d: parent chain deeper than %d", term.ID, maxTermDepth)
	}

	existing, err := tenant.Within(sw, destTenant, func(ctx *tenant.Context) (*content.Term, error) {
		return ctx.TermRepo().FindBySlug(term.Taxonomy, term.Slug)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to look up term %s: %w", term.Slug, err)
	}
	if existing != nil {
		return existing.ID, nil
	}

	var parentID int64
	if term.ParentID > 0 {
		parent, err := tenant.Within(sw, sourceTenant, func(ctx *tenant.Context) (*content.Term, error) {
			return ctx.TermRepo().FindByID(term.ParentID)
		})
		if err != nil {
			return 0, fmt.Errorf("failed to load parent term %d: %w", term.ParentID, err)
		}
		if parent != nil {
			parentID, err = m.copyTerm(sw, parent, sourceTenant, destTenant, depth+1)
			if err != nil {
				return 0, err
			}
		}
	}

	log := m.logger.WithTenantAndOperation(logging.ChannelTaxonomy, destTenant, "taxonomy.copy_term")

	created := false
	destID, err := tenant.Within(sw, destTenant, func(ctx *tenant.Context) (int64, error) {
		termRepo := ctx.TermRepo()
		id, err := termRepo.Create(&content.Term{
			Taxonomy:    term.Taxonomy,
			Name:        term.Name,
			Slug:        term.Slug,
			Description: term.Description,
			ParentID:    parentID,
		})
		if err == nil {
			created = true
			return id, nil
		}
		if !errors.Is(err, repositories.ErrTermExists) {
			return 0, err
		}

		byName, findErr := termRepo.FindByName(term.Taxonomy, term.Name)
		if findErr != nil {
			return 0, findErr
		}
		if byName == nil {
			return 0, err
		}
		log.Debug("Reusing term with same name", "name", term.Name, "termId", byName.ID)
		return byName.ID, nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create term %s in %s: %w", term.Slug, term.Taxonomy, err)
	}
	if !created {
		return destID, nil
	}

	meta, err := tenant.Within(sw, sourceTenant, func(ctx *tenant.Context) ([]*content.TermMeta, error) {
		return ctx.TermRepo().FindMeta(term.ID)
	})
	if err != nil {
		log.Warn("Failed to read term meta", "termId", term.ID, "error", err)
		return destID, nil
	}
	if len(meta) == 0 {
		return destID, nil
	}

	err = sw.Run(destTenant, func(ctx *tenant.Context) error {
		termRepo := ctx.TermRepo()
		for _, entry := range meta {
			if err := termRepo.AddMeta(destID, entry.Key, entry.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Warn("Failed to copy term meta", "termId", destID, "error", err)
	}

	return destID, nil
}
