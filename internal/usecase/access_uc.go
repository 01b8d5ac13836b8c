// File: internal/usecase/access_uc.go
package usecase

import (
	"context"
	"time"

	"edu-entitlement-engine/internal/domain/ports/repository"
)

// Compile-time check
var _ AccessUseCase = (*accessUC)(nil)

// AccessUseCase is the single access-control read path: free flag plus
// entitlement ledger, never raw payment records and never a provider call.
// Cheap enough to evaluate on every page render.
type AccessUseCase interface {
	CanAccess(ctx context.Context, studentID, contentID string) (bool, error)
}

type accessUC struct {
	catalog repository.CatalogRepository
	entUC   EntitlementUseCase
}

func NewAccessUseCase(catalog repository.CatalogRepository, entUC EntitlementUseCase) *accessUC {
	return &accessUC{catalog: catalog, entUC: entUC}
}

func (u *accessUC) CanAccess(ctx context.Context, studentID, contentID string) (bool, error) {
	content, err := u.catalog.FindContent(ctx, repository.NoTX, contentID)
	if err != nil {
		return false, err
	}
	if content.IsFree {
		return true, nil
	}
	return u.entUC.IsEntitled(ctx, studentID, content.ContentGroupID, time.Now())
}
