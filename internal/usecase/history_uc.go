package usecase

import (
	"context"

	"edu-entitlement-engine/internal/domain/model"
	"edu-entitlement-engine/internal/domain/ports/repository"
)

// Compile-time check
var _ HistoryUseCase = (*historyUC)(nil)

// PurchaseHistory is everything a student has bought or tried to buy: the
// entitlement ledger plus both payment channels, newest first per list.
type PurchaseHistory struct {
	Entitlements   []*model.Entitlement           `json:"entitlements"`
	ManualRequests []*model.ManualPaymentRequest  `json:"manual_requests"`
	Attempts       []*model.GatewayPaymentAttempt `json:"attempts"`
}

// HistoryUseCase is the read-only purchase history view. It never mutates
// state and is safe to expose to the student-facing surface directly.
type HistoryUseCase interface {
	StudentHistory(ctx context.Context, studentID string) (*PurchaseHistory, error)
}

type historyUC struct {
	entitlements repository.EntitlementRepository
	requests     repository.ManualPaymentRequestRepository
	attempts     repository.GatewayPaymentAttemptRepository
}

func NewHistoryUseCase(
	entitlements repository.EntitlementRepository,
	requests repository.ManualPaymentRequestRepository,
	attempts repository.GatewayPaymentAttemptRepository,
) *historyUC {
	return &historyUC{entitlements: entitlements, requests: requests, attempts: attempts}
}

func (u *historyUC) StudentHistory(ctx context.Context, studentID string) (*PurchaseHistory, error) {
	ents, err := u.entitlements.ListByStudent(ctx, repository.NoTX, studentID)
	if err != nil {
		return nil, err
	}
	reqs, err := u.requests.ListByStudent(ctx, repository.NoTX, studentID)
	if err != nil {
		return nil, err
	}
	attempts, err := u.attempts.ListByStudent(ctx, repository.NoTX, studentID)
	if err != nil {
		return nil, err
	}
	return &PurchaseHistory{Entitlements: ents, ManualRequests: reqs, Attempts: attempts}, nil
}
