//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"

	"edu-entitlement-engine/internal/domain"
	"edu-entitlement-engine/internal/domain/model"
	"edu-entitlement-engine/internal/domain/ports/adapter"
	"edu-entitlement-engine/internal/domain/ports/repository"
	"edu-entitlement-engine/internal/usecase"
)

type reconcileUCTestDeps struct {
	attempts     *MockGatewayAttemptRepo
	catalog      *MockCatalogRepo
	entitlements *MockEntitlementRepo
	audit        *MockAuditRepo
	notifier     *MockNotifier
	tm           *MockTxManager
	entUC        usecase.EntitlementUseCase
}

func newReconcileUCDeps(t *testing.T) *reconcileUCTestDeps {
	t.Helper()
	deps := &reconcileUCTestDeps{
		attempts:     NewMockGatewayAttemptRepo(),
		catalog:      NewMockCatalogRepo(),
		entitlements: NewMockEntitlementRepo(),
		audit:        NewMockAuditRepo(),
		notifier:     &MockNotifier{},
		tm:           NewMockTxManager(),
	}
	deps.entUC = usecase.NewEntitlementUseCase(deps.entitlements, newTestLogger())

	price, err := model.NewTierPrice("cg-1", model.TierStandard, 690_000, "IRR", 30)
	if err != nil {
		t.Fatalf("seed price: %v", err)
	}
	if err := deps.catalog.SaveTierPrice(context.Background(), repository.NoTX, price); err != nil {
		t.Fatalf("seed price: %v", err)
	}
	return deps
}

func (d *reconcileUCTestDeps) uc() usecase.ReconcileUseCase {
	return usecase.NewReconcileUseCase(d.attempts, d.catalog, d.audit, d.entUC, d.notifier, d.tm, newTestLogger())
}

// seedAttempt persists a pending attempt the way the checkout flow would.
func (d *reconcileUCTestDeps) seedAttempt(t *testing.T, id, orderID string) *model.GatewayPaymentAttempt {
	t.Helper()
	a, err := model.NewGatewayPaymentAttempt(id, "student-1", "cg-1", model.TierStandard, 690_000, "IRR", model.ProviderCardGateway, "card", orderID, nil)
	if err != nil {
		t.Fatalf("build attempt: %v", err)
	}
	if err := d.attempts.Save(context.Background(), repository.NoTX, a); err != nil {
		t.Fatalf("save attempt: %v", err)
	}
	return a
}

func paidReport(orderID string) model.WebhookReport {
	return model.WebhookReport{
		MerchantOrderID:   orderID,
		Status:            model.WebhookStatusPaid,
		Amount:            690_000,
		Currency:          "IRR",
		ProviderReference: "txn-778899",
	}
}

func TestReconcileUseCase_HandleReport(t *testing.T) {
	ctx := context.Background()

	t.Run("should confirm the payment and grant the entitlement", func(t *testing.T) {
		// --- Arrange ---
		deps := newReconcileUCDeps(t)
		a := deps.seedAttempt(t, "attempt-1", "order-1")
		uc := deps.uc()

		// --- Act ---
		outcome, err := uc.HandleReport(ctx, model.ProviderCardGateway, paidReport("order-1"))

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if outcome != usecase.OutcomeApplied {
			t.Errorf("expected outcome 'ok', got '%s'", outcome)
		}
		got, err := deps.attempts.FindByID(ctx, repository.NoTX, a.ID)
		if err != nil {
			t.Fatalf("find attempt: %v", err)
		}
		if got.Status != model.AttemptPaid {
			t.Errorf("expected status 'paid', got '%s'", got.Status)
		}
		if got.ProviderReference == nil || *got.ProviderReference != "txn-778899" {
			t.Error("expected the provider reference to be recorded")
		}
		if got.WebhookReceivedAt == nil {
			t.Error("expected the webhook receipt time to be recorded")
		}
		entitled, err := deps.entUC.IsEntitled(ctx, "student-1", "cg-1", time.Now())
		if err != nil || !entitled {
			t.Errorf("expected an active entitlement (entitled=%t, err=%v)", entitled, err)
		}
		if n := deps.notifier.Count(adapter.NotifyPaymentConfirmed); n != 1 {
			t.Errorf("expected one confirmation notification, got %d", n)
		}
	})

	t.Run("should absorb a hundred replayed deliveries with a single grant", func(t *testing.T) {
		// --- Arrange ---
		deps := newReconcileUCDeps(t)
		deps.seedAttempt(t, "attempt-1", "order-1")
		uc := deps.uc()

		first, err := uc.HandleReport(ctx, model.ProviderCardGateway, paidReport("order-1"))
		if err != nil || first != usecase.OutcomeApplied {
			t.Fatalf("first delivery: outcome=%s err=%v", first, err)
		}

		// --- Act / Assert ---
		for i := 0; i < 100; i++ {
			outcome, err := uc.HandleReport(ctx, model.ProviderCardGateway, paidReport("order-1"))
			if err != nil {
				t.Fatalf("replay %d: %v", i, err)
			}
			if outcome != usecase.OutcomeReplay {
				t.Fatalf("replay %d: expected outcome 'replay', got '%s'", i, outcome)
			}
		}
		if n := deps.entitlements.ActiveCount("student-1", "cg-1"); n != 1 {
			t.Errorf("expected exactly one active entitlement after replays, got %d", n)
		}
		if n := deps.notifier.Count(adapter.NotifyPaymentConfirmed); n != 1 {
			t.Errorf("expected exactly one confirmation notification, got %d", n)
		}
	})

	t.Run("should force a tampered amount to failed and never grant", func(t *testing.T) {
		// --- Arrange ---
		deps := newReconcileUCDeps(t)
		a := deps.seedAttempt(t, "attempt-1", "order-1")
		uc := deps.uc()
		report := paidReport("order-1")
		report.Amount = 1 // tampered

		// --- Act ---
		outcome, err := uc.HandleReport(ctx, model.ProviderCardGateway, report)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if outcome != usecase.OutcomeMismatch {
			t.Errorf("expected outcome 'mismatch', got '%s'", outcome)
		}
		got, _ := deps.attempts.FindByID(ctx, repository.NoTX, a.ID)
		if got.Status != model.AttemptFailed {
			t.Errorf("expected status 'failed', got '%s'", got.Status)
		}
		entitled, _ := deps.entUC.IsEntitled(ctx, "student-1", "cg-1", time.Now())
		if entitled {
			t.Error("a mismatched payment must never grant an entitlement")
		}
	})

	t.Run("should treat a currency mismatch the same as an amount mismatch", func(t *testing.T) {
		deps := newReconcileUCDeps(t)
		deps.seedAttempt(t, "attempt-1", "order-1")
		report := paidReport("order-1")
		report.Currency = "USD"

		outcome, err := deps.uc().HandleReport(ctx, model.ProviderCardGateway, report)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if outcome != usecase.OutcomeMismatch {
			t.Errorf("expected outcome 'mismatch', got '%s'", outcome)
		}
	})

	t.Run("should mark the attempt failed on a failure report", func(t *testing.T) {
		// --- Arrange ---
		deps := newReconcileUCDeps(t)
		a := deps.seedAttempt(t, "attempt-1", "order-1")
		uc := deps.uc()
		report := model.WebhookReport{MerchantOrderID: "order-1", Status: model.WebhookStatusFailed}

		// --- Act ---
		outcome, err := uc.HandleReport(ctx, model.ProviderCardGateway, report)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if outcome != usecase.OutcomeApplied {
			t.Errorf("expected outcome 'ok', got '%s'", outcome)
		}
		got, _ := deps.attempts.FindByID(ctx, repository.NoTX, a.ID)
		if got.Status != model.AttemptFailed {
			t.Errorf("expected status 'failed', got '%s'", got.Status)
		}
		entitled, _ := deps.entUC.IsEntitled(ctx, "student-1", "cg-1", time.Now())
		if entitled {
			t.Error("a failed payment must never grant an entitlement")
		}
	})

	t.Run("should not flip a terminal attempt back on a late contradictory report", func(t *testing.T) {
		// --- Arrange ---
		deps := newReconcileUCDeps(t)
		a := deps.seedAttempt(t, "attempt-1", "order-1")
		uc := deps.uc()
		if _, err := uc.HandleReport(ctx, model.ProviderCardGateway, paidReport("order-1")); err != nil {
			t.Fatalf("paid delivery: %v", err)
		}

		// --- Act ---
		outcome, err := uc.HandleReport(ctx, model.ProviderCardGateway, model.WebhookReport{MerchantOrderID: "order-1", Status: model.WebhookStatusFailed})

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if outcome != usecase.OutcomeReplay {
			t.Errorf("expected outcome 'replay', got '%s'", outcome)
		}
		got, _ := deps.attempts.FindByID(ctx, repository.NoTX, a.ID)
		if got.Status != model.AttemptPaid {
			t.Errorf("expected the paid status to survive, got '%s'", got.Status)
		}
	})

	t.Run("should backfill a missing provider reference on replay", func(t *testing.T) {
		// --- Arrange ---
		deps := newReconcileUCDeps(t)
		a := deps.seedAttempt(t, "attempt-1", "order-1")
		uc := deps.uc()
		first := paidReport("order-1")
		first.ProviderReference = ""
		if _, err := uc.HandleReport(ctx, model.ProviderCardGateway, first); err != nil {
			t.Fatalf("first delivery: %v", err)
		}

		// --- Act ---
		outcome, err := uc.HandleReport(ctx, model.ProviderCardGateway, paidReport("order-1"))

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if outcome != usecase.OutcomeReplay {
			t.Errorf("expected outcome 'replay', got '%s'", outcome)
		}
		got, _ := deps.attempts.FindByID(ctx, repository.NoTX, a.ID)
		if got.ProviderReference == nil || *got.ProviderReference != "txn-778899" {
			t.Error("expected the late provider reference to be backfilled")
		}
	})

	t.Run("should resolve a lost status race to replay", func(t *testing.T) {
		// --- Arrange ---
		deps := newReconcileUCDeps(t)
		a := deps.seedAttempt(t, "attempt-1", "order-1")
		// Another delivery wins between our read and our guarded update.
		deps.attempts.UpdateStatusIfPendingFunc = func(ctx context.Context, tx repository.Tx, id string, status model.AttemptStatus, providerReference *string, webhookReceivedAt *time.Time) (bool, error) {
			deps.attempts.UpdateStatusIfPendingFunc = nil
			if _, err := deps.attempts.UpdateStatusIfPending(ctx, tx, a.ID, model.AttemptPaid, nil, nil); err != nil {
				return false, err
			}
			return false, nil
		}
		uc := deps.uc()

		// --- Act ---
		outcome, err := uc.HandleReport(ctx, model.ProviderCardGateway, paidReport("order-1"))

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if outcome != usecase.OutcomeReplay {
			t.Errorf("expected the race loser to report 'replay', got '%s'", outcome)
		}
	})

	t.Run("should acknowledge an unknown merchant order id", func(t *testing.T) {
		// --- Arrange ---
		deps := newReconcileUCDeps(t)
		uc := deps.uc()

		// --- Act ---
		outcome, err := uc.HandleReport(ctx, model.ProviderCardGateway, paidReport("order-ghost"))

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if outcome != usecase.OutcomeUnknownOrder {
			t.Errorf("expected outcome 'unknown_order', got '%s'", outcome)
		}

		// A replayed unknown order is still acknowledged.
		outcome, err = uc.HandleReport(ctx, model.ProviderCardGateway, paidReport("order-ghost"))
		if err != nil || outcome != usecase.OutcomeUnknownOrder {
			t.Errorf("replayed unknown order: outcome=%s err=%v", outcome, err)
		}
	})

	t.Run("should still acknowledge an unknown order when the dedupe store is down", func(t *testing.T) {
		deps := newReconcileUCDeps(t)
		deps.audit.Err = errors.New("redis: connection refused")

		outcome, err := deps.uc().HandleReport(ctx, model.ProviderCardGateway, paidReport("order-ghost"))
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if outcome != usecase.OutcomeUnknownOrder {
			t.Errorf("expected outcome 'unknown_order', got '%s'", outcome)
		}
	})

	t.Run("should surface a transaction failure so the provider retries", func(t *testing.T) {
		// --- Arrange ---
		deps := newReconcileUCDeps(t)
		deps.seedAttempt(t, "attempt-1", "order-1")
		txErr := errors.New("connection reset")
		deps.tm.WithTxFunc = func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
			return txErr
		}
		uc := deps.uc()

		// --- Act ---
		_, err := uc.HandleReport(ctx, model.ProviderCardGateway, paidReport("order-1"))

		// --- Assert ---
		if !errors.Is(err, txErr) {
			t.Fatalf("expected the transaction error to propagate, got: %v", err)
		}
		entitled, _ := deps.entUC.IsEntitled(ctx, "student-1", "cg-1", time.Now())
		if entitled {
			t.Error("a failed transaction must not leave a grant behind")
		}
	})

	t.Run("should reject a report without a merchant order id", func(t *testing.T) {
		deps := newReconcileUCDeps(t)

		_, err := deps.uc().HandleReport(ctx, model.ProviderCardGateway, model.WebhookReport{Status: model.WebhookStatusPaid})
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got: %v", err)
		}
	})
}

// TestReconcileUseCase_EndToEnd exercises the full gateway path: checkout
// creates the pending attempt, the webhook confirms it, access follows.
func TestReconcileUseCase_EndToEnd(t *testing.T) {
	ctx := context.Background()

	// --- Arrange ---
	deps := newReconcileUCDeps(t)
	card := &MockPaymentGateway{Provider: model.ProviderCardGateway}
	checkout := usecase.NewCheckoutUseCase(deps.attempts, deps.catalog, deps.entUC, []adapter.PaymentGateway{card}, newTestLogger())
	reconcile := deps.uc()

	content := &model.Content{ID: "c-1", ContentGroupID: "cg-1", Title: "Derivatives Deep Dive"}
	if err := deps.catalog.SaveContent(ctx, repository.NoTX, content); err != nil {
		t.Fatalf("seed content: %v", err)
	}
	access := usecase.NewAccessUseCase(deps.catalog, deps.entUC)

	// --- Act ---
	a, _, err := checkout.CreateAttempt(ctx, "student-1", "cg-1", model.TierStandard, model.ProviderCardGateway, "card")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	before, err := access.CanAccess(ctx, "student-1", "c-1")
	if err != nil {
		t.Fatalf("access before payment: %v", err)
	}

	outcome, err := reconcile.HandleReport(ctx, model.ProviderCardGateway, paidReport(a.MerchantOrderID))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	after, err := access.CanAccess(ctx, "student-1", "c-1")
	if err != nil {
		t.Fatalf("access after payment: %v", err)
	}

	// --- Assert ---
	if before {
		t.Error("expected no access before the payment confirmation")
	}
	if outcome != usecase.OutcomeApplied {
		t.Errorf("expected outcome 'ok', got '%s'", outcome)
	}
	if !after {
		t.Error("expected access after the payment confirmation")
	}
}
