//go:build !integration

package payment

import (
	"errors"
	"testing"

	"edu-entitlement-engine/internal/domain"
	"edu-entitlement-engine/internal/domain/model"
)

func TestDecodeWebhook(t *testing.T) {
	t.Run("should normalize a successful card callback", func(t *testing.T) {
		body := []byte(`{"order_id":"order-1","result":"SUCCESS","amount":690000,"currency":"IRR","transaction_id":"txn-1"}`)

		report, err := DecodeWebhook(model.ProviderCardGateway, body)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if report.Status != model.WebhookStatusPaid {
			t.Errorf("expected status 'paid', got '%s'", report.Status)
		}
		if report.MerchantOrderID != "order-1" || report.Amount != 690000 || report.ProviderReference != "txn-1" {
			t.Errorf("unexpected report: %+v", report)
		}
	})

	t.Run("should normalize a declined card callback to failed", func(t *testing.T) {
		body := []byte(`{"order_id":"order-1","result":"DECLINED","amount":690000,"currency":"IRR"}`)

		report, err := DecodeWebhook(model.ProviderCardGateway, body)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if report.Status != model.WebhookStatusFailed {
			t.Errorf("expected status 'failed', got '%s'", report.Status)
		}
	})

	t.Run("should normalize a paid voucher callback", func(t *testing.T) {
		body := []byte(`{"order_ref":"order-2","state":"PAID","amount_minor":50000,"currency":"IRR","receipt_no":"rcpt-9"}`)

		report, err := DecodeWebhook(model.ProviderVoucherGateway, body)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if report.Status != model.WebhookStatusPaid {
			t.Errorf("expected status 'paid', got '%s'", report.Status)
		}
		if report.MerchantOrderID != "order-2" || report.Amount != 50000 || report.ProviderReference != "rcpt-9" {
			t.Errorf("unexpected report: %+v", report)
		}
	})

	t.Run("should normalize a voided voucher callback to failed", func(t *testing.T) {
		body := []byte(`{"order_ref":"order-2","state":"VOID","amount_minor":50000,"currency":"IRR"}`)

		report, err := DecodeWebhook(model.ProviderVoucherGateway, body)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if report.Status != model.WebhookStatusFailed {
			t.Errorf("expected status 'failed', got '%s'", report.Status)
		}
	})

	t.Run("should reject malformed bodies", func(t *testing.T) {
		cases := []struct {
			name string
			body string
		}{
			{"truncated json", `{"order_id":"order-1"`},
			{"missing card order id", `{"result":"SUCCESS","amount":1}`},
			{"missing voucher order ref", `{"state":"PAID","amount_minor":1}`},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				provider := model.ProviderCardGateway
				if tc.name == "missing voucher order ref" {
					provider = model.ProviderVoucherGateway
				}
				if _, err := DecodeWebhook(provider, []byte(tc.body)); !errors.Is(err, domain.ErrValidation) {
					t.Errorf("expected ErrValidation, got: %v", err)
				}
			})
		}
	})

	t.Run("should reject an unknown provider", func(t *testing.T) {
		_, err := DecodeWebhook(model.Provider("cryptoGateway"), []byte(`{}`))
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got: %v", err)
		}
	})
}
