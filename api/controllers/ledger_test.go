package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mandibook/mandibook-backend/internal/ledger"
	"github.com/mandibook/mandibook-backend/pkg/db/models"
	"github.com/mandibook/mandibook-backend/pkg/pagination"
)

type stubLedgerService struct {
	paymentFn    func(ctx context.Context, input ledger.PaymentInput) (*ledger.EntryResult, error)
	adjustmentFn func(ctx context.Context, input ledger.AdjustmentInput) (*ledger.EntryResult, error)
	statementFn  func(ctx context.Context, customerID uuid.UUID, month time.Month, year int) (*ledger.Statement, error)
	listFn       func(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*ledger.EntriesPage, error)
}

func (s stubLedgerService) RecordPayment(ctx context.Context, input ledger.PaymentInput) (*ledger.EntryResult, error) {
	if s.paymentFn != nil {
		return s.paymentFn(ctx, input)
	}
	return &ledger.EntryResult{Entry: &models.LedgerEntry{}}, nil
}

func (s stubLedgerService) RecordAdjustment(ctx context.Context, input ledger.AdjustmentInput) (*ledger.EntryResult, error) {
	if s.adjustmentFn != nil {
		return s.adjustmentFn(ctx, input)
	}
	return &ledger.EntryResult{Entry: &models.LedgerEntry{}}, nil
}

func (s stubLedgerService) RecordInvoice(context.Context, *gorm.DB, uuid.UUID, decimal.Decimal, string, uuid.UUID) (*models.LedgerEntry, error) {
	return &models.LedgerEntry{}, nil
}

func (s stubLedgerService) Statement(ctx context.Context, customerID uuid.UUID, month time.Month, year int) (*ledger.Statement, error) {
	if s.statementFn != nil {
		return s.statementFn(ctx, customerID, month, year)
	}
	return &ledger.Statement{}, nil
}

func (s stubLedgerService) List(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*ledger.EntriesPage, error) {
	if s.listFn != nil {
		return s.listFn(ctx, customerID, params)
	}
	return &ledger.EntriesPage{}, nil
}

func TestRecordLedgerPaymentReturnsBalances(t *testing.T) {
	customerID := uuid.New()

	svc := stubLedgerService{
		paymentFn: func(ctx context.Context, input ledger.PaymentInput) (*ledger.EntryResult, error) {
			if input.CustomerID != customerID {
				t.Fatalf("unexpected customer %s", input.CustomerID)
			}
			if !input.Amount.Equal(decimal.NewFromInt(300)) {
				t.Fatalf("unexpected amount %s", input.Amount)
			}
			return &ledger.EntryResult{
				Entry:         &models.LedgerEntry{ID: uuid.New()},
				BalanceBefore: decimal.NewFromInt(1000),
				BalanceAfter:  decimal.NewFromInt(700),
			}, nil
		},
	}

	body := `{"customer_id":"` + customerID.String() + `","amount":300}`
	handler := RecordLedgerPayment(svc, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/", body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data ledger.EntryResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.BalanceBefore.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected balance before %s", envelope.Data.BalanceBefore)
	}
	if !envelope.Data.BalanceAfter.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("unexpected balance after %s", envelope.Data.BalanceAfter)
	}
}

func TestRecordLedgerPaymentRequiresAuth(t *testing.T) {
	handler := RecordLedgerPayment(stubLedgerService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestLedgerStatementParsesPeriod(t *testing.T) {
	customerID := uuid.New()

	svc := stubLedgerService{
		statementFn: func(ctx context.Context, id uuid.UUID, month time.Month, year int) (*ledger.Statement, error) {
			if id != customerID {
				t.Fatalf("unexpected customer %s", id)
			}
			if month != time.August || year != 2026 {
				t.Fatalf("unexpected period %s %d", month, year)
			}
			return &ledger.Statement{CustomerID: id}, nil
		},
	}

	router := chi.NewRouter()
	router.Get("/ledger/statement/{customerId}", LedgerStatement(svc, nil))

	req := httptest.NewRequest(http.MethodGet, "/ledger/statement/"+customerID.String()+"?month=8&year=2026", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestLedgerStatementRequiresPeriod(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/ledger/statement/{customerId}", LedgerStatement(stubLedgerService{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/ledger/statement/"+uuid.NewString(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestLedgerHistoryPassesCursor(t *testing.T) {
	customerID := uuid.New()

	svc := stubLedgerService{
		listFn: func(ctx context.Context, id uuid.UUID, params pagination.Params) (*ledger.EntriesPage, error) {
			if params.Limit != 10 || params.Cursor != "abc" {
				t.Fatalf("unexpected params %+v", params)
			}
			return &ledger.EntriesPage{}, nil
		},
	}

	router := chi.NewRouter()
	router.Get("/ledger/{customerId}", LedgerHistory(svc, nil))

	req := httptest.NewRequest(http.MethodGet, "/ledger/"+customerID.String()+"?limit=10&cursor=abc", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
