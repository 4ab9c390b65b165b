package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mandibook/mandibook-backend/pkg/db/models"
	"github.com/mandibook/mandibook-backend/pkg/enums"
	pkgerrors "github.com/mandibook/mandibook-backend/pkg/errors"
	"github.com/mandibook/mandibook-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service records balance-affecting events and reconstructs statements.
type Service interface {
	RecordPayment(ctx context.Context, input PaymentInput) (*EntryResult, error)
	RecordAdjustment(ctx context.Context, input AdjustmentInput) (*EntryResult, error)
	// RecordInvoice posts an invoice entry inside the caller's transaction so
	// the order state change and the charge commit or roll back together.
	RecordInvoice(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, amount decimal.Decimal, description string, createdBy uuid.UUID) (*models.LedgerEntry, error)
	Statement(ctx context.Context, customerID uuid.UUID, month time.Month, year int) (*Statement, error)
	List(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*EntriesPage, error)
}

// PaymentInput records money received from a customer.
type PaymentInput struct {
	CustomerID uuid.UUID
	Amount     decimal.Decimal
	Date       time.Time
	Notes      *string
	ActorID    uuid.UUID
	ActorRole  enums.Role
}

// AdjustmentInput applies a signed manual correction. Admin-only and always
// explained.
type AdjustmentInput struct {
	CustomerID  uuid.UUID
	Amount      decimal.Decimal
	Date        time.Time
	Description string
	Notes       *string
	ActorID     uuid.UUID
	ActorRole   enums.Role
}

// EntryResult returns the created entry with the balances around it.
type EntryResult struct {
	Entry         *models.LedgerEntry `json:"entry"`
	BalanceBefore decimal.Decimal     `json:"balance_before"`
	BalanceAfter  decimal.Decimal     `json:"balance_after"`
}

// Statement is a customer's reconstructed account activity for one month.
type Statement struct {
	CustomerID      uuid.UUID            `json:"customer_id"`
	PeriodStart     time.Time            `json:"period_start"`
	PeriodEnd       time.Time            `json:"period_end"`
	OpeningBalance  decimal.Decimal      `json:"opening_balance"`
	ClosingBalance  decimal.Decimal      `json:"closing_balance"`
	InvoiceTotal    decimal.Decimal      `json:"invoice_total"`
	PaymentTotal    decimal.Decimal      `json:"payment_total"`
	AdjustmentTotal decimal.Decimal      `json:"adjustment_total"`
	Entries         []models.LedgerEntry `json:"entries"`
}

// EntriesPage is one page of a customer's ledger history, newest first.
type EntriesPage struct {
	Entries    []models.LedgerEntry `json:"entries"`
	NextCursor *string              `json:"next_cursor,omitempty"`
}

type service struct {
	repo Repository
	tx   txRunner
	now  func() time.Time
}

// NewService wires a ledger service with its repository and transaction runner.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo: repo,
		tx:   tx,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) RecordPayment(ctx context.Context, input PaymentInput) (*EntryResult, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	return s.record(ctx, recordParams{
		customerID:  input.CustomerID,
		entryType:   enums.LedgerEntryTypePayment,
		delta:       input.Amount.Round(2).Neg(),
		date:        input.Date,
		description: "Payment received",
		notes:       input.Notes,
		createdBy:   input.ActorID,
	})
}

func (s *service) RecordAdjustment(ctx context.Context, input AdjustmentInput) (*EntryResult, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may record adjustments")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment description required")
	}
	if input.Amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment amount must not be zero")
	}

	return s.record(ctx, recordParams{
		customerID:  input.CustomerID,
		entryType:   enums.LedgerEntryTypeAdjustment,
		delta:       input.Amount.Round(2),
		date:        input.Date,
		description: strings.TrimSpace(input.Description),
		notes:       input.Notes,
		createdBy:   input.ActorID,
	})
}

func (s *service) RecordInvoice(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, amount decimal.Decimal, description string, createdBy uuid.UUID) (*models.LedgerEntry, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice amount must not be negative")
	}

	entry, err := s.apply(ctx, s.repo.WithTx(tx), recordParams{
		customerID:  customerID,
		entryType:   enums.LedgerEntryTypeInvoice,
		delta:       amount.Round(2),
		description: description,
		createdBy:   createdBy,
	})
	if err != nil {
		return nil, err
	}
	return entry.Entry, nil
}

type recordParams struct {
	customerID  uuid.UUID
	entryType   enums.LedgerEntryType
	delta       decimal.Decimal
	date        time.Time
	description string
	notes       *string
	createdBy   uuid.UUID
}

func (s *service) record(ctx context.Context, params recordParams) (*EntryResult, error) {
	var result *EntryResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		entry, err := s.apply(ctx, s.repo.WithTx(tx), params)
		if err != nil {
			return err
		}
		result = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// apply is the one atomic unit: mutate the stored balance, correct drift,
// append the entry stamped with the corrected result. Run it inside a
// transaction or none of it holds.
func (s *service) apply(ctx context.Context, repo Repository, params recordParams) (*EntryResult, error) {
	balanceAfter, err := repo.ApplyDelta(ctx, params.customerID, params.delta)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply balance delta")
	}

	date := params.date
	if date.IsZero() {
		date = s.now()
	}

	entry := &models.LedgerEntry{
		CustomerID:  params.customerID,
		Type:        params.entryType,
		Amount:      params.delta,
		Balance:     balanceAfter,
		Date:        date,
		Description: params.description,
		Notes:       params.notes,
		CreatedBy:   params.createdBy,
	}
	if err := repo.Append(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
	}

	return &EntryResult{
		Entry:         entry,
		BalanceBefore: balanceAfter.Sub(params.delta).Round(2),
		BalanceAfter:  balanceAfter,
	}, nil
}

func (s *service) Statement(ctx context.Context, customerID uuid.UUID, month time.Month, year int) (*Statement, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if month < time.January || month > time.December {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "month out of range")
	}
	if year < 2000 || year > 2100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "year out of range")
	}

	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	opening := decimal.Zero
	last, err := s.repo.LastBefore(ctx, customerID, start)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load opening balance")
	}
	if last != nil {
		opening = last.Balance
	}

	entries, err := s.repo.ListRange(ctx, customerID, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load statement entries")
	}

	statement := &Statement{
		CustomerID:     customerID,
		PeriodStart:    start,
		PeriodEnd:      end,
		OpeningBalance: opening,
		ClosingBalance: opening,
		Entries:        entries,
	}
	for _, entry := range entries {
		switch entry.Type {
		case enums.LedgerEntryTypeInvoice:
			statement.InvoiceTotal = statement.InvoiceTotal.Add(entry.Amount)
		case enums.LedgerEntryTypePayment:
			statement.PaymentTotal = statement.PaymentTotal.Add(entry.Amount.Abs())
		case enums.LedgerEntryTypeAdjustment:
			statement.AdjustmentTotal = statement.AdjustmentTotal.Add(entry.Amount)
		}
	}
	if len(entries) > 0 {
		statement.ClosingBalance = entries[len(entries)-1].Balance
	}
	return statement, nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*EntriesPage, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	entries, err := s.repo.ListPage(ctx, customerID, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}

	page := &EntriesPage{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		tail := page.Entries[limit-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: tail.CreatedAt, ID: tail.ID})
		page.NextCursor = &next
	}
	return page, nil
}
