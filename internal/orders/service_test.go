package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mandibook/mandibook-backend/internal/customers"
	"github.com/mandibook/mandibook-backend/pkg/db/models"
	"github.com/mandibook/mandibook-backend/pkg/enums"
	pkgerrors "github.com/mandibook/mandibook-backend/pkg/errors"
	"github.com/mandibook/mandibook-backend/pkg/types"
)

type stubOrdersRepo struct {
	orders    map[uuid.UUID]*models.Order
	byKey     map[string]*models.Order
	audits    []models.PriceAuditEntry
	insertErr error
}

func newStubOrdersRepo() *stubOrdersRepo {
	return &stubOrdersRepo{
		orders: map[uuid.UUID]*models.Order{},
		byKey:  map[string]*models.Order{},
	}
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrdersRepo) Insert(ctx context.Context, order *models.Order) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	if order.IdempotencyKey != nil {
		if _, exists := s.byKey[*order.IdempotencyKey]; exists {
			return fmt.Errorf(`duplicate key value violates unique constraint "uq_orders_idempotency_key"`)
		}
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Lines {
		if order.Lines[i].ID == uuid.Nil {
			order.Lines[i].ID = uuid.New()
		}
	}
	s.orders[order.ID] = order
	if order.IdempotencyKey != nil {
		s.byKey[*order.IdempotencyKey] = order
	}
	return nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrdersRepo) FindByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	order, ok := s.byKey[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrdersRepo) Update(ctx context.Context, order *models.Order) error {
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrdersRepo) UpdateLine(ctx context.Context, line *models.OrderLine) error {
	return nil
}

func (s *stubOrdersRepo) AppendAudit(ctx context.Context, entry *models.PriceAuditEntry) error {
	s.audits = append(s.audits, *entry)
	return nil
}

func (s *stubOrdersRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]models.Order, error) {
	var out []models.Order
	for _, order := range s.orders {
		if order.CustomerID == customerID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (s *stubOrdersRepo) ListBatchedByStatus(ctx context.Context, statuses []enums.OrderStatus) ([]models.Order, error) {
	var out []models.Order
	for _, order := range s.orders {
		if order.BatchID == nil {
			continue
		}
		for _, status := range statuses {
			if order.Status == status {
				out = append(out, *order)
				break
			}
		}
	}
	return out, nil
}

func (s *stubOrdersRepo) ListByBatch(ctx context.Context, batchID uuid.UUID, statuses []enums.OrderStatus) ([]models.Order, error) {
	var out []models.Order
	for _, order := range s.orders {
		if order.BatchID == nil || *order.BatchID != batchID {
			continue
		}
		for _, status := range statuses {
			if order.Status == status {
				out = append(out, *order)
				break
			}
		}
	}
	return out, nil
}

type stubProductsRepo struct {
	products map[uuid.UUID]models.Product
}

func (s *stubProductsRepo) Create(ctx context.Context, product *models.Product) error {
	panic("not implemented")
}

func (s *stubProductsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (s *stubProductsRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubProductsRepo) ListActive(ctx context.Context) ([]models.Product, error) {
	panic("not implemented")
}

type stubRatesRepo struct {
	current map[uuid.UUID]decimal.Decimal
}

func (s *stubRatesRepo) Create(ctx context.Context, rate *models.MarketRate) error {
	panic("not implemented")
}

func (s *stubRatesRepo) Current(ctx context.Context, productID uuid.UUID) (*models.MarketRate, error) {
	panic("not implemented")
}

func (s *stubRatesRepo) CurrentForProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	out := map[uuid.UUID]decimal.Decimal{}
	for _, id := range productIDs {
		if rate, ok := s.current[id]; ok {
			out[id] = rate
		}
	}
	return out, nil
}

func (s *stubRatesRepo) History(ctx context.Context, productID uuid.UUID, limit int) ([]models.MarketRate, error) {
	panic("not implemented")
}

type stubCounter struct {
	sequence int64
	lastTx   *gorm.DB
	nextErr  error
}

func (s *stubCounter) NextInTx(ctx context.Context, tx *gorm.DB, key string) (int64, error) {
	if s.nextErr != nil {
		return 0, s.nextErr
	}
	s.lastTx = tx
	s.sequence++
	return s.sequence, nil
}

type recordedInvoice struct {
	customerID  uuid.UUID
	amount      decimal.Decimal
	description string
}

type stubInvoicePoster struct {
	invoices []recordedInvoice
}

func (s *stubInvoicePoster) RecordInvoice(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, amount decimal.Decimal, description string, createdBy uuid.UUID) (*models.LedgerEntry, error) {
	s.invoices = append(s.invoices, recordedInvoice{customerID: customerID, amount: amount, description: description})
	return &models.LedgerEntry{CustomerID: customerID, Amount: amount, Type: enums.LedgerEntryTypeInvoice}, nil
}

// stubTx stands in for the open transaction handed to WithTx callbacks so
// tests can assert a collaborator ran inside the transaction.
var stubTx = &gorm.DB{}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(stubTx)
}

type customersRepoStub struct {
	customer *models.Customer
	saved    map[uuid.UUID]decimal.Decimal
}

func (s *customersRepoStub) WithTx(tx *gorm.DB) customers.Repository { return s }

func (s *customersRepoStub) Create(ctx context.Context, customer *models.Customer) error {
	panic("not implemented")
}

func (s *customersRepoStub) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	if s.customer == nil || s.customer.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.customer, nil
}

func (s *customersRepoStub) SaveContractPrice(ctx context.Context, customerID, productID uuid.UUID, price decimal.Decimal) error {
	if s.saved == nil {
		s.saved = map[uuid.UUID]decimal.Decimal{}
	}
	s.saved[productID] = price
	return nil
}

type fixture struct {
	svc       Service
	repo      *stubOrdersRepo
	customers *customersRepoStub
	rates     *stubRatesRepo
	counter   *stubCounter
	invoices  *stubInvoicePoster
	admin     Actor
	staff     Actor
}

func newFixture(t *testing.T, customer *models.Customer, productRows map[uuid.UUID]models.Product, marketRates map[uuid.UUID]decimal.Decimal) *fixture {
	t.Helper()

	repo := newStubOrdersRepo()
	customersStub := &customersRepoStub{customer: customer}
	invoices := &stubInvoicePoster{}
	ratesStub := &stubRatesRepo{current: marketRates}
	counter := &stubCounter{}

	svc, err := NewService(
		repo,
		customersStub,
		&stubProductsRepo{products: productRows},
		ratesStub,
		counter,
		invoices,
		stubTxRunner{},
		nil,
	)
	require.NoError(t, err)

	return &fixture{
		svc:       svc,
		repo:      repo,
		customers: customersStub,
		rates:     ratesStub,
		counter:   counter,
		invoices:  invoices,
		admin:     Actor{UserID: uuid.New(), Role: enums.RoleAdmin},
		staff:     Actor{UserID: uuid.New(), Role: enums.RoleStaff},
	}
}

func marketCustomer() *models.Customer {
	return &models.Customer{ID: uuid.New(), Name: "Cafe Verde", PricingType: enums.PricingTypeMarket, IsActive: true}
}

func kgProduct(name string) models.Product {
	return models.Product{ID: uuid.New(), Name: name, Unit: enums.UnitKg, Category: "vegetable", IsActive: true}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func TestCreateOrderMarketCustomer(t *testing.T) {
	customer := marketCustomer()
	onion := kgProduct("Onion")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{onion.ID: onion}, map[uuid.UUID]decimal.Decimal{onion.ID: dec("100")})

	result, err := f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Lines:      []CreateOrderLineInput{{ProductID: onion.ID, Quantity: dec("5")}},
		Actor:      f.staff,
	})
	require.NoError(t, err)
	require.False(t, result.Idempotent)

	order := result.Order
	require.Equal(t, enums.OrderStatusPending, order.Status)
	require.Equal(t, enums.PaymentStatusUnpaid, order.PaymentStatus)
	require.True(t, order.TotalAmount.Equal(dec("500")))
	require.Len(t, order.Lines, 1)
	require.True(t, order.Lines[0].Rate.Equal(dec("100")))
	require.True(t, order.Lines[0].Amount.Equal(dec("500")))

	now := time.Now().UTC()
	wantPrefix := fmt.Sprintf("ORD%02d%02d", now.Year()%100, int(now.Month()))
	require.Equal(t, wantPrefix+"0001", order.OrderNumber)
}

func TestCreateOrderMarkupCustomer(t *testing.T) {
	customer := &models.Customer{
		ID:               uuid.New(),
		Name:             "Hotel Annapurna",
		PricingType:      enums.PricingTypeMarkup,
		MarkupPercentage: dec("20"),
		IsActive:         true,
	}
	tomato := kgProduct("Tomato")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{tomato.ID: tomato}, map[uuid.UUID]decimal.Decimal{tomato.ID: dec("100")})

	result, err := f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Lines:      []CreateOrderLineInput{{ProductID: tomato.ID, Quantity: dec("3")}},
		Actor:      f.staff,
	})
	require.NoError(t, err)
	require.True(t, result.Order.Lines[0].Rate.Equal(dec("120")))
	require.True(t, result.Order.TotalAmount.Equal(dec("360")))
}

func TestCreateOrderContractEstablishesPrice(t *testing.T) {
	customer := &models.Customer{ID: uuid.New(), Name: "Hotel Luxe", PricingType: enums.PricingTypeContract, IsActive: true}
	potato := kgProduct("Potato")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{potato.ID: potato}, map[uuid.UUID]decimal.Decimal{potato.ID: dec("100")})

	result, err := f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Lines:      []CreateOrderLineInput{{ProductID: potato.ID, Quantity: dec("10"), Rate: decPtr("80")}},
		Actor:      f.staff,
	})
	require.NoError(t, err)
	require.True(t, result.Order.Lines[0].Rate.Equal(dec("80")))
	require.True(t, result.Order.Lines[0].IsContractPrice)
	require.True(t, result.Order.TotalAmount.Equal(dec("800")))

	saved, ok := f.customers.saved[potato.ID]
	require.True(t, ok, "contract price should be persisted after commit")
	require.True(t, saved.Equal(dec("80")))
}

func TestCreateOrderIdempotentReplay(t *testing.T) {
	customer := marketCustomer()
	onion := kgProduct("Onion")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{onion.ID: onion}, map[uuid.UUID]decimal.Decimal{onion.ID: dec("100")})

	key := "abc"
	first, err := f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID:     customer.ID,
		Lines:          []CreateOrderLineInput{{ProductID: onion.ID, Quantity: dec("5")}},
		IdempotencyKey: &key,
		Actor:          f.staff,
	})
	require.NoError(t, err)
	require.False(t, first.Idempotent)

	// same key, different payload: the original order comes back untouched
	second, err := f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID:     customer.ID,
		Lines:          []CreateOrderLineInput{{ProductID: onion.ID, Quantity: dec("10")}},
		IdempotencyKey: &key,
		Actor:          f.staff,
	})
	require.NoError(t, err)
	require.True(t, second.Idempotent)
	require.Equal(t, first.Order.ID, second.Order.ID)
	require.True(t, second.Order.Lines[0].Quantity.Equal(dec("5")))
	require.Len(t, f.repo.orders, 1)
}

func TestCreateOrderDrawsNumberInsideInsertTransaction(t *testing.T) {
	customer := marketCustomer()
	onion := kgProduct("Onion")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{onion.ID: onion}, map[uuid.UUID]decimal.Decimal{onion.ID: dec("100")})

	result, err := f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Lines:      []CreateOrderLineInput{{ProductID: onion.ID, Quantity: dec("5")}},
		Actor:      f.staff,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Order.OrderNumber)

	// the counter must share the insert's transaction so a rollback
	// releases the drawn number
	require.Same(t, stubTx, f.counter.lastTx)
}

func TestCreateOrderCounterFailure(t *testing.T) {
	customer := marketCustomer()
	onion := kgProduct("Onion")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{onion.ID: onion}, map[uuid.UUID]decimal.Decimal{onion.ID: dec("100")})
	f.counter.nextErr = fmt.Errorf("counters table missing")

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Lines:      []CreateOrderLineInput{{ProductID: onion.ID, Quantity: dec("5")}},
		Actor:      f.staff,
	})
	requireCode(t, err, pkgerrors.CodeDependency)
}

func TestCreateOrderNumberCollisionIsNotReplayed(t *testing.T) {
	customer := marketCustomer()
	onion := kgProduct("Onion")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{onion.ID: onion}, map[uuid.UUID]decimal.Decimal{onion.ID: dec("100")})

	// a duplicate order number is a counter problem, not an idempotent
	// replay, even when the request carries a key
	f.repo.insertErr = fmt.Errorf(`duplicate key value violates unique constraint "uq_orders_order_number"`)

	key := "fresh-key"
	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID:     customer.ID,
		Lines:          []CreateOrderLineInput{{ProductID: onion.ID, Quantity: dec("5")}},
		IdempotencyKey: &key,
		Actor:          f.staff,
	})
	requireCode(t, err, pkgerrors.CodeDependency)
}

func TestCreateOrderPieceUnitRequiresWholeQuantity(t *testing.T) {
	customer := marketCustomer()
	coconut := models.Product{ID: uuid.New(), Name: "Coconut", Unit: enums.UnitPiece, IsActive: true}
	f := newFixture(t, customer, map[uuid.UUID]models.Product{coconut.ID: coconut}, map[uuid.UUID]decimal.Decimal{coconut.ID: dec("50")})

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Lines:      []CreateOrderLineInput{{ProductID: coconut.ID, Quantity: dec("2.5")}},
		Actor:      f.staff,
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateOrderMissingMarketRate(t *testing.T) {
	customer := marketCustomer()
	okra := kgProduct("Okra")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{okra.ID: okra}, map[uuid.UUID]decimal.Decimal{})

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Lines:      []CreateOrderLineInput{{ProductID: okra.ID, Quantity: dec("5")}},
		Actor:      f.staff,
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	// an override sidesteps the missing market rate
	result, err := f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Lines:      []CreateOrderLineInput{{ProductID: okra.ID, Quantity: dec("5"), Rate: decPtr("60")}},
		Actor:      f.staff,
	})
	require.NoError(t, err)
	require.True(t, result.Order.TotalAmount.Equal(dec("300")))
}

func TestCreateOrderStaleContractEntryDoesNotMaskMissingRate(t *testing.T) {
	// a customer switched from contract to markup pricing keeps old contract
	// entries around; they must not stand in for a missing market rate
	spinach := kgProduct("Spinach")
	customer := &models.Customer{
		ID:               uuid.New(),
		Name:             "Bistro Thamel",
		PricingType:      enums.PricingTypeMarkup,
		MarkupPercentage: dec("20"),
		ContractPrices:   types.ContractPrices{spinach.ID: dec("90")},
		IsActive:         true,
	}
	f := newFixture(t, customer, map[uuid.UUID]models.Product{spinach.ID: spinach}, map[uuid.UUID]decimal.Decimal{})

	_, err := f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Lines:      []CreateOrderLineInput{{ProductID: spinach.ID, Quantity: dec("4")}},
		Actor:      f.staff,
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	// with a market rate recorded, the stale entry is ignored and markup applies
	f.rates.current[spinach.ID] = dec("50")
	result, err := f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Lines:      []CreateOrderLineInput{{ProductID: spinach.ID, Quantity: dec("4")}},
		Actor:      f.staff,
	})
	require.NoError(t, err)
	require.True(t, result.Order.Lines[0].Rate.Equal(dec("60")))
	require.True(t, result.Order.TotalAmount.Equal(dec("240")))
}

func createTestOrder(t *testing.T, f *fixture, customer *models.Customer, product models.Product) *models.Order {
	t.Helper()
	result, err := f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Lines:      []CreateOrderLineInput{{ProductID: product.ID, Quantity: dec("5")}},
		Actor:      f.staff,
	})
	require.NoError(t, err)
	return result.Order
}

func TestUpdateStatusLifecycle(t *testing.T) {
	customer := marketCustomer()
	onion := kgProduct("Onion")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{onion.ID: onion}, map[uuid.UUID]decimal.Decimal{onion.ID: dec("100")})
	order := createTestOrder(t, f, customer, onion)
	ctx := context.Background()

	updated, err := f.svc.UpdateStatus(ctx, UpdateStatusInput{OrderID: order.ID, Status: enums.OrderStatusConfirmed, Actor: f.staff})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusConfirmed, updated.Status)

	updated, err = f.svc.UpdateStatus(ctx, UpdateStatusInput{OrderID: order.ID, Status: enums.OrderStatusDelivered, Actor: f.staff})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusDelivered, updated.Status)
	require.NotNil(t, updated.DeliveredAt)

	// delivery raised exactly one invoice for the full order amount
	require.Len(t, f.invoices.invoices, 1)
	require.Equal(t, customer.ID, f.invoices.invoices[0].customerID)
	require.True(t, f.invoices.invoices[0].amount.Equal(dec("500")))

	// terminal orders never move backward
	_, err = f.svc.UpdateStatus(ctx, UpdateStatusInput{OrderID: order.ID, Status: enums.OrderStatusPending, Actor: f.admin})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestUpdateStatusRejectsShippedBeforePacked(t *testing.T) {
	customer := marketCustomer()
	onion := kgProduct("Onion")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{onion.ID: onion}, map[uuid.UUID]decimal.Decimal{onion.ID: dec("100")})
	ctx := context.Background()

	order := createTestOrder(t, f, customer, onion)
	_, err := f.svc.UpdateStatus(ctx, UpdateStatusInput{OrderID: order.ID, Status: enums.OrderStatusPacked, Actor: f.staff})
	require.NoError(t, err)

	// a clock-skewed packed stamp must block shipping rather than record
	// a shipment that precedes packing
	future := time.Now().UTC().Add(time.Hour)
	f.repo.orders[order.ID].PackedAt = &future

	_, err = f.svc.UpdateStatus(ctx, UpdateStatusInput{OrderID: order.ID, Status: enums.OrderStatusShipped, Actor: f.staff})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestUpdateStatusRejectsDeliveredBeforeShipped(t *testing.T) {
	customer := marketCustomer()
	onion := kgProduct("Onion")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{onion.ID: onion}, map[uuid.UUID]decimal.Decimal{onion.ID: dec("100")})
	ctx := context.Background()

	order := createTestOrder(t, f, customer, onion)
	_, err := f.svc.UpdateStatus(ctx, UpdateStatusInput{OrderID: order.ID, Status: enums.OrderStatusShipped, Actor: f.staff})
	require.NoError(t, err)

	future := time.Now().UTC().Add(time.Hour)
	f.repo.orders[order.ID].ShippedAt = &future

	_, err = f.svc.UpdateStatus(ctx, UpdateStatusInput{OrderID: order.ID, Status: enums.OrderStatusDelivered, Actor: f.staff})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	require.Empty(t, f.invoices.invoices, "no invoice may be raised for a rejected delivery")
}

func TestUpdateStatusSameStateIsNoOp(t *testing.T) {
	customer := marketCustomer()
	onion := kgProduct("Onion")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{onion.ID: onion}, map[uuid.UUID]decimal.Decimal{onion.ID: dec("100")})
	order := createTestOrder(t, f, customer, onion)

	updated, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{OrderID: order.ID, Status: enums.OrderStatusPending, Actor: f.staff})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, updated.Status)
	require.Empty(t, f.invoices.invoices)
}

func TestCancellationIsAdminOnlyThroughBothPaths(t *testing.T) {
	customer := marketCustomer()
	onion := kgProduct("Onion")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{onion.ID: onion}, map[uuid.UUID]decimal.Decimal{onion.ID: dec("100")})
	order := createTestOrder(t, f, customer, onion)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, UpdateStatusInput{OrderID: order.ID, Status: enums.OrderStatusCancelled, Actor: f.staff})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.Cancel(ctx, order.ID, f.staff)
	requireCode(t, err, pkgerrors.CodeForbidden)

	cancelled, err := f.svc.Cancel(ctx, order.ID, f.admin)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
}

func TestUpdatePrices(t *testing.T) {
	customer := marketCustomer()
	onion := kgProduct("Onion")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{onion.ID: onion}, map[uuid.UUID]decimal.Decimal{onion.ID: dec("100")})
	order := createTestOrder(t, f, customer, onion)

	updated, err := f.svc.UpdatePrices(context.Background(), UpdatePricesInput{
		OrderID: order.ID,
		Lines:   []LineRateInput{{LineID: order.Lines[0].ID, Rate: dec("110")}},
		Actor:   f.staff,
	})
	require.NoError(t, err)
	require.True(t, updated.Lines[0].Rate.Equal(dec("110")))
	require.True(t, updated.TotalAmount.Equal(dec("550")))

	require.Len(t, f.repo.audits, 1)
	audit := f.repo.audits[0]
	require.True(t, audit.OldRate.Equal(dec("100")))
	require.True(t, audit.NewRate.Equal(dec("110")))
	require.True(t, audit.OldQuantity.Equal(audit.NewQuantity))
}

func TestUpdatePricesContractLineLocked(t *testing.T) {
	customer := &models.Customer{ID: uuid.New(), Name: "Hotel Luxe", PricingType: enums.PricingTypeContract, IsActive: true}
	potato := kgProduct("Potato")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{potato.ID: potato}, map[uuid.UUID]decimal.Decimal{})

	result, err := f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Lines:      []CreateOrderLineInput{{ProductID: potato.ID, Quantity: dec("10"), Rate: decPtr("80")}},
		Actor:      f.staff,
	})
	require.NoError(t, err)

	_, err = f.svc.UpdatePrices(context.Background(), UpdatePricesInput{
		OrderID: result.Order.ID,
		Lines:   []LineRateInput{{LineID: result.Order.Lines[0].ID, Rate: dec("90")}},
		Actor:   f.staff,
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	require.Empty(t, f.repo.audits)
}

func TestRecordPayment(t *testing.T) {
	customer := marketCustomer()
	onion := kgProduct("Onion")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{onion.ID: onion}, map[uuid.UUID]decimal.Decimal{onion.ID: dec("100")})
	order := createTestOrder(t, f, customer, onion)
	ctx := context.Background()

	_, err := f.svc.RecordPayment(ctx, RecordOrderPaymentInput{OrderID: order.ID, PaidAmount: dec("600"), Actor: f.staff})
	requireCode(t, err, pkgerrors.CodeValidation)

	updated, err := f.svc.RecordPayment(ctx, RecordOrderPaymentInput{OrderID: order.ID, PaidAmount: dec("200"), Actor: f.staff})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPartial, updated.PaymentStatus)

	updated, err = f.svc.RecordPayment(ctx, RecordOrderPaymentInput{OrderID: order.ID, PaidAmount: dec("500"), Actor: f.staff})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPaid, updated.PaymentStatus)
}

func TestReducePackedQuantity(t *testing.T) {
	customer := marketCustomer()
	onion := kgProduct("Onion")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{onion.ID: onion}, map[uuid.UUID]decimal.Decimal{onion.ID: dec("100")})
	order := createTestOrder(t, f, customer, onion)
	ctx := context.Background()

	// only confirmed orders accept packing corrections
	_, err := f.svc.ReducePackedQuantity(ctx, ReducePackedQuantityInput{
		OrderID: order.ID, LineID: order.Lines[0].ID, Quantity: dec("3"), Actor: f.staff,
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = f.svc.UpdateStatus(ctx, UpdateStatusInput{OrderID: order.ID, Status: enums.OrderStatusConfirmed, Actor: f.staff})
	require.NoError(t, err)

	_, err = f.svc.ReducePackedQuantity(ctx, ReducePackedQuantityInput{
		OrderID: order.ID, LineID: order.Lines[0].ID, Quantity: dec("7"), Actor: f.staff,
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	updated, err := f.svc.ReducePackedQuantity(ctx, ReducePackedQuantityInput{
		OrderID: order.ID, LineID: order.Lines[0].ID, Quantity: dec("3"), Actor: f.staff,
	})
	require.NoError(t, err)
	require.True(t, updated.Lines[0].Quantity.Equal(dec("3")))
	require.True(t, updated.TotalAmount.Equal(dec("300")))
	require.Len(t, f.repo.audits, 1)
}

func TestConfirmBatchedOrders(t *testing.T) {
	customer := marketCustomer()
	onion := kgProduct("Onion")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{onion.ID: onion}, map[uuid.UUID]decimal.Decimal{onion.ID: dec("100")})
	ctx := context.Background()

	batched := createTestOrder(t, f, customer, onion)
	unbatched := createTestOrder(t, f, customer, onion)

	_, err := f.svc.AssignBatch(ctx, AssignBatchInput{OrderID: batched.ID, BatchID: uuid.New(), Actor: f.staff})
	require.NoError(t, err)

	confirmed, err := f.svc.ConfirmBatchedOrders(ctx, f.admin)
	require.NoError(t, err)
	require.Equal(t, 1, confirmed)

	reloaded, err := f.svc.Get(ctx, batched.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusConfirmed, reloaded.Status)

	untouched, err := f.svc.Get(ctx, unbatched.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, untouched.Status)
}

func TestAdvanceBatchStepsEachOrderForward(t *testing.T) {
	customer := marketCustomer()
	onion := kgProduct("Onion")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{onion.ID: onion}, map[uuid.UUID]decimal.Decimal{onion.ID: dec("100")})
	ctx := context.Background()

	batchID := uuid.New()
	pending := createTestOrder(t, f, customer, onion)
	confirmed := createTestOrder(t, f, customer, onion)
	otherBatch := createTestOrder(t, f, customer, onion)

	_, err := f.svc.AssignBatch(ctx, AssignBatchInput{OrderID: pending.ID, BatchID: batchID, Actor: f.staff})
	require.NoError(t, err)
	_, err = f.svc.AssignBatch(ctx, AssignBatchInput{OrderID: confirmed.ID, BatchID: batchID, Actor: f.staff})
	require.NoError(t, err)
	_, err = f.svc.AssignBatch(ctx, AssignBatchInput{OrderID: otherBatch.ID, BatchID: uuid.New(), Actor: f.staff})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, UpdateStatusInput{OrderID: confirmed.ID, Status: enums.OrderStatusConfirmed, Actor: f.staff})
	require.NoError(t, err)

	result, err := f.svc.AdvanceBatch(ctx, batchID, f.admin)
	require.NoError(t, err)
	require.Equal(t, 2, result.Advanced)
	require.Empty(t, result.Failed)

	wasPending, err := f.svc.Get(ctx, pending.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusConfirmed, wasPending.Status)

	wasConfirmed, err := f.svc.Get(ctx, confirmed.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusProcessing, wasConfirmed.Status)

	outside, err := f.svc.Get(ctx, otherBatch.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, outside.Status)
}

func TestAdvanceBatchRequiresBatchID(t *testing.T) {
	customer := marketCustomer()
	onion := kgProduct("Onion")
	f := newFixture(t, customer, map[uuid.UUID]models.Product{onion.ID: onion}, map[uuid.UUID]decimal.Decimal{onion.ID: dec("100")})

	_, err := f.svc.AdvanceBatch(context.Background(), uuid.Nil, f.admin)
	requireCode(t, err, pkgerrors.CodeValidation)
}
