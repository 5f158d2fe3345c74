package mocks

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/cavebenin/emecef-pos/internal/domain/entity"
	"github.com/cavebenin/emecef-pos/internal/domain/repository"
)

// MockSaleRepo is a mock implementation of repository.SaleRepository.
type MockSaleRepo struct {
	mock.Mock
}

func (m *MockSaleRepo) Create(ctx context.Context, sale *entity.Sale) error {
	args := m.Called(ctx, sale)
	return args.Error(0)
}

func (m *MockSaleRepo) CreateItem(ctx context.Context, item *entity.SaleItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockSaleRepo) ListItems(ctx context.Context, saleID string) ([]entity.SaleItem, error) {
	args := m.Called(ctx, saleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.SaleItem), args.Error(1)
}

// MockInvoiceRepo is a mock implementation of repository.InvoiceRepository.
type MockInvoiceRepo struct {
	mock.Mock
}

func (m *MockInvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) GetByEmcfUID(ctx context.Context, uid string) (*entity.Invoice, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) List(ctx context.Context, filter repository.InvoiceFilter) ([]*entity.Invoice, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*entity.Invoice), args.Int(1), args.Error(2)
}

func (m *MockInvoiceRepo) UpdateNotes(ctx context.Context, id, notes string) error {
	args := m.Called(ctx, id, notes)
	return args.Error(0)
}

func (m *MockInvoiceRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockInvoiceRepo) NextNumber(ctx context.Context, prefix string, year int) (int64, error) {
	args := m.Called(ctx, prefix, year)
	return args.Get(0).(int64), args.Error(1)
}

// MockProductRepo is a mock implementation of repository.ProductRepository.
type MockProductRepo struct {
	mock.Mock
}

func (m *MockProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

func (m *MockProductRepo) List(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Product), args.Error(1)
}

func (m *MockProductRepo) DecrementStock(ctx context.Context, id string, qty decimal.Decimal) error {
	args := m.Called(ctx, id, qty)
	return args.Error(0)
}

// FakeSaleTxRunner runs fn directly against the mock repositories.
// Err, when set, is returned instead of running fn (begin failure).
type FakeSaleTxRunner struct {
	Sales    *MockSaleRepo
	Invoices *MockInvoiceRepo
	Products *MockProductRepo
	Err      error
	Calls    int
}

func (f *FakeSaleTxRunner) RunSale(ctx context.Context, fn func(
	saleRepo repository.SaleRepository,
	invoiceRepo repository.InvoiceRepository,
	productRepo repository.ProductRepository,
) error) error {
	f.Calls++
	if f.Err != nil {
		return f.Err
	}
	return fn(f.Sales, f.Invoices, f.Products)
}
