package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cavebenin/emecef-pos/internal/application/billing"
	"github.com/cavebenin/emecef-pos/internal/domain/entity"
)

// MockPDFGenerator mock de billing.InvoicePDFGenerator.
type MockPDFGenerator struct {
	mock.Mock
}

func (m *MockPDFGenerator) GenerateInvoicePDF(ctx context.Context, invoice *entity.Invoice, seller billing.Seller) ([]byte, error) {
	args := m.Called(ctx, invoice, seller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
