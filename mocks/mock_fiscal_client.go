package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	domain "github.com/cavebenin/emecef-pos/internal/domain/emecef"
)

// MockFiscalClient is a mock implementation of emecef.FiscalClient.
type MockFiscalClient struct {
	mock.Mock
}

func response(args mock.Arguments) (domain.Response, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Response), args.Error(1)
}

func (m *MockFiscalClient) Submit(ctx context.Context, creds domain.Credentials, payload *domain.NormalizedPayload) (domain.Response, error) {
	return response(m.Called(ctx, creds, payload))
}

func (m *MockFiscalClient) Status(ctx context.Context, creds domain.Credentials) (domain.Response, error) {
	return response(m.Called(ctx, creds))
}

func (m *MockFiscalClient) GetInvoice(ctx context.Context, creds domain.Credentials, uid string) (domain.Response, error) {
	return response(m.Called(ctx, creds, uid))
}

func (m *MockFiscalClient) Finalize(ctx context.Context, creds domain.Credentials, uid string, action domain.FinalizeAction) (domain.Response, error) {
	return response(m.Called(ctx, creds, uid, action))
}
