package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cavebenin/emecef-pos/internal/domain/entity"
)

// MockPointOfSaleRepo is a mock implementation of repository.PointOfSaleRepository.
type MockPointOfSaleRepo struct {
	mock.Mock
}

func (m *MockPointOfSaleRepo) List(ctx context.Context) ([]*entity.PointOfSale, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.PointOfSale), args.Error(1)
}

func (m *MockPointOfSaleRepo) GetByID(ctx context.Context, id string) (*entity.PointOfSale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PointOfSale), args.Error(1)
}

func (m *MockPointOfSaleRepo) GetActive(ctx context.Context) (*entity.PointOfSale, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PointOfSale), args.Error(1)
}

func (m *MockPointOfSaleRepo) Upsert(ctx context.Context, pos *entity.PointOfSale) error {
	args := m.Called(ctx, pos)
	return args.Error(0)
}

func (m *MockPointOfSaleRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPointOfSaleRepo) SetActive(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
