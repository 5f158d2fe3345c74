package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/cavebenin/emecef-pos/internal/domain/entity"
)

// ProductRepository port de persistance du catalogue.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Product, error)
	// DecrementStock retire qty du stock ; domain.ErrInsufficientStock si négatif.
	DecrementStock(ctx context.Context, id string, qty decimal.Decimal) error
}
