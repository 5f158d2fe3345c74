package repository

import (
	"context"

	"github.com/cavebenin/emecef-pos/internal/domain/entity"
)

// SaleRepository port de persistance des ventes et de leurs lignes.
type SaleRepository interface {
	Create(ctx context.Context, sale *entity.Sale) error
	CreateItem(ctx context.Context, item *entity.SaleItem) error
	ListItems(ctx context.Context, saleID string) ([]entity.SaleItem, error)
}
