package repository

import (
	"context"

	"github.com/cavebenin/emecef-pos/internal/domain/entity"
)

// PointOfSaleRepository port de persistance des points de vente e-MECeF.
type PointOfSaleRepository interface {
	List(ctx context.Context) ([]*entity.PointOfSale, error)
	// GetByID retourne nil, nil si absent.
	GetByID(ctx context.Context, id string) (*entity.PointOfSale, error)
	// GetActive retourne nil, nil si aucun point de vente n'est actif.
	GetActive(ctx context.Context) (*entity.PointOfSale, error)
	Upsert(ctx context.Context, pos *entity.PointOfSale) error
	Delete(ctx context.Context, id string) error
	// SetActive active id et désactive tous les autres, atomiquement.
	SetActive(ctx context.Context, id string) error
}
