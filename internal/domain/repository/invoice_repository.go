package repository

import (
	"context"

	"github.com/cavebenin/emecef-pos/internal/domain/entity"
)

// InvoiceFilter filtre de listing.
type InvoiceFilter struct {
	Type   string
	Search string // numéro, client ou UID e-MECeF
	Limit  int
	Offset int
}

// InvoiceRepository port de persistance des factures.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	// GetByID / GetByEmcfUID retournent nil, nil si absente.
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetByEmcfUID(ctx context.Context, uid string) (*entity.Invoice, error)
	List(ctx context.Context, filter InvoiceFilter) ([]*entity.Invoice, int, error)
	// UpdateNotes et Delete échouent avec domain.ErrImmutable sur une facture certifiée.
	UpdateNotes(ctx context.Context, id, notes string) error
	Delete(ctx context.Context, id string) error
	// NextNumber incrémente atomiquement le compteur (prefix, year).
	NextNumber(ctx context.Context, prefix string, year int) (int64, error)
}
