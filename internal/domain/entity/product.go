package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product article du catalogue de la cave (vins, spiritueux...).
// Le prix courant alimente chaque nouvelle ligne de facture.
type Product struct {
	ID          string
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal // prix unitaire hors taxes, en FCFA
	TaxGroup    string          // A, B, C, D, E ou EXPORT
	Stock       decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
