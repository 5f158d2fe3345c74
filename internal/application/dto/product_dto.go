package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductResponse article du catalogue, avec son taux de TVA e-MECeF.
type ProductResponse struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	TaxGroup    string          `json:"tax_group"`
	VatRate     int             `json:"vat_rate"`
	Stock       decimal.Decimal `json:"stock"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductListResponse page du catalogue.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
