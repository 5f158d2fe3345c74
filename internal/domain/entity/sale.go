package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Sale vente locale, créée uniquement après confirmation e-MECeF.
type Sale struct {
	ID           string
	CustomerName string
	CustomerIFU  string
	Subtotal     int64
	VatTotal     int64
	AibAmount    int64
	Total        int64
	Payment      json.RawMessage // lignes de paiement telles que soumises
	CreatedBy    string
	CreatedAt    time.Time
	Items        []SaleItem
}

// SaleItem ligne de vente ; ProductID vide pour un article hors catalogue.
type SaleItem struct {
	ID          string
	SaleID      string
	ProductID   string
	Name        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxGroup    string
	VatAmount   int64
	TotalAmount int64
}
