package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceResponse facture locale pour GET /api/invoices/:id.
type InvoiceResponse struct {
	ID           string                `json:"id"`
	SaleID       string                `json:"sale_id,omitempty"`
	Number       string                `json:"number"`
	Type         string                `json:"type"`
	CustomerName string                `json:"customer_name"`
	CustomerIFU  string                `json:"customer_ifu,omitempty"`
	Subtotal     int64                 `json:"subtotal"`
	VatTotal     int64                 `json:"vat_total"`
	AibAmount    int64                 `json:"aib_amount"`
	Total        int64                 `json:"total"`
	Notes        string                `json:"notes,omitempty"`
	Immutable    bool                  `json:"immutable"`
	EmcfUID      string                `json:"emcf_uid,omitempty"`
	EmcfStatus   string                `json:"emcf_status,omitempty"`
	EmcfCode     string                `json:"emcf_code_mecef_dgi,omitempty"`
	EmcfQrCode   string                `json:"emcf_qr_code,omitempty"`
	EmcfDateTime string                `json:"emcf_date_time,omitempty"`
	EmcfCounters string                `json:"emcf_counters,omitempty"`
	EmcfNim      string                `json:"emcf_nim,omitempty"`
	EmcfPosID    string                `json:"emcf_pos_id,omitempty"`
	ConfirmedAt  *time.Time            `json:"emcf_confirmed_at,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	Items        []InvoiceItemResponse `json:"items,omitempty"`
}

// InvoiceItemResponse ligne de facture.
type InvoiceItemResponse struct {
	ProductID   string          `json:"product_id,omitempty"`
	Name        string          `json:"name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxGroup    string          `json:"tax_group"`
	VatAmount   int64           `json:"vat_amount"`
	TotalAmount int64           `json:"total_amount"`
}

// InvoiceListResponse page de factures.
type InvoiceListResponse struct {
	Items []InvoiceResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// InvoiceListRequest filtres de GET /api/invoices.
type InvoiceListRequest struct {
	PageRequest
	Type   string `query:"type"`
	Search string `query:"q"`
}

// UpdateInvoiceNotesRequest body de PATCH /api/invoices/:id.
type UpdateInvoiceNotesRequest struct {
	Notes string `json:"notes"`
}
