package billing

import (
	"context"

	"github.com/cavebenin/emecef-pos/internal/domain/entity"
)

// Seller identité de la cave imprimée sur les factures.
type Seller struct {
	Name    string
	IFU     string
	Address string
	Contact string
}

// InvoicePDFGenerator produit la représentation imprimable d'une facture certifiée.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, invoice *entity.Invoice, seller Seller) ([]byte, error)
}
