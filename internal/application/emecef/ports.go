package emecef

import (
	"context"

	domain "github.com/cavebenin/emecef-pos/internal/domain/emecef"
	"github.com/cavebenin/emecef-pos/internal/domain/repository"
)

// FiscalClient port de sortie vers l'API e-MECeF de la DGI.
// L'implémentation HTTP vit dans infrastructure/emecef ; les tests injectent un mock.
type FiscalClient interface {
	Submit(ctx context.Context, creds domain.Credentials, payload *domain.NormalizedPayload) (domain.Response, error)
	Status(ctx context.Context, creds domain.Credentials) (domain.Response, error)
	GetInvoice(ctx context.Context, creds domain.Credentials, uid string) (domain.Response, error)
	Finalize(ctx context.Context, creds domain.Credentials, uid string, action domain.FinalizeAction) (domain.Response, error)
}

// TokenCipher chiffre les jetons des points de vente au repos.
// Absent (nil) : les jetons sont stockés en clair avec token_encrypted=false.
type TokenCipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(stored string) (string, error)
}

// SaleTxRunner exécute fn dans une transaction regroupant ventes, factures et stock.
type SaleTxRunner interface {
	RunSale(ctx context.Context, fn func(
		saleRepo repository.SaleRepository,
		invoiceRepo repository.InvoiceRepository,
		productRepo repository.ProductRepository,
	) error) error
}
