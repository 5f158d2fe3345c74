package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/cavebenin/emecef-pos/internal/application/dto"
	"github.com/cavebenin/emecef-pos/internal/domain"
	"github.com/cavebenin/emecef-pos/internal/domain/entity"
	"github.com/cavebenin/emecef-pos/internal/domain/repository"
)

// InvoiceUseCase consultation et gestion des factures locales.
// Les factures certifiées e-MECeF sont en lecture seule.
type InvoiceUseCase struct {
	invoiceRepo repository.InvoiceRepository
	generator   InvoicePDFGenerator
	seller      Seller
}

// NewInvoiceUseCase construit le cas d'usage.
func NewInvoiceUseCase(invoiceRepo repository.InvoiceRepository, generator InvoicePDFGenerator, seller Seller) *InvoiceUseCase {
	return &InvoiceUseCase{invoiceRepo: invoiceRepo, generator: generator, seller: seller}
}

// GetInvoice facture avec ses lignes ; domain.ErrNotFound si absente.
func (uc *InvoiceUseCase) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// ListInvoices page de factures, plus récentes d'abord.
func (uc *InvoiceUseCase) ListInvoices(ctx context.Context, req dto.InvoiceListRequest) (*dto.InvoiceListResponse, error) {
	req.DefaultPage()
	list, total, err := uc.invoiceRepo.List(ctx, repository.InvoiceFilter{
		Type:   req.Type,
		Search: req.Search,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("lister les factures: %w", err)
	}
	items := make([]dto.InvoiceResponse, 0, len(list))
	for _, inv := range list {
		items = append(items, ToInvoiceResponse(inv))
	}
	return &dto.InvoiceListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: req.Limit, Offset: req.Offset, Total: total},
	}, nil
}

// UpdateNotes modifie les notes ; domain.ErrImmutable pour une facture certifiée.
func (uc *InvoiceUseCase) UpdateNotes(ctx context.Context, id string, req dto.UpdateInvoiceNotesRequest) (*dto.InvoiceResponse, error) {
	inv, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.ImmutableFlag {
		return nil, domain.ErrImmutable
	}
	notes := strings.TrimSpace(req.Notes)
	if err := uc.invoiceRepo.UpdateNotes(ctx, id, notes); err != nil {
		return nil, err
	}
	inv.Notes = notes
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// DeleteInvoice supprime une facture non certifiée.
func (uc *InvoiceUseCase) DeleteInvoice(ctx context.Context, id string) error {
	inv, err := uc.load(ctx, id)
	if err != nil {
		return err
	}
	if inv.ImmutableFlag {
		return domain.ErrImmutable
	}
	return uc.invoiceRepo.Delete(ctx, id)
}

// DownloadPDF génère la facture imprimable. Seules les factures certifiées
// (code MECeF/DGI présent) ont une représentation fiscale.
func (uc *InvoiceUseCase) DownloadPDF(ctx context.Context, id string) ([]byte, string, error) {
	inv, err := uc.load(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !inv.IsCertified() {
		return nil, "", fmt.Errorf("%w: facture %s non certifiée e-MECeF", domain.ErrInvalidInput, inv.Number)
	}
	pdf, err := uc.generator.GenerateInvoicePDF(ctx, inv, uc.seller)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: génération: %w", err)
	}
	return pdf, fmt.Sprintf("facture_%s.pdf", inv.Number), nil
}

func (uc *InvoiceUseCase) load(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("obtenir la facture: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

// ToInvoiceResponse projection DTO d'une facture.
func ToInvoiceResponse(inv *entity.Invoice) dto.InvoiceResponse {
	resp := dto.InvoiceResponse{
		ID:           inv.ID,
		SaleID:       inv.SaleID,
		Number:       inv.Number,
		Type:         inv.Type,
		CustomerName: inv.CustomerName,
		CustomerIFU:  inv.CustomerIFU,
		Subtotal:     inv.Subtotal,
		VatTotal:     inv.VatTotal,
		AibAmount:    inv.AibAmount,
		Total:        inv.Total,
		Notes:        inv.Notes,
		Immutable:    inv.ImmutableFlag,
		EmcfUID:      inv.EmcfUID,
		EmcfStatus:   inv.EmcfStatus,
		EmcfCode:     inv.EmcfCodeMECeFDGI,
		EmcfQrCode:   inv.EmcfQrCode,
		EmcfDateTime: inv.EmcfDateTime,
		EmcfCounters: inv.EmcfCounters,
		EmcfNim:      inv.EmcfNim,
		EmcfPosID:    inv.EmcfPosID,
		ConfirmedAt:  inv.EmcfConfirmedAt,
		CreatedAt:    inv.CreatedAt,
	}
	for _, it := range inv.Items {
		resp.Items = append(resp.Items, dto.InvoiceItemResponse{
			ProductID:   it.ProductID,
			Name:        it.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TaxGroup:    it.TaxGroup,
			VatAmount:   it.VatAmount,
			TotalAmount: it.TotalAmount,
		})
	}
	return resp
}
