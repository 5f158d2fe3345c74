package billing

import (
	"context"
	"fmt"

	"github.com/cavebenin/emecef-pos/internal/application/dto"
	"github.com/cavebenin/emecef-pos/internal/domain/repository"
	"github.com/cavebenin/emecef-pos/pkg/emecef"
)

// CatalogUseCase lecture du catalogue pour l'écran de caisse.
type CatalogUseCase struct {
	productRepo repository.ProductRepository
}

// NewCatalogUseCase construit le cas d'usage.
func NewCatalogUseCase(productRepo repository.ProductRepository) *CatalogUseCase {
	return &CatalogUseCase{productRepo: productRepo}
}

// ListProducts page du catalogue avec le taux de TVA de chaque groupe.
func (uc *CatalogUseCase) ListProducts(ctx context.Context, page dto.PageRequest) (*dto.ProductListResponse, error) {
	page.DefaultPage()
	list, err := uc.productRepo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("lister le catalogue: %w", err)
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		group, _ := emecef.ParseTaxGroup(p.TaxGroup)
		items = append(items, dto.ProductResponse{
			ID:          p.ID,
			SKU:         p.SKU,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			TaxGroup:    p.TaxGroup,
			VatRate:     emecef.VatRateForTaxGroup(group),
			Stock:       p.Stock,
			UpdatedAt:   p.UpdatedAt,
		})
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}
