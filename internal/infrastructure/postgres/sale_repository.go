package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cavebenin/emecef-pos/internal/domain/entity"
	"github.com/cavebenin/emecef-pos/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo persistance des ventes (pool ou tx).
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construit l'adaptateur. Passer pool ou tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

// Create persiste l'en-tête de vente.
func (r *SaleRepo) Create(ctx context.Context, sale *entity.Sale) error {
	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}
	payment := sale.Payment
	if len(payment) == 0 {
		payment = []byte("[]")
	}
	const query = `
		INSERT INTO sales (id, customer_name, customer_ifu, subtotal, vat_total, aib_amount, total, payment, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		sale.ID, sale.CustomerName, nullIfEmpty(sale.CustomerIFU),
		sale.Subtotal, sale.VatTotal, sale.AibAmount, sale.Total,
		string(payment), sale.CreatedBy, sale.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

// CreateItem persiste une ligne de vente.
func (r *SaleRepo) CreateItem(ctx context.Context, item *entity.SaleItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	const query = `
		INSERT INTO sale_items (id, sale_id, product_id, name, quantity, unit_price, tax_group, vat_amount, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		item.ID, item.SaleID, nullIfEmpty(item.ProductID), item.Name,
		item.Quantity, item.UnitPrice, item.TaxGroup, item.VatAmount, item.TotalAmount,
	)
	if err != nil {
		return fmt.Errorf("insert sale item: %w", err)
	}
	return nil
}

// ListItems lignes d'une vente dans l'ordre de saisie.
func (r *SaleRepo) ListItems(ctx context.Context, saleID string) ([]entity.SaleItem, error) {
	return listSaleItems(ctx, r.q, saleID)
}

func listSaleItems(ctx context.Context, q Querier, saleID string) ([]entity.SaleItem, error) {
	const query = `
		SELECT id, sale_id, product_id, name, quantity, unit_price, tax_group, vat_amount, total_amount
		FROM sale_items WHERE sale_id = $1 ORDER BY seq`
	rows, err := q.Query(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("list sale items: %w", err)
	}
	defer rows.Close()
	var list []entity.SaleItem
	for rows.Next() {
		var it entity.SaleItem
		var productID *string
		if err := rows.Scan(&it.ID, &it.SaleID, &productID, &it.Name, &it.Quantity, &it.UnitPrice,
			&it.TaxGroup, &it.VatAmount, &it.TotalAmount); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		it.ProductID = derefStr(productID)
		list = append(list, it)
	}
	return list, rows.Err()
}
