package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cavebenin/emecef-pos/internal/domain"
	"github.com/cavebenin/emecef-pos/internal/domain/entity"
	"github.com/cavebenin/emecef-pos/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo persistance des factures (pool ou tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construit l'adaptateur. Passer pool ou tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, sale_id::text, number, type, customer_name, customer_ifu,
	subtotal, vat_total, aib_amount, total, notes, immutable_flag,
	emcf_uid, emcf_status, emcf_code_mecef_dgi, emcf_qr_code, emcf_date_time,
	emcf_counters, emcf_nim, emcf_pos_id, emcf_raw_response,
	emcf_submitted_at, emcf_confirmed_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var saleID, customerIFU, uid, code, qr, dateTime, counters, nim, posID *string
	var raw []byte
	err := row.Scan(
		&inv.ID, &saleID, &inv.Number, &inv.Type, &inv.CustomerName, &customerIFU,
		&inv.Subtotal, &inv.VatTotal, &inv.AibAmount, &inv.Total, &inv.Notes, &inv.ImmutableFlag,
		&uid, &inv.EmcfStatus, &code, &qr, &dateTime,
		&counters, &nim, &posID, &raw,
		&inv.EmcfSubmittedAt, &inv.EmcfConfirmedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.SaleID = derefStr(saleID)
	inv.CustomerIFU = derefStr(customerIFU)
	inv.EmcfUID = derefStr(uid)
	inv.EmcfCodeMECeFDGI = derefStr(code)
	inv.EmcfQrCode = derefStr(qr)
	inv.EmcfDateTime = derefStr(dateTime)
	inv.EmcfCounters = derefStr(counters)
	inv.EmcfNim = derefStr(nim)
	inv.EmcfPosID = derefStr(posID)
	if len(raw) > 0 {
		inv.EmcfRawResponse = raw
	}
	return &inv, nil
}

// Create persiste la facture ; un numéro ou un UID e-MECeF déjà connu
// retourne domain.ErrDuplicate.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	var raw any
	if len(inv.EmcfRawResponse) > 0 {
		raw = string(inv.EmcfRawResponse)
	}
	const query = `
		INSERT INTO invoices (
			id, sale_id, number, type, customer_name, customer_ifu,
			subtotal, vat_total, aib_amount, total, notes, immutable_flag,
			emcf_uid, emcf_status, emcf_code_mecef_dgi, emcf_qr_code, emcf_date_time,
			emcf_counters, emcf_nim, emcf_pos_id, emcf_raw_response,
			emcf_submitted_at, emcf_confirmed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		        $18, $19, $20, $21, $22, $23, $24, $25)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, nullIfEmpty(inv.SaleID), inv.Number, inv.Type, inv.CustomerName, nullIfEmpty(inv.CustomerIFU),
		inv.Subtotal, inv.VatTotal, inv.AibAmount, inv.Total, inv.Notes, inv.ImmutableFlag,
		nullIfEmpty(inv.EmcfUID), inv.EmcfStatus, nullIfEmpty(inv.EmcfCodeMECeFDGI), nullIfEmpty(inv.EmcfQrCode),
		nullIfEmpty(inv.EmcfDateTime), nullIfEmpty(inv.EmcfCounters), nullIfEmpty(inv.EmcfNim),
		nullIfEmpty(inv.EmcfPosID), raw,
		inv.EmcfSubmittedAt, inv.EmcfConfirmedAt, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: facture %s", domain.ErrDuplicate, inv.Number)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// GetByID retourne la facture avec ses lignes ; nil, nil si absente.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

// GetByEmcfUID retourne la facture certifiée sous uid ; nil, nil si absente.
func (r *InvoiceRepo) GetByEmcfUID(ctx context.Context, uid string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE emcf_uid = $1`, uid)
}

func (r *InvoiceRepo) getOne(ctx context.Context, query, arg string) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if inv.SaleID != "" {
		items, err := listSaleItems(ctx, r.q, inv.SaleID)
		if err != nil {
			return nil, err
		}
		inv.Items = items
	}
	return inv, nil
}

// List factures les plus récentes d'abord, sans les lignes.
func (r *InvoiceRepo) List(ctx context.Context, f repository.InvoiceFilter) ([]*entity.Invoice, int, error) {
	where, args := invoiceWhere(f)

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM invoices%s ORDER BY created_at DESC, number DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, where, len(args)-1, len(args))
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var list []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, inv)
	}
	return list, total, rows.Err()
}

// invoiceWhere construit la clause WHERE paramétrée du filtre.
func invoiceWhere(f repository.InvoiceFilter) (string, []any) {
	var conds []string
	var args []any
	if t := strings.TrimSpace(f.Type); t != "" {
		args = append(args, strings.ToUpper(t))
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(number ILIKE $%d OR customer_name ILIKE $%d OR emcf_uid ILIKE $%d)", n, n, n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// UpdateNotes modifie les notes d'une facture non certifiée.
func (r *InvoiceRepo) UpdateNotes(ctx context.Context, id, notes string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE invoices SET notes = $2, updated_at = NOW() WHERE id = $1 AND NOT immutable_flag`, id, notes)
	if err != nil {
		return fmt.Errorf("update invoice notes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.guardError(ctx, id)
	}
	return nil
}

// Delete supprime une facture non certifiée.
func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1 AND NOT immutable_flag`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.guardError(ctx, id)
	}
	return nil
}

// guardError distingue facture absente et facture immuable après un UPDATE/DELETE sans effet.
func (r *InvoiceRepo) guardError(ctx context.Context, id string) error {
	var immutable bool
	err := r.q.QueryRow(ctx, `SELECT immutable_flag FROM invoices WHERE id = $1`, id).Scan(&immutable)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("check invoice: %w", err)
	}
	if immutable {
		return domain.ErrImmutable
	}
	return domain.ErrConflict
}

// NextNumber incrémente le compteur (prefix, year) et retourne la nouvelle valeur.
func (r *InvoiceRepo) NextNumber(ctx context.Context, prefix string, year int) (int64, error) {
	const query = `
		INSERT INTO invoice_counters (prefix, year, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (prefix, year) DO UPDATE
		SET last_value = invoice_counters.last_value + 1
		RETURNING last_value`
	var n int64
	if err := r.q.QueryRow(ctx, query, prefix, year).Scan(&n); err != nil {
		return 0, fmt.Errorf("next invoice number: %w", err)
	}
	return n, nil
}
