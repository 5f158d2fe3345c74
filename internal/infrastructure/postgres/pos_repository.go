package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cavebenin/emecef-pos/internal/domain"
	"github.com/cavebenin/emecef-pos/internal/domain/entity"
	"github.com/cavebenin/emecef-pos/internal/domain/repository"
)

var _ repository.PointOfSaleRepository = (*PointOfSaleRepo)(nil)

// TxQuerier Querier capable d'ouvrir une transaction (pool ou tx imbriquée).
type TxQuerier interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PointOfSaleRepo persistance des points de vente e-MECeF.
type PointOfSaleRepo struct {
	db TxQuerier
}

// NewPointOfSaleRepository construit l'adaptateur.
func NewPointOfSaleRepository(db TxQuerier) *PointOfSaleRepo {
	return &PointOfSaleRepo{db: db}
}

const posColumns = `id, name, base_url, token, token_encrypted, is_active, created_at, updated_at`

func scanPointOfSale(row pgx.Row) (*entity.PointOfSale, error) {
	var p entity.PointOfSale
	err := row.Scan(&p.ID, &p.Name, &p.BaseURL, &p.Token, &p.TokenEncrypted, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List retourne tous les points de vente, l'actif en premier.
func (r *PointOfSaleRepo) List(ctx context.Context) ([]*entity.PointOfSale, error) {
	rows, err := r.db.Query(ctx, `SELECT `+posColumns+` FROM emcf_points_of_sale ORDER BY is_active DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list points of sale: %w", err)
	}
	defer rows.Close()
	var list []*entity.PointOfSale
	for rows.Next() {
		p, err := scanPointOfSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan point of sale: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// GetByID retourne nil, nil si absent.
func (r *PointOfSaleRepo) GetByID(ctx context.Context, id string) (*entity.PointOfSale, error) {
	p, err := scanPointOfSale(r.db.QueryRow(ctx, `SELECT `+posColumns+` FROM emcf_points_of_sale WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get point of sale: %w", err)
	}
	return p, nil
}

// GetActive retourne nil, nil si aucun point de vente n'est actif.
func (r *PointOfSaleRepo) GetActive(ctx context.Context) (*entity.PointOfSale, error) {
	p, err := scanPointOfSale(r.db.QueryRow(ctx, `SELECT `+posColumns+` FROM emcf_points_of_sale WHERE is_active LIMIT 1`))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active point of sale: %w", err)
	}
	return p, nil
}

// Upsert crée ou met à jour le point de vente. is_active n'est jamais écrit
// ici : l'activation passe par SetActive.
func (r *PointOfSaleRepo) Upsert(ctx context.Context, p *entity.PointOfSale) error {
	const query = `
		INSERT INTO emcf_points_of_sale (id, name, base_url, token, token_encrypted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name            = EXCLUDED.name,
		    base_url        = EXCLUDED.base_url,
		    token           = EXCLUDED.token,
		    token_encrypted = EXCLUDED.token_encrypted,
		    updated_at      = EXCLUDED.updated_at
		RETURNING is_active, created_at`
	err := r.db.QueryRow(ctx, query,
		p.ID, p.Name, p.BaseURL, p.Token, p.TokenEncrypted, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.IsActive, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert point of sale: %w", err)
	}
	return nil
}

// Delete supprime le point de vente ; domain.ErrNotFound si absent.
func (r *PointOfSaleRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM emcf_points_of_sale WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete point of sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetActive désactive tous les points de vente puis active id, dans une seule
// transaction : l'index unique partiel garantit au plus un actif.
func (r *PointOfSaleRepo) SetActive(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin set active: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`UPDATE emcf_points_of_sale SET is_active = FALSE, updated_at = NOW() WHERE is_active AND id <> $1`, id,
	); err != nil {
		return fmt.Errorf("deactivate points of sale: %w", err)
	}
	tag, err := tx.Exec(ctx,
		`UPDATE emcf_points_of_sale SET is_active = TRUE, updated_at = NOW() WHERE id = $1`, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: activation concurrente", domain.ErrConflict)
		}
		return fmt.Errorf("activate point of sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit set active: %w", err)
	}
	return nil
}
