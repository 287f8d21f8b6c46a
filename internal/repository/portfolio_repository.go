package repository

import (
	"context"
	"database/sql"

	"github.com/khan-rustam/sparkshift-server/internal/models"
)

type PortfolioRepository interface {
	Create(ctx context.Context, item *models.PortfolioItem) error
	GetByID(ctx context.Context, id string) (*models.PortfolioItem, error)
	ListAll(ctx context.Context) ([]*models.PortfolioItem, error)
	Update(ctx context.Context, id string, req *models.UpdatePortfolioRequest) (*models.PortfolioItem, error)
	Delete(ctx context.Context, id string) error
}

type portfolioRepository struct {
	db *sql.DB
}

func NewPortfolioRepository(db *sql.DB) PortfolioRepository {
	return &portfolioRepository{db: db}
}

const portfolioColumns = "id, project_name, category, description, project_link, image_url, image_key, created_at"

func (r *portfolioRepository) Create(ctx context.Context, item *models.PortfolioItem) error {
	query := `
		INSERT INTO portfolio_items (id, project_name, category, description, project_link, image_url, image_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		item.ID, item.ProjectName, item.Category, item.Description,
		item.ProjectLink, item.ImageURL, item.ImageKey, item.CreatedAt,
	).Scan(&item.CreatedAt)
	return err
}

func (r *portfolioRepository) GetByID(ctx context.Context, id string) (*models.PortfolioItem, error) {
	query := `
		SELECT ` + portfolioColumns + `
		FROM portfolio_items
		WHERE id = $1
	`

	var item models.PortfolioItem
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.ProjectName, &item.Category, &item.Description,
		&item.ProjectLink, &item.ImageURL, &item.ImageKey, &item.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *portfolioRepository) ListAll(ctx context.Context) ([]*models.PortfolioItem, error) {
	query := `
		SELECT ` + portfolioColumns + `
		FROM portfolio_items
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.PortfolioItem
	for rows.Next() {
		var item models.PortfolioItem
		if err := rows.Scan(
			&item.ID, &item.ProjectName, &item.Category, &item.Description,
			&item.ProjectLink, &item.ImageURL, &item.ImageKey, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}

	return items, rows.Err()
}

func (r *portfolioRepository) Update(ctx context.Context, id string, req *models.UpdatePortfolioRequest) (*models.PortfolioItem, error) {
	query := `
		UPDATE portfolio_items
		SET project_name = COALESCE($1, project_name),
			category = COALESCE($2, category),
			description = COALESCE($3, description),
			project_link = COALESCE($4, project_link)
		WHERE id = $5
		RETURNING ` + portfolioColumns + `
	`

	var item models.PortfolioItem
	err := r.db.QueryRowContext(ctx, query, req.ProjectName, req.Category, req.Description, req.ProjectLink, id).Scan(
		&item.ID, &item.ProjectName, &item.Category, &item.Description,
		&item.ProjectLink, &item.ImageURL, &item.ImageKey, &item.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *portfolioRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM portfolio_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
