package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelog/carelog/internal/domain"
)

// LocationRepository manages organization sites.
type LocationRepository interface {
	Create(ctx context.Context, location *domain.Location) error
	GetByID(ctx context.Context, id string) (*domain.Location, error)
	ListByOrganization(ctx context.Context, orgID string) ([]domain.Location, error)
	ListAll(ctx context.Context) ([]domain.Location, error)
}

type locationRepository struct {
	pool *pgxpool.Pool
}

// NewLocationRepository builds repository.
func NewLocationRepository(pool *pgxpool.Pool) LocationRepository {
	return &locationRepository{pool: pool}
}

func (r *locationRepository) Create(ctx context.Context, location *domain.Location) error {
	const query = `
        INSERT INTO locations (organization_id, name, address, is_active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		location.OrganizationID,
		location.Name,
		location.Address,
		location.IsActive,
	).Scan(&location.ID, &location.CreatedAt, &location.UpdatedAt)
}

func (r *locationRepository) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	const query = `
        SELECT id, organization_id, name, address, is_active, created_at, updated_at
        FROM locations WHERE id=$1`
	var location domain.Location
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&location.ID,
		&location.OrganizationID,
		&location.Name,
		&location.Address,
		&location.IsActive,
		&location.CreatedAt,
		&location.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *locationRepository) ListByOrganization(ctx context.Context, orgID string) ([]domain.Location, error) {
	const query = `
        SELECT id, organization_id, name, address, is_active, created_at, updated_at
        FROM locations WHERE organization_id=$1 ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLocations(rows)
}

func (r *locationRepository) ListAll(ctx context.Context) ([]domain.Location, error) {
	const query = `
        SELECT id, organization_id, name, address, is_active, created_at, updated_at
        FROM locations ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLocations(rows)
}

func scanLocations(rows pgx.Rows) ([]domain.Location, error) {
	var result []domain.Location
	for rows.Next() {
		var location domain.Location
		if err := rows.Scan(
			&location.ID,
			&location.OrganizationID,
			&location.Name,
			&location.Address,
			&location.IsActive,
			&location.CreatedAt,
			&location.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, location)
	}
	return result, rows.Err()
}
