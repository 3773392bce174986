package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelog/carelog/internal/domain"
)

// HardwareRepository manages registered assets and the type lookup.
type HardwareRepository interface {
	Create(ctx context.Context, hardware *domain.Hardware) error
	// CreateBatch inserts all rows in one transaction; either every row
	// is persisted or none are.
	CreateBatch(ctx context.Context, hardware []domain.Hardware) ([]domain.Hardware, error)
	GetByID(ctx context.Context, id string) (*domain.Hardware, error)
	ListByOrganization(ctx context.Context, orgID string) ([]domain.Hardware, error)
	ListTypes(ctx context.Context) ([]domain.HardwareType, error)
	CreateType(ctx context.Context, hwType *domain.HardwareType) error
}

type hardwareRepository struct {
	pool *pgxpool.Pool
}

// NewHardwareRepository builds repository.
func NewHardwareRepository(pool *pgxpool.Pool) HardwareRepository {
	return &hardwareRepository{pool: pool}
}

const hardwareInsert = `
        INSERT INTO hardware (organization_id, location_id, hardware_type_id, name,
            manufacturer, model, serial_number, status, purchase_date, warranty_expiry, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`

func (r *hardwareRepository) Create(ctx context.Context, hardware *domain.Hardware) error {
	return r.pool.QueryRow(ctx, hardwareInsert,
		hardware.OrganizationID,
		hardware.LocationID,
		hardware.HardwareTypeID,
		hardware.Name,
		hardware.Manufacturer,
		hardware.Model,
		hardware.SerialNumber,
		hardware.Status,
		hardware.PurchaseDate,
		hardware.WarrantyExpiry,
		hardware.Notes,
	).Scan(&hardware.ID, &hardware.CreatedAt, &hardware.UpdatedAt)
}

func (r *hardwareRepository) CreateBatch(ctx context.Context, hardware []domain.Hardware) ([]domain.Hardware, error) {
	if len(hardware) == 0 {
		return nil, nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	inserted := make([]domain.Hardware, 0, len(hardware))
	for _, hw := range hardware {
		if err := tx.QueryRow(ctx, hardwareInsert,
			hw.OrganizationID,
			hw.LocationID,
			hw.HardwareTypeID,
			hw.Name,
			hw.Manufacturer,
			hw.Model,
			hw.SerialNumber,
			hw.Status,
			hw.PurchaseDate,
			hw.WarrantyExpiry,
			hw.Notes,
		).Scan(&hw.ID, &hw.CreatedAt, &hw.UpdatedAt); err != nil {
			return nil, err
		}
		inserted = append(inserted, hw)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return inserted, nil
}

func (r *hardwareRepository) GetByID(ctx context.Context, id string) (*domain.Hardware, error) {
	const query = `
        SELECT id, organization_id, location_id, hardware_type_id, name, manufacturer, model,
               serial_number, status, purchase_date, warranty_expiry, notes, created_at, updated_at
        FROM hardware WHERE id=$1`
	var hardware domain.Hardware
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&hardware.ID,
		&hardware.OrganizationID,
		&hardware.LocationID,
		&hardware.HardwareTypeID,
		&hardware.Name,
		&hardware.Manufacturer,
		&hardware.Model,
		&hardware.SerialNumber,
		&hardware.Status,
		&hardware.PurchaseDate,
		&hardware.WarrantyExpiry,
		&hardware.Notes,
		&hardware.CreatedAt,
		&hardware.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &hardware, nil
}

func (r *hardwareRepository) ListByOrganization(ctx context.Context, orgID string) ([]domain.Hardware, error) {
	const query = `
        SELECT id, organization_id, location_id, hardware_type_id, name, manufacturer, model,
               serial_number, status, purchase_date, warranty_expiry, notes, created_at, updated_at
        FROM hardware WHERE organization_id=$1 ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHardware(rows)
}

func (r *hardwareRepository) ListTypes(ctx context.Context) ([]domain.HardwareType, error) {
	const query = `SELECT id, name, created_at FROM hardware_types ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HardwareType
	for rows.Next() {
		var hwType domain.HardwareType
		if err := rows.Scan(&hwType.ID, &hwType.Name, &hwType.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, hwType)
	}
	return result, rows.Err()
}

func (r *hardwareRepository) CreateType(ctx context.Context, hwType *domain.HardwareType) error {
	const query = `INSERT INTO hardware_types (name) VALUES ($1) RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, hwType.Name).Scan(&hwType.ID, &hwType.CreatedAt)
}

func scanHardware(rows pgx.Rows) ([]domain.Hardware, error) {
	var result []domain.Hardware
	for rows.Next() {
		var hardware domain.Hardware
		if err := rows.Scan(
			&hardware.ID,
			&hardware.OrganizationID,
			&hardware.LocationID,
			&hardware.HardwareTypeID,
			&hardware.Name,
			&hardware.Manufacturer,
			&hardware.Model,
			&hardware.SerialNumber,
			&hardware.Status,
			&hardware.PurchaseDate,
			&hardware.WarrantyExpiry,
			&hardware.Notes,
			&hardware.CreatedAt,
			&hardware.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, hardware)
	}
	return result, rows.Err()
}
