package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/iliyamo/apartment-management/internal/model"
)

// ErrMaintenanceNotFound is returned when a maintenance request cannot be found.
var ErrMaintenanceNotFound = errors.Wrap(ErrNotFound, "maintenance request")

// MaintenanceRepo encapsulates queries on the `maintenance_requests` table.
type MaintenanceRepo struct {
	db *sql.DB
}

func NewMaintenanceRepo(db *sql.DB) *MaintenanceRepo { return &MaintenanceRepo{db: db} }

// Create inserts m and reloads it.
func (r *MaintenanceRepo) Create(ctx context.Context, m *model.MaintenanceRequest) error {
	if m.Status == "" {
		m.Status = model.MaintenancePending
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO maintenance_requests (apartment_id, tenant_id, description, status) VALUES (?,?,?,?)",
		m.ApartmentID, m.TenantID, m.Description, string(m.Status))
	if err != nil {
		return errors.WithMessage(translate(err), "insert maintenance request")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "last insert id")
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*m = *created
	return nil
}

// GetByID fetches a maintenance request by id.
func (r *MaintenanceRepo) GetByID(ctx context.Context, id uint64) (*model.MaintenanceRequest, error) {
	const q = `SELECT id, apartment_id, tenant_id, description, status, created_at, updated_at
	           FROM maintenance_requests WHERE id = ?`
	var (
		m      model.MaintenanceRequest
		status string
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.ApartmentID, &m.TenantID, &m.Description, &status, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMaintenanceNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get maintenance request")
	}
	m.Status = model.MaintenanceStatus(status)
	return &m, nil
}

// UpdateStatus sets the status of a request and returns the updated row.
func (r *MaintenanceRepo) UpdateStatus(ctx context.Context, id uint64, status model.MaintenanceStatus) (*model.MaintenanceRequest, error) {
	const q = `UPDATE maintenance_requests
	           SET status = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, string(status), id); err != nil {
		return nil, errors.Wrap(err, "update maintenance status")
	}
	// MySQL reports 0 affected rows when the value did not change, so a
	// missing id is detected by the reload instead of RowsAffected.
	return r.GetByID(ctx, id)
}
