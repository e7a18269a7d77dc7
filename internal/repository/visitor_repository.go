package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/iliyamo/apartment-management/internal/model"
)

// ErrVisitorNotFound is returned when a visitor cannot be found.
var ErrVisitorNotFound = errors.Wrap(ErrNotFound, "visitor")

// VisitorRepo encapsulates queries on the `visitors` table.
type VisitorRepo struct {
	db *sql.DB
}

func NewVisitorRepo(db *sql.DB) *VisitorRepo { return &VisitorRepo{db: db} }

const visitorColumns = "id,name,purpose,status,apartment_id,expected_at,actual_entry_at,actual_exit_at,approved_by,contact_number,pending_approval,created_at,updated_at"

// Create inserts v and reloads it.  An unknown apartment or approver yields
// ErrReferenceNotFound.
func (r *VisitorRepo) Create(ctx context.Context, v *model.Visitor) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO visitors (name, purpose, status, apartment_id, expected_at, actual_entry_at, actual_exit_at, approved_by, contact_number, pending_approval)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		v.Name, v.Purpose, string(v.Status), v.ApartmentID, v.ExpectedAt, v.ActualEntryAt, v.ActualExitAt, v.ApprovedBy, v.ContactNumber, v.PendingApproval)
	if err != nil {
		return errors.WithMessage(translate(err), "insert visitor")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "last insert id")
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*v = *created
	return nil
}

// GetByID fetches a visitor by id.
func (r *VisitorRepo) GetByID(ctx context.Context, id uint64) (*model.Visitor, error) {
	var (
		v           model.Visitor
		status      string
		entry, exit sql.NullTime
		approver    sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, "SELECT "+visitorColumns+" FROM visitors WHERE id=?", id).Scan(
		&v.ID, &v.Name, &v.Purpose, &status, &v.ApartmentID, &v.ExpectedAt, &entry, &exit, &approver, &v.ContactNumber, &v.PendingApproval, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVisitorNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get visitor")
	}
	v.Status = model.VisitorStatus(status)
	v.ActualEntryAt = optionalTime(entry)
	v.ActualExitAt = optionalTime(exit)
	v.ApprovedBy = optionalID(approver)
	return &v, nil
}

// Delete removes a visitor and returns ErrVisitorNotFound if nothing was deleted.
func (r *VisitorRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM visitors WHERE id=?", id)
	if err != nil {
		return errors.Wrap(err, "delete visitor")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete visitor")
	}
	if n == 0 {
		return ErrVisitorNotFound
	}
	return nil
}

func optionalTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
