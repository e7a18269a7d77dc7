package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/iliyamo/apartment-management/internal/model"
)

// ErrApartmentNotFound is returned when an apartment cannot be found.
var ErrApartmentNotFound = errors.Wrap(ErrNotFound, "apartment")

// ApartmentRepo encapsulates queries on the `apartments` table.
type ApartmentRepo struct {
	db *sql.DB
}

func NewApartmentRepo(db *sql.DB) *ApartmentRepo { return &ApartmentRepo{db: db} }

const apartmentColumns = "id,number,building,tenant_id,owner_id,rent,status,area,amenities,last_maintenance_date,society_name,created_at,updated_at"

// ExistsByNumberBuilding reports whether (number, building) is taken.
func (r *ApartmentRepo) ExistsByNumberBuilding(ctx context.Context, number, building string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM apartments WHERE number=? AND building=?)", number, building).Scan(&exists)
	return exists, errors.Wrap(err, "check apartment exists")
}

// Create inserts a and reloads it so defaults and timestamps are populated.
func (r *ApartmentRepo) Create(ctx context.Context, a *model.Apartment) error {
	if a.Amenities == nil {
		a.Amenities = []string{}
	}
	amenities, err := json.Marshal(a.Amenities)
	if err != nil {
		return errors.Wrap(err, "encode amenities")
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO apartments (number, building, tenant_id, owner_id, rent, status, area, amenities, last_maintenance_date, society_name)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		a.Number, a.Building, a.TenantID, a.OwnerID, a.Rent, string(a.Status), a.Area, amenities, a.LastMaintenanceDate, a.SocietyName)
	if err != nil {
		return errors.WithMessage(translate(err), "insert apartment")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "last insert id")
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*a = *created
	return nil
}

// GetByID fetches an apartment by id.
func (r *ApartmentRepo) GetByID(ctx context.Context, id uint64) (*model.Apartment, error) {
	var (
		a             model.Apartment
		status        string
		tenant, owner sql.NullInt64
		amenities     []byte
		lastMaint     sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, "SELECT "+apartmentColumns+" FROM apartments WHERE id=?", id).Scan(
		&a.ID, &a.Number, &a.Building, &tenant, &owner, &a.Rent, &status, &a.Area, &amenities, &lastMaint, &a.SocietyName, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrApartmentNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get apartment")
	}
	a.Status = model.ApartmentStatus(status)
	a.TenantID = optionalID(tenant)
	a.OwnerID = optionalID(owner)
	if lastMaint.Valid {
		t := lastMaint.Time
		a.LastMaintenanceDate = &t
	}
	a.Amenities = []string{}
	if len(amenities) > 0 {
		if err := json.Unmarshal(amenities, &a.Amenities); err != nil {
			return nil, errors.Wrap(err, "decode amenities")
		}
	}
	return &a, nil
}

func optionalID(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	id := uint64(v.Int64)
	return &id
}
