package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/iliyamo/apartment-management/internal/model"
)

// PaymentRepo encapsulates queries on the `payments` table.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = "id, apartment_id, tenant_id, amount, date, type, created_at, updated_at"

func scanPayment(row interface{ Scan(...any) error }) (*model.Payment, error) {
	var (
		p   model.Payment
		typ string
	)
	if err := row.Scan(&p.ID, &p.ApartmentID, &p.TenantID, &p.Amount, &p.Date, &typ, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Type = model.PaymentType(typ)
	return &p, nil
}

// Create records a payment.  Unknown apartment or tenant ids surface as
// ErrReferenceNotFound.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO payments (apartment_id, tenant_id, amount, date, type) VALUES (?,?,?,?,?)",
		p.ApartmentID, p.TenantID, p.Amount, p.Date, string(p.Type))
	if err != nil {
		return errors.WithMessage(translate(err), "insert payment")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "last insert id")
	}
	created, err := scanPayment(r.db.QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM payments WHERE id = ?", id))
	if err != nil {
		return errors.WithMessage(translate(err), "reload payment")
	}
	*p = *created
	return nil
}

// ListByApartment returns the payment history of an apartment, newest first.
func (r *PaymentRepo) ListByApartment(ctx context.Context, apartmentID uint64) ([]*model.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE apartment_id = ? ORDER BY date DESC, id DESC", apartmentID)
	if err != nil {
		return nil, errors.Wrap(err, "list payments")
	}
	defer rows.Close()

	out := []*model.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan payment")
		}
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "list payments")
}
