package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/iliyamo/apartment-management/internal/model"
)

// AnnouncementRepo encapsulates queries on the `announcements` table.
type AnnouncementRepo struct {
	db *sql.DB
}

func NewAnnouncementRepo(db *sql.DB) *AnnouncementRepo { return &AnnouncementRepo{db: db} }

const announcementColumns = "id, title, content, created_by, important, created_at"

// Create inserts a and reloads the creation timestamp.
func (r *AnnouncementRepo) Create(ctx context.Context, a *model.Announcement) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO announcements (title, content, created_by, important) VALUES (?,?,?,?)",
		a.Title, a.Content, a.CreatedBy, a.Important)
	if err != nil {
		return errors.WithMessage(translate(err), "insert announcement")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "last insert id")
	}
	a.ID = uint64(id)
	err = r.db.QueryRowContext(ctx, "SELECT created_at FROM announcements WHERE id = ?", a.ID).Scan(&a.CreatedAt)
	return errors.WithMessage(translate(err), "reload announcement")
}

// List returns announcements with important ones first, then newest first.
// A limit of zero or less returns everything.
func (r *AnnouncementRepo) List(ctx context.Context, limit int) ([]*model.Announcement, error) {
	q := "SELECT " + announcementColumns + " FROM announcements ORDER BY important DESC, created_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list announcements")
	}
	defer rows.Close()

	out := []*model.Announcement{}
	for rows.Next() {
		a := new(model.Announcement)
		if err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.CreatedBy, &a.Important, &a.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan announcement")
		}
		out = append(out, a)
	}
	return out, errors.Wrap(rows.Err(), "list announcements")
}
