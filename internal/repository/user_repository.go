package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coordenador-app/booking-api/internal/model"
)

// UserRepo reads user records for notification routing and the daily
// digest.  Account lifecycle (registration, credentials) is owned by the
// external identity service, so this repository exposes reads only.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, name, email, professor, admin, created_at, updated_at`

// FindByID returns a single user or ErrNotFound.
func (r *UserRepo) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	var u model.User
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&u.ID, &u.Name, &u.Email, &u.Professor, &u.Admin, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListProfessors returns all professor accounts, ordered by id for
// deterministic digest delivery.
func (r *UserRepo) ListProfessors(ctx context.Context) ([]model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE professor = 1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Professor, &u.Admin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
