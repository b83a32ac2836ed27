package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskmanager/internal/model"
)

const userColumns = `row_id, user_id, first_name, last_name, dob, email, phone, registered_at, password, last_login_at, last_logout_at`

type UserRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUserRepository(db *pgxpool.Pool, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

// Create inserts a new user and fills in RowID.
func (r *UserRepository) Create(ctx context.Context, u *model.User) (err error) {
	defer observe("create_user", time.Now(), &err)

	query := `
        INSERT INTO users (user_id, first_name, last_name, dob, email, phone, registered_at, password, last_login_at, last_logout_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING row_id
    `
	err = r.db.QueryRow(ctx, query,
		u.ID, u.FirstName, u.LastName, u.DOB, u.Email, u.Phone,
		u.RegisteredAt, u.Password, u.LastLoginAt, u.LastLogoutAt,
	).Scan(&u.RowID)
	if err != nil {
		r.logger.Error("Failed to insert user", zap.String("user_id", u.ID), zap.Error(err))
		return err
	}
	r.logger.Info("User inserted", zap.String("user_id", u.ID), zap.Int64("row_id", u.RowID))
	return nil
}

func (r *UserRepository) ListByEmail(ctx context.Context, email string) (users []model.User, err error) {
	defer observe("list_users_by_email", time.Now(), &err)

	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 ORDER BY row_id`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (u *model.User, err error) {
	defer observe("get_user", time.Now(), &err)

	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1 ORDER BY row_id LIMIT 1`, userID)
	u, err = scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return u, err
}

// Count returns the number of stored user rows.
func (r *UserRepository) Count(ctx context.Context) (n int64, err error) {
	defer observe("count_users", time.Now(), &err)
	err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *UserRepository) SetLastLogin(ctx context.Context, rowID int64, at time.Time) error {
	return r.touch(ctx, "last_login_at", rowID, at)
}

func (r *UserRepository) SetLastLogout(ctx context.Context, rowID int64, at time.Time) error {
	return r.touch(ctx, "last_logout_at", rowID, at)
}

func (r *UserRepository) touch(ctx context.Context, column string, rowID int64, at time.Time) (err error) {
	defer observe("set_"+column, time.Now(), &err)

	result, err := r.db.Exec(ctx, `UPDATE users SET `+column+` = $2 WHERE row_id = $1`, rowID, at)
	if err != nil {
		r.logger.Error("Failed to update user timestamp",
			zap.String("column", column),
			zap.Int64("row_id", rowID),
			zap.Error(err),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user row %d: %w", rowID, ErrNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.RowID,
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.DOB,
		&u.Email,
		&u.Phone,
		&u.RegisteredAt,
		&u.Password,
		&u.LastLoginAt,
		&u.LastLogoutAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
