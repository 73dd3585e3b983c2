package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"polls-service/internal/domain/user"
	"polls-service/internal/platform/database"
)

type UserRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewUserRepo(db *sql.DB, logger *slog.Logger) *UserRepo {
	return &UserRepo{db: db, logger: loggerOrDefault(logger)}
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	query := `
        INSERT INTO users (email, password_hash, role, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	ts := now()
	if err := r.db.QueryRowContext(ctx, query, u.Email, u.PasswordHash, u.Role, ts).Scan(&u.ID); err != nil {
		if database.IsUniqueViolation(err) {
			return user.ErrEmailTaken
		}
		return logStorage(r.logger, "user_repo_create_failed", database.Storage("insert user", err))
	}
	u.CreatedAt = ts
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `
        SELECT id, email, password_hash, role, created_at
        FROM users WHERE email = $1
    `
	return r.getOne(ctx, query, email)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query := `
        SELECT id, email, password_hash, role, created_at
        FROM users WHERE id = $1
    `
	return r.getOne(ctx, query, id)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*user.User, error) {
	u := &user.User{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, logStorage(r.logger, "user_repo_get_failed", database.Storage("select user", err))
	}
	return u, nil
}

func (r *UserRepo) List(ctx context.Context) ([]user.User, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, email, password_hash, role, created_at
        FROM users ORDER BY id
    `)
	if err != nil {
		return nil, logStorage(r.logger, "user_repo_list_failed", database.Storage("select users", err))
	}
	defer rows.Close()

	usersList := []user.User{}
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, database.Storage("scan user", err)
		}
		usersList = append(usersList, u)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Storage("iterate users", err)
	}
	return usersList, nil
}

func (r *UserRepo) UpdateRole(ctx context.Context, id int64, role string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return logStorage(r.logger, "user_repo_update_role_failed", database.Storage("update role", err), "user_id", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return database.Storage("update role", err)
	}
	if n == 0 {
		return user.ErrUserNotFound
	}
	return nil
}
