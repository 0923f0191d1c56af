// Package users persists User documents in PostgreSQL. Follow edges live in
// JSONB arrays on the user row and are changed with single-statement set
// operators, so every edge change is atomic per document.
package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/threads/internal/common"
	"github.com/dmitrijs2005/threads/internal/dbx"
	"github.com/dmitrijs2005/threads/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const userColumns = `id, name, username, email, password, profile_pic, bio, followers, following, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, name, username, email, password)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at
		 `

	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Username, user.Email, user.Password).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, wrapWriteError(err)
	}

	user.Followers = []string{}
	user.Following = []string{}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *PostgresRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR username = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// TakenByOther reports whether a user other than id already holds email or
// username.
func (r *PostgresRepository) TakenByOther(ctx context.Context, id, email, username string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE id <> $1 AND (email = $2 OR username = $3))`

	var taken bool
	if err := r.db.QueryRowContext(ctx, query, id, email, username).Scan(&taken); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return taken, nil
}

// Update overwrites the profile fields of user. Follow edges are not touched.
func (r *PostgresRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`UPDATE users
		 SET name = $2, username = $3, email = $4, password = $5, profile_pic = $6, bio = $7, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Username, user.Email, user.Password, user.ProfilePic, user.Bio).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, wrapWriteError(err)
	}
	return user, nil
}

func (r *PostgresRepository) AddFollowing(ctx context.Context, userID, targetID string) error {
	return r.addToSet(ctx, "following", userID, targetID)
}

func (r *PostgresRepository) RemoveFollowing(ctx context.Context, userID, targetID string) error {
	return r.removeFromSet(ctx, "following", userID, targetID)
}

func (r *PostgresRepository) AddFollower(ctx context.Context, userID, followerID string) error {
	return r.addToSet(ctx, "followers", userID, followerID)
}

func (r *PostgresRepository) RemoveFollower(ctx context.Context, userID, followerID string) error {
	return r.removeFromSet(ctx, "followers", userID, followerID)
}

// column is always one of the edge column names above, never user input.
func (r *PostgresRepository) addToSet(ctx context.Context, column, userID, member string) error {
	query := `UPDATE users SET ` + column + ` = ` + column + ` || jsonb_build_array($2::text), updated_at = now()
		 WHERE id = $1 AND NOT ` + column + ` @> jsonb_build_array($2::text)`

	if _, err := r.db.ExecContext(ctx, query, userID, member); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) removeFromSet(ctx context.Context, column, userID, member string) error {
	query := `UPDATE users SET ` + column + ` = ` + column + ` - $2::text, updated_at = now()
		 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID, member); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var followers, following []byte

	err := row.Scan(&user.ID, &user.Name, &user.Username, &user.Email, &user.Password,
		&user.ProfilePic, &user.Bio, &followers, &following, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if user.Followers, err = decodeIDs(followers); err != nil {
		return nil, err
	}
	if user.Following, err = decodeIDs(following); err != nil {
		return nil, err
	}
	return user, nil
}

func decodeIDs(raw []byte) ([]string, error) {
	ids := []string{}
	if len(raw) == 0 {
		return ids, nil
	}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode id set: %w", err)
	}
	return ids, nil
}

func wrapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return common.Errorf(common.ErrConflict, "User already exists")
	}
	return fmt.Errorf("db error: %w", err)
}
