// Package posts persists Post documents in PostgreSQL. Likes and replies
// are JSONB arrays on the post row so every like toggle and reply append is
// a single atomic statement against one document.
package posts

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
)

const postColumns = `id, posted_by, text, img, likes, replies, created_at, updated_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	query :=
		`INSERT INTO posts (id, posted_by, text, img)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at
		 `

	if post.ID == "" {
		post.ID = uuid.NewString()
	}

	err := r.db.QueryRowContext(ctx, query, post.ID, post.PostedBy, post.Text, post.Img).
		Scan(&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	post.Likes = []string{}
	post.Replies = []models.Reply{}
	return post, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrNotFound
	}

	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return post, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrNotFound
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) ToggleLike(ctx context.Context, postID, userID string) (models.LikeState, error) {
	if _, err := uuid.Parse(postID); err != nil {
		return models.Unliked, common.ErrNotFound
	}

	query :=
		`UPDATE posts
		 SET likes = CASE WHEN likes @> jsonb_build_array($2::text)
		                  THEN likes - $2::text
		                  ELSE likes || jsonb_build_array($2::text)
		             END,
		     updated_at = now()
		 WHERE id = $1
		 RETURNING likes @> jsonb_build_array($2::text)
		 `

	var liked bool
	if err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&liked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Unliked, common.ErrNotFound
		}
		return models.Unliked, fmt.Errorf("db error: %w", err)
	}
	return models.LikeState(liked), nil
}

func (r *PostgresRepository) AppendReply(ctx context.Context, postID string, reply *models.Reply) error {
	if _, err := uuid.Parse(postID); err != nil {
		return common.ErrNotFound
	}
	if reply.ID == "" {
		reply.ID = uuid.NewString()
	}

	doc, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}

	query :=
		`UPDATE posts
		 SET replies = replies || jsonb_build_array($2::jsonb), updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, postID, string(doc))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) ListByAuthors(ctx context.Context, authorIDs []string) ([]*models.Post, error) {
	if len(authorIDs) == 0 {
		return []*models.Post{}, nil
	}

	ids, err := json.Marshal(authorIDs)
	if err != nil {
		return nil, fmt.Errorf("encode author ids: %w", err)
	}

	query := `SELECT ` + postColumns + ` FROM posts
		 WHERE posted_by::text IN (SELECT jsonb_array_elements_text($1::jsonb))
		 ORDER BY created_at DESC`

	return r.list(ctx, query, string(ids))
}

func (r *PostgresRepository) ListByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		 WHERE posted_by = $1
		 ORDER BY created_at DESC`

	return r.list(ctx, query, authorID)
}

func (r *PostgresRepository) UpdateReplyAuthor(ctx context.Context, userID, username, profilePic string) (int64, error) {
	query :=
		`UPDATE posts p
		 SET replies = (
		     SELECT jsonb_agg(
		              CASE WHEN e.reply->>'userId' = $1
		                   THEN e.reply || jsonb_build_object('username', $2::text, 'userProfilePic', $3::text)
		                   ELSE e.reply
		              END
		              ORDER BY e.ord)
		       FROM jsonb_array_elements(p.replies) WITH ORDINALITY AS e(reply, ord)
		 )
		 WHERE p.replies @> jsonb_build_array(jsonb_build_object('userId', $1::text))
		 `

	res, err := r.db.ExecContext(ctx, query, userID, username, profilePic)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select posts: %w", err)
	}
	defer rows.Close()

	result := []*models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	post := &models.Post{}
	var likes, replies []byte

	err := row.Scan(&post.ID, &post.PostedBy, &post.Text, &post.Img, &likes, &replies, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	post.Likes = []string{}
	if len(likes) > 0 {
		if err := json.Unmarshal(likes, &post.Likes); err != nil {
			return nil, fmt.Errorf("decode likes: %w", err)
		}
	}
	post.Replies = []models.Reply{}
	if len(replies) > 0 {
		if err := json.Unmarshal(replies, &post.Replies); err != nil {
			return nil, fmt.Errorf("decode replies: %w", err)
		}
	}
	return post, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
