package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lumenstage/api/internal/models"
)

var ErrCommentNotFound = errors.New("comment not found")

const commentColumns = `id, post_id, author_name, author_email, body, status, created_at, updated_at`

type CommentRepository struct {
	pool *pgxpool.Pool
}

func NewCommentRepository(pool *pgxpool.Pool) *CommentRepository {
	return &CommentRepository{pool: pool}
}

func scanComment(row pgx.Row) (models.Comment, error) {
	var c models.Comment
	err := row.Scan(
		&c.ID,
		&c.PostID,
		&c.AuthorName,
		&c.AuthorEmail,
		&c.Body,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Comment{}, ErrCommentNotFound
		}
		return models.Comment{}, err
	}
	return c, nil
}

func (r *CommentRepository) Create(ctx context.Context, c models.Comment) error {
	const query = `
		INSERT INTO comments (id, post_id, author_name, author_email, body, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query, c.ID, c.PostID, c.AuthorName, c.AuthorEmail, c.Body, c.Status)
	return err
}

// ListByPost returns comments on a post, restricted to one status when
// status is non-empty (the public site only ever asks for APPROVED).
func (r *CommentRepository) ListByPost(ctx context.Context, postID string, status models.CommentStatus) ([]models.Comment, error) {
	const query = `
		SELECT ` + commentColumns + `
		FROM comments
		WHERE post_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, postID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *CommentRepository) ListPending(ctx context.Context, limit, offset int) ([]models.Comment, error) {
	const query = `
		SELECT ` + commentColumns + `
		FROM comments
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, models.CommentStatusPending, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *CommentRepository) UpdateStatus(ctx context.Context, id string, status models.CommentStatus) error {
	const query = `UPDATE comments SET status = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCommentNotFound
	}
	return nil
}

func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM comments WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCommentNotFound
	}
	return nil
}
