package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lumenstage/api/internal/models"
)

var ErrPostNotFound = errors.New("post not found")

const postColumns = `id, slug, title, excerpt, body, author_id, published_at, deleted_at, created_at, updated_at`

type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

func scanPost(row pgx.Row) (models.Post, error) {
	var p models.Post
	err := row.Scan(
		&p.ID,
		&p.Slug,
		&p.Title,
		&p.Excerpt,
		&p.Body,
		&p.AuthorID,
		&p.PublishedAt,
		&p.DeletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Post{}, ErrPostNotFound
		}
		return models.Post{}, err
	}
	return p, nil
}

func (r *PostRepository) Create(ctx context.Context, p models.Post) error {
	const query = `
		INSERT INTO posts (id, slug, title, excerpt, body, author_id, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Slug, p.Title, p.Excerpt, p.Body, p.AuthorID, p.PublishedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateSlug
		}
		return err
	}
	return nil
}

func (r *PostRepository) GetBySlug(ctx context.Context, slug string) (models.Post, error) {
	const query = `SELECT ` + postColumns + ` FROM posts WHERE slug = $1 AND deleted_at IS NULL`
	return scanPost(r.pool.QueryRow(ctx, query, slug))
}

func (r *PostRepository) GetByID(ctx context.Context, id string) (models.Post, error) {
	const query = `SELECT ` + postColumns + ` FROM posts WHERE id = $1 AND deleted_at IS NULL`
	return scanPost(r.pool.QueryRow(ctx, query, id))
}

func (r *PostRepository) List(ctx context.Context, publishedOnly bool, limit, offset int) ([]models.Post, error) {
	const query = `
		SELECT ` + postColumns + `
		FROM posts
		WHERE deleted_at IS NULL AND ($1 = FALSE OR published_at IS NOT NULL)
		ORDER BY COALESCE(published_at, created_at) DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, publishedOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (r *PostRepository) Update(ctx context.Context, p models.Post) error {
	const query = `
		UPDATE posts
		SET slug = $2, title = $3, excerpt = $4, body = $5, published_at = $6, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query, p.ID, p.Slug, p.Title, p.Excerpt, p.Body, p.PublishedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateSlug
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *PostRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE posts SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}
