package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lumenstage/api/internal/models"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrDuplicateSlug   = errors.New("duplicate slug")
)

const projectColumns = `id, slug, title, client, summary, body, cover_media, published, deleted_at, created_at, updated_at`

type ProjectRepository struct {
	pool *pgxpool.Pool
}

func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

func scanProject(row pgx.Row) (models.Project, error) {
	var p models.Project
	err := row.Scan(
		&p.ID,
		&p.Slug,
		&p.Title,
		&p.Client,
		&p.Summary,
		&p.Body,
		&p.CoverMedia,
		&p.Published,
		&p.DeletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Project{}, ErrProjectNotFound
		}
		return models.Project{}, err
	}
	return p, nil
}

func (r *ProjectRepository) Create(ctx context.Context, p models.Project) error {
	const query = `
		INSERT INTO projects (id, slug, title, client, summary, body, cover_media, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Slug, p.Title, p.Client, p.Summary, p.Body, p.CoverMedia, p.Published,
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

func (r *ProjectRepository) GetBySlug(ctx context.Context, slug string) (models.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects WHERE slug = $1 AND deleted_at IS NULL`
	return scanProject(r.pool.QueryRow(ctx, query, slug))
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (models.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND deleted_at IS NULL`
	return scanProject(r.pool.QueryRow(ctx, query, id))
}

// List returns projects, optionally only published ones for the public site.
func (r *ProjectRepository) List(ctx context.Context, publishedOnly bool, limit, offset int) ([]models.Project, error) {
	const query = `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE deleted_at IS NULL AND ($1 = FALSE OR published = TRUE)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, publishedOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) Update(ctx context.Context, p models.Project) error {
	const query = `
		UPDATE projects
		SET slug = $2, title = $3, client = $4, summary = $5, body = $6, cover_media = $7, published = $8, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query,
		p.ID, p.Slug, p.Title, p.Client, p.Summary, p.Body, p.CoverMedia, p.Published,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateSlug
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE projects SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}
