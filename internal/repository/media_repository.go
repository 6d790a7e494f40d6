package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lumenstage/api/internal/models"
)

var ErrMediaNotFound = errors.New("media not found")

const mediaColumns = `id, uploader_id, bucket, object_key, file_name, content_type, size_bytes, created_at`

type MediaRepository struct {
	pool *pgxpool.Pool
}

func NewMediaRepository(pool *pgxpool.Pool) *MediaRepository {
	return &MediaRepository{pool: pool}
}

func scanMedia(row pgx.Row) (models.Media, error) {
	var m models.Media
	err := row.Scan(
		&m.ID,
		&m.UploaderID,
		&m.Bucket,
		&m.ObjectKey,
		&m.FileName,
		&m.ContentType,
		&m.SizeBytes,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Media{}, ErrMediaNotFound
		}
		return models.Media{}, err
	}
	return m, nil
}

func (r *MediaRepository) Create(ctx context.Context, m models.Media) error {
	const query = `
		INSERT INTO media (id, uploader_id, bucket, object_key, file_name, content_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		m.ID, m.UploaderID, m.Bucket, m.ObjectKey, m.FileName, m.ContentType, m.SizeBytes,
	)
	return err
}

func (r *MediaRepository) GetByID(ctx context.Context, id string) (models.Media, error) {
	const query = `SELECT ` + mediaColumns + ` FROM media WHERE id = $1`
	return scanMedia(r.pool.QueryRow(ctx, query, id))
}

func (r *MediaRepository) List(ctx context.Context, limit, offset int) ([]models.Media, error) {
	const query = `
		SELECT ` + mediaColumns + `
		FROM media
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *MediaRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM media WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrMediaNotFound
	}
	return nil
}
