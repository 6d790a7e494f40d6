package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lumenstage/api/internal/ids"
	"lumenstage/api/internal/models"
	"lumenstage/api/internal/repository"
	"lumenstage/api/internal/storage"
)

var ErrEmptyUpload = errors.New("empty upload")

type MediaService struct {
	media *repository.MediaRepository
	store *storage.ObjectStore
	log   zerolog.Logger
}

func NewMediaService(media *repository.MediaRepository, store *storage.ObjectStore, log zerolog.Logger) *MediaService {
	return &MediaService{
		media: media,
		store: store,
		log:   log,
	}
}

type UploadResult struct {
	Media models.Media
	URL   string
}

// Upload writes the file to the object store and records its metadata. The
// content type is sniffed from the payload, not trusted from the client.
func (s *MediaService) Upload(ctx context.Context, uploader models.User, file multipart.File, header *multipart.FileHeader) (UploadResult, error) {
	if file == nil || header == nil {
		return UploadResult{}, errors.New("invalid file payload")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return UploadResult{}, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return UploadResult{}, ErrEmptyUpload
	}

	contentType := http.DetectContentType(data)

	mediaID := ids.New()
	objectKey := buildObjectKey(mediaID, header.Filename)

	if err := s.store.Put(ctx, objectKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return UploadResult{}, err
	}

	item := models.Media{
		ID:          mediaID,
		UploaderID:  uploader.ID,
		Bucket:      s.store.Bucket(),
		ObjectKey:   objectKey,
		FileName:    header.Filename,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.media.Create(ctx, item); err != nil {
		return UploadResult{}, fmt.Errorf("save metadata: %w", err)
	}

	return UploadResult{
		Media: item,
		URL:   s.store.PublicURL(objectKey),
	}, nil
}

// Delete removes the metadata row, then the object. A failed object removal
// is logged and left to the bucket's lifecycle rules.
func (s *MediaService) Delete(ctx context.Context, id string) error {
	item, err := s.media.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.media.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.store.Remove(ctx, item.ObjectKey); err != nil {
		s.log.Warn().Err(err).Str("media_id", id).Msg("remove object failed")
	}
	return nil
}

func (s *MediaService) PublicURL(item models.Media) string {
	return s.store.PublicURL(item.ObjectKey)
}

func buildObjectKey(mediaID string, fileName string) string {
	datePrefix := time.Now().UTC().Format("2006/01/02")
	ext := strings.ToLower(path.Ext(fileName))
	return path.Join(datePrefix, mediaID+ext)
}
