package profile

import (
	"context"
	"errors"
	"io"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/matchfeed/internal/db"
	svcErr "github.com/oggyb/matchfeed/internal/errors"
	"github.com/oggyb/matchfeed/internal/repository"
	"github.com/oggyb/matchfeed/internal/storage"
)

// Photo is a photo of the signed-in user.
type Photo struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Order int    `json:"order"`
}

func newPhoto(p db.Photo) Photo { return Photo{ID: p.ID, URL: p.URL, Order: p.Order} }

// Upload is one file from a multipart request. Body is nil when the field was missing.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

func (s *Service) ListPhotos(ctx context.Context, userID string) ([]Photo, error) {
	photos, err := s.photoRepo.List(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	out := make([]Photo, 0, len(photos))
	for _, p := range photos {
		out = append(out, newPhoto(p))
	}
	return out, nil
}

// UploadPhoto stores the blob and appends it at the next order.
//
// Behavior:
//   - The 4-photo cap is checked before reading the body and again inside
//     the insert transaction.
//   - Only image/* content types are accepted.
//   - If the insert fails after the blob was written, the blob is removed.
func (s *Service) UploadPhoto(ctx context.Context, userID string, up Upload) (*Photo, error) {
	s.appCtx.Logger.Debug("UploadPhoto called", "user", userID, "filename", up.Filename)

	count, err := s.photoRepo.Count(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if count >= db.MaxPhotos {
		return nil, svcErr.BadInput("Max 4 photos allowed")
	}
	if up.Body == nil {
		return nil, svcErr.BadInput("File 'photo' is required")
	}
	if !strings.HasPrefix(up.ContentType, "image/") {
		return nil, svcErr.BadInput("Only image files are allowed")
	}

	url, err := s.appCtx.Storage.Save(ctx, storage.ObjectName(up.Filename), up.ContentType, up.Body)
	if err != nil {
		s.appCtx.Logger.Error("Photo store failed", "user", userID, "err", err)
		return nil, svcErr.Internal(err)
	}

	photo, err := s.photoRepo.Append(ctx, userID, url)
	if err != nil {
		if rmErr := s.appCtx.Storage.Remove(ctx, url); rmErr != nil {
			s.appCtx.Logger.Warn("Orphaned photo blob", "url", url, "err", rmErr)
		}
		switch {
		case errors.Is(err, repository.ErrPhotoLimit):
			return nil, svcErr.BadInput("Max 4 photos allowed")
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, svcErr.AlreadyExists("Concurrent upload, retry")
		}
		s.appCtx.Logger.Error("Photo insert failed", "user", userID, "err", err)
		return nil, svcErr.Map(err)
	}

	out := newPhoto(*photo)
	return &out, nil
}

// DeletePhoto removes a photo, resequences the rest, then removes the blob.
// A blob that cannot be removed is logged, not returned.
func (s *Service) DeletePhoto(ctx context.Context, userID, photoID string) error {
	s.appCtx.Logger.Debug("DeletePhoto called", "user", userID, "photo", photoID)

	deleted, err := s.photoRepo.DeleteAndResequence(ctx, userID, photoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound("Photo not found")
	}
	if err != nil {
		s.appCtx.Logger.Error("Photo delete failed", "user", userID, "photo", photoID, "err", err)
		return svcErr.Map(err)
	}

	if err := s.appCtx.Storage.Remove(ctx, deleted.URL); err != nil {
		s.appCtx.Logger.Warn("Photo blob remove failed", "url", deleted.URL, "err", err)
	}
	return nil
}
