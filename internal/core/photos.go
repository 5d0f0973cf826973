package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"

	"tankcore/internal/blob"
)

// Photo metadata keys.
const (
	PhotoMetaCaption  = "caption"
	PhotoMetaFilename = "filename"
	PhotoMetaTankID   = "tank_id"
)

// PhotoUpload describes an image attached to a tank.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Caption     string
	Body        io.Reader
}

func photoPrefix(tankID string) string {
	return "tanks/" + tankID + "/photos/"
}

func (s *Service) photos() (blob.Store, error) {
	if s.opts.blobs == nil {
		return nil, ErrPhotosDisabled
	}
	return s.opts.blobs, nil
}

func photoContentType(filename, declared string) (string, error) {
	ct := strings.TrimSpace(declared)
	if ct == "" {
		ct = mime.TypeByExtension(strings.ToLower(path.Ext(filename)))
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	if !strings.HasPrefix(ct, "image/") {
		return "", invalid("photo content type %q is not an image", ct)
	}
	return ct, nil
}

// AttachTankPhoto stores an image under the tank's photo prefix.
func (s *Service) AttachTankPhoto(ctx context.Context, tankID string, upload PhotoUpload) (blob.Info, error) {
	var info blob.Info
	err := s.observe(ctx, "attach_tank_photo", func(ctx context.Context) (string, error) {
		store, err := s.photos()
		if err != nil {
			return tankID, err
		}
		if _, ok := s.store.GetTank(tankID); !ok {
			return tankID, ErrNotFound{Entity: EntityTank, ID: tankID}
		}
		if upload.Body == nil {
			return tankID, invalid("photo body is required")
		}
		ct, err := photoContentType(upload.Filename, upload.ContentType)
		if err != nil {
			return tankID, err
		}
		ext := strings.ToLower(path.Ext(upload.Filename))
		key := photoPrefix(tankID) + uuid.NewString() + ext
		meta := map[string]string{PhotoMetaTankID: tankID}
		if upload.Caption != "" {
			meta[PhotoMetaCaption] = upload.Caption
		}
		if upload.Filename != "" {
			meta[PhotoMetaFilename] = path.Base(upload.Filename)
		}
		info, err = store.Put(ctx, key, upload.Body, blob.PutOptions{ContentType: ct, Metadata: meta})
		if err != nil {
			return tankID, fmt.Errorf("store photo: %w", err)
		}
		return tankID, nil
	})
	return info, err
}

// ListTankPhotos returns the tank's photos ordered by key.
func (s *Service) ListTankPhotos(ctx context.Context, tankID string) ([]blob.Info, error) {
	store, err := s.photos()
	if err != nil {
		return nil, err
	}
	if _, ok := s.store.GetTank(tankID); !ok {
		return nil, ErrNotFound{Entity: EntityTank, ID: tankID}
	}
	return store.List(ctx, photoPrefix(tankID))
}

// TankPhotoURL returns a time-limited download URL for one of the tank's
// photos.
func (s *Service) TankPhotoURL(ctx context.Context, tankID, key string) (string, error) {
	store, err := s.photos()
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(key, photoPrefix(tankID)) {
		return "", ErrNotFound{Entity: EntityTank, ID: tankID + "/" + key}
	}
	if _, err := store.Head(ctx, key); err != nil {
		return "", err
	}
	return store.PresignURL(ctx, key, blob.SignedURLOptions{Expiry: s.opts.urlExpiry})
}

func (s *Service) deleteTankPhotos(ctx context.Context, tankID string) {
	store, err := s.photos()
	if err != nil {
		return
	}
	infos, err := store.List(ctx, photoPrefix(tankID))
	if err != nil {
		s.opts.logger.Warn("list tank photos failed", "tank_id", tankID, "error", err)
		return
	}
	for _, info := range infos {
		if _, err := store.Delete(ctx, info.Key); err != nil && !errors.Is(err, blob.ErrNotFound) {
			s.opts.logger.Warn("delete tank photo failed", "tank_id", tankID, "key", info.Key, "error", err)
		}
	}
}
