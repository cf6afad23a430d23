package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/storage"
	"gitea.jw6.us/james/teamtasks/internal/store"
)

var ErrNotAnImage = errors.New("profile photo must be an image")

// Profiles manages per-user settings and the profile photo.
type Profiles struct {
	store   *store.Store
	objects storage.ObjectStore
}

func NewProfiles(s *store.Store, objects storage.ObjectStore) *Profiles {
	return &Profiles{store: s, objects: objects}
}

// Settings returns the user's settings, creating the default row on first
// load.
func (p *Profiles) Settings(ctx context.Context, userID uuid.UUID) (*store.Settings, error) {
	s, err := p.store.Settings.Get(ctx, userID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return p.store.Settings.Insert(ctx, store.DefaultSettings(userID))
}

// UpdateSettings replaces every notification flag.
func (p *Profiles) UpdateSettings(ctx context.Context, in store.Settings) (*store.Settings, error) {
	if _, err := p.Settings(ctx, in.UserID); err != nil {
		return nil, err
	}
	return p.store.Settings.Update(ctx, in)
}

// SetPhoto uploads a new profile photo and deletes the previous object.
func (p *Profiles) SetPhoto(ctx context.Context, userID uuid.UUID, name, contentType string, body io.Reader) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotAnImage
	}
	current, err := p.Settings(ctx, userID)
	if err != nil {
		return "", err
	}

	key := storage.RandomKey("profiles/"+userID.String(), name)
	url, err := p.objects.Put(ctx, key, contentType, body)
	if err != nil {
		return "", fmt.Errorf("upload profile photo: %w", err)
	}
	if err := p.store.Settings.SetProfilePhoto(ctx, userID, url, key); err != nil {
		return "", err
	}
	if current.ProfilePhotoKey != nil && *current.ProfilePhotoKey != "" {
		if err := p.objects.Delete(ctx, *current.ProfilePhotoKey); err != nil {
			log.Printf("[WARN] delete old profile photo %s: %v", *current.ProfilePhotoKey, err)
		}
	}
	return url, nil
}
