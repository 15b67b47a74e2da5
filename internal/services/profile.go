package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
	"github.com/HammerMeetNail/widgetshare/internal/models"
	"github.com/HammerMeetNail/widgetshare/internal/state"
	"github.com/HammerMeetNail/widgetshare/internal/validate"
)

type ProfileService struct {
	docs    backend.Documents
	objects backend.Objects
	store   state.Dispatcher
}

func NewProfileService(docs backend.Documents, objects backend.Objects, store state.Dispatcher) *ProfileService {
	return &ProfileService{docs: docs, objects: objects, store: store}
}

func (s *ProfileService) get(ctx context.Context, uid string) (models.Profile, error) {
	return backend.Get[models.Profile](ctx, s.docs, models.DocPath(models.CollectionUsers, uid))
}

func (s *ProfileService) create(ctx context.Context, user models.User) (models.Profile, error) {
	ts := now()
	profile := models.Profile{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
		Preferences: models.DefaultPreferences(),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if _, err := s.docs.Create(ctx, models.CollectionUsers, user.UID, profile); err != nil {
		return models.Profile{}, fmt.Errorf("creating profile: %w", err)
	}
	return profile, nil
}

func setProfile(p models.Profile) []state.Action {
	return actions(state.SetProfile{Profile: p})
}

func (s *ProfileService) Load(ctx context.Context, uid string) (models.Profile, error) {
	if uid == "" {
		return models.Profile{}, ErrNotSignedIn
	}
	return Run(ctx, s.store, state.OpLoadProfile, func(ctx context.Context) (models.Profile, error) {
		return s.get(ctx, uid)
	}, setProfile)
}

func (s *ProfileService) UpdatePreferences(ctx context.Context, uid string, prefs models.Preferences) (models.Profile, error) {
	if uid == "" {
		return models.Profile{}, ErrNotSignedIn
	}
	return Run(ctx, s.store, state.OpUpdatePreferences, func(ctx context.Context) (models.Profile, error) {
		err := s.docs.Update(ctx, models.DocPath(models.CollectionUsers, uid), []backend.Field{
			{Path: "preferences", Value: prefs},
			{Path: "updatedAt", Value: now()},
		})
		if err != nil {
			return models.Profile{}, fmt.Errorf("updating preferences: %w", err)
		}
		return s.get(ctx, uid)
	}, setProfile)
}

// UploadProfilePhoto replaces profiles/{uid}/profile.jpg and points the
// profile at it.
func (s *ProfileService) UploadProfilePhoto(ctx context.Context, uid string, data []byte) (models.Profile, error) {
	if uid == "" {
		return models.Profile{}, ErrNotSignedIn
	}
	contentType, err := validate.ImageFile(data)
	if err != nil {
		return models.Profile{}, err
	}

	return Run(ctx, s.store, state.OpUploadProfilePhoto, func(ctx context.Context) (models.Profile, error) {
		path := models.ProfilePhotoPath(uid)
		if err := s.objects.Put(ctx, path, bytes.NewReader(data), contentType); err != nil {
			return models.Profile{}, fmt.Errorf("uploading profile photo: %w", err)
		}
		url, err := s.objects.URL(ctx, path)
		if err != nil {
			return models.Profile{}, fmt.Errorf("resolving profile photo url: %w", err)
		}
		err = s.docs.Update(ctx, models.DocPath(models.CollectionUsers, uid), []backend.Field{
			{Path: "photoURL", Value: url},
			{Path: "updatedAt", Value: now()},
		})
		if err != nil {
			return models.Profile{}, fmt.Errorf("saving profile photo: %w", err)
		}
		return s.get(ctx, uid)
	}, func(p models.Profile) []state.Action {
		return actions(state.SetUser{User: p.User()}, state.SetProfile{Profile: p})
	})
}

// RegisterDevice stores the push token for the signed-in device.
func (s *ProfileService) RegisterDevice(ctx context.Context, uid, token string) error {
	if uid == "" {
		return ErrNotSignedIn
	}
	_, err := Run(ctx, s.store, state.OpRegisterDevice, func(ctx context.Context) (struct{}, error) {
		err := s.docs.Update(ctx, models.DocPath(models.CollectionUsers, uid), []backend.Field{
			{Path: "fcmToken", Value: token},
			{Path: "updatedAt", Value: now()},
		})
		if err != nil {
			return struct{}{}, fmt.Errorf("registering device: %w", err)
		}
		return struct{}{}, nil
	}, nil)
	return err
}
