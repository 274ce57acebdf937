package services

import (
	"context"
	"errors"
	"path"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/state"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	MsgProfileCreated   = "Your Profile Created Successfully"
	MsgAccountCreated   = "Congratulation! You have created your account Successfully."
	MsgSignedIn         = "Congratulations!! You Signed In Successfully."
	MsgProfileUpdated   = "Profile updated successfully"
	MsgProfileNotFound  = "User details not found"
	profileImagesPrefix = "profile_images"
)

// ProfileService handles registration, sign-in and the user's profile document.
type ProfileService struct {
	auth    Authenticator
	store   repositories.DocumentStore
	objects repositories.ObjectStorage
	exec    state.Executor
}

// NewProfileService creates a new ProfileService.
func NewProfileService(auth Authenticator, store repositories.DocumentStore, objects repositories.ObjectStorage, exec state.Executor) *ProfileService {
	return &ProfileService{
		auth:    auth,
		store:   store,
		objects: objects,
		exec:    exec,
	}
}

// Register creates the account and then writes its profile document. The
// form is validated before any remote call.
func (s *ProfileService) Register(form models.SignUp) state.Stream[string] {
	return state.FromCall(s.exec, func(ctx context.Context) (string, error) {
		if err := models.Validate(form); err != nil {
			return "", err
		}
		userID, err := s.auth.CreateAccount(ctx, form.Profile.Email, form.Secret)
		if err != nil {
			return "", err
		}
		zap.S().Debugw(MsgProfileCreated, "namespace", "profile", "user_id", userID)

		doc, err := repositories.EncodeDocument(form.Profile)
		if err != nil {
			return "", err
		}
		if err := s.store.Set(ctx, repositories.CollectionUsers, userID, doc); err != nil {
			return "", pkgerrors.Wrapf(err, "failed to store profile for %s", userID)
		}
		return MsgAccountCreated, nil
	})
}

// SignIn checks the credentials against the auth gateway.
func (s *ProfileService) SignIn(creds models.Credentials) state.Stream[string] {
	return state.FromCall(s.exec, func(ctx context.Context) (string, error) {
		if _, err := s.authenticate(ctx, creds); err != nil {
			return "", err
		}
		return MsgSignedIn, nil
	})
}

// Authenticate is SignIn for callers that need the issued session itself.
func (s *ProfileService) Authenticate(creds models.Credentials) state.Stream[*models.Session] {
	return state.FromCall(s.exec, func(ctx context.Context) (*models.Session, error) {
		return s.authenticate(ctx, creds)
	})
}

func (s *ProfileService) authenticate(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	if err := models.Validate(creds); err != nil {
		return nil, err
	}
	return s.auth.SignIn(ctx, creds.Email, creds.Secret)
}

// UserDetails follows the profile document of userID live. A snapshot
// without the document is reported as an error.
func (s *ProfileService) UserDetails(userID string) state.Stream[models.UserProfile] {
	return state.FromSubscription(func(ctx context.Context, push state.Push[models.UserProfile]) (func(), error) {
		q := repositories.Where(repositories.FieldID, userID)
		unsubscribe, err := s.store.Subscribe(ctx, repositories.CollectionUsers, q, func(records []repositories.Record, err error) {
			var profile models.UserProfile
			switch {
			case err != nil:
				push(profile, err)
			case len(records) == 0:
				push(profile, state.Message(MsgProfileNotFound))
			default:
				push(profile, repositories.DecodeRecord(records[0], &profile))
			}
		})
		if err != nil {
			return nil, err
		}
		return unsubscribe, nil
	})
}

// UpdateProfile replaces the profile document of userID.
func (s *ProfileService) UpdateProfile(userID string, profile models.UserProfile) state.Stream[string] {
	return state.FromCall(s.exec, func(ctx context.Context) (string, error) {
		if err := models.Validate(profile); err != nil {
			return "", err
		}
		doc, err := repositories.EncodeDocument(profile)
		if err != nil {
			return "", err
		}
		if err := s.store.Set(ctx, repositories.CollectionUsers, userID, doc); err != nil {
			return "", pkgerrors.Wrapf(err, "failed to update profile for %s", userID)
		}
		return MsgProfileUpdated, nil
	})
}

// UploadProfileImage stores the image and points the profile at it. The
// stream yields the public URL of the image.
func (s *ProfileService) UploadProfileImage(userID, fileName string, data []byte) state.Stream[string] {
	return state.FromCall(s.exec, func(ctx context.Context) (string, error) {
		if len(data) == 0 {
			return "", state.Message("Image is empty")
		}
		rec, err := s.store.Get(ctx, repositories.CollectionUsers, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return "", state.Message(MsgProfileNotFound)
			}
			return "", err
		}

		objectPath := path.Join(profileImagesPrefix, userID, uuid.New().String()+path.Ext(fileName))
		url, err := s.objects.Upload(ctx, objectPath, data)
		if err != nil {
			return "", pkgerrors.Wrap(err, "failed to upload profile image")
		}

		rec.Data["profileImage"] = url
		if err := s.store.Set(ctx, repositories.CollectionUsers, userID, rec.Data); err != nil {
			return "", pkgerrors.Wrapf(err, "failed to update profile image for %s", userID)
		}
		return url, nil
	})
}
