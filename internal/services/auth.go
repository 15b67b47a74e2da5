package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
	"github.com/HammerMeetNail/widgetshare/internal/models"
	"github.com/HammerMeetNail/widgetshare/internal/state"
	"github.com/HammerMeetNail/widgetshare/internal/validate"
)

// Credentials is the outcome of a password sign-in or sign-up.
type Credentials struct {
	User         models.User
	IDToken      string
	RefreshToken string
}

// Authenticator is the identity provider behind AuthService.
type Authenticator interface {
	SignUp(ctx context.Context, email, password, displayName string) (Credentials, error)
	SignIn(ctx context.Context, email, password string) (Credentials, error)
	SignOut(ctx context.Context) error
}

type relyingParty interface {
	SignupNewUser(ctx context.Context, req *identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest) (*identitytoolkit.SignupNewUserResponse, error)
	VerifyPassword(ctx context.Context, req *identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest) (*identitytoolkit.VerifyPasswordResponse, error)
}

type toolkitRelyingParty struct {
	rp *identitytoolkit.RelyingpartyService
}

func (t toolkitRelyingParty) SignupNewUser(ctx context.Context, req *identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest) (*identitytoolkit.SignupNewUserResponse, error) {
	return t.rp.SignupNewUser(req).Context(ctx).Do()
}

func (t toolkitRelyingParty) VerifyPassword(ctx context.Context, req *identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest) (*identitytoolkit.VerifyPasswordResponse, error) {
	return t.rp.VerifyPassword(req).Context(ctx).Do()
}

// IdentityToolkitAuth signs users in with Firebase email/password accounts.
type IdentityToolkitAuth struct {
	rp relyingParty
}

func NewIdentityToolkitAuth(ctx context.Context, apiKey string) (*IdentityToolkitAuth, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("identity toolkit: api key is required")
	}
	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating identity toolkit client: %w", err)
	}
	return &IdentityToolkitAuth{rp: toolkitRelyingParty{rp: svc.Relyingparty}}, nil
}

func (a *IdentityToolkitAuth) SignUp(ctx context.Context, email, password, displayName string) (Credentials, error) {
	resp, err := a.rp.SignupNewUser(ctx, &identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("signing up: %w", mapAuthError(err))
	}
	return Credentials{
		User: models.User{
			UID:         resp.LocalId,
			Email:       resp.Email,
			DisplayName: firstNonEmpty(resp.DisplayName, displayName),
		},
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

func (a *IdentityToolkitAuth) SignIn(ctx context.Context, email, password string) (Credentials, error) {
	resp, err := a.rp.VerifyPassword(ctx, &identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("signing in: %w", mapAuthError(err))
	}
	return Credentials{
		User: models.User{
			UID:         resp.LocalId,
			Email:       resp.Email,
			DisplayName: resp.DisplayName,
			PhotoURL:    resp.PhotoUrl,
		},
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

// SignOut has nothing to revoke server-side; tokens simply stop being used.
func (a *IdentityToolkitAuth) SignOut(ctx context.Context) error {
	return nil
}

// mapAuthError translates Identity Toolkit error codes to sentinels.
func mapAuthError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	code := apiErr.Message
	for _, e := range apiErr.Errors {
		if e.Message != "" {
			code = e.Message
			break
		}
	}
	switch {
	case strings.HasPrefix(code, "EMAIL_EXISTS"):
		return errors.Join(ErrEmailInUse, err)
	case strings.HasPrefix(code, "EMAIL_NOT_FOUND"),
		strings.HasPrefix(code, "INVALID_PASSWORD"),
		strings.HasPrefix(code, "INVALID_LOGIN_CREDENTIALS"):
		return errors.Join(ErrInvalidCredentials, err)
	case strings.HasPrefix(code, "TOO_MANY_ATTEMPTS_TRY_LATER"):
		return errors.Join(ErrTooManyAttempts, err)
	case strings.HasPrefix(code, "USER_DISABLED"):
		return errors.Join(ErrUserDisabled, err)
	case strings.HasPrefix(code, "WEAK_PASSWORD"):
		return errors.Join(validate.ErrWeakPassword, err)
	case strings.HasPrefix(code, "INVALID_EMAIL"):
		return errors.Join(validate.ErrInvalidEmail, err)
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type AuthService struct {
	auth     Authenticator
	profiles *ProfileService
	store    state.Dispatcher
}

func NewAuthService(auth Authenticator, profiles *ProfileService, store state.Dispatcher) *AuthService {
	return &AuthService{auth: auth, profiles: profiles, store: store}
}

type signedIn struct {
	creds   Credentials
	profile models.Profile
}

func signedInActions(r signedIn) []state.Action {
	return actions(state.SetUser{User: r.creds.User}, state.SetProfile{Profile: r.profile})
}

// SignUp creates the account and its profile document.
func (s *AuthService) SignUp(ctx context.Context, email, password, displayName string) (Credentials, error) {
	email = strings.TrimSpace(email)
	displayName = strings.TrimSpace(displayName)
	if err := firstError(validate.Email(email), validate.Password(password), validate.DisplayName(displayName)); err != nil {
		return Credentials{}, err
	}

	r, err := Run(ctx, s.store, state.OpSignUp, func(ctx context.Context) (signedIn, error) {
		creds, err := s.auth.SignUp(ctx, email, password, displayName)
		if err != nil {
			return signedIn{}, err
		}
		profile, err := s.profiles.create(ctx, creds.User)
		if err != nil {
			return signedIn{}, err
		}
		return signedIn{creds: creds, profile: profile}, nil
	}, signedInActions)
	return r.creds, err
}

// SignIn authenticates and loads the profile, creating it for accounts that
// predate profile documents.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (Credentials, error) {
	email = strings.TrimSpace(email)
	if err := validate.Email(email); err != nil {
		return Credentials{}, err
	}
	if password == "" {
		return Credentials{}, ErrInvalidCredentials
	}

	r, err := Run(ctx, s.store, state.OpSignIn, func(ctx context.Context) (signedIn, error) {
		creds, err := s.auth.SignIn(ctx, email, password)
		if err != nil {
			return signedIn{}, err
		}
		profile, err := s.profiles.get(ctx, creds.User.UID)
		if errors.Is(err, backend.ErrNotFound) {
			profile, err = s.profiles.create(ctx, creds.User)
		}
		if err != nil {
			return signedIn{}, err
		}
		return signedIn{creds: creds, profile: profile}, nil
	}, signedInActions)
	return r.creds, err
}

func (s *AuthService) SignOut(ctx context.Context) error {
	_, err := Run(ctx, s.store, state.OpSignOut, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.auth.SignOut(ctx)
	}, func(struct{}) []state.Action {
		return actions(state.ClearUser{})
	})
	return err
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
