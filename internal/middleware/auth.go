package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/HammerMeetNail/widgetshare/internal/logging"
)

const (
	// Firebase ID tokens are signed by the securetoken service account.
	firebaseIssuerPrefix = "https://securetoken.google.com/"
	firebaseJWKSURL      = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
	// Push subscriptions and Cloud Tasks sign callers with Google accounts.
	googleIssuer = "https://accounts.google.com"
)

var ErrMissingToken = errors.New("missing bearer token")

type idTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// TokenVerifier checks OIDC ID tokens and yields their subject.
type TokenVerifier struct {
	verifier idTokenVerifier
	logger   *logging.Logger
}

// NewFirebaseVerifier accepts Firebase Auth ID tokens issued for projectID.
func NewFirebaseVerifier(ctx context.Context, projectID string, logger *logging.Logger) (*TokenVerifier, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("firebase project id is required")
	}
	keys := oidc.NewRemoteKeySet(ctx, firebaseJWKSURL)
	v := oidc.NewVerifier(firebaseIssuerPrefix+projectID, keys, &oidc.Config{ClientID: projectID})
	return newTokenVerifier(v, logger), nil
}

// NewGoogleVerifier accepts Google-signed tokens minted for audience.
func NewGoogleVerifier(ctx context.Context, audience string, logger *logging.Logger) (*TokenVerifier, error) {
	if strings.TrimSpace(audience) == "" {
		return nil, errors.New("audience is required")
	}
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("discovering google oidc provider: %w", err)
	}
	return newTokenVerifier(provider.Verifier(&oidc.Config{ClientID: audience}), logger), nil
}

func newTokenVerifier(v idTokenVerifier, logger *logging.Logger) *TokenVerifier {
	if logger == nil {
		logger = logging.Default
	}
	return &TokenVerifier{verifier: v, logger: logger}
}

// UID verifies raw and returns the token subject.
func (tv *TokenVerifier) UID(ctx context.Context, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrMissingToken
	}
	tok, err := tv.verifier.Verify(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("verifying id token: %w", err)
	}
	if tok.Subject == "" {
		return "", errors.New("id token has no subject")
	}
	return tok.Subject, nil
}

type subjectKey struct{}

// SubjectFromContext returns the subject stored by Require, or "".
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// Require rejects requests without a valid "Authorization: Bearer" token.
func (tv *TokenVerifier) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		sub, err := tv.UID(r.Context(), raw)
		if err != nil {
			tv.logger.Warn("Rejected unauthenticated request", map[string]interface{}{
				"path":  r.URL.Path,
				"error": err.Error(),
			})
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey{}, sub)))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// DevTokens treats the token itself as the uid. It exists for local runs
// against the memory backend and must not be used in production.
type DevTokens struct{}

func (DevTokens) UID(ctx context.Context, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(raw), nil
}
