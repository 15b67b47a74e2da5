package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/HammerMeetNail/widgetshare/internal/logging"
)

type fakeVerifier struct {
	VerifyFunc func(ctx context.Context, raw string) (*oidc.IDToken, error)
}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (*oidc.IDToken, error) {
	return f.VerifyFunc(ctx, raw)
}

func newTestVerifier() *TokenVerifier {
	return newTokenVerifier(&fakeVerifier{VerifyFunc: func(ctx context.Context, raw string) (*oidc.IDToken, error) {
		if raw != "good" {
			return nil, errors.New("bad signature")
		}
		return &oidc.IDToken{Subject: "u1"}, nil
	}}, logging.New().SetOutput(&bytes.Buffer{}))
}

func TestTokenVerifier_UID(t *testing.T) {
	tv := newTestVerifier()
	if uid, err := tv.UID(context.Background(), "good"); err != nil || uid != "u1" {
		t.Fatalf("expected u1, got %q %v", uid, err)
	}
	if _, err := tv.UID(context.Background(), ""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token, got %v", err)
	}
	if _, err := tv.UID(context.Background(), "forged"); err == nil {
		t.Fatal("expected verification error")
	}
}

func TestTokenVerifier_Require(t *testing.T) {
	tv := newTestVerifier()
	var seen string
	handler := tv.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SubjectFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/triggers/widgets.updated", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || seen != "u1" {
		t.Fatalf("expected pass with subject, got %d %q", rec.Code, seen)
	}

	req = httptest.NewRequest(http.MethodPost, "/triggers/widgets.updated", nil)
	req.Header.Set("Authorization", "Basic good")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestDevTokens(t *testing.T) {
	if uid, err := (DevTokens{}).UID(context.Background(), " u9 "); err != nil || uid != "u9" {
		t.Fatalf("expected u9, got %q %v", uid, err)
	}
}
