package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	firebase "firebase.google.com/go"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

func TestNewFirebaseApp_ReadError(t *testing.T) {
	orig := readCredentialsFile
	t.Cleanup(func() { readCredentialsFile = orig })
	readErr := errors.New("missing file")
	readCredentialsFile = func(name string) ([]byte, error) { return nil, readErr }

	_, err := NewFirebaseApp(context.Background(), "p", "/nope.json", "")
	if !errors.Is(err, readErr) {
		t.Fatalf("expected read error, got %v", err)
	}
	if !strings.Contains(err.Error(), "reading firebase credentials") {
		t.Fatalf("expected context, got %q", err.Error())
	}
}

func TestNewFirebaseApp_FallsBackToCredentialProject(t *testing.T) {
	origFind := findDefaultCreds
	origNew := newFirebaseApp
	t.Cleanup(func() {
		findDefaultCreds = origFind
		newFirebaseApp = origNew
	})

	findDefaultCreds = func(ctx context.Context, scopes ...string) (*google.Credentials, error) {
		if len(scopes) != len(FirebaseScopes) {
			t.Fatalf("expected firebase scopes, got %v", scopes)
		}
		return &google.Credentials{ProjectID: "from-creds"}, nil
	}
	var got *firebase.Config
	newFirebaseApp = func(ctx context.Context, config *firebase.Config, opts ...option.ClientOption) (*firebase.App, error) {
		got = config
		return &firebase.App{}, nil
	}

	app, err := NewFirebaseApp(context.Background(), "", "", "bucket")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ProjectID != "from-creds" || got.StorageBucket != "bucket" {
		t.Fatalf("unexpected config %+v", got)
	}
	if len(app.Options) != 1 {
		t.Fatalf("expected credential option, got %d", len(app.Options))
	}
}
