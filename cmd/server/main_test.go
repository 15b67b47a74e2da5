package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/HammerMeetNail/widgetshare/internal/backend/memory"
	"github.com/HammerMeetNail/widgetshare/internal/config"
	"github.com/HammerMeetNail/widgetshare/internal/handlers"
	"github.com/HammerMeetNail/widgetshare/internal/logging"
	"github.com/HammerMeetNail/widgetshare/internal/middleware"
	"github.com/HammerMeetNail/widgetshare/internal/push"
)

func quietLogger() *logging.Logger {
	return logging.New().SetOutput(&bytes.Buffer{})
}

func TestResolvePresenceRateLimit_Defaults(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Environment: "production"}}

	limit := resolvePresenceRateLimit(cfg, quietLogger(), func(key string) (string, bool) {
		return "", false
	})
	if limit != 30 {
		t.Fatalf("expected default limit 30, got %d", limit)
	}
}

func TestResolvePresenceRateLimit_DevelopmentDefault(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Environment: "development"}}

	limit := resolvePresenceRateLimit(cfg, quietLogger(), func(key string) (string, bool) {
		return "", false
	})
	if limit != 300 {
		t.Fatalf("expected dev limit 300, got %d", limit)
	}
}

func TestResolvePresenceRateLimit_FromEnv(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Environment: "production"}}

	limit := resolvePresenceRateLimit(cfg, quietLogger(), func(key string) (string, bool) {
		if key != "PRESENCE_RATE_LIMIT" {
			t.Fatalf("unexpected env lookup %q", key)
		}
		return "25", true
	})
	if limit != 25 {
		t.Fatalf("expected env limit 25, got %d", limit)
	}
}

func TestResolvePresenceRateLimit_InvalidEnv(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Environment: "production"}}

	for _, v := range []string{"nope", "0", "-4"} {
		limit := resolvePresenceRateLimit(cfg, quietLogger(), func(key string) (string, bool) {
			return v, true
		})
		if limit != 30 {
			t.Fatalf("value %q: expected fallback limit 30, got %d", v, limit)
		}
	}
}

func TestResolveLogLevel(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{LogLevel: "warn"}}
	if got := resolveLogLevel(cfg); got != logging.LevelWarn {
		t.Fatalf("expected warn, got %v", got)
	}

	cfg.Server.Debug = true
	if got := resolveLogLevel(cfg); got != logging.LevelDebug {
		t.Fatalf("expected debug override, got %v", got)
	}
}

func TestNewTokenResolver_DevelopmentFallsBackToDevTokens(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Environment: "development"}}

	resolver, err := newTokenResolver(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := resolver.(middleware.DevTokens); !ok {
		t.Fatalf("expected DevTokens, got %T", resolver)
	}
}

func TestNewTokenResolver_ProductionRequiresProject(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Environment: "production"}}

	if _, err := newTokenResolver(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatal("expected error without a project id")
	}
}

func TestOpenDocuments_Memory(t *testing.T) {
	cfg := &config.Config{Backend: config.BackendConfig{Documents: "memory"}}
	var cleanup closers

	docs, health, err := openDocuments(context.Background(), cfg, nil, quietLogger(), &cleanup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := docs.(*memory.Documents); !ok {
		t.Fatalf("expected memory documents, got %T", docs)
	}
	if err := health.(handlers.DocumentsChecker).Health(context.Background()); err != nil {
		t.Fatalf("expected healthy memory store, got %v", err)
	}
	if len(cleanup) != 0 {
		t.Fatalf("expected no cleanup for memory store, got %d", len(cleanup))
	}
}

func TestOpenObjects_Memory(t *testing.T) {
	cfg := &config.Config{
		Backend:     config.BackendConfig{Objects: "memory"},
		ObjectStore: config.ObjectStoreConfig{PublicBaseURL: "https://cdn.test"},
	}
	var cleanup closers

	objects, err := openObjects(context.Background(), cfg, nil, &cleanup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	url, err := objects.URL(context.Background(), "photos/u1/a.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://cdn.test/photos/u1/a.jpg" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestNewPushSender_Console(t *testing.T) {
	cfg := &config.Config{Push: config.PushConfig{Provider: "console"}}

	sender, err := newPushSender(context.Background(), cfg, nil, quietLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := sender.(*push.ConsoleSender); !ok {
		t.Fatalf("expected console sender, got %T", sender)
	}
}

func TestClosersRunInReverse(t *testing.T) {
	var order []int
	var c closers
	c.add(func() { order = append(order, 1) })
	c.add(func() { order = append(order, 2) })
	c.run()

	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("expected reverse order, got %v", order)
	}
}
