package services

import (
	"context"
	"errors"
	"testing"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
	"github.com/HammerMeetNail/widgetshare/internal/backend/memory"
	"github.com/HammerMeetNail/widgetshare/internal/models"
)

func newWidgetService() (*WidgetService, *recorder, *memory.Documents) {
	rec := newRecorder()
	docs := memory.NewDocuments()
	return NewWidgetService(docs, rec), rec, docs
}

func TestWidgetService_CreateIsActive(t *testing.T) {
	svc, rec, _ := newWidgetService()

	w, err := svc.Create(context.Background(), "u1", models.WidgetTypeClock, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.IsActive || w.OwnerID != "u1" || w.Config == nil {
		t.Fatalf("unexpected widget %+v", w)
	}
	s := rec.State().Widgets
	if len(s.UserWidgets) != 1 || len(s.ActiveWidgets) != 1 {
		t.Fatalf("unexpected widget state %+v", s)
	}

	if _, err := svc.Create(context.Background(), "u1", models.WidgetType("toaster"), nil); !errors.Is(err, ErrInvalidWidgetType) {
		t.Fatalf("expected invalid type, got %v", err)
	}
}

func TestWidgetService_UpdateMergesConfig(t *testing.T) {
	svc, rec, docs := newWidgetService()
	w, err := svc.Create(context.Background(), "u1", models.WidgetTypeWeather, map[string]any{"city": "Oslo", "units": "metric"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	off := false
	_, err = svc.Update(context.Background(), "u1", w.ID, models.WidgetPatch{
		Config:     map[string]any{"units": "imperial"},
		IsActive:   &off,
		SharedWith: []string{"sneaky"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, err := backend.Get[models.Widget](context.Background(), docs, "widgets/"+w.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Config["city"] != "Oslo" || stored.Config["units"] != "imperial" {
		t.Fatalf("expected merged config, got %v", stored.Config)
	}
	if stored.IsActive || len(stored.SharedWith) != 0 {
		t.Fatalf("unexpected stored widget %+v", stored)
	}
	if s := rec.State().Widgets; len(s.ActiveWidgets) != 0 || len(s.UserWidgets) != 1 {
		t.Fatalf("expected widget inactive in state, got %+v", s)
	}

	if _, err := svc.Update(context.Background(), "u2", w.ID, models.WidgetPatch{}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
}

func TestWidgetService_ShareUnion(t *testing.T) {
	svc, _, docs := newWidgetService()
	w, _ := svc.Create(context.Background(), "u1", models.WidgetTypeNotes, nil)

	if _, err := svc.Share(context.Background(), "u1", w.ID, []string{"u2", "u3"}); err != nil {
		t.Fatalf("share: %v", err)
	}
	got, err := svc.Share(context.Background(), "u1", w.ID, []string{"u3", "u1", "u4"})
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if !equalTypes(got.SharedWith, "u2", "u3", "u4") {
		t.Fatalf("unexpected sharedWith %v", got.SharedWith)
	}
	stored, _ := backend.Get[models.Widget](context.Background(), docs, "widgets/"+w.ID)
	if !equalTypes(stored.SharedWith, "u2", "u3", "u4") {
		t.Fatalf("unexpected stored sharedWith %v", stored.SharedWith)
	}
}

func TestWidgetService_LoadAndDelete(t *testing.T) {
	svc, rec, _ := newWidgetService()
	own, _ := svc.Create(context.Background(), "u1", models.WidgetTypeClock, nil)
	theirs, _ := svc.Create(context.Background(), "u2", models.WidgetTypeStatus, nil)
	if _, err := svc.Share(context.Background(), "u2", theirs.ID, []string{"u1"}); err != nil {
		t.Fatalf("share: %v", err)
	}

	lists, err := svc.Load(context.Background(), "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(lists.Owned) != 1 || lists.Owned[0].ID != own.ID || len(lists.Shared) != 1 || lists.Shared[0].ID != theirs.ID {
		t.Fatalf("unexpected lists %+v", lists)
	}
	if s := rec.State().Widgets; len(s.SharedWidgets) != 1 {
		t.Fatalf("expected shared widgets in state, got %+v", s)
	}

	if err := svc.Delete(context.Background(), "u1", theirs.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
	if err := svc.Delete(context.Background(), "u1", own.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s := rec.State().Widgets; len(s.UserWidgets) != 0 || len(s.ActiveWidgets) != 0 {
		t.Fatalf("expected widget removed, got %+v", s)
	}
}

func TestWidgetService_ToggleActiveIsLocal(t *testing.T) {
	svc, rec, docs := newWidgetService()
	w, _ := svc.Create(context.Background(), "u1", models.WidgetTypeBattery, nil)

	svc.ToggleActive(w.ID)
	if len(rec.State().Widgets.ActiveWidgets) != 0 {
		t.Fatal("expected widget toggled off")
	}
	stored, _ := backend.Get[models.Widget](context.Background(), docs, "widgets/"+w.ID)
	if !stored.IsActive {
		t.Fatal("expected stored widget unchanged")
	}
}

func TestWidgetService_ConfigUpdateKeepsLocalToggle(t *testing.T) {
	svc, rec, _ := newWidgetService()
	w, err := svc.Create(context.Background(), "u1", models.WidgetTypeWeather, map[string]any{"city": "Oslo"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	svc.ToggleActive(w.ID)
	if _, err := svc.Update(context.Background(), "u1", w.ID, models.WidgetPatch{Config: map[string]any{"city": "Bergen"}}); err != nil {
		t.Fatalf("update: %v", err)
	}

	s := rec.State().Widgets
	if len(s.ActiveWidgets) != 0 {
		t.Fatalf("expected widget to stay toggled off, got %+v", s.ActiveWidgets)
	}
	if len(s.UserWidgets) != 1 || s.UserWidgets[0].IsActive || s.UserWidgets[0].Config["city"] != "Bergen" {
		t.Fatalf("unexpected widget state %+v", s.UserWidgets)
	}
}
