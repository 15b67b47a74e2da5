package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
	"github.com/HammerMeetNail/widgetshare/internal/models"
	"github.com/HammerMeetNail/widgetshare/internal/state"
)

type WidgetService struct {
	docs  backend.Documents
	store state.Dispatcher
}

func NewWidgetService(docs backend.Documents, store state.Dispatcher) *WidgetService {
	return &WidgetService{docs: docs, store: store}
}

func (s *WidgetService) Create(ctx context.Context, uid string, typ models.WidgetType, config map[string]any) (models.Widget, error) {
	if uid == "" {
		return models.Widget{}, ErrNotSignedIn
	}
	if !typ.Valid() {
		return models.Widget{}, ErrInvalidWidgetType
	}
	if config == nil {
		config = map[string]any{}
	}

	return Run(ctx, s.store, state.OpCreateWidget, func(ctx context.Context) (models.Widget, error) {
		ts := now()
		w := models.Widget{
			ID:         uuid.NewString(),
			OwnerID:    uid,
			Type:       typ,
			Config:     config,
			SharedWith: []string{},
			IsActive:   true,
			CreatedAt:  ts,
			UpdatedAt:  ts,
		}
		if _, err := s.docs.Create(ctx, models.CollectionWidgets, w.ID, w); err != nil {
			return models.Widget{}, fmt.Errorf("creating widget: %w", err)
		}
		return w, nil
	}, func(w models.Widget) []state.Action {
		return actions(state.AddWidget{Widget: w})
	})
}

func (s *WidgetService) owned(ctx context.Context, uid, id string) (models.Widget, error) {
	w, err := backend.Get[models.Widget](ctx, s.docs, models.DocPath(models.CollectionWidgets, id))
	if err != nil {
		return models.Widget{}, err
	}
	if w.OwnerID != uid {
		return models.Widget{}, ErrNotOwner
	}
	return w, nil
}

// Update merges config and data into the stored widget.
func (s *WidgetService) Update(ctx context.Context, uid, id string, patch models.WidgetPatch) (models.Widget, error) {
	if uid == "" {
		return models.Widget{}, ErrNotSignedIn
	}
	return Run(ctx, s.store, state.OpUpdateWidget, func(ctx context.Context) (models.Widget, error) {
		w, err := s.owned(ctx, uid, id)
		if err != nil {
			return models.Widget{}, err
		}
		patch.SharedWith = nil
		merged := patch.Apply(w)
		merged.UpdatedAt = now()

		fields := []backend.Field{{Path: "updatedAt", Value: merged.UpdatedAt}}
		if patch.Config != nil {
			fields = append(fields, backend.Field{Path: "config", Value: merged.Config})
		}
		if patch.Data != nil {
			fields = append(fields, backend.Field{Path: "data", Value: merged.Data})
		}
		if patch.IsActive != nil {
			fields = append(fields, backend.Field{Path: "isActive", Value: merged.IsActive})
		}
		if err := s.docs.Update(ctx, models.DocPath(models.CollectionWidgets, id), fields); err != nil {
			return models.Widget{}, fmt.Errorf("updating widget: %w", err)
		}
		return merged, nil
	}, func(w models.Widget) []state.Action {
		return actions(state.UpdateWidget{ID: w.ID, Patch: patchedFields(patch, w)})
	})
}

// patchedFields carries only what the caller changed, so local-only state
// such as a toggled active flag survives the update.
func patchedFields(patch models.WidgetPatch, merged models.Widget) models.WidgetPatch {
	var out models.WidgetPatch
	if patch.Config != nil {
		out.Config = merged.Config
	}
	if patch.Data != nil {
		out.Data = merged.Data
	}
	if patch.IsActive != nil {
		active := merged.IsActive
		out.IsActive = &active
	}
	return out
}

// Share adds recipients to sharedWith. Existing recipients and the owner are
// skipped, so only new ids reach the share notification.
func (s *WidgetService) Share(ctx context.Context, uid, id string, recipients []string) (models.Widget, error) {
	if uid == "" {
		return models.Widget{}, ErrNotSignedIn
	}
	return Run(ctx, s.store, state.OpShareWidget, func(ctx context.Context) (models.Widget, error) {
		w, err := s.owned(ctx, uid, id)
		if err != nil {
			return models.Widget{}, err
		}
		w.SharedWith = models.AddUnique(w.SharedWith, withoutID(recipients, uid)...)
		w.UpdatedAt = now()
		err = s.docs.Update(ctx, models.DocPath(models.CollectionWidgets, id), []backend.Field{
			{Path: "sharedWith", Value: w.SharedWith},
			{Path: "updatedAt", Value: w.UpdatedAt},
		})
		if err != nil {
			return models.Widget{}, fmt.Errorf("sharing widget: %w", err)
		}
		return w, nil
	}, func(w models.Widget) []state.Action {
		return actions(state.UpdateWidget{ID: w.ID, Patch: models.WidgetPatch{SharedWith: w.SharedWith}})
	})
}

func (s *WidgetService) Delete(ctx context.Context, uid, id string) error {
	if uid == "" {
		return ErrNotSignedIn
	}
	_, err := Run(ctx, s.store, state.OpDeleteWidget, func(ctx context.Context) (struct{}, error) {
		if _, err := s.owned(ctx, uid, id); err != nil {
			return struct{}{}, err
		}
		if err := s.docs.Delete(ctx, models.DocPath(models.CollectionWidgets, id)); err != nil {
			return struct{}{}, fmt.Errorf("deleting widget: %w", err)
		}
		return struct{}{}, nil
	}, func(struct{}) []state.Action {
		return actions(state.DeleteWidget{ID: id})
	})
	return err
}

type WidgetLists struct {
	Owned  []models.Widget
	Shared []models.Widget
}

// Load fetches the caller's widgets and the ones shared with them.
func (s *WidgetService) Load(ctx context.Context, uid string) (WidgetLists, error) {
	if uid == "" {
		return WidgetLists{}, ErrNotSignedIn
	}
	return Run(ctx, s.store, state.OpLoadWidgets, func(ctx context.Context) (WidgetLists, error) {
		base := backend.Query{Collection: models.CollectionWidgets, OrderBy: "createdAt", Desc: true}
		owned, err := backend.QueryAll[models.Widget](ctx, s.docs, base.Where("ownerId", backend.OpEqual, uid))
		if err != nil {
			return WidgetLists{}, fmt.Errorf("loading widgets: %w", err)
		}
		shared, err := backend.QueryAll[models.Widget](ctx, s.docs, base.Where("sharedWith", backend.OpArrayContains, uid))
		if err != nil {
			return WidgetLists{}, fmt.Errorf("loading shared widgets: %w", err)
		}
		return WidgetLists{Owned: owned, Shared: shared}, nil
	}, func(l WidgetLists) []state.Action {
		return actions(state.SetWidgets{Widgets: l.Owned}, state.SetSharedWidgets{Widgets: l.Shared})
	})
}

// ToggleActive flips a widget's active flag locally. It is a display choice
// and is not persisted.
func (s *WidgetService) ToggleActive(id string) {
	s.store.Dispatch(state.ToggleWidgetActive{ID: id})
}
