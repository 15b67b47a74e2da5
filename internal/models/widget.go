package models

import "time"

type WidgetType string

const (
	WidgetTypeClock     WidgetType = "clock"
	WidgetTypeWeather   WidgetType = "weather"
	WidgetTypePhotos    WidgetType = "photos"
	WidgetTypeNotes     WidgetType = "notes"
	WidgetTypeCalendar  WidgetType = "calendar"
	WidgetTypeBattery   WidgetType = "battery"
	WidgetTypeReminders WidgetType = "reminders"
	WidgetTypeStatus    WidgetType = "status"
)

var widgetTypes = map[WidgetType]string{
	WidgetTypeClock:     "Clock",
	WidgetTypeWeather:   "Weather",
	WidgetTypePhotos:    "Photos",
	WidgetTypeNotes:     "Notes",
	WidgetTypeCalendar:  "Calendar",
	WidgetTypeBattery:   "Battery",
	WidgetTypeReminders: "Reminders",
	WidgetTypeStatus:    "Status",
}

func (t WidgetType) Valid() bool {
	_, ok := widgetTypes[t]
	return ok
}

// Label is the human name used in notification copy.
func (t WidgetType) Label() string {
	if label, ok := widgetTypes[t]; ok {
		return label
	}
	return "Widget"
}

type Widget struct {
	ID         string         `firestore:"id" json:"id"`
	OwnerID    string         `firestore:"ownerId" json:"ownerId"`
	Type       WidgetType     `firestore:"type" json:"type"`
	Config     map[string]any `firestore:"config" json:"config"`
	Data       map[string]any `firestore:"data,omitempty" json:"data,omitempty"`
	SharedWith []string       `firestore:"sharedWith" json:"sharedWith"`
	IsActive   bool           `firestore:"isActive" json:"isActive"`
	CreatedAt  time.Time      `firestore:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time      `firestore:"updatedAt" json:"updatedAt"`
}

// WidgetPatch carries the fields an update may change. Nil maps and pointers
// leave the stored value untouched.
type WidgetPatch struct {
	Config     map[string]any `json:"config,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	IsActive   *bool          `json:"isActive,omitempty"`
	SharedWith []string       `json:"sharedWith,omitempty"`
}

// Apply merges the patch into w and returns the result. Config and data keys
// are merged one level deep.
func (p WidgetPatch) Apply(w Widget) Widget {
	if p.Config != nil {
		w.Config = mergeMaps(w.Config, p.Config)
	}
	if p.Data != nil {
		w.Data = mergeMaps(w.Data, p.Data)
	}
	if p.IsActive != nil {
		w.IsActive = *p.IsActive
	}
	if p.SharedWith != nil {
		w.SharedWith = AddUnique(nil, p.SharedWith...)
	}
	return w
}

func mergeMaps(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
