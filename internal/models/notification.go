package models

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// DefaultNotificationDuration is used when a notification leaves Duration unset.
const DefaultNotificationDuration = 3000

// NotificationAction is a button rendered on a notification.
type NotificationAction struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Notification is a transient UI message. Duration is the resolved
// auto-dismiss delay in milliseconds; zero means it stays until dismissed.
type Notification struct {
	ID       string               `json:"id"`
	Type     NotificationType     `json:"type"`
	Title    string               `json:"title"`
	Message  string               `json:"message"`
	Actions  []NotificationAction `json:"actions,omitempty"`
	Progress *float64             `json:"progress,omitempty"`
	Duration int                  `json:"duration"`
}
