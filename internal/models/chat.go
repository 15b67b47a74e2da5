package models

import "time"

type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypeImage       MessageType = "image"
	MessageTypeWidgetShare MessageType = "widget_share"
)

// Chat is the chats/{id} document.
type Chat struct {
	ID           string    `firestore:"id" json:"id"`
	Participants []string  `firestore:"participants" json:"participants"`
	CreatedAt    time.Time `firestore:"createdAt" json:"createdAt"`
}

// ChatMessage lives under chats/{chatId}/messages.
type ChatMessage struct {
	ID        string      `firestore:"id" json:"id"`
	ChatID    string      `firestore:"chatId" json:"chatId"`
	SenderID  string      `firestore:"senderId" json:"senderId"`
	Type      MessageType `firestore:"type" json:"type"`
	Text      string      `firestore:"text" json:"text"`
	MediaURL  string      `firestore:"mediaUrl,omitempty" json:"mediaUrl,omitempty"`
	WidgetID  string      `firestore:"widgetId,omitempty" json:"widgetId,omitempty"`
	CreatedAt time.Time   `firestore:"createdAt" json:"createdAt"`
}
