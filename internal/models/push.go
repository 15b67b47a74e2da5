package models

type PushType string

const (
	PushWidgetShare    PushType = "widget_share"
	PushFriendRequest  PushType = "friend_request"
	PushFriendAccepted PushType = "friend_accepted"
	PushChatMessage    PushType = "chat_message"
)

// PushMessage is built per trigger invocation and never persisted. Data is a
// flat string map whose "type" key carries the PushType.
type PushMessage struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

func (m PushMessage) Type() PushType {
	return PushType(m.Data["type"])
}
