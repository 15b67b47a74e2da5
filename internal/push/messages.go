package push

import (
	"fmt"

	"github.com/HammerMeetNail/widgetshare/internal/models"
)

// WidgetShared tells a recipient that owner shared w with them.
func WidgetShared(token, ownerName string, w models.Widget) models.PushMessage {
	return models.PushMessage{
		Token: token,
		Title: "New widget shared",
		Body:  fmt.Sprintf("%s shared a %s widget with you", ownerName, w.Type.Label()),
		Data: map[string]string{
			"type":     string(models.PushWidgetShare),
			"widgetId": w.ID,
			"ownerId":  w.OwnerID,
		},
	}
}

func FriendRequest(token, fromName string, f models.Friendship) models.PushMessage {
	return models.PushMessage{
		Token: token,
		Title: "New friend request",
		Body:  fmt.Sprintf("%s wants to be your friend", fromName),
		Data: map[string]string{
			"type":         string(models.PushFriendRequest),
			"friendshipId": f.ID,
			"fromUserId":   f.RequestedBy,
		},
	}
}

func FriendAccepted(token, accepterName, accepterID string, f models.Friendship) models.PushMessage {
	return models.PushMessage{
		Token: token,
		Title: "Friend request accepted",
		Body:  fmt.Sprintf("%s accepted your friend request", accepterName),
		Data: map[string]string{
			"type":         string(models.PushFriendAccepted),
			"friendshipId": f.ID,
			"friendId":     accepterID,
		},
	}
}

// ChatMessage carries an already summarized body.
func ChatMessage(token, senderName, body string, msg models.ChatMessage) models.PushMessage {
	return models.PushMessage{
		Token: token,
		Title: senderName,
		Body:  body,
		Data: map[string]string{
			"type":      string(models.PushChatMessage),
			"chatId":    msg.ChatID,
			"messageId": msg.ID,
			"senderId":  msg.SenderID,
		},
	}
}
