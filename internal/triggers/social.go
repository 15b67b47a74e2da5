package triggers

import (
	"context"
	"fmt"
	"slices"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
	"github.com/HammerMeetNail/widgetshare/internal/mailer"
	"github.com/HammerMeetNail/widgetshare/internal/models"
	"github.com/HammerMeetNail/widgetshare/internal/push"
)

const (
	PhotoSummary  = "📷 Photo"
	WidgetSummary = "🧩 Shared a widget"
)

// AddedRecipients returns the ids present in after but not in before, in
// after's order and without duplicates.
func AddedRecipients(before, after []string) []string {
	var added []string
	for _, id := range after {
		if id == "" || slices.Contains(before, id) || slices.Contains(added, id) {
			continue
		}
		added = append(added, id)
	}
	return added
}

// ShouldNotifyRequest reports whether a newly created friendship warrants a
// request notification.
func ShouldNotifyRequest(f models.Friendship) bool {
	return f.Status == models.FriendshipStatusPending && f.Counterparty(f.RequestedBy) != ""
}

// IsAcceptTransition is true only for pending -> accepted.
func IsAcceptTransition(before, after models.Friendship) bool {
	return before.Status == models.FriendshipStatusPending && after.Status == models.FriendshipStatusAccepted
}

// SummarizeMessage redacts non-text content for push bodies.
func SummarizeMessage(msg models.ChatMessage) string {
	switch msg.Type {
	case models.MessageTypeImage:
		return PhotoSummary
	case models.MessageTypeWidgetShare:
		return WidgetSummary
	default:
		return msg.Text
	}
}

// WidgetUpdated notifies only the users added to sharedWith.
func (t *Triggers) WidgetUpdated(ctx context.Context, before, after models.Widget) []models.PushMessage {
	const name = "widgets.updated"
	defer t.guard(name, after.ID)

	added := AddedRecipients(before.SharedWith, after.SharedWith)
	if len(added) == 0 {
		return nil
	}
	owner := t.senderName(ctx, name, after.OwnerID)

	return t.fanOut(ctx, name, after.ID, added, func(ctx context.Context, uid string) (models.PushMessage, bool, error) {
		p, err := t.profile(ctx, uid)
		if err != nil {
			return models.PushMessage{}, false, err
		}
		if p.FCMToken == "" || !p.Preferences.Notifications.WidgetShares {
			return models.PushMessage{}, false, nil
		}
		return push.WidgetShared(p.FCMToken, owner, after), true, nil
	})
}

// FriendshipCreated notifies the counterparty of a pending request. Recipients
// without a device get an email when they opted in.
func (t *Triggers) FriendshipCreated(ctx context.Context, f models.Friendship) []models.PushMessage {
	const name = "friends.created"
	defer t.guard(name, f.ID)

	if !ShouldNotifyRequest(f) {
		return nil
	}
	recipient := f.Counterparty(f.RequestedBy)

	p, err := t.profile(ctx, recipient)
	if err != nil {
		t.fail(name, f.ID, fmt.Errorf("recipient %s: %w", recipient, err))
		return nil
	}
	if !p.Preferences.Notifications.FriendRequests {
		return nil
	}
	from := t.senderName(ctx, name, f.RequestedBy)

	if p.FCMToken == "" {
		t.emailFriendRequest(ctx, f, p, from)
		return nil
	}

	msg := push.FriendRequest(p.FCMToken, from, f)
	if err := t.push.Send(ctx, msg); err != nil {
		t.fail(name, f.ID, fmt.Errorf("push to %s: %w", recipient, err))
		return nil
	}
	return []models.PushMessage{msg}
}

func (t *Triggers) emailFriendRequest(ctx context.Context, f models.Friendship, p models.Profile, from string) {
	if t.mailer == nil || !p.Preferences.Notifications.Email || p.Email == "" {
		return
	}
	subject, html, text := mailer.BuildFriendRequestEmail(from)
	err := t.mailer.Send(ctx, mailer.Email{To: p.Email, Subject: subject, HTML: html, Text: text})
	if err != nil {
		t.fail("friends.created", f.ID, fmt.Errorf("email to %s: %w", p.UID, err))
		return
	}
	t.logger.Info("Friend request emailed", map[string]interface{}{"friendshipId": f.ID, "uid": p.UID})
}

// FriendshipUpdated notifies the requester once their request is accepted.
func (t *Triggers) FriendshipUpdated(ctx context.Context, before, after models.Friendship) []models.PushMessage {
	const name = "friends.updated"
	defer t.guard(name, after.ID)

	if !IsAcceptTransition(before, after) {
		return nil
	}
	accepter := after.AcceptedBy
	if accepter == "" {
		accepter = after.Counterparty(after.RequestedBy)
	}

	p, err := t.profile(ctx, after.RequestedBy)
	if err != nil {
		t.fail(name, after.ID, fmt.Errorf("recipient %s: %w", after.RequestedBy, err))
		return nil
	}
	if p.FCMToken == "" || !p.Preferences.Notifications.FriendRequests {
		return nil
	}

	msg := push.FriendAccepted(p.FCMToken, t.senderName(ctx, name, accepter), accepter, after)
	if err := t.push.Send(ctx, msg); err != nil {
		t.fail(name, after.ID, fmt.Errorf("push to %s: %w", after.RequestedBy, err))
		return nil
	}
	return []models.PushMessage{msg}
}

// ChatMessageCreated notifies offline participants other than the sender.
func (t *Triggers) ChatMessageCreated(ctx context.Context, chatID string, msg models.ChatMessage) []models.PushMessage {
	const name = "chats.messages.created"
	defer t.guard(name, msg.ID)

	if msg.ChatID == "" {
		msg.ChatID = chatID
	}
	chat, err := backend.Get[models.Chat](ctx, t.docs, models.DocPath(models.CollectionChats, chatID))
	if err != nil {
		t.fail(name, msg.ID, fmt.Errorf("chat %s: %w", chatID, err))
		return nil
	}

	var recipients []string
	for _, uid := range chat.Participants {
		if uid != msg.SenderID && !slices.Contains(recipients, uid) {
			recipients = append(recipients, uid)
		}
	}
	if len(recipients) == 0 {
		return nil
	}

	sender := t.senderName(ctx, name, msg.SenderID)
	body := SummarizeMessage(msg)

	return t.fanOut(ctx, name, msg.ID, recipients, func(ctx context.Context, uid string) (models.PushMessage, bool, error) {
		p, err := t.profile(ctx, uid)
		if err != nil {
			return models.PushMessage{}, false, err
		}
		if p.FCMToken == "" || !p.Preferences.Notifications.ChatMessages {
			return models.PushMessage{}, false, nil
		}
		if t.online(ctx, uid) {
			return models.PushMessage{}, false, nil
		}
		return push.ChatMessage(p.FCMToken, sender, body, msg), true, nil
	})
}

// online treats presence lookup failures as offline so the push still goes out.
func (t *Triggers) online(ctx context.Context, uid string) bool {
	if t.presence == nil {
		return false
	}
	online, err := t.presence.IsOnline(ctx, uid)
	if err != nil {
		t.logger.Warn("Presence lookup failed", map[string]interface{}{"uid": uid, "error": err.Error()})
		return false
	}
	return online
}
