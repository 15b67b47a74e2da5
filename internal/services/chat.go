package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
	"github.com/HammerMeetNail/widgetshare/internal/models"
	"github.com/HammerMeetNail/widgetshare/internal/state"
)

const MaxMessageRunes = 2000

type ChatService struct {
	docs  backend.Documents
	store state.Dispatcher
}

func NewChatService(docs backend.Documents, store state.Dispatcher) *ChatService {
	return &ChatService{docs: docs, store: store}
}

// Open returns the one-to-one chat between uid and other, creating it on
// first use.
func (s *ChatService) Open(ctx context.Context, uid, other string) (models.Chat, error) {
	if uid == "" {
		return models.Chat{}, ErrNotSignedIn
	}
	if other == "" || other == uid {
		return models.Chat{}, ErrNotParticipant
	}
	id := models.FriendshipID(uid, other)
	chat, err := backend.Get[models.Chat](ctx, s.docs, models.DocPath(models.CollectionChats, id))
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, backend.ErrNotFound) {
		return models.Chat{}, err
	}

	chat = models.Chat{ID: id, Participants: []string{uid, other}, CreatedAt: now()}
	if _, err := s.docs.Create(ctx, models.CollectionChats, id, chat); err != nil && !errors.Is(err, backend.ErrAlreadyExists) {
		return models.Chat{}, fmt.Errorf("opening chat: %w", err)
	}
	return chat, nil
}

type MessageInput struct {
	Type     models.MessageType
	Text     string
	MediaURL string
	WidgetID string
}

func (s *ChatService) SendMessage(ctx context.Context, uid, chatID string, in MessageInput) (models.ChatMessage, error) {
	if uid == "" {
		return models.ChatMessage{}, ErrNotSignedIn
	}
	if in.Type == "" {
		in.Type = models.MessageTypeText
	}
	in.Text = strings.TrimSpace(in.Text)
	switch in.Type {
	case models.MessageTypeText:
		if in.Text == "" || utf8.RuneCountInString(in.Text) > MaxMessageRunes {
			return models.ChatMessage{}, ErrEmptyMessage
		}
	case models.MessageTypeImage:
		if in.MediaURL == "" {
			return models.ChatMessage{}, ErrEmptyMessage
		}
	case models.MessageTypeWidgetShare:
		if in.WidgetID == "" {
			return models.ChatMessage{}, ErrEmptyMessage
		}
	default:
		return models.ChatMessage{}, ErrEmptyMessage
	}

	return Run(ctx, s.store, state.OpSendMessage, func(ctx context.Context) (models.ChatMessage, error) {
		chat, err := backend.Get[models.Chat](ctx, s.docs, models.DocPath(models.CollectionChats, chatID))
		if err != nil {
			return models.ChatMessage{}, err
		}
		if !slices.Contains(chat.Participants, uid) {
			return models.ChatMessage{}, ErrNotParticipant
		}
		msg := models.ChatMessage{
			ID:        uuid.NewString(),
			ChatID:    chatID,
			SenderID:  uid,
			Type:      in.Type,
			Text:      in.Text,
			MediaURL:  in.MediaURL,
			WidgetID:  in.WidgetID,
			CreatedAt: now(),
		}
		if _, err := s.docs.Create(ctx, models.MessagesCollection(chatID), msg.ID, msg); err != nil {
			return models.ChatMessage{}, fmt.Errorf("sending message: %w", err)
		}
		return msg, nil
	}, nil)
}
