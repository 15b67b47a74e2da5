// Package push builds and delivers device notifications.
package push

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/messaging"
	"golang.org/x/time/rate"

	"github.com/HammerMeetNail/widgetshare/internal/logging"
	"github.com/HammerMeetNail/widgetshare/internal/models"
)

var (
	ErrNoToken      = errors.New("push: recipient has no device token")
	ErrTokenExpired = errors.New("push: device token no longer registered")
)

type Sender interface {
	Send(ctx context.Context, msg models.PushMessage) error
}

type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSender delivers through Firebase Cloud Messaging.
type FCMSender struct {
	client messagingClient
}

func NewFCMSender(client *messaging.Client) *FCMSender {
	return &FCMSender{client: client}
}

func (s *FCMSender) Send(ctx context.Context, msg models.PushMessage) error {
	_, err := s.client.Send(ctx, &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	})
	if err != nil {
		if messaging.IsRegistrationTokenNotRegistered(err) {
			return errors.Join(ErrTokenExpired, err)
		}
		return fmt.Errorf("sending fcm message: %w", err)
	}
	return nil
}

// ConsoleSender logs messages instead of delivering them.
type ConsoleSender struct {
	logger *logging.Logger
}

func NewConsoleSender(logger *logging.Logger) *ConsoleSender {
	if logger == nil {
		logger = logging.Default
	}
	return &ConsoleSender{logger: logger}
}

func (s *ConsoleSender) Send(ctx context.Context, msg models.PushMessage) error {
	s.logger.Info("Push (console)", map[string]interface{}{
		"type":  string(msg.Type()),
		"title": msg.Title,
		"body":  msg.Body,
	})
	return nil
}

// Dispatcher throttles outbound pushes so a large fan-out cannot exhaust the
// provider quota.
type Dispatcher struct {
	sender  Sender
	limiter *rate.Limiter
}

func NewDispatcher(sender Sender, perSecond float64, burst int) *Dispatcher {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Dispatcher{sender: sender, limiter: rate.NewLimiter(limit, burst)}
}

func (d *Dispatcher) Send(ctx context.Context, msg models.PushMessage) error {
	if msg.Token == "" {
		return ErrNoToken
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for push budget: %w", err)
	}
	return d.sender.Send(ctx, msg)
}
