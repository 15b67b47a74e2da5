// Package triggers reacts to document and object mutations: it computes who
// should hear about a change and dispatches pushes or derived artifacts.
// Trigger failures are logged and never returned to the caller.
package triggers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
	"github.com/HammerMeetNail/widgetshare/internal/images"
	"github.com/HammerMeetNail/widgetshare/internal/logging"
	"github.com/HammerMeetNail/widgetshare/internal/mailer"
	"github.com/HammerMeetNail/widgetshare/internal/models"
	"github.com/HammerMeetNail/widgetshare/internal/presence"
)

// PushSender delivers one push message.
type PushSender interface {
	Send(ctx context.Context, msg models.PushMessage) error
}

type Options struct {
	ThumbnailMaxSize int
	FanoutParallel   int
}

type Triggers struct {
	docs     backend.Documents
	objects  backend.Objects
	push     PushSender
	presence presence.Tracker
	mailer   mailer.Mailer
	logger   *logging.Logger

	thumbMax int
	fanout   int
}

// New wires the trigger layer. tracker and mail may be nil: without a tracker
// every recipient counts as offline, without a mailer there is no email
// fallback.
func New(docs backend.Documents, objects backend.Objects, sender PushSender, tracker presence.Tracker, mail mailer.Mailer, logger *logging.Logger, opts Options) *Triggers {
	if logger == nil {
		logger = logging.Default
	}
	if opts.ThumbnailMaxSize <= 0 {
		opts.ThumbnailMaxSize = images.DefaultMaxSize
	}
	if opts.FanoutParallel <= 0 {
		opts.FanoutParallel = 8
	}
	return &Triggers{
		docs:     docs,
		objects:  objects,
		push:     sender,
		presence: tracker,
		mailer:   mail,
		logger:   logger,
		thumbMax: opts.ThumbnailMaxSize,
		fanout:   opts.FanoutParallel,
	}
}

func (t *Triggers) fail(trigger, id string, err error) {
	t.logger.Error("Trigger failed", map[string]interface{}{
		"trigger": trigger,
		"id":      id,
		"error":   err.Error(),
	})
}

// guard turns a panic inside a trigger into a logged failure.
func (t *Triggers) guard(trigger, id string) {
	if r := recover(); r != nil {
		t.fail(trigger, id, fmt.Errorf("panic: %v", r))
	}
}

func (t *Triggers) profile(ctx context.Context, uid string) (models.Profile, error) {
	return backend.Get[models.Profile](ctx, t.docs, models.DocPath(models.CollectionUsers, uid))
}

// senderName resolves a display name for push copy, falling back to the
// generic label when the profile cannot be read.
func (t *Triggers) senderName(ctx context.Context, trigger, uid string) string {
	p, err := t.profile(ctx, uid)
	if err != nil {
		t.logger.Warn("Sender profile lookup failed", map[string]interface{}{
			"trigger": trigger,
			"uid":     uid,
			"error":   err.Error(),
		})
		return models.Profile{}.Name()
	}
	return p.Name()
}

// fanOut runs build for every recipient with bounded parallelism and sends
// whatever it returns. Per-recipient failures are logged; the messages that
// were delivered are returned in token order.
func (t *Triggers) fanOut(ctx context.Context, trigger, id string, recipients []string, build func(ctx context.Context, uid string) (models.PushMessage, bool, error)) []models.PushMessage {
	var (
		mu   sync.Mutex
		sent []models.PushMessage
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.fanout)
	for _, uid := range recipients {
		g.Go(func() error {
			msg, ok, err := build(gctx, uid)
			if err != nil {
				t.fail(trigger, id, fmt.Errorf("recipient %s: %w", uid, err))
				return nil
			}
			if !ok {
				return nil
			}
			if err := t.push.Send(gctx, msg); err != nil {
				t.fail(trigger, id, fmt.Errorf("push to %s: %w", uid, err))
				return nil
			}
			mu.Lock()
			sent = append(sent, msg)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(sent, func(i, j int) bool { return sent[i].Token < sent[j].Token })
	return sent
}
