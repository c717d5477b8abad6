package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hireboard/apiserver/internal/mq"
	"github.com/hireboard/apiserver/types"
	"golang.org/x/sync/errgroup"
)

// Channels consumed by the notifier.
var Channels = []string{
	types.EventApplicationSubmitted,
	types.EventApplicationStatusChanged,
}

// Subscriber is the subset of the MQ API the notifier needs.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler mq.Handler) error
}

// Sink receives decoded application events.
type Sink interface {
	Notify(ctx context.Context, event types.ApplicationEvent) error
}

// LogSink writes each event as a structured log line.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Notify(ctx context.Context, event types.ApplicationEvent) error {
	attrs := []any{
		"type", event.Type,
		"application_id", event.ApplicationID,
		"job_id", event.JobID,
		"applicant_id", event.ApplicantID,
		"company_id", event.CompanyID,
		"status", event.Status,
	}
	if event.PreviousStatus != "" {
		attrs = append(attrs, "previous_status", event.PreviousStatus)
	}
	s.Logger.InfoContext(ctx, "application event", attrs...)
	return nil
}

// Notifier consumes application events and forwards them to a Sink.
type Notifier struct {
	sub    Subscriber
	sink   Sink
	logger *slog.Logger
}

func NewNotifier(sub Subscriber, sink Sink, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{sub: sub, sink: sink, logger: logger}
}

// Run subscribes to every channel and blocks until ctx is cancelled or a
// subscription fails.
func (n *Notifier) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, channel := range Channels {
		g.Go(func() error {
			n.logger.InfoContext(ctx, "subscribing", "channel", channel)
			if err := n.sub.Subscribe(ctx, channel, n.Handle); err != nil && ctx.Err() == nil {
				return fmt.Errorf("subscribe %s: %w", channel, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Handle decodes one message. Malformed payloads are acknowledged and
// dropped so they are not redelivered forever.
func (n *Notifier) Handle(ctx context.Context, msg mq.Message) error {
	var event types.ApplicationEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		n.logger.WarnContext(ctx, "dropping malformed event", "message_id", msg.ID, "error", err)
		return nil
	}
	if event.Type == "" {
		event.Type = msg.Attributes["type"]
	}
	return n.sink.Notify(ctx, event)
}
