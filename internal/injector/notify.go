package injector

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/kafka"
)

// CorpusUpdate is published on the corpus-updates topic whenever the skill
// set changes. Origin identifies the publishing instance.
type CorpusUpdate struct {
	Origin      string    `json:"origin"`
	Reason      string    `json:"reason"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Skills      int       `json:"skills"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher is the subset of kafka.Producer used for notifications.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Reloader is satisfied by *Registry.
type Reloader interface {
	Reload(ctx context.Context) (ReloadResult, error)
}

// Notifier announces corpus changes to other instances.
type Notifier struct {
	publisher  Publisher
	instanceID string
}

// NewNotifier creates a Notifier. A nil publisher makes Notify a no-op.
func NewNotifier(publisher Publisher, instanceID string) *Notifier {
	return &Notifier{publisher: publisher, instanceID: instanceID}
}

// Notify publishes a CorpusUpdate keyed by the instance ID.
func (n *Notifier) Notify(ctx context.Context, reason string, result ReloadResult) error {
	if n == nil || n.publisher == nil {
		return nil
	}
	return n.publisher.Publish(ctx, kafka.Event{
		Key: n.instanceID,
		Value: CorpusUpdate{
			Origin:      n.instanceID,
			Reason:      reason,
			Fingerprint: result.Fingerprint,
			Skills:      result.Skills,
			Timestamp:   time.Now().UTC(),
		},
	})
}

// HandleCorpusUpdate returns a Kafka MessageHandler that reloads r for every
// update published by another instance. Undecodable messages are logged and
// skipped so they are committed rather than redelivered forever.
func HandleCorpusUpdate(r Reloader, instanceID string) kafka.MessageHandler {
	logger := slog.Default().With("component", "corpus-listener")
	return func(ctx context.Context, key []byte, value []byte) error {
		update, err := kafka.DecodeJSON[CorpusUpdate](value)
		if err != nil {
			logger.Error("failed to decode corpus update", "error", err, "key", string(key))
			return nil
		}
		if update.Origin == instanceID {
			return nil
		}
		result, err := r.Reload(ctx)
		if errors.Is(err, apperrors.ErrReloadInProgress) {
			logger.Debug("reload already running, update absorbed", "origin", update.Origin)
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("corpus reloaded from update",
			"origin", update.Origin,
			"reason", update.Reason,
			"fingerprint", result.Fingerprint,
		)
		return nil
	}
}
