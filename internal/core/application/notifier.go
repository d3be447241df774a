package application

import (
	"context"
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"github.com/copays/copayd/internal/core/domain"
	"github.com/copays/copayd/internal/core/ports"
)

// notifier publishes committed notifications to the message broker. Publishing
// happens strictly after the wallet lock is released and the state transition
// is durably committed. A failing broker is logged and never fails nor rolls
// back the triggering operation.
type notifier struct {
	pubsub ports.PubSub
	repo   domain.NotificationRepository
}

func newNotifier(pubsub ports.PubSub, repo domain.NotificationRepository) *notifier {
	return &notifier{pubsub, repo}
}

// store persists the notifications produced by a transition while the wallet
// lock is still held. Persistence failures are logged, the transition itself
// is already committed.
func (n *notifier) store(ctx context.Context, notifications []*domain.Notification) {
	for _, notification := range notifications {
		if err := n.repo.InsertNotification(ctx, notification); err != nil {
			log.WithError(err).Warnf(
				"failed to store %s notification for wallet %s",
				notification.Type, notification.WalletId,
			)
		}
	}
}

// publish delivers the notifications to the broker, one message per event,
// topic keyed by notification type.
func (n *notifier) publish(notifications []*domain.Notification) {
	for _, notification := range notifications {
		payload, err := json.Marshal(notification)
		if err != nil {
			log.WithError(err).Warn("failed to serialize notification")
			continue
		}
		if err := n.pubsub.Publish(notification.Type, string(payload)); err != nil {
			log.WithError(err).Warnf(
				"failed to publish %s notification for wallet %s",
				notification.Type, notification.WalletId,
			)
		}
	}
}
