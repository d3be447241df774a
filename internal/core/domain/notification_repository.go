package domain

import "context"

// NotificationRepository is the abstraction for any kind of database intended
// to persist emitted Notifications.
type NotificationRepository interface {
	// InsertNotification persists a notification as part of the transition
	// that produced it.
	InsertNotification(ctx context.Context, notification *Notification) error
	// ListNotificationsForWallet returns the notifications of a wallet in
	// emission order.
	ListNotificationsForWallet(ctx context.Context, walletId string) ([]*Notification, error)
}
