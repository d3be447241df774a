package dbbadger

import (
	"context"

	"github.com/timshannon/badgerhold/v4"

	"github.com/copays/copayd/internal/core/domain"
)

type notificationRepositoryImpl struct {
	store *badgerhold.Store
}

func NewNotificationRepositoryImpl(store *badgerhold.Store) domain.NotificationRepository {
	return notificationRepositoryImpl{store}
}

func (r notificationRepositoryImpl) InsertNotification(
	ctx context.Context, notification *domain.Notification,
) error {
	return r.store.Insert(notification.Id, *notification)
}

func (r notificationRepositoryImpl) ListNotificationsForWallet(
	ctx context.Context, walletId string,
) ([]*domain.Notification, error) {
	query := badgerhold.Where("WalletId").Eq(walletId).SortBy("CreatedAt")

	var list []domain.Notification
	if err := r.store.Find(&list, query); err != nil {
		return nil, err
	}

	notifications := make([]*domain.Notification, 0, len(list))
	for i := range list {
		notifications = append(notifications, &list[i])
	}
	return notifications, nil
}
