package domain

import "context"

// PreferencesRepository is the abstraction for any kind of database intended
// to persist per-copayer notification preferences.
type PreferencesRepository interface {
	// UpsertPreferences creates or overwrites the preferences of a copayer.
	UpsertPreferences(ctx context.Context, preferences *Preferences) error
	// GetPreferences returns the preferences of a copayer, or
	// ErrPreferencesNotFound.
	GetPreferences(ctx context.Context, walletId, copayerId string) (*Preferences, error)
	// ListPreferencesForWallet returns the preferences of all copayers of a wallet.
	ListPreferencesForWallet(ctx context.Context, walletId string) ([]*Preferences, error)
}

// PushSubscriptionRepository is the abstraction for any kind of database
// intended to persist device push subscriptions.
type PushSubscriptionRepository interface {
	// UpsertPushSubscription creates or refreshes a push subscription.
	UpsertPushSubscription(ctx context.Context, sub *PushSubscription) error
	// ListPushSubscriptionsForCopayer returns all the subscriptions of a copayer.
	ListPushSubscriptionsForCopayer(ctx context.Context, copayerId string) ([]*PushSubscription, error)
	// DeletePushSubscription removes a subscription by copayer and token.
	DeletePushSubscription(ctx context.Context, copayerId, token string) error
}

// TxConfirmationSubRepository is the abstraction for any kind of database
// intended to persist transaction confirmation interest records.
type TxConfirmationSubRepository interface {
	// UpsertTxConfirmationSub creates or reactivates a confirmation subscription.
	UpsertTxConfirmationSub(ctx context.Context, sub *TxConfirmationSub) error
	// ListActiveTxConfirmationSubs returns all the active subscriptions.
	ListActiveTxConfirmationSubs(ctx context.Context) ([]*TxConfirmationSub, error)
	// DeactivateTxConfirmationSub marks a subscription as served.
	DeactivateTxConfirmationSub(ctx context.Context, copayerId, txid string) error
}
