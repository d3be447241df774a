package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// NotificationNewCopayer fires when a copayer joins a wallet.
	NotificationNewCopayer = "NewCopayer"
	// NotificationWalletComplete fires once when the last copayer joins. It is
	// addressed to the wallet creator only.
	NotificationWalletComplete = "WalletComplete"
	// NotificationNewTxProposal fires when a spend proposal is created.
	NotificationNewTxProposal = "NewTxProposal"
	// NotificationNewOutgoingTx fires when a proposal transaction is broadcast.
	NotificationNewOutgoingTx = "NewOutgoingTx"
	// NotificationNewIncomingTx fires when funds are received on a wallet
	// address. It is global to the wallet.
	NotificationNewIncomingTx = "NewIncomingTx"
	// NotificationTxProposalFinallyRejected fires once when a proposal can no
	// longer reach quorum.
	NotificationTxProposalFinallyRejected = "TxProposalFinallyRejected"
	// NotificationTxConfirmation fires when a watched transaction confirms. It
	// is addressed to the subscribing copayer only.
	NotificationTxConfirmation = "TxConfirmation"
)

var creatorOnlyNotifications = map[string]bool{
	NotificationWalletComplete: true,
	NotificationTxConfirmation: true,
}

// Notification is the event object produced by every committed state
// transition. It is persisted together with the transition and published to
// the broker after the wallet lock is released.
type Notification struct {
	Id                string
	Type              string
	WalletId          string
	CreatorId         string
	Data              map[string]interface{}
	IsGlobal          bool
	NotifyCreatorOnly bool
	CreatedAt         int64
}

// NewNotification returns a notification of the given type. The creator-only
// flag is derived from the type.
func NewNotification(
	ntype, walletId, creatorId string, data map[string]interface{},
) *Notification {
	return &Notification{
		Id:                uuid.New().String(),
		Type:              ntype,
		WalletId:          walletId,
		CreatorId:         creatorId,
		Data:              data,
		IsGlobal:          len(creatorId) <= 0,
		NotifyCreatorOnly: creatorOnlyNotifications[ntype],
		CreatedAt:         time.Now().Unix(),
	}
}
