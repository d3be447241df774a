package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// TxProposalStatusPending is the status of a proposal collecting actions.
	TxProposalStatusPending = "pending"
	// TxProposalStatusAccepted is the status of a proposal that reached the
	// signature quorum but has not been broadcast yet.
	TxProposalStatusAccepted = "accepted"
	// TxProposalStatusBroadcast is the terminal status of a proposal whose
	// transaction has been published on the network.
	TxProposalStatusBroadcast = "broadcast"
	// TxProposalStatusRejected is the terminal status of a proposal that can
	// mathematically no longer reach the signature quorum.
	TxProposalStatusRejected = "rejected"

	// ActionTypeAccept marks a copayer action carrying signatures.
	ActionTypeAccept = "accept"
	// ActionTypeReject marks a copayer action refusing the proposal.
	ActionTypeReject = "reject"
)

// Output is a single destination of a transaction proposal.
type Output struct {
	Address string
	Amount  uint64
}

// TxProposalAction records the vote of a copayer on a proposal. A proposal
// holds at most one action per copayer.
type TxProposalAction struct {
	CopayerId  string
	Type       string
	Signatures []string
	Comment    string
	CreatedAt  int64
}

// TxProposalInput is a coin spent by the proposal, kept for signature checks
// and for assembling the final transaction.
type TxProposalInput struct {
	TxId         string
	VOut         uint32
	Amount       uint64
	Address      string
	AddressIndex uint32
}

// TxProposal is a proposed spend awaiting quorum signatures before broadcast.
// The quorum policy is frozen at creation time from the wallet m-of-n values.
type TxProposal struct {
	Id                 string
	WalletId           string
	CreatorId          string
	Coin               string
	Outputs            []Output
	FeeRate            uint64
	Fee                uint64
	Amount             uint64
	RequiredSignatures int
	RequiredRejections int
	Status             string
	Actions            []TxProposalAction
	Inputs             []TxProposalInput
	RawTx              string
	TxId               string
	CreatedAt          int64
	BroadcastedAt      int64
}

// NewTxProposal returns a pending proposal for the given wallet after
// validating its outputs. The wallet must be complete.
func NewTxProposal(
	wallet *Wallet, creatorId string,
	outputs []Output, feeRate uint64,
) (*TxProposal, error) {
	if !wallet.IsComplete() {
		return nil, ErrWalletNotComplete
	}
	if len(outputs) <= 0 {
		return nil, ErrTxProposalNoOutputs
	}
	var amount uint64
	for _, out := range outputs {
		if out.Amount <= 0 {
			return nil, ErrTxProposalInvalidAmount
		}
		amount += out.Amount
	}

	return &TxProposal{
		Id:                 uuid.New().String(),
		WalletId:           wallet.Id,
		CreatorId:          creatorId,
		Coin:               wallet.Coin,
		Outputs:            outputs,
		FeeRate:            feeRate,
		Amount:             amount,
		RequiredSignatures: wallet.M,
		RequiredRejections: wallet.N - wallet.M + 1,
		Status:             TxProposalStatusPending,
		Actions:            make([]TxProposalAction, 0),
		CreatedAt:          time.Now().Unix(),
	}, nil
}

// Sign records an accept action for the given copayer. When the number of
// accepts reaches the required signature quorum the proposal moves to the
// Accepted status. The transition is silent, no event is due until broadcast.
func (tp *TxProposal) Sign(copayerId string, signatures []string) error {
	if !tp.IsPending() {
		return ErrTxProposalNotPending
	}
	if tp.ActionBy(copayerId) != nil {
		return ErrCopayerVoted
	}

	tp.Actions = append(tp.Actions, TxProposalAction{
		CopayerId:  copayerId,
		Type:       ActionTypeAccept,
		Signatures: signatures,
		CreatedAt:  time.Now().Unix(),
	})

	if tp.CountAccepts() >= tp.RequiredSignatures {
		tp.Status = TxProposalStatusAccepted
	}
	return nil
}

// Reject records a reject action for the given copayer. The proposal becomes
// finally rejected as soon as the remaining un-acted copayers plus the
// current accepts can no longer reach the signature quorum.
func (tp *TxProposal) Reject(copayerId, comment string) error {
	if !tp.IsPending() {
		return ErrTxProposalNotPending
	}
	if tp.ActionBy(copayerId) != nil {
		return ErrCopayerVoted
	}

	tp.Actions = append(tp.Actions, TxProposalAction{
		CopayerId: copayerId,
		Type:      ActionTypeReject,
		Comment:   comment,
		CreatedAt: time.Now().Unix(),
	})

	if tp.CountRejects() >= tp.RequiredRejections {
		tp.Status = TxProposalStatusRejected
	}
	return nil
}

// MarkBroadcast brings an accepted proposal to the terminal Broadcast status,
// recording the network transaction id.
func (tp *TxProposal) MarkBroadcast(txid string) error {
	if !tp.IsAccepted() {
		return ErrTxProposalNotAccepted
	}

	tp.TxId = txid
	tp.Status = TxProposalStatusBroadcast
	tp.BroadcastedAt = time.Now().Unix()
	return nil
}

// ActionBy returns the action recorded for the given copayer, if any.
func (tp *TxProposal) ActionBy(copayerId string) *TxProposalAction {
	for i := range tp.Actions {
		if tp.Actions[i].CopayerId == copayerId {
			return &tp.Actions[i]
		}
	}
	return nil
}

// CountAccepts returns the number of accept actions recorded so far.
func (tp *TxProposal) CountAccepts() int {
	return tp.countActions(ActionTypeAccept)
}

// CountRejects returns the number of reject actions recorded so far.
func (tp *TxProposal) CountRejects() int {
	return tp.countActions(ActionTypeReject)
}

// Rejectors returns the ids of the copayers that rejected the proposal, in
// action order.
func (tp *TxProposal) Rejectors() []string {
	ids := make([]string, 0, len(tp.Actions))
	for _, action := range tp.Actions {
		if action.Type == ActionTypeReject {
			ids = append(ids, action.CopayerId)
		}
	}
	return ids
}

// AcceptSignatures returns the signature payloads of the accept actions, in
// action order.
func (tp *TxProposal) AcceptSignatures() [][]string {
	sigs := make([][]string, 0, len(tp.Actions))
	for _, action := range tp.Actions {
		if action.Type == ActionTypeAccept {
			sigs = append(sigs, action.Signatures)
		}
	}
	return sigs
}

// IsPending returns whether the proposal is still collecting actions.
func (tp *TxProposal) IsPending() bool {
	return tp.Status == TxProposalStatusPending
}

// IsAccepted returns whether the proposal reached quorum without being
// broadcast yet.
func (tp *TxProposal) IsAccepted() bool {
	return tp.Status == TxProposalStatusAccepted
}

// IsBroadcast returns whether the proposal transaction has been published.
func (tp *TxProposal) IsBroadcast() bool {
	return tp.Status == TxProposalStatusBroadcast
}

// IsFinallyRejected returns whether the proposal can no longer reach quorum.
func (tp *TxProposal) IsFinallyRejected() bool {
	return tp.Status == TxProposalStatusRejected
}

func (tp *TxProposal) countActions(actionType string) int {
	count := 0
	for _, action := range tp.Actions {
		if action.Type == actionType {
			count++
		}
	}
	return count
}
