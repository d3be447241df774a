package btc

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"

	"github.com/copays/copayd/internal/core/domain"
	"github.com/copays/copayd/internal/core/ports"
)

const (
	// dustLimit is the minimum change amount worth creating an output for.
	// Anything below is left to the miners.
	dustLimit = 546

	externalChain = 0
)

type service struct {
	net      *chaincfg.Params
	explorer *esploraClient
}

// NewService returns the bitcoin implementation of the chain adapter
// contract, backed by an esplora block explorer.
func NewService(
	explorerURL, network string, requestTimeout time.Duration,
) (ports.ChainAdapter, error) {
	net, err := networkParams(network)
	if err != nil {
		return nil, err
	}
	return &service{
		net:      net,
		explorer: newEsploraClient(explorerURL, requestTimeout),
	}, nil
}

func networkParams(network string) (*chaincfg.Params, error) {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network %s", network)
	}
}

func (s *service) DeriveAddress(
	wallet *domain.Wallet, index uint32,
) (*domain.Address, error) {
	redeemScript, _, err := s.redeemScriptAt(wallet, index)
	if err != nil {
		return nil, err
	}

	p2sh, err := btcutil.NewAddressScriptHash(redeemScript, s.net)
	if err != nil {
		return nil, err
	}
	scriptPubKey, err := txscript.PayToAddrScript(p2sh)
	if err != nil {
		return nil, err
	}

	return &domain.Address{
		WalletId:     wallet.Id,
		Index:        index,
		Path:         fmt.Sprintf("m/%d/%d", externalChain, index),
		Value:        p2sh.EncodeAddress(),
		ScriptPubKey: hex.EncodeToString(scriptPubKey),
		CreatedAt:    time.Now().Unix(),
	}, nil
}

func (s *service) BuildUnsignedTx(
	wallet *domain.Wallet, outputs []domain.Output,
	utxos []ports.Utxo, feeRate uint64,
) (*ports.UnsignedTx, error) {
	var amount uint64
	for _, out := range outputs {
		amount += out.Amount
	}

	sorted := make([]ports.Utxo, len(utxos))
	copy(sorted, utxos)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Amount > sorted[j].Amount
	})

	var selected []ports.Utxo
	var total, fee uint64
	covered := false
	for _, utxo := range sorted {
		selected = append(selected, utxo)
		total += utxo.Amount
		fee = estimateFee(len(selected), len(outputs)+1, wallet.M, wallet.N, feeRate)
		if total >= amount+fee {
			covered = true
			break
		}
	}
	if !covered {
		return nil, ports.ErrInsufficientFunds
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	for _, utxo := range selected {
		txHash, err := chainhash.NewHashFromStr(utxo.TxId)
		if err != nil {
			return nil, err
		}
		outpoint := wire.NewOutPoint(txHash, utxo.VOut)
		tx.AddTxIn(wire.NewTxIn(outpoint, nil, nil))
	}
	for _, out := range outputs {
		script, err := s.payToAddressScript(out.Address)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(int64(out.Amount), script))
	}

	change := total - amount - fee
	if change >= dustLimit {
		script, err := s.payToAddressScript(selected[0].Address)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(int64(change), script))
	} else {
		fee += change
	}

	rawTx, err := serializeTx(tx)
	if err != nil {
		return nil, err
	}

	inputs := make([]ports.Utxo, len(selected))
	copy(inputs, selected)
	return &ports.UnsignedTx{RawTx: rawTx, Fee: fee, Inputs: inputs}, nil
}

func (s *service) VerifySignatures(
	wallet *domain.Wallet, copayer *domain.Copayer,
	rawTx string, inputs []domain.TxProposalInput, signatures []string,
) (bool, error) {
	if len(signatures) != len(inputs) {
		return false, nil
	}

	tx, err := deserializeTx(rawTx)
	if err != nil {
		return false, err
	}

	xpub, err := hdkeychain.NewKeyFromString(copayer.XPub)
	if err != nil {
		return false, err
	}

	for i, input := range inputs {
		pubKey, err := derivePubKey(xpub, input.AddressIndex)
		if err != nil {
			return false, err
		}
		redeemScript, _, err := s.redeemScriptAt(wallet, input.AddressIndex)
		if err != nil {
			return false, err
		}
		sigHash, err := txscript.CalcSignatureHash(
			redeemScript, txscript.SigHashAll, tx, i,
		)
		if err != nil {
			return false, err
		}

		sigBytes, err := hex.DecodeString(signatures[i])
		if err != nil {
			return false, nil
		}
		sig, err := ecdsa.ParseDERSignature(sigBytes)
		if err != nil {
			return false, nil
		}
		if !sig.Verify(sigHash, pubKey) {
			return false, nil
		}
	}
	return true, nil
}

func (s *service) FinalizeTx(
	wallet *domain.Wallet, rawTx string,
	inputs []domain.TxProposalInput, signatures [][]string,
) (string, error) {
	tx, err := deserializeTx(rawTx)
	if err != nil {
		return "", err
	}

	for i, input := range inputs {
		redeemScript, pubKeys, err := s.redeemScriptAt(wallet, input.AddressIndex)
		if err != nil {
			return "", err
		}
		sigHash, err := txscript.CalcSignatureHash(
			redeemScript, txscript.SigHashAll, tx, i,
		)
		if err != nil {
			return "", err
		}

		ordered, err := orderSignatures(sigHash, pubKeys, signatures, i, wallet.M)
		if err != nil {
			return "", err
		}

		builder := txscript.NewScriptBuilder()
		builder.AddOp(txscript.OP_FALSE)
		for _, sig := range ordered {
			builder.AddData(append(sig, byte(txscript.SigHashAll)))
		}
		builder.AddData(redeemScript)
		scriptSig, err := builder.Script()
		if err != nil {
			return "", err
		}
		tx.TxIn[i].SignatureScript = scriptSig
	}

	return serializeTx(tx)
}

func (s *service) Broadcast(ctx context.Context, signedTx string) (string, error) {
	return s.explorer.broadcastTx(ctx, signedTx)
}

func (s *service) ListUtxos(
	ctx context.Context, addresses []string,
) ([]ports.Utxo, error) {
	utxos := make([]ports.Utxo, 0)
	for _, addr := range addresses {
		unspents, err := s.explorer.getUtxos(ctx, addr)
		if err != nil {
			return nil, err
		}
		for _, u := range unspents {
			utxos = append(utxos, ports.Utxo{
				TxId:    u.TxId,
				VOut:    u.VOut,
				Amount:  u.Value,
				Address: addr,
			})
		}
	}
	return utxos, nil
}

func (s *service) GetTxConfirmations(
	ctx context.Context, txid string,
) (uint32, error) {
	status, err := s.explorer.getTxStatus(ctx, txid)
	if err != nil {
		return 0, err
	}
	if !status.Confirmed {
		return 0, nil
	}
	tip, err := s.explorer.getTipHeight(ctx)
	if err != nil {
		return 0, err
	}
	if tip < status.BlockHeight {
		return 0, nil
	}
	return tip - status.BlockHeight + 1, nil
}

// redeemScriptAt derives the m-of-n redeem script of the wallet at the given
// address index. Public keys are sorted lexicographically so that every
// copayer derives the same script independently.
func (s *service) redeemScriptAt(
	wallet *domain.Wallet, index uint32,
) ([]byte, []*btcec.PublicKey, error) {
	if !wallet.IsComplete() {
		return nil, nil, domain.ErrWalletNotComplete
	}

	pubKeys := make([]*btcec.PublicKey, 0, len(wallet.Copayers))
	for _, copayer := range wallet.Copayers {
		xpub, err := hdkeychain.NewKeyFromString(copayer.XPub)
		if err != nil {
			return nil, nil, err
		}
		pubKey, err := derivePubKey(xpub, index)
		if err != nil {
			return nil, nil, err
		}
		pubKeys = append(pubKeys, pubKey)
	}
	sort.Slice(pubKeys, func(i, j int) bool {
		return bytes.Compare(
			pubKeys[i].SerializeCompressed(), pubKeys[j].SerializeCompressed(),
		) < 0
	})

	addrPubKeys := make([]*btcutil.AddressPubKey, 0, len(pubKeys))
	for _, pubKey := range pubKeys {
		addrPubKey, err := btcutil.NewAddressPubKey(
			pubKey.SerializeCompressed(), s.net,
		)
		if err != nil {
			return nil, nil, err
		}
		addrPubKeys = append(addrPubKeys, addrPubKey)
	}

	redeemScript, err := txscript.MultiSigScript(addrPubKeys, wallet.M)
	if err != nil {
		return nil, nil, err
	}
	return redeemScript, pubKeys, nil
}

func (s *service) payToAddressScript(address string) ([]byte, error) {
	addr, err := btcutil.DecodeAddress(address, s.net)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
}

func derivePubKey(
	xpub *hdkeychain.ExtendedKey, index uint32,
) (*btcec.PublicKey, error) {
	chainKey, err := xpub.Derive(externalChain)
	if err != nil {
		return nil, err
	}
	childKey, err := chainKey.Derive(index)
	if err != nil {
		return nil, err
	}
	return childKey.ECPubKey()
}

// orderSignatures picks, for the given input, one valid signature per signer
// and returns them sorted by the position of the matching public key in the
// redeem script, as OP_CHECKMULTISIG requires.
func orderSignatures(
	sigHash []byte, pubKeys []*btcec.PublicKey,
	signatures [][]string, inputIndex, quorum int,
) ([][]byte, error) {
	type rankedSig struct {
		keyIndex int
		sig      []byte
	}

	ranked := make([]rankedSig, 0, len(signatures))
	for _, payload := range signatures {
		if inputIndex >= len(payload) {
			return nil, ports.ErrInvalidSignature
		}
		sigBytes, err := hex.DecodeString(payload[inputIndex])
		if err != nil {
			return nil, ports.ErrInvalidSignature
		}
		sig, err := ecdsa.ParseDERSignature(sigBytes)
		if err != nil {
			return nil, ports.ErrInvalidSignature
		}

		matched := false
		for k, pubKey := range pubKeys {
			if sig.Verify(sigHash, pubKey) {
				ranked = append(ranked, rankedSig{keyIndex: k, sig: sigBytes})
				matched = true
				break
			}
		}
		if !matched {
			return nil, ports.ErrInvalidSignature
		}
	}
	if len(ranked) < quorum {
		return nil, ports.ErrInvalidSignature
	}

	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].keyIndex < ranked[j].keyIndex
	})

	ordered := make([][]byte, 0, quorum)
	for _, r := range ranked[:quorum] {
		ordered = append(ordered, r.sig)
	}
	return ordered, nil
}

// estimateFee computes the fee for a legacy p2sh multisig transaction of the
// given shape at the given sat/vbyte rate.
func estimateFee(numIns, numOuts, m, n int, feeRate uint64) uint64 {
	redeemScriptSize := 3 + 34*n
	scriptSigSize := 2 + 73*m + redeemScriptSize
	inputSize := 41 + scriptSigSize
	size := 10 + numIns*inputSize + numOuts*34

	fee := decimal.NewFromInt(int64(size)).Mul(
		decimal.NewFromInt(int64(feeRate)),
	)
	return uint64(fee.IntPart())
}

func serializeTx(tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

func deserializeTx(rawTx string) (*wire.MsgTx, error) {
	txBytes, err := hex.DecodeString(rawTx)
	if err != nil {
		return nil, err
	}
	tx := &wire.MsgTx{}
	if err := tx.Deserialize(bytes.NewReader(txBytes)); err != nil {
		return nil, err
	}
	return tx, nil
}
