package wire

import (
	"github.com/btcsuite/btcd/btcec"
	"github.com/holiman/uint256"
	"github.com/litexio/scnode/wagererr"
	"github.com/litexio/scnode/xcrypto"
)

// LockedTransfer moves value from the sender's unlocked balance into a lock
// identified by lock_id (= hashRa from the matching BetRequest). Sent by the
// acceptor in response to a BetRequest.
type LockedTransfer struct {
	ChannelID         [32]byte          `json:"channel_id"`
	PaymentContract   xcrypto.Address   `json:"payment_contract"`
	Nonce             uint64            `json:"nonce"`
	TransferredAmount *uint256.Int      `json:"transferred_amount"`
	LockedAmount      *uint256.Int      `json:"locked_amount"`
	LockID            xcrypto.Hash      `json:"lock_id"`
	Signature         xcrypto.Signature `json:"signature"`
}

func (m *LockedTransfer) Type() MsgType { return MsgLockedTransfer }

func (m *LockedTransfer) SigningHash() xcrypto.Hash {
	return signingHashForTransfer(m.ChannelID, m.PaymentContract, m.Nonce, m.TransferredAmount, m.LockedAmount, m.LockID)
}

// LockedTransferR is the initiator's reciprocal LockedTransfer, same field
// layout and signing hash, sent the other direction on the channel.
type LockedTransferR struct {
	ChannelID         [32]byte          `json:"channel_id"`
	PaymentContract   xcrypto.Address   `json:"payment_contract"`
	Nonce             uint64            `json:"nonce"`
	TransferredAmount *uint256.Int      `json:"transferred_amount"`
	LockedAmount      *uint256.Int      `json:"locked_amount"`
	LockID            xcrypto.Hash      `json:"lock_id"`
	Signature         xcrypto.Signature `json:"signature"`
}

func (m *LockedTransferR) Type() MsgType { return MsgLockedTransferR }

func (m *LockedTransferR) SigningHash() xcrypto.Hash {
	return signingHashForTransfer(m.ChannelID, m.PaymentContract, m.Nonce, m.TransferredAmount, m.LockedAmount, m.LockID)
}

func signingHashForTransfer(channelID [32]byte, paymentContract xcrypto.Address,
	nonce uint64, transferred, locked *uint256.Int, lockID xcrypto.Hash) xcrypto.Hash {

	return xcrypto.Keccak256(
		channelID[:],
		xcrypto.PackAddress(paymentContract),
		xcrypto.PackUint64(nonce),
		xcrypto.PackUint256(transferred),
		xcrypto.PackUint256(locked),
		xcrypto.PackBytes32(lockID),
	)
}

// NewLockedTransfer constructs and signs a LockedTransfer.
func NewLockedTransfer(channelID [32]byte, paymentContract xcrypto.Address, nonce uint64,
	transferred, locked *uint256.Int, lockID xcrypto.Hash, priv *btcec.PrivateKey) (*LockedTransfer, error) {

	m := &LockedTransfer{
		ChannelID:         channelID,
		PaymentContract:   paymentContract,
		Nonce:             nonce,
		TransferredAmount: transferred,
		LockedAmount:      locked,
		LockID:            lockID,
	}
	sig, err := sign(m, priv)
	if err != nil {
		return nil, err
	}
	m.Signature = sig
	return m, nil
}

// NewLockedTransferR constructs and signs a LockedTransferR.
func NewLockedTransferR(channelID [32]byte, paymentContract xcrypto.Address, nonce uint64,
	transferred, locked *uint256.Int, lockID xcrypto.Hash, priv *btcec.PrivateKey) (*LockedTransferR, error) {

	m := &LockedTransferR{
		ChannelID:         channelID,
		PaymentContract:   paymentContract,
		Nonce:             nonce,
		TransferredAmount: transferred,
		LockedAmount:      locked,
		LockID:            lockID,
	}
	sig, err := sign(m, priv)
	if err != nil {
		return nil, err
	}
	m.Signature = sig
	return m, nil
}

// ValidateLockedTransfer re-derives the packed hash, checks the signer and
// nonce, and requires the lock id to equal hashRa from the matching
// BetRequest and the locked amount to equal the bet's value.
func ValidateLockedTransfer(m *LockedTransfer, expectedSigner xcrypto.Address, lastNonce uint64,
	expectedLockID xcrypto.Hash, expectedValue *uint256.Int) error {

	return validateTransferCommon(m.ChannelID, m, m.Signature, expectedSigner, m.Nonce, lastNonce,
		m.LockID, expectedLockID, m.LockedAmount, expectedValue, MsgLockedTransfer)
}

// ValidateLockedTransferR mirrors ValidateLockedTransfer for the reciprocal
// message.
func ValidateLockedTransferR(m *LockedTransferR, expectedSigner xcrypto.Address, lastNonce uint64,
	expectedLockID xcrypto.Hash, expectedValue *uint256.Int) error {

	return validateTransferCommon(m.ChannelID, m, m.Signature, expectedSigner, m.Nonce, lastNonce,
		m.LockID, expectedLockID, m.LockedAmount, expectedValue, MsgLockedTransferR)
}

func validateTransferCommon(channelID [32]byte, m Message, sig xcrypto.Signature,
	expectedSigner xcrypto.Address, nonce, lastNonce uint64, gotLockID, wantLockID xcrypto.Hash,
	gotValue, wantValue *uint256.Int, kind MsgType) error {

	addr, err := recoverSigner(m, sig)
	if err != nil || addr != expectedSigner {
		return &wagererr.InvalidSignatureError{ChannelID: channelID, MsgKind: kind.String()}
	}
	if nonce <= lastNonce {
		return &wagererr.StaleNonceError{ChannelID: channelID, GotNonce: nonce, WantNonce: lastNonce}
	}
	if gotLockID != wantLockID {
		return &wagererr.BalanceConservationError{
			ChannelID: channelID,
			Detail:    "lock id does not match hashRa from the matching bet request",
		}
	}
	if wantValue != nil && gotValue.Cmp(wantValue) != 0 {
		return &wagererr.BalanceConservationError{
			ChannelID: channelID,
			Detail:    "locked amount does not match bet value",
		}
	}
	return nil
}

// DirectTransfer converts a resolved lock into a plain balance-bearing
// transfer, sent by the party whose balance decreases.
type DirectTransfer struct {
	ChannelID         [32]byte          `json:"channel_id"`
	PaymentContract   xcrypto.Address   `json:"payment_contract"`
	Nonce             uint64            `json:"nonce"`
	TransferredAmount *uint256.Int      `json:"transferred_amount"`
	Signature         xcrypto.Signature `json:"signature"`
}

func (m *DirectTransfer) Type() MsgType { return MsgDirectTransfer }

func (m *DirectTransfer) SigningHash() xcrypto.Hash {
	return signingHashForDirect(m.ChannelID, m.PaymentContract, m.Nonce, m.TransferredAmount)
}

// DirectTransferR is the reciprocal closing transfer from the other party.
type DirectTransferR struct {
	ChannelID         [32]byte          `json:"channel_id"`
	PaymentContract   xcrypto.Address   `json:"payment_contract"`
	Nonce             uint64            `json:"nonce"`
	TransferredAmount *uint256.Int      `json:"transferred_amount"`
	Signature         xcrypto.Signature `json:"signature"`
}

func (m *DirectTransferR) Type() MsgType { return MsgDirectTransferR }

func (m *DirectTransferR) SigningHash() xcrypto.Hash {
	return signingHashForDirect(m.ChannelID, m.PaymentContract, m.Nonce, m.TransferredAmount)
}

func signingHashForDirect(channelID [32]byte, paymentContract xcrypto.Address, nonce uint64, transferred *uint256.Int) xcrypto.Hash {
	return xcrypto.Keccak256(
		channelID[:],
		xcrypto.PackAddress(paymentContract),
		xcrypto.PackUint64(nonce),
		xcrypto.PackUint256(transferred),
	)
}

// NewDirectTransfer constructs and signs a DirectTransfer.
func NewDirectTransfer(channelID [32]byte, paymentContract xcrypto.Address, nonce uint64,
	transferred *uint256.Int, priv *btcec.PrivateKey) (*DirectTransfer, error) {

	m := &DirectTransfer{
		ChannelID:         channelID,
		PaymentContract:   paymentContract,
		Nonce:             nonce,
		TransferredAmount: transferred,
	}
	sig, err := sign(m, priv)
	if err != nil {
		return nil, err
	}
	m.Signature = sig
	return m, nil
}

// NewDirectTransferR constructs and signs a DirectTransferR.
func NewDirectTransferR(channelID [32]byte, paymentContract xcrypto.Address, nonce uint64,
	transferred *uint256.Int, priv *btcec.PrivateKey) (*DirectTransferR, error) {

	m := &DirectTransferR{
		ChannelID:         channelID,
		PaymentContract:   paymentContract,
		Nonce:             nonce,
		TransferredAmount: transferred,
	}
	sig, err := sign(m, priv)
	if err != nil {
		return nil, err
	}
	m.Signature = sig
	return m, nil
}

// ValidateDirectTransfer re-derives the packed hash and checks the signer
// and nonce monotonicity.
func ValidateDirectTransfer(m *DirectTransfer, expectedSigner xcrypto.Address, lastNonce uint64) error {
	return validateDirectCommon(m.ChannelID, m, m.Signature, expectedSigner, m.Nonce, lastNonce, MsgDirectTransfer)
}

// ValidateDirectTransferR mirrors ValidateDirectTransfer for the reciprocal
// message.
func ValidateDirectTransferR(m *DirectTransferR, expectedSigner xcrypto.Address, lastNonce uint64) error {
	return validateDirectCommon(m.ChannelID, m, m.Signature, expectedSigner, m.Nonce, lastNonce, MsgDirectTransferR)
}

func validateDirectCommon(channelID [32]byte, m Message, sig xcrypto.Signature,
	expectedSigner xcrypto.Address, nonce, lastNonce uint64, kind MsgType) error {

	addr, err := recoverSigner(m, sig)
	if err != nil || addr != expectedSigner {
		return &wagererr.InvalidSignatureError{ChannelID: channelID, MsgKind: kind.String()}
	}
	if nonce <= lastNonce {
		return &wagererr.StaleNonceError{ChannelID: channelID, GotNonce: nonce, WantNonce: lastNonce}
	}
	return nil
}
