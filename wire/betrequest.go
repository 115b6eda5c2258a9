package wire

import (
	"github.com/btcsuite/btcd/btcec"
	"github.com/holiman/uint256"
	"github.com/litexio/scnode/wagererr"
	"github.com/litexio/scnode/xcrypto"
)

// BetRequest is sent by the initiator to start a bet round, committing to
// hashRa without revealing Ra.
//
// Value (the stake) travels signed in this message, appended after the
// commitment fields: a received LockedTransfer's locked amount is checked
// against the value from the matching BetRequest, so the stake must be part
// of the initiator's signed commitment or an acceptor could lock an amount
// the initiator never agreed to.
type BetRequest struct {
	ChannelID      [32]byte          `json:"channel_id"`
	Round          uint64            `json:"round"`
	GameContract   xcrypto.Address   `json:"game_contract"`
	BetMask        *uint256.Int      `json:"bet_mask"`
	Modulo         uint64            `json:"modulo"`
	PositiveA      xcrypto.Address   `json:"positive_a"`
	NegativeB      xcrypto.Address   `json:"negative_b"`
	HashRInitiator xcrypto.Hash      `json:"hash_r_initiator"`
	Value          *uint256.Int      `json:"value"`
	Signature      xcrypto.Signature `json:"signature"`
}

func (m *BetRequest) Type() MsgType { return MsgBetRequest }

// SigningHash packs (channel_id, round, game_contract, bet_mask, modulo,
// positiveA, negativeB, hashRa, value) in that exact order.
func (m *BetRequest) SigningHash() xcrypto.Hash {
	return xcrypto.Keccak256(
		m.ChannelID[:],
		xcrypto.PackUint64(m.Round),
		xcrypto.PackAddress(m.GameContract),
		xcrypto.PackUint256(m.BetMask),
		xcrypto.PackUint64(m.Modulo),
		xcrypto.PackAddress(m.PositiveA),
		xcrypto.PackAddress(m.NegativeB),
		xcrypto.PackBytes32(m.HashRInitiator),
		xcrypto.PackUint256(m.Value),
	)
}

// NewBetRequest constructs and signs a BetRequest as the initiator.
func NewBetRequest(channelID [32]byte, round uint64, gameContract xcrypto.Address,
	betMask *uint256.Int, modulo uint64, positiveA, negativeB xcrypto.Address,
	hashRInitiator xcrypto.Hash, value *uint256.Int, priv *btcec.PrivateKey) (*BetRequest, error) {

	m := &BetRequest{
		ChannelID:      channelID,
		Round:          round,
		GameContract:   gameContract,
		BetMask:        betMask,
		Modulo:         modulo,
		PositiveA:      positiveA,
		NegativeB:      negativeB,
		HashRInitiator: hashRInitiator,
		Value:          value,
	}
	sig, err := sign(m, priv)
	if err != nil {
		return nil, err
	}
	m.Signature = sig
	return m, nil
}

// ValidateBetRequest re-derives the packed hash and checks that the
// signature recovers to expectedSigner (the claimed initiator, positiveA).
func ValidateBetRequest(m *BetRequest, expectedSigner xcrypto.Address) error {
	addr, err := recoverSigner(m, m.Signature)
	if err != nil || addr != expectedSigner {
		return &wagererr.InvalidSignatureError{ChannelID: m.ChannelID, MsgKind: MsgBetRequest.String()}
	}
	return nil
}
