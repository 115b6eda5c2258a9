package wire

import (
	"github.com/btcsuite/btcd/btcec"
	"github.com/litexio/scnode/wagererr"
	"github.com/litexio/scnode/xcrypto"
)

// BetResponse is sent by the acceptor, revealing Rb and echoing the
// initiator's BetRequest signature so the initiator can bind the response
// to its own original commitment.
type BetResponse struct {
	ChannelID      [32]byte          `json:"channel_id"`
	Round          uint64            `json:"round"`
	GameContract   xcrypto.Address   `json:"game_contract"`
	HashRInitiator xcrypto.Hash      `json:"hash_r_initiator"`
	RAcceptor      [32]byte          `json:"r_acceptor"`
	SignatureA     xcrypto.Signature `json:"signature_a"`
	Signature      xcrypto.Signature `json:"signature"`
}

func (m *BetResponse) Type() MsgType { return MsgBetResponse }

// SigningHash packs (channel_id, round, game_contract, hashRa, Rb,
// signatureA) in that exact order.
func (m *BetResponse) SigningHash() xcrypto.Hash {
	return xcrypto.Keccak256(
		m.ChannelID[:],
		xcrypto.PackUint64(m.Round),
		xcrypto.PackAddress(m.GameContract),
		xcrypto.PackBytes32(m.HashRInitiator),
		xcrypto.PackBytes32(m.RAcceptor),
		m.SignatureA[:],
	)
}

// NewBetResponse constructs and signs a BetResponse as the acceptor.
func NewBetResponse(channelID [32]byte, round uint64, gameContract xcrypto.Address,
	hashRInitiator xcrypto.Hash, rAcceptor [32]byte, signatureA xcrypto.Signature,
	priv *btcec.PrivateKey) (*BetResponse, error) {

	m := &BetResponse{
		ChannelID:      channelID,
		Round:          round,
		GameContract:   gameContract,
		HashRInitiator: hashRInitiator,
		RAcceptor:      rAcceptor,
		SignatureA:     signatureA,
	}
	sig, err := sign(m, priv)
	if err != nil {
		return nil, err
	}
	m.Signature = sig
	return m, nil
}

// ValidateBetResponse re-derives the packed hash and checks that the
// signature recovers to expectedSigner (the acceptor, negativeB).
func ValidateBetResponse(m *BetResponse, expectedSigner xcrypto.Address) error {
	addr, err := recoverSigner(m, m.Signature)
	if err != nil || addr != expectedSigner {
		return &wagererr.InvalidSignatureError{ChannelID: m.ChannelID, MsgKind: MsgBetResponse.String()}
	}
	return nil
}
