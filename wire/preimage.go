package wire

import (
	"github.com/btcsuite/btcd/btcec"
	"github.com/litexio/scnode/wagererr"
	"github.com/litexio/scnode/xcrypto"
)

// Preimage reveals the initiator's random Ra once both LockedTransfers and
// the BetResponse have been exchanged, never earlier.
type Preimage struct {
	ChannelID [32]byte          `json:"channel_id"`
	Round     uint64            `json:"round"`
	RInitiator [32]byte         `json:"r_initiator"`
	Signature xcrypto.Signature `json:"signature"`
}

func (m *Preimage) Type() MsgType { return MsgPreimage }

// SigningHash packs (channel_id, round, Ra) in that exact order.
func (m *Preimage) SigningHash() xcrypto.Hash {
	return xcrypto.Keccak256(
		m.ChannelID[:],
		xcrypto.PackUint64(m.Round),
		xcrypto.PackBytes32(m.RInitiator),
	)
}

// NewPreimage constructs and signs a Preimage reveal.
func NewPreimage(channelID [32]byte, round uint64, rInitiator [32]byte, priv *btcec.PrivateKey) (*Preimage, error) {
	m := &Preimage{ChannelID: channelID, Round: round, RInitiator: rInitiator}
	sig, err := sign(m, priv)
	if err != nil {
		return nil, err
	}
	m.Signature = sig
	return m, nil
}

// ValidatePreimage re-derives the packed hash, checks the signer, and
// requires the revealed preimage to hash to the hashRa committed in the
// round's BetRequest.
func ValidatePreimage(m *Preimage, expectedSigner xcrypto.Address, expectedHashRInitiator xcrypto.Hash) error {
	addr, err := recoverSigner(m, m.Signature)
	if err != nil || addr != expectedSigner {
		return &wagererr.InvalidSignatureError{ChannelID: m.ChannelID, MsgKind: MsgPreimage.String()}
	}
	if xcrypto.Keccak256(m.RInitiator[:]) != expectedHashRInitiator {
		return &wagererr.BalanceConservationError{
			ChannelID: m.ChannelID,
			Round:     m.Round,
			Detail:    "revealed preimage does not hash to the committed hashRa",
		}
	}
	return nil
}
