// Package wire implements the wagering-protocol message kinds:
// deterministic construction (New*), canonical packed-field hashing for
// signatures (SigningHash), and validation (Validate*) that re-derives the
// hash and recovers the claimed signer.
//
// One exported struct per message kind, a small MsgType enum, and the JSON
// wire encoding carried on each struct's exported, JSON-tagged fields -
// the same struct serves the signing-hash computation and the wire form,
// with no parallel DTO layer.
package wire

import (
	"github.com/btcsuite/btcd/btcec"
	"github.com/litexio/scnode/xcrypto"
)

// MsgType enumerates the wire message kinds.
type MsgType uint8

const (
	MsgBetRequest MsgType = iota + 1
	MsgBetResponse
	MsgLockedTransfer
	MsgLockedTransferR
	MsgDirectTransfer
	MsgDirectTransferR
	MsgPreimage
	MsgCooperativeSettleRequest
	MsgCooperativeSettleResponse
)

func (t MsgType) String() string {
	switch t {
	case MsgBetRequest:
		return "BetRequest"
	case MsgBetResponse:
		return "BetResponse"
	case MsgLockedTransfer:
		return "LockedTransfer"
	case MsgLockedTransferR:
		return "LockedTransferR"
	case MsgDirectTransfer:
		return "DirectTransfer"
	case MsgDirectTransferR:
		return "DirectTransferR"
	case MsgPreimage:
		return "Preimage"
	case MsgCooperativeSettleRequest:
		return "CooperativeSettleRequest"
	case MsgCooperativeSettleResponse:
		return "CooperativeSettleResponse"
	default:
		return "Unknown"
	}
}

// Message is implemented by every wire message kind. Dispatch on Type is a
// closed switch over MsgType - an unrecognised kind is a protocol error to
// be rejected, never silently ignored.
type Message interface {
	Type() MsgType
	SigningHash() xcrypto.Hash
}

// sign computes m's signing hash and signs it with priv.
func sign(m Message, priv *btcec.PrivateKey) (xcrypto.Signature, error) {
	return xcrypto.Sign(m.SigningHash(), priv)
}

// recoverSigner recomputes m's signing hash and recovers the address that
// produced sig. Round-trip validation hinges on this never diverging from
// the construction side's SigningHash.
func recoverSigner(m Message, sig xcrypto.Signature) (xcrypto.Address, error) {
	return xcrypto.Recover(m.SigningHash(), sig)
}
