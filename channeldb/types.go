// Package channeldb is the state store adapter: a narrow capability set for
// persisting Channel and Bet records - a DB handle wrapping an embedded
// database, typed accessor methods, each update atomic per record. Storage
// splits across two embedded engines by access pattern: Channels are always
// fetched by a single key (channel_identifier), so they live in bbolt; Bets
// additionally need filter/offset/limit listing, which bbolt serves only
// via a full bucket scan, so Bets live in a database/sql table over
// modernc.org/sqlite (pure-Go, cgo-free) instead.
package channeldb

import (
	"github.com/holiman/uint256"
	"github.com/litexio/scnode/wire"
	"github.com/litexio/scnode/xcrypto"
)

// ChannelStatus is the lifecycle state of a Channel record.
type ChannelStatus uint8

const (
	ChannelStatusOpened ChannelStatus = iota + 1
	ChannelStatusClosed
	ChannelStatusUpdateBalanceProof
	ChannelStatusSettled
)

func (s ChannelStatus) String() string {
	switch s {
	case ChannelStatusOpened:
		return "Opened"
	case ChannelStatusClosed:
		return "Closed"
	case ChannelStatusUpdateBalanceProof:
		return "UpdateBalanceProof"
	case ChannelStatusSettled:
		return "Settled"
	default:
		return "Unknown"
	}
}

// DefaultSettleWindow is the number of blocks between on-chain close and
// finalisation, unless a channel is opened with an explicit override.
const DefaultSettleWindow = 6

// BalanceProof is the last signed balance-hash message accepted from a
// party: whichever of LockedTransfer/LockedTransferR/DirectTransfer/
// DirectTransferR last carried a nonce for that emitter.
type BalanceProof struct {
	Nonce             uint64
	TransferredAmount *uint256.Int
	LockedAmount      *uint256.Int
	LockID            xcrypto.Hash
	Signature         xcrypto.Signature
}

// CloseSnapshot is the exact balance-bearing state a party submitted on
// close, populated once Channel.Status >= Closed. BalanceHash is the value
// actually submitted on-chain; the remaining fields are the pre-image the
// settle-time contract call re-derives BalanceHash from.
type CloseSnapshot struct {
	BalanceHash       xcrypto.Hash
	TransferredAmount *uint256.Int
	LockedAmount      *uint256.Int
	LockID            xcrypto.Hash
	Nonce             uint64
	Signature         xcrypto.Signature
}

// Channel is the persisted record of a bilateral funded relationship.
type Channel struct {
	ChannelID [32]byte
	Local     xcrypto.Address
	Remote    xcrypto.Address

	Status ChannelStatus

	LocalBalance  *uint256.Int
	RemoteBalance *uint256.Int
	LocalDeposit  *uint256.Int
	RemoteDeposit *uint256.Int

	CurrentRound uint64

	LocalNonce  uint64
	RemoteNonce uint64

	LatestLocalBalanceProof  *BalanceProof
	LatestRemoteBalanceProof *BalanceProof

	LocalCloseSnapshot  *CloseSnapshot
	RemoteCloseSnapshot *CloseSnapshot

	// OnChainNonce is the highest nonce the chain has reported back to us
	// via a NonClosingBalanceProofUpdated event. The proof
	// assembler refuses to build a CloseProof with a nonce at or below
	// this value: the chain has already seen something newer.
	OnChainNonce uint64

	SettleWindow uint64

	PaymentContract xcrypto.Address
	GameContract    xcrypto.Address

	// PendingCoopSettleRequest/Response hold an in-flight
	// cooperative close negotiation: the request this
	// side sent or received, and the counterpart's co-signature once it
	// arrives. Cleared once the chain reports ChannelSettled. Storing the
	// two signed wire messages directly, rather than a separate summary
	// type, is enough for proofs.Assembler.BuildCooperativeSettleProof to
	// re-derive the proof without re-deriving the negotiation.
	PendingCoopSettleRequest  *wire.CooperativeSettleRequest
	PendingCoopSettleResponse *wire.CooperativeSettleResponse
}

// LockedTotal returns the sum of funds currently reserved by open locks on
// both sides of the channel, i.e. the value in-flight for the current round
// if one is active. Used to check conservation.
func (c *Channel) LockedTotal() *uint256.Int {
	total := new(uint256.Int)
	if c.LatestLocalBalanceProof != nil && c.LatestLocalBalanceProof.LockedAmount != nil {
		total.Add(total, c.LatestLocalBalanceProof.LockedAmount)
	}
	if c.LatestRemoteBalanceProof != nil && c.LatestRemoteBalanceProof.LockedAmount != nil {
		total.Add(total, c.LatestRemoteBalanceProof.LockedAmount)
	}
	return total
}

// CheckConservation verifies the conservation identity:
// local_balance + remote_balance + locked_total == local_deposit + remote_deposit.
func (c *Channel) CheckConservation() bool {
	lhs := new(uint256.Int).Add(c.LocalBalance, c.RemoteBalance)
	lhs.Add(lhs, c.LockedTotal())
	rhs := new(uint256.Int).Add(c.LocalDeposit, c.RemoteDeposit)
	return lhs.Cmp(rhs) == 0
}

// BetStatus is the lifecycle state of one wagering round.
type BetStatus uint8

const (
	BetStatusInit BetStatus = iota + 1
	BetStatusStart
	BetStatusLockedTransferSent
	BetStatusLockedTransferRSent
	BetStatusBetResponseReceived
	BetStatusPreimageSent
	BetStatusDirectTransferSent
	BetStatusFinish
)

func (s BetStatus) String() string {
	switch s {
	case BetStatusInit:
		return "Init"
	case BetStatusStart:
		return "Start"
	case BetStatusLockedTransferSent:
		return "LockedTransferSent"
	case BetStatusLockedTransferRSent:
		return "LockedTransferRSent"
	case BetStatusBetResponseReceived:
		return "BetResponseReceived"
	case BetStatusPreimageSent:
		return "PreimageSent"
	case BetStatusDirectTransferSent:
		return "DirectTransferSent"
	case BetStatusFinish:
		return "Finish"
	default:
		return "Unknown"
	}
}

// Bet is one wagering round within a channel. (ChannelID, Round) is the
// primary key; BetID is a derived, globally unique lookup key.
type Bet struct {
	BetID     [32]byte
	ChannelID [32]byte
	Round     uint64

	BetMask *uint256.Int
	Modulo  uint64
	Value   *uint256.Int

	Initiator xcrypto.Address
	Acceptor  xcrypto.Address

	RInitiator     [32]byte
	HashRInitiator xcrypto.Hash
	RAcceptor      [32]byte

	SignatureInitiator xcrypto.Signature
	SignatureAcceptor  xcrypto.Signature

	// LockedTransferLocalNonce/RemoteNonce pin the two in-flight
	// locked-transfer messages for this round to the balance-proof
	// nonce carried on the owning Channel record, rather than duplicating
	// the full wire.LockedTransfer/LockedTransferR payload here - the
	// Channel's LatestLocalBalanceProof/LatestRemoteBalanceProof already
	// hold the signed (transferred, locked, lock_id) triple once a lock
	// for this round is outstanding.
	LockedTransferLocalNonce  uint64
	LockedTransferRemoteNonce uint64

	WinAmount   *uint256.Int
	WinnerIsInitiator bool

	Status BetStatus
}

// BetIDFor computes the canonical lookup key for a (channelID, round) pair.
func BetIDFor(channelID [32]byte, round uint64) [32]byte {
	h := xcrypto.Keccak256(channelID[:], xcrypto.PackUint64(round))
	return h
}

// BetFilter narrows ListBets results.
type BetFilter struct {
	ChannelID *[32]byte
	Status    *BetStatus
	Initiator *xcrypto.Address
}
