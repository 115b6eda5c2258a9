// Package proofs builds the four on-chain proofs (close, cooperative-settle,
// settle, initiator-settle) from locally persisted Channel/Bet records and
// the wire messages exchanged for a cooperative close.
//
// Assembler is built around a narrow read-only ChannelReader capability,
// never a pointer back to the client that calls it, so there is no reference
// cycle between proof assembly and the API layer.
package proofs

import (
	"github.com/btcsuite/btclog"
	"github.com/holiman/uint256"

	"github.com/litexio/scnode/channeldb"
	"github.com/litexio/scnode/wagererr"
	"github.com/litexio/scnode/wire"
	"github.com/litexio/scnode/xcrypto"
)

// ChannelReader is the narrow read-only capability the assembler needs: it
// can look up the channel and bet records it is asked to build a proof for,
// nothing else. Satisfied by *channeldb.DB.
type ChannelReader interface {
	GetChannel(channelID [32]byte) (*channeldb.Channel, error)
	GetBet(channelID [32]byte, round uint64) (*channeldb.Bet, error)
	GetBetByID(betID [32]byte) (*channeldb.Bet, error)
}

// Assembler builds the four on-chain proof kinds.
type Assembler struct {
	reader ChannelReader
	log    btclog.Logger
}

// New constructs an Assembler over reader. log may be btclog.Disabled.
func New(reader ChannelReader, log btclog.Logger) *Assembler {
	if log == nil {
		log = btclog.Disabled
	}
	return &Assembler{reader: reader, log: log}
}

// CloseProof is the evidence submitted to unilaterally close a channel:
// the last accepted balance-bearing message from the counterparty.
type CloseProof struct {
	ChannelID   [32]byte
	BalanceHash xcrypto.Hash
	Nonce       uint64
	Signature   xcrypto.Signature
}

// balanceHash packs (transferred_amount, locked_amount, lock_id), the
// on-chain summary of one side's latest state.
func balanceHash(transferred, locked *uint256.Int, lockID xcrypto.Hash) xcrypto.Hash {
	return xcrypto.Keccak256(
		xcrypto.PackUint256(transferred),
		xcrypto.PackUint256(locked),
		xcrypto.PackBytes32(lockID),
	)
}

// BuildCloseProof assembles the CloseProof for channelID from the last
// accepted remote balance-bearing message. It refuses if no such message
// has ever been accepted, or if the chain has already reported a nonce
// equal to or newer than the one this proof would submit.
func (a *Assembler) BuildCloseProof(channelID [32]byte) (*CloseProof, error) {
	ch, err := a.reader.GetChannel(channelID)
	if err != nil {
		return nil, err
	}
	bp := ch.LatestRemoteBalanceProof
	if bp == nil {
		return nil, &wagererr.WrongChannelStateError{
			ChannelID: channelID, State: ch.Status.String(), Operation: "close",
		}
	}
	if bp.Nonce <= ch.OnChainNonce {
		return nil, &wagererr.StaleNonceError{
			ChannelID: channelID, GotNonce: bp.Nonce, WantNonce: ch.OnChainNonce,
		}
	}

	a.log.Debugf("assembled close proof for channel %x at nonce %d", channelID, bp.Nonce)
	return &CloseProof{
		ChannelID:   channelID,
		BalanceHash: balanceHash(bp.TransferredAmount, bp.LockedAmount, bp.LockID),
		Nonce:       bp.Nonce,
		Signature:   bp.Signature,
	}, nil
}

// CooperativeSettleProof is the two-of-two co-signed proposal that lets the
// channel settle without a dispute window.
type CooperativeSettleProof struct {
	ChannelID          [32]byte
	P1, P2             xcrypto.Address
	P1Balance          *uint256.Int
	P2Balance          *uint256.Int
	SignatureRequester xcrypto.Signature
	SignatureResponder xcrypto.Signature
}

// BuildCooperativeSettleProof pairs a validated request/response exchange
// into the co-signed proof. Callers must already have run
// wire.ValidateCooperativeSettleResponse; this function re-checks the
// invariant defensively (never trust a single validation site for something
// that unlocks funds).
func (a *Assembler) BuildCooperativeSettleProof(req *wire.CooperativeSettleRequest, resp *wire.CooperativeSettleResponse) (*CooperativeSettleProof, error) {
	if resp.P1 != req.P1 || resp.P2 != req.P2 ||
		resp.P1Balance.Cmp(req.P1Balance) != 0 || resp.P2Balance.Cmp(req.P2Balance) != 0 {
		return nil, &wagererr.BalanceConservationError{
			ChannelID: req.ChannelID,
			Detail:    "cooperative settle response does not match request balances",
		}
	}
	return &CooperativeSettleProof{
		ChannelID:          req.ChannelID,
		P1:                 req.P1,
		P2:                 req.P2,
		P1Balance:          req.P1Balance,
		P2Balance:          req.P2Balance,
		SignatureRequester: req.Signature,
		SignatureResponder: resp.Signature,
	}, nil
}

// SettleProof is the 8-tuple the on-chain settle call needs to re-derive
// both sides' close-time balance hashes and pay out accordingly.
// Participants are ordered ascending by address, matching the on-chain
// settle ABI's tie-break rule.
type SettleProof struct {
	P1             xcrypto.Address
	P1Transferred  *uint256.Int
	P1Locked       *uint256.Int
	P1LockID       xcrypto.Hash
	P2             xcrypto.Address
	P2Transferred  *uint256.Int
	P2Locked       *uint256.Int
	P2LockID       xcrypto.Hash
}

// BuildSettleProof assembles the settle tuple from the two close-time
// snapshots recorded when the channel closed. Refuses if either side never
// recorded a close snapshot (status below Closed), or if the aggregate
// amounts would overflow uint256 - overflow is reported, never truncated.
func (a *Assembler) BuildSettleProof(channelID [32]byte) (*SettleProof, error) {
	ch, err := a.reader.GetChannel(channelID)
	if err != nil {
		return nil, err
	}
	if ch.LocalCloseSnapshot == nil || ch.RemoteCloseSnapshot == nil {
		return nil, &wagererr.WrongChannelStateError{
			ChannelID: channelID, State: ch.Status.String(), Operation: "settle",
		}
	}

	type side struct {
		addr xcrypto.Address
		snap *channeldb.CloseSnapshot
	}
	local := side{ch.Local, ch.LocalCloseSnapshot}
	remote := side{ch.Remote, ch.RemoteCloseSnapshot}

	p1, p2 := local, remote
	if !p1.addr.Less(p2.addr) {
		p1, p2 = remote, local
	}

	if _, overflow := new(uint256.Int).AddOverflow(p1.snap.TransferredAmount, p1.snap.LockedAmount); overflow {
		return nil, &wagererr.BalanceConservationError{ChannelID: channelID, Detail: "p1 transferred+locked overflows uint256"}
	}
	if _, overflow := new(uint256.Int).AddOverflow(p2.snap.TransferredAmount, p2.snap.LockedAmount); overflow {
		return nil, &wagererr.BalanceConservationError{ChannelID: channelID, Detail: "p2 transferred+locked overflows uint256"}
	}

	return &SettleProof{
		P1: p1.addr, P1Transferred: p1.snap.TransferredAmount, P1Locked: p1.snap.LockedAmount, P1LockID: p1.snap.LockID,
		P2: p2.addr, P2Transferred: p2.snap.TransferredAmount, P2Locked: p2.snap.LockedAmount, P2LockID: p2.snap.LockID,
	}, nil
}

// InitiatorSettleProof is the on-chain dispute evidence that deterministically
// resolves one disputed bet round from both randoms and both signatures.
type InitiatorSettleProof struct {
	ChannelID          [32]byte
	Round              uint64
	BetMask            *uint256.Int
	Modulo             uint64
	Positive           xcrypto.Address
	Negative           xcrypto.Address
	HashRInitiator     xcrypto.Hash
	SignatureInitiator xcrypto.Signature
	RAcceptor          [32]byte
	SignatureAcceptor  xcrypto.Signature
	RInitiator         [32]byte
}

// BuildInitiatorSettleProof assembles the dispute proof for (channelID,
// round). Refuses unless the bet reached at least Start (both parties
// committed to the round) and Ra is locally known - an acceptor who never
// saw a Preimage reveal cannot submit this proof themselves.
func (a *Assembler) BuildInitiatorSettleProof(channelID [32]byte, round uint64) (*InitiatorSettleProof, error) {
	bet, err := a.reader.GetBet(channelID, round)
	if err != nil {
		return nil, err
	}
	if bet.Status < channeldb.BetStatusStart {
		return nil, &wagererr.WrongChannelStateError{
			ChannelID: channelID, Round: round, State: bet.Status.String(), Operation: "initiatorSettle",
		}
	}
	var zero [32]byte
	if bet.RInitiator == zero {
		return nil, &wagererr.WrongChannelStateError{
			ChannelID: channelID, Round: round, State: bet.Status.String(),
			Operation: "initiatorSettle (Ra not locally known)",
		}
	}

	return &InitiatorSettleProof{
		ChannelID:          channelID,
		Round:              round,
		BetMask:            bet.BetMask,
		Modulo:             bet.Modulo,
		Positive:           bet.Initiator,
		Negative:           bet.Acceptor,
		HashRInitiator:     bet.HashRInitiator,
		SignatureInitiator: bet.SignatureInitiator,
		RAcceptor:          bet.RAcceptor,
		SignatureAcceptor:  bet.SignatureAcceptor,
		RInitiator:         bet.RInitiator,
	}, nil
}
