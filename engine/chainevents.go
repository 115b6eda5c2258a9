package engine

import (
	"github.com/holiman/uint256"

	"github.com/litexio/scnode/xcrypto"
)

// The six chain-event inputs the channel machine reacts to.
// chainwatch.Reconciler normalises a raw ChainClient event stream into
// calls on these methods; the engine never talks to the chain client
// directly, it only reacts to events pushed at it.

// HandleChannelOpened materialises the channel record on its first
// confirmed on-chain event; the channel identifier is authoritative once
// assigned on-chain.
func (e *Engine) HandleChannelOpened(channelID [32]byte, local, remote, paymentContract, gameContract xcrypto.Address,
	localIsP1 bool, settleWindow uint64) error {

	req := &chainOpenedReq{
		local: local, remote: remote, paymentContract: paymentContract, gameContract: gameContract,
		settleWindow: settleWindow, result: make(chan error, 1),
	}
	a := e.actorFor(channelID)
	a.channelID = channelID
	a.reqChan <- req
	return <-req.result
}

// HandleNewDeposit records a confirmed deposit from either participant.
func (e *Engine) HandleNewDeposit(channelID [32]byte, depositor xcrypto.Address, amount *uint256.Int) error {
	req := &chainDepositReq{depositor: depositor, amount: amount, result: make(chan error, 1)}
	a := e.actorFor(channelID)
	a.reqChan <- req
	return <-req.result
}

// HandleChannelClosed records the close event: the channel moves to
// Closed and both sides' close-time balance snapshots are captured from
// whatever this participant already holds locally.
func (e *Engine) HandleChannelClosed(channelID [32]byte, closingParty xcrypto.Address) error {
	req := &chainClosedReq{closingParty: closingParty, result: make(chan error, 1)}
	a := e.actorFor(channelID)
	a.reqChan <- req
	return <-req.result
}

// HandleNonClosingBalanceProofUpdated records that the chain has now seen a
// newer nonce than the one submitted at close - the dispute-window update
// path. The channel moves to UpdateBalanceProof.
func (e *Engine) HandleNonClosingBalanceProofUpdated(channelID [32]byte, nonce uint64) error {
	req := &chainBalanceProofUpdatedReq{nonce: nonce, result: make(chan error, 1)}
	a := e.actorFor(channelID)
	a.reqChan <- req
	return <-req.result
}

// HandleChannelUnlocked records that a specific lock was resolved on-chain
// post-settle.
func (e *Engine) HandleChannelUnlocked(channelID [32]byte, lockID xcrypto.Hash, amount *uint256.Int) error {
	req := &chainUnlockedReq{lockID: lockID, amount: amount, result: make(chan error, 1)}
	a := e.actorFor(channelID)
	a.reqChan <- req
	return <-req.result
}

// HandleChannelSettled moves the channel to its terminal Settled state; the
// record is retained for audit.
func (e *Engine) HandleChannelSettled(channelID [32]byte) error {
	req := &chainSettledReq{result: make(chan error, 1)}
	a := e.actorFor(channelID)
	a.reqChan <- req
	return <-req.result
}
