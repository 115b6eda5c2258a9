// Package wagererr defines the protocol's tagged error kinds as distinct
// exported types rather than untyped string errors, so callers can recover
// context (channel, round, message kind) with errors.As instead of parsing
// messages. ChainRejectedError, the kind for a failed chain submission,
// wraps its cause with github.com/go-errors/errors so the stack trace at the
// point of failure survives into logs; the other kinds carry no stack trace.
package wagererr

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// InvalidSignatureError indicates a message's signature did not recover to
// the claimed sender. Per policy this is always a local drop, never reported
// to the peer.
type InvalidSignatureError struct {
	ChannelID [32]byte
	MsgKind   string
}

func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("invalid signature on %s for channel %x", e.MsgKind, e.ChannelID)
}

// StaleNonceError indicates an incoming nonce did not exceed the last
// accepted one for that emitter.
type StaleNonceError struct {
	ChannelID  [32]byte
	GotNonce   uint64
	WantNonce  uint64
}

func (e *StaleNonceError) Error() string {
	return fmt.Sprintf("stale nonce on channel %x: got %d, need > %d",
		e.ChannelID, e.GotNonce, e.WantNonce)
}

// BalanceConservationError indicates a proposed transfer would violate
// conservation (local+remote+locked == deposits). The round freezes.
type BalanceConservationError struct {
	ChannelID [32]byte
	Round     uint64
	Detail    string
}

func (e *BalanceConservationError) Error() string {
	return fmt.Sprintf("balance conservation violated on channel %x round %d: %s",
		e.ChannelID, e.Round, e.Detail)
}

// WrongChannelStateError indicates an operation was requested in a channel
// or bet state that forbids it.
type WrongChannelStateError struct {
	ChannelID [32]byte
	Round     uint64
	State     string
	Operation string
}

func (e *WrongChannelStateError) Error() string {
	if e.Round != 0 {
		return fmt.Sprintf("operation %q invalid for channel %x round %d in state %s",
			e.Operation, e.ChannelID, e.Round, e.State)
	}
	return fmt.Sprintf("operation %q invalid for channel %x in state %s",
		e.Operation, e.ChannelID, e.State)
}

// UnknownChannelError indicates the referenced channel has no local record.
type UnknownChannelError struct {
	ChannelID [32]byte
}

func (e *UnknownChannelError) Error() string {
	return fmt.Sprintf("unknown channel %x", e.ChannelID)
}

// UnknownBetError indicates the referenced (channel, round) or bet id has no
// local record.
type UnknownBetError struct {
	ChannelID [32]byte
	Round     uint64
}

func (e *UnknownBetError) Error() string {
	return fmt.Sprintf("unknown bet: channel %x round %d", e.ChannelID, e.Round)
}

// ChainRejectedError wraps an on-chain transaction revert, preserving the
// revert reason verbatim.
type ChainRejectedError struct {
	ChannelID    [32]byte
	Operation    string
	RevertReason string
	cause        error
}

func NewChainRejectedError(channelID [32]byte, operation, revertReason string, cause error) *ChainRejectedError {
	return &ChainRejectedError{
		ChannelID:    channelID,
		Operation:    operation,
		RevertReason: revertReason,
		cause:        goerrors.Wrap(cause, 1),
	}
}

func (e *ChainRejectedError) Error() string {
	return fmt.Sprintf("chain rejected %s on channel %x: %s", e.Operation, e.ChannelID, e.RevertReason)
}

func (e *ChainRejectedError) Unwrap() error { return e.cause }

// TimeoutError indicates a peer did not respond within the deadline.
type TimeoutError struct {
	ChannelID [32]byte
	Round     uint64
	Waiting   string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for %s on channel %x round %d", e.Waiting, e.ChannelID, e.Round)
}

// FatalReorgError indicates a chain reorg deeper than confirmation depth was
// observed; the caller must halt and reconcile manually.
type FatalReorgError struct {
	ChannelID [32]byte
	Depth     uint64
}

func (e *FatalReorgError) Error() string {
	return fmt.Sprintf("fatal reorg on channel %x: depth %d exceeds confirmation window", e.ChannelID, e.Depth)
}
