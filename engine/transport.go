package engine

import (
	"github.com/litexio/scnode/wire"
	"github.com/litexio/scnode/xcrypto"
)

// Transport is the consumed message bus collaborator. The engine neither
// assumes delivery guarantees nor ordering across distinct channels, but
// requires in-order, reliable delivery to a single peer within one
// channel's session - what transport/wsbus provides over a websocket.
type Transport interface {
	Send(to xcrypto.Address, msg wire.Message) error
}

// AutoRespond gates whether the engine replies immediately on receipt of
// each balance-bearing or reveal message, or freezes the round for the API
// caller to approve via Engine.Approve. All seven switches default to true.
type AutoRespond struct {
	LockedTransfer            bool
	LockedTransferR           bool
	BetResponse               bool
	Preimage                  bool
	DirectTransfer            bool
	DirectTransferR           bool
	CooperativeSettleResponse bool
}

// DefaultAutoRespond returns the all-auto policy.
func DefaultAutoRespond() AutoRespond {
	return AutoRespond{
		LockedTransfer:            true,
		LockedTransferR:           true,
		BetResponse:               true,
		Preimage:                  true,
		DirectTransfer:            true,
		DirectTransferR:           true,
		CooperativeSettleResponse: true,
	}
}

// validate is a no-op today. Inconsistent-looking combinations (e.g.
// auto-respond to Preimage but not LockedTransfer) are deliberately
// allowed: any "off" switch already freezes the round at that exact point
// with no further effect from later switches, so there is no combination
// that corrupts state, only ones that freeze earlier than a caller might
// expect. Note the zero value is not an all-off policy: New treats it as
// "use the defaults", so gating everything on Approve requires leaving at
// least one switch on.
func (a AutoRespond) validate() error { return nil }
