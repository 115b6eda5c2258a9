package engine

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/litexio/scnode/wire"
	"github.com/litexio/scnode/xcrypto"
)

// requestBufferSize gives enough headroom that a burst of chain-event and
// peer-message arrivals doesn't block their callers on a slow channel
// actor.
const requestBufferSize = 64

// channelActor serialises every mutation to one channel/bet pair behind a
// single goroutine's select loop, keeping the engine logically
// single-threaded per channel.
type channelActor struct {
	channelID [32]byte
	cfg       Config

	// pending holds deferred auto-response closures, keyed by round, when
	// the relevant AutoRespond switch is off. Several switches can freeze
	// the same round at once (e.g. Preimage and DirectTransfer both off
	// after the same BetResponse), so each round queues in order; Approve
	// pops and runs one entry per call.
	pending map[uint64][]func() error

	reqChan chan actorRequest
	quit    chan struct{}
	wg      sync.WaitGroup
}

func newChannelActor(channelID [32]byte, cfg Config) *channelActor {
	return &channelActor{
		channelID: channelID,
		cfg:       cfg,
		pending:   make(map[uint64][]func() error),
		reqChan:   make(chan actorRequest, requestBufferSize),
		quit:      make(chan struct{}),
	}
}

func (a *channelActor) run() {
	a.wg.Add(1)
	defer a.wg.Done()

	for {
		select {
		case req := <-a.reqChan:
			a.dispatch(req)
		case <-a.quit:
			return
		}
	}
}

// actorRequest is the closed set of typed messages a channelActor accepts:
// one struct per request kind, each carrying its own buffered result
// channel.
type actorRequest interface{}

func (a *channelActor) dispatch(req actorRequest) {
	switch r := req.(type) {
	case *startBetReq:
		a.handleStartBet(r)
	case *inboundMsgReq:
		a.handleInboundMessage(r)
	case *approveReq:
		a.handleApprove(r)
	case *coopSettleReq:
		a.handleCoopSettleRequest(r)
	case *chainOpenedReq:
		a.handleChainOpened(r)
	case *chainDepositReq:
		a.handleChainDeposit(r)
	case *chainClosedReq:
		a.handleChainClosed(r)
	case *chainBalanceProofUpdatedReq:
		a.handleChainBalanceProofUpdated(r)
	case *chainUnlockedReq:
		a.handleChainUnlocked(r)
	case *chainSettledReq:
		a.handleChainSettled(r)
	default:
		a.cfg.Log.Errorf("engine: unhandled request type %T for channel %x", req, a.channelID)
	}
}

// --- request kinds -----------------------------------------------------

type startBetReq struct {
	partner      xcrypto.Address
	gameContract xcrypto.Address
	betMask      *uint256.Int
	modulo       uint64
	value        *uint256.Int
	seed         []byte
	result       chan startBetResult
}

type startBetResult struct {
	ok  bool
	err error
}

type inboundMsgReq struct {
	msg    wire.Message
	result chan error
}

type approveReq struct {
	round  uint64
	result chan error
}

type coopSettleReq struct {
	partner xcrypto.Address
	result  chan coopSettleResult
}

type coopSettleResult struct {
	ok  bool
	err error
}

type chainOpenedReq struct {
	local, remote                   xcrypto.Address
	paymentContract, gameContract   xcrypto.Address
	settleWindow                    uint64
	result                          chan error
}

type chainDepositReq struct {
	depositor xcrypto.Address
	amount    *uint256.Int
	result    chan error
}

type chainClosedReq struct {
	closingParty xcrypto.Address
	result       chan error
}

type chainBalanceProofUpdatedReq struct {
	nonce  uint64
	result chan error
}

type chainUnlockedReq struct {
	lockID xcrypto.Hash
	amount *uint256.Int
	result chan error
}

type chainSettledReq struct {
	result chan error
}
