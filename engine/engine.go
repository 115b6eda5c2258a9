// Package engine is the protocol engine: two interleaved state machines
// (channel, bet-round) driving auto-responses and reconciling chain events
// with local state.
//
// Serialisation is per channel, not global: one channelActor goroutine per
// open channel drains a buffered queue of typed request structs, so all
// mutations to one channel/bet pair happen in sequence while distinct
// channels never block on each other.
package engine

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btclog"
	"github.com/holiman/uint256"

	"github.com/litexio/scnode/channeldb"
	"github.com/litexio/scnode/wire"
	"github.com/litexio/scnode/xcrypto"
)

// Config is the shared, read-only configuration every channelActor is built
// from. Proof assembly (close/settle/initiator-settle) is a C7 concern
// layered on top in package client, not something the engine itself needs -
// it only drives message- and chain-event-triggered state transitions.
type Config struct {
	Store      *channeldb.DB
	PrivateKey *btcec.PrivateKey
	Local      xcrypto.Address
	Transport  Transport
	Events     EventSink
	Auto       AutoRespond
	Log        btclog.Logger
}

// Engine owns one channelActor per open channel and routes requests to the
// right one, so distinct channels' mutations never interleave with or block
// on each other.
type Engine struct {
	cfg Config

	mu     sync.Mutex
	actors map[[32]byte]*channelActor
}

// New constructs an Engine. cfg.Auto defaults to DefaultAutoRespond if the
// zero value is passed.
func New(cfg Config) (*Engine, error) {
	if cfg.Events == nil {
		cfg.Events = NopEventSink{}
	}
	if cfg.Log == nil {
		cfg.Log = btclog.Disabled
	}
	if cfg.Auto == (AutoRespond{}) {
		cfg.Auto = DefaultAutoRespond()
	}
	if err := cfg.Auto.validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, actors: make(map[[32]byte]*channelActor)}, nil
}

// actorFor returns the actor for channelID, starting one on first use.
func (e *Engine) actorFor(channelID [32]byte) *channelActor {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.actors[channelID]
	if !ok {
		a = newChannelActor(channelID, e.cfg)
		e.actors[channelID] = a
		go a.run()
	}
	return a
}

// Stop shuts down every channel actor. Outstanding requests in flight at
// the time of the call are allowed to finish; no new request is accepted
// afterward.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range e.actors {
		close(a.quit)
	}
	for _, a := range e.actors {
		a.wg.Wait()
	}
}

// StartBet is the local initiator action that begins a round: builds and
// signs a BetRequest, persists the round, and emits it to partner.
func (e *Engine) StartBet(channelID [32]byte, partner xcrypto.Address, gameContract xcrypto.Address,
	betMask *uint256.Int, modulo uint64, value *uint256.Int, seed []byte) (bool, error) {

	req := &startBetReq{
		partner: partner, gameContract: gameContract,
		betMask: betMask, modulo: modulo, value: value, seed: seed,
		result: make(chan startBetResult, 1),
	}
	a := e.actorFor(channelID)
	a.reqChan <- req
	res := <-req.result
	return res.ok, res.err
}

// HandleMessage dispatches an inbound wire message into the owning
// channel's actor. Unknown message kinds are rejected as a protocol error,
// never silently ignored.
func (e *Engine) HandleMessage(msg wire.Message) error {
	channelID, ok := channelIDOf(msg)
	if !ok {
		return fmt.Errorf("engine: message kind %s has no channel binding", msg.Type())
	}

	req := &inboundMsgReq{msg: msg, result: make(chan error, 1)}
	a := e.actorFor(channelID)
	a.reqChan <- req
	return <-req.result
}

// Approve resumes a round that froze awaiting manual approval because the
// relevant AutoRespond switch was off.
func (e *Engine) Approve(channelID [32]byte, round uint64) error {
	req := &approveReq{round: round, result: make(chan error, 1)}
	a := e.actorFor(channelID)
	a.reqChan <- req
	return <-req.result
}

// RequestCooperativeSettle builds, signs and emits a CooperativeSettleRequest
// proposing the channel's current local/remote balances as final.
func (e *Engine) RequestCooperativeSettle(channelID [32]byte, partner xcrypto.Address) (bool, error) {
	req := &coopSettleReq{partner: partner, result: make(chan coopSettleResult, 1)}
	a := e.actorFor(channelID)
	a.reqChan <- req
	res := <-req.result
	return res.ok, res.err
}

func channelIDOf(msg wire.Message) ([32]byte, bool) {
	switch m := msg.(type) {
	case *wire.BetRequest:
		return m.ChannelID, true
	case *wire.BetResponse:
		return m.ChannelID, true
	case *wire.LockedTransfer:
		return m.ChannelID, true
	case *wire.LockedTransferR:
		return m.ChannelID, true
	case *wire.DirectTransfer:
		return m.ChannelID, true
	case *wire.DirectTransferR:
		return m.ChannelID, true
	case *wire.Preimage:
		return m.ChannelID, true
	case *wire.CooperativeSettleRequest:
		return m.ChannelID, true
	case *wire.CooperativeSettleResponse:
		return m.ChannelID, true
	default:
		return [32]byte{}, false
	}
}

// GetChannel, GetAllChannels, GetBet, GetBetByID, and GetAllBets are direct,
// synchronous store reads: a read of a single record needs no actor
// serialisation, only the store's own per-record atomicity.
func (e *Engine) GetChannel(channelID [32]byte) (*channeldb.Channel, error) {
	return e.cfg.Store.GetChannel(channelID)
}

func (e *Engine) GetAllChannels() ([]*channeldb.Channel, error) {
	return e.cfg.Store.ListChannels()
}

func (e *Engine) GetBet(channelID [32]byte, round uint64) (*channeldb.Bet, error) {
	return e.cfg.Store.GetBet(channelID, round)
}

func (e *Engine) GetBetByID(betID [32]byte) (*channeldb.Bet, error) {
	return e.cfg.Store.GetBetByID(betID)
}

func (e *Engine) GetAllBets(filter channeldb.BetFilter, offset, limit int) ([]*channeldb.Bet, error) {
	return e.cfg.Store.ListBets(filter, offset, limit)
}

// The chain event requests (chainOpenedReq through chainSettledReq) are
// defined in actor.go beside the other actorRequest variants; chainevents.go
// holds the Engine methods that enqueue them.
