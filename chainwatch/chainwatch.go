// Package chainwatch is the chain event reconciler: it consumes a stream of
// confirmed on-chain events from a ChainClient collaborator and
// demultiplexes each into the matching state transition on engine.Engine.
// It never holds channel state itself.
package chainwatch

import (
	"sync"

	"github.com/btcsuite/btclog"
	"github.com/holiman/uint256"

	"github.com/litexio/scnode/engine"
	"github.com/litexio/scnode/proofs"
	"github.com/litexio/scnode/wagererr"
	"github.com/litexio/scnode/xcrypto"
)

// EventKind enumerates the six confirmed on-chain event kinds, plus a
// reorg-too-deep signal the reconciler surfaces rather than silently
// dispatching a now-invalid event.
type EventKind uint8

const (
	EventChannelOpened EventKind = iota + 1
	EventChannelNewDeposit
	EventChannelClosed
	EventNonClosingBalanceProofUpdated
	EventChannelUnlocked
	EventChannelSettled
	EventFatalReorg
)

// ChainEvent is the normalised representation of one confirmed chain event.
// Only the fields relevant to Kind are populated; the rest are zero.
type ChainEvent struct {
	Kind      EventKind
	ChannelID [32]byte

	// ChannelOpened
	Local, Remote                 xcrypto.Address
	PaymentContract, GameContract xcrypto.Address
	LocalIsP1                     bool
	SettleWindow                  uint64

	// ChannelNewDeposit (Amount is also set for ChannelUnlocked)
	Depositor xcrypto.Address
	Amount    *uint256.Int

	// ChannelClosed
	ClosingParty xcrypto.Address

	// NonClosingBalanceProofUpdated
	Nonce uint64

	// ChannelUnlocked
	LockID xcrypto.Hash

	// FatalReorg
	ReorgDepth uint64
}

// EventSubscription is returned by ChainClient.SubscribeEvents. Events is
// closed when the underlying subscription ends; Cancel releases it early.
type EventSubscription struct {
	Events chan *ChainEvent
	Cancel func()
}

// ChainClient is the consumed blockchain collaborator. The core never talks
// to a node directly: every write is a transaction submission returning a
// tx hash, and every read comes through SubscribeEvents.
type ChainClient interface {
	OpenChannel(from, partner xcrypto.Address, settleWindow uint64, deposit *uint256.Int) (xcrypto.Hash, error)
	Deposit(from, partner xcrypto.Address, amount *uint256.Int) (xcrypto.Hash, error)
	GetChannelIdentifier(partner xcrypto.Address) ([32]byte, error)
	CloseChannel(partner xcrypto.Address, balanceHash xcrypto.Hash, nonce uint64, sig xcrypto.Signature) (xcrypto.Hash, error)
	Settle(proof *proofs.SettleProof) (xcrypto.Hash, error)
	Unlock(from, partner xcrypto.Address, lockID xcrypto.Hash) (xcrypto.Hash, error)
	InitiatorSettle(proof *proofs.InitiatorSettleProof) (xcrypto.Hash, error)
	SubscribeEvents() (*EventSubscription, error)
}

// FatalReorgHandler is invoked once per EventFatalReorg event. Default is a
// no-op; callers needing to halt the process install one via
// Reconciler.SetFatalReorgHandler.
type FatalReorgHandler func(*wagererr.FatalReorgError)

// Reconciler drives one ChainClient event subscription into the matching
// Handle* calls on an Engine, for as long as Start is running.
type Reconciler struct {
	engine *engine.Engine
	client ChainClient
	log    btclog.Logger

	mu       sync.Mutex
	onReorg  FatalReorgHandler
	sub      *EventSubscription
	quit     chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Reconciler. log may be btclog.Disabled.
func New(eng *engine.Engine, client ChainClient, log btclog.Logger) *Reconciler {
	if log == nil {
		log = btclog.Disabled
	}
	return &Reconciler{
		engine:  eng,
		client:  client,
		log:     log,
		onReorg: func(*wagererr.FatalReorgError) {},
		quit:    make(chan struct{}),
	}
}

// SetFatalReorgHandler installs the callback invoked when the chain client
// reports a reorg deeper than its confirmation depth.
func (r *Reconciler) SetFatalReorgHandler(h FatalReorgHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h != nil {
		r.onReorg = h
	}
}

// Start subscribes to the chain client's event stream and begins
// reconciling events into the engine until Stop is called.
func (r *Reconciler) Start() error {
	sub, err := r.client.SubscribeEvents()
	if err != nil {
		return err
	}
	r.sub = sub

	r.wg.Add(1)
	go r.run(sub)
	return nil
}

// Stop cancels the subscription and waits for the reconciliation loop to
// exit.
func (r *Reconciler) Stop() {
	close(r.quit)
	if r.sub != nil {
		r.sub.Cancel()
	}
	r.wg.Wait()
}

func (r *Reconciler) run(sub *EventSubscription) {
	defer r.wg.Done()

	for {
		select {
		case ev, ok := <-sub.Events:
			if !ok {
				return
			}
			r.dispatch(ev)
		case <-r.quit:
			return
		}
	}
}

// dispatch applies one ChainEvent to the engine. Reorgs shallower than
// confirmation depth never reach here - the client only emits events it has
// already finalised; a reorg beyond that depth arrives tagged
// EventFatalReorg instead of a retracted event.
func (r *Reconciler) dispatch(ev *ChainEvent) {
	var err error
	switch ev.Kind {
	case EventChannelOpened:
		err = r.engine.HandleChannelOpened(ev.ChannelID, ev.Local, ev.Remote, ev.PaymentContract, ev.GameContract, ev.LocalIsP1, ev.SettleWindow)
	case EventChannelNewDeposit:
		err = r.engine.HandleNewDeposit(ev.ChannelID, ev.Depositor, ev.Amount)
	case EventChannelClosed:
		err = r.engine.HandleChannelClosed(ev.ChannelID, ev.ClosingParty)
	case EventNonClosingBalanceProofUpdated:
		err = r.engine.HandleNonClosingBalanceProofUpdated(ev.ChannelID, ev.Nonce)
	case EventChannelUnlocked:
		err = r.engine.HandleChannelUnlocked(ev.ChannelID, ev.LockID, ev.Amount)
	case EventChannelSettled:
		err = r.engine.HandleChannelSettled(ev.ChannelID)
	case EventFatalReorg:
		r.mu.Lock()
		handler := r.onReorg
		r.mu.Unlock()
		handler(&wagererr.FatalReorgError{ChannelID: ev.ChannelID, Depth: ev.ReorgDepth})
		return
	default:
		r.log.Errorf("chainwatch: unrecognised event kind %d for channel %x", ev.Kind, ev.ChannelID)
		return
	}
	if err != nil {
		r.log.Errorf("chainwatch: reconciling event kind %d for channel %x: %v", ev.Kind, ev.ChannelID, err)
	}
}
