// Package client is the public API facade: the single entry point an
// application embeds to open channels, run bet rounds, and close out - an
// aggregate holding references to every other component, plus the event
// subscription registry.
//
// client.Client never gets handed back into proofs.Assembler or
// chainwatch.Reconciler: both of those are built from narrow read-only
// capabilities (proofs.ChannelReader, chainwatch.ChainClient) so there is
// no cyclic reference back to this package.
package client

import (
	"sync"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btclog"
	"github.com/holiman/uint256"

	"github.com/litexio/scnode/chainwatch"
	"github.com/litexio/scnode/channeldb"
	"github.com/litexio/scnode/engine"
	"github.com/litexio/scnode/proofs"
	"github.com/litexio/scnode/wagererr"
	"github.com/litexio/scnode/wire"
	"github.com/litexio/scnode/xcrypto"
)

// Config bundles everything a Client needs at construction: the store and
// chain collaborator, the local signing key and participant address, and
// the policy knobs the engine is built with.
type Config struct {
	Store      *channeldb.DB
	Chain      chainwatch.ChainClient
	PrivateKey *btcec.PrivateKey
	Local      xcrypto.Address
	Transport  engine.Transport
	Auto       engine.AutoRespond
	Log        btclog.Logger
}

// Client is the public facade: one Engine, one Assembler, one Reconciler,
// and the subscriber registry, all wired together over the same store.
type Client struct {
	cfg    Config
	engine *engine.Engine
	proofs *proofs.Assembler
	watch  *chainwatch.Reconciler
	log    btclog.Logger

	mu   sync.Mutex
	subs map[string]func(engine.Event)
}

// New wires a Client's collaborators together and starts its chain
// reconciler. The returned Client's Engine receives every chain event the
// Chain collaborator reports for as long as the Client is running; callers
// must call Stop to release both.
func New(cfg Config) (*Client, error) {
	if cfg.Log == nil {
		cfg.Log = btclog.Disabled
	}

	c := &Client{cfg: cfg, log: cfg.Log, subs: make(map[string]func(engine.Event))}

	eng, err := engine.New(engine.Config{
		Store:      cfg.Store,
		PrivateKey: cfg.PrivateKey,
		Local:      cfg.Local,
		Transport:  cfg.Transport,
		Events:     c,
		Auto:       cfg.Auto,
		Log:        cfg.Log,
	})
	if err != nil {
		return nil, err
	}
	c.engine = eng
	c.proofs = proofs.New(cfg.Store, cfg.Log)

	if cfg.Chain != nil {
		c.watch = chainwatch.New(eng, cfg.Chain, cfg.Log)
		if err := c.watch.Start(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Stop releases the chain reconciler and every channel actor. Safe to call
// once; a Client is not reusable afterward.
func (c *Client) Stop() {
	if c.watch != nil {
		c.watch.Stop()
	}
	c.engine.Stop()
}

// SetFatalReorgHandler installs the callback invoked when the chain
// collaborator reports a reorg deeper than its confirmation depth.
// A no-op until a chain collaborator was configured.
func (c *Client) SetFatalReorgHandler(h chainwatch.FatalReorgHandler) {
	if c.watch != nil {
		c.watch.SetFatalReorgHandler(h)
	}
}

// On registers cb under name, replacing any previous registration:
// exactly one callback per event name, last registration wins. Passing a
// nil cb deregisters name.
func (c *Client) On(name string, cb func(engine.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb == nil {
		delete(c.subs, name)
		return
	}
	c.subs[name] = cb
}

// Emit implements engine.EventSink: every event the engine fans out is
// delivered synchronously to whichever single callback is currently
// registered for its name, if any.
func (c *Client) Emit(e engine.Event) {
	c.mu.Lock()
	cb := c.subs[e.Name]
	c.mu.Unlock()
	if cb != nil {
		cb(e)
	}
}

// OpenChannel submits channel funding on-chain and returns the
// submission's transaction hash; the channel record itself
// only materialises once the Chain collaborator reports the confirmed
// ChannelOpened event back through the reconciler.
func (c *Client) OpenChannel(partner xcrypto.Address, settleWindow uint64, deposit *uint256.Int) (xcrypto.Hash, error) {
	if c.cfg.Chain == nil {
		return xcrypto.Hash{}, &wagererr.WrongChannelStateError{Operation: "open_channel (no chain collaborator configured)"}
	}
	return c.cfg.Chain.OpenChannel(c.cfg.Local, partner, settleWindow, deposit)
}

// Deposit submits an additional on-chain deposit into an already-open
// channel.
func (c *Client) Deposit(partner xcrypto.Address, amount *uint256.Int) (xcrypto.Hash, error) {
	if c.cfg.Chain == nil {
		return xcrypto.Hash{}, &wagererr.WrongChannelStateError{Operation: "deposit (no chain collaborator configured)"}
	}
	return c.cfg.Chain.Deposit(c.cfg.Local, partner, amount)
}

// StartBet begins a new bet round on channelID. seed may be nil to let Ra
// be drawn from the CSPRNG.
func (c *Client) StartBet(channelID [32]byte, partner xcrypto.Address, gameContract xcrypto.Address,
	betMask *uint256.Int, modulo uint64, value *uint256.Int, seed []byte) (bool, error) {
	return c.engine.StartBet(channelID, partner, gameContract, betMask, modulo, value, seed)
}

// HandleMessage feeds one inbound wire message into the engine, normally
// driven by a Transport implementation's receive loop rather than called
// directly.
func (c *Client) HandleMessage(msg wire.Message) error {
	return c.engine.HandleMessage(msg)
}

// Approve resumes a round frozen awaiting manual approval.
func (c *Client) Approve(channelID [32]byte, round uint64) error {
	return c.engine.Approve(channelID, round)
}

// RequestCooperativeSettle proposes the channel's current balances as
// final, starting the cooperative close negotiation.
func (c *Client) RequestCooperativeSettle(channelID [32]byte, partner xcrypto.Address) (bool, error) {
	return c.engine.RequestCooperativeSettle(channelID, partner)
}

// CloseChannel submits a unilateral close using the last accepted remote
// balance-bearing message.
func (c *Client) CloseChannel(channelID [32]byte, partner xcrypto.Address) (xcrypto.Hash, error) {
	if c.cfg.Chain == nil {
		return xcrypto.Hash{}, &wagererr.WrongChannelStateError{ChannelID: channelID, Operation: "close_channel (no chain collaborator configured)"}
	}
	proof, err := c.proofs.BuildCloseProof(channelID)
	if err != nil {
		return xcrypto.Hash{}, err
	}
	return c.cfg.Chain.CloseChannel(partner, proof.BalanceHash, proof.Nonce, proof.Signature)
}

// CloseChannelCooperative assembles the co-signed proof from the completed
// negotiation and submits the cooperative settle path on-chain directly via
// Settle, bypassing the dispute window entirely.
func (c *Client) CloseChannelCooperative(channelID [32]byte) (xcrypto.Hash, error) {
	if c.cfg.Chain == nil {
		return xcrypto.Hash{}, &wagererr.WrongChannelStateError{ChannelID: channelID, Operation: "close_channel_cooperative (no chain collaborator configured)"}
	}
	ch, err := c.cfg.Store.GetChannel(channelID)
	if err != nil {
		return xcrypto.Hash{}, err
	}
	if ch.PendingCoopSettleRequest == nil || ch.PendingCoopSettleResponse == nil {
		return xcrypto.Hash{}, &wagererr.WrongChannelStateError{
			ChannelID: channelID, State: ch.Status.String(), Operation: "close_channel_cooperative",
		}
	}
	coop, err := c.proofs.BuildCooperativeSettleProof(ch.PendingCoopSettleRequest, ch.PendingCoopSettleResponse)
	if err != nil {
		return xcrypto.Hash{}, err
	}
	return c.cfg.Chain.Settle(&proofs.SettleProof{
		P1: coop.P1, P1Transferred: coop.P1Balance, P1Locked: uint256.NewInt(0),
		P2: coop.P2, P2Transferred: coop.P2Balance, P2Locked: uint256.NewInt(0),
	})
}

// SettleChannel submits the settle tuple from both sides' close-time
// snapshots, paying out the final balances on-chain.
func (c *Client) SettleChannel(channelID [32]byte) (xcrypto.Hash, error) {
	if c.cfg.Chain == nil {
		return xcrypto.Hash{}, &wagererr.WrongChannelStateError{ChannelID: channelID, Operation: "settle_channel (no chain collaborator configured)"}
	}
	proof, err := c.proofs.BuildSettleProof(channelID)
	if err != nil {
		return xcrypto.Hash{}, err
	}
	return c.cfg.Chain.Settle(proof)
}

// UnlockChannel resolves a specific open lock post-settle.
func (c *Client) UnlockChannel(channelID [32]byte, partner xcrypto.Address, lockID xcrypto.Hash) (xcrypto.Hash, error) {
	if c.cfg.Chain == nil {
		return xcrypto.Hash{}, &wagererr.WrongChannelStateError{ChannelID: channelID, Operation: "unlock_channel (no chain collaborator configured)"}
	}
	return c.cfg.Chain.Unlock(c.cfg.Local, partner, lockID)
}

// InitiatorSettle submits the dispute proof that deterministically resolves
// one disputed bet round from the initiator's locally known preimage.
func (c *Client) InitiatorSettle(channelID [32]byte, round uint64) (xcrypto.Hash, error) {
	if c.cfg.Chain == nil {
		return xcrypto.Hash{}, &wagererr.WrongChannelStateError{ChannelID: channelID, Round: round, Operation: "initiator_settle (no chain collaborator configured)"}
	}
	proof, err := c.proofs.BuildInitiatorSettleProof(channelID, round)
	if err != nil {
		return xcrypto.Hash{}, err
	}
	return c.cfg.Chain.InitiatorSettle(proof)
}

// GetAllChannels returns every channel record this participant holds.
func (c *Client) GetAllChannels() ([]*channeldb.Channel, error) {
	return c.engine.GetAllChannels()
}

// GetChannel returns the full channel record for channelID.
func (c *Client) GetChannel(channelID [32]byte) (*channeldb.Channel, error) {
	return c.engine.GetChannel(channelID)
}

// GetAllBets lists bets matching filter, paginated.
func (c *Client) GetAllBets(filter channeldb.BetFilter, offset, limit int) ([]*channeldb.Bet, error) {
	return c.engine.GetAllBets(filter, offset, limit)
}

// GetBetByID returns a single bet by its derived identifier.
func (c *Client) GetBetByID(betID [32]byte) (*channeldb.Bet, error) {
	return c.engine.GetBetByID(betID)
}

// GetBet returns a single bet by (channelID, round).
func (c *Client) GetBet(channelID [32]byte, round uint64) (*channeldb.Bet, error) {
	return c.engine.GetBet(channelID, round)
}

var _ engine.EventSink = (*Client)(nil)
