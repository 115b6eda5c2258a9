package chainwatch_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/holiman/uint256"

	"github.com/litexio/scnode/chainwatch"
	"github.com/litexio/scnode/chainwatch/chainwatchtest"
	"github.com/litexio/scnode/channeldb"
	"github.com/litexio/scnode/engine"
	"github.com/litexio/scnode/wagererr"
	"github.com/litexio/scnode/wire"
	"github.com/litexio/scnode/xcrypto"
)

// nopTransport discards every outbound message; these tests only exercise
// chain-event reconciliation, never message-triggered auto-responses.
type nopTransport struct{}

func (nopTransport) Send(xcrypto.Address, wire.Message) error { return nil }

func newTestEngine(t *testing.T) (*engine.Engine, xcrypto.Address) {
	t.Helper()
	dir := t.TempDir()
	db, err := channeldb.Open(filepath.Join(dir, "channel.db"), filepath.Join(dir, "bets.db"), btclog.Disabled)
	if err != nil {
		t.Fatalf("unable to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	priv, err := xcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("unable to generate key: %v", err)
	}
	local := xcrypto.PubkeyToAddress(priv.PubKey())

	eng, err := engine.New(engine.Config{
		Store:      db,
		PrivateKey: priv,
		Local:      local,
		Transport:  nopTransport{},
		Events:     engine.NopEventSink{},
		Auto:       engine.DefaultAutoRespond(),
		Log:        btclog.Disabled,
	})
	if err != nil {
		t.Fatalf("unable to build engine: %v", err)
	}
	return eng, local
}

// awaitChannel polls GetChannel until it appears or the deadline expires,
// since the reconciler applies events on its own goroutine.
func awaitChannel(t *testing.T, eng *engine.Engine, channelID [32]byte) *channeldb.Channel {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ch, err := eng.GetChannel(channelID)
		if err == nil && ch != nil {
			return ch
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("channel %x never appeared", channelID)
	return nil
}

func TestReconcilerAppliesChainEvents(t *testing.T) {
	t.Parallel()

	eng, local := newTestEngine(t)
	remote := xcrypto.Address{0xaa}
	paymentContract := xcrypto.Address{0xbb}
	gameContract := xcrypto.Address{0xcc}
	channelID := [32]byte{0x01, 0x02, 0x03}

	client := chainwatchtest.New()
	r := chainwatch.New(eng, client, btclog.Disabled)
	if err := r.Start(); err != nil {
		t.Fatalf("unable to start reconciler: %v", err)
	}
	t.Cleanup(r.Stop)

	client.Emit(&chainwatch.ChainEvent{
		Kind:            chainwatch.EventChannelOpened,
		ChannelID:       channelID,
		Local:           local,
		Remote:          remote,
		PaymentContract: paymentContract,
		GameContract:    gameContract,
		LocalIsP1:       true,
		SettleWindow:    6,
	})

	ch := awaitChannel(t, eng, channelID)
	if ch.Status != channeldb.ChannelStatusOpened {
		t.Fatalf("status = %v, want Opened", ch.Status)
	}
	if ch.Remote != remote {
		t.Fatalf("remote = %x, want %x", ch.Remote, remote)
	}
	if ch.SettleWindow != 6 {
		t.Fatalf("settle window = %d, want 6", ch.SettleWindow)
	}

	deposit := uint256.NewInt(1000)
	client.Emit(&chainwatch.ChainEvent{
		Kind:      chainwatch.EventChannelNewDeposit,
		ChannelID: channelID,
		Depositor: local,
		Amount:    deposit,
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ch, _ = eng.GetChannel(channelID)
		if ch.LocalDeposit != nil && ch.LocalDeposit.Cmp(deposit) == 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if ch.LocalDeposit == nil || ch.LocalDeposit.Cmp(deposit) != 0 {
		t.Fatalf("local deposit = %v, want %v", ch.LocalDeposit, deposit)
	}

	client.Emit(&chainwatch.ChainEvent{
		Kind:         chainwatch.EventChannelClosed,
		ChannelID:    channelID,
		ClosingParty: remote,
	})

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ch, _ = eng.GetChannel(channelID)
		if ch.Status == channeldb.ChannelStatusClosed {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if ch.Status != channeldb.ChannelStatusClosed {
		t.Fatalf("status = %v, want Closed", ch.Status)
	}

	client.Emit(&chainwatch.ChainEvent{
		Kind:      chainwatch.EventNonClosingBalanceProofUpdated,
		ChannelID: channelID,
		Nonce:     3,
	})

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ch, _ = eng.GetChannel(channelID)
		if ch.Status == channeldb.ChannelStatusUpdateBalanceProof {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if ch.Status != channeldb.ChannelStatusUpdateBalanceProof {
		t.Fatalf("status = %v, want UpdateBalanceProof", ch.Status)
	}
	if ch.OnChainNonce != 3 {
		t.Fatalf("on-chain nonce = %d, want 3", ch.OnChainNonce)
	}

	client.Emit(&chainwatch.ChainEvent{
		Kind:      chainwatch.EventChannelSettled,
		ChannelID: channelID,
	})

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ch, _ = eng.GetChannel(channelID)
		if ch.Status == channeldb.ChannelStatusSettled {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if ch.Status != channeldb.ChannelStatusSettled {
		t.Fatalf("status = %v, want Settled", ch.Status)
	}
}

func TestReconcilerFatalReorgInvokesHandler(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	client := chainwatchtest.New()
	r := chainwatch.New(eng, client, btclog.Disabled)

	seen := make(chan *wagererr.FatalReorgError, 1)
	r.SetFatalReorgHandler(func(e *wagererr.FatalReorgError) { seen <- e })

	if err := r.Start(); err != nil {
		t.Fatalf("unable to start reconciler: %v", err)
	}
	t.Cleanup(r.Stop)

	channelID := [32]byte{0x09}
	client.Emit(&chainwatch.ChainEvent{
		Kind:       chainwatch.EventFatalReorg,
		ChannelID:  channelID,
		ReorgDepth: 42,
	})

	select {
	case e := <-seen:
		if e.ChannelID != channelID {
			t.Fatalf("channel id = %x, want %x", e.ChannelID, channelID)
		}
		if e.Depth != 42 {
			t.Fatalf("depth = %d, want 42", e.Depth)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fatal reorg handler never invoked")
	}
}

func TestReconcilerStopAfterStart(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	client := chainwatchtest.New()
	r := chainwatch.New(eng, client, btclog.Disabled)
	if err := r.Start(); err != nil {
		t.Fatalf("unable to start reconciler: %v", err)
	}
	r.Stop()
}
