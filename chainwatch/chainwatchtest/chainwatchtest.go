// Package chainwatchtest provides a deterministic in-memory fake of
// chainwatch.ChainClient, driven directly by test code rather than a
// mocking framework.
package chainwatchtest

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/litexio/scnode/chainwatch"
	"github.com/litexio/scnode/proofs"
	"github.com/litexio/scnode/xcrypto"
)

// Call records one method invocation against FakeChainClient, for tests that
// assert on what the engine actually submitted on-chain.
type Call struct {
	Method string
	Args   []interface{}
}

// FakeChainClient implements chainwatch.ChainClient entirely in memory.
// Tests drive it by calling Emit to push a confirmed event, and by reading
// Calls to see every transaction the code under test submitted.
type FakeChainClient struct {
	mu      sync.Mutex
	calls   []Call
	nextTx  uint64
	nextID  uint64
	channel map[xcrypto.Address][32]byte

	events chan *chainwatch.ChainEvent
}

// New returns a ready-to-use fake with its event channel open.
func New() *FakeChainClient {
	return &FakeChainClient{
		channel: make(map[xcrypto.Address][32]byte),
		events:  make(chan *chainwatch.ChainEvent, 64),
	}
}

func (f *FakeChainClient) record(method string, args ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: method, Args: args})
}

// Calls returns every call recorded so far, in order.
func (f *FakeChainClient) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeChainClient) nextTxHash() xcrypto.Hash {
	f.mu.Lock()
	f.nextTx++
	n := f.nextTx
	f.mu.Unlock()
	return xcrypto.Keccak256(xcrypto.PackUint64(n))
}

func (f *FakeChainClient) OpenChannel(from, partner xcrypto.Address, settleWindow uint64, deposit *uint256.Int) (xcrypto.Hash, error) {
	f.record("OpenChannel", from, partner, settleWindow, deposit)

	f.mu.Lock()
	f.nextID++
	id := xcrypto.Keccak256(xcrypto.PackAddress(from), xcrypto.PackAddress(partner), xcrypto.PackUint64(f.nextID))
	f.channel[from] = [32]byte(id)
	f.channel[partner] = [32]byte(id)
	f.mu.Unlock()

	return f.nextTxHash(), nil
}

func (f *FakeChainClient) Deposit(from, partner xcrypto.Address, amount *uint256.Int) (xcrypto.Hash, error) {
	f.record("Deposit", from, partner, amount)
	return f.nextTxHash(), nil
}

func (f *FakeChainClient) GetChannelIdentifier(partner xcrypto.Address) ([32]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channel[partner], nil
}

func (f *FakeChainClient) CloseChannel(partner xcrypto.Address, balanceHash xcrypto.Hash, nonce uint64, sig xcrypto.Signature) (xcrypto.Hash, error) {
	f.record("CloseChannel", partner, balanceHash, nonce, sig)
	return f.nextTxHash(), nil
}

func (f *FakeChainClient) Settle(proof *proofs.SettleProof) (xcrypto.Hash, error) {
	f.record("Settle", proof)
	return f.nextTxHash(), nil
}

func (f *FakeChainClient) Unlock(from, partner xcrypto.Address, lockID xcrypto.Hash) (xcrypto.Hash, error) {
	f.record("Unlock", from, partner, lockID)
	return f.nextTxHash(), nil
}

func (f *FakeChainClient) InitiatorSettle(proof *proofs.InitiatorSettleProof) (xcrypto.Hash, error) {
	f.record("InitiatorSettle", proof)
	return f.nextTxHash(), nil
}

// SubscribeEvents returns a subscription backed by the fake's own event
// channel; Emit feeds it.
func (f *FakeChainClient) SubscribeEvents() (*chainwatch.EventSubscription, error) {
	return &chainwatch.EventSubscription{
		Events: f.events,
		Cancel: func() {},
	}, nil
}

// Emit pushes ev onto the subscription channel as though the chain had just
// confirmed it.
func (f *FakeChainClient) Emit(ev *chainwatch.ChainEvent) {
	f.events <- ev
}

// Close shuts down the event channel; a subsequent receive on any
// subscription returned earlier observes closure.
func (f *FakeChainClient) Close() {
	close(f.events)
}

var _ chainwatch.ChainClient = (*FakeChainClient)(nil)
