package proofs

import (
	"testing"

	"github.com/btcsuite/btcd/btcec"
	"github.com/holiman/uint256"

	"github.com/litexio/scnode/channeldb"
	"github.com/litexio/scnode/wagererr"
	"github.com/litexio/scnode/wire"
	"github.com/litexio/scnode/xcrypto"
)

// mockReader is an in-memory ChannelReader fake driven directly by test
// code.
type mockReader struct {
	channels map[[32]byte]*channeldb.Channel
	bets     map[[32]byte]map[uint64]*channeldb.Bet
}

func newMockReader() *mockReader {
	return &mockReader{
		channels: make(map[[32]byte]*channeldb.Channel),
		bets:     make(map[[32]byte]map[uint64]*channeldb.Bet),
	}
}

func (m *mockReader) GetChannel(id [32]byte) (*channeldb.Channel, error) {
	c, ok := m.channels[id]
	if !ok {
		return nil, &wagererr.UnknownChannelError{ChannelID: id}
	}
	return c, nil
}

func (m *mockReader) GetBet(channelID [32]byte, round uint64) (*channeldb.Bet, error) {
	byRound, ok := m.bets[channelID]
	if !ok {
		return nil, &wagererr.UnknownBetError{ChannelID: channelID, Round: round}
	}
	b, ok := byRound[round]
	if !ok {
		return nil, &wagererr.UnknownBetError{ChannelID: channelID, Round: round}
	}
	return b, nil
}

func (m *mockReader) GetBetByID(id [32]byte) (*channeldb.Bet, error) {
	for _, byRound := range m.bets {
		for _, b := range byRound {
			if b.BetID == id {
				return b, nil
			}
		}
	}
	return nil, &wagererr.UnknownBetError{}
}

func mustKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	priv, err := xcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return priv
}

func TestBuildCloseProofUsesLatestRemoteProof(t *testing.T) {
	t.Parallel()
	reader := newMockReader()
	priv := mustKey(t)

	var channelID [32]byte
	channelID[0] = 0x01
	lockID := xcrypto.Keccak256([]byte("lock"))
	lt, err := wire.NewLockedTransfer(channelID, xcrypto.Address{}, 5, uint256.NewInt(0), uint256.NewInt(100), lockID, priv)
	if err != nil {
		t.Fatalf("new locked transfer: %v", err)
	}

	reader.channels[channelID] = &channeldb.Channel{
		ChannelID: channelID,
		Status:    channeldb.ChannelStatusOpened,
		LatestRemoteBalanceProof: &channeldb.BalanceProof{
			Nonce:             lt.Nonce,
			TransferredAmount: lt.TransferredAmount,
			LockedAmount:      lt.LockedAmount,
			LockID:            lt.LockID,
			Signature:         lt.Signature,
		},
	}

	asm := New(reader, nil)
	proof, err := asm.BuildCloseProof(channelID)
	if err != nil {
		t.Fatalf("build close proof: %v", err)
	}
	if proof.Nonce != 5 {
		t.Fatalf("expected nonce 5, got %d", proof.Nonce)
	}
	wantHash := balanceHash(lt.TransferredAmount, lt.LockedAmount, lt.LockID)
	if proof.BalanceHash != wantHash {
		t.Fatalf("balance hash mismatch")
	}
}

func TestBuildCloseProofRejectsStaleOnChainNonce(t *testing.T) {
	t.Parallel()
	reader := newMockReader()

	var channelID [32]byte
	channelID[0] = 0x02
	reader.channels[channelID] = &channeldb.Channel{
		ChannelID:    channelID,
		OnChainNonce: 10,
		LatestRemoteBalanceProof: &channeldb.BalanceProof{
			Nonce:             10,
			TransferredAmount: uint256.NewInt(0),
			LockedAmount:      uint256.NewInt(0),
		},
	}

	asm := New(reader, nil)
	_, err := asm.BuildCloseProof(channelID)
	if _, ok := err.(*wagererr.StaleNonceError); !ok {
		t.Fatalf("expected StaleNonceError, got %v", err)
	}
}

func TestBuildCloseProofRejectsWithoutRemoteProof(t *testing.T) {
	t.Parallel()
	reader := newMockReader()

	var channelID [32]byte
	channelID[0] = 0x03
	reader.channels[channelID] = &channeldb.Channel{ChannelID: channelID, Status: channeldb.ChannelStatusOpened}

	asm := New(reader, nil)
	_, err := asm.BuildCloseProof(channelID)
	if _, ok := err.(*wagererr.WrongChannelStateError); !ok {
		t.Fatalf("expected WrongChannelStateError, got %v", err)
	}
}

func TestBuildCooperativeSettleProofRoundTrip(t *testing.T) {
	t.Parallel()
	reader := newMockReader()
	privA, privB := mustKey(t), mustKey(t)

	var channelID [32]byte
	channelID[0] = 0x04
	p1 := xcrypto.Address{1}
	p2 := xcrypto.Address{2}

	req, err := wire.NewCooperativeSettleRequest(channelID, p1, uint256.NewInt(900), p2, uint256.NewInt(1100), privA)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := wire.NewCooperativeSettleResponse(req, privB)
	if err != nil {
		t.Fatalf("new response: %v", err)
	}

	asm := New(reader, nil)
	proof, err := asm.BuildCooperativeSettleProof(req, resp)
	if err != nil {
		t.Fatalf("build cooperative settle proof: %v", err)
	}
	if proof.P1Balance.Cmp(uint256.NewInt(900)) != 0 || proof.P2Balance.Cmp(uint256.NewInt(1100)) != 0 {
		t.Fatalf("unexpected balances in proof: %+v", proof)
	}
}

func TestBuildCooperativeSettleProofRejectsMismatch(t *testing.T) {
	t.Parallel()
	reader := newMockReader()
	privA, privB := mustKey(t), mustKey(t)

	var channelID [32]byte
	channelID[0] = 0x05
	p1, p2 := xcrypto.Address{1}, xcrypto.Address{2}

	req, _ := wire.NewCooperativeSettleRequest(channelID, p1, uint256.NewInt(900), p2, uint256.NewInt(1100), privA)
	resp := &wire.CooperativeSettleResponse{
		ChannelID: channelID, P1: p1, P1Balance: uint256.NewInt(800), P2: p2, P2Balance: uint256.NewInt(1200),
	}
	sig, _ := xcrypto.Sign(resp.SigningHash(), privB)
	resp.Signature = sig

	asm := New(reader, nil)
	if _, err := asm.BuildCooperativeSettleProof(req, resp); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestBuildSettleProofOrdersByAddress(t *testing.T) {
	t.Parallel()
	reader := newMockReader()

	var channelID [32]byte
	channelID[0] = 0x06
	lo := xcrypto.Address{1}
	hi := xcrypto.Address{2}

	reader.channels[channelID] = &channeldb.Channel{
		ChannelID: channelID,
		Local:     hi,
		Remote:    lo,
		Status:    channeldb.ChannelStatusClosed,
		LocalCloseSnapshot: &channeldb.CloseSnapshot{
			TransferredAmount: uint256.NewInt(900), LockedAmount: uint256.NewInt(0),
		},
		RemoteCloseSnapshot: &channeldb.CloseSnapshot{
			TransferredAmount: uint256.NewInt(1100), LockedAmount: uint256.NewInt(0),
		},
	}

	asm := New(reader, nil)
	proof, err := asm.BuildSettleProof(channelID)
	if err != nil {
		t.Fatalf("build settle proof: %v", err)
	}
	if proof.P1 != lo || proof.P2 != hi {
		t.Fatalf("expected p1=%x (lower) p2=%x (higher), got p1=%x p2=%x", lo, hi, proof.P1, proof.P2)
	}
	if proof.P1Transferred.Cmp(uint256.NewInt(1100)) != 0 {
		t.Fatalf("p1 (remote/lo) should carry the remote snapshot's transferred amount")
	}
}

func TestBuildInitiatorSettleProofRequiresKnownPreimage(t *testing.T) {
	t.Parallel()
	reader := newMockReader()

	var channelID [32]byte
	channelID[0] = 0x07
	reader.bets[channelID] = map[uint64]*channeldb.Bet{
		1: {
			ChannelID: channelID, Round: 1, Status: channeldb.BetStatusStart,
			BetMask: uint256.NewInt(0x3F), Modulo: 6,
		},
	}

	asm := New(reader, nil)
	if _, err := asm.BuildInitiatorSettleProof(channelID, 1); err == nil {
		t.Fatalf("expected error when Ra is not locally known")
	}

	reader.bets[channelID][1].RInitiator = [32]byte{0xAA}
	proof, err := asm.BuildInitiatorSettleProof(channelID, 1)
	if err != nil {
		t.Fatalf("build initiator settle proof: %v", err)
	}
	if proof.Round != 1 {
		t.Fatalf("unexpected round %d", proof.Round)
	}
}
