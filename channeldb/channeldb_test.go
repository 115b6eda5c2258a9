package channeldb

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/holiman/uint256"
	"github.com/litexio/scnode/wagererr"
	"github.com/litexio/scnode/xcrypto"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "channel.db"), filepath.Join(dir, "bets.db"), btclog.Disabled)
	if err != nil {
		t.Fatalf("unable to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestChannelPutGetRoundTrip(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	var id [32]byte
	id[0] = 0xAB
	c := &Channel{
		ChannelID:     id,
		Local:         xcrypto.Address{1},
		Remote:        xcrypto.Address{2},
		Status:        ChannelStatusOpened,
		LocalBalance:  uint256.NewInt(1000),
		RemoteBalance: uint256.NewInt(1000),
		LocalDeposit:  uint256.NewInt(1000),
		RemoteDeposit: uint256.NewInt(1000),
		SettleWindow:  DefaultSettleWindow,
	}

	if err := db.PutChannel(c); err != nil {
		t.Fatalf("put channel: %v", err)
	}
	got, err := db.GetChannel(id)
	if err != nil {
		t.Fatalf("get channel: %v", err)
	}
	if got.ChannelID != id || got.Status != ChannelStatusOpened {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.LocalBalance.Cmp(c.LocalBalance) != 0 {
		t.Fatalf("balance mismatch after round trip")
	}
	if !got.CheckConservation() {
		t.Fatalf("expected conservation to hold for freshly opened channel")
	}
}

func TestGetChannelUnknown(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	var id [32]byte
	_, err := db.GetChannel(id)
	if _, ok := err.(*wagererr.UnknownChannelError); !ok {
		t.Fatalf("expected UnknownChannelError, got %v", err)
	}
}

func TestListChannels(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	for i := byte(0); i < 3; i++ {
		var id [32]byte
		id[0] = i
		c := &Channel{
			ChannelID:     id,
			Status:        ChannelStatusOpened,
			LocalBalance:  uint256.NewInt(0),
			RemoteBalance: uint256.NewInt(0),
			LocalDeposit:  uint256.NewInt(0),
			RemoteDeposit: uint256.NewInt(0),
		}
		if err := db.PutChannel(c); err != nil {
			t.Fatalf("put channel %d: %v", i, err)
		}
	}

	got, err := db.ListChannels()
	if err != nil {
		t.Fatalf("list channels: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 channels, got %d", len(got))
	}
}

func TestBetPutGetAndListWithFilter(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	var channelID [32]byte
	channelID[0] = 0x01
	initiator := xcrypto.Address{9}

	for round := uint64(1); round <= 3; round++ {
		b := &Bet{
			BetID:     BetIDFor(channelID, round),
			ChannelID: channelID,
			Round:     round,
			BetMask:   uint256.NewInt(0x3F),
			Modulo:    64,
			Value:     uint256.NewInt(100),
			Initiator: initiator,
			Status:    BetStatusFinish,
		}
		if err := db.PutBet(b); err != nil {
			t.Fatalf("put bet round %d: %v", round, err)
		}
	}

	got, err := db.GetBet(channelID, 2)
	if err != nil {
		t.Fatalf("get bet: %v", err)
	}
	if got.Round != 2 {
		t.Fatalf("expected round 2, got %d", got.Round)
	}

	byID, err := db.GetBetByID(got.BetID)
	if err != nil {
		t.Fatalf("get bet by id: %v", err)
	}
	if byID.Round != 2 {
		t.Fatalf("expected round 2 via bet id lookup, got %d", byID.Round)
	}

	status := BetStatusFinish
	list, err := db.ListBets(BetFilter{ChannelID: &channelID, Status: &status}, 0, 2)
	if err != nil {
		t.Fatalf("list bets: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 bets with limit 2, got %d", len(list))
	}
	if list[0].Round != 1 || list[1].Round != 2 {
		t.Fatalf("expected ordered rounds 1,2, got %d,%d", list[0].Round, list[1].Round)
	}

	list2, err := db.ListBets(BetFilter{ChannelID: &channelID}, 2, 2)
	if err != nil {
		t.Fatalf("list bets offset: %v", err)
	}
	if len(list2) != 1 || list2[0].Round != 3 {
		t.Fatalf("expected only round 3 at offset 2, got %+v", list2)
	}
}

func TestGetBetUnknown(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	var channelID [32]byte
	_, err := db.GetBet(channelID, 1)
	if _, ok := err.(*wagererr.UnknownBetError); !ok {
		t.Fatalf("expected UnknownBetError, got %v", err)
	}
}
