package wire

import (
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcd/btcec"
	"github.com/holiman/uint256"
	"github.com/litexio/scnode/xcrypto"
)

// testKey wraps a generated private key for convenience in these tests.
type testKey struct {
	*btcec.PrivateKey
}

// genKeyPair returns a private key and the address it derives, for test use.
func genKeyPair(t *testing.T) (priv *testKey, addr xcrypto.Address) {
	t.Helper()
	k, err := xcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("unable to generate key: %v", err)
	}
	return &testKey{k}, xcrypto.PubkeyToAddress(k.PubKey())
}

// TestBetRequestAcceptsOwnGenerate checks the round trip: a freshly built
// BetRequest passes its own validation.
func TestBetRequestAcceptsOwnGenerate(t *testing.T) {
	t.Parallel()

	priv, addr := genKeyPair(t)
	_, negAddr := genKeyPair(t)

	var channelID [32]byte
	channelID[0] = 0x01
	hashRa := xcrypto.Keccak256([]byte("seedA"))

	req, err := NewBetRequest(channelID, 1, xcrypto.Address{}, uint256.NewInt(0x3F), 6, addr, negAddr, hashRa, uint256.NewInt(100), priv.PrivateKey)
	if err != nil {
		t.Fatalf("unable to build BetRequest: %v", err)
	}
	if err := ValidateBetRequest(req, addr); err != nil {
		t.Fatalf("expected valid BetRequest, got %v", err)
	}
}

// TestBetRequestRejectsFlippedField checks that changing a signed field (the
// modulo) after signing is rejected.
func TestBetRequestRejectsFlippedField(t *testing.T) {
	t.Parallel()

	priv, addr := genKeyPair(t)
	_, negAddr := genKeyPair(t)

	var channelID [32]byte
	hashRa := xcrypto.Keccak256([]byte("seedA"))

	req, err := NewBetRequest(channelID, 1, xcrypto.Address{}, uint256.NewInt(0x3F), 6, addr, negAddr, hashRa, uint256.NewInt(100), priv.PrivateKey)
	if err != nil {
		t.Fatalf("unable to build BetRequest: %v", err)
	}

	req.Modulo = 7 // flip a semantic field after signing
	if err := ValidateBetRequest(req, addr); err == nil {
		t.Fatalf("expected validation failure after mutating a signed field")
	}
}

func TestBetRequestRejectsWrongSigner(t *testing.T) {
	t.Parallel()

	priv, addr := genKeyPair(t)
	_, negAddr := genKeyPair(t)
	_, otherAddr := genKeyPair(t)

	var channelID [32]byte
	hashRa := xcrypto.Keccak256([]byte("seedA"))

	req, err := NewBetRequest(channelID, 1, xcrypto.Address{}, uint256.NewInt(0x3F), 6, addr, negAddr, hashRa, uint256.NewInt(100), priv.PrivateKey)
	if err != nil {
		t.Fatalf("unable to build BetRequest: %v", err)
	}
	if err := ValidateBetRequest(req, otherAddr); err == nil {
		t.Fatalf("expected validation failure for wrong expected signer")
	}
}

func TestLockedTransferJSONRoundTrip(t *testing.T) {
	t.Parallel()

	priv, _ := genKeyPair(t)
	var channelID [32]byte
	channelID[3] = 9
	lockID := xcrypto.Keccak256([]byte("seedA"))

	lt, err := NewLockedTransfer(channelID, xcrypto.Address{}, 1, uint256.NewInt(1000), uint256.NewInt(100), lockID, priv.PrivateKey)
	if err != nil {
		t.Fatalf("unable to build LockedTransfer: %v", err)
	}

	raw, err := json.Marshal(lt)
	if err != nil {
		t.Fatalf("unable to marshal: %v", err)
	}

	var got LockedTransfer
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unable to unmarshal: %v", err)
	}
	if got.ChannelID != lt.ChannelID || got.Nonce != lt.Nonce || got.LockID != lt.LockID {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, lt)
	}
	if got.TransferredAmount.Cmp(lt.TransferredAmount) != 0 {
		t.Fatalf("transferred amount mismatch after round trip")
	}
}

func TestCooperativeSettleCoSign(t *testing.T) {
	t.Parallel()

	priv1, addr1 := genKeyPair(t)
	priv2, addr2 := genKeyPair(t)

	var channelID [32]byte
	p1, p2 := addr1, addr2
	if !p1.Less(p2) {
		p1, p2 = p2, p1
	}

	req, err := NewCooperativeSettleRequest(channelID, p1, uint256.NewInt(900), p2, uint256.NewInt(1100), priv1.PrivateKey)
	if err != nil {
		t.Fatalf("unable to build request: %v", err)
	}
	if err := ValidateCooperativeSettleRequest(req, addr1); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	resp, err := NewCooperativeSettleResponse(req, priv2.PrivateKey)
	if err != nil {
		t.Fatalf("unable to build response: %v", err)
	}
	if err := ValidateCooperativeSettleResponse(req, resp, addr2); err != nil {
		t.Fatalf("expected valid response, got %v", err)
	}
}
