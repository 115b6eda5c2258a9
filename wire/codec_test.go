package wire

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/litexio/scnode/xcrypto"
)

// TestMarshalUnmarshalRoundTrip checks every message kind survives framing
// and decoding back to an identical signing hash - the envelope's
// message_type tag must select the right concrete type.
func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	t.Parallel()

	priv, addr := genKeyPair(t)
	_, negAddr := genKeyPair(t)

	var channelID [32]byte
	channelID[0] = 0x02
	hashRa := xcrypto.Keccak256([]byte("seedA"))

	req, err := NewBetRequest(channelID, 1, xcrypto.Address{}, uint256.NewInt(0x3F), 6, addr, negAddr, hashRa, uint256.NewInt(100), priv.PrivateKey)
	if err != nil {
		t.Fatalf("unable to build BetRequest: %v", err)
	}

	data, err := Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got, ok := decoded.(*BetRequest)
	if !ok {
		t.Fatalf("expected *BetRequest, got %T", decoded)
	}
	if got.SigningHash() != req.SigningHash() {
		t.Fatalf("signing hash mismatch after round trip")
	}
	if err := ValidateBetRequest(got, addr); err != nil {
		t.Fatalf("decoded message failed validation: %v", err)
	}
}

// TestUnmarshalUnknownKindIsProtocolError checks that an unrecognised
// message kind is a protocol error, not silently ignored.
func TestUnmarshalUnknownKindIsProtocolError(t *testing.T) {
	t.Parallel()

	_, err := Unmarshal([]byte(`{"message_type":99,"payload":{}}`))
	if err == nil {
		t.Fatalf("expected an error for an unrecognised message_type")
	}
}
