package xcrypto

import (
	"bytes"
	"testing"
)

func TestSignRecoverRoundTrip(t *testing.T) {
	t.Parallel()

	priv, err := GenerateKey()
	if err != nil {
		t.Fatalf("unable to generate key: %v", err)
	}
	want := PubkeyToAddress(priv.PubKey())

	digest := Keccak256([]byte("round 1 bet request"))
	sig, err := Sign(digest, priv)
	if err != nil {
		t.Fatalf("unable to sign: %v", err)
	}

	got, err := Recover(digest, sig)
	if err != nil {
		t.Fatalf("unable to recover: %v", err)
	}
	if got != want {
		t.Fatalf("recovered address mismatch: got %x want %x", got, want)
	}
}

// TestBitFlipRejected checks that a digest with one bit flipped no longer
// recovers the signer's address.
func TestBitFlipRejected(t *testing.T) {
	t.Parallel()

	priv, err := GenerateKey()
	if err != nil {
		t.Fatalf("unable to generate key: %v", err)
	}
	addr := PubkeyToAddress(priv.PubKey())

	digest := Keccak256([]byte("channel-id"), PackUint64(42))
	sig, err := Sign(digest, priv)
	if err != nil {
		t.Fatalf("unable to sign: %v", err)
	}

	flipped := Keccak256([]byte("channel-id"), PackUint64(43))
	got, err := Recover(flipped, sig)
	if err == nil && got == addr {
		t.Fatalf("signature over flipped digest still recovered to signer")
	}
}

func TestExpandSeedDeterministic(t *testing.T) {
	t.Parallel()

	seed := []byte("fixed-seed-material")
	a, err := ExpandSeed(seed)
	if err != nil {
		t.Fatalf("unable to expand seed: %v", err)
	}
	b, err := ExpandSeed(seed)
	if err != nil {
		t.Fatalf("unable to expand seed: %v", err)
	}
	if a != b {
		t.Fatalf("ExpandSeed not deterministic for identical seed: %x != %x", a, b)
	}
}

func TestExpandSeedEmptyDiffers(t *testing.T) {
	t.Parallel()

	a, err := ExpandSeed(nil)
	if err != nil {
		t.Fatalf("unable to expand seed: %v", err)
	}
	b, err := ExpandSeed(nil)
	if err != nil {
		t.Fatalf("unable to expand seed: %v", err)
	}
	if a == b {
		t.Fatalf("two empty-seed expansions collided, overwhelmingly unlikely")
	}
}

func TestAddressOrdering(t *testing.T) {
	t.Parallel()

	var a, b Address
	a[19] = 1
	b[19] = 2
	if !a.Less(b) || b.Less(a) {
		t.Fatalf("address ordering incorrect")
	}
	if bytes.Equal(a[:], b[:]) {
		t.Fatalf("test addresses should differ")
	}
}
