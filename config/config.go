// Package config holds the settings a wagerd node starts from: the two
// contract addresses (payment, game), the local participant's address and
// private key, the database paths, the transport endpoint, and the settle
// window default. One small struct covers it all; there is no wallet, no
// chain backend selection, and no peer-to-peer listener matrix here.
package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec"

	"github.com/litexio/scnode/xcrypto"
)

// DefaultSettleWindow is the fallback block count used when no explicit
// value is configured.
const DefaultSettleWindow = 6

// DefaultBoltPath and DefaultSQLitePath are the on-disk locations wagerd
// uses when --boltdb/--sqlitedb are left unset.
const (
	DefaultBoltPath   = "wagerchan.db"
	DefaultSQLitePath = "wagerchan-bets.sqlite"
)

// Config is the full set of values a Client needs to start: contract
// addresses, local signing identity, store paths, and the transport
// endpoint it either dials or listens on.
type Config struct {
	// PaymentContract and GameContract are the two on-chain contract
	// addresses (channel funding and transfers, bet resolution).
	PaymentContract xcrypto.Address
	GameContract    xcrypto.Address

	// Local is the local participant's address, derived from PrivateKey
	// if not set explicitly.
	Local      xcrypto.Address
	PrivateKey *btcec.PrivateKey

	// BoltPath and SQLitePath locate the two files channeldb.Open opens.
	BoltPath   string
	SQLitePath string

	// TransportAddr is the websocket endpoint transport/wsbus listens on
	// (if Listen is true) or dials (otherwise).
	TransportAddr string
	Listen        bool

	// SettleWindow is the block count a channel's settle window defaults
	// to when opened without an explicit value.
	SettleWindow uint64

	// LogDir, if non-empty, additionally rotates logs to LogDir/scnode.log
	// (wlog.Config.LogDir).
	LogDir string
}

// Validate fills in defaults and rejects configurations the client cannot
// start from: a config naming no private key, or naming contract addresses
// that are both the zero address, is almost certainly a mistake rather than
// a deliberate choice, so this fails fast instead of starting a client that
// can never sign anything.
func (c *Config) Validate() error {
	if c.PrivateKey == nil {
		return fmt.Errorf("config: private key is required")
	}
	derived := xcrypto.PubkeyToAddress(c.PrivateKey.PubKey())
	if c.Local.IsZero() {
		c.Local = derived
	} else if c.Local != derived {
		return fmt.Errorf("config: local address %x does not match the address derived from the private key (%x)",
			c.Local, derived)
	}
	if c.PaymentContract.IsZero() && c.GameContract.IsZero() {
		return fmt.Errorf("config: at least one of payment-contract/game-contract must be set")
	}
	if c.BoltPath == "" {
		c.BoltPath = DefaultBoltPath
	}
	if c.SQLitePath == "" {
		c.SQLitePath = DefaultSQLitePath
	}
	if c.SettleWindow == 0 {
		c.SettleWindow = DefaultSettleWindow
	}
	return nil
}

// ParsePrivateKey decodes a hex-encoded secp256k1 private key, with or
// without a leading 0x, the same convention xcrypto's JSON byte fields use.
func ParsePrivateKey(s string) (*btcec.PrivateKey, error) {
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("config: invalid private key hex: %w", err)
	}
	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), raw)
	if priv == nil {
		return nil, fmt.Errorf("config: could not parse private key")
	}
	return priv, nil
}

// ParseAddress decodes a hex-encoded 20-byte EVM address, with or without a
// leading 0x.
func ParseAddress(s string) (xcrypto.Address, error) {
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return xcrypto.Address{}, fmt.Errorf("config: invalid address hex: %w", err)
	}
	if len(raw) != xcrypto.AddressLength {
		return xcrypto.Address{}, fmt.Errorf("config: address must be %d bytes, got %d", xcrypto.AddressLength, len(raw))
	}
	var addr xcrypto.Address
	copy(addr[:], raw)
	return addr, nil
}
