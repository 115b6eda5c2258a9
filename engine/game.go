package engine

import (
	"math/bits"

	"github.com/holiman/uint256"

	"github.com/litexio/scnode/wagererr"
	"github.com/litexio/scnode/xcrypto"
)

// outcome computes the dice-style result s = keccak256(Ra||Rb) mod modulo,
// the single on-chain-reproducible source of randomness for the round.
func outcome(ra, rb [32]byte, modulo uint64) uint64 {
	h := xcrypto.Keccak256(ra[:], rb[:])
	var x uint256.Int
	x.SetBytes(h[:])

	var mod uint256.Int
	mod.Mod(&x, uint256.NewInt(modulo))
	return mod.Uint64()
}

// initiatorWins reports whether the initiator's bet mask covers the
// outcome bit: initiator wins iff bet_mask & (1 << s) != 0.
func initiatorWins(mask *uint256.Int, s uint64) bool {
	var bit uint256.Int
	bit.Lsh(uint256.NewInt(1), uint(s))

	var and uint256.Int
	and.And(mask, &bit)
	return !and.IsZero()
}

// popcount returns the number of set bits in v, reading its four 64-bit
// limbs directly (uint256.Int is defined as [4]uint64 in holiman/uint256).
func popcount(v *uint256.Int) uint64 {
	var total uint64
	for _, word := range v {
		total += uint64(bits.OnesCount64(word))
	}
	return total
}

// computeWinAmount returns value * modulo / popcount(mask), the payout
// matching the on-chain contract's integer arithmetic exactly.
// Every surviving outcome then has the same expected payout regardless of
// how many bits the mask sets - a mask covering one outcome pays modulo
// times as much as a mask covering all of them.
func computeWinAmount(value, mask *uint256.Int, modulo uint64) (*uint256.Int, error) {
	pc := popcount(mask)
	if pc == 0 {
		return nil, &wagererr.BalanceConservationError{Detail: "bet mask has no winning outcomes"}
	}

	product, overflow := new(uint256.Int).MulOverflow(value, uint256.NewInt(modulo))
	if overflow {
		return nil, &wagererr.BalanceConservationError{Detail: "win amount overflows uint256"}
	}
	return new(uint256.Int).Div(product, uint256.NewInt(pc)), nil
}
