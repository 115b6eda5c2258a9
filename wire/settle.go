package wire

import (
	"github.com/btcsuite/btcd/btcec"
	"github.com/holiman/uint256"
	"github.com/litexio/scnode/wagererr"
	"github.com/litexio/scnode/xcrypto"
)

// CooperativeSettleRequest proposes agreed final balances, avoiding the
// dispute window. p1/p2 are ordered ascending by address, matching the
// on-chain settle ABI's tie-break rule.
type CooperativeSettleRequest struct {
	ChannelID [32]byte          `json:"channel_id"`
	P1        xcrypto.Address   `json:"p1"`
	P1Balance *uint256.Int      `json:"p1_balance"`
	P2        xcrypto.Address   `json:"p2"`
	P2Balance *uint256.Int      `json:"p2_balance"`
	Signature xcrypto.Signature `json:"signature"`
}

func (m *CooperativeSettleRequest) Type() MsgType { return MsgCooperativeSettleRequest }

func (m *CooperativeSettleRequest) SigningHash() xcrypto.Hash {
	return cooperativeSettleHash(m.ChannelID, m.P1, m.P1Balance, m.P2, m.P2Balance)
}

// CooperativeSettleResponse co-signs the same tuple the request proposed,
// completing the two-of-two signature set the proof assembler needs.
type CooperativeSettleResponse struct {
	ChannelID [32]byte          `json:"channel_id"`
	P1        xcrypto.Address   `json:"p1"`
	P1Balance *uint256.Int      `json:"p1_balance"`
	P2        xcrypto.Address   `json:"p2"`
	P2Balance *uint256.Int      `json:"p2_balance"`
	Signature xcrypto.Signature `json:"signature"`
}

func (m *CooperativeSettleResponse) Type() MsgType { return MsgCooperativeSettleResponse }

func (m *CooperativeSettleResponse) SigningHash() xcrypto.Hash {
	return cooperativeSettleHash(m.ChannelID, m.P1, m.P1Balance, m.P2, m.P2Balance)
}

func cooperativeSettleHash(channelID [32]byte, p1 xcrypto.Address, p1Balance *uint256.Int,
	p2 xcrypto.Address, p2Balance *uint256.Int) xcrypto.Hash {

	return xcrypto.Keccak256(
		channelID[:],
		xcrypto.PackAddress(p1),
		xcrypto.PackUint256(p1Balance),
		xcrypto.PackAddress(p2),
		xcrypto.PackUint256(p2Balance),
	)
}

// NewCooperativeSettleRequest constructs and signs a settle request.
func NewCooperativeSettleRequest(channelID [32]byte, p1 xcrypto.Address, p1Balance *uint256.Int,
	p2 xcrypto.Address, p2Balance *uint256.Int, priv *btcec.PrivateKey) (*CooperativeSettleRequest, error) {

	m := &CooperativeSettleRequest{ChannelID: channelID, P1: p1, P1Balance: p1Balance, P2: p2, P2Balance: p2Balance}
	sig, err := sign(m, priv)
	if err != nil {
		return nil, err
	}
	m.Signature = sig
	return m, nil
}

// NewCooperativeSettleResponse constructs and co-signs a settle response
// over the same tuple as req.
func NewCooperativeSettleResponse(req *CooperativeSettleRequest, priv *btcec.PrivateKey) (*CooperativeSettleResponse, error) {
	m := &CooperativeSettleResponse{
		ChannelID: req.ChannelID,
		P1:        req.P1,
		P1Balance: req.P1Balance,
		P2:        req.P2,
		P2Balance: req.P2Balance,
	}
	sig, err := sign(m, priv)
	if err != nil {
		return nil, err
	}
	m.Signature = sig
	return m, nil
}

// ValidateCooperativeSettleRequest checks that req was signed by requester.
func ValidateCooperativeSettleRequest(req *CooperativeSettleRequest, requester xcrypto.Address) error {
	addr, err := recoverSigner(req, req.Signature)
	if err != nil || addr != requester {
		return &wagererr.InvalidSignatureError{ChannelID: req.ChannelID, MsgKind: MsgCooperativeSettleRequest.String()}
	}
	return nil
}

// ValidateCooperativeSettleResponse checks that resp was signed by responder
// and proposes the exact same balances as req.
func ValidateCooperativeSettleResponse(req *CooperativeSettleRequest, resp *CooperativeSettleResponse, responder xcrypto.Address) error {
	addr, err := recoverSigner(resp, resp.Signature)
	if err != nil || addr != responder {
		return &wagererr.InvalidSignatureError{ChannelID: resp.ChannelID, MsgKind: MsgCooperativeSettleResponse.String()}
	}
	if resp.P1 != req.P1 || resp.P2 != req.P2 ||
		resp.P1Balance.Cmp(req.P1Balance) != 0 || resp.P2Balance.Cmp(req.P2Balance) != 0 {
		return &wagererr.BalanceConservationError{
			ChannelID: req.ChannelID,
			Detail:    "cooperative settle response balances do not match the request",
		}
	}
	return nil
}
