package engine

import (
	"github.com/holiman/uint256"

	"github.com/litexio/scnode/channeldb"
	"github.com/litexio/scnode/wagererr"
	"github.com/litexio/scnode/wire"
	"github.com/litexio/scnode/xcrypto"
)

// recomputeBalances derives both off-chain balances from each side's latest
// accepted balance proof, per the conservation identity
// balance(self) = deposit(self) - own.transferred + other.transferred - own.locked.
// Deriving fresh from the two proofs on every update, rather than applying
// incremental deltas at each call site, keeps the invariant true by
// construction instead of by bookkeeping discipline.
func recomputeBalances(ch *channeldb.Channel) {
	localTransferred, localLocked := uint256.NewInt(0), uint256.NewInt(0)
	if ch.LatestLocalBalanceProof != nil {
		localTransferred = ch.LatestLocalBalanceProof.TransferredAmount
		localLocked = ch.LatestLocalBalanceProof.LockedAmount
	}
	remoteTransferred, remoteLocked := uint256.NewInt(0), uint256.NewInt(0)
	if ch.LatestRemoteBalanceProof != nil {
		remoteTransferred = ch.LatestRemoteBalanceProof.TransferredAmount
		remoteLocked = ch.LatestRemoteBalanceProof.LockedAmount
	}

	local := new(uint256.Int).Sub(ch.LocalDeposit, localTransferred)
	local.Add(local, remoteTransferred)
	local.Sub(local, localLocked)
	ch.LocalBalance = local

	remote := new(uint256.Int).Sub(ch.RemoteDeposit, remoteTransferred)
	remote.Add(remote, localTransferred)
	remote.Sub(remote, remoteLocked)
	ch.RemoteBalance = remote
}

// freeze records a deferred auto-response for round, to be run later via
// Engine.Approve. Multiple independent switches can each freeze the same
// round (e.g. Preimage off and DirectTransfer off at once), so entries
// queue rather than overwrite.
func (a *channelActor) freeze(round uint64, action func() error) {
	a.pending[round] = append(a.pending[round], action)
	a.cfg.Events.Emit(Event{Name: EventAwaitingApproval, ChannelID: a.channelID, Round: round})
}

func (a *channelActor) handleApprove(r *approveReq) {
	queue := a.pending[r.round]
	if len(queue) == 0 {
		r.result <- &wagererr.WrongChannelStateError{
			ChannelID: a.channelID, Round: r.round, State: "frozen", Operation: "approve",
		}
		return
	}

	next := queue[0]
	a.pending[r.round] = queue[1:]
	if len(a.pending[r.round]) == 0 {
		delete(a.pending, r.round)
	}
	r.result <- next()
}

func (a *channelActor) handleStartBet(r *startBetReq) {
	ch, err := a.cfg.Store.GetChannel(a.channelID)
	if err != nil {
		r.result <- startBetResult{err: err}
		return
	}
	if existing, err := a.cfg.Store.GetBet(a.channelID, ch.CurrentRound); err == nil && existing.Status < channeldb.BetStatusFinish {
		r.result <- startBetResult{err: &wagererr.WrongChannelStateError{
			ChannelID: a.channelID, Round: existing.Round, State: existing.Status.String(), Operation: "startBet",
		}}
		return
	}
	if ch.LocalBalance.Cmp(r.value) < 0 {
		r.result <- startBetResult{err: &wagererr.BalanceConservationError{
			ChannelID: a.channelID, Detail: "insufficient local balance for bet value",
		}}
		return
	}

	raHash, err := xcrypto.ExpandSeed(r.seed)
	if err != nil {
		r.result <- startBetResult{err: err}
		return
	}
	ra := [32]byte(raHash)
	hashRa := xcrypto.Keccak256(ra[:])
	round := ch.CurrentRound + 1

	req, err := wire.NewBetRequest(a.channelID, round, r.gameContract, r.betMask, r.modulo,
		a.cfg.Local, r.partner, hashRa, r.value, a.cfg.PrivateKey)
	if err != nil {
		r.result <- startBetResult{err: err}
		return
	}

	bet := &channeldb.Bet{
		BetID:          channeldb.BetIDFor(a.channelID, round),
		ChannelID:      a.channelID,
		Round:          round,
		BetMask:        r.betMask,
		Modulo:         r.modulo,
		Value:          r.value,
		Initiator:      a.cfg.Local,
		Acceptor:       r.partner,
		RInitiator:     ra,
		HashRInitiator: hashRa,
		SignatureInitiator: req.Signature,
		Status:         channeldb.BetStatusStart,
	}
	if err := a.cfg.Store.PutBet(bet); err != nil {
		r.result <- startBetResult{err: err}
		return
	}
	ch.CurrentRound = round
	if err := a.cfg.Store.PutChannel(ch); err != nil {
		r.result <- startBetResult{err: err}
		return
	}

	if err := a.cfg.Transport.Send(r.partner, req); err != nil {
		r.result <- startBetResult{err: err}
		return
	}
	a.cfg.Events.Emit(Event{Name: EventBetRequestSent, ChannelID: a.channelID, Round: round, Payload: bet})
	r.result <- startBetResult{ok: true}
}

func (a *channelActor) handleInboundMessage(r *inboundMsgReq) {
	switch m := r.msg.(type) {
	case *wire.BetRequest:
		r.result <- a.onBetRequest(m)
	case *wire.LockedTransfer:
		r.result <- a.onLockedTransfer(m)
	case *wire.LockedTransferR:
		r.result <- a.onLockedTransferR(m)
	case *wire.BetResponse:
		r.result <- a.onBetResponse(m)
	case *wire.Preimage:
		r.result <- a.onPreimage(m)
	case *wire.DirectTransfer:
		r.result <- a.onDirectTransfer(m)
	case *wire.DirectTransferR:
		r.result <- a.onDirectTransferR(m)
	case *wire.CooperativeSettleRequest:
		r.result <- a.onCoopSettleRequest(m)
	case *wire.CooperativeSettleResponse:
		r.result <- a.onCoopSettleResponse(m)
	default:
		r.result <- &wagererr.WrongChannelStateError{
			ChannelID: a.channelID, State: "n/a", Operation: "unknown message kind",
		}
	}
}

func (a *channelActor) onBetRequest(m *wire.BetRequest) error {
	ch, err := a.cfg.Store.GetChannel(a.channelID)
	if err != nil {
		return err
	}
	if err := wire.ValidateBetRequest(m, ch.Remote); err != nil {
		return err
	}
	if m.Round != ch.CurrentRound+1 {
		return &wagererr.WrongChannelStateError{
			ChannelID: a.channelID, Round: m.Round, State: "round out of sequence", Operation: "betRequest",
		}
	}

	bet := &channeldb.Bet{
		BetID:              channeldb.BetIDFor(a.channelID, m.Round),
		ChannelID:          a.channelID,
		Round:              m.Round,
		BetMask:            m.BetMask,
		Modulo:             m.Modulo,
		Value:              m.Value,
		Initiator:          ch.Remote,
		Acceptor:           ch.Local,
		HashRInitiator:     m.HashRInitiator,
		SignatureInitiator: m.Signature,
		Status:             channeldb.BetStatusStart,
	}
	if err := a.cfg.Store.PutBet(bet); err != nil {
		return err
	}
	ch.CurrentRound = m.Round
	if err := a.cfg.Store.PutChannel(ch); err != nil {
		return err
	}
	a.cfg.Events.Emit(Event{Name: EventBetRequestReceived, ChannelID: a.channelID, Round: m.Round, Payload: bet})

	send := func() error { return a.sendLockedTransfer(ch, bet) }
	if a.cfg.Auto.LockedTransfer {
		return send()
	}
	a.freeze(m.Round, send)
	return nil
}

// sendLockedTransfer is the acceptor's auto-response to a BetRequest: lock
// bet.Value out of the acceptor's own (local) balance.
func (a *channelActor) sendLockedTransfer(ch *channeldb.Channel, bet *channeldb.Bet) error {
	prevTransferred := uint256.NewInt(0)
	if ch.LatestLocalBalanceProof != nil {
		prevTransferred = ch.LatestLocalBalanceProof.TransferredAmount
	}
	nonce := ch.LocalNonce + 1

	lt, err := wire.NewLockedTransfer(a.channelID, ch.PaymentContract, nonce, prevTransferred, bet.Value, bet.HashRInitiator, a.cfg.PrivateKey)
	if err != nil {
		return err
	}

	ch.LocalNonce = nonce
	ch.LatestLocalBalanceProof = &channeldb.BalanceProof{
		Nonce: nonce, TransferredAmount: prevTransferred, LockedAmount: bet.Value, LockID: bet.HashRInitiator, Signature: lt.Signature,
	}
	recomputeBalances(ch)
	if err := a.cfg.Store.PutChannel(ch); err != nil {
		return err
	}

	bet.LockedTransferLocalNonce = nonce
	bet.Status = channeldb.BetStatusLockedTransferSent
	if err := a.cfg.Store.PutBet(bet); err != nil {
		return err
	}

	if err := a.cfg.Transport.Send(ch.Remote, lt); err != nil {
		return err
	}
	a.cfg.Events.Emit(Event{Name: EventLockedTransferSent, ChannelID: a.channelID, Round: bet.Round, Payload: bet})
	return nil
}

func (a *channelActor) onLockedTransfer(m *wire.LockedTransfer) error {
	ch, err := a.cfg.Store.GetChannel(a.channelID)
	if err != nil {
		return err
	}
	bet, err := a.cfg.Store.GetBet(a.channelID, ch.CurrentRound)
	if err != nil {
		return err
	}
	if err := wire.ValidateLockedTransfer(m, ch.Remote, ch.RemoteNonce, bet.HashRInitiator, bet.Value); err != nil {
		return err
	}

	ch.RemoteNonce = m.Nonce
	ch.LatestRemoteBalanceProof = &channeldb.BalanceProof{
		Nonce: m.Nonce, TransferredAmount: m.TransferredAmount, LockedAmount: m.LockedAmount, LockID: m.LockID, Signature: m.Signature,
	}
	recomputeBalances(ch)
	if err := a.cfg.Store.PutChannel(ch); err != nil {
		return err
	}

	bet.LockedTransferRemoteNonce = m.Nonce
	bet.Status = channeldb.BetStatusLockedTransferSent
	if err := a.cfg.Store.PutBet(bet); err != nil {
		return err
	}
	a.cfg.Events.Emit(Event{Name: EventLockedTransferReceived, ChannelID: a.channelID, Round: bet.Round, Payload: bet})

	send := func() error { return a.sendLockedTransferR(ch, bet) }
	if a.cfg.Auto.LockedTransferR {
		return send()
	}
	a.freeze(bet.Round, send)
	return nil
}

// sendLockedTransferR is the initiator's auto-response to a LockedTransfer:
// lock bet.Value out of the initiator's own (local) balance, the reciprocal
// lock in the opposite direction.
func (a *channelActor) sendLockedTransferR(ch *channeldb.Channel, bet *channeldb.Bet) error {
	prevTransferred := uint256.NewInt(0)
	if ch.LatestLocalBalanceProof != nil {
		prevTransferred = ch.LatestLocalBalanceProof.TransferredAmount
	}
	nonce := ch.LocalNonce + 1

	ltr, err := wire.NewLockedTransferR(a.channelID, ch.PaymentContract, nonce, prevTransferred, bet.Value, bet.HashRInitiator, a.cfg.PrivateKey)
	if err != nil {
		return err
	}

	ch.LocalNonce = nonce
	ch.LatestLocalBalanceProof = &channeldb.BalanceProof{
		Nonce: nonce, TransferredAmount: prevTransferred, LockedAmount: bet.Value, LockID: bet.HashRInitiator, Signature: ltr.Signature,
	}
	recomputeBalances(ch)
	if err := a.cfg.Store.PutChannel(ch); err != nil {
		return err
	}

	bet.Status = channeldb.BetStatusLockedTransferRSent
	if err := a.cfg.Store.PutBet(bet); err != nil {
		return err
	}

	if err := a.cfg.Transport.Send(ch.Remote, ltr); err != nil {
		return err
	}
	a.cfg.Events.Emit(Event{Name: EventLockedTransferRSent, ChannelID: a.channelID, Round: bet.Round, Payload: bet})
	return nil
}

func (a *channelActor) onLockedTransferR(m *wire.LockedTransferR) error {
	ch, err := a.cfg.Store.GetChannel(a.channelID)
	if err != nil {
		return err
	}
	bet, err := a.cfg.Store.GetBet(a.channelID, ch.CurrentRound)
	if err != nil {
		return err
	}
	if err := wire.ValidateLockedTransferR(m, ch.Remote, ch.RemoteNonce, bet.HashRInitiator, bet.Value); err != nil {
		return err
	}

	ch.RemoteNonce = m.Nonce
	ch.LatestRemoteBalanceProof = &channeldb.BalanceProof{
		Nonce: m.Nonce, TransferredAmount: m.TransferredAmount, LockedAmount: m.LockedAmount, LockID: m.LockID, Signature: m.Signature,
	}
	recomputeBalances(ch)
	if err := a.cfg.Store.PutChannel(ch); err != nil {
		return err
	}

	bet.Status = channeldb.BetStatusLockedTransferRSent
	if err := a.cfg.Store.PutBet(bet); err != nil {
		return err
	}
	a.cfg.Events.Emit(Event{Name: EventLockedTransferRReceived, ChannelID: a.channelID, Round: bet.Round, Payload: bet})

	send := func() error { return a.sendBetResponse(ch, bet) }
	if a.cfg.Auto.BetResponse {
		return send()
	}
	a.freeze(bet.Round, send)
	return nil
}

// sendBetResponse is the acceptor's auto-response to a LockedTransferR: draw
// Rb and echo the initiator's own BetRequest signature, binding the response
// to that exact commitment.
func (a *channelActor) sendBetResponse(ch *channeldb.Channel, bet *channeldb.Bet) error {
	rbHash, err := xcrypto.ExpandSeed(nil)
	if err != nil {
		return err
	}
	rb := [32]byte(rbHash)

	resp, err := wire.NewBetResponse(a.channelID, bet.Round, ch.GameContract, bet.HashRInitiator, rb, bet.SignatureInitiator, a.cfg.PrivateKey)
	if err != nil {
		return err
	}

	bet.RAcceptor = rb
	bet.SignatureAcceptor = resp.Signature
	bet.Status = channeldb.BetStatusBetResponseReceived
	if err := a.cfg.Store.PutBet(bet); err != nil {
		return err
	}

	if err := a.cfg.Transport.Send(ch.Remote, resp); err != nil {
		return err
	}
	a.cfg.Events.Emit(Event{Name: EventBetResponseSent, ChannelID: a.channelID, Round: bet.Round, Payload: bet})
	return nil
}

func (a *channelActor) onBetResponse(m *wire.BetResponse) error {
	ch, err := a.cfg.Store.GetChannel(a.channelID)
	if err != nil {
		return err
	}
	bet, err := a.cfg.Store.GetBet(a.channelID, ch.CurrentRound)
	if err != nil {
		return err
	}
	if bet.Round != m.Round || bet.Status >= channeldb.BetStatusBetResponseReceived {
		// Replay of an already-consumed response, or a response for a
		// round that has since progressed. Dropping it here keeps the
		// reveal and transfer replies from firing twice.
		a.cfg.Log.Debugf("engine: dropping replayed BetResponse for channel %x round %d", a.channelID, m.Round)
		return nil
	}
	if err := wire.ValidateBetResponse(m, ch.Remote); err != nil {
		return err
	}
	if m.SignatureA != bet.SignatureInitiator {
		return &wagererr.InvalidSignatureError{ChannelID: a.channelID, MsgKind: wire.MsgBetResponse.String()}
	}

	bet.RAcceptor = m.RAcceptor
	bet.SignatureAcceptor = m.Signature
	bet.Status = channeldb.BetStatusBetResponseReceived
	resolveOutcome(bet)
	if err := a.cfg.Store.PutBet(bet); err != nil {
		return err
	}
	a.cfg.Events.Emit(Event{Name: EventBetResponseReceived, ChannelID: a.channelID, Round: bet.Round, Payload: bet})

	if !a.cfg.Auto.Preimage {
		// The round freezes here: the DirectTransfer queues behind the
		// Preimage whatever its own switch says.
		a.freeze(bet.Round, func() error { return a.sendPreimage(ch, bet) })
		a.freeze(bet.Round, func() error { return a.sendDirectTransfer(ch, bet) })
		return nil
	}
	if err := a.sendPreimage(ch, bet); err != nil {
		return err
	}

	if a.cfg.Auto.DirectTransfer {
		if err := a.sendDirectTransfer(ch, bet); err != nil {
			return err
		}
	} else {
		a.freeze(bet.Round, func() error { return a.sendDirectTransfer(ch, bet) })
	}
	return nil
}

// resolveOutcome computes the dice outcome and payout once both randoms are
// known. WinAmount is left nil if the mask covers
// no outcomes - that round can never resolve and must be disputed on-chain
// or frozen indefinitely; it is not this function's place to reject it.
func resolveOutcome(bet *channeldb.Bet) {
	s := outcome(bet.RInitiator, bet.RAcceptor, bet.Modulo)
	bet.WinnerIsInitiator = initiatorWins(bet.BetMask, s)
	if amount, err := computeWinAmount(bet.Value, bet.BetMask, bet.Modulo); err == nil {
		bet.WinAmount = amount
	}
}

// sendPreimage is the initiator's auto-response to a BetResponse: reveal Ra.
func (a *channelActor) sendPreimage(ch *channeldb.Channel, bet *channeldb.Bet) error {
	pre, err := wire.NewPreimage(a.channelID, bet.Round, bet.RInitiator, a.cfg.PrivateKey)
	if err != nil {
		return err
	}
	bet.Status = channeldb.BetStatusPreimageSent
	if err := a.cfg.Store.PutBet(bet); err != nil {
		return err
	}
	if err := a.cfg.Transport.Send(ch.Remote, pre); err != nil {
		return err
	}
	a.cfg.Events.Emit(Event{Name: EventPreimageSent, ChannelID: a.channelID, Round: bet.Round, Payload: bet})
	return nil
}

// sendDirectTransfer is the initiator's own lock release: a loss shifts
// bet.Value into the initiator's cumulative transferred amount, a win
// leaves it unchanged.
func (a *channelActor) sendDirectTransfer(ch *channeldb.Channel, bet *channeldb.Bet) error {
	prevTransferred := uint256.NewInt(0)
	if ch.LatestLocalBalanceProof != nil {
		prevTransferred = ch.LatestLocalBalanceProof.TransferredAmount
	}
	newTransferred := prevTransferred
	if !bet.WinnerIsInitiator {
		newTransferred = new(uint256.Int).Add(prevTransferred, bet.Value)
	}
	nonce := ch.LocalNonce + 1

	dt, err := wire.NewDirectTransfer(a.channelID, ch.PaymentContract, nonce, newTransferred, a.cfg.PrivateKey)
	if err != nil {
		return err
	}

	ch.LocalNonce = nonce
	ch.LatestLocalBalanceProof = &channeldb.BalanceProof{
		Nonce: nonce, TransferredAmount: newTransferred, LockedAmount: uint256.NewInt(0), Signature: dt.Signature,
	}
	recomputeBalances(ch)
	if err := a.cfg.Store.PutChannel(ch); err != nil {
		return err
	}

	if err := a.cfg.Transport.Send(ch.Remote, dt); err != nil {
		return err
	}
	a.cfg.Events.Emit(Event{Name: EventDirectTransferSent, ChannelID: a.channelID, Round: bet.Round, Payload: bet})
	return nil
}

func (a *channelActor) onPreimage(m *wire.Preimage) error {
	ch, err := a.cfg.Store.GetChannel(a.channelID)
	if err != nil {
		return err
	}
	bet, err := a.cfg.Store.GetBet(a.channelID, m.Round)
	if err != nil {
		return err
	}
	if bet.Status >= channeldb.BetStatusPreimageSent {
		// The reveal was already accepted; a replay must not rewrite the
		// stored preimage or walk the round's status backward.
		a.cfg.Log.Debugf("engine: dropping replayed Preimage for channel %x round %d", a.channelID, m.Round)
		return nil
	}
	if err := wire.ValidatePreimage(m, ch.Remote, bet.HashRInitiator); err != nil {
		return err
	}

	bet.RInitiator = m.RInitiator
	bet.Status = channeldb.BetStatusPreimageSent
	resolveOutcome(bet)
	if err := a.cfg.Store.PutBet(bet); err != nil {
		return err
	}
	a.cfg.Events.Emit(Event{Name: EventPreimageReceived, ChannelID: a.channelID, Round: bet.Round, Payload: bet})
	return nil
}

func (a *channelActor) onDirectTransfer(m *wire.DirectTransfer) error {
	ch, err := a.cfg.Store.GetChannel(a.channelID)
	if err != nil {
		return err
	}
	bet, err := a.cfg.Store.GetBet(a.channelID, ch.CurrentRound)
	if err != nil {
		return err
	}
	if err := wire.ValidateDirectTransfer(m, ch.Remote, ch.RemoteNonce); err != nil {
		return err
	}

	prevRemoteTransferred := uint256.NewInt(0)
	if ch.LatestRemoteBalanceProof != nil {
		prevRemoteTransferred = ch.LatestRemoteBalanceProof.TransferredAmount
	}
	expected := prevRemoteTransferred
	if !bet.WinnerIsInitiator {
		expected = new(uint256.Int).Add(prevRemoteTransferred, bet.Value)
	}
	if m.TransferredAmount.Cmp(expected) != 0 {
		return &wagererr.BalanceConservationError{
			ChannelID: a.channelID, Round: bet.Round, Detail: "direct transfer amount does not match the resolved outcome",
		}
	}

	ch.RemoteNonce = m.Nonce
	ch.LatestRemoteBalanceProof = &channeldb.BalanceProof{
		Nonce: m.Nonce, TransferredAmount: m.TransferredAmount, LockedAmount: uint256.NewInt(0), Signature: m.Signature,
	}
	recomputeBalances(ch)
	if err := a.cfg.Store.PutChannel(ch); err != nil {
		return err
	}

	bet.Status = channeldb.BetStatusDirectTransferSent
	if err := a.cfg.Store.PutBet(bet); err != nil {
		return err
	}
	a.cfg.Events.Emit(Event{Name: EventDirectTransferReceived, ChannelID: a.channelID, Round: bet.Round, Payload: bet})

	send := func() error { return a.sendDirectTransferR(ch, bet) }
	if a.cfg.Auto.DirectTransferR {
		return send()
	}
	a.freeze(bet.Round, send)
	return nil
}

// sendDirectTransferR is the acceptor's own lock release: a loss (initiator
// won) shifts bet.WinAmount into the acceptor's cumulative transferred
// amount, a win leaves it unchanged.
func (a *channelActor) sendDirectTransferR(ch *channeldb.Channel, bet *channeldb.Bet) error {
	prevTransferred := uint256.NewInt(0)
	if ch.LatestLocalBalanceProof != nil {
		prevTransferred = ch.LatestLocalBalanceProof.TransferredAmount
	}
	newTransferred := prevTransferred
	if bet.WinnerIsInitiator && bet.WinAmount != nil {
		newTransferred = new(uint256.Int).Add(prevTransferred, bet.WinAmount)
	}
	nonce := ch.LocalNonce + 1

	dtr, err := wire.NewDirectTransferR(a.channelID, ch.PaymentContract, nonce, newTransferred, a.cfg.PrivateKey)
	if err != nil {
		return err
	}

	ch.LocalNonce = nonce
	ch.LatestLocalBalanceProof = &channeldb.BalanceProof{
		Nonce: nonce, TransferredAmount: newTransferred, LockedAmount: uint256.NewInt(0), Signature: dtr.Signature,
	}
	recomputeBalances(ch)
	if err := a.cfg.Store.PutChannel(ch); err != nil {
		return err
	}

	bet.Status = channeldb.BetStatusFinish
	if err := a.cfg.Store.PutBet(bet); err != nil {
		return err
	}

	if err := a.cfg.Transport.Send(ch.Remote, dtr); err != nil {
		return err
	}
	a.cfg.Events.Emit(Event{Name: EventDirectTransferRSent, ChannelID: a.channelID, Round: bet.Round, Payload: bet})
	a.cfg.Events.Emit(Event{Name: EventBetFinished, ChannelID: a.channelID, Round: bet.Round, Payload: bet})
	return nil
}

func (a *channelActor) onDirectTransferR(m *wire.DirectTransferR) error {
	ch, err := a.cfg.Store.GetChannel(a.channelID)
	if err != nil {
		return err
	}
	bet, err := a.cfg.Store.GetBet(a.channelID, ch.CurrentRound)
	if err != nil {
		return err
	}
	if err := wire.ValidateDirectTransferR(m, ch.Remote, ch.RemoteNonce); err != nil {
		return err
	}

	prevRemoteTransferred := uint256.NewInt(0)
	if ch.LatestRemoteBalanceProof != nil {
		prevRemoteTransferred = ch.LatestRemoteBalanceProof.TransferredAmount
	}
	expected := prevRemoteTransferred
	if bet.WinnerIsInitiator && bet.WinAmount != nil {
		expected = new(uint256.Int).Add(prevRemoteTransferred, bet.WinAmount)
	}
	if m.TransferredAmount.Cmp(expected) != 0 {
		return &wagererr.BalanceConservationError{
			ChannelID: a.channelID, Round: bet.Round, Detail: "direct transfer R amount does not match the resolved outcome",
		}
	}

	ch.RemoteNonce = m.Nonce
	ch.LatestRemoteBalanceProof = &channeldb.BalanceProof{
		Nonce: m.Nonce, TransferredAmount: m.TransferredAmount, LockedAmount: uint256.NewInt(0), Signature: m.Signature,
	}
	recomputeBalances(ch)
	if err := a.cfg.Store.PutChannel(ch); err != nil {
		return err
	}

	bet.Status = channeldb.BetStatusFinish
	if err := a.cfg.Store.PutBet(bet); err != nil {
		return err
	}
	a.cfg.Events.Emit(Event{Name: EventDirectTransferRReceived, ChannelID: a.channelID, Round: bet.Round, Payload: bet})
	a.cfg.Events.Emit(Event{Name: EventBetFinished, ChannelID: a.channelID, Round: bet.Round, Payload: bet})
	return nil
}

func (a *channelActor) handleCoopSettleRequest(r *coopSettleReq) {
	ch, err := a.cfg.Store.GetChannel(a.channelID)
	if err != nil {
		r.result <- coopSettleResult{err: err}
		return
	}

	p1, p1Balance, p2, p2Balance := ch.Local, ch.LocalBalance, ch.Remote, ch.RemoteBalance
	if !p1.Less(p2) {
		p1, p1Balance, p2, p2Balance = p2, p2Balance, p1, p1Balance
	}

	req, err := wire.NewCooperativeSettleRequest(a.channelID, p1, p1Balance, p2, p2Balance, a.cfg.PrivateKey)
	if err != nil {
		r.result <- coopSettleResult{err: err}
		return
	}

	ch.PendingCoopSettleRequest = req
	ch.PendingCoopSettleResponse = nil
	if err := a.cfg.Store.PutChannel(ch); err != nil {
		r.result <- coopSettleResult{err: err}
		return
	}

	if err := a.cfg.Transport.Send(r.partner, req); err != nil {
		r.result <- coopSettleResult{err: err}
		return
	}
	a.cfg.Events.Emit(Event{Name: EventCooperativeSettleRequested, ChannelID: a.channelID, Payload: req})
	r.result <- coopSettleResult{ok: true}
}

func (a *channelActor) onCoopSettleRequest(m *wire.CooperativeSettleRequest) error {
	ch, err := a.cfg.Store.GetChannel(a.channelID)
	if err != nil {
		return err
	}
	if err := wire.ValidateCooperativeSettleRequest(m, ch.Remote); err != nil {
		return err
	}

	ch.PendingCoopSettleRequest = m
	if err := a.cfg.Store.PutChannel(ch); err != nil {
		return err
	}
	a.cfg.Events.Emit(Event{Name: EventCooperativeSettleRequested, ChannelID: a.channelID, Payload: m})

	send := func() error { return a.sendCoopSettleResponse(ch, m) }
	if a.cfg.Auto.CooperativeSettleResponse {
		return send()
	}
	a.freeze(ch.CurrentRound, send)
	return nil
}

func (a *channelActor) sendCoopSettleResponse(ch *channeldb.Channel, req *wire.CooperativeSettleRequest) error {
	resp, err := wire.NewCooperativeSettleResponse(req, a.cfg.PrivateKey)
	if err != nil {
		return err
	}

	ch.PendingCoopSettleResponse = resp
	if err := a.cfg.Store.PutChannel(ch); err != nil {
		return err
	}

	counterparty := ch.Remote
	if err := a.cfg.Transport.Send(counterparty, resp); err != nil {
		return err
	}
	a.cfg.Events.Emit(Event{Name: EventCooperativeSettleAccepted, ChannelID: a.channelID, Payload: resp})
	return nil
}

func (a *channelActor) onCoopSettleResponse(m *wire.CooperativeSettleResponse) error {
	ch, err := a.cfg.Store.GetChannel(a.channelID)
	if err != nil {
		return err
	}
	if ch.PendingCoopSettleRequest == nil {
		return &wagererr.WrongChannelStateError{
			ChannelID: a.channelID, State: ch.Status.String(), Operation: "cooperativeSettleResponse",
		}
	}
	if err := wire.ValidateCooperativeSettleResponse(ch.PendingCoopSettleRequest, m, ch.Remote); err != nil {
		return err
	}

	ch.PendingCoopSettleResponse = m
	if err := a.cfg.Store.PutChannel(ch); err != nil {
		return err
	}
	a.cfg.Events.Emit(Event{Name: EventCooperativeSettleAccepted, ChannelID: a.channelID, Payload: m})
	return nil
}
