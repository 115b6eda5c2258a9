package engine

import (
	"github.com/holiman/uint256"

	"github.com/litexio/scnode/channeldb"
	"github.com/litexio/scnode/xcrypto"
)

func (a *channelActor) handleChainOpened(r *chainOpenedReq) {
	ch := &channeldb.Channel{
		ChannelID:       a.channelID,
		Local:           r.local,
		Remote:          r.remote,
		PaymentContract: r.paymentContract,
		GameContract:    r.gameContract,
		Status:          channeldb.ChannelStatusOpened,
		LocalBalance:    uint256.NewInt(0),
		RemoteBalance:   uint256.NewInt(0),
		LocalDeposit:    uint256.NewInt(0),
		RemoteDeposit:   uint256.NewInt(0),
		SettleWindow:    r.settleWindow,
	}
	if ch.SettleWindow == 0 {
		ch.SettleWindow = channeldb.DefaultSettleWindow
	}

	err := a.cfg.Store.PutChannel(ch)
	if err == nil {
		a.cfg.Events.Emit(Event{Name: EventChannelOpened, ChannelID: a.channelID, Payload: ch})
	}
	r.result <- err
}

func (a *channelActor) handleChainDeposit(r *chainDepositReq) {
	ch, err := a.cfg.Store.GetChannel(a.channelID)
	if err != nil {
		r.result <- err
		return
	}

	if r.depositor == ch.Local {
		ch.LocalDeposit = new(uint256.Int).Add(ch.LocalDeposit, r.amount)
		ch.LocalBalance = new(uint256.Int).Add(ch.LocalBalance, r.amount)
	} else {
		ch.RemoteDeposit = new(uint256.Int).Add(ch.RemoteDeposit, r.amount)
		ch.RemoteBalance = new(uint256.Int).Add(ch.RemoteBalance, r.amount)
	}

	if err := a.cfg.Store.PutChannel(ch); err != nil {
		r.result <- err
		return
	}
	a.cfg.Events.Emit(Event{Name: EventChannelNewDeposit, ChannelID: a.channelID, Payload: ch})
	r.result <- nil
}

func (a *channelActor) handleChainClosed(r *chainClosedReq) {
	ch, err := a.cfg.Store.GetChannel(a.channelID)
	if err != nil {
		r.result <- err
		return
	}

	ch.Status = channeldb.ChannelStatusClosed
	if ch.LocalCloseSnapshot == nil && ch.LatestLocalBalanceProof != nil {
		ch.LocalCloseSnapshot = snapshotFromProof(ch.LatestLocalBalanceProof)
	}
	if ch.RemoteCloseSnapshot == nil && ch.LatestRemoteBalanceProof != nil {
		ch.RemoteCloseSnapshot = snapshotFromProof(ch.LatestRemoteBalanceProof)
	}

	if err := a.cfg.Store.PutChannel(ch); err != nil {
		r.result <- err
		return
	}
	a.cfg.Events.Emit(Event{Name: EventChannelClosed, ChannelID: a.channelID, Payload: ch})
	r.result <- nil
}

func snapshotFromProof(bp *channeldb.BalanceProof) *channeldb.CloseSnapshot {
	return &channeldb.CloseSnapshot{
		TransferredAmount: bp.TransferredAmount,
		LockedAmount:      bp.LockedAmount,
		LockID:            bp.LockID,
		Nonce:             bp.Nonce,
		Signature:         bp.Signature,
	}
}

func (a *channelActor) handleChainBalanceProofUpdated(r *chainBalanceProofUpdatedReq) {
	ch, err := a.cfg.Store.GetChannel(a.channelID)
	if err != nil {
		r.result <- err
		return
	}

	ch.Status = channeldb.ChannelStatusUpdateBalanceProof
	ch.OnChainNonce = r.nonce
	if ch.LatestLocalBalanceProof != nil && ch.LatestLocalBalanceProof.Nonce == r.nonce {
		ch.LocalCloseSnapshot = snapshotFromProof(ch.LatestLocalBalanceProof)
	}
	if ch.LatestRemoteBalanceProof != nil && ch.LatestRemoteBalanceProof.Nonce == r.nonce {
		ch.RemoteCloseSnapshot = snapshotFromProof(ch.LatestRemoteBalanceProof)
	}

	if err := a.cfg.Store.PutChannel(ch); err != nil {
		r.result <- err
		return
	}
	a.cfg.Events.Emit(Event{Name: EventNonClosingBalanceProofUpdate, ChannelID: a.channelID, Payload: ch})
	r.result <- nil
}

// handleChainUnlocked deliberately leaves the channel record untouched: an
// unlock pays a resolved lock out on-chain after close, and the close
// snapshots already hold the lock state the settle call was built from.
// Rewriting them here would desync the record from what was submitted.
func (a *channelActor) handleChainUnlocked(r *chainUnlockedReq) {
	a.cfg.Events.Emit(Event{
		Name: EventChannelUnlocked, ChannelID: a.channelID,
		Payload: struct {
			LockID xcrypto.Hash
			Amount *uint256.Int
		}{r.lockID, r.amount},
	})
	r.result <- nil
}

func (a *channelActor) handleChainSettled(r *chainSettledReq) {
	ch, err := a.cfg.Store.GetChannel(a.channelID)
	if err != nil {
		r.result <- err
		return
	}

	ch.Status = channeldb.ChannelStatusSettled
	if err := a.cfg.Store.PutChannel(ch); err != nil {
		r.result <- err
		return
	}
	a.cfg.Events.Emit(Event{Name: EventChannelSettled, ChannelID: a.channelID, Payload: ch})
	r.result <- nil
}
