package engine

// Event names, fanned out to subscribers registered via On(name, cb). They
// cover every protocol message receipt, every state transition, and every
// chain event the engine reacts to.
const (
	EventBetRequestSent          = "BetRequestSent"
	EventBetRequestReceived      = "BetRequestReceived"
	EventLockedTransferSent      = "LockedTransferSent"
	EventLockedTransferReceived  = "LockedTransferReceived"
	EventLockedTransferRSent     = "LockedTransferRSent"
	EventLockedTransferRReceived = "LockedTransferRReceived"
	EventBetResponseSent         = "BetResponseSent"
	EventBetResponseReceived     = "BetResponseReceived"
	EventPreimageSent            = "PreimageSent"
	EventPreimageReceived        = "PreimageReceived"
	EventDirectTransferSent      = "DirectTransferSent"
	EventDirectTransferReceived  = "DirectTransferReceived"
	EventDirectTransferRSent     = "DirectTransferRSent"
	EventDirectTransferRReceived = "DirectTransferRReceived"
	EventBetFinished             = "BetFinished"
	EventBetFrozen               = "BetFrozen"
	EventAwaitingApproval        = "AwaitingApproval"

	EventCooperativeSettleRequested = "CooperativeSettleRequested"
	EventCooperativeSettleAccepted  = "CooperativeSettleAccepted"

	EventChannelOpened                = "ChannelOpened"
	EventChannelNewDeposit            = "ChannelNewDeposit"
	EventChannelClosed                = "ChannelClosed"
	EventNonClosingBalanceProofUpdate = "NonClosingBalanceProofUpdated"
	EventChannelUnlocked              = "ChannelUnlocked"
	EventChannelSettled               = "ChannelSettled"
)

// Event is one domain notification fanned out to C7 subscribers.
type Event struct {
	Name      string
	ChannelID [32]byte
	Round     uint64
	Payload   interface{}
}

// EventSink receives every domain event the engine emits. client.Client
// implements this with its On(name, cb) registry.
type EventSink interface {
	Emit(e Event)
}

// NopEventSink discards every event; useful for tests that don't assert on
// the event stream.
type NopEventSink struct{}

func (NopEventSink) Emit(Event) {}
