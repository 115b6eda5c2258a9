package wire

import (
	"encoding/json"
	"fmt"
)

// envelope is the on-the-wire JSON framing: a typed record serialised as
// UTF-8 JSON. The message_type tag lets the receiving side pick the right
// concrete Go type to decode Payload into before any validation runs -
// dispatch on a closed switch over MsgType, never a free-form string.
type envelope struct {
	MessageType MsgType         `json:"message_type"`
	Payload     json.RawMessage `json:"payload"`
}

// Marshal frames m as the wire envelope: a message_type tag plus its own
// JSON-tagged fields as payload.
func Marshal(m Message) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal %s payload: %w", m.Type(), err)
	}
	return json.Marshal(envelope{MessageType: m.Type(), Payload: payload})
}

// Unmarshal decodes a framed wire envelope into its concrete Message type.
// An unrecognised message_type is a protocol error, not a silently dropped
// frame.
func Unmarshal(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("wire: decode envelope: %w", err)
	}

	var m Message
	switch env.MessageType {
	case MsgBetRequest:
		m = &BetRequest{}
	case MsgBetResponse:
		m = &BetResponse{}
	case MsgLockedTransfer:
		m = &LockedTransfer{}
	case MsgLockedTransferR:
		m = &LockedTransferR{}
	case MsgDirectTransfer:
		m = &DirectTransfer{}
	case MsgDirectTransferR:
		m = &DirectTransferR{}
	case MsgPreimage:
		m = &Preimage{}
	case MsgCooperativeSettleRequest:
		m = &CooperativeSettleRequest{}
	case MsgCooperativeSettleResponse:
		m = &CooperativeSettleResponse{}
	default:
		return nil, fmt.Errorf("wire: unrecognised message_type %d", env.MessageType)
	}

	if err := json.Unmarshal(env.Payload, m); err != nil {
		return nil, fmt.Errorf("wire: decode %s payload: %w", env.MessageType, err)
	}
	return m, nil
}
