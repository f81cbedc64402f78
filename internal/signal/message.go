// Package signal defines the JSON messages exchanged with the signaling relay.
//
// The payload field is opaque at this layer: the relay forwards it byte for
// byte, and only the negotiating clients interpret it (a session description
// for offer/answer, a candidate descriptor for ice-candidate).
package signal

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type identifies the kind of signaling message.
type Type string

const (
	TypeJoin         Type = "join"
	TypeOffer        Type = "offer"
	TypeAnswer       Type = "answer"
	TypeICECandidate Type = "ice-candidate"
	TypePeerJoined   Type = "peer-joined"
	TypePeerLeft     Type = "peer-left"
)

// Message is the wire structure for every control-plane message.
type Message struct {
	Type     Type            `json:"type"`
	RoomID   string          `json:"roomId"`
	PeerID   string          `json:"peerId,omitempty"`
	AvatarID string          `json:"avatarId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Decode errors. A failed decode always refers to a single message; the
// connection carrying it stays usable.
var (
	ErrUnknownType = errors.New("unknown message type")
	ErrMissingRoom = errors.New("missing roomId")
	ErrMissingPeer = errors.New("missing peerId")
)

// Decode parses and validates a raw signaling message. Inputs coming off the
// network are never trusted: any structural problem is returned as an error
// value, never a panic.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode signaling message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Validate checks the structural invariants shared by all message types.
func (m Message) Validate() error {
	switch m.Type {
	case TypeJoin, TypeOffer, TypeAnswer, TypeICECandidate, TypePeerJoined, TypePeerLeft:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	if m.RoomID == "" {
		return fmt.Errorf("%w (type=%s)", ErrMissingRoom, m.Type)
	}
	if m.PeerID == "" {
		return fmt.Errorf("%w (type=%s)", ErrMissingPeer, m.Type)
	}
	return nil
}

// Encode serializes a message for the wire.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode signaling message: %w", err)
	}
	return data, nil
}
