// Package session drives one logical peer connection through glare-free
// offer/answer negotiation following the "perfect negotiation" (polite peer) pattern.
//
// Both sides of a pairing may try to initiate simultaneously; that race is
// resolved, not prevented. Exactly one side is polite, decided once per
// pairing by comparing peer identifiers: the lexically greater peer is
// impolite and offers immediately, the lesser one is polite and yields by
// rolling back its own offer when a competing one arrives.
package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/yeonbit/avalink/internal/signal"
	"github.com/yeonbit/avalink/internal/util"
)

// State is the negotiation state of one session.
type State int

const (
	StateStable State = iota
	StateHaveLocalOffer
	StateHaveRemoteOffer
)

func (s State) String() string {
	switch s {
	case StateStable:
		return "stable"
	case StateHaveLocalOffer:
		return "have-local-offer"
	case StateHaveRemoteOffer:
		return "have-remote-offer"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Link is the slice of a peer connection the machine drives. The production
// implementation wraps a pion PeerConnection; tests inject a fake, so the
// machine runs without any network stack.
type Link interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error
	// Rollback discards the pending local description, returning the
	// underlying connection to stable.
	Rollback() error
	AddICECandidate(webrtc.ICECandidateInit) error
	HasRemoteDescription() bool
}

// SendFunc delivers an outbound signaling message to the relay. Sends are
// best-effort: after teardown they must be silent no-ops. Implementations
// must not call back into the machine synchronously; it may be invoked with
// the machine's lock held.
type SendFunc func(signal.Message)

// Machine is the negotiation state machine for one remote peer. All methods
// are safe for concurrent use; pion callbacks and the relay read loop both
// enter here.
type Machine struct {
	mu sync.Mutex

	roomID   string
	localID  string
	remoteID string
	polite   bool

	state       State
	makingOffer bool

	link  Link
	send  SendFunc
	queue candidateQueue
}

// New creates a machine for the pairing (localID, remoteID). Politeness is
// fixed here and never changes for the session's lifetime.
func New(roomID, localID, remoteID string, link Link, send SendFunc) *Machine {
	return &Machine{
		roomID:   roomID,
		localID:  localID,
		remoteID: remoteID,
		polite:   localID < remoteID,
		state:    StateStable,
		link:     link,
		send:     send,
	}
}

// Polite reports which side of the pairing this machine is.
func (m *Machine) Polite() bool { return m.polite }

// State returns the current negotiation state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Offer creates and sends a local offer. The impolite side calls this as
// soon as it learns of the remote peer; the polite side normally never does,
// but if it races and offers anyway, the glare rules below sort it out.
func (m *Machine) Offer() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateStable {
		return nil
	}

	m.makingOffer = true
	defer func() { m.makingOffer = false }()

	offer, err := m.link.CreateOffer()
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := m.link.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local offer: %w", err)
	}
	m.state = StateHaveLocalOffer
	m.sendDescriptionLocked(signal.TypeOffer, offer)
	return nil
}

// HandleRemoteMessage applies one relayed signaling message. Recoverable
// conditions (glare, stale answers, late candidates) are handled internally
// and never returned as errors; an error here means the session itself is
// unusable.
func (m *Machine) HandleRemoteMessage(msg signal.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch msg.Type {
	case signal.TypeOffer:
		return m.handleOfferLocked(msg)
	case signal.TypeAnswer:
		return m.handleAnswerLocked(msg)
	case signal.TypeICECandidate:
		return m.handleCandidateLocked(msg)
	default:
		util.LogWarning("negotiation: unexpected %s message from %s, dropped", msg.Type, m.remoteID)
		return nil
	}
}

func (m *Machine) handleOfferLocked(msg signal.Message) error {
	desc, err := parseDescription(msg.Payload, webrtc.SDPTypeOffer)
	if err != nil {
		util.LogWarning("negotiation: undecodable offer from %s: %v", m.remoteID, err)
		return nil
	}

	collision := m.makingOffer || m.state != StateStable
	if collision && !m.polite {
		// Glare. Our own offer stays in flight; the polite remote will
		// roll back and answer it.
		util.LogDebug("negotiation: impolite side ignoring remote offer (state=%s)", m.state)
		return nil
	}
	if collision {
		if err := m.link.Rollback(); err != nil {
			return fmt.Errorf("rollback local offer: %w", err)
		}
		m.state = StateStable
		util.LogDebug("negotiation: polite side rolled back its offer for %s", m.remoteID)
	}

	if err := m.link.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("apply remote offer: %w", err)
	}
	m.state = StateHaveRemoteOffer
	m.drainQueueLocked()

	answer, err := m.link.CreateAnswer()
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := m.link.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local answer: %w", err)
	}
	m.state = StateStable
	m.sendDescriptionLocked(signal.TypeAnswer, answer)
	return nil
}

func (m *Machine) handleAnswerLocked(msg signal.Message) error {
	if m.state != StateHaveLocalOffer {
		// Stale or out-of-order; non-fatal.
		util.LogWarning("negotiation: discarding answer from %s in state %s", m.remoteID, m.state)
		return nil
	}

	desc, err := parseDescription(msg.Payload, webrtc.SDPTypeAnswer)
	if err != nil {
		util.LogWarning("negotiation: undecodable answer from %s: %v", m.remoteID, err)
		return nil
	}

	if err := m.link.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("apply remote answer: %w", err)
	}
	m.state = StateStable
	m.drainQueueLocked()
	return nil
}

func (m *Machine) handleCandidateLocked(msg signal.Message) error {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(msg.Payload, &init); err != nil {
		util.LogWarning("negotiation: undecodable candidate from %s: %v", m.remoteID, err)
		return nil
	}

	if !m.link.HasRemoteDescription() {
		m.queue.push(init)
		return nil
	}
	if err := m.link.AddICECandidate(init); err != nil {
		// Candidate against a torn-down or mismatched session: discard.
		util.LogWarning("negotiation: candidate from %s not applied: %v", m.remoteID, err)
	}
	return nil
}

// drainQueueLocked applies the buffered candidates in receipt order, now
// that a remote description exists.
func (m *Machine) drainQueueLocked() {
	for _, init := range m.queue.drain() {
		if err := m.link.AddICECandidate(init); err != nil {
			util.LogWarning("negotiation: queued candidate for %s not applied: %v", m.remoteID, err)
		}
	}
}

// HandleLocalCandidate forwards a locally gathered candidate to the remote
// peer. A nil candidate marks the end of gathering and is dropped.
func (m *Machine) HandleLocalCandidate(c *webrtc.ICECandidate) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(c.ToJSON())
	if err != nil {
		util.LogWarning("negotiation: cannot encode local candidate: %v", err)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.send(signal.Message{
		Type:    signal.TypeICECandidate,
		RoomID:  m.roomID,
		PeerID:  m.localID,
		Payload: payload,
	})
}

// QueuedCandidates reports how many remote candidates are waiting for a
// remote description.
func (m *Machine) QueuedCandidates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.len()
}

func (m *Machine) sendDescriptionLocked(t signal.Type, desc webrtc.SessionDescription) {
	payload, err := json.Marshal(desc)
	if err != nil {
		util.LogWarning("negotiation: cannot encode %s: %v", t, err)
		return
	}
	m.send(signal.Message{
		Type:    t,
		RoomID:  m.roomID,
		PeerID:  m.localID,
		Payload: payload,
	})
}

// parseDescription decodes an offer/answer payload and pins its SDP type;
// the envelope's message type is authoritative over whatever the payload
// claims.
func parseDescription(payload []byte, t webrtc.SDPType) (webrtc.SessionDescription, error) {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(payload, &desc); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("decode session description: %w", err)
	}
	desc.Type = t
	return desc, nil
}
