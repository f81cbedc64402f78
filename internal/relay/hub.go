// Package relay implements the room-scoped signaling relay: an in-memory
// room registry plus verbatim forwarding of offer/answer/ice-candidate
// messages between the members of a room. The relay never parses a payload;
// it only reads the envelope.
package relay

import (
	"context"
	"time"

	"github.com/yeonbit/avalink/internal/signal"
	"github.com/yeonbit/avalink/internal/util"
)

// envelope pairs an inbound message with the connection it arrived on.
type envelope struct {
	from *client
	msg  signal.Message
}

// Hub serializes all room-state mutations onto a single goroutine. Clients
// hand it parsed messages and disconnect events through channels; the hub is
// the only writer of the registry.
type Hub struct {
	registry   *Registry
	inbound    chan envelope
	unregister chan *client
}

// NewHub creates a hub around an empty registry.
func NewHub() *Hub {
	return &Hub{
		registry:   NewRegistry(),
		inbound:    make(chan envelope, 64),
		unregister: make(chan *client, 16),
	}
}

// Run is the hub's main loop. It exits when ctx is cancelled; all room state
// is discarded with it.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case env := <-h.inbound:
			h.handleMessage(env.from, env.msg)
		case c := <-h.unregister:
			h.handleDisconnect(c)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handleMessage(c *client, msg signal.Message) {
	switch msg.Type {
	case signal.TypeJoin:
		h.handleJoin(c, msg)

	case signal.TypeOffer, signal.TypeAnswer, signal.TypeICECandidate:
		if c.roomID == "" {
			util.LogWarning("dropping %s from %s: not in a room", msg.Type, c.peerID)
			return
		}
		// Forward verbatim to everyone else in the room. The payload is
		// opaque here; only the negotiating peers interpret it.
		h.registry.broadcast(c.roomID, c.peerID, msg)

	default:
		// peer-joined / peer-left are server-to-client only.
		util.LogWarning("dropping unexpected %s message from client %s", msg.Type, c.peerID)
	}
}

func (h *Hub) handleJoin(c *client, msg signal.Message) {
	if c.roomID != "" {
		// One room membership per live connection.
		util.LogWarning("peer %s already in room %s, join ignored", c.peerID, c.roomID)
		return
	}
	c.peerID = msg.PeerID
	c.avatarID = msg.AvatarID

	// Symmetric introduction: each existing member learns about the
	// newcomer, and the newcomer learns about each existing member. Done
	// before registration so nobody is introduced to themselves.
	if rm := h.registry.lookup(msg.RoomID); rm != nil {
		for _, m := range rm.members {
			m.enqueue(signal.Message{
				Type:     signal.TypePeerJoined,
				RoomID:   rm.id,
				PeerID:   c.peerID,
				AvatarID: c.avatarID,
			})
			c.enqueue(signal.Message{
				Type:     signal.TypePeerJoined,
				RoomID:   rm.id,
				PeerID:   m.peerID,
				AvatarID: m.avatarID,
			})
		}
	}

	h.registry.join(msg.RoomID, c)
	util.LogInfo("peer %s joined room %s (avatar=%s)", c.peerID, msg.RoomID, c.avatarID)
}

func (h *Hub) handleDisconnect(c *client) {
	if c.roomID != "" {
		roomID := c.roomID
		for _, m := range h.registry.leave(c) {
			m.enqueue(signal.Message{
				Type:   signal.TypePeerLeft,
				RoomID: roomID,
				PeerID: c.peerID,
			})
		}
		if h.registry.lookup(roomID) == nil {
			util.LogInfo("room %s deleted", roomID)
		}
		util.LogInfo("peer %s left room %s after %s", c.peerID, roomID, time.Since(c.joinedAt).Round(time.Second))
	}
	// Stops the write pump. Safe: all enqueues happen on this goroutine,
	// and c is out of every room by now.
	c.closeOut()
}
