// Package client drives the client side of a session: the relay connection,
// one negotiation session per remote peer, and the parameter stream fan-out.
package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/yeonbit/avalink/internal/param"
	"github.com/yeonbit/avalink/internal/signal"
	"github.com/yeonbit/avalink/internal/util"
)

// Options configures a client.
type Options struct {
	RelayURL string // ws:// or wss:// address of the relay
	RoomID   string
	PeerID   string // generated when empty
	AvatarID string

	// OnSnapshot is invoked for every snapshot received from a peer, after
	// it has replaced that peer's held value.
	OnSnapshot func(peerID string, s param.Snapshot)

	// OnPeerState is invoked on connectivity transitions. Failed is
	// terminal; this layer never retries.
	OnPeerState func(peerID string, state webrtc.PeerConnectionState)
}

// Client is one participant: a single relay connection and a session per
// remote peer in the room.
type Client struct {
	opts Options

	conn *websocket.Conn
	wsMu sync.Mutex // serializes writes; reads stay on the read loop

	mu       sync.Mutex
	sessions map[string]*peerSession

	ctx    context.Context
	cancel context.CancelFunc
}

// Dial connects to the relay, joins the room, and starts the dispatch loop.
// Sessions come and go as peers join and leave; the client itself lives
// until Close or a relay disconnect.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.RoomID == "" {
		return nil, fmt.Errorf("room id is required")
	}
	if opts.PeerID == "" {
		opts.PeerID = uuid.NewString()
	}

	wsURL, err := NormalizeRelayURL(opts.RelayURL)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to relay: %w", err)
	}

	cCtx, cCancel := context.WithCancel(ctx)
	c := &Client{
		opts:     opts,
		conn:     conn,
		sessions: make(map[string]*peerSession),
		ctx:      cCtx,
		cancel:   cCancel,
	}

	c.sendSignal(signal.Message{
		Type:     signal.TypeJoin,
		RoomID:   opts.RoomID,
		PeerID:   opts.PeerID,
		AvatarID: opts.AvatarID,
	})
	util.LogInfo("joined room %s as %s", opts.RoomID, opts.PeerID)

	go c.readLoop()
	return c, nil
}

// PeerID returns the identifier this client joined with.
func (c *Client) PeerID() string { return c.opts.PeerID }

// Done returns a channel closed when the client shuts down.
func (c *Client) Done() <-chan struct{} { return c.ctx.Done() }

// readLoop reads relayed messages and dispatches them. It exits when the
// relay connection dies, tearing down every session with it.
func (c *Client) readLoop() {
	defer func() {
		c.teardownAll()
		c.cancel()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				util.LogWarning("relay connection lost: %v", err)
			}
			return
		}

		msg, err := signal.Decode(data)
		if err != nil {
			util.LogWarning("dropping malformed relay message: %v", err)
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg signal.Message) {
	switch msg.Type {
	case signal.TypePeerJoined:
		ps, err := c.ensureSession(msg.PeerID, msg.AvatarID)
		if err != nil {
			util.LogError("cannot start session with %s: %v", msg.PeerID, err)
			return
		}
		if !ps.machine.Polite() {
			if err := ps.machine.Offer(); err != nil {
				util.LogError("offer to %s failed: %v", msg.PeerID, err)
			}
		}

	case signal.TypePeerLeft:
		c.removeSession(msg.PeerID, "peer left")

	case signal.TypeOffer, signal.TypeAnswer, signal.TypeICECandidate:
		c.mu.Lock()
		ps := c.sessions[msg.PeerID]
		c.mu.Unlock()
		if ps == nil {
			util.LogWarning("dropping %s from unknown peer %s", msg.Type, msg.PeerID)
			return
		}
		if err := ps.machine.HandleRemoteMessage(msg); err != nil {
			util.LogError("negotiation with %s failed: %v", msg.PeerID, err)
		}

	default:
		util.LogWarning("dropping unexpected %s message from relay", msg.Type)
	}
}

// ensureSession returns the session for remoteID, creating it on first use.
func (c *Client) ensureSession(remoteID, avatarID string) (*peerSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ps, ok := c.sessions[remoteID]; ok {
		return ps, nil
	}
	ps, err := c.startSession(remoteID, avatarID)
	if err != nil {
		return nil, err
	}
	c.sessions[remoteID] = ps
	return ps, nil
}

func (c *Client) removeSession(remoteID, reason string) {
	c.mu.Lock()
	ps := c.sessions[remoteID]
	delete(c.sessions, remoteID)
	c.mu.Unlock()
	if ps == nil {
		return
	}
	util.LogInfo("session with %s torn down: %s", remoteID, reason)
	ps.close()
}

func (c *Client) teardownAll() {
	c.mu.Lock()
	all := make([]*peerSession, 0, len(c.sessions))
	for _, ps := range c.sessions {
		all = append(all, ps)
	}
	c.sessions = make(map[string]*peerSession)
	c.mu.Unlock()
	for _, ps := range all {
		ps.close()
	}
}

// Broadcast sends a snapshot to every connected peer. Peers whose channel is
// not open yet simply miss the frame.
func (c *Client) Broadcast(s param.Snapshot) {
	c.mu.Lock()
	all := make([]*peerSession, 0, len(c.sessions))
	for _, ps := range c.sessions {
		all = append(all, ps)
	}
	c.mu.Unlock()
	for _, ps := range all {
		ps.params.Send(s)
	}
}

// Latest returns the newest snapshot received from the given peer.
func (c *Client) Latest(peerID string) (param.Snapshot, bool) {
	c.mu.Lock()
	ps := c.sessions[peerID]
	c.mu.Unlock()
	if ps == nil {
		return param.Snapshot{}, false
	}
	return ps.params.Latest()
}

// sendSignal writes one message to the relay. Best-effort: after shutdown it
// is a silent no-op, and a write failure only logs; the read loop notices
// the dead connection and drives the teardown.
func (c *Client) sendSignal(msg signal.Message) {
	select {
	case <-c.ctx.Done():
		return
	default:
	}
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		util.LogDebug("relay send failed: %v", err)
	}
}

// Close shuts the client down: every session, then the relay connection.
func (c *Client) Close() {
	c.cancel()
	c.teardownAll()
	c.conn.Close()
}

// NormalizeRelayURL validates a relay address and pins the /ws path.
// Accepts bare host:port, ws:// and wss:// forms.
func NormalizeRelayURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("relay URL is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid relay URL: %s", raw)
	}
	scheme := "ws"
	if u.Scheme == "wss" || u.Scheme == "https" {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/ws", scheme, u.Host), nil
}
