package relay

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/yeonbit/avalink/internal/signal"
	"github.com/yeonbit/avalink/internal/util"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound message size. SDP bodies are a few KB; this leaves
	// generous headroom without letting a client exhaust memory.
	maxMessageSize = 64 * 1024

	// Outbound queue capacity per connection.
	outBufferSize = 256
)

// client is one connected peer: its transport handle plus the room identity
// assigned on join. The hub goroutine owns peerID/avatarID/roomID/joinedAt,
// the pumps own conn.
type client struct {
	hub  *Hub
	conn *websocket.Conn

	peerID   string
	avatarID string
	roomID   string
	joinedAt time.Time

	// out is drained by writePump. Closed by the hub after the client has
	// been removed from its room; enqueue is a no-op afterwards.
	out       chan signal.Message
	outClosed bool
}

// enqueue hands msg to the write pump without blocking the hub. A full queue
// means the connection is stalled beyond saving; the message is dropped.
// Must only be called from the hub goroutine.
func (c *client) enqueue(msg signal.Message) {
	if c.outClosed {
		return
	}
	select {
	case c.out <- msg:
	default:
		util.LogWarning("outbound queue full for peer %s, dropping %s", c.peerID, msg.Type)
	}
}

// closeOut shuts the outbound queue. Must only be called from the hub
// goroutine, after the client has left its room.
func (c *client) closeOut() {
	if c.outClosed {
		return
	}
	c.outClosed = true
	close(c.out)
}

// readPump reads messages off the socket and feeds them to the hub. It is
// the connection's only reader. Malformed messages are logged and dropped;
// the connection stays alive.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				util.LogDebug("read error from %s: %v", c.conn.RemoteAddr(), err)
			}
			return
		}

		msg, err := signal.Decode(data)
		if err != nil {
			util.LogWarning("dropping malformed message from %s: %v", c.conn.RemoteAddr(), err)
			continue
		}

		c.hub.inbound <- envelope{from: c, msg: msg}
	}
}

// writePump drains the outbound queue onto the socket and keeps the
// connection alive with pings. It is the connection's only writer.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				// Socket is gone; the read pump will unregister us.
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
