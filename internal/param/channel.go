package param

import (
	"sync"

	"github.com/yeonbit/avalink/internal/util"
)

// Wire is the write end the channel transmits on. *webrtc.DataChannel
// satisfies it; tests substitute a capture.
type Wire interface {
	Send([]byte) error
}

// Channel streams snapshots to one remote peer and holds the newest snapshot
// received from it.
//
// The send path is a single-writer loop fed by a one-slot mailbox: writing a
// new snapshot replaces any unsent one, so the wire only ever carries the
// freshest frame. Send never blocks, never errors, and is a no-op while the
// channel is not attached to an open wire.
type Channel struct {
	mu      sync.Mutex
	wire    Wire
	open    bool
	closed  bool
	pending *Snapshot

	latest    Snapshot
	hasLatest bool
	sink      func(Snapshot)

	kick chan struct{}
	done chan struct{}
}

// NewChannel creates a channel and starts its writer loop. The channel is
// inert until Attach.
func NewChannel() *Channel {
	c := &Channel{
		kick: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Attach binds the channel to an opened wire. Called from the data channel's
// OnOpen handler.
func (c *Channel) Attach(w Wire) {
	c.mu.Lock()
	c.wire = w
	c.open = true
	c.mu.Unlock()
}

// Detach makes subsequent sends no-ops, e.g. when the underlying data
// channel closes before the session is torn down.
func (c *Channel) Detach() {
	c.mu.Lock()
	c.open = false
	c.pending = nil
	c.mu.Unlock()
}

// Close stops the writer loop. Sends after Close are silent no-ops.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.open = false
	c.pending = nil
	c.mu.Unlock()
	close(c.done)
}

// Send hands a snapshot to the writer. A newer frame always supersedes an
// unsent one; nothing is ever queued.
func (c *Channel) Send(s Snapshot) {
	c.mu.Lock()
	if c.closed || !c.open {
		c.mu.Unlock()
		return
	}
	c.pending = &s
	c.mu.Unlock()

	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *Channel) loop() {
	for {
		select {
		case <-c.done:
			return
		case <-c.kick:
			c.mu.Lock()
			s := c.pending
			c.pending = nil
			w, open := c.wire, c.open
			c.mu.Unlock()

			if s == nil || !open {
				continue
			}
			data, err := Encode(*s)
			if err != nil {
				util.LogWarning("snapshot not encodable: %v", err)
				continue
			}
			if err := w.Send(data); err != nil {
				// Wire is closing; this frame is expendable.
				util.LogDebug("snapshot send skipped: %v", err)
				continue
			}
			util.Stats.AddSent(len(data))
		}
	}
}

// Receive ingests one raw inbound frame. The decoded snapshot unconditionally
// replaces the held value: even a frame that is older by timestamp wins,
// because arrival order is the only order the unreliable wire has.
func (c *Channel) Receive(data []byte) {
	s, err := Decode(data)
	if err != nil {
		util.LogWarning("dropping undecodable snapshot: %v", err)
		return
	}

	c.mu.Lock()
	c.latest = s
	c.hasLatest = true
	sink := c.sink
	c.mu.Unlock()

	util.Stats.AddRecv(len(data))
	if sink != nil {
		sink(s)
	}
}

// Latest returns the newest received snapshot, if any.
func (c *Channel) Latest() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.hasLatest
}

// OnSnapshot registers a callback invoked for every received snapshot, after
// it has replaced the held value.
func (c *Channel) OnSnapshot(fn func(Snapshot)) {
	c.mu.Lock()
	c.sink = fn
	c.mu.Unlock()
}
