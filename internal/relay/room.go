package relay

import (
	"time"

	"github.com/yeonbit/avalink/internal/signal"
)

// room groups exactly the peers intending to negotiate with one another.
// A room exists iff it has at least one member.
type room struct {
	id      string
	members map[string]*client // peerID → connection
}

// Registry is the in-memory room map. It is owned by the hub goroutine and
// must never be touched from anywhere else; that single-owner rule is what
// makes the member-set mutations safe without locking.
type Registry struct {
	rooms map[string]*room
}

// NewRegistry creates an empty registry. It is initialized at process start
// and holds no persistent state.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

// lookup returns the room with the given id, or nil.
func (r *Registry) lookup(roomID string) *room {
	return r.rooms[roomID]
}

// join registers c as a member of roomID, creating the room if absent.
func (r *Registry) join(roomID string, c *client) {
	rm := r.rooms[roomID]
	if rm == nil {
		rm = &room{id: roomID, members: make(map[string]*client)}
		r.rooms[roomID] = rm
	}
	c.roomID = roomID
	c.joinedAt = time.Now()
	rm.members[c.peerID] = c
}

// leave removes c from its room and deletes the room once empty. It returns
// the members remaining after removal.
func (r *Registry) leave(c *client) []*client {
	rm := r.rooms[c.roomID]
	if rm == nil {
		return nil
	}
	delete(rm.members, c.peerID)
	if len(rm.members) == 0 {
		delete(r.rooms, rm.id)
		return nil
	}
	rest := make([]*client, 0, len(rm.members))
	for _, m := range rm.members {
		rest = append(rest, m)
	}
	return rest
}

// broadcast forwards msg to every member of roomID except the sender.
// Members whose outbound queue is gone are skipped silently.
func (r *Registry) broadcast(roomID, senderID string, msg signal.Message) {
	rm := r.rooms[roomID]
	if rm == nil {
		return
	}
	for id, m := range rm.members {
		if id == senderID {
			continue
		}
		m.enqueue(msg)
	}
}

// roomCount reports the number of live rooms.
func (r *Registry) roomCount() int {
	return len(r.rooms)
}
