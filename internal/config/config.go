// Package config holds the relay and client configuration types.
package config

// Relay configures the signaling relay binary.
type Relay struct {
	Addr  string // listen address, e.g. ":3001"
	Debug bool
}

// Client configures a joining participant.
type Client struct {
	RelayURL string // relay address, e.g. ws://localhost:3001
	RoomID   string
	PeerID   string // generated when empty
	AvatarID string
	FPS      int // synthetic producer frame rate
	Debug    bool
}

// Infer configures the optional inference-service client.
type Infer struct {
	BaseURL string // e.g. http://localhost:8765
}
