package infer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/yeonbit/avalink/internal/param"
)

// Frame is one synthesized image from the service, delivered as a data URL
// (base64 JPEG).
type Frame struct {
	Image string
}

// Stream is a live frame-synthesis connection: motion parameters go out,
// rendered frames come back.
type Stream struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// motionMessage matches the service's inbound wire format.
type motionMessage struct {
	Type   string       `json:"type"`
	Params motionParams `json:"params"`
}

type motionParams struct {
	HeadRotation  [3]float32 `json:"headRotation"`
	EyeBlinkLeft  float32    `json:"eyeBlinkLeft"`
	EyeBlinkRight float32    `json:"eyeBlinkRight"`
	MouthOpen     float32    `json:"mouthOpen"`
	Smile         float32    `json:"smile"`
}

// serviceReply covers every message the service sends back.
type serviceReply struct {
	Type    string `json:"type"` // frame | status | error | pong
	Image   string `json:"image,omitempty"`
	Message string `json:"message,omitempty"`
}

// OpenStream dials the service's WebSocket endpoint.
func (c *Client) OpenStream(ctx context.Context) (*Stream, error) {
	wsURL, err := c.streamURL()
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("inference stream: %w", err)
	}
	return &Stream{conn: conn}, nil
}

// SendMotion submits one snapshot's parameters for synthesis.
func (s *Stream) SendMotion(snap param.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(motionMessage{
		Type: "motion",
		Params: motionParams{
			HeadRotation:  snap.HeadRotation,
			EyeBlinkLeft:  snap.EyeBlinkLeft,
			EyeBlinkRight: snap.EyeBlinkRight,
			MouthOpen:     snap.MouthOpen,
			Smile:         snap.Smile,
		},
	})
}

// ReadFrame blocks until the next synthesized frame. Non-frame replies
// (status while the pipeline warms up, service-side errors) are returned as
// errors; the stream stays usable afterwards.
func (s *Stream) ReadFrame() (Frame, error) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return Frame{}, err
		}
		var reply serviceReply
		if err := json.Unmarshal(data, &reply); err != nil {
			return Frame{}, fmt.Errorf("decode service reply: %w", err)
		}
		switch reply.Type {
		case "frame":
			return Frame{Image: reply.Image}, nil
		case "pong":
			continue
		case "status":
			return Frame{}, fmt.Errorf("inference service not ready: %s", reply.Message)
		case "error":
			return Frame{}, fmt.Errorf("inference error: %s", reply.Message)
		default:
			return Frame{}, fmt.Errorf("unexpected reply type %q", reply.Type)
		}
	}
}

// Close shuts the stream down.
func (s *Stream) Close() error {
	return s.conn.Close()
}
