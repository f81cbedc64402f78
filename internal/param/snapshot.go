// Package param moves avatar parameter snapshots over the negotiated data
// channel. The stream is unordered and unreliable on purpose: snapshots are
// last-writer-wins, never queued, never retransmitted.
package param

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is one frame of avatar state, produced by a tracking pipeline and
// consumed by a renderer. Field names mirror the motion parameters the
// inference service understands.
type Snapshot struct {
	HeadRotation  [3]float32 `msgpack:"hr"` // pitch, yaw, roll, normalized
	EyeBlinkLeft  float32    `msgpack:"bl"`
	EyeBlinkRight float32    `msgpack:"br"`
	MouthOpen     float32    `msgpack:"mo"`
	Smile         float32    `msgpack:"sm"`
	Timestamp     int64      `msgpack:"ts"` // unix milliseconds at capture
	Gesture       string     `msgpack:"g,omitempty"`
}

// Now stamps the snapshot with the current wall clock.
func (s Snapshot) Now() Snapshot {
	s.Timestamp = time.Now().UnixMilli()
	return s
}

// Encode serializes a snapshot with msgpack. The encoding stays well under
// a hundred bytes per frame.
func Encode(s Snapshot) ([]byte, error) {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode deserializes a snapshot.
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}
