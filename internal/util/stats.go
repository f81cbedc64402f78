package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide session/snapshot counter.
var Stats = &stats{}

type stats struct {
	SessionsOpened atomic.Int64 // cumulative count of negotiation sessions started
	SessionsClosed atomic.Int64 // cumulative count of negotiation sessions torn down
	SnapshotsSent  atomic.Int64 // cumulative snapshots written to the data channel
	SnapshotsRecv  atomic.Int64 // cumulative snapshots read from the data channel
	BytesSent      atomic.Int64 // cumulative payload bytes sent
	BytesRecv      atomic.Int64 // cumulative payload bytes received
}

func (s *stats) AddSession()    { s.SessionsOpened.Add(1) }
func (s *stats) RemoveSession() { s.SessionsClosed.Add(1) }

func (s *stats) AddSent(n int) {
	s.SnapshotsSent.Add(1)
	s.BytesSent.Add(int64(n))
}

func (s *stats) AddRecv(n int) {
	s.SnapshotsRecv.Add(1)
	s.BytesRecv.Add(int64(n))
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs snapshot throughput
// every 10 seconds. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevSent, prevRecv int64
		for {
			select {
			case <-ticker.C:
				sent := Stats.SnapshotsSent.Load()
				recv := Stats.SnapshotsRecv.Load()

				outFPS := float64(sent-prevSent) / 10.0
				inFPS := float64(recv-prevRecv) / 10.0

				if outFPS > 0 || inFPS > 0 {
					pterm.DefaultLogger.Info(fmt.Sprintf(
						"Out: %5.1f snap/s | In: %5.1f snap/s | Sessions: %d open",
						outFPS, inFPS,
						Stats.SessionsOpened.Load()-Stats.SessionsClosed.Load(),
					))
				}

				prevSent = sent
				prevRecv = recv

			case <-ctx.Done():
				return
			}
		}
	}()
}
