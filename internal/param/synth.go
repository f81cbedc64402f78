package param

import (
	"context"
	"math"
	"time"
)

// RunSynth emits smooth periodic motion at the given frame rate until ctx is
// cancelled. It stands in for a real tracking pipeline when none is attached,
// so a session can be exercised end to end from the CLI.
func RunSynth(ctx context.Context, fps int, emit func(Snapshot)) {
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			emit(synthAt(time.Since(start)))
		}
	}
}

// synthAt computes the synthetic pose for a point in time: a slow head sway,
// a blink roughly every four seconds, and a gentle mouth/smile cycle.
func synthAt(elapsed time.Duration) Snapshot {
	t := elapsed.Seconds()

	blink := float32(0)
	if phase := math.Mod(t, 4.0); phase < 0.25 {
		blink = float32(math.Sin(phase / 0.25 * math.Pi))
	}

	return Snapshot{
		HeadRotation: [3]float32{
			float32(0.15 * math.Sin(2*math.Pi*t/7.0)),
			float32(0.30 * math.Sin(2*math.Pi*t/5.0)),
			float32(0.05 * math.Sin(2*math.Pi*t/9.0)),
		},
		EyeBlinkLeft:  blink,
		EyeBlinkRight: blink,
		MouthOpen:     float32(0.2 + 0.2*math.Sin(2*math.Pi*t/3.0)),
		Smile:         float32(0.5 + 0.5*math.Sin(2*math.Pi*t/11.0)),
		Timestamp:     time.Now().UnixMilli(),
	}
}
