package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/pion/webrtc/v4"
	"github.com/spf13/cobra"

	"github.com/yeonbit/avalink/internal/client"
	"github.com/yeonbit/avalink/internal/config"
	"github.com/yeonbit/avalink/internal/param"
	"github.com/yeonbit/avalink/internal/util"
)

var joinCfg config.Client

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join a room and stream avatar parameters to the other peer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return runJoin(ctx, joinCfg)
	},
}

func init() {
	joinCmd.Flags().StringVar(&joinCfg.RelayURL, "relay", "ws://localhost:3001", "relay address")
	joinCmd.Flags().StringVar(&joinCfg.RoomID, "room", "", "room to join")
	joinCmd.Flags().StringVar(&joinCfg.PeerID, "peer-id", "", "peer identifier (random when empty)")
	joinCmd.Flags().StringVar(&joinCfg.AvatarID, "avatar", "default", "avatar identifier announced on join")
	joinCmd.Flags().IntVar(&joinCfg.FPS, "fps", 30, "synthetic motion frame rate")
	joinCmd.MarkFlagRequired("room")
	rootCmd.AddCommand(joinCmd)
}

func runJoin(ctx context.Context, cfg config.Client) error {
	c, err := client.Dial(ctx, client.Options{
		RelayURL: cfg.RelayURL,
		RoomID:   cfg.RoomID,
		PeerID:   cfg.PeerID,
		AvatarID: cfg.AvatarID,
		OnPeerState: func(peerID string, state webrtc.PeerConnectionState) {
			switch state {
			case webrtc.PeerConnectionStateConnected:
				util.LogSuccess("connected to %s, snapshots now flow peer to peer", peerID)
			case webrtc.PeerConnectionStateFailed:
				util.LogError("connection to %s failed", peerID)
			}
		},
		OnSnapshot: func(peerID string, s param.Snapshot) {
			util.LogDebug("from %s: yaw=%+.2f mouth=%.2f smile=%.2f",
				peerID, s.HeadRotation[1], s.MouthOpen, s.Smile)
		},
	})
	if err != nil {
		return err
	}
	defer c.Close()

	util.StartStatsReporter(ctx)

	// No tracker is attached in the CLI; drive the channel with synthetic
	// motion so the session can be exercised end to end.
	go param.RunSynth(ctx, cfg.FPS, func(s param.Snapshot) {
		c.Broadcast(s)
	})

	select {
	case <-ctx.Done():
	case <-c.Done():
	}
	util.LogInfo("left room %s", cfg.RoomID)
	return nil
}
