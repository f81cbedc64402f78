package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeonbit/avalink/internal/config"
	"github.com/yeonbit/avalink/internal/infer"
	"github.com/yeonbit/avalink/internal/util"
)

var inferCfg config.Infer

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Talk to the avatar inference service",
}

var inferStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the inference service's readiness",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		st, err := infer.New(inferCfg.BaseURL).Status(ctx)
		if err != nil {
			return err
		}
		util.LogInfo("status=%s pipeline_ready=%v reference_loaded=%v clients=%d",
			st.Status, st.PipelineReady, st.ReferenceLoaded, st.ConnectedClients)
		return nil
	},
}

var inferUploadCmd = &cobra.Command{
	Use:   "upload <image>",
	Short: "Upload a reference image for frame synthesis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		if err := infer.New(inferCfg.BaseURL).UploadReference(ctx, args[0]); err != nil {
			return err
		}
		util.LogSuccess("reference image uploaded: %s", args[0])
		return nil
	},
}

func init() {
	inferCmd.PersistentFlags().StringVar(&inferCfg.BaseURL, "url", infer.DefaultBaseURL, "inference service base URL")
	inferCmd.AddCommand(inferStatusCmd)
	inferCmd.AddCommand(inferUploadCmd)
	rootCmd.AddCommand(inferCmd)
}
