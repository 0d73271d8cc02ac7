package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vireo-ai/streamkit"
)

var talkCmd = &cobra.Command{
	Use:   "talk <text>...",
	Short: "Open a session, speak each text argument, stream until interrupted",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTalk,
}

func init() {
	rootCmd.AddCommand(talkCmd)
}

func runTalk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	auth, err := authFromConfig(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mgr, err := streamkit.Create(ctx, streamkit.Options{
		BaseURL: cfg.BaseURL,
		AgentID: cfg.AgentID,
		Auth:    auth,
		Stream:  streamFromConfig(cfg),
		Debug:   cfg.Debug,
		Callbacks: streamkit.Callbacks{
			OnConnectionStateChange: func(s streamkit.ConnectionState) {
				fmt.Printf("connection: %s\n", s)
			},
			OnVideoStateChange: func(v streamkit.VideoState, report []streamkit.LossSample) {
				if len(report) > 0 {
					fmt.Printf("video: %s (worst loss deltas: %v)\n", v, lossValues(report))
					return
				}
				fmt.Printf("video: %s\n", v)
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer mgr.Disconnect()
	fmt.Fprintf(os.Stderr, "session %s on stream %s\n", mgr.SessionID(), mgr.StreamID())

	for _, text := range args {
		if _, err := mgr.Speak(ctx, streamkit.Text(text)); err != nil {
			return fmt.Errorf("speak: %w", err)
		}
		// Let one utterance land before queuing the next.
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}

	<-ctx.Done()
	return nil
}

func lossValues(report []streamkit.LossSample) []int64 {
	out := make([]int64, len(report))
	for i, s := range report {
		out[i] = s.PacketsLost
	}
	return out
}
