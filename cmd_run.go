package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/galapagotchi/config"
	"github.com/pthm-cable/galapagotchi/game"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an evolution session",
		Long: `Run an evolution session until the journey is complete, the frame limit
is reached or the process is interrupted.

Without --realtime frames run back to back and settle delays are measured
on a simulated clock, so a session runs as fast as the CPU allows.

Examples:
  galapagotchi run --max-frames 100000 --output-dir runs/a
  galapagotchi run --realtime --listen :8080 --store genomes.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Cfg().Clone()

			seed, _ := cmd.Flags().GetInt64("seed")
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			if cmd.Flags().Changed("max-frames") {
				cfg.Driver.MaxFrames, _ = cmd.Flags().GetInt("max-frames")
			}
			if cmd.Flags().Changed("fps") {
				cfg.Driver.FPS, _ = cmd.Flags().GetInt("fps")
			}
			cfg.Recompute()

			realtime, _ := cmd.Flags().GetBool("realtime")
			logStats, _ := cmd.Flags().GetBool("log-stats")
			storePath, _ := cmd.Flags().GetString("store")
			outputDir, _ := cmd.Flags().GetString("output-dir")
			snapshotDir, _ := cmd.Flags().GetString("snapshot-dir")
			listen, _ := cmd.Flags().GetString("listen")

			g, err := game.NewGameWithOptions(game.Options{
				Seed:        seed,
				Config:      cfg,
				StorePath:   storePath,
				OutputDir:   outputDir,
				SnapshotDir: snapshotDir,
				Listen:      listen,
				Realtime:    realtime,
				LogStats:    logStats,
			})
			if err != nil {
				return err
			}
			defer g.Unload()

			slog.Info("starting session",
				"seed", seed,
				"realtime", realtime,
				"fps", cfg.Driver.FPS,
				"max_frames", cfg.Driver.MaxFrames,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			runLoop(ctx, g, realtime, cfg.Derived.FrameDuration)

			slog.Info("session finished",
				"frames", g.Tick(),
				"generation", g.Engine().Generation(),
				"leg", g.Engine().LegNumber(),
				"completed", g.Completed(),
			)
			return nil
		},
	}

	cmd.Flags().Int64("seed", 0, "RNG seed (0 = time-based)")
	cmd.Flags().Int("max-frames", 0, "Stop after N frames (0 = unlimited)")
	cmd.Flags().Int("fps", 60, "Frames per second")
	cmd.Flags().Bool("realtime", false, "Pace frames on the wall clock")
	cmd.Flags().Bool("log-stats", false, "Output generation stats via slog")
	cmd.Flags().String("store", "", "SQLite genome store (empty = use config)")
	cmd.Flags().String("output-dir", "", "Output directory for CSV logs and config snapshot")
	cmd.Flags().String("snapshot-dir", "", "Directory for milestone snapshots")
	cmd.Flags().String("listen", "", "Address serving population snapshots over websocket")

	return cmd
}

// runLoop updates g until it is done or ctx is cancelled. In realtime mode
// one frame runs per tick of frame.
func runLoop(ctx context.Context, g *game.Game, realtime bool, frame time.Duration) {
	if !realtime {
		for !g.Done() {
			select {
			case <-ctx.Done():
				return
			default:
			}
			g.Update()
		}
		return
	}

	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	for !g.Done() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Update()
		}
	}
}
