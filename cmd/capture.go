package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/smazurov/ispsrc/internal/caps"
	"github.com/smazurov/ispsrc/internal/config"
	"github.com/smazurov/ispsrc/internal/events"
	"github.com/smazurov/ispsrc/internal/logging"
	"github.com/smazurov/ispsrc/internal/media"
	"github.com/smazurov/ispsrc/internal/metrics"
	"github.com/smazurov/ispsrc/internal/source"
)

var errFrameLimit = errors.New("frame limit reached")

// CreateCaptureCmd creates the capture command.
func CreateCaptureCmd() *cobra.Command {
	var peerCaps string
	var peerCapsFile string
	var output string
	var frames uint64
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "capture [uri]",
		Short: "Capture frames without the API server",
		Long: `Opens the source, negotiates against the given peer caps and captures until interrupted ` +
			`or until --frames frames were produced. A peer caps file is watched and reloaded on change.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri := "v4l2:///dev/video0"
			if len(args) == 1 {
				uri = args[0]
			}

			loggingConfig := logging.Config{Level: "info", Format: "text"}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("source").With("uri", uri)

			peer, err := config.ParseCapsOption(peerCaps)
			if err != nil {
				return err
			}
			if peerCapsFile != "" {
				if peer, err = config.LoadPeerCaps(peerCapsFile); err != nil {
					return err
				}
			}

			dev, err := source.OpenURI(uri)
			if err != nil {
				return err
			}
			bus := events.New()
			unsubscribe := bus.Subscribe(func(e events.FrameLostEvent) {
				logger.Warn("Frames lost", "count", e.LostFrames, "pts", e.PTS)
			})
			defer unsubscribe()

			src := source.New(dev,
				source.WithName(uri),
				source.WithBus(bus),
				source.WithStartClock(media.NewSystemClock(nil)),
			)
			if err := src.Open(); err != nil {
				return err
			}
			defer func() { _ = src.Close() }()
			if err := src.Start(); err != nil {
				return err
			}
			src.SetPeer(peer)

			if peerCapsFile != "" {
				watcher := config.NewConfigWatcher(peerCapsFile, config.LoadPeerCaps, logger)
				watcher.OnReload(func(peer caps.Set) {
					logger.Info("Peer caps reloaded", "peer", peer)
					src.SetPeer(peer)
				})
				if err := watcher.Start(); err != nil {
					logger.Warn("Failed to start peer caps watcher, hot-reload disabled", "error", err)
				} else {
					defer func() { _ = watcher.Stop() }()
				}
			}

			fileSink, closeSink, err := NewFileSink(output, logger)
			if err != nil {
				return err
			}
			defer closeSink()

			var pts ptsStats
			sink := func(f *media.Frame) error {
				if err := fileSink(f); err != nil {
					return err
				}
				pts.observe(f.Timestamp)
				if frames > 0 && pts.count >= frames {
					return errFrameLimit
				}
				return nil
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				defer cancel()
				return src.Run(gctx, sink)
			})
			g.Go(func() error {
				return src.WatchRemoval(gctx)
			})
			err = g.Wait()
			if errors.Is(err, errFrameLimit) {
				err = nil
			}

			printSummary(cmd, src, &pts)
			return err
		},
	}

	cmd.Flags().StringVar(&peerCaps, "peer-caps", "", "Formats accepted downstream")
	cmd.Flags().StringVar(&peerCapsFile, "peer-caps-file", "", "TOML file with a [peer] caps key, reloaded on change")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Append captured payloads to this file")
	cmd.Flags().Uint64VarP(&frames, "frames", "n", 0, "Stop after this many frames, 0 for no limit")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}

// ptsStats tracks the presentation timestamps of captured frames.
type ptsStats struct {
	count       uint64
	first, last media.ClockTime
	missing     uint64
	backwards   uint64
}

func (p *ptsStats) observe(ts media.ClockTime) {
	p.count++
	if !ts.IsValid() {
		p.missing++
		return
	}
	if p.count-p.missing == 1 {
		p.first = ts
	} else if ts <= p.last {
		p.backwards++
	}
	p.last = ts
}

func printSummary(cmd *cobra.Command, src *source.Source, pts *ptsStats) {
	st := src.Status()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "format: %s\n", st.Format)
	fmt.Fprintf(out, "frames: %d\n", pts.count)
	if pts.count > pts.missing {
		fmt.Fprintf(out, "pts: %s .. %s\n", pts.first, pts.last)
	}
	fmt.Fprintf(out, "pts missing: %d\n", pts.missing)
	fmt.Fprintf(out, "pts not increasing: %d\n", pts.backwards)
	if stats := metrics.GetCaptureStats(st.Name); stats != nil {
		fmt.Fprintf(out, "lost: %d\n", stats.LostFrames)
		fmt.Fprintf(out, "corrupted: %d\n", stats.Corrupted)
	}
	if st.ClockUntrusted {
		fmt.Fprintln(out, "device clock: untrusted")
	}
}
