package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/smazurov/ispsrc/cmd"
	"github.com/smazurov/ispsrc/internal/api"
	"github.com/smazurov/ispsrc/internal/caps"
	"github.com/smazurov/ispsrc/internal/config"
	"github.com/smazurov/ispsrc/internal/events"
	"github.com/smazurov/ispsrc/internal/led"
	"github.com/smazurov/ispsrc/internal/logging"
	"github.com/smazurov/ispsrc/internal/media"
	"github.com/smazurov/ispsrc/internal/source"
	"github.com/smazurov/ispsrc/internal/systemd"
	"github.com/smazurov/ispsrc/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"ispsrc.toml"`

	// Source settings
	URI             string `help:"Source URI (v4l2:///dev/video0, sim://)" short:"u" default:"v4l2:///dev/video0" toml:"source.uri" env:"SOURCE_URI"`
	TemplateCaps    string `help:"Formats the source may produce, empty for all the device offers" toml:"source.template_caps" env:"SOURCE_TEMPLATE_CAPS"`
	PeerCaps        string `help:"Formats accepted downstream" toml:"source.peer_caps" env:"SOURCE_PEER_CAPS"`
	PeerCapsFile    string `help:"TOML file with a [peer] caps key, reloaded on change" toml:"source.peer_caps_file" env:"SOURCE_PEER_CAPS_FILE"`
	TargetWidth     int    `help:"Preferred width when the format leaves it open" default:"320" toml:"source.target_width" env:"SOURCE_TARGET_WIDTH"`
	TargetHeight    int    `help:"Preferred height when the format leaves it open" default:"200" toml:"source.target_height" env:"SOURCE_TARGET_HEIGHT"`
	TargetFramerate string `help:"Preferred frame rate when the format leaves it open" default:"100/1" toml:"source.target_framerate" env:"SOURCE_TARGET_FRAMERATE"`
	Output          string `help:"Append captured payloads to this file" short:"o" toml:"source.output" env:"SOURCE_OUTPUT"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Auth settings
	AuthUsername string `help:"Basic auth username, empty disables auth" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" toml:"auth.password" env:"AUTH_PASSWORD"`

	MetricsEnabled bool `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Features settings
	FeaturesLEDControl bool `help:"Show capture status on the board LED" default:"false" toml:"features.led_control_enabled" env:"FEATURES_LED_CONTROL"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSource     string `help:"Source logging level" default:"info" toml:"logging.source" env:"LOGGING_SOURCE"`
	LoggingDevice     string `help:"Device logging level" default:"info" toml:"logging.device" env:"LOGGING_DEVICE"`
	LoggingNegotiate  string `help:"Negotiation logging level" default:"info" toml:"logging.negotiate" env:"LOGGING_NEGOTIATE"`
	LoggingAllocation string `help:"Allocation logging level" default:"info" toml:"logging.allocation" env:"LOGGING_ALLOCATION"`
	LoggingTimestamp  string `help:"Timestamp logging level" default:"info" toml:"logging.timestamp" env:"LOGGING_TIMESTAMP"`
	LoggingSequence   string `help:"Sequence logging level" default:"info" toml:"logging.sequence" env:"LOGGING_SEQUENCE"`
	LoggingAPI        string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"source":     o.LoggingSource,
			"device":     o.LoggingDevice,
			"negotiate":  o.LoggingNegotiate,
			"allocation": o.LoggingAllocation,
			"timestamp":  o.LoggingTimestamp,
			"sequence":   o.LoggingSequence,
			"api":        o.LoggingAPI,
			"http":       o.LoggingAPI,
			"config":     o.LoggingLevel,
		},
	}
}

func (o *Options) target() (caps.Target, error) {
	rate, err := caps.ParseFraction(o.TargetFramerate)
	if err != nil {
		return caps.Target{}, err
	}
	return caps.Target{Width: o.TargetWidth, Height: o.TargetHeight, FrameRate: rate}, nil
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		hooks.OnStart(func() {
			defer cancel()
			if err := run(ctx, opts, logger); err != nil {
				logger.Error("Capture failed", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			cancel()
		})
	})

	cli.Root().Use = "ispsrc"
	cli.Root().Version = version.String()
	cli.Root().AddCommand(cmd.CreateCaptureCmd())
	cli.Root().AddCommand(cmd.CreateDevicesCmd())
	cli.Root().AddCommand(cmd.CreateNegotiateCmd())

	cli.Run()
}

// run opens the source, serves the API and captures until ctx is done.
func run(ctx context.Context, opts *Options, logger *slog.Logger) error {
	target, err := opts.target()
	if err != nil {
		return err
	}
	template, err := config.ParseCapsOption(opts.TemplateCaps)
	if err != nil {
		return err
	}
	peer, err := config.ParseCapsOption(opts.PeerCaps)
	if err != nil {
		return err
	}
	if opts.PeerCapsFile != "" {
		if peer, err = config.LoadPeerCaps(opts.PeerCapsFile); err != nil {
			logger.Warn("Failed to read peer caps file, using --peer-caps", "file", opts.PeerCapsFile, "error", err)
			peer, _ = config.ParseCapsOption(opts.PeerCaps)
		}
	}

	dev, err := source.OpenURI(opts.URI)
	if err != nil {
		return err
	}

	bus := events.New()
	notifier := systemd.NewNotifier(logger)
	unsubscribe := bus.Subscribe(func(e events.FormatChangedEvent) {
		notifier.Status("capturing " + e.Format)
	})
	defer unsubscribe()

	if opts.FeaturesLEDControl {
		ctrl, ledType := led.New(logging.GetLogger("led"))
		ledManager := led.NewManager(ctrl, ledType, bus, logging.GetLogger("led"))
		ledManager.Start()
		defer ledManager.Stop()
	}

	srcOpts := []source.Option{
		source.WithName(opts.URI),
		source.WithBus(bus),
		source.WithTarget(target),
		source.WithStartClock(media.NewSystemClock(nil)),
	}
	if template != nil {
		srcOpts = append(srcOpts, source.WithTemplate(template))
	}
	src := source.New(dev, srcOpts...)

	if err := src.Open(); err != nil {
		return err
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Warn("Failed to close source", "error", err)
		}
	}()
	if err := src.Start(); err != nil {
		return err
	}
	src.SetPeer(peer)

	sink, closeSink, err := cmd.NewFileSink(opts.Output, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	apiOpts := &api.Options{
		AuthUsername: opts.AuthUsername,
		AuthPassword: opts.AuthPassword,
		Source:       src,
		EventBus:     bus,
	}
	if opts.MetricsEnabled {
		apiOpts.PrometheusHandler = promhttp.Handler()
	}
	server := api.NewServer(apiOpts)
	ln, err := server.Listen(opts.Port)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return src.Run(gctx, sink)
	})
	g.Go(func() error {
		return server.Serve(gctx, ln)
	})
	g.Go(func() error {
		return notifier.Watchdog(gctx)
	})
	g.Go(func() error {
		return src.WatchRemoval(gctx)
	})
	if opts.PeerCapsFile != "" {
		watcher := config.NewConfigWatcher(opts.PeerCapsFile, config.LoadPeerCaps, logging.GetLogger("config"))
		watcher.OnReload(func(peer caps.Set) {
			logger.Info("Peer caps reloaded", "peer", peer)
			src.SetPeer(peer)
		})
		g.Go(func() error {
			if err := watcher.Run(gctx); err != nil {
				logger.Warn("Peer caps watcher disabled", "error", err)
			}
			return nil
		})
	}

	logger.Info("Capturing", "uri", opts.URI, "port", opts.Port, "version", version.String())
	notifier.Ready()
	err = g.Wait()
	notifier.Stopping()
	if stopErr := src.Stop(); stopErr != nil {
		logger.Warn("Failed to stop source", "error", stopErr)
	}
	return err
}
