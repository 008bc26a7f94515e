package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/board-gauge/internal/capture"
	"github.com/ironsheep/board-gauge/internal/config"
	"github.com/ironsheep/board-gauge/internal/log"
	"github.com/ironsheep/board-gauge/internal/session"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func printUsage(fs *flag.FlagSet) {
	fmt.Println("board-gauge - measure boards and cuts against a credit card")
	fmt.Println()
	fmt.Println("Usage: board-gauge [options]")
	fmt.Println()
	fmt.Println("With no options, serves MCP over stdin/stdout.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fs.SetOutput(os.Stdout)
	fs.PrintDefaults()
	fmt.Println()
	fmt.Println("Environment variables (also read from .env):")
	fmt.Println("  BOARD_GAUGE_LOG_LEVEL=debug        Enable debug logging")
	fmt.Println("  BOARD_GAUGE_BACKEND=go|gocv        Vision backend")
	fmt.Println("  BOARD_GAUGE_PIXELS_PER_CM=20.5     Start calibrated")
	fmt.Println("  BOARD_GAUGE_HTTP_ADDR=:3000        HTTP listen address")
	fmt.Println("  BOARD_GAUGE_EXPORT_DIR=./exports   Where exports are written")
}

func main() {
	os.Exit(run())
}

// run does the work of main and returns the exit code, so deferred cleanup
// happens before the process exits.
func run() int {
	fs := flag.NewFlagSet("board-gauge", flag.ExitOnError)
	httpMode := fs.Bool("http", false, "serve the HTTP/WebSocket API instead of MCP")
	framesDir := fs.String("frames", "", "measure the image files in `dir` in a local loop")
	camera := fs.Bool("camera", false, "measure camera frames in a local loop (needs -tags gocv)")
	repeat := fs.Bool("repeat", false, "with --frames, wrap around instead of stopping")
	exportOnExit := fs.Bool("export", false, "with a local loop, export the last measurement on exit")
	envFile := fs.String("env", ".env", "optional `file` of BOARD_GAUGE_* settings")

	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("board-gauge %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return 0
		case "--help", "-h", "help":
			printUsage(fs)
			return 0
		}
	}
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "board-gauge: %v\n", err)
		return 2
	}

	// stdout is reserved for MCP unless another host runs.
	logger := log.Setup(log.Options{Level: cfg.LogLevel, Dir: cfg.LogDir, Colors: *httpMode})
	logger.WithFields(logrus.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
		"backend": cfg.Backend,
	}).Debug("board-gauge starting")

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("startup failed")
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.WithError(err).Warn("closing the vision backend")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := *framesDir != "" || *camera
	switch {
	case loop || *httpMode:
		err = runHosts(ctx, a, hostOptions{
			http:      *httpMode,
			loop:      loop,
			framesDir: *framesDir,
			camera:    *camera,
			repeat:    *repeat,
			export:    *exportOnExit,
		})
	default:
		err = a.mcpServer().Run()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("board-gauge stopped")
		return 1
	}
	return 0
}

type hostOptions struct {
	http      bool
	loop      bool
	framesDir string
	camera    bool
	repeat    bool
	export    bool
}

// runHosts runs the HTTP host and the local frame loop side by side on one
// session until ctx ends or either fails.
func runHosts(ctx context.Context, a *app, opts hostOptions) error {
	var src capture.Source
	if opts.loop {
		var err error
		if src, err = a.openSource(opts.framesDir, opts.camera, opts.repeat); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	if opts.http {
		srv, err := a.webServer()
		if err != nil {
			if src != nil {
				src.Close()
			}
			return err
		}
		g.Go(func() error {
			return srv.Run(a.cfg.HTTPAddr)
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if src != nil {
		g.Go(func() error {
			defer src.Close()

			// Without an HTTP host nobody else can calibrate or start measuring.
			l := capture.NewLoop(src, a.framePass(!opts.http), a.cfg.FrameInterval, a.log)
			err := l.Run(ctx)

			stats := l.Stats()
			a.log.WithFields(logrus.Fields{
				"passes":   stats.Passes,
				"failed":   stats.Failed,
				"skipped":  stats.Skipped,
				"avg_pass": stats.AvgPass,
			}).Info("frame loop finished")

			if opts.export {
				a.exportOnExit()
			}
			return err
		})
	}

	return g.Wait()
}

func (a *app) exportOnExit() {
	path, err := a.exportLast()
	switch {
	case errors.Is(err, session.ErrNoMeasurement):
		a.log.Warn("nothing measured, no export written")
	case err != nil:
		a.log.WithError(err).Error("export failed")
	default:
		a.log.WithField("path", path).Info("measurement exported")
	}
}
