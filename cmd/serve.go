package cmd

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/smart-presence/internal/capture"
	"github.com/kozaktomas/smart-presence/internal/config"
	"github.com/kozaktomas/smart-presence/internal/engine"
	"github.com/kozaktomas/smart-presence/internal/frame"
	"github.com/kozaktomas/smart-presence/internal/settings"
	"github.com/kozaktomas/smart-presence/internal/store"
	"github.com/kozaktomas/smart-presence/internal/vision"
	"github.com/kozaktomas/smart-presence/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recognition engine and its web API",
	Long: `Start the attendance service: the capture loop reads the camera,
the recognition engine matches faces against the enrolled students and
writes attendance events, and the web server exposes control endpoints,
the live annotated stream and the attendance log.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().Bool("no-start", false, "Do not start the engine automatically; wait for the control API")
}

// resolveCameraSource prefers the store's active camera row over the
// compiled/env default, so cameras can be reconfigured without redeploying.
func resolveCameraSource(ctx context.Context, st *store.Store, cfg *config.Config) (string, error) {
	cam, err := st.ActiveCamera(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve camera: %w", err)
	}
	if cam != nil {
		return cam.Source, nil
	}
	return cfg.Camera.Source, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()

	st, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	cache := settings.NewCache(st, logger)

	// The remote recognition service supplies both detection and encoding.
	remote := vision.NewRemoteClient(
		cfg.Vision.ServiceURL,
		time.Duration(cfg.Vision.TimeoutSec)*time.Second,
		func(img *image.RGBA) ([]byte, error) { return frame.EncodeJPEG(img) },
	)
	vision.RegisterDetector("remote", func() (vision.Detector, error) { return remote, nil })

	source, err := resolveCameraSource(ctx, st, cfg)
	if err != nil {
		return err
	}
	device, err := capture.NewDevice(source)
	if err != nil {
		return fmt.Errorf("camera source: %w", err)
	}

	var input frame.Slot
	var output frame.ByteSlot
	capSource := capture.NewSource(device, &input, logger)

	registry := prometheus.NewRegistry()
	metrics := engine.NewMetrics(registry)

	eng := engine.New(engine.Options{
		Store:      st,
		Settings:   cache,
		Matcher:    vision.NewMatcher(nil),
		Encoder:    remote,
		NewTracker: vision.NewTemplateTracker,
		Source:     capSource,
		Input:      &input,
		Output:     &output,
		Logger:     logger,
		Metrics:    metrics,
	})

	if err := eng.ReloadIdentities(ctx); err != nil {
		return err
	}

	if !mustGetBool(cmd, "no-start") {
		eng.Start()
	}

	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Web.Port = port
	}

	server := web.NewServer(eng, st, cache, registry, cfg.Web, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("error during shutdown")
		}
		eng.Stop()
	}()

	logger.Info().Str("camera", source).Msgf("starting Smart Presence on http://%s:%d", cfg.Web.Host, cfg.Web.Port)

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
