package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gopxl/beep"
	"github.com/spf13/pflag"

	"github.com/platform43/firerig/internal/advice"
	"github.com/platform43/firerig/internal/api"
	"github.com/platform43/firerig/internal/catalog"
	"github.com/platform43/firerig/internal/config"
	"github.com/platform43/firerig/internal/influx"
	"github.com/platform43/firerig/internal/logging"
	intOtel "github.com/platform43/firerig/internal/otel"
	"github.com/platform43/firerig/internal/server"
	"github.com/platform43/firerig/internal/session"
	"github.com/platform43/firerig/internal/sim"
	"github.com/platform43/firerig/internal/siren"
)

// Version and BuildDate can be set at build time via ldflags.
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

const serviceName = "firerig"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	start := time.Now()

	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	configDir := fs.String("config-dir", ".", "directory containing "+config.FileName)
	if err := config.BindFlags(fs); err != nil {
		return err
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	slogManager := logging.NewSlogManager()
	slogManager.Setup(logging.Options{Level: "info", ServiceName: serviceName})
	logger := slogManager.Logger()

	if err := config.Load(*configDir); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		logger.Info("Loaded config", "dir", *configDir)
	}
	logLevel := config.GetString("logLevel")
	logsDir := config.GetString("logsDir")

	var logOut, otelOut io.Writer = os.Stdout, nil
	logFile, err := logging.OpenLogFile(logsDir, serviceName, start)
	if err != nil {
		logger.Error("Failed to create/open log file!", "error", err)
	} else {
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
		otelOut = logFile
	}

	// OTel, when enabled, writes its own export stream next to the text log.
	otelCfg := config.GetOTelConfig()
	otelProvider, err := intOtel.New(intOtel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		ServiceVersion: Version,
		BatchTimeout:   otelCfg.BatchTimeout,
		MetricInterval: otelCfg.MetricInterval,
		LogWriter:      otelOut,
		Endpoint:       otelCfg.Endpoint,
		Insecure:       otelCfg.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OTel provider: %w", err)
	}

	var graylog logging.GELFWriter
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGraylogWriter(gl.Address, serviceName)
		if err != nil {
			logger.Error("Failed to connect to Graylog", "error", err, "address", gl.Address)
		} else {
			defer w.Close()
			graylog = w
		}
	}

	var sessions atomic.Pointer[session.Manager]
	slogManager.Setup(logging.Options{
		File:        logOut,
		Level:       logLevel,
		ServiceName: serviceName,
		Provider:    otelProvider.LoggerProvider(),
		Graylog:     graylog,
		Context: func() []slog.Attr {
			m := sessions.Load()
			if m == nil {
				return nil
			}
			return []slog.Attr{slog.Int("activeSessions", m.Count())}
		},
	})
	logger = slogManager.Logger()
	slog.SetDefault(logger)
	logger.Info("Starting "+serviceName, "version", Version, "buildDate", BuildDate)

	zlog := logging.NewZerolog(nil, logLevel)

	// Influx is optional; sessions keep running without tick samples.
	var ticks session.TickWriter
	influxMgr := influx.NewManager(config.GetInfluxConfig(), zlog, filepath.Join(logsDir, "influx_backup.lp.gz"))
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 10*time.Second)
	err = influxMgr.Connect(connectCtx)
	cancelConnect()
	switch {
	case errors.Is(err, influx.ErrDisabled):
		logger.Debug("InfluxDB disabled")
	case err != nil:
		logger.Warn("Failed to set up InfluxDB", "error", err)
	default:
		ticks = influxMgr
		defer influxMgr.Close()
	}

	backend, err := initStorage(config.GetStorageConfig(), logger, zlog, start)
	if err != nil {
		return err
	}

	simCfg := config.GetSimConfig()
	cat, err := catalog.Load(simCfg.CatalogPath)
	if err != nil {
		backend.Close()
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	params := sim.DefaultParams()
	if params.Suppression.Geometry, err = sim.ParseGeometry(simCfg.Geometry); err != nil {
		backend.Close()
		return err
	}
	if simCfg.ReportInterval > 0 {
		params.ReportInterval = simCfg.ReportInterval
	}

	sirenCfg := config.GetSirenConfig()
	tone := siren.Tone{
		Low:    sirenCfg.Low,
		High:   sirenCfg.High,
		Period: sirenCfg.Period,
		Volume: sirenCfg.Volume,
	}
	sampleRate := beep.SampleRate(sirenCfg.SampleRate)

	adviceCfg := config.GetAdviceConfig()
	if adviceCfg.APIKey == "" {
		logger.Warn("No advice API key configured; advice requests will get the fallback reply")
	}

	var uploader session.Uploader
	if uc := config.GetUploadConfig(); uc.Enabled {
		client := api.New(uc.URL, uc.Secret)
		hcCtx, hcCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Healthcheck(hcCtx); err != nil {
			logger.Warn("Upload collector not reachable, uploads may fail", "url", uc.URL, "error", err)
		}
		hcCancel()
		uploader = client
	}

	meter := otelProvider.Meter("github.com/platform43/firerig")
	manager, err := session.NewManager(session.Dependencies{
		Simulator:        sim.NewSimulator(params),
		Backend:          backend,
		Ticks:            ticks,
		Uploader:         uploader,
		Advisor:          advice.New(adviceCfg.BaseURL, adviceCfg.APIKey, adviceCfg.Model, adviceCfg.Timeout),
		Tone:             tone,
		SampleRate:       sampleRate,
		TickRate:         simCfg.TickRate,
		TrackSampleTicks: simCfg.TrackSampleTicks,
		Version:          Version,
		Logger:           logger,
		Meter:            meter,
	}, simCfg.MaxSessions)
	if err != nil {
		backend.Close()
		return err
	}
	sessions.Store(manager)

	serverCfg := config.GetServerConfig()
	srv, err := server.New(server.Dependencies{
		Sessions:       manager,
		Catalog:        cat,
		Tone:           tone,
		SampleRate:     sampleRate,
		RenderDuration: sirenCfg.RenderDuration,
		AllowedOrigins: serverCfg.AllowedOrigins,
		Logger:         logger,
		CommandLogger:  logging.NewDispatcherLogger(zlog),
		Meter:          meter,
	})
	if err != nil {
		manager.CloseAll()
		backend.Close()
		return err
	}

	httpServer := &http.Server{
		Addr:              serverCfg.Address,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: serverCfg.ReadHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Listening", "address", serverCfg.Address, "storage", config.GetStorageConfig().Type, "geometry", params.Suppression.Geometry)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err = <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	srv.Close()
	manager.CloseAll()

	if err := backend.Close(); err != nil {
		logger.Error("Failed to close storage backend", "error", err)
	}
	if err := slogManager.Flush(shutdownCtx); err != nil {
		logger.Warn("Failed to flush logs", "error", err)
	}
	if err := otelProvider.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Failed to shut down OTel provider", "error", err)
	}
	logger.Info("Stopped")
	return nil
}
