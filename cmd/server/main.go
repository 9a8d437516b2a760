package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/adreport-ingest/internal/api"
	"github.com/ignite/adreport-ingest/internal/config"
	"github.com/ignite/adreport-ingest/internal/ingest"
	"github.com/ignite/adreport-ingest/internal/pkg/logger"
	"github.com/ignite/adreport-ingest/internal/prompt"
	"github.com/ignite/adreport-ingest/internal/storage"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %w\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

// mergeLockTTL bounds how long a crashed instance can block merges.
const mergeLockTTL = 2 * time.Minute

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		logger.Warn("Config file not found, using defaults", "path", configPath)
		configPath = ""
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", cfg.Logging.Level)
	}
	logger.SetLevel(level)
	logger.SetRedactPII(cfg.Logging.RedactEnabled())
	log := logger.Default().With("service", "adreport-ingest")

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		return fmt.Errorf("pre-flight check: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer kv.Close()
	log.Info("Storage initialized", "type", cfg.Storage.Type)

	opts := api.Options{
		Prompt:         prompt.OptionsFromConfig(cfg.Prompt),
		ExcerptDays:    cfg.Prompt.ExcerptDays,
		MaxUploadBytes: cfg.Server.MaxUploadBytes(),
		Logger:         log,
		MergeLock:      storage.MergeLock(kv, cfg.Storage.KeyPrefix+"merge", mergeLockTTL),
	}
	if cfg.Inbox.Enabled() {
		inbox, err := storage.NewS3InboxFromConfig(ctx, cfg.Inbox.S3Bucket, cfg.Inbox.S3Prefix, cfg.Inbox.AWSRegion, cfg.Inbox.MaxFiles)
		if err != nil {
			return fmt.Errorf("initializing inbox: %w", err)
		}
		opts.Inbox = inbox
		log.Info("S3 inbox enabled", "bucket", cfg.Inbox.S3Bucket, "prefix", cfg.Inbox.S3Prefix)
	}

	processor := ingest.NewProcessorFromConfig(cfg.Ingest, log)
	handlers := api.NewHandlers(processor, storage.NewRepository(kv, cfg.Storage.KeyPrefix), opts)
	server := api.NewServer(cfg.Server, handlers, api.NewHealthChecker(kv))

	if interval := cfg.Inbox.PollInterval(); interval > 0 {
		if poller := api.NewInboxPoller(handlers, interval); poller != nil {
			handlers.SetInboxPoller(poller)
			poller.Start(ctx)
			defer poller.Stop()
		}
	}

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", host, cfg.Server.Port)
		log.Info("Starting server", "addr", addr)
		if err := server.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-done:
		log.Info("Shutting down")
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace())
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", "error", err)
	}

	log.Info("Server stopped")
	return nil
}
