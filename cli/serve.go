package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webpconv/config"
	"webpconv/converter"
	"webpconv/credentials"
	"webpconv/failures"
	"webpconv/job"
	"webpconv/logger"
	"webpconv/routes"
	"webpconv/success"
	"webpconv/taskqueue"
	"webpconv/utils"
	"webpconv/writerbackends"
)

const (
	cleanupInterval = 24 * time.Hour
	recordMaxAge    = 30 * 24 * time.Hour
	shutdownTimeout = 10 * time.Second
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "settings file (YAML)")
	listen := fs.String("listen", "", "listen address (default from config, else :8080)")

	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	addr := settings.Server.ListenAddr
	if *listen != "" {
		addr = *listen
	}

	encode, err := selectEncoder(settings.Encoder)
	if err != nil {
		return err
	}

	logger.Info("Starting webpconv server initialization")
	if err := os.MkdirAll(config.GetDataDir(), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	logger.Debug("Initializing credentials database")
	if err := credentials.OpenDB(config.GetCredentialsDBPath()); err != nil {
		return fmt.Errorf("failed to initialize credentials store: %w", err)
	}
	defer credentials.CloseDB()

	logger.Debug("Initializing history databases")
	closeHistory, err := openHistory()
	if err != nil {
		return fmt.Errorf("failed to initialize history stores: %w", err)
	}
	defer closeHistory()

	logger.Debug("Initializing run queue")
	if err := taskqueue.OpenRunQueueDB(config.GetQueueDBPath()); err != nil {
		return fmt.Errorf("failed to initialize run queue: %w", err)
	}
	defer taskqueue.CloseRunQueueDB()
	logger.Info("Databases initialized successfully")

	secret := settings.Server.JWTSecret
	if secret == "" {
		if secret, err = utils.GenerateRandomHex(32); err != nil {
			return err
		}
		token, err := utils.IssueToken("webpconv", settings.Server.Issuer, 24*time.Hour, []byte(secret))
		if err != nil {
			return err
		}
		logger.Warnf("WEBPCONV_JWT_SECRET is not set; using a secret generated for this process")
		logger.Infof("API token valid for 24h: %s", token)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := job.Config{Converter: converter.New(encode), Persist: true}
	if settings.Publish.Enabled() {
		cfg.Publisher = func(ctx context.Context, outputFolder string) (*writerbackends.Publisher, error) {
			info, err := credentials.Merge(settings.Publish.CredentialsKey, settings.Publish.Settings)
			if err != nil {
				return nil, err
			}
			target := writerbackends.Target{Backend: settings.Publish.Backend, Prefix: settings.Publish.Prefix, AccessInfo: info}
			return writerbackends.NewPublisher(ctx, target, outputFolder), nil
		}
	}
	notifier, err := connectNotifier(ctx, settings.Redis)
	if err != nil {
		return err
	}
	if notifier != nil {
		defer notifier.Close()
		cfg.Notifier = notifier.Sink
	}

	jobs := job.NewManager(cfg)
	if n, err := jobs.Resume(); err != nil {
		// keep serving; new runs still work
		logger.Errorf("Failed to resume queued runs: %v", err)
	} else if n > 0 {
		logger.Infof("Resumed %d queued runs", n)
	}
	jobs.Start(ctx)

	go cleanupRoutine(ctx)

	api := &routes.API{
		Jobs:   jobs,
		Verify: utils.VerifyConfig{SecretKey: []byte(secret), ExpectedIssuer: settings.Server.Issuer},
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(api),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("webpconv server listening on %s", addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		stop()
		jobs.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP shutdown: %v", err)
	}
	// the running conversion stops at its next file boundary and stays queued
	jobs.Wait()
	logger.Info("Server stopped")
	return nil
}

// cleanupRoutine periodically drops old history and failure records
func cleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Cleanup routine stopped")
			return
		case <-ticker.C:
			pruneRecords(recordMaxAge)
		}
	}
}

func pruneRecords(maxAge time.Duration) {
	logger.Debugf("Cleaning up records older than %v", maxAge)
	if n, err := success.CleanupOldRecords(maxAge); err != nil {
		logger.Errorf("Failed to cleanup old run records: %v", err)
	} else if n > 0 {
		logger.Infof("Removed %d old run records", n)
	}
	if n, err := failures.CleanupOldRecords(maxAge); err != nil {
		logger.Errorf("Failed to cleanup old failure records: %v", err)
	} else if n > 0 {
		logger.Infof("Removed %d old failure records", n)
	}
}
