package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/issue-comb/app/api"
	"github.com/lysyi3m/issue-comb/app/cfg"
	"github.com/lysyi3m/issue-comb/app/database"
	"github.com/lysyi3m/issue-comb/app/feed"
	"github.com/lysyi3m/issue-comb/app/retry"
	"github.com/lysyi3m/issue-comb/app/tasks"
)

func main() {
	os.Exit(run())
}

func run() int {
	c, err := cfg.Load(os.Args[1:])
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}
	if c == nil {
		// Help was shown
		return 0
	}

	setupLogger(c.Debug)

	slog.Info("Starting Issue Comb",
		"version", c.Version,
		"store", c.Store,
		"concurrency", c.ConcurrencyLimit,
		"max_posts", c.MaxPostsPerFeed,
		"dry_run", c.DryRun)

	issueRepo, closeStore, err := openStore(c)
	if err != nil {
		slog.Error("Failed to open issue store", "store", c.Store, "error", err)
		return 1
	}
	defer closeStore()

	fetcher := feed.NewFetcher(&http.Client{}, c.UserAgent, c.FetchTimeout)
	normalizer := feed.NewNormalizer(c.DateFormat, c.Location)
	resolver := feed.NewResolver(fetcher.Fetch, normalizer, retry.NewPolicy(c.RetryAttempts, c.RetryInterval), c.MaxPostsPerFeed)
	scheduler := tasks.NewScheduler(issueRepo, resolver, tasks.NewPool(c.ConcurrencyLimit), c.Interval, c.DryRun)

	if c.OneShot() {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if _, err := scheduler.RunOnce(ctx); err != nil {
			slog.Error("Run failed", "error", err)
			return 1
		}
		return 0
	}

	slog.Info("Starting background scheduler", "interval", c.Interval)
	scheduler.Start()
	defer func() {
		scheduler.Stop()
		slog.Info("Background scheduler stopped")
	}()

	serverErrChan := make(chan error, 1)
	var httpServer *http.Server
	if c.Port != "" {
		httpServer = &http.Server{
			Addr:         ":" + c.Port,
			Handler:      api.NewServer(api.NewHandler(issueRepo, scheduler, c.Version), c.APIAccessKey),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			slog.Info("Starting HTTP server", "port", c.Port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
		exitCode = 1
	}

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server stopped")
		}
	}

	return exitCode
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	slog.SetDefault(slog.New(handler))
}

func openStore(c *cfg.Cfg) (database.IssueRepository, func(), error) {
	switch c.Store {
	case cfg.StoreYAML:
		slog.Info("Using YAML issue store", "path", c.IssuesFile)
		return database.NewYAMLIssueRepository(c.IssuesFile), func() {}, nil

	default:
		db, err := database.NewConnection(c.DBPath)
		if err != nil {
			return nil, nil, err
		}

		version, dirty, err := database.RunMigrations(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		slog.Info("Connected to database", "path", c.DBPath, "schema_version", version, "dirty", dirty)

		return database.NewIssueRepository(db), func() { db.Close() }, nil
	}
}
