package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/gamma-omg/pwnaudit/accounts"
	"github.com/gamma-omg/pwnaudit/config"
	"github.com/gamma-omg/pwnaudit/report"
	"github.com/mark3labs/mcp-go/server"
)

func openLogger(path string) (*slog.Logger, io.Closer, error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, nil)), io.NopCloser(nil), nil
	}

	logFile, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return slog.New(slog.NewJSONHandler(logFile, nil)), logFile, nil
}

func runAudit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Summary, error) {
	batch, err := accounts.ReadFile(cfg.Accounts)
	if err != nil {
		return Summary{}, err
	}
	logger.Info("accounts loaded", slog.Int("users", batch.Total), slog.Int("active", len(batch.Active)))

	ref, err := os.Open(cfg.Reference)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to open reference file: %w", err)
	}
	defer ref.Close()

	rep, err := report.Create(cfg.Report)
	if err != nil {
		return Summary{}, err
	}

	auditor := Auditor{
		log:       logger,
		reference: ref,
		report:    rep,
	}

	summary, err := auditor.Run(ctx, batch)
	if err != nil {
		rep.Close()
		return summary, err
	}

	return summary, rep.Close()
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := &ReferenceRegistry{
		log:              logger,
		path:             cfg.Reference,
		mergeEventsDelay: cfg.MergeEventsDelay(),
		prefilter: PrefilterConfig{
			Enabled:   cfg.Prefilter.Enabled,
			PrefixLen: cfg.Prefilter.PrefixLen,
			Seed:      cfg.Prefilter.Seed,
		},
	}
	defer reg.Close()

	err := reg.Load()
	if err != nil {
		return err
	}

	err = reg.Watch(ctx)
	if err != nil {
		return err
	}

	srv := NewLookupServer(reg)
	sse := server.NewSSEServer(srv, server.WithBaseURL(fmt.Sprintf("http://%s", cfg.ServerAddr)))

	go func() {
		<-ctx.Done()
		sse.Shutdown(context.Background())
	}()

	logger.Info("lookup server listening", slog.String("addr", cfg.ServerAddr))
	err = sse.Start(cfg.ServerAddr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func main() {
	serve := flag.Bool("serve", false, "Serve ad-hoc hash lookups over MCP instead of running an audit")
	cfgPath := flag.String("config", "cfg/config.yaml", "Configuration file")
	reference := flag.String("reference", "", "Sorted HASH:COUNT reference file (overrides config)")
	accountsPath := flag.String("accounts", "", "Account export file (overrides config)")
	reportPath := flag.String("report", "", "Output report file (overrides config)")
	flag.Parse()

	cfg, err := config.Read(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	if *reference != "" {
		cfg.Reference = *reference
	}
	if *accountsPath != "" {
		cfg.Accounts = *accountsPath
	}
	if *reportPath != "" {
		cfg.Report = *reportPath
	}

	err = cfg.Validate()
	if err != nil {
		log.Fatal(err)
	}

	logger, logFile, err := openLogger(cfg.LogFile)
	if err != nil {
		log.Fatal(err)
	}
	defer logFile.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if *serve {
		err = runServer(ctx, cfg, logger)
		if err != nil {
			log.Fatal(err)
		}
		return
	}

	if cfg.Accounts == "" {
		log.Fatal("accounts file path is not set")
	}

	summary, err := runAudit(ctx, cfg, logger)
	if err != nil {
		logger.Error("audit failed", slog.String("error", err.Error()))
		log.Fatal(err)
	}

	fmt.Println(summary)
}
