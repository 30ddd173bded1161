package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/gamma-omg/pwnaudit/config"
	"github.com/gamma-omg/pwnaudit/rangeapi"
)

func main() {
	cfgPath := flag.String("config", "cfg/config.yaml", "Configuration file")
	out := flag.String("out", "", "Reference file to write (defaults to the configured reference path)")
	from := flag.String("from", "00000", "First hash prefix to download")
	to := flag.String("to", "FFFFF", "Last hash prefix to download")
	flag.Parse()

	cfg, err := config.Read(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	if *out == "" {
		*out = cfg.Reference
	}
	if *out == "" {
		log.Fatal("Please provide an output path with -out or a reference path in the config.")
	}

	fromPrefix, err := rangeapi.ParsePrefix(*from)
	if err != nil {
		log.Fatal(err)
	}
	toPrefix, err := rangeapi.ParsePrefix(*to)
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	client := rangeapi.NewClient(rangeapi.ClientConfig{
		BaseURL:           cfg.Fetch.BaseURL,
		Mode:              cfg.Fetch.Mode,
		MaxRetry:          cfg.Fetch.MaxRetry,
		RetryWaitMin:      cfg.RetryWaitMin(),
		RetryWaitMax:      cfg.RetryWaitMax(),
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		Logger:            logger,
	})

	// Write next to the target and rename, so a watching server never sees a
	// half written file.
	tmp := *out + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	start := time.Now()
	stats, err := rangeapi.NewDownloader(logger, client, cfg.Fetch.Workers).Run(ctx, f, fromPrefix, toPrefix)
	if err != nil {
		f.Close()
		log.Fatal(err)
	}

	err = f.Close()
	if err != nil {
		log.Fatal(err)
	}

	err = os.Rename(tmp, *out)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Downloaded %d prefixes, %d hashes to %s in %s\n", stats.Prefixes, stats.Entries, *out, time.Since(start).Round(time.Second))
}
