package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/gamma-omg/pwnaudit/accounts"
	"github.com/gamma-omg/pwnaudit/lookup"
	"github.com/gamma-omg/pwnaudit/sortedfile"
)

type ReportWriter interface {
	Write(a accounts.Account, count uint64) error
}

type Auditor struct {
	log       *slog.Logger
	reference io.ReadSeeker
	report    ReportWriter
}

type Summary struct {
	Total     int
	Active    int
	Pwned     int
	Searches  int
	CacheHits int
	IO        sortedfile.Stats
	Elapsed   time.Duration
}

// Run looks up every active account of batch, which must be sorted by hash,
// and writes the pwned ones to the report in batch order.
func (a *Auditor) Run(ctx context.Context, batch *accounts.Batch) (Summary, error) {
	start := time.Now()
	summary := Summary{
		Total:  batch.Total,
		Active: len(batch.Active),
	}

	searcher, err := sortedfile.NewSearcher(a.reference)
	if err != nil {
		return summary, fmt.Errorf("failed to open reference file: %w", err)
	}

	pipeline := lookup.New(searcher)
	passwordHash := func(acc accounts.Account) string { return acc.PasswordHash }

	for m, err := range lookup.Stream(pipeline, slices.Values(batch.Active), passwordHash) {
		if err != nil {
			return summary, fmt.Errorf("failed to look up account %s: %w", m.Query.Username, err)
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if !m.Result.Found {
			continue
		}

		err = a.report.Write(m.Query, m.Result.Count)
		if err != nil {
			return summary, err
		}
		summary.Pwned++
	}

	summary.Searches = searcher.Searches()
	summary.CacheHits = pipeline.CacheHits()
	summary.IO = searcher.Stats()
	summary.Elapsed = time.Since(start)

	a.log.Info("audit finished",
		slog.Int("users", summary.Total),
		slog.Int("active", summary.Active),
		slog.Int("pwned", summary.Pwned),
		slog.Int("searches", summary.Searches),
		slog.Int("cache_hits", summary.CacheHits),
		slog.Int("seeks", summary.IO.Seeks),
		slog.Int64("bytes_read", summary.IO.BytesRead),
		slog.Duration("elapsed", summary.Elapsed))

	return summary, nil
}

func (s Summary) String() string {
	minutes := int(s.Elapsed / time.Minute)
	seconds := (s.Elapsed - time.Duration(minutes)*time.Minute).Seconds()
	return fmt.Sprintf("Finished in %d minutes %.2f seconds\n%d users; %d active users; %d pwned users",
		minutes, seconds, s.Total, s.Active, s.Pwned)
}
