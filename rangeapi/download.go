package rangeapi

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// MaxPrefix is the last five character prefix, FFFFF.
const MaxPrefix = 1<<(4*PrefixLen) - 1

type ranger interface {
	Range(ctx context.Context, prefix string) ([]Entry, error)
}

type DownloadStats struct {
	Prefixes int
	Entries  int
}

// Downloader writes a reference file by walking prefixes in order. Prefixes
// are fetched concurrently in batches, each batch is written in prefix order.
type Downloader struct {
	log     *slog.Logger
	client  ranger
	workers int
}

func NewDownloader(log *slog.Logger, client *Client, workers int) *Downloader {
	return &Downloader{
		log:     log,
		client:  client,
		workers: max(1, workers),
	}
}

func (d *Downloader) Run(ctx context.Context, w io.Writer, from, to int) (DownloadStats, error) {
	var stats DownloadStats
	if from < 0 || to > MaxPrefix || from > to {
		return stats, fmt.Errorf("invalid prefix range %s-%s", FormatPrefix(from), FormatPrefix(to))
	}

	bw := bufio.NewWriterSize(w, 1<<20)
	batch := d.workers * 4

	for start := from; start <= to; start += batch {
		end := min(start+batch-1, to)

		results, err := d.fetchBatch(ctx, start, end)
		if err != nil {
			return stats, err
		}

		for _, entries := range results {
			for _, e := range entries {
				if _, err := fmt.Fprintf(bw, "%s:%d\n", e.Hash, e.Count); err != nil {
					return stats, fmt.Errorf("failed to write reference entry: %w", err)
				}
			}
			stats.Prefixes++
			stats.Entries += len(entries)
		}

		d.log.Info("downloaded prefixes",
			slog.String("from", FormatPrefix(start)),
			slog.String("to", FormatPrefix(end)),
			slog.Int("entries", stats.Entries))
	}

	if err := bw.Flush(); err != nil {
		return stats, fmt.Errorf("failed to flush reference file: %w", err)
	}

	return stats, nil
}

func (d *Downloader) fetchBatch(ctx context.Context, start, end int) ([][]Entry, error) {
	results := make([][]Entry, end-start+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i := range results {
		prefix := FormatPrefix(start + i)
		g.Go(func() error {
			entries, err := d.client.Range(gctx, prefix)
			if err != nil {
				return err
			}
			results[i] = entries
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
