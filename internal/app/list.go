package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gizzletv/client/internal/media"
	"github.com/gizzletv/client/internal/models"
	"github.com/gizzletv/client/internal/player"
	"github.com/gizzletv/client/internal/upload"
)

const probeWorkers = 4

func newListCommand(load dependencyLoader) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "list CATEGORY",
		Short: "List stored videos or pictures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := upload.ParseCategory(args[0])
			if err != nil {
				return err
			}
			deps, err := load(cmd.Context())
			if err != nil {
				return err
			}
			return runList(cmd.Context(), deps, cmd.OutOrStdout(), category, probe)
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "probe each video for its duration")
	return cmd
}

func runList(ctx context.Context, deps *dependencies, out io.Writer, category upload.Category, probe bool) error {
	records, err := deps.content.List(ctx, category)
	if err != nil {
		return err
	}

	var durations map[string]float64
	if probe && category == upload.CategoryVideos && len(records) > 0 {
		durations = probeDurations(ctx, deps, records)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	header := "FILE\tNAME\tTYPE\tSIZE\tUPLOADED\tSTATUS"
	if durations != nil {
		header += "\tDURATION"
	}
	fmt.Fprintln(w, header)

	for _, rec := range records {
		uploaded := "-"
		if !rec.UploadTimestamp.IsZero() {
			uploaded = rec.UploadTimestamp.Local().Format(time.DateTime)
		}
		line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s",
			rec.Filename, rec.OriginalFilename, rec.ContentType,
			upload.FormatBytes(rec.FileSize), uploaded, rec.ProcessingStatus)
		if durations != nil {
			duration := "-"
			if d, ok := durations[deps.content.FileURL(rec.Filename)]; ok {
				duration = player.FormatClock(d)
			}
			line += "\t" + duration
		}
		fmt.Fprintln(w, line)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write listing: %w", err)
	}
	fmt.Fprintf(out, "%d %s\n", len(records), category)
	return nil
}

func probeDurations(ctx context.Context, deps *dependencies, records []models.ContentRecord) map[string]float64 {
	var (
		mu        sync.Mutex
		durations = make(map[string]float64, len(records))
	)

	prefetcher := media.NewPrefetcher(deps.prober, media.PrefetcherConfig{
		QueueSize: len(records),
		Workers:   probeWorkers,
	}, func(r media.PrefetchResult) {
		if r.Err != nil {
			return
		}
		mu.Lock()
		durations[r.URI] = r.Metadata.Duration
		mu.Unlock()
	}, deps.logger)

	for _, rec := range records {
		if err := prefetcher.Enqueue(ctx, deps.content.FileURL(rec.Filename)); err != nil {
			deps.logger.Warn("queue metadata probe", "file", rec.Filename, "error", err)
			break
		}
	}
	if err := prefetcher.Shutdown(ctx); err != nil {
		deps.logger.Warn("metadata probes interrupted", "error", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return durations
}
