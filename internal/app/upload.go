package app

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/gizzletv/client/internal/upload"
)

func newUploadCommand(load dependencyLoader) *cobra.Command {
	var (
		category    string
		description string
		tags        []string
	)

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a video or picture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := upload.ParseCategory(category)
			if err != nil {
				return err
			}
			deps, err := load(cmd.Context())
			if err != nil {
				return err
			}

			file, closer, err := upload.OpenFile(args[0])
			if err != nil {
				return err
			}
			defer closer.Close()

			return runUpload(cmd.Context(), deps, cmd.OutOrStdout(), upload.Request{
				File:        file,
				Category:    cat,
				Description: description,
				Tags:        tags,
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", string(upload.CategoryVideos), "content category: videos or pictures")
	cmd.Flags().StringVarP(&description, "description", "d", "", "description stored with the upload")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "comma separated tags")
	return cmd
}

func runUpload(ctx context.Context, deps *dependencies, out io.Writer, req upload.Request) error {
	var announce sync.Once
	finished := make(chan upload.Task, 1)
	pipeline := upload.NewPipeline(deps.uploads, upload.Options{
		Clock:  deps.clock,
		Logger: deps.logger,
		OnChange: func(t upload.Task) {
			if t.Status == upload.StatusUploading {
				announce.Do(func() {
					fmt.Fprintf(out, "%s %s (%s) to %s\n", t.Message, t.FileName, upload.FormatBytes(t.FileSizeBytes), t.Category)
				})
			}
		},
		OnProgress: func(p upload.Progress) {
			fmt.Fprintln(out, renderProgress(p))
		},
		OnFinish: func(t upload.Task) {
			finished <- t
		},
	})
	defer pipeline.Close()

	if err := pipeline.Start(ctx, req); err != nil {
		task := pipeline.Task()
		if task.ErrorReason != "" {
			fmt.Fprintln(out, task.ErrorReason)
		}
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case task := <-finished:
		fmt.Fprintln(out, task.Message)
		if task.Status == upload.StatusFailed {
			return task.Err
		}
		return nil
	}
}

func renderProgress(p upload.Progress) string {
	line := fmt.Sprintf("%3d%%  %s / %s", p.Percent, upload.FormatBytes(p.BytesSent), upload.FormatBytes(p.TotalBytes))
	if p.RateKnown {
		line += fmt.Sprintf("  %s/s  ETA %s", upload.FormatBytes(int64(p.Throughput)), upload.FormatDuration(p.ETA.Seconds()))
	}
	return line
}
