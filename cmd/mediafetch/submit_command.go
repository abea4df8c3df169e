package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mediafetch/internal/api"
	"mediafetch/internal/config"
)

type submitOptions struct {
	jobType     string
	videoFormat string
	audioFormat string
	start       string
	end         string
	subtitles   bool
	output      string
	noWait      bool
	interval    time.Duration
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	opts := submitOptions{interval: pollInterval}
	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Queue a download and save the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, ctx.client(), args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.jobType, "type", "t", "", "Download type: video+audio, video, audio (default best)")
	cmd.Flags().StringVar(&opts.videoFormat, "video-format", "", "Video format id from `mediafetch info`")
	cmd.Flags().StringVar(&opts.audioFormat, "audio-format", "", "Audio format id from `mediafetch info`")
	cmd.Flags().StringVar(&opts.start, "start", "", "Clip start (SS, MM:SS or HH:MM:SS)")
	cmd.Flags().StringVar(&opts.end, "end", "", "Clip end (SS, MM:SS or HH:MM:SS)")
	cmd.Flags().BoolVar(&opts.subtitles, "subs", false, "Embed subtitles")
	cmd.Flags().StringVarP(&opts.output, "output", "o", ".", "Directory the finished file is written to")
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "Print the download id and return immediately")
	cmd.Flags().DurationVar(&opts.interval, "poll", pollInterval, "Progress polling interval")
	return cmd
}

func runSubmit(cmd *cobra.Command, client *apiClient, target string, opts submitOptions) error {
	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}
	out := cmd.OutOrStdout()

	dir, err := config.ExpandPath(strings.TrimSpace(opts.output))
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("output directory %s is not a directory", dir)
	}

	id, err := client.Submit(runCtx, api.SubmitRequest{
		URL:           target,
		VideoFormatID: opts.videoFormat,
		AudioFormatID: opts.audioFormat,
		Type:          opts.jobType,
		StartTime:     opts.start,
		EndTime:       opts.end,
		Subtitles:     opts.subtitles,
	})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if opts.noWait {
		fmt.Fprintln(out, id)
		return nil
	}
	fmt.Fprintf(out, "Download %s queued\n", id)

	job, err := waitForJob(runCtx, client, id, opts.interval, out)
	if err != nil {
		return err
	}
	if job.Status == "error" {
		return fmt.Errorf("download %s failed: %s", id, job.Error)
	}

	path, size, err := client.Download(runCtx, id, dir)
	if err != nil {
		return fmt.Errorf("fetch file: %w", err)
	}
	fmt.Fprintf(out, "Saved %s (%s)\n", path, formatBytes(size))
	return nil
}

// waitForJob polls until the job reaches a terminal status, rendering
// progress as it goes. On a terminal the progress line is rewritten in place.
func waitForJob(ctx context.Context, client *apiClient, id string, interval time.Duration, out io.Writer) (api.Job, error) {
	if interval <= 0 {
		interval = pollInterval
	}
	inPlace := isTerminal(out)
	var last string
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := client.Job(ctx, id)
		if err != nil {
			if inPlace && last != "" {
				fmt.Fprintln(out)
			}
			return api.Job{}, fmt.Errorf("poll %s: %w", id, err)
		}
		line := renderProgress(job.Status, job.Progress, job.Speed, job.ETA)
		if line != last {
			if inPlace {
				fmt.Fprintf(out, "\r\x1b[2K%s", line)
			} else {
				fmt.Fprintln(out, line)
			}
			last = line
		}
		switch job.Status {
		case "completed", "saved", "error":
			if inPlace {
				fmt.Fprintln(out)
			}
			return job, nil
		}
		select {
		case <-ctx.Done():
			if inPlace {
				fmt.Fprintln(out)
			}
			return api.Job{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
