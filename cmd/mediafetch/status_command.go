package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediafetch/internal/api"
	"mediafetch/internal/jobs"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status [id]",
		Short: "Show daemon status or a single download",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			if len(args) == 1 {
				job, err := client.Job(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, job)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderJob(job))
				return nil
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, status)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderDaemonStatus(status, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Stop a running download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := ctx.client().Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderStatusLine("Download "+args[0], jobStatusKind(job.Status), jobLabel(job.Status), shouldColorize(out)))
			return nil
		},
	}
}

func renderJob(job api.Job) string {
	progress := strconv.Itoa(job.Progress) + "%"
	var transferred string
	if job.TotalBytes > 0 {
		transferred = formatBytes(job.DownloadedBytes) + " / " + formatBytes(job.TotalBytes)
	}
	return renderFields([][2]string{
		{"ID", job.ID},
		{"Status", jobLabel(job.Status)},
		{"Type", job.Type},
		{"URL", job.URL},
		{"Progress", progress},
		{"Transferred", transferred},
		{"Speed", job.Speed},
		{"ETA", job.ETA},
		{"Current", job.CurrentFile},
		{"File", job.Filename},
		{"Ready", yesNo(job.ReadyForSave)},
		{"Error", job.Error},
		{"Created", job.CreatedAt},
	})
}

func renderDaemonStatus(status api.DaemonStatus, colorize bool) string {
	var b strings.Builder
	fmt.Fprintln(&b, "Daemon")
	fmt.Fprintln(&b, renderStatusLine("Running", boolKind(status.Running), fmt.Sprintf("pid %d", status.PID), colorize))
	fmt.Fprintln(&b, renderStatusLine("Temp root", statusInfo, status.TempRoot, colorize))
	fmt.Fprintln(&b, renderStatusLine("Workers", statusInfo, fmt.Sprintf("%d active / %d slots", status.ActiveJobs, status.MaxConcurrent), colorize))
	if status.StartedAt != "" {
		fmt.Fprintln(&b, renderStatusLine("Started", statusInfo, status.StartedAt, colorize))
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Dependencies")
	for _, dep := range status.Dependencies {
		kind := statusOK
		message := dep.Command
		if dep.Version != "" {
			message += " (" + dep.Version + ")"
		}
		if !dep.Available {
			kind = statusError
			if dep.Optional {
				kind = statusWarn
			}
			message = dep.Detail
		}
		fmt.Fprintln(&b, renderStatusLine(dep.Name, kind, message, colorize))
	}

	fmt.Fprintln(&b)
	rows := make([][]string, 0, len(status.JobCounts))
	for _, s := range jobs.AllStatuses() {
		rows = append(rows, []string{jobLabel(string(s)), strconv.Itoa(status.JobCounts[string(s)])})
	}
	for key, count := range status.JobCounts {
		if !slices.Contains(jobs.AllStatuses(), jobs.Status(key)) {
			rows = append(rows, []string{jobLabel(key), strconv.Itoa(count)})
		}
	}
	fmt.Fprintln(&b, renderTable([]string{"Status", "Jobs"}, rows, []columnAlignment{alignLeft, alignRight}))
	return b.String()
}

func boolKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusError
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
