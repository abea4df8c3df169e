package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mediafetch/internal/api"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "info <url>",
		Short: "List the formats available for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := ctx.client().VideoInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, info)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderInfo(info))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")
	return cmd
}

func renderInfo(info api.InfoResponse) string {
	out := renderFields([][2]string{
		{"Title", info.Title},
		{"Uploader", info.Uploader},
		{"Duration", formatDuration(info.Duration)},
		{"Views", strconv.FormatInt(info.ViewCount, 10)},
		{"Source", info.Extractor},
		{"URL", info.URL},
	}) + "\n"

	if len(info.Formats.Video) > 0 {
		rows := make([][]string, 0, len(info.Formats.Video))
		for _, f := range info.Formats.Video {
			marker := ""
			if f.Selected {
				marker = "*"
			}
			rows = append(rows, []string{f.ID, f.Quality, f.Ext, f.Codec, f.Size, marker})
		}
		out += "\nVideo formats\n" + renderTable(
			[]string{"ID", "Quality", "Ext", "Codec", "Size", "Default"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
		) + "\n"
	}
	if len(info.Formats.Audio) > 0 {
		rows := make([][]string, 0, len(info.Formats.Audio))
		for _, f := range info.Formats.Audio {
			rows = append(rows, []string{f.ID, f.Quality, f.Ext, f.Size})
		}
		out += "\nAudio formats\n" + renderTable(
			[]string{"ID", "Quality", "Ext", "Size"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
		) + "\n"
	}
	return out
}
