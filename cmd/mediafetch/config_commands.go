package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediafetch/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or scaffold the daemon configuration",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var pathFlag string
	var force bool

	cmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Write the annotated sample configuration",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			requested := pathFlag
			if len(args) == 1 {
				requested = args[0]
			}
			target, err := sampleTarget(requested)
			if err != nil {
				return err
			}
			if err := refuseExisting(target, force); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Run `mediafetch deps` to confirm yt-dlp and ffmpeg are reachable.")
			fmt.Fprintln(out, "Set api.token if the daemon binds anything other than loopback.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&pathFlag, "path", "p", "", "Destination file (defaults to ~/.config/mediafetch/config.toml)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing file")
	return cmd
}

func sampleTarget(requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("default config path: %w", err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(requested)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", requested, err)
	}
	return path, nil
}

func refuseExisting(target string, force bool) error {
	if force {
		return nil
	}
	_, err := os.Stat(target)
	switch {
	case err == nil:
		return fmt.Errorf("%s already exists; pass --force to replace it", target)
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("inspect %s: %w", target, err)
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and print the effective settings",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var requested string
			if ctx.configFlag != nil {
				requested = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(requested)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("prepare directories: %w", err)
			}

			source := resolved
			if !exists {
				source = resolved + " (not found, built-in defaults)"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderFields(effectiveSettings(cfg, source)))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func effectiveSettings(cfg *config.Config, source string) [][2]string {
	token := "unset"
	if cfg.API.Token != "" {
		token = "set"
	}
	return [][2]string{
		{"Source", source},
		{"Temp root", cfg.Paths.TempRoot},
		{"API bind", cfg.API.Bind},
		{"API token", token},
		{"Downloader", cfg.Tools.Downloader},
		{"Encoder", cfg.EncoderBinary()},
		{"Concurrent jobs", strconv.Itoa(cfg.Workflow.MaxConcurrentJobs)},
		{"Merge format", cfg.Workflow.MergeFormat},
		{"Audio format", cfg.Workflow.AudioFormat},
		{"Job max age", cfg.MaxAge().String()},
		{"Serve cleanup", cfg.ServeCleanupDelay().String()},
	}
}
