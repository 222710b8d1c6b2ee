package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phobologic/hdrcheck/internal/config"
)

func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var force, dryRun bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default " + config.FileName,
		Long: `Write a default hdrcheck config file. path defaults to ./` + config.FileName + `;
a directory gets ` + config.FileName + ` inside it. An existing file is only
replaced with --force.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runInit(path, force, dryRun, stdout, stderr)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the config without writing it")
	return cmd
}

// initPath resolves the target of `hdrcheck init`.
func initPath(arg string) string {
	if arg == "" {
		return config.FileName
	}
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return filepath.Join(arg, config.FileName)
	}
	return arg
}

func runInit(arg string, force, dryRun bool, stdout, stderr io.Writer) error {
	cfg := config.DefaultConfig()
	if dryRun {
		data, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		_, _ = stdout.Write(data)
		return nil
	}

	path := initPath(arg)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.SaveConfig(path, cfg); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(stderr, "wrote %s\n", path)
	return nil
}
