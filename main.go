// hdrcheck reports unused, transitively-used and missing #include directives
// of C and C++ translation units.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/phobologic/hdrcheck/internal/compdb"
	"github.com/phobologic/hdrcheck/internal/config"
	"github.com/phobologic/hdrcheck/internal/discover"
	"github.com/phobologic/hdrcheck/internal/engine"
	"github.com/phobologic/hdrcheck/internal/fix"
	"github.com/phobologic/hdrcheck/internal/lang"
	"github.com/phobologic/hdrcheck/internal/parse"
	"github.com/phobologic/hdrcheck/internal/report"
	"github.com/phobologic/hdrcheck/internal/toon"
)

var version = "dev"

const defaultMaxFileSize = 4_000_000 // 4 MB

// errFindings makes the process exit 1 without an error message.
var errFindings = errors.New("unused or missing includes found")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if errors.Is(err, errFindings) {
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	includePaths []string
	compdb       string
	ignore       string
	keepMarkers  []string
	jobs         int
	format       string
	langs        string
	only         string
	header       string
	references   bool
	fix          bool
	exitCode     bool
	configPath   string
	maxFileSize  int
	verbose      bool
	showVersion  bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "hdrcheck [flags] [path...]",
		Short: "hdrcheck - find unused and missing C/C++ includes",
		Long: `hdrcheck parses C and C++ translation units, resolves every name they use
to the header that declares it, and reports each included header as used
directly, used only transitively, unused or suppressed. Headers a unit relies
on without including them are reported as missing.

Paths are source files or directories; directories are walked for .c, .cc,
.cpp and .cxx files. Without paths the compilation database's sources are
analyzed, or the current directory.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, &opts, stdout, stderr)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.includePaths, "include-path", "I", nil, "add include directory (repeatable)")
	f.StringVarP(&opts.compdb, "compdb", "p", "", "compile_commands.json for include paths and sources")
	f.StringVar(&opts.ignore, "ignore", "", "never report headers matching this regexp")
	f.StringArrayVar(&opts.keepMarkers, "keep-marker", nil, "trailing comment marker that suppresses an include (repeatable)")
	f.IntVarP(&opts.jobs, "jobs", "j", 0, "parallel units (0 = GOMAXPROCS)")
	f.StringVarP(&opts.format, "format", "f", "", "output format: toon or text")
	f.StringVarP(&opts.langs, "langs", "l", "", "comma-separated languages to analyze (c, cpp)")
	f.StringVar(&opts.only, "only", "", "restrict output to kinds: "+strings.Join(report.Kinds, ","))
	f.StringVar(&opts.header, "header", "", "restrict output to headers whose path contains this substring")
	f.BoolVar(&opts.references, "references", false, "include the reference table")
	f.BoolVar(&opts.fix, "fix", false, "remove unused includes and add missing ones")
	f.BoolVar(&opts.exitCode, "exit-code", false, "exit 1 when unused or missing includes exist")
	f.StringVar(&opts.configPath, "config", "", "config file (default "+config.FileName+")")
	f.IntVar(&opts.maxFileSize, "max-file-size", defaultMaxFileSize, "skip units larger than this many bytes")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	f.BoolVarP(&opts.showVersion, "version", "V", false, "show version and exit")

	cmd.AddCommand(newInitCmd(stdout, stderr))
	return cmd
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{Prefix: "hdrcheck"})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// loadConfig reads the config file and lays the flags the user set on top.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = config.FileName
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("include-path") {
		cfg.IncludePaths = append(cfg.IncludePaths, opts.includePaths...)
	}
	if f.Changed("compdb") {
		cfg.Compdb = opts.compdb
	}
	if f.Changed("ignore") {
		cfg.Ignore = opts.ignore
	}
	if f.Changed("keep-marker") {
		cfg.KeepMarkers = opts.keepMarkers
	}
	if f.Changed("jobs") {
		cfg.Jobs = opts.jobs
	}
	if f.Changed("format") {
		cfg.Format = opts.format
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runCheck(cmd *cobra.Command, args []string, opts *options, stdout, stderr io.Writer) error {
	if opts.showVersion {
		_, _ = fmt.Fprintf(stdout, "hdrcheck %s\n", version)
		return nil
	}
	logger := newLogger(stderr, opts.verbose)

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	rules, err := cfg.Rules()
	if err != nil {
		return err
	}
	kinds, err := report.ParseKinds(opts.only)
	if err != nil {
		return err
	}

	var langFilter []string
	if opts.langs != "" {
		for _, name := range strings.Split(opts.langs, ",") {
			name = strings.TrimSpace(name)
			if _, ok := lang.Languages[name]; !ok {
				return fmt.Errorf("unsupported language %q", name)
			}
			langFilter = append(langFilter, name)
		}
	}

	var dbSources []string
	if cfg.Compdb != "" {
		cmds, err := compdb.Load(cfg.Compdb)
		if err != nil {
			return err
		}
		paths, err := compdb.IncludePaths(cmds)
		if err != nil {
			return err
		}
		cfg.IncludePaths = append(cfg.IncludePaths, paths...)
		dbSources = compdb.Sources(cmds)
		logger.Debug("compilation database", "path", cfg.Compdb, "entries", len(cmds), "include_paths", len(paths))
	}

	units, err := selectUnits(args, dbSources, langFilter)
	if err != nil {
		return fmt.Errorf("discovering units: %w", err)
	}
	units = filterBySize(units, opts.maxFileSize, logger)
	if len(units) == 0 {
		return fmt.Errorf("no translation units found")
	}

	outcomes := engine.Run(cmd.Context(), units, engine.Options{
		Jobs: cfg.Jobs,
		NewFrontend: func() engine.Frontend {
			return parse.New(parse.Options{
				IncludePaths:      cfg.IncludePaths,
				Rules:             rules,
				MaxExpansionDepth: cfg.MaxExpansionDepth,
				Logger:            logger,
			})
		},
		Logger: logger,
	})

	var fixErr error
	if opts.fix {
		fixErr = applyFixes(outcomes, cfg.IncludePaths, logger)
	}

	s := report.Build(outcomes, opts.references)
	s = report.SelectKinds(s, kinds)
	s = report.FilterByHeader(s, opts.header)

	switch cfg.Format {
	case config.FormatText:
		if err := report.WriteText(stdout, s); err != nil {
			return err
		}
	default:
		_, _ = fmt.Fprintln(stdout, toon.Encode(s))
	}

	if fixErr != nil {
		return fixErr
	}
	if opts.exitCode && !opts.fix && report.HasFindings(s) {
		return errFindings
	}
	return nil
}

// selectUnits prefers explicit paths, then the compilation database, then
// the current directory.
func selectUnits(args, dbSources, langFilter []string) ([]string, error) {
	if len(args) > 0 {
		return discover.Paths(args, langFilter)
	}
	if len(dbSources) > 0 {
		var units []string
		for _, p := range dbSources {
			l := lang.ForPath(p)
			if l == "" {
				continue
			}
			if len(langFilter) > 0 && !slices.Contains(langFilter, l) {
				continue
			}
			units = append(units, p)
		}
		return units, nil
	}
	return discover.Paths([]string{"."}, langFilter)
}

func filterBySize(units []string, maxSize int, logger *log.Logger) []string {
	if maxSize <= 0 {
		return units
	}
	var kept []string
	for _, u := range units {
		fi, err := os.Stat(u)
		if err != nil {
			kept = append(kept, u) // the front-end reports it
			continue
		}
		if fi.Size() > int64(maxSize) {
			logger.Warn("skipped", "unit", u, "bytes", fi.Size(), "max", maxSize)
			continue
		}
		kept = append(kept, u)
	}
	return kept
}

func applyFixes(outcomes []engine.Outcome, includePaths []string, logger *log.Logger) error {
	var failed int
	for _, o := range outcomes {
		if o.Report == nil {
			continue
		}
		e := fix.Plan(o.Report, includePaths)
		changed, err := fix.Apply(e)
		if err != nil {
			logger.Error("fix failed", "err", err)
			failed++
			continue
		}
		if changed {
			logger.Info("fixed", "unit", e.Unit, "removed", len(e.Remove), "added", len(e.Add))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d units could not be fixed", failed)
	}
	return nil
}
