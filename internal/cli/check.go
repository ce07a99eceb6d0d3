package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/kitten/prosemd-lsp/internal/cache"
	"github.com/kitten/prosemd-lsp/internal/check"
	"github.com/kitten/prosemd-lsp/internal/config"
	"github.com/kitten/prosemd-lsp/internal/engine"
	"github.com/kitten/prosemd-lsp/internal/scanner"
)

var log = commonlog.GetLogger("prosemd.cli")

// ErrSuggestionsFound is returned when check reports at least one suggestion.
var ErrSuggestionsFound = errors.New("suggestions found")

type checkFlags struct {
	jobs      int
	language  string
	engineURL string
	noCache   bool
	color     string
}

func newCheckCommand(opts *globalOptions) *cobra.Command {
	flags := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Check Markdown files and print suggestions",
		Long: `Check Markdown files with the configured grammar engine and print one
line per suggestion. Directories are searched for Markdown files.

The command exits with status 1 when any suggestion is found, which makes it
usable in CI.

Examples:
  prosemd-lsp check README.md
  prosemd-lsp check --jobs 8 docs/
  prosemd-lsp check --language de-DE --engine-url http://lt:8010 notes/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts, flags)
		},
	}

	cmd.Flags().IntVarP(&flags.jobs, "jobs", "j", 0, "files checked in parallel (default: number of CPUs)")
	cmd.Flags().StringVar(&flags.language, "language", "", "language code passed to the engine")
	cmd.Flags().StringVar(&flags.engineURL, "engine-url", "", "LanguageTool server URL")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "do not use the persistent cache")
	cmd.Flags().StringVar(&flags.color, "color", "auto", "colorize output: auto, always, never")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string, opts *globalOptions, flags *checkFlags) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if flags.language != "" {
		cfg.Language = flags.language
	}
	if flags.engineURL != "" {
		cfg.EngineURL = flags.engineURL
	}
	if flags.noCache {
		cfg.CachePath = config.CacheOff
		cfg.RedisURL = ""
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch flags.color {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	case "auto":
	default:
		return fmt.Errorf("invalid --color value %q", flags.color)
	}

	paths, err := scanner.Markdown(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	lt := engine.NewLanguageTool(cfg.EngineURL, cfg.Language, http.DefaultClient)
	if err := engine.Ping(ctx, lt); err != nil {
		return fmt.Errorf("grammar engine at %s is unavailable: %w", cfg.EngineURL, err)
	}

	cacheOpts := []cache.Option{cache.WithSize(cfg.CacheSize)}
	st, err := cache.OpenStore(ctx, cfg)
	if err != nil {
		log.Warningf("persistent cache disabled: %v", err)
	} else if st != nil {
		cacheOpts = append(cacheOpts, cache.WithStore(st, cfg.Language))
	}
	c := cache.New(lt, cacheOpts...)
	defer c.Close()

	checker := check.NewChecker(engine.NewFilter(c, cfg.DisabledRules, cfg.DisabledCategories), cfg.MaxAlternatives)
	results, err := checker.CheckFiles(ctx, paths, flags.jobs)
	if err != nil {
		return err
	}
	if check.Report(cmd.OutOrStdout(), results) > 0 {
		return ErrSuggestionsFound
	}
	return nil
}
