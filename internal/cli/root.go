// Package cli provides the Cobra command structure for prosemd-lsp.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/kitten/prosemd-lsp/internal/config"
	"github.com/kitten/prosemd-lsp/internal/server"
)

// BuildInfo holds build-time version information.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type globalOptions struct {
	configPath string
	logFile    string
	verbosity  int
}

type serveFlags struct {
	stdio     bool
	socket    int
	websocket string
}

// NewRootCommand creates the root command. Without a subcommand it runs the
// language server.
func NewRootCommand(info BuildInfo) *cobra.Command {
	opts := &globalOptions{}
	flags := &serveFlags{}

	rootCmd := &cobra.Command{
		Use:   "prosemd-lsp",
		Short: "A Markdown prose language server backed by LanguageTool",
		Long: `prosemd-lsp checks the prose in Markdown documents for grammar and
spelling problems and reports them as diagnostics with quick fixes.

Run without a subcommand to serve the Language Server Protocol on stdio
(default), a TCP port or a WebSocket address. Use "check" to run the same
checks over files on disk.`,
		Args: cobra.NoArgs,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogging(opts)
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(info, opts, flags)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a JSON, YAML or TOML config file")
	rootCmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of stderr")
	rootCmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "increase log verbosity (repeatable)")

	addServeFlags(rootCmd, flags)

	rootCmd.AddCommand(newServeCommand(info, opts))
	rootCmd.AddCommand(newCheckCommand(opts))
	rootCmd.AddCommand(newVersionCommand(info))

	return rootCmd
}

func newServeCommand(info BuildInfo, opts *globalOptions) *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the language server",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(info, opts, flags)
		},
	}
	addServeFlags(cmd, flags)
	return cmd
}

func addServeFlags(cmd *cobra.Command, flags *serveFlags) {
	cmd.Flags().BoolVar(&flags.stdio, "stdio", true, "serve on stdin/stdout")
	cmd.Flags().IntVar(&flags.socket, "socket", 0, "serve on this TCP port on localhost")
	cmd.Flags().StringVar(&flags.websocket, "websocket", "", "serve WebSocket connections on this address")
	cmd.MarkFlagsMutuallyExclusive("socket", "websocket")
}

func configureLogging(opts *globalOptions) {
	var path *string
	if opts.logFile != "" {
		path = &opts.logFile
	}
	commonlog.Configure(opts.verbosity, path)
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFile(path)
}

func runServe(info BuildInfo, opts *globalOptions, flags *serveFlags) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	s, err := server.NewServer(opts.verbosity > 2, server.WithConfig(cfg), server.WithVersion(info.Version))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	switch {
	case flags.socket > 0:
		return s.RunTCP(fmt.Sprintf("127.0.0.1:%d", flags.socket))
	case flags.websocket != "":
		return s.RunWebSocket(flags.websocket)
	default:
		return s.RunStdio()
	}
}
