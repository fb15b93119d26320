// Package cli implements the paylens commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/spektr-org/paylens/config"
)

// RootOptions holds global flags and state shared by all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "text" | "json" | "csv"
	DBPath     string
	Verbose    bool

	cfg       *config.Config
	logger    *slog.Logger
	sessionID string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "csv"}

// NewRootCommand creates the root command for the paylens CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "paylens",
		Short: "Ask questions about salary data",
		Long: `paylens answers plain-language questions about an employee salary file
(CSV, TSV, XLSX or Parquet).

Questions go to an AI interpreter when an API key is configured and fall
back to a local pattern interpreter otherwise. The AI only ever sees
column metadata and a few redacted sample rows; every number in an answer
is computed locally.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default: $PAYLENS_CONFIG or ~/.config/paylens/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|csv)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "history database path (default from config)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")

	cmd.AddCommand(NewAskCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewRecommendCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

func (o *RootOptions) setup(cmd *cobra.Command) error {
	if !slices.Contains(ValidFormats, o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
	}

	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	path, optional := o.ConfigPath, false
	if path == "" {
		path, optional = config.DefaultPath(), true
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger.Debug("config loaded", "path", path, "mode", cfg.Mode, "provider", cfg.Capability.Provider)

	if id, err := uuid.NewV7(); err == nil {
		o.sessionID = id.String()
	} else {
		o.sessionID = uuid.NewString()
	}
	return nil
}

// historyPath returns --db, falling back to the configured path.
func (o *RootOptions) historyPath() string {
	if o.DBPath != "" {
		return o.DBPath
	}
	return o.cfg.HistoryPath()
}

func (o *RootOptions) out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
