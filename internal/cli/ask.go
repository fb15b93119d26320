package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/paylens"
	"github.com/spektr-org/paylens/dispatch"
	"github.com/spektr-org/paylens/engine"
	"github.com/spektr-org/paylens/history"
)

// askOptions holds flags for the ask command.
type askOptions struct {
	data    dataFlags
	Mode    string
	History bool
}

// askOutput is the JSON form of an answer.
type askOutput struct {
	Question string `json:"question"`
	Source   string `json:"source"`
	*dispatch.Outcome
}

// NewAskCommand creates the ask command.
func NewAskCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask --file <data> <question...>",
		Short: "Answer a question about a salary file",
		Example: `  paylens ask --file staff.csv "Who earns most in IT?"
  paylens ask --file staff.xlsx --mode pattern average salary Finance
  paylens ask --file staff.csv --department IT --format json how many earn over 50000`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, rootOpts, opts, strings.Join(args, " "))
		},
	}

	opts.data.register(cmd, true)
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "interpreter: pattern or capability (default from config)")
	cmd.Flags().BoolVar(&opts.History, "history", false, "record the answer in the history database")

	return cmd
}

func runAsk(cmd *cobra.Command, root *RootOptions, opts *askOptions, question string) error {
	cfg := root.cfg

	mode := cfg.Mode
	if opts.Mode != "" {
		m, err := engine.ParseMode(opts.Mode)
		if err != nil {
			return err
		}
		mode = m
	}

	in, err := opts.data.load(root.logger)
	if err != nil {
		return err
	}

	d, err := paylens.NewDispatcher(cfg, root.logger)
	if err != nil {
		return err
	}
	out, err := d.Dispatch(cmd.Context(), dispatch.Request{Question: question, Mode: mode, Dataset: in.Dataset})
	if err != nil {
		return err
	}
	out.Warnings = in.Warnings

	if opts.History || cfg.History.Enabled {
		if err := recordHistory(cmd, root, in.Source, question, mode, out); err != nil {
			// A history failure never hides the answer.
			root.logger.Warn("history not recorded", "error", err)
		}
	}

	w := root.out(cmd)
	switch root.Format {
	case "json":
		return writeJSON(w, askOutput{Question: question, Source: in.Source, Outcome: out})
	case "csv":
		t := engine.BuildTable(out.Result, "", true)
		if len(t.Rows) == 0 {
			return writeCSV(w, []string{"answer"}, [][]string{{out.Result.AnswerText}})
		}
		return writeCSV(w, out.Result.Columns, t.Rows)
	}

	printWarnings(cmd, in.Warnings)
	fmt.Fprintln(w, out.Result.AnswerText)
	if len(out.Result.Rows) > 1 || len(out.Result.Rows) == 1 && out.Result.Value == nil {
		fmt.Fprintln(w)
		renderTable(w, engine.BuildTable(out.Result, cfg.Unit, false))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Mode: %s\n", out.Result.ModeUsed)
	if out.FallbackReason != "" {
		fmt.Fprintf(w, "Fallback: %s\n", out.FallbackReason)
	}
	fmt.Fprintf(w, "Trace: %s\n", out.Result.Trace)
	return nil
}

func recordHistory(cmd *cobra.Command, root *RootOptions, source, question string, mode engine.Mode, out *dispatch.Outcome) error {
	store, err := history.Open(root.historyPath())
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := store.Record(cmd.Context(), history.Entry{
		SessionID:      root.sessionID,
		Source:         source,
		Question:       question,
		ModeRequested:  mode,
		ModeUsed:       out.Result.ModeUsed,
		AnswerText:     out.Result.AnswerText,
		Trace:          out.Result.Trace,
		FallbackReason: out.FallbackReason,
		RowCount:       len(out.Result.Rows),
	})
	if err != nil {
		return err
	}
	root.logger.Debug("history recorded", "id", e.ID)
	return nil
}
