package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spektr-org/paylens/history"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var params history.ListParams

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently answered questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, rootOpts, params)
		},
	}
	cmd.Flags().IntVarP(&params.Limit, "limit", "l", history.DefaultLimit, "max entries")
	cmd.Flags().StringVar(&params.SessionID, "session", "", "only entries from this session")

	return cmd
}

func runHistory(cmd *cobra.Command, root *RootOptions, params history.ListParams) error {
	store, err := history.Open(root.historyPath())
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context(), params)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []history.Entry{}
	}

	w := root.out(cmd)
	if root.Format == "json" {
		return writeJSON(w, entries)
	}

	headers := []string{"when", "mode", "question", "answer"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		mode := string(e.ModeUsed)
		if e.FallbackReason != "" {
			mode += " (" + e.FallbackReason + ")"
		}
		when := e.CreatedAt.Local().Format(time.DateTime)
		rows = append(rows, []string{when, mode, e.Question, firstLine(e.AnswerText, 60)})
	}
	if root.Format == "csv" {
		return writeCSV(w, headers, rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "No questions recorded yet.")
		return nil
	}
	renderTable(w, simpleTable(headers, rows))
	return nil
}

// firstLine returns the first line of s, cut to at most n runes.
func firstLine(s string, n int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}
