package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spektr-org/paylens"
	"github.com/spektr-org/paylens/translator"
)

// NewRecommendCommand creates the recommend command.
func NewRecommendCommand(rootOpts *RootOptions) *cobra.Command {
	var data dataFlags

	cmd := &cobra.Command{
		Use:   "recommend --file <data>",
		Short: "Ask the AI service for salary recommendations",
		Long: `Recommend sends aggregate statistics (never individual rows) to the
configured AI service and lists its prioritized recommendations.
Requires an API key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(cmd, rootOpts, &data)
		},
	}
	data.register(cmd, true)

	return cmd
}

func runRecommend(cmd *cobra.Command, root *RootOptions, data *dataFlags) error {
	cfg := root.cfg
	provider, err := paylens.NewProvider(cfg)
	if err != nil {
		return err
	}
	if provider == nil {
		return fmt.Errorf("%w: set %s", translator.ErrCapabilityUnavailable, cfg.Capability.APIKeyEnv)
	}

	in, err := data.load(root.logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Capability.Timeout)
	defer cancel()
	recs, err := translator.Recommend(ctx, provider, in.Dataset, cfg.Unit)
	if err != nil {
		return err
	}

	w := root.out(cmd)
	headers := []string{"priority", "category", "recommendation"}
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{string(r.Priority), string(r.Category), r.Text})
	}
	switch root.Format {
	case "json":
		return writeJSON(w, recs)
	case "csv":
		return writeCSV(w, headers, rows)
	}
	renderTable(w, simpleTable(headers, rows))
	return nil
}
