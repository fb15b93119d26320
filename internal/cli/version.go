package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spektr-org/paylens"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.Format == "json" {
				return writeJSON(rootOpts.out(cmd), map[string]string{"version": paylens.Version})
			}
			_, err := fmt.Fprintf(rootOpts.out(cmd), "paylens %s\n", paylens.Version)
			return err
		},
	}
}
