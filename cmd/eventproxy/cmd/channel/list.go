package channel

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fedya-eremin/ms-ws/cmd/eventproxy/cmd/cmdutil"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, bundle, err := cmdutil.OpenDirectory(ctx)
		if err != nil {
			return err
		}
		defer bundle.Close()

		channels, err := bundle.Directory.ListAllChannels(ctx)
		if err != nil {
			return fmt.Errorf("failed to list channels: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTITLE\tDEFAULT\tID")
		for _, ch := range channels {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", ch.Name, ch.Title, ch.Default, ch.ID)
		}
		return w.Flush()
	},
}
