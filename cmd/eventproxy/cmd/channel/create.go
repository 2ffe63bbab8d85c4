package channel

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fedya-eremin/ms-ws/cmd/eventproxy/cmd/cmdutil"
	"github.com/fedya-eremin/ms-ws/internal/db/bunx"
	"github.com/fedya-eremin/ms-ws/internal/db/models"
)

var createCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, bundle, err := cmdutil.OpenDirectory(ctx)
		if err != nil {
			return err
		}
		defer bundle.Close()

		title := titleInput
		if title == "" {
			title = args[0]
		}
		ch := &models.Channel{
			ID:      bunx.NewUUIDv7(),
			Name:    args[0],
			Title:   title,
			Default: defaultInput,
		}
		if err := bundle.Directory.CreateChannel(ctx, ch); err != nil {
			return fmt.Errorf("failed to create channel %q: %w", ch.Name, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Channel %q created (id %s)\n", ch.Name, ch.ID)
		return nil
	},
}
