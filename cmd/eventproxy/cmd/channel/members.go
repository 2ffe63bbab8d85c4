package channel

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fedya-eremin/ms-ws/cmd/eventproxy/cmd/cmdutil"
)

var membersCmd = &cobra.Command{
	Use:   "members [name]",
	Short: "List users granted on a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, bundle, err := cmdutil.OpenDirectory(ctx)
		if err != nil {
			return err
		}
		defer bundle.Close()

		ch, err := bundle.Directory.FindChannelByName(ctx, args[0])
		if err != nil {
			return err
		}
		users, err := bundle.Directory.ListChannelUsers(ctx, ch.ID)
		if err != nil {
			return fmt.Errorf("failed to list members of %q: %w", ch.Name, err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "USER_ID\tUSERNAME\tNAME\tENABLED")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%s %s\t%t\n", u.ID, u.Username, u.GivenName, u.FamilyName, u.Enabled)
		}
		return w.Flush()
	},
}
