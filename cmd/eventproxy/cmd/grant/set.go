package grant

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fedya-eremin/ms-ws/cmd/eventproxy/cmd/cmdutil"
	"github.com/fedya-eremin/ms-ws/internal/db/models"
	"github.com/fedya-eremin/ms-ws/internal/idp/keycloak"
	"github.com/fedya-eremin/ms-ws/internal/services/identity"
)

var setCmd = &cobra.Command{
	Use:   "set [user-id] [channel]",
	Short: "Grant a user access to a channel",
	Long: `Creates or updates a grant. The user is provisioned from Keycloak
first when the directory does not know them yet.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, channelName := args[0], args[1]
		ctx := cmd.Context()

		cfg, bundle, err := cmdutil.OpenDirectory(ctx)
		if err != nil {
			return err
		}
		defer bundle.Close()

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ch, err := bundle.Directory.FindChannelByName(ctx, channelName)
		if err != nil {
			return err
		}

		resolver := identity.NewResolver(bundle.Directory, keycloak.NewClient(cfg.Keycloak))
		user, err := resolver.Resolve(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to resolve user %q: %w", userID, err)
		}

		grant := &models.Grant{UserID: user.ID, ChanID: ch.ID, CanPublish: publishInput}
		if err := bundle.Directory.UpsertGrant(ctx, grant); err != nil {
			return fmt.Errorf("failed to grant %q on %q: %w", user.Username, ch.Name, err)
		}

		access := "subscribe"
		if grant.CanPublish {
			access = "subscribe, publish"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Granted %s (%s) on %q: %s\n", user.Username, user.ID, ch.Name, access)
		return nil
	},
}
