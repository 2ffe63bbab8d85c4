package channel

import "github.com/spf13/cobra"

var (
	titleInput   string
	defaultInput bool
)

// ChannelCmd is the parent command for channel administration
var ChannelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Manage broker channels",
	Long:  `Commands for creating and inspecting the channels users can be granted.`,
}

func init() {
	ChannelCmd.AddCommand(createCmd)
	createCmd.Flags().StringVar(&titleInput, "title", "", "Human-readable channel title (defaults to the name)")
	createCmd.Flags().BoolVar(&defaultInput, "default", false, "Mark the channel as a default channel")
	ChannelCmd.AddCommand(listCmd)
	ChannelCmd.AddCommand(membersCmd)
}
