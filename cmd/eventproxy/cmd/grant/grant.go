package grant

import "github.com/spf13/cobra"

var publishInput bool

// GrantCmd is the parent command for channel grants
var GrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Manage channel grants",
	Long:  `Commands for entitling users on channels.`,
}

func init() {
	GrantCmd.AddCommand(setCmd)
	setCmd.Flags().BoolVar(&publishInput, "publish", false, "Also allow publishing (subscribe is always granted)")
}
