package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fedya-eremin/ms-ws/cmd/eventproxy/cmd/channel"
	"github.com/fedya-eremin/ms-ws/cmd/eventproxy/cmd/grant"
	"github.com/fedya-eremin/ms-ws/internal/config"
)

var (
	cfg        *config.Config
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "eventproxy",
	Short: "Channel authorization proxy for Centrifugo",
	Long: `eventproxy answers Centrifugo's publish and subscribe proxy calls.
Users are provisioned from Keycloak on first contact and checked against
the channel grants stored in the database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML config file")
	flags.String("db-url", "", "Database connection URL (env: EVENTPROXY_DATABASE_URL)")
	flags.String("server-addr", "", "Server bind address (env: EVENTPROXY_SERVER_ADDR)")
	flags.Bool("debug", false, "Enable debug logging (env: EVENTPROXY_DEBUG)")

	_ = viper.BindPFlag("database_url", flags.Lookup("db-url"))
	_ = viper.BindPFlag("server_addr", flags.Lookup("server-addr"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))

	rootCmd.AddCommand(channel.ChannelCmd)
	rootCmd.AddCommand(grant.GrantCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
