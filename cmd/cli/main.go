package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "relay-cli",
		Short: "Webhook relay client",
		Long: `Connects to a webhook relay and forwards delivered requests to a local URL.

Settings can come from flags or from RELAY_SERVER, RELAY_API_KEY and
RELAY_CLIENT_ID in the environment.

Examples:
  relay-cli create-key --name laptop
  relay-cli connect --api-key whr_... --client-id laptop --target http://localhost:3000
  relay-cli clients --api-key whr_...`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String(flagServer, "http://localhost:8080", "Relay server URL")
	rootCmd.PersistentFlags().String(flagAPIKey, "", "API key")
	bindEnv(rootCmd.PersistentFlags())

	rootCmd.AddCommand(connectCmd())
	rootCmd.AddCommand(createKeyCmd())
	rootCmd.AddCommand(clientsCmd())
	rootCmd.AddCommand(genSecretCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
