package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/marcelsud/webhook-relay/client"
	"github.com/marcelsud/webhook-relay/signing"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	flagServer    = "server"
	flagAPIKey    = "api-key"
	flagClientID  = "client-id"
	flagTarget    = "target"
	flagTransport = "transport"
	flagWorkers   = "workers"
	flagTimeout   = "timeout"
	flagName      = "name"
	flagVerbose   = "verbose"
	flagSecret    = "signing-secret"
)

var settings = viper.New()

// bindEnv lets RELAY_<FLAG> stand in for any flag of fs
func bindEnv(fs *pflag.FlagSet) {
	settings.SetEnvPrefix("relay")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	settings.BindPFlags(fs)
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

func connectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Hold a session open and forward delivered requests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := newLogger(settings.GetBool(flagVerbose))
			c, err := client.New(client.Config{
				ServerURL: settings.GetString(flagServer),
				APIKey:    settings.GetString(flagAPIKey),
				ClientID:  settings.GetString(flagClientID),
				Target:    settings.GetString(flagTarget),
				Transport: settings.GetString(flagTransport),
				Workers:   settings.GetInt(flagWorkers),
				Timeout:   settings.GetDuration(flagTimeout),

				SigningSecret: settings.GetString(flagSecret),
			}, logger)
			if err != nil {
				return err
			}
			logger.Info().
				Str("target", settings.GetString(flagTarget)).
				Msg("forwarding relay traffic")
			return c.Run(ctx)
		},
	}
	cmd.Flags().String(flagClientID, hostname(), "Client ID announced to the relay")
	cmd.Flags().String(flagTarget, "http://localhost:3000", "Local URL requests are forwarded to")
	cmd.Flags().String(flagTransport, client.TransportWebSocket, "Delivery channel: ws or stream")
	cmd.Flags().Int(flagWorkers, 8, "Requests forwarded concurrently")
	cmd.Flags().Duration(flagTimeout, 30*time.Second, "Timeout of each forwarded request")
	cmd.Flags().String(flagSecret, "", "Sign forwarded requests with this whsec_ secret")
	cmd.Flags().BoolP(flagVerbose, "v", false, "Debug logging")
	bindEnv(cmd.Flags())
	return cmd
}

func createKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-key",
		Short: "Create an API key with an allow-all tunnel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			admin := client.Admin{ServerURL: strings.TrimSuffix(settings.GetString(flagServer), "/")}
			key, err := admin.CreateAPIKey(cmd.Context(), settings.GetString(flagName))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", key.Name, key.APIKey)
			return nil
		},
	}
	cmd.Flags().String(flagName, "", "Name of the new key")
	cmd.MarkFlagRequired(flagName)
	bindEnv(cmd.Flags())
	return cmd
}

func clientsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clients",
		Short: "List live clients of an API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			admin := client.Admin{ServerURL: strings.TrimSuffix(settings.GetString(flagServer), "/")}
			peers, err := admin.ListClients(cmd.Context(), settings.GetString(flagAPIKey))
			if err != nil {
				return err
			}
			if len(peers) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no live clients")
				return nil
			}
			for _, p := range peers {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tlast seen %s\n", p.ClientID, p.LastSeenAt.Local().Format(time.RFC3339))
			}
			return nil
		},
	}
}

func genSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen-secret",
		Short: "Generate a secret for --signing-secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := signing.GenerateSecret()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "relay-cli"
	}
	return h
}
