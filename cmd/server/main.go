package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "diyassist",
		Short:         "Home-improvement assistant backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running the binary bare starts the server.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newAPIKeyCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST and MCP APIs (or MCP on stdio)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the storage schema and indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context())
		},
	}
}

func newAPIKeyCmd() *cobra.Command {
	apikey := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}

	var (
		tenantID    string
		description string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for a tenant and print it once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := runCreateAPIKey(cmd.Context(), tenantID, description)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	create.Flags().StringVar(&tenantID, "tenant", "", "tenant the key authenticates as")
	create.Flags().StringVar(&description, "description", "", "free-form note stored with the key")
	_ = create.MarkFlagRequired("tenant")

	apikey.AddCommand(create)
	return apikey
}
