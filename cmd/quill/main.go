package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "quill",
		Short: "Session-authenticated blog service",
		Long: `quill serves a small blog where every post belongs to the account
that wrote it. Accounts sign in with email and password or through an
OpenID Connect provider.

Configuration comes from QUILL_* environment variables; the flags below
override the most common ones.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
