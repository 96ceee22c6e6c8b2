// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for gridrows.
// It implements the serve, process and connect subcommands using the Cobra
// CLI framework. The package handles command parsing, execution, and provides
// a rich terminal UI with spinners and progress indicators.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gridrows/internal/client"
)

var (
	showVersion bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "gridrows",
	Short:         "Batch row processing for tabular selections",
	Long:          `gridrows runs server-defined mutations against selected or filtered rows of a PostgreSQL table, one transaction per request, and reports the outcome.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("gridrows %s\n", Version)

			// Best effort; the server may not be configured yet
			c, err := resolveClient()
			if err == nil {
				if v, err := c.Version(cmd.Context()); err == nil {
					fmt.Printf("server %s\n", v)
				}
			}
			return nil
		}
		// If no flag is set, show help
		return cmd.Help()
	},
}

// Execute runs the CLI application.
// It executes the root command and handles any errors that occur during execution.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveClient builds an API client from flags, environment and keychain.
// Precedence: GRIDROWS_SERVER / GRIDROWS_TOKEN env vars, then the config file
// and OS keychain.
func resolveClient() (*client.HTTP, error) {
	url, token, err := resolveServerCredentials()
	if err != nil {
		return nil, err
	}
	return client.NewHTTP(url, token), nil
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI and server version information")
}
