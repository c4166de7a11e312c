// Package commands implements the modelfinder CLI commands.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/modelfinder/pkg/version"
)

// Persistent flag names.
const (
	flagConfig  = "config"
	flagVerbose = "verbose"
	flagQuiet   = "quiet"
)

// NewRootCommand creates the modelfinder root command with all subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "modelfinder",
		Short: "Find the Eloquent models of a Laravel code base",
		Long: `modelfinder statically scans PHP sources for concrete Eloquent model
classes, without loading or executing any PHP.

Commands:
  discover   List the models of a directory
  relations  List the models with their relations
  export     Push models and relations to Neo4j
  mcp        Serve discovery over the Model Context Protocol`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String(flagConfig, "", "config file (default: .modelfinder.yaml in CWD or $HOME)")
	rootCmd.PersistentFlags().BoolP(flagVerbose, "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP(flagQuiet, "q", false, "only log errors")

	rootCmd.AddCommand(NewDiscoverCommand())
	rootCmd.AddCommand(NewRelationsCommand())
	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewMCPCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())

			return err
		},
	}
}
