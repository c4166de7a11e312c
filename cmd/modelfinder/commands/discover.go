package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/modelfinder/pkg/report"
)

// NewDiscoverCommand creates the discover command.
func NewDiscoverCommand() *cobra.Command {
	flags := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "discover [directory]",
		Short: "List the concrete Eloquent models declared in a directory",
		Long: `List the fully-qualified names of the concrete Eloquent model classes
declared in a directory of PHP files, sorted by name.

The directory defaults to discovery.directory from the config file.
--ignore removes classes from the result; --focus keeps only the focused
classes and the models with a direct relation to one of them.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args, flags, false)
		},
	}

	flags.register(cmd, true)

	return cmd
}

// NewRelationsCommand creates the relations command.
func NewRelationsCommand() *cobra.Command {
	flags := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "relations [directory]",
		Short: "List the discovered models with their relations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args, flags, true)
		},
	}

	flags.register(cmd, true)

	return cmd
}

func runScan(cmd *cobra.Command, args []string, flags *scanFlags, withRelations bool) error {
	sess, err := newSession(cmd, flags)
	if err != nil {
		return err
	}
	defer sess.close()

	req := sess.request(args)
	req.WithRelations = withRelations

	scan, err := sess.engine.Scan(cmd.Context(), req)
	if err != nil {
		return err
	}

	return report.Write(cmd.OutOrStdout(), scan, report.Options{
		Format:  sess.cfg.Output.Format,
		NoColor: sess.cfg.Output.NoColor,
	})
}
