package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/modelfinder/pkg/graphstore"
)

// Export flag names.
const (
	flagNeo4jURI      = "neo4j-uri"
	flagNeo4jUser     = "neo4j-user"
	flagNeo4jPassword = "neo4j-pass"
	flagNeo4jDatabase = "neo4j-database"
	flagClean         = "clean"
	flagBatchSize     = "batch-size"
)

type exportFlags struct {
	uri       string
	user      string
	password  string
	database  string
	batchSize int
	clean     bool
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	scan := &scanFlags{}
	export := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export [directory]",
		Short: "Export discovered models and their relations to Neo4j",
		Long: `Discover the models of a directory and upsert them into Neo4j as
:EloquentModel nodes joined by [:RELATES] relationships.

Connection settings default to the neo4j section of the config file
(MODELFINDER_NEO4J_PASSWORD keeps the password out of it).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args, scan, export)
		},
	}

	scan.register(cmd, false)

	cmd.Flags().StringVar(&export.uri, flagNeo4jURI, "", "Neo4j URI (default: neo4j.uri)")
	cmd.Flags().StringVar(&export.user, flagNeo4jUser, "", "Neo4j user (default: neo4j.user)")
	cmd.Flags().StringVar(&export.password, flagNeo4jPassword, "", "Neo4j password (default: neo4j.password)")
	cmd.Flags().StringVar(&export.database, flagNeo4jDatabase, "", "Neo4j database (default: server default)")
	cmd.Flags().BoolVar(&export.clean, flagClean, false, "delete previously exported models first")
	cmd.Flags().IntVar(&export.batchSize, flagBatchSize, graphstore.DefaultBatchSize, "rows per UNWIND statement")

	return cmd
}

func runExport(cmd *cobra.Command, args []string, scan *scanFlags, export *exportFlags) error {
	sess, err := newSession(cmd, scan)
	if err != nil {
		return err
	}
	defer sess.close()

	neo := sess.cfg.Neo4j
	overrideString(cmd, flagNeo4jURI, export.uri, &neo.URI)
	overrideString(cmd, flagNeo4jUser, export.user, &neo.User)
	overrideString(cmd, flagNeo4jPassword, export.password, &neo.Password)
	overrideString(cmd, flagNeo4jDatabase, export.database, &neo.Database)

	ctx := cmd.Context()

	req := sess.request(args)
	req.WithRelations = true

	result, err := sess.engine.Scan(ctx, req)
	if err != nil {
		return err
	}

	driver, err := graphstore.Connect(ctx, neo.URI, neo.User, neo.Password)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := driver.Close(context.Background())
		if closeErr != nil {
			sess.logger.Warn("close neo4j driver", "error", closeErr)
		}
	}()

	loader := graphstore.NewNeo4jLoader(graphstore.DriverRunner{Driver: driver, Database: neo.Database}, sess.logger)
	loader.SetBatchSize(export.batchSize)

	err = loader.Export(ctx, result.Models, export.clean)
	if err != nil {
		return fmt.Errorf("export to %s: %w", neo.URI, err)
	}

	relationCount := 0
	for _, model := range result.Models {
		relationCount += len(model.Relations)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d models and %d relations to %s\n",
		len(result.Models), relationCount, neo.URI)

	return err
}

func overrideString(cmd *cobra.Command, name, value string, target *string) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}
