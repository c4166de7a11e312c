// Package graphstore exports discovered models and their relations to a
// Neo4j graph as :EloquentModel nodes joined by [:RELATES] edges.
package graphstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Sumatoshi-tech/modelfinder/pkg/discovery"
)

// DefaultBatchSize is the number of rows sent per UNWIND statement.
const DefaultBatchSize = 500

const (
	cypherIndexName = "CREATE INDEX eloquent_model_name IF NOT EXISTS FOR (n:EloquentModel) ON (n.name)"
	cypherClean     = "MATCH (n:EloquentModel) DETACH DELETE n"

	cypherModels = `UNWIND $batch AS row
MERGE (n:EloquentModel {name: row.name})
SET n.path = row.path, n.parent = row.parent, n.discovered = true`

	cypherRelations = `UNWIND $batch AS row
MATCH (src:EloquentModel {name: row.source})
MERGE (dst:EloquentModel {name: row.target})
MERGE (src)-[r:RELATES {name: row.name}]->(dst)
SET r.type = row.type, r.foreign_key = row.foreign_key, r.local_key = row.local_key`
)

// QueryRunner executes a single Cypher statement.
type QueryRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) error
}

// DriverRunner runs statements through a Neo4j driver.
type DriverRunner struct {
	Driver   neo4j.DriverWithContext
	Database string
}

// Run implements QueryRunner.
func (r DriverRunner) Run(ctx context.Context, cypher string, params map[string]any) error {
	var opts []neo4j.ExecuteQueryConfigurationOption
	if r.Database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(r.Database))
	}

	_, err := neo4j.ExecuteQuery(ctx, r.Driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return fmt.Errorf("run cypher: %w", err)
	}

	return nil
}

// Neo4jLoader loads discovery results into Neo4j using batched UNWIND queries.
type Neo4jLoader struct {
	runner    QueryRunner
	logger    *slog.Logger
	batchSize int
}

// NewNeo4jLoader creates a loader over runner. A nil logger discards output.
func NewNeo4jLoader(runner QueryRunner, logger *slog.Logger) *Neo4jLoader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Neo4jLoader{runner: runner, logger: logger, batchSize: DefaultBatchSize}
}

// Connect opens a driver for uri and verifies connectivity. The caller owns
// the returned driver and must close it.
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	verifyErr := driver.VerifyConnectivity(ctx)
	if verifyErr != nil {
		closeErr := driver.Close(ctx)

		return nil, fmt.Errorf("connect to %s: %w", uri, errors.Join(verifyErr, closeErr))
	}

	return driver, nil
}

// SetBatchSize overrides DefaultBatchSize; values below one are ignored.
func (l *Neo4jLoader) SetBatchSize(size int) {
	if size > 0 {
		l.batchSize = size
	}
}

// CreateIndexes ensures the model name index exists.
func (l *Neo4jLoader) CreateIndexes(ctx context.Context) error {
	l.logger.DebugContext(ctx, "creating neo4j indexes")

	return l.runner.Run(ctx, cypherIndexName, nil)
}

// Clean removes every previously exported model and its relations.
func (l *Neo4jLoader) Clean(ctx context.Context) error {
	l.logger.InfoContext(ctx, "cleaning exported models")

	return l.runner.Run(ctx, cypherClean, nil)
}

// LoadModels upserts one node per model.
func (l *Neo4jLoader) LoadModels(ctx context.Context, models []discovery.Model) error {
	l.logger.InfoContext(ctx, "loading models", "count", len(models))

	rows := make([]map[string]any, 0, len(models))
	for _, model := range models {
		rows = append(rows, map[string]any{
			"name":   model.Name,
			"path":   model.Path,
			"parent": model.Parent,
		})
	}

	return l.runBatches(ctx, cypherModels, rows)
}

// LoadRelations upserts one edge per relation. Targets that were not
// discovered themselves get a bare node.
func (l *Neo4jLoader) LoadRelations(ctx context.Context, models []discovery.Model) error {
	var rows []map[string]any

	for _, model := range models {
		for _, rel := range model.Relations {
			rows = append(rows, map[string]any{
				"source":      model.Name,
				"target":      rel.Model,
				"name":        rel.Name,
				"type":        rel.Type,
				"foreign_key": rel.ForeignKey,
				"local_key":   rel.LocalKey,
			})
		}
	}

	l.logger.InfoContext(ctx, "loading relations", "count", len(rows))

	return l.runBatches(ctx, cypherRelations, rows)
}

// Export runs the whole export: indexes, optional clean, models, relations.
func (l *Neo4jLoader) Export(ctx context.Context, models []discovery.Model, clean bool) error {
	err := l.CreateIndexes(ctx)
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}

	if clean {
		err = l.Clean(ctx)
		if err != nil {
			return fmt.Errorf("clean graph: %w", err)
		}
	}

	err = l.LoadModels(ctx, models)
	if err != nil {
		return fmt.Errorf("load models: %w", err)
	}

	err = l.LoadRelations(ctx, models)
	if err != nil {
		return fmt.Errorf("load relations: %w", err)
	}

	return nil
}

func (l *Neo4jLoader) runBatches(ctx context.Context, cypher string, rows []map[string]any) error {
	for start := 0; start < len(rows); start += l.batchSize {
		end := min(start+l.batchSize, len(rows))

		err := l.runner.Run(ctx, cypher, map[string]any{"batch": rows[start:end]})
		if err != nil {
			return err
		}
	}

	return nil
}
