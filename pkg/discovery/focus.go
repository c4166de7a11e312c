package discovery

import (
	"errors"
	"fmt"

	graphlib "github.com/dominikbraun/graph"
)

// relationGraph is the directed graph of candidate models and the models
// their relations point at.
type relationGraph struct {
	g graphlib.Graph[string, string]
}

func newRelationGraph() *relationGraph {
	return &relationGraph{g: graphlib.New(graphlib.StringHash, graphlib.Directed())}
}

func (rg *relationGraph) addVertex(name string) error {
	err := rg.g.AddVertex(name)
	if err != nil && !errors.Is(err, graphlib.ErrVertexAlreadyExists) {
		return fmt.Errorf("add vertex %s: %w", name, err)
	}

	return nil
}

func (rg *relationGraph) addEdge(from, to string) error {
	if err := rg.addVertex(from); err != nil {
		return err
	}

	if err := rg.addVertex(to); err != nil {
		return err
	}

	err := rg.g.AddEdge(from, to)
	if err != nil && !errors.Is(err, graphlib.ErrEdgeAlreadyExists) {
		return fmt.Errorf("add edge %s -> %s: %w", from, to, err)
	}

	return nil
}

// keep returns the candidates that are in focus or have a direct relation
// target in focus. Only one hop is followed.
func (rg *relationGraph) keep(candidates []string, focus map[string]bool) ([]string, error) {
	adjacency, err := rg.g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("relation graph adjacency: %w", err)
	}

	kept := make([]string, 0, len(candidates))

	for _, name := range candidates {
		if focus[name] {
			kept = append(kept, name)

			continue
		}

		for target := range adjacency[name] {
			if focus[target] {
				kept = append(kept, name)

				break
			}
		}
	}

	return kept, nil
}
