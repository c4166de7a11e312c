// Package discovery finds the concrete Eloquent model classes declared in a
// directory of PHP sources and narrows them to the neighbourhood of a focus
// set, without loading or executing any PHP.
package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/modelfinder/pkg/hierarchy"
	"github.com/Sumatoshi-tech/modelfinder/pkg/observability"
	"github.com/Sumatoshi-tech/modelfinder/pkg/phpast"
	"github.com/Sumatoshi-tech/modelfinder/pkg/relations"
)

// Span names.
const (
	spanScan    = "discovery.scan"
	spanResolve = "discovery.resolve"
	spanFilter  = "discovery.filter"
)

// Options configures an Engine. Zero values fall back to DefaultOptions.
type Options struct {
	// BaseModel is the fully-qualified class every model must extend.
	BaseModel string
	// Extensions lists the file suffixes considered source files.
	Extensions []string
	// TypePaths are extra directories whose classes take part in parent
	// resolution without being reported themselves, e.g. vendor/.
	TypePaths []string
	// Strict turns a parent chain ending in an undeclared class into an error.
	Strict bool
	// Workers bounds the number of files parsed in parallel.
	Workers int
	// CacheSize is the number of parsed files kept between scans; 0 disables.
	CacheSize int

	FileSystem FileSystem
	// Finder reports model relations. Nil uses a StaticFinder over the
	// declarations of each scan.
	Finder  relations.Finder
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.DiscoveryMetrics
}

// DefaultOptions returns the options of a plain Laravel project scan.
func DefaultOptions() Options {
	return Options{
		BaseModel:  hierarchy.EloquentModel,
		Extensions: []string{phpast.Extension},
		Workers:    runtime.NumCPU(),
		CacheSize:  defaultCacheSize,
		FileSystem: OSFileSystem{},
	}
}

const defaultCacheSize = 1024

// Request is a single discovery query.
type Request struct {
	Directory string
	Recursive bool
	// Ignore lists fully-qualified class names that are never reported.
	Ignore []string
	// Focus restricts the result to these classes and the classes with a
	// relation to one of them. Empty means unrestricted.
	Focus []string
	// WithRelations fills Model.Relations for every reported model.
	WithRelations bool
}

// Model is a discovered model class.
type Model struct {
	Name      string                    `json:"name"                yaml:"name"`
	Path      string                    `json:"path"                yaml:"path"`
	Parent    string                    `json:"parent"              yaml:"parent"`
	Relations []relations.ModelRelation `json:"relations,omitempty" yaml:"relations,omitempty"`
}

// Stats describes the work done by a scan.
type Stats struct {
	// Files is the number of source files considered, type paths included.
	Files int `json:"files"      yaml:"files"`
	// Parsed counts files parsed during this scan, i.e. cache misses.
	Parsed    int `json:"parsed"     yaml:"parsed"`
	CacheHits int `json:"cache_hits" yaml:"cache_hits"`
	// Resolved counts candidate files that declare a namespaced class.
	Resolved int           `json:"resolved"   yaml:"resolved"`
	Bytes    int64         `json:"bytes"      yaml:"bytes"`
	Duration time.Duration `json:"duration"   yaml:"duration"`
}

// Scan is the full result of a discovery query.
type Scan struct {
	Models []Model `json:"models" yaml:"models"`
	Stats  Stats   `json:"stats"  yaml:"stats"`
}

// Names returns the model names in result order.
func (s *Scan) Names() []string {
	names := make([]string, len(s.Models))
	for idx, model := range s.Models {
		names[idx] = model.Name
	}

	return names
}

// Engine runs discovery queries. It is safe for concurrent use.
type Engine struct {
	opts   Options
	parser *phpast.Parser
	cache  *declCache
}

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	defaults := DefaultOptions()

	if opts.BaseModel == "" {
		opts.BaseModel = defaults.BaseModel
	}

	if len(opts.Extensions) == 0 {
		opts.Extensions = defaults.Extensions
	}

	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}

	if opts.FileSystem == nil {
		opts.FileSystem = defaults.FileSystem
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if opts.Tracer == nil {
		opts.Tracer = nooptrace.NewTracerProvider().Tracer("discovery")
	}

	cache, err := newDeclCache(opts.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Engine{
		opts:   opts,
		parser: phpast.NewParser(),
		cache:  cache,
	}, nil
}

// DiscoverModels returns the sorted fully-qualified names of the concrete
// model classes under req.Directory that survive the ignore and focus filters.
func (e *Engine) DiscoverModels(ctx context.Context, req Request) ([]string, error) {
	scan, err := e.Scan(ctx, req)
	if err != nil {
		return nil, err
	}

	return scan.Names(), nil
}

// sourceFile is a listed file with its parse result.
type sourceFile struct {
	path      string
	candidate bool
	decls     *phpast.File
}

// Scan runs a discovery query. Any parse or resolution error aborts the whole
// scan; no partial result is returned.
func (e *Engine) Scan(ctx context.Context, req Request) (result *Scan, err error) {
	started := time.Now()

	ctx, span := e.opts.Tracer.Start(ctx, spanScan, trace.WithAttributes(
		attribute.String("discovery.directory", req.Directory),
		attribute.Bool("discovery.recursive", req.Recursive),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.opts.Metrics.RecordScanFailure(ctx, Outcome(err), time.Since(started))
		}

		span.End()
	}()

	files, err := e.listSources(req)
	if err != nil {
		return nil, err
	}

	stats := Stats{Files: len(files)}

	err = e.resolve(ctx, files, &stats)
	if err != nil {
		return nil, err
	}

	registry := hierarchy.New(hierarchy.WithStrict(e.opts.Strict))
	for _, file := range files {
		registry.AddFile(file.decls)
	}

	models, err := e.filter(ctx, req, files, registry, &stats)
	if err != nil {
		return nil, err
	}

	stats.Duration = time.Since(started)

	e.opts.Metrics.RecordScan(ctx, observability.ScanStats{
		Files:     stats.Files,
		Parsed:    stats.Parsed,
		CacheHits: stats.CacheHits,
		Models:    len(models),
		Duration:  stats.Duration,
	})

	e.opts.Logger.DebugContext(ctx, "discovery scan complete",
		"directory", req.Directory,
		"files", stats.Files,
		"parsed", stats.Parsed,
		"cache_hits", stats.CacheHits,
		"models", len(models),
		"duration", stats.Duration,
	)

	span.SetAttributes(attribute.Int("discovery.models", len(models)))

	return &Scan{Models: models, Stats: stats}, nil
}

// listSources lists the candidate files of the scanned directory followed by
// the files of the type paths that are not candidates themselves.
func (e *Engine) listSources(req Request) ([]*sourceFile, error) {
	listed, err := e.opts.FileSystem.ListFiles(req.Directory, req.Recursive)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)

	var files []*sourceFile

	for _, path := range listed {
		if !e.isSource(path) {
			continue
		}

		seen[absPath(path)] = true
		files = append(files, &sourceFile{path: path, candidate: true})
	}

	for _, dir := range e.opts.TypePaths {
		extra, listErr := e.opts.FileSystem.ListFiles(dir, true)
		if listErr != nil {
			return nil, fmt.Errorf("type path: %w", listErr)
		}

		for _, path := range extra {
			abs := absPath(path)
			if !e.isSource(path) || seen[abs] {
				continue
			}

			seen[abs] = true
			files = append(files, &sourceFile{path: path})
		}
	}

	return files, nil
}

func (e *Engine) isSource(path string) bool {
	for _, ext := range e.opts.Extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	return false
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}

	return abs
}

// resolve parses every file in parallel. The first failure cancels the
// remaining work.
func (e *Engine) resolve(ctx context.Context, files []*sourceFile, stats *Stats) error {
	ctx, span := e.opts.Tracer.Start(ctx, spanResolve, trace.WithAttributes(
		attribute.Int("discovery.files", len(files)),
	))
	defer span.End()

	var parsed, hits, bytesRead atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.opts.Workers)

	for _, file := range files {
		group.Go(func() error {
			if ctxErr := groupCtx.Err(); ctxErr != nil {
				return ctxErr
			}

			src, readErr := e.opts.FileSystem.ReadFile(file.path)
			if readErr != nil {
				return readErr
			}

			bytesRead.Add(int64(len(src)))

			key := keyFor(file.path, src)

			if cached, ok := e.cache.get(key); ok {
				hits.Add(1)

				file.decls = cached

				return nil
			}

			decls, parseErr := e.parser.ParseFile(groupCtx, file.path, src)
			if parseErr != nil {
				return parseErr
			}

			parsed.Add(1)
			e.cache.add(key, decls)

			file.decls = decls

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	stats.Parsed = int(parsed.Load())
	stats.CacheHits = int(hits.Load())
	stats.Bytes = bytesRead.Load()

	for _, file := range files {
		if file.candidate && file.decls.Primary != "" {
			stats.Resolved++
		}
	}

	return nil
}

// filter applies the subtype, abstractness, ignore and focus filters to the
// candidate files and returns the surviving models sorted by name.
func (e *Engine) filter(
	ctx context.Context, req Request, files []*sourceFile, registry *hierarchy.Registry, stats *Stats,
) ([]Model, error) {
	ctx, span := e.opts.Tracer.Start(ctx, spanFilter, trace.WithAttributes(
		attribute.Int("discovery.resolved", stats.Resolved),
		attribute.Int("discovery.focus", len(req.Focus)),
	))
	defer span.End()

	ignore := nameSet(req.Ignore)
	focus := nameSet(req.Focus)

	byName := make(map[string]Model)

	for _, file := range files {
		if !file.candidate || file.decls.Primary == "" {
			continue
		}

		name := file.decls.Primary

		isModel, err := e.isConcreteModel(registry, name)
		if err != nil {
			return nil, err
		}

		if !isModel || ignore[name] {
			continue
		}

		decl, _ := file.decls.Class(name)
		byName[name] = Model{Name: name, Path: file.path, Parent: decl.Parent}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}

	sort.Strings(names)

	finder := e.opts.Finder
	if finder == nil {
		finder = relations.NewStaticFinder(registry)
	}

	if len(focus) > 0 {
		graph := newRelationGraph()

		for _, name := range names {
			if err := graph.addVertex(name); err != nil {
				return nil, err
			}

			if focus[name] && !req.WithRelations {
				continue
			}

			rels, err := finder.ModelRelations(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("relations of %s: %w", name, err)
			}

			model := byName[name]
			model.Relations = rels
			byName[name] = model

			for _, target := range relations.Targets(rels) {
				if err := graph.addEdge(name, target); err != nil {
					return nil, err
				}
			}
		}

		kept, err := graph.keep(names, focus)
		if err != nil {
			return nil, err
		}

		names = kept
	}

	models := make([]Model, 0, len(names))

	for _, name := range names {
		model := byName[name]

		if req.WithRelations && model.Relations == nil {
			rels, err := finder.ModelRelations(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("relations of %s: %w", name, err)
			}

			model.Relations = rels
		}

		models = append(models, model)
	}

	span.SetAttributes(attribute.Int("discovery.models", len(models)))

	return models, nil
}

// isConcreteModel reports whether name strictly extends the base model and
// is not abstract.
func (e *Engine) isConcreteModel(registry *hierarchy.Registry, name string) (bool, error) {
	isSub, err := registry.IsSubclassOf(name, e.opts.BaseModel)
	if err != nil {
		return false, err
	}

	if !isSub {
		return false, nil
	}

	abstract, err := registry.IsAbstract(name)
	if err != nil {
		return false, err
	}

	return !abstract, nil
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))

	for _, name := range names {
		name = strings.TrimPrefix(strings.TrimSpace(name), `\`)
		if name != "" {
			set[name] = true
		}
	}

	return set
}
