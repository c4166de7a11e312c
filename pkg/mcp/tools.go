package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/modelfinder/pkg/discovery"
	"github.com/Sumatoshi-tech/modelfinder/pkg/suggest"
)

// Tool name constants.
const (
	ToolNameDiscover  = "discover_models"
	ToolNameRelations = "model_relations"
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyDirectory indicates the directory parameter is empty.
	ErrEmptyDirectory = errors.New("directory parameter is required and must not be empty")
	// ErrDirectoryNotAbsolute indicates the directory is not an absolute path.
	ErrDirectoryNotAbsolute = errors.New("directory must be an absolute path")
	// ErrEmptyModel indicates the model parameter is empty.
	ErrEmptyModel = errors.New("model parameter is required and must not be empty")
	// ErrModelNotFound indicates the requested class is not a discovered model.
	ErrModelNotFound = errors.New("model not found")
)

// DiscoverInput is the input schema for the discover_models tool.
type DiscoverInput struct {
	Directory string   `json:"directory"           jsonschema:"absolute path of the directory to scan"`
	Recursive *bool    `json:"recursive,omitempty" jsonschema:"scan subdirectories as well"`
	Ignore    []string `json:"ignore,omitempty"    jsonschema:"fully-qualified class names to exclude"`
	Focus     []string `json:"focus,omitempty"     jsonschema:"fully-qualified class names to focus on"`
}

// RelationsInput is the input schema for the model_relations tool.
type RelationsInput struct {
	Directory string `json:"directory"           jsonschema:"absolute path of the directory to scan"`
	Recursive *bool  `json:"recursive,omitempty" jsonschema:"scan subdirectories as well"`
	Model     string `json:"model"               jsonschema:"fully-qualified class name, e.g. App\\Models\\User"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// DiscoverResult is the structured result of discover_models.
type DiscoverResult struct {
	Models []string        `json:"models"`
	Stats  discovery.Stats `json:"stats"`
}

func (s *Server) handleDiscover(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input DiscoverInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateDirectory(input.Directory)
	if err != nil {
		return nil, ToolOutput{}, err
	}

	scan, err := s.engine.Scan(ctx, discovery.Request{
		Directory: input.Directory,
		Recursive: s.recursive(input.Recursive),
		Ignore:    append(append([]string{}, s.defaults.Ignore...), input.Ignore...),
		Focus:     input.Focus,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "discover_models failed", "directory", input.Directory, "error", err)

		return nil, ToolOutput{}, err
	}

	return jsonResult(DiscoverResult{Models: scan.Names(), Stats: scan.Stats})
}

func (s *Server) handleRelations(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input RelationsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateDirectory(input.Directory)
	if err != nil {
		return nil, ToolOutput{}, err
	}

	name := strings.TrimPrefix(strings.TrimSpace(input.Model), `\`)
	if name == "" {
		return nil, ToolOutput{}, ErrEmptyModel
	}

	scan, err := s.engine.Scan(ctx, discovery.Request{
		Directory:     input.Directory,
		Recursive:     s.recursive(input.Recursive),
		Ignore:        s.defaults.Ignore,
		Focus:         []string{name},
		WithRelations: true,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "model_relations failed", "directory", input.Directory, "error", err)

		return nil, ToolOutput{}, err
	}

	for _, model := range scan.Models {
		if strings.EqualFold(model.Name, name) {
			return jsonResult(model)
		}
	}

	return nil, ToolOutput{}, s.modelNotFound(ctx, input, name)
}

// modelNotFound builds the error for a missing model, naming the closest
// discovered model when the request looks like a typo.
func (s *Server) modelNotFound(ctx context.Context, input RelationsInput, name string) error {
	notFound := fmt.Errorf("%w: %s", ErrModelNotFound, name)

	all, err := s.engine.Scan(ctx, discovery.Request{
		Directory: input.Directory,
		Recursive: s.recursive(input.Recursive),
		Ignore:    s.defaults.Ignore,
	})
	if err != nil {
		return notFound
	}

	if closest, ok := suggest.Closest(name, all.Names()); ok {
		return fmt.Errorf("%w (did you mean %s?)", notFound, closest)
	}

	return notFound
}

func (s *Server) recursive(requested *bool) bool {
	if requested != nil {
		return *requested
	}

	return s.defaults.Recursive
}

func validateDirectory(dir string) error {
	if dir == "" {
		return ErrEmptyDirectory
	}

	if !filepath.IsAbs(dir) {
		return fmt.Errorf("%w: %s", ErrDirectoryNotAbsolute, dir)
	}

	return nil
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, ToolOutput{}, fmt.Errorf("encode result: %w", err)
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
