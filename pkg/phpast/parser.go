package phpast

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// maxNearLen bounds the source excerpt carried by a ParseError.
const maxNearLen = 32

// Parser turns PHP source into declaration summaries. It is safe for
// concurrent use; tree-sitter parsers are pooled per Parser.
type Parser struct {
	tsParserPool sync.Pool
}

// NewParser creates a Parser for the PHP grammar.
func NewParser() *Parser {
	lang := Language()

	return &Parser{
		tsParserPool: sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(lang)

				return tsParser
			},
		},
	}
}

// ParseFile parses src and extracts its class declarations. A source that does
// not form a valid syntax tree yields a *ParseError.
func (parser *Parser) ParseFile(ctx context.Context, path string, src []byte) (*File, error) {
	ctxErr := ctx.Err()
	if ctxErr != nil {
		return nil, ctxErr
	}

	tsParser, ok := parser.tsParserPool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	// A cancelable context makes tree-sitter arm the parser's cancellation
	// flag from a watcher goroutine that can fire after the parse returned,
	// leaving the pooled parser unusable. Cancellation is checked above.
	tree, err := tsParser.ParseString(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("php parser: parse %s: %w", path, err)
	}
	defer tree.Close()

	parser.tsParserPool.Put(tsParser)

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errNoRootNode
	}

	if root.HasError() {
		return nil, newParseError(path, root, src)
	}

	ex := &extractor{path: path, src: src}

	return ex.file(root), nil
}

// ResolveClassName returns the fully-qualified name of the first class
// declared inside the first namespace block of src, or "" when the file has
// no namespace block or the block declares no class.
func (parser *Parser) ResolveClassName(ctx context.Context, path string, src []byte) (string, error) {
	file, err := parser.ParseFile(ctx, path, src)
	if err != nil {
		return "", err
	}

	return file.Primary, nil
}

func newParseError(path string, root sitter.Node, src []byte) *ParseError {
	broken := findBrokenNode(root)
	if broken.IsNull() {
		broken = root
	}

	start := broken.StartPoint()

	near := string(src[broken.StartByte():broken.EndByte()])
	if line, _, found := strings.Cut(near, "\n"); found {
		near = line
	}

	near = strings.TrimSpace(near)
	if len(near) > maxNearLen {
		near = near[:maxNearLen]
	}

	return &ParseError{
		Path:   path,
		Line:   int(start.Row) + 1,
		Column: int(start.Column) + 1,
		Near:   near,
	}
}

// findBrokenNode returns the first ERROR or MISSING node in document order.
func findBrokenNode(tsNode sitter.Node) sitter.Node {
	if tsNode.Type() == nodeError || tsNode.IsMissing() {
		return tsNode
	}

	for idx := range tsNode.ChildCount() {
		child := tsNode.Child(idx)
		if !child.HasError() && !child.IsMissing() {
			continue
		}

		found := findBrokenNode(child)
		if !found.IsNull() {
			return found
		}
	}

	return sitter.Node{}
}
