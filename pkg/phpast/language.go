package phpast

import (
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/alexaandru/go-sitter-forest/php"
)

// Extension is the file extension of PHP sources.
const Extension = ".php"

var (
	languageOnce sync.Once
	language     *sitter.Language
)

// Language returns the tree-sitter grammar for PHP, built once per process.
func Language() *sitter.Language {
	languageOnce.Do(func() {
		language = sitter.NewLanguage(php.GetLanguage())
	})

	return language
}
