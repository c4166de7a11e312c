package phpast

import (
	"strings"
)

const (
	nsSeparator      = `\`
	relativePrefix   = `namespace\`
	keywordSelf      = "self"
	keywordStatic    = "static"
	keywordParent    = "parent"
	classConstSuffix = "::class"
)

// nameScope resolves class names the way PHP does at compile time: against
// the current namespace and the class imports (use statements) seen so far.
type nameScope struct {
	namespace string
	imports   map[string]string // lower-cased alias -> fully-qualified name
}

func newNameScope(namespace string) *nameScope {
	return &nameScope{
		namespace: namespace,
		imports:   make(map[string]string),
	}
}

// addImport registers "use target as alias". An empty alias defaults to the
// last segment of target.
func (s *nameScope) addImport(target, alias string) {
	target = strings.TrimPrefix(normalizeName(target), nsSeparator)
	if target == "" {
		return
	}

	if alias == "" {
		alias = lastSegment(target)
	}

	s.imports[strings.ToLower(alias)] = target
}

// resolve returns the fully-qualified form of a class name as written in source.
func (s *nameScope) resolve(raw string) string {
	name := normalizeName(raw)

	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, nsSeparator):
		return name[1:]
	case len(name) > len(relativePrefix) && strings.EqualFold(name[:len(relativePrefix)], relativePrefix):
		return joinName(s.namespace, name[len(relativePrefix):])
	}

	first, rest, qualified := strings.Cut(name, nsSeparator)
	if target, ok := s.imports[strings.ToLower(first)]; ok {
		if qualified {
			return target + nsSeparator + rest
		}

		return target
	}

	return joinName(s.namespace, name)
}

// qualify prefixes a declared short name with the current namespace.
func (s *nameScope) qualify(short string) string {
	return joinName(s.namespace, normalizeName(short))
}

func joinName(namespace, name string) string {
	if namespace == "" {
		return name
	}

	return namespace + nsSeparator + name
}

func lastSegment(name string) string {
	idx := strings.LastIndex(name, nsSeparator)
	if idx < 0 {
		return name
	}

	return name[idx+1:]
}

// normalizeName strips whitespace and comments-free padding that the grammar
// allows between the segments of a qualified name.
func normalizeName(raw string) string {
	return strings.Join(strings.Fields(raw), "")
}

// isSpecialClassName reports self, static and parent, which never go through
// namespace resolution.
func isSpecialClassName(name string) bool {
	switch strings.ToLower(name) {
	case keywordSelf, keywordStatic, keywordParent:
		return true
	default:
		return false
	}
}
