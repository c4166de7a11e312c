package discovery

import (
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Sumatoshi-tech/modelfinder/pkg/phpast"
)

type cacheKey struct {
	path string
	sum  [sha256.Size]byte
}

// declCache keeps parsed files across scans of the same engine. Entries are
// keyed by content hash, so an edited file is parsed again. A nil cache is
// disabled.
type declCache struct {
	entries *lru.Cache[cacheKey, *phpast.File]
}

func newDeclCache(size int) (*declCache, error) {
	if size <= 0 {
		return nil, nil //nolint:nilnil // disabled cache
	}

	entries, err := lru.New[cacheKey, *phpast.File](size)
	if err != nil {
		return nil, fmt.Errorf("create declaration cache: %w", err)
	}

	return &declCache{entries: entries}, nil
}

func keyFor(path string, src []byte) cacheKey {
	return cacheKey{path: path, sum: sha256.Sum256(src)}
}

func (c *declCache) get(key cacheKey) (*phpast.File, bool) {
	if c == nil {
		return nil, false
	}

	return c.entries.Get(key)
}

func (c *declCache) add(key cacheKey, file *phpast.File) {
	if c == nil {
		return
	}

	c.entries.Add(key, file)
}

func (c *declCache) len() int {
	if c == nil {
		return 0
	}

	return c.entries.Len()
}
