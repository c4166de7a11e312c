package version_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/modelfinder/pkg/version"
)

func TestString(t *testing.T) {
	t.Parallel()

	out := version.String()

	assert.Contains(t, out, "modelfinder "+version.Version)
	assert.Contains(t, out, version.Commit)
	assert.Contains(t, out, runtime.GOOS+"/"+runtime.GOARCH)
}
