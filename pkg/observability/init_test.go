package observability_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/modelfinder/pkg/observability"
)

func TestInit_NoopWithoutEndpoint(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	cfg := observability.DefaultConfig()

	providers, err := observability.Init(cfg, observability.WithLogOutput(&logs))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, providers.Shutdown(context.Background()))
	})

	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Meter)

	_, span := providers.Tracer.Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	providers.Logger.Info("hello")
	assert.Contains(t, logs.String(), "service=modelfinder")
	assert.Contains(t, logs.String(), "mode=cli")
}

func TestHTTPMiddleware_PassesThrough(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig(), observability.WithLogOutput(&bytes.Buffer{}))
	require.NoError(t, err)

	handler := observability.HTTPMiddleware(providers.Tracer, http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}
