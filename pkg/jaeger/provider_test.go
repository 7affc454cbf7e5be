package jaeger_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/absmach/asgd/pkg/jaeger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	_, err := jaeger.NewProvider(ctx, "asgd", url.URL{}, "", 1)
	assert.Error(t, err)

	_, err = jaeger.NewProvider(ctx, "", url.URL{Scheme: "http", Host: "localhost:4318"}, "", 1)
	assert.Error(t, err)

	tp, err := jaeger.NewProvider(ctx, "asgd", url.URL{Scheme: "http", Host: "localhost:4318", Path: "/v1/traces"}, "test", 0)
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(ctx))
}
