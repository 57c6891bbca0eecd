package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitWithoutEndpoint(t *testing.T) {
	p, err := Init(context.Background(), Config{ServiceName: "hospital-records-test"})
	require.NoError(t, err)
	require.NotNil(t, p.TracerProvider)

	ctx, span := Start(context.Background(), "test.op", attribute.String("k", "v"))
	assert.True(t, span.SpanContext().IsValid())
	assert.NotNil(t, ctx)
	span.End()

	assert.NoError(t, p.Shutdown(context.Background()))
}
