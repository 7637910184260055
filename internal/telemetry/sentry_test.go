package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_NoDSNIsNoop(t *testing.T) {
	shutdown, err := Init(Config{})

	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown()
}

func TestStartSpan_WithoutSentry(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "RetrievalService.Query", SpanAttributes{
		Collection: "transcript_chunks",
		Operation:  "query",
		ItemCount:  3,
	})
	defer span.End()

	assert.NotNil(t, ctx)
	assert.NotNil(t, span.Context())

	span.SetStatus(sentry.SpanStatusOK)
	span.SetError(errors.New("boom"))
}

func TestStartSpan_ChildOfExistingSpan(t *testing.T) {
	ctx, parent := StartTransaction(context.Background(), "POST /api/rag/query", "http.server")
	defer parent.End()

	childCtx, child := StartSpan(ctx, "RetrievalService.Query", SpanAttributes{})
	defer child.End()

	assert.NotNil(t, sentry.SpanFromContext(childCtx))
}

func TestNilSpanIsSafe(t *testing.T) {
	span := &Span{}

	span.End()
	span.SetStatus(sentry.SpanStatusInternalError)
	span.SetError(errors.New("boom"))
	assert.NotNil(t, span.Context())
}

func TestAddBreadcrumbAndCapture_WithoutSentry(t *testing.T) {
	ctx := context.Background()

	AddBreadcrumb(ctx, "embedding", "primary failed, using fallback")
	CaptureError(ctx, errors.New("upstream down"))
	CaptureMessage(ctx, "hello")
}
