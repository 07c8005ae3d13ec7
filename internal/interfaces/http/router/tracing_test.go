package router

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	return sr
}

func findSpan(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, s := range spans {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func TestEngine_RequestSpanParentsStatementSpans(t *testing.T) {
	sr := installSpanRecorder(t)
	app := newTracedTestApp(t, defaultHTTPConfig(), true)

	admin := app.staff(t)

	rec, _ := app.do(t, http.MethodPost, "/api/v1/categories", admin.access, map[string]any{"name": "Tools"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	spans := sr.Ended()
	request := findSpan(spans, "POST /api/v1/categories")
	require.NotNil(t, request, "otelgin span for the route")

	var userID string
	for _, kv := range request.Attributes() {
		if kv.Key == attribute.Key("user_id") {
			userID = kv.Value.AsString()
		}
	}
	assert.Equal(t, admin.userID, userID)

	var statements int
	for _, s := range spans {
		if s.Parent().SpanID() == request.SpanContext().SpanID() {
			statements++
			assert.Equal(t, request.SpanContext().TraceID(), s.SpanContext().TraceID())
		}
	}
	assert.Positive(t, statements, "the insert runs under the request span")
}

func TestEngine_FailedRequestSpanIsMarked(t *testing.T) {
	sr := installSpanRecorder(t)
	app := newTracedTestApp(t, defaultHTTPConfig(), true)
	admin := app.staff(t)

	rec, _ := app.do(t, http.MethodGet, "/api/v1/tasks/"+uuid.NewString(), admin.access, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	request := findSpan(sr.Ended(), "GET /api/v1/tasks/:id")
	require.NotNil(t, request)
	assert.Equal(t, codes.Error, request.Status().Code)
}

func TestEngine_TracingOffRecordsNothing(t *testing.T) {
	sr := installSpanRecorder(t)
	app := newTestApp(t, defaultHTTPConfig())

	rec, _ := app.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, sr.Ended())
}
