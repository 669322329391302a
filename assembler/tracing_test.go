package assembler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

// Not parallel: it swaps the global tracer provider.
func TestCreateApplicationSpans(t *testing.T) {
	exporter := setupTestTracer(t)
	a := New(WithLogger(quiet()))
	ctx, root := otel.Tracer("test").Start(context.Background(), "test.root")

	_, err := a.CreateApplication(ctx, shopApp("traced"))
	require.NoError(t, err)
	app := shopApp("traced-dup")
	_, err = a.CreateApplication(ctx, app)
	require.Error(t, err)
	root.End()

	traceID := root.SpanContext().TraceID()
	var names []string
	var failed int
	for _, s := range exporter.GetSpans() {
		if s.SpanContext.TraceID() != traceID {
			continue
		}
		names = append(names, s.Name)
		if s.Name == "assembler.CreateApplication" && s.Status.Code == codes.Error {
			failed++
		}
	}
	for _, want := range []string{
		"assembler.CreateApplication",
		"assembler.check_duplicates",
		"assembler.build_interceptors",
		"assembler.bind_names",
		"assembler.resolve_references",
		"assembler.deploy_to_containers",
	} {
		assert.Contains(t, names, want)
	}
	assert.Equal(t, 1, failed, "the duplicate deployment is marked failed")
}
