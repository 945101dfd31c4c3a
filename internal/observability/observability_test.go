package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"producechain/internal/config"
	"producechain/internal/core"
	"producechain/internal/infra/ledger/memory"
	"producechain/internal/ledger"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, config.Log{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Debug("debug line", "operation", "split", "error", errors.New("boom"))
	logger.With("component", "cli").Warn("odd", "dangling")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %d: %s", len(lines), buf.String())
	}
	if lines[0]["operation"] != "split" || lines[0]["error"] != "boom" || lines[0]["level"] != "debug" {
		t.Fatalf("unexpected first line %v", lines[0])
	}
	if lines[1]["component"] != "cli" || lines[1]["!BADKEY"] != "dangling" || lines[1]["level"] != "warning" {
		t.Fatalf("unexpected second line %v", lines[1])
	}
}

func TestLoggerLevelFilteringAndErrors(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, config.Log{Level: "info", Format: "text"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown", "k", 1)
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
	if _, err := NewLogger(&buf, config.Log{Level: "loud"}); err == nil {
		t.Fatalf("expected bad level error")
	}
	if _, err := NewLogger(&buf, config.Log{Level: "info", Format: "xml"}); err == nil {
		t.Fatalf("expected bad format error")
	}
	if NewLogrusLogger(nil) == nil {
		t.Fatalf("expected standard logger wrapper")
	}
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, "transfer_ownership", true, 20*time.Millisecond)
	rec.Observe(ctx, "transfer_ownership", false, 5*time.Millisecond)
	rec.Observe(ctx, "transfer_ownership", true, time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)

	if got := testutil.ToFloat64(rec.total.WithLabelValues("transfer_ownership", "success")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(rec.total.WithLabelValues("transfer_ownership", "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.duration, "producechain_operation_duration_seconds"); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}
	if _, err := NewPrometheusRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestOTelTracer(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := NewOTelTracer(tp)

	_, span := tracer.Start(context.Background(), "register_produce")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "split_produce")
	span.End(errors.New("invalid quantity"))

	ended := recorder.Ended()
	if len(ended) != 2 {
		t.Fatalf("expected two spans, got %d", len(ended))
	}
	if ended[0].Name() != "register_produce" || ended[0].Status().Code != codes.Ok {
		t.Fatalf("unexpected first span %s %v", ended[0].Name(), ended[0].Status())
	}
	if ended[1].Status().Code != codes.Error || len(ended[1].Events()) == 0 {
		t.Fatalf("error not recorded on span: %v", ended[1].Status())
	}
}

func TestServiceWiring(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, config.Log{Level: "info", Format: "json"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	reg := prometheus.NewRegistry()
	metrics, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	spans := tracetest.NewSpanRecorder()
	svc := core.NewService(ledger.NewStore(memory.NewBackend()),
		core.WithLogger(logger),
		core.WithMetricsRecorder(metrics),
		core.WithTracer(NewOTelTracer(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)))),
		core.WithAuditRecorder(NewAuditLogger(logger)),
	)

	if _, err := svc.Invoke(context.Background(), "Org1MSP", "RegisterUser", "Farmer", `{"id":"F1"}`); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if _, err := svc.Invoke(context.Background(), "Org2MSP", "RegisterUser", "Farmer", `{"id":"F2"}`); err == nil {
		t.Fatalf("expected unauthorized")
	}

	if got := testutil.ToFloat64(metrics.total.WithLabelValues("register_user", "success")); got != 1 {
		t.Fatalf("expected one success, got %v", got)
	}
	if len(spans.Ended()) != 2 {
		t.Fatalf("expected two spans, got %d", len(spans.Ended()))
	}
	var audits, failures int
	for _, line := range decodeLines(t, &buf) {
		if line["component"] == "audit" {
			audits++
		}
		if line["msg"] == "operation failed" {
			failures++
		}
	}
	if audits != 2 || failures != 1 {
		t.Fatalf("unexpected log lines audits=%d failures=%d: %s", audits, failures, buf.String())
	}
}

func TestTracerProviderLogsSpans(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, config.Log{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	ctx := context.Background()
	tp, err := NewTracerProvider(ctx, "producectl", logger)
	if err != nil {
		t.Fatalf("tracer provider: %v", err)
	}
	tracer := NewOTelTracer(tp)
	_, span := tracer.Start(ctx, "record_payment")
	span.End(errors.New("not found"))
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected one span line, got %s", buf.String())
	}
	line := lines[0]
	if line["component"] != "trace" || line["span"] != "record_payment" || line["status"] != "Error" || line["error"] != "not found" {
		t.Fatalf("unexpected span line %v", line)
	}
}
