package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"producechain/internal/blob"
	"producechain/internal/infra/ledger/memory"
	"producechain/internal/ledger"
	"producechain/pkg/domain"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (c *captureLogger) log(level, msg string, args []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, logEntry{level: level, msg: msg, args: args})
}

func (c *captureLogger) Debug(msg string, args ...any) { c.log("debug", msg, args) }
func (c *captureLogger) Info(msg string, args ...any)  { c.log("info", msg, args) }
func (c *captureLogger) Warn(msg string, args ...any)  { c.log("warn", msg, args) }
func (c *captureLogger) Error(msg string, args ...any) { c.log("error", msg, args) }

func (c *captureLogger) count(level string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

type observation struct {
	operation string
	success   bool
}

type captureMetrics struct {
	observations []observation
}

func (m *captureMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	m.observations = append(m.observations, observation{operation: op, success: success})
}

type captureTracer struct {
	started []string
	ended   []error
}

type captureSpan struct{ tracer *captureTracer }

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, captureSpan{tracer: c}
}

func (s captureSpan) End(err error) { s.tracer.ended = append(s.tracer.ended, err) }

type captureAudit struct {
	entries []AuditEntry
}

func (a *captureAudit) Record(_ context.Context, entry AuditEntry) {
	a.entries = append(a.entries, entry)
}

type captureExporter struct {
	lineage      domain.Lineage
	generatedFor string
	calls        int
}

func (c *captureExporter) Export(_ context.Context, lineage domain.Lineage, generatedFor string) (blob.Info, error) {
	c.calls++
	c.lineage = lineage
	c.generatedFor = generatedFor
	return blob.Info{Key: "provenance/" + lineage.Asset.ID + ".json"}, nil
}

func newTestStore() *ledger.Store {
	seq := 0
	return ledger.NewStore(memory.NewBackend(),
		ledger.WithClock(func() time.Time { return testEpoch }),
		ledger.WithIDGenerator(func() string { seq++; return fmt.Sprintf("local%d", seq) }),
	)
}

func TestServiceInvokeCommitsAndObserves(t *testing.T) {
	logger := &captureLogger{}
	metrics := &captureMetrics{}
	tracer := &captureTracer{}
	audit := &captureAudit{}
	svc := NewService(newTestStore(),
		WithLogger(logger),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithAuditRecorder(audit),
		WithClock(ClockFunc(func() time.Time { return testEpoch })),
	)
	ctx := context.Background()

	if _, err := svc.Invoke(ctx, farmerOrg, "RegisterUser", "Farmer", `{"id":"F1"}`); err != nil {
		t.Fatalf("register user: %v", err)
	}
	out, err := svc.Invoke(ctx, farmerOrg, "RegisterProduce", "F1", `{"qty":"5"}`)
	if err != nil {
		t.Fatalf("register produce: %v", err)
	}
	var asset domain.Asset
	if err := json.Unmarshal(out, &asset); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if asset.ID != "PRODUCE-local2" {
		t.Fatalf("unexpected id %s", asset.ID)
	}
	if _, err := svc.Invoke(ctx, "", "GetProduceByID", asset.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := svc.Invoke(ctx, distributorOrg, "RegisterProduce", "F1", `{"qty":"5"}`); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	if len(metrics.observations) != 4 {
		t.Fatalf("expected 4 observations, got %+v", metrics.observations)
	}
	if metrics.observations[1].operation != "register_produce" || !metrics.observations[1].success {
		t.Fatalf("unexpected observation %+v", metrics.observations[1])
	}
	if metrics.observations[2].operation != "get_produce_by_id" {
		t.Fatalf("unexpected label %s", metrics.observations[2].operation)
	}
	if metrics.observations[3].success {
		t.Fatalf("failed call recorded as success")
	}
	if len(tracer.started) != 4 || tracer.ended[3] == nil {
		t.Fatalf("unexpected spans %v %v", tracer.started, tracer.ended)
	}
	if len(audit.entries) != 4 || audit.entries[3].Status != AuditStatusError || audit.entries[3].CallerOrg != distributorOrg {
		t.Fatalf("unexpected audit %+v", audit.entries)
	}
	if logger.count("error") != 1 || logger.count("debug") != 3 {
		t.Fatalf("unexpected log entries %+v", logger.entries)
	}
}

func TestServiceReadOnlyOperationsUseView(t *testing.T) {
	svc := NewService(newTestStore())
	ctx := context.Background()
	if _, err := svc.Invoke(ctx, farmerOrg, "RegisterUser", "Farmer", `{"id":"F1"}`); err != nil {
		t.Fatalf("register user: %v", err)
	}
	if _, err := svc.Invoke(ctx, farmerOrg, "GetUserDetails", "FARMER-F1"); err != nil {
		t.Fatalf("get user: %v", err)
	}
	if _, err := svc.Invoke(ctx, farmerOrg, "Unknown"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestServiceExportProvenance(t *testing.T) {
	ctx := context.Background()
	disabled := NewService(newTestStore())
	if _, err := disabled.ExportProvenance(ctx, inspectorOrg, "PRODUCE-x"); !errors.Is(err, ErrExportDisabled) {
		t.Fatalf("expected export disabled, got %v", err)
	}

	exporter := &captureExporter{}
	svc := NewService(newTestStore(), WithProvenanceExporter(exporter))
	if _, err := svc.Invoke(ctx, farmerOrg, "RegisterUser", "Farmer", `{"id":"F1"}`); err != nil {
		t.Fatalf("register user: %v", err)
	}
	out, err := svc.Invoke(ctx, farmerOrg, "RegisterProduce", "F1", `{"qty":"8"}`)
	if err != nil {
		t.Fatalf("register produce: %v", err)
	}
	var asset domain.Asset
	if err := json.Unmarshal(out, &asset); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if _, err := svc.ExportProvenance(ctx, farmerOrg, asset.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	info, err := svc.ExportProvenance(ctx, inspectorOrg, asset.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if info.Key != "provenance/"+asset.ID+".json" || exporter.calls != 1 {
		t.Fatalf("unexpected export %+v calls=%d", info, exporter.calls)
	}
	if exporter.lineage.Asset.ID != asset.ID || exporter.generatedFor == "" {
		t.Fatalf("unexpected exporter input %+v %q", exporter.lineage.Asset.ID, exporter.generatedFor)
	}

	lineage, err := svc.Lineage(ctx, "", asset.ID)
	if err != nil {
		t.Fatalf("lineage: %v", err)
	}
	if lineage.Asset.ID != asset.ID {
		t.Fatalf("unexpected lineage %+v", lineage.IDs())
	}
}

func TestServiceOrgTableOverride(t *testing.T) {
	orgs, err := domain.NewOrgTable(map[domain.Role]string{
		domain.RoleOriginator: "GrowersMSP",
		domain.RoleCustodianA: "Org2MSP",
		domain.RoleCustodianB: "Org3MSP",
		domain.RoleAuditor:    "Org4MSP",
	})
	if err != nil {
		t.Fatalf("org table: %v", err)
	}
	svc := NewService(newTestStore(), WithOrgTable(orgs))
	ctx := context.Background()
	if _, err := svc.Invoke(ctx, farmerOrg, "RegisterUser", "Farmer", `{"id":"F1"}`); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("default org should be rejected, got %v", err)
	}
	if _, err := svc.Invoke(ctx, "GrowersMSP", "RegisterUser", "Farmer", `{"id":"F1"}`); err != nil {
		t.Fatalf("override org should be accepted: %v", err)
	}
	if svc.Engine().OrgTable()[domain.RoleOriginator] != "GrowersMSP" {
		t.Fatalf("engine did not receive the override")
	}
}

func TestOperationLabel(t *testing.T) {
	cases := map[string]string{
		"TransferOwnership": "transfer_ownership",
		"GetProduceByID":    "get_produce_by_id",
		"InitLedger":        "init_ledger",
	}
	for in, want := range cases {
		if got := operationLabel(in); got != want {
			t.Fatalf("operationLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNoopDefaults(t *testing.T) {
	var l Logger = noopLogger{}
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	ctx, span := noopTracer{}.Start(context.Background(), "op")
	span.End(nil)
	noopMetrics{}.Observe(ctx, "op", true, 0)
	noopAudit{}.Record(ctx, AuditEntry{})

	svc := NewService(newTestStore(), nil, WithLogger(nil), WithTracer(nil), WithMetricsRecorder(nil), WithAuditRecorder(nil), WithClock(nil))
	if svc.Store() == nil || svc.Engine() == nil {
		t.Fatalf("service not initialised")
	}
	if _, ok := svc.opts.logger.(noopLogger); !ok {
		t.Fatalf("nil logger should keep the default")
	}
}
