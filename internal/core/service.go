package core

import (
	"context"
	"errors"
	"strings"

	"producechain/internal/blob"
	"producechain/pkg/domain"
)

// ErrExportDisabled is returned by ExportProvenance when no exporter is configured.
var ErrExportDisabled = errors.New("provenance export is not configured")

// ProvenanceExporter writes an auditor provenance report for a lineage.
type ProvenanceExporter interface {
	Export(ctx context.Context, lineage domain.Lineage, generatedFor string) (blob.Info, error)
}

// Service runs engine operations against a local transactional store with
// logging, metrics, tracing and audit hooks.
type Service struct {
	store  domain.PersistentStore
	engine *Engine
	opts   serviceOptions
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...ServiceOption) *Service {
	cfg := defaultServiceOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Service{
		store:  store,
		engine: NewEngine(cfg.orgs, cfg.rules, cfg.logger),
		opts:   cfg,
	}
}

// Engine returns the lifecycle engine the service dispatches to.
func (s *Service) Engine() *Engine { return s.engine }

// Store returns the underlying store.
func (s *Service) Store() domain.PersistentStore { return s.store }

// Invoke runs a named operation as callerOrg. Mutating operations commit
// atomically; queries run against a read-only view.
func (s *Service) Invoke(ctx context.Context, callerOrg, name string, args ...string) ([]byte, error) {
	op, ok := LookupOperation(name)
	if !ok {
		return nil, domain.InvalidArgument("unknown operation %q", name)
	}
	var out []byte
	err := s.run(ctx, operationLabel(op.Name), callerOrg, func(ctx context.Context) error {
		fn := func(tx domain.Transaction) error {
			var err error
			out, err = s.engine.invoke(ctx, tx, op, args)
			return err
		}
		if op.ReadOnly {
			return s.store.View(ctx, callerOrg, fn)
		}
		return s.store.RunInTransaction(ctx, callerOrg, fn)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Lineage returns the split ancestry of assetID.
func (s *Service) Lineage(ctx context.Context, callerOrg, assetID string) (domain.Lineage, error) {
	var lineage domain.Lineage
	err := s.run(ctx, "get_lineage", callerOrg, func(ctx context.Context) error {
		return s.store.View(ctx, callerOrg, func(tx domain.Transaction) error {
			var err error
			lineage, err = s.engine.GetLineage(ctx, tx, assetID)
			return err
		})
	})
	return lineage, err
}

// ExportProvenance writes the provenance report of assetID to blob storage.
// Only the auditor org may export.
func (s *Service) ExportProvenance(ctx context.Context, callerOrg, assetID string) (blob.Info, error) {
	var info blob.Info
	err := s.run(ctx, "export_provenance", callerOrg, func(ctx context.Context) error {
		if s.opts.exporter == nil {
			return ErrExportDisabled
		}
		if err := s.engine.orgs.Authorize(domain.RoleAuditor, callerOrg); err != nil {
			return err
		}
		var (
			lineage domain.Lineage
			txID    string
		)
		if err := s.store.View(ctx, callerOrg, func(tx domain.Transaction) error {
			var err error
			txID = tx.TxID()
			lineage, err = s.engine.GetLineage(ctx, tx, assetID)
			return err
		}); err != nil {
			return err
		}
		var err error
		info, err = s.opts.exporter.Export(ctx, lineage, txID)
		return err
	})
	return info, err
}

func (s *Service) run(ctx context.Context, operation, callerOrg string, fn func(context.Context) error) (err error) {
	start := s.opts.clock.Now()
	ctx, span := s.opts.tracer.Start(ctx, operation)
	defer func() {
		duration := s.opts.clock.Now().Sub(start)
		span.End(err)
		s.opts.metrics.Observe(ctx, operation, err == nil, duration)
		entry := AuditEntry{
			Operation: operation,
			CallerOrg: callerOrg,
			Status:    AuditStatusSuccess,
			Duration:  duration,
			At:        start,
		}
		if err != nil {
			entry.Status = AuditStatusError
			entry.Error = err.Error()
			s.opts.logger.Error("operation failed", "operation", operation, "caller_org", callerOrg, "error", err, "duration_ms", duration.Milliseconds())
		} else {
			s.opts.logger.Debug("operation completed", "operation", operation, "caller_org", callerOrg, "duration_ms", duration.Milliseconds())
		}
		s.opts.audit.Record(ctx, entry)
	}()
	return fn(ctx)
}

// operationLabel turns "TransferOwnership" into "transfer_ownership".
func operationLabel(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(name[i-1] >= 'A' && name[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
