// Package core implements the asset lifecycle engine, the participant
// directory and the query surface on top of the domain ledger contracts, plus
// the Service that runs them against a local transactional store.
package core

import (
	"context"
	"fmt"

	"producechain/pkg/domain"
)

// Engine applies lifecycle operations to a domain.Transaction. It holds no
// per-call state and is safe for concurrent use.
type Engine struct {
	orgs   domain.OrgTable
	rules  *domain.RulesEngine
	logger Logger
}

// NewEngine constructs an engine. Nil arguments fall back to the default org
// table, the default rules and a no-op logger.
func NewEngine(orgs domain.OrgTable, rules *domain.RulesEngine, logger Logger) *Engine {
	if orgs == nil {
		orgs = domain.DefaultOrgTable()
	}
	if rules == nil {
		rules = NewDefaultRulesEngine()
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{orgs: orgs, rules: rules, logger: logger}
}

// OrgTable returns the role to organisation mapping the engine authorises against.
func (e *Engine) OrgTable() domain.OrgTable { return e.orgs }

// execute runs fn over a write buffer, evaluates the rules over the recorded
// changes and releases the writes only when no rule blocks.
func (e *Engine) execute(ctx context.Context, tx domain.Transaction, op string, fn func(*txn) error) error {
	t := newTxn(tx)
	if err := fn(t); err != nil {
		return err
	}
	changes := t.changes()
	if len(changes) == 0 {
		return nil
	}
	res, err := e.rules.Evaluate(ctx, t, changes)
	if err != nil {
		return fmt.Errorf("evaluate rules: %w", err)
	}
	for _, v := range res.Violations {
		if v.Severity != domain.SeverityBlock {
			e.logger.Warn("rule violation", "operation", op, "rule", v.Rule, "entity", v.Entity, "id", v.EntityID, "message", v.Message)
		}
	}
	if res.HasBlocking() {
		return domain.RuleViolationError{Result: res}
	}
	return t.flush()
}

// authorize checks the caller org against the org mapped to role.
func (e *Engine) authorize(t *txn, role domain.Role) error {
	org, err := t.callerOrg()
	if err != nil {
		return err
	}
	return e.orgs.Authorize(role, org)
}

func (e *Engine) actionEntry(t *txn, kind domain.ActionKind, location, actor string, meta map[string]any) (domain.ActionEntry, error) {
	ts, err := t.now()
	if err != nil {
		return domain.ActionEntry{}, err
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return domain.ActionEntry{Timestamp: ts, Action: kind, Location: location, Actor: actor, Meta: meta}, nil
}
