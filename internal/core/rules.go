package core

import (
	"fmt"

	"producechain/pkg/domain"
)

// NewDefaultRulesEngine builds a rules engine with the built-in invariant set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(QuantityConservationRule())
	engine.Register(AppendOnlyHistoryRule())
	engine.Register(AvailabilityGateRule())
	engine.Register(SingleOwnerRule())
	return engine
}

type assetChange struct {
	key    string
	before domain.Asset
	after  domain.Asset
	create bool
}

// assetChanges decodes the asset writes of an operation.
func assetChanges(changes []domain.Change) ([]assetChange, error) {
	var out []assetChange
	for _, change := range changes {
		if change.Entity != domain.EntityAsset {
			continue
		}
		after, ok, err := domain.DecodeChangePayload[domain.Asset](change.After)
		if err != nil {
			return nil, fmt.Errorf("decode asset %s: %w", change.Key, err)
		}
		if !ok {
			continue
		}
		ac := assetChange{key: change.Key, after: after, create: change.Action == domain.ActionCreate}
		if !ac.create {
			before, _, err := domain.DecodeChangePayload[domain.Asset](change.Before)
			if err != nil {
				return nil, fmt.Errorf("decode asset %s: %w", change.Key, err)
			}
			ac.before = before
		}
		out = append(out, ac)
	}
	return out, nil
}

func blockAsset(rule, id, format string, args ...any) domain.Violation {
	return domain.Violation{
		Rule:     rule,
		Severity: domain.SeverityBlock,
		Message:  fmt.Sprintf(format, args...),
		Entity:   domain.EntityAsset,
		EntityID: id,
	}
}
