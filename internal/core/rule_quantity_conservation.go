package core

import (
	"context"

	"github.com/shopspring/decimal"

	"producechain/pkg/domain"
)

// QuantityConservationRule blocks negative quantities, quantity growth on an
// existing asset, and splits whose parent loss differs from the new child's quantity.
func QuantityConservationRule() domain.Rule {
	return quantityConservationRule{}
}

type quantityConservationRule struct{}

const quantityConservationName = "quantity_conservation"

func (quantityConservationRule) Name() string { return quantityConservationName }

func (quantityConservationRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	assets, err := assetChanges(changes)
	if err != nil {
		return domain.Result{}, err
	}

	created := make(map[string]decimal.Decimal)
	for _, ac := range assets {
		if ac.after.Qty.IsNegative() {
			res.Violations = append(res.Violations, blockAsset(quantityConservationName, ac.key, "asset %s has negative quantity %s", ac.key, ac.after.Qty))
		}
		if ac.create && ac.after.ParentID != "" {
			created[ac.after.ParentID] = created[ac.after.ParentID].Add(ac.after.Qty)
		}
	}

	for _, ac := range assets {
		if ac.create {
			continue
		}
		if ac.after.Qty.GreaterThan(ac.before.Qty) {
			res.Violations = append(res.Violations, blockAsset(quantityConservationName, ac.key, "asset %s quantity grew from %s to %s", ac.key, ac.before.Qty, ac.after.Qty))
			continue
		}
		split := created[ac.key]
		if !ac.before.Qty.Equal(ac.after.Qty.Add(split)) {
			res.Violations = append(res.Violations, blockAsset(quantityConservationName, ac.key, "asset %s lost %s but its new children hold %s", ac.key, ac.before.Qty.Sub(ac.after.Qty), split))
		}
		delete(created, ac.key)
	}

	for parentID := range created {
		res.Violations = append(res.Violations, blockAsset(quantityConservationName, parentID, "child of %s created without updating the parent", parentID))
	}
	return res, nil
}
