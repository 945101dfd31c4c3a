package core

import (
	"context"

	"producechain/pkg/domain"
)

// SingleOwnerRule requires every written asset to name its current owner.
func SingleOwnerRule() domain.Rule {
	return singleOwnerRule{}
}

type singleOwnerRule struct{}

func (singleOwnerRule) Name() string { return "single_owner" }

func (singleOwnerRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	assets, err := assetChanges(changes)
	if err != nil {
		return domain.Result{}, err
	}
	for _, ac := range assets {
		if ac.after.CurrentOwner == "" {
			res.Violations = append(res.Violations, blockAsset("single_owner", ac.key, "asset %s has no current owner", ac.key))
		}
	}
	return res, nil
}
