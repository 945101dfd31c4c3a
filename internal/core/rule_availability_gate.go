package core

import (
	"context"

	"producechain/pkg/domain"
)

// AvailabilityGateRule keeps the availability gate one-way and stops an
// asset's status from returning to Harvested.
func AvailabilityGateRule() domain.Rule {
	return availabilityGateRule{}
}

type availabilityGateRule struct{}

const availabilityGateName = "availability_gate"

func (availabilityGateRule) Name() string { return availabilityGateName }

func (availabilityGateRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	assets, err := assetChanges(changes)
	if err != nil {
		return domain.Result{}, err
	}
	for _, ac := range assets {
		if ac.create {
			continue
		}
		if !ac.before.IsAvailable && ac.after.IsAvailable {
			res.Violations = append(res.Violations, blockAsset(availabilityGateName, ac.key, "asset %s cannot become available again", ac.key))
		}
		if ac.before.Status != domain.StatusHarvested && ac.after.Status == domain.StatusHarvested {
			res.Violations = append(res.Violations, blockAsset(availabilityGateName, ac.key, "asset %s cannot return to %s from %s", ac.key, domain.StatusHarvested, ac.before.Status))
		}
	}
	return res, nil
}
