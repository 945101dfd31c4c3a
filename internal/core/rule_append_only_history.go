package core

import (
	"bytes"
	"context"
	"encoding/json"

	"producechain/pkg/domain"
)

// AppendOnlyHistoryRule blocks edits to stored action and sale history. The
// one in-place edit allowed is settling the payment fields of the latest sale.
func AppendOnlyHistoryRule() domain.Rule {
	return appendOnlyHistoryRule{}
}

type appendOnlyHistoryRule struct{}

const appendOnlyHistoryName = "append_only_history"

func (appendOnlyHistoryRule) Name() string { return appendOnlyHistoryName }

func (appendOnlyHistoryRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	assets, err := assetChanges(changes)
	if err != nil {
		return domain.Result{}, err
	}
	for _, ac := range assets {
		if ac.create {
			continue
		}
		if !actionPrefix(ac.before.ActionHistory, ac.after.ActionHistory) {
			res.Violations = append(res.Violations, blockAsset(appendOnlyHistoryName, ac.key, "asset %s action history was rewritten", ac.key))
		}
		if !salePrefix(ac.before.SaleHistory, ac.after.SaleHistory) {
			res.Violations = append(res.Violations, blockAsset(appendOnlyHistoryName, ac.key, "asset %s sale history was rewritten", ac.key))
		}
	}
	return res, nil
}

func actionPrefix(before, after []domain.ActionEntry) bool {
	if len(after) < len(before) {
		return false
	}
	for i := range before {
		if !sameJSON(before[i], after[i]) {
			return false
		}
	}
	return true
}

func salePrefix(before, after []domain.SaleEntry) bool {
	if len(after) < len(before) {
		return false
	}
	last := len(before) - 1
	for i := range before {
		b, a := before[i], after[i]
		if i == last {
			b.PaymentStatus, b.PaymentMethod, b.PaymentRef = "", "", ""
			a.PaymentStatus, a.PaymentMethod, a.PaymentRef = "", "", ""
		}
		if !sameJSON(b, a) {
			return false
		}
	}
	return true
}

func sameJSON(a, b any) bool {
	left, errA := json.Marshal(a)
	right, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(left, right)
}
