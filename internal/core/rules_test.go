package core

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"producechain/pkg/domain"
)

func baseAsset() domain.Asset {
	a := domain.Asset{
		ID:           "PRODUCE-1",
		Qty:          decimal.NewFromInt(10),
		PricePerUnit: decimal.NewFromInt(1),
		CurrentOwner: "F1",
		Status:       domain.StatusHarvested,
		IsAvailable:  true,
		ActionHistory: []domain.ActionEntry{{
			Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Action:    domain.ActionRegister,
			Actor:     "F1",
			Meta:      map[string]any{},
		}},
	}
	a.Normalize()
	a.RecomputeTotal()
	return a
}

func updateChange(t *testing.T, before, after domain.Asset) domain.Change {
	t.Helper()
	return domain.Change{
		Entity: domain.EntityAsset,
		Key:    after.ID,
		Action: domain.ActionUpdate,
		Before: mustChangePayload(t, before),
		After:  mustChangePayload(t, after),
	}
}

func createChange(t *testing.T, after domain.Asset) domain.Change {
	t.Helper()
	return domain.Change{
		Entity: domain.EntityAsset,
		Key:    after.ID,
		Action: domain.ActionCreate,
		Before: domain.UndefinedChangePayload(),
		After:  mustChangePayload(t, after),
	}
}

func evaluate(t *testing.T, rule domain.Rule, changes ...domain.Change) domain.Result {
	t.Helper()
	res, err := rule.Evaluate(context.Background(), emptyView{}, changes)
	if err != nil {
		t.Fatalf("%s: %v", rule.Name(), err)
	}
	return res
}

type emptyView struct{}

func (emptyView) FindAsset(string) (domain.Asset, bool)             { return domain.Asset{}, false }
func (emptyView) FindParticipant(string) (domain.Participant, bool) { return domain.Participant{}, false }

func TestDefaultRulesEngineNames(t *testing.T) {
	names := NewDefaultRulesEngine().Rules()
	want := []string{"quantity_conservation", "append_only_history", "availability_gate", "single_owner"}
	if len(names) != len(want) {
		t.Fatalf("unexpected rules %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("rule %d: want %s got %s", i, want[i], names[i])
		}
	}
}

func TestQuantityConservationRule(t *testing.T) {
	rule := QuantityConservationRule()
	before := baseAsset()

	parent := before.Clone()
	parent.Qty = decimal.NewFromInt(6)
	child := before.Clone()
	child.ID = "PRODUCE-1-tx-CHILD"
	child.ParentID = before.ID
	child.Qty = decimal.NewFromInt(4)
	if res := evaluate(t, rule, updateChange(t, before, parent), createChange(t, child)); res.HasBlocking() {
		t.Fatalf("balanced split should pass: %+v", res.Violations)
	}

	child.Qty = decimal.NewFromInt(5)
	if res := evaluate(t, rule, updateChange(t, before, parent), createChange(t, child)); !res.HasBlocking() {
		t.Fatalf("unbalanced split should block")
	}
	if res := evaluate(t, rule, createChange(t, child)); !res.HasBlocking() {
		t.Fatalf("orphan child should block")
	}

	grown := before.Clone()
	grown.Qty = decimal.NewFromInt(11)
	if res := evaluate(t, rule, updateChange(t, before, grown)); !res.HasBlocking() {
		t.Fatalf("quantity growth should block")
	}
	negative := before.Clone()
	negative.ID = "PRODUCE-2"
	negative.Qty = decimal.NewFromInt(-1)
	if res := evaluate(t, rule, createChange(t, negative)); !res.HasBlocking() {
		t.Fatalf("negative quantity should block")
	}
}

func TestAppendOnlyHistoryRule(t *testing.T) {
	rule := AppendOnlyHistoryRule()
	before := baseAsset()
	before.SaleHistory = []domain.SaleEntry{{NewOwner: "D1", SalePrice: decimal.NewFromInt(5), QtyBought: decimal.NewFromInt(10), PaymentStatus: domain.PaymentPending}}

	appended := before.Clone()
	appended.AppendAction(domain.ActionEntry{Action: domain.ActionMove, Actor: "D1", Meta: map[string]any{}})
	appended.SaleHistory[0].PaymentStatus = "PAID"
	appended.SaleHistory[0].PaymentRef = "R1"
	if res := evaluate(t, rule, updateChange(t, before, appended)); res.HasBlocking() {
		t.Fatalf("append and settle should pass: %+v", res.Violations)
	}

	rewritten := before.Clone()
	rewritten.ActionHistory[0].Actor = "mallory"
	if res := evaluate(t, rule, updateChange(t, before, rewritten)); !res.HasBlocking() {
		t.Fatalf("rewritten action should block")
	}
	truncated := before.Clone()
	truncated.SaleHistory = []domain.SaleEntry{}
	if res := evaluate(t, rule, updateChange(t, before, truncated)); !res.HasBlocking() {
		t.Fatalf("truncated sale history should block")
	}
	repriced := before.Clone()
	repriced.SaleHistory[0].SalePrice = decimal.NewFromInt(1)
	if res := evaluate(t, rule, updateChange(t, before, repriced)); !res.HasBlocking() {
		t.Fatalf("repriced sale should block")
	}
}

func TestAvailabilityGateRule(t *testing.T) {
	rule := AvailabilityGateRule()
	removed := baseAsset()
	removed.IsAvailable = false
	removed.Status = domain.StatusRemoved

	reopened := removed.Clone()
	reopened.IsAvailable = true
	if res := evaluate(t, rule, updateChange(t, removed, reopened)); !res.HasBlocking() {
		t.Fatalf("reopening should block")
	}
	back := removed.Clone()
	back.Status = domain.StatusHarvested
	if res := evaluate(t, rule, updateChange(t, removed, back)); !res.HasBlocking() {
		t.Fatalf("returning to harvested should block")
	}
	closed := baseAsset()
	closing := closed.Clone()
	closing.IsAvailable = false
	if res := evaluate(t, rule, updateChange(t, closed, closing)); res.HasBlocking() {
		t.Fatalf("closing the gate should pass: %+v", res.Violations)
	}
}

func TestSingleOwnerRule(t *testing.T) {
	rule := SingleOwnerRule()
	owned := baseAsset()
	if res := evaluate(t, rule, createChange(t, owned)); res.HasBlocking() {
		t.Fatalf("owned asset should pass")
	}
	orphan := owned.Clone()
	orphan.CurrentOwner = ""
	res := evaluate(t, rule, createChange(t, orphan))
	if !res.HasBlocking() || res.Violations[0].EntityID != orphan.ID {
		t.Fatalf("ownerless asset should block, got %+v", res.Violations)
	}
}

func TestRulesIgnoreParticipantChanges(t *testing.T) {
	change := domain.Change{
		Entity: domain.EntityParticipant,
		Key:    "FARMER-F1",
		Action: domain.ActionCreate,
		Before: domain.UndefinedChangePayload(),
		After:  mustChangePayload(t, domain.Participant{Role: domain.RoleOriginator, ID: "F1"}),
	}
	res, err := NewDefaultRulesEngine().Evaluate(context.Background(), emptyView{}, []domain.Change{change})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("expected no violations, got %+v", res.Violations)
	}
}
