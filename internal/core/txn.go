package core

import (
	"encoding/json"
	"fmt"
	"time"

	"producechain/pkg/domain"
)

// txn buffers the writes of one operation so rules can inspect them before
// anything reaches the underlying ledger.
type txn struct {
	tx       domain.Transaction
	writes   map[string][]byte
	original map[string][]byte
	entities map[string]domain.EntityType
	order    []string
}

func newTxn(tx domain.Transaction) *txn {
	return &txn{
		tx:       tx,
		writes:   make(map[string][]byte),
		original: make(map[string][]byte),
		entities: make(map[string]domain.EntityType),
	}
}

func (t *txn) get(key string) ([]byte, error) {
	if value, ok := t.writes[key]; ok {
		return value, nil
	}
	value, err := t.tx.GetState(key)
	if err != nil {
		return nil, fmt.Errorf("get state %s: %w", key, err)
	}
	return value, nil
}

func (t *txn) put(entity domain.EntityType, key string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", entity, key, err)
	}
	if _, seen := t.writes[key]; !seen {
		before, err := t.tx.GetState(key)
		if err != nil {
			return fmt.Errorf("get state %s: %w", key, err)
		}
		t.original[key] = before
		t.entities[key] = entity
		t.order = append(t.order, key)
	}
	t.writes[key] = data
	return nil
}

func (t *txn) loadAsset(id string) (domain.Asset, error) {
	asset, ok, err := t.findAsset(id)
	if err != nil {
		return domain.Asset{}, err
	}
	if !ok {
		return domain.Asset{}, domain.NotFound(domain.EntityAsset, id)
	}
	return asset, nil
}

func (t *txn) findAsset(id string) (domain.Asset, bool, error) {
	if !domain.IsAssetKey(id) {
		return domain.Asset{}, false, nil
	}
	data, err := t.get(id)
	if err != nil || len(data) == 0 {
		return domain.Asset{}, false, err
	}
	var asset domain.Asset
	if err := json.Unmarshal(data, &asset); err != nil {
		return domain.Asset{}, false, fmt.Errorf("decode asset %s: %w", id, err)
	}
	asset.Normalize()
	return asset, true, nil
}

func (t *txn) putAsset(asset domain.Asset) error {
	asset.Normalize()
	return t.put(domain.EntityAsset, asset.ID, asset)
}

func (t *txn) findParticipant(key string) (domain.Participant, bool, error) {
	data, err := t.get(key)
	if err != nil || len(data) == 0 {
		return domain.Participant{}, false, err
	}
	var participant domain.Participant
	if err := json.Unmarshal(data, &participant); err != nil {
		return domain.Participant{}, false, fmt.Errorf("decode participant %s: %w", key, err)
	}
	return participant, true, nil
}

func (t *txn) putParticipant(participant domain.Participant) error {
	return t.put(domain.EntityParticipant, participant.Key(), participant)
}

// FindAsset implements domain.RuleView.
func (t *txn) FindAsset(id string) (domain.Asset, bool) {
	asset, ok, err := t.findAsset(id)
	if err != nil {
		return domain.Asset{}, false
	}
	return asset, ok
}

// FindParticipant implements domain.RuleView.
func (t *txn) FindParticipant(key string) (domain.Participant, bool) {
	participant, ok, err := t.findParticipant(key)
	if err != nil {
		return domain.Participant{}, false
	}
	return participant, ok
}

func (t *txn) changes() []domain.Change {
	out := make([]domain.Change, 0, len(t.order))
	for _, key := range t.order {
		change := domain.Change{
			Entity: t.entities[key],
			Key:    key,
			Action: domain.ActionUpdate,
			Before: domain.UndefinedChangePayload(),
			After:  domain.NewChangePayload(t.writes[key]),
		}
		if before := t.original[key]; len(before) == 0 {
			change.Action = domain.ActionCreate
		} else {
			change.Before = domain.NewChangePayload(before)
		}
		out = append(out, change)
	}
	return out
}

func (t *txn) flush() error {
	for _, key := range t.order {
		if err := t.tx.PutState(key, t.writes[key]); err != nil {
			return fmt.Errorf("put state %s: %w", key, err)
		}
	}
	return nil
}

func (t *txn) now() (time.Time, error) {
	ts, err := t.tx.TxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("tx timestamp: %w", err)
	}
	return domain.CanonicalTimestamp(ts), nil
}

func (t *txn) callerOrg() (string, error) {
	org, err := t.tx.CallerOrg()
	if err != nil {
		return "", fmt.Errorf("caller org: %w", err)
	}
	return org, nil
}
