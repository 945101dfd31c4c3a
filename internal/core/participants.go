package core

import (
	"context"
	"encoding/json"
	"fmt"

	"producechain/pkg/domain"
)

// RegisterParticipant creates or replaces a directory entry. The caller org
// must match the org mapped to the role.
func (e *Engine) RegisterParticipant(ctx context.Context, tx domain.Transaction, roleName string, details ParticipantDetails) (domain.Participant, error) {
	role, err := domain.ParseRole(roleName)
	if err != nil {
		return domain.Participant{}, err
	}
	var created domain.Participant
	err = e.execute(ctx, tx, "register_participant", func(t *txn) error {
		if err := e.authorize(t, role); err != nil {
			return err
		}
		id := details.ID
		if id == "" {
			id = domain.DefaultParticipantID(t.tx.TxID())
		}
		participant := domain.Participant{
			Role:     role,
			ID:       id,
			Name:     details.Name,
			Location: details.Location,
			WalletID: details.WalletID,
		}
		switch role {
		case domain.RoleOriginator:
			participant.RegisteredAssets = nonNilStrings(details.RegisteredAssets)
			participant.OwnedAssets = nonNilStrings(details.OwnedAssets)
			participant.Certification = nonNilStrings(details.Certification)
		case domain.RoleCustodianA, domain.RoleCustodianB:
			participant.OwnedAssets = nonNilStrings(details.OwnedAssets)
		case domain.RoleAuditor:
			participant.InspectedAssets = nonNilStrings(details.InspectedAssets)
		}
		created = participant
		return t.putParticipant(participant)
	})
	if err != nil {
		return domain.Participant{}, err
	}
	return created, nil
}

// GetParticipant returns the directory entry stored under key, e.g. "FARMER-p1".
func (e *Engine) GetParticipant(_ context.Context, tx domain.Transaction, key string) (domain.Participant, error) {
	participant, ok, err := newTxn(tx).findParticipant(key)
	if err != nil {
		return domain.Participant{}, err
	}
	if !ok {
		return domain.Participant{}, domain.NotFound(domain.EntityParticipant, key)
	}
	return participant, nil
}

// UpdateParticipant shallow-merges the fields present in raw into the entry
// stored under key. The id and role of the entry cannot be changed.
func (e *Engine) UpdateParticipant(ctx context.Context, tx domain.Transaction, key, raw string) (domain.Participant, error) {
	patch, err := decodeObject(raw)
	if err != nil {
		return domain.Participant{}, err
	}
	var updated domain.Participant
	err = e.execute(ctx, tx, "update_participant", func(t *txn) error {
		current, ok, err := t.findParticipant(key)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NotFound(domain.EntityParticipant, key)
		}
		merged, err := mergeParticipant(current, patch)
		if err != nil {
			return err
		}
		updated = merged
		return t.putParticipant(merged)
	})
	if err != nil {
		return domain.Participant{}, err
	}
	return updated, nil
}

func mergeParticipant(current domain.Participant, patch map[string]any) (domain.Participant, error) {
	data, err := json.Marshal(current)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("encode participant: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return domain.Participant{}, fmt.Errorf("decode participant: %w", err)
	}
	for k, v := range patch {
		if k == "id" || k == "role" {
			continue
		}
		fields[k] = v
	}
	data, err = json.Marshal(fields)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("encode merged participant: %w", err)
	}
	var merged domain.Participant
	if err := json.Unmarshal(data, &merged); err != nil {
		return domain.Participant{}, domain.InvalidArgument("participant update: %v", err)
	}
	return merged, nil
}

// findParticipantByID tries each role-prefixed key in role order.
func (e *Engine) findParticipantByID(t *txn, id string) (domain.Participant, bool, error) {
	if id == "" {
		return domain.Participant{}, false, nil
	}
	for _, role := range domain.Roles() {
		participant, ok, err := t.findParticipant(role.ParticipantKey(id))
		if err != nil {
			return domain.Participant{}, false, err
		}
		if ok {
			return participant, true, nil
		}
	}
	return domain.Participant{}, false, nil
}

// moveOwnedAsset removes assetID from the seller's owned index and adds it to
// the buyer's. Parties without a directory entry are skipped.
func (e *Engine) moveOwnedAsset(t *txn, assetID, sellerID, buyerID string) error {
	seller, ok, err := e.findParticipantByID(t, sellerID)
	if err != nil {
		return err
	}
	if ok && seller.RemoveOwnedAsset(assetID) {
		if err := t.putParticipant(seller); err != nil {
			return err
		}
	}
	buyer, ok, err := e.findParticipantByID(t, buyerID)
	if err != nil {
		return err
	}
	if ok && buyer.AddOwnedAsset(assetID) {
		if err := t.putParticipant(buyer); err != nil {
			return err
		}
	}
	return nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
