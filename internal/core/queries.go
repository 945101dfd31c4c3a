package core

import (
	"context"
	"encoding/json"
	"fmt"

	"producechain/pkg/domain"
)

// GetAsset returns the asset stored under id.
func (e *Engine) GetAsset(_ context.Context, tx domain.Transaction, id string) (domain.Asset, error) {
	return newTxn(tx).loadAsset(id)
}

// GetAssetsByOwner scans the asset key range and returns the assets currently
// held by ownerID, in key order. There is no owner index; the scan is O(n).
func (e *Engine) GetAssetsByOwner(_ context.Context, tx domain.Transaction, ownerID string) ([]domain.Asset, error) {
	iter, err := tx.GetStateByRange(domain.AssetKeyPrefix, domain.AssetRangeEnd)
	if err != nil {
		return nil, fmt.Errorf("range scan: %w", err)
	}
	defer func() { _ = iter.Close() }()

	assets := []domain.Asset{}
	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("range scan: %w", err)
		}
		if !domain.IsAssetKey(kv.Key) {
			continue
		}
		var asset domain.Asset
		if err := json.Unmarshal(kv.Value, &asset); err != nil {
			return nil, fmt.Errorf("decode asset %s: %w", kv.Key, err)
		}
		if asset.CurrentOwner == ownerID {
			asset.Normalize()
			assets = append(assets, asset)
		}
	}
	return assets, nil
}

// GetLineage loads id with its ancestors, following parentId, and all of its
// descendants, following children.
func (e *Engine) GetLineage(_ context.Context, tx domain.Transaction, id string) (domain.Lineage, error) {
	t := newTxn(tx)
	asset, err := t.loadAsset(id)
	if err != nil {
		return domain.Lineage{}, err
	}
	lineage := domain.Lineage{Asset: asset, Ancestors: []domain.Asset{}, Descendants: []domain.Asset{}}

	seen := map[string]struct{}{asset.ID: {}}
	for parentID := asset.ParentID; parentID != ""; {
		if _, dup := seen[parentID]; dup {
			break
		}
		seen[parentID] = struct{}{}
		parent, err := t.loadAsset(parentID)
		if err != nil {
			return domain.Lineage{}, err
		}
		lineage.Ancestors = append(lineage.Ancestors, parent)
		parentID = parent.ParentID
	}

	queue := append([]string(nil), asset.Children...)
	for len(queue) > 0 {
		childID := queue[0]
		queue = queue[1:]
		if _, dup := seen[childID]; dup {
			continue
		}
		seen[childID] = struct{}{}
		child, err := t.loadAsset(childID)
		if err != nil {
			return domain.Lineage{}, err
		}
		lineage.Descendants = append(lineage.Descendants, child)
		queue = append(queue, child.Children...)
	}
	return lineage, nil
}
