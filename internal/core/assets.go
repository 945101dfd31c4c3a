package core

import (
	"context"

	"github.com/shopspring/decimal"

	"producechain/pkg/domain"
)

const harvestDateLayout = "2006-01-02T15:04:05.000Z07:00"

// SplitResult is the outcome of splitting an asset.
type SplitResult struct {
	Parent domain.Asset `json:"parent"`
	Child  domain.Asset `json:"child"`
}

// TransferResult names the asset that now belongs to the buyer.
type TransferResult struct {
	NewAssetID string `json:"newAssetId"`
}

// RegisterAsset creates a new asset owned by originatorID. The caller must
// belong to the originator org and the originator must already be registered.
func (e *Engine) RegisterAsset(ctx context.Context, tx domain.Transaction, originatorID string, details RegisterDetails) (domain.Asset, error) {
	var created domain.Asset
	err := e.execute(ctx, tx, "register_asset", func(t *txn) error {
		if err := e.authorize(t, domain.RoleOriginator); err != nil {
			return err
		}
		originatorKey := domain.RoleOriginator.ParticipantKey(originatorID)
		originator, ok, err := t.findParticipant(originatorKey)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewError(domain.ErrUnregisteredParticipant, domain.EntityParticipant, originatorKey, "originator %s is not registered", originatorID)
		}
		if details.Qty.IsNegative() {
			return domain.NewError(domain.ErrInvalidQuantity, domain.EntityAsset, "", "quantity %s must not be negative", details.Qty)
		}
		now, err := t.now()
		if err != nil {
			return err
		}

		asset := domain.Asset{
			ID:                domain.AssetID(t.tx.TxID()),
			Children:          []string{},
			Qty:               details.Qty,
			QtyUnit:           details.QtyUnit,
			PricePerUnit:      details.PricePerUnit,
			CurrentOwner:      originatorID,
			CurrentLocation:   details.Location,
			Status:            domain.StatusHarvested,
			IsAvailable:       true,
			CropType:          details.CropType,
			HarvestDate:       details.HarvestDate,
			Quality:           details.Quality,
			ExpiryDate:        details.ExpiryDate,
			StorageConditions: details.StorageConditions,
			Certification:     details.Certification,
			ImageURL:          details.ImageURL,
		}
		if asset.QtyUnit == "" {
			asset.QtyUnit = "KG"
		}
		if asset.HarvestDate == "" {
			asset.HarvestDate = now.Format(harvestDateLayout)
		}
		if asset.Certification == nil {
			asset.Certification = append([]string(nil), originator.Certification...)
		}
		asset.RecomputeTotal()

		entry, err := e.actionEntry(t, domain.ActionRegister, asset.CurrentLocation, originatorID, map[string]any{"note": details.Note})
		if err != nil {
			return err
		}
		asset.AppendAction(entry)
		if err := t.putAsset(asset); err != nil {
			return err
		}

		changed := originator.AddRegisteredAsset(asset.ID)
		changed = originator.AddOwnedAsset(asset.ID) || changed
		if changed {
			if err := t.putParticipant(originator); err != nil {
				return err
			}
		}
		created = asset
		return nil
	})
	if err != nil {
		return domain.Asset{}, err
	}
	created.Normalize()
	return created, nil
}

// UpdateLocation records a move. A departure only advances the status; an
// arrival sets the location and moves a Harvested asset into transit.
func (e *Engine) UpdateLocation(ctx context.Context, tx domain.Transaction, assetID, actorID string, update domain.LocationUpdate) (domain.Asset, error) {
	var updated domain.Asset
	err := e.execute(ctx, tx, "update_location", func(t *txn) error {
		asset, err := t.loadAsset(assetID)
		if err != nil {
			return err
		}
		if update.InTransit() {
			asset.Status = domain.StatusInTransit
		} else {
			asset.CurrentLocation = update.Location()
			if asset.Status == domain.StatusHarvested {
				asset.Status = domain.StatusInTransit
			}
		}
		entry, err := e.actionEntry(t, domain.ActionMove, asset.CurrentLocation, actorID, nil)
		if err != nil {
			return err
		}
		asset.AppendAction(entry)
		updated = asset
		return t.putAsset(asset)
	})
	return updated, err
}

// MarkUnavailable closes the availability gate permanently. An empty status defaults to Removed.
func (e *Engine) MarkUnavailable(ctx context.Context, tx domain.Transaction, assetID, actorID, reason string, status domain.Status) (domain.Asset, error) {
	var updated domain.Asset
	err := e.execute(ctx, tx, "mark_unavailable", func(t *txn) error {
		asset, err := t.loadAsset(assetID)
		if err != nil {
			return err
		}
		if status == "" {
			status = domain.StatusRemoved
		}
		asset.IsAvailable = false
		asset.NotAvailableReason = reason
		asset.Status = status
		entry, err := e.actionEntry(t, domain.ActionRemoved, asset.CurrentLocation, actorID, map[string]any{"reason": reason})
		if err != nil {
			return err
		}
		asset.AppendAction(entry)
		updated = asset
		return t.putAsset(asset)
	})
	return updated, err
}

// Inspect merges an auditor's quality findings. A failed inspection closes the
// availability gate and appends a second REMOVED entry.
func (e *Engine) Inspect(ctx context.Context, tx domain.Transaction, assetID, inspectorID string, update QualityUpdate) (domain.Asset, error) {
	var updated domain.Asset
	err := e.execute(ctx, tx, "inspect", func(t *txn) error {
		if err := e.authorize(t, domain.RoleAuditor); err != nil {
			return err
		}
		asset, err := t.loadAsset(assetID)
		if err != nil {
			return err
		}
		if update.Quality != nil {
			asset.Quality = *update.Quality
		}
		if update.ExpiryDate != nil {
			asset.ExpiryDate = *update.ExpiryDate
		}
		if update.StorageConditions != nil {
			asset.StorageConditions = append([]string{}, (*update.StorageConditions)...)
		}
		entry, err := e.actionEntry(t, domain.ActionInspect, asset.CurrentLocation, inspectorID, update.Meta())
		if err != nil {
			return err
		}
		asset.AppendAction(entry)

		if update.Failed {
			reason := update.Reason
			if reason == "" {
				reason = string(domain.StatusFailedInspection)
			}
			asset.IsAvailable = false
			asset.NotAvailableReason = reason
			asset.Status = domain.StatusFailedInspection
			removed, err := e.actionEntry(t, domain.ActionRemoved, asset.CurrentLocation, inspectorID, map[string]any{"reason": reason})
			if err != nil {
				return err
			}
			asset.AppendAction(removed)
		}
		if err := t.putAsset(asset); err != nil {
			return err
		}
		updated = asset

		inspector, ok, err := t.findParticipant(domain.RoleAuditor.ParticipantKey(inspectorID))
		if err != nil {
			return err
		}
		if ok && inspector.AddInspectedAsset(asset.ID) {
			return t.putParticipant(inspector)
		}
		return nil
	})
	return updated, err
}

// UpdateDetails merges owner-editable metadata and recomputes the total price.
func (e *Engine) UpdateDetails(ctx context.Context, tx domain.Transaction, assetID, actorID string, update DetailsUpdate) (domain.Asset, error) {
	var updated domain.Asset
	err := e.execute(ctx, tx, "update_details", func(t *txn) error {
		asset, err := t.loadAsset(assetID)
		if err != nil {
			return err
		}
		if asset.CurrentOwner != actorID {
			return domain.NewError(domain.ErrNotOwner, domain.EntityAsset, assetID, "actor %s is not the current owner", actorID)
		}
		if update.PricePerUnit != nil {
			asset.PricePerUnit = *update.PricePerUnit
		}
		if update.StorageConditions != nil {
			asset.StorageConditions = append([]string{}, (*update.StorageConditions)...)
		}
		if update.ImageURL != nil {
			asset.ImageURL = *update.ImageURL
		}
		if update.Certification != nil {
			asset.Certification = append([]string{}, (*update.Certification)...)
		}
		asset.RecomputeTotal()
		entry, err := e.actionEntry(t, domain.ActionUpdated, asset.CurrentLocation, actorID, update.Meta())
		if err != nil {
			return err
		}
		asset.AppendAction(entry)
		updated = asset
		return t.putAsset(asset)
	})
	return updated, err
}

// Split carves qty off assetID into a new child owned by the same owner.
func (e *Engine) Split(ctx context.Context, tx domain.Transaction, assetID string, qty decimal.Decimal, ownerID string) (SplitResult, error) {
	var result SplitResult
	err := e.execute(ctx, tx, "split", func(t *txn) error {
		asset, err := t.loadAsset(assetID)
		if err != nil {
			return err
		}
		result, err = e.split(t, asset, qty, ownerID)
		return err
	})
	if err != nil {
		return SplitResult{}, err
	}
	return result, nil
}

func (e *Engine) split(t *txn, parent domain.Asset, qty decimal.Decimal, ownerID string) (SplitResult, error) {
	if parent.CurrentOwner != ownerID {
		return SplitResult{}, domain.NewError(domain.ErrNotOwner, domain.EntityAsset, parent.ID, "actor %s is not the current owner", ownerID)
	}
	if err := validateQuantity(parent, qty); err != nil {
		return SplitResult{}, err
	}

	childID := domain.ChildAssetID(parent.ID, t.tx.TxID())
	child := parent.Clone()
	child.ID = childID
	child.ParentID = parent.ID
	child.Children = []string{}
	child.Qty = qty
	child.RecomputeTotal()
	childEntry, err := e.actionEntry(t, domain.ActionSplit, parent.CurrentLocation, ownerID, map[string]any{"qty": qty})
	if err != nil {
		return SplitResult{}, err
	}
	child.ActionHistory = []domain.ActionEntry{childEntry}

	parent.Qty = parent.Qty.Sub(qty)
	parent.RecomputeTotal()
	parent.Children = append(parent.Children, childID)
	parentEntry, err := e.actionEntry(t, domain.ActionSplit, parent.CurrentLocation, ownerID, map[string]any{"createdChild": childID, "qty": qty})
	if err != nil {
		return SplitResult{}, err
	}
	parent.AppendAction(parentEntry)

	if err := t.putAsset(parent); err != nil {
		return SplitResult{}, err
	}
	if err := t.putAsset(child); err != nil {
		return SplitResult{}, err
	}

	owner, ok, err := e.findParticipantByID(t, ownerID)
	if err != nil {
		return SplitResult{}, err
	}
	if ok && owner.AddOwnedAsset(childID) {
		if err := t.putParticipant(owner); err != nil {
			return SplitResult{}, err
		}
	}
	return SplitResult{Parent: parent, Child: child}, nil
}

// TransferOwnership sells qty of assetID to newOwnerID. A partial quantity is
// split off first and the child is transferred; the remainder stays with the seller.
func (e *Engine) TransferOwnership(ctx context.Context, tx domain.Transaction, assetID, newOwnerID string, qty, salePrice decimal.Decimal) (TransferResult, error) {
	var result TransferResult
	err := e.execute(ctx, tx, "transfer_ownership", func(t *txn) error {
		asset, err := t.loadAsset(assetID)
		if err != nil {
			return err
		}
		if !asset.IsAvailable {
			return domain.NewError(domain.ErrUnavailable, domain.EntityAsset, assetID, "asset is not available: %s", asset.NotAvailableReason)
		}
		if err := validateQuantity(asset, qty); err != nil {
			return err
		}

		seller := asset.CurrentOwner
		sold := asset
		if qty.LessThan(asset.Qty) {
			split, err := e.split(t, asset, qty, seller)
			if err != nil {
				return err
			}
			sold = split.Child
		}

		now, err := t.now()
		if err != nil {
			return err
		}
		sold.CurrentOwner = newOwnerID
		entry, err := e.actionEntry(t, domain.ActionSale, sold.CurrentLocation, newOwnerID, map[string]any{"qty": qty, "salePrice": salePrice})
		if err != nil {
			return err
		}
		sold.AppendAction(entry)
		sold.SaleHistory = append(sold.SaleHistory, domain.SaleEntry{
			Timestamp:     now,
			PrevOwner:     seller,
			NewOwner:      newOwnerID,
			SalePrice:     salePrice,
			QtyBought:     qty,
			PaymentStatus: domain.PaymentPending,
		})
		if err := t.putAsset(sold); err != nil {
			return err
		}
		if err := e.moveOwnedAsset(t, sold.ID, seller, newOwnerID); err != nil {
			return err
		}
		result = TransferResult{NewAssetID: sold.ID}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}
	return result, nil
}

// RecordPayment settles the latest sale. An asset that was never sold gets a
// placeholder sale attributing its full quantity and price to the current owner.
func (e *Engine) RecordPayment(ctx context.Context, tx domain.Transaction, assetID, transactionID, paymentStatus, paymentMethod, paymentRef string) (domain.Asset, error) {
	var updated domain.Asset
	err := e.execute(ctx, tx, "record_payment", func(t *txn) error {
		if paymentStatus == "" {
			return domain.InvalidArgument("payment status must not be empty")
		}
		asset, err := t.loadAsset(assetID)
		if err != nil {
			return err
		}
		now, err := t.now()
		if err != nil {
			return err
		}
		ref := paymentRef
		if ref == "" {
			ref = transactionID
		}
		if last := asset.LastSale(); last == nil {
			asset.SaleHistory = append(asset.SaleHistory, domain.SaleEntry{
				Timestamp:     now,
				NewOwner:      asset.CurrentOwner,
				SalePrice:     asset.TotalPrice,
				QtyBought:     asset.Qty,
				PaymentStatus: paymentStatus,
			})
		} else {
			last.PaymentStatus = paymentStatus
			last.PaymentMethod = paymentMethod
			last.PaymentRef = ref
		}
		asset.PaymentStatus = paymentStatus
		asset.PaymentMethod = paymentMethod
		asset.PaymentRef = ref
		entry, err := e.actionEntry(t, domain.ActionPayment, asset.CurrentLocation, asset.CurrentOwner, map[string]any{
			"transactionId": transactionID,
			"paymentStatus": paymentStatus,
			"paymentMethod": paymentMethod,
			"paymentRef":    paymentRef,
		})
		if err != nil {
			return err
		}
		asset.AppendAction(entry)
		updated = asset
		return t.putAsset(asset)
	})
	return updated, err
}

func validateQuantity(asset domain.Asset, qty decimal.Decimal) error {
	if !qty.IsPositive() || qty.GreaterThan(asset.Qty) {
		return domain.NewError(domain.ErrInvalidQuantity, domain.EntityAsset, asset.ID, "quantity %s must be in (0, %s]", qty, asset.Qty)
	}
	return nil
}
