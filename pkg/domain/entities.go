// Package domain defines the persistent ledger records, value types, ledger
// contracts, and rule evaluation primitives used by producechain.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityType identifies the type of record stored on the ledger.
type EntityType string

// Supported entity type identifiers used in Change records and errors.
const (
	// EntityAsset identifies a tracked produce asset.
	EntityAsset EntityType = "asset"
	// EntityParticipant identifies a participant directory record.
	EntityParticipant EntityType = "participant"
)

// AssetKeyPrefix distinguishes asset records from participant records in the key space.
const AssetKeyPrefix = "PRODUCE-"

// AssetRangeEnd is the exclusive upper bound of the asset key range.
const AssetRangeEnd = "PRODUCE."

// Status captures the custody state of an asset. Values outside the
// predefined set are allowed when supplied through MarkUnavailable.
type Status string

// Predefined asset statuses.
const (
	StatusHarvested        Status = "Harvested"
	StatusInTransit        Status = "In Transit"
	StatusFailedInspection Status = "Failed Inspection"
	StatusRemoved          Status = "Removed"
)

// ActionKind labels an audit entry.
type ActionKind string

// Audit entry kinds appended by lifecycle operations.
const (
	ActionRegister ActionKind = "REGISTER"
	ActionMove     ActionKind = "MOVE"
	ActionRemoved  ActionKind = "REMOVED"
	ActionInspect  ActionKind = "INSPECT"
	ActionUpdated  ActionKind = "UPDATED"
	ActionSplit    ActionKind = "SPLIT"
	ActionSale     ActionKind = "SALE"
	ActionPayment  ActionKind = "PAYMENT"
)

// PaymentPending is the settlement status recorded on every new sale.
const PaymentPending = "PENDING"

// ActionEntry is one append-only audit record on an asset.
type ActionEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Action    ActionKind     `json:"action"`
	Location  string         `json:"location"`
	Actor     string         `json:"actor"`
	Meta      map[string]any `json:"meta"`
}

// SaleEntry records a change of ownership and its settlement state.
type SaleEntry struct {
	Timestamp     time.Time       `json:"timestamp"`
	PrevOwner     string          `json:"prevOwner"`
	NewOwner      string          `json:"newOwner"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	QtyBought     decimal.Decimal `json:"qtyBought"`
	PaymentStatus string          `json:"paymentStatus"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	PaymentRef    string          `json:"paymentRef,omitempty"`
}

// Asset is a tracked unit of produce with quantity, custody and provenance state.
type Asset struct {
	ID                 string          `json:"id"`
	ParentID           string          `json:"parentId,omitempty"`
	Children           []string        `json:"children"`
	Qty                decimal.Decimal `json:"qty"`
	QtyUnit            string          `json:"qtyUnit"`
	PricePerUnit       decimal.Decimal `json:"pricePerUnit"`
	TotalPrice         decimal.Decimal `json:"totalPrice"`
	CurrentOwner       string          `json:"currentOwner"`
	CurrentLocation    string          `json:"currentLocation"`
	Status             Status          `json:"status"`
	IsAvailable        bool            `json:"isAvailable"`
	NotAvailableReason string          `json:"notAvailableReason,omitempty"`
	CropType           string          `json:"cropType,omitempty"`
	HarvestDate        string          `json:"harvestDate,omitempty"`
	Quality            string          `json:"quality,omitempty"`
	ExpiryDate         string          `json:"expiryDate,omitempty"`
	StorageConditions  []string        `json:"storageConditions"`
	Certification      []string        `json:"certification"`
	ImageURL           string          `json:"imageUrl,omitempty"`
	PaymentStatus      string          `json:"paymentStatus,omitempty"`
	PaymentMethod      string          `json:"paymentMethod,omitempty"`
	PaymentRef         string          `json:"paymentRef,omitempty"`
	ActionHistory      []ActionEntry   `json:"actionHistory"`
	SaleHistory        []SaleEntry     `json:"saleHistory"`
}

// RecomputeTotal sets TotalPrice to Qty × PricePerUnit.
func (a *Asset) RecomputeTotal() {
	a.TotalPrice = a.Qty.Mul(a.PricePerUnit)
}

// AppendAction records an audit entry.
func (a *Asset) AppendAction(entry ActionEntry) {
	a.ActionHistory = append(a.ActionHistory, entry)
}

// LastSale returns a pointer to the most recent sale entry, or nil when the asset was never sold.
func (a *Asset) LastSale() *SaleEntry {
	if len(a.SaleHistory) == 0 {
		return nil
	}
	return &a.SaleHistory[len(a.SaleHistory)-1]
}

// Clone returns a deep copy so callers can mutate without aliasing stored slices.
func (a Asset) Clone() Asset {
	cp := a
	cp.Children = append([]string(nil), a.Children...)
	cp.StorageConditions = append([]string(nil), a.StorageConditions...)
	cp.Certification = append([]string(nil), a.Certification...)
	cp.SaleHistory = append([]SaleEntry(nil), a.SaleHistory...)
	cp.ActionHistory = make([]ActionEntry, len(a.ActionHistory))
	for i, entry := range a.ActionHistory {
		cp.ActionHistory[i] = entry
		cp.ActionHistory[i].Meta = cloneMeta(entry.Meta)
	}
	return cp
}

// Normalize replaces nil slices with empty ones so stored JSON is stable.
func (a *Asset) Normalize() {
	if a.Children == nil {
		a.Children = []string{}
	}
	if a.StorageConditions == nil {
		a.StorageConditions = []string{}
	}
	if a.Certification == nil {
		a.Certification = []string{}
	}
	if a.ActionHistory == nil {
		a.ActionHistory = []ActionEntry{}
	}
	if a.SaleHistory == nil {
		a.SaleHistory = []SaleEntry{}
	}
}

func cloneMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
