package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"producechain/pkg/domain"
)

// RegisterDetails is the payload accepted by RegisterAsset. Omitted fields take
// their registration defaults.
type RegisterDetails struct {
	Qty               decimal.Decimal `json:"qty"`
	QtyUnit           string          `json:"qtyUnit"`
	PricePerUnit      decimal.Decimal `json:"pricePerUnit"`
	Location          string          `json:"location"`
	CropType          string          `json:"cropType"`
	HarvestDate       string          `json:"harvestDate"`
	Quality           string          `json:"quality"`
	ExpiryDate        string          `json:"expiryDate"`
	StorageConditions []string        `json:"storageConditions"`
	Certification     []string        `json:"certification"`
	ImageURL          string          `json:"imageUrl"`
	Note              string          `json:"note"`
}

// QualityUpdate is the inspection payload. Nil fields are left unchanged.
type QualityUpdate struct {
	Quality           *string   `json:"quality"`
	ExpiryDate        *string   `json:"expiryDate"`
	StorageConditions *[]string `json:"storageConditions"`
	Failed            bool      `json:"failed"`
	Reason            string    `json:"reason"`

	raw map[string]any
}

// DetailsUpdate is the owner-editable metadata payload. Nil fields are left unchanged.
type DetailsUpdate struct {
	PricePerUnit      *decimal.Decimal `json:"pricePerUnit"`
	StorageConditions *[]string        `json:"storageConditions"`
	ImageURL          *string          `json:"imageUrl"`
	Certification     *[]string        `json:"certification"`

	raw map[string]any
}

// ParticipantDetails is the directory registration payload.
type ParticipantDetails struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Location         string   `json:"location"`
	WalletID         string   `json:"walletId"`
	RegisteredAssets []string `json:"registeredProduce"`
	OwnedAssets      []string `json:"ownedProduce"`
	Certification    []string `json:"certification"`
	InspectedAssets  []string `json:"inspectedProduce"`
}

// ParseRegisterDetails decodes a registration payload; empty input yields zero details.
func ParseRegisterDetails(raw string) (RegisterDetails, error) {
	var details RegisterDetails
	if err := decodeJSON(raw, &details); err != nil {
		return RegisterDetails{}, err
	}
	return details, nil
}

// ParseQualityUpdate decodes an inspection payload and keeps the raw object for the audit entry.
func ParseQualityUpdate(raw string) (QualityUpdate, error) {
	var update QualityUpdate
	if err := decodeJSON(raw, &update); err != nil {
		return QualityUpdate{}, err
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return QualityUpdate{}, err
	}
	update.raw = obj
	return update, nil
}

// ParseDetailsUpdate decodes an owner details payload and keeps the raw object for the audit entry.
func ParseDetailsUpdate(raw string) (DetailsUpdate, error) {
	var update DetailsUpdate
	if err := decodeJSON(raw, &update); err != nil {
		return DetailsUpdate{}, err
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return DetailsUpdate{}, err
	}
	update.raw = obj
	return update, nil
}

// ParseParticipantDetails decodes a directory registration payload.
func ParseParticipantDetails(raw string) (ParticipantDetails, error) {
	var details ParticipantDetails
	if err := decodeJSON(raw, &details); err != nil {
		return ParticipantDetails{}, err
	}
	return details, nil
}

// Meta returns the update as submitted, for the INSPECT audit entry.
func (u QualityUpdate) Meta() map[string]any {
	if u.raw != nil {
		return u.raw
	}
	meta := map[string]any{}
	if u.Quality != nil {
		meta["quality"] = *u.Quality
	}
	if u.ExpiryDate != nil {
		meta["expiryDate"] = *u.ExpiryDate
	}
	if u.StorageConditions != nil {
		meta["storageConditions"] = *u.StorageConditions
	}
	if u.Failed {
		meta["failed"] = true
	}
	if u.Reason != "" {
		meta["reason"] = u.Reason
	}
	return meta
}

// Meta returns the update as submitted, for the UPDATED audit entry.
func (u DetailsUpdate) Meta() map[string]any {
	if u.raw != nil {
		return u.raw
	}
	meta := map[string]any{}
	if u.PricePerUnit != nil {
		meta["pricePerUnit"] = *u.PricePerUnit
	}
	if u.StorageConditions != nil {
		meta["storageConditions"] = *u.StorageConditions
	}
	if u.ImageURL != nil {
		meta["imageUrl"] = *u.ImageURL
	}
	if u.Certification != nil {
		meta["certification"] = *u.Certification
	}
	return meta
}

func decodeJSON(raw string, target any) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return domain.InvalidArgument("malformed JSON payload: %v", err)
	}
	return nil
}

// decodeObject keeps numbers as json.Number so audit metadata round-trips exactly.
func decodeObject(raw string) (map[string]any, error) {
	obj := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return obj, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, domain.InvalidArgument("malformed JSON payload: %v", err)
	}
	return obj, nil
}

func parseDecimal(raw, field string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, domain.InvalidArgument("%s %q is not a number", field, raw)
	}
	return value, nil
}
