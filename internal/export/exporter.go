// Package export writes auditor provenance reports to blob storage.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"producechain/internal/blob"
	"producechain/pkg/domain"
)

// KeyPrefix is the blob namespace for provenance reports.
const KeyPrefix = "provenance/"

// Report is the JSON document stored per asset.
type Report struct {
	Asset        domain.Asset   `json:"asset"`
	Ancestors    []domain.Asset `json:"ancestors"`
	Descendants  []domain.Asset `json:"descendants"`
	Lineage      []string       `json:"lineage"`
	GeneratedFor string         `json:"generatedFor"`
}

// Exporter renders lineages into Reports.
type Exporter struct {
	store     blob.Store
	urlExpiry time.Duration
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithURLExpiry sets the presigned URL lifetime attached to exported reports.
func WithURLExpiry(d time.Duration) Option {
	return func(e *Exporter) {
		if d > 0 {
			e.urlExpiry = d
		}
	}
}

// New returns an exporter writing to store.
func New(store blob.Store, opts ...Option) *Exporter {
	e := &Exporter{store: store, urlExpiry: blob.DefaultURLExpiry}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Key returns the blob key of the report for assetID.
func Key(assetID string) string {
	return KeyPrefix + assetID + ".json"
}

// Export writes the report for lineage, replacing any earlier report of the
// same asset. generatedFor names the ledger transaction the snapshot was read in.
func (e *Exporter) Export(ctx context.Context, lineage domain.Lineage, generatedFor string) (blob.Info, error) {
	if lineage.Asset.ID == "" {
		return blob.Info{}, fmt.Errorf("export: lineage has no asset")
	}
	report := Report{
		Asset:        lineage.Asset,
		Ancestors:    nonNil(lineage.Ancestors),
		Descendants:  nonNil(lineage.Descendants),
		Lineage:      lineage.IDs(),
		GeneratedFor: generatedFor,
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode report %s: %w", lineage.Asset.ID, err)
	}

	key := Key(lineage.Asset.ID)
	if _, err := e.store.Delete(ctx, key); err != nil {
		return blob.Info{}, fmt.Errorf("replace report %s: %w", key, err)
	}
	info, err := e.store.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"asset-id":      lineage.Asset.ID,
			"generated-for": generatedFor,
		},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("store report %s: %w", key, err)
	}

	url, err := e.store.PresignURL(ctx, key, blob.SignedURLOptions{Expiry: e.urlExpiry})
	switch {
	case err == nil:
		info.URL = url
	case errors.Is(err, blob.ErrUnsupported):
	default:
		return blob.Info{}, fmt.Errorf("presign report %s: %w", key, err)
	}
	return info, nil
}

func nonNil(assets []domain.Asset) []domain.Asset {
	if assets == nil {
		return []domain.Asset{}
	}
	return assets
}
