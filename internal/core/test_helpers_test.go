package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"producechain/pkg/domain"
)

var testEpoch = time.Date(2024, 3, 1, 9, 30, 0, 123456789, time.UTC)

// fakeLedger is a map-backed ledger shared by a sequence of fakeTx values.
type fakeLedger struct {
	state  map[string][]byte
	seq    int
	ranges [][2]string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{state: map[string][]byte{}}
}

// tx opens a transaction as callerOrg with a fresh tx id and a timestamp one
// second after the previous one.
func (l *fakeLedger) tx(callerOrg string) *fakeTx {
	l.seq++
	return &fakeTx{ledger: l, org: callerOrg, id: fmt.Sprintf("tx%d", l.seq), ts: testEpoch.Add(time.Duration(l.seq) * time.Second)}
}

type fakeTx struct {
	ledger *fakeLedger
	org    string
	id     string
	ts     time.Time
	orgErr error
	puts   int
}

var _ domain.Transaction = (*fakeTx)(nil)

func (f *fakeTx) GetState(key string) ([]byte, error) {
	return f.ledger.state[key], nil
}

func (f *fakeTx) PutState(key string, value []byte) error {
	f.puts++
	f.ledger.state[key] = append([]byte(nil), value...)
	return nil
}

func (f *fakeTx) GetStateByRange(start, end string) (domain.StateIterator, error) {
	f.ledger.ranges = append(f.ledger.ranges, [2]string{start, end})
	keys := make([]string, 0, len(f.ledger.state))
	for k := range f.ledger.state {
		if k >= start && (end == "" || k < end) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	kvs := make([]domain.KV, 0, len(keys))
	for _, k := range keys {
		kvs = append(kvs, domain.KV{Key: k, Value: f.ledger.state[k]})
	}
	return &fakeIterator{kvs: kvs}, nil
}

func (f *fakeTx) CallerOrg() (string, error) {
	if f.orgErr != nil {
		return "", f.orgErr
	}
	return f.org, nil
}

func (f *fakeTx) TxID() string { return f.id }

func (f *fakeTx) TxTimestamp() (time.Time, error) { return f.ts, nil }

type fakeIterator struct {
	kvs []domain.KV
	pos int
}

func (i *fakeIterator) HasNext() bool { return i.pos < len(i.kvs) }

func (i *fakeIterator) Next() (domain.KV, error) {
	if !i.HasNext() {
		return domain.KV{}, errors.New("iterator exhausted")
	}
	kv := i.kvs[i.pos]
	i.pos++
	return kv, nil
}

func (i *fakeIterator) Close() error { return nil }

const (
	farmerOrg      = "Org1MSP"
	distributorOrg = "Org2MSP"
	retailerOrg    = "Org3MSP"
	inspectorOrg   = "Org4MSP"
)

func dec(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	if err != nil {
		t.Fatalf("decimal %q: %v", v, err)
	}
	return d
}

func registerParticipant(t *testing.T, e *Engine, l *fakeLedger, org, role string, details ParticipantDetails) domain.Participant {
	t.Helper()
	p, err := e.RegisterParticipant(context.Background(), l.tx(org), role, details)
	if err != nil {
		t.Fatalf("register %s %s: %v", role, details.ID, err)
	}
	return p
}

// seedAsset registers farmer F1 and a 100 KG asset priced at 2 per unit.
func seedAsset(t *testing.T, e *Engine, l *fakeLedger) domain.Asset {
	t.Helper()
	registerParticipant(t, e, l, farmerOrg, "Farmer", ParticipantDetails{ID: "F1", Name: "Farm One", Certification: []string{"organic"}})
	asset, err := e.RegisterAsset(context.Background(), l.tx(farmerOrg), "F1", RegisterDetails{
		Qty:          decimal.NewFromInt(100),
		PricePerUnit: decimal.NewFromInt(2),
		Location:     "Farm A",
		CropType:     "tomato",
	})
	if err != nil {
		t.Fatalf("register asset: %v", err)
	}
	return asset
}

func loadAsset(t *testing.T, l *fakeLedger, id string) domain.Asset {
	t.Helper()
	data, ok := l.state[id]
	if !ok {
		t.Fatalf("asset %s not stored", id)
	}
	var asset domain.Asset
	if err := json.Unmarshal(data, &asset); err != nil {
		t.Fatalf("decode asset %s: %v", id, err)
	}
	return asset
}

func loadParticipant(t *testing.T, l *fakeLedger, key string) domain.Participant {
	t.Helper()
	data, ok := l.state[key]
	if !ok {
		t.Fatalf("participant %s not stored", key)
	}
	var p domain.Participant
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("decode participant %s: %v", key, err)
	}
	return p
}

// snapshot copies the ledger so a later call can be checked for mutations.
func (l *fakeLedger) snapshot() map[string][]byte {
	out := make(map[string][]byte, len(l.state))
	for k, v := range l.state {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

func assertUnchanged(t *testing.T, l *fakeLedger, before map[string][]byte) {
	t.Helper()
	if len(l.state) != len(before) {
		t.Fatalf("ledger key count changed from %d to %d", len(before), len(l.state))
	}
	for k, v := range before {
		if !bytes.Equal(l.state[k], v) {
			t.Fatalf("ledger key %s changed:\nbefore %s\nafter  %s", k, v, l.state[k])
		}
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func mustChangePayload[T any](t *testing.T, value T) domain.ChangePayload {
	t.Helper()
	payload, err := domain.NewChangePayloadFromValue(value)
	if err != nil {
		t.Fatalf("build change payload: %v", err)
	}
	return payload
}
