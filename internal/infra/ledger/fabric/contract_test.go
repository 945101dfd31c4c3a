package fabric

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"google.golang.org/protobuf/types/known/timestamppb"

	"producechain/pkg/domain"
)

// fakeStub implements the handful of stub calls the adapter uses; anything
// else panics through the nil embedded interface.
type fakeStub struct {
	shim.ChaincodeStubInterface
	state  map[string][]byte
	txID   string
	ts     *timestamppb.Timestamp
	putErr error
}

func newFakeStub() *fakeStub {
	return &fakeStub{state: map[string][]byte{}}
}

func (s *fakeStub) GetState(key string) ([]byte, error) { return s.state[key], nil }

func (s *fakeStub) PutState(key string, value []byte) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.state[key] = append([]byte(nil), value...)
	return nil
}

func (s *fakeStub) GetStateByRange(startKey, endKey string) (shim.StateQueryIteratorInterface, error) {
	var keys []string
	for key := range s.state {
		if (startKey == "" || key >= startKey) && (endKey == "" || key < endKey) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	kvs := make([]*queryresult.KV, 0, len(keys))
	for _, key := range keys {
		kvs = append(kvs, &queryresult.KV{Key: key, Value: s.state[key]})
	}
	return &fakeIterator{kvs: kvs}, nil
}

func (s *fakeStub) GetTxID() string { return s.txID }

func (s *fakeStub) GetTxTimestamp() (*timestamppb.Timestamp, error) { return s.ts, nil }

var _ shim.StateQueryIteratorInterface = (*fakeIterator)(nil)

type fakeIterator struct {
	kvs    []*queryresult.KV
	pos    int
	closed bool
}

func (it *fakeIterator) HasNext() bool { return it.pos < len(it.kvs) }

func (it *fakeIterator) Next() (*queryresult.KV, error) {
	if !it.HasNext() {
		return nil, errors.New("exhausted")
	}
	kv := it.kvs[it.pos]
	it.pos++
	return kv, nil
}

func (it *fakeIterator) Close() error {
	it.closed = true
	return nil
}

type fakeIdentity struct {
	cid.ClientIdentity
	mspID string
}

func (f fakeIdentity) GetMSPID() (string, error) {
	if f.mspID == "" {
		return "", errors.New("no identity")
	}
	return f.mspID, nil
}

var epoch = time.Date(2024, 5, 10, 8, 0, 0, 987654321, time.UTC)

type harness struct {
	stub *fakeStub
	seq  int
	sc   *SmartContract
}

func newHarness() *harness {
	return &harness{stub: newFakeStub(), sc: NewSmartContract(nil)}
}

// as prepares a fresh transaction context submitted by mspID.
func (h *harness) as(mspID string) contractapi.TransactionContextInterface {
	h.seq++
	h.stub.txID = fmt.Sprintf("fabtx%03d", h.seq)
	h.stub.ts = timestamppb.New(epoch.Add(time.Duration(h.seq) * time.Minute))
	ctx := new(contractapi.TransactionContext)
	ctx.SetStub(h.stub)
	ctx.SetClientIdentity(fakeIdentity{mspID: mspID})
	return ctx
}

func TestTransactionAdapter(t *testing.T) {
	h := newHarness()
	tx := NewTransaction(h.as("Org1MSP"))

	if org, err := tx.CallerOrg(); err != nil || org != "Org1MSP" {
		t.Fatalf("caller org %q %v", org, err)
	}
	if tx.TxID() != "fabtx001" {
		t.Fatalf("unexpected tx id %q", tx.TxID())
	}
	ts, err := tx.TxTimestamp()
	if err != nil || !ts.Equal(epoch.Add(time.Minute)) {
		t.Fatalf("unexpected timestamp %v %v", ts, err)
	}
	if err := tx.PutState("PRODUCE-a", []byte(`{"id":"a"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := tx.PutState("PRODUCE-b", []byte(`{"id":"b"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := tx.PutState("FARMER-x", []byte(`{}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	value, err := tx.GetState("missing")
	if err != nil || value != nil {
		t.Fatalf("missing key should read nil, got %q %v", value, err)
	}

	it, err := tx.GetStateByRange("PRODUCE-", "PRODUCE.")
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	var keys []string
	for it.HasNext() {
		kv, err := it.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		keys = append(keys, kv.Key)
	}
	if err := it.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if strings.Join(keys, ",") != "PRODUCE-a,PRODUCE-b" {
		t.Fatalf("unexpected range keys %v", keys)
	}

	h.stub.putErr = errors.New("endorsement failed")
	if err := tx.PutState("k", nil); err == nil || !strings.Contains(err.Error(), "endorsement failed") {
		t.Fatalf("expected wrapped put error, got %v", err)
	}
}

func TestTransactionAdapterErrors(t *testing.T) {
	h := newHarness()
	ctx := h.as("")
	h.stub.ts = nil
	tx := NewTransaction(ctx)
	if _, err := tx.CallerOrg(); err == nil {
		t.Fatalf("expected identity error")
	}
	if _, err := tx.TxTimestamp(); err == nil {
		t.Fatalf("expected missing timestamp error")
	}
}

func TestSmartContractLifecycle(t *testing.T) {
	h := newHarness()
	sc := h.sc

	if err := sc.InitLedger(h.as("Org1MSP")); err != nil {
		t.Fatalf("init ledger: %v", err)
	}
	if len(h.stub.state) != 0 {
		t.Fatalf("init ledger should not write, got %d keys", len(h.stub.state))
	}
	if _, err := sc.RegisterUser(h.as("Org1MSP"), "Farmer", `{"id":"F1","name":"Farm One"}`); err != nil {
		t.Fatalf("register farmer: %v", err)
	}
	out, err := sc.RegisterProduce(h.as("Org1MSP"), "F1", `{"qty":"50","pricePerUnit":"3","location":"Field 7","cropType":"mango"}`)
	if err != nil {
		t.Fatalf("register produce: %v", err)
	}
	var asset domain.Asset
	if err := json.Unmarshal([]byte(out), &asset); err != nil {
		t.Fatalf("decode asset: %v", err)
	}
	if asset.ID != domain.AssetID("fabtx003") || asset.CurrentOwner != "F1" {
		t.Fatalf("unexpected asset %+v", asset)
	}
	if asset.HarvestDate != "2024-05-10T08:03:00.987Z" {
		t.Fatalf("harvest date should come from the tx timestamp, got %q", asset.HarvestDate)
	}

	got, err := sc.GetProduceByID(h.as("Org2MSP"), asset.ID)
	if err != nil {
		t.Fatalf("get produce: %v", err)
	}
	if !strings.Contains(got, `"currentOwner":"F1"`) {
		t.Fatalf("unexpected asset json %s", got)
	}
	owned, err := sc.GetProduceByOwner(h.as("Org3MSP"), "F1")
	if err != nil {
		t.Fatalf("get by owner: %v", err)
	}
	var list []domain.Asset
	if err := json.Unmarshal([]byte(owned), &list); err != nil || len(list) != 1 {
		t.Fatalf("unexpected owner listing %s %v", owned, err)
	}
	if _, err := sc.UpdateLocation(h.as("Org1MSP"), asset.ID, "F1", "Depot 2"); err != nil {
		t.Fatalf("update location: %v", err)
	}
	if _, err := sc.MarkAsUnavailable(h.as("Org1MSP"), asset.ID, "F1", "spoiled", ""); err != nil {
		t.Fatalf("mark unavailable: %v", err)
	}
	after, err := sc.GetProduceByID(h.as("Org1MSP"), asset.ID)
	if err != nil {
		t.Fatalf("get produce: %v", err)
	}
	if !strings.Contains(after, `"isAvailable":false`) || !strings.Contains(after, `"notAvailableReason":"spoiled"`) {
		t.Fatalf("unexpected asset after removal %s", after)
	}
	if _, err := sc.GetUserDetails(h.as("Org4MSP"), "FARMER-F1"); err != nil {
		t.Fatalf("get user: %v", err)
	}
}

func TestSmartContractRejections(t *testing.T) {
	h := newHarness()
	sc := h.sc

	_, err := sc.RegisterUser(h.as("Org2MSP"), "Farmer", `{"id":"F1"}`)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(h.stub.state) != 0 {
		t.Fatalf("rejected call wrote %d keys", len(h.stub.state))
	}
	if _, err := sc.GetProduceByID(h.as("Org1MSP"), "PRODUCE-nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := sc.SplitProduce(h.as("Org1MSP"), "PRODUCE-nope", "abc", "F1"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if sc.Name != ContractName {
		t.Fatalf("unexpected contract name %q", sc.Name)
	}
}
