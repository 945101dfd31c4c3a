// Package fabric runs the lifecycle engine as Hyperledger Fabric chaincode.
// The chaincode stub and client identity are adapted to domain.Transaction so
// the engine stays unaware of Fabric.
package fabric

import (
	"fmt"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"producechain/pkg/domain"
)

// Transaction implements domain.Transaction over one chaincode invocation.
type Transaction struct {
	ctx contractapi.TransactionContextInterface
}

var _ domain.Transaction = (*Transaction)(nil)

// NewTransaction wraps the transaction context of a contract call.
func NewTransaction(ctx contractapi.TransactionContextInterface) *Transaction {
	return &Transaction{ctx: ctx}
}

func (t *Transaction) GetState(key string) ([]byte, error) {
	value, err := t.ctx.GetStub().GetState(key)
	if err != nil {
		return nil, fmt.Errorf("read world state %s: %w", key, err)
	}
	return value, nil
}

func (t *Transaction) PutState(key string, value []byte) error {
	if err := t.ctx.GetStub().PutState(key, value); err != nil {
		return fmt.Errorf("write world state %s: %w", key, err)
	}
	return nil
}

func (t *Transaction) GetStateByRange(startKey, endKey string) (domain.StateIterator, error) {
	it, err := t.ctx.GetStub().GetStateByRange(startKey, endKey)
	if err != nil {
		return nil, fmt.Errorf("range world state [%s, %s): %w", startKey, endKey, err)
	}
	return stateIterator{it: it}, nil
}

// CallerOrg returns the MSP id of the submitting client.
func (t *Transaction) CallerOrg() (string, error) {
	mspID, err := t.ctx.GetClientIdentity().GetMSPID()
	if err != nil {
		return "", fmt.Errorf("read client msp id: %w", err)
	}
	return mspID, nil
}

func (t *Transaction) TxID() string { return t.ctx.GetStub().GetTxID() }

// TxTimestamp returns the proposal timestamp, identical on every endorsing peer.
func (t *Transaction) TxTimestamp() (time.Time, error) {
	ts, err := t.ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("read tx timestamp: %w", err)
	}
	if ts == nil {
		return time.Time{}, fmt.Errorf("read tx timestamp: missing")
	}
	return ts.AsTime(), nil
}

type stateIterator struct {
	it shim.StateQueryIteratorInterface
}

func (s stateIterator) HasNext() bool { return s.it.HasNext() }

func (s stateIterator) Next() (domain.KV, error) {
	kv, err := s.it.Next()
	if err != nil {
		return domain.KV{}, err
	}
	return domain.KV{Key: kv.GetKey(), Value: kv.GetValue()}, nil
}

func (s stateIterator) Close() error { return s.it.Close() }
