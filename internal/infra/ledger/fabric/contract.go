package fabric

import (
	"context"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"producechain/internal/core"
)

// ContractName is the namespace the contract is registered under.
const ContractName = "producechain"

// SmartContract exposes every engine operation as a chaincode transaction.
// Optional trailing arguments are passed as empty strings.
type SmartContract struct {
	contractapi.Contract
	engine *core.Engine
}

// NewSmartContract builds the contract around engine. A nil engine uses the
// default org table and rules.
func NewSmartContract(engine *core.Engine) *SmartContract {
	if engine == nil {
		engine = core.NewEngine(nil, nil, nil)
	}
	sc := &SmartContract{engine: engine}
	sc.Name = ContractName
	return sc
}

func (s *SmartContract) call(ctx contractapi.TransactionContextInterface, op string, args ...string) (string, error) {
	out, err := s.engine.Invoke(context.Background(), NewTransaction(ctx), op, args)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// InitLedger seeds nothing; the ledger starts empty.
func (s *SmartContract) InitLedger(ctx contractapi.TransactionContextInterface) error {
	_, err := s.call(ctx, "InitLedger")
	return err
}

func (s *SmartContract) RegisterProduce(ctx contractapi.TransactionContextInterface, farmerID, details string) (string, error) {
	return s.call(ctx, "RegisterProduce", farmerID, details)
}

func (s *SmartContract) UpdateLocation(ctx contractapi.TransactionContextInterface, produceID, actorID, location string) (string, error) {
	return s.call(ctx, "UpdateLocation", produceID, actorID, location)
}

func (s *SmartContract) MarkAsUnavailable(ctx contractapi.TransactionContextInterface, produceID, actorID, reason, status string) (string, error) {
	return s.call(ctx, "MarkAsUnavailable", produceID, actorID, reason, status)
}

func (s *SmartContract) InspectProduce(ctx contractapi.TransactionContextInterface, produceID, inspectorID, quality string) (string, error) {
	return s.call(ctx, "InspectProduce", produceID, inspectorID, quality)
}

func (s *SmartContract) UpdateDetails(ctx contractapi.TransactionContextInterface, produceID, actorID, details string) (string, error) {
	return s.call(ctx, "UpdateDetails", produceID, actorID, details)
}

func (s *SmartContract) SplitProduce(ctx contractapi.TransactionContextInterface, produceID, qty, ownerID string) (string, error) {
	return s.call(ctx, "SplitProduce", produceID, qty, ownerID)
}

// TransferOwnership moves qty of produceID to newOwnerID. A partial quantity splits first.
func (s *SmartContract) TransferOwnership(ctx contractapi.TransactionContextInterface, produceID, newOwnerID, qty, salePrice string) (string, error) {
	return s.call(ctx, "TransferOwnership", produceID, newOwnerID, qty, salePrice)
}

func (s *SmartContract) RecordPayment(ctx contractapi.TransactionContextInterface, produceID, transactionID, paymentStatus, paymentMethod, paymentRef string) (string, error) {
	return s.call(ctx, "RecordPayment", produceID, transactionID, paymentStatus, paymentMethod, paymentRef)
}

func (s *SmartContract) GetProduceByID(ctx contractapi.TransactionContextInterface, produceID string) (string, error) {
	return s.call(ctx, "GetProduceByID", produceID)
}

func (s *SmartContract) GetProduceByOwner(ctx contractapi.TransactionContextInterface, ownerID string) (string, error) {
	return s.call(ctx, "GetProduceByOwner", ownerID)
}

func (s *SmartContract) GetProduceLineage(ctx contractapi.TransactionContextInterface, produceID string) (string, error) {
	return s.call(ctx, "GetProduceLineage", produceID)
}

func (s *SmartContract) RegisterUser(ctx contractapi.TransactionContextInterface, role, details string) (string, error) {
	return s.call(ctx, "RegisterUser", role, details)
}

func (s *SmartContract) GetUserDetails(ctx contractapi.TransactionContextInterface, userKey string) (string, error) {
	return s.call(ctx, "GetUserDetails", userKey)
}

func (s *SmartContract) UpdateUser(ctx contractapi.TransactionContextInterface, userKey, updates string) (string, error) {
	return s.call(ctx, "UpdateUser", userKey, updates)
}
