// Command chaincode runs the produce ledger as Hyperledger Fabric chaincode.
// Role to MSP mapping and logging come from PRODUCECHAIN_* environment variables.
package main

import (
	"log"
	"os"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"producechain/internal/config"
	"producechain/internal/core"
	"producechain/internal/infra/ledger/fabric"
	"producechain/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Panicf("load config: %v", err)
	}
	orgs, err := cfg.Orgs.OrgTable()
	if err != nil {
		log.Panicf("org table: %v", err)
	}
	logger, err := observability.NewLogger(os.Stderr, cfg.Log)
	if err != nil {
		log.Panicf("logger: %v", err)
	}
	engine := core.NewEngine(orgs, core.NewDefaultRulesEngine(), logger.With("component", "chaincode"))

	cc, err := contractapi.NewChaincode(fabric.NewSmartContract(engine))
	if err != nil {
		log.Panicf("create chaincode: %v", err)
	}
	if err := cc.Start(); err != nil {
		log.Panicf("start chaincode: %v", err)
	}
}
