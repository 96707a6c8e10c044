package main

import (
	"log"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/medledger/ehr-dlt/chaincode/ehr/ehrcontract"
)

func main() {
	ehrChaincode, err := contractapi.NewChaincode(ehrcontract.NewSmartContract())
	if err != nil {
		log.Panicf("Error creating EHR chaincode: %v", err)
	}

	if err := ehrChaincode.Start(); err != nil {
		log.Panicf("Error starting EHR chaincode: %v", err)
	}
}
