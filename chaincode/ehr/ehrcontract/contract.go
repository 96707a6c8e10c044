package ehrcontract

import (
	"encoding/json"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// SmartContract manages identities, clinical records, consent and emergency
// access on the ledger.
type SmartContract struct {
	contractapi.Contract
}

// NewSmartContract returns the contract with its name set so the gateway can
// address it as "ehr" regardless of chaincode packaging.
func NewSmartContract() *SmartContract {
	c := &SmartContract{}
	c.Name = "ehr"
	return c
}

// caller holds the identity attributes resolved from the invoking client's
// enrollment certificate.
type caller struct {
	ID    string
	UUID  string
	Role  Role
	MSPID string
}

// resolveCaller reads the role and uuid attributes and the MSP ID from the
// client identity. A certificate missing either attribute is rejected here,
// so every gated operation can rely on both being present.
func resolveCaller(ctx contractapi.TransactionContextInterface) (*caller, error) {
	ci := ctx.GetClientIdentity()

	id, err := ci.GetID()
	if err != nil {
		return nil, newAuthorizationError("unable to resolve client identity: %v", err)
	}

	role, found, err := ci.GetAttributeValue("role")
	if err != nil {
		return nil, newAuthorizationError("unable to read role attribute: %v", err)
	}
	if !found || role == "" {
		return nil, newAuthorizationError("client certificate carries no role attribute")
	}

	uuid, found, err := ci.GetAttributeValue("uuid")
	if err != nil {
		return nil, newAuthorizationError("unable to read uuid attribute: %v", err)
	}
	if !found || uuid == "" {
		return nil, newAuthorizationError("client certificate carries no uuid attribute")
	}

	mspID, err := ci.GetMSPID()
	if err != nil {
		return nil, newAuthorizationError("unable to resolve MSP ID: %v", err)
	}

	return &caller{ID: id, UUID: uuid, Role: Role(role), MSPID: mspID}, nil
}

// requireRole resolves the caller and checks membership in the allowed set.
func requireRole(ctx contractapi.TransactionContextInterface, allowed ...Role) (*caller, error) {
	c, err := resolveCaller(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range allowed {
		if c.Role == r {
			return c, nil
		}
	}
	return nil, newAuthorizationError("role %q is not permitted to perform this operation", c.Role)
}

// txTimestamp renders the transaction timestamp as RFC 3339 UTC. The value
// comes from the ordered transaction, so every endorsing peer derives the
// same string.
func txTimestamp(ctx contractapi.TransactionContextInterface) (string, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return "", err
	}
	return time.Unix(ts.Seconds, 0).UTC().Format(time.RFC3339), nil
}

// getState unmarshals the value at key into out. Returns (false, nil) when
// the key is absent.
func getState(ctx contractapi.TransactionContextInterface, key string, out interface{}) (bool, error) {
	data, err := ctx.GetStub().GetState(key)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// putState marshals v and writes it at key.
func putState(ctx contractapi.TransactionContextInterface, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ctx.GetStub().PutState(key, data)
}

// getPatient loads a patient or returns a not-found contract error.
func getPatient(ctx contractapi.TransactionContextInterface, patientID string) (*Patient, error) {
	var p Patient
	ok, err := getState(ctx, patientKey(patientID), &p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newNotFoundError("patient %s not found", patientID)
	}
	return &p, nil
}

// getDoctor loads a doctor or returns a not-found contract error.
func getDoctor(ctx contractapi.TransactionContextInterface, doctorID string) (*Doctor, error) {
	var d Doctor
	ok, err := getState(ctx, doctorKey(doctorID), &d)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newNotFoundError("doctor %s not found", doctorID)
	}
	return &d, nil
}

// requirePatientSelf gates patient-scoped operations: the caller must hold
// the patient role and the uuid attribute must match the target patient.
func requirePatientSelf(ctx contractapi.TransactionContextInterface, patientID string) (*caller, error) {
	c, err := requireRole(ctx, RolePatient)
	if err != nil {
		return nil, err
	}
	if c.UUID != patientID {
		return nil, newAuthorizationError("caller may only operate on their own patient profile")
	}
	return c, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
