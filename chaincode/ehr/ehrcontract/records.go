package ehrcontract

import (
	"encoding/json"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// AddRecord appends an immutable clinical record for a patient. The caller
// must be a doctor present in the patient's authorizedDoctors set. The record
// id is derived from the transaction id, so replays never mint a second id.
func (s *SmartContract) AddRecord(ctx contractapi.TransactionContextInterface, input *AddRecordInput) (*ClinicalRecord, error) {
	if input == nil || input.PatientID == "" {
		return nil, newMalformedInputError("patientId is required")
	}

	c, err := requireRole(ctx, RoleDoctor)
	if err != nil {
		return nil, err
	}

	patient, err := getPatient(ctx, input.PatientID)
	if err != nil {
		return nil, err
	}
	if !containsString(patient.AuthorizedDoctors, c.UUID) {
		return nil, newAuthorizationError("doctor %s is not authorized for patient %s", c.UUID, input.PatientID)
	}

	timestamp, err := txTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	recordID := "R-" + ctx.GetStub().GetTxID()
	recordKey, err := ctx.GetStub().CreateCompositeKey(recordNamespace, []string{input.PatientID, recordID})
	if err != nil {
		return nil, err
	}

	record := &ClinicalRecord{
		RecordID:     recordID,
		PatientID:    input.PatientID,
		DoctorID:     c.UUID,
		Diagnosis:    input.Diagnosis,
		Prescription: input.Prescription,
		ReportHash:   input.ReportHash,
		Timestamp:    timestamp,
	}
	if err := putState(ctx, recordKey, record); err != nil {
		return nil, err
	}
	return record, nil
}

// GetRecordByID returns a single record addressed by (patientId, recordId).
func (s *SmartContract) GetRecordByID(ctx contractapi.TransactionContextInterface, patientID, recordID string) (*ClinicalRecord, error) {
	if patientID == "" || recordID == "" {
		return nil, newMalformedInputError("patientId and recordId are required")
	}

	recordKey, err := ctx.GetStub().CreateCompositeKey(recordNamespace, []string{patientID, recordID})
	if err != nil {
		return nil, err
	}

	var record ClinicalRecord
	ok, err := getState(ctx, recordKey, &record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newNotFoundError("record %s not found for patient %s", recordID, patientID)
	}
	return &record, nil
}

// GetAllRecordsByPatientID returns every record under the patient's record
// namespace, in key order.
func (s *SmartContract) GetAllRecordsByPatientID(ctx contractapi.TransactionContextInterface, patientID string) ([]*ClinicalRecord, error) {
	if patientID == "" {
		return nil, newMalformedInputError("patientId is required")
	}

	iterator, err := ctx.GetStub().GetStateByPartialCompositeKey(recordNamespace, []string{patientID})
	if err != nil {
		return nil, err
	}
	defer iterator.Close()

	records := []*ClinicalRecord{}
	for iterator.HasNext() {
		kv, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		var record ClinicalRecord
		if err := json.Unmarshal(kv.Value, &record); err != nil {
			continue
		}
		records = append(records, &record)
	}
	return records, nil
}
