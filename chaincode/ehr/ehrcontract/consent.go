package ehrcontract

import (
	"encoding/json"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// writeGrant is the single write path for standing consent. It appends the
// doctor to the patient's authorizedDoctors set and writes the mirrored
// access composite key in the same transaction, so the list and the index
// never diverge. Returns false without writing when the doctor is already
// authorized.
func writeGrant(ctx contractapi.TransactionContextInterface, patient *Patient, doctorID, hospitalID, grantedByRequestID string) (bool, error) {
	if containsString(patient.AuthorizedDoctors, doctorID) {
		return false, nil
	}

	grantedAt, err := txTimestamp(ctx)
	if err != nil {
		return false, err
	}

	patient.AuthorizedDoctors = append(patient.AuthorizedDoctors, doctorID)
	if err := putState(ctx, patientKey(patient.PatientID), patient); err != nil {
		return false, err
	}

	accessKey, err := ctx.GetStub().CreateCompositeKey(accessNamespace, []string{patient.PatientID, doctorID})
	if err != nil {
		return false, err
	}
	grant := &AccessGrant{
		DoctorID:           doctorID,
		HospitalID:         hospitalID,
		GrantedAt:          grantedAt,
		GrantedByRequestID: grantedByRequestID,
	}
	if err := putState(ctx, accessKey, grant); err != nil {
		return false, err
	}
	return true, nil
}

// GrantAccess lets a patient authorize a doctor directly. Granting an
// already-authorized doctor is a no-op, not an error.
func (s *SmartContract) GrantAccess(ctx contractapi.TransactionContextInterface, input *GrantAccessInput) error {
	if input == nil || input.PatientID == "" || input.DoctorID == "" {
		return newMalformedInputError("patientId and doctorId are required")
	}

	if _, err := requirePatientSelf(ctx, input.PatientID); err != nil {
		return err
	}

	patient, err := getPatient(ctx, input.PatientID)
	if err != nil {
		return err
	}

	_, err = writeGrant(ctx, patient, input.DoctorID, input.HospitalID, "")
	return err
}

// RevokeAccess removes a doctor from the patient's consent set and deletes
// the mirrored access key. Both writes land in the same transaction.
func (s *SmartContract) RevokeAccess(ctx contractapi.TransactionContextInterface, input *RevokeAccessInput) error {
	if input == nil || input.PatientID == "" || input.DoctorID == "" {
		return newMalformedInputError("patientId and doctorId are required")
	}

	if _, err := requirePatientSelf(ctx, input.PatientID); err != nil {
		return err
	}

	patient, err := getPatient(ctx, input.PatientID)
	if err != nil {
		return err
	}

	accessKey, err := ctx.GetStub().CreateCompositeKey(accessNamespace, []string{input.PatientID, input.DoctorID})
	if err != nil {
		return err
	}
	if err := ctx.GetStub().DelState(accessKey); err != nil {
		return err
	}

	patient.AuthorizedDoctors = removeString(patient.AuthorizedDoctors, input.DoctorID)
	return putState(ctx, patientKey(patient.PatientID), patient)
}

// RequestAccess lets a doctor petition a patient for standing access. At most
// one pending request may exist per (patient, doctor) pair; the request id is
// the transaction id.
func (s *SmartContract) RequestAccess(ctx contractapi.TransactionContextInterface, input *RequestAccessInput) (*AccessRequest, error) {
	if input == nil || input.PatientID == "" || input.DoctorID == "" {
		return nil, newMalformedInputError("patientId and doctorId are required")
	}

	c, err := requireRole(ctx, RoleDoctor)
	if err != nil {
		return nil, err
	}
	if c.UUID != input.DoctorID {
		return nil, newAuthorizationError("doctor certificate does not match doctorId")
	}

	iterator, err := ctx.GetStub().GetStateByPartialCompositeKey(accessRequestNamespace, []string{input.PatientID, input.DoctorID})
	if err != nil {
		return nil, err
	}
	defer iterator.Close()
	for iterator.HasNext() {
		kv, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		var existing AccessRequest
		if err := json.Unmarshal(kv.Value, &existing); err != nil {
			continue
		}
		if existing.Status == RequestStatusPending {
			return nil, newDuplicatePendingRequestError("a pending request from doctor %s for patient %s already exists", input.DoctorID, input.PatientID)
		}
	}

	createdAt, err := txTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	requestID := ctx.GetStub().GetTxID()
	requestKey, err := ctx.GetStub().CreateCompositeKey(accessRequestNamespace, []string{input.PatientID, input.DoctorID, requestID})
	if err != nil {
		return nil, err
	}

	request := &AccessRequest{
		RequestID:  requestID,
		PatientID:  input.PatientID,
		DoctorID:   input.DoctorID,
		HospitalID: input.HospitalID,
		Reason:     input.Reason,
		Status:     RequestStatusPending,
		CreatedAt:  createdAt,
	}
	if err := putState(ctx, requestKey, request); err != nil {
		return nil, err
	}
	return request, nil
}

// UpdateAccessRequest lets the patient approve or reject a pending request.
// Approval performs the same grant side effects as GrantAccess, so the
// consented state is identical either way the grant arrives.
func (s *SmartContract) UpdateAccessRequest(ctx contractapi.TransactionContextInterface, input *UpdateAccessRequestInput) (*AccessRequest, error) {
	if input == nil || input.PatientID == "" || input.DoctorID == "" || input.RequestID == "" {
		return nil, newMalformedInputError("patientId, doctorId and requestId are required")
	}
	if input.Action != RequestStatusApproved && input.Action != RequestStatusRejected {
		return nil, newInvalidStatusError("action must be %q or %q", RequestStatusApproved, RequestStatusRejected)
	}

	c, err := requirePatientSelf(ctx, input.PatientID)
	if err != nil {
		return nil, err
	}

	requestKey, err := ctx.GetStub().CreateCompositeKey(accessRequestNamespace, []string{input.PatientID, input.DoctorID, input.RequestID})
	if err != nil {
		return nil, err
	}

	var request AccessRequest
	ok, err := getState(ctx, requestKey, &request)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newNotFoundError("access request %s not found", input.RequestID)
	}
	if request.Status != RequestStatusPending {
		return nil, newAlreadyHandledError("access request %s already handled", input.RequestID)
	}

	handledAt, err := txTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	request.Status = input.Action
	request.HandledAt = handledAt
	request.HandledBy = c.UUID
	if err := putState(ctx, requestKey, &request); err != nil {
		return nil, err
	}

	if input.Action == RequestStatusApproved {
		patient, err := getPatient(ctx, input.PatientID)
		if err != nil {
			return nil, err
		}
		if _, err := writeGrant(ctx, patient, input.DoctorID, request.HospitalID, input.RequestID); err != nil {
			return nil, err
		}
	}
	return &request, nil
}

// GetAccessList returns the patient's standing grants joined with doctor
// attributes. Unresolvable doctors get sentinel values rather than failing
// the whole listing.
func (s *SmartContract) GetAccessList(ctx contractapi.TransactionContextInterface, patientID string) ([]*AccessListEntry, error) {
	if patientID == "" {
		return nil, newMalformedInputError("patientId is required")
	}

	iterator, err := ctx.GetStub().GetStateByPartialCompositeKey(accessNamespace, []string{patientID})
	if err != nil {
		return nil, err
	}
	defer iterator.Close()

	entries := []*AccessListEntry{}
	for iterator.HasNext() {
		kv, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		var grant AccessGrant
		if err := json.Unmarshal(kv.Value, &grant); err != nil {
			continue
		}

		entry := &AccessListEntry{
			DoctorID:     grant.DoctorID,
			DoctorName:   "Unknown",
			Department:   "N/A",
			HospitalName: "N/A",
			HospitalID:   grant.HospitalID,
			GrantedAt:    grant.GrantedAt,
		}
		var doctor Doctor
		if ok, err := getState(ctx, doctorKey(grant.DoctorID), &doctor); err == nil && ok {
			entry.DoctorName = doctor.Name
			entry.Department = doctor.Department
			entry.HospitalName = doctor.HospitalName
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetAccessRequests returns every access request, pending or handled, filed
// against the given patient.
func (s *SmartContract) GetAccessRequests(ctx contractapi.TransactionContextInterface, patientID string) ([]*AccessRequest, error) {
	if patientID == "" {
		return nil, newMalformedInputError("patientId is required")
	}

	iterator, err := ctx.GetStub().GetStateByPartialCompositeKey(accessRequestNamespace, []string{patientID})
	if err != nil {
		return nil, err
	}
	defer iterator.Close()

	requests := []*AccessRequest{}
	for iterator.HasNext() {
		kv, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		var request AccessRequest
		if err := json.Unmarshal(kv.Value, &request); err != nil {
			continue
		}
		requests = append(requests, &request)
	}
	return requests, nil
}
