package ehrcontract

import (
	"encoding/json"
	"strings"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Emergency processing actions.
const (
	emergencyActionApprove = "APPROVE"
	emergencyActionReject  = "REJECT"
)

// CreateEmergencyRequest opens a break-glass request by a doctor against a
// patient who has opted in. The doctor id comes from the caller's uuid
// attribute; the request id is derived from the transaction id.
func (s *SmartContract) CreateEmergencyRequest(ctx contractapi.TransactionContextInterface, input *CreateEmergencyRequestInput) (*EmergencyRequest, error) {
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
	if !patient.BreakGlassConsent {
		return nil, newConsentNotEnabledError("patient %s has not enabled break-glass consent", input.PatientID)
	}

	createdAt, err := txTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	requestID := emergencyRequestKey(ctx.GetStub().GetTxID())
	request := &EmergencyRequest{
		RequestID:  requestID,
		DoctorID:   c.UUID,
		PatientID:  input.PatientID,
		HospitalID: input.HospitalID,
		Reason:     input.Reason,
		Status:     EmergencyStatusPending,
		CreatedAt:  createdAt,
	}
	if err := putState(ctx, requestID, request); err != nil {
		return nil, err
	}
	return request, nil
}

// ProcessEmergencyRequest resolves a pending break-glass request. Approval
// writes the by-patient and by-doctor grant indices in the same transaction
// as the status flip, so a request is either fully approved or untouched.
// Requests are one-shot: any non-PENDING status rejects re-processing.
func (s *SmartContract) ProcessEmergencyRequest(ctx contractapi.TransactionContextInterface, input *ProcessEmergencyRequestInput) (*EmergencyRequest, error) {
	if input == nil || input.RequestID == "" {
		return nil, newMalformedInputError("requestId is required")
	}
	if input.Action != emergencyActionApprove && input.Action != emergencyActionReject {
		return nil, newInvalidStatusError("action must be %q or %q", emergencyActionApprove, emergencyActionReject)
	}

	c, err := requireRole(ctx, RoleHospital)
	if err != nil {
		return nil, err
	}

	var request EmergencyRequest
	ok, err := getState(ctx, input.RequestID, &request)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newNotFoundError("emergency request %s not found", input.RequestID)
	}
	if request.Status != EmergencyStatusPending {
		return nil, newAlreadyHandledError("emergency request %s already processed", input.RequestID)
	}

	approvedAt, err := txTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	if input.Action == emergencyActionApprove {
		request.Status = EmergencyStatusApproved
	} else {
		request.Status = EmergencyStatusRejected
	}
	request.ApprovedAt = approvedAt
	request.ApprovedBy = c.ID

	if request.Status == EmergencyStatusApproved {
		grant := &EmergencyAccessGrant{
			PatientID:  request.PatientID,
			DoctorID:   request.DoctorID,
			ApprovedAt: approvedAt,
			RequestID:  request.RequestID,
		}
		if err := putState(ctx, emergencyAccessKey(request.PatientID, request.DoctorID), grant); err != nil {
			return nil, err
		}
		if err := putState(ctx, emergencyByDoctorKey(request.DoctorID, request.RequestID), grant); err != nil {
			return nil, err
		}
	}

	if err := putState(ctx, input.RequestID, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

// GetPendingEmergencyRequests lists requests still awaiting a hospital
// decision.
func (s *SmartContract) GetPendingEmergencyRequests(ctx contractapi.TransactionContextInterface) ([]*EmergencyRequest, error) {
	if _, err := requireRole(ctx, RoleHospital); err != nil {
		return nil, err
	}
	return scanEmergencyRequests(ctx, EmergencyStatusPending)
}

// GetEmergencyRequestsByStatus lists requests in the given state. The status
// argument is normalized (stray quotes stripped, uppercased) because gateway
// clients historically passed it both quoted and unquoted.
func (s *SmartContract) GetEmergencyRequestsByStatus(ctx contractapi.TransactionContextInterface, status string) ([]*EmergencyRequest, error) {
	status = strings.ToUpper(strings.ReplaceAll(status, `"`, ""))
	switch status {
	case EmergencyStatusPending, EmergencyStatusApproved, EmergencyStatusRejected:
	default:
		return nil, newInvalidStatusError("invalid status: %s", status)
	}
	return scanEmergencyRequests(ctx, status)
}

// GetMyEmergencyAccess returns the approved break-glass grants held by the
// calling doctor, via the by-doctor index.
func (s *SmartContract) GetMyEmergencyAccess(ctx contractapi.TransactionContextInterface) ([]*EmergencyAccessGrant, error) {
	c, err := requireRole(ctx, RoleDoctor)
	if err != nil {
		return nil, err
	}

	start, end := emergencyByDoctorScanRange(c.UUID)
	iterator, err := ctx.GetStub().GetStateByRange(start, end)
	if err != nil {
		return nil, err
	}
	defer iterator.Close()

	grants := []*EmergencyAccessGrant{}
	for iterator.HasNext() {
		kv, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		var grant EmergencyAccessGrant
		if err := json.Unmarshal(kv.Value, &grant); err != nil {
			continue
		}
		grants = append(grants, &grant)
	}
	return grants, nil
}

// scanEmergencyRequests walks the ER_ range and keeps requests matching the
// wanted status.
func scanEmergencyRequests(ctx contractapi.TransactionContextInterface, status string) ([]*EmergencyRequest, error) {
	iterator, err := ctx.GetStub().GetStateByRange(emergencyRequestPrefix, emergencyRequestPrefix+rangeEndSuffix)
	if err != nil {
		return nil, err
	}
	defer iterator.Close()

	requests := []*EmergencyRequest{}
	for iterator.HasNext() {
		kv, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		var request EmergencyRequest
		if err := json.Unmarshal(kv.Value, &request); err != nil {
			continue
		}
		if request.Status == status {
			requests = append(requests, &request)
		}
	}
	return requests, nil
}
