package ehrcontract

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// OnboardHospital registers a hospital under HOSP-{hospitalId}. Any enrolled
// identity may register a hospital; duplicates are rejected.
func (s *SmartContract) OnboardHospital(ctx contractapi.TransactionContextInterface, input *OnboardHospitalInput) (*Hospital, error) {
	if input == nil || input.HospitalID == "" {
		return nil, newMalformedInputError("hospitalId is required")
	}

	key := hospitalKey(input.HospitalID)
	existing, err := ctx.GetStub().GetState(key)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, newAlreadyExistsError("hospital %s already exists", input.HospitalID)
	}

	createdAt, err := txTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	hospital := &Hospital{
		HospitalID:  input.HospitalID,
		Name:        input.Name,
		City:        input.City,
		Departments: input.Departments,
		Status:      statusActive,
		CreatedAt:   createdAt,
	}
	if err := putState(ctx, key, hospital); err != nil {
		return nil, err
	}
	return hospital, nil
}

// OnboardDoctor registers a doctor under Doctor-{doctorId}. Only a hospital
// may onboard doctors; the caller's uuid becomes the doctor's hospitalId,
// which per-hospital statistics rely on.
func (s *SmartContract) OnboardDoctor(ctx contractapi.TransactionContextInterface, input *OnboardDoctorInput) (*Doctor, error) {
	if input == nil || input.DoctorID == "" {
		return nil, newMalformedInputError("doctorId is required")
	}

	c, err := requireRole(ctx, RoleHospital)
	if err != nil {
		return nil, err
	}

	key := doctorKey(input.DoctorID)
	existing, err := ctx.GetStub().GetState(key)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, newAlreadyExistsError("doctor %s already registered", input.DoctorID)
	}

	createdAt, err := txTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	doctor := &Doctor{
		DoctorID:     input.DoctorID,
		HospitalID:   c.UUID,
		HospitalName: input.HospitalName,
		Name:         input.Name,
		Department:   input.Department,
		City:         input.City,
		Status:       statusActive,
		CreatedAt:    createdAt,
	}
	if err := putState(ctx, key, doctor); err != nil {
		return nil, err
	}
	return doctor, nil
}

// OnboardPatient registers a patient under PAT-{patientId} with an empty
// consent list. breakGlassConsent is taken from the input as the patient's
// opt-in to emergency access.
func (s *SmartContract) OnboardPatient(ctx contractapi.TransactionContextInterface, input *OnboardPatientInput) (*Patient, error) {
	if input == nil || input.PatientID == "" {
		return nil, newMalformedInputError("patientId is required")
	}

	key := patientKey(input.PatientID)
	existing, err := ctx.GetStub().GetState(key)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, newAlreadyExistsError("patient %s already exists", input.PatientID)
	}

	createdAt, err := txTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	patient := &Patient{
		PatientID:         input.PatientID,
		Name:              input.Name,
		DOB:               input.DOB,
		City:              input.City,
		Mobile:            input.Mobile,
		Gender:            input.Gender,
		Age:               input.Age,
		BloodGroup:        input.BloodGroup,
		BreakGlassConsent: input.BreakGlassConsent,
		AuthorizedDoctors: []string{},
		Status:            statusActive,
		CreatedAt:         createdAt,
	}
	if err := putState(ctx, key, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// OnboardInsurance registers an insurance agent under INS-{agentId}. Only an
// insuranceAdmin from the insurance organization may onboard agents; the
// caller's uuid becomes the agent's insuranceId.
func (s *SmartContract) OnboardInsurance(ctx contractapi.TransactionContextInterface, input *OnboardInsuranceInput) (*InsuranceAgent, error) {
	if input == nil || input.AgentID == "" {
		return nil, newMalformedInputError("agentId is required")
	}

	c, err := requireRole(ctx, RoleInsuranceAdmin)
	if err != nil {
		return nil, err
	}
	if c.MSPID != "Org2MSP" {
		return nil, newAuthorizationError("insurance agents may only be onboarded from the insurance organization")
	}

	key := insuranceKey(input.AgentID)
	existing, err := ctx.GetStub().GetState(key)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, newAlreadyExistsError("insurance agent %s already registered", input.AgentID)
	}

	createdAt, err := txTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	agent := &InsuranceAgent{
		AgentID:          input.AgentID,
		InsuranceID:      c.UUID,
		InsuranceCompany: input.InsuranceCompany,
		Name:             input.Name,
		City:             input.City,
		Status:           statusActive,
		CreatedAt:        createdAt,
	}
	if err := putState(ctx, key, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// UpdatePatientProfile applies a partial update to the caller's own patient
// profile. The patient id comes from the uuid certificate attribute; nil
// input fields leave the stored value untouched.
func (s *SmartContract) UpdatePatientProfile(ctx contractapi.TransactionContextInterface, input *UpdatePatientProfileInput) (*Patient, error) {
	if input == nil {
		return nil, newMalformedInputError("update payload is required")
	}

	c, err := requireRole(ctx, RolePatient)
	if err != nil {
		return nil, err
	}

	patient, err := getPatient(ctx, c.UUID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		patient.Name = *input.Name
	}
	if input.DOB != nil {
		patient.DOB = *input.DOB
	}
	if input.City != nil {
		patient.City = *input.City
	}
	if input.Mobile != nil {
		patient.Mobile = *input.Mobile
	}
	if input.BreakGlassConsent != nil {
		patient.BreakGlassConsent = *input.BreakGlassConsent
	}

	if err := putState(ctx, patientKey(patient.PatientID), patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// GetDoctor returns the doctor stored under Doctor-{doctorId}.
func (s *SmartContract) GetDoctor(ctx contractapi.TransactionContextInterface, doctorID string) (*Doctor, error) {
	if doctorID == "" {
		return nil, newMalformedInputError("doctorId is required")
	}
	return getDoctor(ctx, doctorID)
}

// GetPatientProfile returns the caller's own patient profile, resolved from
// the uuid certificate attribute.
func (s *SmartContract) GetPatientProfile(ctx contractapi.TransactionContextInterface) (*Patient, error) {
	c, err := resolveCaller(ctx)
	if err != nil {
		return nil, err
	}
	return getPatient(ctx, c.UUID)
}
