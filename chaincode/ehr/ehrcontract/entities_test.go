package ehrcontract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPatient(stub *MockChaincodeStub, patient *Patient) {
	data, _ := json.Marshal(patient)
	stub.State[patientKey(patient.PatientID)] = data
}

func seedDoctor(stub *MockChaincodeStub, doctor *Doctor) {
	data, _ := json.Marshal(doctor)
	stub.State[doctorKey(doctor.DoctorID)] = data
}

func seedHospital(stub *MockChaincodeStub, hospital *Hospital) {
	data, _ := json.Marshal(hospital)
	stub.State[hospitalKey(hospital.HospitalID)] = data
}

func TestOnboardHospital(t *testing.T) {
	contract := NewSmartContract()
	ctx, stub, _ := newTestContext()

	hospital, err := contract.OnboardHospital(ctx, &OnboardHospitalInput{
		HospitalID:  "HOSP-01",
		Name:        "City General",
		City:        "Pune",
		Departments: []string{"cardiology", "neurology"},
	})
	require.NoError(t, err)
	assert.Equal(t, "HOSP-01", hospital.HospitalID)
	assert.Equal(t, statusActive, hospital.Status)
	assert.Equal(t, "2023-11-14T22:13:20Z", hospital.CreatedAt)
	assert.Contains(t, stub.State, "HOSP-HOSP-01")
}

func TestOnboardHospital_Duplicate(t *testing.T) {
	contract := NewSmartContract()
	ctx, stub, _ := newTestContext()
	seedHospital(stub, &Hospital{HospitalID: "HOSP-01", Name: "City General"})

	_, err := contract.OnboardHospital(ctx, &OnboardHospitalInput{HospitalID: "HOSP-01"})
	require.Error(t, err)
	assert.Equal(t, ErrorKindAlreadyExists, KindOf(err))
}

func TestOnboardDoctor(t *testing.T) {
	contract := NewSmartContract()
	ctx, stub, identity := newTestContext()
	setCaller(identity, "hospital", "HOSP-01", "Org1MSP")

	doctor, err := contract.OnboardDoctor(ctx, &OnboardDoctorInput{
		DoctorID:     "DOC-7",
		HospitalName: "City General",
		Name:         "Dr. Rao",
		City:         "Pune",
		Department:   "cardiology",
	})
	require.NoError(t, err)
	assert.Equal(t, "HOSP-01", doctor.HospitalID)
	assert.Equal(t, statusActive, doctor.Status)
	assert.Contains(t, stub.State, "Doctor-DOC-7")
}

func TestOnboardDoctor_RequiresHospitalRole(t *testing.T) {
	contract := NewSmartContract()
	ctx, _, identity := newTestContext()
	setCaller(identity, "doctor", "DOC-7", "Org1MSP")

	_, err := contract.OnboardDoctor(ctx, &OnboardDoctorInput{DoctorID: "DOC-8"})
	require.Error(t, err)
	assert.Equal(t, ErrorKindAuthorization, KindOf(err))
}

func TestOnboardDoctor_MissingRoleAttribute(t *testing.T) {
	contract := NewSmartContract()
	ctx, _, identity := newTestContext()
	setCaller(identity, "", "", "Org1MSP")

	_, err := contract.OnboardDoctor(ctx, &OnboardDoctorInput{DoctorID: "DOC-8"})
	require.Error(t, err)
	assert.Equal(t, ErrorKindAuthorization, KindOf(err))
}

func TestOnboardDoctor_MissingUUIDAttribute(t *testing.T) {
	contract := NewSmartContract()
	ctx, stub, identity := newTestContext()
	setCaller(identity, "hospital", "", "Org1MSP")

	_, err := contract.OnboardDoctor(ctx, &OnboardDoctorInput{DoctorID: "DOC-8"})
	require.Error(t, err)
	assert.Equal(t, ErrorKindAuthorization, KindOf(err))
	assert.NotContains(t, stub.State, doctorKey("DOC-8"))
}

func TestOnboardPatient(t *testing.T) {
	contract := NewSmartContract()
	ctx, stub, _ := newTestContext()

	patient, err := contract.OnboardPatient(ctx, &OnboardPatientInput{
		PatientID:         "P-100",
		Name:              "Asha",
		DOB:               "1990-03-01",
		City:              "Pune",
		Age:               35,
		BloodGroup:        "O+",
		BreakGlassConsent: true,
	})
	require.NoError(t, err)
	assert.NotNil(t, patient.AuthorizedDoctors)
	assert.Empty(t, patient.AuthorizedDoctors)
	assert.True(t, patient.BreakGlassConsent)
	assert.Contains(t, stub.State, "PAT-P-100")
}

func TestOnboardPatient_Duplicate(t *testing.T) {
	contract := NewSmartContract()
	ctx, stub, _ := newTestContext()
	seedPatient(stub, &Patient{PatientID: "P-100"})

	_, err := contract.OnboardPatient(ctx, &OnboardPatientInput{PatientID: "P-100"})
	require.Error(t, err)
	assert.Equal(t, ErrorKindAlreadyExists, KindOf(err))
}

func TestOnboardInsurance(t *testing.T) {
	contract := NewSmartContract()
	ctx, stub, identity := newTestContext()
	setCaller(identity, "insuranceAdmin", "INSADMIN-1", "Org2MSP")

	agent, err := contract.OnboardInsurance(ctx, &OnboardInsuranceInput{
		AgentID:          "AGT-5",
		InsuranceCompany: "Shield Mutual",
		Name:             "Kiran",
		City:             "Mumbai",
	})
	require.NoError(t, err)
	assert.Equal(t, "INSADMIN-1", agent.InsuranceID)
	assert.Contains(t, stub.State, "INS-AGT-5")
}

func TestOnboardInsurance_WrongOrg(t *testing.T) {
	contract := NewSmartContract()
	ctx, _, identity := newTestContext()
	setCaller(identity, "insuranceAdmin", "INSADMIN-1", "Org1MSP")

	_, err := contract.OnboardInsurance(ctx, &OnboardInsuranceInput{AgentID: "AGT-5"})
	require.Error(t, err)
	assert.Equal(t, ErrorKindAuthorization, KindOf(err))
}

func TestUpdatePatientProfile_PartialMerge(t *testing.T) {
	contract := NewSmartContract()
	ctx, stub, identity := newTestContext()
	setCaller(identity, "patient", "P-100", "Org1MSP")
	seedPatient(stub, &Patient{
		PatientID:         "P-100",
		Name:              "Asha",
		DOB:               "1990-03-01",
		City:              "Pune",
		Mobile:            "9999",
		BreakGlassConsent: false,
		AuthorizedDoctors: []string{"DOC-7"},
	})

	city := "Mumbai"
	consent := true
	updated, err := contract.UpdatePatientProfile(ctx, &UpdatePatientProfileInput{
		City:              &city,
		BreakGlassConsent: &consent,
	})
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", updated.City)
	assert.True(t, updated.BreakGlassConsent)
	// untouched fields survive the merge
	assert.Equal(t, "Asha", updated.Name)
	assert.Equal(t, "1990-03-01", updated.DOB)
	assert.Equal(t, "9999", updated.Mobile)
	assert.Equal(t, []string{"DOC-7"}, updated.AuthorizedDoctors)
}

func TestUpdatePatientProfile_RequiresPatientRole(t *testing.T) {
	contract := NewSmartContract()
	ctx, _, identity := newTestContext()
	setCaller(identity, "doctor", "DOC-7", "Org1MSP")

	name := "Mallory"
	_, err := contract.UpdatePatientProfile(ctx, &UpdatePatientProfileInput{Name: &name})
	require.Error(t, err)
	assert.Equal(t, ErrorKindAuthorization, KindOf(err))
}

func TestGetPatientProfile(t *testing.T) {
	contract := NewSmartContract()
	ctx, stub, identity := newTestContext()
	setCaller(identity, "patient", "P-100", "Org1MSP")
	seedPatient(stub, &Patient{PatientID: "P-100", Name: "Asha"})

	patient, err := contract.GetPatientProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Asha", patient.Name)
}

func TestGetPatientProfile_NotFound(t *testing.T) {
	contract := NewSmartContract()
	ctx, _, identity := newTestContext()
	setCaller(identity, "patient", "P-404", "Org1MSP")

	_, err := contract.GetPatientProfile(ctx)
	require.Error(t, err)
	assert.Equal(t, ErrorKindNotFound, KindOf(err))
}

func TestGetDoctor_NotFound(t *testing.T) {
	contract := NewSmartContract()
	ctx, _, _ := newTestContext()

	_, err := contract.GetDoctor(ctx, "DOC-404")
	require.Error(t, err)
	assert.Equal(t, ErrorKindNotFound, KindOf(err))
}
