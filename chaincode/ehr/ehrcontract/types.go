package ehrcontract

// Role is the closed set of caller roles carried in the enrollment
// certificate's "role" attribute.
type Role string

const (
	RoleHospital       Role = "hospital"
	RoleDoctor         Role = "doctor"
	RolePatient        Role = "patient"
	RoleAdmin          Role = "admin"
	RoleGovernment     Role = "government"
	RoleInsuranceAdmin Role = "insuranceAdmin"
)

// Access-request statuses (patient-handled workflow).
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// Emergency-request statuses (hospital-handled break-glass workflow).
const (
	EmergencyStatusPending  = "PENDING"
	EmergencyStatusApproved = "APPROVED"
	EmergencyStatusRejected = "REJECTED"
)

const statusActive = "active"

// Hospital is stored under HOSP-{hospitalId}.
type Hospital struct {
	HospitalID  string   `json:"hospitalId"`
	Name        string   `json:"name"`
	City        string   `json:"city"`
	Departments []string `json:"departments"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"createdAt"`
}

// Doctor is stored under Doctor-{doctorId}. HospitalID is the identity of
// the hospital that performed onboarding and is the authoritative link used
// by per-hospital statistics.
type Doctor struct {
	DoctorID     string `json:"doctorId"`
	HospitalID   string `json:"hospitalId"`
	HospitalName string `json:"hospitalName"`
	Name         string `json:"name"`
	Department   string `json:"department"`
	City         string `json:"city"`
	Status       string `json:"status"`
	CreatedAt    string `json:"createdAt"`
}

// Patient is stored under PAT-{patientId}. AuthorizedDoctors is the single
// source of truth for standing consent; the access composite keys mirror it
// and must be written in the same transaction.
type Patient struct {
	PatientID         string   `json:"patientId"`
	Name              string   `json:"name"`
	DOB               string   `json:"dob"`
	City              string   `json:"city"`
	Mobile            string   `json:"mobile"`
	Gender            string   `json:"gender"`
	Age               int      `json:"age"`
	BloodGroup        string   `json:"bloodGroup"`
	BreakGlassConsent bool     `json:"breakGlassConsent"`
	AuthorizedDoctors []string `json:"authorizedDoctors"`
	Status            string   `json:"status"`
	CreatedAt         string   `json:"createdAt"`
}

// InsuranceAgent is stored under INS-{agentId}.
type InsuranceAgent struct {
	AgentID          string `json:"agentId"`
	InsuranceID      string `json:"insuranceId"`
	InsuranceCompany string `json:"insuranceCompany"`
	Name             string `json:"name"`
	City             string `json:"city"`
	Status           string `json:"status"`
	CreatedAt        string `json:"createdAt"`
}

// ClinicalRecord is stored under composite key record(patientId, recordId).
// Records are immutable once written; the contract exposes no update or
// delete for them.
type ClinicalRecord struct {
	RecordID     string `json:"recordId"`
	PatientID    string `json:"patientId"`
	DoctorID     string `json:"doctorId"`
	Diagnosis    string `json:"diagnosis"`
	Prescription string `json:"prescription"`
	ReportHash   string `json:"reportHash"`
	Timestamp    string `json:"timestamp"`
}

// AccessGrant mirrors membership of a doctor in the patient's
// authorizedDoctors set, stored under composite key access(patientId, doctorId).
type AccessGrant struct {
	DoctorID           string `json:"doctorId"`
	HospitalID         string `json:"hospitalId"`
	GrantedAt          string `json:"grantedAt"`
	GrantedByRequestID string `json:"grantedByRequestId,omitempty"`
}

// AccessRequest is stored under composite key
// accessRequest(patientId, doctorId, requestId). At most one pending request
// may exist per (patient, doctor) pair.
type AccessRequest struct {
	RequestID  string `json:"requestId"`
	PatientID  string `json:"patientId"`
	DoctorID   string `json:"doctorId"`
	HospitalID string `json:"hospitalId"`
	Reason     string `json:"reason"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt"`
	HandledAt  string `json:"handledAt,omitempty"`
	HandledBy  string `json:"handledBy,omitempty"`
}

// EmergencyRequest is stored under ER_{requestId}. Status transitions are
// one-way: PENDING -> APPROVED | REJECTED, both terminal.
type EmergencyRequest struct {
	RequestID  string `json:"requestId"`
	DoctorID   string `json:"doctorId"`
	PatientID  string `json:"patientId"`
	HospitalID string `json:"hospitalId"`
	Reason     string `json:"reason"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt"`
	ApprovedAt string `json:"approvedAt,omitempty"`
	ApprovedBy string `json:"approvedBy,omitempty"`
}

// EmergencyAccessGrant is written twice on approval, once under the
// by-patient key and once under the by-doctor key, so both directions of the
// lookup are point/prefix reads.
type EmergencyAccessGrant struct {
	PatientID  string `json:"patientId"`
	DoctorID   string `json:"doctorId"`
	ApprovedAt string `json:"approvedAt"`
	RequestID  string `json:"requestId"`
}

// Per-operation input structs. The contract API unmarshals the transaction's
// JSON argument into these, so absent optional fields stay nil/zero.

type OnboardHospitalInput struct {
	HospitalID  string   `json:"hospitalId"`
	Name        string   `json:"name"`
	City        string   `json:"city"`
	Departments []string `json:"departments"`
}

type OnboardDoctorInput struct {
	DoctorID     string `json:"doctorId"`
	HospitalName string `json:"hospitalName"`
	Name         string `json:"name"`
	City         string `json:"city"`
	Department   string `json:"department"`
}

type OnboardPatientInput struct {
	PatientID         string `json:"patientId"`
	Name              string `json:"name"`
	DOB               string `json:"dob"`
	City              string `json:"city"`
	Mobile            string `json:"mobile"`
	Gender            string `json:"gender"`
	Age               int    `json:"age"`
	BloodGroup        string `json:"bloodGroup"`
	BreakGlassConsent bool   `json:"breakGlassConsent"`
}

type OnboardInsuranceInput struct {
	AgentID          string `json:"agentId"`
	InsuranceCompany string `json:"insuranceCompany"`
	Name             string `json:"name"`
	City             string `json:"city"`
}

// UpdatePatientProfileInput carries a partial update: nil means "no change".
type UpdatePatientProfileInput struct {
	Name              *string `json:"name,omitempty"`
	DOB               *string `json:"dob,omitempty"`
	City              *string `json:"city,omitempty"`
	Mobile            *string `json:"mobile,omitempty"`
	BreakGlassConsent *bool   `json:"breakGlassConsent,omitempty"`
}

type AddRecordInput struct {
	PatientID    string `json:"patientId"`
	Diagnosis    string `json:"diagnosis"`
	Prescription string `json:"prescription"`
	ReportHash   string `json:"reportHash,omitempty"`
}

type GrantAccessInput struct {
	PatientID  string `json:"patientId"`
	DoctorID   string `json:"doctorId"`
	HospitalID string `json:"hospitalId,omitempty"`
}

type RevokeAccessInput struct {
	PatientID string `json:"patientId"`
	DoctorID  string `json:"doctorId"`
}

type RequestAccessInput struct {
	PatientID  string `json:"patientId"`
	DoctorID   string `json:"doctorId"`
	HospitalID string `json:"hospitalId,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type UpdateAccessRequestInput struct {
	PatientID string `json:"patientId"`
	DoctorID  string `json:"doctorId"`
	RequestID string `json:"requestId"`
	Action    string `json:"action"`
}

type CreateEmergencyRequestInput struct {
	PatientID  string `json:"patientId"`
	HospitalID string `json:"hospitalId,omitempty"`
	Reason     string `json:"reason"`
}

type ProcessEmergencyRequestInput struct {
	RequestID string `json:"requestId"`
	Action    string `json:"action"`
}

// Read-side projections.

// PatientSummary is the non-sensitive view returned by GetAllPatients.
type PatientSummary struct {
	PatientID  string `json:"patientId"`
	Name       string `json:"name"`
	DOB        string `json:"dob"`
	City       string `json:"city"`
	Age        int    `json:"age"`
	BloodGroup string `json:"bloodGroup"`
}

// AccessListEntry joins the access grant with doctor attributes. Sentinel
// values stand in when the doctor record cannot be resolved.
type AccessListEntry struct {
	DoctorID     string `json:"doctorId"`
	DoctorName   string `json:"doctorName"`
	Department   string `json:"department"`
	HospitalName string `json:"hospitalName"`
	HospitalID   string `json:"hospitalId"`
	GrantedAt    string `json:"grantedAt"`
}

// RecordSummary is a record row scoped to the authoring doctor.
type RecordSummary struct {
	RecordID     string `json:"recordId"`
	Diagnosis    string `json:"diagnosis"`
	Prescription string `json:"prescription"`
	ReportHash   string `json:"reportHash"`
	Timestamp    string `json:"timestamp"`
}

// DoctorPatientView is one row of GetPatientsForDoctor: a consented patient
// together with the records this doctor authored for them.
type DoctorPatientView struct {
	PatientID string          `json:"patientId"`
	Name      string          `json:"name"`
	DOB       string          `json:"dob"`
	City      string          `json:"city"`
	Records   []RecordSummary `json:"records"`
}

// LedgerEntry is one classified row of the full-ledger dump.
type LedgerEntry struct {
	Key       string      `json:"key"`
	Type      string      `json:"type"`
	Value     interface{} `json:"value"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// HistoryEntry is one revision of a key, oldest-first as delivered by the
// ledger's history iterator.
type HistoryEntry struct {
	TxID      string      `json:"txId"`
	Timestamp string      `json:"timestamp"`
	IsDelete  bool        `json:"isDelete"`
	Asset     interface{} `json:"asset,omitempty"`
}

// SystemStats is the ledger-wide entity census.
type SystemStats struct {
	Patients  int `json:"patients"`
	Doctors   int `json:"doctors"`
	Hospitals int `json:"hospitals"`
	Records   int `json:"records"`
}

// HospitalStats is the per-hospital rollup of doctors, distinct patients and
// records authored by the hospital's doctors.
type HospitalStats struct {
	HospitalID    string `json:"hospitalId"`
	Name          string `json:"name"`
	City          string `json:"city"`
	TotalDoctors  int    `json:"totalDoctors"`
	TotalPatients int    `json:"totalPatients"`
	TotalRecords  int    `json:"totalRecords"`
}
