package ehrcontract

// World-state key layout. Entity keys are flat prefixed strings; records,
// standing-access grants and access requests live under composite-key
// namespaces so they can be enumerated per patient (and per doctor) with
// partial-composite-key scans.
const (
	hospitalKeyPrefix  = "HOSP-"
	doctorKeyPrefix    = "Doctor-"
	patientKeyPrefix   = "PAT-"
	insuranceKeyPrefix = "INS-"

	recordNamespace        = "record"
	accessNamespace        = "access"
	accessRequestNamespace = "accessRequest"

	emergencyRequestPrefix  = "ER_"
	emergencyAccessPrefix   = "EMERGENCY_ACCESS_"
	emergencyByDoctorPrefix = "EMERGENCY_BY_DOCTOR_"
)

// rangeEndSuffix closes a prefix scan: '~' sorts after every character used
// in identifiers, so [prefix, prefix+"~") covers all keys under the prefix.
const rangeEndSuffix = "~"

func hospitalKey(hospitalID string) string {
	return hospitalKeyPrefix + hospitalID
}

func doctorKey(doctorID string) string {
	return doctorKeyPrefix + doctorID
}

func patientKey(patientID string) string {
	return patientKeyPrefix + patientID
}

func insuranceKey(agentID string) string {
	return insuranceKeyPrefix + agentID
}

func emergencyRequestKey(txID string) string {
	return emergencyRequestPrefix + txID
}

func emergencyAccessKey(patientID, doctorID string) string {
	return emergencyAccessPrefix + patientID + "_" + doctorID
}

func emergencyByDoctorKey(doctorID, requestID string) string {
	return emergencyByDoctorPrefix + doctorID + "_" + requestID
}

func emergencyByDoctorScanRange(doctorID string) (string, string) {
	start := emergencyByDoctorPrefix + doctorID + "_"
	return start, start + rangeEndSuffix
}
