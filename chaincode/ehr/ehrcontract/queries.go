package ehrcontract

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// GetAllPatients returns the non-sensitive projection of every patient.
func (s *SmartContract) GetAllPatients(ctx contractapi.TransactionContextInterface) ([]*PatientSummary, error) {
	iterator, err := ctx.GetStub().GetStateByRange(patientKeyPrefix, patientKeyPrefix+rangeEndSuffix)
	if err != nil {
		return nil, err
	}
	defer iterator.Close()

	patients := []*PatientSummary{}
	for iterator.HasNext() {
		kv, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		var patient Patient
		if err := json.Unmarshal(kv.Value, &patient); err != nil {
			continue
		}
		patients = append(patients, &PatientSummary{
			PatientID:  patient.PatientID,
			Name:       patient.Name,
			DOB:        patient.DOB,
			City:       patient.City,
			Age:        patient.Age,
			BloodGroup: patient.BloodGroup,
		})
	}
	return patients, nil
}

// GetPatientsForDoctor returns every patient who has granted the calling
// doctor standing access, each joined with the records this doctor authored.
func (s *SmartContract) GetPatientsForDoctor(ctx contractapi.TransactionContextInterface) ([]*DoctorPatientView, error) {
	c, err := requireRole(ctx, RoleDoctor)
	if err != nil {
		return nil, err
	}

	iterator, err := ctx.GetStub().GetStateByPartialCompositeKey(accessNamespace, []string{})
	if err != nil {
		return nil, err
	}
	defer iterator.Close()

	views := []*DoctorPatientView{}
	for iterator.HasNext() {
		kv, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		_, attrs, err := ctx.GetStub().SplitCompositeKey(kv.Key)
		if err != nil || len(attrs) != 2 {
			continue
		}
		patientID, doctorID := attrs[0], attrs[1]
		if doctorID != c.UUID {
			continue
		}

		var patient Patient
		ok, err := getState(ctx, patientKey(patientID), &patient)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		records, err := recordsByDoctor(ctx, patientID, c.UUID)
		if err != nil {
			return nil, err
		}
		views = append(views, &DoctorPatientView{
			PatientID: patient.PatientID,
			Name:      patient.Name,
			DOB:       patient.DOB,
			City:      patient.City,
			Records:   records,
		})
	}
	return views, nil
}

// recordsByDoctor collects the patient's records authored by the given
// doctor.
func recordsByDoctor(ctx contractapi.TransactionContextInterface, patientID, doctorID string) ([]RecordSummary, error) {
	iterator, err := ctx.GetStub().GetStateByPartialCompositeKey(recordNamespace, []string{patientID})
	if err != nil {
		return nil, err
	}
	defer iterator.Close()

	records := []RecordSummary{}
	for iterator.HasNext() {
		kv, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		var record ClinicalRecord
		if err := json.Unmarshal(kv.Value, &record); err != nil {
			continue
		}
		if record.DoctorID != doctorID {
			continue
		}
		records = append(records, RecordSummary{
			RecordID:     record.RecordID,
			Diagnosis:    record.Diagnosis,
			Prescription: record.Prescription,
			ReportHash:   record.ReportHash,
			Timestamp:    record.Timestamp,
		})
	}
	return records, nil
}

// FetchLedger dumps the whole keyspace with each entry classified by key
// shape, serialized as a JSON array. Restricted to hospital and admin roles.
func (s *SmartContract) FetchLedger(ctx contractapi.TransactionContextInterface) (string, error) {
	if _, err := requireRole(ctx, RoleHospital, RoleAdmin); err != nil {
		return "", err
	}

	iterator, err := ctx.GetStub().GetStateByRange("", "")
	if err != nil {
		return "", err
	}
	defer iterator.Close()

	entries := []*LedgerEntry{}
	for iterator.HasNext() {
		kv, err := iterator.Next()
		if err != nil {
			return "", err
		}

		entry := &LedgerEntry{
			Key:  kv.Key,
			Type: classifyKey(ctx, kv.Key),
		}

		var parsed map[string]interface{}
		if err := json.Unmarshal(kv.Value, &parsed); err == nil {
			entry.Value = parsed
			if ts, ok := parsed["timestamp"].(string); ok {
				entry.Timestamp = ts
			} else if ts, ok := parsed["createdAt"].(string); ok {
				entry.Timestamp = ts
			}
		} else {
			entry.Value = string(kv.Value)
		}
		entries = append(entries, entry)
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// classifyKey maps a world-state key onto a display type. Composite keys are
// split to recover their namespace; flat keys are matched by prefix.
func classifyKey(ctx contractapi.TransactionContextInterface, key string) string {
	if strings.HasPrefix(key, "\x00") {
		objectType, _, err := ctx.GetStub().SplitCompositeKey(key)
		if err != nil {
			return "unknown"
		}
		switch objectType {
		case recordNamespace:
			return "record"
		case accessNamespace:
			return "access"
		case accessRequestNamespace:
			return "accessRequest"
		}
		return "unknown"
	}
	switch {
	case strings.HasPrefix(key, hospitalKeyPrefix):
		return "hospital"
	case strings.HasPrefix(key, doctorKeyPrefix):
		return "doctor"
	case strings.HasPrefix(key, patientKeyPrefix):
		return "patient"
	case strings.HasPrefix(key, insuranceKeyPrefix):
		return "insurance"
	case strings.HasPrefix(key, emergencyRequestPrefix):
		return "emergencyRequest"
	case strings.HasPrefix(key, emergencyByDoctorPrefix):
		return "emergencyAccess"
	case strings.HasPrefix(key, emergencyAccessPrefix):
		return "emergencyAccess"
	}
	return "unknown"
}

// QueryHistoryOfAsset replays every committed revision of a key, oldest
// first as the peer delivers them, serialized as a JSON array. Deleted
// revisions carry no asset body.
func (s *SmartContract) QueryHistoryOfAsset(ctx contractapi.TransactionContextInterface, assetID string) (string, error) {
	if assetID == "" {
		return "", newMalformedInputError("assetId is required")
	}

	iterator, err := ctx.GetStub().GetHistoryForKey(assetID)
	if err != nil {
		return "", err
	}
	defer iterator.Close()

	entries := []*HistoryEntry{}
	for iterator.HasNext() {
		mod, err := iterator.Next()
		if err != nil {
			return "", err
		}

		entry := &HistoryEntry{
			TxID:     mod.TxId,
			IsDelete: mod.IsDelete,
		}
		if mod.Timestamp != nil {
			entry.Timestamp = time.Unix(mod.Timestamp.Seconds, int64(mod.Timestamp.Nanos)).UTC().Format(time.RFC3339)
		}
		if !mod.IsDelete && len(mod.Value) > 0 {
			var asset interface{}
			if err := json.Unmarshal(mod.Value, &asset); err == nil {
				entry.Asset = asset
			}
		}
		entries = append(entries, entry)
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetSystemStats counts entities and records across the whole ledger.
// Restricted to hospital, admin and government roles.
func (s *SmartContract) GetSystemStats(ctx contractapi.TransactionContextInterface) (*SystemStats, error) {
	if _, err := requireRole(ctx, RoleHospital, RoleAdmin, RoleGovernment); err != nil {
		return nil, err
	}

	stats := &SystemStats{}

	var err error
	if stats.Patients, err = countRange(ctx, patientKeyPrefix); err != nil {
		return nil, err
	}
	if stats.Doctors, err = countRange(ctx, doctorKeyPrefix); err != nil {
		return nil, err
	}
	if stats.Hospitals, err = countRange(ctx, hospitalKeyPrefix); err != nil {
		return nil, err
	}

	iterator, err := ctx.GetStub().GetStateByPartialCompositeKey(recordNamespace, []string{})
	if err != nil {
		return nil, err
	}
	defer iterator.Close()
	for iterator.HasNext() {
		if _, err := iterator.Next(); err != nil {
			return nil, err
		}
		stats.Records++
	}
	return stats, nil
}

func countRange(ctx contractapi.TransactionContextInterface, prefix string) (int, error) {
	iterator, err := ctx.GetStub().GetStateByRange(prefix, prefix+rangeEndSuffix)
	if err != nil {
		return 0, err
	}
	defer iterator.Close()

	n := 0
	for iterator.HasNext() {
		if _, err := iterator.Next(); err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// GetHospitalStats rolls up doctors, distinct patients and records per
// hospital. Doctors are attributed through their stored hospitalId; records
// are attributed through their authoring doctor. Single pass over each
// keyspace.
func (s *SmartContract) GetHospitalStats(ctx contractapi.TransactionContextInterface) ([]*HospitalStats, error) {
	if _, err := requireRole(ctx, RoleHospital, RoleAdmin); err != nil {
		return nil, err
	}

	hospitals := []*HospitalStats{}
	byHospital := map[string]*HospitalStats{}

	iterator, err := ctx.GetStub().GetStateByRange(hospitalKeyPrefix, hospitalKeyPrefix+rangeEndSuffix)
	if err != nil {
		return nil, err
	}
	for iterator.HasNext() {
		kv, err := iterator.Next()
		if err != nil {
			iterator.Close()
			return nil, err
		}
		var hospital Hospital
		if err := json.Unmarshal(kv.Value, &hospital); err != nil {
			continue
		}
		stats := &HospitalStats{
			HospitalID: hospital.HospitalID,
			Name:       hospital.Name,
			City:       hospital.City,
		}
		hospitals = append(hospitals, stats)
		byHospital[hospital.HospitalID] = stats
	}
	iterator.Close()

	doctorHospital := map[string]string{}
	iterator, err = ctx.GetStub().GetStateByRange(doctorKeyPrefix, doctorKeyPrefix+rangeEndSuffix)
	if err != nil {
		return nil, err
	}
	for iterator.HasNext() {
		kv, err := iterator.Next()
		if err != nil {
			iterator.Close()
			return nil, err
		}
		var doctor Doctor
		if err := json.Unmarshal(kv.Value, &doctor); err != nil {
			continue
		}
		doctorHospital[doctor.DoctorID] = doctor.HospitalID
		if stats, ok := byHospital[doctor.HospitalID]; ok {
			stats.TotalDoctors++
		}
	}
	iterator.Close()

	patientSets := map[string]map[string]struct{}{}
	recIterator, err := ctx.GetStub().GetStateByPartialCompositeKey(recordNamespace, []string{})
	if err != nil {
		return nil, err
	}
	defer recIterator.Close()
	for recIterator.HasNext() {
		kv, err := recIterator.Next()
		if err != nil {
			return nil, err
		}
		var record ClinicalRecord
		if err := json.Unmarshal(kv.Value, &record); err != nil {
			continue
		}
		hospitalID, ok := doctorHospital[record.DoctorID]
		if !ok {
			continue
		}
		stats, ok := byHospital[hospitalID]
		if !ok {
			continue
		}
		stats.TotalRecords++
		if patientSets[hospitalID] == nil {
			patientSets[hospitalID] = map[string]struct{}{}
		}
		patientSets[hospitalID][record.PatientID] = struct{}{}
	}

	for id, set := range patientSets {
		byHospital[id].TotalPatients = len(set)
	}
	return hospitals, nil
}
