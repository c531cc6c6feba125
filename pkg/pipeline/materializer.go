package pipeline

import (
	"math"
	"time"
)

// ExtractFeatures flattens a record into the document cached by the feature
// store. NaN values are omitted so the map stays JSON encodable.
func ExtractFeatures(record Record, runID string, at time.Time) map[string]interface{} {
	features := map[string]interface{}{
		"patient_id":                        record.PatientID,
		"run_id":                            runID,
		"materialized_at":                   at.UTC().Format(time.RFC3339),
		"tumor_grade":                       record.TumorGrade,
		"ethnicity":                         record.Ethnicity,
		"days_to_last_follow_up":            record.DaysToLastFollowUp,
		"days_to_last_known_disease_status": record.DaysToLastKnownDiseaseStatus,
		"days_to_recurrence":                record.DaysToRecurrence,
		"erbb2":                             record.ERBB2,
		"esr1":                              record.ESR1,
		"her2":                              record.HER2,
		"pgr":                               record.PGR,
		"positive_biomarker_count":          record.PositiveBiomarkerCount,
	}

	if !math.IsNaN(record.AgeAtDiagnosis) {
		features["age_at_diagnosis"] = record.AgeAtDiagnosis
	}
	if !math.IsNaN(record.YearOfDiagnosis) {
		features["year_of_diagnosis"] = record.YearOfDiagnosis
	}
	if !math.IsNaN(record.AgeGradeScore) {
		features["age_grade_score"] = record.AgeGradeScore
	}

	return features
}
