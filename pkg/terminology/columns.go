package terminology

// Upstream column names. These are part of the source contract and must match
// the HTAN metadata exports exactly.
const (
	ColParticipantID          = "HTAN Participant ID"
	ColEthnicity              = "Ethnicity"
	ColRace                   = "Race"
	ColTumorGrade             = "Tumor Grade"
	ColAgeAtDiagnosis         = "Age at Diagnosis"
	ColYearOfDiagnosis        = "Year of Diagnosis"
	ColDaysToLastFollowUp     = "Days to Last Follow up"
	ColDaysToLastKnownStatus  = "Days to Last Known Disease Status"
	ColDaysToRecurrence       = "Days to Recurrence"
	ColTimepointLabel         = "Timepoint Label"
	ColGeneSymbol             = "Gene Symbol"
	ColTestResult             = "Test Result"
	ColPositiveBiomarkerCount = "positive_biomarker_count"
	ColAgeGradeScore          = "age_grade_score"
)

const (
	NotApplicable  = "Not Applicable"
	PositiveResult = "positive"
	DaysPerYear    = 365.25
)

// Biomarkers are the gene symbols carried into the feature table, in output
// column order.
var Biomarkers = []string{"ERBB2", "ESR1", "HER2", "PGR"}

// DayCountColumns are imputed to zero when missing.
var DayCountColumns = []string{
	ColDaysToLastFollowUp,
	ColDaysToLastKnownStatus,
	ColDaysToRecurrence,
}

// ProjectedColumns is the feature table layout before derived features.
var ProjectedColumns = []string{
	ColParticipantID,
	ColEthnicity,
	ColAgeAtDiagnosis,
	ColYearOfDiagnosis,
	ColTumorGrade,
	ColDaysToLastFollowUp,
	ColDaysToLastKnownStatus,
	ColDaysToRecurrence,
	"ERBB2",
	"ESR1",
	"HER2",
	"PGR",
}
