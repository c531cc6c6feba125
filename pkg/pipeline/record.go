package pipeline

import (
	"errors"
	"math"
	"strconv"

	"github.com/synaptica-ai/dcis/pkg/normalizer"
	"github.com/synaptica-ai/dcis/pkg/table"
	"github.com/synaptica-ai/dcis/pkg/terminology"
	"gonum.org/v1/gonum/mat"
)

var ErrEmptyFeatureTable = errors.New("feature table has no records")

// Record is one assembled patient row. Missing floats are NaN.
type Record struct {
	PatientID                    string  `json:"patient_id"`
	Ethnicity                    int     `json:"ethnicity"`
	AgeAtDiagnosis               float64 `json:"age_at_diagnosis"`
	YearOfDiagnosis              float64 `json:"year_of_diagnosis"`
	TumorGrade                   string  `json:"tumor_grade"`
	DaysToLastFollowUp           int     `json:"days_to_last_follow_up"`
	DaysToLastKnownDiseaseStatus int     `json:"days_to_last_known_disease_status"`
	DaysToRecurrence             int     `json:"days_to_recurrence"`
	ERBB2                        int     `json:"erbb2"`
	ESR1                         int     `json:"esr1"`
	HER2                         int     `json:"her2"`
	PGR                          int     `json:"pgr"`
	PositiveBiomarkerCount       int     `json:"positive_biomarker_count"`
	AgeGradeScore                float64 `json:"age_grade_score"`
}

// Stats counts rows through the assembly stages.
type Stats struct {
	DemographicsRows        int `json:"demographics_rows" yaml:"demographics_rows"`
	DiagnosticsRows         int `json:"diagnostics_rows" yaml:"diagnostics_rows"`
	MolecularRows           int `json:"molecular_rows" yaml:"molecular_rows"`
	JoinedRows              int `json:"joined_rows" yaml:"joined_rows"`
	DroppedMissingLabel     int `json:"dropped_missing_label" yaml:"dropped_missing_label"`
	DroppedMissingEthnicity int `json:"dropped_missing_ethnicity" yaml:"dropped_missing_ethnicity"`
	Retained                int `json:"retained" yaml:"retained"`
}

type FeatureTable struct {
	Records []Record
	Stats   Stats
}

// FeatureNames lists the model inputs in matrix column order. The patient id
// and the label are never features.
func FeatureNames() []string {
	return []string{
		terminology.ColEthnicity,
		terminology.ColAgeAtDiagnosis,
		terminology.ColYearOfDiagnosis,
		terminology.ColDaysToLastFollowUp,
		terminology.ColDaysToLastKnownStatus,
		terminology.ColDaysToRecurrence,
		"ERBB2",
		"ESR1",
		"HER2",
		"PGR",
		terminology.ColPositiveBiomarkerCount,
		terminology.ColAgeGradeScore,
	}
}

func (r Record) features() []float64 {
	return []float64{
		float64(r.Ethnicity),
		r.AgeAtDiagnosis,
		r.YearOfDiagnosis,
		float64(r.DaysToLastFollowUp),
		float64(r.DaysToLastKnownDiseaseStatus),
		float64(r.DaysToRecurrence),
		float64(r.ERBB2),
		float64(r.ESR1),
		float64(r.HER2),
		float64(r.PGR),
		float64(r.PositiveBiomarkerCount),
		r.AgeGradeScore,
	}
}

func (f *FeatureTable) Len() int {
	return len(f.Records)
}

// Matrix returns the feature matrix and the grade label of each row.
func (f *FeatureTable) Matrix() (*mat.Dense, []string, error) {
	if len(f.Records) == 0 {
		return nil, nil, ErrEmptyFeatureTable
	}
	cols := len(FeatureNames())
	data := make([]float64, 0, len(f.Records)*cols)
	labels := make([]string, len(f.Records))
	for i, r := range f.Records {
		data = append(data, r.features()...)
		labels[i] = r.TumorGrade
	}
	return mat.NewDense(len(f.Records), cols, data), labels, nil
}

// Table renders the feature table with its export column layout.
func (f *FeatureTable) Table() (*table.Table, error) {
	columns := append(append([]string(nil), terminology.ProjectedColumns...),
		terminology.ColPositiveBiomarkerCount, terminology.ColAgeGradeScore)

	rows := make([][]table.Cell, len(f.Records))
	for i, r := range f.Records {
		rows[i] = []table.Cell{
			table.Str(r.PatientID),
			intCell(r.Ethnicity),
			floatCell(r.AgeAtDiagnosis),
			floatCell(r.YearOfDiagnosis),
			table.Str(r.TumorGrade),
			intCell(r.DaysToLastFollowUp),
			intCell(r.DaysToLastKnownDiseaseStatus),
			intCell(r.DaysToRecurrence),
			intCell(r.ERBB2),
			intCell(r.ESR1),
			intCell(r.HER2),
			intCell(r.PGR),
			intCell(r.PositiveBiomarkerCount),
			floatCell(r.AgeGradeScore),
		}
	}
	return table.New("merged_df", columns, rows)
}

func intCell(v int) table.Cell {
	return table.Str(strconv.Itoa(v))
}

func floatCell(v float64) table.Cell {
	if math.IsNaN(v) {
		return table.Missing()
	}
	return table.Str(normalizer.FormatFloat(v))
}
