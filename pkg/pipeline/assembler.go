package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/dcis/pkg/normalizer"
	"github.com/synaptica-ai/dcis/pkg/table"
	"github.com/synaptica-ai/dcis/pkg/terminology"
)

var (
	demographicsColumns = []string{
		terminology.ColParticipantID,
		terminology.ColEthnicity,
		terminology.ColRace,
	}
	diagnosticsColumns = []string{
		terminology.ColParticipantID,
		terminology.ColTumorGrade,
		terminology.ColAgeAtDiagnosis,
		terminology.ColYearOfDiagnosis,
		terminology.ColDaysToLastFollowUp,
		terminology.ColDaysToLastKnownStatus,
		terminology.ColDaysToRecurrence,
	}
	molecularColumns = []string{
		terminology.ColParticipantID,
		terminology.ColTimepointLabel,
		terminology.ColGeneSymbol,
		terminology.ColTestResult,
	}
)

// Assembler joins the three raw HTAN tables into the patient feature table.
type Assembler struct {
	catalog     terminology.Catalog
	transformer *normalizer.Transformer
	log         logrus.FieldLogger
}

func NewAssembler(cat terminology.Catalog, log logrus.FieldLogger) *Assembler {
	return &Assembler{
		catalog:     cat,
		transformer: normalizer.NewTransformer(cat),
		log:         log,
	}
}

// Assemble standardizes, joins, filters and derives features. A missing
// required column in any input fails the whole assembly before any row is
// touched.
func (a *Assembler) Assemble(demographics, diagnostics, molecular *table.Table) (*FeatureTable, error) {
	if err := demographics.Require(demographicsColumns...); err != nil {
		return nil, err
	}
	if err := diagnostics.Require(diagnosticsColumns...); err != nil {
		return nil, err
	}
	if err := molecular.Require(molecularColumns...); err != nil {
		return nil, err
	}

	stats := Stats{
		DemographicsRows: demographics.Len(),
		DiagnosticsRows:  diagnostics.Len(),
		MolecularRows:    molecular.Len(),
	}

	demo, err := a.transformer.StandardizeEthnicity(demographics)
	if err != nil {
		return nil, fmt.Errorf("standardize ethnicity: %w", err)
	}
	demo, err = a.transformer.StandardizeRace(demo)
	if err != nil {
		return nil, fmt.Errorf("standardize race: %w", err)
	}
	diag, err := a.transformer.StandardizeTumorGrade(diagnostics)
	if err != nil {
		return nil, fmt.Errorf("standardize tumor grade: %w", err)
	}
	diag, err = a.transformer.StandardizeAgeAtDiagnosis(diag)
	if err != nil {
		return nil, fmt.Errorf("standardize age at diagnosis: %w", err)
	}
	tidy, err := normalizer.TidyMolecularTest(molecular)
	if err != nil {
		return nil, fmt.Errorf("tidy molecular test: %w", err)
	}
	tidy, err = normalizer.BinarizeBiomarkers(tidy, terminology.Biomarkers)
	if err != nil {
		return nil, fmt.Errorf("binarize biomarkers: %w", err)
	}

	merged, err := demo.LeftJoin(diag, terminology.ColParticipantID)
	if err != nil {
		return nil, fmt.Errorf("join diagnostics: %w", err)
	}
	merged, err = merged.LeftJoin(tidy, terminology.ColParticipantID)
	if err != nil {
		return nil, fmt.Errorf("join molecular test: %w", err)
	}
	stats.JoinedRows = merged.Len()

	projected, err := merged.Select(terminology.ProjectedColumns...)
	if err != nil {
		return nil, fmt.Errorf("project features: %w", err)
	}
	projected = projected.MapCells(func(c table.Cell) table.Cell {
		if c.Equals(terminology.NotApplicable) {
			return table.Missing()
		}
		return c
	})

	labelled, err := projected.Filter(func(r table.Row) bool {
		return !r.Get(terminology.ColTumorGrade).IsMissing()
	})
	if err != nil {
		return nil, err
	}
	stats.DroppedMissingLabel = projected.Len() - labelled.Len()
	complete, err := labelled.Filter(func(r table.Row) bool {
		return !r.Get(terminology.ColEthnicity).IsMissing()
	})
	if err != nil {
		return nil, err
	}
	stats.DroppedMissingEthnicity = labelled.Len() - complete.Len()

	records := make([]Record, 0, complete.Len())
	for i := 0; i < complete.Len(); i++ {
		rec, err := a.record(complete.Row(i))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	stats.Retained = len(records)

	a.log.WithFields(logrus.Fields{
		"joined_rows":               stats.JoinedRows,
		"dropped_missing_label":     stats.DroppedMissingLabel,
		"dropped_missing_ethnicity": stats.DroppedMissingEthnicity,
		"rows":                      stats.Retained,
	}).Info("Feature table assembled")

	return &FeatureTable{Records: records, Stats: stats}, nil
}

func (a *Assembler) record(row table.Row) (Record, error) {
	var (
		rec Record
		err error
	)
	rec.PatientID = row.Get(terminology.ColParticipantID).String()
	rec.TumorGrade = row.Get(terminology.ColTumorGrade).String()

	if rec.Ethnicity, err = parseInt(row, terminology.ColEthnicity); err != nil {
		return Record{}, err
	}
	if rec.AgeAtDiagnosis, err = parseFloat(row, terminology.ColAgeAtDiagnosis); err != nil {
		return Record{}, err
	}
	if rec.YearOfDiagnosis, err = parseFloat(row, terminology.ColYearOfDiagnosis); err != nil {
		return Record{}, err
	}
	if rec.DaysToLastFollowUp, err = parseDays(row, terminology.ColDaysToLastFollowUp); err != nil {
		return Record{}, err
	}
	if rec.DaysToLastKnownDiseaseStatus, err = parseDays(row, terminology.ColDaysToLastKnownStatus); err != nil {
		return Record{}, err
	}
	if rec.DaysToRecurrence, err = parseDays(row, terminology.ColDaysToRecurrence); err != nil {
		return Record{}, err
	}

	rec.ERBB2 = flag(row, "ERBB2")
	rec.ESR1 = flag(row, "ESR1")
	rec.HER2 = flag(row, "HER2")
	rec.PGR = flag(row, "PGR")
	rec.PositiveBiomarkerCount = rec.ERBB2 + rec.ESR1 + rec.HER2 + rec.PGR

	rec.AgeGradeScore = math.NaN()
	if weight, ok := a.catalog.SeverityWeight(rec.TumorGrade); ok && !math.IsNaN(rec.AgeAtDiagnosis) {
		rec.AgeGradeScore = rec.AgeAtDiagnosis * weight
	}
	return rec, nil
}

func typeError(col, raw string) error {
	return table.SchemaError{
		Table:  "merged_df",
		Column: col,
		Reason: fmt.Sprintf("value %q is not a number", raw),
	}
}

func parseFloat(row table.Row, col string) (float64, error) {
	raw, ok := row.Get(col).Get()
	if !ok {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, typeError(col, raw)
	}
	return v, nil
}

func parseInt(row table.Row, col string) (int, error) {
	raw := row.Get(col).String()
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, typeError(col, raw)
	}
	return v, nil
}

// parseDays imputes a missing day count as zero and truncates fractions.
func parseDays(row table.Row, col string) (int, error) {
	v, err := parseFloat(row, col)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) {
		return 0, nil
	}
	return int(v), nil
}

// flag reads a binarized biomarker. Patients without any molecular test
// arrive here with a missing cell, which counts as negative.
func flag(row table.Row, gene string) int {
	if row.Get(gene).Equals("1") {
		return 1
	}
	return 0
}
