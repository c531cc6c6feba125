package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/dcis/pkg/table"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

const (
	RawZone         = "raw_data"
	TransformedZone = "transformed_data"
	OutputZone      = "outputs"

	FeatureTableFile = "merged_df.csv"
	ReportFile       = "classification_report.csv"
	WorkbookFile     = "dcis_results.xlsx"
	ManifestFile     = "run_manifest.yaml"
)

// ArtifactStore lays pipeline artifacts out on local disk, one directory per
// zone under root.
type ArtifactStore struct {
	root string
	log  logrus.FieldLogger
}

func NewArtifactStore(root string, log logrus.FieldLogger) (*ArtifactStore, error) {
	for _, zone := range []string{RawZone, TransformedZone, OutputZone} {
		if err := os.MkdirAll(filepath.Join(root, zone), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s zone: %w", zone, err)
		}
	}
	return &ArtifactStore{root: root, log: log}, nil
}

func (s *ArtifactStore) Root() string {
	return s.root
}

// Path joins name onto the zone directory.
func (s *ArtifactStore) Path(zone, name string) string {
	return filepath.Join(s.root, zone, name)
}

// StoreRaw writes an upstream table as received to raw_data/<name>.csv.
func (s *ArtifactStore) StoreRaw(name string, t *table.Table) (string, error) {
	return s.writeTable(s.Path(RawZone, name+".csv"), t)
}

func (s *ArtifactStore) StoreFeatureTable(t *table.Table) (string, error) {
	return s.writeTable(s.Path(TransformedZone, FeatureTableFile), t)
}

func (s *ArtifactStore) StoreReport(t *table.Table) (string, error) {
	return s.writeTable(s.Path(OutputZone, ReportFile), t)
}

func (s *ArtifactStore) writeTable(path string, t *table.Table) (string, error) {
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	s.log.WithFields(logrus.Fields{
		"path":  path,
		"table": t.Name(),
		"rows":  t.Len(),
	}).Info("Stored table")
	return path, nil
}

// Sheet is one worksheet of the results workbook.
type Sheet struct {
	Name  string
	Table *table.Table
}

// StoreWorkbook writes every sheet into outputs/dcis_results.xlsx. Missing
// cells are left blank.
func (s *ArtifactStore) StoreWorkbook(sheets ...Sheet) (string, error) {
	if len(sheets) == 0 {
		return "", errors.New("workbook needs at least one sheet")
	}

	wb := excelize.NewFile()
	defer wb.Close()

	defaultSheet := wb.GetSheetName(0)
	for i, sheet := range sheets {
		if i == 0 {
			if err := wb.SetSheetName(defaultSheet, sheet.Name); err != nil {
				return "", fmt.Errorf("failed to name sheet %q: %w", sheet.Name, err)
			}
		} else if _, err := wb.NewSheet(sheet.Name); err != nil {
			return "", fmt.Errorf("failed to add sheet %q: %w", sheet.Name, err)
		}
		if err := fillSheet(wb, sheet); err != nil {
			return "", err
		}
	}

	path := s.Path(OutputZone, WorkbookFile)
	if err := wb.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	s.log.WithFields(logrus.Fields{"path": path, "sheets": len(sheets)}).Info("Stored workbook")
	return path, nil
}

func fillSheet(wb *excelize.File, sheet Sheet) error {
	header := make([]interface{}, 0, len(sheet.Table.Columns()))
	for _, col := range sheet.Table.Columns() {
		header = append(header, col)
	}
	if err := wb.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %q header: %w", sheet.Name, err)
	}

	cols := sheet.Table.Columns()
	for i := 0; i < sheet.Table.Len(); i++ {
		row := make([]interface{}, len(cols))
		for j, col := range cols {
			if v, ok := sheet.Table.Value(i, col).Get(); ok {
				row[j] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(sheet.Name, cell, &row); err != nil {
			return fmt.Errorf("failed to write %q row %d: %w", sheet.Name, i, err)
		}
	}
	return nil
}

// Manifest summarizes one run for operators. Stats and Report take whatever
// the caller serializes; both carry yaml tags.
type Manifest struct {
	RunID         string                 `yaml:"run_id"`
	Algorithm     string                 `yaml:"algorithm"`
	UseGridSearch bool                   `yaml:"use_grid_search"`
	StartedAt     time.Time              `yaml:"started_at"`
	CompletedAt   time.Time              `yaml:"completed_at"`
	Sources       map[string]string      `yaml:"sources"`
	Stats         interface{}            `yaml:"stats,omitempty"`
	BestParams    map[string]interface{} `yaml:"best_params,omitempty"`
	Accuracy      float64                `yaml:"accuracy"`
	Report        interface{}            `yaml:"report,omitempty"`
	Artifacts     []string               `yaml:"artifacts"`
}

func (s *ArtifactStore) StoreManifest(m Manifest) (string, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	path := s.Path(OutputZone, ManifestFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	s.log.WithFields(logrus.Fields{"path": path, "run_id": m.RunID}).Info("Stored run manifest")
	return path, nil
}

// LoadManifest reads back a manifest written by StoreManifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}
