// Package vis renders the pipeline's charts as PNG files with gonum/plot.
package vis

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

var ErrNoData = errors.New("nothing to plot")

const (
	ConfusionMatrixFile = "confusion_matrix.png"
	ROCCurvesFile       = "roc_curves.png"
	ClassCountsFile     = "class_counts_plot.png"
	AgeHistogramFile    = "age_hist_plot.png"
	EthnicityFile       = "ethnicity_counts_plot.png"
	FollowUpFile        = "days_last_follow_up_hist_plot.png"

	FollowUpBins = 30
)

var (
	plotWidth  = 6 * vg.Inch
	plotHeight = 4 * vg.Inch
)

// Renderer writes every chart into one output directory.
type Renderer struct {
	dir string
	log logrus.FieldLogger
}

func NewRenderer(dir string, log logrus.FieldLogger) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory: %w", err)
	}
	return &Renderer{dir: dir, log: log}, nil
}

func (r *Renderer) save(p *plot.Plot, name string) (string, error) {
	path := filepath.Join(r.dir, name)
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", name, err)
	}
	r.log.WithField("path", path).Info("Rendered plot")
	return path, nil
}
