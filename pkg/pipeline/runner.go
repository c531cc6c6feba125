package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/dcis/pkg/analysis"
	"github.com/synaptica-ai/dcis/pkg/common/models"
	"github.com/synaptica-ai/dcis/pkg/extract"
	"github.com/synaptica-ai/dcis/pkg/observability/metrics"
	"github.com/synaptica-ai/dcis/pkg/storage"
	"github.com/synaptica-ai/dcis/pkg/terminology"
	"github.com/synaptica-ai/dcis/pkg/training"
	"github.com/synaptica-ai/dcis/pkg/vis"
	"gorm.io/datatypes"
)

const eventSource = "dcis-pipeline"

type sourceFetcher interface {
	Fetch(ctx context.Context) (*extract.Sources, error)
	SourceURLs() map[string]string
}

type eventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Dependencies wires a Runner. Fetcher, Store, Evaluator and Model are
// required; every other field is an optional sink left nil when disabled.
type Dependencies struct {
	Catalog   terminology.Catalog
	Fetcher   sourceFetcher
	Store     *storage.ArtifactStore
	Evaluator *analysis.Evaluator
	Model     *training.Model

	Renderer    *vis.Renderer
	Ledger      *training.Service
	Rollups     *storage.ReportRollups
	Features    *storage.FeatureStore
	Events      eventPublisher
	Metrics     *metrics.Pipeline
	MetricsFile string
}

// Summary is what a successful run hands back to the caller.
type Summary struct {
	RunID     uuid.UUID
	Stats     Stats
	Result    *analysis.Result
	Artifacts []string
	Duration  time.Duration
}

// Runner executes one batch: fetch, assemble, evaluate, then write every
// artifact and sink.
type Runner struct {
	deps          Dependencies
	assembler     *Assembler
	useGridSearch bool
	log           logrus.FieldLogger
	now           func() time.Time
}

func NewRunner(deps Dependencies, useGridSearch bool, log logrus.FieldLogger) (*Runner, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, errors.New("runner needs a fetcher")
	case deps.Store == nil:
		return nil, errors.New("runner needs an artifact store")
	case deps.Evaluator == nil:
		return nil, errors.New("runner needs an evaluator")
	case deps.Model == nil:
		return nil, errors.New("runner needs a model")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewPipeline()
	}
	return &Runner{
		deps:          deps,
		assembler:     NewAssembler(deps.Catalog, log),
		useGridSearch: useGridSearch,
		log:           log,
		now:           time.Now,
	}, nil
}

// Run executes the pipeline once. Any stage error aborts the run; the ledger,
// when enabled, records the failure before Run returns it.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.New()
	started := r.now()
	algorithm := r.deps.Model.Algorithm()
	log := r.log.WithFields(logrus.Fields{"run_id": runID.String(), "algorithm": algorithm})

	if r.deps.Ledger != nil {
		if err := r.deps.Ledger.Begin(ctx, runID, algorithm, r.useGridSearch); err != nil {
			return nil, err
		}
	}

	summary, err := r.run(ctx, runID, started, log)
	if err != nil {
		log.WithError(err).Error("Pipeline run failed")
		if r.deps.Ledger != nil {
			r.deps.Ledger.Fail(ctx, runID, err)
		}
		r.publish(ctx, log, models.EventRunFailed, map[string]interface{}{
			"run_id":    runID.String(),
			"algorithm": algorithm.String(),
			"error":     err.Error(),
		})
		return nil, err
	}

	if r.deps.Ledger != nil {
		r.deps.Ledger.Complete(ctx, runID, training.RunOutcome{
			Metrics:      runMetrics(summary),
			BestParams:   summary.Result.BestParams,
			ArtifactPath: r.deps.Store.Root(),
		})
	}
	log.WithField("duration", summary.Duration.String()).Info("Pipeline run completed")
	return summary, nil
}

func (r *Runner) run(ctx context.Context, runID uuid.UUID, started time.Time, log logrus.FieldLogger) (*Summary, error) {
	var artifacts []string
	keep := func(path string, err error) error {
		if err == nil {
			artifacts = append(artifacts, path)
		}
		return err
	}

	var sources *extract.Sources
	err := r.stage("fetch", func() error {
		var err error
		sources, err = r.deps.Fetcher.Fetch(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, named := range sources.Tables() {
		r.deps.Metrics.ObserveSourceRows(named.Name, named.Table.Len())
		if err := keep(r.deps.Store.StoreRaw(named.Name, named.Table)); err != nil {
			return nil, err
		}
	}

	var ft *FeatureTable
	err = r.stage("assemble", func() error {
		var err error
		ft, err = r.assembler.Assemble(sources.Demographics, sources.Diagnostics, sources.MolecularTest)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.deps.Metrics.ObserveAssembly(ft.Stats.DroppedMissingLabel, ft.Stats.DroppedMissingEthnicity, ft.Stats.Retained)
	features, err := ft.Table()
	if err != nil {
		return nil, err
	}
	if err := keep(r.deps.Store.StoreFeatureTable(features)); err != nil {
		return nil, err
	}

	x, labels, err := ft.Matrix()
	if err != nil {
		return nil, err
	}
	var result *analysis.Result
	err = r.stage("evaluate", func() error {
		var err error
		result, err = r.deps.Evaluator.Evaluate(ctx, x, labels, r.deps.Model, r.useGridSearch)
		return err
	})
	if err != nil {
		return nil, err
	}

	algoName := strings.ToUpper(result.Algorithm.String())
	log.Infof("Displaying classification report for %s:\n%s", algoName, result.Report.String())
	log.Infof("The overall accuracy of %s is %v", algoName, result.Report.Accuracy)

	reportTable, err := result.Report.Table()
	if err != nil {
		return nil, err
	}
	if err := keep(r.deps.Store.StoreReport(reportTable)); err != nil {
		return nil, err
	}
	if err := keep(r.deps.Store.StoreWorkbook(
		storage.Sheet{Name: "features", Table: features},
		storage.Sheet{Name: "classification_report", Table: reportTable},
	)); err != nil {
		return nil, err
	}

	if r.deps.Renderer != nil {
		err = r.stage("plot", func() error {
			paths, err := r.plot(ft, result, log)
			artifacts = append(artifacts, paths...)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	summary := &Summary{RunID: runID, Stats: ft.Stats, Result: result}
	err = r.stage("sinks", func() error {
		return r.sinks(ctx, summary, ft, log)
	})
	if err != nil {
		return nil, err
	}

	completed := r.now()
	summary.Duration = completed.Sub(started)
	r.deps.Metrics.MarkSuccess(float64(completed.Unix()))
	if r.deps.MetricsFile != "" {
		if err := r.deps.Metrics.WriteTextfile(r.deps.MetricsFile); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, r.deps.MetricsFile)
	}

	manifestPath := r.deps.Store.Path(storage.OutputZone, storage.ManifestFile)
	summary.Artifacts = append(artifacts, manifestPath)
	_, err = r.deps.Store.StoreManifest(storage.Manifest{
		RunID:         runID.String(),
		Algorithm:     result.Algorithm.String(),
		UseGridSearch: r.useGridSearch,
		StartedAt:     started.UTC(),
		CompletedAt:   completed.UTC(),
		Sources:       r.deps.Fetcher.SourceURLs(),
		Stats:         ft.Stats,
		BestParams:    result.BestParams,
		Accuracy:      result.Report.Accuracy,
		Report:        result.Report,
		Artifacts:     summary.Artifacts,
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// stage times fn into the stage duration gauge.
func (r *Runner) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	r.deps.Metrics.ObserveStage(name, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (r *Runner) plot(ft *FeatureTable, result *analysis.Result, log logrus.FieldLogger) ([]string, error) {
	var paths []string
	render := func(name string, path string, err error) error {
		if errors.Is(err, vis.ErrNoData) {
			log.WithField("plot", name).Warn("Skipping plot with no data")
			return nil
		}
		if err != nil {
			return err
		}
		paths = append(paths, path)
		return nil
	}

	grades := make([]string, len(ft.Records))
	ages := make([]float64, len(ft.Records))
	ethnicity := make([]int, len(ft.Records))
	followUp := make([]int, len(ft.Records))
	for i, rec := range ft.Records {
		grades[i] = rec.TumorGrade
		ages[i] = rec.AgeAtDiagnosis
		ethnicity[i] = rec.Ethnicity
		followUp[i] = rec.DaysToLastFollowUp
	}

	path, err := r.deps.Renderer.ConfusionMatrix(result.Confusion, result.ClassNames, result.Algorithm.String(), false)
	if err := render("confusion_matrix", path, err); err != nil {
		return paths, err
	}
	if result.Probabilities != nil {
		names := make([]string, len(result.ProbaClasses))
		for i, c := range result.ProbaClasses {
			names[i], _ = r.deps.Catalog.ClassName(c)
		}
		path, err := r.deps.Renderer.ROC(result.Probabilities, result.YTest, result.ProbaClasses, names)
		if err := render("roc_curves", path, err); err != nil {
			return paths, err
		}
	}

	path, err = r.deps.Renderer.ClassCounts(grades)
	if err := render("class_counts", path, err); err != nil {
		return paths, err
	}
	path, err = r.deps.Renderer.AgeHistogram(ages)
	if err := render("age_histogram", path, err); err != nil {
		return paths, err
	}
	path, err = r.deps.Renderer.EthnicityCounts(ethnicity)
	if err := render("ethnicity_counts", path, err); err != nil {
		return paths, err
	}
	path, err = r.deps.Renderer.FollowUpHistogram(followUp)
	if err := render("days_to_last_follow_up", path, err); err != nil {
		return paths, err
	}
	return paths, nil
}

func (r *Runner) sinks(ctx context.Context, summary *Summary, ft *FeatureTable, log logrus.FieldLogger) error {
	result := summary.Result
	runID := summary.RunID.String()
	algorithm := result.Algorithm.String()

	f1 := make(map[string]float64, len(result.Report.Classes))
	for _, m := range result.Report.Classes {
		f1[m.Label] = m.F1
	}
	r.deps.Metrics.ObserveEvaluation(algorithm, result.Report.Accuracy, f1)

	if r.deps.Rollups != nil {
		if err := r.deps.Rollups.Write(ctx, runID, algorithm, r.now(), reportRollups(result.Report)); err != nil {
			return fmt.Errorf("write report rollups: %w", err)
		}
	}

	if r.deps.Features != nil {
		at := r.now()
		docs := make(map[string]map[string]interface{}, len(ft.Records))
		for _, rec := range ft.Records {
			docs[rec.PatientID] = ExtractFeatures(rec, runID, at)
		}
		if err := r.deps.Features.MaterializeFeatures(ctx, docs); err != nil {
			return err
		}
	}

	data := runMetrics(summary)
	data["run_id"] = runID
	data["algorithm"] = algorithm
	data["use_grid_search"] = r.useGridSearch
	if err := r.publish(ctx, log, models.EventRunCompleted, data); err != nil {
		return err
	}
	return nil
}

func (r *Runner) publish(ctx context.Context, log logrus.FieldLogger, eventType string, data map[string]interface{}) error {
	if r.deps.Events == nil {
		return nil
	}
	err := r.deps.Events.PublishEvent(ctx, eventType, eventSource, data)
	if err != nil {
		log.WithError(err).WithField("event_type", eventType).Error("Failed to publish run event")
	}
	return err
}

func runMetrics(s *Summary) map[string]interface{} {
	return map[string]interface{}{
		"accuracy":          s.Result.Report.Accuracy,
		"macro_f1":          s.Result.Report.MacroAvg.F1,
		"weighted_f1":       s.Result.Report.WeightedAvg.F1,
		"train_rows":        len(s.Result.TrainRows),
		"test_rows":         len(s.Result.TestRows),
		"feature_rows":      s.Stats.Retained,
		"dropped_label":     s.Stats.DroppedMissingLabel,
		"dropped_ethnicity": s.Stats.DroppedMissingEthnicity,
	}
}

func reportRollups(report *analysis.Report) []storage.Rollup {
	metricValue := func(m analysis.ClassMetrics) datatypes.JSONMap {
		return datatypes.JSONMap{
			"precision": m.Precision,
			"recall":    m.Recall,
			"f1_score":  m.F1,
			"support":   m.Support,
		}
	}
	rows := make([]storage.Rollup, 0, len(report.Classes)+3)
	for _, m := range report.Classes {
		rows = append(rows, storage.Rollup{Label: m.Label, Value: metricValue(m)})
	}
	rows = append(rows,
		storage.Rollup{Label: "accuracy", Value: datatypes.JSONMap{"f1_score": report.Accuracy, "support": report.Total}},
		storage.Rollup{Label: report.MacroAvg.Label, Value: metricValue(report.MacroAvg)},
		storage.Rollup{Label: report.WeightedAvg.Label, Value: metricValue(report.WeightedAvg)},
	)
	return rows
}
