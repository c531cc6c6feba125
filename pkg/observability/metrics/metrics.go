package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dcis"

// Pipeline holds the gauges a batch run reports. Each run gets its own
// registry, so nothing leaks between runs in the same process.
type Pipeline struct {
	registry *prometheus.Registry

	sourceRows   *prometheus.GaugeVec
	dropped      *prometheus.GaugeVec
	retained     prometheus.Gauge
	accuracy     *prometheus.GaugeVec
	classF1      *prometheus.GaugeVec
	stageSeconds *prometheus.GaugeVec
	lastSuccess  prometheus.Gauge
}

func NewPipeline() *Pipeline {
	p := &Pipeline{
		registry: prometheus.NewRegistry(),
		sourceRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_rows",
			Help:      "Rows read from each upstream table in the latest run.",
		}, []string{"source"}),
		dropped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dropped_rows",
			Help:      "Joined rows discarded for a missing value in the latest run.",
		}, []string{"reason"}),
		retained: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feature_rows",
			Help:      "Rows in the assembled feature table.",
		}),
		accuracy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_accuracy",
			Help:      "Held-out accuracy of the latest run.",
		}, []string{"algorithm"}),
		classF1: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_f1_score",
			Help:      "Held-out F1 score per tumor grade.",
		}, []string{"algorithm", "grade"}),
		stageSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage in the latest run.",
		}, []string{"stage"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the latest successful run finished.",
		}),
	}
	p.registry.MustRegister(p.sourceRows, p.dropped, p.retained, p.accuracy, p.classF1, p.stageSeconds, p.lastSuccess)
	return p
}

func (p *Pipeline) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Pipeline) ObserveSourceRows(source string, rows int) {
	p.sourceRows.WithLabelValues(source).Set(float64(rows))
}

func (p *Pipeline) ObserveAssembly(droppedMissingLabel, droppedMissingEthnicity, retained int) {
	p.dropped.WithLabelValues("missing_tumor_grade").Set(float64(droppedMissingLabel))
	p.dropped.WithLabelValues("missing_ethnicity").Set(float64(droppedMissingEthnicity))
	p.retained.Set(float64(retained))
}

func (p *Pipeline) ObserveEvaluation(algorithm string, accuracy float64, f1ByGrade map[string]float64) {
	p.accuracy.WithLabelValues(algorithm).Set(accuracy)
	for grade, f1 := range f1ByGrade {
		p.classF1.WithLabelValues(algorithm, grade).Set(f1)
	}
}

func (p *Pipeline) ObserveStage(stage string, seconds float64) {
	p.stageSeconds.WithLabelValues(stage).Set(seconds)
}

func (p *Pipeline) MarkSuccess(unixSeconds float64) {
	p.lastSuccess.Set(unixSeconds)
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (p *Pipeline) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
