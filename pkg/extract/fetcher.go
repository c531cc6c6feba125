// Package extract pulls the three HTAN metadata exports the pipeline is
// built from.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/dcis/pkg/common/config"
	"github.com/synaptica-ai/dcis/pkg/table"
)

var ErrSourceUnavailable = errors.New("source unavailable")

const (
	Demographics  = "demographics"
	Diagnostics   = "diagnostics"
	MolecularTest = "molecular_test"
)

// Source is one upstream CSV export.
type Source struct {
	Name string
	URL  string
}

// Sources holds the parsed upstream tables.
type Sources struct {
	Demographics  *table.Table
	Diagnostics   *table.Table
	MolecularTest *table.Table
}

// Tables lists the tables with their source names, in fetch order.
func (s *Sources) Tables() []Named {
	return []Named{
		{Name: Demographics, Table: s.Demographics},
		{Name: Diagnostics, Table: s.Diagnostics},
		{Name: MolecularTest, Table: s.MolecularTest},
	}
}

type Named struct {
	Name  string
	Table *table.Table
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Fetcher struct {
	client   httpDoer
	sources  []Source
	maxBytes int64
	log      logrus.FieldLogger
}

func NewFetcher(client httpDoer, cfg config.SourcesConfig, log logrus.FieldLogger) *Fetcher {
	return &Fetcher{
		client: client,
		sources: []Source{
			{Name: Demographics, URL: cfg.DemographicsURL},
			{Name: Diagnostics, URL: cfg.DiagnosticsURL},
			{Name: MolecularTest, URL: cfg.MolecularTestURL},
		},
		maxBytes: cfg.MaxResponseBytes,
		log:      log,
	}
}

// SourceURLs maps each source name to where it is fetched from.
func (f *Fetcher) SourceURLs() map[string]string {
	out := make(map[string]string, len(f.sources))
	for _, s := range f.sources {
		out[s.Name] = s.URL
	}
	return out
}

// Fetch downloads and parses every source in turn. Each source gets a single
// attempt; the first failure stops the fetch.
func (f *Fetcher) Fetch(ctx context.Context) (*Sources, error) {
	tables := make(map[string]*table.Table, len(f.sources))
	for _, src := range f.sources {
		t, err := f.fetchOne(ctx, src)
		if err != nil {
			return nil, err
		}
		tables[src.Name] = t
	}
	return &Sources{
		Demographics:  tables[Demographics],
		Diagnostics:   tables[Diagnostics],
		MolecularTest: tables[MolecularTest],
	}, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, src Source) (*table.Table, error) {
	log := f.log.WithFields(logrus.Fields{"source": src.Name, "url": src.URL})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, src.Name, err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.client.Do(req)
	if err != nil {
		log.WithError(err).Error("Failed to fetch source")
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, src.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithField("status", resp.StatusCode).Error("Source returned non-success status")
		return nil, fmt.Errorf("%w: %s: status %d", ErrSourceUnavailable, src.Name, resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", ErrSourceUnavailable, src.Name, err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s: response exceeds %d bytes", ErrSourceUnavailable, src.Name, f.maxBytes)
	}

	t, err := table.ReadCSV(src.Name, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, src.Name, err)
	}

	log.WithFields(logrus.Fields{
		"rows":    t.Len(),
		"columns": len(t.Columns()),
	}).Info("Fetched source")
	return t, nil
}
