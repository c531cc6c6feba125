package extract

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/dcis/pkg/common/config"
	"github.com/synaptica-ai/dcis/pkg/common/httpclient"
)

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

const (
	demographicsCSV = "HTAN Participant ID,Ethnicity,Race\np1,not hispanic or latino,white\n"
	diagnosticsCSV  = "HTAN Participant ID,Tumor Grade\np1,G2\n"
	molecularCSV    = "HTAN Participant ID,Timepoint Label,Gene Symbol,Test Result\np1,t0,ESR1,positive\n"
)

func sourceServer(t *testing.T, status map[string]int) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	bodies := map[string]string{
		"/demographics.csv": demographicsCSV,
		"/diagnostics.csv":  diagnosticsCSV,
		"/molecular.csv":    molecularCSV,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if code, ok := status[r.URL.Path]; ok {
			w.WriteHeader(code)
			return
		}
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func sourcesConfig(base string) config.SourcesConfig {
	return config.SourcesConfig{
		DemographicsURL:  base + "/demographics.csv",
		DiagnosticsURL:   base + "/diagnostics.csv",
		MolecularTestURL: base + "/molecular.csv",
		HTTPTimeout:      5 * time.Second,
		MaxResponseBytes: 1 << 20,
	}
}

func TestFetchParsesAllSources(t *testing.T) {
	srv, hits := sourceServer(t, nil)
	f := NewFetcher(httpclient.New(5*time.Second), sourcesConfig(srv.URL), quietLogger())

	sources, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))

	assert.Equal(t, 1, sources.Demographics.Len())
	assert.Equal(t, "G2", sources.Diagnostics.Value(0, "Tumor Grade").String())
	assert.Equal(t, "ESR1", sources.MolecularTest.Value(0, "Gene Symbol").String())

	named := sources.Tables()
	require.Len(t, named, 3)
	assert.Equal(t, []string{Demographics, Diagnostics, MolecularTest}, []string{named[0].Name, named[1].Name, named[2].Name})
}

func TestFetchStopsAtFirstFailureWithoutRetry(t *testing.T) {
	srv, hits := sourceServer(t, map[string]int{"/diagnostics.csv": http.StatusServiceUnavailable})
	f := NewFetcher(httpclient.New(5*time.Second), sourcesConfig(srv.URL), quietLogger())

	sources, err := f.Fetch(context.Background())
	assert.Nil(t, sources)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "diagnostics")
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestFetchTransportFailure(t *testing.T) {
	srv, _ := sourceServer(t, nil)
	cfg := sourcesConfig(srv.URL)
	srv.Close()

	_, err := NewFetcher(httpclient.New(time.Second), cfg, quietLogger()).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestFetchRejectsOversizedResponse(t *testing.T) {
	srv, _ := sourceServer(t, nil)
	cfg := sourcesConfig(srv.URL)
	cfg.MaxResponseBytes = 10

	_, err := NewFetcher(httpclient.New(time.Second), cfg, quietLogger()).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestFetchRejectsMalformedCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "a,b\n1,2,3\n")
	}))
	defer srv.Close()

	_, err := NewFetcher(httpclient.New(time.Second), sourcesConfig(srv.URL), quietLogger()).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestFetchHonoursCancelledContext(t *testing.T) {
	srv, hits := sourceServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher(httpclient.New(time.Second), sourcesConfig(srv.URL), quietLogger()).Fetch(ctx)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestSourceURLs(t *testing.T) {
	f := NewFetcher(http.DefaultClient, sourcesConfig("https://example.org"), quietLogger())
	urls := f.SourceURLs()
	assert.Len(t, urls, 3)
	assert.True(t, strings.HasSuffix(urls[MolecularTest], "/molecular.csv"))
}
