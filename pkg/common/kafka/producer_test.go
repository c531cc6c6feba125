package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/dcis/pkg/common/models"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestPublishEventEnvelope(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, "dcis-pipeline-runs", quietLogger())
	p.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	err := p.PublishEvent(context.Background(), models.EventRunCompleted, "dcis-pipeline", map[string]interface{}{
		"run_id":   "run-1",
		"accuracy": 0.7,
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	var event models.Event
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, string(msg.Key), event.ID)
	assert.Equal(t, models.EventRunCompleted, event.Type)
	assert.Equal(t, "dcis-pipeline", event.Source)
	assert.Equal(t, "run-1", event.Data["run_id"])
	assert.True(t, event.Timestamp.Equal(p.now()))

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event-type", msg.Headers[0].Key)
	assert.Equal(t, models.EventRunCompleted, string(msg.Headers[0].Value))
}

func TestPublishEventWriteFailure(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := newProducer(w, "dcis-pipeline-runs", quietLogger())

	err := p.PublishEvent(context.Background(), models.EventRunFailed, "dcis-pipeline", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestClose(t *testing.T) {
	w := &recordingWriter{}
	require.NoError(t, newProducer(w, "t", quietLogger()).Close())
	assert.True(t, w.closed)
}
