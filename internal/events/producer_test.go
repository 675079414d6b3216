package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestPublishEncodesPayloadAndHeader(t *testing.T) {
	writer := &stubWriter{}
	producer := newProducer(writer, WithProducerLogger(discardLogger()))

	evt := SyncCompleted{
		RunID:      "r-1",
		StartedAt:  time.Date(2026, 3, 8, 6, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 3, 8, 6, 5, 0, 0, time.UTC),
		Accounts:   3,
		Succeeded:  2,
		Failed:     1,
	}
	require.NoError(t, producer.Publish(context.Background(), TypeSyncCompleted, "r-1", evt))

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	require.Equal(t, []byte("r-1"), msg.Key)
	require.Len(t, msg.Headers, 1)
	require.Equal(t, "event_type", msg.Headers[0].Key)
	require.Equal(t, TypeSyncCompleted, string(msg.Headers[0].Value))

	var decoded SyncCompleted
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	require.Equal(t, evt, decoded)
}

func TestPublishPropagatesWriteError(t *testing.T) {
	writer := &stubWriter{err: errBoom}
	producer := newProducer(writer, WithProducerLogger(discardLogger()))

	err := producer.Publish(context.Background(), TypeAccountSynced, "42", AccountSynced{AthleteID: 42})
	require.ErrorIs(t, err, errBoom)
}

type stubWriter struct {
	messages []kafka.Message
	err      error
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *stubWriter) Close() error { return nil }
