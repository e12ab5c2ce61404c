package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"soxguard/internal/broker"
	"soxguard/internal/config"
	"soxguard/internal/constants"
	"soxguard/internal/logger"
	"soxguard/pkg/models"
)

func testEvent() models.CloudEvent {
	built, err := NewBuilder("", 0).ToCloudEvent(EventContext{
		EventID:            "evt-1",
		Time:               fixedTime,
		TransactionID:      "tx-1",
		Validation:         pairResult(),
		SourcePayload:      models.Object(nil),
		DestinationPayload: models.Object(nil),
	})
	if err != nil {
		panic(err)
	}
	return built.Event
}

func TestHTTPTransport_Accepted(t *testing.T) {
	var (
		gotContentType string
		gotAuth        string
		gotEvent       models.CloudEvent
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotEvent)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.Client(), server.URL, "secret")
	ack, err := transport.Send(context.Background(), testEvent())
	require.NoError(t, err)

	assert.Equal(t, StatusAccepted, ack.Status)
	assert.Contains(t, ack.Message, "202")
	assert.Equal(t, models.ContentTypeCloudEvent, gotContentType)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "evt-1", gotEvent.ID)
	assert.Equal(t, "tx-1", gotEvent.Data.TransactionID)
}

func TestHTTPTransport_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		http.Error(w, "missing scope storage:events:write", http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewHTTPTransport(server.Client(), server.URL, "").Send(context.Background(), testEvent())
	require.Error(t, err)

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusForbidden, terr.StatusCode)
	assert.Contains(t, err.Error(), "storage:events:write")
}

func TestHTTPTransport_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewHTTPTransport(nil, url, "").Send(context.Background(), testEvent())
	assert.Error(t, err)
}

type capturingProducer struct {
	msgs  []broker.Message
	err   error
	calls int
}

func (p *capturingProducer) Publish(_ context.Context, msg broker.Message) error {
	p.calls++
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *capturingProducer) Close() error {
	return nil
}

func TestKafkaTransport_Publishes(t *testing.T) {
	producer := &capturingProducer{}
	transport := NewKafkaTransport(producer, "")

	ack, err := transport.Send(context.Background(), testEvent())
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, ack.Status)

	require.Len(t, producer.msgs, 1)
	msg := producer.msgs[0]
	assert.Equal(t, constants.DefaultOutputTopic, msg.Topic)
	assert.Equal(t, "tx-1", msg.Key)
	assert.Equal(t, models.ContentTypeCloudEvent, msg.Headers[HeaderContentType])
	assert.Equal(t, models.EventTypeOK, msg.Headers[HeaderEventType])

	var decoded models.CloudEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "evt-1", decoded.ID)
}

func TestKafkaTransport_PublishError(t *testing.T) {
	transport := NewKafkaTransport(&capturingProducer{err: errors.New("leader not available")}, "events")
	_, err := transport.Send(context.Background(), testEvent())
	assert.EqualError(t, err, "leader not available")
}

func TestCreateBusinessEvent_KafkaFailureIsNotRetried(t *testing.T) {
	producer := &capturingProducer{err: errors.New("leader not available")}
	e := newTestEmitter(NewKafkaTransport(producer, "events"), time.Second)

	result := e.CreateBusinessEvent(context.Background(), simpleRequest())

	assert.False(t, result.Success)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, 1, producer.calls)
}

func TestLogTransport(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	transport := NewLogTransport(logger.NewWithCore(core, constants.ServiceName))

	ack, err := transport.Send(context.Background(), testEvent())
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, ack.Status)

	entries := logs.FilterMessage("Business event (dry run)").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "evt-1", entries[0].ContextMap()["event_id"])
}

func TestNewTransport(t *testing.T) {
	tests := []struct {
		name     string
		events   config.EventsConfig
		producer broker.Producer
		wantName string
		wantErr  bool
	}{
		{name: "log", events: config.EventsConfig{Transport: "log"}, wantName: constants.TransportLog},
		{name: "default", events: config.EventsConfig{}, wantName: constants.TransportLog},
		{name: "http", events: config.EventsConfig{Transport: "http", HTTP: config.HTTPTransportConfig{Endpoint: "http://ingest"}}, wantName: constants.TransportHTTP},
		{name: "kafka", events: config.EventsConfig{Transport: "kafka"}, producer: &capturingProducer{}, wantName: constants.TransportKafka},
		{name: "kafka without producer", events: config.EventsConfig{Transport: "kafka"}, wantErr: true},
		{name: "breaker keeps name", events: config.EventsConfig{Transport: "log", CircuitBreaker: true}, wantName: constants.TransportLog},
		{name: "unknown", events: config.EventsConfig{Transport: "smtp"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport, err := NewTransport(&config.Config{Events: tt.events}, tt.producer, logger.NopLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, transport.Name())
			if tt.events.CircuitBreaker {
				assert.IsType(t, &CircuitBreakerTransport{}, transport)
			}
		})
	}
}
