package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	jsmock "gitlab.com/timkado/api/buyer-lead-crm/internal/jetstream/mock"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/logger"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	original := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = original })
	return logs
}

func sampleEvent() model.LeadEvent {
	return model.LeadEvent{
		Type:       model.V1LeadsUpdated,
		LeadIDs:    []string{"0b7e3c1a-4f6d-4a51-9a43-2f1a5c2e9d10"},
		ActorID:    "user-1",
		Changes:    model.FieldDiff{"notes": {Old: nil, New: "call after 6pm"}},
		OccurredAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestJetStreamPublisher_Subject(t *testing.T) {
	p := NewJetStreamPublisher(nil, "", 0)
	assert.Equal(t, "v1.leads.created", p.Subject(model.V1LeadsCreated))
	assert.Equal(t, "v1.leads.imported", p.Subject(model.V1LeadsImported))

	staging := NewJetStreamPublisher(nil, "staging.leads", 0)
	assert.Equal(t, "staging.leads.deleted", staging.Subject(model.V1LeadsDeleted))
}

func TestJetStreamPublisher_Publish(t *testing.T) {
	observeLogs(t)
	client := new(jsmock.ClientMock)
	p := NewJetStreamPublisher(client, "v1.leads", time.Second)

	var (
		payload []byte
		headers map[string]string
	)
	client.On("Publish", mock.Anything, "v1.leads.updated", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			payload = args.Get(2).([]byte)
			headers = args.Get(3).(map[string]string)
		}).
		Return(nil).Once()

	p.Publish(context.Background(), sampleEvent())

	client.AssertExpectations(t)
	require.NotEmpty(t, headers[nats.MsgIdHdr])
	assert.Equal(t, "application/json", headers["Content-Type"])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "v1.leads.updated", decoded["type"])
	assert.Equal(t, "user-1", decoded["actorId"])
	assert.Equal(t, map[string]any{"old": nil, "new": "call after 6pm"}, decoded["changes"].(map[string]any)["notes"])
}

func TestJetStreamPublisher_PublishSurvivesCanceledRequest(t *testing.T) {
	observeLogs(t)
	client := new(jsmock.ClientMock)
	p := NewJetStreamPublisher(client, "v1.leads", time.Second)

	client.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			assert.NoError(t, args.Get(0).(context.Context).Err())
		}).
		Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Publish(ctx, sampleEvent())

	client.AssertExpectations(t)
}

func TestJetStreamPublisher_FailureIsLoggedNotReturned(t *testing.T) {
	logs := observeLogs(t)
	client := new(jsmock.ClientMock)
	p := NewJetStreamPublisher(client, "v1.leads", time.Second)

	client.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("nats: no responders available for request")).Once()

	p.Publish(context.Background(), sampleEvent())

	entries := logs.FilterMessage("Failed to publish lead event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "v1.leads.updated", entries[0].ContextMap()["event_type"])
}

func TestJetStreamPublisher_UnknownTypeIsNotSent(t *testing.T) {
	logs := observeLogs(t)
	client := new(jsmock.ClientMock)
	p := NewJetStreamPublisher(client, "v1.leads", time.Second)

	event := sampleEvent()
	event.Type = "v1.contacts.updated"
	p.Publish(context.Background(), event)

	client.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1, logs.FilterMessage("Failed to publish lead event").Len())
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NotPanics(t, func() { p.Publish(context.Background(), sampleEvent()) })
}
