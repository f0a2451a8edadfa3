package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/apperrors"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/jetstream"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/observer"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/logger"
)

const defaultPublishTimeout = 3 * time.Second

// Publisher announces committed lead mutations. Publishing is best effort:
// implementations log and count failures instead of returning them.
type Publisher interface {
	Publish(ctx context.Context, event model.LeadEvent)
}

// NoopPublisher drops every event. It is used when NATS is disabled.
type NoopPublisher struct{}

// Publish does nothing.
func (NoopPublisher) Publish(context.Context, model.LeadEvent) {}

// JetStreamPublisher publishes lead events as JSON to JetStream.
type JetStreamPublisher struct {
	client        jetstream.ClientInterface
	subjectPrefix string
	timeout       time.Duration
}

// NewJetStreamPublisher creates a publisher writing under subjectPrefix (e.g. "v1.leads").
func NewJetStreamPublisher(client jetstream.ClientInterface, subjectPrefix string, timeout time.Duration) *JetStreamPublisher {
	if subjectPrefix == "" {
		subjectPrefix = jetstream.DefaultSubjectPrefix
	}
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &JetStreamPublisher{client: client, subjectPrefix: subjectPrefix, timeout: timeout}
}

// Subject maps an event type to its subject under the configured prefix,
// e.g. v1.leads.created -> <prefix>.created.
func (p *JetStreamPublisher) Subject(eventType model.EventType) string {
	action := string(eventType)
	if i := strings.LastIndex(action, "."); i >= 0 {
		action = action[i+1:]
	}
	return p.subjectPrefix + "." + action
}

// Publish sends event with a Nats-Msg-Id header so that JetStream drops redeliveries
// of the same event. The request context's cancellation does not abort the publish.
func (p *JetStreamPublisher) Publish(ctx context.Context, event model.LeadEvent) {
	log := logger.FromContext(ctx).With(
		zap.String("event_type", string(event.Type)),
		zap.Strings("lead_ids", event.LeadIDs),
	)

	err := p.publish(ctx, event)
	observer.IncEventPublished(string(event.Type), err)
	if err != nil {
		log.Warn("Failed to publish lead event", zap.Error(err))
		return
	}
	log.Debug("Published lead event")
}

func (p *JetStreamPublisher) publish(ctx context.Context, event model.LeadEvent) error {
	if _, ok := model.MapToBaseEventType(string(event.Type)); !ok {
		return fmt.Errorf("unknown lead event type %q", event.Type)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal lead event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	headers := map[string]string{
		nats.MsgIdHdr:  uuid.NewString(),
		"Content-Type": "application/json",
	}
	if err := p.client.Publish(pubCtx, p.Subject(event.Type), data, headers); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrNATS, err)
	}
	return nil
}
