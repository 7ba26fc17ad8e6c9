package mqtt

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tphakala/ppewatch/internal/logger"
	"github.com/tphakala/ppewatch/internal/violation"
)

var topicUnsafe = regexp.MustCompile(`[^a-z0-9_-]+`)

// SanitizeTopicSegment lowercases s and replaces MQTT wildcards, separators
// and spaces so it can be used as one topic level.
func SanitizeTopicSegment(s string) string {
	s = topicUnsafe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "unknown"
	}
	return s
}

// Publisher sends one event per violation record.
type Publisher struct {
	client Client
	topic  string
	log    logger.Logger
}

// NewPublisher publishes under baseTopic/<location>.
func NewPublisher(client Client, baseTopic string) *Publisher {
	return &Publisher{
		client: client,
		topic:  strings.TrimSuffix(baseTopic, "/"),
		log:    GetLogger().Module("publisher"),
	}
}

// Topic returns the topic a record is published to.
func (p *Publisher) Topic(r *violation.Record) string {
	return p.topic + "/" + SanitizeTopicSegment(r.Location)
}

// PublishViolations publishes each record. Failures are logged and counted;
// they never block the caller beyond the publish timeout.
func (p *Publisher) PublishViolations(ctx context.Context, records []violation.Record) int {
	if !p.client.IsConnected() {
		p.log.Debug("skipping publish, broker not connected", logger.Int("records", len(records)))
		return 0
	}
	published := 0
	for i := range records {
		payload, err := json.Marshal(NewViolationEvent(&records[i]))
		if err != nil {
			p.log.Error("failed to encode violation event", logger.Error(err))
			continue
		}
		if err := p.client.Publish(ctx, p.Topic(&records[i]), payload); err != nil {
			p.log.Warn("failed to publish violation event",
				logger.Uint64("violation_id", uint64(records[i].ID)), logger.Error(err))
			continue
		}
		published++
	}
	return published
}
