// Package events publishes automation run summaries to NATS so other
// systems can react to completed publish runs. Publishing is best-effort:
// a nil publisher or connection degrades to a no-op.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/draftmill/draftmill/automation"
)

// Publisher emits run events on a subject under the configured prefix.
type Publisher struct {
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
}

// Connect dials NATS and returns a Publisher. An empty URL returns a nil
// Publisher, which every method treats as a no-op.
func Connect(url, subjectPrefix string, logger *slog.Logger) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if subjectPrefix == "" {
		subjectPrefix = "draftmill.runs"
	}

	nc, err := nats.Connect(url,
		nats.Name("draftmill"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &Publisher{nc: nc, prefix: subjectPrefix, logger: logger}, nil
}

// PublishRun emits one completed-run event on <prefix>.completed.
func (p *Publisher) PublishRun(_ context.Context, event automation.RunEvent) error {
	if p == nil || p.nc == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}
	subject := p.prefix + ".completed"
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}
	return nil
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("NATS drain failed", "error", err)
	}
}
