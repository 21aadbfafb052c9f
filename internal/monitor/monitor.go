// Package monitor owns the event loop: it drives raw engine events
// through classification, the dedup window, formatting, and webhook
// delivery, strictly one event at a time in arrival order.
package monitor

import (
	"context"

	"go.uber.org/zap"

	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/dedup"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/discord"
	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/event"
)

// Source is the subscription side of the engine event stream.
type Source interface {
	Subscribe(ctx context.Context) (<-chan event.Raw, <-chan error)
}

// Deliverer posts formatted payloads to the webhook.
type Deliverer interface {
	Deliver(ctx context.Context, payload discord.Payload) error
	DeliverBestEffort(payload discord.Payload)
}

// Monitor is the pipeline orchestrator. It owns the dedup window and
// the subscription lifecycle, including startup/shutdown notices.
type Monitor struct {
	logger    *zap.Logger
	source    Source
	deliverer Deliverer
	formatter *discord.Formatter
	window    *dedup.Window
}

// New creates a Monitor.
func New(logger *zap.Logger, source Source, deliverer Deliverer, formatter *discord.Formatter, window *dedup.Window) *Monitor {
	return &Monitor{
		logger:    logger.Named("monitor"),
		source:    source,
		deliverer: deliverer,
		formatter: formatter,
		window:    window,
	}
}

// Run blocks until the context is cancelled (clean shutdown, returns
// nil after a best-effort shutdown notice) or the event stream faults
// (returns the fault). Delivery failures for individual events are
// logged and never abort the loop.
func (m *Monitor) Run(ctx context.Context) error {
	// Startup notice is best-effort: a failure is logged but must not
	// abort monitoring.
	if err := m.deliverer.Deliver(ctx, m.formatter.Startup()); err != nil {
		m.logger.Error("Failed to send startup notification", zap.Error(err))
	} else {
		m.logger.Info("Startup notification sent")
	}

	events, faults := m.source.Subscribe(ctx)
	m.logger.Info("Monitoring container events")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Monitoring stopped by user")
			m.deliverer.DeliverBestEffort(m.formatter.Shutdown())
			return nil
		case err := <-faults:
			m.logger.Error("Event stream fault", zap.Error(err))
			return err
		case raw, ok := <-events:
			if !ok {
				return m.streamClosed(faults)
			}
			m.process(ctx, raw)
		}
	}
}

// streamClosed resolves a closed event channel: a pending fault wins,
// then context cancellation, otherwise the closure itself is the fault.
func (m *Monitor) streamClosed(faults <-chan error) error {
	select {
	case err := <-faults:
		m.logger.Error("Event stream fault", zap.Error(err))
		return err
	default:
	}
	m.logger.Info("Event stream closed")
	m.deliverer.DeliverBestEffort(m.formatter.Shutdown())
	return nil
}

// process runs one raw event through the pipeline. Panics are
// contained: one malformed event must not take down monitoring of the
// rest.
func (m *Monitor) process(ctx context.Context, raw event.Raw) {
	defer func() {
		if r := recover(); r != nil {
			eventsProcessed.WithLabelValues("failed").Inc()
			m.logger.Error("Panic while processing event",
				zap.Any("panic", r),
				zap.String("action", raw.Action),
			)
		}
	}()

	ev, ok := event.Classify(raw)
	if !ok {
		eventsProcessed.WithLabelValues("skipped").Inc()
		return
	}

	key := dedup.Key{Entity: ev.Entity, Kind: ev.Kind}
	if m.window.Observe(key, ev.OccurredAt) {
		eventsProcessed.WithLabelValues("suppressed").Inc()
		m.logger.Debug("Suppressed duplicate event",
			zap.String("container", ev.Entity),
			zap.String("kind", string(ev.Kind)),
		)
		return
	}

	m.logger.Info("Container event",
		zap.String("kind", string(ev.Kind)),
		zap.String("container", ev.Entity),
		zap.String("service", ev.Service),
	)

	if err := m.deliverer.Deliver(ctx, m.formatter.Event(ev)); err != nil {
		eventsProcessed.WithLabelValues("failed").Inc()
		m.logger.Error("Webhook delivery failed",
			zap.String("kind", string(ev.Kind)),
			zap.String("container", ev.Entity),
			zap.Error(err),
		)
		return
	}
	eventsProcessed.WithLabelValues("delivered").Inc()
}
