package bridge

import (
	"context"
	"log"

	"brigade/internal/models"
	"brigade/internal/monitoring"
)

// Database notification channels.
const (
	ChannelOrders       = "kds_order_update"
	ChannelTransactions = "transaction_update"
)

const (
	ordersPayload             = "kds needs to update"
	defaultTransactionPayload = "transaction updated"
)

// Signal is one raw change notification.
type Signal struct {
	Channel string
	Payload string
}

// Source produces change signals until it is closed. The signal channel is
// closed once the source stops.
type Source interface {
	Signals() <-chan Signal
	Close() error
}

// Sink receives translated events.
type Sink interface {
	Publish(ctx context.Context, ev models.Event) error
}

// Bridge turns database change signals into display events.
type Bridge struct {
	source  Source
	sinks   []Sink
	monitor *monitoring.Monitor
}

// New creates a bridge from source to sinks. monitor may be nil.
func New(source Source, monitor *monitoring.Monitor, sinks ...Sink) *Bridge {
	return &Bridge{source: source, sinks: sinks, monitor: monitor}
}

// Translate maps a signal to the event displays receive. Unknown channels are ignored.
func Translate(sig Signal) (models.Event, bool) {
	switch sig.Channel {
	case ChannelOrders:
		return models.Event{Name: models.EventKDSUpdate, Payload: ordersPayload}, true
	case ChannelTransactions:
		payload := sig.Payload
		if payload == "" {
			payload = defaultTransactionPayload
		}
		return models.Event{Name: models.EventTransactionUpdate, Payload: payload}, true
	default:
		return models.Event{}, false
	}
}

// Run forwards signals until ctx is done or the source stops. Sink failures are
// logged and never stop the bridge.
func (b *Bridge) Run(ctx context.Context) error {
	signals := b.source.Signals()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			b.dispatch(ctx, sig)
		}
	}
}

func (b *Bridge) dispatch(ctx context.Context, sig Signal) {
	ev, ok := Translate(sig)
	if !ok {
		log.Printf("Ignoring notification on unknown channel %q", sig.Channel)
		return
	}
	if b.monitor != nil {
		b.monitor.Notifications.WithLabelValues(sig.Channel).Inc()
	}
	for _, sink := range b.sinks {
		if err := sink.Publish(ctx, ev); err != nil {
			log.Printf("Failed to publish %s: %v", ev.Name, err)
		}
	}
}
