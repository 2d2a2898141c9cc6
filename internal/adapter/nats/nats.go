// Package nats implements the execution event bus using NATS JetStream.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/rcarraroia/renum/internal/domain/execution"
	"github.com/rcarraroia/renum/internal/port/eventbus"
)

const (
	streamName    = "RENUM"
	subjectPrefix = "executions."
)

// Bus implements eventbus.Bus over a JetStream stream of execution
// lifecycle events.
type Bus struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a NATS connection and ensures the stream exists.
func Connect(ctx context.Context, url string) (*Bus, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{subjectPrefix + ">"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Bus{nc: nc, js: js}, nil
}

// Publish emits an execution event on executions.<status>.
func (b *Bus) Publish(ctx context.Context, ev execution.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := subjectPrefix + string(ev.Status)
	if _, err := b.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe consumes all execution events and delivers them to h.
// Handler errors trigger a NAK so the message is redelivered.
func (b *Bus) Subscribe(ctx context.Context, h eventbus.Handler) (func(), error) {
	consumer, err := b.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subjectPrefix + ">",
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		var ev execution.Event
		if err := json.Unmarshal(msg.Data(), &ev); err != nil {
			slog.Error("malformed execution event", "subject", msg.Subject(), "error", err)
			_ = msg.Term()
			return
		}
		if err := h(ctx, ev); err != nil {
			slog.Error("execution event handler failed", "execution_id", ev.ExecutionID, "error", err)
			if nakErr := msg.Nak(); nakErr != nil {
				slog.Error("nats nak failed", "error", nakErr)
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			slog.Error("nats ack failed", "error", ackErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}
	return cons.Stop, nil
}

// Close shuts down the NATS connection.
func (b *Bus) Close() error {
	b.nc.Close()
	return nil
}
