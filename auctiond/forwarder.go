package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/cloudx-io/assetauction/core"
)

// messageWriter is the subset of *kafka.Writer the forwarder uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// eventSource is the subset of *core.Engine the forwarder reads.
type eventSource interface {
	Subscribe(buffer int) (<-chan core.Event, func())
	Events(fromSeq uint64) []core.Event
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// EventForwarder publishes engine events in sequence order, each exactly once per run
// unless a write fails, in which case it is retried. Missed subscription deliveries
// are recovered from the engine's log.
type EventForwarder struct {
	writer       messageWriter
	source       eventSource
	lastSeq      uint64
	pollInterval time.Duration
}

func NewEventForwarder(writer messageWriter, source eventSource) *EventForwarder {
	return &EventForwarder{writer: writer, source: source, pollInterval: 5 * time.Second}
}

// Run forwards the existing log and then every new event until ctx is done.
func (f *EventForwarder) Run(ctx context.Context) error {
	events, cancel := f.source.Subscribe(64)
	defer cancel()

	f.catchUp(ctx)

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f.catchUp(ctx)
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch {
			case ev.Seq <= f.lastSeq:
			case ev.Seq == f.lastSeq+1:
				if err := f.forward(ctx, ev); err != nil {
					log.Printf("ERROR: Failed to forward event %d: %v", ev.Seq, err)
				}
			default:
				log.Printf("WARNING: Event gap after seq %d (received %d), re-reading log", f.lastSeq, ev.Seq)
				f.catchUp(ctx)
			}
		}
	}
}

// LastSeq returns the sequence number of the last event written.
func (f *EventForwarder) LastSeq() uint64 {
	return f.lastSeq
}

func (f *EventForwarder) catchUp(ctx context.Context) {
	for _, ev := range f.source.Events(f.lastSeq + 1) {
		if err := f.forward(ctx, ev); err != nil {
			log.Printf("ERROR: Failed to forward event %d: %v", ev.Seq, err)
			return
		}
	}
}

func (f *EventForwarder) forward(ctx context.Context, ev core.Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = f.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.AuctionID),
		Value: value,
		Time:  ev.At,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("write event %s: %w", ev.ID, err)
	}
	f.lastSeq = ev.Seq
	return nil
}
