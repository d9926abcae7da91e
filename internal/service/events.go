package service

import (
	"context"
	"sync"
	"time"

	"reservation-engine/internal/domain"
	"reservation-engine/internal/logger"
)

const (
	publishTimeout = 10 * time.Second
	queueSize      = 1024
)

type queuedEvent struct {
	ctx   context.Context
	event domain.ReservationEvent
}

// EventEmitter publishes lifecycle events in the background, one at a time
// and in emission order. A failed publish is logged and dropped; it never
// reaches the caller that changed state.
type EventEmitter struct {
	publisher EventPublisher
	queue     chan queuedEvent
	pending   sync.WaitGroup
	done      chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewEventEmitter starts the delivery worker. Call Close to stop it.
func NewEventEmitter(publisher EventPublisher) *EventEmitter {
	e := &EventEmitter{
		publisher: publisher,
		queue:     make(chan queuedEvent, queueSize),
		done:      make(chan struct{}),
	}
	go e.run()
	return e
}

// Emit queues event behind everything emitted before it. When the queue is
// full or the emitter is closed the event is dropped with a warning.
func (e *EventEmitter) Emit(ctx context.Context, event domain.ReservationEvent) {
	if e == nil || e.publisher == nil {
		return
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		logger.Warn("Dropping lifecycle event, emitter closed", "event_type", event.Type, "reservation_id", event.ReservationID)
		return
	}

	e.pending.Add(1)
	select {
	case e.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		e.pending.Done()
		logger.Warn("Dropping lifecycle event, queue full", "event_type", event.Type, "reservation_id", event.ReservationID)
	}
}

func (e *EventEmitter) run() {
	defer close(e.done)
	for qe := range e.queue {
		e.publish(qe)
		e.pending.Done()
	}
}

func (e *EventEmitter) publish(qe queuedEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Event publisher panicked", "event_type", qe.event.Type, "reservation_id", qe.event.ReservationID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(qe.ctx, publishTimeout)
	defer cancel()

	if err := e.publisher.Publish(ctx, qe.event); err != nil {
		logger.Warn("Failed to publish lifecycle event",
			"event_type", qe.event.Type, "reservation_id", qe.event.ReservationID, "error", err)
		return
	}
	logger.Debug("Published lifecycle event", "event_type", qe.event.Type, "reservation_id", qe.event.ReservationID)
}

// Wait blocks until every event queued so far has been handed to the publisher.
func (e *EventEmitter) Wait() {
	if e == nil {
		return
	}
	e.pending.Wait()
}

// Close drains the queue and stops the worker. Later Emits are dropped.
func (e *EventEmitter) Close() {
	if e == nil {
		return
	}
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()
	<-e.done
}
