// Package events provides a publish-subscribe bus for training events.
package events

import (
	"context"
	"sync"

	"github.com/surak-alf/addis-trans/internal/shared"
)

// Handler is a function that handles events.
type Handler func(event shared.Event)

// EventBus delivers events to channel subscribers without blocking and to
// handlers synchronously, in registration order.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[shared.EventType][]chan shared.Event
	handlers    map[shared.EventType][]Handler
	bufferSize  int
	closed      bool
}

// Option configures the EventBus.
type Option func(*EventBus)

// WithBufferSize sets the channel buffer size.
func WithBufferSize(size int) Option {
	return func(eb *EventBus) {
		eb.bufferSize = size
	}
}

// New creates a new EventBus.
func New(opts ...Option) *EventBus {
	eb := &EventBus{
		subscribers: make(map[shared.EventType][]chan shared.Event),
		handlers:    make(map[shared.EventType][]Handler),
		bufferSize:  100,
	}

	for _, opt := range opts {
		opt(eb)
	}

	return eb
}

// Subscribe creates a channel to receive events of the given type.
func (eb *EventBus) Subscribe(eventType shared.EventType) <-chan shared.Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan shared.Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a channel to receive all events.
func (eb *EventBus) SubscribeAll() <-chan shared.Event {
	return eb.Subscribe(shared.EventWildcard)
}

// Unsubscribe removes and closes a subscription channel.
func (eb *EventBus) Unsubscribe(eventType shared.EventType, ch <-chan shared.Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[eventType]
	for i, sub := range subs {
		if (<-chan shared.Event)(sub) == ch {
			eb.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}
}

// On registers a handler for events of the given type.
func (eb *EventBus) On(eventType shared.EventType, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
}

// Off removes every handler registered for the type.
func (eb *EventBus) Off(eventType shared.EventType) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	delete(eb.handlers, eventType)
}

// Emit publishes an event to all subscribers and handlers.
func (eb *EventBus) Emit(event shared.Event) {
	if eb == nil {
		return
	}

	eb.mu.RLock()
	if eb.closed {
		eb.mu.RUnlock()
		return
	}

	// Ensure timestamp
	if event.Timestamp == 0 {
		event.Timestamp = shared.Now()
	}

	for _, eventType := range []shared.EventType{event.Type, shared.EventWildcard} {
		for _, ch := range eb.subscribers[eventType] {
			select {
			case ch <- event:
			default:
				// Channel full, skip (non-blocking)
			}
		}
	}

	handlers := make([]Handler, 0, len(eb.handlers[event.Type])+len(eb.handlers[shared.EventWildcard]))
	handlers = append(handlers, eb.handlers[event.Type]...)
	handlers = append(handlers, eb.handlers[shared.EventWildcard]...)
	eb.mu.RUnlock()

	// Handlers run outside the lock so they may emit or subscribe.
	for _, handler := range handlers {
		handler(event)
	}
}

// EmitWithContext publishes an event with context support.
func (eb *EventBus) EmitWithContext(ctx context.Context, event shared.Event) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		eb.Emit(event)
		return nil
	}
}

// Close closes all subscriber channels and stops the event bus.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, subs := range eb.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}

	eb.subscribers = make(map[shared.EventType][]chan shared.Event)
	eb.handlers = make(map[shared.EventType][]Handler)
}

// ============================================================================
// Helper Functions
// ============================================================================

// EmitTrainingStarted emits a training started event.
func (eb *EventBus) EmitTrainingStarted(runID string, episodes int) {
	eb.Emit(shared.Event{
		Type:      shared.EventTrainingStarted,
		Timestamp: shared.Now(),
		Payload: map[string]interface{}{
			"runId":    runID,
			"episodes": episodes,
		},
	})
}

// EmitEpisodeCompleted emits an episode completed event.
func (eb *EventBus) EmitEpisodeCompleted(runID string, episode int, reward, epsilon float64, steps int) {
	eb.Emit(shared.Event{
		Type:      shared.EventEpisodeCompleted,
		Timestamp: shared.Now(),
		Payload: map[string]interface{}{
			"runId":   runID,
			"episode": episode,
			"reward":  reward,
			"epsilon": epsilon,
			"steps":   steps,
		},
	})
}

// EmitCheckpointSaved emits a checkpoint saved event.
func (eb *EventBus) EmitCheckpointSaved(runID string, episode int, path string) {
	eb.Emit(shared.Event{
		Type:      shared.EventCheckpointSaved,
		Timestamp: shared.Now(),
		Payload: map[string]interface{}{
			"runId":   runID,
			"episode": episode,
			"path":    path,
		},
	})
}

// EmitDispatchFailed emits a dispatch failed event.
func (eb *EventBus) EmitDispatchFailed(vehicleID, routeID string, err error) {
	eb.Emit(shared.Event{
		Type:      shared.EventDispatchFailed,
		Timestamp: shared.Now(),
		Payload: map[string]interface{}{
			"vehicleId": vehicleID,
			"routeId":   routeID,
			"error":     err.Error(),
		},
	})
}

// EmitTrainingCompleted emits a training completed event.
func (eb *EventBus) EmitTrainingCompleted(runID string, episodes int, modelPath string) {
	eb.Emit(shared.Event{
		Type:      shared.EventTrainingCompleted,
		Timestamp: shared.Now(),
		Payload: map[string]interface{}{
			"runId":     runID,
			"episodes":  episodes,
			"modelPath": modelPath,
		},
	})
}

// EmitTrainingFailed emits a training failed event.
func (eb *EventBus) EmitTrainingFailed(runID string, err error) {
	eb.Emit(shared.Event{
		Type:      shared.EventTrainingFailed,
		Timestamp: shared.Now(),
		Payload: map[string]interface{}{
			"runId": runID,
			"error": err.Error(),
		},
	})
}
