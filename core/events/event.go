package events

import "gridledger/core/types"

// Event represents a structured state change emitted by a ledger module.
type Event interface {
	EventType() string
}

// Payload is implemented by events that can render themselves into the
// canonical attribute form stored in receipts.
type Payload interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Recorder buffers events in emission order. The transition processor hands a
// fresh recorder to every module for the duration of one transition.
type Recorder struct {
	events []types.Event
}

// Emit implements the Emitter interface. Events without a canonical payload
// are dropped.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	payload, ok := evt.(Payload)
	if !ok {
		return
	}
	if rendered := payload.Event(); rendered != nil {
		r.events = append(r.events, *rendered)
	}
}

// Events returns the buffered events.
func (r *Recorder) Events() []types.Event {
	if r == nil {
		return nil
	}
	out := make([]types.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset clears the buffer.
func (r *Recorder) Reset() { r.events = nil }
