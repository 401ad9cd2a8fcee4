package core

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gridledger/core/types"
	"gridledger/crypto"
)

// CommitHook observes committed receipts in sequence order. Hooks run while
// the sequencer lock is held and must not call back into the sequencer.
type CommitHook func(*types.Receipt)

// Sequencer assigns a total order and a timestamp to submitted transitions
// and applies them one at a time.
type Sequencer struct {
	mu     sync.RWMutex
	proc   *Processor
	clock  func() time.Time
	height uint64
	lastTS uint64
	hooks  []CommitHook
}

// NewSequencer resumes from the processor's committed height. A nil clock
// uses time.Now.
func NewSequencer(proc *Processor, clock func() time.Time) (*Sequencer, error) {
	if clock == nil {
		clock = time.Now
	}
	height, err := proc.Height()
	if err != nil {
		return nil, err
	}
	return &Sequencer{proc: proc, clock: clock, height: height}, nil
}

// OnCommit registers a hook for committed receipts.
func (s *Sequencer) OnCommit(hook CommitHook) {
	if hook == nil {
		return
	}
	s.mu.Lock()
	s.hooks = append(s.hooks, hook)
	s.mu.Unlock()
}

// Submit sequences and applies one transition. Timestamps never go
// backwards even if the clock does.
func (s *Sequencer) Submit(ctx context.Context, caller crypto.Address, op types.Op, payload json.RawMessage) (*types.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := uint64(s.clock().Unix())
	if now < s.lastTS {
		now = s.lastTS
	}
	tx := types.Transition{
		Seq:       s.height + 1,
		Timestamp: now,
		Caller:    caller,
		Op:        op,
		Payload:   payload,
	}
	receipt, err := s.proc.Apply(ctx, tx)
	if err != nil {
		return nil, err
	}
	s.height = tx.Seq
	s.lastTS = now
	for _, hook := range s.hooks {
		hook(receipt)
	}
	return receipt, nil
}

// Height returns the last committed sequence number.
func (s *Sequencer) Height() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.height
}

// View runs fn against committed state while no transition is in flight.
func (s *Sequencer) View(fn func(*Query) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.proc.Query())
}
