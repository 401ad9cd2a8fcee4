// Package core applies ledger transitions. A transition runs against a
// transactional state view; its writes and events are committed together or
// not at all.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coreerrors "gridledger/core/errors"
	"gridledger/core/events"
	"gridledger/core/state"
	"gridledger/core/types"
	"gridledger/native/common"
	"gridledger/native/settlement"
	"gridledger/observability"
	"gridledger/observability/logging"
	"gridledger/observability/otel"
	"gridledger/storage"
)

var heightKey = []byte("sequencer/height")

// Config carries engine parameters.
type Config struct {
	MaxDevicesPerUser int
	// ScoringWorkers bounds parallel match scoring; zero keeps the engine
	// default.
	ScoringWorkers int
	PausedModules  []string
	ProofVerifier  settlement.ProofVerifier
}

// Processor is the synchronous state-transition function. It is not safe for
// concurrent Apply calls; the Sequencer serialises them.
type Processor struct {
	db      storage.Database
	cfg     Config
	pauses  common.PauseView
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics interface {
		Observe(op, outcome string, d time.Duration)
		RecordEvent(eventType string)
		SetHeight(seq uint64)
	}
}

func NewProcessor(db storage.Database, cfg Config, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		db:      db,
		cfg:     cfg,
		pauses:  common.NewPauseList(cfg.PausedModules),
		logger:  logger.With(slog.String("component", "processor")),
		tracer:  otel.Tracer(),
		metrics: observability.Transitions(),
	}
}

// Height returns the sequence number of the last committed transition.
func (p *Processor) Height() (uint64, error) {
	return readHeight(state.NewManager(p.db))
}

func readHeight(mgr *state.Manager) (uint64, error) {
	var height uint64
	if _, err := mgr.KVGet(heightKey, &height); err != nil {
		return 0, fmt.Errorf("core: read height: %w", err)
	}
	return height, nil
}

// Apply executes tx. On success the state delta, the new height and the
// receipt's events are committed in one batch. On failure nothing is written
// and no events are returned.
func (p *Processor) Apply(ctx context.Context, tx types.Transition) (*types.Receipt, error) {
	start := time.Now()
	_, span := p.tracer.Start(ctx, "transition "+string(tx.Op), trace.WithAttributes(
		attribute.String("op", string(tx.Op)),
		attribute.Int64("seq", int64(tx.Seq)),
	))
	defer span.End()

	receipt, writes, err := p.apply(tx)
	outcome := "ok"
	if err != nil {
		outcome = coreerrors.KindOf(err).String()
		span.RecordError(err)
		span.SetStatus(codes.Error, coreerrors.CodeOf(err))
		p.logger.Info("transition rejected",
			slog.String("op", string(tx.Op)),
			slog.Uint64("seq", tx.Seq),
			slog.String("caller", tx.Caller.String()),
			slog.String("code", coreerrors.CodeOf(err)),
			logging.PayloadAttr(tx.Payload),
			slog.String("error", err.Error()))
	} else {
		for _, evt := range receipt.Events {
			p.metrics.RecordEvent(evt.Type)
		}
		p.metrics.SetHeight(tx.Seq)
		p.logger.Debug("transition applied",
			slog.String("op", string(tx.Op)),
			slog.Uint64("seq", tx.Seq),
			slog.String("caller", tx.Caller.String()),
			slog.Int("events", len(receipt.Events)),
			slog.Int("writes", writes))
	}
	p.metrics.Observe(string(tx.Op), outcome, time.Since(start))
	return receipt, err
}

func (p *Processor) apply(tx types.Transition) (*types.Receipt, int, error) {
	if err := common.Guard(p.pauses, tx.Op.Module()); err != nil {
		return nil, 0, err
	}
	mgr := state.NewManager(p.db)
	height, err := readHeight(mgr)
	if err != nil {
		return nil, 0, err
	}
	if tx.Seq != height+1 {
		return nil, 0, fmt.Errorf("%w: got %d, want %d", ErrBadSequence, tx.Seq, height+1)
	}
	recorder := &events.Recorder{}
	mods := p.bind(mgr, recorder, tx.Timestamp)
	if err := mods.dispatch(tx); err != nil {
		mgr.Discard()
		return nil, 0, err
	}
	if err := mgr.KVPut(heightKey, tx.Seq); err != nil {
		mgr.Discard()
		return nil, 0, err
	}
	writes := mgr.Dirty()
	if err := mgr.Commit(); err != nil {
		mgr.Discard()
		return nil, 0, err
	}
	evts := recorder.Events()
	if evts == nil {
		evts = []types.Event{}
	}
	return &types.Receipt{
		Seq:       tx.Seq,
		Timestamp: tx.Timestamp,
		Caller:    tx.Caller,
		Op:        tx.Op,
		Events:    evts,
	}, writes, nil
}

// Query returns read access to committed state. Callers needing a
// consistent multi-key view should go through Sequencer.View.
func (p *Processor) Query() *Query {
	mgr := state.NewManager(p.db)
	return &Query{mods: p.bind(mgr, events.NoopEmitter{}, 0)}
}
