package core

import (
	"gridledger/core/events"
	"gridledger/core/state"
	"gridledger/native/delivery"
	"gridledger/native/pricing"
	"gridledger/native/registry"
	"gridledger/native/settlement"
	"gridledger/native/token"
	"gridledger/native/trade"
)

// modules is one set of engines bound to a single state view. A fresh set is
// built for every transition and every read so engines never share state.
type modules struct {
	token      *token.Engine
	registry   *registry.Engine
	trade      *trade.Engine
	pricing    *pricing.Engine
	delivery   *delivery.Engine
	settlement *settlement.Engine
}

func (p *Processor) bind(mgr *state.Manager, emitter events.Emitter, now uint64) *modules {
	clock := func() uint64 { return now }

	tok := token.NewEngine()
	tok.SetState(mgr)
	tok.SetEmitter(emitter)

	reg := registry.NewEngine()
	reg.SetState(mgr)
	reg.SetEmitter(emitter)
	reg.SetNowFunc(clock)
	reg.SetMaxDevicesPerUser(p.cfg.MaxDevicesPerUser)

	book := trade.NewEngine()
	book.SetState(mgr)
	book.SetLedger(tok)
	book.SetEmitter(emitter)
	book.SetNowFunc(clock)

	price := pricing.NewEngine()
	price.SetState(mgr)
	price.SetOrderBook(book)
	price.SetEmitter(emitter)
	price.SetNowFunc(clock)
	if p.cfg.ScoringWorkers != 0 {
		price.SetScoringWorkers(p.cfg.ScoringWorkers)
	}

	tracker := delivery.NewEngine()
	tracker.SetState(mgr)
	tracker.SetVerifier(book)
	tracker.SetEmitter(emitter)

	settle := settlement.NewEngine()
	settle.SetState(mgr)
	settle.SetLedger(tok)
	settle.SetOrderReader(book)
	settle.SetProofVerifier(p.cfg.ProofVerifier)
	settle.SetEmitter(emitter)
	settle.SetNowFunc(clock)

	return &modules{
		token:      tok,
		registry:   reg,
		trade:      book,
		pricing:    price,
		delivery:   tracker,
		settlement: settle,
	}
}
