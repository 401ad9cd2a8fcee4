package pricing

import (
	"fmt"

	"github.com/holiman/uint256"
)

type kvStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	marketPrefix   = []byte("pricing/market/")
	gridPrefix     = []byte("pricing/grid/")
	priorityPrefix = []byte("pricing/priority/")
)

func prefixed(prefix, loc []byte) []byte {
	return append(append([]byte(nil), prefix...), loc...)
}

type storedPriorities struct {
	Entries []LocationPriority
}

func zeroIfNil(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}

func (e *Engine) loadMarket(loc []byte) (*MarketData, bool, error) {
	if e.state == nil {
		return nil, false, errNilState
	}
	var data MarketData
	ok, err := e.state.KVGet(prefixed(marketPrefix, loc), &data)
	if err != nil {
		return nil, false, fmt.Errorf("pricing: load market: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	data.CurrentPrice = zeroIfNil(data.CurrentPrice)
	data.DailyHigh = zeroIfNil(data.DailyHigh)
	data.DailyLow = zeroIfNil(data.DailyLow)
	data.DailyVolume = zeroIfNil(data.DailyVolume)
	return &data, true, nil
}

func (e *Engine) storeMarket(loc []byte, data *MarketData) error {
	if data.PriceHistory == nil {
		data.PriceHistory = []PricePoint{}
	}
	if err := e.state.KVPut(prefixed(marketPrefix, loc), data); err != nil {
		return fmt.Errorf("pricing: store market: %w", err)
	}
	return nil
}

func (e *Engine) loadGrid(loc []byte) (*GridMetrics, bool, error) {
	if e.state == nil {
		return nil, false, errNilState
	}
	var metrics GridMetrics
	ok, err := e.state.KVGet(prefixed(gridPrefix, loc), &metrics)
	if err != nil {
		return nil, false, fmt.Errorf("pricing: load grid metrics: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &metrics, true, nil
}

func (e *Engine) storeGrid(loc []byte, metrics GridMetrics) error {
	if err := e.state.KVPut(prefixed(gridPrefix, loc), metrics); err != nil {
		return fmt.Errorf("pricing: store grid metrics: %w", err)
	}
	return nil
}

func (e *Engine) loadPriorities(loc []byte) ([]LocationPriority, error) {
	if e.state == nil {
		return nil, errNilState
	}
	var rec storedPriorities
	if _, err := e.state.KVGet(prefixed(priorityPrefix, loc), &rec); err != nil {
		return nil, fmt.Errorf("pricing: load priorities: %w", err)
	}
	return rec.Entries, nil
}

func (e *Engine) storePriorities(loc []byte, entries []LocationPriority) error {
	rec := storedPriorities{Entries: entries}
	if rec.Entries == nil {
		rec.Entries = []LocationPriority{}
	}
	if err := e.state.KVPut(prefixed(priorityPrefix, loc), rec); err != nil {
		return fmt.Errorf("pricing: store priorities: %w", err)
	}
	return nil
}
