// Package pricing derives location-adjusted prices from market and grid data
// and scores candidate matches for an order.
package pricing

import (
	"runtime"

	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"gridledger/core/events"
	"gridledger/native/trade"
)

// OrderBook exposes the read-only order scan used for match scoring.
type OrderBook interface {
	Order(id [32]byte) (*trade.Order, error)
	OpenOrders() ([]*trade.Order, error)
}

// parallelScoreThreshold is the candidate count above which scoring fans out
// to a worker group.
const parallelScoreThreshold = 64

type Engine struct {
	state   kvStore
	orders  OrderBook
	emitter events.Emitter
	nowFn   func() uint64
	workers int
}

func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return 0 },
		workers: runtime.GOMAXPROCS(0),
	}
}

func (e *Engine) SetState(state kvStore) { e.state = state }

func (e *Engine) SetOrderBook(orders OrderBook) { e.orders = orders }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return 0 }
		return
	}
	e.nowFn = now
}

// SetScoringWorkers bounds concurrent candidate scoring. Values below one
// force sequential scoring.
func (e *Engine) SetScoringWorkers(n int) { e.workers = n }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

// CalculateOptimalPrice scales base by the location's congestion and loss
// factors and requires the result to lie within the day's range.
func (e *Engine) CalculateOptimalPrice(location []byte, base *uint256.Int) (*uint256.Int, error) {
	market, ok, err := e.loadMarket(location)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoMarketData
	}
	metrics, ok, err := e.loadGrid(location)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoMarketData
	}
	if base == nil {
		base = new(uint256.Int)
	}
	price := saturatingScale(base, metrics.CongestionLevel)
	price = saturatingScale(price, metrics.LossFactor)
	if price.Lt(market.DailyLow) || price.Gt(market.DailyHigh) {
		return nil, ErrPriceOutOfRange
	}
	return price, nil
}

type candidate struct {
	order   *trade.Order
	metrics *GridMetrics
}

// FindOptimalMatch scores every open order of the opposite type with the
// same energy amount and returns the best one. Ties keep the candidate seen
// first in scan order.
func (e *Engine) FindOptimalMatch(order *trade.Order) (Match, error) {
	if e.orders == nil {
		return Match{}, errNilOrderBook
	}
	open, err := e.orders.OpenOrders()
	if err != nil {
		return Match{}, err
	}
	priorities, err := e.loadPriorities(order.Location)
	if err != nil {
		return Match{}, err
	}
	gridCache := make(map[string]*GridMetrics)
	lookup := func(loc []byte) (*GridMetrics, error) {
		if m, ok := gridCache[string(loc)]; ok {
			return m, nil
		}
		m, _, err := e.loadGrid(loc)
		if err != nil {
			return nil, err
		}
		gridCache[string(loc)] = m
		return m, nil
	}
	source, err := lookup(order.Location)
	if err != nil {
		return Match{}, err
	}
	want := order.Type.Opposite()
	var candidates []candidate
	for _, o := range open {
		if o.ID == order.ID || o.Type != want || o.EnergyAmount != order.EnergyAmount {
			continue
		}
		m, err := lookup(o.Location)
		if err != nil {
			return Match{}, err
		}
		candidates = append(candidates, candidate{order: o, metrics: m})
	}
	if len(candidates) == 0 {
		return Match{}, ErrNoMatchFound
	}

	scores := make([]uint32, len(candidates))
	score := func(i int) {
		c := candidates[i]
		scores[i] = locationScore(c.order.Location, priorities) +
			priceScore(order.PricePerUnit, c.order.PricePerUnit) +
			gridScore(source, c.metrics)
	}
	if e.workers > 1 && len(candidates) >= parallelScoreThreshold {
		g := new(errgroup.Group)
		g.SetLimit(e.workers)
		for i := range candidates {
			i := i
			g.Go(func() error {
				score(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Match{}, err
		}
	} else {
		for i := range candidates {
			score(i)
		}
	}

	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	winner := candidates[best].order
	return Match{OrderID: winner.ID, PricePerUnit: winner.PricePerUnit.Clone(), Score: scores[best]}, nil
}

// SuggestMatch runs FindOptimalMatch for a stored order and announces the
// result. Orders are left untouched.
func (e *Engine) SuggestMatch(orderID [32]byte) (Match, error) {
	if e.orders == nil {
		return Match{}, errNilOrderBook
	}
	order, err := e.orders.Order(orderID)
	if err != nil {
		return Match{}, err
	}
	match, err := e.FindOptimalMatch(order)
	if err != nil {
		return Match{}, err
	}
	e.emit(newMatchFoundEvent(orderID, match))
	return match, nil
}

// UpdateMarketData records a price observation for location.
func (e *Engine) UpdateMarketData(location []byte, price, volume *uint256.Int) error {
	if price == nil || price.IsZero() {
		return ErrInvalidPrice
	}
	if volume == nil {
		volume = new(uint256.Int)
	}
	data, ok, err := e.loadMarket(location)
	if err != nil {
		return err
	}
	if !ok {
		// Volume starts empty; the sum below counts this update's volume once.
		data = &MarketData{
			CurrentPrice: price.Clone(),
			DailyHigh:    price.Clone(),
			DailyLow:     price.Clone(),
			DailyVolume:  new(uint256.Int),
		}
	}
	data.CurrentPrice = price.Clone()
	if price.Gt(data.DailyHigh) {
		data.DailyHigh = price.Clone()
	}
	if price.Lt(data.DailyLow) {
		data.DailyLow = price.Clone()
	}
	sum, overflow := new(uint256.Int).AddOverflow(data.DailyVolume, volume)
	if overflow {
		sum.SetAllOne()
	}
	data.DailyVolume = sum
	data.PriceHistory = append(data.PriceHistory, PricePoint{
		Price:     price.Clone(),
		Timestamp: e.nowFn(),
		Volume:    volume.Clone(),
	})
	if over := len(data.PriceHistory) - MaxPriceHistory; over > 0 {
		data.PriceHistory = append([]PricePoint(nil), data.PriceHistory[over:]...)
	}
	if err := e.storeMarket(location, data); err != nil {
		return err
	}
	e.emit(newPriceUpdatedEvent(location, price))
	return nil
}

// UpdateGridMetrics overwrites the metrics for location.
func (e *Engine) UpdateGridMetrics(location []byte, metrics GridMetrics) error {
	if err := metrics.Validate(); err != nil {
		return err
	}
	if e.state == nil {
		return errNilState
	}
	if err := e.storeGrid(location, metrics); err != nil {
		return err
	}
	e.emit(newGridMetricsEvent(location, metrics))
	return nil
}

// UpdateLocationPriorities replaces the priority list of source.
func (e *Engine) UpdateLocationPriorities(source []byte, priorities []LocationPriority) error {
	for _, p := range priorities {
		if p.Priority > MaxMetric || p.DistanceFactor > MaxMetric {
			return ErrInvalidMetrics
		}
	}
	if e.state == nil {
		return errNilState
	}
	if err := e.storePriorities(source, priorities); err != nil {
		return err
	}
	e.emit(newPrioritiesEvent(source, len(priorities)))
	return nil
}

func (e *Engine) MarketData(location []byte) (*MarketData, error) {
	data, ok, err := e.loadMarket(location)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoMarketData
	}
	return data, nil
}

func (e *Engine) GridMetrics(location []byte) (*GridMetrics, error) {
	metrics, ok, err := e.loadGrid(location)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoMarketData
	}
	return metrics, nil
}

func (e *Engine) LocationPriorities(source []byte) ([]LocationPriority, error) {
	return e.loadPriorities(source)
}
