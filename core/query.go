package core

import (
	"github.com/holiman/uint256"

	"gridledger/crypto"
	"gridledger/native/delivery"
	"gridledger/native/pricing"
	"gridledger/native/registry"
	"gridledger/native/settlement"
	"gridledger/native/trade"
)

// Query exposes the read-only operations of every module over committed
// state.
type Query struct {
	mods *modules
}

func (q *Query) Balance(acct crypto.Address) (*uint256.Int, error) {
	return q.mods.token.Balance(acct)
}

func (q *Query) TotalSupply() (*uint256.Int, error) {
	return q.mods.token.TotalSupply()
}

func (q *Query) Profile(acct crypto.Address) (*registry.UserProfile, error) {
	return q.mods.registry.Profile(acct)
}

func (q *Query) Device(id [32]byte) (*registry.Device, error) {
	return q.mods.registry.Device(id)
}

func (q *Query) Order(id [32]byte) (*trade.Order, error) {
	return q.mods.trade.Order(id)
}

func (q *Query) OrdersByAccount(acct crypto.Address) ([]*trade.Order, error) {
	return q.mods.trade.OrdersByAccount(acct)
}

func (q *Query) OpenOrders() ([]*trade.Order, error) {
	return q.mods.trade.OpenOrders()
}

// FindOptimalMatch scores candidates for a stored order without emitting
// anything.
func (q *Query) FindOptimalMatch(orderID [32]byte) (pricing.Match, error) {
	order, err := q.mods.trade.Order(orderID)
	if err != nil {
		return pricing.Match{}, err
	}
	return q.mods.pricing.FindOptimalMatch(order)
}

func (q *Query) CalculateOptimalPrice(location []byte, base *uint256.Int) (*uint256.Int, error) {
	return q.mods.pricing.CalculateOptimalPrice(location, base)
}

func (q *Query) MarketData(location []byte) (*pricing.MarketData, error) {
	return q.mods.pricing.MarketData(location)
}

func (q *Query) GridMetrics(location []byte) (*pricing.GridMetrics, error) {
	return q.mods.pricing.GridMetrics(location)
}

func (q *Query) LocationPriorities(source []byte) ([]pricing.LocationPriority, error) {
	return q.mods.pricing.LocationPriorities(source)
}

func (q *Query) Transfer(orderID [32]byte) (*delivery.Transfer, error) {
	return q.mods.delivery.Transfer(orderID)
}

func (q *Query) Measurements(orderID [32]byte) ([]delivery.Measurement, error) {
	return q.mods.delivery.Measurements(orderID)
}

func (q *Query) Payment(id [32]byte) (*settlement.Payment, error) {
	return q.mods.settlement.Payment(id)
}

func (q *Query) ExchangeRate(from, to string) (*settlement.ExchangeRate, error) {
	return q.mods.settlement.ExchangeRate(from, to)
}

func (q *Query) ConvertAmount(amount *uint256.Int, from, to string) (*uint256.Int, error) {
	return q.mods.settlement.ConvertAmount(amount, from, to)
}
