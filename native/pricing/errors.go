package pricing

import coreerrors "gridledger/core/errors"

const moduleName = "pricing"

var (
	ErrNoMarketData    = coreerrors.New(moduleName, "NoMarketData", coreerrors.KindResource)
	ErrPriceOutOfRange = coreerrors.New(moduleName, "PriceOutOfRange", coreerrors.KindValidation)
	ErrInvalidPrice    = coreerrors.New(moduleName, "InvalidPrice", coreerrors.KindValidation)
	ErrInvalidMetrics  = coreerrors.New(moduleName, "InvalidMetrics", coreerrors.KindValidation)
	ErrNoMatchFound    = coreerrors.New(moduleName, "NoMatchFound", coreerrors.KindResource)

	errNilState     = coreerrors.New(moduleName, "StateNotConfigured", coreerrors.KindInternal)
	errNilOrderBook = coreerrors.New(moduleName, "OrderBookNotConfigured", coreerrors.KindInternal)
)
