package settlement

import coreerrors "gridledger/core/errors"

const moduleName = "settlement"

var (
	ErrPaymentNotFound           = coreerrors.New(moduleName, "PaymentNotFound", coreerrors.KindResource)
	ErrPaymentExists             = coreerrors.New(moduleName, "PaymentExists", coreerrors.KindState)
	ErrInvalidPaymentStatus      = coreerrors.New(moduleName, "InvalidPaymentStatus", coreerrors.KindState)
	ErrPaymentMethodNotSupported = coreerrors.New(moduleName, "PaymentMethodNotSupported", coreerrors.KindValidation)
	ErrExchangeRateNotFound      = coreerrors.New(moduleName, "ExchangeRateNotFound", coreerrors.KindExternal)
	ErrExternalPaymentFailed     = coreerrors.New(moduleName, "ExternalPaymentFailed", coreerrors.KindExternal)
	ErrInvalidMethod             = coreerrors.New(moduleName, "InvalidPaymentMethod", coreerrors.KindValidation)

	errNilState  = coreerrors.New(moduleName, "StateNotConfigured", coreerrors.KindInternal)
	errNilLedger = coreerrors.New(moduleName, "LedgerNotConfigured", coreerrors.KindInternal)
	errNilOrders = coreerrors.New(moduleName, "OrderBookNotConfigured", coreerrors.KindInternal)
)
