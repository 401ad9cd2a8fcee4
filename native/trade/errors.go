package trade

import coreerrors "gridledger/core/errors"

const moduleName = "trade"

var (
	ErrInvalidAmount              = coreerrors.New(moduleName, "InvalidAmount", coreerrors.KindValidation)
	ErrInvalidPrice               = coreerrors.New(moduleName, "InvalidPrice", coreerrors.KindValidation)
	ErrInsufficientBalance        = coreerrors.New(moduleName, "InsufficientBalance", coreerrors.KindValidation)
	ErrOrderExists                = coreerrors.New(moduleName, "OrderExists", coreerrors.KindState)
	ErrOrderNotFound              = coreerrors.New(moduleName, "OrderNotFound", coreerrors.KindResource)
	ErrOrderMismatch              = coreerrors.New(moduleName, "OrderMismatch", coreerrors.KindValidation)
	ErrInvalidOrderStatus         = coreerrors.New(moduleName, "InvalidOrderStatus", coreerrors.KindState)
	ErrTransferVerificationFailed = coreerrors.New(moduleName, "TransferVerificationFailed", coreerrors.KindState)
	ErrUnauthorized               = coreerrors.New(moduleName, "Unauthorized", coreerrors.KindAuthorization)

	errNilState  = coreerrors.New(moduleName, "StateNotConfigured", coreerrors.KindInternal)
	errNilLedger = coreerrors.New(moduleName, "LedgerNotConfigured", coreerrors.KindInternal)
)
