package delivery

import coreerrors "gridledger/core/errors"

const moduleName = "delivery"

var (
	ErrTransferNotFound       = coreerrors.New(moduleName, "TransferNotFound", coreerrors.KindResource)
	ErrTransferAlreadyStarted = coreerrors.New(moduleName, "TransferAlreadyStarted", coreerrors.KindState)
	ErrInvalidTransferStatus  = coreerrors.New(moduleName, "InvalidTransferStatus", coreerrors.KindState)

	errNilState    = coreerrors.New(moduleName, "StateNotConfigured", coreerrors.KindInternal)
	errNilVerifier = coreerrors.New(moduleName, "VerifierNotConfigured", coreerrors.KindInternal)
)
