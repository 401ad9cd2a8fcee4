package token

import coreerrors "gridledger/core/errors"

const moduleName = "token"

var (
	ErrInsufficientBalance = coreerrors.New(moduleName, "InsufficientBalance", coreerrors.KindValidation)
	ErrOverflow            = coreerrors.New(moduleName, "Overflow", coreerrors.KindArithmetic)
	ErrInvalidAmount       = coreerrors.New(moduleName, "InvalidAmount", coreerrors.KindValidation)

	errNilState = coreerrors.New(moduleName, "StateNotConfigured", coreerrors.KindInternal)
)
