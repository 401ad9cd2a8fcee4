package core

import coreerrors "gridledger/core/errors"

const moduleName = "core"

var (
	ErrUnknownOp      = coreerrors.New(moduleName, "UnknownOperation", coreerrors.KindValidation)
	ErrInvalidPayload = coreerrors.New(moduleName, "InvalidPayload", coreerrors.KindValidation)
	ErrBadSequence    = coreerrors.New(moduleName, "BadSequence", coreerrors.KindState)
)
