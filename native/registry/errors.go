package registry

import coreerrors "gridledger/core/errors"

const moduleName = "registry"

var (
	ErrUserAlreadyRegistered   = coreerrors.New(moduleName, "UserAlreadyRegistered", coreerrors.KindState)
	ErrUserNotFound            = coreerrors.New(moduleName, "UserNotFound", coreerrors.KindResource)
	ErrUnauthorized            = coreerrors.New(moduleName, "Unauthorized", coreerrors.KindAuthorization)
	ErrDeviceAlreadyRegistered = coreerrors.New(moduleName, "DeviceAlreadyRegistered", coreerrors.KindState)
	ErrDeviceNotFound          = coreerrors.New(moduleName, "DeviceNotFound", coreerrors.KindResource)
	ErrTooManyDevices          = coreerrors.New(moduleName, "TooManyDevices", coreerrors.KindValidation)
	ErrInvalidRole             = coreerrors.New(moduleName, "InvalidRole", coreerrors.KindValidation)
	ErrInvalidDeviceType       = coreerrors.New(moduleName, "InvalidDeviceType", coreerrors.KindValidation)

	errNilState = coreerrors.New(moduleName, "StateNotConfigured", coreerrors.KindInternal)
)
