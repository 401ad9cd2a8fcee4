// Package registry records participant profiles and the delivery devices they
// own.
package registry

import (
	"gridledger/core/events"
	"gridledger/crypto"
	"gridledger/native/common"
)

// DefaultMaxDevicesPerUser bounds a profile's device list when no limit is
// configured.
const DefaultMaxDevicesPerUser = 10

const initialReputation = 100

type Engine struct {
	state      kvStore
	emitter    events.Emitter
	nowFn      func() uint64
	maxDevices int
}

func NewEngine() *Engine {
	return &Engine{
		emitter:    events.NoopEmitter{},
		nowFn:      func() uint64 { return 0 },
		maxDevices: DefaultMaxDevicesPerUser,
	}
}

func (e *Engine) SetState(state kvStore) { e.state = state }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc sets the transition clock used for registration timestamps.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return 0 }
		return
	}
	e.nowFn = now
}

// SetMaxDevicesPerUser overrides the per-profile device bound. Non-positive
// values restore the default.
func (e *Engine) SetMaxDevicesPerUser(limit int) {
	if limit <= 0 {
		limit = DefaultMaxDevicesPerUser
	}
	e.maxDevices = limit
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

// DeviceID derives the identifier of a device from its creation fields.
func DeviceID(owner crypto.Address, kind DeviceType, capacity uint32, registeredAt uint64) [32]byte {
	return common.NewEncoder().
		Fixed(owner[:]).
		Uint8(uint8(kind)).
		Uint32(capacity).
		Uint64(registeredAt).
		Sum()
}

func (e *Engine) RegisterUser(caller crypto.Address, role Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	_, exists, err := e.loadProfile(caller)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserAlreadyRegistered
	}
	profile := &UserProfile{
		Account:         caller,
		Role:            role,
		Devices:         [][32]byte{},
		Active:          true,
		ReputationScore: initialReputation,
		RegisteredAt:    e.nowFn(),
	}
	if err := e.storeProfile(profile); err != nil {
		return err
	}
	e.emit(newUserEvent(EventTypeUserRegistered, profile))
	return nil
}

// RegisterDevice adds a device owned by caller and returns its identifier.
// Only prosumers and grid operators may own devices.
func (e *Engine) RegisterDevice(caller crypto.Address, kind DeviceType, capacity uint32) ([32]byte, error) {
	var id [32]byte
	if !kind.Valid() {
		return id, ErrInvalidDeviceType
	}
	profile, ok, err := e.loadProfile(caller)
	if err != nil {
		return id, err
	}
	if !ok {
		return id, ErrUserNotFound
	}
	if !profile.Role.CanRegisterDevices() {
		return id, ErrUnauthorized
	}
	if len(profile.Devices) >= e.maxDevices {
		return id, ErrTooManyDevices
	}
	now := e.nowFn()
	id = DeviceID(caller, kind, capacity, now)
	_, exists, err := e.loadDevice(id)
	if err != nil {
		return id, err
	}
	if exists {
		return id, ErrDeviceAlreadyRegistered
	}
	device := &Device{
		ID:           id,
		Owner:        caller,
		Type:         kind,
		MaxCapacity:  capacity,
		Active:       true,
		RegisteredAt: now,
	}
	profile.Devices = append(profile.Devices, id)
	if err := e.storeDevice(device); err != nil {
		return id, err
	}
	if err := e.storeProfile(profile); err != nil {
		return id, err
	}
	e.emit(newDeviceEvent(EventTypeDeviceRegistered, caller, device))
	return id, nil
}

// UpdateUserRole lets an admin overwrite the role of an existing profile.
func (e *Engine) UpdateUserRole(caller, target crypto.Address, role Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	admin, ok, err := e.loadProfile(caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	if admin.Role != RoleAdmin {
		return ErrUnauthorized
	}
	profile, ok, err := e.loadProfile(target)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	profile.Role = role
	if err := e.storeProfile(profile); err != nil {
		return err
	}
	e.emit(newUserEvent(EventTypeUserUpdated, profile))
	return nil
}

// SetDeviceActive toggles a device. Only the owner may call it.
func (e *Engine) SetDeviceActive(caller crypto.Address, id [32]byte, active bool) error {
	device, ok, err := e.loadDevice(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDeviceNotFound
	}
	if device.Owner != caller {
		return ErrUnauthorized
	}
	device.Active = active
	if err := e.storeDevice(device); err != nil {
		return err
	}
	e.emit(newDeviceEvent(EventTypeDeviceUpdated, caller, device))
	return nil
}

// Profile returns the profile for acct or ErrUserNotFound.
func (e *Engine) Profile(acct crypto.Address) (*UserProfile, error) {
	profile, ok, err := e.loadProfile(acct)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	return profile, nil
}

func (e *Engine) Device(id [32]byte) (*Device, error) {
	device, ok, err := e.loadDevice(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return device, nil
}
