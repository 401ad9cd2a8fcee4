package registry

import (
	"fmt"

	"gridledger/crypto"
)

type kvStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	profilePrefix = []byte("registry/profile/")
	devicePrefix  = []byte("registry/device/")
)

func profileKey(acct crypto.Address) []byte {
	return append(append([]byte(nil), profilePrefix...), acct[:]...)
}

func deviceKey(id [32]byte) []byte {
	return append(append([]byte(nil), devicePrefix...), id[:]...)
}

type storedProfile struct {
	Account         [20]byte
	Role            uint8
	Devices         [][32]byte
	Active          bool
	ReputationScore uint32
	RegisteredAt    uint64
}

type storedDevice struct {
	ID           [32]byte
	Owner        [20]byte
	Type         uint8
	MaxCapacity  uint32
	Active       bool
	RegisteredAt uint64
}

func (e *Engine) loadProfile(acct crypto.Address) (*UserProfile, bool, error) {
	if e.state == nil {
		return nil, false, errNilState
	}
	var rec storedProfile
	ok, err := e.state.KVGet(profileKey(acct), &rec)
	if err != nil {
		return nil, false, fmt.Errorf("registry: load profile: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &UserProfile{
		Account:         crypto.Address(rec.Account),
		Role:            Role(rec.Role),
		Devices:         rec.Devices,
		Active:          rec.Active,
		ReputationScore: rec.ReputationScore,
		RegisteredAt:    rec.RegisteredAt,
	}, true, nil
}

func (e *Engine) storeProfile(p *UserProfile) error {
	rec := storedProfile{
		Account:         p.Account,
		Role:            uint8(p.Role),
		Devices:         p.Devices,
		Active:          p.Active,
		ReputationScore: p.ReputationScore,
		RegisteredAt:    p.RegisteredAt,
	}
	if rec.Devices == nil {
		rec.Devices = [][32]byte{}
	}
	if err := e.state.KVPut(profileKey(p.Account), rec); err != nil {
		return fmt.Errorf("registry: store profile: %w", err)
	}
	return nil
}

func (e *Engine) loadDevice(id [32]byte) (*Device, bool, error) {
	if e.state == nil {
		return nil, false, errNilState
	}
	var rec storedDevice
	ok, err := e.state.KVGet(deviceKey(id), &rec)
	if err != nil {
		return nil, false, fmt.Errorf("registry: load device: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Device{
		ID:           rec.ID,
		Owner:        crypto.Address(rec.Owner),
		Type:         DeviceType(rec.Type),
		MaxCapacity:  rec.MaxCapacity,
		Active:       rec.Active,
		RegisteredAt: rec.RegisteredAt,
	}, true, nil
}

func (e *Engine) storeDevice(d *Device) error {
	rec := storedDevice{
		ID:           d.ID,
		Owner:        d.Owner,
		Type:         uint8(d.Type),
		MaxCapacity:  d.MaxCapacity,
		Active:       d.Active,
		RegisteredAt: d.RegisteredAt,
	}
	if err := e.state.KVPut(deviceKey(d.ID), rec); err != nil {
		return fmt.Errorf("registry: store device: %w", err)
	}
	return nil
}
