package registry

import (
	"strings"

	"gridledger/crypto"
)

// Role is the marketplace role held by an account.
type Role uint8

const (
	RoleConsumer Role = iota
	RoleProsumer
	RoleGridOperator
	RoleAdmin
)

func (r Role) Valid() bool {
	switch r {
	case RoleConsumer, RoleProsumer, RoleGridOperator, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanRegisterDevices reports whether the role may own delivery devices.
func (r Role) CanRegisterDevices() bool {
	return r == RoleProsumer || r == RoleGridOperator
}

func (r Role) String() string {
	switch r {
	case RoleConsumer:
		return "consumer"
	case RoleProsumer:
		return "prosumer"
	case RoleGridOperator:
		return "grid_operator"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParseRole accepts the lower-case names produced by String.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "consumer":
		return RoleConsumer, nil
	case "prosumer":
		return RoleProsumer, nil
	case "grid_operator", "gridoperator":
		return RoleGridOperator, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, ErrInvalidRole
	}
}

type DeviceType uint8

const (
	DeviceSolarPanel DeviceType = iota
	DeviceBattery
	DeviceSmartMeter
	DeviceOther
)

func (d DeviceType) Valid() bool {
	return d <= DeviceOther
}

func (d DeviceType) String() string {
	switch d {
	case DeviceSolarPanel:
		return "solar_panel"
	case DeviceBattery:
		return "battery"
	case DeviceSmartMeter:
		return "smart_meter"
	case DeviceOther:
		return "other"
	default:
		return "unknown"
	}
}

func ParseDeviceType(s string) (DeviceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "solar_panel", "solarpanel":
		return DeviceSolarPanel, nil
	case "battery":
		return DeviceBattery, nil
	case "smart_meter", "smartmeter":
		return DeviceSmartMeter, nil
	case "other":
		return DeviceOther, nil
	default:
		return 0, ErrInvalidDeviceType
	}
}

// UserProfile is created once per account by RegisterUser.
type UserProfile struct {
	Account         crypto.Address
	Role            Role
	Devices         [][32]byte
	Active          bool
	ReputationScore uint32
	RegisteredAt    uint64
}

func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Devices = append([][32]byte(nil), p.Devices...)
	return &clone
}

type Device struct {
	ID           [32]byte
	Owner        crypto.Address
	Type         DeviceType
	MaxCapacity  uint32
	Active       bool
	RegisteredAt uint64
}
