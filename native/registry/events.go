package registry

import (
	"strconv"

	"gridledger/core/events"
	"gridledger/core/types"
	"gridledger/crypto"
)

const (
	EventTypeUserRegistered   = "registry.user_registered"
	EventTypeUserUpdated      = "registry.user_updated"
	EventTypeDeviceRegistered = "registry.device_registered"
	EventTypeDeviceUpdated    = "registry.device_updated"
)

type registryEvent struct {
	evt *types.Event
}

func (e registryEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e registryEvent) Event() *types.Event { return e.evt }

func newUserEvent(kind string, p *UserProfile) registryEvent {
	return registryEvent{evt: &types.Event{Type: kind, Attributes: map[string]string{
		"account": p.Account.String(),
		"role":    p.Role.String(),
	}}}
}

func newDeviceEvent(kind string, owner crypto.Address, d *Device) registryEvent {
	return registryEvent{evt: &types.Event{Type: kind, Attributes: map[string]string{
		"deviceId": events.FormatID(d.ID),
		"owner":    owner.String(),
		"type":     d.Type.String(),
		"capacity": strconv.FormatUint(uint64(d.MaxCapacity), 10),
		"active":   strconv.FormatBool(d.Active),
	}}}
}
