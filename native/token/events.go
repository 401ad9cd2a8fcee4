package token

import (
	"github.com/holiman/uint256"

	"gridledger/core/events"
	"gridledger/core/types"
	"gridledger/crypto"
)

const (
	EventTypeMinted      = "token.minted"
	EventTypeTransferred = "token.transferred"
)

type Minted struct {
	Account crypto.Address
	Amount  *uint256.Int
	Supply  *uint256.Int
}

func (Minted) EventType() string { return EventTypeMinted }

func (e Minted) Event() *types.Event {
	return &types.Event{Type: EventTypeMinted, Attributes: map[string]string{
		"account": e.Account.String(),
		"amount":  events.FormatAmount(e.Amount),
		"supply":  events.FormatAmount(e.Supply),
	}}
}

type Transferred struct {
	From   crypto.Address
	To     crypto.Address
	Amount *uint256.Int
}

func (Transferred) EventType() string { return EventTypeTransferred }

func (e Transferred) Event() *types.Event {
	return &types.Event{Type: EventTypeTransferred, Attributes: map[string]string{
		"from":   e.From.String(),
		"to":     e.To.String(),
		"amount": events.FormatAmount(e.Amount),
	}}
}
