package settlement

import (
	"strings"

	"github.com/holiman/uint256"

	"gridledger/crypto"
)

type PaymentMethod uint8

const (
	MethodNative PaymentMethod = iota
	MethodFiat
	MethodStablecoin
	MethodExternalToken
)

func (m PaymentMethod) Valid() bool { return m <= MethodExternalToken }

// External reports whether settlement happens outside the token ledger.
func (m PaymentMethod) External() bool {
	return m == MethodFiat || m == MethodStablecoin || m == MethodExternalToken
}

func (m PaymentMethod) String() string {
	switch m {
	case MethodNative:
		return "native"
	case MethodFiat:
		return "fiat"
	case MethodStablecoin:
		return "stablecoin"
	case MethodExternalToken:
		return "external_token"
	default:
		return "unknown"
	}
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "native":
		return MethodNative, nil
	case "fiat":
		return MethodFiat, nil
	case "stablecoin":
		return MethodStablecoin, nil
	case "external_token", "externaltoken":
		return MethodExternalToken, nil
	default:
		return 0, ErrInvalidMethod
	}
}

type PaymentStatus uint8

const (
	PaymentPending PaymentStatus = iota
	PaymentProcessing
	PaymentCompleted
	PaymentFailed
	PaymentRefunded
)

func (s PaymentStatus) Valid() bool { return s <= PaymentRefunded }

func (s PaymentStatus) String() string {
	switch s {
	case PaymentPending:
		return "pending"
	case PaymentProcessing:
		return "processing"
	case PaymentCompleted:
		return "completed"
	case PaymentFailed:
		return "failed"
	case PaymentRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// Payment snapshots the payee and amount of an order when it is created. The
// snapshot is never reconciled with later order changes.
type Payment struct {
	ID          [32]byte
	OrderID     [32]byte
	Payer       crypto.Address
	Payee       crypto.Address
	Amount      *uint256.Int
	Method      PaymentMethod
	Status      PaymentStatus
	ExternalRef []byte
	HasRef      bool
	Timestamp   uint64
}

type ExchangeRate struct {
	From      string
	To        string
	Rate      *uint256.Int
	Timestamp uint64
}
