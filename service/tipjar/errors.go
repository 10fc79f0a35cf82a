package tipjar

import "errors"

// Kind classifies why a send was refused or failed. Every kind is recoverable.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindAccount       Kind = "account"
	KindValidation    Kind = "validation"
	KindResource      Kind = "resource"
	KindTransport     Kind = "transport"
	KindBusy          Kind = "busy"
)

// TipError carries the message shown to the user and the underlying cause.
type TipError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *TipError) Error() string {
	return e.Message
}

func (e *TipError) Unwrap() error {
	return e.Err
}

func newTipError(kind Kind, msg string, err error) *TipError {
	return &TipError{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of a TipError, or KindTransport for anything else.
func KindOf(err error) Kind {
	var te *TipError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindTransport
}

var (
	ErrNoCoins  = errors.New("no coins found")
	ErrNoFields = errors.New("tip jar object has no field data")
)

// InsufficientBalanceError is returned by SelectCoin when no single coin covers the tip.
type InsufficientBalanceError struct {
	Required uint64
	Largest  CoinRecord
}

func (e *InsufficientBalanceError) Error() string {
	return "insufficient balance: largest coin has " + FormatSUI(e.Largest.Balance, 4)
}
