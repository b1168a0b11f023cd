package amount

import "fmt"

var (
	ErrValidation      = fmt.Errorf("invalid amount input")
	ErrInvalidAmount   = fmt.Errorf("invalid amount")
	ErrDivisionByZero  = fmt.Errorf("division by zero")
	ErrBelowMinimum    = fmt.Errorf("amount below minimum")
	ErrCeilingExceeded = fmt.Errorf("amount exceeds ceiling")
)

type AmountError struct {
	ErrorObj error
	Op       string
	Value    string
	Other    []error
}

func (a *AmountError) Error() string {
	return a.ErrorObj.Error()
}

func (a *AmountError) Unwrap() error {
	return a.ErrorObj
}

func (a *AmountError) ErrorOut() string {
	return fmt.Sprintf("%v: %v (%v)", a.Op, a.ErrorObj.Error(), a.Value)
}

func NewAmountError(err error, op string, value string, e ...error) *AmountError {
	return &AmountError{
		ErrorObj: err,
		Op:       op,
		Value:    value,
		Other:    e,
	}
}
