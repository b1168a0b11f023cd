package transaction

import "fmt"

var (
	ErrInvalidMetadata = fmt.Errorf("invalid transaction metadata")
	ErrInvalidStatus   = fmt.Errorf("invalid transaction status")
	ErrSameWallet      = fmt.Errorf("source and destination wallet are the same")
	ErrNotFound        = fmt.Errorf("transaction not found")
)

// MissingFieldError is returned by Build when a required field was never set.
type MissingFieldError struct {
	Field string
	Type  Type
}

func (m *MissingFieldError) Error() string {
	if m.Type == "" {
		return fmt.Sprintf("missing required field: %s", m.Field)
	}
	return fmt.Sprintf("missing required field for %s transaction: %s", m.Type, m.Field)
}
