package transaction

import (
	"fmt"
	"strings"
	"time"

	"github.com/degentalk/dgt-ledger/internal/amount"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
)

// Builder assembles a Transaction. Chain methods only record configuration;
// Build is the single place where validation happens and output is produced.
// A Builder may be rebuilt: without changes it emits the same shape again,
// which lets callers keep a template and override only metadata.
type Builder struct {
	txType   Type
	amount   *amount.DGT
	fee      amount.Fee
	from     uuid.NullUUID
	to       uuid.NullUUID
	status   Status
	metadata map[string]any
	usd      *amount.USD
	rate     *amount.Rate
	now      func() time.Time

	// errors raised while an intent helper was configuring the builder,
	// surfaced by Build
	errs []error
}

func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// WithClock replaces the build-time clock.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) OfType(t Type) *Builder {
	b.txType = t
	return b
}

func (b *Builder) WithAmount(a amount.DGT) *Builder {
	b.amount = &a
	return b
}

func (b *Builder) FromWallet(id uuid.UUID) *Builder {
	b.from = uuid.NullUUID{UUID: id, Valid: true}
	return b
}

func (b *Builder) ToWallet(id uuid.UUID) *Builder {
	b.to = uuid.NullUUID{UUID: id, Valid: true}
	return b
}

func (b *Builder) WithFee(f amount.Fee) *Builder {
	b.fee = f
	return b
}

// WithFeePercent charges pct percent of the amount set so far, never less
// than the policy's minimum fee. Call it after the amount or intent.
func (b *Builder) WithFeePercent(p amount.Policy, pct decimal.Decimal) *Builder {
	if b.amount == nil {
		return b.fail(&MissingFieldError{Field: "amount"})
	}
	fee, err := p.CalculateFee(*b.amount, pct)
	if err != nil {
		return b.fail(err)
	}
	return b.WithFee(fee)
}

func (b *Builder) WithStatus(s Status) *Builder {
	b.status = s
	return b
}

// WithMetadata replaces the metadata. The map is copied.
func (b *Builder) WithMetadata(m map[string]any) *Builder {
	b.metadata = copyMap(m)
	return b
}

// WithMetadataField sets a single metadata key, keeping the rest.
func (b *Builder) WithMetadataField(key string, value any) *Builder {
	if b.metadata == nil {
		b.metadata = map[string]any{}
	}
	b.metadata[key] = value
	return b
}

func (b *Builder) WithUSD(v amount.USD) *Builder {
	b.usd = &v
	return b
}

func (b *Builder) WithExchangeRate(r amount.Rate) *Builder {
	b.rate = &r
	return b
}

func (b *Builder) fail(err error) *Builder {
	b.errs = append(b.errs, err)
	return b
}

// Build validates the configuration and returns an immutable Transaction.
func (b *Builder) Build() (Transaction, error) {
	var result *multierror.Error
	for _, err := range b.errs {
		result = multierror.Append(result, err)
	}

	if b.txType == "" {
		result = multierror.Append(result, &MissingFieldError{Field: "type"})
	}
	if b.amount == nil {
		result = multierror.Append(result, &MissingFieldError{Field: "amount", Type: b.txType})
	}
	if !b.from.Valid {
		result = multierror.Append(result, &MissingFieldError{Field: "fromWallet", Type: b.txType})
	}
	if b.txType.RequiresDestination() && !b.to.Valid {
		result = multierror.Append(result, &MissingFieldError{Field: "toWallet", Type: b.txType})
	}
	if b.status != "" && !b.status.IsValid() {
		result = multierror.Append(result, fmt.Errorf("%w: %q", ErrInvalidStatus, b.status))
	}
	if b.from.Valid && b.to.Valid && b.from.UUID == b.to.UUID {
		result = multierror.Append(result, ErrSameWallet)
	}
	if b.txType == TypeAdminAdjustment && !hasAudit(b.metadata) {
		result = multierror.Append(result, fmt.Errorf("%w: admin adjustment requires adminId and reason", ErrInvalidMetadata))
	}
	if err := collapse(result); err != nil {
		return Transaction{}, err
	}

	gross := *b.amount
	if amount.IsNegative(gross) {
		return Transaction{}, amount.NewAmountError(amount.ErrInvalidAmount, "build", gross.String())
	}
	if amount.IsNegative(b.fee) {
		return Transaction{}, amount.NewAmountError(amount.ErrInvalidAmount, "build_fee", b.fee.String())
	}
	net, err := amount.Subtract(gross, amount.FeeAsDGT(b.fee))
	if err != nil {
		return Transaction{}, err
	}

	status := b.status
	if status == "" {
		status = StatusPending
	}

	metadata := copyMap(b.metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	if _, ok := metadata[MetadataSourceKey]; !ok {
		metadata[MetadataSourceKey] = string(b.txType)
	}

	tx := Transaction{
		txType:    b.txType,
		amount:    gross,
		fee:       b.fee,
		net:       net,
		from:      b.from.UUID,
		to:        b.to,
		status:    status,
		metadata:  metadata,
		createdAt: b.now().UTC(),
	}
	if b.usd != nil {
		usd := *b.usd
		tx.usd = &usd
	}
	if b.rate != nil {
		rate := *b.rate
		tx.rate = &rate
	}
	return tx, nil
}

// collapse returns a lone error unchanged so callers can match it directly,
// and the aggregate otherwise.
func collapse(result *multierror.Error) error {
	if result == nil || len(result.Errors) == 0 {
		return nil
	}
	if len(result.Errors) == 1 {
		return result.Errors[0]
	}
	return result
}

func hasAudit(m map[string]any) bool {
	reason, _ := m["reason"].(string)
	if strings.TrimSpace(reason) == "" {
		return false
	}
	_, ok := m["adminId"]
	return ok
}
