package amount

import "github.com/shopspring/decimal"

// Batch accumulates same-kind amounts for reconciliation and reporting.
// The zero value is ready to use; an empty batch reports zero everywhere.
type Batch[T Kind] struct {
	total decimal.Decimal
	min   T
	max   T
	count int64
}

func NewBatch[T Kind](items ...T) *Batch[T] {
	b := &Batch[T]{}
	for _, v := range items {
		b.Add(v)
	}
	return b
}

func (b *Batch[T]) Add(v T) {
	if b.count == 0 {
		b.min, b.max = v, v
	} else {
		b.min = Min(b.min, v)
		b.max = Max(b.max, v)
	}
	b.total = b.total.Add(dec(v))
	b.count++
}

func (b *Batch[T]) Total() T {
	return canonical[T](b.total)
}

func (b *Batch[T]) Average() T {
	if b.count == 0 {
		var zero T
		return zero
	}
	return canonical[T](b.total.DivRound(decimal.NewFromInt(b.count), precision[T]()+4))
}

func (b *Batch[T]) Min() T { return b.min }

func (b *Batch[T]) Max() T { return b.max }

func (b *Batch[T]) Count() int64 { return b.count }
