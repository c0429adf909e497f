// README: Money value object (cash-on-delivery amounts, smallest currency unit).
package types

type Money struct {
	Amount   int64
	Currency string
}

func (m Money) IsZero() bool { return m.Amount == 0 }
