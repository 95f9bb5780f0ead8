package core

// Snapshot holds the derived ledger aggregates for one view.
// It is recomputed in full from the currently visible record set on
// every delivery; there is no incremental bookkeeping, so redelivering
// the same batch can never drift the totals.
type Snapshot struct {
	IncomeCents  int64
	ExpenseCents int64
	BalanceCents int64
}

// Aggregate reduces a record set to its income/expense/balance totals.
// The empty set yields the zero snapshot. Summation is commutative, so
// the result is independent of record order.
func Aggregate(records []TransactionRecord) Snapshot {
	var s Snapshot
	for _, r := range records {
		switch r.Kind {
		case Income:
			s.IncomeCents += r.Amount.Cents
		case Expense:
			s.ExpenseCents += r.Amount.Cents
		}
	}
	s.BalanceCents = s.IncomeCents - s.ExpenseCents
	return s
}
