package service

// Allocation splits one payment between the plate's prior debt and the current fee.
type Allocation struct {
	TotalDue         int64
	AppliedToPrior   int64
	AppliedToCurrent int64
	Remaining        int64
	Overpayment      int64
}

// Allocate applies paid to priorBalance first and the rest to fee. Inputs must be
// non-negative.
func Allocate(fee, priorBalance, paid int64) Allocation {
	a := Allocation{TotalDue: fee + priorBalance}
	if paid >= a.TotalDue {
		a.AppliedToPrior = priorBalance
		a.AppliedToCurrent = fee
		a.Overpayment = paid - a.TotalDue
		return a
	}
	a.AppliedToPrior = min(paid, priorBalance)
	a.AppliedToCurrent = paid - a.AppliedToPrior
	a.Remaining = a.TotalDue - paid
	return a
}

// CurrentBalance is what stays owed on the session being closed.
func (a Allocation) CurrentBalance(fee int64) int64 {
	return max(0, fee-a.AppliedToCurrent)
}
