package domain

import "fmt"

// ContractState is the lifecycle state of a loan contract.
// Active to Repaid and Active to Defaulted are the only legal transitions;
// both terminal states are immutable.
type ContractState string

const (
	StateActive    ContractState = "ACTIVE"
	StateRepaid    ContractState = "REPAID"
	StateDefaulted ContractState = "DEFAULTED"
)

// Schedule selects how installments are computed.
type Schedule string

const (
	// ScheduleAmortizing pays equal principal shares plus interest on the
	// outstanding balance each tick.
	ScheduleAmortizing Schedule = "amortizing"
	// ScheduleInterestOnly pays interest each tick and the full principal
	// as a balloon on the final tick of the term.
	ScheduleInterestOnly Schedule = "interest_only"
)

// LoanContract is one matched loan. Created only by the Market on a
// successful match, owned exclusively by the LoanBook, and mutated only by
// the per-tick settlement pass. Rate is the periodic rate applied to the
// outstanding balance once per tick.
type LoanContract struct {
	ID              string
	BorrowerID      int
	LenderID        int
	Principal       float64
	Rate            float64
	OriginationTick int
	TermTicks       int
	State           ContractState
	Outstanding     float64 // non-increasing while Active
	PrincipalRepaid float64
	InterestPaid    float64
	ResolvedTick    int // tick the contract left Active, -1 while Active
}

// RemainingTicks is how many installments are still owed as of the given
// tick, counting the installment due at that tick.
func (c *LoanContract) RemainingTicks(tick int) int {
	elapsed := tick - c.OriginationTick
	if elapsed < 1 {
		elapsed = 1
	}
	remaining := c.TermTicks - elapsed + 1
	if remaining < 1 {
		remaining = 1
	}
	return remaining
}

// Installment is the scheduled obligation for one tick.
type Installment struct {
	PrincipalDue float64
	InterestDue  float64
}

// Total is the cash the borrower owes this tick.
func (i Installment) Total() float64 {
	return i.PrincipalDue + i.InterestDue
}

// ScheduledInstallment computes the obligation due at tick under the given
// schedule. Returns a zero installment for non-Active contracts and for the
// origination tick itself (the first installment falls on the next tick).
func (c *LoanContract) ScheduledInstallment(tick int, schedule Schedule) Installment {
	if c.State != StateActive || tick <= c.OriginationTick {
		return Installment{}
	}
	interest := c.Outstanding * c.Rate
	switch schedule {
	case ScheduleInterestOnly:
		if tick >= c.OriginationTick+c.TermTicks {
			return Installment{PrincipalDue: c.Outstanding, InterestDue: interest}
		}
		return Installment{InterestDue: interest}
	default:
		return Installment{
			PrincipalDue: c.Outstanding / float64(c.RemainingTicks(tick)),
			InterestDue:  interest,
		}
	}
}

// String renders the contract for state dumps.
func (c *LoanContract) String() string {
	return fmt.Sprintf("contract %s b=%d l=%d principal=%.2f rate=%.4f out=%.2f state=%s t0=%d term=%d",
		c.ID, c.BorrowerID, c.LenderID, c.Principal, c.Rate, c.Outstanding, c.State, c.OriginationTick, c.TermTicks)
}
