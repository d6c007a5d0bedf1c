package sim

// The LoanBook is the single owner of every LoanContract and the only place
// agent capital moves. Originate and Settle are called once per tick by the
// scheduler; everything else is read-only queries. After every settlement
// pass the book re-checks its invariants (capital conservation, monotonic
// contract state, no over-lending) and a violation is fatal: it means a
// logic defect, and is surfaced with a full state dump instead of being
// silently corrected.

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/alejandrodnm/lendsim/internal/domain"
	"github.com/google/uuid"
)

// SettleStats summarizes one settlement pass for the metrics snapshot.
type SettleStats struct {
	Repaid    int
	Defaulted int
}

// LoanBook owns contracts and the capital of every agent.
type LoanBook struct {
	agents   map[int]*domain.Agent
	agentIDs []int // ascending, fixed iteration order

	contracts map[string]*domain.LoanContract
	order     []string // contract ids in origination order
	schedule  domain.Schedule

	// Conservation baseline and accounted flows. Total agent cash can only
	// move away from initialCash through these, all logged.
	initialCash       float64
	initialCollateral float64
	cumIncome         float64
	cumInterest       float64
	cumLosses         float64
	cumRecovered      float64 // collateral liquidated into lender cash
	cumPrincipalOut   float64 // repaid principal, across all contracts
	originatedSum     float64

	originated int
	repaid     int
	defaulted  int
	dropped    int
}

// NewLoanBook registers the population and records the conservation
// baseline from its initial capital.
func NewLoanBook(agents []*domain.Agent, schedule domain.Schedule) *LoanBook {
	b := &LoanBook{
		agents:    make(map[int]*domain.Agent, len(agents)),
		contracts: make(map[string]*domain.LoanContract),
		schedule:  schedule,
	}
	for _, a := range agents {
		b.agents[a.ID] = a
		b.agentIDs = append(b.agentIDs, a.ID)
		b.initialCash += a.Capital
		b.initialCollateral += a.Collateral
	}
	sort.Ints(b.agentIDs)
	return b
}

// Originate turns the market's matches into contracts and moves principal
// from lender to borrower. A match exceeding the lender's remaining capital
// is dropped and counted: the lender's other offers already consumed it.
func (b *LoanBook) Originate(matches []Match, termTicks int) []string {
	created := make([]string, 0, len(matches))
	for _, m := range matches {
		lender := b.agents[m.LenderID]
		borrower := b.agents[m.BorrowerID]
		if lender == nil || borrower == nil {
			b.dropped++
			slog.Warn("loanbook: match references unknown agent",
				"lender", m.LenderID, "borrower", m.BorrowerID)
			continue
		}
		if lender.Capital < m.Principal {
			b.dropped++
			slog.Warn("loanbook: lender capital short of matched principal",
				"lender", m.LenderID, "capital", lender.Capital, "principal", m.Principal)
			continue
		}

		c := &domain.LoanContract{
			ID:              uuid.New().String(),
			BorrowerID:      m.BorrowerID,
			LenderID:        m.LenderID,
			Principal:       m.Principal,
			Rate:            m.Rate,
			OriginationTick: m.Tick,
			TermTicks:       termTicks,
			State:           domain.StateActive,
			Outstanding:     m.Principal,
			ResolvedTick:    -1,
		}
		lender.Debit(m.Principal)
		borrower.Credit(m.Principal)
		b.contracts[c.ID] = c
		b.order = append(b.order, c.ID)
		b.originated++
		b.originatedSum += m.Principal
		created = append(created, c.ID)
	}
	return created
}

// ObligationsFor lists the installments a borrower owes at the given tick,
// in origination order. Contracts originated this very tick owe nothing
// yet; their first installment falls on the next tick.
func (b *LoanBook) ObligationsFor(borrowerID, tick int) []Obligation {
	var obs []Obligation
	for _, id := range b.order {
		c := b.contracts[id]
		if c.BorrowerID != borrowerID || c.State != domain.StateActive {
			continue
		}
		inst := c.ScheduledInstallment(tick, b.schedule)
		if inst.Total() <= 0 {
			continue
		}
		obs = append(obs, Obligation{ContractID: c.ID, Due: inst.Total()})
	}
	return obs
}

// AccrueIncome credits every borrower's per-tick income flow. This is the
// only external cash inflow and enters the conservation ledger.
func (b *LoanBook) AccrueIncome() {
	for _, id := range b.agentIDs {
		a := b.agents[id]
		if a.Role != domain.RoleBorrower || a.IncomeFlow <= 0 {
			continue
		}
		a.Credit(a.IncomeFlow)
		b.cumIncome += a.IncomeFlow
	}
}

// Settle applies one tick of installments. For every Active contract with
// an installment due it consumes the borrower's payment signal: on payment
// the balance shrinks and the lender is credited; on default the borrower's
// collateral is liquidated against the balance and whatever it does not
// cover becomes the lender's realized loss. A due installment without a
// signal counts as a miss.
func (b *LoanBook) Settle(tick int, signals []domain.PaymentSignal) SettleStats {
	byContract := make(map[string]domain.PaymentSignal, len(signals))
	for _, s := range signals {
		byContract[s.ContractID] = s
	}

	var stats SettleStats
	for _, id := range b.order {
		c := b.contracts[id]
		if c.State != domain.StateActive {
			continue
		}
		inst := c.ScheduledInstallment(tick, b.schedule)
		if inst.Total() <= 0 {
			continue
		}

		borrower := b.agents[c.BorrowerID]
		lender := b.agents[c.LenderID]

		sig, ok := byContract[c.ID]
		if !ok {
			slog.Warn("loanbook: due installment without signal, treating as miss",
				"contract", c.ID, "borrower", c.BorrowerID, "tick", tick)
			sig = domain.PaymentSignal{ContractID: c.ID, BorrowerID: c.BorrowerID, Default: true}
		}

		if sig.Default || borrower.Capital < inst.Total() {
			// Liquidate the pledge first: the lender recovers up to the
			// outstanding principal, and only the shortfall is a loss.
			if seized := min(c.Outstanding, borrower.Collateral); seized > 0 {
				borrower.Collateral -= seized
				lender.Credit(seized)
				b.cumRecovered += seized
				c.Outstanding -= seized
			}
			loss := c.Outstanding
			b.cumLosses += loss
			c.State = domain.StateDefaulted
			c.ResolvedTick = tick
			b.defaulted++
			stats.Defaulted++
			borrower.ApplySettlement(domain.SettlementEvent{ContractID: c.ID, Tick: tick, Defaulted: true})
			slog.Debug("loanbook: contract defaulted",
				"contract", c.ID, "borrower", c.BorrowerID, "loss", loss, "tick", tick)
			continue
		}

		borrower.Debit(inst.Total())
		lender.Credit(inst.Total())
		c.Outstanding -= inst.PrincipalDue
		c.PrincipalRepaid += inst.PrincipalDue
		c.InterestPaid += inst.InterestDue
		b.cumInterest += inst.InterestDue
		b.cumPrincipalOut += inst.PrincipalDue

		if c.Outstanding <= balanceEpsilon {
			// Absorb the residue so Repaid means exactly zero.
			c.PrincipalRepaid += c.Outstanding
			b.cumPrincipalOut += c.Outstanding
			c.Outstanding = 0
			c.State = domain.StateRepaid
			c.ResolvedTick = tick
			b.repaid++
			stats.Repaid++
			borrower.ApplySettlement(domain.SettlementEvent{ContractID: c.ID, Tick: tick, Repaid: true})
		}
	}
	return stats
}

// balanceEpsilon soaks up float residue on the final installment.
const balanceEpsilon = 1e-9

// CheckInvariants verifies the book after a settlement pass. Any violation
// returns an InternalConsistencyError carrying a full state dump.
func (b *LoanBook) CheckInvariants() error {
	tol := 1e-6 * (1 + b.initialCash)

	var cash, collateral float64
	for _, id := range b.agentIDs {
		a := b.agents[id]
		if a.Capital < -tol {
			return b.violation("non-negative capital",
				fmt.Sprintf("agent %d capital %.6f", a.ID, a.Capital))
		}
		if a.Collateral < -tol {
			return b.violation("non-negative collateral",
				fmt.Sprintf("agent %d collateral %.6f", a.ID, a.Collateral))
		}
		cash += a.Capital
		collateral += a.Collateral
	}

	// Cash conservation: interest and principal move between agents, so
	// total cash can only grow by the logged income inflow and by pledged
	// collateral liquidated into lender cash.
	expected := b.initialCash + b.cumIncome + b.cumRecovered
	if diff := cash - expected; diff > tol || diff < -tol {
		return b.violation("capital conservation",
			fmt.Sprintf("total cash %.6f, expected %.6f (drift %.9f)", cash, expected, cash-expected))
	}

	// Collateral only ever leaves the system through liquidation.
	expectedColl := b.initialCollateral - b.cumRecovered
	if diff := collateral - expectedColl; diff > tol || diff < -tol {
		return b.violation("collateral conservation",
			fmt.Sprintf("total collateral %.6f, expected %.6f", collateral, expectedColl))
	}

	// Book identity: every originated unit of principal is repaid,
	// recovered from collateral, lost, or still outstanding on an Active
	// contract.
	var outstanding, repaidP, losses float64
	perLenderOut := make(map[int]float64)
	perLenderCap := make(map[int]float64)
	for _, id := range b.order {
		c := b.contracts[id]
		switch c.State {
		case domain.StateActive:
			if c.ResolvedTick != -1 {
				return b.violation("monotonic contract state",
					fmt.Sprintf("active contract %s has resolved tick %d", c.ID, c.ResolvedTick))
			}
			if c.Outstanding < -tol || c.Outstanding > c.Principal+tol {
				return b.violation("outstanding bounds", c.String())
			}
			outstanding += c.Outstanding
			repaidP += c.PrincipalRepaid
			perLenderOut[c.LenderID] += c.Outstanding
			perLenderCap[c.LenderID] += c.Principal
		case domain.StateRepaid:
			if c.Outstanding != 0 || c.ResolvedTick < 0 {
				return b.violation("terminal contract immutability", c.String())
			}
			repaidP += c.PrincipalRepaid
		case domain.StateDefaulted:
			if c.ResolvedTick < 0 {
				return b.violation("terminal contract immutability", c.String())
			}
			losses += c.Outstanding
			repaidP += c.PrincipalRepaid
		default:
			return b.violation("contract state", c.String())
		}
	}
	if diff := b.originatedSum - (repaidP + b.cumRecovered + losses + outstanding); diff > tol || diff < -tol {
		return b.violation("principal accounting",
			fmt.Sprintf("originated %.6f != repaid %.6f + recovered %.6f + losses %.6f + outstanding %.6f",
				b.originatedSum, repaidP, b.cumRecovered, losses, outstanding))
	}

	// No over-lending: a lender's live exposure never exceeds the capital
	// it committed at origination.
	for lenderID, out := range perLenderOut {
		if out > perLenderCap[lenderID]+tol {
			return b.violation("over-lending",
				fmt.Sprintf("lender %d outstanding %.6f exceeds committed %.6f",
					lenderID, out, perLenderCap[lenderID]))
		}
	}

	return nil
}

func (b *LoanBook) violation(invariant, detail string) error {
	return &domain.InternalConsistencyError{
		Invariant: invariant,
		Detail:    detail,
		Dump:      b.dump(),
	}
}

// dump renders the whole book for the fatal-error report.
func (b *LoanBook) dump() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "loanbook: %d contracts (%d active), initial cash %.2f, income %.2f, interest %.2f, losses %.2f, recovered %.2f\n",
		len(b.contracts), b.ActiveCount(), b.initialCash, b.cumIncome, b.cumInterest, b.cumLosses, b.cumRecovered)
	for _, id := range b.agentIDs {
		a := b.agents[id]
		fmt.Fprintf(&sb, "agent %d %s capital=%.4f collateral=%.4f rep=%.3f\n", a.ID, a.Role, a.Capital, a.Collateral, a.Reputation)
	}
	for _, id := range b.order {
		sb.WriteString(b.contracts[id].String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// --- read-only queries ---

// ActivePrincipal is the summed outstanding balance of Active contracts.
func (b *LoanBook) ActivePrincipal() float64 {
	var sum float64
	for _, id := range b.order {
		if c := b.contracts[id]; c.State == domain.StateActive {
			sum += c.Outstanding
		}
	}
	return sum
}

// ActiveCount is the number of Active contracts.
func (b *LoanBook) ActiveCount() int {
	n := 0
	for _, id := range b.order {
		if b.contracts[id].State == domain.StateActive {
			n++
		}
	}
	return n
}

// CapitalByRole sums agent capital per role.
func (b *LoanBook) CapitalByRole() (lenders, borrowers float64) {
	for _, id := range b.agentIDs {
		a := b.agents[id]
		if a.Role == domain.RoleLender {
			lenders += a.Capital
		} else {
			borrowers += a.Capital
		}
	}
	return lenders, borrowers
}

// Utilization is lent-out principal over total lender liquidity (lent plus
// still lendable), the driver of the platform rate curve.
func (b *LoanBook) Utilization() float64 {
	active := b.ActivePrincipal()
	lenders, _ := b.CapitalByRole()
	total := active + lenders
	if total <= 0 {
		return 0
	}
	return active / total
}

// Contracts returns a copy of every contract in origination order.
func (b *LoanBook) Contracts() []domain.LoanContract {
	out := make([]domain.LoanContract, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.contracts[id])
	}
	return out
}

// Totals aggregates the book's lifetime counters.
func (b *LoanBook) Totals() domain.RunTotals {
	return domain.RunTotals{
		ContractsOriginated: b.originated,
		ContractsRepaid:     b.repaid,
		ContractsDefaulted:  b.defaulted,
		PrincipalOriginated: b.originatedSum,
		InterestPaid:        b.cumInterest,
		Losses:              b.cumLosses,
		Recovered:           b.cumRecovered,
		IncomeInflow:        b.cumIncome,
		IntentsDropped:      b.dropped,
	}
}

// Flows exposes the cumulative accounted flows for the metrics snapshot.
func (b *LoanBook) Flows() (interest, losses, recovered, income float64) {
	return b.cumInterest, b.cumLosses, b.cumRecovered, b.cumIncome
}

// Agent returns the registered agent, or nil.
func (b *LoanBook) Agent(id int) *domain.Agent {
	return b.agents[id]
}
