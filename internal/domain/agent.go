package domain

// Role distinguishes the two agent populations.
type Role string

const (
	RoleLender   Role = "LENDER"
	RoleBorrower Role = "BORROWER"
)

// Tier is a borrower credit tier. It controls the ranges an agent's initial
// state is drawn from and seeds the oracle's feature priors.
type Tier string

const (
	TierPrime    Tier = "prime"
	TierStandard Tier = "standard"
	TierSubprime Tier = "subprime"
)

// FeatureVector is the named-feature snapshot handed to the RiskOracle.
type FeatureVector map[string]float64

// Agent is one market participant. Capital means lendable capital for a
// lender and held cash for a borrower. Agents are created once at
// initialization and never destroyed; a zero-capital agent stays addressable.
//
// Capital is mutated only by the LoanBook settlement machinery (Credit,
// Debit, ApplySettlement). Decision policies read it and emit intents.
type Agent struct {
	ID      int
	Role    Role
	Capital float64

	// Borrower state.
	Tier           Tier
	Collateral     float64 // pledged asset value, seized on default
	Reputation     float64 // in [0,1], moves on repayment/default
	IncomeFlow     float64 // cash credited each tick
	DiscountFactor float64 // private patience; shapes the max acceptable rate
	RequestProb    float64 // base per-tick probability of seeking a loan

	// Lender state.
	ReserveRatio   float64 // share of capital never offered
	RequiredReturn float64 // spread over the platform rate

	Repayments int
	Defaults   int
}

// Features builds the oracle input for a borrower. The keys are part of the
// oracle contract; swapping oracle implementations must not change them.
func (a *Agent) Features() FeatureVector {
	return FeatureVector{
		"capital":    a.Capital,
		"collateral": a.Collateral,
		"income":     a.IncomeFlow,
		"reputation": a.Reputation,
		"defaults":   float64(a.Defaults),
		"repayments": float64(a.Repayments),
	}
}

// Credit adds cash to the agent.
func (a *Agent) Credit(amount float64) {
	a.Capital += amount
}

// Debit removes cash. The caller guarantees amount <= Capital; the LoanBook
// invariant check catches any drift into negative balances.
func (a *Agent) Debit(amount float64) {
	a.Capital -= amount
}

// SettlementEvent is what the LoanBook reports back to an agent after
// resolving one installment.
type SettlementEvent struct {
	ContractID string
	Tick       int
	Repaid     bool // full contract repayment, not just one installment
	Defaulted  bool
}

// ApplySettlement updates the borrower's repayment history and reputation.
// Gains shrink as reputation approaches 1; a default costs much more than a
// repayment earns, matching the asymmetry of real credit histories.
func (a *Agent) ApplySettlement(ev SettlementEvent) {
	switch {
	case ev.Defaulted:
		a.Defaults++
		a.Reputation = clamp01(a.Reputation - 0.2*(1+a.Reputation))
	case ev.Repaid:
		a.Repayments++
		a.Reputation = clamp01(a.Reputation + 0.05*(1-0.5*a.Reputation))
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
