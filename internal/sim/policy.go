package sim

// Policies are the only place intents come from. They read agent and market
// state, draw from their pre-assigned sub-streams, and emit an immutable
// Decision; they never mutate shared state. The forms below (linear demand
// with multiplicative noise, reserve-ratio lender capacity, hazard-style
// installment misses) are a documented baseline, replaceable behind the
// Policy interface.

import (
	"math"

	"github.com/alejandrodnm/lendsim/internal/domain"
)

// MarketView is the read-only snapshot every policy sees for a tick.
// PriorDefaultProb is the oracle's score on the population-level feature
// prior: lenders price risk without seeing individual borrowers, the
// information asymmetry the model is built around.
type MarketView struct {
	Tick             int
	PlatformRate     float64
	PriorDefaultProb float64
	Volatility       float64
}

// Obligation is one scheduled installment a borrower owes this tick.
type Obligation struct {
	ContractID string
	Due        float64
}

// Decision is an agent's complete output for one tick.
type Decision struct {
	Requests []domain.LoanRequest
	Offers   []domain.LoanOffer
	Payments []domain.PaymentSignal
}

// Policy is the fixed capability shared by both roles.
type Policy interface {
	// Decide emits the agent's intents for the tick. obligations is empty
	// for lenders.
	Decide(view MarketView, obligations []Obligation) Decision
}

// PolicyConfig tunes the baseline policies.
type PolicyConfig struct {
	RateMin              float64
	RateMax              float64
	DemandIncomeMultiple float64 // requested principal per unit of income
	DemandNoise          float64 // multiplicative noise half-width
	CollateralFactor     float64 // max principal per unit of pledged collateral
	ReputationDamping    float64 // how strongly reputation suppresses demand and misses
	HazardWeight         float64 // scales volatility into a per-installment miss probability
	PremiumWeight        float64 // scales the actuarial risk premium
	RateJitter           float64 // per-offer dispersion of lender min rates
	OfferChunk           float64 // capacity per emitted offer
	AllowMultipleLoans   bool
}

// minOfferSize discards residual capacity too small to originate against.
const minOfferSize = 1.0

// BorrowerPolicy implements the borrower calculus: stochastic loan demand
// sized by income, and pay-or-default behavior on open installments.
type BorrowerPolicy struct {
	agent *domain.Agent
	rng   *Stream
	cfg   PolicyConfig
}

// NewBorrowerPolicy binds a borrower to its demand sub-stream.
func NewBorrowerPolicy(agent *domain.Agent, rng *Stream, cfg PolicyConfig) *BorrowerPolicy {
	return &BorrowerPolicy{agent: agent, rng: rng, cfg: cfg}
}

func (p *BorrowerPolicy) Decide(view MarketView, obligations []Obligation) Decision {
	var d Decision

	// Installments first: cash committed to repayment is not available to
	// reason about new demand. There is no partial default: an installment
	// either clears in full or the contract dies.
	cash := p.agent.Capital
	for _, ob := range obligations {
		missProb := view.Volatility * p.cfg.HazardWeight * (1 - p.cfg.ReputationDamping*p.agent.Reputation)
		shocked := p.rng.Bernoulli(missProb)
		if shocked || cash < ob.Due {
			d.Payments = append(d.Payments, domain.PaymentSignal{
				ContractID: ob.ContractID,
				BorrowerID: p.agent.ID,
				Default:    true,
			})
			continue
		}
		cash -= ob.Due
		d.Payments = append(d.Payments, domain.PaymentSignal{
			ContractID: ob.ContractID,
			BorrowerID: p.agent.ID,
		})
	}

	if len(obligations) > 0 && !p.cfg.AllowMultipleLoans {
		return d
	}

	// Demand is suppressed by reputation: agents with a clean history have
	// cheap internal funding and borrow less often.
	requestProb := p.agent.RequestProb * (1 - p.cfg.ReputationDamping*p.agent.Reputation)
	if !p.rng.Bernoulli(requestProb) {
		return d
	}

	noise := p.rng.Uniform(1-p.cfg.DemandNoise, 1+p.cfg.DemandNoise)
	principal := p.agent.IncomeFlow * p.cfg.DemandIncomeMultiple * noise
	if p.cfg.CollateralFactor > 0 {
		// Requests are secured: principal is capped by the value the
		// borrower can pledge. No collateral, no loan.
		if limit := p.agent.Collateral * p.cfg.CollateralFactor; principal > limit {
			principal = limit
		}
	}
	if principal <= 0 {
		return d
	}

	// Impatient borrowers (high discount factor) accept higher rates.
	maxRate := clampRate(view.PlatformRate*(1+p.agent.DiscountFactor), p.cfg)
	d.Requests = append(d.Requests, domain.LoanRequest{
		BorrowerID: p.agent.ID,
		Principal:  principal,
		MaxRate:    maxRate,
		Tick:       view.Tick,
	})
	return d
}

// LenderPolicy implements the lender underwriting calculus: reserve-ratio
// capacity, and a floor rate of platform rate + required return + a risk
// premium priced off the population prior.
type LenderPolicy struct {
	agent *domain.Agent
	rng   *Stream
	cfg   PolicyConfig
}

// NewLenderPolicy binds a lender to its appetite sub-stream.
func NewLenderPolicy(agent *domain.Agent, rng *Stream, cfg PolicyConfig) *LenderPolicy {
	return &LenderPolicy{agent: agent, rng: rng, cfg: cfg}
}

func (p *LenderPolicy) Decide(view MarketView, _ []Obligation) Decision {
	var d Decision

	capacity := p.agent.Capital * (1 - p.agent.ReserveRatio)
	if capacity < minOfferSize {
		// Zero (or dust) capital is a quiet tick, not an error.
		return d
	}

	premium := domain.RiskPremium(view.PriorDefaultProb, p.cfg.PremiumWeight)
	base := view.PlatformRate + p.agent.RequiredReturn + premium

	// Capacity goes out in chunks, each with its own small rate jitter, so
	// one lender's book can be consumed by several requests at slightly
	// different prices.
	chunk := p.cfg.OfferChunk
	if chunk <= 0 || chunk > capacity {
		chunk = capacity
	}
	for remaining := capacity; remaining >= minOfferSize; remaining -= chunk {
		size := math.Min(chunk, remaining)
		jitter := p.rng.Uniform(-p.cfg.RateJitter, p.cfg.RateJitter)
		d.Offers = append(d.Offers, domain.LoanOffer{
			LenderID: p.agent.ID,
			Capacity: size,
			MinRate:  clampRate(base+jitter, p.cfg),
			Tick:     view.Tick,
		})
	}
	return d
}

func clampRate(r float64, cfg PolicyConfig) float64 {
	if r < cfg.RateMin {
		return cfg.RateMin
	}
	if r > cfg.RateMax {
		return cfg.RateMax
	}
	return r
}
