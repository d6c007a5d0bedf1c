package sim

// The initial agent population is drawn from the "population" stream so a
// seed fully determines who starts with what.

import (
	"sort"

	"github.com/alejandrodnm/lendsim/internal/domain"
)

// TierSpec configures one borrower credit tier. Share is the fraction of
// the borrower population assigned to it; shares must sum to 1.
type TierSpec struct {
	Tier          domain.Tier
	Share         float64
	CapitalMin    float64
	CapitalMax    float64
	CollateralMin float64
	CollateralMax float64
	IncomeMin     float64
	IncomeMax     float64
	ReputationMin float64
	ReputationMax float64
	RequestProb   float64
	DiscountMin   float64
	DiscountMax   float64
}

// Population is the fixed agent set of a run: agents in ascending id order
// and the policy bound to each of them. Agents are never added or removed
// mid-run.
type Population struct {
	Agents   []*domain.Agent
	policies map[int]Policy
}

// Policy returns the decision policy of an agent.
func (p *Population) Policy(id int) Policy {
	return p.policies[id]
}

// BuildPopulation creates lenders (ids 0..lenders-1) then borrowers, with
// initial state drawn from the population stream and tiers assigned by
// index against the cumulative shares. Each agent's
// policy is bound to its own pre-derived sub-stream so the decision phase
// can fan out across workers without perturbing draw order.
func BuildPopulation(cfg Config, streams *Streams) (*Population, error) {
	popStream, err := streams.Stream(StreamPopulation)
	if err != nil {
		return nil, err
	}

	pop := &Population{policies: make(map[int]Policy)}

	for i := 0; i < cfg.Lenders; i++ {
		a := &domain.Agent{
			ID:             i,
			Role:           domain.RoleLender,
			Capital:        popStream.Uniform(cfg.LenderCapitalMin, cfg.LenderCapitalMax),
			ReserveRatio:   cfg.LenderReserveRatio,
			RequiredReturn: popStream.Uniform(cfg.RequiredReturnMin, cfg.RequiredReturnMax),
		}
		rng, err := streams.AgentStream(StreamLenderAppetite, a.ID)
		if err != nil {
			return nil, err
		}
		pop.Agents = append(pop.Agents, a)
		pop.policies[a.ID] = NewLenderPolicy(a, rng, cfg.Policy)
	}

	for i := 0; i < cfg.Borrowers; i++ {
		spec := tierForIndex(cfg.Tiers, i, cfg.Borrowers)
		a := &domain.Agent{
			ID:             cfg.Lenders + i,
			Role:           domain.RoleBorrower,
			Tier:           spec.Tier,
			Capital:        popStream.Uniform(spec.CapitalMin, spec.CapitalMax),
			Collateral:     popStream.Uniform(spec.CollateralMin, spec.CollateralMax),
			IncomeFlow:     popStream.Uniform(spec.IncomeMin, spec.IncomeMax),
			Reputation:     popStream.Uniform(spec.ReputationMin, spec.ReputationMax),
			RequestProb:    spec.RequestProb,
			DiscountFactor: popStream.Uniform(spec.DiscountMin, spec.DiscountMax),
		}
		rng, err := streams.AgentStream(StreamBorrowerDemand, a.ID)
		if err != nil {
			return nil, err
		}
		pop.Agents = append(pop.Agents, a)
		pop.policies[a.ID] = NewBorrowerPolicy(a, rng, cfg.Policy)
	}

	sort.Slice(pop.Agents, func(i, j int) bool { return pop.Agents[i].ID < pop.Agents[j].ID })
	return pop, nil
}

// tierForIndex assigns borrower index i to a tier by cumulative share.
func tierForIndex(tiers []TierSpec, i, total int) TierSpec {
	frac := float64(i) / float64(total)
	var cum float64
	for _, t := range tiers {
		cum += t.Share
		if frac < cum {
			return t
		}
	}
	return tiers[len(tiers)-1]
}
