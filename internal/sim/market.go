package sim

// The order book is stateless: requests and offers live for exactly one
// clearing round, and unmatched residuals are discarded at tick end. A
// borrower whose request went unfilled simply tries again next tick.

import (
	"log/slog"
	"sort"

	"github.com/alejandrodnm/lendsim/internal/domain"
)

// Match is one funded slice of a request: a single offer covering some or
// all of the requested principal at the cleared rate. The LoanBook turns
// each Match into one contract.
type Match struct {
	BorrowerID int
	LenderID   int
	Principal  float64
	Rate       float64
	Tick       int
}

// ClearStats summarizes one clearing round for the metrics snapshot.
type ClearStats struct {
	RequestsIn          int
	OffersIn            int
	RequestsMatched     int
	RequestsUnfilled    int
	OffersUnfilled      int
	IntentsDropped      int
	OriginatedPrincipal float64
	AvgClearingRate     float64
}

// Market clears loan requests against offers.
type Market struct {
	rule domain.ClearingRule
}

// NewMarket builds a market with the given clearing-rate rule.
func NewMarket(rule domain.ClearingRule) *Market {
	return &Market{rule: rule}
}

// Clear runs the double auction: requests sorted by descending max rate,
// offers by ascending min rate, greedy pairing while the bounds cross.
// If an offer is smaller than a request, the request splits across further
// offers in rate order. Equal rates break by agent id ascending so a fixed
// seed always reproduces the same pairings.
//
// Malformed intents are dropped, logged and counted; one bad agent must
// not abort the round.
func (m *Market) Clear(tick int, requests []domain.LoanRequest, offers []domain.LoanOffer) ([]Match, ClearStats) {
	stats := ClearStats{RequestsIn: len(requests), OffersIn: len(offers)}

	reqs := make([]domain.LoanRequest, 0, len(requests))
	for _, r := range requests {
		if err := r.Validate(); err != nil {
			stats.IntentsDropped++
			slog.Warn("market: dropped malformed request", "tick", tick, "err", err)
			continue
		}
		reqs = append(reqs, r)
	}

	offs := make([]domain.LoanOffer, 0, len(offers))
	for _, o := range offers {
		if err := o.Validate(); err != nil {
			stats.IntentsDropped++
			slog.Warn("market: dropped malformed offer", "tick", tick, "err", err)
			continue
		}
		offs = append(offs, o)
	}

	sort.SliceStable(reqs, func(i, j int) bool {
		if reqs[i].MaxRate != reqs[j].MaxRate {
			return reqs[i].MaxRate > reqs[j].MaxRate
		}
		return reqs[i].BorrowerID < reqs[j].BorrowerID
	})
	sort.SliceStable(offs, func(i, j int) bool {
		if offs[i].MinRate != offs[j].MinRate {
			return offs[i].MinRate < offs[j].MinRate
		}
		return offs[i].LenderID < offs[j].LenderID
	})

	remaining := make([]float64, len(offs))
	for i, o := range offs {
		remaining[i] = o.Capacity
	}

	var matches []Match
	var rateSum float64
	next := 0 // cheapest offer with capacity left

	for _, req := range reqs {
		need := req.Principal
		filled := false

		for next < len(offs) && need > 0 {
			if remaining[next] <= 0 {
				next++
				continue
			}
			off := offs[next]
			if off.MinRate > req.MaxRate {
				// Offers only get more expensive from here.
				break
			}

			take := need
			if remaining[next] < take {
				take = remaining[next]
			}
			rate := domain.ClearingRate(m.rule, req.MaxRate, off.MinRate)
			matches = append(matches, Match{
				BorrowerID: req.BorrowerID,
				LenderID:   off.LenderID,
				Principal:  take,
				Rate:       rate,
				Tick:       tick,
			})
			rateSum += rate
			stats.OriginatedPrincipal += take
			remaining[next] -= take
			need -= take
			filled = true
		}

		if filled {
			stats.RequestsMatched++
		} else {
			stats.RequestsUnfilled++
		}
	}

	// An offer counts as unfilled only when no request touched it at all;
	// partially consumed capacity is matched supply, not idle supply.
	for i := range offs {
		if remaining[i] == offs[i].Capacity {
			stats.OffersUnfilled++
		}
	}
	if len(matches) > 0 {
		stats.AvgClearingRate = rateSum / float64(len(matches))
	}

	return matches, stats
}
