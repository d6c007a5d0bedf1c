package sim

// One tick is a strict total order of phases: income accrual, platform
// rate update, agent decision phase, market clearing, origination,
// settlement, invariant check, metrics snapshot. Later phases read the
// outputs of earlier ones, so the boundaries are never crossed. Only the
// decision phase may fan out across workers: agents emit intents against
// their own sub-streams and touch no shared state, and the batch is
// re-merged in agent-id order before the market sees it.

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/alejandrodnm/lendsim/internal/domain"
	"github.com/alejandrodnm/lendsim/internal/ports"
	"golang.org/x/time/rate"
)

// State is the scheduler lifecycle.
type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StateRunning    State = "RUNNING"
	StateCompleted  State = "COMPLETED"
)

// Config is the full engine configuration, mapped from the config package
// by the caller.
type Config struct {
	Seed    int64
	Horizon int

	Lenders            int
	Borrowers          int
	LenderCapitalMin   float64
	LenderCapitalMax   float64
	LenderReserveRatio float64
	RequiredReturnMin  float64
	RequiredReturnMax  float64
	Tiers              []TierSpec

	TermTicks    int
	Schedule     domain.Schedule
	ClearingRule domain.ClearingRule
	RateCurve    domain.RateCurve
	Policy       PolicyConfig

	VolatilityMin float64
	VolatilityMax float64

	// DecisionWorkers > 1 parallelizes the decision phase; 0 or 1 keeps it
	// sequential. Results are identical either way.
	DecisionWorkers int
}

// Scheduler advances simulated time over a fixed population.
type Scheduler struct {
	cfg    Config
	oracle ports.RiskOracle

	state   State
	tick    int
	streams *Streams
	pop     *Population
	market  *Market
	book    *LoanBook
	shock   *Stream
	series  []domain.TickMetrics

	progress rate.Sometimes
}

// NewScheduler builds a scheduler in NotStarted. Start (or Run) constructs
// the population and book, so a Reset scheduler rebuilds from scratch.
func NewScheduler(cfg Config, oracle ports.RiskOracle) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		oracle:   oracle,
		state:    StateNotStarted,
		progress: rate.Sometimes{First: 1, Interval: 2 * time.Second},
	}
}

// Start transitions NotStarted to Running, building streams, population,
// market and loan book from the configuration.
func (s *Scheduler) Start() error {
	if s.state != StateNotStarted {
		return &domain.StateError{Op: "Start", From: string(s.state)}
	}

	s.streams = NewEngineStreams(s.cfg.Seed)
	shock, err := s.streams.Stream(StreamRepaymentShock)
	if err != nil {
		return err
	}
	s.shock = shock

	pop, err := BuildPopulation(s.cfg, s.streams)
	if err != nil {
		return err
	}
	s.pop = pop
	s.market = NewMarket(s.cfg.ClearingRule)
	s.book = NewLoanBook(pop.Agents, s.cfg.Schedule)
	s.tick = 0
	s.series = nil
	s.state = StateRunning

	slog.Info("scheduler: started",
		"seed", s.cfg.Seed,
		"lenders", s.cfg.Lenders,
		"borrowers", s.cfg.Borrowers,
		"horizon", s.cfg.Horizon,
	)
	return nil
}

// Tick advances one step. Valid only in Running.
func (s *Scheduler) Tick() (domain.TickMetrics, error) {
	if s.state != StateRunning {
		return domain.TickMetrics{}, &domain.StateError{Op: "Tick", From: string(s.state)}
	}
	s.tick++

	s.book.AccrueIncome()

	volatility := s.shock.Uniform(s.cfg.VolatilityMin, s.cfg.VolatilityMax)
	platformRate := s.cfg.RateCurve.At(s.book.Utilization())
	view := MarketView{
		Tick:             s.tick,
		PlatformRate:     platformRate,
		PriorDefaultProb: s.oracle.ScoreDefaultProbability(s.populationPrior()),
		Volatility:       volatility,
	}

	requests, offers, payments := s.decisionPhase(view)
	matches, cstats := s.market.Clear(s.tick, requests, offers)
	s.book.Originate(matches, s.cfg.TermTicks)
	sstats := s.book.Settle(s.tick, payments)

	if err := s.book.CheckInvariants(); err != nil {
		s.state = StateCompleted
		return domain.TickMetrics{}, fmt.Errorf("scheduler: tick %d: %w", s.tick, err)
	}

	m := s.snapshot(platformRate, volatility, cstats, sstats)
	s.series = append(s.series, m)

	s.progress.Do(func() {
		slog.Info("scheduler: progress",
			"tick", s.tick,
			"rate", fmt.Sprintf("%.4f", platformRate),
			"active", m.ActiveContracts,
			"matched", m.RequestsMatched,
			"defaults", m.DefaultsThisTick,
		)
	})
	return m, nil
}

// Run executes exactly horizon ticks and transitions to Completed. A
// Completed scheduler refuses to run again until Reset.
func (s *Scheduler) Run(horizon int) error {
	if s.state == StateNotStarted {
		if err := s.Start(); err != nil {
			return err
		}
	}
	if s.state != StateRunning {
		return &domain.StateError{Op: "Run", From: string(s.state)}
	}
	for i := 0; i < horizon; i++ {
		if _, err := s.Tick(); err != nil {
			return err
		}
	}
	s.state = StateCompleted
	return nil
}

// Reset returns a Completed scheduler to NotStarted. The next Start builds
// a fresh population from the same seed.
func (s *Scheduler) Reset() error {
	if s.state != StateCompleted {
		return &domain.StateError{Op: "Reset", From: string(s.state)}
	}
	s.state = StateNotStarted
	return nil
}

// CurrentState exposes the lifecycle state.
func (s *Scheduler) CurrentState() State { return s.state }

// CurrentTick is the last completed tick.
func (s *Scheduler) CurrentTick() int { return s.tick }

// Series returns the collected metric snapshots.
func (s *Scheduler) Series() []domain.TickMetrics { return s.series }

// Book exposes the loan book for read-only queries and result assembly.
func (s *Scheduler) Book() *LoanBook { return s.book }

// decisionPhase collects every agent's Decision for the tick. Agents only
// read shared state and draw from their own sub-streams, so evaluation may
// run on a worker pool; the join below is the barrier the later phases
// rely on, and the merge walks agents in id order either way.
func (s *Scheduler) decisionPhase(view MarketView) ([]domain.LoanRequest, []domain.LoanOffer, []domain.PaymentSignal) {
	agents := s.pop.Agents
	decisions := make([]Decision, len(agents))

	workers := s.cfg.DecisionWorkers
	if workers > len(agents) {
		workers = len(agents)
	}
	if workers < 0 {
		workers = runtime.NumCPU()
	}

	decide := func(i int) {
		a := agents[i]
		var obs []Obligation
		if a.Role == domain.RoleBorrower {
			obs = s.book.ObligationsFor(a.ID, view.Tick)
		}
		decisions[i] = s.pop.Policy(a.ID).Decide(view, obs)
	}

	if workers <= 1 {
		for i := range agents {
			decide(i)
		}
	} else {
		workCh := make(chan int, len(agents))
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range workCh {
					decide(i)
				}
			}()
		}
		for i := range agents {
			workCh <- i
		}
		close(workCh)
		wg.Wait()
	}

	var requests []domain.LoanRequest
	var offers []domain.LoanOffer
	var payments []domain.PaymentSignal
	for _, d := range decisions {
		requests = append(requests, d.Requests...)
		offers = append(offers, d.Offers...)
		payments = append(payments, d.Payments...)
	}
	return requests, offers, payments
}

// populationPrior averages borrower features into the population-level
// snapshot lenders price against. Lenders never see individual borrowers
// before matching.
func (s *Scheduler) populationPrior() domain.FeatureVector {
	prior := domain.FeatureVector{}
	n := 0
	for _, a := range s.pop.Agents {
		if a.Role != domain.RoleBorrower {
			continue
		}
		for k, v := range a.Features() {
			prior[k] += v
		}
		n++
	}
	if n > 0 {
		for k := range prior {
			prior[k] /= float64(n)
		}
	}
	return prior
}

func (s *Scheduler) snapshot(platformRate, volatility float64, cstats ClearStats, sstats SettleStats) domain.TickMetrics {
	interest, losses, recovered, income := s.book.Flows()
	lenders, borrowers := s.book.CapitalByRole()
	return domain.TickMetrics{
		Tick:                s.tick,
		PlatformRate:        platformRate,
		Volatility:          volatility,
		RequestsEmitted:     cstats.RequestsIn,
		OffersEmitted:       cstats.OffersIn,
		RequestsMatched:     cstats.RequestsMatched,
		RequestsUnfilled:    cstats.RequestsUnfilled,
		OffersUnfilled:      cstats.OffersUnfilled,
		IntentsDropped:      cstats.IntentsDropped,
		OriginatedPrincipal: cstats.OriginatedPrincipal,
		AvgClearingRate:     cstats.AvgClearingRate,
		ActiveContracts:     s.book.ActiveCount(),
		ActivePrincipal:     s.book.ActivePrincipal(),
		RepaidThisTick:      sstats.Repaid,
		DefaultsThisTick:    sstats.Defaulted,
		CumInterestPaid:     interest,
		CumLosses:           losses,
		CumRecovered:        recovered,
		CumIncome:           income,
		LenderCapital:       lenders,
		BorrowerCapital:     borrowers,
	}
}
