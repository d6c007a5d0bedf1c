package sim

// Every source of stochastic variation in a run draws through here. Each
// named stream derives its own seed from the master seed, so adding or
// removing draws in one stream never perturbs another; the determinism
// and replication guarantees depend on that. Per-agent sub-streams
// ("borrower-demand/42") make the decision phase safe to parallelize: an
// agent only ever touches its own generator, so draw order per stream is
// identical no matter how goroutines interleave.

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"

	"github.com/alejandrodnm/lendsim/internal/domain"
)

// Stream names used by the engine. Registered up front by NewStreams;
// asking for anything else is a ConfigurationError.
const (
	StreamPopulation     = "population"
	StreamBorrowerDemand = "borrower-demand"
	StreamLenderAppetite = "lender-risk-appetite"
	StreamRepaymentShock = "repayment-shock"
)

// Stream is one deterministic generator. Not safe for concurrent use;
// callers hold exactly one goroutine per stream by construction.
type Stream struct {
	rng *rand.Rand
}

// Float64 draws from [0,1).
func (s *Stream) Float64() float64 { return s.rng.Float64() }

// Uniform draws from [lo,hi).
func (s *Stream) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rng.Float64()
}

// Bernoulli draws true with probability p.
func (s *Stream) Bernoulli(p float64) bool {
	return s.rng.Float64() < p
}

// NormFloat64 draws from the standard normal distribution.
func (s *Stream) NormFloat64() float64 { return s.rng.NormFloat64() }

// Streams owns every named stream of a run, all derived from one master
// seed. Identical seed and identical per-stream call sequences produce
// identical outputs.
type Streams struct {
	masterSeed int64

	mu         sync.Mutex
	registered map[string]bool
	streams    map[string]*Stream
}

// NewStreams registers the given stream names against the master seed.
func NewStreams(masterSeed int64, names ...string) *Streams {
	s := &Streams{
		masterSeed: masterSeed,
		registered: make(map[string]bool, len(names)),
		streams:    make(map[string]*Stream),
	}
	for _, name := range names {
		s.registered[name] = true
	}
	return s
}

// NewEngineStreams registers the standard engine streams.
func NewEngineStreams(masterSeed int64) *Streams {
	return NewStreams(masterSeed,
		StreamPopulation,
		StreamBorrowerDemand,
		StreamLenderAppetite,
		StreamRepaymentShock,
	)
}

// Stream returns the shared generator for a registered name.
func (s *Streams) Stream(name string) (*Stream, error) {
	if !s.registered[name] {
		return nil, domain.NewConfigurationError("stream", "unregistered stream %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[name]
	if !ok {
		st = &Stream{rng: rand.New(rand.NewSource(s.deriveSeed(name)))}
		s.streams[name] = st
	}
	return st, nil
}

// AgentStream returns the sub-stream of a registered base stream dedicated
// to one agent. Sub-streams are pre-assigned at population build time so no
// locking happens inside the decision phase.
func (s *Streams) AgentStream(base string, agentID int) (*Stream, error) {
	if !s.registered[base] {
		return nil, domain.NewConfigurationError("stream", "unregistered stream %q", base)
	}
	key := fmt.Sprintf("%s/%d", base, agentID)
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[key]
	if !ok {
		st = &Stream{rng: rand.New(rand.NewSource(s.deriveSeed(key)))}
		s.streams[key] = st
	}
	return st, nil
}

// deriveSeed maps a stream key to its seed: FNV-1a over the key, folded
// with the master seed. Stable across runs and platforms.
func (s *Streams) deriveSeed(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64()) ^ s.masterSeed
}
