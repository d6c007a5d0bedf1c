package domain

// Intent is an agent's proposed action for the current tick, emitted during
// the decision phase and consumed by the Market before anything mutates.
// The two concrete intents are LoanRequest and LoanOffer; both are ephemeral
// and live only within one matching round.
type Intent interface {
	// Validate reports why the intent is malformed, or nil. Malformed
	// intents are dropped and counted, never fatal.
	Validate() error
}

// LoanRequest is a borrower asking for principal at up to MaxRate.
type LoanRequest struct {
	BorrowerID int
	Principal  float64
	MaxRate    float64
	Tick       int
}

func (r LoanRequest) Validate() error {
	if r.Principal <= 0 {
		return &MatchingError{AgentID: r.BorrowerID, Reason: "non-positive request principal"}
	}
	if r.MaxRate <= 0 || r.MaxRate >= 1 {
		return &MatchingError{AgentID: r.BorrowerID, Reason: "max rate outside (0,1)"}
	}
	return nil
}

// LoanOffer is a lender offering capacity at no less than MinRate.
// Capacity may be consumed across several requests in one round.
type LoanOffer struct {
	LenderID int
	Capacity float64
	MinRate  float64
	Tick     int
}

func (o LoanOffer) Validate() error {
	if o.Capacity <= 0 {
		return &MatchingError{AgentID: o.LenderID, Reason: "non-positive offer capacity"}
	}
	if o.MinRate <= 0 || o.MinRate >= 1 {
		return &MatchingError{AgentID: o.LenderID, Reason: "min rate outside (0,1)"}
	}
	return nil
}

// PaymentSignal is a borrower's installment decision for one Active
// contract: pay the scheduled amount or default. There is no partial
// default; a miss terminates the contract.
type PaymentSignal struct {
	ContractID string
	BorrowerID int
	Default    bool
}
