package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanRequest_Validate(t *testing.T) {
	valid := LoanRequest{BorrowerID: 10, Principal: 100, MaxRate: 0.08}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name string
		req  LoanRequest
	}{
		{"zero principal", LoanRequest{BorrowerID: 10, Principal: 0, MaxRate: 0.08}},
		{"negative principal", LoanRequest{BorrowerID: 10, Principal: -5, MaxRate: 0.08}},
		{"zero rate", LoanRequest{BorrowerID: 10, Principal: 100, MaxRate: 0}},
		{"rate at one", LoanRequest{BorrowerID: 10, Principal: 100, MaxRate: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			require.Error(t, err)
			var merr *MatchingError
			require.True(t, errors.As(err, &merr))
			assert.Equal(t, 10, merr.AgentID)
		})
	}
}

func TestLoanOffer_Validate(t *testing.T) {
	valid := LoanOffer{LenderID: 1, Capacity: 500, MinRate: 0.04}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name  string
		offer LoanOffer
	}{
		{"zero capacity", LoanOffer{LenderID: 1, Capacity: 0, MinRate: 0.04}},
		{"negative rate", LoanOffer{LenderID: 1, Capacity: 500, MinRate: -0.01}},
		{"rate at one", LoanOffer{LenderID: 1, Capacity: 500, MinRate: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.offer.Validate()
			require.Error(t, err)
			var merr *MatchingError
			require.True(t, errors.As(err, &merr))
			assert.Equal(t, 1, merr.AgentID)
		})
	}
}

func TestErrorMessages(t *testing.T) {
	cerr := NewConfigurationError("simulation.horizon", "must be positive, got %d", -1)
	assert.Equal(t, "configuration: simulation.horizon: must be positive, got -1", cerr.Error())

	serr := &StateError{Op: "Tick", From: "COMPLETED"}
	assert.Equal(t, "scheduler: Tick not valid in state COMPLETED", serr.Error())

	ice := &InternalConsistencyError{Invariant: "capital conservation", Detail: "drift 0.5"}
	assert.Contains(t, ice.Error(), "capital conservation")
	assert.Contains(t, ice.Error(), "drift 0.5")
}
