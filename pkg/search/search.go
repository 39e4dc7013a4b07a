// Package search implements the bounded searches the aggregation layer
// runs against network views: a turn-penalized multi-destination Dijkstra
// scope and a detour-bounded alternative-path enumerator.
package search

import (
	"github.com/urbanweave/streetscope/pkg/errors"
	"github.com/urbanweave/streetscope/pkg/network"
)

// Options configures [Scope] and [EnumeratePaths].
type Options struct {
	// Radius is the maximum network distance at which destinations are
	// recorded. Must be > 0.
	Radius float64

	// DetourRatio multiplies the radius (and per-destination shortest
	// distances during enumeration) into the branch cutoff. Must be >= 1;
	// defaults to 1.
	DetourRatio float64

	// TurnPenalty enables turn-aware search: traversal cost grows by
	// TurnPenaltyAmount whenever the angular deviation between arrival and
	// departure directions exceeds TurnThresholdDegree.
	TurnPenalty         bool
	TurnThresholdDegree float64
	TurnPenaltyAmount   float64

	// ReturnPaths records one shortest path per reached destination.
	ReturnPaths bool

	validated bool
}

// ValidateAndSetDefaults validates the options and fills defaults.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if err := errors.ValidatePositive("radius", o.Radius); err != nil {
		return err
	}
	if o.DetourRatio == 0 {
		o.DetourRatio = 1
	}
	if o.DetourRatio < 1 {
		return errors.New(errors.ErrCodeInvalidRange,
			"detour_ratio must be >= 1, got %g", o.DetourRatio)
	}
	if o.TurnThresholdDegree == 0 {
		o.TurnThresholdDegree = network.DefaultTurnThresholdDegree
	}
	if err := errors.ValidateRange("turn_threshold_degree", o.TurnThresholdDegree, 0, 180); err != nil {
		return err
	}
	if o.TurnPenaltyAmount == 0 {
		o.TurnPenaltyAmount = network.DefaultTurnPenaltyAmount
	}
	if err := errors.ValidateNonNegative("turn_penalty_amount", o.TurnPenaltyAmount); err != nil {
		return err
	}

	o.validated = true
	return nil
}

// Result is the outcome of one scoped search.
type Result struct {
	// Origin is the searched-from node.
	Origin int

	// Destinations maps each destination node reached within Radius to its
	// network distance.
	Destinations map[int]float64

	// Scope maps every node settled within Radius×DetourRatio to its
	// distance.
	Scope map[int]float64

	// Paths maps each reached destination to a shortest path as a sequence
	// of view segment edge IDs. Populated only when ReturnPaths is set.
	Paths map[int][]int
}
