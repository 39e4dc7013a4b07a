// Package una implements the urban network analysis metrics: reach,
// gravity, and closest-facility accessibility, service areas, and edge
// betweenness, all computed per origin over the network's `d` view and
// parallelized across a fixed worker pool.
package una

import (
	"math"

	"github.com/urbanweave/streetscope/pkg/errors"
)

// PathDetourPenalty selects how alternative paths to one destination are
// weighted against each other during betweenness assignment.
type PathDetourPenalty string

// Path weighting modes.
const (
	// PenaltyEqual gives every admissible path the same weight.
	PenaltyEqual PathDetourPenalty = "equal"

	// PenaltyPower weights a path by (shortest/length)², so the shortest
	// path gets 1 and longer detours fall off quadratically.
	PenaltyPower PathDetourPenalty = "power"

	// PenaltyExponent weights a path by e^(−beta·(length−shortest)).
	PenaltyExponent PathDetourPenalty = "exponent"
)

// DecayMethod selects how a destination's contribution decays with
// distance.
type DecayMethod string

// Decay methods.
const (
	// DecayNone applies no distance decay.
	DecayNone DecayMethod = "none"

	// DecayExponent decays by e^(−beta·d).
	DecayExponent DecayMethod = "exponent"

	// DecayPower decays by (1+d)^(−beta).
	DecayPower DecayMethod = "power"
)

// AccessibilityOptions configures [Accessibility].
type AccessibilityOptions struct {
	// Radius is the search bound. Must be > 0.
	Radius float64

	// Metric toggles. At least one must be set.
	Reach           bool
	Gravity         bool
	ClosestFacility bool

	// Alpha is the destination-weight exponent in the gravity formula
	// w^alpha · e^(−beta·d). Defaults to 1.
	Alpha float64

	// Beta is the distance-decay coefficient. Required whenever gravity is
	// computed.
	Beta float64

	// Workers sizes the worker pool. Defaults to the CPU count.
	Workers int

	// Progress, when set, is called after each origin completes.
	Progress Progress

	validated bool
}

// ValidateAndSetDefaults validates the options and fills defaults.
// It is idempotent.
func (o *AccessibilityOptions) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if err := errors.ValidatePositive("radius", o.Radius); err != nil {
		return err
	}
	if !o.Reach && !o.Gravity && !o.ClosestFacility {
		return errors.New(errors.ErrCodeInvalidInput,
			"no metric requested: set at least one of reach, gravity, closest_facility")
	}
	if o.Alpha == 0 {
		o.Alpha = 1
	}
	if err := errors.ValidatePositive("alpha", o.Alpha); err != nil {
		return err
	}
	if o.Gravity && o.Beta <= 0 {
		return errors.New(errors.ErrCodeMissingBeta,
			"gravity requires beta > 0, got %g", o.Beta)
	}
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidRange, "workers must be >= 0, got %d", o.Workers)
	}

	o.validated = true
	return nil
}

// gravityTerm is the per-destination gravity contribution w^alpha·e^(−beta·d).
func (o *AccessibilityOptions) gravityTerm(weight, dist float64) float64 {
	return math.Pow(weight, o.Alpha) * math.Exp(-o.Beta*dist)
}

// BetweennessOptions configures [Betweenness].
type BetweennessOptions struct {
	// Radius is the search bound. Must be > 0.
	Radius float64

	// DetourRatio bounds alternative paths at shortest×DetourRatio.
	// Must be >= 1; defaults to 1.
	DetourRatio float64

	// Turn-penalized search configuration; zero values fall back to the
	// network-level defaults.
	TurnPenalty         bool
	TurnThresholdDegree float64
	TurnPenaltyAmount   float64

	// PathDetourPenalty weights alternative paths. Defaults to equal.
	PathDetourPenalty PathDetourPenalty

	// DecayMethod scales destination contributions by distance.
	// Defaults to none.
	DecayMethod DecayMethod

	// Beta is the decay coefficient, required by the exponent path penalty
	// and by any decay method other than none.
	Beta float64

	// KNNWeights weights destinations by their distance rank per origin;
	// rank i takes KNNWeights[min(i, len−1)]. Empty disables KNN
	// weighting. Destinations within KNNPlateau keep full weight.
	KNNWeights []float64
	KNNPlateau float64

	// ElasticWeight rescales each origin's assigned flow so its total
	// equals the origin weight.
	ElasticWeight bool

	// DestinationCap keeps only the nearest N destinations per origin.
	// Zero means unlimited.
	DestinationCap int

	// Workers sizes the worker pool. Defaults to the CPU count.
	Workers int

	// Progress, when set, is called after each origin completes.
	Progress Progress

	validated bool
}

// ValidateAndSetDefaults validates the options and fills defaults.
// It is idempotent.
func (o *BetweennessOptions) ValidateAndSetDefaults() error {
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
	if o.PathDetourPenalty == "" {
		o.PathDetourPenalty = PenaltyEqual
	}
	if err := errors.ValidateChoice("path_detour_penalty", string(o.PathDetourPenalty),
		[]string{string(PenaltyEqual), string(PenaltyPower), string(PenaltyExponent)}); err != nil {
		return err
	}
	if o.DecayMethod == "" {
		o.DecayMethod = DecayNone
	}
	if err := errors.ValidateChoice("decay_method", string(o.DecayMethod),
		[]string{string(DecayNone), string(DecayExponent), string(DecayPower)}); err != nil {
		return err
	}
	needsBeta := o.PathDetourPenalty == PenaltyExponent || o.DecayMethod != DecayNone
	if needsBeta && o.Beta <= 0 {
		return errors.New(errors.ErrCodeMissingBeta,
			"path_detour_penalty %q and decay_method %q require beta > 0, got %g",
			o.PathDetourPenalty, o.DecayMethod, o.Beta)
	}
	for i, w := range o.KNNWeights {
		if w < 0 {
			return errors.New(errors.ErrCodeInvalidRange,
				"knn_weights[%d] must be >= 0, got %g", i, w)
		}
	}
	if err := errors.ValidateNonNegative("knn_plateau", o.KNNPlateau); err != nil {
		return err
	}
	if o.DestinationCap < 0 {
		return errors.New(errors.ErrCodeInvalidRange,
			"destination_cap must be >= 0, got %d", o.DestinationCap)
	}
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidRange, "workers must be >= 0, got %d", o.Workers)
	}

	o.validated = true
	return nil
}

// decay returns the distance-decay factor for one destination.
func (o *BetweennessOptions) decay(dist float64) float64 {
	switch o.DecayMethod {
	case DecayExponent:
		return math.Exp(-o.Beta * dist)
	case DecayPower:
		return math.Pow(1+dist, -o.Beta)
	default:
		return 1
	}
}

// knn returns the rank-based weight for a destination. The last entry of
// KNNWeights is the plateau value for all further ranks; destinations
// within KNNPlateau distance keep full weight.
func (o *BetweennessOptions) knn(rank int, dist float64) float64 {
	if len(o.KNNWeights) == 0 {
		return 1
	}
	if o.KNNPlateau > 0 && dist <= o.KNNPlateau {
		return 1
	}
	if rank >= len(o.KNNWeights) {
		rank = len(o.KNNWeights) - 1
	}
	return o.KNNWeights[rank]
}

// pathWeight returns the unnormalized weight of one path against the
// shortest distance to its destination.
func (o *BetweennessOptions) pathWeight(length, shortest float64) float64 {
	switch o.PathDetourPenalty {
	case PenaltyPower:
		if length <= 0 {
			return 1
		}
		r := shortest / length
		return r * r
	case PenaltyExponent:
		return math.Exp(-o.Beta * (length - shortest))
	default:
		return 1
	}
}
