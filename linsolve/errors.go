package linsolve

import "errors"

var (
	// ErrShapeMismatch is returned when A is not square or the dimensions
	// of A and b disagree.
	ErrShapeMismatch = errors.New("linsolve: dimension mismatch between A and b")

	// ErrNegativeNoiseScale is returned by the noisy variant for a
	// negative noise scale.
	ErrNegativeNoiseScale = errors.New("linsolve: noise scale must be non-negative")

	// ErrUnsupportedPrior is returned when the combination of supplied
	// prior beliefs is not implemented.
	ErrUnsupportedPrior = errors.New("linsolve: unsupported prior combination")

	// ErrDegenerateDirection is returned when a search direction carries
	// no information: a (near-)zero curvature s'y, a (near-)zero
	// normalization p'Wp in a belief update, or non-finite entries in the
	// direction or observation. The wrapped message names the iteration
	// and the degenerate quantity.
	ErrDegenerateDirection = errors.New("linsolve: degenerate search direction")
)

// Warning codes reported in Info.Warnings.
const (
	// WarnMaxIter: the solver stopped because it hit the iteration cap.
	WarnMaxIter = "maxiter"
	// WarnCostlyInversion: a prior mean was inverted by materializing it.
	WarnCostlyInversion = "costly_inversion"
	// WarnInversionFallback: a prior mean could not be inverted and the
	// identity was used instead.
	WarnInversionFallback = "inversion_fallback"
)

// Warning is an advisory condition encountered during a solve. Warnings do
// not stop the iteration; they are collected in Info.Warnings so callers can
// inspect them programmatically.
type Warning struct {
	Code    string
	Message string
}
