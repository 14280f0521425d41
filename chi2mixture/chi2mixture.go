// Package chi2mixture estimates calibrated p-values for likelihood-ratio test
// statistics whose null distribution is a two-component mixture of chi-square
// distributions:
//
//	(1-π)·χ²(0) + π·a·χ²(d)
//
// Here π is the probability of landing in the non-degenerate component, and a
// and d are the scale and degrees of freedom of that component. This
// distribution shows up when a variance-component test statistic is
// boundary-constrained (for example, a variance parameter restricted to be
// non-negative), which piles probability mass onto zero and makes the usual
// single chi-square reference distribution anti-conservative.
//
// π is estimated directly as the fraction of null statistics exceeding a zero
// tolerance; a and d are fit by grid search against the empirical tail
// quantiles on the log10 scale.
package chi2mixture

import (
	"errors"
	"fmt"
)

// ErrNoTail is returned by Estimate when no statistic in the sample exceeds
// the zero tolerance, in which case the chi-square component cannot be fit.
var ErrNoTail = errors.New("no statistic exceeds the zero tolerance")

// Config bounds the grid search. Construct it with NewConfig, which validates
// the bounds, or start from DefaultConfig.
type Config struct {
	// ScaleMin and ScaleMax bound the search for the scale parameter a.
	ScaleMin, ScaleMax float64

	// DofMin and DofMax bound the search for the degrees of freedom d.
	DofMin, DofMax float64

	// NIntervals is the number of equally spaced grid points per axis.
	NIntervals int

	// QMax is the fraction of the nonzero statistics, taken from the top,
	// used for fitting scale and dof.
	QMax float64

	// Tol is the threshold at or below which a statistic is treated as
	// belonging to the point mass at zero.
	Tol float64
}

// DefaultConfig returns the search bounds used by the reference
// implementation: scale and dof each searched over [0.1, 5] with 100 grid
// points per axis, fitting on the top 10% of the nonzero statistics.
func DefaultConfig() Config {
	return Config{
		ScaleMin:   0.1,
		ScaleMax:   5.0,
		DofMin:     0.1,
		DofMax:     5.0,
		NIntervals: 100,
		QMax:       0.1,
		Tol:        0,
	}
}

// NewConfig validates the given bounds and returns a Config. The scale and
// dof bounds must be positive with min strictly below max, nIntervals must be
// at least 2, qmax must be in (0, 1], and tol must be non-negative.
func NewConfig(scaleMin, scaleMax, dofMin, dofMax float64, nIntervals int, qmax, tol float64) (Config, error) {
	cfg := Config{
		ScaleMin:   scaleMin,
		ScaleMax:   scaleMax,
		DofMin:     dofMin,
		DofMax:     dofMax,
		NIntervals: nIntervals,
		QMax:       qmax,
		Tol:        tol,
	}

	return cfg, cfg.validate()
}

func (cfg Config) validate() error {
	switch {
	case cfg.ScaleMin <= 0:
		return fmt.Errorf("ScaleMin must be positive, got %g", cfg.ScaleMin)
	case cfg.ScaleMin >= cfg.ScaleMax:
		return fmt.Errorf("ScaleMin (%g) must be below ScaleMax (%g)", cfg.ScaleMin, cfg.ScaleMax)
	case cfg.DofMin <= 0:
		return fmt.Errorf("DofMin must be positive, got %g", cfg.DofMin)
	case cfg.DofMin >= cfg.DofMax:
		return fmt.Errorf("DofMin (%g) must be below DofMax (%g)", cfg.DofMin, cfg.DofMax)
	case cfg.NIntervals < 2:
		return fmt.Errorf("NIntervals must be at least 2, got %d", cfg.NIntervals)
	case cfg.QMax <= 0 || cfg.QMax > 1:
		return fmt.Errorf("QMax must be in (0, 1], got %g", cfg.QMax)
	case cfg.Tol < 0:
		return fmt.Errorf("Tol must be non-negative, got %g", cfg.Tol)
	}

	return nil
}

// Fit holds the estimated mixture parameters. It is an immutable value:
// re-estimating produces a new Fit rather than mutating an old one, so a Fit
// may be shared freely across goroutines.
type Fit struct {
	// Mixture is π, the estimated fraction of statistics exceeding Tol.
	Mixture float64

	// Scale and Dof are the best grid values found for a and d.
	Scale float64
	Dof   float64

	// MSE is the minimized mean squared log10-quantile error of the fit. It
	// is diagnostic only; Survival does not use it.
	MSE float64

	// Tol is carried over from the Config so that Survival clamps
	// statistics into the point mass the same way Estimate classified them.
	Tol float64
}
