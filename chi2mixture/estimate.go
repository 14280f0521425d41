package chi2mixture

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// minSurvival floors chi-square survival probabilities before taking log10.
// The survival function underflows to exactly 0 for extreme arguments, and
// log10(0) = -Inf would turn the grid cell's mean squared error into NaN once
// squared and averaged against finite terms. Flooring at the smallest positive
// float keeps the cell finite while still scoring it as a terrible fit.
const minSurvival = math.SmallestNonzeroFloat64

// Estimate fits the mixture parameters to a sample of null test statistics.
//
// The mixing proportion is the fraction of the whole sample exceeding
// cfg.Tol. The scale and degrees of freedom are then chosen from the
// cfg.NIntervals × cfg.NIntervals grid over [ScaleMin, ScaleMax] ×
// [DofMin, DofMax] by minimizing the mean squared difference, on the log10
// scale, between the chi-square survival probabilities of the top statistics
// and their expected rank-based tail quantiles. When several grid cells tie
// on the minimum, the first cell in row-major order (scale outer, dof inner)
// wins, so results are reproducible even on flat error surfaces.
//
// Estimate returns ErrNoTail when no statistic exceeds cfg.Tol.
func Estimate(statistics []float64, cfg Config) (Fit, error) {
	if err := cfg.validate(); err != nil {
		return Fit{}, err
	}
	if len(statistics) == 0 {
		return Fit{}, fmt.Errorf("empty statistics sample")
	}

	tail := make([]float64, 0, len(statistics))
	for _, x := range statistics {
		if x > cfg.Tol {
			tail = append(tail, x)
		}
	}

	nFalse := len(tail)
	if nFalse == 0 {
		return Fit{}, ErrNoTail
	}

	mixture := float64(nFalse) / float64(len(statistics))

	sort.Sort(sort.Reverse(sort.Float64Slice(tail)))
	tail = tail[:fittingCount(cfg.QMax, nFalse)]
	logQ := logTailQuantiles(nFalse, len(tail))

	scales := make([]float64, cfg.NIntervals)
	floats.Span(scales, cfg.ScaleMin, cfg.ScaleMax)
	dofs := make([]float64, cfg.NIntervals)
	floats.Span(dofs, cfg.DofMin, cfg.DofMax)

	best := searchGrid(tail, logQ, scales, dofs)

	return Fit{
		Mixture: mixture,
		Scale:   best.scale,
		Dof:     best.dof,
		MSE:     best.mse,
		Tol:     cfg.Tol,
	}, nil
}

// fittingCount returns how many of the nFalse nonzero statistics take part in
// the fit: the top ceil(qmax·nFalse), but never more than the number of
// nonzero rank quantiles available (nFalse-1, because the quantile at 0 is
// discarded before taking logs). A single nonzero statistic still yields a
// one-point fit.
func fittingCount(qmax float64, nFalse int) int {
	n := int(math.Ceil(qmax * float64(nFalse)))
	if n < 1 {
		n = 1
	}
	if nFalse > 1 && n > nFalse-1 {
		n = nFalse - 1
	}

	return n
}

// logTailQuantiles returns log10 of the expected tail quantiles for the top
// nFitting of nFalse nonzero statistics: the points k/(nFalse-1) for
// k = 1..nFitting, i.e. nFalse equally spaced points on [0, 1] with the
// leading zero dropped. The k-th smallest quantile pairs with the k-th
// largest statistic. When nFalse == 1 the single statistic sits at quantile 1.
func logTailQuantiles(nFalse, nFitting int) []float64 {
	logQ := make([]float64, nFitting)
	if nFalse == 1 {
		return logQ
	}

	for k := 1; k <= nFitting; k++ {
		logQ[k-1] = math.Log10(float64(k) / float64(nFalse-1))
	}

	return logQ
}

type gridCell struct {
	scale, dof, mse float64
}

// searchGrid evaluates every (scale, dof) cell and returns the one with the
// smallest mean squared log-quantile error. Cells are independent, so rows
// (fixed scale) are scored concurrently; the final reduction walks rows in
// order with a strict < comparison, which preserves the first-minimum
// row-major tie-break.
func searchGrid(tail, logQ, scales, dofs []float64) gridCell {
	rowBest := make([]gridCell, len(scales))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, runtime.NumCPU())

	wg.Add(len(scales))
	for i, scale := range scales {
		semaphore <- struct{}{}

		go func(i int, scale float64) {
			defer wg.Done()
			defer func() { <-semaphore }()

			rowBest[i] = searchRow(tail, logQ, scale, dofs)
		}(i, scale)
	}
	wg.Wait()

	best := rowBest[0]
	for _, cell := range rowBest[1:] {
		if cell.mse < best.mse {
			best = cell
		}
	}

	return best
}

func searchRow(tail, logQ []float64, scale float64, dofs []float64) gridCell {
	best := gridCell{scale: scale, dof: dofs[0], mse: math.Inf(1)}

	for _, dof := range dofs {
		chi := distuv.ChiSquared{K: dof}

		var sum float64
		for i, x := range tail {
			p := chi.Survival(x / scale)
			if p < minSurvival {
				p = minSurvival
			}

			diff := logQ[i] - math.Log10(p)
			sum += diff * diff
		}

		if mse := sum / float64(len(tail)); mse < best.mse {
			best.dof = dof
			best.mse = mse
		}
	}

	return best
}
