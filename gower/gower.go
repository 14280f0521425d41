// Package gower rescales covariance matrices by the Gower factor. A kinship
// or genetic relationship matrix K rescaled this way has an average effective
// variance of 1, which puts variance-component estimates from different
// relatedness matrices on a comparable scale:
//
//	K · (n-1) / (trace(K) - Σᵢ mᵢ)
//
// where n is the dimension of K and mᵢ is the mean of its i-th column.
package gower

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Factor computes the Gower rescaling constant for the square matrix k. It
// returns an error if k is not square or if the denominator
// trace(K) - Σ column means is zero or not finite, in which case no
// meaningful rescaling exists (e.g., the zero matrix).
func Factor(k mat.Matrix) (float64, error) {
	r, c := k.Dims()
	if r != c {
		return 0, fmt.Errorf("gower: matrix must be square, got %dx%d", r, c)
	}
	if r < 2 {
		return 0, fmt.Errorf("gower: matrix must be at least 2x2, got %dx%d", r, c)
	}

	// The sum of the column means is the grand sum over n.
	denom := mat.Trace(k) - mat.Sum(k)/float64(r)
	if denom == 0 || math.IsNaN(denom) || math.IsInf(denom, 0) {
		return 0, fmt.Errorf("gower: degenerate denominator %v", denom)
	}

	return float64(r-1) / denom, nil
}

// Normalize returns a Gower-rescaled copy of the covariance matrix k.
func Normalize(k mat.Matrix) (*mat.Dense, error) {
	factor, err := Factor(k)
	if err != nil {
		return nil, err
	}

	r, c := k.Dims()
	out := mat.NewDense(r, c, nil)
	out.Scale(factor, k)

	return out, nil
}

// NormalizeTo writes the Gower-rescaled k into dst, which must have the same
// dimensions as k. dst and k may be the same matrix, rescaling in place.
func NormalizeTo(dst *mat.Dense, k mat.Matrix) error {
	factor, err := Factor(k)
	if err != nil {
		return err
	}

	r, c := k.Dims()
	if dr, dc := dst.Dims(); dr != r || dc != c {
		return fmt.Errorf("gower: destination is %dx%d, want %dx%d", dr, dc, r, c)
	}

	dst.Scale(factor, k)

	return nil
}
