package chi2mixture

import "gonum.org/v1/gonum/stat/distuv"

// Survival computes the mixture p-value for each test statistic, in input
// order. Statistics below fit.Tol are clamped to zero, where the chi-square
// survival function is 1 and the p-value is exactly fit.Mixture: a statistic
// at the boundary gets the largest p-value the model assigns, which is the
// conservative choice. Every returned value lies in [0, fit.Mixture].
//
// Survival never fails for finite inputs.
func Survival(statistics []float64, fit Fit) []float64 {
	chi := distuv.ChiSquared{K: fit.Dof}

	pvalues := make([]float64, len(statistics))
	for i, x := range statistics {
		if x < fit.Tol {
			x = 0
		}

		pvalues[i] = fit.Mixture * chi.Survival(x/fit.Scale)
	}

	return pvalues
}
