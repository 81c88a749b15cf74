// Package stats summarizes recorded funnel outcomes per treatment. It reads
// the analytics log after the fact; the state machine never consults it.
package stats

import (
	"math"

	"github.com/vity-loop/vity-loop/internal/store"
	"github.com/vity-loop/vity-loop/internal/variants"
)

// VariantResult holds the computed statistics for one treatment.
type VariantResult struct {
	ID          variants.ID
	Name        string
	Impressions int
	Conversions int
	Rate        float64
	CILower     float64
	CIUpper     float64
}

// Result is the full analysis across all treatments.
type Result struct {
	Variants        []VariantResult
	Confident       bool    // >= 95% confidence
	ConfidenceLevel float64 // 0-1
	Leading         int     // index into Variants
}

// Analyze computes conversion rates, Wilson intervals, and significance of
// the leading treatment against the control (the first treatment in order).
func Analyze(catalog variants.Catalog, outcomes []store.VariantOutcome) *Result {
	byVariant := make(map[variants.ID]store.VariantOutcome, len(outcomes))
	for _, o := range outcomes {
		byVariant[o.Variant] = o
	}

	ids := variants.All()
	results := make([]VariantResult, len(ids))
	maxRate := 0.0
	leading := 0

	for i, id := range ids {
		o := byVariant[id] // zero-valued when the treatment was never shown

		rate := 0.0
		if o.Impressions > 0 {
			rate = float64(o.Conversions) / float64(o.Impressions)
		}
		lower, upper := WilsonInterval(o.Conversions, o.Impressions, 0.95)

		results[i] = VariantResult{
			ID:          id,
			Name:        catalog[id].Name,
			Impressions: o.Impressions,
			Conversions: o.Conversions,
			Rate:        rate,
			CILower:     lower,
			CIUpper:     upper,
		}

		if rate > maxRate {
			maxRate = rate
			leading = i
		}
	}

	var confidence float64
	if len(results) >= 2 {
		challenger := leading
		if challenger == 0 {
			// Control leads: compare it against the best challenger.
			bestRate := -1.0
			for i := 1; i < len(results); i++ {
				if results[i].Rate > bestRate {
					bestRate = results[i].Rate
					challenger = i
				}
			}
			confidence = SignificanceTest(
				results[0].Conversions, results[0].Impressions,
				results[challenger].Conversions, results[challenger].Impressions,
			)
		} else {
			confidence = SignificanceTest(
				results[leading].Conversions, results[leading].Impressions,
				results[0].Conversions, results[0].Impressions,
			)
		}
	}

	return &Result{
		Variants:        results,
		Confident:       confidence >= 0.95,
		ConfidenceLevel: confidence,
		Leading:         leading,
	}
}

// WilsonInterval calculates the Wilson score confidence interval for a
// binomial proportion. More accurate for small samples than the normal
// approximation.
func WilsonInterval(successes, trials int, confidence float64) (lower, upper float64) {
	if trials == 0 {
		return 0, 0
	}

	z := zScore(confidence)
	p := float64(successes) / float64(trials)
	n := float64(trials)

	denominator := 1 + z*z/n
	center := (p + z*z/(2*n)) / denominator
	spread := (z / denominator) * math.Sqrt(p*(1-p)/n+z*z/(4*n*n))

	lower = math.Max(center-spread, 0)
	upper = math.Min(center+spread, 1)
	return lower, upper
}

// SignificanceTest performs a two-proportion z-test. Returns the confidence
// level (0-1) that treatment A converts better than treatment B.
func SignificanceTest(aConv, aShown, bConv, bShown int) float64 {
	if aShown == 0 || bShown == 0 {
		return 0.5 // need data from both sides
	}

	pA := float64(aConv) / float64(aShown)
	pB := float64(bConv) / float64(bShown)

	pooled := float64(aConv+bConv) / float64(aShown+bShown)
	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(aShown) + 1/float64(bShown)))

	if se == 0 {
		switch {
		case pA > pB:
			return 1.0
		case pA < pB:
			return 0.0
		default:
			return 0.5
		}
	}

	z := (pA - pB) / se
	return normalCDF(z)
}

// zScore returns the z-score for a confidence level, using precomputed
// values for the common cases.
func zScore(confidence float64) float64 {
	switch {
	case confidence >= 0.99:
		return 2.576
	case confidence >= 0.95:
		return 1.96
	case confidence >= 0.90:
		return 1.645
	case confidence >= 0.85:
		return 1.44
	case confidence >= 0.80:
		return 1.28
	default:
		return inverseNormalCDF((1 + confidence) / 2)
	}
}

// normalCDF approximates the standard normal CDF using Abramowitz & Stegun
// formula 7.1.26.
func normalCDF(x float64) float64 {
	a1 := 0.254829592
	a2 := -0.284496736
	a3 := 1.421413741
	a4 := -1.453152027
	a5 := 1.061405429
	p := 0.3275911

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt(2)

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}

// inverseNormalCDF is the Acklam rational approximation for the inverse of
// the standard normal CDF.
func inverseNormalCDF(p float64) float64 {
	a := []float64{-3.969683028665376e+01, 2.209460984245205e+02,
		-2.759285104469687e+02, 1.383577518672690e+02,
		-3.066479806614716e+01, 2.506628277459239e+00}
	b := []float64{-5.447609879822406e+01, 1.615858368580409e+02,
		-1.556989798598866e+02, 6.680131188771972e+01,
		-1.328068155288572e+01}
	c := []float64{-7.784894002430293e-03, -3.223964580411365e-01,
		-2.400758277161838e+00, -2.549732539343734e+00,
		4.374664141464968e+00, 2.938163982698783e+00}
	d := []float64{7.784695709041462e-03, 3.224671290700398e-01,
		2.445134137142996e+00, 3.754408661907416e+00}

	pLow := 0.02425
	pHigh := 1 - pLow

	var q, r float64

	switch {
	case p < pLow:
		q = math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	case p <= pHigh:
		q = p - 0.5
		r = q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	default:
		q = math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	}
}
