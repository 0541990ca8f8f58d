// Package exsearch enumerates electrode quadruples and current ratios,
// evaluates the resulting TI field in an ROI via a precomputed leadfield,
// and ranks the top-K candidates.
package exsearch

// GenerateRatios builds the current-ratio grid {(i, total-i) : step <= i <=
// total-step, step}. When step > total/2 no i satisfies the bound, so the
// grid is empty, not an error — ex-search then returns an empty ranked
// list rather than failing.
func GenerateRatios(total, step float64) [][2]float64 {
	if total <= 0 || step <= 0 {
		return nil
	}
	const eps = 1e-9
	if step > total/2+eps {
		return nil
	}
	var out [][2]float64
	for i := step; i <= total-step+eps; i += step {
		out = append(out, [2]float64{i, total - i})
	}
	return out
}
