package analyzer

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Stats is the fixed statistics schema returned by every analyzer call,
// mesh or voxel, sphere or atlas.
type Stats struct {
	Count      int
	Mean       float64
	Std        float64
	Min        float64
	Max        float64
	Median     float64
	P25        float64
	P75        float64
	P95        float64
	P99        float64
	VolumeMM3  float64
	Focality50 float64 // volume/area where field >= 50% of the ROI's 99.9th percentile
	Focality75 float64 // same, at the 75% threshold
}

// NullStats is the sentinel returned for an empty ROI: count=0 and every
// statistic set to NaN, not an error.
func NullStats() Stats {
	nan := math.NaN()
	return Stats{Mean: nan, Std: nan, Min: nan, Max: nan, Median: nan, P25: nan, P75: nan, P95: nan, P99: nan}
}

// Compute derives Stats over values that all share the same unitVolume
// (the voxel case, where every entry contributes one voxel's volume).
func Compute(values []float64, unitVolume float64) Stats {
	vols := make([]float64, len(values))
	for i := range vols {
		vols[i] = unitVolume
	}
	return computeWeighted(values, vols)
}

// ComputeMesh derives Stats over per-element values, each weighted by its
// own element's volume since mesh elements vary in size.
func ComputeMesh(values, elementVolumes []float64) Stats {
	return computeWeighted(values, elementVolumes)
}

// computeWeighted computes every mean, percentile, and standard deviation as
// a volume-weighted statistic, using volumes (aligned index-for-index with
// values) as weights throughout.
func computeWeighted(values, volumes []float64) Stats {
	n := len(values)
	if n == 0 {
		return NullStats()
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	sorted := make([]float64, n)
	sortedWeights := make([]float64, n)
	for i, idx := range order {
		sorted[i] = values[idx]
		sortedWeights[i] = volumes[idx]
	}

	totalVol := 0.0
	for _, v := range volumes {
		totalVol += v
	}

	s := Stats{
		Count:     n,
		Mean:      stat.Mean(values, volumes),
		Min:       sorted[0],
		Max:       sorted[n-1],
		Median:    stat.Quantile(0.50, stat.Empirical, sorted, sortedWeights),
		P25:       stat.Quantile(0.25, stat.Empirical, sorted, sortedWeights),
		P75:       stat.Quantile(0.75, stat.Empirical, sorted, sortedWeights),
		P95:       stat.Quantile(0.95, stat.Empirical, sorted, sortedWeights),
		P99:       stat.Quantile(0.99, stat.Empirical, sorted, sortedWeights),
		VolumeMM3: totalVol,
	}
	if n > 1 {
		s.Std = math.Sqrt(stat.Variance(values, volumes))
	}

	p999 := stat.Quantile(0.999, stat.Empirical, sorted, sortedWeights)
	s.Focality50 = focalVolume(values, volumes, 0.50*p999)
	s.Focality75 = focalVolume(values, volumes, 0.75*p999)
	return s
}

// focalVolume sums the volume of entries at or above threshold.
func focalVolume(values, volumes []float64, threshold float64) float64 {
	total := 0.0
	for i, v := range values {
		if v >= threshold {
			total += volumes[i]
		}
	}
	return total
}
