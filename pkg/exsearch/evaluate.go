package exsearch

import (
	"context"
	"fmt"
	"math"

	"github.com/simnibs/ti-orchestrator/pkg/analyzer"
	"github.com/simnibs/ti-orchestrator/pkg/config"
	"github.com/simnibs/ti-orchestrator/pkg/fe"
	"github.com/simnibs/ti-orchestrator/pkg/geo"
	"github.com/simnibs/ti-orchestrator/pkg/leadfield"
	"github.com/simnibs/ti-orchestrator/pkg/ti"
)

// negInf/posInf mark a candidate that failed evaluation or a degenerate
// ratio goal: a failed candidate's goal becomes -Inf so it always sorts
// last in a maximizing top-K ranking.
var (
	negInf = math.Inf(-1)
	posInf = math.Inf(1)
)

// Evaluation is one candidate's full evaluation outcome: its goal value (or
// a sentinel on failure) plus the ROI statistics the ranking and persisted
// output need.
type Evaluation struct {
	Candidate Candidate
	Goal      float64
	ROIStats  analyzer.Stats
	Failed    bool
	Err       error
}

// Evaluate runs the four-step evaluation for one candidate: superpose each
// channel's field from the leadfield, derive the TI envelope, restrict to
// the ROI via the analyzer, and reduce to a scalar goal. A leadfield lookup
// failure (e.g. an electrode absent from the net order) is treated as
// SolverFailure at the candidate level: the goal becomes -Inf and the
// search continues, since one bad candidate should not abort a long search.
func Evaluate(ctx context.Context, lf *leadfield.Leadfield, mesh *fe.Mesh, meshSpace geo.Space, affine geo.Affine, an *analyzer.Analyzer, roi *analyzer.ROI, cand Candidate, goal config.Goal) Evaluation {
	e1, err := lf.Superpose(cand.A, cand.B, cand.I1)
	if err != nil {
		return Evaluation{Candidate: cand, Goal: negInf, Failed: true, Err: fmt.Errorf("exsearch: channel 1: %w", err)}
	}
	e2, err := lf.Superpose(cand.C, cand.D, cand.I2)
	if err != nil {
		return Evaluation{Candidate: cand, Goal: negInf, Failed: true, Err: fmt.Errorf("exsearch: channel 2: %w", err)}
	}

	normals := mesh.RadialNormals()
	fields := ti.Derive(e1, e2, normals)
	maxField := fe.Field{Name: "TI_max", Domain: fe.NodeDomain, Dim: 1, Count: len(fields.Max), Data: fields.Max}

	roiStats, err := an.AnalyzeMesh(ctx, mesh, meshSpace, affine, maxField, roi)
	if err != nil {
		return Evaluation{Candidate: cand, Goal: negInf, Failed: true, Err: fmt.Errorf("exsearch: ROI analysis: %w", err)}
	}

	var goalValue float64
	switch goal {
	case config.GoalMean:
		goalValue = roiStats.Mean
	case config.GoalMedian:
		goalValue = roiStats.Median
	case config.GoalP99:
		goalValue = roiStats.P99
	case config.GoalFocality:
		if roiStats.VolumeMM3 > 0 {
			goalValue = roiStats.Focality50 / roiStats.VolumeMM3
		}
	case config.GoalRatio:
		wholeStats, err := an.AnalyzeMesh(ctx, mesh, meshSpace, affine, maxField, nil)
		if err != nil {
			return Evaluation{Candidate: cand, Goal: negInf, Failed: true, Err: fmt.Errorf("exsearch: whole-head analysis: %w", err)}
		}
		goalValue = ratioInVsOut(roiStats, wholeStats)
	default:
		return Evaluation{Candidate: cand, Goal: negInf, Failed: true, Err: fmt.Errorf("exsearch: unknown goal %q", goal)}
	}

	return Evaluation{Candidate: cand, Goal: goalValue, ROIStats: roiStats}
}

// ratioInVsOut computes mean(ROI) / mean(complement), deriving the
// complement's volume-weighted mean from the whole-head and ROI
// volume-weighted sums rather than resolving a second, inverted mask. Both
// Mean fields are themselves volume-weighted, so the sums they're
// reconstructed from must be weighted by VolumeMM3, not by element Count.
func ratioInVsOut(roi, whole analyzer.Stats) float64 {
	outsideVolume := whole.VolumeMM3 - roi.VolumeMM3
	if outsideVolume <= 0 || roi.Mean == 0 {
		return 0
	}
	outsideSum := whole.Mean*whole.VolumeMM3 - roi.Mean*roi.VolumeMM3
	outsideMean := outsideSum / outsideVolume
	if outsideMean == 0 {
		return posInf
	}
	return roi.Mean / outsideMean
}
