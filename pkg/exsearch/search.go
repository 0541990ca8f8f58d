package exsearch

import (
	"context"
	"fmt"
	"sort"

	"github.com/simnibs/ti-orchestrator/pkg/analyzer"
	"github.com/simnibs/ti-orchestrator/pkg/config"
	"github.com/simnibs/ti-orchestrator/pkg/fe"
	"github.com/simnibs/ti-orchestrator/pkg/geo"
	"github.com/simnibs/ti-orchestrator/pkg/leadfield"
	"github.com/simnibs/ti-orchestrator/pkg/subject"
	"github.com/simnibs/ti-orchestrator/pkg/tierr"
	"github.com/simnibs/ti-orchestrator/pkg/util"
)

// Report is the full ex-search outcome: the top-K candidates by goal value,
// plus how many of the candidates considered failed evaluation, surfaced as
// a quality metric rather than dropped silently.
type Report struct {
	Ranked     []Evaluation
	Considered int
	Failed     int
}

// Params bundles an ex-search run's electrode pools, ratio grid, ROI, and
// ranking controls.
type Params struct {
	PoolL1A, PoolL1B, PoolL2A, PoolL2B []string
	CurrentTotal, CurrentStep          float64
	BreakSymmetry                      bool
	Goal                                config.Goal
	TopK                                int
	ROI                                 *analyzer.ROI
}

// Run enumerates candidates from Params, evaluates each against the given
// leadfield, and returns the top-K by goal value descending. Evaluation
// failures are tallied in the Report but never abort the run.
func Run(ctx context.Context, lf *leadfield.Leadfield, mesh *fe.Mesh, meshSpace geo.Space, affine geo.Affine, an *analyzer.Analyzer, net subject.NetTable, params Params) (Report, error) {
	ratios := GenerateRatios(params.CurrentTotal, params.CurrentStep)
	if len(ratios) == 0 {
		return Report{}, nil
	}
	for _, pool := range [][]string{params.PoolL1A, params.PoolL1B, params.PoolL2A, params.PoolL2B} {
		for _, label := range pool {
			if _, ok := net.Lookup(label); !ok {
				return Report{}, tierr.New(tierr.InvalidMontage, label, "electrode pool references unknown net label")
			}
		}
	}

	candidates := Enumerate(params.PoolL1A, params.PoolL1B, params.PoolL2A, params.PoolL2B, ratios, params.BreakSymmetry)

	report := Report{Considered: len(candidates)}
	for _, cand := range candidates {
		select {
		case <-ctx.Done():
			return report, tierr.Wrap(tierr.Cancelled, "", "ex-search evaluation", ctx.Err())
		default:
		}
		eval := Evaluate(ctx, lf, mesh, meshSpace, affine, an, params.ROI, cand, params.Goal)
		if eval.Failed {
			report.Failed++
		}
		report.Ranked = append(report.Ranked, eval)
	}

	sort.SliceStable(report.Ranked, func(i, j int) bool {
		return report.Ranked[i].Goal > report.Ranked[j].Goal
	})

	topK := params.TopK
	if topK <= 0 || topK > len(report.Ranked) {
		topK = len(report.Ranked)
	}
	report.Ranked = report.Ranked[:topK]
	return report, nil
}

// Summary renders one evaluation's candidate and goal as a one-line record,
// the shape persisted ex-search output uses per result row.
func Summary(e Evaluation) string {
	i1 := util.FormatValueFactor(e.Candidate.I1/1000, "A")
	i2 := util.FormatValueFactor(e.Candidate.I2/1000, "A")
	return fmt.Sprintf("%s(+)/%s(-) @ %s, %s(+)/%s(-) @ %s -> goal=%.6g (n=%d)",
		e.Candidate.A, e.Candidate.B, i1,
		e.Candidate.C, e.Candidate.D, i2,
		e.Goal, e.ROIStats.Count)
}
