// Package simulator builds per-channel FE solves and derives the TI
// envelope field from them: the session builder, solver driver, and TI
// post-processing stage for one named simulation run.
package simulator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/simnibs/ti-orchestrator/internal/progress"
	"github.com/simnibs/ti-orchestrator/pkg/electrode"
	"github.com/simnibs/ti-orchestrator/pkg/fe"
	"github.com/simnibs/ti-orchestrator/pkg/geo"
	"github.com/simnibs/ti-orchestrator/pkg/layout"
	"github.com/simnibs/ti-orchestrator/pkg/subject"
	"github.com/simnibs/ti-orchestrator/pkg/ti"
	"github.com/simnibs/ti-orchestrator/pkg/tierr"
)

// state names the simulator's per-run state machine:
// idle -> validated -> submitted -> solved -> post-processed -> written.
type state int

const (
	stateIdle state = iota
	stateValidated
	stateSubmitted
	stateSolved
	statePostProcessed
	stateWritten
)

// Result is everything one simulation run produces, in memory and on disk.
type Result struct {
	Name          string
	State         state
	Channel1Field fe.Field // nodal E vector, full head
	Channel2Field fe.Field
	TI            ti.Fields // full head
	GreyTI        ti.Fields // grey-matter submesh
	WrittenPaths  []string
}

// referenceVolumer is implemented by FE libraries (e.g. memfe) that can
// supply a template voxel grid for a subject without reading one from disk;
// matches subject.go's meshBuilder type-assertion idiom for an optional
// backend capability.
type referenceVolumer interface {
	ReferenceVolume(space geo.Space) *fe.Volume
}

// Run executes one simulation: validate, solve both channels, derive TI,
// write mesh and voxel outputs in subject and MNI space, full-head and
// grey-matter-submesh. overwrite controls whether pre-existing output for
// this run name may be replaced.
func Run(ctx context.Context, lib fe.Library, proj layout.Project, subj *subject.Subject, montage electrode.Montage, spec electrode.Spec, conductivity fe.ConductivityModel, overwrite bool, rep *progress.Reporter) (*Result, error) {
	res := &Result{Name: montage.Name, State: stateIdle}

	net, err := subj.Net(montage.NetName)
	if err != nil {
		return nil, tierr.Wrap(tierr.InvalidMontage, montage.Name, "resolving net", err)
	}
	if err := montage.Validate(net); err != nil {
		return nil, err
	}
	res.State = stateValidated
	rep.Step("Validated montage %q against net %q", montage.Name, montage.NetName)

	simDir := proj.SimDir(subj.ID, montage.Name)
	marker := proj.InProgressMarker(subj.ID, montage.Name)
	if err := claimOutputDir(simDir, marker, overwrite); err != nil {
		return nil, err
	}
	defer func() {
		if res.State != stateWritten {
			os.RemoveAll(simDir) // a failed run leaves output fully absent, never partial
		}
	}()

	mesh, err := subj.Mesh(ctx)
	if err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}

	placements1, err := electrode.ResolvePlacements(montage.Channel1, net, spec)
	if err != nil {
		return nil, err
	}
	placements2, err := electrode.ResolvePlacements(montage.Channel2, net, spec)
	if err != nil {
		return nil, err
	}

	res.State = stateSubmitted
	rep.Step("Solving channel 1 (%d electrodes)", len(placements1))
	field1, err := lib.Solve(ctx, mesh, placements1, conductivity)
	if err != nil {
		return nil, tierr.Wrap(tierr.SolverFailure, montage.Name, "channel 1 solve", err)
	}
	rep.Step("Solving channel 2 (%d electrodes)", len(placements2))
	field2, err := lib.Solve(ctx, mesh, placements2, conductivity)
	if err != nil {
		return nil, tierr.Wrap(tierr.SolverFailure, montage.Name, "channel 2 solve", err)
	}
	res.Channel1Field, res.Channel2Field = field1, field2
	res.State = stateSolved

	select {
	case <-ctx.Done():
		return nil, tierr.Wrap(tierr.Cancelled, montage.Name, "after solve", ctx.Err())
	default:
	}

	rep.Step("Deriving TI envelope fields")
	normals := mesh.RadialNormals()
	res.TI = ti.Derive(field1.Data, field2.Data, normals)

	grey := buildGreySubmesh(mesh)
	greyE1 := grey.restrictNodal(field1.Data, 3)
	greyE2 := grey.restrictNodal(field2.Data, 3)
	greyNormals := grey.restrictNodal(normals, 3)
	res.GreyTI = ti.Derive(greyE1, greyE2, greyNormals)
	res.State = statePostProcessed

	if err := writeOutputs(ctx, lib, proj, subj, mesh, grey, montage, field1, field2, res, marker); err != nil {
		return nil, err
	}
	res.State = stateWritten
	rep.Done("Simulation %q complete", montage.Name)
	return res, nil
}

// claimOutputDir enforces the output-ownership policy: fail with
// OutputExists before any compute if the directory is non-empty and
// overwrite is false; otherwise create it (and a fresh _in_progress marker).
func claimOutputDir(simDir, marker string, overwrite bool) error {
	entries, err := os.ReadDir(simDir)
	if err == nil && len(entries) > 0 && !overwrite {
		return tierr.New(tierr.OutputExists, simDir, "simulation output already exists; pass overwrite=true to replace it")
	}
	if err == nil && len(entries) > 0 && overwrite {
		if err := os.RemoveAll(simDir); err != nil {
			return fmt.Errorf("simulator: clearing existing output %s: %w", simDir, err)
		}
	}
	if err := os.MkdirAll(simDir, 0o755); err != nil {
		return fmt.Errorf("simulator: creating output directory %s: %w", simDir, err)
	}
	if err := os.WriteFile(marker, []byte(time.Now().UTC().Format(time.RFC3339)), 0o644); err != nil {
		return fmt.Errorf("simulator: writing in-progress marker: %w", err)
	}
	return nil
}
