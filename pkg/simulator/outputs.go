package simulator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/simnibs/ti-orchestrator/pkg/electrode"
	"github.com/simnibs/ti-orchestrator/pkg/fe"
	"github.com/simnibs/ti-orchestrator/pkg/geo"
	"github.com/simnibs/ti-orchestrator/pkg/layout"
	"github.com/simnibs/ti-orchestrator/pkg/subject"
)

// writeOutputs persists every artifact a simulation run produces: full-head
// and grey-matter TI meshes, per-channel high-frequency meshes, subject-
// and MNI-space voxel fields, and a timestamped solver log. The
// _in_progress marker is removed only after every write succeeds.
func writeOutputs(ctx context.Context, lib fe.Library, proj layout.Project, subj *subject.Subject, mesh *fe.Mesh, grey greySubmesh, montage electrode.Montage, field1, field2 fe.Field, res *Result, marker string) error {
	subjectID := subj.ID
	name := montage.Name

	magE1 := vectorMagnitude("magE", field1)
	magE2 := vectorMagnitude("magE", field2)
	tiFields := []fe.Field{
		scalarFieldFrom("TI_max", fe.NodeDomain, res.TI.Max),
		scalarFieldFrom("TI_normal", fe.NodeDomain, res.TI.Normal),
		scalarFieldFrom("TI_tangential", fe.NodeDomain, res.TI.Tangential),
	}

	if err := lib.WriteMesh(ctx, proj.TIMeshPath(subjectID, name, false), mesh, tiFields); err != nil {
		return fmt.Errorf("simulator: writing TI mesh: %w", err)
	}
	res.WrittenPaths = append(res.WrittenPaths, proj.TIMeshPath(subjectID, name, false))

	greyTIFields := []fe.Field{
		scalarFieldFrom("TI_max", fe.NodeDomain, res.GreyTI.Max),
		scalarFieldFrom("TI_normal", fe.NodeDomain, res.GreyTI.Normal),
		scalarFieldFrom("TI_tangential", fe.NodeDomain, res.GreyTI.Tangential),
	}
	if err := lib.WriteMesh(ctx, proj.TIMeshPath(subjectID, name, true), grey.Mesh, greyTIFields); err != nil {
		return fmt.Errorf("simulator: writing grey-matter TI mesh: %w", err)
	}
	res.WrittenPaths = append(res.WrittenPaths, proj.TIMeshPath(subjectID, name, true))

	for ch, f := range []fe.Field{field1, field2} {
		mag := magE1
		if ch == 1 {
			mag = magE2
		}
		path := proj.HighFrequencyMeshPath(subjectID, name, ch+1)
		if err := lib.WriteMesh(ctx, path, mesh, []fe.Field{f, mag}); err != nil {
			return fmt.Errorf("simulator: writing channel %d mesh: %w", ch+1, err)
		}
		res.WrittenPaths = append(res.WrittenPaths, path)
	}

	if rv, ok := lib.(referenceVolumer); ok {
		if err := writeVoxelOutputs(ctx, lib, rv, proj, subj, mesh, name, tiFields, field1, field2, magE1, magE2, res); err != nil {
			return err
		}
	}

	ts := time.Now().UTC().Unix()
	logPath := proj.SolverLogPath(subjectID, name, ts)
	logBody := fmt.Sprintf("simulation %q for subject %s: channels solved, TI envelope derived\n", name, subjectID)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("simulator: %w", err)
	}
	if err := os.WriteFile(logPath, []byte(logBody), 0o644); err != nil {
		return fmt.Errorf("simulator: writing solver log: %w", err)
	}
	res.WrittenPaths = append(res.WrittenPaths, logPath)

	if err := os.Remove(marker); err != nil {
		return fmt.Errorf("simulator: clearing in-progress marker: %w", err)
	}
	return nil
}

func writeVoxelOutputs(ctx context.Context, lib fe.Library, rv referenceVolumer, proj layout.Project, subj *subject.Subject, mesh *fe.Mesh, name string, tiFields []fe.Field, field1, field2, magE1, magE2 fe.Field, res *Result) error {
	spaces := []struct {
		tag   string
		space geo.Space
	}{
		{"subject", geo.Subject},
		{"MNI", geo.MNI},
	}

	for _, sp := range spaces {
		template := rv.ReferenceVolume(sp.space)
		for _, f := range tiFields {
			vol, err := lib.InterpolateToVoxel(ctx, mesh, f, template)
			if err != nil {
				return fmt.Errorf("simulator: interpolating %s to %s voxels: %w", f.Name, sp.tag, err)
			}
			path := proj.TINiftiPath(subj.ID, name, sp.tag, f.Name)
			if err := lib.WriteVolume(ctx, path, vol); err != nil {
				return fmt.Errorf("simulator: writing %s: %w", path, err)
			}
			res.WrittenPaths = append(res.WrittenPaths, path)
		}
		for ch, mag := range []fe.Field{magE1, magE2} {
			vol, err := lib.InterpolateToVoxel(ctx, mesh, mag, template)
			if err != nil {
				return fmt.Errorf("simulator: interpolating channel %d magnitude to %s voxels: %w", ch+1, sp.tag, err)
			}
			path := proj.HighFrequencyNiftiPath(subj.ID, name, ch+1, sp.tag)
			if err := lib.WriteVolume(ctx, path, vol); err != nil {
				return fmt.Errorf("simulator: writing %s: %w", path, err)
			}
			res.WrittenPaths = append(res.WrittenPaths, path)
		}
	}
	return nil
}
