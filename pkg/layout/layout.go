// Package layout centralizes the BIDS-flavored derivatives filesystem tree
// so no other package builds paths with ad-hoc fmt.Sprintf calls, mirroring
// the teacher's centralization of numeric formatting in a single util
// package.
package layout

import (
	"fmt"
	"math"
	"path/filepath"
)

// Project is the root of a BIDS derivatives tree for one SimNIBS-style
// dataset: <project>/derivatives/SimNIBS/sub-<id>/...
type Project struct {
	Root string
}

func (p Project) subjectDir(subjectID string) string {
	return filepath.Join(p.Root, "derivatives", "SimNIBS", "sub-"+subjectID)
}

// M2MDir is the subject head-model input directory.
func (p Project) M2MDir(subjectID string) string {
	return filepath.Join(p.subjectDir(subjectID), "m2m_"+subjectID)
}

// EEGPositionsCSV is the electrode coordinate table for one net.
func (p Project) EEGPositionsCSV(subjectID, net string) string {
	return filepath.Join(p.M2MDir(subjectID), "eeg_positions", net+".csv")
}

// SegmentationDir holds the subject's atlas volumes.
func (p Project) SegmentationDir(subjectID string) string {
	return filepath.Join(p.M2MDir(subjectID), "segmentation")
}

// ROIsDir holds persisted ROI definitions.
func (p Project) ROIsDir(subjectID string) string {
	return filepath.Join(p.M2MDir(subjectID), "ROIs")
}

// LeadfieldDir is the per-net leadfield cache directory.
func (p Project) LeadfieldDir(subjectID, net string) string {
	return filepath.Join(p.subjectDir(subjectID), "leadfields", "leadfield_vol_"+net)
}

// LeadfieldPath is the cache artifact file itself.
func (p Project) LeadfieldPath(subjectID, net string) string {
	return filepath.Join(p.LeadfieldDir(subjectID, net), "leadfield.hdf5")
}

// SimDir is the base directory for one named simulation run.
func (p Project) SimDir(subjectID, simName string) string {
	return filepath.Join(p.subjectDir(subjectID), "Simulations", simName)
}

// InProgressMarker is the sentinel file guarding one simulation run's
// output directory: present at startup means a prior crash, absent at
// completion means results are trustworthy.
func (p Project) InProgressMarker(subjectID, simName string) string {
	return filepath.Join(p.SimDir(subjectID, simName), "_in_progress")
}

// TIMeshPath is a TI-derived mesh output (full head or grey-matter submesh
// when grey is true).
func (p Project) TIMeshPath(subjectID, simName string, grey bool) string {
	name := simName + "_TI.msh"
	if grey {
		name = "grey_" + name
	}
	return filepath.Join(p.SimDir(subjectID, simName), "TI", "mesh", name)
}

// TINiftiPath is a TI-derived voxel field output, tagged by space
// ("subject" or "MNI") and field name ("TI_max", "TI_normal", "TI_tangential").
func (p Project) TINiftiPath(subjectID, simName, space, fieldName string) string {
	name := fmt.Sprintf("%s_TI_%s_%s_%s.nii.gz", simName, space, space, fieldName)
	return filepath.Join(p.SimDir(subjectID, simName), "TI", "niftis", name)
}

// HighFrequencyMeshPath is a per-channel (pre-TI) E-field mesh output.
func (p Project) HighFrequencyMeshPath(subjectID, simName string, channel int) string {
	name := fmt.Sprintf("%s_channel%d.msh", simName, channel)
	return filepath.Join(p.SimDir(subjectID, simName), "high_Frequency", "mesh", name)
}

// HighFrequencyNiftiPath is the per-channel voxel counterpart.
func (p Project) HighFrequencyNiftiPath(subjectID, simName string, channel int, space string) string {
	name := fmt.Sprintf("%s_channel%d_%s.nii.gz", simName, channel, space)
	return filepath.Join(p.SimDir(subjectID, simName), "high_Frequency", "niftis", name)
}

// SolverLogPath is a timestamped solver log under documentation/.
func (p Project) SolverLogPath(subjectID, simName string, timestamp int64) string {
	name := fmt.Sprintf("simnibs_simulation_%d.log", timestamp)
	return filepath.Join(p.SimDir(subjectID, simName), "documentation", name)
}

// SolverMatPath is the timestamped solver metadata sidecar.
func (p Project) SolverMatPath(subjectID, simName string, timestamp int64) string {
	name := fmt.Sprintf("simnibs_simulation_%d.mat", timestamp)
	return filepath.Join(p.SimDir(subjectID, simName), "documentation", name)
}

// AnalysisDir is the Mesh or Voxel analysis output directory for one ROI tag.
func (p Project) AnalysisDir(subjectID, simName, domain, roiTag string) string {
	return filepath.Join(p.SimDir(subjectID, simName), "Analyses", domain, roiTag)
}

// SphereROITag renders the integer-rounded sphere tag:
// sphere_x<X>_y<Y>_z<Z>_r<R>.
func SphereROITag(x, y, z, r float64) string {
	return fmt.Sprintf("sphere_x%d_y%d_z%d_r%d", round(x), round(y), round(z), round(r))
}

// RegionROITag renders an atlas-region tag: region_<name>.
func RegionROITag(name string) string {
	return "region_" + name
}

// WholeHeadROITag renders a whole-head analysis tag: whole_head_<atlas>.
func WholeHeadROITag(atlas string) string {
	return "whole_head_" + atlas
}

func round(v float64) int64 {
	return int64(math.Round(v))
}

// ExSearchCandidateDir is one candidate's output directory within an
// ex-search session, named xyz_<tag> after its electrode quadruple; the tag
// is caller-supplied since the candidate's position is a derived quantity,
// not an input.
func (p Project) ExSearchCandidateDir(subjectID, session, candidateTag string) string {
	return filepath.Join(p.subjectDir(subjectID), "ex-search", session, "xyz_"+candidateTag)
}

// FlexSearchSessionDir is one flex-search run's output directory.
func (p Project) FlexSearchSessionDir(subjectID, session string) string {
	return filepath.Join(p.subjectDir(subjectID), "flex-search", session)
}
