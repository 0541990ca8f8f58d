package layout

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testProject() Project {
	return Project{Root: "/data/study1"}
}

func TestM2MDirNestsUnderSubjectDerivatives(t *testing.T) {
	p := testProject()
	want := filepath.Join("/data/study1", "derivatives", "SimNIBS", "sub-s01", "m2m_s01")
	assert.Equal(t, want, p.M2MDir("s01"))
}

func TestEEGPositionsCSVNestsUnderM2M(t *testing.T) {
	p := testProject()
	got := p.EEGPositionsCSV("s01", "EEG10-20")
	assert.Equal(t, filepath.Join(p.M2MDir("s01"), "eeg_positions", "EEG10-20.csv"), got)
}

func TestLeadfieldPathNestsUnderLeadfieldDir(t *testing.T) {
	p := testProject()
	got := p.LeadfieldPath("s01", "EEG10-20")
	assert.Equal(t, filepath.Join(p.LeadfieldDir("s01", "EEG10-20"), "leadfield.hdf5"), got)
	assert.Contains(t, got, "leadfield_vol_EEG10-20")
}

func TestInProgressMarkerNestsUnderSimDir(t *testing.T) {
	p := testProject()
	got := p.InProgressMarker("s01", "central_montage")
	assert.Equal(t, filepath.Join(p.SimDir("s01", "central_montage"), "_in_progress"), got)
}

func TestTIMeshPathGreyPrefixesFilename(t *testing.T) {
	p := testProject()
	full := p.TIMeshPath("s01", "m1", false)
	grey := p.TIMeshPath("s01", "m1", true)
	assert.Equal(t, filepath.Base(full), "m1_TI.msh")
	assert.Equal(t, filepath.Base(grey), "grey_m1_TI.msh")
	assert.Equal(t, filepath.Dir(full), filepath.Dir(grey))
}

func TestTINiftiPathEncodesSpaceAndField(t *testing.T) {
	p := testProject()
	got := p.TINiftiPath("s01", "m1", "MNI", "TI_max")
	assert.Equal(t, "m1_TI_MNI_MNI_TI_max.nii.gz", filepath.Base(got))
}

func TestHighFrequencyMeshPathEncodesChannel(t *testing.T) {
	p := testProject()
	got := p.HighFrequencyMeshPath("s01", "m1", 2)
	assert.Equal(t, "m1_channel2.msh", filepath.Base(got))
}

func TestSphereROITagRoundsCoordinates(t *testing.T) {
	assert.Equal(t, "sphere_x10_y-5_z0_r12", SphereROITag(10.4, -4.6, 0.2, 11.6))
}

func TestRegionAndWholeHeadROITags(t *testing.T) {
	assert.Equal(t, "region_frontal-L", RegionROITag("frontal-L"))
	assert.Equal(t, "whole_head_bands", WholeHeadROITag("bands"))
}

func TestAnalysisDirNestsDomainAndROITag(t *testing.T) {
	p := testProject()
	got := p.AnalysisDir("s01", "m1", "Mesh", "region_frontal-L")
	assert.Equal(t, filepath.Join(p.SimDir("s01", "m1"), "Analyses", "Mesh", "region_frontal-L"), got)
}

func TestExSearchCandidateDirIsKeyedByTag(t *testing.T) {
	p := testProject()
	got := p.ExSearchCandidateDir("s01", "session1", "10_20_30")
	assert.Equal(t, filepath.Join(p.subjectDir("s01"), "ex-search", "session1", "xyz_10_20_30"), got)
}

func TestFlexSearchSessionDir(t *testing.T) {
	p := testProject()
	got := p.FlexSearchSessionDir("s01", "session1")
	assert.Equal(t, filepath.Join(p.subjectDir("s01"), "flex-search", "session1"), got)
}
