package simulator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnibs/ti-orchestrator/pkg/electrode"
	"github.com/simnibs/ti-orchestrator/pkg/fe"
	"github.com/simnibs/ti-orchestrator/pkg/fe/memfe"
	"github.com/simnibs/ti-orchestrator/pkg/layout"
	"github.com/simnibs/ti-orchestrator/pkg/subject"
	"github.com/simnibs/ti-orchestrator/pkg/tierr"
)

func testNet() subject.NetTable {
	return subject.NetTable{
		Name: "EEG10-20",
		Electrodes: map[string]subject.Electrode{
			"Fz": {Label: "Fz", Pos: r3.Vec{X: 0, Y: 80, Z: 20}},
			"Pz": {Label: "Pz", Pos: r3.Vec{X: 0, Y: -80, Z: 20}},
			"C3": {Label: "C3", Pos: r3.Vec{X: -70, Y: 0, Z: 40}},
			"C4": {Label: "C4", Pos: r3.Vec{X: 70, Y: 0, Z: 40}},
		},
		Order: []string{"Fz", "Pz", "C3", "C4"},
	}
}

func testConductivity() fe.ConductivityModel {
	return fe.ConductivityModel{Isotropic: map[int]float64{
		memfe.TissueWhiteMatter: 0.126, memfe.TissueGreyMatter: 0.275,
		memfe.TissueCSF: 1.654, memfe.TissueSkull: 0.01, memfe.TissueScalp: 0.465,
	}}
}

func testSpec() electrode.Spec {
	return electrode.Spec{Dimensions: [2]float64{2, 2}, ThicknessMM: 4, Conductivity: 1.4}
}

func TestRunProducesWrittenResultAndClearsMarker(t *testing.T) {
	lib := memfe.New()
	subj, err := subject.Load(context.Background(), lib, "s01", map[string]subject.NetTable{"EEG10-20": testNet()})
	require.NoError(t, err)
	proj := layout.Project{Root: t.TempDir()}
	montage := electrode.SimplePairMontage("central_montage", "EEG10-20", "Fz", "Pz", 2, "C3", "C4", 2)

	res, err := Run(context.Background(), lib, proj, subj, montage, testSpec(), testConductivity(), false, nil)
	require.NoError(t, err)
	assert.Equal(t, stateWritten, res.State)
	assert.NotEmpty(t, res.WrittenPaths)

	_, err = os.Stat(proj.InProgressMarker("s01", "central_montage"))
	assert.True(t, os.IsNotExist(err))

	for _, p := range res.WrittenPaths {
		_, statErr := os.Stat(p)
		assert.NoError(t, statErr, "expected %s to exist", p)
	}
}

func TestRunRejectsExistingOutputWithoutOverwrite(t *testing.T) {
	lib := memfe.New()
	subj, err := subject.Load(context.Background(), lib, "s01", map[string]subject.NetTable{"EEG10-20": testNet()})
	require.NoError(t, err)
	proj := layout.Project{Root: t.TempDir()}
	montage := electrode.SimplePairMontage("central_montage", "EEG10-20", "Fz", "Pz", 2, "C3", "C4", 2)

	_, err = Run(context.Background(), lib, proj, subj, montage, testSpec(), testConductivity(), false, nil)
	require.NoError(t, err)

	_, err = Run(context.Background(), lib, proj, subj, montage, testSpec(), testConductivity(), false, nil)
	require.Error(t, err)
	kind, ok := tierr.Of(err)
	assert.True(t, ok)
	assert.Equal(t, tierr.OutputExists, kind)
}

func TestRunOverwriteReplacesExistingOutput(t *testing.T) {
	lib := memfe.New()
	subj, err := subject.Load(context.Background(), lib, "s01", map[string]subject.NetTable{"EEG10-20": testNet()})
	require.NoError(t, err)
	proj := layout.Project{Root: t.TempDir()}
	montage := electrode.SimplePairMontage("central_montage", "EEG10-20", "Fz", "Pz", 2, "C3", "C4", 2)

	_, err = Run(context.Background(), lib, proj, subj, montage, testSpec(), testConductivity(), false, nil)
	require.NoError(t, err)

	res2, err := Run(context.Background(), lib, proj, subj, montage, testSpec(), testConductivity(), true, nil)
	require.NoError(t, err)
	assert.Equal(t, stateWritten, res2.State)
}

func TestRunRejectsInvalidMontage(t *testing.T) {
	lib := memfe.New()
	subj, err := subject.Load(context.Background(), lib, "s01", map[string]subject.NetTable{"EEG10-20": testNet()})
	require.NoError(t, err)
	proj := layout.Project{Root: t.TempDir()}
	montage := electrode.SimplePairMontage("bad", "EEG10-20", "Fz", "ZZZ", 2, "C3", "C4", 2)

	_, err = Run(context.Background(), lib, proj, subj, montage, testSpec(), testConductivity(), false, nil)
	assert.Error(t, err)
}

func TestClaimOutputDirWritesMarker(t *testing.T) {
	root := t.TempDir()
	simDir := filepath.Join(root, "sim")
	marker := filepath.Join(simDir, "_in_progress")

	require.NoError(t, claimOutputDir(simDir, marker, false))
	_, err := os.Stat(marker)
	assert.NoError(t, err)
}

func TestClaimOutputDirFailsOnNonEmptyWithoutOverwrite(t *testing.T) {
	root := t.TempDir()
	simDir := filepath.Join(root, "sim")
	marker := filepath.Join(simDir, "_in_progress")
	require.NoError(t, os.MkdirAll(simDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(simDir, "leftover.txt"), []byte("x"), 0o644))

	err := claimOutputDir(simDir, marker, false)
	require.Error(t, err)
	kind, ok := tierr.Of(err)
	assert.True(t, ok)
	assert.Equal(t, tierr.OutputExists, kind)
}
