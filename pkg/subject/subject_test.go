package subject

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simnibs/ti-orchestrator/pkg/fe/memfe"
)

func TestLoadResolvesAffineAndAttachesNets(t *testing.T) {
	lib := memfe.New()
	net := NetTable{Name: "EEG10-20", Electrodes: map[string]Electrode{}, Order: nil}
	subj, err := Load(context.Background(), lib, "ernie_extended", map[string]NetTable{net.Name: net})
	require.NoError(t, err)
	assert.Equal(t, "ernie_extended", subj.ID)

	got, err := subj.Net("EEG10-20")
	require.NoError(t, err)
	assert.Equal(t, net.Name, got.Name)

	_, err = subj.Net("does-not-exist")
	assert.Error(t, err)
}

func TestMeshIsCachedAcrossCalls(t *testing.T) {
	lib := memfe.New()
	subj, err := Load(context.Background(), lib, "ernie_extended", nil)
	require.NoError(t, err)

	m1, err := subj.Mesh(context.Background())
	require.NoError(t, err)
	m2, err := subj.Mesh(context.Background())
	require.NoError(t, err)
	assert.Same(t, m1, m2)
}

func TestScalpCenterAndRadiusAreConsistentWithMesh(t *testing.T) {
	lib := memfe.New()
	subj, err := Load(context.Background(), lib, "ernie_extended", nil)
	require.NoError(t, err)
	mesh, err := subj.Mesh(context.Background())
	require.NoError(t, err)

	center := ScalpCenter(mesh, memfe.TissueScalp)
	radius := ScalpRadius(mesh, memfe.TissueScalp, center)
	assert.Greater(t, radius, 0.0)
	assert.InDelta(t, 0, center.X, 5) // synthetic head is centered near the origin
}

func TestSortedNetNames(t *testing.T) {
	lib := memfe.New()
	nets := map[string]NetTable{
		"EEG10-20": {Name: "EEG10-20"},
		"EGI256":   {Name: "EGI256"},
	}
	subj, err := Load(context.Background(), lib, "s01", nets)
	require.NoError(t, err)
	assert.Equal(t, []string{"EEG10-20", "EGI256"}, subj.SortedNetNames())
}
