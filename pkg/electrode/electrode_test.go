package electrode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnibs/ti-orchestrator/pkg/config"
	"github.com/simnibs/ti-orchestrator/pkg/subject"
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

func TestChannelValidateRequiresElectroneutrality(t *testing.T) {
	ch := Channel{Placements: []Placement{{Label: "Fz", CurrentMA: 2}, {Label: "Pz", CurrentMA: -2}}}
	assert.NoError(t, ch.Validate())

	bad := Channel{Placements: []Placement{{Label: "Fz", CurrentMA: 2}, {Label: "Pz", CurrentMA: -1}}}
	assert.Error(t, bad.Validate())
}

func TestChannelValidateRequiresAtLeastTwoElectrodes(t *testing.T) {
	ch := Channel{Placements: []Placement{{Label: "Fz", CurrentMA: 0}}}
	assert.Error(t, ch.Validate())
}

func TestMontageValidateRejectsUnknownElectrode(t *testing.T) {
	m := SimplePairMontage("m1", "EEG10-20", "Fz", "Pz", 2, "C3", "ZZZ", 2)
	assert.Error(t, m.Validate(testNet()))
}

func TestMontageValidateAcceptsSimplePair(t *testing.T) {
	m := SimplePairMontage("m1", "EEG10-20", "Fz", "Pz", 2, "C3", "C4", 2)
	require.NoError(t, m.Validate(testNet()))
}

func TestMontageValidateRejectsDuplicateWithinChannel(t *testing.T) {
	m := Montage{
		Name: "m1", NetName: "EEG10-20",
		Channel1: Channel{Placements: []Placement{{Label: "Fz", CurrentMA: 2}, {Label: "Fz", CurrentMA: -2}}},
		Channel2: Channel{Placements: []Placement{{Label: "C3", CurrentMA: 2}, {Label: "C4", CurrentMA: -2}}},
	}
	assert.Error(t, m.Validate(testNet()))
}

func TestResolvePlacementsAssignsRadialNormals(t *testing.T) {
	spec := Spec{Shape: config.ElectrodeRect, Dimensions: [2]float64{2, 2}, ThicknessMM: 4, Conductivity: 1.4}
	ch := Channel{Placements: []Placement{{Label: "Fz", CurrentMA: 2}, {Label: "Pz", CurrentMA: -2}}}
	placements, err := ResolvePlacements(ch, testNet(), spec)
	require.NoError(t, err)
	require.Len(t, placements, 2)

	n := placements[0].Normal
	assert.InDelta(t, 1.0, r3.Norm(r3.Vec{X: n.X, Y: n.Y, Z: n.Z}), 1e-9)
	assert.Equal(t, 2.0, placements[0].CurrentMA)
	assert.Equal(t, -2.0, placements[1].CurrentMA)
}

func TestResolvePlacementsRejectsUnknownLabel(t *testing.T) {
	spec := Spec{Shape: config.ElectrodeRect, Dimensions: [2]float64{2, 2}, ThicknessMM: 4}
	ch := Channel{Placements: []Placement{{Label: "ZZZ", CurrentMA: 2}, {Label: "Pz", CurrentMA: -2}}}
	_, err := ResolvePlacements(ch, testNet(), spec)
	assert.Error(t, err)
}
