package simulator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/simnibs/ti-orchestrator/pkg/fe"
)

func TestVectorMagnitudeReducesToEuclideanNorm(t *testing.T) {
	v := fe.NewVectorField("E", fe.NodeDomain, 2)
	v.Data = []float64{3, 4, 0, 0, 0, 5}
	mag := vectorMagnitude("magE", v)
	assert.Equal(t, 2, mag.Count)
	assert.InDelta(t, 5.0, mag.Data[0], 1e-12)
	assert.InDelta(t, 5.0, mag.Data[1], 1e-12)
	assert.True(t, !math.IsNaN(mag.Data[0]))
}

func TestScalarFieldFromWrapsRawData(t *testing.T) {
	data := []float64{1, 2, 3}
	f := scalarFieldFrom("TI_max", fe.NodeDomain, data)
	assert.Equal(t, "TI_max", f.Name)
	assert.Equal(t, 1, f.Dim)
	assert.Equal(t, 3, f.Count)
	assert.Equal(t, data, f.Data)
}
