// Package electrode models electrode placement as value objects: the
// physical patch geometry, a signed-current pair forming one independent
// source, and the ordered two-channel tuple a TI simulation requires.
package electrode

import (
	"fmt"
	"math"

	"github.com/simnibs/ti-orchestrator/pkg/config"
	"github.com/simnibs/ti-orchestrator/pkg/fe"
	"github.com/simnibs/ti-orchestrator/pkg/subject"
	"github.com/simnibs/ti-orchestrator/pkg/tierr"
)

// Spec is the electrode patch geometry, shared by every placement in a run.
type Spec struct {
	Shape        config.ElectrodeShape
	Dimensions   [2]float64 // mm, mm
	ThicknessMM  float64
	Conductivity float64 // S/m
}

func FromConfig(c config.Config, conductivity float64) Spec {
	return Spec{
		Shape:       c.ElectrodeShape,
		Dimensions:  c.ElectrodeDimensions,
		ThicknessMM: c.ElectrodeThickness,
		Conductivity: conductivity,
	}
}

func (s Spec) feShape() fe.ElectrodeShape {
	if s.Shape == config.ElectrodeEllipse {
		return fe.ShapeEllipse
	}
	return fe.ShapeRect
}

// Placement pairs an electrode label (to be resolved against a net table)
// with a signed current in mA.
type Placement struct {
	Label     string
	CurrentMA float64
}

// Channel is one independent current-source pair: an ordered list of
// placements whose currents must sum to zero.
type Channel struct {
	Placements []Placement
}

// Validate checks electroneutrality and that it has at least 2 electrodes.
func (c Channel) Validate() error {
	if len(c.Placements) < 2 {
		return tierr.New(tierr.InvalidMontage, "", "channel requires at least 2 electrodes")
	}
	sum := 0.0
	for _, p := range c.Placements {
		sum += p.CurrentMA
	}
	const eps = 1e-9
	if math.Abs(sum) > eps {
		return tierr.New(tierr.InvalidMontage, fmt.Sprintf("%g", sum), "channel currents must sum to zero")
	}
	return nil
}

// Montage is the ordered tuple of exactly two channels TI requires, plus a
// name and the net it was built against.
type Montage struct {
	Name      string
	NetName   string
	Channel1  Channel
	Channel2  Channel
}

// Validate runs montage-level structural checks: exactly two channels
// (guaranteed by the type), each channel's own validity, that every label
// exists in net, and that no label repeats within one channel. A label may
// appear in both channels.
func (m Montage) Validate(net subject.NetTable) error {
	if err := m.Channel1.Validate(); err != nil {
		return err
	}
	if err := m.Channel2.Validate(); err != nil {
		return err
	}

	for _, ch := range []Channel{m.Channel1, m.Channel2} {
		for _, p := range ch.Placements {
			if _, ok := net.Lookup(p.Label); !ok {
				return tierr.New(tierr.InvalidMontage, p.Label, fmt.Sprintf("electrode %q not found in net %q", p.Label, net.Name))
			}
		}
	}
	// Labels may repeat across channels (e.g. a shared return in a richer
	// multi-electrode channel), so distinctness is enforced only within a
	// single channel, for simple pairs and multi-electrode channels alike.
	for _, ch := range []Channel{m.Channel1, m.Channel2} {
		local := map[string]bool{}
		for _, p := range ch.Placements {
			if local[p.Label] {
				return tierr.New(tierr.InvalidMontage, p.Label, "duplicate electrode label within one channel")
			}
			local[p.Label] = true
		}
	}
	return nil
}

// SimplePairMontage builds the common two-electrode-per-channel montage ex
// -search and flex-search evaluate: (a,b) at +-i1, (c,d) at +-i2.
func SimplePairMontage(name, netName, a, b string, i1 float64, c, d string, i2 float64) Montage {
	return Montage{
		Name:    name,
		NetName: netName,
		Channel1: Channel{Placements: []Placement{
			{Label: a, CurrentMA: i1},
			{Label: b, CurrentMA: -i1},
		}},
		Channel2: Channel{Placements: []Placement{
			{Label: c, CurrentMA: i2},
			{Label: d, CurrentMA: -i2},
		}},
	}
}

// ResolvePlacements converts a Channel's labeled placements into fe.Placement
// values using net and the shared electrode Spec, assigning each electrode's
// outward normal as the radial direction from origin through its position
// (a reasonable scalp-normal approximation that both the simulator and
// flex-search's synthetic-patch rasterization rely on).
func ResolvePlacements(ch Channel, net subject.NetTable, spec Spec) ([]fe.Placement, error) {
	out := make([]fe.Placement, 0, len(ch.Placements))
	for _, p := range ch.Placements {
		e, ok := net.Lookup(p.Label)
		if !ok {
			return nil, tierr.New(tierr.InvalidMontage, p.Label, fmt.Sprintf("electrode %q not found in net %q", p.Label, net.Name))
		}
		norm := e.Pos
		length := math.Sqrt(norm.X*norm.X + norm.Y*norm.Y + norm.Z*norm.Z)
		if length > 1e-9 {
			norm.X, norm.Y, norm.Z = norm.X/length, norm.Y/length, norm.Z/length
		}
		out = append(out, fe.Placement{
			Label:        p.Label,
			Center:       e.Pos,
			Normal:       norm,
			Shape:        spec.feShape(),
			Dimensions:   spec.Dimensions,
			Thickness:    spec.ThicknessMM,
			CurrentMA:    p.CurrentMA,
			Conductivity: spec.Conductivity,
		})
	}
	return out, nil
}
