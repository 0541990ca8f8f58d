package leadfield

import "fmt"

// Fingerprint is the composite cache key: subject, net, solver version,
// electrode convention version, and the reference electrode — keying on
// net name alone is unsafe across solver or electrode-convention changes,
// so every field here must match for a cache hit.
type Fingerprint struct {
	SubjectID                 string
	NetName                   string
	SolverVersion             string
	ElectrodeConventionVersion string
	ReferenceElectrode        string
}

// Key renders a stable string key for the in-memory coalescing map and for
// error fingerprints. It deliberately does not hash the fields so the key
// remains human-readable, mirroring how the teacher
// keys its node/branch maps off the literal names in the netlist rather than
// an opaque digest.
func (f Fingerprint) Key() string {
	return fmt.Sprintf("%s__%s__%s__%s__ref-%s",
		f.SubjectID, f.NetName, f.SolverVersion, f.ElectrodeConventionVersion, f.ReferenceElectrode)
}

func (f Fingerprint) Equal(o Fingerprint) bool { return f == o }
