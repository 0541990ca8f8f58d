// On-disk leadfield persistence. The cache file conventionally lives at
// "leadfield_vol_<net>/leadfield.hdf5"; no HDF5 binding exists anywhere in
// the retrieval pack (DESIGN.md), so the artifact is gob-encoded with an
// embedded fingerprint header, keeping that filename for layout
// compatibility while encoding it with the stdlib the core already trusts
// for its own bookkeeping.
package leadfield

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
)

const headerMagic = "TILF1\n"

type onDiskRow struct {
	Label string
	Data  []float64 // NumNodes*3, row-major xyz
}

type onDiskLeadfield struct {
	Fingerprint Fingerprint
	NetOrder    []string
	NumNodes    int
	Rows        []onDiskRow
}

// Save writes l to path with an embedded fingerprint header, so a later
// Load can detect a stale cache entry before trusting its contents.
func Save(path string, l *Leadfield) error {
	od := onDiskLeadfield{
		Fingerprint: l.Fingerprint,
		NetOrder:    l.NetOrder,
		NumNodes:    l.NumNodes,
		Rows:        make([]onDiskRow, len(l.NetOrder)),
	}
	for i, label := range l.NetOrder {
		data := make([]float64, l.NumNodes*3)
		for n := 0; n < l.NumNodes; n++ {
			x, y, z := l.NodeVector(i, n)
			data[n*3], data[n*3+1], data[n*3+2] = x, y, z
		}
		od.Rows[i] = onDiskRow{Label: label, Data: data}
	}

	var buf bytes.Buffer
	buf.WriteString(headerMagic)
	if err := gob.NewEncoder(&buf).Encode(od); err != nil {
		return fmt.Errorf("leadfield: encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("leadfield: writing %s: %w", path, err)
	}
	return nil
}

// Load reads a leadfield from path and verifies its embedded fingerprint
// matches want exactly; a mismatch (e.g. a stale cache from a prior solver
// version) is reported rather than silently served.
func Load(path string, want Fingerprint) (*Leadfield, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("leadfield: reading %s: %w", path, err)
	}
	if len(raw) < len(headerMagic) || string(raw[:len(headerMagic)]) != headerMagic {
		return nil, fmt.Errorf("leadfield: %s is not a recognized leadfield cache file", path)
	}
	var od onDiskLeadfield
	if err := gob.NewDecoder(bytes.NewReader(raw[len(headerMagic):])).Decode(&od); err != nil {
		return nil, fmt.Errorf("leadfield: decoding %s: %w", path, err)
	}
	if !od.Fingerprint.Equal(want) {
		return nil, fmt.Errorf("leadfield: %s fingerprint %+v does not match requested %+v", path, od.Fingerprint, want)
	}

	l := New(od.Fingerprint, od.NetOrder, od.NumNodes)
	for i, row := range od.Rows {
		for n := 0; n < od.NumNodes; n++ {
			l.SetNodeVector(i, n, row.Data[n*3], row.Data[n*3+1], row.Data[n*3+2])
		}
	}
	return l, nil
}
