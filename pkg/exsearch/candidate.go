package exsearch

import "fmt"

// Candidate is one quadruple-plus-ratio ex-search evaluates: channel 1 is
// the pair (A at +I1, B at -I1), channel 2 is (C at +I2, D at -I2).
type Candidate struct {
	A, B, C, D string
	I1, I2     float64 // mA
}

// distinct reports whether the candidate's four electrode labels are
// pairwise distinct.
func (c Candidate) distinct() bool {
	labels := [4]string{c.A, c.B, c.C, c.D}
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			if labels[i] == labels[j] {
				return false
			}
		}
	}
	return true
}

// canonicalKey collapses symmetry-equivalent candidates: swapping a
// channel's two electrodes only flips that channel's field sign, which
// TI_max is insensitive to, so a channel's key pairs its ordered electrode
// labels with its own current; swapping channel 1 with channel 2 wholesale
// (electrodes and current together) doesn't change the envelope either, so
// the two channel keys are sorted before joining.
func (c Candidate) canonicalKey() string {
	ch1 := fmt.Sprintf("%s:%g", orderPair(c.A, c.B), c.I1)
	ch2 := fmt.Sprintf("%s:%g", orderPair(c.C, c.D), c.I2)
	if ch2 < ch1 {
		ch1, ch2 = ch2, ch1
	}
	return ch1 + "|" + ch2
}

func orderPair(a, b string) string {
	if a <= b {
		return a + "," + b
	}
	return b + "," + a
}

// Enumerate builds every distinct candidate from four electrode pools
// crossed with the given current ratios. When breakSymmetry is true,
// candidates that are permutation-equivalent to an earlier one (same
// canonical key) are dropped, keeping enumeration order deterministic.
func Enumerate(poolL1a, poolL1b, poolL2a, poolL2b []string, ratios [][2]float64, breakSymmetry bool) []Candidate {
	var out []Candidate
	seen := map[string]bool{}
	for _, a := range poolL1a {
		for _, b := range poolL1b {
			for _, c := range poolL2a {
				for _, d := range poolL2b {
					cand := Candidate{A: a, B: b, C: c, D: d}
					if !cand.distinct() {
						continue
					}
					for _, r := range ratios {
						full := cand
						full.I1, full.I2 = r[0], r[1]
						if breakSymmetry {
							key := full.canonicalKey()
							if seen[key] {
								continue
							}
							seen[key] = true
						}
						out = append(out, full)
					}
				}
			}
		}
	}
	return out
}
