package pareto

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_ParetoSoundness checks §8 property 6: for every surviving
// variant after Update, no other surviving variant weakly dominates it
// across the full objective vector.
func TestProperty_ParetoSoundness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("no surviving variant is dominated by another surviving variant", prop.ForAll(
		func(scoresA, scoresB, scoresC []float64) bool {
			f := New([]string{"d1", "d2", "d3"}, directions("acc"), 1)
			mk := func(name string, s []float64) Candidate {
				return Candidate{Name: name, Scores: Scores{
					"d1": {"acc": f64(s[0])},
					"d2": {"acc": f64(s[1])},
					"d3": {"acc": f64(s[2])},
				}}
			}
			if err := f.Update([]Candidate{mk("A", scoresA), mk("B", scoresB), mk("C", scoresC)}); err != nil {
				return true
			}
			survivors := f.Variants()
			vectors := make(map[string][]float64, len(survivors))
			for _, name := range survivors {
				vectors[name] = f.fullObjectiveVector(f.variantScores[name])
			}
			for _, a := range survivors {
				for _, b := range survivors {
					if a == b {
						continue
					}
					if dominatesVec(vectors[b], vectors[a]) {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(3, gen.Float64Range(0, 1)),
		gen.SliceOfN(3, gen.Float64Range(0, 1)),
		gen.SliceOfN(3, gen.Float64Range(0, 1)),
	))

	properties.TestingRun(t)
}
