package pareto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func directions(evaluators ...string) map[string]Direction {
	out := make(map[string]Direction, len(evaluators))
	for _, e := range evaluators {
		out[e] = Max
	}
	return out
}

// TestParetoTradeoffPreservation is scenario E from spec.md §8: two
// variants trading off on two datapoints both survive, each with
// frequency 1.
func TestParetoTradeoffPreservation(t *testing.T) {
	f := New([]string{"d1", "d2"}, directions("acc"), 1)
	err := f.Update([]Candidate{
		{Name: "A", Scores: Scores{"d1": {"acc": f64(0.9)}, "d2": {"acc": f64(0.6)}}},
		{Name: "B", Scores: Scores{"d1": {"acc": f64(0.7)}, "d2": {"acc": f64(0.8)}}},
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"A", "B"}, f.Variants())
	require.Equal(t, 1, f.Frequency("A"))
	require.Equal(t, 1, f.Frequency("B"))
}

// TestParetoStrictDominance is scenario F: three variants on one datapoint,
// only the strict winner survives.
func TestParetoStrictDominance(t *testing.T) {
	f := New([]string{"d1"}, directions("acc"), 1)
	err := f.Update([]Candidate{
		{Name: "A", Scores: Scores{"d1": {"acc": f64(0.9)}}},
		{Name: "B", Scores: Scores{"d1": {"acc": f64(0.7)}}},
		{Name: "C", Scores: Scores{"d1": {"acc": f64(0.5)}}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"A"}, f.Variants())
	require.Equal(t, 1, f.Frequency("A"))
}

func TestUpdateRejectsDuplicateVariantName(t *testing.T) {
	f := New([]string{"d1"}, directions("acc"), 1)
	require.NoError(t, f.Update([]Candidate{{Name: "A", Scores: Scores{"d1": {"acc": f64(0.5)}}}}))
	err := f.Update([]Candidate{{Name: "A", Scores: Scores{"d1": {"acc": f64(0.6)}}}})
	require.Error(t, err)
}

func TestUpdateRejectsEmptyCandidateSet(t *testing.T) {
	f := New([]string{"d1"}, directions("acc"), 1)
	require.Error(t, f.Update(nil))
}

func TestUpdateRejectsAllMissingScores(t *testing.T) {
	f := New([]string{"d1"}, directions("acc"), 1)
	err := f.Update([]Candidate{{Name: "A", Scores: Scores{"d1": {"acc": nil}}}})
	require.Error(t, err)
}

func TestUpdateDropsUnknownEvaluatorKeys(t *testing.T) {
	f := New([]string{"d1"}, directions("acc"), 1)
	err := f.Update([]Candidate{
		{Name: "A", Scores: Scores{"d1": {"acc": f64(0.5), "unknown_eval": f64(1.0)}}},
	})
	require.NoError(t, err)
	require.Contains(t, f.Variants(), "A")
}

func TestUpdateFillsMissingLayoutDatapoints(t *testing.T) {
	f := New([]string{"d1", "d2"}, directions("acc"), 1)
	err := f.Update([]Candidate{
		{Name: "A", Scores: Scores{"d1": {"acc": f64(0.5)}}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"A"}, f.Variants())
}

func TestInstanceOptimalUnionMatchesCandidateSet(t *testing.T) {
	// §8 property 7: the candidate set before global filtering equals the
	// union of per-datapoint instance-optimal sets.
	f := New([]string{"d1", "d2"}, directions("acc"), 1)
	scores := map[string]Scores{
		"A": {"d1": {"acc": f64(0.9)}, "d2": {"acc": f64(0.6)}},
		"B": {"d1": {"acc": f64(0.7)}, "d2": {"acc": f64(0.8)}},
		"C": {"d1": {"acc": f64(0.1)}, "d2": {"acc": f64(0.1)}},
	}
	sets := instanceOptimalByDatapoint(scores, f)
	union := make(map[string]struct{})
	for _, s := range sets {
		for v := range s {
			union[v] = struct{}{}
		}
	}
	_, cIncluded := union["C"]
	require.False(t, cIncluded)
	require.Len(t, union, 2)
}

func TestSampleByFrequencyFailsOnEmptyFrontier(t *testing.T) {
	f := New([]string{"d1"}, directions("acc"), 1)
	_, err := f.SampleByFrequency()
	require.Error(t, err)
}

func TestSampleByFrequencyConvergesToWeights(t *testing.T) {
	f := New([]string{"d1", "d2", "d3", "d4"}, directions("acc"), 7)
	require.NoError(t, f.Update([]Candidate{
		// A is instance-optimal on 3/4 datapoints, B on 1/4.
		{Name: "A", Scores: Scores{
			"d1": {"acc": f64(0.9)}, "d2": {"acc": f64(0.9)}, "d3": {"acc": f64(0.9)}, "d4": {"acc": f64(0.1)},
		}},
		{Name: "B", Scores: Scores{
			"d1": {"acc": f64(0.1)}, "d2": {"acc": f64(0.1)}, "d3": {"acc": f64(0.1)}, "d4": {"acc": f64(0.9)},
		}},
	}))

	counts := map[string]int{}
	const n = 4000
	for i := 0; i < n; i++ {
		name, err := f.SampleByFrequency()
		require.NoError(t, err)
		counts[name]++
	}
	aRate := float64(counts["A"]) / n
	require.InDelta(t, 0.75, aRate, 0.05)
}

func TestIsImprovementSkipsMissingEvaluatorsAndRequiresStrictGain(t *testing.T) {
	f := New([]string{"d1"}, directions("acc", "latency"), 1)
	f.directions["latency"] = Min

	parent := SummaryStats{"acc": 0.8}
	better := SummaryStats{"acc": 0.9}
	worse := SummaryStats{"acc": 0.7}
	require.True(t, f.IsImprovement(parent, better, []string{"acc", "latency"}))
	require.False(t, f.IsImprovement(parent, worse, []string{"acc", "latency"}))
}
