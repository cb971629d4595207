package pareto

import (
	"sort"

	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/inferly/gatewaycore/internal/gatewayerr"
)

// SampleByFrequency draws one surviving variant using weights proportional
// to variant_frequencies (§4.6), via gonum's sampleuv.Weighted sampler
// seeded from the Frontier's own RNG. It fails if the frontier is
// empty, every weight is zero, or a weighted entry has no corresponding
// config (an invariant violation that should never happen in practice).
func (f *Frontier) SampleByFrequency() (string, error) {
	if len(f.frequencies) == 0 {
		return "", gatewayerr.New(gatewayerr.KindInternal, "pareto: cannot sample from an empty frontier")
	}

	names := make([]string, 0, len(f.frequencies))
	for name := range f.frequencies {
		names = append(names, name)
	}
	sort.Strings(names)

	weights := make([]float64, len(names))
	total := 0.0
	for i, name := range names {
		w := float64(f.frequencies[name])
		weights[i] = w
		total += w
	}
	if total == 0 {
		return "", gatewayerr.New(gatewayerr.KindInternal, "pareto: all variant frequencies are zero")
	}

	sampler := sampleuv.NewWeighted(weights, f.rng)
	idx, ok := sampler.Take()
	if !ok {
		return "", gatewayerr.New(gatewayerr.KindInternal, "pareto: weighted sampler produced no draw")
	}
	name := names[idx]
	if _, ok := f.variantConfigs[name]; !ok {
		return "", gatewayerr.New(gatewayerr.KindInternal, "pareto: sampled variant \""+name+"\" has no frontier config")
	}
	return name, nil
}

// SummaryStats is the mean score per evaluator for one variant, as used by
// IsImprovement's summary-statistic dominance check (§4.6). A missing
// evaluator entry means that evaluator was not scored for this variant at
// all (distinct from an in-frontier score of exactly zero).
type SummaryStats map[string]float64

// IsImprovement implements §4.6's is_improvement: summary-statistic Pareto
// dominance of child over parent across evaluators, skipping any evaluator
// missing from either side. Returns true only when child is strictly better
// on at least one scored evaluator and not worse on any.
func (f *Frontier) IsImprovement(parent, child SummaryStats, evaluators []string) bool {
	strictlyBetter := false
	for _, e := range evaluators {
		pv, pok := parent[e]
		cv, cok := child[e]
		if !pok || !cok {
			continue
		}
		dir := f.directions[e]
		cmp := cv - pv
		if dir == Min {
			cmp = -cmp
		}
		if cmp < 0 {
			return false
		}
		if cmp > 0 {
			strictlyBetter = true
		}
	}
	return strictlyBetter
}
