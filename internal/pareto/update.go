package pareto

import (
	"sort"

	"go.uber.org/zap"

	"github.com/inferly/gatewaycore/internal/gatewayerr"
	"github.com/inferly/gatewaycore/internal/telemetry"
)

// Update implements §4.6's GEPA update: validate and normalize the new
// candidates, merge them into the working score/config tables, run
// instance-wise Pareto filtering followed by global dominance elimination,
// and commit the survivors — replacing variantConfigs/variantScores/
// objectiveVectorCache and recomputing variantFrequencies.
func (f *Frontier) Update(candidates []Candidate) error {
	if err := f.validateCandidates(candidates); err != nil {
		return err
	}

	normalized, droppedKeys := f.normalizeCandidates(candidates)
	if len(droppedKeys) > 0 {
		names := make([]string, 0, len(droppedKeys))
		for k := range droppedKeys {
			names = append(names, k)
		}
		sort.Strings(names)
		f.logger.Warn("pareto: dropping unknown evaluator keys from update", zap.Strings("evaluators", names))
	}

	// Step 2: merge into the working tables.
	merged := make(map[string]Scores, len(f.variantScores)+len(normalized))
	for name, s := range f.variantScores {
		merged[name] = s
	}
	for _, c := range normalized {
		merged[c.Name] = c.Scores
	}

	// Step 3a/3b: instance-wise optimal sets, unioned into the candidate set C.
	instanceSets := instanceOptimalByDatapoint(merged, f)
	candidateSet := make(map[string]struct{})
	for _, set := range instanceSets {
		for v := range set {
			candidateSet[v] = struct{}{}
		}
	}
	cNames := make([]string, 0, len(candidateSet))
	for v := range candidateSet {
		cNames = append(cNames, v)
	}
	sort.Strings(cNames)

	var survivors []string
	if len(cNames) <= 1 {
		survivors = cNames
	} else {
		// Step 3c: global dominance elimination, reusing cached vectors for
		// variants whose scores did not change this round.
		cache := make(map[string][]float64, len(cNames))
		for _, name := range cNames {
			if _, existedBefore := f.variantScores[name]; existedBefore {
				// Existing variant whose scores are unchanged this round:
				// its cached vector (if any) is still valid.
				if v, ok := f.objectiveCache[name]; ok {
					cache[name] = v
				}
			}
		}
		survivors = globalFilter(cNames, merged, cache, f)
	}

	// Step 4: commit.
	f.commit(survivors, merged, instanceSets, normalized)
	return nil
}

func (f *Frontier) validateCandidates(candidates []Candidate) error {
	if len(candidates) == 0 {
		return gatewayerr.New(gatewayerr.KindInvalidRequest, "pareto: update requires at least one candidate")
	}
	anyDatapoint := false
	anyScore := false
	for _, c := range candidates {
		if _, exists := f.variantConfigs[c.Name]; exists {
			return gatewayerr.New(gatewayerr.KindInvalidRequest, "pareto: variant \""+c.Name+"\" already exists in the frontier")
		}
		if len(c.Scores) > 0 {
			anyDatapoint = true
		}
		for _, perEval := range c.Scores {
			for _, v := range perEval {
				if v != nil {
					anyScore = true
				}
			}
		}
	}
	if !anyDatapoint {
		return gatewayerr.New(gatewayerr.KindInvalidRequest, "pareto: every candidate has an empty datapoint map")
	}
	if !anyScore {
		return gatewayerr.New(gatewayerr.KindInvalidRequest, "pareto: every (datapoint, evaluator) score across all candidates is missing")
	}
	return nil
}

// normalizeCandidates applies §4.6 step 1's per-candidate normalization:
// retain only layout datapoints, insert empty maps for missing layout
// datapoints, and drop unknown evaluator keys (collected for a single
// combined warning).
func (f *Frontier) normalizeCandidates(candidates []Candidate) ([]Candidate, map[string]struct{}) {
	dropped := make(map[string]struct{})
	out := make([]Candidate, len(candidates))
	for i, c := range candidates {
		normScores := make(Scores, len(f.datapointIDs))
		for _, d := range f.datapointIDs {
			perEval, ok := c.Scores[d]
			if !ok {
				normScores[d] = make(map[string]*float64)
				continue
			}
			filtered := make(map[string]*float64, len(perEval))
			for evalName, v := range perEval {
				if _, known := f.directions[evalName]; !known {
					dropped[evalName] = struct{}{}
					continue
				}
				filtered[evalName] = v
			}
			normScores[d] = filtered
		}
		out[i] = Candidate{Name: c.Name, Config: c.Config, Scores: normScores}
	}
	return out, dropped
}

func (f *Frontier) commit(survivors []string, merged map[string]Scores, instanceSets map[string]map[string]struct{}, normalized []Candidate) {
	newConfigs := make(map[string]VariantConfig, len(survivors))
	newScores := make(map[string]Scores, len(survivors))
	newCache := make(map[string][]float64, len(survivors))
	newFreq := make(map[string]int, len(survivors))

	configByName := make(map[string]VariantConfig, len(f.variantConfigs)+len(normalized))
	for k, v := range f.variantConfigs {
		configByName[k] = v
	}
	for _, c := range normalized {
		configByName[c.Name] = c.Config
	}

	survivorSet := make(map[string]struct{}, len(survivors))
	for _, name := range survivors {
		survivorSet[name] = struct{}{}
		newConfigs[name] = configByName[name]
		newScores[name] = merged[name]
		newCache[name] = f.fullObjectiveVector(merged[name])
	}

	for _, set := range instanceSets {
		for v := range set {
			if _, ok := survivorSet[v]; ok {
				newFreq[v]++
			}
		}
	}
	for _, name := range survivors {
		if _, ok := newFreq[name]; !ok {
			newFreq[name] = 0
		}
	}

	f.variantConfigs = newConfigs
	f.variantScores = newScores
	f.objectiveCache = newCache
	f.frequencies = newFreq

	telemetry.ParetoFrontierSize.WithLabelValues(f.name).Set(float64(len(survivors)))
	telemetry.ParetoGenerationsTotal.WithLabelValues(f.name).Inc()

	f.warnLowScoreRate(survivors)
}

// warnLowScoreRate emits a warning (§4.6 step 4) for every surviving
// variant whose observed-score rate across (datapoint × evaluator) cells
// drops below 90%.
func (f *Frontier) warnLowScoreRate(survivors []string) {
	total := len(f.datapointIDs) * len(f.evaluators)
	if total == 0 {
		return
	}
	for _, name := range survivors {
		observed := 0
		s := f.variantScores[name]
		for _, d := range f.datapointIDs {
			perEval := s[d]
			for _, e := range f.evaluators {
				if v, ok := perEval[e]; ok && v != nil {
					observed++
				}
			}
		}
		rate := float64(observed) / float64(total)
		if rate < 0.9 {
			f.logger.Warn("pareto: surviving variant has a low observed-score rate",
				zap.String("variant", name), zap.Float64("observed_rate", rate))
		}
	}
}
