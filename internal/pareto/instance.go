package pareto

// instanceOptimal computes, for a single datapoint, the set of variant
// names not dominated by any other variant restricted to that datapoint's
// row of the score matrix (§4.6 step 3a).
func instanceOptimal(scores map[string]Scores, f *Frontier, datapoint string) map[string]struct{} {
	names := make([]string, 0, len(scores))
	vectors := make(map[string][]float64, len(scores))
	for name, s := range scores {
		names = append(names, name)
		vectors[name] = f.normalizedVectorAt(s, datapoint)
	}

	optimal := make(map[string]struct{}, len(names))
	for _, a := range names {
		dominated := false
		for _, b := range names {
			if a == b {
				continue
			}
			if dominatesVec(vectors[b], vectors[a]) {
				dominated = true
				break
			}
		}
		if !dominated {
			optimal[a] = struct{}{}
		}
	}
	return optimal
}

// instanceOptimalByDatapoint computes instanceOptimal for every datapoint
// in the frontier's layout, returning a map keyed by datapoint ID.
func instanceOptimalByDatapoint(scores map[string]Scores, f *Frontier) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(f.datapointIDs))
	for _, d := range f.datapointIDs {
		out[d] = instanceOptimal(scores, f, d)
	}
	return out
}

// globalFilter performs pairwise global dominance elimination over the
// candidate set C (§4.6 step 3c), reusing cached objective vectors where
// available and computing fresh ones (and caching them) otherwise.
func globalFilter(candidateNames []string, scores map[string]Scores, cache map[string][]float64, f *Frontier) []string {
	vectors := make(map[string][]float64, len(candidateNames))
	for _, name := range candidateNames {
		if v, ok := cache[name]; ok {
			vectors[name] = v
			continue
		}
		v := f.fullObjectiveVector(scores[name])
		vectors[name] = v
		cache[name] = v
	}

	survivors := make([]string, 0, len(candidateNames))
	for _, a := range candidateNames {
		dominated := false
		for _, b := range candidateNames {
			if a == b {
				continue
			}
			if dominatesVec(vectors[b], vectors[a]) {
				dominated = true
				break
			}
		}
		if !dominated {
			survivors = append(survivors, a)
		}
	}
	return survivors
}
