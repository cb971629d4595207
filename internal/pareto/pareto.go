// Package pareto implements the GEPA multi-objective Pareto frontier engine
// from §4.6: instance-wise Pareto filtering followed by global dominance
// elimination across (datapoint × evaluator) objectives, with
// missing-score imputation, a cached flat objective vector per surviving
// variant, and frequency-weighted sampling for downstream mutation
// candidate selection.
//
// There is no single teacher file this is grounded on — goadesign-goa-ai's
// agent runtime has no multi-objective selection concept — so the vector
// math (imputation, elementwise dominance, weighted sampling) is built
// directly from spec.md §4.6: the vector operations are plain loops over
// []float64, and frequency-weighted sampling uses gonum/stat/sampleuv,
// already in the pack's dependency surface (taipm-go-deep-agent's go.mod).
package pareto

import (
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"
)

// Direction is an evaluator's optimization direction (§3).
type Direction string

const (
	Max Direction = "max"
	Min Direction = "min"
)

// VariantConfig is opaque to this package: the Pareto engine only needs to
// carry it alongside scores, never to interpret it.
type VariantConfig any

// Scores is a single variant's score matrix: datapoint ID -> evaluator name
// -> score. A datapoint or evaluator key absent from the map, or present
// with a nil pointer, both mean "missing" for imputation purposes (§3).
type Scores map[string]map[string]*float64

// Candidate is one new variant offered to Update.
type Candidate struct {
	Name   string
	Config VariantConfig
	Scores Scores
}

// Frontier is the Pareto Frontier State from §3. The zero value is not
// usable; build one with New. A Frontier has single-writer semantics:
// Update is not reentrant on one instance, but distinct Frontier values may
// be driven concurrently.
type Frontier struct {
	variantConfigs map[string]VariantConfig
	variantScores  map[string]Scores
	frequencies    map[string]int
	objectiveCache map[string][]float64

	datapointIDs []string
	datapointSet map[string]struct{}

	evaluators []string // sorted, fixes the layout fingerprint alongside datapointIDs
	directions map[string]Direction

	rng    *rand.Rand
	logger *zap.Logger
	name   string // optimization label for internal/telemetry's Pareto gauges
}

// Option configures a Frontier during construction.
type Option func(*Frontier)

// WithLogger overrides the default no-op zap.Logger used for §4.6's
// dropped-evaluator-key and low-score-rate warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Frontier) { f.logger = logger }
}

// WithName sets the optimization run's identifier, used as the "optimization"
// label on internal/telemetry's gatewaycore_pareto_frontier_size and
// gatewaycore_pareto_generations_total metrics. Defaults to "default".
func WithName(name string) Option {
	return func(f *Frontier) { f.name = name }
}

// New builds an empty Frontier fixed to the given datapoint layout and
// evaluator optimization directions. Both are part of the "layout
// fingerprint" (§3): every cached objective vector's index (i*E)+j refers
// to datapointIDs[i] and the j-th evaluator in sorted order.
func New(datapointIDs []string, directions map[string]Direction, seed int64, opts ...Option) *Frontier {
	evaluators := make([]string, 0, len(directions))
	for e := range directions {
		evaluators = append(evaluators, e)
	}
	sort.Strings(evaluators)

	datapointSet := make(map[string]struct{}, len(datapointIDs))
	for _, d := range datapointIDs {
		datapointSet[d] = struct{}{}
	}

	f := &Frontier{
		variantConfigs: make(map[string]VariantConfig),
		variantScores:  make(map[string]Scores),
		frequencies:    make(map[string]int),
		objectiveCache: make(map[string][]float64),
		datapointIDs:   append([]string(nil), datapointIDs...),
		datapointSet:   datapointSet,
		evaluators:     evaluators,
		directions:     directions,
		rng:            rand.New(rand.NewSource(seed)),
		logger:         zap.NewNop(),
		name:           "default",
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Variants returns the names currently surviving in the frontier.
func (f *Frontier) Variants() []string {
	out := make([]string, 0, len(f.variantConfigs))
	for name := range f.variantConfigs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Config returns the surviving variant's config, or nil, false if it is
// not (or no longer) part of the frontier.
func (f *Frontier) Config(name string) (VariantConfig, bool) {
	c, ok := f.variantConfigs[name]
	return c, ok
}

// Frequency returns the surviving variant's instance-optimality count.
func (f *Frontier) Frequency(name string) int {
	return f.frequencies[name]
}

// worstValue is the imputation value (§4.6) substituted for a missing
// score: the value that can never win a comparison under dir.
func worstValue(dir Direction) float64 {
	if dir == Max {
		return math.Inf(-1)
	}
	return math.Inf(1)
}

// scoreAt returns variant v's (imputed) score at datapoint d for evaluator
// e, applying §4.6's missing-score imputation rule.
func (f *Frontier) scoreAt(v Scores, d, e string) float64 {
	dir := f.directions[e]
	perEval, ok := v[d]
	if !ok {
		return worstValue(dir)
	}
	score, ok := perEval[e]
	if !ok || score == nil {
		return worstValue(dir)
	}
	return *score
}

// normalizedVectorAt builds the "higher is always better" vector for
// variant v at datapoint d: Max-direction scores pass through, Min-direction
// scores are negated, so plain elementwise >= / > comparisons implement
// dominance regardless of each evaluator's direction.
func (f *Frontier) normalizedVectorAt(v Scores, d string) []float64 {
	out := make([]float64, len(f.evaluators))
	for i, e := range f.evaluators {
		raw := f.scoreAt(v, d, e)
		if f.directions[e] == Min {
			out[i] = -raw
		} else {
			out[i] = raw
		}
	}
	return out
}

// fullObjectiveVector builds the flat vector over every (datapoint,
// evaluator) pair, normalized the same way, in the §3 index order
// (i*E)+j — the shape cached in objectiveCache.
func (f *Frontier) fullObjectiveVector(v Scores) []float64 {
	e := len(f.evaluators)
	out := make([]float64, 0, len(f.datapointIDs)*e)
	for _, d := range f.datapointIDs {
		out = append(out, f.normalizedVectorAt(v, d)...)
	}
	return out
}

// dominatesVec reports whether normalized vector a weakly-and-strictly
// dominates b: at least as good on every component and strictly better on
// at least one (§3's Dominance definition, glossary entry).
func dominatesVec(a, b []float64) bool {
	strictlyBetter := false
	for i := range a {
		if a[i] < b[i] {
			return false
		}
		if a[i] > b[i] {
			strictlyBetter = true
		}
	}
	return strictlyBetter
}
