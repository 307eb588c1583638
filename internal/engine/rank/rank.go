// Package rank scores candidate diagnoses against an extracted finding set
// using naive-Bayes odds updating. Priors come from the lexicon's disease
// table, adjusted for patient age, sex and season, then each matching
// finding multiplies the odds by its likelihood ratio. Findings a disease's
// table does not mention contribute nothing; ranking never fails on sparse
// input, it just returns weaker posteriors.
package rank

import (
	"sort"

	"github.com/clindx/clindx/internal/engine/extract"
	"github.com/clindx/clindx/internal/engine/lexicon"
	"github.com/clindx/clindx/internal/engine/patient"
)

// DefaultTopN is the candidate list length when the caller does not ask
// for a specific one.
const DefaultTopN = 10

// Evidence direction labels. Neutral marks a finding whose own ratio was
// set aside because an exclusive composite already covers it.
const (
	DirectionFor     = "for"
	DirectionAgainst = "against"
	DirectionNeutral = "neutral"
)

// Evidence is one finding's contribution to a candidate's posterior.
type Evidence struct {
	Key             string  `json:"key"`
	LikelihoodRatio float64 `json:"likelihood_ratio"`
	Direction       string  `json:"direction"`
}

// Candidate is one ranked diagnosis. Posteriors are per-candidate
// probabilities under independent evidence; they are not normalized across
// the list and do not sum to 1.
type Candidate struct {
	Name           string     `json:"name"`
	Code           string     `json:"code,omitempty"`
	Prior          float64    `json:"prior"`
	Posterior      float64    `json:"posterior"`
	Evidence       []Evidence `json:"evidence"`
	Investigations []string   `json:"investigations,omitempty"`
}

// Rank returns the top candidates for a finding set, ordered by posterior
// descending, then adjusted prior descending, then name. Only diseases with
// at least one finding in their ratio table are listed. An empty finding
// set yields an empty list. topN values below 1 fall back to DefaultTopN.
func Rank(lex *lexicon.Lexicon, set extract.Set, pctx patient.Context, topN int) []Candidate {
	if lex == nil || set.Empty() {
		return []Candidate{}
	}
	if topN < 1 {
		topN = DefaultTopN
	}

	presentKeys := set.Keys()
	present := make(map[string]bool, len(presentKeys))
	for _, k := range presentKeys {
		present[k] = true
	}
	exclusive := presentExclusiveComposites(lex, present)

	candidates := make([]Candidate, 0, len(lex.Diseases))
	for i := range lex.Diseases {
		d := &lex.Diseases[i]
		if excludedBySex(d, pctx.NormalizedSex()) {
			continue
		}
		if d.PregnancyOnly && !pctx.Pregnant {
			continue
		}

		prior := adjustedPrior(d, pctx)
		c, ok := score(d, prior, presentKeys, exclusive)
		if !ok {
			continue
		}
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Posterior != candidates[j].Posterior {
			return candidates[i].Posterior > candidates[j].Posterior
		}
		if candidates[i].Prior != candidates[j].Prior {
			return candidates[i].Prior > candidates[j].Prior
		}
		return candidates[i].Name < candidates[j].Name
	})

	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates
}

// excludedBySex drops a sex-restricted disease only on an explicit
// mismatch. When the patient's sex is unrecorded the disease stays in.
func excludedBySex(d *lexicon.Disease, sex string) bool {
	if len(d.Sexes) == 0 || !patient.KnownSex(sex) {
		return false
	}
	for _, s := range d.Sexes {
		if s == sex {
			return false
		}
	}
	return true
}

// adjustedPrior applies the age-band and season multipliers and clamps the
// result into (0, 1) so the odds transform stays finite.
func adjustedPrior(d *lexicon.Disease, pctx patient.Context) float64 {
	prior := d.Prior
	if pctx.HasAge() {
		for _, band := range d.AgeBands {
			if pctx.Age >= band.Min && pctx.Age <= band.Max {
				prior *= band.Multiplier
				break
			}
		}
	}
	if season := pctx.NormalizedSeason(); season != "" {
		if mult, ok := d.Seasons[season]; ok {
			prior *= mult
		}
	}
	if prior < 1e-6 {
		prior = 1e-6
	}
	if prior > 0.99 {
		prior = 0.99
	}
	return prior
}

// score multiplies the prior odds by the ratio of every present finding
// the disease's table mentions, honoring exclusive-composite precedence:
// when an exclusive composite is present and carries a ratio here, its
// constituents keep a neutral row instead of multiplying in again.
func score(d *lexicon.Disease, prior float64, presentKeys []string, exclusive []*lexicon.CompositePattern) (Candidate, bool) {
	suppressed := suppressedConstituents(d, exclusive)

	odds := prior / (1 - prior)
	evidence := make([]Evidence, 0, 4)
	for _, key := range presentKeys {
		lr, ok := d.LikelihoodRatios[key]
		if !ok {
			continue
		}
		if suppressed[key] {
			evidence = append(evidence, Evidence{Key: key, LikelihoodRatio: 1, Direction: DirectionNeutral})
			continue
		}
		odds *= lr
		dir := DirectionFor
		if lr < 1 {
			dir = DirectionAgainst
		}
		evidence = append(evidence, Evidence{Key: key, LikelihoodRatio: lr, Direction: dir})
	}
	if len(evidence) == 0 {
		return Candidate{}, false
	}

	return Candidate{
		Name:           d.Name,
		Code:           d.Code,
		Prior:          prior,
		Posterior:      odds / (1 + odds),
		Evidence:       evidence,
		Investigations: d.Investigations,
	}, true
}

// presentExclusiveComposites filters the lexicon's composites down to the
// exclusive ones the extraction actually found.
func presentExclusiveComposites(lex *lexicon.Lexicon, present map[string]bool) []*lexicon.CompositePattern {
	var out []*lexicon.CompositePattern
	for i := range lex.Composites {
		c := &lex.Composites[i]
		if c.Exclusive && present[c.Key] {
			out = append(out, c)
		}
	}
	return out
}

// suppressedConstituents collects the atomic keys covered by a present
// exclusive composite that this disease rates. Suppression is per disease;
// a disease that rates only the atomics still uses them directly.
func suppressedConstituents(d *lexicon.Disease, exclusive []*lexicon.CompositePattern) map[string]bool {
	var suppressed map[string]bool
	for _, c := range exclusive {
		if _, ok := d.LikelihoodRatios[c.Key]; !ok {
			continue
		}
		if suppressed == nil {
			suppressed = make(map[string]bool, len(c.Requires))
		}
		for _, req := range c.Requires {
			suppressed[req] = true
		}
	}
	return suppressed
}
