package rank

import (
	"math"
	"testing"

	"github.com/clindx/clindx/internal/engine/extract"
	"github.com/clindx/clindx/internal/engine/lexicon"
	"github.com/clindx/clindx/internal/engine/patient"
)

func testLexicon(t *testing.T) *lexicon.Lexicon {
	t.Helper()
	lex := &lexicon.Lexicon{
		Version: "rank-test",
		Symptoms: []lexicon.SymptomPattern{
			{Key: "fever", Phrases: []string{"fever"}},
			{Key: "cough", Phrases: []string{"cough"}},
			{Key: "rigors", Phrases: []string{"chills"}},
			{Key: "rash", Phrases: []string{"rash"}},
			{Key: "severe_headache", Phrases: []string{"severe headache"}},
			{Key: "chest_pain", Phrases: []string{"chest pain"}},
			{Key: "radiation_to_arm", Phrases: []string{"radiating to arm"}},
			{Key: "sweating", Phrases: []string{"sweating"}},
		},
		Composites: []lexicon.CompositePattern{
			{Key: "chest_pain_radiating_to_arm", Requires: []string{"chest_pain", "radiation_to_arm"}, Window: 100, Exclusive: true},
		},
		Diseases: []lexicon.Disease{
			{
				Name: "influenza", Prior: 0.10,
				Seasons:          map[string]float64{"winter": 2.0},
				LikelihoodRatios: map[string]float64{"fever": 3, "cough": 2, "rigors": 1.5},
			},
			{
				Name: "dengue", Prior: 0.02,
				Seasons:          map[string]float64{"monsoon": 6},
				LikelihoodRatios: map[string]float64{"fever": 4, "rash": 3, "rigors": 2},
			},
			{
				Name: "coronary_syndrome", Prior: 0.05,
				AgeBands:         []lexicon.AgeBand{{Min: 18, Max: 39, Multiplier: 0.5}, {Min: 40, Max: 120, Multiplier: 2.0}},
				LikelihoodRatios: map[string]float64{"chest_pain": 3, "radiation_to_arm": 4, "chest_pain_radiating_to_arm": 12, "sweating": 2},
			},
			{
				Name: "chest_wall_strain", Prior: 0.08,
				LikelihoodRatios: map[string]float64{"chest_pain": 2, "sweating": 0.5, "chest_pain_radiating_to_arm": 0.6},
			},
			{
				Name: "panic_attack", Prior: 0.03,
				LikelihoodRatios: map[string]float64{"chest_pain": 1.5, "sweating": 1.8},
			},
			{
				Name: "prostatitis", Prior: 0.03, Sexes: []string{"male"},
				LikelihoodRatios: map[string]float64{"fever": 2},
			},
			{
				Name: "preeclampsia", Prior: 0.04, Sexes: []string{"female"}, PregnancyOnly: true,
				LikelihoodRatios: map[string]float64{"severe_headache": 6},
			},
		},
	}
	if err := lex.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return lex
}

func setOf(keys ...string) extract.Set {
	findings := make([]extract.Finding, 0, len(keys))
	for _, k := range keys {
		findings = append(findings, extract.Finding{Key: k})
	}
	return extract.Set{Findings: findings}
}

func candidateByName(t *testing.T, list []Candidate, name string) Candidate {
	t.Helper()
	for _, c := range list {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("candidate %q not in list %v", name, names(list))
	return Candidate{}
}

func names(list []Candidate) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.Name
	}
	return out
}

func hasCandidate(list []Candidate, name string) bool {
	for _, c := range list {
		if c.Name == name {
			return true
		}
	}
	return false
}

func closeTo(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestRankEmptySet(t *testing.T) {
	lex := testLexicon(t)

	if got := Rank(lex, extract.Set{}, patient.Context{}, 0); len(got) != 0 {
		t.Fatalf("empty set ranked %v", names(got))
	}
	if got := Rank(nil, setOf("fever"), patient.Context{}, 0); len(got) != 0 {
		t.Fatalf("nil lexicon ranked %v", names(got))
	}
}

func TestRankPosteriorMath(t *testing.T) {
	lex := testLexicon(t)

	list := Rank(lex, setOf("fever"), patient.Context{}, 0)
	flu := candidateByName(t, list, "influenza")

	// 0.1 prior -> odds 1/9, times LR 3, back to probability 0.25.
	if !closeTo(flu.Posterior, 0.25) {
		t.Fatalf("posterior = %v, want 0.25", flu.Posterior)
	}
	if flu.Posterior <= 0 || flu.Posterior >= 1 {
		t.Fatalf("posterior out of (0,1): %v", flu.Posterior)
	}
	if len(flu.Evidence) != 1 || flu.Evidence[0].Key != "fever" || flu.Evidence[0].Direction != DirectionFor {
		t.Fatalf("evidence = %+v", flu.Evidence)
	}
}

func TestRankAbsentFindingsDoNotPenalize(t *testing.T) {
	lex := testLexicon(t)

	list := Rank(lex, setOf("cough"), patient.Context{}, 0)
	flu := candidateByName(t, list, "influenza")

	// Only the cough ratio applies; missing fever and rigors count as 1.
	want := (0.1 / 0.9 * 2) / (1 + 0.1/0.9*2)
	if !closeTo(flu.Posterior, want) {
		t.Fatalf("posterior = %v, want %v", flu.Posterior, want)
	}
	if len(flu.Evidence) != 1 {
		t.Fatalf("evidence rows = %d, want 1", len(flu.Evidence))
	}
}

func TestRankPosteriorMonotonicity(t *testing.T) {
	lex := testLexicon(t)

	// Adding a supportive finding (LR > 1) must never lower the posterior
	// relative to the same set without it.
	base := candidateByName(t, Rank(lex, setOf("fever"), patient.Context{}, 0), "influenza")
	withCough := candidateByName(t, Rank(lex, setOf("fever", "cough"), patient.Context{}, 0), "influenza")
	if withCough.Posterior < base.Posterior {
		t.Fatalf("supportive finding lowered posterior: %v -> %v", base.Posterior, withCough.Posterior)
	}

	// Symmetrically, adding a contrary finding (LR < 1) must never raise it.
	// chest_wall_strain rates sweating at 0.5.
	plain := candidateByName(t, Rank(lex, setOf("chest_pain"), patient.Context{}, 0), "chest_wall_strain")
	withSweating := candidateByName(t, Rank(lex, setOf("chest_pain", "sweating"), patient.Context{}, 0), "chest_wall_strain")
	if withSweating.Posterior > plain.Posterior {
		t.Fatalf("contrary finding raised posterior: %v -> %v", plain.Posterior, withSweating.Posterior)
	}

	// A finding the disease does not rate leaves the posterior untouched.
	withRash := candidateByName(t, Rank(lex, setOf("fever", "rash"), patient.Context{}, 0), "influenza")
	if !closeTo(withRash.Posterior, base.Posterior) {
		t.Fatalf("unrated finding moved posterior: %v -> %v", base.Posterior, withRash.Posterior)
	}
}

func TestRankOrderingAndTieBreaks(t *testing.T) {
	lex := testLexicon(t)

	list := Rank(lex, setOf("fever", "rigors"), patient.Context{}, 0)
	if len(list) < 2 {
		t.Fatalf("want at least 2 candidates, got %v", names(list))
	}
	for i := 1; i < len(list); i++ {
		prev, cur := list[i-1], list[i]
		if cur.Posterior > prev.Posterior {
			t.Fatalf("list not ordered by posterior: %v", names(list))
		}
		if cur.Posterior == prev.Posterior && cur.Prior > prev.Prior {
			t.Fatalf("posterior tie not broken by prior: %v", names(list))
		}
	}
}

func TestRankTopNTruncation(t *testing.T) {
	lex := testLexicon(t)

	list := Rank(lex, setOf("fever"), patient.Context{}, 2)
	if len(list) != 2 {
		t.Fatalf("topN=2 returned %d candidates", len(list))
	}
	all := Rank(lex, setOf("fever"), patient.Context{}, 0)
	if len(all) < 3 {
		t.Fatalf("default topN hid candidates: %v", names(all))
	}
}

func TestRankSexExclusion(t *testing.T) {
	lex := testLexicon(t)
	set := setOf("fever")

	if list := Rank(lex, set, patient.Context{Sex: patient.SexFemale}, 0); hasCandidate(list, "prostatitis") {
		t.Fatalf("sex-mismatched disease ranked: %v", names(list))
	}
	if list := Rank(lex, set, patient.Context{Sex: patient.SexMale}, 0); !hasCandidate(list, "prostatitis") {
		t.Fatalf("sex-matched disease missing: %v", names(list))
	}
	// Unknown sex keeps restricted diseases in rather than silently
	// hiding them.
	if list := Rank(lex, set, patient.Context{}, 0); !hasCandidate(list, "prostatitis") {
		t.Fatalf("unknown sex excluded a restricted disease: %v", names(list))
	}
}

func TestRankPregnancyGate(t *testing.T) {
	lex := testLexicon(t)
	set := setOf("severe_headache")

	if list := Rank(lex, set, patient.Context{Sex: patient.SexFemale}, 0); hasCandidate(list, "preeclampsia") {
		t.Fatalf("pregnancy-only disease ranked without pregnancy: %v", names(list))
	}
	list := Rank(lex, set, patient.Context{Sex: patient.SexFemale, Pregnant: true}, 0)
	if !hasCandidate(list, "preeclampsia") {
		t.Fatalf("pregnancy-only disease missing: %v", names(list))
	}
}

func TestRankAgeAndSeasonAdjustPriors(t *testing.T) {
	lex := testLexicon(t)

	flu := candidateByName(t, Rank(lex, setOf("fever"), patient.Context{Season: "Winter"}, 0), "influenza")
	if !closeTo(flu.Prior, 0.2) {
		t.Fatalf("winter prior = %v, want 0.2", flu.Prior)
	}
	baseline := candidateByName(t, Rank(lex, setOf("fever"), patient.Context{}, 0), "influenza")
	if flu.Posterior <= baseline.Posterior {
		t.Fatalf("season multiplier did not raise posterior: %v <= %v", flu.Posterior, baseline.Posterior)
	}

	acs := candidateByName(t, Rank(lex, setOf("chest_pain"), patient.Context{Age: 52}, 0), "coronary_syndrome")
	if !closeTo(acs.Prior, 0.1) {
		t.Fatalf("age-banded prior = %v, want 0.1", acs.Prior)
	}
	young := candidateByName(t, Rank(lex, setOf("chest_pain"), patient.Context{Age: 25}, 0), "coronary_syndrome")
	if !closeTo(young.Prior, 0.025) {
		t.Fatalf("age-banded prior = %v, want 0.025", young.Prior)
	}
}

func TestRankExclusiveCompositePrecedence(t *testing.T) {
	lex := testLexicon(t)
	set := setOf("chest_pain", "radiation_to_arm", "chest_pain_radiating_to_arm", "sweating")

	list := Rank(lex, set, patient.Context{}, 0)

	acs := candidateByName(t, list, "coronary_syndrome")
	wantOdds := 0.05 / 0.95 * 12 * 2
	if !closeTo(acs.Posterior, wantOdds/(1+wantOdds)) {
		t.Fatalf("posterior = %v, want %v", acs.Posterior, wantOdds/(1+wantOdds))
	}
	dirs := map[string]string{}
	for _, ev := range acs.Evidence {
		dirs[ev.Key] = ev.Direction
	}
	if dirs["chest_pain_radiating_to_arm"] != DirectionFor || dirs["sweating"] != DirectionFor {
		t.Fatalf("applied evidence = %v", dirs)
	}
	if dirs["chest_pain"] != DirectionNeutral || dirs["radiation_to_arm"] != DirectionNeutral {
		t.Fatalf("constituents not reported neutral: %v", dirs)
	}

	// A disease that rates the composite against itself still has its
	// constituents set aside, while unrelated keys apply normally.
	strain := candidateByName(t, list, "chest_wall_strain")
	wantOdds = 0.08 / 0.92 * 0.6 * 0.5
	if !closeTo(strain.Posterior, wantOdds/(1+wantOdds)) {
		t.Fatalf("posterior = %v, want %v", strain.Posterior, wantOdds/(1+wantOdds))
	}

	// A disease with no composite ratio keeps using the atomics.
	panicAttack := candidateByName(t, list, "panic_attack")
	wantOdds = 0.03 / 0.97 * 1.5 * 1.8
	if !closeTo(panicAttack.Posterior, wantOdds/(1+wantOdds)) {
		t.Fatalf("posterior = %v, want %v", panicAttack.Posterior, wantOdds/(1+wantOdds))
	}
}

func TestRankScenarioNote(t *testing.T) {
	lex := lexicon.Builtin()
	note := "52M, c/o chest pain x 2 days, radiating to left arm. Crushing pain with sweating. BP 160/95, PR 110"

	set := extract.Extract(lex, note, nil)
	list := Rank(lex, set, patient.Context{Age: 52, Sex: patient.SexMale}, 0)

	if len(list) == 0 {
		t.Fatalf("scenario produced no candidates")
	}
	if list[0].Name != "acute_coronary_syndrome" {
		t.Fatalf("top candidate = %q, want acute_coronary_syndrome (list %v)", list[0].Name, names(list))
	}
	if list[0].Posterior <= 0.5 {
		t.Fatalf("top posterior = %v, want > 0.5", list[0].Posterior)
	}
	if len(list[0].Investigations) == 0 {
		t.Fatalf("top candidate carries no investigations")
	}

	// Independent per-candidate probabilities, not a normalized
	// distribution.
	sum := 0.0
	for _, c := range list {
		sum += c.Posterior
	}
	if sum <= 1 {
		t.Fatalf("posteriors sum to %v, expected an unnormalized list", sum)
	}
}
