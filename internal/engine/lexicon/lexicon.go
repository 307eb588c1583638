// Package lexicon holds the rule tables the decision engine reads: text
// expansions, symptom and composite patterns, vital thresholds, disease
// priors with likelihood ratios, and red-flag rules. A Lexicon is built
// once by Builtin or Load, validated and compiled at that point, and never
// mutated afterwards, so concurrent extraction, ranking and detection calls
// share one snapshot without locking. Updated rulesets are published by
// swapping whole snapshots through a Store.
package lexicon

// Finding kinds. Every vocabulary key has exactly one kind.
const (
	KindSymptom   = "symptom"
	KindVital     = "vital"
	KindDuration  = "duration"
	KindComposite = "composite"
)

// Alert urgency tiers, ordered from most to least time-critical.
const (
	UrgencyEmergency = "emergency"
	UrgencyUrgent    = "urgent"
	UrgencyWarning   = "warning"
)

// Canonical vital keys the extractor can populate. These are registered in
// the vocabulary automatically; thresholds reference them by name.
const (
	VitalBPSystolic      = "bp_systolic"
	VitalBPDiastolic     = "bp_diastolic"
	VitalPulseRate       = "pulse_rate"
	VitalTemperature     = "temperature"
	VitalSpO2            = "spo2"
	VitalRespiratoryRate = "respiratory_rate"
)

// KeyDuration is the vocabulary key shared by all duration findings.
const KeyDuration = "duration"

// Expansion rewrites one abbreviation or transliterated vernacular phrase to
// canonical clinical wording during extraction. When Rules is non-empty the
// words surrounding the match pick the replacement; Default applies when no
// rule matches.
type Expansion struct {
	Match   string           `yaml:"match" json:"match"`
	Default string           `yaml:"default" json:"default"`
	Rules   []Disambiguation `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// Disambiguation selects an expansion for an ambiguous abbreviation. A rule
// matches when any word in Near (or, with NearNumber, any bare number)
// appears within Window words on either side of the abbreviation. Rules are
// tried in order; the first match wins.
type Disambiguation struct {
	Near       []string `yaml:"near,omitempty" json:"near,omitempty"`
	NearNumber bool     `yaml:"near_number,omitempty" json:"near_number,omitempty"`
	Window     int      `yaml:"window,omitempty" json:"window,omitempty"`
	Expansion  string   `yaml:"expansion" json:"expansion"`
}

// DefaultDisambiguationWindow is the word window used when a rule does not
// set its own.
const DefaultDisambiguationWindow = 4

// SymptomPattern maps trigger phrases in normalized text to one vocabulary
// key. Phrases are matched case-insensitively on word boundaries.
type SymptomPattern struct {
	Key     string   `yaml:"key" json:"key"`
	Phrases []string `yaml:"phrases" json:"phrases"`
}

// CompositePattern emits an additional finding when all Requires keys occur
// within Window characters of each other in the normalized text. The
// contributing atomic findings are kept. Exclusive marks the composite as
// superseding its constituents when likelihood ratios are applied.
type CompositePattern struct {
	Key       string   `yaml:"key" json:"key"`
	Requires  []string `yaml:"requires" json:"requires"`
	Window    int      `yaml:"window" json:"window"`
	Exclusive bool     `yaml:"exclusive,omitempty" json:"exclusive,omitempty"`
}

// VitalThreshold derives a qualitative finding from a numeric vital reading,
// e.g. tachycardia from pulse_rate >= 100. At least one bound must be set;
// the rule fires when reading >= Min and reading <= Max for the bounds
// present.
type VitalThreshold struct {
	Key   string   `yaml:"key" json:"key"`
	Vital string   `yaml:"vital" json:"vital"`
	Min   *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max   *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// AgeBand scales a disease prior inside an inclusive age range.
type AgeBand struct {
	Min        int     `yaml:"min" json:"min"`
	Max        int     `yaml:"max" json:"max"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
}

// Disease is one diagnosis the ranking engine can surface. Prior is the
// population prevalence before any evidence is applied. LikelihoodRatios
// maps finding keys to the multiplier applied to the diagnosis odds when
// that finding is present; keys absent from the map contribute nothing.
type Disease struct {
	Name             string             `yaml:"name" json:"name"`
	Code             string             `yaml:"code,omitempty" json:"code,omitempty"`
	Prior            float64            `yaml:"prior" json:"prior"`
	Sexes            []string           `yaml:"sexes,omitempty" json:"sexes,omitempty"`
	PregnancyOnly    bool               `yaml:"pregnancy_only,omitempty" json:"pregnancy_only,omitempty"`
	AgeBands         []AgeBand          `yaml:"age_bands,omitempty" json:"age_bands,omitempty"`
	Seasons          map[string]float64 `yaml:"seasons,omitempty" json:"seasons,omitempty"`
	LikelihoodRatios map[string]float64 `yaml:"likelihood_ratios" json:"likelihood_ratios"`
	Investigations   []string           `yaml:"investigations,omitempty" json:"investigations,omitempty"`
}

// RedFlagRule fires an alert when every key in Requires is present in the
// finding set and the context conditions hold. Rules are independent: every
// matching rule produces its own alert, with no suppression between rules.
type RedFlagRule struct {
	ID               string   `yaml:"id" json:"id"`
	Urgency          string   `yaml:"urgency" json:"urgency"`
	Requires         []string `yaml:"requires" json:"requires"`
	PregnancyOnly    bool     `yaml:"pregnancy_only,omitempty" json:"pregnancy_only,omitempty"`
	MinAge           int      `yaml:"min_age,omitempty" json:"min_age,omitempty"`
	MaxAge           int      `yaml:"max_age,omitempty" json:"max_age,omitempty"`
	Action           string   `yaml:"action" json:"action"`
	TimeCriticalNote string   `yaml:"time_critical_note,omitempty" json:"time_critical_note,omitempty"`
}

// Lexicon is one immutable snapshot of every rule table. Construct with
// Builtin or Load; both validate and compile the tables. Readers must treat
// all fields as read-only.
type Lexicon struct {
	Version    string             `yaml:"version" json:"version"`
	Expansions []Expansion        `yaml:"expansions" json:"expansions"`
	Symptoms   []SymptomPattern   `yaml:"symptoms" json:"symptoms"`
	Composites []CompositePattern `yaml:"composites" json:"composites"`
	Thresholds []VitalThreshold   `yaml:"thresholds" json:"thresholds"`
	Diseases   []Disease          `yaml:"diseases" json:"diseases"`
	RedFlags   []RedFlagRule      `yaml:"red_flags" json:"red_flags"`

	// vocab maps every registered finding key to its kind. Built during
	// Validate; nil means the snapshot has not been validated.
	vocab map[string]string
}

// Kind returns the kind of a registered finding key.
func (l *Lexicon) Kind(key string) (string, bool) {
	k, ok := l.vocab[key]
	return k, ok
}

// KeyCount returns the size of the registered vocabulary.
func (l *Lexicon) KeyCount() int {
	return len(l.vocab)
}

// Validated reports whether Validate has run successfully on this snapshot.
func (l *Lexicon) Validated() bool {
	return l.vocab != nil
}

// vitalKeys lists the canonical vital keys in a fixed order.
func vitalKeys() []string {
	return []string{
		VitalBPSystolic,
		VitalBPDiastolic,
		VitalPulseRate,
		VitalTemperature,
		VitalSpO2,
		VitalRespiratoryRate,
	}
}

// ValidUrgencies enumerates the accepted urgency tiers.
var ValidUrgencies = map[string]bool{
	UrgencyEmergency: true,
	UrgencyUrgent:    true,
	UrgencyWarning:   true,
}
