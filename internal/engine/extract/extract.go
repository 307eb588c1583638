// Package extract turns free-text consultation notes into normalized
// clinical findings. Extraction is a pure function over one lexicon
// snapshot: identical input always produces identical, order-stable output,
// and unrecognized text is silently skipped rather than reported as an
// error. Two passes run per call: normalization rewrites shorthand and
// vernacular to canonical wording on an offset-mapped working copy, then
// ordered pattern matching lifts vitals, durations, symptoms and composite
// co-occurrences out of the normalized text.
package extract

import (
	"sort"

	"github.com/clindx/clindx/internal/engine/lexicon"
)

// MaxInputChars caps the note length considered by one extraction call.
// Longer input is truncated, never rejected.
const MaxInputChars = 10000

// Span is the substring of the original note a finding was lifted from,
// with byte offsets for caller-side highlighting. Findings injected from
// structured vitals have a zero Span.
type Span struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Value is the numeric payload carried by vital and duration findings.
type Value struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// Finding is one normalized clinical observation. Key is always drawn from
// the lexicon's registered vocabulary; text the lexicon does not know never
// becomes a Finding.
type Finding struct {
	Key   string `json:"key"`
	Kind  string `json:"kind"`
	Raw   Span   `json:"raw_span"`
	Value *Value `json:"value,omitempty"`
}

// Set is the ordered, deduplicated result of one extraction. No two
// findings share the same key and raw span; composite findings coexist with
// the atomic findings they were derived from.
type Set struct {
	Findings []Finding `json:"findings"`
}

// Empty reports whether the extraction produced nothing.
func (s Set) Empty() bool { return len(s.Findings) == 0 }

// Has reports whether any finding carries the given key.
func (s Set) Has(key string) bool {
	for _, f := range s.Findings {
		if f.Key == key {
			return true
		}
	}
	return false
}

// Keys returns the distinct finding keys in set order.
func (s Set) Keys() []string {
	seen := make(map[string]bool, len(s.Findings))
	keys := make([]string, 0, len(s.Findings))
	for _, f := range s.Findings {
		if seen[f.Key] {
			continue
		}
		seen[f.Key] = true
		keys = append(keys, f.Key)
	}
	return keys
}

// Reading returns the first numeric value recorded for a vital key.
func (s Set) Reading(key string) (float64, bool) {
	for _, f := range s.Findings {
		if f.Key == key && f.Value != nil {
			return f.Value.Amount, true
		}
	}
	return 0, false
}

// Vitals carries device-measured readings supplied alongside the note.
// A non-nil field overrides whatever the text parse produced for that
// vital, on the grounds that a device reading beats a transcribed one.
type Vitals struct {
	BPSystolic      *int     `json:"bp_systolic,omitempty"`
	BPDiastolic     *int     `json:"bp_diastolic,omitempty"`
	PulseRate       *int     `json:"pulse_rate,omitempty"`
	TemperatureC    *float64 `json:"temperature_c,omitempty"`
	SpO2            *int     `json:"spo2,omitempty"`
	RespiratoryRate *int     `json:"respiratory_rate,omitempty"`
}

// Extract runs both passes over one note and returns its finding set.
// Empty or unrecognized input yields an empty set, never an error. The
// lexicon snapshot is read-only; Extract holds no state between calls.
func Extract(lex *lexicon.Lexicon, text string, vitals *Vitals) Set {
	set := Set{Findings: []Finding{}}
	if lex == nil {
		return set
	}

	text = truncateRunes(text, MaxInputChars)
	n := normalize(lex, text)

	claimed := &intervalSet{}
	readings := parseVitals(n, claimed)
	durations := parseDurations(n, claimed)
	symptoms := matchSymptoms(lex, n)

	findings := make([]Finding, 0, len(readings)+len(durations)+len(symptoms)+4)

	// Structured vitals override text-derived readings per vital key.
	vitalValues := make(map[string]float64)
	overridden := hintOverrides(vitals)
	for _, r := range readings {
		if overridden[r.key] {
			continue
		}
		os, oe := n.span(r.s, r.e)
		findings = append(findings, Finding{
			Key:   r.key,
			Kind:  lexicon.KindVital,
			Raw:   Span{Text: text[os:oe], Start: os, End: oe},
			Value: &Value{Amount: r.amount, Unit: r.unit},
		})
		if _, seen := vitalValues[r.key]; !seen {
			vitalValues[r.key] = r.amount
		}
	}
	findings = append(findings, hintFindings(vitals, vitalValues)...)

	for _, d := range durations {
		os, oe := n.span(d.s, d.e)
		findings = append(findings, Finding{
			Key:   lexicon.KeyDuration,
			Kind:  lexicon.KindDuration,
			Raw:   Span{Text: text[os:oe], Start: os, End: oe},
			Value: &Value{Amount: d.amount, Unit: d.unit},
		})
	}

	for _, m := range symptoms {
		os, oe := n.span(m.s, m.e)
		findings = append(findings, Finding{
			Key:  m.key,
			Kind: lexicon.KindSymptom,
			Raw:  Span{Text: text[os:oe], Start: os, End: oe},
		})
	}

	findings = append(findings, deriveThresholds(lex, vitalValues, findings)...)
	findings = append(findings, matchComposites(lex, text, findings)...)

	set.Findings = dedupAndOrder(findings)
	return set
}

// hintOverrides reports which vital keys the structured hint supplies.
func hintOverrides(v *Vitals) map[string]bool {
	out := make(map[string]bool, 6)
	if v == nil {
		return out
	}
	if v.BPSystolic != nil {
		out[lexicon.VitalBPSystolic] = true
	}
	if v.BPDiastolic != nil {
		out[lexicon.VitalBPDiastolic] = true
	}
	if v.PulseRate != nil {
		out[lexicon.VitalPulseRate] = true
	}
	if v.TemperatureC != nil {
		out[lexicon.VitalTemperature] = true
	}
	if v.SpO2 != nil {
		out[lexicon.VitalSpO2] = true
	}
	if v.RespiratoryRate != nil {
		out[lexicon.VitalRespiratoryRate] = true
	}
	return out
}

// hintFindings builds zero-span vital findings from the structured hint and
// records their readings for threshold derivation.
func hintFindings(v *Vitals, vitalValues map[string]float64) []Finding {
	if v == nil {
		return nil
	}
	var out []Finding
	add := func(key string, amount float64, unit string) {
		out = append(out, Finding{
			Key:   key,
			Kind:  lexicon.KindVital,
			Value: &Value{Amount: amount, Unit: unit},
		})
		vitalValues[key] = amount
	}
	if v.BPSystolic != nil {
		add(lexicon.VitalBPSystolic, float64(*v.BPSystolic), "mmhg")
	}
	if v.BPDiastolic != nil {
		add(lexicon.VitalBPDiastolic, float64(*v.BPDiastolic), "mmhg")
	}
	if v.PulseRate != nil {
		add(lexicon.VitalPulseRate, float64(*v.PulseRate), "bpm")
	}
	if v.TemperatureC != nil {
		add(lexicon.VitalTemperature, *v.TemperatureC, "celsius")
	}
	if v.SpO2 != nil {
		add(lexicon.VitalSpO2, float64(*v.SpO2), "percent")
	}
	if v.RespiratoryRate != nil {
		add(lexicon.VitalRespiratoryRate, float64(*v.RespiratoryRate), "breaths/min")
	}
	return out
}

// deriveThresholds turns numeric readings into qualitative findings, e.g.
// a pulse of 110 into tachycardia. The derived finding inherits the span of
// the vital finding it came from.
func deriveThresholds(lex *lexicon.Lexicon, vitalValues map[string]float64, findings []Finding) []Finding {
	var out []Finding
	for i := range lex.Thresholds {
		t := &lex.Thresholds[i]
		reading, ok := vitalValues[t.Vital]
		if !ok {
			continue
		}
		if t.Min != nil && reading < *t.Min {
			continue
		}
		if t.Max != nil && reading > *t.Max {
			continue
		}
		out = append(out, Finding{
			Key:  t.Key,
			Kind: lexicon.KindSymptom,
			Raw:  spanOfKey(findings, t.Vital),
		})
	}
	return out
}

func spanOfKey(findings []Finding, key string) Span {
	for _, f := range findings {
		if f.Key == key {
			return f.Raw
		}
	}
	return Span{}
}

// dedupAndOrder removes findings sharing an identical key and span, then
// fixes the caller-visible order: span start, span end, key.
func dedupAndOrder(findings []Finding) []Finding {
	type ident struct {
		key        string
		start, end int
	}
	seen := make(map[ident]bool, len(findings))
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		id := ident{f.Key, f.Raw.Start, f.Raw.End}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Raw.Start != out[j].Raw.Start {
			return out[i].Raw.Start < out[j].Raw.Start
		}
		if out[i].Raw.End != out[j].Raw.End {
			return out[i].Raw.End < out[j].Raw.End
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// truncateRunes cuts s after max runes without splitting a rune.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}
