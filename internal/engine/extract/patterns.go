package extract

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/clindx/clindx/internal/engine/lexicon"
)

// Vital readings are matched against the normalized text, after shorthand
// like "BP" and "PR" has already been rewritten to canonical wording. Bare
// numeric pairs are accepted only when physiologically plausible, which
// also keeps duration shorthand like "2/7" out of the blood-pressure path.
var (
	reBloodPressure = regexp.MustCompile(`\b(?:blood pressure|bp)\s*(?:is|of|was)?\s*[:=-]?\s*(\d{2,3})\s*/\s*(\d{2,3})\b`)
	reBPPair        = regexp.MustCompile(`\b(\d{2,3})\s*/\s*(\d{2,3})(?:\s*mm\s*hg)?\b`)
	rePulse         = regexp.MustCompile(`\b(?:pulse rate|pulse|heart rate)\s*(?:is|of|was)?\s*[:=-]?\s*(\d{2,3})\b`)
	reTemperature   = regexp.MustCompile(`\b(?:temperature|temp)\s*(?:is|of|was)?\s*[:=-]?\s*(\d{2,3}(?:\.\d+)?)\s*°?\s*([cf])?\b`)
	reSpO2          = regexp.MustCompile(`\b(?:spo2|oxygen saturation|o2 sat(?:uration)?|sats?)\s*(?:is|of|was)?\s*[:=-]?\s*(\d{2,3})\s*%?`)
	reRespRate      = regexp.MustCompile(`\b(?:respiratory rate|resp rate)\s*(?:is|of|was)?\s*[:=-]?\s*(\d{1,2})\b`)

	reDuration     = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(hours?|hrs?|days?|weeks?|wks?|months?|years?|yrs?)\b`)
	reDurationFrac = regexp.MustCompile(`\b(\d+)\s*/\s*(7|52|12)\b`)
)

// intervalSet tracks byte ranges of the working copy already consumed by a
// numeric match, so overlapping patterns do not double-read the same text.
type intervalSet struct {
	spans [][2]int
}

func (c *intervalSet) overlaps(s, e int) bool {
	for _, sp := range c.spans {
		if s < sp[1] && sp[0] < e {
			return true
		}
	}
	return false
}

func (c *intervalSet) claim(s, e int) {
	c.spans = append(c.spans, [2]int{s, e})
}

type vitalReading struct {
	key    string
	amount float64
	unit   string
	s, e   int
}

type durationMatch struct {
	amount float64
	unit   string
	s, e   int
}

// parseVitals lifts numeric vital readings out of the normalized text in a
// fixed pattern order. Implausible values are skipped silently.
func parseVitals(n *normalized, claimed *intervalSet) []vitalReading {
	var out []vitalReading

	addBP := func(m []int) {
		sys, _ := strconv.Atoi(n.text[m[2]:m[3]])
		dia, _ := strconv.Atoi(n.text[m[4]:m[5]])
		if !plausibleBP(sys, dia) {
			return
		}
		claimed.claim(m[0], m[1])
		out = append(out,
			vitalReading{key: lexicon.VitalBPSystolic, amount: float64(sys), unit: "mmhg", s: m[0], e: m[1]},
			vitalReading{key: lexicon.VitalBPDiastolic, amount: float64(dia), unit: "mmhg", s: m[0], e: m[1]},
		)
	}
	for _, m := range reBloodPressure.FindAllStringSubmatchIndex(n.text, -1) {
		addBP(m)
	}
	for _, m := range reBPPair.FindAllStringSubmatchIndex(n.text, -1) {
		if claimed.overlaps(m[0], m[1]) {
			continue
		}
		addBP(m)
	}

	for _, m := range rePulse.FindAllStringSubmatchIndex(n.text, -1) {
		if claimed.overlaps(m[0], m[1]) {
			continue
		}
		v, _ := strconv.Atoi(n.text[m[2]:m[3]])
		if v < 20 || v > 250 {
			continue
		}
		claimed.claim(m[0], m[1])
		out = append(out, vitalReading{key: lexicon.VitalPulseRate, amount: float64(v), unit: "bpm", s: m[0], e: m[1]})
	}

	for _, m := range reTemperature.FindAllStringSubmatchIndex(n.text, -1) {
		if claimed.overlaps(m[0], m[1]) {
			continue
		}
		raw, _ := strconv.ParseFloat(n.text[m[2]:m[3]], 64)
		unit := ""
		if m[4] >= 0 {
			unit = n.text[m[4]:m[5]]
		}
		celsius, ok := normalizeTemperature(raw, unit)
		if !ok {
			continue
		}
		claimed.claim(m[0], m[1])
		out = append(out, vitalReading{key: lexicon.VitalTemperature, amount: celsius, unit: "celsius", s: m[0], e: m[1]})
	}

	for _, m := range reSpO2.FindAllStringSubmatchIndex(n.text, -1) {
		if claimed.overlaps(m[0], m[1]) {
			continue
		}
		v, _ := strconv.Atoi(n.text[m[2]:m[3]])
		if v < 50 || v > 100 {
			continue
		}
		claimed.claim(m[0], m[1])
		out = append(out, vitalReading{key: lexicon.VitalSpO2, amount: float64(v), unit: "percent", s: m[0], e: m[1]})
	}

	for _, m := range reRespRate.FindAllStringSubmatchIndex(n.text, -1) {
		if claimed.overlaps(m[0], m[1]) {
			continue
		}
		v, _ := strconv.Atoi(n.text[m[2]:m[3]])
		if v < 5 || v > 80 {
			continue
		}
		claimed.claim(m[0], m[1])
		out = append(out, vitalReading{key: lexicon.VitalRespiratoryRate, amount: float64(v), unit: "breaths/min", s: m[0], e: m[1]})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].s != out[j].s {
			return out[i].s < out[j].s
		}
		return out[i].key < out[j].key
	})
	return out
}

func plausibleBP(sys, dia int) bool {
	return sys >= 60 && sys <= 260 && dia >= 30 && dia <= 160 && sys > dia
}

// normalizeTemperature converts a reading to Celsius. An unlabelled value
// is inferred from its magnitude; values outside both scales are dropped.
func normalizeTemperature(v float64, unit string) (float64, bool) {
	switch unit {
	case "c":
		if v < 30 || v > 45 {
			return 0, false
		}
		return v, true
	case "f":
		if v < 86 || v > 113 {
			return 0, false
		}
		return roundTenth((v - 32) * 5 / 9), true
	default:
		if v >= 30 && v <= 45 {
			return v, true
		}
		if v >= 90 && v <= 110 {
			return roundTenth((v - 32) * 5 / 9), true
		}
		return 0, false
	}
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// parseDurations lifts onset and duration phrases ("x 2 days", "3/52") as
// standalone findings. Binding a duration to a particular symptom is left
// to the caller.
func parseDurations(n *normalized, claimed *intervalSet) []durationMatch {
	var out []durationMatch

	for _, m := range reDuration.FindAllStringSubmatchIndex(n.text, -1) {
		if claimed.overlaps(m[0], m[1]) {
			continue
		}
		amount, _ := strconv.ParseFloat(n.text[m[2]:m[3]], 64)
		if amount <= 0 || amount > 1000 {
			continue
		}
		claimed.claim(m[0], m[1])
		out = append(out, durationMatch{amount: amount, unit: canonicalDurationUnit(n.text[m[4]:m[5]]), s: m[0], e: m[1]})
	}

	for _, m := range reDurationFrac.FindAllStringSubmatchIndex(n.text, -1) {
		if claimed.overlaps(m[0], m[1]) {
			continue
		}
		amount, _ := strconv.ParseFloat(n.text[m[2]:m[3]], 64)
		if amount <= 0 || amount > 90 {
			continue
		}
		var unit string
		switch n.text[m[4]:m[5]] {
		case "7":
			unit = "days"
		case "52":
			unit = "weeks"
		default:
			unit = "months"
		}
		claimed.claim(m[0], m[1])
		out = append(out, durationMatch{amount: amount, unit: unit, s: m[0], e: m[1]})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].s < out[j].s })
	return out
}

func canonicalDurationUnit(u string) string {
	switch {
	case strings.HasPrefix(u, "hour"), strings.HasPrefix(u, "hr"):
		return "hours"
	case strings.HasPrefix(u, "day"):
		return "days"
	case strings.HasPrefix(u, "week"), strings.HasPrefix(u, "wk"):
		return "weeks"
	case strings.HasPrefix(u, "month"):
		return "months"
	default:
		return "years"
	}
}

type phraseMatch struct {
	key  string
	s, e int
}

// matchSymptoms finds every symptom phrase occurrence on word boundaries.
// A match fully contained in a longer kept match is dropped, so "severe
// headache" is not also reported as plain "headache" from inside the same
// phrase. Overlapping matches that each extend past the other both survive.
func matchSymptoms(lex *lexicon.Lexicon, n *normalized) []phraseMatch {
	var all []phraseMatch
	for pi := range lex.Symptoms {
		p := &lex.Symptoms[pi]
		for _, phrase := range p.Phrases {
			for from := 0; ; {
				i := strings.Index(n.text[from:], phrase)
				if i < 0 {
					break
				}
				i += from
				end := i + len(phrase)
				if boundaryAt(n.text, i, end) {
					all = append(all, phraseMatch{key: p.Key, s: i, e: end})
				}
				from = i + 1
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].s != all[j].s {
			return all[i].s < all[j].s
		}
		if all[i].e != all[j].e {
			return all[i].e > all[j].e
		}
		return all[i].key < all[j].key
	})

	// Sorted by start ascending then end descending, every kept match starts
	// at or before the current one, so containment reduces to comparing ends.
	kept := make([]phraseMatch, 0, len(all))
	maxEnd := -1
	for _, m := range all {
		if m.e <= maxEnd {
			continue
		}
		kept = append(kept, m)
		maxEnd = m.e
	}
	return kept
}

func boundaryAt(text string, s, e int) bool {
	beforeOK := s == 0 || !isWordByte(text[s-1])
	afterOK := e == len(text) || !isWordByte(text[e])
	return beforeOK && afterOK
}

// matchComposites emits a composite finding for every pattern whose
// constituents all appear, provided the spanned stretch of the original
// note stays inside the pattern window. Constituents injected from
// structured vitals carry no span and are treated as position-free. The
// atomic findings are never removed.
func matchComposites(lex *lexicon.Lexicon, text string, findings []Finding) []Finding {
	type occurrence struct {
		found   bool
		hasSpan bool
		start   int
		end     int
	}
	occ := make(map[string]occurrence, len(findings))
	for _, f := range findings {
		if _, ok := occ[f.Key]; ok {
			continue
		}
		occ[f.Key] = occurrence{
			found:   true,
			hasSpan: f.Raw.End > f.Raw.Start,
			start:   f.Raw.Start,
			end:     f.Raw.End,
		}
	}

	var out []Finding
	for ci := range lex.Composites {
		c := &lex.Composites[ci]
		allPresent := true
		spanned := 0
		minStart, maxEnd := 0, 0
		for _, req := range c.Requires {
			o, ok := occ[req]
			if !ok || !o.found {
				allPresent = false
				break
			}
			if !o.hasSpan {
				continue
			}
			if spanned == 0 || o.start < minStart {
				minStart = o.start
			}
			if spanned == 0 || o.end > maxEnd {
				maxEnd = o.end
			}
			spanned++
		}
		if !allPresent {
			continue
		}
		if spanned >= 2 && maxEnd-minStart > c.Window {
			continue
		}
		f := Finding{Key: c.Key, Kind: lexicon.KindComposite}
		if spanned > 0 {
			f.Raw = Span{Text: text[minStart:maxEnd], Start: minStart, End: maxEnd}
		}
		out = append(out, f)
	}
	return out
}
