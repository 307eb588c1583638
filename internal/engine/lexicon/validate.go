package lexicon

import (
	"fmt"
	"sort"
	"strings"
)

// Validate checks every table for internal consistency, canonicalizes match
// text to lowercase, fixes the expansion match order (longest first) and
// builds the key vocabulary. It must succeed before a snapshot is published;
// a ruleset that fails validation never reaches evaluation. The first
// problem found is returned as a descriptive error.
func (l *Lexicon) Validate() error {
	l.vocab = nil
	vocab := make(map[string]string)

	register := func(key, kind, where string) error {
		if key == "" {
			return fmt.Errorf("lexicon: %s: empty finding key", where)
		}
		if key != strings.ToLower(key) || strings.ContainsAny(key, " \t") {
			return fmt.Errorf("lexicon: %s: key %q must be lowercase with no spaces", where, key)
		}
		if prev, ok := vocab[key]; ok {
			return fmt.Errorf("lexicon: %s: key %q already registered as %s", where, key, prev)
		}
		vocab[key] = kind
		return nil
	}

	for _, k := range vitalKeys() {
		if err := register(k, KindVital, "vitals"); err != nil {
			return err
		}
	}
	if err := register(KeyDuration, KindDuration, "durations"); err != nil {
		return err
	}

	if err := l.validateSymptoms(register); err != nil {
		return err
	}
	if err := l.validateThresholds(vocab, register); err != nil {
		return err
	}
	if err := l.validateComposites(vocab, register); err != nil {
		return err
	}
	if err := l.validateExpansions(); err != nil {
		return err
	}
	if err := l.validateDiseases(vocab); err != nil {
		return err
	}
	if err := l.validateRedFlags(vocab); err != nil {
		return err
	}

	// Longest match first; ties broken alphabetically so the order is
	// stable across loads.
	sort.SliceStable(l.Expansions, func(i, j int) bool {
		a, b := l.Expansions[i].Match, l.Expansions[j].Match
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})

	l.vocab = vocab
	return nil
}

func (l *Lexicon) validateSymptoms(register func(key, kind, where string) error) error {
	for i := range l.Symptoms {
		p := &l.Symptoms[i]
		where := fmt.Sprintf("symptom pattern %d", i)
		if err := register(p.Key, KindSymptom, where); err != nil {
			return err
		}
		if len(p.Phrases) == 0 {
			return fmt.Errorf("lexicon: symptom %q has no phrases", p.Key)
		}
		for j, ph := range p.Phrases {
			ph = strings.ToLower(strings.TrimSpace(ph))
			if ph == "" {
				return fmt.Errorf("lexicon: symptom %q phrase %d is empty", p.Key, j)
			}
			p.Phrases[j] = ph
		}
	}
	return nil
}

func (l *Lexicon) validateThresholds(vocab map[string]string, register func(key, kind, where string) error) error {
	for i := range l.Thresholds {
		t := &l.Thresholds[i]
		where := fmt.Sprintf("threshold %d", i)
		if err := register(t.Key, KindSymptom, where); err != nil {
			return err
		}
		if vocab[t.Vital] != KindVital {
			return fmt.Errorf("lexicon: threshold %q references unknown vital %q", t.Key, t.Vital)
		}
		if t.Min == nil && t.Max == nil {
			return fmt.Errorf("lexicon: threshold %q has no bounds", t.Key)
		}
		if t.Min != nil && t.Max != nil && *t.Min > *t.Max {
			return fmt.Errorf("lexicon: threshold %q has min %g above max %g", t.Key, *t.Min, *t.Max)
		}
	}
	return nil
}

func (l *Lexicon) validateComposites(vocab map[string]string, register func(key, kind, where string) error) error {
	for i := range l.Composites {
		c := &l.Composites[i]
		where := fmt.Sprintf("composite %d", i)
		if err := register(c.Key, KindComposite, where); err != nil {
			return err
		}
		if len(c.Requires) < 2 {
			return fmt.Errorf("lexicon: composite %q needs at least two constituent keys", c.Key)
		}
		if c.Window <= 0 {
			return fmt.Errorf("lexicon: composite %q has no co-occurrence window", c.Key)
		}
		for _, req := range c.Requires {
			kind, ok := vocab[req]
			if !ok {
				return fmt.Errorf("lexicon: composite %q requires unknown key %q", c.Key, req)
			}
			if kind != KindSymptom {
				return fmt.Errorf("lexicon: composite %q requires %q which is a %s, not a symptom", c.Key, req, kind)
			}
		}
	}
	return nil
}

// validateExpansions checks the rewrite table and enforces idempotency: an
// expansion may not itself contain any abbreviation, so running the
// normalization pass over already-expanded text changes nothing.
func (l *Lexicon) validateExpansions() error {
	matches := make(map[string]bool, len(l.Expansions))
	for i := range l.Expansions {
		e := &l.Expansions[i]
		e.Match = strings.ToLower(strings.TrimSpace(e.Match))
		if e.Match == "" {
			return fmt.Errorf("lexicon: expansion %d has an empty match", i)
		}
		if matches[e.Match] {
			return fmt.Errorf("lexicon: duplicate expansion for %q", e.Match)
		}
		matches[e.Match] = true
		e.Default = strings.ToLower(strings.TrimSpace(e.Default))
		if e.Default == "" {
			return fmt.Errorf("lexicon: expansion for %q has no default", e.Match)
		}
		for j := range e.Rules {
			r := &e.Rules[j]
			r.Expansion = strings.ToLower(strings.TrimSpace(r.Expansion))
			if r.Expansion == "" {
				return fmt.Errorf("lexicon: expansion for %q rule %d has no replacement", e.Match, j)
			}
			if len(r.Near) == 0 && !r.NearNumber {
				return fmt.Errorf("lexicon: expansion for %q rule %d has no context condition", e.Match, j)
			}
			for k, w := range r.Near {
				r.Near[k] = strings.ToLower(strings.TrimSpace(w))
			}
			if r.Window < 0 {
				return fmt.Errorf("lexicon: expansion for %q rule %d has a negative window", e.Match, j)
			}
		}
	}

	for _, e := range l.Expansions {
		texts := []string{e.Default}
		for _, r := range e.Rules {
			texts = append(texts, r.Expansion)
		}
		for _, txt := range texts {
			if abbr := firstEmbeddedMatch(txt, matches); abbr != "" {
				return fmt.Errorf("lexicon: expansion of %q to %q re-triggers abbreviation %q", e.Match, txt, abbr)
			}
		}
	}
	return nil
}

// firstEmbeddedMatch reports the first abbreviation that appears, on word
// boundaries, inside the given replacement text.
func firstEmbeddedMatch(text string, matches map[string]bool) string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !isWordRune(r) && r != '/'
	})
	for _, w := range words {
		if matches[w] {
			return w
		}
	}
	// Multi-word abbreviations (e.g. vernacular phrases) on boundaries.
	for m := range matches {
		if !strings.Contains(m, " ") {
			continue
		}
		if phraseOnBoundary(text, m) {
			return m
		}
	}
	return ""
}

func phraseOnBoundary(text, phrase string) bool {
	for from := 0; ; {
		i := strings.Index(text[from:], phrase)
		if i < 0 {
			return false
		}
		i += from
		end := i + len(phrase)
		beforeOK := i == 0 || !isWordByte(text[i-1])
		afterOK := end == len(text) || !isWordByte(text[end])
		if beforeOK && afterOK {
			return true
		}
		from = i + 1
	}
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func (l *Lexicon) validateDiseases(vocab map[string]string) error {
	names := make(map[string]bool, len(l.Diseases))
	for i := range l.Diseases {
		d := &l.Diseases[i]
		if d.Name == "" {
			return fmt.Errorf("lexicon: disease %d has no name", i)
		}
		if names[d.Name] {
			return fmt.Errorf("lexicon: duplicate disease %q", d.Name)
		}
		names[d.Name] = true
		if d.Prior <= 0 || d.Prior >= 1 {
			return fmt.Errorf("lexicon: disease %q prior %g is outside (0,1)", d.Name, d.Prior)
		}
		for _, s := range d.Sexes {
			switch strings.ToLower(s) {
			case "male", "female", "other":
			default:
				return fmt.Errorf("lexicon: disease %q lists unknown sex %q", d.Name, s)
			}
		}
		for _, b := range d.AgeBands {
			if b.Min < 0 || b.Max < b.Min {
				return fmt.Errorf("lexicon: disease %q has an invalid age band [%d,%d]", d.Name, b.Min, b.Max)
			}
			if b.Multiplier <= 0 {
				return fmt.Errorf("lexicon: disease %q age band [%d,%d] multiplier must be positive", d.Name, b.Min, b.Max)
			}
		}
		for season, m := range d.Seasons {
			if m <= 0 {
				return fmt.Errorf("lexicon: disease %q season %q multiplier must be positive", d.Name, season)
			}
		}
		if len(d.LikelihoodRatios) == 0 {
			return fmt.Errorf("lexicon: disease %q has no likelihood ratios", d.Name)
		}
		for key, lr := range d.LikelihoodRatios {
			kind, ok := vocab[key]
			if !ok {
				return fmt.Errorf("lexicon: disease %q has a likelihood ratio for unknown key %q", d.Name, key)
			}
			if kind != KindSymptom && kind != KindComposite {
				return fmt.Errorf("lexicon: disease %q has a likelihood ratio for %q, a %s; ratios attach to symptoms and composites", d.Name, key, kind)
			}
			if lr <= 0 {
				return fmt.Errorf("lexicon: disease %q likelihood ratio for %q must be positive, got %g", d.Name, key, lr)
			}
			if lr == 1 {
				return fmt.Errorf("lexicon: disease %q likelihood ratio for %q is exactly 1 and would have no effect; remove it", d.Name, key)
			}
		}
	}
	return nil
}

func (l *Lexicon) validateRedFlags(vocab map[string]string) error {
	ids := make(map[string]bool, len(l.RedFlags))
	for i := range l.RedFlags {
		r := &l.RedFlags[i]
		if r.ID == "" {
			return fmt.Errorf("lexicon: red-flag rule %d has no id", i)
		}
		if ids[r.ID] {
			return fmt.Errorf("lexicon: duplicate red-flag rule %q", r.ID)
		}
		ids[r.ID] = true
		if !ValidUrgencies[r.Urgency] {
			return fmt.Errorf("lexicon: red-flag rule %q has unknown urgency %q", r.ID, r.Urgency)
		}
		if len(r.Requires) == 0 {
			return fmt.Errorf("lexicon: red-flag rule %q requires no findings", r.ID)
		}
		for _, key := range r.Requires {
			kind, ok := vocab[key]
			if !ok {
				return fmt.Errorf("lexicon: red-flag rule %q requires unknown key %q", r.ID, key)
			}
			if kind != KindSymptom && kind != KindComposite {
				return fmt.Errorf("lexicon: red-flag rule %q requires %q, a %s; rules match symptoms and composites", r.ID, key, kind)
			}
		}
		if r.MinAge < 0 || r.MaxAge < 0 {
			return fmt.Errorf("lexicon: red-flag rule %q has a negative age bound", r.ID)
		}
		if r.MinAge > 0 && r.MaxAge > 0 && r.MinAge > r.MaxAge {
			return fmt.Errorf("lexicon: red-flag rule %q has min age above max age", r.ID)
		}
		if r.Action == "" {
			return fmt.Errorf("lexicon: red-flag rule %q has no recommended action", r.ID)
		}
	}
	return nil
}
