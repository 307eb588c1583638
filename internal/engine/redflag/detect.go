package redflag

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clindx/clindx/internal/engine/extract"
	"github.com/clindx/clindx/internal/engine/lexicon"
	"github.com/clindx/clindx/internal/engine/patient"
)

// urgencyOrder ranks urgencies for display, most severe first.
var urgencyOrder = map[string]int{
	lexicon.UrgencyEmergency: 0,
	lexicon.UrgencyUrgent:    1,
	lexicon.UrgencyWarning:   2,
}

// Detect evaluates every red-flag rule against the finding set and returns
// the fired alerts in created state, most severe first. Rules are
// conjunctive: all required keys must be present. Each rule is judged on
// its own; one firing never masks another. An empty finding set returns an
// empty slice.
func Detect(lex *lexicon.Lexicon, set extract.Set, pctx patient.Context) []Alert {
	alerts := []Alert{}
	if lex == nil || set.Empty() {
		return alerts
	}

	present := make(map[string]bool)
	for _, k := range set.Keys() {
		present[k] = true
	}

	now := time.Now().UTC()
	for i := range lex.RedFlags {
		r := &lex.RedFlags[i]
		if !applies(r, pctx) {
			continue
		}
		if !allPresent(r.Requires, present) {
			continue
		}
		matched := make([]string, len(r.Requires))
		copy(matched, r.Requires)
		alerts = append(alerts, Alert{
			ID:                uuid.New(),
			RuleID:            r.ID,
			Urgency:           r.Urgency,
			MatchedFindings:   matched,
			RecommendedAction: r.Action,
			TimeCriticalNote:  r.TimeCriticalNote,
			State:             StateCreated,
			FiredAt:           now,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return urgencyOrder[alerts[i].Urgency] < urgencyOrder[alerts[j].Urgency]
	})
	return alerts
}

// applies checks a rule's demographic gates. An unrecorded age never
// suppresses an age-bounded rule; screening errs toward firing.
func applies(r *lexicon.RedFlagRule, pctx patient.Context) bool {
	if r.PregnancyOnly && !pctx.Pregnant {
		return false
	}
	if pctx.HasAge() {
		if r.MinAge > 0 && pctx.Age < r.MinAge {
			return false
		}
		if r.MaxAge > 0 && pctx.Age > r.MaxAge {
			return false
		}
	}
	return true
}

func allPresent(requires []string, present map[string]bool) bool {
	for _, k := range requires {
		if !present[k] {
			return false
		}
	}
	return true
}
