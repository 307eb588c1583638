package lexicon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testTables() *Lexicon {
	return &Lexicon{
		Version: "test",
		Expansions: []Expansion{
			{Match: "c/o", Default: "complains of"},
		},
		Symptoms: []SymptomPattern{
			{Key: "chest_pain", Phrases: []string{"chest pain"}},
			{Key: "sweating", Phrases: []string{"sweating"}},
		},
		Composites: []CompositePattern{
			{Key: "painful_sweats", Requires: []string{"chest_pain", "sweating"}, Window: 60, Exclusive: true},
		},
		Thresholds: []VitalThreshold{
			{Key: "tachycardia", Vital: VitalPulseRate, Min: f(100)},
		},
		Diseases: []Disease{
			{Name: "acs", Prior: 0.05, LikelihoodRatios: map[string]float64{"chest_pain": 3}},
		},
		RedFlags: []RedFlagRule{
			{ID: "acs_flag", Urgency: UrgencyEmergency, Requires: []string{"chest_pain"}, Action: "ECG now."},
		},
	}
}

func TestValidate_RegistersVocabulary(t *testing.T) {
	lex := testTables()
	if err := lex.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !lex.Validated() {
		t.Fatal("expected snapshot to be marked validated")
	}
	for key, want := range map[string]string{
		"chest_pain":     KindSymptom,
		"tachycardia":    KindSymptom,
		"painful_sweats": KindComposite,
		VitalPulseRate:   KindVital,
		KeyDuration:      KindDuration,
	} {
		kind, ok := lex.Kind(key)
		if !ok {
			t.Fatalf("key %q not registered", key)
		}
		if kind != want {
			t.Errorf("key %q: expected kind %q, got %q", key, want, kind)
		}
	}
	if _, ok := lex.Kind("no_such_key"); ok {
		t.Error("unregistered key should not resolve")
	}
}

func TestValidate_CanonicalizesCase(t *testing.T) {
	lex := testTables()
	lex.Symptoms[0].Phrases = []string{"Chest Pain"}
	lex.Expansions[0].Match = "C/O"
	if err := lex.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lex.Symptoms[0].Phrases[0] != "chest pain" {
		t.Errorf("phrase not lowercased: %q", lex.Symptoms[0].Phrases[0])
	}
	if lex.Expansions[0].Match != "c/o" {
		t.Errorf("match not lowercased: %q", lex.Expansions[0].Match)
	}
}

func TestValidate_UnknownLikelihoodKey(t *testing.T) {
	lex := testTables()
	lex.Diseases[0].LikelihoodRatios["no_such_finding"] = 2
	err := lex.Validate()
	if err == nil {
		t.Fatal("expected error for unknown likelihood-ratio key")
	}
	if !strings.Contains(err.Error(), "no_such_finding") {
		t.Errorf("error should name the bad key: %v", err)
	}
}

func TestValidate_LikelihoodRatioOfOne(t *testing.T) {
	lex := testTables()
	lex.Diseases[0].LikelihoodRatios["sweating"] = 1
	if err := lex.Validate(); err == nil {
		t.Fatal("expected error for likelihood ratio of exactly 1")
	}
}

func TestValidate_PriorOutOfRange(t *testing.T) {
	for _, prior := range []float64{0, 1, 1.5, -0.1} {
		lex := testTables()
		lex.Diseases[0].Prior = prior
		if err := lex.Validate(); err == nil {
			t.Errorf("prior %g: expected error", prior)
		}
	}
}

func TestValidate_RedFlagProblems(t *testing.T) {
	lex := testTables()
	lex.RedFlags[0].Requires = []string{"no_such_finding"}
	if err := lex.Validate(); err == nil {
		t.Fatal("expected error for red-flag rule on unknown key")
	}

	lex = testTables()
	lex.RedFlags[0].Urgency = "catastrophic"
	if err := lex.Validate(); err == nil {
		t.Fatal("expected error for unknown urgency")
	}

	lex = testTables()
	lex.RedFlags = append(lex.RedFlags, lex.RedFlags[0])
	if err := lex.Validate(); err == nil {
		t.Fatal("expected error for duplicate rule id")
	}
}

func TestValidate_CompositeUnknownConstituent(t *testing.T) {
	lex := testTables()
	lex.Composites[0].Requires = []string{"chest_pain", "no_such_finding"}
	if err := lex.Validate(); err == nil {
		t.Fatal("expected error for composite with unknown constituent")
	}
}

func TestValidate_ThresholdUnknownVital(t *testing.T) {
	lex := testTables()
	lex.Thresholds[0].Vital = "blood_sugar"
	if err := lex.Validate(); err == nil {
		t.Fatal("expected error for threshold on unknown vital")
	}
}

func TestValidate_ExpansionReTrigger(t *testing.T) {
	lex := testTables()
	lex.Expansions = append(lex.Expansions, Expansion{Match: "cp", Default: "c/o chest pain"})
	err := lex.Validate()
	if err == nil {
		t.Fatal("expected error for expansion that re-triggers an abbreviation")
	}
	if !strings.Contains(err.Error(), "re-triggers") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_DuplicateDisease(t *testing.T) {
	lex := testTables()
	lex.Diseases = append(lex.Diseases, lex.Diseases[0])
	if err := lex.Validate(); err == nil {
		t.Fatal("expected error for duplicate disease")
	}
}

func TestValidate_OrdersExpansionsLongestFirst(t *testing.T) {
	lex := testTables()
	lex.Expansions = []Expansion{
		{Match: "pet dard", Default: "abdominal pain"},
		{Match: "pet me dard", Default: "abdominal pain"},
	}
	if err := lex.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lex.Expansions[0].Match != "pet me dard" {
		t.Errorf("expected longest match first, got %q", lex.Expansions[0].Match)
	}
}

func TestBuiltin(t *testing.T) {
	lex := Builtin()
	if !lex.Validated() {
		t.Fatal("builtin ruleset must be validated")
	}
	for _, key := range []string{
		"chest_pain", "radiation_to_arm", "sweating", "chest_pain_radiating_to_arm",
		"severe_headache", "bp_systolic_high", "tachycardia",
	} {
		if _, ok := lex.Kind(key); !ok {
			t.Errorf("builtin vocabulary missing %q", key)
		}
	}
	var hasACS, hasPreeclampsia bool
	for _, d := range lex.Diseases {
		switch d.Name {
		case "acute_coronary_syndrome":
			hasACS = true
		case "preeclampsia":
			hasPreeclampsia = true
			if !d.PregnancyOnly {
				t.Error("preeclampsia must be pregnancy-only")
			}
		}
	}
	if !hasACS || !hasPreeclampsia {
		t.Error("builtin disease table incomplete")
	}
}

func TestStore_ReplaceSwapsSnapshot(t *testing.T) {
	first := testTables()
	if err := first.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store, err := NewStore(first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Current().Version != "test" {
		t.Fatalf("expected version test, got %q", store.Current().Version)
	}

	second := testTables()
	second.Version = "test-2"
	if err := second.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Replace(second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Current().Version != "test-2" {
		t.Errorf("expected swapped snapshot, got %q", store.Current().Version)
	}
}

func TestStore_RejectsUnvalidatedSnapshot(t *testing.T) {
	lex := testTables()
	if err := lex.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store, err := NewStore(lex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Replace(testTables()); err == nil {
		t.Error("expected error replacing with unvalidated snapshot")
	}
	if err := store.Replace(nil); err == nil {
		t.Error("expected error replacing with nil snapshot")
	}
	if store.Current().Version != "test" {
		t.Error("failed replace must not change the active snapshot")
	}
}

func TestStore_ReloadFailureKeepsCurrent(t *testing.T) {
	lex := testTables()
	if err := lex.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store, err := NewStore(lex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.ReloadDir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error reloading from a missing directory")
	}
	if store.Current() != lex {
		t.Error("failed reload must keep the previous snapshot")
	}
}

func TestLoad_MergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "01_text.yaml", `
version: opd-2025
expansions:
  - match: c/o
    default: complains of
symptoms:
  - key: chest_pain
    phrases: [chest pain]
`)
	writeRuleFile(t, dir, "02_diseases.yaml", `
diseases:
  - name: acs
    prior: 0.05
    likelihood_ratios:
      chest_pain: 3
`)

	lex, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lex.Version != "opd-2025" {
		t.Errorf("expected version opd-2025, got %q", lex.Version)
	}
	if len(lex.Diseases) != 1 || lex.Diseases[0].Name != "acs" {
		t.Errorf("disease table not merged: %+v", lex.Diseases)
	}
	if _, ok := lex.Kind("chest_pain"); !ok {
		t.Error("merged vocabulary missing chest_pain")
	}
}

func TestLoad_FailsFastOnInconsistentRuleset(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "01_bad.yaml", `
diseases:
  - name: acs
    prior: 0.05
    likelihood_ratios:
      undefined_finding: 3
`)
	if _, err := Load(dir); err == nil {
		t.Fatal("expected load to fail on a rule referencing an unknown key")
	}
}

func TestLoad_EmptyDirectory(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for a directory with no rule files")
	}
}

func TestParseBytes(t *testing.T) {
	lex, err := ParseBytes([]byte(`
symptoms:
  - key: fever
    phrases: [fever]
diseases:
  - name: influenza
    prior: 0.06
    likelihood_ratios:
      fever: 2.5
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lex.Version != "unversioned" {
		t.Errorf("expected default version, got %q", lex.Version)
	}

	if _, err := ParseBytes([]byte("symptoms: {not a list}")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func writeRuleFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write rule file: %v", err)
	}
}
