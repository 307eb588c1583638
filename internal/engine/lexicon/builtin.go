package lexicon

import "fmt"

// Builtin returns the compiled-in primary-care ruleset: dosing and clinical
// shorthand common in Indian outpatient notes, transliterated vernacular
// complaints, and an adult OPD disease table with monsoon-season scaling.
// It panics if the table fails its own validation, which can only happen
// through a programming error in this file.
func Builtin() *Lexicon {
	lex := builtinTables()
	if err := lex.Validate(); err != nil {
		panic(fmt.Sprintf("lexicon: builtin ruleset invalid: %v", err))
	}
	return lex
}

func f(v float64) *float64 { return &v }

func builtinTables() *Lexicon {
	return &Lexicon{
		Version:    "builtin-1",
		Expansions: builtinExpansions(),
		Symptoms:   builtinSymptoms(),
		Composites: []CompositePattern{
			{Key: "chest_pain_radiating_to_arm", Requires: []string{"chest_pain", "radiation_to_arm"}, Window: 120, Exclusive: true},
			{Key: "fever_with_rigors", Requires: []string{"fever", "rigors"}, Window: 80, Exclusive: true},
		},
		Thresholds: []VitalThreshold{
			{Key: "tachycardia", Vital: VitalPulseRate, Min: f(100)},
			{Key: "bradycardia", Vital: VitalPulseRate, Max: f(50)},
			{Key: "hypertension_reading", Vital: VitalBPSystolic, Min: f(140)},
			{Key: "bp_systolic_high", Vital: VitalBPSystolic, Min: f(160)},
			{Key: "hypotension", Vital: VitalBPSystolic, Max: f(90)},
			{Key: "bp_diastolic_high", Vital: VitalBPDiastolic, Min: f(110)},
			{Key: "fever_reading", Vital: VitalTemperature, Min: f(38.0)},
			{Key: "high_fever_reading", Vital: VitalTemperature, Min: f(39.5)},
			{Key: "hypothermia", Vital: VitalTemperature, Max: f(35.0)},
			{Key: "spo2_low", Vital: VitalSpO2, Max: f(92)},
			{Key: "tachypnea", Vital: VitalRespiratoryRate, Min: f(24)},
		},
		Diseases: builtinDiseases(),
		RedFlags: builtinRedFlags(),
	}
}

func builtinExpansions() []Expansion {
	return []Expansion{
		// Clinical shorthand.
		{Match: "c/o", Default: "complains of"},
		{Match: "h/o", Default: "history of"},
		{Match: "k/c/o", Default: "known case of"},
		{Match: "o/e", Default: "on examination"},
		{Match: "b/l", Default: "bilateral"},
		{Match: "cp", Default: "chest pain"},
		{Match: "sob", Default: "shortness of breath"},
		{Match: "loc", Default: "loss of consciousness"},
		{Match: "bp", Default: "blood pressure"},
		{Match: "rr", Default: "respiratory rate"},
		{Match: "abd", Default: "abdominal"},
		{Match: "wt", Default: "weight"},
		{Match: "nad", Default: "no abnormality detected"},
		{Match: "gc", Default: "general condition"},
		{Match: "lmp", Default: "last menstrual period"},
		{Match: "rif", Default: "right iliac fossa"},
		{Match: "tab", Default: "tablet"},
		// Ambiguous shorthand resolved by surrounding words.
		{Match: "pr", Default: "pulse rate", Rules: []Disambiguation{
			{NearNumber: true, Expansion: "pulse rate"},
			{Near: []string{"bleeding", "bleed", "exam", "examination"}, Expansion: "per rectum"},
		}},
		{Match: "hr", Default: "heart rate", Rules: []Disambiguation{
			{Near: []string{"x", "for", "since", "past"}, Expansion: "hours"},
		}},
		{Match: "hs", Default: "heart sounds", Rules: []Disambiguation{
			{Near: []string{"tab", "tablet", "mg", "dose", "od", "bd"}, Expansion: "at bedtime"},
		}},
		{Match: "ms", Default: "mitral stenosis", Rules: []Disambiguation{
			{Near: []string{"pain", "ache", "strain", "back", "muscle"}, Expansion: "musculoskeletal"},
		}},
		{Match: "od", Default: "once daily", Rules: []Disambiguation{
			{Near: []string{"eye", "drops", "drop"}, Expansion: "right eye"},
		}},
		{Match: "bd", Default: "twice daily"},
		{Match: "tds", Default: "three times daily"},
		{Match: "sos", Default: "as needed"},
		{Match: "stat", Default: "immediately"},
		{Match: "pv", Default: "per vaginam"},
		{Match: "n/v", Default: "nausea and vomiting"},
		// Common misspellings seen in typed notes.
		{Match: "vomitting", Default: "vomiting"},
		{Match: "diarrohea", Default: "diarrhea"},
		// Transliterated vernacular complaints.
		{Match: "bukhar", Default: "fever"},
		{Match: "bukhaar", Default: "fever"},
		{Match: "khansi", Default: "cough"},
		{Match: "khaansi", Default: "cough"},
		{Match: "ulti", Default: "vomiting"},
		{Match: "dast", Default: "loose stools"},
		{Match: "loose motions", Default: "loose stools"},
		{Match: "chakkar", Default: "dizziness"},
		{Match: "kamzori", Default: "weakness"},
		{Match: "ghabrahat", Default: "anxiety"},
		{Match: "sar dard", Default: "headache"},
		{Match: "sir dard", Default: "headache"},
		{Match: "pet dard", Default: "abdominal pain"},
		{Match: "pet me dard", Default: "abdominal pain"},
		{Match: "seene me dard", Default: "chest pain"},
		{Match: "seene me jalan", Default: "heartburn"},
		{Match: "peshab me jalan", Default: "burning urination"},
		{Match: "jalan", Default: "burning sensation"},
		{Match: "saans phoolna", Default: "shortness of breath"},
		{Match: "saans lene me dikkat", Default: "shortness of breath"},
		{Match: "khoon ki ulti", Default: "vomiting blood"},
	}
}

func builtinSymptoms() []SymptomPattern {
	return []SymptomPattern{
		{Key: "chest_pain", Phrases: []string{"chest pain", "crushing pain", "chest discomfort", "chest heaviness", "retrosternal pain"}},
		{Key: "chest_tightness", Phrases: []string{"chest tightness", "tightness in chest"}},
		{Key: "radiation_to_arm", Phrases: []string{"radiating to left arm", "radiating to the left arm", "radiating to arm", "radiates to left arm", "radiates to arm", "radiation to arm", "pain going to left arm"}},
		{Key: "radiation_to_jaw", Phrases: []string{"radiating to jaw", "radiates to jaw", "pain going to jaw"}},
		{Key: "sweating", Phrases: []string{"sweating", "diaphoresis", "profuse sweating", "cold sweats"}},
		{Key: "palpitations", Phrases: []string{"palpitations", "racing heart"}},
		{Key: "shortness_of_breath", Phrases: []string{"shortness of breath", "breathlessness", "difficulty breathing", "dyspnea", "dyspnoea"}},
		{Key: "wheeze", Phrases: []string{"wheezing", "wheeze", "whistling sound in chest"}},
		{Key: "cough", Phrases: []string{"cough", "coughing", "dry cough", "productive cough"}},
		{Key: "hemoptysis", Phrases: []string{"coughing blood", "blood in sputum", "hemoptysis"}},
		{Key: "sore_throat", Phrases: []string{"sore throat", "throat pain", "odynophagia"}},
		{Key: "runny_nose", Phrases: []string{"runny nose", "rhinorrhea", "nasal discharge", "cold and cough"}},
		{Key: "fever", Phrases: []string{"fever", "febrile", "feverish", "high grade fever", "low grade fever"}},
		{Key: "rigors", Phrases: []string{"rigors", "chills", "shivering"}},
		{Key: "night_sweats", Phrases: []string{"night sweats"}},
		{Key: "headache", Phrases: []string{"headache", "head ache", "pain in head"}},
		{Key: "severe_headache", Phrases: []string{"severe headache", "worst headache", "worst headache of life", "thunderclap headache", "splitting headache"}},
		{Key: "neck_stiffness", Phrases: []string{"neck stiffness", "stiff neck", "neck rigidity"}},
		{Key: "photophobia", Phrases: []string{"photophobia", "light sensitivity"}},
		{Key: "retro_orbital_pain", Phrases: []string{"retro orbital pain", "retroorbital pain", "pain behind eyes"}},
		{Key: "blurred_vision", Phrases: []string{"blurred vision", "blurring of vision", "visual disturbance"}},
		{Key: "dizziness", Phrases: []string{"dizziness", "giddiness", "vertigo", "lightheadedness"}},
		{Key: "loss_of_consciousness", Phrases: []string{"loss of consciousness", "unconscious", "fainted", "syncope", "blackout"}},
		{Key: "seizure", Phrases: []string{"seizure", "convulsion", "fits", "epileptic fit"}},
		{Key: "altered_sensorium", Phrases: []string{"altered sensorium", "confusion", "disoriented", "drowsy"}},
		{Key: "weakness", Phrases: []string{"weakness", "fatigue", "tiredness", "malaise", "generalized weakness"}},
		{Key: "weakness_one_side", Phrases: []string{"weakness of one side", "one sided weakness", "weakness on one side", "left sided weakness", "right sided weakness", "hemiparesis"}},
		{Key: "slurred_speech", Phrases: []string{"slurred speech", "slurring of speech", "difficulty speaking"}},
		{Key: "facial_droop", Phrases: []string{"facial droop", "facial deviation", "face drooping"}},
		{Key: "nausea", Phrases: []string{"nausea", "nauseous", "feeling sick"}},
		{Key: "vomiting", Phrases: []string{"vomiting", "vomited", "emesis"}},
		{Key: "hematemesis", Phrases: []string{"vomiting blood", "blood in vomit", "coffee ground vomitus"}},
		{Key: "loose_stools", Phrases: []string{"loose stools", "loose motion", "diarrhea", "diarrhoea", "watery stools"}},
		{Key: "abdominal_pain", Phrases: []string{"abdominal pain", "stomach pain", "pain in abdomen", "stomach ache"}},
		{Key: "epigastric_pain", Phrases: []string{"epigastric pain", "upper abdominal pain"}},
		{Key: "right_lower_abdominal_pain", Phrases: []string{"right lower abdominal pain", "right iliac fossa pain", "pain in right iliac fossa"}},
		{Key: "rebound_tenderness", Phrases: []string{"rebound tenderness", "guarding", "rigidity of abdomen"}},
		{Key: "melena", Phrases: []string{"black stools", "melena", "tarry stools"}},
		{Key: "rectal_bleeding", Phrases: []string{"bleeding per rectum", "rectal bleeding", "blood in stool"}},
		{Key: "heartburn", Phrases: []string{"heartburn", "burning in chest", "acid reflux", "acidity", "water brash"}},
		{Key: "loss_of_appetite", Phrases: []string{"loss of appetite", "poor appetite", "anorexia", "not eating well"}},
		{Key: "weight_loss", Phrases: []string{"weight loss", "losing weight", "loss of weight"}},
		{Key: "burning_urination", Phrases: []string{"burning urination", "burning micturition", "dysuria", "painful urination"}},
		{Key: "urinary_frequency", Phrases: []string{"urinary frequency", "frequent urination", "increased frequency of urination"}},
		{Key: "decreased_urine_output", Phrases: []string{"decreased urine output", "low urine output", "oliguria", "not passing urine"}},
		{Key: "polyuria", Phrases: []string{"polyuria", "excessive urination", "passing lots of urine"}},
		{Key: "polydipsia", Phrases: []string{"polydipsia", "excessive thirst", "increased thirst"}},
		{Key: "vaginal_bleeding", Phrases: []string{"bleeding per vaginam", "vaginal bleeding", "spotting"}},
		{Key: "pedal_edema", Phrases: []string{"pedal edema", "swelling of feet", "leg swelling", "swollen feet"}},
		{Key: "joint_pain", Phrases: []string{"joint pain", "arthralgia", "body ache", "body pain", "myalgia"}},
		{Key: "rash", Phrases: []string{"rash", "skin rash", "red spots"}},
		{Key: "petechiae", Phrases: []string{"petechiae", "petechial rash", "bleeding spots"}},
		{Key: "bleeding_gums", Phrases: []string{"bleeding gums", "gum bleeding"}},
		{Key: "anxiety", Phrases: []string{"anxiety", "anxious", "panic"}},
	}
}

func builtinDiseases() []Disease {
	return []Disease{
		{
			Name: "acute_coronary_syndrome", Code: "I20.0", Prior: 0.03,
			AgeBands: []AgeBand{{Min: 18, Max: 39, Multiplier: 0.3}, {Min: 40, Max: 59, Multiplier: 2.0}, {Min: 60, Max: 120, Multiplier: 3.0}},
			LikelihoodRatios: map[string]float64{
				"chest_pain": 3.5, "chest_pain_radiating_to_arm": 13, "radiation_to_arm": 4.5,
				"radiation_to_jaw": 4, "sweating": 2.5, "shortness_of_breath": 1.8, "nausea": 1.5,
				"tachycardia": 1.6, "palpitations": 1.4, "epigastric_pain": 1.3, "chest_tightness": 2.2,
				"heartburn": 0.6,
			},
			Investigations: []string{"12-lead ECG", "cardiac troponin I", "chest X-ray"},
		},
		{
			Name: "gastroesophageal_reflux", Code: "K21.9", Prior: 0.12,
			LikelihoodRatios: map[string]float64{
				"heartburn": 5, "epigastric_pain": 2.2, "chest_pain": 1.6, "nausea": 1.3, "cough": 1.2,
				"sweating": 0.7, "radiation_to_arm": 0.5, "chest_pain_radiating_to_arm": 0.4,
			},
			Investigations: []string{"upper GI endoscopy if alarm features"},
		},
		{
			Name: "musculoskeletal_chest_pain", Code: "M79.1", Prior: 0.08,
			LikelihoodRatios: map[string]float64{
				"chest_pain": 2.0, "chest_tightness": 1.2, "radiation_to_arm": 0.8,
				"chest_pain_radiating_to_arm": 0.6, "sweating": 0.5, "shortness_of_breath": 0.7,
			},
		},
		{
			Name: "panic_disorder", Code: "F41.0", Prior: 0.03,
			LikelihoodRatios: map[string]float64{
				"anxiety": 6, "palpitations": 3, "sweating": 1.8, "dizziness": 1.6,
				"shortness_of_breath": 1.5, "chest_pain": 1.5, "chest_pain_radiating_to_arm": 0.5,
			},
		},
		{
			Name: "pulmonary_embolism", Code: "I26.9", Prior: 0.005,
			LikelihoodRatios: map[string]float64{
				"shortness_of_breath": 3, "hemoptysis": 4, "tachycardia": 2.2, "tachypnea": 2.5,
				"spo2_low": 3, "chest_pain": 1.8, "pedal_edema": 1.8, "sweating": 1.3,
			},
			Investigations: []string{"CT pulmonary angiography", "D-dimer"},
		},
		{
			Name: "pneumonia", Code: "J18.9", Prior: 0.04,
			Seasons: map[string]float64{"winter": 1.5},
			LikelihoodRatios: map[string]float64{
				"cough": 3, "fever": 2.5, "shortness_of_breath": 2.2, "tachypnea": 2.8,
				"spo2_low": 2.5, "fever_reading": 2.2, "rigors": 2, "chest_pain": 1.4,
				"tachycardia": 1.4, "hemoptysis": 1.6,
			},
			Investigations: []string{"chest X-ray", "complete blood count"},
		},
		{
			Name: "bronchial_asthma", Code: "J45.9", Prior: 0.04,
			LikelihoodRatios: map[string]float64{
				"wheeze": 7, "shortness_of_breath": 3, "chest_tightness": 3, "cough": 2, "spo2_low": 2,
			},
			Investigations: []string{"peak expiratory flow rate"},
		},
		{
			Name: "acute_gastroenteritis", Code: "A09", Prior: 0.10,
			Seasons: map[string]float64{"monsoon": 1.8, "summer": 1.4},
			LikelihoodRatios: map[string]float64{
				"loose_stools": 6, "vomiting": 3, "abdominal_pain": 2, "nausea": 2,
				"fever": 1.5, "decreased_urine_output": 1.8,
			},
			Investigations: []string{"stool routine and microscopy if persistent"},
		},
		{
			Name: "dengue", Code: "A90", Prior: 0.008,
			Seasons: map[string]float64{"monsoon": 6},
			LikelihoodRatios: map[string]float64{
				"fever": 3.5, "high_fever_reading": 2.5, "retro_orbital_pain": 5, "joint_pain": 3,
				"rash": 2.5, "petechiae": 6, "bleeding_gums": 5, "headache": 2, "nausea": 1.4,
				"rigors": 1.2,
			},
			Investigations: []string{"dengue NS1 antigen", "complete blood count with platelets"},
		},
		{
			Name: "malaria", Code: "B54", Prior: 0.006,
			Seasons: map[string]float64{"monsoon": 5},
			LikelihoodRatios: map[string]float64{
				"fever_with_rigors": 9, "fever": 3, "rigors": 4, "headache": 1.8,
				"vomiting": 1.5, "sweating": 1.8, "high_fever_reading": 2,
			},
			Investigations: []string{"peripheral smear for malarial parasite", "rapid diagnostic test"},
		},
		{
			Name: "typhoid", Code: "A01.0", Prior: 0.005,
			Seasons: map[string]float64{"monsoon": 2.5, "summer": 1.6},
			LikelihoodRatios: map[string]float64{
				"fever": 3, "abdominal_pain": 2, "loose_stools": 1.6, "headache": 1.8,
				"loss_of_appetite": 2, "weakness": 1.6,
			},
			Investigations: []string{"blood culture", "Widal test"},
		},
		{
			Name: "leptospirosis", Code: "A27.9", Prior: 0.002,
			Seasons: map[string]float64{"monsoon": 4},
			LikelihoodRatios: map[string]float64{
				"fever": 2.5, "joint_pain": 3, "headache": 1.6, "decreased_urine_output": 2,
			},
			Investigations: []string{"leptospira IgM ELISA"},
		},
		{
			Name: "viral_upper_respiratory_infection", Code: "J06.9", Prior: 0.20,
			Seasons: map[string]float64{"winter": 1.6, "monsoon": 1.3},
			LikelihoodRatios: map[string]float64{
				"runny_nose": 4, "sore_throat": 3, "cough": 2.2, "fever": 1.5, "headache": 1.3,
				"high_fever_reading": 0.5, "shortness_of_breath": 0.6,
			},
		},
		{
			Name: "influenza", Code: "J11.1", Prior: 0.06,
			Seasons: map[string]float64{"winter": 2.2, "monsoon": 1.5},
			LikelihoodRatios: map[string]float64{
				"fever": 2.5, "joint_pain": 2.2, "headache": 1.8, "cough": 2,
				"sore_throat": 1.5, "rigors": 1.6, "runny_nose": 1.4,
			},
		},
		{
			Name: "migraine", Code: "G43.9", Prior: 0.10,
			AgeBands: []AgeBand{{Min: 10, Max: 50, Multiplier: 1.4}},
			LikelihoodRatios: map[string]float64{
				"headache": 4, "photophobia": 5, "nausea": 2.5, "severe_headache": 2,
				"vomiting": 1.8, "blurred_vision": 2, "neck_stiffness": 0.5, "fever": 0.3,
			},
		},
		{
			Name: "tension_headache", Code: "G44.2", Prior: 0.15,
			LikelihoodRatios: map[string]float64{
				"headache": 3, "neck_stiffness": 1.3, "photophobia": 0.6, "nausea": 0.6,
				"severe_headache": 0.7, "fever": 0.3,
			},
		},
		{
			Name: "subarachnoid_hemorrhage", Code: "I60.9", Prior: 0.0005,
			AgeBands: []AgeBand{{Min: 40, Max: 120, Multiplier: 1.8}},
			LikelihoodRatios: map[string]float64{
				"severe_headache": 18, "neck_stiffness": 6, "loss_of_consciousness": 5,
				"altered_sensorium": 4, "vomiting": 3, "photophobia": 3, "headache": 2,
			},
			Investigations: []string{"non-contrast CT head", "lumbar puncture if CT negative"},
		},
		{
			Name: "meningitis", Code: "G03.9", Prior: 0.001,
			LikelihoodRatios: map[string]float64{
				"neck_stiffness": 8, "fever": 3, "headache": 3, "photophobia": 4,
				"altered_sensorium": 4, "seizure": 3, "vomiting": 2, "rash": 2.5,
				"high_fever_reading": 2,
			},
			Investigations: []string{"lumbar puncture", "blood cultures"},
		},
		{
			Name: "preeclampsia", Code: "O14.9", Prior: 0.04,
			Sexes: []string{"female"}, PregnancyOnly: true,
			LikelihoodRatios: map[string]float64{
				"bp_systolic_high": 8, "bp_diastolic_high": 5, "severe_headache": 4,
				"blurred_vision": 4, "epigastric_pain": 3, "pedal_edema": 2.5, "vomiting": 1.5,
			},
			Investigations: []string{"urine protein", "platelet count", "liver function tests"},
		},
		{
			Name: "essential_hypertension", Code: "I10", Prior: 0.25,
			AgeBands: []AgeBand{{Min: 18, Max: 39, Multiplier: 0.5}, {Min: 40, Max: 120, Multiplier: 1.6}},
			LikelihoodRatios: map[string]float64{
				"hypertension_reading": 4, "headache": 1.4, "dizziness": 1.4, "blurred_vision": 1.5,
			},
			Investigations: []string{"ambulatory BP monitoring", "serum creatinine", "ECG"},
		},
		{
			Name: "urinary_tract_infection", Code: "N39.0", Prior: 0.05,
			LikelihoodRatios: map[string]float64{
				"burning_urination": 6, "urinary_frequency": 4, "fever": 1.5,
				"abdominal_pain": 1.4, "decreased_urine_output": 1.3,
			},
			Investigations: []string{"urine routine and microscopy", "urine culture"},
		},
		{
			Name: "benign_prostatic_hyperplasia", Code: "N40", Prior: 0.08,
			Sexes:    []string{"male"},
			AgeBands: []AgeBand{{Min: 18, Max: 39, Multiplier: 0.1}, {Min: 50, Max: 120, Multiplier: 2.2}},
			LikelihoodRatios: map[string]float64{
				"urinary_frequency": 4, "decreased_urine_output": 2.5, "burning_urination": 1.3,
			},
			Investigations: []string{"ultrasound KUB with post-void residual"},
		},
		{
			Name: "acute_appendicitis", Code: "K35.8", Prior: 0.008,
			AgeBands: []AgeBand{{Min: 5, Max: 39, Multiplier: 1.6}},
			LikelihoodRatios: map[string]float64{
				"right_lower_abdominal_pain": 8, "rebound_tenderness": 4, "abdominal_pain": 2.5,
				"loss_of_appetite": 2.2, "nausea": 2, "vomiting": 2, "fever": 1.6, "loose_stools": 0.6,
			},
			Investigations: []string{"ultrasound abdomen", "complete blood count"},
		},
		{
			Name: "peptic_ulcer_disease", Code: "K27.9", Prior: 0.03,
			LikelihoodRatios: map[string]float64{
				"epigastric_pain": 4, "melena": 6, "hematemesis": 5, "heartburn": 2,
				"abdominal_pain": 2, "nausea": 1.5, "loss_of_appetite": 1.4,
			},
			Investigations: []string{"upper GI endoscopy", "H. pylori testing"},
		},
		{
			Name: "hemorrhoids", Code: "K64.9", Prior: 0.04,
			LikelihoodRatios: map[string]float64{
				"rectal_bleeding": 8, "abdominal_pain": 0.7,
			},
			Investigations: []string{"proctoscopy"},
		},
		{
			Name: "type_2_diabetes", Code: "E11.9", Prior: 0.10,
			AgeBands: []AgeBand{{Min: 40, Max: 120, Multiplier: 1.8}},
			LikelihoodRatios: map[string]float64{
				"polyuria": 5, "polydipsia": 5, "weight_loss": 2.5, "weakness": 1.5, "blurred_vision": 1.8,
			},
			Investigations: []string{"fasting plasma glucose", "HbA1c"},
		},
		{
			Name: "pulmonary_tuberculosis", Code: "A15.0", Prior: 0.01,
			LikelihoodRatios: map[string]float64{
				"night_sweats": 5, "hemoptysis": 5, "weight_loss": 4, "loss_of_appetite": 2.5,
				"cough": 2, "fever": 2,
			},
			Investigations: []string{"sputum for AFB", "chest X-ray"},
		},
		{
			Name: "acute_stroke", Code: "I63.9", Prior: 0.003,
			AgeBands: []AgeBand{{Min: 18, Max: 39, Multiplier: 0.3}, {Min: 50, Max: 120, Multiplier: 2.5}},
			LikelihoodRatios: map[string]float64{
				"weakness_one_side": 18, "facial_droop": 9, "slurred_speech": 8,
				"altered_sensorium": 3, "loss_of_consciousness": 2.5, "hypertension_reading": 2,
				"dizziness": 1.6, "headache": 1.5,
			},
			Investigations: []string{"non-contrast CT head", "blood glucose"},
		},
	}
}

func builtinRedFlags() []RedFlagRule {
	return []RedFlagRule{
		{
			ID: "suspected_acs", Urgency: UrgencyEmergency,
			Requires:         []string{"chest_pain", "sweating", "radiation_to_arm"},
			Action:           "Obtain 12-lead ECG immediately; give aspirin 300 mg chewed unless contraindicated; arrange emergency transfer.",
			TimeCriticalNote: "Door-to-ECG target is 10 minutes.",
		},
		{
			ID: "eclampsia_risk", Urgency: UrgencyEmergency, PregnancyOnly: true,
			Requires:         []string{"severe_headache", "bp_systolic_high"},
			Action:           "Check urine protein; give magnesium sulfate per protocol; urgent obstetric referral.",
			TimeCriticalNote: "Eclampsia can follow within hours of warning symptoms.",
		},
		{
			ID: "suspected_stroke", Urgency: UrgencyEmergency,
			Requires:         []string{"weakness_one_side", "slurred_speech"},
			Action:           "Activate stroke protocol; record last-known-well time; urgent non-contrast CT head.",
			TimeCriticalNote: "Thrombolysis window closes 4.5 hours after onset.",
		},
		{
			ID: "suspected_meningitis", Urgency: UrgencyEmergency,
			Requires:         []string{"fever", "neck_stiffness"},
			Action:           "Start empirical IV antibiotics without waiting for imaging; urgent referral.",
			TimeCriticalNote: "Antibiotic delay beyond one hour worsens outcomes.",
		},
		{
			ID: "upper_gi_bleed", Urgency: UrgencyEmergency,
			Requires: []string{"hematemesis"},
			Action:   "Secure large-bore IV access; send crossmatch; urgent endoscopy referral.",
		},
		{
			ID: "severe_hypoxia", Urgency: UrgencyEmergency,
			Requires: []string{"spo2_low"},
			Action:   "Start oxygen targeting saturation above 94%; assess airway and breathing; arrange emergency transfer.",
		},
		{
			ID: "shock_pattern", Urgency: UrgencyEmergency,
			Requires:         []string{"hypotension", "tachycardia"},
			Action:           "Begin IV fluid resuscitation; search for bleeding or sepsis source; continuous monitoring.",
			TimeCriticalNote: "Reassess blood pressure every 15 minutes until stable.",
		},
		{
			ID: "febrile_seizure_child", Urgency: UrgencyEmergency, MaxAge: 6,
			Requires: []string{"fever", "seizure"},
			Action:   "Protect airway; give antipyretics; rule out CNS infection before discharge.",
		},
		{
			ID: "hypertensive_urgency", Urgency: UrgencyUrgent,
			Requires: []string{"bp_systolic_high"},
			Action:   "Repeat blood pressure after rest; assess for end-organ symptoms; start or adjust antihypertensives.",
		},
		{
			ID: "severe_dehydration", Urgency: UrgencyUrgent,
			Requires: []string{"loose_stools", "decreased_urine_output"},
			Action:   "Begin rehydration with ORS or IV fluids; reassess urine output and vitals hourly.",
		},
		{
			ID: "dengue_warning_signs", Urgency: UrgencyUrgent,
			Requires: []string{"fever", "petechiae"},
			Action:   "Check platelet count and hematocrit; assess for plasma leakage; admit if warning signs persist.",
		},
		{
			ID: "early_pregnancy_bleeding", Urgency: UrgencyUrgent, PregnancyOnly: true,
			Requires: []string{"vaginal_bleeding"},
			Action:   "Pelvic ultrasound for viability and location; quantify bleeding; obstetric review same day.",
		},
	}
}
