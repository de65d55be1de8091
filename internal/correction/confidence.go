package correction

import "strings"

// Confidence scoring constants.
const (
	confidenceFloor   = 0.6
	confidenceBase    = 0.95
	confidencePenalty = 0.35
	confidenceBoost   = 0.1
)

// recognizedMedicalTerms is the curated vocabulary used by the confidence
// boost: a correction that introduces one of these terms plausibly fixed a
// real mis-transcription. Matching is substring, case-insensitive.
var recognizedMedicalTerms = []string{
	// Medications.
	"metoprolol", "atenolol", "bisoprolol", "carvedilol",
	"frusemide", "spironolactone", "perindopril", "ramipril",
	"atorvastatin", "rosuvastatin", "clopidogrel", "ticagrelor",
	"warfarin", "apixaban", "rivaroxaban", "amiodarone", "digoxin",
	"sacubitril", "entresto",
	// Anatomy and pathology.
	"oesophageal", "anaemia", "haemoglobin", "oedema",
	"stenosis", "regurgitation", "cardiomyopathy", "pericardial",
	"aortic", "mitral", "tricuspid", "pulmonary",
	"ventricle", "ventricular", "atrial", "atrium",
	// Vessels and studies.
	"lad", "lcx", "rca", "lms",
	"tte", "toe", "ctca", "angiogram", "echocardiogram",
	// Measurements.
	"mmhg", "mmol/l", "egfr", "mets",
}

// scoreConfidence estimates a 0-1 confidence value for a completed rewrite.
//
// Unchanged text scores 1.0: nothing needed fixing. Otherwise the baseline
// falls with edit density (floored at 0.6), and introducing recognized
// medical vocabulary absent from the input earns a +0.1 boost, capped at 1.0.
func scoreConfidence(input, output string, matchCount int) float64 {
	if input == output {
		return 1.0
	}

	words := len(strings.Fields(input))
	if words < 1 {
		words = 1
	}
	changeRatio := float64(matchCount) / float64(words)

	confidence := confidenceBase - changeRatio*confidencePenalty
	if confidence < confidenceFloor {
		confidence = confidenceFloor
	}

	if introducesMedicalTerm(input, output) {
		confidence += confidenceBoost
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// introducesMedicalTerm reports whether output contains a recognized medical
// term that input does not.
func introducesMedicalTerm(input, output string) bool {
	inLower := strings.ToLower(input)
	outLower := strings.ToLower(output)
	for _, term := range recognizedMedicalTerms {
		if strings.Contains(outLower, term) && !strings.Contains(inLower, term) {
			return true
		}
	}
	return false
}
