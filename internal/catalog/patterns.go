package catalog

// Static pattern tables. These are the built-in, pre-audited correction
// rules shipped with the engine — they are exempt from the runtime safety
// validator. Entries within a category apply in declaration order, and the
// order is load-bearing: longer, more specific phrases are declared before
// shorter overlapping ones so partial matches never win.
//
// Every replacement must be a fixed point of its own category: applying a
// category to already-corrected text is a no-op.

var staticPatterns = map[Category][]PatternEntry{
	CategoryMedication: {
		// ASR splits and mangles of common cardiology drugs.
		{Category: CategoryMedication, Pattern: `(?i)\bmetro\s?prolol\b`, Replace: "metoprolol"},
		{Category: CategoryMedication, Pattern: `(?i)\bmeta\s?prolol\b`, Replace: "metoprolol"},
		{Category: CategoryMedication, Pattern: `(?i)\bator\s?vastatin\b`, Replace: "atorvastatin"},
		{Category: CategoryMedication, Pattern: `(?i)\ba\s?torva\s?statin\b`, Replace: "atorvastatin"},
		{Category: CategoryMedication, Pattern: `(?i)\bclo\s?pidogrel\b`, Replace: "clopidogrel"},
		{Category: CategoryMedication, Pattern: `(?i)\bfruse\s?mide\b`, Replace: "frusemide"},
		{Category: CategoryMedication, Pattern: `(?i)\bfurosemide\b`, Replace: "frusemide"},
		{Category: CategoryMedication, Pattern: `(?i)\bspirono\s?lactone\b`, Replace: "spironolactone"},
		{Category: CategoryMedication, Pattern: `(?i)\bpera\s?hexaline\b`, Replace: "perhexiline"},
		{Category: CategoryMedication, Pattern: `(?i)\bworth\s?arin\b`, Replace: "warfarin"},
		// Dose units dictated long-form.
		{Category: CategoryMedication, Pattern: `(?i)\b(\d+(?:\.\d+)?)\s*milligrams?\b`, Replace: "${1}mg"},
		{Category: CategoryMedication, Pattern: `(?i)\b(\d+(?:\.\d+)?)\s*micrograms?\b`, Replace: "${1}mcg"},
	},

	CategoryPathology: {
		{Category: CategoryPathology, Pattern: `(?i)\ba\s?trial fibrillation\b`, Replace: "atrial fibrillation"},
		{Category: CategoryPathology, Pattern: `(?i)\ba\s?trial flutter\b`, Replace: "atrial flutter"},
		{Category: CategoryPathology, Pattern: `(?i)\bcardio\smyopathy\b`, Replace: "cardiomyopathy"},
		{Category: CategoryPathology, Pattern: `(?i)\bmyo\s?cardial infarction\b`, Replace: "myocardial infarction"},
		{Category: CategoryPathology, Pattern: `(?i)\bsten\sosis\b`, Replace: "stenosis"},
		{Category: CategoryPathology, Pattern: `(?i)\bregurge\b`, Replace: "regurgitation"},
		{Category: CategoryPathology, Pattern: `(?i)\bre\s?gurgitation\b`, Replace: "regurgitation"},
		{Category: CategoryPathology, Pattern: `(?i)\bpericardial infusion\b`, Replace: "pericardial effusion"},
	},

	CategoryCardiology: {
		// Long-form structures to standard abbreviations. Longer phrases first.
		{Category: CategoryCardiology, Pattern: `(?i)\bleft anterior descending artery\b`, Replace: "LAD"},
		{Category: CategoryCardiology, Pattern: `(?i)\bleft anterior descending\b`, Replace: "LAD"},
		{Category: CategoryCardiology, Pattern: `(?i)\bleft circumflex artery\b`, Replace: "LCx"},
		{Category: CategoryCardiology, Pattern: `(?i)\bleft circumflex\b`, Replace: "LCx"},
		{Category: CategoryCardiology, Pattern: `(?i)\bright coronary artery\b`, Replace: "RCA"},
		{Category: CategoryCardiology, Pattern: `(?i)\bleft main stem\b`, Replace: "LMS"},
		{Category: CategoryCardiology, Pattern: `(?i)\bleft ventricular ejection fraction\b`, Replace: "LVEF"},
		{Category: CategoryCardiology, Pattern: `(?i)\bejection fraction\b`, Replace: "EF"},
		{Category: CategoryCardiology, Pattern: `(?i)\bEF of (\d+)\b`, Replace: "EF $1%"},
	},

	CategorySeverity: {
		{Category: CategorySeverity, Pattern: `(?i)\bmoderate to severe\b`, Replace: "mod-sev"},
		{Category: CategorySeverity, Pattern: `(?i)\bmild to moderate\b`, Replace: "mild-mod"},
		{Category: CategorySeverity, Pattern: `(?i)\btrivial to mild\b`, Replace: "trivial-mild"},
		{Category: CategorySeverity, Pattern: `(?i)\bsevere to critical\b`, Replace: "severe-critical"},
	},

	CategoryValves: {
		// Mishearings of valve and chamber names.
		{Category: CategoryValves, Pattern: `(?i)\bmy trial\b`, Replace: "mitral"},
		{Category: CategoryValves, Pattern: `(?i)\bmy tral\b`, Replace: "mitral"},
		{Category: CategoryValves, Pattern: `(?i)\btry cuspid\b`, Replace: "tricuspid"},
		{Category: CategoryValves, Pattern: `(?i)\bay\s?ortic\b`, Replace: "aortic"},
		{Category: CategoryValves, Pattern: `(?i)\bpull\s?monary\b`, Replace: "pulmonary"},
		{Category: CategoryValves, Pattern: `(?i)\bbio\s?prosthetic\b`, Replace: "bioprosthetic"},
	},

	CategoryLaboratory: {
		// Spoken "<analyte> of <value>" to report form, units normalised.
		{Category: CategoryLaboratory, Pattern: `(?i)\bcreatinine of (\d+)\b`, Replace: "creatinine $1"},
		{Category: CategoryLaboratory, Pattern: `(?i)\bpotassium of (\d+(?:\.\d+)?)\b`, Replace: "potassium $1"},
		{Category: CategoryLaboratory, Pattern: `(?i)\bha?emoglobin of (\d+)\b`, Replace: "haemoglobin $1"},
		{Category: CategoryLaboratory, Pattern: `(?i)\btroponin of (\d+)\b`, Replace: "troponin $1"},
		{Category: CategoryLaboratory, Pattern: `(?i)\b(\d+(?:\.\d+)?)\s*millimoles? per lit(?:er|re)\b`, Replace: "$1 mmol/L"},
		{Category: CategoryLaboratory, Pattern: `(?i)\b(\d+(?:\.\d+)?)\s*grams? per lit(?:er|re)\b`, Replace: "$1 g/L"},
		{Category: CategoryLaboratory, Pattern: `(?i)\be\s?gfr\b`, Replace: "eGFR"},
	},
}

// allPatterns is the flattened table in [CategoryOrder] order, built once at
// init so repeated "all" requests share a stable slice.
var allPatterns = func() []PatternEntry {
	var all []PatternEntry
	for _, cat := range CategoryOrder {
		all = append(all, staticPatterns[cat]...)
	}
	return all
}()
