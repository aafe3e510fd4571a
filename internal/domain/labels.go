package domain

import "strings"

// Valence maps emotion labels to a signed score used only for trend-slope
// computation. Unknown labels score 0.
var valenceTable = map[string]float64{
	"happy":     4,
	"joy":       4,
	"excited":   3,
	"calm":      2,
	"neutral":   1,
	"surprised": 0,
	"confused":  0,
	"sad":       -1,
	"angry":     -2,
	"fear":      -2,
	"disgusted": -2,
	"stressed":  -3,
}

// Upstream classifiers emit slightly different spellings for the same
// emotion; canonicalize once at the read boundary.
var labelAliases = map[string]string{
	"happiness":  "happy",
	"joyful":     "joy",
	"excitement": "excited",
	"surprise":   "surprised",
	"confusion":  "confused",
	"sadness":    "sad",
	"anger":      "angry",
	"afraid":     "fear",
	"scared":     "fear",
	"fearful":    "fear",
	"disgust":    "disgusted",
	"stress":     "stressed",
	"anxious":    "stressed",
	"anxiety":    "stressed",
}

// highRiskLabels are the emotion categories that carry the highest base
// risk score and qualify for the cross-channel corroboration bonus.
var highRiskLabels = map[string]struct{}{
	"angry":     {},
	"fear":      {},
	"disgusted": {},
	"stressed":  {},
	"sad":       {},
}

var moderateRiskLabels = map[string]struct{}{
	"confused":  {},
	"surprised": {},
}

// CanonicalLabel lowercases, trims, and resolves aliases. Empty input maps
// to neutral; unknown labels pass through unchanged.
func CanonicalLabel(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "neutral"
	}
	if aliased, ok := labelAliases[key]; ok {
		return aliased
	}
	return key
}

func Valence(label string) float64 {
	return valenceTable[CanonicalLabel(label)]
}

func IsHighRiskLabel(label string) bool {
	_, ok := highRiskLabels[CanonicalLabel(label)]
	return ok
}

func IsModerateRiskLabel(label string) bool {
	_, ok := moderateRiskLabels[CanonicalLabel(label)]
	return ok
}
