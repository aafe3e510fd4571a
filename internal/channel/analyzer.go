package channel

import (
	"math"

	"emofuse/internal/domain"
)

// Analyzer reduces all observations from one channel inside the active
// window into a single ChannelInsight. It never fails: malformed or empty
// input collapses to the neutral no-data insight.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

func (a *Analyzer) Analyze(ch string, obs []domain.EmotionObservation) domain.ChannelInsight {
	if len(obs) == 0 {
		return domain.ChannelInsight{
			Channel:      ch,
			PrimaryLabel: "neutral",
			Confidence:   0,
			Stability:    1.0,
			SampleCount:  0,
		}
	}

	counts := make(map[string]int, len(obs))
	firstSeen := make(map[string]int, len(obs))
	confSum := 0.0
	confN := 0
	for i, o := range obs {
		label := domain.CanonicalLabel(o.PrimaryLabel)
		if _, ok := firstSeen[label]; !ok {
			firstSeen[label] = i
		}
		counts[label]++
		if c := clamp01(o.PrimaryConfidence); c > 0 {
			confSum += c
			confN++
		}
	}

	// Mode label, ties broken by first-seen order.
	primary := ""
	primaryCount := 0
	for label, n := range counts {
		if n > primaryCount || (n == primaryCount && firstSeen[label] < firstSeen[primary]) {
			primary = label
			primaryCount = n
		}
	}

	confidence := 0.0
	if confN > 0 {
		confidence = confSum / float64(confN)
	}

	return domain.ChannelInsight{
		Channel:      ch,
		PrimaryLabel: primary,
		Confidence:   confidence,
		Stability:    stability(counts, len(obs)),
		SampleCount:  len(obs),
	}
}

// stability is a normalized Shannon entropy measure of the label
// distribution: 1.0 means every reading agrees, 0.0 means labels are spread
// uniformly over the distinct set.
func stability(counts map[string]int, total int) float64 {
	if total < 2 || len(counts) < 2 {
		return 1.0
	}

	entropy := 0.0
	for _, n := range counts {
		p := float64(n) / float64(total)
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
	}
	maxEntropy := math.Log2(float64(len(counts)))
	if maxEntropy <= 0 {
		return 1.0
	}
	return clamp01(1 - entropy/maxEntropy)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
