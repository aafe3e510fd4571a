package recommend

import (
	"emofuse/internal/domain"
)

const tierCap = 5

// Generator maps a unified state plus its risk assessment into tiered
// coping recommendations.
type Generator struct {
	catalog Catalog
}

func NewGenerator(catalog Catalog) *Generator {
	if catalog.Emotions == nil {
		catalog = DefaultCatalog()
	}
	return &Generator{catalog: catalog}
}

func (g *Generator) Generate(state domain.UnifiedState, risk domain.RiskAssessment) domain.RecommendationSet {
	var immediate, shortTerm, longTerm []string
	priority := domain.RiskLow
	ruleFired := false

	// High or critical risk leads with grounding actions.
	if risk.Level == domain.RiskHigh || risk.Level == domain.RiskCritical {
		immediate = append(immediate, g.catalog.Grounding...)
		priority = domain.RiskHigh
		ruleFired = true
	}

	tiers, ok := g.catalog.Emotions[domain.CanonicalLabel(state.PrimaryEmotion)]
	if !ok {
		tiers = g.catalog.Default
	} else {
		ruleFired = true
	}
	immediate = append(immediate, tiers.Immediate...)
	shortTerm = append(shortTerm, tiers.ShortTerm...)
	longTerm = append(longTerm, tiers.LongTerm...)

	if state.Intensity >= 8 {
		immediate = append([]string{g.catalog.Urgent}, immediate...)
		priority = domain.RiskCritical
		ruleFired = true
	}

	out := domain.RecommendationSet{
		Immediate: dedupeCap(immediate),
		ShortTerm: dedupeCap(shortTerm),
		LongTerm:  dedupeCap(longTerm),
		Priority:  priority,
	}
	if !ruleFired {
		out.Reasoning = "no elevated risk or emotion-specific rule applied; general wellness guidance"
	}
	return out
}

// AppendExtras merges enhancer-suggested actions into the short-term tier,
// keeping the dedupe and cap rules.
func AppendExtras(set domain.RecommendationSet, extras []string) domain.RecommendationSet {
	if len(extras) == 0 {
		return set
	}
	set.ShortTerm = dedupeCap(append(set.ShortTerm, extras...))
	return set
}

// dedupeCap removes duplicates preserving first-seen order and caps the
// tier at five entries.
func dedupeCap(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
		if len(out) == tierCap {
			break
		}
	}
	return out
}
